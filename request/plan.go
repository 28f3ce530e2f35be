// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

const nilCtxMsg = "retryx/request: nil context"

// A Plan is the logical HTTP request: what the caller wants sent, once,
// no matter how many attempts it takes. A client turns each attempt
// into an http.Request copied from the Plan.
//
// Plan keeps the client-side fields of http.Request. Its body is
// replayable, either pre-buffered (Body) or read once from a stream
// (Stream) before the first attempt, so every attempt sends an
// identical copy. The Plan's context governs the whole execution,
// across attempts and backoff waits.
type Plan struct {
	// Method specifies the HTTP method (GET, POST, PUT, etc.).
	// An empty string means GET.
	Method string

	// URL specifies the URL to access.
	//
	// The URL's Host specifies the server to connect to, while
	// the Request's Host field optionally specifies the Host
	// header value to send in the HTTP request.
	URL *urlpkg.URL

	// Header contains the request header fields to be sent by the
	// client.
	//
	// For further details, see the documentation of Request.Header in
	// the net/http package.
	Header http.Header

	// Body is the pre-buffered request body to be sent. A nil or
	// empty body indicates no request body should be sent, for example
	// on a GET or DELETE request.
	Body []byte

	// Stream optionally supplies the request body as a stream. If
	// Stream is non-nil, Body is ignored and Stream is read to the end
	// when the plan execution starts, before the first attempt is made.
	// An error reading Stream fails the plan execution without making
	// any attempt. If Stream implements io.Closer, it is closed after
	// it is read.
	Stream io.Reader

	// StreamResponse stipulates that the response body of the final
	// attempt should be delivered to the caller as a stream instead of
	// being read and buffered into the execution's Body field.
	//
	// When StreamResponse is set, the caller must close the response
	// body of a successful execution. Attempts which are superseded by
	// a retry are always closed by the client.
	StreamResponse bool

	// TransferEncoding is copied to each attempt's request. See
	// http.Request.
	TransferEncoding []string

	// Close closes the connection after each attempt, so no two
	// attempts share a connection.
	Close bool

	// Host overrides the Host header. If empty, URL.Host is sent. An
	// endpoint selector replaces it along with URL.Host.
	Host string

	// ctx is replaced only through WithContext.
	ctx context.Context
}

// NewPlan is NewPlanWithContext with the background context.
func NewPlan(method, url string, body any) (*Plan, error) {
	return NewPlanWithContext(context.Background(), method, url, body)
}

// NewPlanWithContext returns a Plan for method and url whose execution
// is governed by ctx. An empty method means GET. The body is converted
// with BodyBytes.
func NewPlanWithContext(ctx context.Context, method, url string, body any) (*Plan, error) {
	if ctx == nil {
		return nil, errors.New(nilCtxMsg)
	}
	if method == "" {
		method = "GET"
	}
	// A method is an RFC 7230 token, the same grammar as a field name.
	if !httpguts.ValidHeaderFieldName(method) {
		return nil, fmt.Errorf("retryx/request: invalid method %q", method)
	}
	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, err
	}
	// RFC 3986 section 6.2.3: an empty port is the default port.
	if strings.LastIndex(u.Host, ":") > strings.LastIndex(u.Host, "]") {
		u.Host = strings.TrimSuffix(u.Host, ":")
	}
	b, err := BodyBytes(body)
	if err != nil {
		return nil, err
	}
	return &Plan{
		ctx:    ctx,
		Method: method,
		URL:    u,
		Header: make(http.Header),
		Body:   b,
		Host:   u.Host,
	}, nil
}

// Context returns the plan's context, or the background context if the
// plan has none.
func (p *Plan) Context() context.Context {
	if p.ctx != nil {
		return p.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of p governed by ctx, which must
// be non-nil. Cancelling ctx cancels the attempt in flight and any
// backoff wait, and ends the execution.
func (p *Plan) WithContext(ctx context.Context) *Plan {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	p2 := new(Plan)
	*p2 = *p
	p2.ctx = ctx
	return p2
}

// AddCookie adds a cookie to the plan's single Cookie header field, as
// http.Request.AddCookie does.
func (p *Plan) AddCookie(c *http.Cookie) {
	s := (&http.Cookie{Name: c.Name, Value: c.Value}).String()
	if h := p.Header.Get("Cookie"); h != "" {
		s = h + "; " + s
	}
	p.Header.Set("Cookie", s)
}

// SetBasicAuth sets the Authorization header for HTTP Basic
// Authentication, as http.Request.SetBasicAuth does.
func (p *Plan) SetBasicAuth(username, password string) {
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	p.Header.Set("Authorization", "Basic "+creds)
}

// ToRequest creates an HTTP request for the plan, bound to ctx, which
// may not be nil.
//
// The request shares the plan's URL and Header. To obtain a request
// which can be modified independently of the plan, use a Duplicator.
func (p *Plan) ToRequest(ctx context.Context) *http.Request {
	return p.toRequest(ctx, p.Body)
}

func (p *Plan) toRequest(ctx context.Context, body []byte) *http.Request {
	r := &http.Request{
		Method:           p.Method,
		URL:              p.URL,
		Proto:            "HTTP/1.1",
		ProtoMajor:       1,
		ProtoMinor:       1,
		Header:           p.Header,
		TransferEncoding: p.TransferEncoding,
		Close:            p.Close,
		Host:             p.Host,
	}
	if len(body) > 0 {
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		r.ContentLength = int64(len(body))
	}
	return r.WithContext(ctx)
}
