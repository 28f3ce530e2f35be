// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package endpoint defines how the retrying HTTP client (retryx.Client)
// chooses the server each HTTP request attempt is sent to.
//
// When a client has a Selector, it calls the Selector before every
// attempt, so a retry may go to a different endpoint than the attempt
// it replaces. A Selector which cannot choose an endpoint returns an
// error, which becomes the outcome of that attempt. The retry rule then
// decides, as for any other error, whether to try again.
package endpoint

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
)

// ErrNoEndpoint is returned by a Selector which has no endpoint to
// choose from.
var ErrNoEndpoint = errors.New("retryx/endpoint: no endpoint available")

// An Endpoint is the address of a server an attempt can be sent to.
type Endpoint struct {
	// Scheme is the URL scheme, "http" or "https". If empty, the
	// scheme of the request URL is kept.
	Scheme string

	// Host is the host, or host:port, of the server.
	Host string
}

// Parse parses s, of the form "host", "host:port", "scheme://host" or
// "scheme://host:port", into an Endpoint.
func Parse(s string) (Endpoint, error) {
	var e Endpoint
	if i := strings.Index(s, "://"); i >= 0 {
		e.Scheme, s = s[:i], s[i+3:]
	}
	e.Host = strings.TrimSuffix(s, "/")
	if e.Host == "" || strings.ContainsAny(e.Host, "/?#") {
		return Endpoint{}, errors.New("retryx/endpoint: invalid endpoint " + s)
	}
	return e, nil
}

// String returns the endpoint as scheme://host, or just host if the
// endpoint has no scheme.
func (e Endpoint) String() string {
	if e.Scheme == "" {
		return e.Host
	}
	return e.Scheme + "://" + e.Host
}

// Apply rewrites the URL of r to address e. It also sets r.Host, so the
// Host header matches the endpoint.
func (e Endpoint) Apply(r *http.Request) {
	if e.Scheme != "" {
		r.URL.Scheme = e.Scheme
	}
	r.URL.Host = e.Host
	r.Host = e.Host
}

// A Selector chooses the endpoint for an HTTP request attempt.
//
// Implementations of Selector must be safe for concurrent use by
// multiple goroutines.
type Selector interface {
	Select(ctx context.Context, r *http.Request) (Endpoint, error)
}

// The SelectorFunc type is an adapter to allow the use of ordinary
// functions as endpoint selectors.
type SelectorFunc func(ctx context.Context, r *http.Request) (Endpoint, error)

// Select calls f(ctx, r).
func (f SelectorFunc) Select(ctx context.Context, r *http.Request) (Endpoint, error) {
	return f(ctx, r)
}

// RoundRobin is a Selector which cycles through a fixed list of
// endpoints.
type RoundRobin struct {
	endpoints []Endpoint
	next      atomic.Uint64
}

// NewRoundRobin returns a RoundRobin selector over endpoints. If
// endpoints is empty, every call to Select fails with ErrNoEndpoint.
func NewRoundRobin(endpoints ...Endpoint) *RoundRobin {
	return &RoundRobin{endpoints: append([]Endpoint(nil), endpoints...)}
}

// Select implements Selector.
func (rr *RoundRobin) Select(_ context.Context, _ *http.Request) (Endpoint, error) {
	if len(rr.endpoints) == 0 {
		return Endpoint{}, ErrNoEndpoint
	}
	i := rr.next.Add(1) - 1
	return rr.endpoints[i%uint64(len(rr.endpoints))], nil
}

// Endpoints returns the selector's endpoints.
func (rr *RoundRobin) Endpoints() []Endpoint {
	return append([]Endpoint(nil), rr.endpoints...)
}
