// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryx

import (
	"context"
	"net/url"

	"github.com/gogama/retryx/request"
)

// A Doer executes request plans. Client is the canonical Doer, and
// other implementations, such as wrappers adding tracing or
// authentication, should behave like Client.Do.
type Doer interface {
	Do(p *request.Plan) (*request.Execution, error)
}

// An IdleCloser can close idle keep-alive connections without
// interrupting connections in use.
type IdleCloser interface {
	CloseIdleConnections()
}

// An Executor is a Doer with the shortcut methods of Client. Inflate
// turns any Doer into an Executor.
type Executor interface {
	Doer
	IdleCloser
	Get(url string) (*request.Execution, error)
	Head(url string) (*request.Execution, error)
	Post(url, contentType string, body any) (*request.Execution, error)
	PostForm(url string, data url.Values) (*request.Execution, error)
}

// Get executes a GET plan for url with d.
func Get(ctx context.Context, d Doer, url string) (*request.Execution, error) {
	return do(ctx, d, "GET", url, "", nil)
}

// Head executes a HEAD plan for url with d.
func Head(ctx context.Context, d Doer, url string) (*request.Execution, error) {
	return do(ctx, d, "HEAD", url, "", nil)
}

// Post executes a POST plan for url with d. The body may be anything
// request.BodyBytes accepts.
func Post(ctx context.Context, d Doer, url, contentType string, body any) (*request.Execution, error) {
	return do(ctx, d, "POST", url, contentType, body)
}

// PostForm executes a POST plan for url with d, sending data
// URL-encoded as application/x-www-form-urlencoded.
func PostForm(ctx context.Context, d Doer, url string, data url.Values) (*request.Execution, error) {
	return do(ctx, d, "POST", url, "application/x-www-form-urlencoded", data.Encode())
}

func do(ctx context.Context, d Doer, method, url, contentType string, body any) (*request.Execution, error) {
	p, err := request.NewPlanWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		p.Header.Set("Content-Type", contentType)
	}
	return d.Do(p)
}

// Inflate returns d as an Executor, wrapping it if it is not one
// already. The wrapper's CloseIdleConnections does nothing unless d is
// an IdleCloser.
func Inflate(d Doer) Executor {
	if d == nil {
		panic("retryx: nil doer")
	}
	if x, ok := d.(Executor); ok {
		return x
	}
	return inflated{d}
}

type inflated struct {
	Doer
}

func (i inflated) Get(url string) (*request.Execution, error) {
	return Get(context.Background(), i.Doer, url)
}

func (i inflated) Head(url string) (*request.Execution, error) {
	return Head(context.Background(), i.Doer, url)
}

func (i inflated) Post(url, contentType string, body any) (*request.Execution, error) {
	return Post(context.Background(), i.Doer, url, contentType, body)
}

func (i inflated) PostForm(url string, data url.Values) (*request.Execution, error) {
	return PostForm(context.Background(), i.Doer, url, data)
}

func (i inflated) CloseIdleConnections() {
	if ic, ok := i.Doer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}
