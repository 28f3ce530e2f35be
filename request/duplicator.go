// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrDuplicatorClosed is returned by Duplicator.Duplicate after the
// duplicator has been closed or aborted.
var ErrDuplicatorClosed = errors.New("retryx/request: duplicator closed")

// A Duplicator produces independent, replayable copies of the HTTP
// request described by a Plan. Each copy has its own URL, Header, and
// body reader, so one attempt can never disturb the request sent by
// another.
//
// A Duplicator is released exactly once, either by Close when the plan
// execution succeeds or by Abort when it fails. Later calls to either
// method have no effect.
type Duplicator struct {
	plan   *Plan
	body   []byte
	lock   sync.Mutex
	closed bool
	cause  error
}

// NewDuplicator returns a Duplicator for plan p. If p has a Stream, it
// is read to the end and buffered, and any error encountered doing so
// is returned.
func NewDuplicator(p *Plan) (*Duplicator, error) {
	if p == nil {
		panic("retryx/request: nil plan")
	}
	body := p.Body
	if p.Stream != nil {
		var err error
		body, err = BodyBytes(p.Stream)
		if err != nil {
			return nil, fmt.Errorf("retryx/request: failed to read body stream: %w", err)
		}
	}
	return &Duplicator{plan: p, body: body}, nil
}

// Duplicate returns a new copy of the plan's HTTP request bound to ctx.
// Header fields in override replace the same-named fields copied from
// the plan.
func (d *Duplicator) Duplicate(ctx context.Context, override http.Header) (*http.Request, error) {
	d.lock.Lock()
	closed := d.closed
	d.lock.Unlock()
	if closed {
		return nil, ErrDuplicatorClosed
	}
	r := d.plan.toRequest(ctx, d.body)
	if d.plan.URL != nil {
		u := *d.plan.URL
		r.URL = &u
	}
	r.Header = d.plan.Header.Clone()
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	for k, vs := range override {
		r.Header[k] = append([]string(nil), vs...)
	}
	return r, nil
}

// Body returns the buffered request body shared by all duplicates.
func (d *Duplicator) Body() []byte {
	return d.body
}

// Close releases the duplicator after a successful plan execution. It
// returns true if the call took effect.
func (d *Duplicator) Close() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.closed {
		return false
	}
	d.closed = true
	return true
}

// Abort releases the duplicator after a failed plan execution, and
// records cause as the reason. It returns true if the call took effect.
func (d *Duplicator) Abort(cause error) bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.closed {
		return false
	}
	d.closed = true
	d.cause = cause
	return true
}

// Err returns the cause passed to Abort, or nil if the duplicator is
// still open or was closed normally.
func (d *Duplicator) Err() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.cause
}
