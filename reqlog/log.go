// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqlog

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// A Property identifies one piece of information which becomes
// available in a Log at most once during its lifetime.
type Property int

const (
	// RequestStart becomes available when StartRequest is called.
	RequestStart Property = iota
	// RequestFirstBytesTransferred becomes available when the first
	// bytes of the request are written to the wire.
	RequestFirstBytesTransferred
	// RequestEnd becomes available on the first call to EndRequest.
	RequestEnd
	// ResponseHeaders becomes available when the response status and
	// headers are recorded.
	ResponseHeaders
	// ResponseTrailers becomes available when the response trailers
	// are recorded.
	ResponseTrailers
	// ResponseContent becomes available when the response content is
	// recorded, including when it is explicitly recorded as empty.
	ResponseContent
	// ResponseEnd becomes available on the first call to EndResponse.
	ResponseEnd
	// propertySentinel is one past the last real property.
	propertySentinel
	// complete is an internal pseudo-property which becomes available
	// once both RequestEnd and ResponseEnd are available.
	complete = propertySentinel
	// numProperties includes the internal pseudo-property.
	numProperties = int(propertySentinel) + 1
)

var propertyNames = []string{
	"RequestStart",
	"RequestFirstBytesTransferred",
	"RequestEnd",
	"ResponseHeaders",
	"ResponseTrailers",
	"ResponseContent",
	"ResponseEnd",
}

// Name returns the name of the property.
func (p Property) Name() string {
	return propertyNames[int(p)]
}

// String returns the name of the property.
func (p Property) String() string {
	return p.Name()
}

// An Entry is an immutable snapshot of the information recorded in a
// Log.
type Entry struct {
	RequestID     string
	Method        string
	URL           string
	RequestStart  time.Time
	RequestEnd    time.Time
	RequestCause  error
	StatusCode    int
	Header        http.Header
	Trailer       http.Header
	Content       interface{}
	ResponseEnd   time.Time
	ResponseCause error
	// BytesTransferred is true if any request bytes reached the wire.
	BytesTransferred bool
}

// A Log records the execution history of a logical request or of one
// of its attempts. The zero value is not usable; create a Log with New
// or NewChild.
//
// Log is safe for concurrent use by multiple goroutines.
type Log struct {
	mu         sync.Mutex
	parent     *Log
	children   []*Log
	avail      [numProperties]bool
	waiters    [numProperties]chan struct{}
	onComplete []func()
	entry      Entry
}

// New returns a new, empty root Log.
func New() *Log {
	return &Log{}
}

// NewChild appends a new child Log to l and returns it.
func (l *Log) NewChild() *Log {
	c := &Log{parent: l}
	l.mu.Lock()
	l.children = append(l.children, c)
	l.mu.Unlock()
	return c
}

// Parent returns the parent of l, or nil if l is a root Log.
func (l *Log) Parent() *Log {
	return l.parent
}

// Children returns the child logs of l in the order they were created.
func (l *Log) Children() []*Log {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := make([]*Log, len(l.children))
	copy(c, l.children)
	return c
}

// Entry returns a snapshot of the information currently recorded in l.
func (l *Log) Entry() Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entry
}

// StartRequest records the start of a request. Only the first call has
// any effect.
func (l *Log) StartRequest(req *http.Request, requestID string) {
	l.set(RequestStart, func(e *Entry) {
		e.RequestStart = time.Now()
		e.RequestID = requestID
		if req != nil {
			e.Method = req.Method
			if req.URL != nil {
				e.URL = req.URL.String()
			}
		}
	})
}

// RequestFirstBytesTransferred records that request bytes have been
// written to the wire.
func (l *Log) RequestFirstBytesTransferred() {
	l.set(RequestFirstBytesTransferred, func(e *Entry) {
		e.BytesTransferred = true
	})
}

// EndRequest records the end of the request, with an optional cause if
// the request did not complete normally. It returns true if the call
// took effect, and false if the request end was already recorded.
func (l *Log) EndRequest(cause error) bool {
	return l.set(RequestEnd, func(e *Entry) {
		e.RequestEnd = time.Now()
		e.RequestCause = cause
	})
}

// ResponseHeaders records the response status code and headers.
func (l *Log) ResponseHeaders(statusCode int, h http.Header) {
	l.set(ResponseHeaders, func(e *Entry) {
		e.StatusCode = statusCode
		e.Header = h
	})
}

// ResponseTrailers records the response trailers.
func (l *Log) ResponseTrailers(h http.Header) {
	l.set(ResponseTrailers, func(e *Entry) {
		e.Trailer = h
	})
}

// ResponseContent records the response content. A nil content value
// explicitly records the content as empty, which is what happens to
// a response discarded in favor of a retry.
func (l *Log) ResponseContent(content interface{}) {
	l.set(ResponseContent, func(e *Entry) {
		e.Content = content
	})
}

// EndResponse records the end of the response, with an optional cause
// if the response did not complete normally. It returns true if the
// call took effect, and false if the response end was already recorded.
func (l *Log) EndResponse(cause error) bool {
	return l.set(ResponseEnd, func(e *Entry) {
		e.ResponseEnd = time.Now()
		e.ResponseCause = cause
	})
}

// EndResponseWithLastChild makes the last child of l the authoritative
// source of l's response. Once the last child completes, its response
// headers, trailers, and content are copied into l and l's response is
// ended with the child's response cause.
//
// If l has no children, l's response is ended immediately without a
// cause.
func (l *Log) EndResponseWithLastChild() {
	l.mu.Lock()
	n := len(l.children)
	var last *Log
	if n > 0 {
		last = l.children[n-1]
	}
	l.mu.Unlock()
	if last == nil {
		l.EndResponse(nil)
		return
	}
	last.OnComplete(func() {
		c := last.Entry()
		if last.IsAvailable(ResponseHeaders) {
			l.ResponseHeaders(c.StatusCode, c.Header)
		}
		if last.IsAvailable(ResponseTrailers) {
			l.ResponseTrailers(c.Trailer)
		}
		if last.IsAvailable(ResponseContent) {
			l.ResponseContent(c.Content)
		}
		l.EndResponse(c.ResponseCause)
	})
}

// IsAvailable reports whether property p is available.
func (l *Log) IsAvailable(p Property) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.avail[p]
}

// IsComplete reports whether both the request and response ends have
// been recorded.
func (l *Log) IsComplete() bool {
	return l.IsAvailable(complete)
}

// WhenAvailable returns a channel which is closed once property p
// becomes available.
func (l *Log) WhenAvailable(p Property) <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waiter(p)
}

// WhenComplete returns a channel which is closed once both the request
// and response ends have been recorded.
func (l *Log) WhenComplete() <-chan struct{} {
	return l.WhenAvailable(complete)
}

// OnComplete registers f to be called once both the request and
// response ends have been recorded. If l is already complete, f is
// called immediately on the calling goroutine.
func (l *Log) OnComplete(f func()) {
	l.mu.Lock()
	if l.avail[complete] {
		l.mu.Unlock()
		f()
		return
	}
	l.onComplete = append(l.onComplete, f)
	l.mu.Unlock()
}

func (l *Log) waiter(p Property) chan struct{} {
	if l.waiters[p] == nil {
		l.waiters[p] = make(chan struct{})
		if l.avail[p] {
			close(l.waiters[p])
		}
	}
	return l.waiters[p]
}

func (l *Log) set(p Property, f func(*Entry)) bool {
	l.mu.Lock()
	if l.avail[p] {
		l.mu.Unlock()
		return false
	}
	f(&l.entry)
	l.markLocked(p)
	var callbacks []func()
	if !l.avail[complete] && l.avail[RequestEnd] && l.avail[ResponseEnd] {
		l.markLocked(complete)
		callbacks = l.onComplete
		l.onComplete = nil
	}
	l.mu.Unlock()
	for _, cb := range callbacks {
		cb()
	}
	return true
}

func (l *Log) markLocked(p Property) {
	l.avail[p] = true
	if l.waiters[p] != nil {
		close(l.waiters[p])
	}
}

type logKey struct{}

// NewContext returns a copy of ctx carrying l.
func NewContext(ctx context.Context, l *Log) context.Context {
	return context.WithValue(ctx, logKey{}, l)
}

// FromContext returns the Log carried by ctx, or nil if there is none.
func FromContext(ctx context.Context) *Log {
	l, _ := ctx.Value(logKey{}).(*Log)
	return l
}
