// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gogama/retryx/reqlog"
	"github.com/google/uuid"
)

var (
	// ErrAttemptTimeout is the context cause recorded when an attempt
	// exceeds its individual timeout.
	ErrAttemptTimeout = errors.New("retryx/request: attempt timeout")

	// ErrAttemptAborted is the cause recorded in the log of an attempt
	// which is aborted without a more specific cause, typically because
	// it was superseded by a retry.
	ErrAttemptAborted = errors.New("retryx/request: attempt aborted")
)

// An AttemptState is a step in the life cycle of an Attempt.
type AttemptState int32

const (
	// AttemptInitialized is the state of a new attempt. The only legal
	// transitions are to AttemptExecuting and AttemptAborted.
	AttemptInitialized AttemptState = iota
	// AttemptExecuting is the state of an attempt whose request has
	// been handed to the transport.
	AttemptExecuting
	// AttemptCompleted is the state of an attempt whose response or
	// error is known. For a streamed response, only the headers need
	// have arrived.
	AttemptCompleted
	// AttemptCommitted is the terminal state of the attempt whose
	// outcome became the outcome of the plan execution.
	AttemptCommitted
	// AttemptAborted is the terminal state of an attempt whose outcome
	// was discarded.
	AttemptAborted
)

var attemptStateNames = []string{
	"Initialized",
	"Executing",
	"Completed",
	"Committed",
	"Aborted",
}

// String returns the name of the state.
func (s AttemptState) String() string {
	return attemptStateNames[int(s)]
}

// An Attempt is one execution of a plan's HTTP request against the
// transport.
//
// Attempts are created by the client. Retry rules and event handlers
// should treat an Attempt's exported fields as read-only.
type Attempt struct {
	// Number is the 1-based sequence number of the attempt within the
	// plan execution.
	Number int

	// ID is a unique identifier for the attempt. It is recorded in the
	// attempt's Log.
	ID uuid.UUID

	// Endpoint is the address of the endpoint chosen for the attempt,
	// or the empty string if no endpoint selection took place.
	Endpoint string

	// Timeout is the timeout applied to the attempt. Zero means the
	// attempt had no individual timeout.
	Timeout time.Duration

	// Request is the HTTP request sent in the attempt.
	Request *http.Request

	// Response is the HTTP response received, if any.
	Response *http.Response

	// Err is the error that ended the attempt, if any. Response and Err
	// may both be non-nil if the response body could not be read.
	Err error

	// Body is the complete response body, if the response was read and
	// buffered.
	Body []byte

	// Content is the prefix of a streamed response body captured for
	// inspection by a content-aware retry rule. It is never longer than
	// the configured maximum content length.
	Content []byte

	// Log is the attempt's log, a child of the execution's log.
	Log *reqlog.Log

	ctx    context.Context
	cancel context.CancelCauseFunc
	stop   context.CancelFunc
	lock   sync.Mutex
	state  AttemptState
}

// NewAttempt creates a new attempt whose context derives from parent.
// If timeout is positive, the attempt context is cancelled after
// timeout elapses with cause ErrAttemptTimeout.
//
// The attempt context is released once log completes or the attempt is
// aborted, whichever happens first.
func NewAttempt(parent context.Context, number int, log *reqlog.Log, timeout time.Duration) *Attempt {
	if log == nil {
		panic("retryx/request: nil log")
	}
	ctx, cancel := context.WithCancelCause(parent)
	stop := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, stop = context.WithTimeoutCause(ctx, timeout, ErrAttemptTimeout)
	}
	a := &Attempt{
		Number:  number,
		ID:      uuid.New(),
		Timeout: timeout,
		Log:     log,
		ctx:     reqlog.NewContext(ctx, log),
		cancel:  cancel,
		stop:    stop,
	}
	log.OnComplete(a.release)
	return a
}

// Context returns the attempt's context.
func (a *Attempt) Context() context.Context {
	return a.ctx
}

// State returns the current state of the attempt.
func (a *Attempt) State() AttemptState {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.state
}

// StatusCode returns the status code of the attempt's HTTP response,
// or 0 if there is no response.
func (a *Attempt) StatusCode() int {
	if a.Response == nil {
		return 0
	}
	return a.Response.StatusCode
}

// Header returns the attempt's HTTP response headers, or nil if there
// is no response.
func (a *Attempt) Header() http.Header {
	if a.Response == nil {
		return nil
	}
	return a.Response.Header
}

// Execute moves the attempt from AttemptInitialized to
// AttemptExecuting. It returns false if the attempt was not in
// AttemptInitialized.
func (a *Attempt) Execute() bool {
	return a.transition(AttemptInitialized, AttemptExecuting)
}

// Complete moves the attempt from AttemptExecuting to
// AttemptCompleted. It returns false if the attempt was not in
// AttemptExecuting.
func (a *Attempt) Complete() bool {
	return a.transition(AttemptExecuting, AttemptCompleted)
}

// Commit moves the attempt from AttemptCompleted to the terminal state
// AttemptCommitted. It returns false, and does nothing, if the attempt
// was not in AttemptCompleted.
func (a *Attempt) Commit() bool {
	return a.transition(AttemptCompleted, AttemptCommitted)
}

// Abort moves the attempt into the terminal state AttemptAborted from
// any non-terminal state, discarding its outcome.
//
// Abort cancels the attempt context, records the response content as
// explicitly empty, ends the request and response in the attempt log if
// they have not ended already, and finally closes the response body if
// there is one. If cause is nil, ErrAttemptAborted is used.
//
// Abort returns false, and does nothing, if the attempt was already in
// a terminal state.
func (a *Attempt) Abort(cause error) bool {
	a.lock.Lock()
	if a.state == AttemptCommitted || a.state == AttemptAborted {
		a.lock.Unlock()
		return false
	}
	a.state = AttemptAborted
	a.lock.Unlock()
	if cause == nil {
		cause = ErrAttemptAborted
	}
	a.cancel(cause)
	a.Log.ResponseContent(nil)
	a.Log.EndRequest(cause)
	a.Log.EndResponse(cause)
	if a.Response != nil && a.Response.Body != nil {
		_ = a.Response.Body.Close()
	}
	return true
}

func (a *Attempt) transition(from, to AttemptState) bool {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.state != from {
		return false
	}
	a.state = to
	return true
}

func (a *Attempt) release() {
	a.stop()
	a.cancel(context.Canceled)
}
