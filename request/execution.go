// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"net/http"
	"time"

	"github.com/gogama/retryx/reqlog"
	"github.com/gogama/retryx/transient"
)

// An Execution is the state of one Plan execution.
//
// The client creates an Execution when it starts executing a plan,
// updates it as attempts are made, backed off and retried, and returns
// it once the execution is over. The same Execution is handed to every
// timeout policy, retry rule and event handler along the way.
//
// Callbacks may attach their own data with SetValue. The exported
// fields belong to the client: read them, but leave them unmodified.
// Reasonable edits to Request before it is sent, such as adding a
// signature header, are the exception.
type Execution struct {
	// Plan is the plan being executed. Never nil.
	Plan *Plan

	// Start is set when the execution starts and never changes again.
	Start time.Time

	// End is zero while the execution is in flight and is set when it
	// ends.
	End time.Time

	// Attempt is the current attempt or, after the execution ends, the
	// last one. Nil before the first attempt.
	Attempt *Attempt

	// Attempts counts the attempts started so far: one during the
	// initial attempt, two during the first retry, and so on.
	Attempts int

	// AttemptTimeouts counts attempts which ended because their own
	// timeout expired. Timeouts of the whole execution are not counted.
	AttemptTimeouts int

	// Request is the HTTP request of Attempt.
	Request *http.Request

	// Response is the response to the most recent attempt, or nil if
	// that attempt failed or is still in flight.
	Response *http.Response

	// Err is the error of the most recent attempt, or nil. After an
	// attempt concludes a non-nil Err is always a *url.Error. Once the
	// execution ends Err is final and equals the error returned to
	// the caller.
	Err error

	// Body is the buffered response body of the most recent attempt.
	// Body and Err may both be set after a partial read, in which case
	// Body should not be trusted. Body stays nil for streamed plans,
	// whose body is read from Response.Body.
	Body []byte

	// Log is the structured log of the execution, with one child log
	// per attempt. Never nil once the execution has started.
	Log *reqlog.Log

	values map[any]any
}

// StatusCode returns the status code of Response, or 0 if there is no
// response.
func (e *Execution) StatusCode() int {
	if e.Response != nil {
		return e.Response.StatusCode
	}
	return 0
}

// Header returns the headers of Response, or nil if there is no
// response. The nil header is safe to read from.
func (e *Execution) Header() http.Header {
	if e.Response != nil {
		return e.Response.Header
	}
	return nil
}

// Started reports whether the execution has started.
func (e *Execution) Started() bool {
	return !e.Start.IsZero()
}

// Ended reports whether the execution is over. Once Ended returns
// true the Execution no longer changes.
func (e *Execution) Ended() bool {
	return !e.End.IsZero()
}

// Duration returns how long the execution has been running: zero
// before it starts, End minus Start after it ends, and the time elapsed
// since Start in between.
func (e *Execution) Duration() time.Duration {
	switch {
	case !e.Started():
		return 0
	case e.Ended():
		return e.End.Sub(e.Start)
	default:
		return time.Since(e.Start)
	}
}

// Timeout reports whether Err is a timeout, either of the most recent
// attempt or of the whole execution.
//
// Timeout and AttemptTimeouts are independent: an execution may have
// timed-out attempts behind it and still not be in a timeout state,
// and a whole-execution timeout does not count as an attempt timeout.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// SetValue stores value under key for later retrieval with Value.
//
// Keys follow the rules of context.WithValue: they must be comparable,
// and should be of a type private to the package setting them so that
// independent handlers do not collide.
func (e *Execution) SetValue(key, value any) {
	if key == nil {
		panic("retryx/request: nil key")
	}
	if e.values == nil {
		e.values = make(map[any]any)
	}
	e.values[key] = value
}

// Value returns the value stored under key, or nil.
func (e *Execution) Value(key any) any {
	return e.values[key]
}
