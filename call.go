// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryx

import (
	"errors"

	"github.com/gogama/retryx/request"
)

// ErrAborted is the cause recorded when a Call is aborted without a
// more specific cause.
var ErrAborted = errors.New("retryx: call aborted")

// A Call is a plan execution running in the background, started by
// Client.Go.
type Call struct {
	o    *orchestrator
	done chan struct{}
	exec *request.Execution
	err  error
}

// Done returns a channel which is closed when the plan execution ends.
func (call *Call) Done() <-chan struct{} {
	return call.done
}

// Wait waits for the plan execution to end and returns its result,
// which has the same meaning as the result of Client.Do.
func (call *Call) Wait() (*request.Execution, error) {
	<-call.done
	return call.exec, call.err
}

// Abort asks the plan execution to stop. The current attempt is
// cancelled, no further attempt is made, and the execution ends with an
// error wrapping cause. If cause is nil, ErrAborted is used.
//
// If the execution has already ended with a streamed response, Abort
// cancels the reading of the response body. Otherwise, aborting an
// execution which has ended has no effect.
func (call *Call) Abort(cause error) {
	if cause == nil {
		cause = ErrAborted
	}
	call.o.cancel(cause)
}
