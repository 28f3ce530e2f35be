// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request holds the data types flowing through a retrying plan
execution: Plan, Execution and Attempt.

A Plan is the logical request. It resembles an http.Request reduced to
the client-side fields, with the body buffered as a []byte so that every
attempt can send it again. A body given as a Stream is buffered once,
before the first attempt.

	p, err := request.NewPlan("GET", "https://example.com", nil)
	...
	e, err := client.Do(p)

The context of a plan bounds the whole execution:

	p, err := request.NewPlanWithContext(ctx, "POST", "https://example.com/upload", body)

Its deadline is independent of the per-attempt timeouts chosen by the
retry configuration's timeout.Policy. An attempt which runs out of its
own time may be retried. One which runs out of the plan's time ends the
execution.

An Execution is the state of one plan execution. The client hands the
same Execution to timeout policies, retry rules and event handlers while
the plan runs, and returns it at the end. It is never allocated by
users.

Each try within an execution is an Attempt. An Attempt moves from
AttemptInitialized through AttemptExecuting and AttemptCompleted, and
ends either AttemptCommitted, if its outcome became the outcome of the
execution, or AttemptAborted. The Duplicator hands every attempt a
fresh copy of the plan's HTTP request.
*/
package request
