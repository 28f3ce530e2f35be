// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryx

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/gogama/retryx/endpoint"
	"github.com/gogama/retryx/limit"
	"github.com/gogama/retryx/reqlog"
	"github.com/gogama/retryx/request"
	"github.com/gogama/retryx/retry"
	"golang.org/x/net/http/httpguts"
)

// ErrResponseTimeout is the cause of a plan execution which ran out of
// time before an attempt could start, because the execution deadline
// had passed. Its Timeout method reports true.
var ErrResponseTimeout error = responseTimeoutError{}

type responseTimeoutError struct{}

func (responseTimeoutError) Error() string { return "retryx: response timeout" }
func (responseTimeoutError) Timeout() bool { return true }

type orchestratorState int

const (
	uninitialized orchestratorState = iota
	initializing
	initialized
	completing
	completed
)

// An orchestrator runs one plan execution: it issues attempts one after
// another, asks the rule and the limiter whether to retry, and finally
// commits the last attempt or aborts the execution.
type orchestrator struct {
	plan *request.Plan
	exec *request.Execution
	ctx  context.Context
	// cancel cancels ctx. It is called by Call.Abort, and when the
	// execution log completes.
	cancel context.CancelCauseFunc

	doer             HTTPDoer
	cfg              *retry.Config
	evaluator        evaluator
	limiter          limit.Limiter
	selector         endpoint.Selector
	handlers         *HandlerGroup
	logger           *slog.Logger
	metrics          *metrics
	clock            quartz.Clock
	useRetryAfter    bool
	retryCountHeader string

	dup   *request.Duplicator
	state *retry.State

	lock   sync.Mutex
	status orchestratorState
}

func (c *Client) newOrchestrator(p *request.Plan) *orchestrator {
	if p == nil {
		panic("retryx: nil plan")
	}
	header := c.retryCountHeader()
	if !httpguts.ValidHeaderFieldName(header) {
		panic("retryx: invalid retry count header name " + header)
	}
	cfg := c.retryConfig()
	logger := c.logger()
	m := c.meters()
	log := reqlog.New()
	ctx, cancel := context.WithCancelCause(p.Context())
	o := &orchestrator{
		plan:             p,
		exec:             &request.Execution{Plan: p, Log: log},
		ctx:              reqlog.NewContext(ctx, log),
		cancel:           cancel,
		doer:             c.doer(),
		cfg:              cfg,
		evaluator:        newEvaluator(cfg, logger, m),
		limiter:          c.limiter(),
		selector:         c.Endpoints,
		handlers:         c.handlers(),
		logger:           logger,
		metrics:          m,
		clock:            c.clock(),
		useRetryAfter:    c.UseRetryAfter,
		retryCountHeader: header,
	}
	log.OnComplete(func() { cancel(context.Canceled) })
	return o
}

func (o *orchestrator) run() (*request.Execution, error) {
	e := o.exec
	o.handlers.run(BeforeExecutionStart, e)
	e.Start = time.Now()

	if o.initialize() {
		o.loop()
	}

	if e.Err != nil && o.planTimedOut() {
		o.handlers.run(AfterPlanTimeout, e)
	}
	e.End = time.Now()
	o.handlers.run(AfterExecutionEnd, e)
	return e, e.Err
}

func (o *orchestrator) initialize() bool {
	if !o.transition(uninitialized, initializing) {
		return false
	}
	dup, err := request.NewDuplicator(o.plan)
	if err != nil {
		o.abort(nil, err)
		return false
	}
	o.dup = dup
	o.state = retry.NewState(o.cfg, o.timeout(), o.clock)
	return o.transition(initializing, initialized)
}

func (o *orchestrator) loop() {
	for {
		if err := o.interrupted(); err != nil {
			o.abort(o.exec.Attempt, err)
			return
		}

		var perAttempt time.Duration
		if o.cfg.AttemptTimeout != nil {
			perAttempt = max(0, o.cfg.AttemptTimeout.Timeout(o.exec))
		}
		t := o.state.ResponseTimeout(perAttempt)
		if t < 0 {
			o.abort(o.exec.Attempt, ErrResponseTimeout)
			return
		}

		a := o.execute(t)
		d := o.evaluator.evaluate(o.ctx, a)
		if err := o.interrupted(); err != nil {
			// No retry follows an interrupted attempt, so the limiter
			// only sees decisions which end the execution.
			if d.Backoff() == nil {
				o.limiter.ShouldRetry(o.ctx, d)
			}
			o.abort(a, err)
			return
		}
		if b := d.Backoff(); b != nil {
			fromServer := time.Duration(-1)
			if o.useRetryAfter {
				fromServer = retry.RetryAfter(a.Header(), o.clock.Now(), o.logger)
			}
			delay := o.state.NextDelay(b, fromServer)
			if delay >= 0 {
				if o.limiter.ShouldRetry(o.ctx, d) {
					if o.backoff(a, delay) {
						continue
					}
					return
				}
				o.metrics.limiterRejection(o.ctx)
			}
		} else {
			o.limiter.ShouldRetry(o.ctx, d)
		}

		if a.Err != nil {
			o.abort(a, a.Err)
		} else {
			o.commit(a)
		}
		return
	}
}

// backoff discards attempt a and waits delay before the next attempt.
// It returns false if the execution was interrupted while waiting, in
// which case the execution has been aborted.
func (o *orchestrator) backoff(a *request.Attempt, delay time.Duration) bool {
	a.Abort(nil)
	o.metrics.retry(o.ctx, delay)
	o.logger.DebugContext(o.ctx, "retrying request",
		"attempt", a.Number,
		"request_id", a.ID.String(),
		"delay", delay)
	o.handlers.run(BeforeBackoff, o.exec)

	if delay > 0 {
		timer := o.clock.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-o.ctx.Done():
		}
	}
	if err := o.interrupted(); err != nil {
		o.abort(a, err)
		return false
	}
	return true
}

func (o *orchestrator) interrupted() error {
	if o.ctx.Err() != nil {
		return context.Cause(o.ctx)
	}
	return o.dup.Err()
}

// commit makes attempt a the outcome of the execution.
func (o *orchestrator) commit(a *request.Attempt) {
	if !o.complete() {
		return
	}
	if a.Body != nil {
		a.Log.ResponseContent(a.Body)
	}
	log := o.exec.Log
	log.EndRequest(nil)
	log.EndResponseWithLastChild()
	o.dup.Close()
	a.Commit()
	o.setStatus(completed)
}

// abort ends the execution with cause. If a is the attempt which failed
// with cause, its response, if any, remains in the execution.
// Otherwise a, which may be nil, is discarded.
func (o *orchestrator) abort(a *request.Attempt, cause error) {
	if !o.complete() {
		return
	}
	e := o.exec
	if a == nil || cause != a.Err {
		e.Response = nil
		e.Body = nil
	}
	if a != nil {
		a.Abort(cause)
	}
	if o.dup != nil {
		o.dup.Abort(cause)
	}
	e.Err = urlErrorWrap(o.plan, cause)
	e.Log.EndRequest(cause)
	e.Log.EndResponse(cause)
	o.setStatus(completed)
}

// complete moves the orchestrator into the completing state. It returns
// false if the execution is already completing or completed.
func (o *orchestrator) complete() bool {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.status >= completing {
		return false
	}
	o.status = completing
	return true
}

func (o *orchestrator) transition(from, to orchestratorState) bool {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.status != from {
		return false
	}
	o.status = to
	return true
}

func (o *orchestrator) setStatus(s orchestratorState) {
	o.lock.Lock()
	o.status = s
	o.lock.Unlock()
}

// timeout returns the time allowed for the whole execution: the retry
// configuration's timeout, shortened to the plan context's deadline if
// that comes first.
func (o *orchestrator) timeout() time.Duration {
	t := o.cfg.Timeout
	if dl, ok := o.ctx.Deadline(); ok {
		remaining := max(time.Until(dl), time.Nanosecond)
		if t <= 0 || remaining < t {
			t = remaining
		}
	}
	return t
}

func (o *orchestrator) planTimedOut() bool {
	return errors.Is(o.exec.Err, ErrResponseTimeout) ||
		errors.Is(o.plan.Context().Err(), context.DeadlineExceeded)
}
