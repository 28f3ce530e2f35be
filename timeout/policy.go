// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/gogama/retryx/request"
)

// A Policy chooses the timeout of the next attempt of a plan
// execution.
//
// The client calls Timeout before every attempt, and the result is
// interpreted as follows:
//
// • A positive duration is the attempt timeout. When the retry
// configuration also limits the whole execution, the attempt gets the
// smaller of this timeout and the time remaining.
//
// • Zero means no attempt timeout. The attempt is still bounded by the
// whole execution's timeout, if any.
//
// • A negative duration is treated exactly like zero.
//
// The Execution passed to Timeout describes the attempts made so far,
// which lets a policy react to earlier timeouts, as Adaptive does.
// Policies are shared by concurrent executions and must be safe for
// concurrent use.
type Policy interface {
	Timeout(e *request.Execution) time.Duration
}

// PolicyFunc adapts an ordinary function to the Policy interface.
type PolicyFunc func(e *request.Execution) time.Duration

// Timeout calls f(e).
func (f PolicyFunc) Timeout(e *request.Execution) time.Duration {
	return f(e)
}

// DefaultPolicy is the policy used by retry configurations which set
// no attempt timeout policy. It gives every attempt 5 seconds.
var DefaultPolicy Policy = Fixed(5 * time.Second)

// Infinite never times attempts out. Attempts remain bounded by the
// whole execution's timeout and by the plan's context.
var Infinite Policy = Fixed(0)

type fixed time.Duration

func (d fixed) Timeout(*request.Execution) time.Duration {
	return time.Duration(d)
}

// Fixed returns a policy giving every attempt the same timeout d,
// regardless of how earlier attempts ended.
//
// A d of zero or less gives attempts no timeout of their own, so that
// Fixed(0) is equivalent to Infinite. For services whose latency
// varies widely, Adaptive gives a better balance between quick retries
// and giving slow responses time to arrive.
func Fixed(d time.Duration) Policy {
	return fixed(d)
}

type adaptive struct {
	usual time.Duration
	after []time.Duration
}

// Adaptive returns a policy which lengthens the timeout after attempts
// time out, for services prone to occasional slow responses that a
// quick retry cures, but also to bursts of slowness that quick retries
// would only make worse.
//
// An attempt gets the usual timeout unless the previous attempt timed
// out. In that case it gets after[n-1], n being the number of attempt
// timeouts so far, or the last element of after once n exceeds
// len(after). With no after values the policy behaves like Fixed.
//
// For example, with
//
//	Adaptive(200*time.Millisecond, time.Second, 10*time.Second)
//
// attempts normally get 200ms, the attempt after the first timeout
// gets 1s, and attempts after any later timeout get 10s.
func Adaptive(usual time.Duration, after ...time.Duration) Policy {
	if len(after) == 0 {
		return Fixed(usual)
	}
	return &adaptive{usual: usual, after: append([]time.Duration(nil), after...)}
}

func (p *adaptive) Timeout(e *request.Execution) time.Duration {
	if e.AttemptTimeouts == 0 || !e.Timeout() {
		return p.usual
	}
	return p.after[min(e.AttemptTimeouts, len(p.after))-1]
}
