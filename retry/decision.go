// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import "fmt"

type decisionKind int8

const (
	noDecision decisionKind = iota
	retryDecision
	noRetryDecision
	nextDecision
)

// A Decision is the outcome of evaluating a retry rule against an
// attempt. Decision is an immutable value type.
//
// There are three kinds of decision: retry with a Backoff, do not
// retry, and skip to the next rule (see Rules). Retry and no-retry
// decisions carry a number of permits, an opaque cost consumed by a
// limiter. Zero permits means the decision is not tracked by limiters.
//
// The zero value of Decision is "no decision", which the client treats
// the same as NoRetry.
type Decision struct {
	kind    decisionKind
	backoff Backoff
	permits int
}

// Retry returns a decision to retry using backoff b which is not
// tracked by limiters.
func Retry(b Backoff) Decision {
	return RetryWithPermits(b, 0)
}

// RetryWithPermits returns a decision to retry using backoff b,
// claiming the given number of permits from any limiter.
func RetryWithPermits(b Backoff, permits int) Decision {
	if b == nil {
		panic("retryx/retry: nil backoff")
	}
	return Decision{kind: retryDecision, backoff: b, permits: permits}
}

// NoRetry returns a decision not to retry, which is not tracked by
// limiters.
func NoRetry() Decision {
	return Decision{kind: noRetryDecision}
}

// NoRetryWithPermits returns a decision not to retry which carries the
// given number of permits. A negative permit count signals a successful
// outcome to limiters that refill on success, such as limit.TokenBucket.
func NoRetryWithPermits(permits int) Decision {
	return Decision{kind: noRetryDecision, permits: permits}
}

// Next returns a decision that defers to the next rule in a chain
// built with Rules.
func Next() Decision {
	return Decision{kind: nextDecision}
}

// Backoff returns the decision's backoff. It is nil for every decision
// except a retry decision.
func (d Decision) Backoff() Backoff {
	return d.backoff
}

// Permits returns the number of permits carried by the decision.
func (d Decision) Permits() int {
	return d.permits
}

// IsRetry reports whether d is a decision to retry.
func (d Decision) IsRetry() bool {
	return d.kind == retryDecision
}

// IsNext reports whether d defers to the next rule.
func (d Decision) IsNext() bool {
	return d.kind == nextDecision
}

// IsZero reports whether d is the zero value, meaning no decision was
// made.
func (d Decision) IsZero() bool {
	return d.kind == noDecision
}

// String returns a human-readable description of d.
func (d Decision) String() string {
	switch d.kind {
	case retryDecision:
		return fmt.Sprintf("Retry(%T, permits=%d)", d.backoff, d.permits)
	case noRetryDecision:
		return fmt.Sprintf("NoRetry(permits=%d)", d.permits)
	case nextDecision:
		return "Next"
	default:
		return "None"
	}
}
