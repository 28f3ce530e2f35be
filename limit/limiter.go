// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package limit

import (
	"context"

	"github.com/gogama/retryx/retry"
)

// A Limiter decides whether a retry may proceed.
//
// ShouldRetry is called with the context of the logical request and the
// decision returned by the retry rule. The context carries the logical
// request's log (see reqlog.FromContext). It returns true to allow the
// retry and false to deny it. For a decision which does not ask for a
// retry the return value is ignored, and the call serves only to let
// the limiter update its own state.
//
// Implementations of Limiter must be safe for concurrent use by
// multiple goroutines.
type Limiter interface {
	ShouldRetry(ctx context.Context, d retry.Decision) bool
}

// The LimiterFunc type is an adapter to allow the use of ordinary
// functions as retry limiters.
type LimiterFunc func(ctx context.Context, d retry.Decision) bool

// ShouldRetry calls f(ctx, d).
func (f LimiterFunc) ShouldRetry(ctx context.Context, d retry.Decision) bool {
	return f(ctx, d)
}

// Unlimited is a Limiter which allows every retry.
var Unlimited Limiter = LimiterFunc(func(context.Context, retry.Decision) bool {
	return true
})

// All returns a Limiter which allows a retry only if every one of
// limiters allows it. Every limiter is consulted, even after one has
// denied the retry, so that each sees every decision.
func All(limiters ...Limiter) Limiter {
	for _, l := range limiters {
		if l == nil {
			panic("retryx/limit: nil limiter")
		}
	}
	return LimiterFunc(func(ctx context.Context, d retry.Decision) bool {
		ok := true
		for _, l := range limiters {
			if !l.ShouldRetry(ctx, d) {
				ok = false
			}
		}
		return ok
	})
}
