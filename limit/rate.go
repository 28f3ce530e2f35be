// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package limit

import (
	"context"
	"math"

	"github.com/coder/quartz"
	"github.com/gogama/retryx/retry"
	"golang.org/x/time/rate"
)

// Rate is a Limiter which allows retries up to a fixed rate of permits
// per second. It never waits: a retry whose permits are not available
// right now is denied.
//
// A retry asking for more permits than the burst is charged the burst
// instead, so that it can go ahead after an idle period rather than
// being denied forever.
type Rate struct {
	clock   quartz.Clock
	limiter *rate.Limiter
}

// NewRate returns a Rate limiter allowing permitsPerSecond permits per
// second, with a burst of one second's worth of permits (at least 1).
// Retries costing more than the burst are charged the burst. If clock
// is nil, the real clock is used.
func NewRate(permitsPerSecond float64, clock quartz.Clock) *Rate {
	if permitsPerSecond <= 0 {
		panic("retryx/limit: permitsPerSecond must be positive")
	}
	burst := max(1, int(math.Ceil(permitsPerSecond)))
	return NewRateWithBurst(permitsPerSecond, burst, clock)
}

// NewRateWithBurst returns a Rate limiter allowing permitsPerSecond
// permits per second, and up to burst permits at once after an idle
// period. Retries costing more than burst permits are charged burst
// permits. If clock is nil, the real clock is used.
func NewRateWithBurst(permitsPerSecond float64, burst int, clock quartz.Clock) *Rate {
	if permitsPerSecond <= 0 {
		panic("retryx/limit: permitsPerSecond must be positive")
	}
	if burst < 1 {
		panic("retryx/limit: burst must be positive")
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Rate{
		clock:   clock,
		limiter: rate.NewLimiter(rate.Limit(permitsPerSecond), burst),
	}
}

// ShouldRetry implements Limiter.
func (l *Rate) ShouldRetry(_ context.Context, d retry.Decision) bool {
	n := d.Permits()
	if n <= 0 {
		return true
	}
	return l.limiter.AllowN(l.clock.Now(), min(n, l.limiter.Burst()))
}
