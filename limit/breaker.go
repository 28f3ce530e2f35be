// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package limit

import (
	"context"
	"errors"
	"time"

	"github.com/gogama/retryx/retry"
	"github.com/sony/gobreaker/v2"
)

// errRetried is the failure recorded on the circuit breaker for each
// retry it lets through.
var errRetried = errors.New("retryx/limit: retried")

// Breaker is a Limiter backed by a circuit breaker. Every retry with
// positive permits counts as a failure of the remote service, and every
// decision with negative permits as a success. Once consecutiveFailures
// retries have gone through without a success in between, the breaker
// opens and denies all retries for the open timeout. It then lets a
// single retry through to probe the service.
type Breaker struct {
	cb *gobreaker.TwoStepCircuitBreaker[any]
}

// NewBreaker returns a Breaker named name, which opens after
// consecutiveFailures retries in a row and stays open for openTimeout.
// If openTimeout is zero, the circuit breaker's default of 60 seconds
// is used.
func NewBreaker(name string, consecutiveFailures int, openTimeout time.Duration) *Breaker {
	if consecutiveFailures < 1 {
		panic("retryx/limit: consecutiveFailures must be positive")
	}
	n := uint32(consecutiveFailures)
	return &Breaker{
		cb: gobreaker.NewTwoStepCircuitBreaker[any](gobreaker.Settings{
			Name:    name,
			Timeout: openTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= n
			},
		}),
	}
}

// ShouldRetry implements Limiter.
func (b *Breaker) ShouldRetry(_ context.Context, d retry.Decision) bool {
	permits := d.Permits()
	if permits == 0 {
		return true
	}
	done, err := b.cb.Allow()
	if err != nil {
		return false
	}
	if permits > 0 {
		done(errRetried)
	} else {
		done(nil)
	}
	return true
}

// State returns the name of the circuit breaker's state: "closed",
// "half-open" or "open".
func (b *Breaker) State() string {
	return b.cb.State().String()
}
