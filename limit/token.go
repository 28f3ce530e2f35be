// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package limit

import (
	"context"
	"sync/atomic"

	"github.com/gogama/retryx/retry"
)

// tokenScale is the fixed-point scale of a TokenBucket's level, which
// lets a fractional tokenRatio be added without floating point state.
const tokenScale = 1000

// TokenBucket is a Limiter which allows retries while the service
// appears healthy, in the style of the gRPC retry throttling policy.
//
// The bucket starts full. Each decision with positive permits takes one
// token, whether or not it is allowed. Each decision with negative
// permits, which a rule returns to report a success, puts tokenRatio
// tokens back, up to the maximum. A retry is allowed only while the
// bucket holds more than threshold tokens. Decisions with zero permits
// leave the bucket alone and are always allowed.
type TokenBucket struct {
	max       int64
	threshold int64
	refill    int64
	level     atomic.Int64
}

// NewTokenBucket returns a TokenBucket holding up to maxTokens tokens,
// which allows retries while more than threshold tokens remain and
// which regains tokenRatio tokens on each success.
//
// The maxTokens parameter must be positive, threshold must be at least
// zero and less than maxTokens, and tokenRatio must be positive.
func NewTokenBucket(maxTokens, threshold int, tokenRatio float64) *TokenBucket {
	if maxTokens < 1 {
		panic("retryx/limit: maxTokens must be positive")
	}
	if threshold < 0 || threshold >= maxTokens {
		panic("retryx/limit: threshold must be in [0, maxTokens)")
	}
	if tokenRatio <= 0 {
		panic("retryx/limit: tokenRatio must be positive")
	}
	b := &TokenBucket{
		max:       int64(maxTokens) * tokenScale,
		threshold: int64(threshold) * tokenScale,
		refill:    int64(tokenRatio * tokenScale),
	}
	b.level.Store(b.max)
	return b
}

// ShouldRetry implements Limiter.
func (b *TokenBucket) ShouldRetry(_ context.Context, d retry.Decision) bool {
	permits := d.Permits()
	if permits == 0 {
		return true
	}
	for {
		level := b.level.Load()
		var next int64
		if permits > 0 {
			if level == 0 {
				return false
			}
			next = max(0, level-tokenScale)
		} else {
			next = min(b.max, level+b.refill)
		}
		if b.level.CompareAndSwap(level, next) {
			return next > b.threshold
		}
	}
}

// Tokens returns the number of tokens in the bucket.
func (b *TokenBucket) Tokens() float64 {
	return float64(b.level.Load()) / tokenScale
}
