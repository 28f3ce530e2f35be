// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package limit

import (
	"context"
	"testing"
	"time"

	"github.com/gogama/retryx/retry"
	"github.com/stretchr/testify/assert"
)

func TestNewBreaker(t *testing.T) {
	assert.PanicsWithValue(t, "retryx/limit: consecutiveFailures must be positive", func() {
		NewBreaker("foo", 0, time.Second)
	})
}

func TestBreaker(t *testing.T) {
	ctx := context.Background()
	retryOne := retry.RetryWithPermits(retry.NoDelay, 1)
	success := retry.NoRetryWithPermits(-1)

	t.Run("trips after consecutive retries", func(t *testing.T) {
		b := NewBreaker("trip", 3, time.Hour)
		assert.True(t, b.ShouldRetry(ctx, retryOne))
		assert.True(t, b.ShouldRetry(ctx, retryOne))
		assert.Equal(t, "closed", b.State())
		assert.True(t, b.ShouldRetry(ctx, retryOne))
		assert.Equal(t, "open", b.State())
		assert.False(t, b.ShouldRetry(ctx, retryOne))
		assert.False(t, b.ShouldRetry(ctx, success))
		assert.True(t, b.ShouldRetry(ctx, retry.Retry(retry.NoDelay)))
	})
	t.Run("success resets count", func(t *testing.T) {
		b := NewBreaker("reset", 2, time.Hour)
		assert.True(t, b.ShouldRetry(ctx, retryOne))
		assert.True(t, b.ShouldRetry(ctx, success))
		assert.True(t, b.ShouldRetry(ctx, retryOne))
		assert.Equal(t, "closed", b.State())
	})
	t.Run("half-opens after timeout", func(t *testing.T) {
		b := NewBreaker("half-open", 1, 10*time.Millisecond)
		assert.True(t, b.ShouldRetry(ctx, retryOne))
		assert.Equal(t, "open", b.State())
		assert.Eventually(t, func() bool {
			return b.State() == "half-open"
		}, time.Second, 5*time.Millisecond)
		assert.True(t, b.ShouldRetry(ctx, success))
		assert.Equal(t, "closed", b.State())
	})
}
