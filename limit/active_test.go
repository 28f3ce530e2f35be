// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package limit

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/gogama/retryx/reqlog"
	"github.com/gogama/retryx/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestNewActiveRequest(t *testing.T) {
	assert.PanicsWithValue(t, "retryx/limit: limit must be positive", func() {
		NewActiveRequest(0)
	})
}

func TestActiveRequest(t *testing.T) {
	retryOne := retry.RetryWithPermits(retry.NoDelay, 1)

	t.Run("zero permits bypass", func(t *testing.T) {
		l := NewActiveRequest(1)
		for i := 0; i < 3; i++ {
			assert.True(t, l.ShouldRetry(context.Background(), retry.Retry(retry.NoDelay)))
		}
		assert.Equal(t, 0, l.Active())
	})
	t.Run("no log releases immediately", func(t *testing.T) {
		l := NewActiveRequest(1)
		assert.True(t, l.ShouldRetry(context.Background(), retryOne))
		assert.True(t, l.ShouldRetry(context.Background(), retryOne))
		assert.Equal(t, 0, l.Active())
	})
	t.Run("released on log completion", func(t *testing.T) {
		l := NewActiveRequest(2)
		logs := []*reqlog.Log{reqlog.New(), reqlog.New(), reqlog.New()}
		assert.True(t, l.ShouldRetry(reqlog.NewContext(context.Background(), logs[0]), retryOne))
		assert.True(t, l.ShouldRetry(reqlog.NewContext(context.Background(), logs[1]), retryOne))
		assert.False(t, l.ShouldRetry(reqlog.NewContext(context.Background(), logs[2]), retryOne))
		assert.Equal(t, 3, l.Active())

		logs[0].EndRequest(nil)
		logs[0].EndResponse(nil)
		logs[2].EndRequest(nil)
		logs[2].EndResponse(nil)
		assert.Equal(t, 1, l.Active())

		fresh := reqlog.New()
		assert.True(t, l.ShouldRetry(reqlog.NewContext(context.Background(), fresh), retryOne))
		assert.Equal(t, 2, l.Active())
	})
	t.Run("held until logical request completes", func(t *testing.T) {
		l := NewActiveRequest(2)
		log := reqlog.New()
		ctx := reqlog.NewContext(context.Background(), log)
		first := log.NewChild()
		assert.True(t, l.ShouldRetry(ctx, retryOne))
		first.EndRequest(nil)
		first.EndResponse(nil)
		assert.Equal(t, 1, l.Active())

		second := log.NewChild()
		assert.True(t, l.ShouldRetry(ctx, retryOne))
		second.EndRequest(nil)
		second.EndResponse(nil)
		assert.Equal(t, 2, l.Active())
		other := reqlog.New()
		assert.False(t, l.ShouldRetry(reqlog.NewContext(context.Background(), other), retryOne))
		assert.Equal(t, 3, l.Active())

		log.EndRequest(nil)
		log.EndResponseWithLastChild()
		assert.Equal(t, 1, l.Active())
		other.EndRequest(nil)
		other.EndResponse(nil)
		assert.Equal(t, 0, l.Active())
	})
	t.Run("concurrent", func(t *testing.T) {
		const limit, goroutines = 5, 50
		l := NewActiveRequest(limit)
		logs := make([]*reqlog.Log, goroutines)
		var allowed atomic.Int32
		var g errgroup.Group
		for i := range logs {
			logs[i] = reqlog.New()
			log := logs[i]
			g.Go(func() error {
				if l.ShouldRetry(reqlog.NewContext(context.Background(), log), retryOne) {
					allowed.Add(1)
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, int32(limit), allowed.Load())
		assert.Equal(t, goroutines, l.Active())
		for _, log := range logs {
			log.EndRequest(nil)
			log.EndResponse(nil)
		}
		assert.Equal(t, 0, l.Active())
	})
}
