// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package limit

import (
	"context"
	"sync/atomic"

	"github.com/gogama/retryx/reqlog"
	"github.com/gogama/retryx/retry"
)

// ActiveRequest is a Limiter which caps the number of logical requests
// that may be retrying at the same time.
//
// Each call for a decision with positive permits counts one active
// retry. The count is released when the log of the logical request in
// the context completes, or straight away if the context carries no
// log. The retry is allowed if, before counting it, fewer than the
// limit were active.
//
// The log in the context is that of the logical request, so the count
// covers retrying logical requests rather than individual attempts: a
// request which has retried twice holds two counts until it completes,
// even while it sits in a backoff with no attempt in flight.
type ActiveRequest struct {
	limit  int64
	active atomic.Int64
}

// NewActiveRequest returns an ActiveRequest limiter allowing up to
// limit concurrent retrying requests. The limit must be positive.
func NewActiveRequest(limit int) *ActiveRequest {
	if limit < 1 {
		panic("retryx/limit: limit must be positive")
	}
	return &ActiveRequest{limit: int64(limit)}
}

// ShouldRetry implements Limiter.
func (l *ActiveRequest) ShouldRetry(ctx context.Context, d retry.Decision) bool {
	if d.Permits() <= 0 {
		return true
	}
	n := l.active.Add(1)
	if log := reqlog.FromContext(ctx); log != nil {
		log.OnComplete(l.release)
	} else {
		l.release()
	}
	return n-1 < l.limit
}

// Active returns the number of retries currently counted as active.
func (l *ActiveRequest) Active() int {
	return int(l.active.Load())
}

func (l *ActiveRequest) release() {
	l.active.Add(-1)
}
