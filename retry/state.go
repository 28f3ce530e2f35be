// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math"
	"reflect"
	"time"

	"github.com/coder/quartz"
)

// A State holds the retry counters and deadline of one plan execution.
//
// A State is owned by a single plan execution, whose attempts are
// strictly sequential, so it is not safe for concurrent use.
type State struct {
	clock           quartz.Clock
	maxAttempts     int
	deadline        time.Time
	deadlineEnabled bool
	lastBackoff     Backoff
	backoffAttempts int
	totalAttempts   int
}

// NewState returns the State for a new plan execution governed by c.
//
// Parameter timeout bounds the whole execution. Zero, a negative value,
// or math.MaxInt64 means the execution has no deadline. If clock is
// nil, the real clock is used.
func NewState(c *Config, timeout time.Duration, clock quartz.Clock) *State {
	if c == nil {
		panic("retryx/retry: nil config")
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	s := &State{
		clock:         clock,
		maxAttempts:   c.MaxAttempts(),
		totalAttempts: 1,
	}
	if timeout > 0 && timeout != math.MaxInt64 {
		s.deadlineEnabled = true
		s.deadline = clock.Now().Add(timeout)
	}
	return s
}

// TotalAttempts returns the number of attempts accounted for so far.
// It starts at one, for the initial attempt.
func (s *State) TotalAttempts() int {
	return s.totalAttempts
}

// Deadline returns the execution deadline and true, or the zero time and
// false if the execution has no deadline.
func (s *State) Deadline() (time.Time, bool) {
	return s.deadline, s.deadlineEnabled
}

// ResponseTimeout returns the timeout to apply to the next attempt,
// given the attempt's individual timeout perAttempt (zero meaning no
// individual timeout).
//
// A negative perAttempt counts as zero. Without a deadline, perAttempt
// is returned unchanged. With a deadline,
// the result is the time remaining until the deadline, or perAttempt if
// that is positive and smaller. If the deadline has already passed, the
// result is -1 and no further attempt should be made.
func (s *State) ResponseTimeout(perAttempt time.Duration) time.Duration {
	if !s.deadlineEnabled {
		return max(0, perAttempt)
	}
	remaining := s.remaining()
	if remaining <= 0 {
		return -1
	}
	if perAttempt > 0 {
		return min(perAttempt, remaining)
	}
	return remaining
}

// NextDelay returns the delay to wait before the next attempt, or -1 if
// no further attempt should be made.
//
// The result is -1 if the maximum number of attempts has been reached,
// if b is exhausted, or if the delay would end after the deadline.
// Otherwise it is the larger of the delay computed by b and fromServer,
// the delay requested by the server through a Retry-After header (pass
// a negative value if there is none).
//
// Each call accounts for one more attempt. The attempt number passed to
// b counts only the calls made with b, and restarts at one whenever b is
// not the same pointer as in the previous call.
func (s *State) NextDelay(b Backoff, fromServer time.Duration) time.Duration {
	n := s.currentAttemptWith(b)
	if n < 0 {
		return -1
	}
	delay := b.NextDelay(n)
	if delay < 0 {
		return -1
	}
	delay = max(delay, fromServer)
	if s.deadlineEnabled && delay > s.remaining() {
		return -1
	}
	return delay
}

func (s *State) currentAttemptWith(b Backoff) int {
	if s.totalAttempts >= s.maxAttempts {
		return -1
	}
	s.totalAttempts++
	if sameBackoff(s.lastBackoff, b) {
		s.backoffAttempts++
	} else {
		s.lastBackoff = b
		s.backoffAttempts = 1
	}
	return s.backoffAttempts
}

func (s *State) remaining() time.Duration {
	return s.deadline.Sub(s.clock.Now())
}

func sameBackoff(a, b Backoff) bool {
	if a == nil || b == nil {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() != reflect.Pointer || vb.Kind() != reflect.Pointer {
		return false
	}
	return va.Type() == vb.Type() && va.Pointer() == vb.Pointer()
}
