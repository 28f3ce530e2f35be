// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// A Backoff computes how long to wait before the next retry.
//
// NextDelay is called with the 1-based number of attempts made so far
// using this Backoff (see State for how that number is counted). A
// negative return value means the Backoff is exhausted and no further
// retry should be made.
//
// The client compares Backoff values by pointer identity to detect
// when a retry rule switches from one Backoff to another. All
// constructors in this package return pointers. A Backoff which is not
// a pointer never counts as the same Backoff twice, so its attempt
// number is always 1.
//
// Implementations of Backoff must be safe for concurrent use by
// multiple goroutines.
type Backoff interface {
	NextDelay(attempt int) time.Duration
}

// DefaultBackoff is the default backoff. It is an exponential backoff
// starting at 200 milliseconds, doubling on each attempt up to 10
// seconds, with 20% jitter.
var DefaultBackoff = WithJitter(NewExponentialBackoff(200*time.Millisecond, 10*time.Second, 2), 0.2, time.Now())

// NoDelay is a Backoff that retries immediately, forever. Combine it
// with WithMaxAttempts or rely on the maximum total attempts to bound
// the number of retries.
var NoDelay = NewFixedBackoff(0)

// NewFixedBackoff constructs a Backoff that always returns d.
func NewFixedBackoff(d time.Duration) Backoff {
	if d < 0 {
		panic("retryx/retry: fixed delay must be non-negative")
	}
	return &fixedBackoff{d: d}
}

type fixedBackoff struct {
	d time.Duration
}

func (b *fixedBackoff) NextDelay(_ int) time.Duration {
	return b.d
}

// NewExponentialBackoff constructs a Backoff that returns initial on the
// first attempt and multiplies the delay by multiplier on each later
// attempt, up to max.
func NewExponentialBackoff(initial, max time.Duration, multiplier float64) Backoff {
	if initial < 0 {
		panic("retryx/retry: initial delay must be non-negative")
	}
	if max < initial {
		panic("retryx/retry: max must be at least initial")
	}
	if multiplier <= 1 {
		panic("retryx/retry: multiplier must be greater than 1")
	}
	return &exponentialBackoff{initial: initial, max: max, multiplier: multiplier}
}

type exponentialBackoff struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
}

func (b *exponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(b.initial) * math.Pow(b.multiplier, float64(attempt-1))
	if math.IsInf(d, 0) || math.IsNaN(d) || d > float64(b.max) {
		return b.max
	}
	return time.Duration(d)
}

// NewFullJitterBackoff constructs a Backoff implementing an exponential
// backoff formula with "Full Jitter", as described in:
// https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter.
//
// Parameters base and max control the exponential calculation of the
// ceiling:
//
//	ceil := min(base * 2**(attempt-1), max)
//
// Base and max must be positive values, and max must be at least equal
// to base.
//
// Parameter jitter is used to generate a random number between 0 and
// ceil. To make a backoff that does not jitter and simply returns
// ceil on each attempt, pass nil for jitter. Otherwise you may specify
// either a random number generator seed value (as a time.Time, int, or
// int64) or a random number generator (as a rand.Source). If a seed
// value is specified, it is used to seed a random number generator
// for calculating jitter. If a rand.Source is specified, it is used to
// calculate jitter.
func NewFullJitterBackoff(base, max time.Duration, jitter any) Backoff {
	if base < 1 {
		panic("retryx/retry: base must be positive")
	}
	if max < base {
		panic("retryx/retry: max must be at least base")
	}
	return &fullJitterBackoff{
		base: base,
		max:  max,
		rand: jitterToRand(jitter),
	}
}

type fullJitterBackoff struct {
	base time.Duration
	max  time.Duration
	rand *rand.Rand
	lock sync.Mutex
}

func (b *fullJitterBackoff) NextDelay(attempt int) time.Duration {
	shift := attempt - 1
	if shift < 0 {
		shift = 0
	}
	ceil := int64(b.max)
	if shift < 63 {
		exp := int64(1) << shift
		if c := int64(b.base) * exp; c/exp == int64(b.base) && c < ceil {
			ceil = c
		}
	}
	if ceil > 0 && b.rand != nil {
		b.lock.Lock()
		defer b.lock.Unlock()
		return time.Duration(b.rand.Int63n(ceil))
	}
	return time.Duration(ceil)
}

// WithJitter decorates a Backoff so that each non-negative delay it
// returns is randomly scaled by a factor between 1-ratio and 1+ratio.
// Negative delays pass through unchanged.
//
// Ratio must be between 0 and 1 inclusive. Parameter jitter accepts
// the same values as in NewFullJitterBackoff, except that nil is not
// allowed.
func WithJitter(b Backoff, ratio float64, jitter any) Backoff {
	if b == nil {
		panic("retryx/retry: nil backoff")
	}
	if ratio < 0 || ratio > 1 {
		panic("retryx/retry: jitter ratio must be between 0 and 1")
	}
	r := jitterToRand(jitter)
	if r == nil {
		panic("retryx/retry: jitter may not be nil")
	}
	return &jitteredBackoff{delegate: b, ratio: ratio, rand: r}
}

type jitteredBackoff struct {
	delegate Backoff
	ratio    float64
	rand     *rand.Rand
	lock     sync.Mutex
}

func (b *jitteredBackoff) NextDelay(attempt int) time.Duration {
	d := b.delegate.NextDelay(attempt)
	if d <= 0 || b.ratio == 0 {
		return d
	}
	b.lock.Lock()
	f := b.rand.Float64()
	b.lock.Unlock()
	scale := 1 - b.ratio + 2*b.ratio*f
	return time.Duration(float64(d) * scale)
}

// WithMaxAttempts decorates a Backoff so that it is exhausted (returns
// a negative delay) once more than n attempts have been made with it.
func WithMaxAttempts(b Backoff, n int) Backoff {
	if b == nil {
		panic("retryx/retry: nil backoff")
	}
	if n < 1 {
		panic("retryx/retry: max attempts must be positive")
	}
	return &limitedBackoff{delegate: b, n: n}
}

type limitedBackoff struct {
	delegate Backoff
	n        int
}

func (b *limitedBackoff) NextDelay(attempt int) time.Duration {
	if attempt > b.n {
		return -1
	}
	return b.delegate.NextDelay(attempt)
}

func jitterToRand(jitter any) *rand.Rand {
	var s rand.Source
	switch j := jitter.(type) {
	case nil:
		return nil
	case time.Time:
		s = rand.NewSource(j.UnixNano())
	case int:
		s = rand.NewSource(int64(j))
	case int64:
		s = rand.NewSource(j)
	case *rand.Rand:
		if j == nil {
			panic("retryx/retry: jitter may not be a typed nil")
		}
		return j
	case rand.Source:
		s = j
	default:
		panic("retryx/retry: invalid jitter type")
	}
	return rand.New(s)
}
