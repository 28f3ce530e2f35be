// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"errors"

	"github.com/gogama/retryx/reqlog"
	"github.com/gogama/retryx/request"
	"github.com/gogama/retryx/transient"
)

// A Condition is a predicate over the outcome of an attempt. The cause
// parameter is the error which ended the attempt, or nil if the attempt
// produced a response.
//
// Conditions are composed with And and Or, and turned into rules with
// Then.
type Condition func(a *request.Attempt, cause error) bool

// TransientErr is a condition that is true when the cause is a
// transient error according to transient.Categorize.
var TransientErr Condition = transientErr

// Unprocessed is a condition that is true when the attempt failed
// before any request bytes reached the wire. Such an attempt can be
// retried safely even for a non-idempotent request, since the server
// cannot have seen it.
var Unprocessed Condition = unprocessed

// And composes two conditions into one that is true when both are.
func (c Condition) And(d Condition) Condition {
	return func(a *request.Attempt, cause error) bool {
		return c(a, cause) && d(a, cause)
	}
}

// Or composes two conditions into one that is true when either is.
func (c Condition) Or(d Condition) Condition {
	return func(a *request.Attempt, cause error) bool {
		return c(a, cause) || d(a, cause)
	}
}

// Then returns a rule that returns decision d when c is true, and
// Next otherwise.
func (c Condition) Then(d Decision) Rule {
	return When(c, d)
}

// Times constructs a condition that is true for the first n attempts.
func Times(n int) Condition {
	return func(a *request.Attempt, _ error) bool {
		return a.Number <= n
	}
}

// StatusCode constructs a condition that is true when the attempt
// produced a response with one of the listed status codes.
func StatusCode(ss ...int) Condition {
	ss2 := make([]int, len(ss))
	copy(ss2, ss)
	return func(a *request.Attempt, _ error) bool {
		for _, s := range ss2 {
			if a.StatusCode() == s {
				return true
			}
		}
		return false
	}
}

// StatusClass constructs a condition that is true when the attempt
// produced a response whose status code is in one of the listed
// classes. For example StatusClass(5) matches every 5XX status code.
func StatusClass(classes ...int) Condition {
	cs := make([]int, len(classes))
	copy(cs, classes)
	return func(a *request.Attempt, _ error) bool {
		code := a.StatusCode()
		if code == 0 {
			return false
		}
		for _, c := range cs {
			if code/100 == c {
				return true
			}
		}
		return false
	}
}

// Err constructs a condition that is true when the cause matches target
// according to errors.Is.
func Err(target error) Condition {
	return func(_ *request.Attempt, cause error) bool {
		return cause != nil && errors.Is(cause, target)
	}
}

func transientErr(_ *request.Attempt, cause error) bool {
	return transient.Categorize(cause) != transient.Not
}

func unprocessed(a *request.Attempt, cause error) bool {
	return cause != nil && !a.Log.IsAvailable(reqlog.RequestFirstBytesTransferred)
}
