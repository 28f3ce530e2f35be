// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"context"

	"github.com/gogama/retryx/request"
)

// A Rule decides whether to retry after an attempt, without looking
// at the response body.
//
// The cause parameter is the error which ended the attempt, or nil if
// the attempt produced a response. A rule may inspect the attempt's
// response status and headers.
//
// A Rule may return the zero Decision or an error to indicate it has
// no opinion. The client treats both, and a panic, as NoRetry. A rule
// that returns an error or panics is logged as a warning.
//
// Implementations of Rule must be safe for concurrent use by multiple
// goroutines.
type Rule interface {
	ShouldRetry(ctx context.Context, a *request.Attempt, cause error) (Decision, error)
}

// The RuleFunc type is an adapter to allow the use of ordinary
// functions as retry rules.
type RuleFunc func(ctx context.Context, a *request.Attempt, cause error) (Decision, error)

// ShouldRetry calls f(ctx, a, cause).
func (f RuleFunc) ShouldRetry(ctx context.Context, a *request.Attempt, cause error) (Decision, error) {
	return f(ctx, a, cause)
}

// A ContentRule decides whether to retry after an attempt by looking
// at a prefix of the response body, as well as the response status
// and headers.
//
// The content parameter holds at most the configured maximum content
// length of the response body. It is nil when the attempt ended in an
// error.
//
// The remarks on the return value of Rule apply to ContentRule too.
type ContentRule interface {
	ShouldRetryWithContent(ctx context.Context, a *request.Attempt, content []byte, cause error) (Decision, error)
}

// The ContentRuleFunc type is an adapter to allow the use of ordinary
// functions as content-aware retry rules.
type ContentRuleFunc func(ctx context.Context, a *request.Attempt, content []byte, cause error) (Decision, error)

// ShouldRetryWithContent calls f(ctx, a, content, cause).
func (f ContentRuleFunc) ShouldRetryWithContent(ctx context.Context, a *request.Attempt, content []byte, cause error) (Decision, error) {
	return f(ctx, a, content, cause)
}

// DefaultCondition is true when the attempt produced a response with
// status code 429, 502, 503 or 504, or failed with a transient error.
var DefaultCondition = StatusCode(429, 502, 503, 504).Or(TransientErr)

// DefaultRule retries with DefaultBackoff when DefaultCondition holds.
//
// Its retry decisions carry no permits, so retry limiters let them all
// through. Use RetryWithPermits for rules meant to be limited.
var DefaultRule = When(DefaultCondition, Retry(DefaultBackoff))

// Never is a rule that never retries.
var Never Rule = RuleFunc(func(context.Context, *request.Attempt, error) (Decision, error) {
	return NoRetry(), nil
})

// When returns a rule that returns decision d when c is true, and Next
// otherwise.
func When(c Condition, d Decision) Rule {
	if c == nil {
		panic("retryx/retry: nil condition")
	}
	return RuleFunc(func(_ context.Context, a *request.Attempt, cause error) (Decision, error) {
		if c(a, cause) {
			return d, nil
		}
		return Next(), nil
	})
}

// Rules chains rules together. The resulting rule evaluates each rule
// in order and returns the first decision which is neither Next nor the
// zero Decision. If every rule defers, the result is Next. An error
// from any rule stops the chain and is returned.
func Rules(rules ...Rule) Rule {
	rs := make([]Rule, len(rules))
	for i, r := range rules {
		if r == nil {
			panic("retryx/retry: nil rule")
		}
		rs[i] = r
	}
	return RuleFunc(func(ctx context.Context, a *request.Attempt, cause error) (Decision, error) {
		for _, r := range rs {
			d, err := r.ShouldRetry(ctx, a, cause)
			if err != nil {
				return Decision{}, err
			}
			if !d.IsNext() && !d.IsZero() {
				return d, nil
			}
		}
		return Next(), nil
	})
}

// ContentRules chains content-aware rules together, with the same
// semantics as Rules.
func ContentRules(rules ...ContentRule) ContentRule {
	rs := make([]ContentRule, len(rules))
	for i, r := range rules {
		if r == nil {
			panic("retryx/retry: nil rule")
		}
		rs[i] = r
	}
	return ContentRuleFunc(func(ctx context.Context, a *request.Attempt, content []byte, cause error) (Decision, error) {
		for _, r := range rs {
			d, err := r.ShouldRetryWithContent(ctx, a, content, cause)
			if err != nil {
				return Decision{}, err
			}
			if !d.IsNext() && !d.IsZero() {
				return d, nil
			}
		}
		return Next(), nil
	})
}

// IgnoreContent adapts a Rule into a ContentRule which ignores the
// response content, so that content-blind rules can take part in a
// ContentRules chain.
func IgnoreContent(r Rule) ContentRule {
	if r == nil {
		panic("retryx/retry: nil rule")
	}
	return ContentRuleFunc(func(ctx context.Context, a *request.Attempt, _ []byte, cause error) (Decision, error) {
		return r.ShouldRetry(ctx, a, cause)
	})
}
