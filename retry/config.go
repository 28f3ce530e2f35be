// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/gogama/retryx/timeout"
)

// DefaultMaxTotalAttempts is the maximum number of attempts, including
// the initial attempt, used when Config.MaxTotalAttempts is zero.
const DefaultMaxTotalAttempts = 10

// A Config holds the retry configuration of a client. A Config uses
// either a content-blind Rule or a content-aware ContentRule, chosen
// once when the Config is constructed with NewConfig or
// NewContentConfig.
//
// A Config must not be modified once it is in use by a client.
type Config struct {
	// MaxTotalAttempts is the maximum number of attempts, including the
	// initial attempt, made during one plan execution. If zero,
	// DefaultMaxTotalAttempts is used.
	MaxTotalAttempts int

	// AttemptTimeout sets the timeout of each individual attempt. If
	// nil, attempts have no individual timeout, although they are still
	// bounded by Timeout and by the plan context.
	AttemptTimeout timeout.Policy

	// Timeout bounds the whole plan execution, including every attempt
	// and every wait between attempts. Zero or a negative value means
	// no bound.
	Timeout time.Duration

	// RequiresTrailers stipulates that response trailers must be
	// available to the rule. When set, responses are always read in
	// full before the rule is consulted, even if the plan asks for a
	// streamed response.
	RequiresTrailers bool

	rule             Rule
	contentRule      ContentRule
	maxContentLength int
}

// DefaultConfig is the retry configuration used by a client with no
// Config of its own. It uses DefaultRule, DefaultMaxTotalAttempts, and
// timeout.DefaultPolicy, and does not bound the whole execution.
var DefaultConfig = newDefaultConfig()

func newDefaultConfig() *Config {
	c := NewConfig(DefaultRule)
	c.AttemptTimeout = timeout.DefaultPolicy
	return c
}

// NewConfig returns a Config that uses the content-blind rule r.
func NewConfig(r Rule) *Config {
	if r == nil {
		panic("retryx/retry: nil rule")
	}
	return &Config{rule: r}
}

// NewContentConfig returns a Config that uses the content-aware rule
// r. At most maxContentLength bytes of each response body are passed
// to r, which must be positive.
func NewContentConfig(r ContentRule, maxContentLength int) *Config {
	if r == nil {
		panic("retryx/retry: nil rule")
	}
	if maxContentLength < 1 {
		panic("retryx/retry: maxContentLength must be positive")
	}
	return &Config{contentRule: r, maxContentLength: maxContentLength}
}

// Rule returns the content-blind rule, or nil if c uses a content-aware
// rule.
func (c *Config) Rule() Rule {
	return c.rule
}

// ContentRule returns the content-aware rule, or nil if c uses a
// content-blind rule.
func (c *Config) ContentRule() ContentRule {
	return c.contentRule
}

// NeedsContent reports whether c uses a content-aware rule.
func (c *Config) NeedsContent() bool {
	return c.contentRule != nil
}

// MaxContentLength returns the maximum number of response body bytes
// passed to a content-aware rule, or zero for a content-blind rule.
func (c *Config) MaxContentLength() int {
	return c.maxContentLength
}

// MaxAttempts returns MaxTotalAttempts, or DefaultMaxTotalAttempts if
// MaxTotalAttempts is zero.
func (c *Config) MaxAttempts() int {
	if c.MaxTotalAttempts > 0 {
		return c.MaxTotalAttempts
	}
	return DefaultMaxTotalAttempts
}
