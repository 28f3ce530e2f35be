// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package config loads retryx client settings from YAML or JSON
// documents and turns them into a ready-to-use retryx.Client.
//
// A typical YAML document looks like this:
//
//	max_total_attempts: 4
//	timeout: 10s
//	attempt_timeout: [500ms, 2s]
//	retry_status_codes: [429, 502, 503, 504]
//	retry_transient: true
//	use_retry_after: true
//	backoff:
//	  kind: exponential
//	  delay: 100ms
//	  max: 5s
//	  multiplier: 2
//	  jitter: 0.2
//	endpoints: ["https://a.example.com", "https://b.example.com"]
//	limit:
//	  token_bucket:
//	    max_tokens: 10
//	    threshold: 5
//	    token_ratio: 0.1
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gogama/retryx"
	"github.com/gogama/retryx/endpoint"
	"github.com/gogama/retryx/limit"
	"github.com/gogama/retryx/request"
	"github.com/gogama/retryx/retry"
	"github.com/gogama/retryx/timeout"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"golang.org/x/net/http/httpguts"
)

// Document formats understood by Load.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Backoff kinds understood by BackoffSettings.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
	BackoffFullJitter  = "full_jitter"
)

var (
	// ErrUnsupportedFormat is returned when a document format is neither
	// YAML nor JSON.
	ErrUnsupportedFormat = errors.New("retryx/config: unsupported format")

	// ErrParse is returned when a document cannot be parsed or decoded.
	ErrParse = errors.New("retryx/config: parse failed")

	// ErrInvalid is returned by Validate, and by Load and LoadFile, when
	// the settings are inconsistent.
	ErrInvalid = errors.New("retryx/config: invalid settings")
)

// Settings describes a retrying client. The zero value describes a
// client with the default retry configuration and no retry limiter.
type Settings struct {
	// MaxTotalAttempts is the maximum number of attempts per plan
	// execution. Zero means retry.DefaultMaxTotalAttempts.
	MaxTotalAttempts int `koanf:"max_total_attempts"`

	// Timeout bounds a whole plan execution. Zero means no bound.
	Timeout time.Duration `koanf:"timeout"`

	// AttemptTimeout lists the adaptive attempt timeouts: the first is
	// the usual timeout, the others apply after consecutive timeouts.
	// Empty means the default policy; a single zero means no individual
	// attempt timeout.
	AttemptTimeout []time.Duration `koanf:"attempt_timeout"`

	// RetryStatusCodes lists the HTTP status codes to retry.
	RetryStatusCodes []int `koanf:"retry_status_codes"`

	// RetryTransient retries transient errors such as timeouts and
	// connection resets.
	RetryTransient bool `koanf:"retry_transient"`

	// Backoff describes the delay between attempts.
	Backoff BackoffSettings `koanf:"backoff"`

	// UseRetryAfter honors Retry-After response headers.
	UseRetryAfter bool `koanf:"use_retry_after"`

	// RetryCountHeader names the header carrying the retry count.
	RetryCountHeader string `koanf:"retry_count_header"`

	// Endpoints are selected round robin, one per attempt.
	Endpoints []string `koanf:"endpoints"`

	// Limit describes the retry limiters.
	Limit LimitSettings `koanf:"limit"`
}

// BackoffSettings describes a retry.Backoff.
type BackoffSettings struct {
	// Kind is one of BackoffFixed, BackoffExponential, or
	// BackoffFullJitter. Empty means retry.DefaultBackoff.
	Kind string `koanf:"kind"`
	// Delay is the fixed delay, or the initial delay of an exponential
	// backoff, or the base of a full jitter backoff.
	Delay      time.Duration `koanf:"delay"`
	Max        time.Duration `koanf:"max"`
	Multiplier float64       `koanf:"multiplier"`
	// Jitter is the jitter ratio applied to fixed and exponential
	// backoffs.
	Jitter float64 `koanf:"jitter"`
}

// LimitSettings describes the retry limiters. Each configured limiter
// must permit a retry for it to go ahead.
type LimitSettings struct {
	ActiveRequests int                  `koanf:"active_requests"`
	Rate           *RateSettings        `koanf:"rate"`
	TokenBucket    *TokenBucketSettings `koanf:"token_bucket"`
	Breaker        *BreakerSettings     `koanf:"breaker"`
}

// RateSettings describes a limit.Rate.
type RateSettings struct {
	PermitsPerSecond float64 `koanf:"permits_per_second"`
	Burst            int     `koanf:"burst"`
}

// TokenBucketSettings describes a limit.TokenBucket.
type TokenBucketSettings struct {
	MaxTokens  int     `koanf:"max_tokens"`
	Threshold  int     `koanf:"threshold"`
	TokenRatio float64 `koanf:"token_ratio"`
}

// BreakerSettings describes a limit.Breaker.
type BreakerSettings struct {
	Name                string        `koanf:"name"`
	ConsecutiveFailures int           `koanf:"consecutive_failures"`
	OpenTimeout         time.Duration `koanf:"open_timeout"`
}

// Load parses a YAML or JSON document into validated Settings.
func Load(data []byte, format string) (*Settings, error) {
	var parser koanf.Parser
	switch strings.ToLower(format) {
	case FormatYAML, "yml":
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	k := koanf.New(".")
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
	}
	var s Settings
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads the document at path and loads it with Load. The
// format follows from the file extension.
func LoadFile(path string) (*Settings, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data, format)
}

// Validate reports the first inconsistency in s, wrapped in ErrInvalid.
func (s *Settings) Validate() error {
	if s.MaxTotalAttempts < 0 {
		return invalid("max_total_attempts must not be negative")
	}
	if s.Timeout < 0 {
		return invalid("timeout must not be negative")
	}
	for _, t := range s.AttemptTimeout {
		if t < 0 {
			return invalid("attempt_timeout must not be negative")
		}
	}
	for _, c := range s.RetryStatusCodes {
		if c < 100 || c > 999 {
			return invalid("retry_status_codes has invalid status code %d", c)
		}
	}
	if s.RetryCountHeader != "" && !httpguts.ValidHeaderFieldName(s.RetryCountHeader) {
		return invalid("retry_count_header %q is not a valid header name", s.RetryCountHeader)
	}
	for _, ep := range s.Endpoints {
		if _, err := endpoint.Parse(ep); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	if err := s.Backoff.validate(); err != nil {
		return err
	}
	return s.Limit.validate()
}

func (b *BackoffSettings) validate() error {
	if b.Jitter < 0 || b.Jitter > 1 {
		return invalid("backoff jitter must be between 0 and 1")
	}
	switch b.Kind {
	case "":
	case BackoffFixed:
		if b.Delay < 0 {
			return invalid("backoff delay must not be negative")
		}
	case BackoffExponential:
		if b.Delay < 0 || b.Max < b.Delay {
			return invalid("exponential backoff needs 0 <= delay <= max")
		}
		if b.Multiplier <= 1 {
			return invalid("exponential backoff multiplier must be greater than 1")
		}
	case BackoffFullJitter:
		if b.Delay <= 0 || b.Max < b.Delay {
			return invalid("full jitter backoff needs 0 < delay <= max")
		}
	default:
		return invalid("unknown backoff kind %q", b.Kind)
	}
	return nil
}

func (l *LimitSettings) validate() error {
	if l.ActiveRequests < 0 {
		return invalid("limit active_requests must not be negative")
	}
	if r := l.Rate; r != nil {
		if r.PermitsPerSecond <= 0 {
			return invalid("limit rate permits_per_second must be positive")
		}
		if r.Burst < 0 {
			return invalid("limit rate burst must not be negative")
		}
	}
	if tb := l.TokenBucket; tb != nil {
		if tb.MaxTokens <= 0 || tb.Threshold < 0 || tb.Threshold >= tb.MaxTokens {
			return invalid("limit token_bucket needs 0 <= threshold < max_tokens")
		}
		if tb.TokenRatio <= 0 {
			return invalid("limit token_bucket token_ratio must be positive")
		}
	}
	if b := l.Breaker; b != nil {
		if b.ConsecutiveFailures <= 0 {
			return invalid("limit breaker consecutive_failures must be positive")
		}
		if b.OpenTimeout < 0 {
			return invalid("limit breaker open_timeout must not be negative")
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// RetryConfig builds the retry configuration described by s. The rule
// retries the listed status codes, and transient errors if enabled. If
// neither is given, retry.DefaultRule is used.
//
// When s configures a limiter, every retry decision costs one permit,
// and an attempt with a 2XX or 3XX response returns one permit to the
// limiter as a NoRetryWithPermits(-1) decision. Without permits the
// limiters would let every retry through.
func (s *Settings) RetryConfig() *retry.Config {
	var cond retry.Condition
	if len(s.RetryStatusCodes) > 0 {
		cond = retry.StatusCode(s.RetryStatusCodes...)
	}
	if s.RetryTransient {
		if cond == nil {
			cond = retry.TransientErr
		} else {
			cond = cond.Or(retry.TransientErr)
		}
	}
	var rule retry.Rule
	switch {
	case s.Limit.configured():
		if cond == nil {
			cond = retry.DefaultCondition
		}
		rule = retry.Rules(
			retry.When(cond, retry.RetryWithPermits(s.Backoff.backoff(), 1)),
			retry.When(succeeded, retry.NoRetryWithPermits(-1)),
		)
	case cond != nil:
		rule = retry.When(cond, retry.Retry(s.Backoff.backoff()))
	default:
		rule = retry.DefaultRule
	}

	cfg := retry.NewConfig(rule)
	cfg.MaxTotalAttempts = s.MaxTotalAttempts
	cfg.Timeout = s.Timeout
	switch len(s.AttemptTimeout) {
	case 0:
		cfg.AttemptTimeout = timeout.DefaultPolicy
	case 1:
		cfg.AttemptTimeout = timeout.Fixed(s.AttemptTimeout[0])
	default:
		cfg.AttemptTimeout = timeout.Adaptive(s.AttemptTimeout[0], s.AttemptTimeout[1:]...)
	}
	return cfg
}

func (b *BackoffSettings) backoff() retry.Backoff {
	var backoff retry.Backoff
	switch b.Kind {
	case BackoffFixed:
		backoff = retry.NewFixedBackoff(b.Delay)
	case BackoffExponential:
		backoff = retry.NewExponentialBackoff(b.Delay, b.Max, b.Multiplier)
	case BackoffFullJitter:
		return retry.NewFullJitterBackoff(b.Delay, b.Max, time.Now())
	default:
		return retry.DefaultBackoff
	}
	if b.Jitter > 0 {
		backoff = retry.WithJitter(backoff, b.Jitter, time.Now())
	}
	return backoff
}

var succeeded = retry.StatusClass(2, 3).And(func(_ *request.Attempt, cause error) bool {
	return cause == nil
})

func (l *LimitSettings) configured() bool {
	return l.ActiveRequests > 0 || l.Rate != nil || l.TokenBucket != nil || l.Breaker != nil
}

// Limiter builds the retry limiter described by s, or returns nil if s
// configures none.
func (s *Settings) Limiter() limit.Limiter {
	var limiters []limit.Limiter
	l := s.Limit
	if l.ActiveRequests > 0 {
		limiters = append(limiters, limit.NewActiveRequest(l.ActiveRequests))
	}
	if l.Rate != nil {
		if l.Rate.Burst > 0 {
			limiters = append(limiters, limit.NewRateWithBurst(l.Rate.PermitsPerSecond, l.Rate.Burst, nil))
		} else {
			limiters = append(limiters, limit.NewRate(l.Rate.PermitsPerSecond, nil))
		}
	}
	if tb := l.TokenBucket; tb != nil {
		limiters = append(limiters, limit.NewTokenBucket(tb.MaxTokens, tb.Threshold, tb.TokenRatio))
	}
	if b := l.Breaker; b != nil {
		name := b.Name
		if name == "" {
			name = "retryx"
		}
		limiters = append(limiters, limit.NewBreaker(name, b.ConsecutiveFailures, b.OpenTimeout))
	}
	switch len(limiters) {
	case 0:
		return nil
	case 1:
		return limiters[0]
	default:
		return limit.All(limiters...)
	}
}

// Client builds a client which sends its attempts through doer. If
// doer is nil, the client uses http.DefaultClient.
func (s *Settings) Client(doer retryx.HTTPDoer) (*retryx.Client, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	cl := &retryx.Client{
		HTTPDoer:         doer,
		RetryConfig:      s.RetryConfig(),
		Limiter:          s.Limiter(),
		UseRetryAfter:    s.UseRetryAfter,
		RetryCountHeader: s.RetryCountHeader,
	}
	if len(s.Endpoints) > 0 {
		eps := make([]endpoint.Endpoint, len(s.Endpoints))
		for i, raw := range s.Endpoints {
			eps[i], _ = endpoint.Parse(raw)
		}
		cl.Endpoints = endpoint.NewRoundRobin(eps...)
	}
	return cl, nil
}
