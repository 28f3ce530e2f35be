// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryx

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricNameAttempts          = "retryx.attempts"
	metricNameRetries           = "retryx.retries"
	metricNameLimiterRejections = "retryx.limiter.rejections"
	metricNameRuleFailures      = "retryx.rule.failures"
	metricNameBackoffDelay      = "retryx.backoff.delay"
)

// Values of the outcome attribute of the attempts counter.
const (
	outcomeResponse = "response"
	outcomeTimeout  = "timeout"
	outcomeError    = "error"
)

// metrics records client metrics. A nil *metrics records nothing.
type metrics struct {
	attempts          metric.Int64Counter
	retries           metric.Int64Counter
	limiterRejections metric.Int64Counter
	ruleFailures      metric.Int64Counter
	backoffDelay      metric.Float64Histogram
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	if mp == nil {
		return nil, nil
	}

	meter := mp.Meter("github.com/gogama/retryx")
	var m metrics
	var err error
	if m.attempts, err = meter.Int64Counter(metricNameAttempts,
		metric.WithDescription("HTTP request attempts made"),
		metric.WithUnit("{attempt}")); err != nil {
		return nil, err
	}
	if m.retries, err = meter.Int64Counter(metricNameRetries,
		metric.WithDescription("Retries scheduled after a failed attempt"),
		metric.WithUnit("{retry}")); err != nil {
		return nil, err
	}
	if m.limiterRejections, err = meter.Int64Counter(metricNameLimiterRejections,
		metric.WithDescription("Retries denied by the retry limiter"),
		metric.WithUnit("{retry}")); err != nil {
		return nil, err
	}
	if m.ruleFailures, err = meter.Int64Counter(metricNameRuleFailures,
		metric.WithDescription("Retry rule evaluations which failed or panicked"),
		metric.WithUnit("{evaluation}")); err != nil {
		return nil, err
	}
	if m.backoffDelay, err = meter.Float64Histogram(metricNameBackoffDelay,
		metric.WithDescription("Delay waited before a retry"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *metrics) attempt(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.attempts.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *metrics) retry(ctx context.Context, delay time.Duration) {
	if m == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	m.retries.Add(ctx, 1)
	m.backoffDelay.Record(ctx, delay.Seconds())
}

func (m *metrics) limiterRejection(ctx context.Context) {
	if m == nil {
		return
	}
	m.limiterRejections.Add(context.WithoutCancel(ctx), 1)
}

func (m *metrics) ruleFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.ruleFailures.Add(context.WithoutCancel(ctx), 1)
}
