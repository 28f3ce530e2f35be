// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryx

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gogama/retryx/request"
	"github.com/gogama/retryx/retry"
)

// An evaluator turns a finished attempt into a retry decision. The
// decision it returns is never the zero Decision or Next.
type evaluator interface {
	evaluate(ctx context.Context, a *request.Attempt) retry.Decision
}

func newEvaluator(cfg *retry.Config, logger *slog.Logger, m *metrics) evaluator {
	g := ruleGuard{logger: logger, metrics: m}
	if cfg.NeedsContent() {
		return &contentEvaluator{ruleGuard: g, rule: cfg.ContentRule()}
	}
	return &blindEvaluator{ruleGuard: g, rule: cfg.Rule()}
}

type blindEvaluator struct {
	ruleGuard
	rule retry.Rule
}

func (ev *blindEvaluator) evaluate(ctx context.Context, a *request.Attempt) (d retry.Decision) {
	defer ev.recover(ctx, a, &d)
	d, err := ev.rule.ShouldRetry(ctx, a, a.Err)
	return ev.normalize(ctx, a, d, err)
}

type contentEvaluator struct {
	ruleGuard
	rule retry.ContentRule
}

func (ev *contentEvaluator) evaluate(ctx context.Context, a *request.Attempt) (d retry.Decision) {
	defer ev.recover(ctx, a, &d)
	d, err := ev.rule.ShouldRetryWithContent(ctx, a, a.Content, a.Err)
	return ev.normalize(ctx, a, d, err)
}

// ruleGuard keeps a misbehaving rule from failing the plan execution.
type ruleGuard struct {
	logger  *slog.Logger
	metrics *metrics
}

func (g *ruleGuard) normalize(ctx context.Context, a *request.Attempt, d retry.Decision, err error) retry.Decision {
	if err != nil {
		g.warn(ctx, a, "retry rule failed", err)
		return retry.NoRetry()
	}
	if d.IsZero() || d.IsNext() {
		return retry.NoRetry()
	}
	return d
}

func (g *ruleGuard) recover(ctx context.Context, a *request.Attempt, d *retry.Decision) {
	if r := recover(); r != nil {
		g.warn(ctx, a, "retry rule panicked", fmt.Errorf("%v", r))
		*d = retry.NoRetry()
	}
}

func (g *ruleGuard) warn(ctx context.Context, a *request.Attempt, msg string, err error) {
	g.metrics.ruleFailure(ctx)
	g.logger.WarnContext(ctx, msg,
		"attempt", a.Number,
		"request_id", a.ID.String(),
		"error", err)
}
