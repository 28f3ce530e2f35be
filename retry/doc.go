// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry provides the rules, decisions, backoffs, and counters
// which control how a failed attempt is retried during an HTTP request
// plan execution.
//
// After every attempt, the client evaluates a Rule (or, if the response
// body must be inspected, a ContentRule) to obtain a Decision. A
// decision to retry carries a Backoff, which computes how long to wait
// before the next attempt. Rules are easily assembled from Conditions:
//
//	rule := retry.Rules(
//		retry.StatusCode(503).Then(retry.Retry(retry.NewFixedBackoff(time.Second))),
//		retry.TransientErr.Then(retry.Retry(retry.DefaultBackoff)),
//	)
//	client := &retryx.Client{
//		RetryConfig: retry.NewConfig(rule),
//	}
//
// The client keeps a State for each plan execution. The State enforces
// the maximum number of attempts and the whole-execution deadline set
// in the Config, and combines the backoff delay with any delay the
// server requested with a Retry-After header.
package retry
