// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package retryx provides an HTTP client which retries failed request
attempts, within a simple and familiar interface.

Create a Client to begin making requests.

	client := &retryx.Client{}
	ex, err := client.Get("https://www.example.com")
	...
	ex, err := client.Post("https://www.example.com/upload",
		"application/json", &buf)

For control over the client's retry decisions, build a retry rule and
configuration using package retry:

	rule := retry.When(retry.StatusCode(503).Or(retry.TransientErr),
		retry.RetryWithPermits(retry.NewExponentialBackoff(100*time.Millisecond, 5*time.Second, 2), 1))
	cfg := retry.NewConfig(rule)
	cfg.MaxTotalAttempts = 4
	cfg.AttemptTimeout = timeout.Fixed(2 * time.Second)
	cfg.Timeout = 10 * time.Second
	client := &retryx.Client{
		RetryConfig:   cfg,
		Limiter:       limit.NewTokenBucket(10, 5, 0.1),
		UseRetryAfter: true,
	}

A retry rule which needs to look at the response body uses a content
configuration. The client then reads at most the configured number of
body bytes before consulting the rule:

	cfg := retry.NewContentConfig(retry.ContentRuleFunc(
		func(_ context.Context, a *request.Attempt, content []byte, err error) (retry.Decision, error) {
			if bytes.Contains(content, []byte("try again")) {
				return retry.Retry(retry.DefaultBackoff), nil
			}
			return retry.Next(), nil
		}), 1024)

To run a plan execution in the background, and possibly abort it, use
Client.Go:

	call := client.Go(plan)
	select {
	case <-call.Done():
	case <-shutdown:
		call.Abort(errShutdown)
	}
	ex, err := call.Wait()

Every execution records a structured log of its attempts, which stays
available after the execution ends:

	for _, attempt := range ex.Log.Children() {
		entry := attempt.Entry()
		fmt.Println(entry.RequestID, entry.StatusCode, entry.ResponseCause)
	}

To hook into the fine-grained details of the client's request execution
logic, install a handler into the appropriate handler chain:

	handlers := &retryx.HandlerGroup{}
	handlers.PushBack(retryx.BeforeAttempt, retryx.HandlerFunc(
		func(_ retryx.Event, e *request.Execution) {
			log.Printf("Attempt %d to %s", e.Attempts, e.Request.URL)
		}))
	client := &retryx.Client{
		Handlers: handlers,
	}

Code which only needs to execute plans should depend on the Doer
interface. Inflate turns any Doer into an Executor, which adds the
shortcut methods of Client, and the Get, Head, Post and PostForm
functions build and execute a plan with a Doer under a context.
*/
package retryx
