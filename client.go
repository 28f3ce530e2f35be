// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/quartz"
	"github.com/gogama/retryx/endpoint"
	"github.com/gogama/retryx/limit"
	"github.com/gogama/retryx/request"
	"github.com/gogama/retryx/retry"
	"go.opentelemetry.io/otel/metric"
)

// DefaultRetryCountHeader is the name of the request header which
// carries the retry count on every attempt after the first, unless the
// client sets a different name.
const DefaultRetryCountHeader = "X-Retry-Count"

// An HTTPDoer sends a single HTTP request, following the contract of
// http.Client.Do. *http.Client is an HTTPDoer.
type HTTPDoer interface {
	Do(r *http.Request) (*http.Response, error)
}

var emptyHandlers = HandlerGroup{}

// A Client is an HTTP client which retries failed request attempts.
// Its zero value is a valid configuration.
//
// The zero value sends requests with http.DefaultClient, retries
// according to retry.DefaultConfig without a limiter or endpoint
// selection, logs to slog.Default(), records no metrics and runs no
// event handlers.
//
// Reuse Clients rather than creating them per request: the HTTPDoer
// usually caches connections. A Client is safe for concurrent use, and
// must not be copied after first use.
//
// The HTTPDoer sends individual requests. The Client decides how many
// to send for one request plan. For each plan execution it:
//
// • makes a fresh copy of the plan's HTTP request for every attempt,
// numbering retries in a request header;
//
// • optionally picks a different endpoint for every attempt;
//
// • reads and buffers the response body, unless the plan asks for a
// streamed response;
//
// • asks the retry rule whether to retry, and the retry limiter whether
// the retry may go ahead;
//
// • waits out the backoff delay, or the delay the server asks for in a
// Retry-After header, before trying again; and
//
// • records everything that happened in the execution's structured log.
//
// The methods mirror those of http.Client, except that Do takes a
// request.Plan, which can be sent any number of times, and returns a
// request.Execution.
type Client struct {
	// HTTPDoer sends the request of every attempt. If nil,
	// http.DefaultClient is used.
	HTTPDoer HTTPDoer

	// RetryConfig decides when to retry, how many attempts to make and
	// how long each attempt, and the whole execution, may take.
	//
	// If RetryConfig is nil, retry.DefaultConfig is used.
	RetryConfig *retry.Config

	// Limiter has the final say over every retry the retry rule asks
	// for. It is consulted for every rule decision, so it can also keep
	// score of the decisions that do not ask for a retry.
	//
	// If Limiter is nil, retries are never limited.
	Limiter limit.Limiter

	// Endpoints chooses the endpoint each attempt is sent to. When set,
	// it is consulted before every attempt, and the chosen endpoint
	// replaces the scheme and host of the plan URL.
	//
	// If Endpoints is nil, every attempt is sent to the plan URL.
	Endpoints endpoint.Selector

	// Handlers run at the events of every plan execution. If nil, no
	// handlers run.
	Handlers *HandlerGroup

	// Logger receives warnings about misbehaving retry rules and debug
	// messages about retries.
	//
	// If Logger is nil, slog.Default() is used.
	Logger *slog.Logger

	// MeterProvider provides the meter which records attempt, retry and
	// limiter metrics.
	//
	// If MeterProvider is nil, no metrics are recorded.
	MeterProvider metric.MeterProvider

	// Clock is the source of time for backoff delays and execution
	// deadlines.
	//
	// If Clock is nil, the real clock is used.
	Clock quartz.Clock

	// UseRetryAfter makes the client honor the Retry-After header of a
	// response it is about to retry. The wait before the retry is the
	// longer of the backoff delay and the delay the server asks for.
	UseRetryAfter bool

	// RetryCountHeader is the name of the request header which carries
	// the retry count on every attempt after the first. The first retry
	// carries 1, the second 2, and so on.
	//
	// If RetryCountHeader is empty, DefaultRetryCountHeader is used.
	RetryCountHeader string

	metricsOnce sync.Once
	metrics     *metrics
}

// Do executes the plan p under the client's retry configuration,
// limiter and endpoint selector, and returns the execution state.
//
// Do runs the whole plan execution on the calling goroutine. To run it
// in the background, use Go.
//
// The result returned is the result of the final HTTP request attempt
// made during the plan execution. A retry which is ruled out by the
// limiter, by the maximum number of attempts, by the execution deadline
// or by an exhausted backoff does not produce an error: the final
// attempt's outcome is returned as is. A non-2XX status code in the
// final attempt does not result in an error.
//
// An error is returned if the final attempt resulted in an error, if
// the plan's context was cancelled or reached its deadline, or if no
// time was left for another attempt. The returned Execution is never
// nil. If an error was returned, the Err field of the Execution always
// references the same error.
//
// Errors are always of type *url.Error. Its Timeout method, like that
// of the Execution, reports true when the final attempt or the whole
// plan timed out.
//
// If the plan asks for a streamed response, Execution.Body is nil and
// the caller must read and close the body of Execution.Response. The
// execution log is complete only once the body is closed or read to
// the end.
//
func (c *Client) Do(p *request.Plan) (*request.Execution, error) {
	return c.newOrchestrator(p).run()
}

// Go starts executing an HTTP request plan on a new goroutine and
// returns a Call which resolves when the execution ends. The execution
// follows the same policies as Do.
func (c *Client) Go(p *request.Plan) *Call {
	o := c.newOrchestrator(p)
	call := &Call{o: o, done: make(chan struct{})}
	go func() {
		defer close(call.done)
		call.exec, call.err = o.run()
	}()
	return call
}

// Get executes a GET plan for url, following the same policies as Do.
// Use request.NewPlan and Do for anything more elaborate.
func (c *Client) Get(url string) (*request.Execution, error) {
	return Get(context.Background(), c, url)
}

// Head executes a HEAD plan for url, following the same policies as Do.
func (c *Client) Head(url string) (*request.Execution, error) {
	return Head(context.Background(), c, url)
}

// Post executes a POST plan for url with the given content type,
// following the same policies as Do. The body may be anything
// request.BodyBytes accepts.
func (c *Client) Post(url, contentType string, body any) (*request.Execution, error) {
	return Post(context.Background(), c, url, contentType, body)
}

// PostForm executes a POST plan for url with data URL-encoded as the
// body, following the same policies as Do.
func (c *Client) PostForm(url string, data url.Values) (*request.Execution, error) {
	return PostForm(context.Background(), c, url, data)
}

// CloseIdleConnections closes the idle connections of the HTTPDoer, if
// it is an IdleCloser.
func (c *Client) CloseIdleConnections() {
	if ic, ok := c.doer().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (c *Client) doer() HTTPDoer {
	if c.HTTPDoer == nil {
		return http.DefaultClient
	}

	return c.HTTPDoer
}

func (c *Client) retryConfig() *retry.Config {
	if c.RetryConfig == nil {
		return retry.DefaultConfig
	}

	return c.RetryConfig
}

func (c *Client) limiter() limit.Limiter {
	if c.Limiter == nil {
		return limit.Unlimited
	}

	return c.Limiter
}

func (c *Client) handlers() *HandlerGroup {
	if c.Handlers == nil {
		return &emptyHandlers
	}

	return c.Handlers
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}

	return c.Logger
}

func (c *Client) clock() quartz.Clock {
	if c.Clock == nil {
		return quartz.NewReal()
	}

	return c.Clock
}

func (c *Client) retryCountHeader() string {
	if c.RetryCountHeader == "" {
		return DefaultRetryCountHeader
	}

	return c.RetryCountHeader
}

func (c *Client) meters() *metrics {
	c.metricsOnce.Do(func() {
		m, err := newMetrics(c.MeterProvider)
		if err != nil {
			c.logger().Warn("retryx: metrics disabled", "error", err)
			return
		}
		c.metrics = m
	})
	return c.metrics
}

func urlErrorWrap(p *request.Plan, err error) error {
	if ue, ok := err.(*url.Error); ok {
		return ue
	}
	return &url.Error{Op: urlErrorOp(p.Method), URL: p.URL.String(), Err: err}
}

// urlErrorOp matches the Op of errors returned by http.Client.
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
