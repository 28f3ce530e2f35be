// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gogama/retryx/limit"
	"github.com/gogama/retryx/reqlog"
	"github.com/gogama/retryx/request"
	"github.com/gogama/retryx/retry"
	"github.com/gogama/retryx/timeout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Do(t *testing.T) {
	for _, server := range servers {
		t.Run(server.name, func(t *testing.T) {
			t.Run("success", func(t *testing.T) {
				cl := &Client{HTTPDoer: server.Client()}
				p := serverScript{{StatusCode: 200, Body: body("hello")}}.toPlan(context.Background(), "POST", server)
				e, err := cl.Do(p)
				require.NoError(t, err)
				assert.Equal(t, 200, e.StatusCode())
				assert.Equal(t, "hello", string(e.Body))
				assert.Equal(t, 1, e.Attempts)
				assert.Equal(t, 0, e.AttemptTimeouts)
				assert.True(t, e.Ended())
				assert.Empty(t, e.Request.Header.Get(DefaultRetryCountHeader))
				assert.True(t, e.Log.IsComplete())
				assert.Len(t, e.Log.Children(), 1)
				assert.Equal(t, request.AttemptCommitted, e.Attempt.State())
			})
			t.Run("retries until success", func(t *testing.T) {
				handlers, events := recordEvents()
				cl := &Client{
					HTTPDoer:    server.Client(),
					RetryConfig: retry.NewConfig(retry.When(retry.StatusCode(503), retry.Retry(retry.NoDelay))),
					Handlers:    handlers,
				}
				script := serverScript{
					{StatusCode: 503, Body: body("busy")},
					{StatusCode: 503, Body: body("still busy")},
					{StatusCode: 200, Body: body("done")},
				}
				e, err := cl.Do(script.toPlan(context.Background(), "POST", server))
				require.NoError(t, err)
				assert.Equal(t, 200, e.StatusCode())
				assert.Equal(t, "done", string(e.Body))
				assert.Equal(t, "3", e.Header().Get("X-Served-Attempt"))
				assert.Equal(t, "2", e.Request.Header.Get(DefaultRetryCountHeader))
				assert.Equal(t, 3, e.Attempts)
				children := e.Log.Children()
				require.Len(t, children, 3)
				for _, child := range children[:2] {
					entry := child.Entry()
					assert.Equal(t, 503, entry.StatusCode)
					assert.NoError(t, entry.ResponseCause)
					assert.True(t, child.IsAvailable(reqlog.ResponseContent))
					assert.Nil(t, entry.Content)
				}
				last := children[2].Entry()
				assert.Equal(t, 200, last.StatusCode)
				assert.NoError(t, last.ResponseCause)
				assert.Equal(t, []byte("done"), last.Content)
				logical := e.Log.Entry()
				assert.Equal(t, 200, logical.StatusCode)
				assert.Equal(t, []byte("done"), logical.Content)
				assert.Equal(t, []string{
					"BeforeExecutionStart",
					"BeforeAttempt", "BeforeReadBody", "AfterAttempt", "BeforeBackoff",
					"BeforeAttempt", "BeforeReadBody", "AfterAttempt", "BeforeBackoff",
					"BeforeAttempt", "BeforeReadBody", "AfterAttempt",
					"AfterExecutionEnd",
				}, *events)
			})
			t.Run("max attempts commits last response", func(t *testing.T) {
				cfg := retry.NewConfig(retry.When(retry.StatusCode(503), retry.Retry(retry.NoDelay)))
				cfg.MaxTotalAttempts = 3
				cl := &Client{HTTPDoer: server.Client(), RetryConfig: cfg}
				e, err := cl.Do(serverScript{{StatusCode: 503, Body: body("busy")}}.toPlan(context.Background(), "POST", server))
				require.NoError(t, err)
				assert.Equal(t, 503, e.StatusCode())
				assert.Equal(t, "busy", string(e.Body))
				assert.Equal(t, 3, e.Attempts)
			})
			t.Run("attempt timeout", func(t *testing.T) {
				cfg := retry.NewConfig(retry.When(retry.TransientErr, retry.Retry(retry.NoDelay)))
				cfg.AttemptTimeout = timeout.Adaptive(50*time.Millisecond, time.Second)
				handlers, events := recordEvents()
				cl := &Client{HTTPDoer: server.Client(), RetryConfig: cfg, Handlers: handlers}
				script := serverScript{
					{HeaderPause: 250 * time.Millisecond, StatusCode: 200},
					{StatusCode: 200, Body: body("fast")},
				}
				e, err := cl.Do(script.toPlan(context.Background(), "POST", server))
				require.NoError(t, err)
				assert.Equal(t, "fast", string(e.Body))
				assert.Equal(t, 2, e.Attempts)
				assert.Equal(t, 1, e.AttemptTimeouts)
				assert.Equal(t, time.Second, e.Attempt.Timeout)
				assert.Contains(t, *events, "AfterAttemptTimeout")
				assert.NotContains(t, *events, "AfterPlanTimeout")
			})
			t.Run("plan timeout", func(t *testing.T) {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()
				cfg := retry.NewConfig(retry.When(retry.TransientErr, retry.Retry(retry.NewFixedBackoff(10*time.Millisecond))))
				handlers, events := recordEvents()
				cl := &Client{HTTPDoer: server.Client(), RetryConfig: cfg, Handlers: handlers}
				script := serverScript{{HeaderPause: 300 * time.Millisecond, StatusCode: 200}}
				e, err := cl.Do(script.toPlan(ctx, "POST", server))
				require.Error(t, err)
				var urlErr *url.Error
				require.ErrorAs(t, err, &urlErr)
				assert.True(t, urlErr.Timeout())
				assert.True(t, e.Timeout())
				assert.Same(t, err, e.Err)
				assert.Nil(t, e.Response)
				assert.Equal(t, 0, e.AttemptTimeouts)
				assert.Contains(t, *events, "AfterPlanTimeout")
				assert.True(t, e.Log.IsComplete())
			})
			t.Run("streamed response", func(t *testing.T) {
				cl := &Client{HTTPDoer: server.Client()}
				script := serverScript{{StatusCode: 200, Body: []bodyChunk{
					{Data: []byte("chunk1,")},
					{Pause: 20 * time.Millisecond, Data: []byte("chunk2")},
				}}}
				p := script.toPlan(context.Background(), "POST", server)
				p.StreamResponse = true
				e, err := cl.Do(p)
				require.NoError(t, err)
				assert.Nil(t, e.Body)
				assert.False(t, e.Log.IsComplete())
				b, err := io.ReadAll(e.Response.Body)
				require.NoError(t, err)
				assert.Equal(t, "chunk1,chunk2", string(b))
				require.NoError(t, e.Response.Body.Close())
				<-e.Log.WhenComplete()
				assert.NoError(t, e.Log.Entry().ResponseCause)
			})
			t.Run("trailers required", func(t *testing.T) {
				cfg := retry.NewConfig(retry.RuleFunc(func(_ context.Context, a *request.Attempt, _ error) (retry.Decision, error) {
					if a.Response != nil && a.Response.Trailer.Get("X-Status") == "retry" {
						return retry.Retry(retry.NoDelay), nil
					}
					return retry.NoRetry(), nil
				}))
				cfg.RequiresTrailers = true
				cl := &Client{HTTPDoer: server.Client(), RetryConfig: cfg}
				script := serverScript{
					{StatusCode: 200, Body: body("partial"), Trailer: map[string]string{"X-Status": "retry"}},
					{StatusCode: 200, Body: body("whole"), Trailer: map[string]string{"X-Status": "ok"}},
				}
				p := script.toPlan(context.Background(), "POST", server)
				p.StreamResponse = true
				e, err := cl.Do(p)
				require.NoError(t, err)
				assert.Equal(t, 2, e.Attempts)
				assert.Equal(t, "whole", string(e.Body))
				b, err := io.ReadAll(e.Response.Body)
				require.NoError(t, err)
				assert.Equal(t, "whole", string(b))
				assert.Equal(t, "ok", e.Log.Entry().Trailer.Get("X-Status"))
			})
			t.Run("token bucket stops retries", func(t *testing.T) {
				cl := &Client{
					HTTPDoer:    server.Client(),
					RetryConfig: retry.NewConfig(retry.When(retry.StatusCode(503), retry.RetryWithPermits(retry.NoDelay, 1))),
					Limiter:     limit.NewTokenBucket(3, 1, 1),
				}
				e, err := cl.Do(serverScript{{StatusCode: 503}}.toPlan(context.Background(), "POST", server))
				require.NoError(t, err)
				assert.Equal(t, 503, e.StatusCode())
				assert.Equal(t, 2, e.Attempts)
			})
		})
	}
}

func TestClient_Go(t *testing.T) {
	cl := &Client{
		HTTPDoer:    httpServer.Client(),
		RetryConfig: retry.NewConfig(retry.When(retry.StatusCode(500), retry.Retry(retry.NoDelay))),
	}
	script := serverScript{{StatusCode: 500}, {StatusCode: 204}}
	call := cl.Go(script.toPlan(context.Background(), "POST", httpServer))
	select {
	case <-call.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("call did not resolve")
	}
	e, err := call.Wait()
	require.NoError(t, err)
	assert.Equal(t, 204, e.StatusCode())
	assert.Equal(t, 2, e.Attempts)
	call.Abort(nil)
	e2, err2 := call.Wait()
	assert.Same(t, e, e2)
	assert.NoError(t, err2)
}

func TestClient_Concurrent(t *testing.T) {
	cl := &Client{
		HTTPDoer:    httpServer.Client(),
		RetryConfig: retry.NewConfig(retry.When(retry.StatusCode(503), retry.RetryWithPermits(retry.NoDelay, 1))),
		Limiter:     limit.NewActiveRequest(100),
	}
	script := serverScript{{StatusCode: 503}, {StatusCode: 200, Body: body("ok")}}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := cl.Do(script.toPlan(context.Background(), "POST", httpServer))
			assert.NoError(t, err)
			assert.Equal(t, "ok", string(e.Body))
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, cl.Limiter.(*limit.ActiveRequest).Active())
}

func TestClient_Helpers(t *testing.T) {
	cl := &Client{HTTPDoer: httpServer.Client()}
	t.Run("Get", func(t *testing.T) {
		e, err := cl.Get(httpServer.URL)
		require.NoError(t, err)
		assert.Equal(t, 400, e.StatusCode())
	})
	t.Run("Head", func(t *testing.T) {
		e, err := cl.Head(httpServer.URL)
		require.NoError(t, err)
		assert.Equal(t, 400, e.StatusCode())
	})
	t.Run("Post", func(t *testing.T) {
		e, err := cl.Post(httpServer.URL, "application/json", `[{"StatusCode":201}]`)
		require.NoError(t, err)
		assert.Equal(t, 201, e.StatusCode())
	})
	t.Run("PostForm", func(t *testing.T) {
		e, err := cl.PostForm(httpServer.URL, url.Values{"a": {"b"}})
		require.NoError(t, err)
		assert.Equal(t, 400, e.StatusCode())
	})
	t.Run("CloseIdleConnections", func(t *testing.T) {
		cl.CloseIdleConnections()
		(&Client{HTTPDoer: doerFunc(nil)}).CloseIdleConnections()
	})
}

func TestClient_Defaults(t *testing.T) {
	var cl Client
	assert.Same(t, http.DefaultClient, cl.doer())
	assert.Same(t, retry.DefaultConfig, cl.retryConfig())
	assert.Same(t, &emptyHandlers, cl.handlers())
	assert.NotNil(t, cl.logger())
	assert.NotNil(t, cl.clock())
	assert.Equal(t, DefaultRetryCountHeader, cl.retryCountHeader())
	assert.True(t, cl.limiter().ShouldRetry(context.Background(), retry.RetryWithPermits(retry.NoDelay, 1)))
	assert.Nil(t, cl.meters())
}

func TestClient_Do_Panics(t *testing.T) {
	t.Run("nil plan", func(t *testing.T) {
		assert.PanicsWithValue(t, "retryx: nil plan", func() {
			_, _ = (&Client{}).Do(nil)
		})
	})
	t.Run("invalid retry count header", func(t *testing.T) {
		p, err := request.NewPlan("GET", "http://example.com", nil)
		require.NoError(t, err)
		assert.PanicsWithValue(t, "retryx: invalid retry count header name Bad Header", func() {
			_, _ = (&Client{RetryCountHeader: "Bad Header"}).Do(p)
		})
	})
}

func TestUrlErrorWrap(t *testing.T) {
	p, err := request.NewPlan("", "http://example.com/x", nil)
	require.NoError(t, err)
	cause := errors.New("boom")
	wrapped := urlErrorWrap(p, cause)
	var urlErr *url.Error
	require.ErrorAs(t, wrapped, &urlErr)
	assert.Equal(t, "Get", urlErr.Op)
	assert.Equal(t, "http://example.com/x", urlErr.URL)
	assert.Same(t, cause, urlErr.Err)
	assert.Same(t, wrapped, urlErrorWrap(p, wrapped))
	assert.Equal(t, "Patch", urlErrorOp("PATCH"))
}

func recordEvents() (*HandlerGroup, *[]string) {
	var lock sync.Mutex
	events := &[]string{}
	g := &HandlerGroup{}
	for _, evt := range Events() {
		g.PushBack(evt, HandlerFunc(func(evt Event, _ *request.Execution) {
			lock.Lock()
			defer lock.Unlock()
			*events = append(*events, evt.Name())
		}))
	}
	return g, events
}
