// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryx

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptrace"
	"strconv"
	"time"

	"github.com/gogama/retryx/reqlog"
	"github.com/gogama/retryx/request"
)

// execute makes the next attempt, with timeout t (zero meaning no
// individual timeout), and returns it in the completed state. The
// attempt's log is ended, except when the response is streamed, in
// which case the log ends with the response body.
func (o *orchestrator) execute(t time.Duration) *request.Attempt {
	e := o.exec
	e.Attempts++
	a := request.NewAttempt(o.ctx, e.Attempts, e.Log.NewChild(), t)
	e.Attempt = a
	e.Request = nil
	e.Response = nil
	e.Err = nil
	e.Body = nil

	var override http.Header
	if a.Number > 1 {
		override = make(http.Header, 1)
		override.Set(o.retryCountHeader, strconv.Itoa(a.Number-1))
	}
	req, err := o.dup.Duplicate(a.Context(), override)
	if err != nil {
		o.fail(a, err)
		return a
	}
	if o.selector != nil {
		ep, err := o.selector.Select(a.Context(), req)
		if err != nil {
			a.Request = req
			o.fail(a, err)
			return a
		}
		ep.Apply(req)
		a.Endpoint = ep.String()
	}
	trace := &httptrace.ClientTrace{
		WroteHeaders: a.Log.RequestFirstBytesTransferred,
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	e.Request = req
	o.handlers.run(BeforeAttempt, e)
	req = e.Request
	a.Request = req
	e.Log.StartRequest(req, "")
	a.Log.StartRequest(req, a.ID.String())

	a.Execute()
	resp, err := o.doer.Do(req)
	a.Complete()
	if err != nil {
		o.fail(a, err)
		return a
	}

	a.Response = resp
	e.Response = resp
	a.Log.EndRequest(nil)
	a.Log.ResponseHeaders(resp.StatusCode, resp.Header)
	o.handlers.run(BeforeReadBody, e)
	if !o.plan.StreamResponse || o.cfg.RequiresTrailers {
		o.readBody(a)
	} else {
		o.streamBody(a)
	}
	o.afterAttempt(a)
	return a
}

// readBody reads the whole response body of a into memory, and ends
// the attempt log.
func (o *orchestrator) readBody(a *request.Attempt) {
	resp := a.Response
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		o.setErr(a, err)
		a.Log.EndResponse(err)
		return
	}
	a.Body = body
	o.exec.Body = body
	if o.cfg.NeedsContent() {
		a.Content = body[:min(len(body), o.cfg.MaxContentLength())]
	}
	a.Log.ResponseTrailers(resp.Trailer)
	a.Log.EndResponse(nil)
}

// streamBody prepares the response body of a to be streamed to the
// caller. If the retry rule needs content, a prefix of the body is read
// first and spliced back in front of the rest.
func (o *orchestrator) streamBody(a *request.Attempt) {
	resp := a.Response
	var prefix []byte
	if o.cfg.NeedsContent() {
		var err error
		prefix, err = io.ReadAll(io.LimitReader(resp.Body, int64(o.cfg.MaxContentLength())))
		a.Content = prefix
		if err != nil {
			_ = resp.Body.Close()
			resp.Body = io.NopCloser(bytes.NewReader(prefix))
			o.setErr(a, err)
			a.Log.EndResponse(err)
			return
		}
	}
	resp.Body = &streamedBody{
		r:    io.MultiReader(bytes.NewReader(prefix), resp.Body),
		c:    resp.Body,
		resp: resp,
		log:  a.Log,
	}
}

// fail records err as the outcome of a, which got no response.
func (o *orchestrator) fail(a *request.Attempt, err error) {
	o.setErr(a, err)
	a.Log.EndRequest(err)
	a.Log.EndResponse(err)
	o.afterAttempt(a)
}

func (o *orchestrator) setErr(a *request.Attempt, err error) {
	a.Err = urlErrorWrap(o.plan, err)
	o.exec.Err = a.Err
}

func (o *orchestrator) afterAttempt(a *request.Attempt) {
	e := o.exec
	outcome := outcomeResponse
	if e.Err != nil {
		outcome = outcomeError
	}
	if e.Timeout() {
		outcome = outcomeTimeout
		if o.ctx.Err() == nil {
			e.AttemptTimeouts++
			o.handlers.run(AfterAttemptTimeout, e)
		}
	}
	o.handlers.run(AfterAttempt, e)
	o.metrics.attempt(o.ctx, outcome)
}

// A streamedBody is the body of a streamed response. It ends the
// response in the attempt log once it is read to the end, fails, or is
// closed.
type streamedBody struct {
	r    io.Reader
	c    io.Closer
	resp *http.Response
	log  *reqlog.Log
}

func (b *streamedBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err == io.EOF {
		b.log.ResponseTrailers(b.resp.Trailer)
		b.log.EndResponse(nil)
	} else if err != nil {
		b.log.EndResponse(err)
	}
	return n, err
}

func (b *streamedBody) Close() error {
	err := b.c.Close()
	b.log.EndResponse(nil)
	return err
}
