// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewPlanWithContext(t *testing.T) {
	type ctxKey struct{}
	contexts := map[string]context.Context{
		"background": context.Background(),
		"custom":     context.WithValue(context.Background(), ctxKey{}, "plan"),
	}
	testCases := []struct {
		name       string
		method     string
		url        string
		body       func(t *testing.T) any
		wantMethod string
		wantHost   string
		wantBody   []byte
		wantErr    string
	}{
		{name: "empty method means GET", url: "https://foo.com", wantMethod: "GET", wantHost: "foo.com"},
		{name: "extension method", method: "PURGE", url: "http://cache", wantMethod: "PURGE", wantHost: "cache"},
		{name: "empty port removed", method: "GET", url: "http://ham:", wantMethod: "GET", wantHost: "ham"},
		{name: "IPv6 host kept", method: "GET", url: "http://[::1]:80", wantMethod: "GET", wantHost: "[::1]:80"},
		{
			name: "string body", method: "POST", url: "/a",
			body:       func(*testing.T) any { return "str" },
			wantMethod: "POST", wantBody: []byte("str"),
		},
		{
			name: "reader body", method: "PUT", url: "/b",
			body:       func(*testing.T) any { return strings.NewReader("reader") },
			wantMethod: "PUT", wantBody: []byte("reader"),
		},
		{
			name: "read closer body", method: "PATCH", url: "/c",
			body:       func(*testing.T) any { return io.NopCloser(strings.NewReader("closer")) },
			wantMethod: "PATCH", wantBody: []byte("closer"),
		},
		{name: "invalid method", method: "GE T", url: "/d", wantErr: `retryx/request: invalid method "GE T"`},
		{name: "invalid URL", url: ":::", wantErr: `parse ":::": missing protocol scheme`},
		{
			name: "invalid body type", url: "/e",
			body:    func(*testing.T) any { return 42 },
			wantErr: badBodyTypeMsg,
		},
		{
			name: "body read error", url: "/f",
			body: func(t *testing.T) any {
				m := &mockReadCloser{}
				m.Test(t)
				m.On("Read", mock.AnythingOfType("[]uint8")).Return(0, errors.New("unreadable")).Once()
				return m
			},
			wantErr: "unreadable",
		},
	}
	for ctxName, ctx := range contexts {
		for _, testCase := range testCases {
			t.Run(ctxName+"/"+testCase.name, func(t *testing.T) {
				var body any
				if testCase.body != nil {
					body = testCase.body(t)
				}
				p, err := NewPlanWithContext(ctx, testCase.method, testCase.url, body)
				if testCase.wantErr != "" {
					assert.Nil(t, p)
					assert.EqualError(t, err, testCase.wantErr)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, testCase.wantMethod, p.Method)
				assert.Equal(t, testCase.wantHost, p.Host)
				assert.Equal(t, testCase.wantHost, p.URL.Host)
				assert.Equal(t, testCase.wantBody, p.Body)
				assert.NotNil(t, p.Header)
				assert.Equal(t, ctx, p.Context())
			})
		}
	}
	t.Run("nil context", func(t *testing.T) {
		p, err := NewPlanWithContext(nil, "GET", "/", nil)
		assert.Nil(t, p)
		assert.EqualError(t, err, nilCtxMsg)
	})
	t.Run("NewPlan", func(t *testing.T) {
		p, err := NewPlan("DELETE", "http://stuff/1", nil)
		require.NoError(t, err)
		assert.Equal(t, context.Background(), p.Context())
		assert.Equal(t, context.Background(), (&Plan{}).Context())
	})
}

func TestPlan_AddCookie(t *testing.T) {
	// The plan's Cookie header must match what http.Request produces.
	p, err := NewPlan("", "cookietown", nil)
	require.NoError(t, err)
	r, err := http.NewRequest("", "cookietown", nil)
	require.NoError(t, err)
	cookies := []*http.Cookie{
		{Name: "foo", Value: "bar"},
		{Name: "foo", Value: "baz"},
		{Name: "ham", Value: "eggs", Path: "a/b", Domain: "seuss.py", MaxAge: 10, Secure: true, Expires: time.Now().Add(time.Hour)},
	}
	for _, c := range cookies {
		p.AddCookie(c)
		r.AddCookie(c)
		assert.Equal(t, r.Header["Cookie"], p.Header["Cookie"])
	}
	assert.Equal(t, "foo=bar; foo=baz; ham=eggs", p.Header.Get("Cookie"))
}

func TestPlan_SetBasicAuth(t *testing.T) {
	p, err := NewPlan("", "http://secure", nil)
	require.NoError(t, err)
	r, err := http.NewRequest("", "http://secure", nil)
	require.NoError(t, err)
	for _, creds := range [][2]string{{"", ""}, {"patsy", "password"}} {
		p.SetBasicAuth(creds[0], creds[1])
		r.SetBasicAuth(creds[0], creds[1])
		assert.Equal(t, r.Header["Authorization"], p.Header["Authorization"])
	}
	assert.Equal(t, "Basic cGF0c3k6cGFzc3dvcmQ=", p.Header.Get("Authorization"))
}

func TestPlan_ToRequest(t *testing.T) {
	t.Run("fields", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p, err := NewPlan("HEAD", "http://example.com/x", nil)
		require.NoError(t, err)
		p.Close = true
		p.TransferEncoding = []string{"chunked"}
		p.Host = "override"
		r := p.ToRequest(ctx)
		assert.Equal(t, "HEAD", r.Method)
		assert.Same(t, p.URL, r.URL)
		assert.Equal(t, p.Header, r.Header)
		assert.True(t, r.Close)
		assert.Equal(t, []string{"chunked"}, r.TransferEncoding)
		assert.Equal(t, "override", r.Host)
		assert.Equal(t, "HTTP/1.1", r.Proto)
		assert.Same(t, ctx, r.Context())
	})
	t.Run("blank method kept", func(t *testing.T) {
		p, err := NewPlan("", "test", nil)
		require.NoError(t, err)
		p.Method = ""
		assert.Equal(t, "", p.ToRequest(context.Background()).Method)
	})
	for _, body := range []any{nil, "", []byte{}, strings.NewReader("")} {
		p, err := NewPlan("DELETE", "test", body)
		require.NoError(t, err)
		r := p.ToRequest(context.Background())
		assert.Nil(t, r.Body)
		assert.Nil(t, r.GetBody)
		assert.Zero(t, r.ContentLength)
	}
	t.Run("body", func(t *testing.T) {
		p, err := NewPlan("POST", "test", "foo")
		require.NoError(t, err)
		r := p.ToRequest(context.Background())
		assert.Equal(t, int64(3), r.ContentLength)
		for i := 0; i < 2; i++ {
			b, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.Equal(t, "foo", string(b))
			r.Body, err = r.GetBody()
			require.NoError(t, err)
		}
	})
}

func TestPlan_WithContext(t *testing.T) {
	p, err := NewPlan("PATCH", "test", "body")
	require.NoError(t, err)
	assert.PanicsWithValue(t, nilCtxMsg, func() {
		p.WithContext(nil)
	})

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, 1)
	q := p.WithContext(ctx)
	assert.NotSame(t, p, q)
	assert.Equal(t, context.Background(), p.Context())
	assert.Same(t, ctx, q.Context())
	assert.Same(t, &p.Body[0], &q.Body[0])
	q.ctx = p.ctx
	assert.Equal(t, p, q)
}
