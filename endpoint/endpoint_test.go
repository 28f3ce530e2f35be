// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package endpoint

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		in   string
		want Endpoint
		err  bool
	}{
		{in: "example.com", want: Endpoint{Host: "example.com"}},
		{in: "example.com:8080", want: Endpoint{Host: "example.com:8080"}},
		{in: "https://example.com", want: Endpoint{Scheme: "https", Host: "example.com"}},
		{in: "http://10.0.0.1:80/", want: Endpoint{Scheme: "http", Host: "10.0.0.1:80"}},
		{in: "", err: true},
		{in: "http://", err: true},
		{in: "http://example.com/path", err: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.in, func(t *testing.T) {
			e, err := Parse(testCase.in)
			if testCase.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.want, e)
		})
	}
}

func TestEndpoint_String(t *testing.T) {
	assert.Equal(t, "foo:81", Endpoint{Host: "foo:81"}.String())
	assert.Equal(t, "https://foo", Endpoint{Scheme: "https", Host: "foo"}.String())
}

func TestEndpoint_Apply(t *testing.T) {
	r, err := http.NewRequest("GET", "http://original.com/path?q=1", nil)
	require.NoError(t, err)
	Endpoint{Host: "replica:8080"}.Apply(r)
	assert.Equal(t, "http://replica:8080/path?q=1", r.URL.String())
	assert.Equal(t, "replica:8080", r.Host)
	Endpoint{Scheme: "https", Host: "secure"}.Apply(r)
	assert.Equal(t, "https://secure/path?q=1", r.URL.String())
}

func TestRoundRobin(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		rr := NewRoundRobin()
		_, err := rr.Select(context.Background(), nil)
		assert.Same(t, ErrNoEndpoint, err)
	})
	t.Run("cycles", func(t *testing.T) {
		a, b := Endpoint{Host: "a"}, Endpoint{Host: "b"}
		rr := NewRoundRobin(a, b)
		var got []Endpoint
		for i := 0; i < 5; i++ {
			e, err := rr.Select(context.Background(), nil)
			require.NoError(t, err)
			got = append(got, e)
		}
		assert.Equal(t, []Endpoint{a, b, a, b, a}, got)
		assert.Equal(t, []Endpoint{a, b}, rr.Endpoints())
	})
	t.Run("concurrent", func(t *testing.T) {
		rr := NewRoundRobin(Endpoint{Host: "a"}, Endpoint{Host: "b"}, Endpoint{Host: "c"})
		var lock sync.Mutex
		counts := map[string]int{}
		var wg sync.WaitGroup
		for i := 0; i < 30; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				e, _ := rr.Select(context.Background(), nil)
				lock.Lock()
				counts[e.Host]++
				lock.Unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, map[string]int{"a": 10, "b": 10, "c": 10}, counts)
	})
}

func TestSelectorFunc(t *testing.T) {
	want := Endpoint{Host: "x"}
	f := SelectorFunc(func(context.Context, *http.Request) (Endpoint, error) {
		return want, nil
	})
	e, err := f.Select(context.Background(), nil)
	assert.NoError(t, err)
	assert.Equal(t, want, e)
}
