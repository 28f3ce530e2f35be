// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want Category
	}{
		{"nil", nil, Not},
		{"plain", errors.New("foo"), Not},
		{"EOF", io.EOF, Not},
		{"canceled", context.Canceled, Not},
		{"other errno", syscall.EPIPE, Not},
		{"wrapped plain", fmt.Errorf("x: %w", errors.New("bar")), Not},
		{"ETIMEDOUT", syscall.ETIMEDOUT, Timeout},
		{"deadline", context.DeadlineExceeded, Timeout},
		{"timeout method", timeoutErr{true, nil}, Timeout},
		{"timeout false", timeoutErr{false, nil}, Not},
		{"url timeout", &url.Error{Op: "Get", URL: "u", Err: syscall.ETIMEDOUT}, Timeout},
		{"timeout beats reset", timeoutErr{true, syscall.ECONNRESET}, Timeout},
		{"timeout beats EOF", timeoutErr{true, io.ErrUnexpectedEOF}, Timeout},
		{"refused", syscall.ECONNREFUSED, ConnRefused},
		{"wrapped refused", &url.Error{Op: "Get", URL: "u", Err: timeoutErr{false, syscall.ECONNREFUSED}}, ConnRefused},
		{"reset", syscall.ECONNRESET, ConnReset},
		{"wrapped reset", fmt.Errorf("read: %w", syscall.ECONNRESET), ConnReset},
		{"aborted", syscall.ECONNABORTED, ConnAborted},
		{"unexpected EOF", io.ErrUnexpectedEOF, UnexpectedEOF},
		{"wrapped unexpected EOF", fmt.Errorf("reading body: %w", io.ErrUnexpectedEOF), UnexpectedEOF},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.want, Categorize(testCase.err))
		})
	}
}

func TestCategory_String(t *testing.T) {
	names := map[Category]string{
		Not:           "Not",
		Timeout:       "Timeout",
		ConnRefused:   "ConnRefused",
		ConnReset:     "ConnReset",
		ConnAborted:   "ConnAborted",
		UnexpectedEOF: "UnexpectedEOF",
	}
	for c, name := range names {
		assert.Equal(t, name, c.String())
	}
}

type timeoutErr struct {
	timeout bool
	cause   error
}

func (err timeoutErr) Error() string { return fmt.Sprintf("timeout=%t: %v", err.timeout, err.cause) }

func (err timeoutErr) Timeout() bool { return err.timeout }

func (err timeoutErr) Unwrap() error { return err.cause }
