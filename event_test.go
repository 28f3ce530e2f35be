// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvents(t *testing.T) {
	assert.Equal(t, []Event{
		BeforeExecutionStart,
		BeforeAttempt,
		BeforeReadBody,
		AfterAttemptTimeout,
		AfterAttempt,
		BeforeBackoff,
		AfterPlanTimeout,
		AfterExecutionEnd,
	}, Events())
}

func TestEvent_Name(t *testing.T) {
	testCases := map[Event]string{
		BeforeExecutionStart: "BeforeExecutionStart",
		BeforeAttempt:        "BeforeAttempt",
		BeforeReadBody:       "BeforeReadBody",
		AfterAttemptTimeout:  "AfterAttemptTimeout",
		AfterAttempt:         "AfterAttempt",
		BeforeBackoff:        "BeforeBackoff",
		AfterPlanTimeout:     "AfterPlanTimeout",
		AfterExecutionEnd:    "AfterExecutionEnd",
	}
	assert.Len(t, testCases, numEvents)
	for evt, name := range testCases {
		assert.Equal(t, name, evt.Name())
		assert.Equal(t, name, evt.String())
	}
}
