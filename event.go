// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryx

// An Event is a point in a plan execution at which the Client runs the
// Handler chain installed for it. Events are listed below in the order
// they occur.
type Event int

const (
	// BeforeExecutionStart fires first, when only the execution's Plan
	// is set.
	BeforeExecutionStart Event = iota

	// BeforeAttempt fires before each attempt's request is sent. The
	// execution's Attempt and Request are the new attempt and the
	// request about to be sent, already pointed at the attempt's
	// endpoint and carrying the retry count header.
	//
	// Handlers may modify or replace Request. Each attempt has its own
	// copy of the plan's URL and Header, so changes do not carry over
	// to later attempts.
	BeforeAttempt

	// BeforeReadBody fires when an attempt receives a response, of any
	// status code, before the body is read. For streamed plans only a
	// prefix may be read later, and only if the retry rule needs
	// content. It does not fire for attempts which end in error.
	BeforeReadBody

	// AfterAttemptTimeout fires when an attempt ends because its own
	// timeout expired, after the execution's AttemptTimeouts has been
	// incremented. Timeouts of the whole plan do not fire it.
	AfterAttemptTimeout

	// AfterAttempt fires after every attempt, before the retry rule is
	// consulted. At least one of the execution's Response and Err is
	// set. Both are set when reading the response body failed.
	AfterAttempt

	// BeforeBackoff fires when a retry was decided and allowed by the
	// limiter, before waiting out the backoff delay. The execution's
	// Attempt is still the discarded attempt, whose body has been
	// closed.
	BeforeBackoff

	// AfterPlanTimeout fires when the whole plan times out, either on
	// its context deadline or on the retry configuration's timeout. It
	// always follows the last AfterAttempt.
	AfterPlanTimeout

	// AfterExecutionEnd fires last, once the execution's End is set.
	AfterExecutionEnd

	eventSentinel
	numEvents = int(eventSentinel)
)

var eventNames = [numEvents]string{
	BeforeExecutionStart: "BeforeExecutionStart",
	BeforeAttempt:        "BeforeAttempt",
	BeforeReadBody:       "BeforeReadBody",
	AfterAttemptTimeout:  "AfterAttemptTimeout",
	AfterAttempt:         "AfterAttempt",
	BeforeBackoff:        "BeforeBackoff",
	AfterPlanTimeout:     "AfterPlanTimeout",
	AfterExecutionEnd:    "AfterExecutionEnd",
}

// Events returns every Event in the order of occurrence.
func Events() []Event {
	events := make([]Event, numEvents)
	for i := range events {
		events[i] = Event(i)
	}
	return events
}

// Name returns the name of the event.
func (evt Event) Name() string {
	return eventNames[evt]
}

func (evt Event) String() string {
	return evt.Name()
}
