// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retryx

import (
	"github.com/gogama/retryx/request"
)

// A Handler is called when an Event occurs during a plan execution.
// Handlers run synchronously on the goroutine executing the plan.
type Handler interface {
	Handle(Event, *request.Execution)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(Event, *request.Execution)

// Handle calls f(evt, e).
func (f HandlerFunc) Handle(evt Event, e *request.Execution) {
	f(evt, e)
}

// A HandlerGroup holds one chain of handlers per Event. The zero value
// is an empty group ready to use. A group must not be modified while a
// Client using it is executing plans.
type HandlerGroup struct {
	chains [numEvents][]Handler
}

// PushBack appends h to the chain for evt. Handlers in a chain run in
// the order they were pushed.
func (g *HandlerGroup) PushBack(evt Event, h Handler) {
	if h == nil {
		panic("retryx: nil handler")
	}
	if evt < 0 || evt >= eventSentinel {
		panic("retryx: invalid event")
	}
	g.chains[evt] = append(g.chains[evt], h)
}

// Len returns the number of handlers in the chain for evt.
func (g *HandlerGroup) Len(evt Event) int {
	if evt < 0 || evt >= eventSentinel {
		return 0
	}
	return len(g.chains[evt])
}

func (g *HandlerGroup) run(evt Event, e *request.Execution) {
	for _, h := range g.chains[evt] {
		h.Handle(evt, e)
	}
}
