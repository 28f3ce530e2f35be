// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package reqlog contains Log, the structured execution history of a
logical HTTP request.

A logical request executed by retryx.Client has one Log. Each HTTP
request attempt made on behalf of the logical request gets a child Log,
appended to the parent in the order the attempts were issued:

	e, err := client.Do(p)
	...
	for i, child := range e.Log.Children() {
		entry := child.Entry()
		fmt.Println(i+1, entry.StatusCode, entry.ResponseCause)
	}

A Log is append-only. Its request and response ends are each recorded
exactly once: the first call to EndRequest or EndResponse wins, and any
later call is ignored. Because every property becomes available at most
once, callers can wait for a property with WhenAvailable, or register a
completion callback with OnComplete, without races.
*/
package reqlog
