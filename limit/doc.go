// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package limit provides retry limiters, which give the retrying HTTP
client (retryx.Client) a last word on whether a retry requested by the
retry rule actually goes ahead.

A limiter is consulted once for every decision the rule produces,
whether or not the decision asks for a retry, so that limiters which
keep score, such as TokenBucket and Breaker, see successes as well as
failures. The decision's permits tell the limiter what the retry costs:

	retry.Retry(b)                   // free: permits 0
	retry.RetryWithPermits(b, 1)     // costs one permit
	retry.NoRetryWithPermits(-1)     // a success: gives one back

The context passed to a limiter carries the log of the logical request
(see reqlog.FromContext), not the log of a single attempt. ActiveRequest
therefore counts retries of logical requests which are still in flight,
and holds each count until the whole logical request completes rather
than until the retried attempt does.

A limiter which rejects a retry does not fail the request. The client
simply ends the plan execution with the outcome of the last attempt.

Every limiter in this package is safe for concurrent use, and is meant
to be shared by all the requests of one client, or of several clients
talking to the same service.
*/
package limit
