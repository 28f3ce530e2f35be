// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryAfter returns the delay requested by the Retry-After header in
// h, relative to now, or -1 if there is no usable Retry-After header.
//
// The header value may be either a whole number of seconds or an HTTP
// date. A value which is neither is logged at debug level on logger,
// if logger is non-nil, and ignored.
func RetryAfter(h http.Header, now time.Time, logger *slog.Logger) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return -1
	}
	if secs, err := strconv.ParseInt(v, 10, 32); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return t.Sub(now)
	}
	if logger != nil {
		logger.Debug("ignoring unparsable Retry-After header", slog.String("value", v))
	}
	return -1
}
