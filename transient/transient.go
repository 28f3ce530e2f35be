// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"errors"
	"io"
	"syscall"
)

// A Category is the transience category of an attempt error, as
// reported by Categorize.
//
// The category Not means the error is not transient from the point of
// view of completing an HTTP request attempt: a retry after seeing the
// error is very unlikely to succeed.
//
// Every other category means the error is transient, and that a retry
// after seeing it has some prospect of success. The categories tell
// apart the kinds of transient failure so that retry rules can treat,
// for example, timeouts differently from connection resets.
type Category int

const (
	// Not is the category of nil and of every non-transient error.
	Not Category = iota
	// Timeout is a client-side timeout. The server may be going through
	// a short period of slowness, or the client may succeed on a later
	// attempt by waiting longer.
	//
	// Categorize returns Timeout if err, or any error it wraps, has a
	// Timeout method which reports true.
	Timeout
	// ConnRefused means the remote host refused the connection, and
	// corresponds to the POSIX error code ECONNREFUSED.
	//
	// Refusal may be permanent, but it is classified as transient
	// because services refuse connections while they start or restart.
	// Once startup completes the service listens on its port again.
	//
	// Categorize returns ConnRefused if err is not a Timeout and err, or
	// any error it wraps, equals syscall.ECONNREFUSED.
	ConnRefused
	// ConnReset means the remote host sent an RST packet on an active
	// TCP connection, and corresponds to the POSIX error code
	// ECONNRESET.
	//
	// Resets are common when a service is shut down while it is still
	// responding to requests, and in many setups where the remote host
	// is a load balancer. A reset usually means a retry will succeed.
	//
	// Categorize returns ConnReset if err is not a Timeout and err, or
	// any error it wraps, equals syscall.ECONNRESET.
	ConnReset
	// ConnAborted means the local network stack aborted the connection,
	// and corresponds to the POSIX error code ECONNABORTED. It is
	// typical of keep-alive connections torn down by a middlebox.
	//
	// Categorize returns ConnAborted if err is not a Timeout and err, or
	// any error it wraps, equals syscall.ECONNABORTED.
	ConnAborted
	// UnexpectedEOF means the connection closed before the response was
	// complete, for example because the server crashed mid-response.
	//
	// Categorize returns UnexpectedEOF if err falls in none of the
	// categories above and err, or any error it wraps, is
	// io.ErrUnexpectedEOF.
	UnexpectedEOF
)

var categoryNames = [...]string{
	Not:           "Not",
	Timeout:       "Timeout",
	ConnRefused:   "ConnRefused",
	ConnReset:     "ConnReset",
	ConnAborted:   "ConnAborted",
	UnexpectedEOF: "UnexpectedEOF",
}

func (c Category) String() string {
	return categoryNames[c]
}

var errnoCategories = map[syscall.Errno]Category{
	syscall.ECONNREFUSED: ConnRefused,
	syscall.ECONNRESET:   ConnReset,
	syscall.ECONNABORTED: ConnAborted,
}

// Categorize returns the transience category of err. Every non-nil
// transient error results in a category other than Not. A nil error,
// and an error which is not transient from the point of view of
// completing an HTTP request attempt, both produce Not.
//
// Categorize looks at the whole chain of errors wrapped by err, not
// just err itself. When several categories match, the result follows
// this order of precedence:
//
// • Timeout;
//
// • ConnRefused, ConnReset and ConnAborted;
//
// • UnexpectedEOF.
//
// Categorize never calls Temporary methods, whose meaning is not
// clearly defined.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}
	var t interface{ Timeout() bool }
	if errors.As(err, &t) && t.Timeout() {
		return Timeout
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		if c, ok := errnoCategories[errno]; ok {
			return c
		}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return UnexpectedEOF
	}
	return Not
}
