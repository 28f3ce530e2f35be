// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient tells transient attempt errors, the ones worth
// retrying, apart from the rest.
//
// The client uses Categorize to recognize timeouts and to label attempt
// outcomes in its metrics, and retry.TransientErr retries every error
// Categorize does not place in Not.
//
// The package imports nothing but the standard library.
package transient
