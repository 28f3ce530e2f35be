// Copyright 2026 The retryx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout holds the policies which set per-attempt timeouts
// within a plan execution. A retry.Config carries one Policy in its
// AttemptTimeout field.
package timeout
