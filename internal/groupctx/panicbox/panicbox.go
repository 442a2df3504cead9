// Copyright 2026 The taskgroupctx Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package panicbox transports one captured task failure per task-group
// context.
//
// When user code inside a task panics, the worker recovers the payload at
// the task boundary and boxes it here. The box travels with the context
// until a joining thread re-raises it with Rethrow, so the failure
// surfaces on the thread that waits for the group rather than the thread
// that ran the task.
//
// A recovered payload is an untyped value and, once re-panicked, would
// normally lose the stack of the original failure. Allocate therefore
// normalizes every payload to an error carrying the capture-site stack
// (bare values become a new error, every error is wrapped with the
// capture-site stack). Rethrow panics with that normalized error.
package panicbox

import (
	"github.com/cockroachdb/errors"
)

// Box holds a single captured failure. At most one Box is attached to a
// context at a time; the context owns it and destroys it.
type Box struct {
	err error
}

// poisonedErr marks a destroyed box. Any use after Destroy trips an
// assertion instead of silently re-raising garbage.
var poisonedErr = errors.AssertionFailedf("panicbox: use after destroy")

// Allocate boxes the failure value recovered at a task boundary.
//
// v is the result of recover(). A nil v means no failure is in flight and
// Allocate returns nil — the caller proceeds with an empty exception slot:
// the group is still cancelled, only the payload is absent.
func Allocate(v any) *Box {
	if v == nil {
		return nil
	}
	var err error
	switch p := v.(type) {
	case error:
		// Attach a stack pointing at the recover site, skipping the
		// Allocate frame itself.
		err = errors.WithStackDepth(p, 1)
	default:
		err = errors.NewWithDepthf(1, "task panicked: %v", p)
	}
	return &Box{err: err}
}

// Err returns the normalized failure. Diagnostic use only; the runtime
// itself only ever calls Rethrow.
func (b *Box) Err() error {
	return b.err
}

// Rethrow re-raises the captured failure on the calling thread. A
// destroyed box re-raises the poison assertion instead of a freed payload.
func (b *Box) Rethrow() {
	panic(b.err)
}

// Destroy releases the box. The payload is poisoned so that a stale
// reference fails loudly rather than re-raising a freed failure.
func (b *Box) Destroy() {
	b.err = poisonedErr
}
