// Copyright 2026 The taskgroupctx Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctxtree

import "github.com/kolkov/taskgroupctx/internal/groupctx/panicbox"

// CancelGroupExecution requests cancellation of the context's task group
// and every descendant group. Returns true iff this call performed the
// 0→1 transition; a second caller, on any thread, gets false.
//
// The propagator's result is deliberately ignored: the transition at ctx
// is already durable after the exchange, and a "back down" return could
// only mean another thread owned the transition, which the exchange ruled
// out.
func CancelGroupExecution(ctx *Context) bool {
	assertf(!isPoisoned(ctx.owner.Load()), "cancel of a destroyed context")
	assertf(ctx.cancellationRequested.Load() <= 1, "the cancellation state can be either 0 or 1")

	if ctx.cancellationRequested.Load() != 0 || ctx.cancellationRequested.Swap(1) != 0 {
		// This group and any descendants are already cancelled. A
		// descendant bound right now inherits the parent's flag during its
		// bind protocol, so no cancellation in flight is missed, and a
		// context cannot be uncancelled.
		return false
	}
	propagateState(ctx, CancellationField, 1)
	return true
}

// IsGroupExecutionCancelled reports whether cancellation was requested for
// the context's group. Plain relaxed load; safe from any thread.
func IsGroupExecutionCancelled(ctx *Context) bool {
	return ctx.cancellationRequested.Load() != 0
}

// CaptureFailure stores a failure recovered at a task boundary into the
// context's exception slot and cancels the group. The first failure wins;
// later ones are dropped after their box is released. Returns true iff
// this call's payload was stored.
//
// A nil payload (nothing in flight, or the holder could not be built)
// still cancels the group — the failure is then signalled by the
// cancellation alone.
func CaptureFailure(ctx *Context, v any) bool {
	stored := false
	if box := panicbox.Allocate(v); box != nil {
		if ctx.exception.CompareAndSwap(nil, box) {
			stored = true
		} else {
			box.Destroy()
		}
	}
	CancelGroupExecution(ctx)
	return stored
}

// RethrowIfAny re-raises the context's captured failure, if there is one,
// on the calling thread. Join points call this after the group's tasks
// complete.
func RethrowIfAny(ctx *Context) {
	if box := ctx.exception.Load(); box != nil {
		box.Rethrow()
	}
}
