// Copyright 2026 The taskgroupctx Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctxtree

import "runtime"

// registerWith inserts the context at the head of td's list and records td
// as the owner. The mutex-protected insertion publishes the context with a
// full fence; the bind protocol's epoch validation depends on that fence.
func registerWith(ctx *Context, td *ThreadData) {
	assertf(!isPoisoned(ctx.owner.Load()), "binding a destroyed context")
	assertf(td != nil, "binding requires a thread record")

	ctx.owner.Store(td)
	td.contextList.insertHead(&ctx.node)
}

// bindTo attaches ctx under the thread's current execution context. The
// context is Locked; the caller holds no locks.
func bindTo(ctx *Context, td *ThreadData) {
	assertf(ctx.State() == StateLocked, "the context can be bound only under the lock")
	assertf(ctx.parent.Load() == nil, "parent is set before initial binding")

	parent := td.CurrentContext()
	assertf(parent != nil, "no execution context on the binding thread")
	ctx.parent.Store(parent)

	// Inherit FP settings only if the context has not captured its own.
	if !ctx.traits.FPSettings {
		copyFPSettings(ctx, parent)
	}

	// The condition avoids thrashing the parent's cache line when the hint
	// is already set.
	if parent.mayHaveChildren.Load() != 1 {
		parent.mayHaveChildren.Store(1)
	}

	if parent.parent.Load() != nil {
		// A grandparent exists, so a cancellation could be propagating
		// from an ancestor right now — and even after this context becomes
		// visible in the list, a sweep that started earlier could miss it.
		// Speculative propagation from the parent, validated by the epoch
		// counters, avoids taking the propagation mutex when there is no
		// contention.
		//
		// The acquire load keeps the speculative parent-state load below
		// inside the window the epoch comparison can validate.
		snapshot := parent.owner.Load().contextList.epoch.Load()

		// Speculative copy of the parent's state; validated right after
		// publication.
		ctx.cancellationRequested.Store(parent.cancellationRequested.Load())

		registerWith(ctx, td) // issues a full fence

		// If the epochs still agree, the fence above proves the parent
		// held the copied state through the publication point. Otherwise a
		// sweep ran concurrently and the copy is repeated under its lock.
		if snapshot != propagationEpoch.Load() {
			propagationMu.Lock()
			ctx.cancellationRequested.Store(parent.cancellationRequested.Load())
			propagationMu.Unlock()
		}
	} else {
		registerWith(ctx, td) // issues a full fence
		// With no grand-ancestors, a concurrent state change can only
		// originate at the parent itself, so a direct copy is safe.
		ctx.cancellationRequested.Store(parent.cancellationRequested.Load())
	}

	ctx.lifetime.Store(uint32(StateBound))
}

// Bind lazily attaches the context on first scheduling use.
//
// Exactly one thread wins the Created→Locked race and decides the
// context's fate: isolation when the thread is at the arena's outermost
// level (its execution context is the arena default) or when the context
// opted out of inheritance, binding otherwise. Every other caller spins
// until the winner publishes Bound or Isolated.
func Bind(ctx *Context, td *ThreadData) {
	state := LifetimeState(ctx.lifetime.Load())
	if state > StateLocked {
		return // already bound or isolated
	}

	if state == StateCreated &&
		ctx.lifetime.CompareAndSwap(uint32(StateCreated), uint32(StateLocked)) {
		cur := td.CurrentContext()
		assertf(cur != nil, "no execution context on the binding thread")

		if cur == td.arena.defaultCtx || !ctx.traits.Bound {
			// Outermost dispatch level of an external thread, or an
			// opt-out context: nothing to bind to.
			if !ctx.traits.FPSettings {
				copyFPSettings(ctx, td.arena.defaultCtx)
			}
			ctx.lifetime.Store(uint32(StateIsolated))
		} else {
			bindTo(ctx, td)
		}
	}

	// Another thread may be mid-bind; its protocol is short and takes no
	// nested waits, so a yield loop is enough.
	for LifetimeState(ctx.lifetime.Load()) == StateLocked {
		runtime.Gosched()
	}

	assertf(ctx.State() != StateCreated && ctx.State() != StateLocked,
		"bind left the context unsettled")
}
