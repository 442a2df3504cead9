// Copyright 2026 The taskgroupctx Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctxtree

import (
	"sync/atomic"

	"github.com/kolkov/taskgroupctx/internal/groupctx/fpenv"
	"github.com/kolkov/taskgroupctx/internal/groupctx/panicbox"
)

// LifetimeState tracks where a context is in its life cycle. The numeric
// order matters: Bind treats any state above Locked as already settled.
type LifetimeState uint32

const (
	// StateCreated: constructed, not yet used for scheduling.
	StateCreated LifetimeState = iota
	// StateLocked: a thread is running the bind decision for this context.
	StateLocked
	// StateBound: attached to a parent and present in the owner's list.
	StateBound
	// StateIsolated: finalized without a parent; in no list.
	StateIsolated
	// StateDead: destroyed; pointer fields are poisoned.
	StateDead
)

// String returns the state name for diagnostics.
func (s LifetimeState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateLocked:
		return "locked"
	case StateBound:
		return "bound"
	case StateIsolated:
		return "isolated"
	case StateDead:
		return "dead"
	}
	return "invalid"
}

// Traits are a context's immutable creation flags.
//
// FPSettings flips to true when FP settings are captured or inherited; that
// happens only while the context is quiescent (at creation, during the
// locked bind window, or under the caller's not-used-concurrently
// guarantee), so the field needs no atomicity.
type Traits struct {
	// Bound allows the context to inherit from the thread's current
	// execution context at first use. A context without it is isolated.
	Bound bool
	// FPSettings marks the context as carrying its own FP snapshot.
	FPSettings bool
}

// Context is one task-group context: a node of the logical context tree
// and, once bound, a member of exactly one thread's context list.
//
// Field ownership: parent and owner are written once during binding and
// only read afterwards. The list node is mutated only under the owner
// list's mutex. The cancellation flag is monotonic 0→1 and may be written
// by any thread (the one that wins the cancel, or a propagation sweep
// holding the global mutex). Everything else belongs to the creating
// thread until binding publishes the context.
type Context struct {
	// parent forms the logical tree. Non-nil iff the context is bound.
	parent atomic.Pointer[Context]

	// owner is the thread whose context list holds this context.
	owner atomic.Pointer[ThreadData]

	// node links the context into the owner's list.
	node listNode

	// lifetime is the LifetimeState machine; see Bind.
	lifetime atomic.Uint32

	// cancellationRequested is the monotonic cancel flag: 0 or 1, never
	// cleared except by Reset (single-threaded reuse only).
	cancellationRequested atomic.Uint32

	// mayHaveChildren is a one-way hint set when any child binds under
	// this context. It lets the propagator skip leaf sources entirely.
	mayHaveChildren atomic.Uint32

	// exception holds the first failure captured within the group, if any.
	exception atomic.Pointer[panicbox.Box]

	// fp is the captured FP environment; meaningful only while
	// traits.FPSettings is true.
	fp fpenv.Snapshot

	traits Traits
}

// StateField selects which monotonic per-context state a propagation sweep
// pushes. There is exactly one today; the selector keeps the propagator
// parametric so further monotonic bits cost nothing. Resolution is a
// switch, deliberately not an interface.
type StateField uint8

// CancellationField selects the cancellation flag.
const CancellationField StateField = iota

// fieldRef resolves a StateField to the context's backing atomic.
func (c *Context) fieldRef(f StateField) *atomic.Uint32 {
	switch f {
	case CancellationField:
		return &c.cancellationRequested
	default:
		assertf(false, "unknown state field %d", f)
		return nil
	}
}

// Initialize puts a fresh context into the Created state with the given
// traits. All links are nil and the cancellation flag is clear. A context
// must be initialized exactly once before any other operation.
//
// When traits.FPSettings is set, the snapshot is seeded with the process
// default control word; CaptureFPSettings captures a thread's live
// environment instead.
func Initialize(ctx *Context, traits Traits) {
	ctx.traits = traits
	ctx.cancellationRequested.Store(0)
	ctx.mayHaveChildren.Store(0)
	ctx.lifetime.Store(uint32(StateCreated))
	ctx.parent.Store(nil)
	ctx.owner.Store(nil)
	ctx.node.init(ctx)
	ctx.exception.Store(nil)
	ctx.fp = fpenv.Snapshot{}
	if traits.FPSettings {
		env := fpenv.NewEnv()
		ctx.fp.Capture(&env)
	}
}

// Destroy unlinks the context from its owner's list (if bound), releases
// the exception holder, and poisons the pointer fields. The caller
// guarantees no concurrent use; concurrent Destroy of *different* contexts
// on the same list is fine, the list mutex serializes the unlink.
func Destroy(ctx *Context) {
	assertf(!isPoisoned(ctx.owner.Load()), "context destroyed twice")

	state := LifetimeState(ctx.lifetime.Load())
	assertf(state != StateLocked, "destroying a context while it is being bound")

	if state == StateBound {
		owner := ctx.owner.Load()
		cls := &owner.contextList

		cls.mu.Lock()
		ctx.node.remove()
		cls.mu.Unlock()
	}

	if ex := ctx.exception.Load(); ex != nil {
		ex.Destroy()
	}

	ctx.lifetime.Store(uint32(StateDead))
	ctx.parent.Store(poisonedCtx)
	ctx.owner.Store(poisonedTD)
	ctx.node.poison()
	ctx.exception.Store(nil)
}

// Reset clears the context's exception slot and cancellation flag for
// single-threaded reuse. The caller guarantees the context has no
// descendants and is not accessed concurrently; there is deliberately no
// runtime guard, only the poisoning assertion.
//
// No fences are necessary: the context can only have become visible to
// another thread through stealing, which already synchronized.
func Reset(ctx *Context) {
	assertf(!isPoisoned(ctx.owner.Load()), "reset of a destroyed context")
	if ex := ctx.exception.Load(); ex != nil {
		ex.Destroy()
		ctx.exception.Store(nil)
	}
	ctx.cancellationRequested.Store(0)
}

// CaptureFPSettings captures the thread's live FP environment into the
// context, giving it the FPSettings trait if it lacked it. Same
// not-used-concurrently precondition as Reset.
func CaptureFPSettings(ctx *Context, td *ThreadData) {
	assertf(!isPoisoned(ctx.owner.Load()), "capture on a destroyed context")
	ctx.traits.FPSettings = true
	ctx.fp.Capture(&td.fp)
}

// copyFPSettings duplicates src's snapshot into ctx during binding or
// isolation. ctx must not have captured settings yet; src must have them.
func copyFPSettings(ctx, src *Context) {
	assertf(!ctx.traits.FPSettings, "context already has FP settings")
	assertf(src.traits.FPSettings, "source context has no FP settings")
	ctx.fp.CopyFrom(&src.fp)
	ctx.traits.FPSettings = true
}

// Parent returns the context's parent, nil unless bound.
func (c *Context) Parent() *Context {
	return c.parent.Load()
}

// Owner returns the thread whose list holds the context, nil unless bound.
func (c *Context) Owner() *ThreadData {
	return c.owner.Load()
}

// State returns the current lifetime state.
func (c *Context) State() LifetimeState {
	return LifetimeState(c.lifetime.Load())
}

// Traits returns the context's creation flags (with FPSettings reflecting
// any later capture or inheritance).
func (c *Context) Traits() Traits {
	return c.traits
}

// MayHaveChildren reports whether any child ever bound under the context.
func (c *Context) MayHaveChildren() bool {
	return c.mayHaveChildren.Load() != 0
}

// FPSnapshot exposes the captured FP environment. Meaningful only when
// Traits().FPSettings is true.
func (c *Context) FPSnapshot() *fpenv.Snapshot {
	return &c.fp
}

// Exception returns the captured failure, if any.
func (c *Context) Exception() *panicbox.Box {
	return c.exception.Load()
}
