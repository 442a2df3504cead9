// Copyright 2026 The taskgroupctx Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package groupctx

import (
	internal "github.com/kolkov/taskgroupctx/internal/groupctx/ctxtree"
)

// Context is one task-group context; see the package documentation. The
// user owns the Context and holds its pointer; the runtime keeps only
// back-references. Addresses are stable for the context's lifetime.
type Context = internal.Context

// Traits are a context's immutable creation flags.
type Traits = internal.Traits

// ThreadData is the per-thread record for a worker or an external
// work-submitting thread.
type ThreadData = internal.ThreadData

// Arena groups threads around one scheduling domain.
type Arena = internal.Arena

// LifetimeState reports where a context is in its life cycle.
type LifetimeState = internal.LifetimeState

// Lifetime states of a Context.
const (
	StateCreated  = internal.StateCreated
	StateLocked   = internal.StateLocked
	StateBound    = internal.StateBound
	StateIsolated = internal.StateIsolated
	StateDead     = internal.StateDead
)

// NewContext allocates and initializes a context with the given traits.
func NewContext(traits Traits) *Context {
	ctx := &Context{}
	internal.Initialize(ctx, traits)
	return ctx
}

// Initialize puts a caller-allocated fresh context into its initial state.
// Required exactly once before any other operation on the context.
func Initialize(ctx *Context, traits Traits) {
	internal.Initialize(ctx, traits)
}

// Destroy tears the context down: unlinks it from its owner thread's list,
// releases any captured failure, and poisons the context against further
// use. The caller guarantees no concurrent use.
func Destroy(ctx *Context) {
	internal.Destroy(ctx)
}

// Reset clears the context's captured failure and cancellation flag so a
// single-threaded caller can reuse it for a fresh wave of work. The caller
// guarantees the context has no descendants and no concurrent users; this
// is not checked at runtime.
func Reset(ctx *Context) {
	internal.Reset(ctx)
}

// CancelGroupExecution requests cancellation of the context's group and
// all descendant groups. Returns true iff this call performed the
// transition; repeated or racing calls return false. Cancellation is
// advisory and monotonic — there is no uncancel.
func CancelGroupExecution(ctx *Context) bool {
	return internal.CancelGroupExecution(ctx)
}

// IsGroupExecutionCancelled reports whether the context's group was
// cancelled. Task bodies poll this at convenient points.
func IsGroupExecutionCancelled(ctx *Context) bool {
	return internal.IsGroupExecutionCancelled(ctx)
}

// CaptureFPSettings captures the thread's live FP environment into the
// context, so tasks of this group run under it regardless of which worker
// picks them up. Same quiescence precondition as Reset.
func CaptureFPSettings(ctx *Context, td *ThreadData) {
	internal.CaptureFPSettings(ctx, td)
}

// NewArena creates an arena with a fresh default (root sentinel) context.
func NewArena() *Arena {
	return internal.NewArena()
}

// NewThread creates a thread record attached to the arena. Attach it as a
// worker or external before running tasks on it.
func NewThread(a *Arena) *ThreadData {
	return internal.NewThread(a)
}

// AttachWorker makes a worker thread's context list reachable by
// cancellation sweeps.
func AttachWorker(td *ThreadData) {
	internal.RegisterWorker(td)
}

// DetachWorker withdraws a worker from cancellation sweeps. The worker
// must have destroyed its bound contexts first.
func DetachWorker(td *ThreadData) {
	internal.UnregisterWorker(td)
}

// AttachExternal makes an external (work-submitting) thread's context list
// reachable by cancellation sweeps.
func AttachExternal(td *ThreadData) {
	internal.RegisterExternal(td)
}

// DetachExternal withdraws an external thread from cancellation sweeps.
func DetachExternal(td *ThreadData) {
	internal.UnregisterExternal(td)
}

// Bind lazily attaches the context on first scheduling use: under the
// thread's current execution context when inheriting, isolated otherwise.
// Safe to call from several threads at once; losers wait for the winner.
// The scheduler calls this before dispatching the group's first task; Run
// does it for you.
func Bind(ctx *Context, td *ThreadData) {
	internal.Bind(ctx, td)
}

// PropagationEpoch returns the global propagation epoch: the number of
// cancellation sweeps that have run. Diagnostic surface.
func PropagationEpoch() uint64 {
	return internal.PropagationEpoch()
}

// Run executes f as a task of ctx's group on the thread td: it binds ctx
// if needed, installs ctx as the thread's current execution context,
// applies the group's FP settings to the thread for the duration, and
// catches a panic at the task boundary — boxing the first failure into the
// context and cancelling the group.
//
// Returns true when f completed, false when it panicked or when the group
// was already cancelled (in which case f is not run at all).
func Run(td *ThreadData, ctx *Context, f func()) (completed bool) {
	internal.Bind(ctx, td)
	if internal.IsGroupExecutionCancelled(ctx) {
		return false
	}

	prev := td.CurrentContext()
	prevFP := td.FPEnv().Get()
	td.SetCurrentContext(ctx)
	ctx.FPSnapshot().Apply(td.FPEnv())
	defer func() {
		td.FPEnv().Set(prevFP)
		td.SetCurrentContext(prev)
		if v := recover(); v != nil {
			internal.CaptureFailure(ctx, v)
		}
	}()

	f()
	return true
}

// RethrowIfAny re-raises the group's captured failure on the calling
// thread. Call at join points, after the group's tasks finish.
func RethrowIfAny(ctx *Context) {
	internal.RethrowIfAny(ctx)
}
