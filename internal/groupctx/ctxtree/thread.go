// Copyright 2026 The taskgroupctx Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctxtree

import (
	"sync/atomic"

	"github.com/kolkov/taskgroupctx/internal/groupctx/fpenv"
)

// ThreadData is the per-thread record the scheduler hands to this package.
// Every worker and every external thread that submits work owns exactly
// one; it carries the thread's piece of the context tree, the context the
// thread is currently executing under, and the thread's live FP
// environment.
type ThreadData struct {
	contextList contextListState

	// current is the execution context of the task the thread is running,
	// or the arena default between tasks. Written by the owning thread
	// only; read during binding on that same thread.
	current atomic.Pointer[Context]

	arena *Arena

	// fp is the thread's live FP control state. Owning thread only.
	fp fpenv.Env

	// workerSlot is the registry slot index for workers, -1 for externals.
	workerSlot int
}

// NewThread creates a thread record attached to the arena. The record is
// not yet visible to propagation; register it as a worker or external.
func NewThread(a *Arena) *ThreadData {
	td := &ThreadData{
		arena:      a,
		fp:         fpenv.NewEnv(),
		workerSlot: -1,
	}
	td.contextList.init()
	td.current.Store(a.defaultCtx)
	return td
}

// CurrentContext returns the context the thread is executing under.
func (td *ThreadData) CurrentContext() *Context {
	return td.current.Load()
}

// SetCurrentContext installs the execution context for a task about to run
// on this thread. Scheduler-side; owning thread only.
func (td *ThreadData) SetCurrentContext(ctx *Context) {
	if ctx == nil {
		ctx = td.arena.defaultCtx
	}
	td.current.Store(ctx)
}

// Arena returns the arena the thread belongs to.
func (td *ThreadData) Arena() *Arena {
	return td.arena
}

// FPEnv exposes the thread's live FP environment for task-boundary
// apply/capture. Owning thread only.
func (td *ThreadData) FPEnv() *fpenv.Env {
	return &td.fp
}

// Contexts returns the thread's bound contexts, head (most recently bound)
// first. Diagnostic surface; takes the list mutex.
func (td *ThreadData) Contexts() []*Context {
	return td.contextList.snapshot()
}

// Arena groups threads around one scheduling domain. Only the piece the
// cancellation core needs exists here: the default context that outermost
// external work executes under. It is isolated, carries the process
// default FP settings, and is never destroyed.
type Arena struct {
	defaultCtx *Context
}

// NewArena creates an arena with a fresh default context.
func NewArena() *Arena {
	ctx := &Context{}
	Initialize(ctx, Traits{FPSettings: true})
	ctx.lifetime.Store(uint32(StateIsolated))
	return &Arena{defaultCtx: ctx}
}

// DefaultContext returns the arena's root sentinel context.
func (a *Arena) DefaultContext() *Context {
	return a.defaultCtx
}
