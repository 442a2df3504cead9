// Copyright 2026 The taskgroupctx Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctxtree

import (
	"sync"
	"sync/atomic"
)

// Process-wide propagation state. The mutex is held for the entire
// duration of any state-propagation sweep; the epoch advances once per
// sweep. Both live for the life of the process and are never torn down;
// their zero values are ready to use, so no construction guard is needed.
var (
	// propagationMu serializes whole sweeps. See the package comment for
	// why per-list locking alone is not enough.
	propagationMu sync.Mutex

	// propagationEpoch counts sweeps. Thread-local copies of it let the
	// binding path detect that a sweep ran concurrently.
	propagationEpoch atomic.Uint64

	// threads is the global thread enumeration sweeps walk.
	threads threadRegistry
)

// PropagationEpoch returns the current global epoch. Diagnostic surface.
func PropagationEpoch() uint64 {
	return propagationEpoch.Load()
}

// RegisterWorker makes the thread's context list visible to sweeps, as a
// worker slot.
func RegisterWorker(td *ThreadData) {
	td.workerSlot = threads.registerWorker(td)
}

// UnregisterWorker withdraws a worker record from sweeps. The thread must
// have destroyed or migrated its bound contexts first.
func UnregisterWorker(td *ThreadData) {
	threads.unregisterWorker(td)
	td.workerSlot = -1
}

// RegisterExternal makes an external (work-submitting) thread's context
// list visible to sweeps.
func RegisterExternal(td *ThreadData) {
	threads.registerExternal(td)
}

// UnregisterExternal withdraws an external thread record from sweeps.
func UnregisterExternal(td *ThreadData) {
	threads.unregisterExternal(td)
}

// propagateFrom pushes new state down onto ctx if src lies on ctx's
// ancestor chain, marking every context from ctx up to (but excluding)
// src. Called with the propagation mutex and ctx's list mutex held.
//
// The walk is O(depth) per node, which is fine on this explicitly cold
// path.
func propagateFrom(ctx, src *Context, field StateField, newValue uint32) {
	if ctx.fieldRef(field).Load() == newValue || ctx == src {
		return
	}
	for ancestor := ctx.parent.Load(); ancestor != nil; ancestor = ancestor.parent.Load() {
		if ancestor != src {
			continue
		}
		for c := ctx; c != ancestor; c = c.parent.Load() {
			c.fieldRef(field).Store(newValue)
		}
		break
	}
}

// propagateList sweeps one thread's context list. Called with the
// propagation mutex held.
func (td *ThreadData) propagateList(src *Context, field StateField, newValue uint32) {
	cls := &td.contextList
	cls.mu.Lock()

	// The acquire load of head.next (Go atomics are seq-cst) ensures a
	// node a concurrent insertHead just published is seen fully linked,
	// with its parent pointer visible.
	for n := cls.head.next.Load(); n != &cls.head; n = n.next.Load() {
		if ctx := n.ctx; ctx.fieldRef(field).Load() != newValue {
			propagateFrom(ctx, src, field, newValue)
		}
	}

	// Sync the local epoch up with the global one. The release store keeps
	// the field stores above from being reordered past the sync point.
	cls.epoch.Store(propagationEpoch.Load())

	cls.mu.Unlock()
}

// propagateState pushes newValue for the selected field from src to every
// descendant across all registered threads.
//
// Returns false when, under the lock, src no longer holds newValue:
// another thread changed the state concurrently and this caller should
// back down — that thread's sweep owns the transition.
func propagateState(src *Context, field StateField, newValue uint32) bool {
	// Leaf short-circuit: a context no child ever bound under has no
	// descendants to reach.
	if src.mayHaveChildren.Load() != 1 {
		return true
	}

	// The whole sweep runs under the lock to stay correct when state
	// changes race at different levels of the tree; see the package
	// comment.
	propagationMu.Lock()
	defer propagationMu.Unlock()

	if src.fieldRef(field).Load() != newValue {
		return false
	}

	propagationEpoch.Add(1)

	workers, externals := threads.enumerate()
	for _, td := range workers {
		// A slot vacated by an unregistered worker is skipped.
		if td != nil {
			td.propagateList(src, field, newValue)
		}
	}
	// No contention is expected on the external lists: the whole
	// propagation sequence is locked.
	for _, td := range externals {
		td.propagateList(src, field, newValue)
	}
	return true
}
