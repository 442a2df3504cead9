// Copyright 2026 The taskgroupctx Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctxtree

import (
	"sync"
	"sync/atomic"
)

// listNode is the intrusive link embedded in every Context, plus the
// sentinel head embedded in every thread's list state. ctx is nil only on
// sentinels and poison markers.
//
// The links are atomics because a propagation sweep loads head.next with
// acquire semantics to observe a node a concurrent insertHead just
// published; all mutation still happens under the list mutex.
type listNode struct {
	prev atomic.Pointer[listNode]
	next atomic.Pointer[listNode]
	ctx  *Context
}

func (n *listNode) init(ctx *Context) {
	n.prev.Store(nil)
	n.next.Store(nil)
	n.ctx = ctx
}

// remove unlinks the node. Caller holds the list mutex.
func (n *listNode) remove() {
	prev := n.prev.Load()
	next := n.next.Load()
	prev.next.Store(next)
	next.prev.Store(prev)
}

func (n *listNode) poison() {
	n.prev.Store(poisonedNode)
	n.next.Store(poisonedNode)
}

// contextListState is one thread's piece of the context tree: the contexts
// bound on that thread, as a sentinel-headed doubly-linked list.
//
// epoch is the thread's local copy of the global propagation epoch. A
// propagation sweep stores the global value here (release) after visiting
// the list; a binding thread snapshots it (acquire) before speculating on
// its parent's state. Equal local and global epochs prove no sweep ran in
// between.
type contextListState struct {
	mu    sync.Mutex
	head  listNode
	epoch atomic.Uint64
}

func (cls *contextListState) init() {
	cls.head.prev.Store(&cls.head)
	cls.head.next.Store(&cls.head)
}

// insertHead splices the node in right after the sentinel.
//
// New contexts must land at the head: the propagation sweep walks from the
// head, so anything inserted after the walk started is either seen by the
// walk or was inserted after the epoch bump, in which case the inserter's
// epoch check catches the race. The mutex-protected seq-cst stores provide
// the full fence the bind protocol's epoch validation relies on.
func (cls *contextListState) insertHead(n *listNode) {
	n.prev.Store(&cls.head)

	cls.mu.Lock()
	headNext := cls.head.next.Load()
	headNext.prev.Store(n)
	n.next.Store(headNext)
	cls.head.next.Store(n)
	cls.mu.Unlock()
}

// snapshot returns the live contexts head-to-tail. Takes the mutex; used
// by diagnostics and tests, never by the propagator (which needs custom
// per-node work while holding the lock).
func (cls *contextListState) snapshot() []*Context {
	cls.mu.Lock()
	defer cls.mu.Unlock()

	var out []*Context
	for n := cls.head.next.Load(); n != &cls.head; n = n.next.Load() {
		out = append(out, n.ctx)
	}
	return out
}
