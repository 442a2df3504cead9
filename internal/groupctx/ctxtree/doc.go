// Copyright 2026 The taskgroupctx Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ctxtree maintains the tree of task-group contexts and propagates
// cancellation through it.
//
// The premise of the design is that cancellation is not part of the hot
// path. Contexts are created and bound on many threads, and their
// descendants appear on other threads again; to keep the normal
// (uncancelled) execution flow free of synchronization, the logical context
// tree is split into per-thread pieces. Each piece is a doubly-linked list
// of the contexts that were bound on that thread, guarded by that thread's
// own mutex.
//
// Cross-thread access to a list happens only when a cancellation signal is
// sent. The propagator then takes the single global propagation mutex,
// advances the global propagation epoch, and sweeps every registered
// thread's list, marking each context whose ancestor chain passes through
// the cancellation source.
//
// The binding path stays lock-free by speculation: a context binding under
// a parent that itself has a parent snapshots the parent owner's local
// epoch, copies the parent's cancellation flag, publishes itself into the
// thread's list, and then compares the snapshot against the global epoch.
// A mismatch means a propagation sweep ran concurrently and may have been
// missed, so the flag is copied again under the propagation mutex. A match
// proves the speculative copy was valid through the publication point.
//
// Why the whole sweep holds one global lock: consider cancellations racing
// at different levels of the tree,
//
//	Ctx1 <- cancelled by T1        | T2 starts its sweep
//	 |                             | T1 starts its sweep
//	Ctx2                        t1 | T2 finishes, syncs local epochs
//	 |                             | Ctx5 is bound under Ctx2
//	Ctx3 <- cancelled by T2     t2 | T1 reaches Ctx2
//	 |
//	Ctx4
//
// Each propagating thread bumps the global epoch, but the outermost
// propagation (T1) may finish last: the local epochs are already synced at
// t1, before T1 marks Ctx2 at t2. A context bound under Ctx2 between t1
// and t2 that validated only against its parent would lose the
// cancellation. Serializing sweeps under the lock removes the window.
package ctxtree
