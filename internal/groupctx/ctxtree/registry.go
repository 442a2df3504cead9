// Copyright 2026 The taskgroupctx Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctxtree

import (
	"sync"

	"golang.org/x/exp/slices"
)

// threadRegistry enumerates every thread record a propagation sweep must
// visit. Workers live in a slot array whose entries are nil once their
// worker unregisters (sweeps skip nil slots; registration reuses them);
// external threads
// come and go and live in a plain list.
//
// The registry holds the records weakly: threads own their records, the
// registry only reaches them during sweeps.
type threadRegistry struct {
	mu        sync.Mutex
	workers   []*ThreadData
	externals []*ThreadData
}

// registerWorker publishes a worker record and returns its slot.
func (r *threadRegistry) registerWorker(td *ThreadData) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Reuse a vacated slot before growing the array.
	slot := slices.Index(r.workers, nil)
	if slot < 0 {
		slot = len(r.workers)
		r.workers = append(r.workers, nil)
	}
	r.workers[slot] = td
	return slot
}

// unregisterWorker vacates the worker's slot, keeping the array dense
// enough for sweeps (nil slots are skipped, not compacted).
func (r *threadRegistry) unregisterWorker(td *ThreadData) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if td.workerSlot >= 0 && td.workerSlot < len(r.workers) && r.workers[td.workerSlot] == td {
		r.workers[td.workerSlot] = nil
	}
}

// registerExternal publishes an external thread record.
func (r *threadRegistry) registerExternal(td *ThreadData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.externals = append(r.externals, td)
}

// unregisterExternal withdraws an external thread record.
func (r *threadRegistry) unregisterExternal(td *ThreadData) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := slices.Index(r.externals, td); i >= 0 {
		r.externals = slices.Delete(r.externals, i, i+1)
	}
}

// enumerate clones both sets so a sweep can visit them without holding the
// registry mutex across per-list mutex acquisitions. Worker entries may be
// nil.
func (r *threadRegistry) enumerate() (workers, externals []*ThreadData) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.workers), slices.Clone(r.externals)
}
