// Copyright 2026 The taskgroupctx Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctxtree

import "github.com/cockroachdb/errors"

// Poison sentinels. Destroy stores these into a dead context's pointer
// fields so that use-after-destroy trips an assertion instead of walking
// freed structure. The sentinels are never linked into any list or tree.
var (
	poisonedCtx  = &Context{}
	poisonedTD   = &ThreadData{}
	poisonedNode = &listNode{}
)

func isPoisoned(td *ThreadData) bool {
	return td == poisonedTD
}

// assertf panics with an assertion failure when cond is false. Assertions
// guard internal invariants (poisoned pointers, invalid lifetime
// transitions); they are cheap relaxed loads and stay enabled in all
// builds.
func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(errors.AssertionFailedf(format, args...))
	}
}
