// Copyright 2026 The taskgroupctx Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package panicbox

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestAllocateNil(t *testing.T) {
	// No failure in flight: the slot stays empty.
	require.Nil(t, Allocate(nil))
}

func TestAllocateError(t *testing.T) {
	base := errors.New("boom")
	box := Allocate(base)
	require.NotNil(t, box)
	require.True(t, errors.Is(box.Err(), base), "boxed error must preserve identity")
}

func TestAllocateBareValue(t *testing.T) {
	// A non-error payload is normalized to an error carrying the capture
	// site, so re-raising does not lose the original failure.
	box := Allocate("unexpected state 42")
	require.NotNil(t, box)
	require.ErrorContains(t, box.Err(), "unexpected state 42")
}

func TestRethrow(t *testing.T) {
	base := errors.New("boom")
	box := Allocate(base)

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		box.Rethrow()
	}()

	require.NotNil(t, recovered, "Rethrow must panic")
	err, ok := recovered.(error)
	require.True(t, ok, "rethrown payload is an error, got %T", recovered)
	require.True(t, errors.Is(err, base))
}

func TestRethrowAcrossGoroutines(t *testing.T) {
	// The intended flow: a worker recovers and boxes, a joiner rethrows.
	boxes := make(chan *Box)
	go func() {
		defer func() { boxes <- Allocate(recover()) }()
		panic(errors.New("worker failed"))
	}()
	box := <-boxes
	require.NotNil(t, box)

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		box.Rethrow()
	}()
	require.ErrorContains(t, recovered.(error), "worker failed")
}

func TestDestroyPoisons(t *testing.T) {
	box := Allocate(errors.New("boom"))
	box.Destroy()

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		box.Rethrow()
	}()
	require.True(t, errors.HasAssertionFailure(recovered.(error)),
		"use after destroy must trip the poison assertion, got %v", recovered)
}
