// Copyright 2026 The taskgroupctx Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ctxtree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kolkov/taskgroupctx/internal/groupctx/fpenv"
)

// newThread creates a registered thread record and schedules its
// deregistration. Tests share the process-global registry, so cleanup
// matters.
func newThread(t *testing.T, a *Arena, worker bool) *ThreadData {
	t.Helper()
	td := NewThread(a)
	if worker {
		RegisterWorker(td)
		t.Cleanup(func() { UnregisterWorker(td) })
	} else {
		RegisterExternal(td)
		t.Cleanup(func() { UnregisterExternal(td) })
	}
	return td
}

// TestInitialize tests the Created state of a fresh context.
func TestInitialize(t *testing.T) {
	tests := []struct {
		name   string
		traits Traits
	}{
		{name: "zero traits", traits: Traits{}},
		{name: "bound", traits: Traits{Bound: true}},
		{name: "fp settings", traits: Traits{Bound: true, FPSettings: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &Context{}
			Initialize(ctx, tt.traits)

			if got := ctx.State(); got != StateCreated {
				t.Errorf("State() = %v, want %v", got, StateCreated)
			}
			if ctx.Parent() != nil {
				t.Error("fresh context has a parent")
			}
			if ctx.Owner() != nil {
				t.Error("fresh context has an owner")
			}
			if IsGroupExecutionCancelled(ctx) {
				t.Error("fresh context is cancelled")
			}
			if ctx.MayHaveChildren() {
				t.Error("fresh context advertises children")
			}
			if got := ctx.Traits(); got != tt.traits {
				t.Errorf("Traits() = %+v, want %+v", got, tt.traits)
			}
			if tt.traits.FPSettings && ctx.FPSnapshot().Word() != fpenv.DefaultControlWord() {
				t.Errorf("initial snapshot = %v, want default", ctx.FPSnapshot().Word())
			}
		})
	}
}

// TestCancelTwiceSequential: the second cancel reports the transition
// already happened.
func TestCancelTwiceSequential(t *testing.T) {
	ctx := &Context{}
	Initialize(ctx, Traits{})

	require.True(t, CancelGroupExecution(ctx))
	require.True(t, IsGroupExecutionCancelled(ctx))
	require.False(t, CancelGroupExecution(ctx))
	require.True(t, IsGroupExecutionCancelled(ctx))
}

// TestResetReuse: reset makes a quiescent context cancellable again.
func TestResetReuse(t *testing.T) {
	ctx := &Context{}
	Initialize(ctx, Traits{})

	require.True(t, CancelGroupExecution(ctx))
	require.True(t, CaptureFailure(ctx, "wave 1 failed"))
	require.NotNil(t, ctx.Exception())

	Reset(ctx)
	require.False(t, IsGroupExecutionCancelled(ctx))
	require.Nil(t, ctx.Exception())

	require.True(t, CancelGroupExecution(ctx))
	require.False(t, CancelGroupExecution(ctx))
}

// TestCaptureFailure: first failure wins the slot; every capture cancels.
func TestCaptureFailure(t *testing.T) {
	ctx := &Context{}
	Initialize(ctx, Traits{})

	require.True(t, CaptureFailure(ctx, "first"))
	require.True(t, IsGroupExecutionCancelled(ctx))
	require.False(t, CaptureFailure(ctx, "second"), "second failure must be dropped")

	box := ctx.Exception()
	require.NotNil(t, box)
	require.ErrorContains(t, box.Err(), "first")

	// A nil payload cancels without touching the slot.
	Reset(ctx)
	require.False(t, CaptureFailure(ctx, nil))
	require.True(t, IsGroupExecutionCancelled(ctx))
	require.Nil(t, ctx.Exception())
}

// TestCaptureFPSettings: capture adopts the thread's live word and sets
// the trait.
func TestCaptureFPSettings(t *testing.T) {
	a := NewArena()
	td := newThread(t, a, false)

	want := fpenv.RoundUp | fpenv.MaskAll | fpenv.FlushToZero
	td.FPEnv().Set(want)

	ctx := &Context{}
	Initialize(ctx, Traits{Bound: true})
	require.False(t, ctx.Traits().FPSettings)

	CaptureFPSettings(ctx, td)
	require.True(t, ctx.Traits().FPSettings)
	require.Equal(t, want, ctx.FPSnapshot().Word())
}

// TestDestroyPoisons: any operation on a destroyed context trips an
// assertion.
func TestDestroyPoisons(t *testing.T) {
	ctx := &Context{}
	Initialize(ctx, Traits{})
	require.True(t, CaptureFailure(ctx, "stored then destroyed"))

	Destroy(ctx)
	require.Equal(t, StateDead, ctx.State())
	require.Panics(t, func() { Destroy(ctx) }, "double destroy")
	require.Panics(t, func() { CancelGroupExecution(ctx) }, "cancel after destroy")
	require.Panics(t, func() { Reset(ctx) }, "reset after destroy")
}

// TestLifetimeStateString is a plain grid over the diagnostic names.
func TestLifetimeStateString(t *testing.T) {
	tests := []struct {
		state LifetimeState
		want  string
	}{
		{StateCreated, "created"},
		{StateLocked, "locked"},
		{StateBound, "bound"},
		{StateIsolated, "isolated"},
		{StateDead, "dead"},
		{LifetimeState(99), "invalid"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
