// Copyright 2026 The taskgroupctx Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fpenv

import "testing"

// TestControlWordLayout tests the bit packing of ControlWord.
func TestControlWordLayout(t *testing.T) {
	tests := []struct {
		name         string
		cw           ControlWord
		wantRounding ControlWord
		wantFTZ      bool
		wantDAZ      bool
	}{
		{
			name:         "default word",
			cw:           DefaultControlWord(),
			wantRounding: RoundNearest,
		},
		{
			name:         "round down",
			cw:           RoundDown | MaskAll,
			wantRounding: RoundDown,
		},
		{
			name:         "round toward zero with flush bits",
			cw:           RoundTowardZero | MaskAll | FlushToZero | DenormalsAreZero,
			wantRounding: RoundTowardZero,
			wantFTZ:      true,
			wantDAZ:      true,
		},
		{
			name:         "rounding does not leak into flush bits",
			cw:           RoundUp,
			wantRounding: RoundUp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cw.Rounding(); got != tt.wantRounding {
				t.Errorf("Rounding() = %v, want %v", got, tt.wantRounding)
			}
			if got := tt.cw&FlushToZero != 0; got != tt.wantFTZ {
				t.Errorf("FTZ bit = %v, want %v", got, tt.wantFTZ)
			}
			if got := tt.cw&DenormalsAreZero != 0; got != tt.wantDAZ {
				t.Errorf("DAZ bit = %v, want %v", got, tt.wantDAZ)
			}
		})
	}
}

// TestMasked tests individual exception-mask bits.
func TestMasked(t *testing.T) {
	cw := RoundNearest | MaskInvalid | MaskOverflow
	if !cw.Masked(MaskInvalid) {
		t.Error("invalid should be masked")
	}
	if !cw.Masked(MaskOverflow) {
		t.Error("overflow should be masked")
	}
	if cw.Masked(MaskUnderflow) {
		t.Error("underflow should not be masked")
	}
	if DefaultControlWord()&MaskAll != MaskAll {
		t.Error("default word should mask everything")
	}
}

// TestCaptureApply tests the snapshot round trip against a thread env.
func TestCaptureApply(t *testing.T) {
	env := NewEnv()
	if env.Get() != DefaultControlWord() {
		t.Fatalf("fresh env = %v, want default", env.Get())
	}

	env.Set(RoundUp | MaskAll | FlushToZero)

	var snap Snapshot
	snap.Capture(&env)
	if snap.Word() != env.Get() {
		t.Errorf("Capture: snapshot = %v, env = %v", snap.Word(), env.Get())
	}

	// The env moves on; applying the snapshot must restore it.
	env.Set(DefaultControlWord())
	snap.Apply(&env)
	if env.Get() != RoundUp|MaskAll|FlushToZero {
		t.Errorf("Apply restored %v", env.Get())
	}
}

// TestCopyFrom tests snapshot duplication, including the self-copy no-op.
func TestCopyFrom(t *testing.T) {
	env := NewEnv()
	env.Set(RoundDown | MaskAll | DenormalsAreZero)

	var a, b Snapshot
	a.Capture(&env)
	b.CopyFrom(&a)
	if b.Word() != a.Word() {
		t.Errorf("CopyFrom: got %v, want %v", b.Word(), a.Word())
	}

	// Capture followed by self-copy is a no-op on observable state.
	before := a.Word()
	a.CopyFrom(&a)
	if a.Word() != before {
		t.Errorf("self CopyFrom changed word: %v -> %v", before, a.Word())
	}
}

// TestString tests the diagnostic rendering.
func TestString(t *testing.T) {
	tests := []struct {
		cw   ControlWord
		want string
	}{
		{DefaultControlWord(), "nearest|maskall"},
		{RoundUp | FlushToZero | DenormalsAreZero, "up|ftz|daz"},
		{RoundTowardZero | MaskInvalid, "zero|maskpart"},
		{RoundDown, "down"},
	}
	for _, tt := range tests {
		if got := tt.cw.String(); got != tt.want {
			t.Errorf("String(%#x) = %q, want %q", uint32(tt.cw), got, tt.want)
		}
	}
}
