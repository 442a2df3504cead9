// Copyright 2026 The taskgroupctx Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package groupctx

import "github.com/kolkov/taskgroupctx/internal/groupctx/fpenv"

// ControlWord is a bit-packed FP control environment: rounding mode,
// exception masks, and the SSE flush-control bits. See [DefaultControlWord].
type ControlWord = fpenv.ControlWord

// FPEnv is a thread's live FP control state, reachable via
// [ThreadData.FPEnv].
type FPEnv = fpenv.Env

// FPSnapshot is a context's captured FP environment, reachable via
// [Context.FPSnapshot].
type FPSnapshot = fpenv.Snapshot

// Rounding modes of a ControlWord.
const (
	RoundNearest    = fpenv.RoundNearest
	RoundDown       = fpenv.RoundDown
	RoundUp         = fpenv.RoundUp
	RoundTowardZero = fpenv.RoundTowardZero
)

// Exception-mask and flush-control bits of a ControlWord.
const (
	MaskInvalid      = fpenv.MaskInvalid
	MaskDenormal     = fpenv.MaskDenormal
	MaskDivByZero    = fpenv.MaskDivByZero
	MaskOverflow     = fpenv.MaskOverflow
	MaskUnderflow    = fpenv.MaskUnderflow
	MaskPrecision    = fpenv.MaskPrecision
	MaskAll          = fpenv.MaskAll
	FlushToZero      = fpenv.FlushToZero
	DenormalsAreZero = fpenv.DenormalsAreZero
)

// DefaultControlWord returns the process-default environment: round to
// nearest, all exceptions masked, FTZ/DAZ clear.
func DefaultControlWord() ControlWord {
	return fpenv.DefaultControlWord()
}

// HasFlushControl reports whether the host CPU honors the FTZ/DAZ bits.
func HasFlushControl() bool {
	return fpenv.HasFlushControl()
}
