// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import "errors"

var (
	ErrBufferAlloc       = errors.New("calibration: sample buffer allocation failed")
	ErrSensorUnavailable = errors.New("calibration: magnetometer unavailable")
	ErrNonFiniteFit      = errors.New("calibration: sphere fit is not finite")
	ErrSaveFailed        = errors.New("calibration: storing parameters failed")
)

// User-facing messages for fatal conditions.
const (
	msgOutOfMemory   = "mag cal failed: out of memory"
	msgSensorFailed  = "ERROR: Failed reading mag sensor"
	msgNaNFit        = "mag calibration FAILED (NaN in sphere fit)"
	msgStoreFailed   = "FAILED storing calibration"
	msgCompleted     = "magnetometer calibration completed"
	msgRotatePrompt  = "please rotate in a figure 8 or around %c axis."
	msgRotationFound = "detected autopilot to mag rotation: #%d"
)
