// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import "fmt"

// Phase is a step of the calibration run. Phases advance in declaration
// order and are never revisited; a run ends in PhaseComplete or PhaseFailed.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseHardwareScaleReset
	PhaseHardwareScaleCalibrate
	PhaseSamplingX
	PhaseSamplingY
	PhaseSamplingZ
	PhaseSphereFit
	PhaseRotationSelect
	PhaseCommit
	PhaseComplete
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseIdle:                   "idle",
	PhaseHardwareScaleReset:     "hardware_scale_reset",
	PhaseHardwareScaleCalibrate: "hardware_scale_calibrate",
	PhaseSamplingX:              "sampling_x",
	PhaseSamplingY:              "sampling_y",
	PhaseSamplingZ:              "sampling_z",
	PhaseSphereFit:              "sphere_fit",
	PhaseRotationSelect:         "rotation_select",
	PhaseCommit:                 "commit",
	PhaseComplete:               "complete",
	PhaseFailed:                 "failed",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// samplingPhase maps a guidance segment (0..2) to its phase.
func samplingPhase(axis int) Phase {
	return PhaseSamplingX + Phase(axis)
}
