// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package rotation holds the catalog of candidate magnetometer mounting
// rotations and the per-sample error scoring used to pick one of them.
package rotation

import "fmt"

// Candidate is one mounting rotation hypothesis, in whole degrees.
// Its identity is its position in the library; that index is what gets
// persisted as the external mag rotation parameter.
type Candidate struct {
	Roll  int `json:"roll"`
	Pitch int `json:"pitch"`
	Yaw   int `json:"yaw"`
}

// NumCandidates is the size of the default library.
const NumCandidates = 37

// library order must never change: indices are stored in the parameter store.
// The 45 degree yaw entries are not right angles, so scoring skips them and
// their accumulated error stays 0.
var library = [NumCandidates]Candidate{
	{0, 0, 0},
	{0, 0, 45},
	{0, 0, 90},
	{0, 0, 135},
	{0, 0, 180},
	{0, 0, 225},
	{0, 0, 270},
	{0, 0, 315},
	{180, 0, 0},
	{180, 0, 45},
	{180, 0, 90},
	{180, 0, 135},
	{0, 180, 0},
	{180, 0, 225},
	{180, 0, 270},
	{180, 0, 315},
	{90, 0, 0},
	{90, 0, 45},
	{90, 0, 90},
	{90, 0, 135},
	{270, 0, 0},
	{270, 0, 45},
	{270, 0, 90},
	{270, 0, 135},
	{0, 90, 0},
	{0, 270, 0},
	{0, 180, 90},
	{0, 180, 270},
	{90, 90, 0},
	{180, 90, 0},
	{270, 90, 0},
	{90, 180, 0},
	{270, 180, 0},
	{90, 270, 0},
	{180, 270, 0},
	{270, 270, 0},
	{90, 180, 90},
}

// Library returns a copy of the default candidate library.
func Library() []Candidate {
	out := make([]Candidate, len(library))
	copy(out, library[:])
	return out
}

// RightAngle reports whether all three angles are exact multiples of 90°.
func (c Candidate) RightAngle() bool {
	return c.Roll%90 == 0 && c.Pitch%90 == 0 && c.Yaw%90 == 0
}

func (c Candidate) String() string {
	return fmt.Sprintf("roll=%d pitch=%d yaw=%d", c.Roll, c.Pitch, c.Yaw)
}
