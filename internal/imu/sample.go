// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"time"

	"github.com/golang/geo/r3"
)

// Sample is a single paired magnetometer + gyroscope reading.
type Sample struct {
	Field r3.Vector // Gauss
	Rate  r3.Vector // rad/s
	Time  time.Time
}

// MagPayload is the JSON schema published on the mag topic.
// mx,my,mz are in Gauss; time is RFC3339Nano.
type MagPayload struct {
	Mx   float64 `json:"mx"`
	My   float64 `json:"my"`
	Mz   float64 `json:"mz"`
	Time string  `json:"time"`
}

// GyroPayload is the JSON schema published on the gyro topic (rad/s).
type GyroPayload struct {
	Gx   float64 `json:"gx"`
	Gy   float64 `json:"gy"`
	Gz   float64 `json:"gz"`
	Time string  `json:"time"`
}

// Payloads splits a sample into its two topic payloads.
func (s Sample) Payloads() (MagPayload, GyroPayload) {
	ts := s.Time.UTC().Format(time.RFC3339Nano)
	return MagPayload{Mx: s.Field.X, My: s.Field.Y, Mz: s.Field.Z, Time: ts},
		GyroPayload{Gx: s.Rate.X, Gy: s.Rate.Y, Gz: s.Rate.Z, Time: ts}
}

// Vector returns the field as a vector.
func (p MagPayload) Vector() r3.Vector { return r3.Vector{X: p.Mx, Y: p.My, Z: p.Mz} }

// Vector returns the rate as a vector.
func (p GyroPayload) Vector() r3.Vector { return r3.Vector{X: p.Gx, Y: p.Gy, Z: p.Gz} }

// Timestamp parses the payload time, falling back to now.
func (p MagPayload) Timestamp() time.Time {
	if t, err := time.Parse(time.RFC3339Nano, p.Time); err == nil {
		return t
	}
	return time.Now()
}
