// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package magdev provides magnetometer devices that hold a
// scale/offset calibration record and can run a range calibration.
package magdev

import (
	"errors"
	"sync"

	"github.com/golang/geo/r3"
)

// ErrRangeCalibrationUnsupported is returned by devices without a built-in
// range calibration routine.
var ErrRangeCalibrationUnsupported = errors.New("magdev: range calibration not supported")

// Scale is the six-scalar calibration record applied to every reading:
//
//	corrected = (raw - offset) * scale
type Scale struct {
	XOffset float64 `json:"x_offset"`
	XScale  float64 `json:"x_scale"`
	YOffset float64 `json:"y_offset"`
	YScale  float64 `json:"y_scale"`
	ZOffset float64 `json:"z_offset"`
	ZScale  float64 `json:"z_scale"`
}

// IdentityScale is zero offset and unit scale on every axis.
func IdentityScale() Scale {
	return Scale{XScale: 1, YScale: 1, ZScale: 1}
}

// Apply corrects a raw field reading.
func (s Scale) Apply(raw r3.Vector) r3.Vector {
	return r3.Vector{
		X: (raw.X - s.XOffset) * s.XScale,
		Y: (raw.Y - s.YOffset) * s.YScale,
		Z: (raw.Z - s.ZOffset) * s.ZScale,
	}
}

// ScaleDevice is the hardware scale-calibration interface. Every operation
// may fail independently.
type ScaleDevice interface {
	Scale() (Scale, error)
	SetScale(Scale) error
	CalibrateRange() error
}

// FieldReader returns one corrected field reading in Gauss.
type FieldReader interface {
	ReadField() (r3.Vector, error)
}

// MemoryDevice keeps the record in memory, for sensors that are not on a
// local bus (MQTT or serial sources).
type MemoryDevice struct {
	mu    sync.Mutex
	scale Scale
}

// NewMemoryDevice starts with the identity record.
func NewMemoryDevice() *MemoryDevice {
	return &MemoryDevice{scale: IdentityScale()}
}

func (m *MemoryDevice) Scale() (Scale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scale, nil
}

func (m *MemoryDevice) SetScale(s Scale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scale = s
	return nil
}

func (m *MemoryDevice) CalibrateRange() error {
	return ErrRangeCalibrationUnsupported
}
