// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
)

// SimSensor is a synthetic magnetometer and gyro on a vehicle tumbling at
// constant Euler angle rates through a fixed earth field. It reads the
// earth field plus Offset, for running a calibration without hardware.
type SimSensor struct {
	Earth  r3.Vector // Gauss, earth frame
	Offset r3.Vector // hard-iron offset added to every reading
	Rates  r3.Vector // roll, pitch, yaw rates in rad/s

	start time.Time
	now   func() time.Time
}

// NewSimSensor starts the tumble now.
func NewSimSensor(offset r3.Vector) *SimSensor {
	return &SimSensor{
		Earth:  r3.Vector{X: 0.21, Y: 0.02, Z: 0.43},
		Offset: offset,
		Rates:  r3.Vector{X: 0.9, Y: 0.55, Z: 0.35},
		start:  time.Now(),
		now:    time.Now,
	}
}

func (s *SimSensor) angles() (roll, pitch, yaw float64) {
	t := s.now().Sub(s.start).Seconds()
	return s.Rates.X * t, s.Rates.Y * t, s.Rates.Z * t
}

// ReadField returns the earth field seen in the body frame, plus Offset.
func (s *SimSensor) ReadField() (r3.Vector, error) {
	roll, pitch, yaw := s.angles()
	b := rotZ(s.Earth, -yaw)
	b = rotY(b, -pitch)
	b = rotX(b, -roll)
	return b.Add(s.Offset), nil
}

// ReadRate returns the Euler angle rates.
func (s *SimSensor) ReadRate() (r3.Vector, error) {
	return s.Rates, nil
}

func rotX(v r3.Vector, a float64) r3.Vector {
	sn, cs := math.Sincos(a)
	return r3.Vector{X: v.X, Y: cs*v.Y - sn*v.Z, Z: sn*v.Y + cs*v.Z}
}

func rotY(v r3.Vector, a float64) r3.Vector {
	sn, cs := math.Sincos(a)
	return r3.Vector{X: cs*v.X + sn*v.Z, Y: v.Y, Z: -sn*v.X + cs*v.Z}
}

func rotZ(v r3.Vector, a float64) r3.Vector {
	sn, cs := math.Sincos(a)
	return r3.Vector{X: cs*v.X - sn*v.Y, Y: sn*v.X + cs*v.Y, Z: v.Z}
}
