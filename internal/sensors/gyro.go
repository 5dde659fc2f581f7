// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors wraps the local gyroscope used to pair angular rate with
// magnetometer samples.
package sensors

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// rotationReader is the subset of the MPU9250 driver the gyro uses.
type rotationReader interface {
	GetRotationX() (int16, error)
	GetRotationY() (int16, error)
	GetRotationZ() (int16, error)
}

// Gyro reads angular rate from an MPU9250 over SPI.
type Gyro struct {
	dev       rotationReader
	lsbPerDPS float64
}

// NewGyro initializes the MPU9250 on spiDev with chip select csPin.
// lsbPerDPS must match the configured full-scale range (131 for ±250°/s).
func NewGyro(spiDev, csPin string, lsbPerDPS float64) (*Gyro, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gyro: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("gyro: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("gyro: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("gyro: device creation: %w", err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("gyro: initialization: %w", err)
	}
	log.Printf("gyro: MPU9250 ready on %s (CS %s, %.1f LSB/dps)", spiDev, csPin, lsbPerDPS)

	return newGyro(dev, lsbPerDPS), nil
}

func newGyro(dev rotationReader, lsbPerDPS float64) *Gyro {
	return &Gyro{dev: dev, lsbPerDPS: lsbPerDPS}
}

// ReadRate returns the body rate in rad/s.
func (g *Gyro) ReadRate() (r3.Vector, error) {
	gx, err := g.dev.GetRotationX()
	if err != nil {
		return r3.Vector{}, fmt.Errorf("gyro X: %w", err)
	}
	gy, err := g.dev.GetRotationY()
	if err != nil {
		return r3.Vector{}, fmt.Errorf("gyro Y: %w", err)
	}
	gz, err := g.dev.GetRotationZ()
	if err != nil {
		return r3.Vector{}, fmt.Errorf("gyro Z: %w", err)
	}
	return r3.Vector{
		X: g.toRadians(gx),
		Y: g.toRadians(gy),
		Z: g.toRadians(gz),
	}, nil
}

func (g *Gyro) toRadians(counts int16) float64 {
	return float64(counts) / g.lsbPerDPS * math.Pi / 180
}
