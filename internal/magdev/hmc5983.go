// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package magdev

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"periph.io/x/conn/v3/i2c"
)

// I2C register map for HMC5983/HMC5883L.
const (
	regCRA    = 0x00
	regCRB    = 0x01
	regMODE   = 0x02
	regDATA   = 0x03 // X MSB, X LSB, Z MSB, Z LSB, Y MSB, Y LSB
	regSTATUS = 0x09
	regIDA    = 0x0A
)

const (
	modeContinuous = 0x00
	modeSingle     = 0x01

	biasNormal   = 0x00
	biasPositive = 0x01

	// overflow marker in any data register
	overflow = -4096
)

// DefaultAddr is the fixed HMC5983 I2C address.
const DefaultAddr = 0x1E

// Typical LSB/Gauss per gain code (datasheet).
var (
	gainXY = []int{1370, 1090, 820, 660, 440, 390, 330, 230}
	gainZ  = []int{1330, 980, 660, 600, 400, 355, 295, 205}
)

// Positive-bias self-test excitation in Gauss, and the gain code it is
// measured at.
const (
	selfTestGain    = 5
	selfTestSamples = 10
	selfTestXY      = 1.16
	selfTestZ       = 1.08
	minRangeScale   = 0.7
	maxRangeScale   = 1.35
)

// ErrOverflow is returned when the ADC saturated on any axis.
var ErrOverflow = errors.New("hmc5983: measurement overflow")

// Opts holds initialization options.
//
// ODRHz: output data rate in Hz (maps into CRA bits).
// AvgSamples: sample averaging (1, 2, 4, 8).
// GainCode: 0..7 gain selection (CRB).
// Addr: I2C address, default 0x1E.
type Opts struct {
	ODRHz      int
	AvgSamples int
	GainCode   int
	Addr       uint16
}

// HMC5983 is a magnetometer on I2C holding a software calibration record.
// Readings are returned in Gauss with the record applied.
//
// NOTE: HMC5983 outputs data in order X,Z,Y.
type HMC5983 struct {
	mu    sync.Mutex
	dev   i2c.Dev
	cra   byte
	gain  int
	scale Scale
	sleep func(time.Duration)
}

// NewHMC5983 configures the device for continuous measurement.
func NewHMC5983(bus i2c.Bus, opts Opts) (*HMC5983, error) {
	addr := opts.Addr
	if addr == 0 {
		addr = DefaultAddr
	}
	gc := opts.GainCode
	if gc < 0 || gc > 7 {
		gc = 1 // default ≈1.3 Gauss
	}

	d := &HMC5983{
		dev:   i2c.Dev{Addr: addr, Bus: bus},
		cra:   craFor(opts.AvgSamples, opts.ODRHz),
		gain:  gc,
		scale: IdentityScale(),
		sleep: time.Sleep,
	}

	if err := d.configure(d.cra|biasNormal, d.gain, modeContinuous); err != nil {
		return nil, fmt.Errorf("hmc5983: configure: %w", err)
	}
	// Small settle delay.
	d.sleep(10 * time.Millisecond)
	return d, nil
}

func craFor(avg, odr int) byte {
	cra := byte(0)
	switch avg {
	case 8:
		cra |= 0b11 << 5
	case 4:
		cra |= 0b10 << 5
	case 2:
		cra |= 0b01 << 5
	}
	// ODR bits (4..2)
	switch odr {
	case 220:
		cra |= 0b111 << 2
	case 75:
		cra |= 0b110 << 2
	case 30:
		cra |= 0b101 << 2
	case 7:
		cra |= 0b011 << 2
	case 3:
		cra |= 0b010 << 2
	default: // 15Hz
		cra |= 0b100 << 2
	}
	return cra
}

func (d *HMC5983) configure(cra byte, gain int, mode byte) error {
	if err := d.writeReg(regCRA, cra); err != nil {
		return err
	}
	if err := d.writeReg(regCRB, byte(gain)<<5); err != nil {
		return err
	}
	return d.writeReg(regMODE, mode)
}

// ID returns the three identity bytes, expected 'H','4','3'.
func (d *HMC5983) ID() (byte, byte, byte, error) {
	buf := make([]byte, 3)
	if err := d.readRegBlock(regIDA, buf); err != nil {
		return 0, 0, 0, err
	}
	return buf[0], buf[1], buf[2], nil
}

// senseRaw reads raw counts (X,Z,Y order) and returns X,Y,Z.
func (d *HMC5983) senseRaw() (int16, int16, int16, error) {
	data := make([]byte, 6)
	if err := d.readRegBlock(regDATA, data); err != nil {
		return 0, 0, 0, err
	}
	x := int16(data[0])<<8 | int16(data[1])
	z := int16(data[2])<<8 | int16(data[3])
	y := int16(data[4])<<8 | int16(data[5])
	if x == overflow || y == overflow || z == overflow {
		return x, y, z, ErrOverflow
	}
	return x, y, z, nil
}

func toGauss(x, y, z int16, gain int) r3.Vector {
	return r3.Vector{
		X: float64(x) / float64(gainXY[gain]),
		Y: float64(y) / float64(gainXY[gain]),
		Z: float64(z) / float64(gainZ[gain]),
	}
}

// ReadField returns the latest reading in Gauss with the calibration
// record applied.
func (d *HMC5983) ReadField() (r3.Vector, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	x, y, z, err := d.senseRaw()
	if err != nil {
		return r3.Vector{}, err
	}
	return d.scale.Apply(toGauss(x, y, z, d.gain)), nil
}

// Scale returns the current calibration record.
func (d *HMC5983) Scale() (Scale, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scale, nil
}

// SetScale replaces the calibration record.
func (d *HMC5983) SetScale(s Scale) error {
	if !finite(s.XScale) || !finite(s.YScale) || !finite(s.ZScale) ||
		!finite(s.XOffset) || !finite(s.YOffset) || !finite(s.ZOffset) {
		return fmt.Errorf("hmc5983: refusing non-finite scale %+v", s)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scale = s
	return nil
}

// CalibrateRange derives per-axis scale factors from the positive-bias
// self-test: the device excites a known field on each axis, and the scale
// is the ratio of expected to measured field. Offsets are left untouched.
// The device is returned to continuous normal-bias mode either way.
func (d *HMC5983) CalibrateRange() (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	defer func() {
		if rerr := d.configure(d.cra|biasNormal, d.gain, modeContinuous); rerr != nil && err == nil {
			err = fmt.Errorf("hmc5983: restore configuration: %w", rerr)
		}
	}()

	if err := d.configure(d.cra|biasPositive, selfTestGain, modeSingle); err != nil {
		return fmt.Errorf("hmc5983: enter self-test: %w", err)
	}

	var sum r3.Vector
	// The first measurement after a gain change uses the old gain.
	for i := 0; i <= selfTestSamples; i++ {
		if err := d.writeReg(regMODE, modeSingle); err != nil {
			return fmt.Errorf("hmc5983: trigger measurement: %w", err)
		}
		d.sleep(10 * time.Millisecond)
		x, y, z, err := d.senseRaw()
		if err != nil {
			return fmt.Errorf("hmc5983: self-test read: %w", err)
		}
		if i == 0 {
			continue
		}
		sum = sum.Add(toGauss(x, y, z, selfTestGain))
	}
	avg := sum.Mul(1 / float64(selfTestSamples))

	sx, sy, sz := selfTestXY/avg.X, selfTestXY/avg.Y, selfTestZ/avg.Z
	for _, s := range []float64{sx, sy, sz} {
		if !finite(s) || s < minRangeScale || s > maxRangeScale {
			return fmt.Errorf("hmc5983: self-test scale out of range: %.3f %.3f %.3f", sx, sy, sz)
		}
	}
	d.scale.XScale, d.scale.YScale, d.scale.ZScale = sx, sy, sz
	return nil
}

// Status reads the status register.
func (d *HMC5983) Status() (byte, error) {
	b := make([]byte, 1)
	if err := d.readRegBlock(regSTATUS, b); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *HMC5983) writeReg(addr byte, val byte) error {
	return d.dev.Tx([]byte{addr, val}, nil)
}

func (d *HMC5983) readRegBlock(addr byte, out []byte) error {
	if len(out) == 0 {
		return errors.New("readRegBlock: empty buffer")
	}
	return d.dev.Tx([]byte{addr}, out)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
