// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"fmt"

	"github.com/golang/geo/r3"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/magcal/internal/feedback"
	"github.com/relabs-tech/magcal/internal/magdev"
	"github.com/relabs-tech/magcal/internal/params"
)

// ParamStore is the parameter persistence the committer writes to.
// Sets are in-memory; Save makes them durable.
type ParamStore interface {
	SetInt(name string, v int64) error
	SetFloat(name string, v float64) error
	Save() error
}

// Committer pushes a finite calibration result to the device and the
// parameter store.
type Committer struct {
	Device   magdev.ScaleDevice
	Params   ParamStore
	Feedback feedback.Channel
	// Progress receives the pre-save milestone; may be nil.
	Progress func(int)
}

// Commit writes res. Device and individual parameter failures are logged
// and skipped; only a failed Save is returned. res.Scale is filled from the
// device record.
func (c *Committer) Commit(res *Result) error {
	scale, err := c.Device.Scale()
	if err != nil {
		log.Warnf("calibration: read scale failed: %v", err)
		c.Feedback.Info("failed to read mag scale / offsets")
		scale = magdev.IdentityScale()
	}

	scale.XOffset = res.Offset.X
	scale.YOffset = res.Offset.Y
	scale.ZOffset = res.Offset.Z

	if err := c.Device.SetScale(scale); err != nil {
		log.Warnf("calibration: apply scale failed: %v", err)
		c.Feedback.Info("failed to apply mag scale / offsets")
	}
	res.Scale = r3.Vector{X: scale.XScale, Y: scale.YScale, Z: scale.ZScale}

	c.setInt(params.MagExtRot, int64(res.Rotation))
	c.setFloat(params.MagXOff, scale.XOffset)
	c.setFloat(params.MagYOff, scale.YOffset)
	c.setFloat(params.MagZOff, scale.ZOffset)
	c.setFloat(params.MagXScale, scale.XScale)
	c.setFloat(params.MagYScale, scale.YScale)
	c.setFloat(params.MagZScale, scale.ZScale)

	if c.Progress != nil {
		c.Progress(90)
	}

	// In-memory values stay set even if this fails.
	if err := c.Params.Save(); err != nil {
		log.Errorf("calibration: save parameters: %v", err)
		c.Feedback.Emergency(msgStoreFailed)
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	return nil
}

func (c *Committer) setInt(name string, v int64) {
	if err := c.Params.SetInt(name, v); err != nil {
		log.Warnf("calibration: set %s: %v", name, err)
		c.Feedback.Info(fmt.Sprintf("failed to set %s", name))
	}
}

func (c *Committer) setFloat(name string, v float64) {
	if err := c.Params.SetFloat(name, v); err != nil {
		log.Warnf("calibration: set %s: %v", name, err)
		c.Feedback.Info(fmt.Sprintf("failed to set %s", name))
	}
}
