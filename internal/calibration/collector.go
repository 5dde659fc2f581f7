// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"fmt"

	"github.com/golang/geo/r3"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/magcal/internal/metrics"
	"github.com/relabs-tech/magcal/internal/rotation"
	"github.com/relabs-tech/magcal/internal/telemetry"
)

var axes = [3]byte{'X', 'Y', 'Z'}

// collect fills buf from sub until the window ends, the buffer is full or
// the last guidance segment expires. Every accepted sample is scored into
// table. It returns the summed gyro rotation angle.
//
// The failure counter covers the whole run; a success does not reset it.
func (o *Orchestrator) collect(sub telemetry.Subscription, buf *SampleBuffer, table rotation.ErrorTable) (float64, error) {
	start := o.clock.Now()
	deadline := start.Add(o.cfg.Window)
	segment := o.cfg.Window / 3

	axis := -1
	axisDeadline := start

	milestone := buf.Cap() / 20
	if milestone < 1 {
		milestone = 1
	}

	var (
		failures  int
		gyroAngle float64
		prev      r3.Vector
		havePrev  bool
		last      = start
	)

	for o.clock.Now().Before(deadline) && !buf.Full() {
		if !o.clock.Now().Before(axisDeadline) {
			if axis == len(axes)-1 {
				break
			}
			axis++
			axisDeadline = axisDeadline.Add(segment)
			o.setPhase(samplingPhase(axis))
			o.fb.Info(fmt.Sprintf(msgRotatePrompt, axes[axis]))
			o.fb.Tune()
		}

		s, status, err := sub.Wait(o.cfg.PollTimeout)
		if status != telemetry.SampleReady {
			failures++
			metrics.PollFailed()
			log.Debugf("calibration: sample wait %s (%d): %v", status, failures, err)
			if failures > o.cfg.MaxPollFailures {
				o.fb.Emergency(msgSensorFailed)
				return 0, fmt.Errorf("%w: %d failed waits", ErrSensorUnavailable, failures)
			}
			continue
		}

		now := o.clock.Now()
		dt := now.Sub(last).Seconds()
		last = now
		if !havePrev {
			prev = s.Field
			havePrev = true
		}

		buf.Append(s.Field)
		gyroAngle += o.est.Accumulate(dt, s.Field, s.Rate, prev, table)
		prev = s.Field
		metrics.SampleAccepted()

		if n := buf.Len(); n%milestone == 0 {
			o.report(20 + n*50/buf.Cap())
		}
	}
	return gyroAngle, nil
}
