// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"time"

	"github.com/golang/geo/r3"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/magcal/internal/imu"
	"github.com/relabs-tech/magcal/internal/magdev"
)

// RateReader returns one angular-rate reading in rad/s.
type RateReader interface {
	ReadRate() (r3.Vector, error)
}

// LocalBus polls devices on the local board at the requested interval.
type LocalBus struct {
	Mag  magdev.FieldReader
	Gyro RateReader
}

// NewLocalBus pairs a magnetometer with a gyro.
func NewLocalBus(mag magdev.FieldReader, gyro RateReader) *LocalBus {
	return &LocalBus{Mag: mag, Gyro: gyro}
}

// Subscribe starts a polling goroutine that stops on Close.
func (b *LocalBus) Subscribe(interval time.Duration) (Subscription, error) {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	f := newFeed(nil)
	go b.poll(f, interval)
	log.Debugf("telemetry: local bus polling every %v", interval)
	return f, nil
}

func (b *LocalBus) poll(f *feed, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.closed():
			return
		case t := <-ticker.C:
			field, err := b.Mag.ReadField()
			if err != nil {
				f.fail(err)
				continue
			}
			rate, err := b.Gyro.ReadRate()
			if err != nil {
				f.fail(err)
				continue
			}
			f.push(imu.Sample{Field: field, Rate: rate, Time: t})
		}
	}
}
