// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package telemetry delivers paired magnetometer/gyro samples to the
// calibration through a subscribe-and-wait interface.
package telemetry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/relabs-tech/magcal/internal/imu"
)

// WaitStatus is the outcome of one bounded wait.
type WaitStatus int

const (
	SampleReady WaitStatus = iota
	WaitTimeout
	WaitError
)

func (s WaitStatus) String() string {
	switch s {
	case SampleReady:
		return "ready"
	case WaitTimeout:
		return "timeout"
	case WaitError:
		return "error"
	}
	return fmt.Sprintf("WaitStatus(%d)", int(s))
}

// ErrClosed is returned by Wait after Close.
var ErrClosed = errors.New("telemetry: subscription closed")

// Subscription yields samples until closed.
type Subscription interface {
	// Wait blocks up to timeout for the next sample. The error is non-nil
	// only with WaitError.
	Wait(timeout time.Duration) (imu.Sample, WaitStatus, error)
	Close() error
}

// Bus opens subscriptions. interval is the requested minimum spacing
// between samples; sources that cannot throttle may ignore it.
type Bus interface {
	Subscribe(interval time.Duration) (Subscription, error)
}

// feed is a one-slot latest-sample mailbox shared by the bus
// implementations. Producers never block.
type feed struct {
	samples   chan imu.Sample
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
	onClose   func() error
	closeErr  error
}

func newFeed(onClose func() error) *feed {
	return &feed{
		samples: make(chan imu.Sample, 1),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

// push stores s, replacing any sample not yet consumed.
func (f *feed) push(s imu.Sample) {
	select {
	case f.samples <- s:
		return
	default:
	}
	select {
	case <-f.samples:
	default:
	}
	select {
	case f.samples <- s:
	default:
	}
}

// fail reports a source error to the next Wait, dropping it if one is pending.
func (f *feed) fail(err error) {
	select {
	case f.errs <- err:
	default:
	}
}

func (f *feed) closed() <-chan struct{} { return f.done }

func (f *feed) Wait(timeout time.Duration) (imu.Sample, WaitStatus, error) {
	select {
	case <-f.done:
		return imu.Sample{}, WaitError, ErrClosed
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s := <-f.samples:
		return s, SampleReady, nil
	case err := <-f.errs:
		return imu.Sample{}, WaitError, err
	case <-timer.C:
		return imu.Sample{}, WaitTimeout, nil
	case <-f.done:
		return imu.Sample{}, WaitError, ErrClosed
	}
}

func (f *feed) Close() error {
	f.closeOnce.Do(func() {
		close(f.done)
		if f.onClose != nil {
			f.closeErr = f.onClose()
		}
	})
	return f.closeErr
}
