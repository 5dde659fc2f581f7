// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration runs the magnetometer calibration: guided sampling,
// sphere fit, mounting rotation detection and commit of the result.
package calibration

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/magcal/internal/feedback"
	"github.com/relabs-tech/magcal/internal/magdev"
	"github.com/relabs-tech/magcal/internal/metrics"
	"github.com/relabs-tech/magcal/internal/rotation"
	"github.com/relabs-tech/magcal/internal/spherefit"
	"github.com/relabs-tech/magcal/internal/telemetry"
)

// Config controls one calibration run.
type Config struct {
	Window          time.Duration // total guided sampling time
	Capacity        int           // sample buffer size
	PollTimeout     time.Duration // per-sample wait
	MaxPollFailures int           // failed waits tolerated over the whole run
	FitMaxIter      int
	FitTolerance    float64
	// Candidates defaults to rotation.Library().
	Candidates []rotation.Candidate
}

// DefaultConfig is a 20 s window with 1000 samples.
func DefaultConfig() Config {
	return Config{
		Window:          20 * time.Second,
		Capacity:        1000,
		PollTimeout:     time.Second,
		MaxPollFailures: 1000,
		FitMaxIter:      100,
		FitTolerance:    0,
	}
}

// Result is the outcome of a successful run.
type Result struct {
	Offset     r3.Vector          `json:"offset"` // Gauss
	Scale      r3.Vector          `json:"scale"`
	Radius     float64            `json:"radius"`
	Rotation   int                `json:"rotation"`
	Candidate  rotation.Candidate `json:"candidate"`
	Samples    int                `json:"samples"`
	Errors     []float64          `json:"errors"`
	GyroAngle  float64            `json:"gyro_angle"` // integrated rotation, rad
	Iterations int                `json:"iterations"`
	Finished   time.Time          `json:"finished"`
}

// FitFunc fits a sphere to the first n points.
type FitFunc func(x, y, z []float64, n, maxIter int, tol float64) spherefit.Result

// Clock supplies the time used for deadlines and sample spacing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Orchestrator drives a calibration run. A value may be reused for
// several sequential runs but not concurrently.
type Orchestrator struct {
	cfg      Config
	bus      telemetry.Bus
	dev      magdev.ScaleDevice
	store    ParamStore
	fb       feedback.Channel
	fit      FitFunc
	clock    Clock
	est      *rotation.Estimator
	newBuf   func(int) (*SampleBuffer, error)
	mu       sync.Mutex
	phase    Phase
	progress int
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(o *Orchestrator) { o.clock = c } }

// WithFitter replaces spherefit.Fit.
func WithFitter(f FitFunc) Option { return func(o *Orchestrator) { o.fit = f } }

// New builds an orchestrator over its collaborators.
func New(cfg Config, bus telemetry.Bus, dev magdev.ScaleDevice, store ParamStore, fb feedback.Channel, opts ...Option) *Orchestrator {
	cands := cfg.Candidates
	if len(cands) == 0 {
		cands = rotation.Library()
	}
	o := &Orchestrator{
		cfg:    cfg,
		bus:    bus,
		dev:    dev,
		store:  store,
		fb:     fb,
		fit:    spherefit.Fit,
		clock:  systemClock{},
		est:    rotation.NewEstimator(cands),
		newBuf: NewSampleBuffer,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
	metrics.SetPhase(int(p))
	log.Debugf("calibration: phase %s", p)
}

// report sends a progress milestone, clamped to [0,100] and never below
// the last one sent.
func (o *Orchestrator) report(pct int) {
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}
	o.mu.Lock()
	if pct < o.progress {
		pct = o.progress
	}
	o.progress = pct
	o.mu.Unlock()
	metrics.SetProgress(pct)
	o.fb.Progress(pct)
}

// Run performs one complete calibration. On failure the returned error
// wraps one of the package sentinels and the matching message has been
// sent to the feedback channel.
func (o *Orchestrator) Run() (res *Result, err error) {
	o.mu.Lock()
	o.progress = 0
	o.mu.Unlock()

	defer func() {
		if err != nil {
			o.setPhase(PhaseFailed)
			metrics.RunFinished("failed")
			log.Printf("calibration: run failed: %v", err)
			return
		}
		o.setPhase(PhaseComplete)
		metrics.RunFinished("success")
	}()

	interval := o.cfg.Window
	if o.cfg.Capacity > 0 {
		interval = o.cfg.Window / time.Duration(o.cfg.Capacity)
	}
	sub, err := o.bus.Subscribe(interval)
	if err != nil {
		o.fb.Emergency(msgSensorFailed)
		return nil, fmt.Errorf("%w: subscribe: %v", ErrSensorUnavailable, err)
	}
	defer func() {
		if cerr := sub.Close(); cerr != nil {
			log.Warnf("calibration: closing subscription: %v", cerr)
		}
	}()

	o.setPhase(PhaseHardwareScaleReset)
	if err := o.dev.SetScale(magdev.IdentityScale()); err != nil {
		log.Warnf("calibration: reset scale failed: %v", err)
		o.fb.Info("failed to reset mag scale / offsets")
	}

	o.setPhase(PhaseHardwareScaleCalibrate)
	if err := o.dev.CalibrateRange(); err != nil {
		log.Warnf("calibration: range calibration skipped: %v", err)
	}
	o.report(20)

	buf, err := o.newBuf(o.cfg.Capacity)
	if err != nil {
		o.fb.Emergency(msgOutOfMemory)
		return nil, err
	}
	defer buf.Release()

	table := rotation.NewErrorTable(o.est.Len())
	gyroAngle, err := o.collect(sub, buf, table)
	if err != nil {
		return nil, err
	}
	log.Printf("calibration: collected %d samples", buf.Len())
	o.report(70)

	o.setPhase(PhaseSphereFit)
	x, y, z := buf.Columns()
	n := buf.Len()
	fit := o.fit(x, y, z, n, o.cfg.FitMaxIter, o.cfg.FitTolerance)
	buf.Release()
	o.report(80)

	o.setPhase(PhaseRotationSelect)
	idx, minErr := table.Best()
	o.fb.Info(fmt.Sprintf(msgRotationFound, idx))
	metrics.SetRotation(idx)
	log.Printf("calibration: rotation #%d error %.3f", idx, minErr)

	if !fit.Finite() {
		o.fb.Emergency(msgNaNFit)
		return nil, fmt.Errorf("%w: offset (%v, %v, %v)", ErrNonFiniteFit, fit.X, fit.Y, fit.Z)
	}
	metrics.SetRadius(fit.Radius)

	res = &Result{
		Offset:     r3.Vector{X: fit.X, Y: fit.Y, Z: fit.Z},
		Radius:     fit.Radius,
		Rotation:   idx,
		Candidate:  o.est.Candidates()[idx],
		Samples:    n,
		Errors:     table.Snapshot(),
		GyroAngle:  gyroAngle,
		Iterations: fit.Iterations,
	}

	o.setPhase(PhaseCommit)
	c := &Committer{Device: o.dev, Params: o.store, Feedback: o.fb, Progress: o.report}
	if err := c.Commit(res); err != nil {
		return nil, err
	}

	o.fb.Info(fmt.Sprintf("mag off: x:%.2f y:%.2f z:%.2f Ga", res.Offset.X, res.Offset.Y, res.Offset.Z))
	o.fb.Info(fmt.Sprintf("mag scale: x:%.2f y:%.2f z:%.2f", res.Scale.X, res.Scale.Y, res.Scale.Z))
	o.fb.Info(msgCompleted)
	o.report(100)

	res.Finished = o.clock.Now()
	return res, nil
}
