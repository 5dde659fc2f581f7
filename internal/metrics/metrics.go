// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics exports calibration state to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	phase = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "magcal_phase",
		Help: "Current calibration phase (ordinal).",
	})
	progress = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "magcal_progress_percent",
		Help: "Last reported calibration progress.",
	})
	samples = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "magcal_samples_total",
		Help: "Magnetometer samples accepted into the calibration buffer.",
	})
	pollFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "magcal_poll_failures_total",
		Help: "Sensor waits that timed out or failed.",
	})
	rotation = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "magcal_rotation_index",
		Help: "Selected mounting rotation of the last run.",
	})
	radius = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "magcal_sphere_radius_gauss",
		Help: "Fitted field radius of the last run.",
	})
	runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "magcal_runs_total",
			Help: "Finished calibration runs by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(phase)
	prometheus.MustRegister(progress)
	prometheus.MustRegister(samples)
	prometheus.MustRegister(pollFailures)
	prometheus.MustRegister(rotation)
	prometheus.MustRegister(radius)
	prometheus.MustRegister(runs)
}

// SetPhase records the orchestrator phase as its numeric value.
func SetPhase(p int) { phase.Set(float64(p)) }

// SetProgress records the last progress milestone.
func SetProgress(pct int) { progress.Set(float64(pct)) }

// SampleAccepted counts one buffered reading.
func SampleAccepted() { samples.Inc() }

// PollFailed counts one timed out or failed wait.
func PollFailed() { pollFailures.Inc() }

// SetRotation records the selected rotation index.
func SetRotation(idx int) { rotation.Set(float64(idx)) }

// SetRadius records the fitted sphere radius in Gauss.
func SetRadius(r float64) { radius.Set(r) }

// RunFinished counts a finished run labelled "success" or "failed".
func RunFinished(result string) { runs.With(prometheus.Labels{"result": result}).Inc() }

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
