// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package feedback carries calibration messages and progress to the user.
package feedback

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Channel receives user-facing calibration feedback. Implementations must
// not block the caller for long.
type Channel interface {
	Info(msg string)
	Emergency(msg string)
	Progress(pct int)
	Tune()
}

// Event is the serialized form of one feedback call.
type Event struct {
	Type     string    `json:"type"` // info, emergency, progress, tune
	Message  string    `json:"message,omitempty"`
	Progress int       `json:"progress,omitempty"`
	Time     time.Time `json:"time"`
}

const (
	TypeInfo      = "info"
	TypeEmergency = "emergency"
	TypeProgress  = "progress"
	TypeTune      = "tune"
)

// eventSink adapts a func(Event) to Channel.
type eventSink func(Event)

func (f eventSink) Info(msg string) {
	f(Event{Type: TypeInfo, Message: msg, Time: time.Now()})
}

func (f eventSink) Emergency(msg string) {
	f(Event{Type: TypeEmergency, Message: msg, Time: time.Now()})
}

func (f eventSink) Progress(pct int) {
	f(Event{Type: TypeProgress, Progress: pct, Time: time.Now()})
}

func (f eventSink) Tune() {
	f(Event{Type: TypeTune, Time: time.Now()})
}

// LogSink writes feedback to the log.
type LogSink struct{}

func (LogSink) Info(msg string)      { log.Infof("calibration: %s", msg) }
func (LogSink) Emergency(msg string) { log.Errorf("calibration: %s", msg) }
func (LogSink) Progress(pct int)     { log.Infof("calibration: progress <%d>", pct) }
func (LogSink) Tune()                { log.Debug("calibration: tune") }

// Multi fans out every call to all channels in order.
type Multi []Channel

func (m Multi) Info(msg string) {
	for _, c := range m {
		c.Info(msg)
	}
}

func (m Multi) Emergency(msg string) {
	for _, c := range m {
		c.Emergency(msg)
	}
}

func (m Multi) Progress(pct int) {
	for _, c := range m {
		c.Progress(pct)
	}
}

func (m Multi) Tune() {
	for _, c := range m {
		c.Tune()
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *Recorder) Info(msg string)      { eventSink(r.record).Info(msg) }
func (r *Recorder) Emergency(msg string) { eventSink(r.record).Emergency(msg) }
func (r *Recorder) Progress(pct int)     { eventSink(r.record).Progress(pct) }
func (r *Recorder) Tune()                { eventSink(r.record).Tune() }

// Events returns a copy of everything recorded.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Messages returns the text of recorded events of the given type.
func (r *Recorder) Messages(typ string) []string {
	var out []string
	for _, e := range r.Events() {
		if e.Type == typ {
			out = append(out, e.Message)
		}
	}
	return out
}

// ProgressValues returns the recorded progress values in order.
func (r *Recorder) ProgressValues() []int {
	var out []int
	for _, e := range r.Events() {
		if e.Type == TypeProgress {
			out = append(out, e.Progress)
		}
	}
	return out
}
