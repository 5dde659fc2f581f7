// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package params is a named scalar parameter store with in-memory sets and
// an explicit durable save.
package params

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Names of the magnetometer calibration parameters.
const (
	MagExtRot = "SENS_MAG_EXT_ROT"
	MagXOff   = "SENS_MAG_XOFF"
	MagYOff   = "SENS_MAG_YOFF"
	MagZOff   = "SENS_MAG_ZOFF"
	MagXScale = "SENS_MAG_XSCALE"
	MagYScale = "SENS_MAG_YSCALE"
	MagZScale = "SENS_MAG_ZSCALE"
)

var (
	ErrUnknown      = errors.New("params: unknown parameter")
	ErrKindMismatch = errors.New("params: wrong parameter type")
)

// Kind is the scalar type of a parameter.
type Kind string

const (
	KindInt   Kind = "int"
	KindFloat Kind = "float"
)

// Value is one stored parameter.
type Value struct {
	Name  string  `json:"name"`
	Kind  Kind    `json:"kind"`
	Int   int64   `json:"int,omitempty"`
	Float float64 `json:"float,omitempty"`
}

// Backend persists parameter values.
type Backend interface {
	Load() ([]Value, error)
	Save([]Value) error
}

// Store holds defined parameters. Sets only change memory; Save writes
// everything to the backend.
type Store struct {
	mu      sync.RWMutex
	values  map[string]*Value
	backend Backend
}

// NewStore returns an empty store over backend. A nil backend makes Save
// a no-op.
func NewStore(backend Backend) *Store {
	return &Store{values: make(map[string]*Value), backend: backend}
}

// NewMagStore defines the magnetometer calibration parameters with their
// defaults and loads any saved values.
func NewMagStore(backend Backend) (*Store, error) {
	s := NewStore(backend)
	s.DefineInt(MagExtRot, 0)
	for _, name := range []string{MagXOff, MagYOff, MagZOff} {
		s.DefineFloat(name, 0)
	}
	for _, name := range []string{MagXScale, MagYScale, MagZScale} {
		s.DefineFloat(name, 1)
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) DefineInt(name string, def int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = &Value{Name: name, Kind: KindInt, Int: def}
}

func (s *Store) DefineFloat(name string, def float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = &Value{Name: name, Kind: KindFloat, Float: def}
}

func (s *Store) lookup(name string, kind Kind) (*Value, error) {
	v, ok := s.values[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	if v.Kind != kind {
		return nil, fmt.Errorf("%w: %s is %s", ErrKindMismatch, name, v.Kind)
	}
	return v, nil
}

func (s *Store) SetInt(name string, val int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.lookup(name, KindInt)
	if err != nil {
		return err
	}
	v.Int = val
	return nil
}

func (s *Store) SetFloat(name string, val float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.lookup(name, KindFloat)
	if err != nil {
		return err
	}
	v.Float = val
	return nil
}

func (s *Store) Int(name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, err := s.lookup(name, KindInt)
	if err != nil {
		return 0, err
	}
	return v.Int, nil
}

func (s *Store) Float(name string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, err := s.lookup(name, KindFloat)
	if err != nil {
		return 0, err
	}
	return v.Float, nil
}

// Values returns a snapshot sorted by name.
func (s *Store) Values() []Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Value, 0, len(s.values))
	for _, v := range s.values {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Save writes all values to the backend.
func (s *Store) Save() error {
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Save(s.Values()); err != nil {
		return fmt.Errorf("params: save: %w", err)
	}
	return nil
}

// Load overwrites defined parameters with backend values. Saved names
// that are not defined, or have a different kind, are ignored.
func (s *Store) Load() error {
	if s.backend == nil {
		return nil
	}
	saved, err := s.backend.Load()
	if err != nil {
		return fmt.Errorf("params: load: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sv := range saved {
		if v, ok := s.values[sv.Name]; ok && v.Kind == sv.Kind {
			*v = sv
		}
	}
	return nil
}
