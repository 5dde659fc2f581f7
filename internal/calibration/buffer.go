// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package calibration

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// MaxBufferCapacity bounds a single allocation.
const MaxBufferCapacity = 100000

// SampleBuffer is a fixed-capacity, append-only store of field readings,
// kept as three columns for the sphere fit.
type SampleBuffer struct {
	x, y, z  []float64
	capacity int
	released bool
}

// NewSampleBuffer allocates room for capacity readings.
func NewSampleBuffer(capacity int) (*SampleBuffer, error) {
	if capacity <= 0 || capacity > MaxBufferCapacity {
		return nil, fmt.Errorf("%w: capacity %d", ErrBufferAlloc, capacity)
	}
	return &SampleBuffer{
		x:        make([]float64, 0, capacity),
		y:        make([]float64, 0, capacity),
		z:        make([]float64, 0, capacity),
		capacity: capacity,
	}, nil
}

// Append stores v and reports whether there was room for it.
func (b *SampleBuffer) Append(v r3.Vector) bool {
	if b.released || len(b.x) >= b.capacity {
		return false
	}
	b.x = append(b.x, v.X)
	b.y = append(b.y, v.Y)
	b.z = append(b.z, v.Z)
	return true
}

// Len is the number of stored readings. It drops to zero on Release.
func (b *SampleBuffer) Len() int { return len(b.x) }

// Cap is the capacity requested at allocation.
func (b *SampleBuffer) Cap() int { return b.capacity }

// Full reports whether the buffer holds Cap readings. A released buffer is
// never full.
func (b *SampleBuffer) Full() bool { return !b.released && len(b.x) >= b.capacity }

// Columns returns the stored readings. The slices are only valid until
// Release.
func (b *SampleBuffer) Columns() (x, y, z []float64) {
	return b.x, b.y, b.z
}

// Release drops the storage. The buffer accepts nothing afterwards.
func (b *SampleBuffer) Release() {
	b.x, b.y, b.z = nil, nil, nil
	b.released = true
}

func (b *SampleBuffer) Released() bool { return b.released }
