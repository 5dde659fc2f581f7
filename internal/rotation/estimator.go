// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package rotation

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// ErrorTable accumulates one scalar error per library candidate.
type ErrorTable []float64

// NewErrorTable returns a zeroed table with n entries.
func NewErrorTable(n int) ErrorTable {
	return make(ErrorTable, n)
}

// Best returns the index of the smallest accumulated error. The scan uses a
// strict less-than in index order, so the lowest index wins a tie and index
// 0 is returned when no entry is below math.MaxFloat64 (e.g. all NaN).
func (t ErrorTable) Best() (int, float64) {
	minErr := math.MaxFloat64
	minIdx := 0
	for i, e := range t {
		if e < minErr {
			minIdx = i
			minErr = e
		}
	}
	return minIdx, minErr
}

// Snapshot returns a copy of the table.
func (t ErrorTable) Snapshot() []float64 {
	out := make([]float64, len(t))
	copy(out, t)
	return out
}

// Estimator scores field samples against a fixed set of candidates.
// Candidate matrices are computed once; Accumulate keeps no other state.
type Estimator struct {
	candidates []Candidate
	dcm        []*mat.Dense // nil for candidates that are not right angles
	rtr        []*mat.Dense // Rᵀ·R per candidate
}

// NewEstimator prepares an estimator over the given candidates.
func NewEstimator(candidates []Candidate) *Estimator {
	e := &Estimator{
		candidates: append([]Candidate(nil), candidates...),
		dcm:        make([]*mat.Dense, len(candidates)),
		rtr:        make([]*mat.Dense, len(candidates)),
	}
	for i, c := range e.candidates {
		if !c.RightAngle() {
			continue
		}
		r := c.Matrix()
		var rtr mat.Dense
		rtr.Mul(r.T(), r)
		e.dcm[i] = r
		e.rtr[i] = &rtr
	}
	return e
}

// Len is the number of candidates, and so the required table size.
func (e *Estimator) Len() int { return len(e.candidates) }

// Candidates returns a copy of the scored candidates.
func (e *Estimator) Candidates() []Candidate {
	return append([]Candidate(nil), e.candidates...)
}

// Accumulate adds the error contribution of one field sample to every
// right-angle candidate's entry in table:
//
//	table[i] += ‖R·field − Rᵀ·R·field‖
//
// Entries of other candidates are left untouched. rate is integrated over dt
// into a delta rotation whose angle (rad) is returned; last is the previous
// field sample. Neither changes the score: Rᵀ·R is the identity for every
// candidate, so the second term is always the field itself.
func (e *Estimator) Accumulate(dt float64, field, rate, last r3.Vector, table ErrorTable) float64 {
	delta := eulerDCM(rate.X*dt, rate.Y*dt, rate.Z*dt)
	angle := rotationAngle(delta)

	m := mat.NewVecDense(3, []float64{field.X, field.Y, field.Z})
	var rotated, back, diff mat.VecDense
	for i := range e.candidates {
		if e.dcm[i] == nil {
			continue
		}
		rotated.MulVec(e.dcm[i], m)
		back.MulVec(e.rtr[i], m)
		diff.SubVec(&rotated, &back)
		table[i] += mat.Norm(&diff, 2)
	}
	return angle
}

// Matrix returns the direction cosine matrix of the candidate (ZYX Euler
// order, body to sensor). Multiples of 90° are evaluated exactly.
func (c Candidate) Matrix() *mat.Dense {
	sr, cr := sinCosDeg(c.Roll)
	sp, cp := sinCosDeg(c.Pitch)
	sy, cy := sinCosDeg(c.Yaw)
	return dcm(sr, cr, sp, cp, sy, cy)
}

// eulerDCM builds a direction cosine matrix from roll, pitch, yaw in radians.
func eulerDCM(roll, pitch, yaw float64) *mat.Dense {
	sr, cr := math.Sincos(roll)
	sp, cp := math.Sincos(pitch)
	sy, cy := math.Sincos(yaw)
	return dcm(sr, cr, sp, cp, sy, cy)
}

func dcm(sr, cr, sp, cp, sy, cy float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		cp * cy, -cr*sy + sr*sp*cy, sr*sy + cr*sp*cy,
		cp * sy, cr*cy + sr*sp*sy, -sr*cy + cr*sp*sy,
		-sp, sr * cp, cr * cp,
	})
}

// rotationAngle is the angle of the rotation described by r.
func rotationAngle(r mat.Matrix) float64 {
	c := (mat.Trace(r) - 1) / 2
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}

func sinCosDeg(deg int) (float64, float64) {
	d := ((deg % 360) + 360) % 360
	switch d {
	case 0:
		return 0, 1
	case 90:
		return 1, 0
	case 180:
		return 0, -1
	case 270:
		return -1, 0
	}
	return math.Sincos(float64(d) * math.Pi / 180)
}
