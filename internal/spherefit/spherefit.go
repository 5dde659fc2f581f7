// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package spherefit estimates the sphere that best fits a cloud of
// magnetometer readings. Its center is the hard-iron offset.
package spherefit

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Result is a fitted sphere. Components are NaN when the fit failed.
type Result struct {
	X, Y, Z    float64 // center
	Radius     float64
	Iterations int
}

// Finite reports whether all center components are finite numbers.
func (r Result) Finite() bool {
	return isFinite(r.X) && isFinite(r.Y) && isFinite(r.Z)
}

func failed(iter int) Result {
	nan := math.NaN()
	return Result{X: nan, Y: nan, Z: nan, Radius: nan, Iterations: iter}
}

// Fit runs a Gauss-Newton least squares fit of Σ(‖p−c‖ − r)² over the first
// n points of x, y, z. It starts from the centroid and the mean distance to
// it, and stops after maxIter steps or once the step norm is <= tol.
func Fit(x, y, z []float64, n, maxIter int, tol float64) Result {
	if n > len(x) {
		n = len(x)
	}
	if n > len(y) {
		n = len(y)
	}
	if n > len(z) {
		n = len(z)
	}
	if n < 4 {
		return failed(0)
	}

	var cx, cy, cz float64
	for i := 0; i < n; i++ {
		cx += x[i]
		cy += y[i]
		cz += z[i]
	}
	cx /= float64(n)
	cy /= float64(n)
	cz /= float64(n)

	var r float64
	for i := 0; i < n; i++ {
		r += math.Sqrt(sq(x[i]-cx) + sq(y[i]-cy) + sq(z[i]-cz))
	}
	r /= float64(n)

	jac := mat.NewDense(n, 4, nil)
	res := mat.NewVecDense(n, nil)
	var jtj mat.Dense
	var jtr, step mat.VecDense

	iter := 0
	for iter < maxIter {
		iter++
		for i := 0; i < n; i++ {
			dx, dy, dz := x[i]-cx, y[i]-cy, z[i]-cz
			d := math.Sqrt(dx*dx + dy*dy + dz*dz)
			if d == 0 {
				jac.SetRow(i, []float64{0, 0, 0, -1})
			} else {
				jac.SetRow(i, []float64{-dx / d, -dy / d, -dz / d, -1})
			}
			res.SetVec(i, r-d)
		}

		// (JᵀJ)·δ = Jᵀ·(r−d)
		jtj.Mul(jac.T(), jac)
		jtr.MulVec(jac.T(), res)
		if err := step.SolveVec(&jtj, &jtr); err != nil {
			return failed(iter)
		}

		cx += step.AtVec(0)
		cy += step.AtVec(1)
		cz += step.AtVec(2)
		r += step.AtVec(3)

		if mat.Norm(&step, 2) <= tol {
			break
		}
	}

	return Result{X: cx, Y: cy, Z: cz, Radius: r, Iterations: iter}
}

func sq(v float64) float64 { return v * v }

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
