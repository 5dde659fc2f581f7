package spherefit

import (
	"math"
	"testing"
)

// spherePoints spreads n points over a sphere with a Fibonacci lattice.
func spherePoints(n int, cx, cy, cz, r float64) (x, y, z []float64) {
	golden := math.Pi * (3 - math.Sqrt(5))
	for i := 0; i < n; i++ {
		v := 1 - 2*(float64(i)+0.5)/float64(n)
		rad := math.Sqrt(1 - v*v)
		th := golden * float64(i)
		x = append(x, cx+r*rad*math.Cos(th))
		y = append(y, cy+r*rad*math.Sin(th))
		z = append(z, cz+r*v)
	}
	return x, y, z
}

func TestFitRecoversSphere(t *testing.T) {
	x, y, z := spherePoints(300, 0.12, -0.34, 0.05, 0.48)

	res := Fit(x, y, z, len(x), 100, 0)
	if !res.Finite() {
		t.Fatalf("fit not finite: %+v", res)
	}
	const tol = 1e-6
	if math.Abs(res.X-0.12) > tol || math.Abs(res.Y+0.34) > tol || math.Abs(res.Z-0.05) > tol {
		t.Errorf("center = (%f, %f, %f)", res.X, res.Y, res.Z)
	}
	if math.Abs(res.Radius-0.48) > tol {
		t.Errorf("radius = %f", res.Radius)
	}
}

func TestFitStopsAtTolerance(t *testing.T) {
	x, y, z := spherePoints(100, 1, 2, 3, 0.5)
	res := Fit(x, y, z, len(x), 100, 1e-9)
	if res.Iterations >= 100 {
		t.Errorf("expected early convergence, ran %d iterations", res.Iterations)
	}
}

func TestFitUsesOnlyFirstN(t *testing.T) {
	x, y, z := spherePoints(200, 0, 0, 0, 1)
	// Garbage beyond n must be ignored.
	x = append(x, 1e6, -1e6)
	y = append(y, 1e6, 3)
	z = append(z, -1e6, 7)

	res := Fit(x, y, z, 200, 100, 0)
	if math.Abs(res.X) > 1e-6 || math.Abs(res.Radius-1) > 1e-6 {
		t.Errorf("fit used points beyond n: %+v", res)
	}
}

func TestFitDegenerateInputIsNotFinite(t *testing.T) {
	tests := []struct {
		name    string
		x, y, z []float64
	}{
		{"too few points", []float64{1, 2, 3}, []float64{1, 2, 3}, []float64{1, 2, 3}},
		{"identical points", []float64{1, 1, 1, 1, 1}, []float64{2, 2, 2, 2, 2}, []float64{3, 3, 3, 3, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := Fit(tt.x, tt.y, tt.z, len(tt.x), 100, 0); res.Finite() {
				t.Errorf("expected non-finite result, got %+v", res)
			}
		})
	}
}
