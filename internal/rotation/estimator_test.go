package rotation

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

const eps = 1e-9

func TestLibraryShape(t *testing.T) {
	lib := Library()
	if len(lib) != NumCandidates {
		t.Fatalf("library has %d entries, want %d", len(lib), NumCandidates)
	}
	if lib[0] != (Candidate{0, 0, 0}) {
		t.Errorf("index 0 = %v, want identity", lib[0])
	}
	if lib[12] != (Candidate{0, 180, 0}) {
		t.Errorf("index 12 = %v, want pitch 180", lib[12])
	}
	if lib[36] != (Candidate{90, 180, 90}) {
		t.Errorf("index 36 = %v", lib[36])
	}

	lib[0].Yaw = 99
	if Library()[0].Yaw != 0 {
		t.Error("Library must return a copy")
	}

	skipped := 0
	for _, c := range Library() {
		if !c.RightAngle() {
			skipped++
		}
	}
	if skipped != 12 {
		t.Errorf("%d non right-angle candidates, want 12", skipped)
	}
}

func TestCandidateMatrixOrthonormal(t *testing.T) {
	for i, c := range Library() {
		r := c.Matrix()
		var rtr mat.Dense
		rtr.Mul(r.T(), r)
		if !mat.EqualApprox(&rtr, identity(), eps) {
			t.Errorf("candidate %d (%v): RᵀR is not identity", i, c)
		}
		if d := mat.Det(r); math.Abs(d-1) > eps {
			t.Errorf("candidate %d (%v): det = %f", i, c, d)
		}
	}
}

func TestStaticFieldIdentityScoresZero(t *testing.T) {
	est := NewEstimator(Library())
	table := NewErrorTable(est.Len())
	field := r3.Vector{X: 0.21, Y: -0.07, Z: 0.43}

	for i := 0; i < 50; i++ {
		est.Accumulate(0.02, field, r3.Vector{}, field, table)
		if table[0] != 0 {
			t.Fatalf("identity error after %d samples = %g", i+1, table[0])
		}
	}
	if len(table) != NumCandidates {
		t.Fatalf("table size changed to %d", len(table))
	}

	idx, minErr := table.Best()
	if idx != 0 || minErr != 0 {
		t.Errorf("Best() = %d, %g; want 0, 0", idx, minErr)
	}
	for i, c := range Library() {
		if c.RightAngle() && i != 0 && table[i] <= 0 {
			t.Errorf("candidate %d (%v) scored %g for a generic field", i, c, table[i])
		}
	}
}

func TestSkipsNonRightAngleCandidates(t *testing.T) {
	cands := []Candidate{{0, 0, 90}, {45, 0, 0}, {0, 30, 0}, {180, 0, 0}}
	est := NewEstimator(cands)
	table := ErrorTable{1.5, 2.5, 3.5, 4.5}

	est.Accumulate(0.1, r3.Vector{X: 1, Y: 1, Z: 1}, r3.Vector{X: 0.3}, r3.Vector{}, table)

	if table[1] != 2.5 || table[2] != 3.5 {
		t.Errorf("skipped entries changed: %v", table)
	}
	if table[0] <= 1.5 || table[3] <= 4.5 {
		t.Errorf("right-angle entries did not grow: %v", table)
	}
}

func TestAccumulateIsMonotonic(t *testing.T) {
	est := NewEstimator(Library())
	table := NewErrorTable(est.Len())
	last := r3.Vector{X: 0.3, Y: 0.1, Z: -0.2}
	for i := 0; i < 20; i++ {
		prev := table.Snapshot()
		f := r3.Vector{X: math.Cos(float64(i)), Y: math.Sin(float64(i)), Z: 0.4}
		est.Accumulate(0.02, f, r3.Vector{Z: 1}, last, table)
		last = f
		for j := range table {
			if table[j] < prev[j] {
				t.Fatalf("entry %d decreased: %g -> %g", j, prev[j], table[j])
			}
		}
	}
}

func TestBestTieGoesToLowestIndex(t *testing.T) {
	tests := []struct {
		name  string
		table ErrorTable
		want  int
	}{
		{"single minimum", ErrorTable{3, 2, 1, 4}, 2},
		{"tie", ErrorTable{3, 1, 1, 2}, 1},
		{"all equal", ErrorTable{5, 5, 5}, 0},
		{"all NaN", ErrorTable{math.NaN(), math.NaN()}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := tt.table.Best(); got != tt.want {
				t.Errorf("Best() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTieBetweenScoredCandidates(t *testing.T) {
	// yaw 90 and yaw 270 both leave a vertical field unchanged.
	est := NewEstimator([]Candidate{{180, 0, 0}, {0, 0, 90}, {0, 0, 270}})
	table := NewErrorTable(est.Len())
	f := r3.Vector{Z: 2}
	est.Accumulate(0.02, f, r3.Vector{}, f, table)

	if math.Abs(table[0]-4) > eps {
		t.Errorf("roll 180 error = %g, want 4", table[0])
	}
	if idx, _ := table.Best(); idx != 1 {
		t.Errorf("Best() = %d, want 1", idx)
	}
}

func TestAccumulateReturnsGyroAngle(t *testing.T) {
	est := NewEstimator(Library())
	table := NewErrorTable(est.Len())
	angle := est.Accumulate(0.5, r3.Vector{X: 1}, r3.Vector{Z: 1}, r3.Vector{X: 1}, table)
	if math.Abs(angle-0.5) > 1e-6 {
		t.Errorf("angle = %g, want 0.5", angle)
	}
}

func identity() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}
