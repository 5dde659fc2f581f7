package calibration

import (
	"errors"
	"testing"

	"github.com/golang/geo/r3"
)

func TestSampleBuffer(t *testing.T) {
	b, err := NewSampleBuffer(3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if !b.Append(r3.Vector{X: float64(i), Y: 1, Z: 2}) {
			t.Fatalf("append %d rejected", i)
		}
	}
	if b.Append(r3.Vector{}) {
		t.Error("append beyond capacity accepted")
	}
	if b.Len() != 3 || b.Cap() != 3 || !b.Full() {
		t.Errorf("len %d cap %d full %v", b.Len(), b.Cap(), b.Full())
	}
	x, _, z := b.Columns()
	if x[2] != 2 || z[0] != 2 {
		t.Errorf("columns x=%v z=%v", x, z)
	}

	b.Release()
	if !b.Released() || b.Len() != 0 || b.Append(r3.Vector{}) {
		t.Error("buffer usable after release")
	}
	if b.Cap() != 3 || b.Full() {
		t.Errorf("after release: cap %d full %v", b.Cap(), b.Full())
	}
}

func TestSampleBufferAllocation(t *testing.T) {
	for _, n := range []int{0, -5, MaxBufferCapacity + 1} {
		if _, err := NewSampleBuffer(n); !errors.Is(err, ErrBufferAlloc) {
			t.Errorf("capacity %d: err = %v", n, err)
		}
	}
	if _, err := NewSampleBuffer(MaxBufferCapacity); err != nil {
		t.Errorf("max capacity: %v", err)
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseSamplingZ.String() != "sampling_z" || samplingPhase(1) != PhaseSamplingY {
		t.Error("sampling phase names")
	}
	if Phase(99).String() != "Phase(99)" {
		t.Errorf("unknown phase = %q", Phase(99).String())
	}
}
