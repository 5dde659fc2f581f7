package sensors

import (
	"errors"
	"math"
	"testing"
)

type fakeMPU struct {
	x, y, z int16
	errY    error
}

func (f fakeMPU) GetRotationX() (int16, error) { return f.x, nil }
func (f fakeMPU) GetRotationY() (int16, error) { return f.y, f.errY }
func (f fakeMPU) GetRotationZ() (int16, error) { return f.z, nil }

func TestReadRateConvertsToRadians(t *testing.T) {
	g := newGyro(fakeMPU{x: 131, y: -262, z: 0}, 131)
	r, err := g.ReadRate()
	if err != nil {
		t.Fatal(err)
	}
	deg := math.Pi / 180
	if math.Abs(r.X-deg) > 1e-12 || math.Abs(r.Y+2*deg) > 1e-12 || r.Z != 0 {
		t.Errorf("rate = %v", r)
	}
}

func TestReadRateError(t *testing.T) {
	boom := errors.New("spi")
	g := newGyro(fakeMPU{errY: boom}, 131)
	if _, err := g.ReadRate(); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}
