package magdev

import (
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func initOps() []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: DefaultAddr, W: []byte{regCRA, 0x18}}, // 75Hz, no averaging
		{Addr: DefaultAddr, W: []byte{regCRB, 0x20}}, // gain code 1
		{Addr: DefaultAddr, W: []byte{regMODE, modeContinuous}},
	}
}

func newTestDevice(t *testing.T, ops []i2ctest.IO) (*HMC5983, *i2ctest.Playback) {
	t.Helper()
	bus := &i2ctest.Playback{Ops: append(initOps(), ops...), DontPanic: true}
	d, err := NewHMC5983(bus, Opts{ODRHz: 75, AvgSamples: 1, GainCode: 1})
	if err != nil {
		t.Fatalf("NewHMC5983: %v", err)
	}
	d.sleep = func(time.Duration) {}
	return d, bus
}

func near(a, b r3.Vector) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9 && math.Abs(a.Z-b.Z) < 1e-9
}

func TestReadFieldDecodesXZY(t *testing.T) {
	// X=1090, Z=980, Y=-545 counts at gain code 1.
	data := []byte{0x04, 0x42, 0x03, 0xD4, 0xFD, 0xDF}
	d, bus := newTestDevice(t, []i2ctest.IO{
		{Addr: DefaultAddr, W: []byte{regDATA}, R: data},
		{Addr: DefaultAddr, W: []byte{regDATA}, R: data},
	})

	got, err := d.ReadField()
	if err != nil {
		t.Fatalf("ReadField: %v", err)
	}
	if want := (r3.Vector{X: 1, Y: -0.5, Z: 1}); !near(got, want) {
		t.Errorf("ReadField() = %v, want %v", got, want)
	}

	if err := d.SetScale(Scale{XOffset: 0.5, XScale: 2, YScale: 1, ZOffset: 1, ZScale: 1}); err != nil {
		t.Fatal(err)
	}
	got, err = d.ReadField()
	if err != nil {
		t.Fatalf("ReadField: %v", err)
	}
	if want := (r3.Vector{X: 1, Y: -0.5, Z: 0}); !near(got, want) {
		t.Errorf("scaled ReadField() = %v, want %v", got, want)
	}

	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestReadFieldOverflow(t *testing.T) {
	d, _ := newTestDevice(t, []i2ctest.IO{
		{Addr: DefaultAddr, W: []byte{regDATA}, R: []byte{0xF0, 0x00, 0, 0, 0, 0}},
	})
	if _, err := d.ReadField(); err != ErrOverflow {
		t.Errorf("err = %v, want ErrOverflow", err)
	}
}

func TestCalibrateRangeFromSelfTest(t *testing.T) {
	// 1.0 Ga on every axis at gain code 5.
	sample := []byte{0x01, 0x86, 0x01, 0x63, 0x01, 0x86}
	ops := []i2ctest.IO{
		{Addr: DefaultAddr, W: []byte{regCRA, 0x18 | biasPositive}},
		{Addr: DefaultAddr, W: []byte{regCRB, selfTestGain << 5}},
		{Addr: DefaultAddr, W: []byte{regMODE, modeSingle}},
	}
	for i := 0; i <= selfTestSamples; i++ {
		ops = append(ops,
			i2ctest.IO{Addr: DefaultAddr, W: []byte{regMODE, modeSingle}},
			i2ctest.IO{Addr: DefaultAddr, W: []byte{regDATA}, R: sample},
		)
	}
	ops = append(ops, initOps()...)

	d, bus := newTestDevice(t, ops)
	if err := d.SetScale(Scale{XOffset: 0.1, XScale: 1, YScale: 1, ZScale: 1}); err != nil {
		t.Fatal(err)
	}
	if err := d.CalibrateRange(); err != nil {
		t.Fatalf("CalibrateRange: %v", err)
	}

	s, _ := d.Scale()
	if math.Abs(s.XScale-1.16) > 1e-9 || math.Abs(s.YScale-1.16) > 1e-9 || math.Abs(s.ZScale-1.08) > 1e-9 {
		t.Errorf("scale = %+v", s)
	}
	if s.XOffset != 0.1 {
		t.Errorf("offset changed to %v", s.XOffset)
	}
	if err := bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestSetScaleRejectsNaN(t *testing.T) {
	d, _ := newTestDevice(t, nil)
	if err := d.SetScale(Scale{XOffset: math.NaN(), XScale: 1, YScale: 1, ZScale: 1}); err == nil {
		t.Error("expected error for NaN offset")
	}
}

func TestMemoryDevice(t *testing.T) {
	m := NewMemoryDevice()
	s, err := m.Scale()
	if err != nil || s != IdentityScale() {
		t.Fatalf("initial scale = %+v, %v", s, err)
	}
	want := Scale{XOffset: 0.2, XScale: 1, YScale: 1.1, ZScale: 0.9}
	if err := m.SetScale(want); err != nil {
		t.Fatal(err)
	}
	if got, _ := m.Scale(); got != want {
		t.Errorf("Scale() = %+v, want %+v", got, want)
	}
	if err := m.CalibrateRange(); err != ErrRangeCalibrationUnsupported {
		t.Errorf("CalibrateRange() = %v", err)
	}
}
