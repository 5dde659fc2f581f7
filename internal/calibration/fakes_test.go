package calibration

import (
	"errors"
	"math"
	"time"

	"github.com/golang/geo/r3"

	"github.com/relabs-tech/magcal/internal/feedback"
	"github.com/relabs-tech/magcal/internal/imu"
	"github.com/relabs-tech/magcal/internal/magdev"
	"github.com/relabs-tech/magcal/internal/spherefit"
	"github.com/relabs-tech/magcal/internal/telemetry"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock { return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)} }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// step is one scripted Wait outcome.
type step struct {
	status  telemetry.WaitStatus
	sample  imu.Sample
	advance time.Duration
}

type fakeSub struct {
	clock  *fakeClock
	script func(i int) step
	waits  int
	closed bool
}

func (s *fakeSub) Wait(timeout time.Duration) (imu.Sample, telemetry.WaitStatus, error) {
	st := s.script(s.waits)
	s.waits++
	s.clock.advance(st.advance)
	switch st.status {
	case telemetry.SampleReady:
		return st.sample, st.status, nil
	case telemetry.WaitError:
		return imu.Sample{}, st.status, errors.New("bus error")
	}
	return imu.Sample{}, st.status, nil
}

func (s *fakeSub) Close() error {
	s.closed = true
	return nil
}

type fakeBus struct {
	sub      *fakeSub
	err      error
	interval time.Duration
}

func (b *fakeBus) Subscribe(interval time.Duration) (telemetry.Subscription, error) {
	b.interval = interval
	if b.err != nil {
		return nil, b.err
	}
	return b.sub, nil
}

type fakeDevice struct {
	scale      magdev.Scale
	sets       []magdev.Scale
	calibrated int
	getErr     error
	setErr     error
	calErr     error
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{scale: magdev.Scale{XScale: 1.1, YScale: 0.9, ZScale: 1.05, XOffset: 7}}
}

func (d *fakeDevice) Scale() (magdev.Scale, error) { return d.scale, d.getErr }

func (d *fakeDevice) SetScale(s magdev.Scale) error {
	d.sets = append(d.sets, s)
	if d.setErr != nil {
		return d.setErr
	}
	d.scale = s
	return nil
}

func (d *fakeDevice) CalibrateRange() error {
	d.calibrated++
	return d.calErr
}

type fakeStore struct {
	order   []string
	ints    map[string]int64
	floats  map[string]float64
	saves   int
	saveErr error
	failSet string
	onSet   func(name string)
}

func newFakeStore() *fakeStore {
	return &fakeStore{ints: map[string]int64{}, floats: map[string]float64{}}
}

func (s *fakeStore) SetInt(name string, v int64) error {
	if name == s.failSet {
		return errors.New("rejected")
	}
	if s.onSet != nil {
		s.onSet(name)
	}
	s.order = append(s.order, name)
	s.ints[name] = v
	return nil
}

func (s *fakeStore) SetFloat(name string, v float64) error {
	if name == s.failSet {
		return errors.New("rejected")
	}
	if s.onSet != nil {
		s.onSet(name)
	}
	s.order = append(s.order, name)
	s.floats[name] = v
	return nil
}

func (s *fakeStore) Save() error {
	s.saves++
	return s.saveErr
}

// spherePoint returns the i-th point of a golden-angle spiral on a sphere.
func spherePoint(i, n int, c r3.Vector, r float64) r3.Vector {
	golden := math.Pi * (3 - math.Sqrt(5))
	z := 1 - 2*(float64(i%n)+0.5)/float64(n)
	rad := math.Sqrt(1 - z*z)
	th := golden * float64(i%n)
	return r3.Vector{X: c.X + r*rad*math.Cos(th), Y: c.Y + r*rad*math.Sin(th), Z: c.Z + r*z}
}

// sampleEvery returns a script that delivers sphere samples spaced by d.
func sampleEvery(d time.Duration, center r3.Vector, radius float64) func(int) step {
	return func(i int) step {
		return step{
			status:  telemetry.SampleReady,
			sample:  imu.Sample{Field: spherePoint(i, 200, center, radius), Rate: r3.Vector{Z: 1}},
			advance: d,
		}
	}
}

func stubFit(x, y, z []float64, n, maxIter int, tol float64) spherefit.Result {
	return spherefit.Result{X: 0.1, Y: 0.2, Z: 0.3, Radius: 0.5, Iterations: 1}
}

func nanFit(x, y, z []float64, n, maxIter int, tol float64) spherefit.Result {
	return spherefit.Result{X: math.NaN(), Y: 0, Z: 0, Radius: 0.5}
}

// harness wires an orchestrator over fakes and captures its buffer.
type harness struct {
	clock *fakeClock
	sub   *fakeSub
	bus   *fakeBus
	dev   *fakeDevice
	store *fakeStore
	fb    *feedback.Recorder
	buf   *SampleBuffer
	alloc int
	orch  *Orchestrator
}

func newHarness(cfg Config, script func(int) step, opts ...Option) *harness {
	h := &harness{clock: newFakeClock(), dev: newFakeDevice(), store: newFakeStore(), fb: &feedback.Recorder{}}
	h.sub = &fakeSub{clock: h.clock, script: script}
	h.bus = &fakeBus{sub: h.sub}
	opts = append([]Option{WithClock(h.clock)}, opts...)
	h.orch = New(cfg, h.bus, h.dev, h.store, h.fb, opts...)
	h.orch.newBuf = func(n int) (*SampleBuffer, error) {
		b, err := NewSampleBuffer(n)
		h.buf, h.alloc = b, n
		return b, err
	}
	return h
}
