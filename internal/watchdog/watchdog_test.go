package watchdog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/heatcoil/internal/coil"
	"github.com/sweeney/heatcoil/internal/max6675"
)

// fakeSampler serves scripted readings and signals after each sample.
type fakeSampler struct {
	mu       sync.Mutex
	readings []max6675.Reading
	errs     []error
	idx      int
	calls    int
	sampled  chan struct{}
}

func newFakeSampler(readings ...max6675.Reading) *fakeSampler {
	return &fakeSampler{readings: readings, sampled: make(chan struct{}, 100)}
}

func (f *fakeSampler) Sample(ctx context.Context) (max6675.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	defer func() { f.sampled <- struct{}{} }()

	if f.idx < len(f.errs) && f.errs[f.idx] != nil {
		err := f.errs[f.idx]
		f.advance()
		return max6675.Reading{}, err
	}
	r := f.readings[f.idx]
	f.advance()
	return r, nil
}

func (f *fakeSampler) advance() {
	if f.idx < len(f.readings)-1 {
		f.idx++
	}
}

func (f *fakeSampler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCoil records disengage calls.
type fakeCoil struct {
	mu         sync.Mutex
	heating    bool
	disengages int
}

func (f *fakeCoil) Heating() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heating
}

func (f *fakeCoil) Disengage() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heating = false
	f.disengages++
	return nil
}

func (f *fakeCoil) disengageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disengages
}

// fakeSink records published samples.
type fakeSink struct {
	mu     sync.Mutex
	ticks  []uint16
	faults []bool
}

func (f *fakeSink) PublishSample(ticks uint16, fault bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks = append(f.ticks, ticks)
	f.faults = append(f.faults, fault)
}

func (f *fakeSink) published() []uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint16, len(f.ticks))
	copy(out, f.ticks)
	return out
}

func waitSamples(t *testing.T, s *fakeSampler, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.sampled:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for sample %d of %d", i+1, n)
		}
	}
}

func TestWatchdogPublishesSamples(t *testing.T) {
	sampler := newFakeSampler(
		max6675.Reading{Ticks: 400},
		max6675.Reading{Ticks: 500},
	)
	sink := &fakeSink{}
	w := New(sampler, &fakeCoil{}, sink, time.Millisecond)

	w.Start()
	waitSamples(t, sampler, 2)
	w.Stop()

	got := sink.published()
	if len(got) < 2 {
		t.Fatalf("published %d samples, want at least 2", len(got))
	}
	if got[0] != 400 || got[1] != 500 {
		t.Errorf("published = %v, want [400 500 ...]", got[:2])
	}
}

func TestWatchdogTripsAboveHardLimit(t *testing.T) {
	sampler := newFakeSampler(max6675.Reading{Ticks: 2700})
	c := &fakeCoil{heating: true}
	w := New(sampler, c, &fakeSink{}, time.Millisecond)

	var tripped []uint16
	var mu sync.Mutex
	w.OnTrip = func(ticks uint16) {
		mu.Lock()
		tripped = append(tripped, ticks)
		mu.Unlock()
	}

	w.Start()
	waitSamples(t, sampler, 1)
	w.Stop()

	if c.Heating() {
		t.Error("coil still heating after hard-limit sample")
	}
	if c.disengageCount() < 1 {
		t.Error("disengage was not invoked")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(tripped) == 0 || tripped[0] != 2700 {
		t.Errorf("OnTrip = %v, want [2700]", tripped)
	}
}

func TestWatchdogNoTripWhenNotHeating(t *testing.T) {
	sampler := newFakeSampler(max6675.Reading{Ticks: 2700})
	c := &fakeCoil{heating: false}
	w := New(sampler, c, &fakeSink{}, time.Millisecond)

	w.Start()
	waitSamples(t, sampler, 2)
	w.Stop()

	if c.disengageCount() != 0 {
		t.Errorf("disengages = %d, want 0 when not heating", c.disengageCount())
	}
}

func TestWatchdogNoTripAtHardLimitBoundary(t *testing.T) {
	// The trip is strictly above the limit.
	sampler := newFakeSampler(max6675.Reading{Ticks: coil.HardLimitTicks})
	c := &fakeCoil{heating: true}
	w := New(sampler, c, &fakeSink{}, time.Millisecond)

	w.Start()
	waitSamples(t, sampler, 2)
	w.Stop()

	if c.disengageCount() != 0 {
		t.Errorf("disengages = %d, want 0 at exactly the hard limit", c.disengageCount())
	}
}

func TestWatchdogSampleErrorSkipsPublish(t *testing.T) {
	sampler := newFakeSampler(
		max6675.Reading{},
		max6675.Reading{Ticks: 650},
	)
	sampler.errs = []error{errors.New("transient miscount"), nil}
	sink := &fakeSink{}
	w := New(sampler, &fakeCoil{}, sink, time.Millisecond)

	w.Start()
	waitSamples(t, sampler, 2)
	w.Stop()

	got := sink.published()
	if len(got) == 0 {
		t.Fatal("no samples published after transient error")
	}
	if got[0] != 650 {
		t.Errorf("first published sample = %d, want 650 (error sample dropped)", got[0])
	}
}

func TestWatchdogStopJoins(t *testing.T) {
	sampler := newFakeSampler(max6675.Reading{Ticks: 400})
	w := New(sampler, &fakeCoil{}, &fakeSink{}, time.Hour)

	w.Start()
	waitSamples(t, sampler, 1)

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return despite a pending one-hour wait")
	}

	calls := sampler.callCount()
	time.Sleep(20 * time.Millisecond)
	if sampler.callCount() != calls {
		t.Error("sampler called after Stop returned")
	}

	// Stop is idempotent.
	w.Stop()
}
