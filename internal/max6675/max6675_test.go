package max6675

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/heatcoil/internal/gpio"
)

func newTestReader(chip *gpio.FakeChip) *Reader {
	p := chip.Pins()
	return NewWithHalfPeriod(p.CS, p.CLK, p.Data, 0)
}

func TestSampleDecodesFrame(t *testing.T) {
	// 0001 0110 0100 0000 -> (0x1640 >> 3) & 0xFFF = 0x2C8 = 712 ticks
	chip := gpio.NewFakeChip(0x1640)
	r := newTestReader(chip)

	got, err := r.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if got.Ticks != 0x02C8 {
		t.Errorf("Ticks = %d, want 712", got.Ticks)
	}
	if got.Open {
		t.Error("Open = true, want false")
	}
}

func TestSampleMasksToTwelveBits(t *testing.T) {
	cases := []struct {
		raw   uint16
		ticks uint16
		open  bool
	}{
		{0x0000, 0, false},
		{0x0C80, 0x0190, false}, // 400 ticks, ~100 degC
		{0xFFFF, 0x0FFF, true},  // all bits set: full-scale ticks, flag set
		{0x0004, 0, true},       // open flag alone must not read as heat
		{0x0007, 0, true},       // dummy bits discarded with the flag
		{0x8000, 0, false}, // dummy sign bit is dropped by the 12-bit mask
	}
	for _, tc := range cases {
		chip := gpio.NewFakeChip(tc.raw)
		r := newTestReader(chip)
		got, err := r.Sample(context.Background())
		if err != nil {
			t.Fatalf("Sample(%#04x): %v", tc.raw, err)
		}
		if got.Ticks != tc.ticks {
			t.Errorf("Sample(%#04x).Ticks = %d, want %d", tc.raw, got.Ticks, tc.ticks)
		}
		if got.Open != tc.open {
			t.Errorf("Sample(%#04x).Open = %v, want %v", tc.raw, got.Open, tc.open)
		}
	}
}

func TestSampleCompletesFrameDelimitedByCS(t *testing.T) {
	chip := gpio.NewFakeChip(0x0C80)
	r := newTestReader(chip)

	if _, err := r.Sample(context.Background()); err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if chip.FramesRead != 1 {
		t.Errorf("FramesRead = %d, want 1", chip.FramesRead)
	}

	if _, err := r.Sample(context.Background()); err != nil {
		t.Fatalf("second Sample: %v", err)
	}
	if chip.FramesRead != 2 {
		t.Errorf("FramesRead = %d, want 2", chip.FramesRead)
	}
}

func TestSampleCancelledContextStillReturnsFrame(t *testing.T) {
	chip := gpio.NewFakeChip(0x0C80)
	p := chip.Pins()
	r := NewWithHalfPeriod(p.CS, p.CLK, p.Data, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	got, err := r.Sample(ctx)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled sample took %v, want immediate", elapsed)
	}
	if got.Ticks != 0x0190 {
		t.Errorf("Ticks = %d, want 400", got.Ticks)
	}
	// The frame must have been delimited so the lines are idle again.
	if chip.FramesRead != 1 {
		t.Errorf("FramesRead = %d, want 1", chip.FramesRead)
	}
}

func TestSampleLineFault(t *testing.T) {
	chip := gpio.NewFakeChip(0x0C80)
	r := newTestReader(chip)
	chip.ReadError = errors.New("line fault")

	if _, err := r.Sample(context.Background()); err == nil {
		t.Fatal("expected error from faulted data line")
	}
}

func TestReadingConversions(t *testing.T) {
	r := Reading{Ticks: 400}
	if got := r.Celsius(); got != 100.0 {
		t.Errorf("Celsius = %v, want 100", got)
	}
	if got := r.Fahrenheit(); got != 212.0 {
		t.Errorf("Fahrenheit = %v, want 212", got)
	}
}
