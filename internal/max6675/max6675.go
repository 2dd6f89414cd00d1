// Package max6675 reads temperature frames from a MAX6675 thermocouple-to-
// digital converter over a bit-banged three-wire serial link.
//
// A frame is 16 bits, MSB first, shifted out while CS is low: bit 15 is a
// dummy sign bit, bits 14..3 are the temperature in 0.25 degC ticks, bit 2
// is the open-thermocouple flag, bits 1..0 are dummies.
//
// Datasheet: https://datasheets.maximintegrated.com/en/ds/MAX6675.pdf
package max6675

import (
	"context"
	"fmt"
	"time"

	"github.com/sweeney/heatcoil/internal/gpio"
)

// frameBits is the length of one serial frame.
const frameBits = 16

// HalfPeriod is the hold time for each clock level. It is far above the
// chip's electrical minimum; the generous value keeps GPIO transitions
// robust and yields the scheduler between edges.
const HalfPeriod = 10 * time.Millisecond

// Reading is one decoded sensor frame.
type Reading struct {
	// Ticks is the temperature in 0.25 degC units (0..4095).
	Ticks uint16

	// Open reports the open-thermocouple flag (bit 2 of the raw frame).
	// It is never folded into Ticks.
	Open bool
}

// Celsius returns the temperature in degrees Celsius.
func (r Reading) Celsius() float64 {
	return float64(r.Ticks) * 0.25
}

// Fahrenheit returns the temperature in degrees Fahrenheit.
func (r Reading) Fahrenheit() float64 {
	return r.Celsius()*9.0/5.0 + 32.0
}

// Reader performs single-frame acquisitions over the three sensor lines.
// It is stateless between frames, but frames must not overlap: the caller
// (the watchdog) is the only reader of the lines.
type Reader struct {
	cs         gpio.Output
	clk        gpio.Output
	data       gpio.Input
	halfPeriod time.Duration
}

// New creates a Reader over the given lines. Preconditions: CS is output
// high, CLK is output low, DATA is input, which is the state gpio.Request
// leaves them in.
func New(cs, clk gpio.Output, data gpio.Input) *Reader {
	return &Reader{cs: cs, clk: clk, data: data, halfPeriod: HalfPeriod}
}

// NewWithHalfPeriod is New with an explicit clock hold time. Tests pass 0
// to clock frames without real delays.
func NewWithHalfPeriod(cs, clk gpio.Output, data gpio.Input, halfPeriod time.Duration) *Reader {
	return &Reader{cs: cs, clk: clk, data: data, halfPeriod: halfPeriod}
}

// Sample acquires one frame and returns the decoded reading.
//
// The clock holds are cancel-aware: once ctx is done the remaining bits are
// clocked without delay so the frame still completes and the lines return
// to their idle levels (CS high, CLK low) before Sample returns.
func (r *Reader) Sample(ctx context.Context) (Reading, error) {
	if err := r.cs.Set(false); err != nil {
		return Reading{}, fmt.Errorf("select sensor: %w", err)
	}
	// CS must go back high even on a mid-frame line fault.
	defer r.cs.Set(true)

	var raw uint16
	for i := 0; i < frameBits; i++ {
		if err := r.clk.Set(true); err != nil {
			return Reading{}, fmt.Errorf("clock high: %w", err)
		}
		r.hold(ctx)
		bit, err := r.data.Read()
		if err != nil {
			return Reading{}, fmt.Errorf("read data bit %d: %w", i, err)
		}
		raw <<= 1
		if bit {
			raw |= 1
		}
		if err := r.clk.Set(false); err != nil {
			return Reading{}, fmt.Errorf("clock low: %w", err)
		}
		r.hold(ctx)
	}

	if err := r.cs.Set(true); err != nil {
		return Reading{}, fmt.Errorf("deselect sensor: %w", err)
	}
	return decode(raw), nil
}

// hold sleeps for one half-period, returning early if ctx is cancelled.
func (r *Reader) hold(ctx context.Context) {
	if r.halfPeriod <= 0 || ctx.Err() != nil {
		return
	}
	t := time.NewTimer(r.halfPeriod)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// decode extracts the 12-bit tick count and the open-thermocouple flag from
// a raw frame. The >>3 shift discards the three low dummy/flag bits so the
// flag can never be read as a high temperature.
func decode(raw uint16) Reading {
	return Reading{
		Ticks: (raw >> 3) & 0x0FFF,
		Open:  raw&0x0004 != 0,
	}
}
