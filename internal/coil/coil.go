// Package coil drives the heating coil output line and owns the single
// heating flag. All transitions go through one mutex so the pair
// {HEAT line, heating flag} behaves as a single atomic state for observers.
package coil

import (
	"log"
	"sync"

	"github.com/sweeney/heatcoil/internal/gpio"
)

// Temperature limits in ticks (1 tick = 0.25 degC).
const (
	// SoftLimitTicks is the ceiling above which new engage requests are
	// refused. 2151 ticks is roughly 1000 degF.
	SoftLimitTicks = 2151

	// HardLimitTicks is the ceiling above which the watchdog forcibly
	// disengages. 2662 ticks is roughly 1050 degF.
	HardLimitTicks = 2662
)

// Actuator owns the HEAT line and the heating flag.
type Actuator struct {
	mu       sync.Mutex
	line     gpio.Output
	heating  bool
	ticks    func() uint16
	onChange func(on bool)
}

// New creates an Actuator over the HEAT line. ticks returns the most recent
// watchdog sample and gates Engage against the soft ceiling. onChange, if
// non-nil, is called inside the critical section on every transition.
func New(line gpio.Output, ticks func() uint16, onChange func(on bool)) *Actuator {
	return &Actuator{line: line, ticks: ticks, onChange: onChange}
}

// Engage turns the coil on unless the latest temperature sample is above the
// soft ceiling. The refusal is silent: the caller is a client, and the
// rejection is visible by reading the status back. Engage is idempotent.
func (a *Actuator) Engage() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ticks() > SoftLimitTicks {
		return nil
	}
	if a.heating {
		return nil
	}

	// Flag first, line second: if the write faults the flag still reads
	// true and the watchdog's next pass will force a disengage.
	a.heating = true
	err := a.line.Set(true)
	if err != nil {
		log.Printf("coil: drive HEAT high: %v", err)
	}
	log.Printf("heating coil was turned on")
	if a.onChange != nil {
		a.onChange(true)
	}
	return err
}

// Disengage turns the coil off. The line is driven low before the flag is
// cleared so any observer that sees heating=false also sees the output
// de-asserted. Disengage is idempotent; the line is driven low even when
// the flag is already clear, since a redundant disengage costs nothing.
func (a *Actuator) Disengage() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	err := a.line.Set(false)
	if err != nil {
		log.Printf("coil: drive HEAT low: %v", err)
	}
	if a.heating {
		a.heating = false
		log.Printf("heating coil was turned off")
		if a.onChange != nil {
			a.onChange(false)
		}
	}
	return err
}

// Heating reports whether the coil is currently engaged.
func (a *Actuator) Heating() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.heating
}
