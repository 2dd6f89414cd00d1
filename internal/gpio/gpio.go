// Package gpio provides the four-line pin set used to drive the heating
// coil and to bit-bang the MAX6675 serial link, with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Default pin assignments (BCM numbering).
const (
	DefaultPinCS   = 24 // frame select, active low
	DefaultPinCLK  = 23 // serial clock, idle low
	DefaultPinDATA = 22 // serial data in, MSB first
	DefaultPinHeat = 6  // coil drive, active high
)

// Output drives a single GPIO output line.
type Output interface {
	// Set drives the line high (true) or low (false).
	Set(high bool) error

	// Close releases the line.
	Close() error
}

// Input reads a single GPIO input line.
type Input interface {
	// Read returns the current logic level of the line.
	Read() (bool, error)

	// Close releases the line.
	Close() error
}

// Pins is the acquired four-line set. The sensor lines (CS, CLK, Data) are
// owned exclusively by the temperature watchdog; Heat is owned by the coil
// actuator.
type Pins struct {
	CS   Output // output, initially high
	CLK  Output // output, initially low
	Data Input
	Heat Output // output, initially low

	closers []func() error
}

// Close releases the pins in reverse acquisition order. The Heat line is
// driven low before it is released so the coil cannot be left energized.
func (p *Pins) Close() error {
	if p.Heat != nil {
		p.Heat.Set(false)
	}
	var firstErr error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.closers = nil
	return firstErr
}
