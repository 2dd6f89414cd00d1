//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// realOutput wraps a requested gpiocdev output line.
type realOutput struct {
	line *gpiocdev.Line
}

func (o *realOutput) Set(high bool) error {
	v := 0
	if high {
		v = 1
	}
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("set line: %w", err)
	}
	return nil
}

func (o *realOutput) Close() error {
	return o.line.Close()
}

// realInput wraps a requested gpiocdev input line.
type realInput struct {
	line *gpiocdev.Line
}

func (i *realInput) Read() (bool, error) {
	v, err := i.line.Value()
	if err != nil {
		return false, fmt.Errorf("read line: %w", err)
	}
	return v == 1, nil
}

func (i *realInput) Close() error {
	return i.line.Close()
}

// Request acquires the four heater lines from gpiochip0 and configures them:
// CS output high, CLK output low, DATA input, HEAT output low. Line requests
// are exclusive, so a second process (or a double request) fails with the
// kernel's busy error. On partial failure, already-acquired lines are
// released in reverse order.
func Request(pinCS, pinCLK, pinDATA, pinHeat int) (*Pins, error) {
	chip, err := gpiocdev.NewChip("gpiochip0", gpiocdev.WithConsumer("heatcoil"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	p := &Pins{}
	p.closers = append(p.closers, chip.Close)

	fail := func(err error) (*Pins, error) {
		p.Close()
		return nil, err
	}

	csLine, err := chip.RequestLine(pinCS, gpiocdev.AsOutput(1))
	if err != nil {
		return fail(fmt.Errorf("request CS pin %d: %w", pinCS, err))
	}
	p.CS = &realOutput{csLine}
	p.closers = append(p.closers, csLine.Close)

	clkLine, err := chip.RequestLine(pinCLK, gpiocdev.AsOutput(0))
	if err != nil {
		return fail(fmt.Errorf("request CLK pin %d: %w", pinCLK, err))
	}
	p.CLK = &realOutput{clkLine}
	p.closers = append(p.closers, clkLine.Close)

	dataLine, err := chip.RequestLine(pinDATA, gpiocdev.AsInput)
	if err != nil {
		return fail(fmt.Errorf("request DATA pin %d: %w", pinDATA, err))
	}
	p.Data = &realInput{dataLine}
	p.closers = append(p.closers, dataLine.Close)

	heatLine, err := chip.RequestLine(pinHeat, gpiocdev.AsOutput(0))
	if err != nil {
		return fail(fmt.Errorf("request HEAT pin %d: %w", pinHeat, err))
	}
	p.Heat = &realOutput{heatLine}
	p.closers = append(p.closers, heatLine.Close)

	return p, nil
}
