package gpio

import "sync"

// FakeChip is a test double for the four heater lines. It behaves like a
// MAX6675 on the sensor side: a falling edge on CS latches the next scripted
// 16-bit frame, DATA presents the frame MSB-first, and a falling edge on CLK
// advances to the next bit. The HEAT line records every level written to it.
type FakeChip struct {
	mu sync.Mutex

	frames   []uint16
	frameIdx int
	latched  uint16
	bitIdx   int
	selected bool
	clk      bool

	heat       bool
	HeatWrites []bool

	// FramesRead counts completed CS low/high windows.
	FramesRead int

	// Closed records line names in the order they were released.
	Closed []string

	// SetError, if set, is returned by every output write.
	SetError error

	// ReadError, if set, is returned by every DATA read.
	ReadError error
}

// NewFakeChip creates a FakeChip that serves the given frames in order.
// Once exhausted, the last frame is served repeatedly.
func NewFakeChip(frames ...uint16) *FakeChip {
	return &FakeChip{frames: frames}
}

// SetFrames replaces the scripted frames and rewinds to the first one.
func (c *FakeChip) SetFrames(frames ...uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.frameIdx = 0
}

// Heat returns the current level of the HEAT line.
func (c *FakeChip) Heat() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.heat
}

// Pins returns a pin set wired to the fake chip.
func (c *FakeChip) Pins() *Pins {
	cs := &fakeOutput{chip: c, name: "CS", set: c.setCS}
	clk := &fakeOutput{chip: c, name: "CLK", set: c.setCLK}
	data := &fakeInput{chip: c}
	heat := &fakeOutput{chip: c, name: "HEAT", set: c.setHeat}
	return &Pins{
		CS:   cs,
		CLK:  clk,
		Data: data,
		Heat: heat,
		closers: []func() error{
			cs.Close, clk.Close, data.Close, heat.Close,
		},
	}
}

func (c *FakeChip) setCS(high bool) {
	if !high && !c.selected {
		c.selected = true
		c.bitIdx = 0
		if len(c.frames) > 0 {
			c.latched = c.frames[c.frameIdx]
		}
	} else if high && c.selected {
		c.selected = false
		c.FramesRead++
		if c.frameIdx < len(c.frames)-1 {
			c.frameIdx++
		}
	}
}

func (c *FakeChip) setCLK(high bool) {
	// The next bit is shifted out on the falling clock edge, matching the
	// MAX6675, which presents a new bit after each falling edge.
	if c.clk && !high && c.selected {
		c.bitIdx++
	}
	c.clk = high
}

func (c *FakeChip) setHeat(high bool) {
	c.heat = high
	c.HeatWrites = append(c.HeatWrites, high)
}

func (c *FakeChip) readData() bool {
	if !c.selected || c.bitIdx > 15 {
		return false
	}
	return c.latched>>(15-c.bitIdx)&1 == 1
}

type fakeOutput struct {
	chip *FakeChip
	name string
	set  func(bool)
}

func (o *fakeOutput) Set(high bool) error {
	o.chip.mu.Lock()
	defer o.chip.mu.Unlock()
	if o.chip.SetError != nil {
		return o.chip.SetError
	}
	o.set(high)
	return nil
}

func (o *fakeOutput) Close() error {
	o.chip.mu.Lock()
	defer o.chip.mu.Unlock()
	o.chip.Closed = append(o.chip.Closed, o.name)
	return nil
}

type fakeInput struct {
	chip *FakeChip
}

func (i *fakeInput) Read() (bool, error) {
	i.chip.mu.Lock()
	defer i.chip.mu.Unlock()
	if i.chip.ReadError != nil {
		return false, i.chip.ReadError
	}
	return i.chip.readData(), nil
}

func (i *fakeInput) Close() error {
	i.chip.mu.Lock()
	defer i.chip.mu.Unlock()
	i.chip.Closed = append(i.chip.Closed, "DATA")
	return nil
}
