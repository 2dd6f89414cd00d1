// Package device implements the two heatcoil control endpoints as they
// appeared to userspace: a read-only temperature stream and a read/write
// status stream that enables or disables heating. The package is transport
// neutral; the socket and web packages put byte streams in front of it.
package device

import (
	"errors"
	"log"
	"strconv"
)

// Endpoint names and minor numbers.
const (
	TempName   = "heatcoil.temp"
	StatusName = "heatcoil.status"

	MinorTemp   = 0
	MinorStatus = 1
)

// Fixed read widths.
const (
	// TempReadLen is the width of a TEMP read: the decimal tick count,
	// a newline, and NUL padding to exactly five bytes.
	TempReadLen = 5

	// StatusReadLen is the width of a STATUS read: "0\n" or "1\n".
	StatusReadLen = 2
)

var (
	// ErrTransferFault reports a failed client-buffer copy (the EFAULT
	// analog). It carries no side effect on coil state.
	ErrTransferFault = errors.New("device: transfer fault")

	// ErrInvalidArgument reports a zero-length write.
	ErrInvalidArgument = errors.New("device: invalid argument")

	// ErrUnknownMinor reports an open of an unregistered minor.
	ErrUnknownMinor = errors.New("device: unknown minor")
)

// Controller is the actuator surface the STATUS endpoint drives.
type Controller interface {
	Engage() error
	Disengage() error
	Heating() bool
}

// Mux routes endpoint operations to the published temperature and the coil
// actuator.
type Mux struct {
	temp func() uint16
	coil Controller
}

// NewMux creates a Mux. temp returns the most recent watchdog sample.
func NewMux(temp func() uint16, coil Controller) *Mux {
	return &Mux{temp: temp, coil: coil}
}

// Open returns a handle on the endpoint with the given minor number.
// Concurrent opens of either endpoint are permitted.
func (m *Mux) Open(minor int) (*Handle, error) {
	switch minor {
	case MinorTemp, MinorStatus:
		return &Handle{mux: m, minor: minor}, nil
	default:
		return nil, ErrUnknownMinor
	}
}

// Handle is one open endpoint. Handles hold no cursor: every read is fresh
// against the latest published state.
type Handle struct {
	mux   *Mux
	minor int
}

// Read copies the endpoint's fixed-width representation into p and returns
// the byte count. A buffer shorter than the endpoint width fails with
// ErrTransferFault and no side effect.
func (h *Handle) Read(p []byte) (int, error) {
	switch h.minor {
	case MinorTemp:
		if len(p) < TempReadLen {
			return 0, ErrTransferFault
		}
		out := formatTemp(h.mux.temp())
		copy(p, out[:])
		return TempReadLen, nil

	case MinorStatus:
		if len(p) < StatusReadLen {
			return 0, ErrTransferFault
		}
		if h.mux.coil.Heating() {
			p[0] = '1'
		} else {
			p[0] = '0'
		}
		p[1] = '\n'
		return StatusReadLen, nil
	}
	return 0, ErrTransferFault
}

// Write inspects the first byte. On STATUS, '1' requests engage and any
// other byte requests disengage; the actuator applies its own soft-ceiling
// guard. Writes to TEMP are accepted and ignored. Zero-length writes fail
// with ErrInvalidArgument.
func (h *Handle) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, ErrInvalidArgument
	}
	if h.minor != MinorStatus {
		return len(p), nil
	}

	if p[0] == '1' {
		if err := h.mux.coil.Engage(); err != nil {
			log.Printf("device: engage: %v", err)
		}
	} else {
		if err := h.mux.coil.Disengage(); err != nil {
			log.Printf("device: disengage: %v", err)
		}
	}
	return len(p), nil
}

// Close releases the handle. Closing STATUS unconditionally disengages the
// coil: a client that crashes or exits without an explicit shutoff cannot
// leave the coil energized. There is no reference counting; a redundant
// disengage costs nothing.
func (h *Handle) Close() error {
	if h.minor == MinorStatus {
		if err := h.mux.coil.Disengage(); err != nil {
			log.Printf("device: disengage on close: %v", err)
		}
	}
	return nil
}

// formatTemp renders ticks as decimal ASCII plus a newline, NUL-padded and
// truncated to exactly TempReadLen bytes.
func formatTemp(ticks uint16) [TempReadLen]byte {
	var out [TempReadLen]byte
	s := strconv.AppendUint(nil, uint64(ticks), 10)
	s = append(s, '\n')
	copy(out[:], s)
	return out
}
