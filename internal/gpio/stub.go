//go:build !linux

package gpio

import "errors"

// Request is not available on non-Linux platforms.
func Request(pinCS, pinCLK, pinDATA, pinHeat int) (*Pins, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}
