//go:build !linux

package gpio

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealPort is not available on non-Linux platforms.
type RealPort struct{}

// NewRealPort returns an error on non-Linux platforms.
func NewRealPort(chipName string, offsets [8]int) (*RealPort, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (p *RealPort) Read() (byte, error) { return 0, errUnsupported }

// Write is not implemented on non-Linux platforms.
func (p *RealPort) Write(v byte) error { return errUnsupported }

// Close is not implemented on non-Linux platforms.
func (p *RealPort) Close() error { return nil }

// RealInput is not available on non-Linux platforms.
type RealInput struct{}

// NewRealInput returns an error on non-Linux platforms.
func NewRealInput(chipName string, offset int, edge Edge) (*RealInput, error) {
	return nil, errUnsupported
}

// Level is not implemented on non-Linux platforms.
func (in *RealInput) Level() (bool, error) { return false, errUnsupported }

// OnEdge is a no-op on non-Linux platforms.
func (in *RealInput) OnEdge(fn func(at time.Duration)) {}

// Now returns zero on non-Linux platforms.
func (in *RealInput) Now() time.Duration { return 0 }

// Close is not implemented on non-Linux platforms.
func (in *RealInput) Close() error { return nil }
