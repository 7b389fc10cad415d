// Package gpio provides the hardware boundary of the controller: 8-bit output
// ports, the edge-triggered button input and the actuator outputs.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"fmt"
	"time"
)

// Port is an 8-bit output port. Each bit maps to at most one GPIO line.
// Read returns the output latch, so read-modify-write sequences preserve
// bits that are not being changed.
type Port interface {
	Read() (byte, error)
	Write(v byte) error
	Close() error
}

// Input is a single input line that can call a registered handler on edges.
type Input interface {
	// Level returns true when the line is high.
	Level() (bool, error)

	// OnEdge registers fn as the edge handler, replacing any previous one.
	// fn runs on the event goroutine and receives the time the edge was
	// detected, on the same clock as Now. Edges are delivered one at a time
	// in detection order.
	OnEdge(fn func(at time.Duration))

	// Now returns the current time on the edge timestamp clock.
	Now() time.Duration

	// Close releases the line.
	Close() error
}

// Edge selects which transitions trigger the input handler.
type Edge string

const (
	EdgeRising  Edge = "rising"
	EdgeFalling Edge = "falling"
	EdgeBoth    Edge = "both"
)

// ParseEdge validates an edge name from configuration.
func ParseEdge(s string) (Edge, error) {
	switch e := Edge(s); e {
	case EdgeRising, EdgeFalling, EdgeBoth:
		return e, nil
	default:
		return "", fmt.Errorf("invalid edge %q (want rising, falling or both)", s)
	}
}

// NoLine marks a port bit that is latched but not wired to a GPIO line.
const NoLine = -1

// Port bit assignments. These match the original board: relay and buzzer on
// port C, button on port B, display control and data on port D.
const (
	BitRelay  = 0 // port C
	BitBuzzer = 1 // port C
	BitButton = 0 // port B, edge interrupt source
	BitRS     = 0 // port D, display Register-Select
	BitEN     = 1 // port D, display Enable
)

// Default line offsets (BCM numbering).
const (
	DefaultPinRelay  = 5
	DefaultPinBuzzer = 6
	DefaultPinButton = 16
	DefaultPinRS     = 25
	DefaultPinEN     = 24
	DefaultPinD4     = 23
	DefaultPinD5     = 17
	DefaultPinD6     = 18
	DefaultPinD7     = 22
)

// SetBit sets or clears one bit of p, preserving the others.
func SetBit(p Port, bit uint, on bool) error {
	v, err := p.Read()
	if err != nil {
		return err
	}
	if on {
		v |= 1 << bit
	} else {
		v &^= 1 << bit
	}
	return p.Write(v)
}

// Actuators drives the relay and buzzer bits of an output port.
type Actuators struct {
	port Port
}

// NewActuators creates Actuators on the given port.
func NewActuators(p Port) *Actuators {
	return &Actuators{port: p}
}

// Set asserts (on) or deasserts both relay and buzzer in a single port write.
func (a *Actuators) Set(on bool) error {
	v, err := a.port.Read()
	if err != nil {
		return fmt.Errorf("read actuator port: %w", err)
	}
	const mask = 1<<BitRelay | 1<<BitBuzzer
	if on {
		v |= mask
	} else {
		v &^= mask
	}
	if err := a.port.Write(v); err != nil {
		return fmt.Errorf("write actuator port: %w", err)
	}
	return nil
}

// State returns the latched relay and buzzer outputs.
func (a *Actuators) State() (relay, buzzer bool, err error) {
	v, err := a.port.Read()
	if err != nil {
		return false, false, err
	}
	return v&(1<<BitRelay) != 0, v&(1<<BitBuzzer) != 0, nil
}
