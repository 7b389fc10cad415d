package adc

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// MaxMCP3008Clock is the datasheet limit at VDD = 5 V.
const MaxMCP3008Clock = 3600 * physic.KiloHertz

const mcp3008Channels = 8

// MCP3008 is a Converter for the Microchip MCP3008, an 8-channel 10-bit SPI
// ADC. A conversion completes inside the SPI transaction that starts it, so
// Busy never reports true.
type MCP3008 struct {
	port    spi.Port
	closer  func() error
	conn    spi.Conn
	channel uint8
	justify Justification
	result  uint16
}

// NewMCP3008 wraps an SPI port. The connection is made by Configure.
func NewMCP3008(port spi.Port) *MCP3008 {
	return &MCP3008{port: port}
}

// OpenMCP3008 initialises the periph host drivers and opens the named SPI
// port ("" selects the first one available).
func OpenMCP3008(name string) (*MCP3008, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", name, err)
	}
	m := NewMCP3008(p)
	m.closer = p.Close
	return m, nil
}

// Configure connects to the device at cfg.Clock in SPI mode 0.
func (m *MCP3008) Configure(cfg Config) error {
	clock := cfg.Clock
	if clock == 0 {
		clock = DefaultClock
	}
	if clock > MaxMCP3008Clock {
		return fmt.Errorf("clock %s exceeds %s", clock, MaxMCP3008Clock)
	}
	c, err := m.port.Connect(clock, spi.Mode0, 8)
	if err != nil {
		return fmt.Errorf("connect spi: %w", err)
	}
	m.conn = c
	m.justify = cfg.Justify
	return nil
}

// SelectChannel records the single-ended channel for the next conversion.
func (m *MCP3008) SelectChannel(ch uint8) error {
	if ch >= mcp3008Channels {
		return fmt.Errorf("channel %d out of range", ch)
	}
	m.channel = ch
	return nil
}

// StartConversion clocks a single-ended conversion out of the device.
func (m *MCP3008) StartConversion() error {
	if m.conn == nil {
		return errors.New("mcp3008 not configured")
	}
	// Start bit, then SGL/DIFF=1 and the channel in the upper nibble.
	w := []byte{0x01, 0x80 | m.channel<<4, 0x00}
	r := make([]byte, len(w))
	if err := m.conn.Tx(w, r); err != nil {
		return fmt.Errorf("spi transfer: %w", err)
	}
	m.result = uint16(r[1]&0x03)<<8 | uint16(r[2])
	return nil
}

// Busy always reports false.
func (m *MCP3008) Busy() (bool, error) {
	return false, nil
}

// Result returns the last conversion.
func (m *MCP3008) Result() (uint16, error) {
	if m.justify == JustifyLeft {
		return m.result << 6, nil
	}
	return m.result, nil
}

// Close releases the SPI port when it was opened by OpenMCP3008.
func (m *MCP3008) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer()
}
