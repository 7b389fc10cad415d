// Package lcd drives an HD44780-compatible 2-row character display over a
// 4-bit data bus. The data lines are the upper nibble of an 8-bit port;
// Register-Select and Enable share the lower nibble of the same port, whose
// other bits are never disturbed.
package lcd

import (
	"fmt"
	"time"

	"github.com/sweeney/fan-controller/internal/delay"
	"github.com/sweeney/fan-controller/internal/gpio"
)

// Instructions used by the driver.
const (
	CmdClear       = 0x01
	CmdEntryMode   = 0x06 // increment, no shift
	CmdDisplayOn   = 0x0C // display on, cursor off, blink off
	CmdFunctionSet = 0x28 // 4-bit bus, 2 lines, 5x8 font

	Row1Base = 0x80
	Row2Base = 0xC0
)

const (
	maskRS   = 1 << gpio.BitRS
	maskEN   = 1 << gpio.BitEN
	maskData = 0xF0

	powerOnDelay = 50 * time.Millisecond
	strobeDelay  = 2 * time.Millisecond
	clearDelay   = 2 * time.Millisecond
)

// handshake is the power-on sequence that forces the controller into 4-bit
// mode from any state.
var handshake = []struct {
	nibble byte
	hold   time.Duration
}{
	{0x30, 5 * time.Millisecond},
	{0x30, 1 * time.Millisecond},
	{0x30, 1 * time.Millisecond},
	{0x20, 1 * time.Millisecond},
}

// Display is a 4-bit HD44780 driver.
type Display struct {
	port  gpio.Port
	delay delay.Func
}

// New creates a Display on port. wait is used for every bus delay.
func New(port gpio.Port, wait delay.Func) *Display {
	return &Display{port: port, delay: wait}
}

// Init runs the power-on handshake then configures a 2-line display with the
// cursor hidden and clears it.
func (d *Display) Init() error {
	d.delay(powerOnDelay)

	if err := gpio.SetBit(d.port, gpio.BitRS, false); err != nil {
		return fmt.Errorf("lcd init: %w", err)
	}
	for _, step := range handshake {
		if err := d.putNibble(step.nibble); err != nil {
			return fmt.Errorf("lcd init: %w", err)
		}
		if err := d.strobe(step.hold); err != nil {
			return fmt.Errorf("lcd init: %w", err)
		}
	}

	for _, cmd := range []byte{CmdFunctionSet, CmdDisplayOn, CmdEntryMode, CmdClear} {
		if err := d.Command(cmd); err != nil {
			return fmt.Errorf("lcd init: %w", err)
		}
	}
	d.delay(clearDelay)
	return nil
}

// Command sends an instruction byte.
func (d *Display) Command(cmd byte) error {
	return d.send(cmd, false)
}

// Char writes one character at the cursor.
func (d *Display) Char(c byte) error {
	return d.send(c, true)
}

// WriteString writes the bytes of s in order.
func (d *Display) WriteString(s string) error {
	for i := 0; i < len(s); i++ {
		if err := d.Char(s[i]); err != nil {
			return err
		}
	}
	return nil
}

// Clear blanks the display and homes the cursor.
func (d *Display) Clear() error {
	if err := d.Command(CmdClear); err != nil {
		return err
	}
	d.delay(clearDelay)
	return nil
}

// SetCursor moves the cursor to a 1-based column of row 1 or 2.
func (d *Display) SetCursor(row, col uint8) error {
	return d.Command(CursorAddress(row, col))
}

// Print writes s starting at (row, col).
func (d *Display) Print(row, col uint8, s string) error {
	if err := d.SetCursor(row, col); err != nil {
		return err
	}
	return d.WriteString(s)
}

// CursorAddress returns the Set-DDRAM-address command for a 1-based column.
// Any row other than 1 addresses row 2. Columns are not range checked.
func CursorAddress(row, col uint8) byte {
	if row == 1 {
		return Row1Base + col - 1
	}
	return Row2Base + col - 1
}

func (d *Display) send(b byte, data bool) error {
	kind := "command"
	if data {
		kind = "char"
	}

	if err := gpio.SetBit(d.port, gpio.BitRS, data); err != nil {
		return fmt.Errorf("lcd %s 0x%02X: %w", kind, b, err)
	}

	for _, nibble := range []byte{b & 0xF0, b << 4} {
		if err := d.putNibble(nibble); err != nil {
			return fmt.Errorf("lcd %s 0x%02X: %w", kind, b, err)
		}
		if err := d.strobe(strobeDelay); err != nil {
			return fmt.Errorf("lcd %s 0x%02X: %w", kind, b, err)
		}
	}
	d.delay(strobeDelay)
	return nil
}

// putNibble places the upper four bits of n on the data lines.
func (d *Display) putNibble(n byte) error {
	return d.update(func(v byte) byte { return v&^maskData | n&maskData })
}

// strobe raises Enable, holds it, then lowers it so the controller latches
// the data lines.
func (d *Display) strobe(hold time.Duration) error {
	if err := gpio.SetBit(d.port, gpio.BitEN, true); err != nil {
		return err
	}
	d.delay(hold)
	return gpio.SetBit(d.port, gpio.BitEN, false)
}

func (d *Display) update(fn func(byte) byte) error {
	v, err := d.port.Read()
	if err != nil {
		return err
	}
	return d.port.Write(fn(v))
}
