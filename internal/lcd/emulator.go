package lcd

import (
	"strings"
	"sync"
)

const ddramSize = 0x80

// Emulator is a gpio.Port that decodes the display bus the way an HD44780
// controller does: it latches the data lines on the falling edge of Enable,
// pairs nibbles once the controller is in 4-bit mode, and keeps the display
// RAM so tests can read back what is on screen.
type Emulator struct {
	mu    sync.Mutex
	latch byte
	width int

	eightBit  bool
	pending   byte
	havePend  bool
	increment bool
	addr      byte
	ddram     [ddramSize]byte

	// TwoLine, DisplayOn and CursorOn mirror the last function-set and
	// display-control instructions.
	TwoLine   bool
	DisplayOn bool
	CursorOn  bool

	// Instructions records every decoded instruction byte (RS low).
	Instructions []byte

	// Clears counts clear-display instructions.
	Clears int

	// Strobes counts Enable falling edges.
	Strobes int

	// Closed tracks if Close was called
	Closed bool
}

// NewEmulator creates an Emulator in its power-on state for a display with
// the given number of columns.
func NewEmulator(width int) *Emulator {
	e := &Emulator{width: width, eightBit: true, increment: true}
	e.blank()
	return e
}

// Read returns the port latch.
func (e *Emulator) Read() (byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latch, nil
}

// Write updates the port latch and clocks the controller on a falling Enable.
func (e *Emulator) Write(v byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.latch
	e.latch = v
	if prev&maskEN != 0 && v&maskEN == 0 {
		e.clock(v&maskData, v&maskRS != 0)
	}
	return nil
}

// Close marks the emulator as closed.
func (e *Emulator) Close() error {
	e.mu.Lock()
	e.Closed = true
	e.mu.Unlock()
	return nil
}

// FourBit reports whether the controller has been switched to a 4-bit bus.
func (e *Emulator) FourBit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.eightBit
}

// Address returns the display RAM address counter.
func (e *Emulator) Address() byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addr
}

// Line returns the visible characters of row 1 or 2, padded to the display width.
func (e *Emulator) Line(row int) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	base := 0
	if row != 1 {
		base = 0x40
	}
	return string(e.ddram[base : base+e.width])
}

// Text returns Line(row) without trailing blanks.
func (e *Emulator) Text(row int) string {
	return strings.TrimRight(e.Line(row), " ")
}

// clock handles one Enable strobe. In 8-bit mode the low data lines are not
// wired and read as zero.
func (e *Emulator) clock(nibble byte, rs bool) {
	e.Strobes++

	if e.eightBit {
		e.exec(nibble, rs)
		return
	}
	if !e.havePend {
		e.pending = nibble
		e.havePend = true
		return
	}
	e.havePend = false
	e.exec(e.pending|nibble>>4, rs)
}

func (e *Emulator) exec(b byte, rs bool) {
	if rs {
		e.ddram[e.addr] = b
		e.step()
		return
	}

	e.Instructions = append(e.Instructions, b)
	switch {
	case b&0x80 != 0:
		e.addr = b & 0x7F
	case b&0x40 != 0:
		// Character generator RAM is not emulated.
	case b&0x20 != 0:
		e.eightBit = b&0x10 != 0
		e.TwoLine = b&0x08 != 0
		if e.eightBit {
			e.havePend = false
		}
	case b&0x10 != 0:
		// cursor/display shift
	case b&0x08 != 0:
		e.DisplayOn = b&0x04 != 0
		e.CursorOn = b&0x02 != 0
	case b&0x04 != 0:
		e.increment = b&0x02 != 0
	case b&0x02 != 0:
		e.addr = 0
	case b == CmdClear:
		e.blank()
		e.addr = 0
		e.increment = true
		e.Clears++
	}
}

func (e *Emulator) step() {
	if e.increment {
		e.addr = (e.addr + 1) % ddramSize
	} else {
		e.addr = (e.addr + ddramSize - 1) % ddramSize
	}
}

func (e *Emulator) blank() {
	for i := range e.ddram {
		e.ddram[i] = ' '
	}
}
