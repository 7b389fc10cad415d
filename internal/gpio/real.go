//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

// RealPort drives up to 8 GPIO lines as one output port using the Linux GPIO
// character device. Bits mapped to NoLine are latched only.
type RealPort struct {
	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
	bits  []uint // port bit for each requested line, in request order
	latch byte
}

// NewRealPort requests the lines in offsets (indexed by port bit) as outputs
// driven low.
func NewRealPort(chipName string, offsets [8]int) (*RealPort, error) {
	var lineOffsets []int
	var bits []uint
	for bit, off := range offsets {
		if off == NoLine {
			continue
		}
		lineOffsets = append(lineOffsets, off)
		bits = append(bits, uint(bit))
	}
	if len(lineOffsets) == 0 {
		return nil, errors.New("port has no lines")
	}

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	lines, err := chip.RequestLines(lineOffsets, gpiocdev.AsOutput(make([]int, len(lineOffsets))...))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request port lines %v: %w", lineOffsets, err)
	}

	return &RealPort{
		chip:  chip,
		lines: lines,
		bits:  bits,
	}, nil
}

// Read returns the output latch.
func (p *RealPort) Read() (byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latch, nil
}

// Write drives every wired line from the matching bit of v.
func (p *RealPort) Write(v byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	vals := make([]int, len(p.bits))
	for i, bit := range p.bits {
		if v&(1<<bit) != 0 {
			vals[i] = 1
		}
	}
	if err := p.lines.SetValues(vals); err != nil {
		return fmt.Errorf("set port lines: %w", err)
	}
	p.latch = v
	return nil
}

// Close releases the lines.
// Reconfigures them to input with pull-down (matching Pi boot defaults) first
// so relay and buzzer are not left energised.
func (p *RealPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.lines != nil {
		if err := p.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure port lines: %w", err))
		}
		if err := p.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close port lines: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealInput is an input line with kernel edge detection. Edge events are
// delivered on a goroutine owned by gpiocdev, which calls the registered
// handler. Events that arrive while the handler runs are queued by the
// kernel and delivered afterwards with their original timestamps.
type RealInput struct {
	chip    *gpiocdev.Chip
	line    *gpiocdev.Line
	handler atomic.Pointer[func(time.Duration)]
}

// NewRealInput requests offset as an input with pull-down and edge detection.
func NewRealInput(chipName string, offset int, edge Edge) (*RealInput, error) {
	var edgeOpt gpiocdev.LineReqOption
	switch edge {
	case EdgeRising:
		edgeOpt = gpiocdev.WithRisingEdge
	case EdgeFalling:
		edgeOpt = gpiocdev.WithFallingEdge
	case EdgeBoth:
		edgeOpt = gpiocdev.WithBothEdges
	default:
		return nil, fmt.Errorf("unsupported edge %q", edge)
	}

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	in := &RealInput{chip: chip}
	line, err := chip.RequestLine(offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		edgeOpt,
		gpiocdev.WithEventHandler(in.dispatch),
	)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request input pin %d: %w", offset, err)
	}
	in.line = line
	return in, nil
}

func (in *RealInput) dispatch(evt gpiocdev.LineEvent) {
	if fn := in.handler.Load(); fn != nil {
		(*fn)(evt.Timestamp)
	}
}

// Now reads CLOCK_MONOTONIC, the clock the kernel stamps line events with.
func (in *RealInput) Now() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return time.Duration(ts.Nano())
}

// Level returns true when the line reads high.
func (in *RealInput) Level() (bool, error) {
	v, err := in.line.Value()
	if err != nil {
		return false, fmt.Errorf("read input pin: %w", err)
	}
	return v == 1, nil
}

// OnEdge registers fn as the edge handler.
func (in *RealInput) OnEdge(fn func(at time.Duration)) {
	in.handler.Store(&fn)
}

// Close releases the line.
func (in *RealInput) Close() error {
	var errs []error
	if in.line != nil {
		if err := in.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close input pin: %w", err))
		}
	}
	if in.chip != nil {
		if err := in.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
