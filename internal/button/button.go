// Package button turns raw edges on the button line into debounced presses.
package button

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/sweeney/fan-controller/internal/delay"
	"github.com/sweeney/fan-controller/internal/gpio"
)

// DefaultDebounce is how long the line must stay high after an edge.
const DefaultDebounce = 50 * time.Millisecond

// Stats counts how edges were resolved.
type Stats struct {
	Accepted uint64 // line still high after the debounce; press latched
	Rejected uint64 // line low after the debounce, or unreadable
	Dropped  uint64 // edge detected before the previous debounce finished
}

// Handler debounces edges from a gpio.Input and calls latch for each press.
//
// HandleEdge blocks its caller for the debounce period. Edges detected while
// a debounce was in progress are dropped, whether they arrive concurrently or
// are delivered afterwards from the kernel's event queue.
type Handler struct {
	in       gpio.Input
	latch    func()
	delay    delay.Func
	debounce time.Duration

	busy     atomic.Bool
	settled  atomic.Int64 // line clock when the last debounce finished
	accepted atomic.Uint64
	rejected atomic.Uint64
	dropped  atomic.Uint64
}

// New creates a Handler. A zero debounce selects DefaultDebounce.
func New(in gpio.Input, latch func(), wait delay.Func, debounce time.Duration) *Handler {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Handler{
		in:       in,
		latch:    latch,
		delay:    wait,
		debounce: debounce,
	}
}

// Attach registers HandleEdge as the input's edge handler.
func (h *Handler) Attach() {
	h.in.OnEdge(h.HandleEdge)
}

// HandleEdge waits out the debounce period and latches a press if the line
// is still high. at is the time the edge was detected on the input's clock.
func (h *Handler) HandleEdge(at time.Duration) {
	if !h.busy.CompareAndSwap(false, true) {
		h.dropped.Add(1)
		return
	}
	defer h.busy.Store(false)

	if at < time.Duration(h.settled.Load()) {
		h.dropped.Add(1)
		return
	}

	h.delay(h.debounce)

	high, err := h.in.Level()
	h.settled.Store(int64(h.in.Now()))
	if err != nil {
		log.Printf("button: read level: %v", err)
		h.rejected.Add(1)
		return
	}
	if !high {
		h.rejected.Add(1)
		return
	}
	h.latch()
	h.accepted.Add(1)
}

// Stats returns the edge counters.
func (h *Handler) Stats() Stats {
	return Stats{
		Accepted: h.accepted.Load(),
		Rejected: h.rejected.Load(),
		Dropped:  h.dropped.Load(),
	}
}
