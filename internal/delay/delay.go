// Package delay provides the blocking waits used by the hardware drivers.
// Every wait in the controller is unconditional: a Func blocks the calling
// goroutine for the full duration and never returns early.
package delay

import (
	"sync"
	"time"
)

// Func blocks the caller for d.
type Func func(d time.Duration)

// Sleep blocks using the runtime timer.
func Sleep(d time.Duration) {
	time.Sleep(d)
}

// Recorder is a test double that records requested delays instead of blocking.
// Safe for concurrent use: the edge handler and the control loop may share one.
type Recorder struct {
	mu    sync.Mutex
	calls []time.Duration

	// OnDelay, if set, is called after each delay is recorded (outside the lock).
	// Tests use it to inject events at a given point in the loop.
	OnDelay func(d time.Duration)
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Delay records d and returns immediately.
func (r *Recorder) Delay(d time.Duration) {
	r.mu.Lock()
	r.calls = append(r.calls, d)
	hook := r.OnDelay
	r.mu.Unlock()

	if hook != nil {
		hook(d)
	}
}

// Calls returns a copy of the recorded delays in call order.
func (r *Recorder) Calls() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Duration, len(r.calls))
	copy(out, r.calls)
	return out
}

// Total returns the sum of all recorded delays.
func (r *Recorder) Total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total time.Duration
	for _, d := range r.calls {
		total += d
	}
	return total
}

// Count returns how many recorded delays equal d.
func (r *Recorder) Count(d time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == d {
			n++
		}
	}
	return n
}

// Reset clears recorded delays.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}
