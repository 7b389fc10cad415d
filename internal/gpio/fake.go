package gpio

import (
	"sync"
	"time"
)

// FakePort is a test double that latches writes in memory.
type FakePort struct {
	mu sync.Mutex

	// Value is the current latch.
	Value byte

	// Writes records every value written, in order.
	Writes []byte

	// WriteError, if set, will be returned by Write (the latch is not changed).
	WriteError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakePort creates a FakePort with the latch cleared.
func NewFakePort() *FakePort {
	return &FakePort{}
}

// Read returns the latch.
func (f *FakePort) Read() (byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Value, nil
}

// Write latches v and records it.
func (f *FakePort) Write(v byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Value = v
	f.Writes = append(f.Writes, v)
	return nil
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Bit reports whether bit n of the latch is set.
func (f *FakePort) Bit(n uint) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Value&(1<<n) != 0
}

// Reset clears the latch and recorded writes.
func (f *FakePort) Reset() {
	f.mu.Lock()
	f.Value = 0
	f.Writes = nil
	f.WriteError = nil
	f.Closed = false
	f.mu.Unlock()
}

// FakeInput is a test double for an edge-triggered input line.
// Trigger calls the registered handler synchronously, standing in for the
// GPIO event goroutine.
type FakeInput struct {
	mu      sync.Mutex
	level   bool
	clock   time.Duration
	handler func(at time.Duration)

	// LevelError, if set, will be returned by Level.
	LevelError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeInput creates a FakeInput at the given level.
func NewFakeInput(level bool) *FakeInput {
	return &FakeInput{level: level}
}

// SetLevel changes the line level without raising an edge.
func (f *FakeInput) SetLevel(level bool) {
	f.mu.Lock()
	f.level = level
	f.mu.Unlock()
}

// Level returns the scripted level.
func (f *FakeInput) Level() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LevelError != nil {
		return false, f.LevelError
	}
	return f.level, nil
}

// OnEdge registers the edge handler.
func (f *FakeInput) OnEdge(fn func(at time.Duration)) {
	f.mu.Lock()
	f.handler = fn
	f.mu.Unlock()
}

// Now returns the fake line clock. It only moves when Advance is called.
func (f *FakeInput) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clock
}

// Advance moves the line clock forward by d.
func (f *FakeInput) Advance(d time.Duration) {
	f.mu.Lock()
	f.clock += d
	f.mu.Unlock()
}

// Trigger delivers an edge stamped with the current line clock.
// It returns false when no handler is registered.
func (f *FakeInput) Trigger() bool {
	return f.TriggerAt(f.Now())
}

// TriggerAt delivers an edge stamped at, which may be in the past to stand
// in for an event the kernel queued while the handler was busy.
func (f *FakeInput) TriggerAt(at time.Duration) bool {
	f.mu.Lock()
	fn := f.handler
	f.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(at)
	return true
}

// Close marks the input as closed.
func (f *FakeInput) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
