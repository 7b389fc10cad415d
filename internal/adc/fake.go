package adc

import (
	"errors"
	"sync"
)

// FakeConverter is a test double that returns scripted counts per channel.
type FakeConverter struct {
	mu sync.Mutex

	// Counts holds the right-justified counts to return per channel.
	// Each conversion consumes the next count; the last one repeats.
	Counts map[uint8][]uint16

	// BusyPolls is how many times Busy reports true after each StartConversion.
	BusyPolls int

	// StuckBusy makes Busy report true forever.
	StuckBusy bool

	// ConfigureError, if set, will be returned by Configure.
	ConfigureError error

	// Configured records the last Config passed to Configure.
	Configured *Config

	// Selected records every channel passed to SelectChannel.
	Selected []uint8

	// Conversions counts StartConversion calls.
	Conversions int

	// Polls counts Busy calls.
	Polls int

	channel   uint8
	next      map[uint8]int
	pollsLeft int
	result    uint16
}

// NewFakeConverter creates a FakeConverter that always reads count on channel 0.
func NewFakeConverter(count uint16) *FakeConverter {
	return &FakeConverter{Counts: map[uint8][]uint16{0: {count}}}
}

// Configure records cfg.
func (f *FakeConverter) Configure(cfg Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConfigureError != nil {
		return f.ConfigureError
	}
	f.Configured = &cfg
	return nil
}

// SelectChannel records ch.
func (f *FakeConverter) SelectChannel(ch uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channel = ch
	f.Selected = append(f.Selected, ch)
	return nil
}

// StartConversion latches the next scripted count of the selected channel.
func (f *FakeConverter) StartConversion() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := f.Counts[f.channel]
	if len(counts) == 0 {
		return errors.New("no counts configured for channel")
	}
	if f.next == nil {
		f.next = make(map[uint8]int)
	}
	i := f.next[f.channel]
	f.result = counts[i]
	if i < len(counts)-1 {
		f.next[f.channel] = i + 1
	}
	f.pollsLeft = f.BusyPolls
	f.Conversions++
	return nil
}

// Busy reports true for BusyPolls calls after each conversion start.
func (f *FakeConverter) Busy() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Polls++
	if f.StuckBusy {
		return true, nil
	}
	if f.pollsLeft > 0 {
		f.pollsLeft--
		return true, nil
	}
	return false, nil
}

// Result returns the latched count using the configured justification.
func (f *FakeConverter) Result() (uint16, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Configured != nil && f.Configured.Justify == JustifyLeft {
		return f.result << 6, nil
	}
	return f.result, nil
}
