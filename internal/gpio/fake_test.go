package gpio

import (
	"errors"
	"testing"
	"time"
)

func TestFakePortWriteAndRead(t *testing.T) {
	p := NewFakePort()

	if err := p.Write(0xA5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := p.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0xA5 {
		t.Errorf("expected latch 0xA5, got 0x%02X", v)
	}
	if len(p.Writes) != 1 || p.Writes[0] != 0xA5 {
		t.Errorf("unexpected recorded writes: %v", p.Writes)
	}
}

func TestFakePortWriteError(t *testing.T) {
	p := NewFakePort()
	p.Value = 0x0F
	p.WriteError = errors.New("simulated error")

	if err := p.Write(0xF0); err == nil {
		t.Error("expected error to be returned")
	}
	if p.Value != 0x0F {
		t.Errorf("latch should be unchanged on error, got 0x%02X", p.Value)
	}
	if len(p.Writes) != 0 {
		t.Errorf("expected no recorded writes, got %d", len(p.Writes))
	}
}

func TestFakePortCloseAndReset(t *testing.T) {
	p := NewFakePort()
	p.Write(0xFF)

	if p.Closed {
		t.Error("should not be closed initially")
	}
	if err := p.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !p.Closed {
		t.Error("should be closed after Close()")
	}

	p.Reset()
	if p.Value != 0 || p.Writes != nil || p.Closed {
		t.Errorf("reset did not clear state: value=0x%02X writes=%v closed=%v", p.Value, p.Writes, p.Closed)
	}
}

func TestSetBitPreservesOtherBits(t *testing.T) {
	p := NewFakePort()
	p.Value = 0b1010_0000

	if err := SetBit(p, 0, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Value != 0b1010_0001 {
		t.Errorf("after set: expected 0xA1, got 0x%02X", p.Value)
	}

	if err := SetBit(p, 5, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Value != 0b1000_0001 {
		t.Errorf("after clear: expected 0x81, got 0x%02X", p.Value)
	}
}

func TestActuatorsSet(t *testing.T) {
	p := NewFakePort()
	p.Value = 0b1111_0000 // unrelated bits must survive
	a := NewActuators(p)

	if err := a.Set(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Value != 0b1111_0011 {
		t.Errorf("ON: expected 0xF3, got 0x%02X", p.Value)
	}
	relay, buzzer, err := a.State()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !relay || !buzzer {
		t.Errorf("expected relay and buzzer on, got relay=%v buzzer=%v", relay, buzzer)
	}

	if err := a.Set(false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Value != 0b1111_0000 {
		t.Errorf("OFF: expected 0xF0, got 0x%02X", p.Value)
	}
	if len(p.Writes) != 2 {
		t.Errorf("expected one write per Set, got %d", len(p.Writes))
	}
}

func TestActuatorsSetError(t *testing.T) {
	p := NewFakePort()
	p.WriteError = errors.New("line busy")
	a := NewActuators(p)

	err := a.Set(true)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, p.WriteError) {
		t.Errorf("expected wrapped write error, got %v", err)
	}
}

func TestFakeInputTrigger(t *testing.T) {
	in := NewFakeInput(false)

	if in.Trigger() {
		t.Error("Trigger should report false without a handler")
	}

	var stamps []time.Duration
	in.OnEdge(func(at time.Duration) { stamps = append(stamps, at) })
	if !in.Trigger() {
		t.Error("Trigger should report true with a handler")
	}
	if len(stamps) != 1 || stamps[0] != 0 {
		t.Errorf("expected one edge at 0, got %v", stamps)
	}
}

func TestFakeInputClock(t *testing.T) {
	in := NewFakeInput(false)
	var stamps []time.Duration
	in.OnEdge(func(at time.Duration) { stamps = append(stamps, at) })

	in.Advance(30 * time.Millisecond)
	if in.Now() != 30*time.Millisecond {
		t.Errorf("expected clock at 30ms, got %v", in.Now())
	}
	in.Trigger()
	in.TriggerAt(5 * time.Millisecond)

	want := []time.Duration{30 * time.Millisecond, 5 * time.Millisecond}
	if len(stamps) != len(want) {
		t.Fatalf("expected %d edges, got %v", len(want), stamps)
	}
	for i := range want {
		if stamps[i] != want[i] {
			t.Errorf("edge %d: expected %v, got %v", i, want[i], stamps[i])
		}
	}
	if in.Now() != 30*time.Millisecond {
		t.Errorf("TriggerAt should not move the clock, got %v", in.Now())
	}
}

func TestFakeInputLevel(t *testing.T) {
	in := NewFakeInput(false)
	in.SetLevel(true)

	level, err := in.Level()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !level {
		t.Error("expected level high")
	}

	in.LevelError = errors.New("simulated error")
	if _, err := in.Level(); err == nil {
		t.Error("expected error to be returned")
	}
}

func TestParseEdge(t *testing.T) {
	tests := []struct {
		in      string
		want    Edge
		wantErr bool
	}{
		{"rising", EdgeRising, false},
		{"falling", EdgeFalling, false},
		{"both", EdgeBoth, false},
		{"", "", true},
		{"RISING", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEdge(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEdge(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseEdge(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// Compile-time interface checks.
var (
	_ Port  = (*FakePort)(nil)
	_ Input = (*FakeInput)(nil)
	_ Port  = (*RealPort)(nil)
	_ Input = (*RealInput)(nil)
)
