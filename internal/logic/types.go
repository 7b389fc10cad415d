// Package logic contains the pure control logic of the fan controller.
// This package has NO hardware dependencies (no GPIO, ADC, display, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// State represents the logical state of the fan outputs (relay and buzzer together).
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// EventType represents a state change worth reporting.
type EventType string

const (
	EventFanOn     EventType = "FAN_ON"
	EventFanOff    EventType = "FAN_OFF"
	EventThreshold EventType = "THRESHOLD"
)

// Event represents a state change observed by the controller.
type Event struct {
	Timestamp   time.Time
	Type        EventType
	Temperature float64
	Threshold   uint8
	Fan         State
}

// Input represents one averaged temperature reading.
type Input struct {
	Temperature float64
	Time        time.Time
}

// Cycle is the outcome of evaluating one reading.
type Cycle struct {
	Temperature float64
	// Threshold is the value the reading was compared against.
	Threshold uint8
	Fan       State
	// Events holds the fan transition, if any. The first cycle establishes
	// the baseline and never emits.
	Events []Event
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	FanOn     int
	FanOff    int
	Threshold int
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	Threshold       uint8
	Fan             State
	LastTemperature float64
	Cycles          int
	PressPending    bool
	Counts          EventCounts
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Snapshot  Snapshot
}
