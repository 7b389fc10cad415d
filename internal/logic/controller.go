package logic

import (
	"sync/atomic"
	"time"
)

// Threshold cycle in whole degrees Celsius.
const (
	MinThreshold  = 20
	MaxThreshold  = 35
	ThresholdStep = 5
)

// NextThreshold advances t by one step, wrapping to MinThreshold past MaxThreshold.
func NextThreshold(t uint8) uint8 {
	t += ThresholdStep
	if t > MaxThreshold {
		return MinThreshold
	}
	return t
}

// FanOn reports whether the fan should run. The comparison is inclusive.
func FanOn(temp float64, threshold uint8) bool {
	return temp >= float64(threshold)
}

// Controller tracks the threshold, the fan state and the button flag.
//
// Latch may be called from any goroutine. Every other method belongs to the
// control loop.
type Controller struct {
	threshold     uint8
	fan           State
	pressed       atomic.Bool
	lastTemp      float64
	cycles        int
	startTime     time.Time
	lastHeartbeat time.Time
	counts        EventCounts
}

// NewController creates a controller at MinThreshold with the fan state unknown.
// The startTime is used for calculating uptime in heartbeat events.
func NewController(startTime time.Time) *Controller {
	return &Controller{
		threshold:     MinThreshold,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Latch records a debounced button press. Presses latched before the loop
// consumes the flag collapse into one.
func (c *Controller) Latch() {
	c.pressed.Store(true)
}

// Evaluate compares a reading against the current threshold.
func (c *Controller) Evaluate(in Input) Cycle {
	fan := StateOff
	if FanOn(in.Temperature, c.threshold) {
		fan = StateOn
	}

	cycle := Cycle{
		Temperature: in.Temperature,
		Threshold:   c.threshold,
		Fan:         fan,
	}

	if c.fan != "" && c.fan != fan {
		typ := EventFanOff
		if fan == StateOn {
			typ = EventFanOn
			c.counts.FanOn++
		} else {
			c.counts.FanOff++
		}
		cycle.Events = append(cycle.Events, Event{
			Timestamp:   in.Time,
			Type:        typ,
			Temperature: in.Temperature,
			Threshold:   c.threshold,
			Fan:         fan,
		})
	}

	c.fan = fan
	c.lastTemp = in.Temperature
	c.cycles++
	return cycle
}

// TakePress consumes the button flag. If a press was pending the threshold
// advances and the event is returned.
func (c *Controller) TakePress(now time.Time) (Event, bool) {
	if !c.pressed.Swap(false) {
		return Event{}, false
	}
	c.threshold = NextThreshold(c.threshold)
	c.counts.Threshold++
	return Event{
		Timestamp:   now,
		Type:        EventThreshold,
		Temperature: c.lastTemp,
		Threshold:   c.threshold,
		Fan:         c.fan,
	}, true
}

// Threshold returns the current threshold.
func (c *Controller) Threshold() uint8 {
	return c.threshold
}

// Fan returns the fan state from the last cycle, or "" before the first one.
func (c *Controller) Fan() State {
	return c.fan
}

// IsBaselined returns whether at least one reading has been evaluated.
func (c *Controller) IsBaselined() bool {
	return c.cycles > 0
}

// Snapshot returns the current controller state.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Threshold:       c.threshold,
		Fan:             c.fan,
		LastTemperature: c.lastTemp,
		Cycles:          c.cycles,
		PressPending:    c.pressed.Load(),
		Counts:          c.counts,
	}
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !c.IsBaselined() {
		return nil
	}

	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Snapshot:  c.Snapshot(),
	}
}
