package logic

import "fmt"

// Display text and layout. Columns are 1-based.
const (
	ReadyText  = "System Ready"
	FanOnText  = "Fan: ON "
	FanOffText = "Fan: OFF"
	PressText  = "THRESH!"

	ThresholdColumn = 12 // row 1
	PressColumn     = 9  // row 2
)

// TemperatureText formats row 1's reading, e.g. "Temp:25.0C".
func TemperatureText(temp float64) string {
	return fmt.Sprintf("Temp:%.1fC", temp)
}

// ThresholdText formats row 1's threshold, e.g. "T:20".
func ThresholdText(t uint8) string {
	return fmt.Sprintf("T:%d", t)
}

// FanText returns row 2's fan status. Both texts are the same width so that
// one overwrites the other.
func FanText(s State) string {
	if s == StateOn {
		return FanOnText
	}
	return FanOffText
}
