// Package config holds the board wiring: which GPIO lines carry each port
// bit, which SPI port the converter is on, and the timing knobs that are not
// fixed by the display or sensor.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/sweeney/fan-controller/internal/adc"
	"github.com/sweeney/fan-controller/internal/button"
	"github.com/sweeney/fan-controller/internal/gpio"
)

// Config represents the application configuration.
type Config struct {
	Chip      string        `yaml:"chip"`
	Display   DisplayConfig `yaml:"display"`
	Outputs   OutputConfig  `yaml:"outputs"`
	Button    ButtonConfig  `yaml:"button"`
	ADC       ADCConfig     `yaml:"adc"`
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables
}

// DisplayConfig contains the display line offsets.
type DisplayConfig struct {
	RS    int `yaml:"rs"`
	EN    int `yaml:"en"`
	D4    int `yaml:"d4"`
	D5    int `yaml:"d5"`
	D6    int `yaml:"d6"`
	D7    int `yaml:"d7"`
	Width int `yaml:"width"`
}

// OutputConfig contains the actuator line offsets.
type OutputConfig struct {
	Relay  int `yaml:"relay"`
	Buzzer int `yaml:"buzzer"`
}

// ButtonConfig contains the button line and its edge handling.
type ButtonConfig struct {
	Pin      int           `yaml:"pin"`
	Edge     string        `yaml:"edge"` // rising, falling or both
	Debounce time.Duration `yaml:"debounce"`
}

// ADCConfig contains the converter settings.
type ADCConfig struct {
	SPIPort           string        `yaml:"spi_port"` // "" selects the first port
	ClockHz           int64         `yaml:"clock_hz"`
	Justify           string        `yaml:"justify"`            // right or left
	ConversionTimeout time.Duration `yaml:"conversion_timeout"` // 0 waits forever
}

// Default returns the configuration for the reference wiring.
func Default() *Config {
	return &Config{
		Chip: "gpiochip0",
		Display: DisplayConfig{
			RS:    gpio.DefaultPinRS,
			EN:    gpio.DefaultPinEN,
			D4:    gpio.DefaultPinD4,
			D5:    gpio.DefaultPinD5,
			D6:    gpio.DefaultPinD6,
			D7:    gpio.DefaultPinD7,
			Width: 16,
		},
		Outputs: OutputConfig{
			Relay:  gpio.DefaultPinRelay,
			Buzzer: gpio.DefaultPinBuzzer,
		},
		Button: ButtonConfig{
			Pin:      gpio.DefaultPinButton,
			Edge:     string(gpio.EdgeRising),
			Debounce: button.DefaultDebounce,
		},
		ADC: ADCConfig{
			ClockHz: int64(adc.DefaultClock / physic.Hertz),
			Justify: "right",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults fills fields whose zero value is never valid.
// Line offsets are left alone since 0 is a real line.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Chip == "" {
		c.Chip = def.Chip
	}
	if c.Display.Width == 0 {
		c.Display.Width = def.Display.Width
	}
	if c.Button.Edge == "" {
		c.Button.Edge = def.Button.Edge
	}
	if c.Button.Debounce == 0 {
		c.Button.Debounce = def.Button.Debounce
	}
	if c.ADC.ClockHz == 0 {
		c.ADC.ClockHz = def.ADC.ClockHz
	}
	if c.ADC.Justify == "" {
		c.ADC.Justify = def.ADC.Justify
	}
}

// Validate checks that every line is assigned once and that enumerated
// fields hold known values.
func (c *Config) Validate() error {
	var errs []error

	lines := []struct {
		name   string
		offset int
	}{
		{"display.rs", c.Display.RS},
		{"display.en", c.Display.EN},
		{"display.d4", c.Display.D4},
		{"display.d5", c.Display.D5},
		{"display.d6", c.Display.D6},
		{"display.d7", c.Display.D7},
		{"outputs.relay", c.Outputs.Relay},
		{"outputs.buzzer", c.Outputs.Buzzer},
		{"button.pin", c.Button.Pin},
	}
	seen := make(map[int]string)
	for _, l := range lines {
		if l.offset < 0 {
			errs = append(errs, fmt.Errorf("%s: negative line offset %d", l.name, l.offset))
			continue
		}
		if prev, ok := seen[l.offset]; ok {
			errs = append(errs, fmt.Errorf("%s: line %d already used by %s", l.name, l.offset, prev))
			continue
		}
		seen[l.offset] = l.name
	}

	if c.Display.Width < 1 || c.Display.Width > 40 {
		errs = append(errs, fmt.Errorf("display.width: %d out of range 1-40", c.Display.Width))
	}
	if _, err := gpio.ParseEdge(c.Button.Edge); err != nil {
		errs = append(errs, fmt.Errorf("button.edge: %w", err))
	}
	if c.Button.Debounce < 0 {
		errs = append(errs, fmt.Errorf("button.debounce: negative duration %v", c.Button.Debounce))
	}
	if _, err := c.Justification(); err != nil {
		errs = append(errs, err)
	}
	if c.ADC.ClockHz < 0 || c.ADC.ClockHz > int64(adc.MaxMCP3008Clock/physic.Hertz) {
		errs = append(errs, fmt.Errorf("adc.clock_hz: %d out of range", c.ADC.ClockHz))
	}
	if c.ADC.ConversionTimeout < 0 {
		errs = append(errs, fmt.Errorf("adc.conversion_timeout: negative duration %v", c.ADC.ConversionTimeout))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, fmt.Errorf("heartbeat: negative duration %v", c.Heartbeat))
	}

	return errors.Join(errs...)
}

// DisplayOffsets maps each display port bit to its line offset.
func (c *Config) DisplayOffsets() [8]int {
	return [8]int{
		gpio.BitRS: c.Display.RS,
		gpio.BitEN: c.Display.EN,
		2:          gpio.NoLine,
		3:          gpio.NoLine,
		4:          c.Display.D4,
		5:          c.Display.D5,
		6:          c.Display.D6,
		7:          c.Display.D7,
	}
}

// ActuatorOffsets maps each actuator port bit to its line offset.
func (c *Config) ActuatorOffsets() [8]int {
	offsets := [8]int{}
	for i := range offsets {
		offsets[i] = gpio.NoLine
	}
	offsets[gpio.BitRelay] = c.Outputs.Relay
	offsets[gpio.BitBuzzer] = c.Outputs.Buzzer
	return offsets
}

// Clock returns the converter clock.
func (c *Config) Clock() physic.Frequency {
	return physic.Frequency(c.ADC.ClockHz) * physic.Hertz
}

// Justification parses adc.justify.
func (c *Config) Justification() (adc.Justification, error) {
	switch c.ADC.Justify {
	case "right":
		return adc.JustifyRight, nil
	case "left":
		return adc.JustifyLeft, nil
	default:
		return 0, fmt.Errorf("adc.justify: invalid value %q (want right or left)", c.ADC.Justify)
	}
}
