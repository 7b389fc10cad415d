// Command fan-controller reads a temperature sensor, shows the reading on a
// character display and switches a fan relay and buzzer once it reaches a
// threshold that the push-button cycles through 20, 25, 30 and 35 °C.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/fan-controller/internal/adc"
	"github.com/sweeney/fan-controller/internal/button"
	"github.com/sweeney/fan-controller/internal/config"
	"github.com/sweeney/fan-controller/internal/delay"
	"github.com/sweeney/fan-controller/internal/gpio"
	"github.com/sweeney/fan-controller/internal/lcd"
	"github.com/sweeney/fan-controller/internal/logic"
)

const (
	splashHold = 2 * time.Second
	pressHold  = 500 * time.Millisecond
	loopHold   = 1000 * time.Millisecond
)

func main() {
	configPath := flag.String("config", "/etc/fan-controller.yaml", "Wiring configuration file (defaults are used if it does not exist)")
	chip := flag.String("chip", "", "GPIO chip name (overrides config)")
	heartbeat := flag.Duration("heartbeat", 0, "Heartbeat log interval (0 to disable, overrides config)")
	printState := flag.Bool("print-state", false, "Print one temperature reading, the output and button levels, then exit")
	writeConfig := flag.String("write-config", "", "Write the effective configuration to this file and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "chip":
			cfg.Chip = *chip
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		}
	})

	if *writeConfig != "" {
		if err := cfg.Save(*writeConfig); err != nil {
			log.Fatalf("fatal: %v", err)
		}
		log.Printf("wrote configuration to %s", *writeConfig)
		return
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, printState bool) error {
	edge, err := gpio.ParseEdge(cfg.Button.Edge)
	if err != nil {
		return fmt.Errorf("button edge: %w", err)
	}

	displayPort, err := gpio.NewRealPort(cfg.Chip, cfg.DisplayOffsets())
	if err != nil {
		return fmt.Errorf("init display port: %w", err)
	}
	defer displayPort.Close()

	outputPort, err := gpio.NewRealPort(cfg.Chip, cfg.ActuatorOffsets())
	if err != nil {
		return fmt.Errorf("init output port: %w", err)
	}
	defer outputPort.Close()

	buttonIn, err := gpio.NewRealInput(cfg.Chip, cfg.Button.Pin, edge)
	if err != nil {
		return fmt.Errorf("init button: %w", err)
	}
	defer buttonIn.Close()

	conv, err := adc.OpenMCP3008(cfg.ADC.SPIPort)
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer conv.Close()

	a, err := newApp(cfg, hardware{
		display: displayPort,
		outputs: outputPort,
		button:  buttonIn,
		adc:     conv,
	}, delay.Sleep, time.Now)
	if err != nil {
		return err
	}

	// Print state mode
	if printState {
		return a.printState(os.Stdout)
	}

	if err := a.startup(); err != nil {
		return err
	}

	log.Printf("started: chip=%s edge=%s debounce=%v clock=%s heartbeat=%v",
		cfg.Chip, edge, cfg.Button.Debounce, cfg.Clock(), cfg.Heartbeat)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return a.run(sigCh)
}

// hardware is the set of devices the controller drives.
type hardware struct {
	display gpio.Port
	outputs gpio.Port
	button  gpio.Input
	adc     adc.Converter
}

type app struct {
	sampler   *adc.Sampler
	display   *lcd.Display
	actuators *gpio.Actuators
	button    *button.Handler
	input     gpio.Input
	ctrl      *logic.Controller
	heartbeat time.Duration
	wait      delay.Func
	now       func() time.Time
}

func newApp(cfg *config.Config, hw hardware, wait delay.Func, now func() time.Time) (*app, error) {
	justify, err := cfg.Justification()
	if err != nil {
		return nil, err
	}

	sampler := adc.NewSampler(hw.adc, adc.Config{Clock: cfg.Clock(), Justify: justify}, wait)
	sampler.Timeout = cfg.ADC.ConversionTimeout

	if cfg.Display.Width < 16 {
		log.Printf("display width %d is narrower than the 16-column layout; text will be clipped", cfg.Display.Width)
	}

	ctrl := logic.NewController(now())
	return &app{
		sampler:   sampler,
		display:   lcd.New(hw.display, wait),
		actuators: gpio.NewActuators(hw.outputs),
		button:    button.New(hw.button, ctrl.Latch, wait, cfg.Button.Debounce),
		input:     hw.button,
		ctrl:      ctrl,
		heartbeat: cfg.Heartbeat,
		wait:      wait,
		now:       now,
	}, nil
}

// startup brings the outputs to a known state, initialises the converter and
// display, arms the button and shows the splash.
func (a *app) startup() error {
	if err := a.actuators.Set(false); err != nil {
		return fmt.Errorf("init outputs: %w", err)
	}
	if err := a.sampler.Init(); err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	if err := a.display.Init(); err != nil {
		return fmt.Errorf("init display: %w", err)
	}
	if err := a.display.Clear(); err != nil {
		return fmt.Errorf("init display: %w", err)
	}

	a.button.Attach()

	if err := a.display.Print(1, 1, logic.ReadyText); err != nil {
		return fmt.Errorf("splash: %w", err)
	}
	a.wait(splashHold)
	return nil
}

// run executes control cycles until a signal arrives. Signals are checked
// between cycles only.
func (a *app) run(sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			return a.shutdown(signalName(s))
		default:
		}

		a.cycle()
	}
}

func (a *app) cycle() {
	temp, err := a.sampler.ReadStableTemperature()
	if err != nil {
		log.Printf("adc read error: %v", err)
		a.wait(loopHold)
		return
	}

	t := a.now()
	c := a.ctrl.Evaluate(logic.Input{Temperature: temp, Time: t})
	for _, e := range c.Events {
		logEvent(e)
	}

	if err := a.drawReading(c); err != nil {
		log.Printf("display error: %v", err)
	}
	// The outputs are driven even when the display fails.
	if err := a.actuators.Set(c.Fan == logic.StateOn); err != nil {
		log.Printf("output error: %v", err)
	}
	if err := a.display.Print(2, 1, logic.FanText(c.Fan)); err != nil {
		log.Printf("display error: %v", err)
	}

	if e, ok := a.ctrl.TakePress(a.now()); ok {
		logEvent(e)
		if err := a.display.Print(2, logic.PressColumn, logic.PressText); err != nil {
			log.Printf("display error: %v", err)
		}
		a.wait(pressHold)
	}

	if hb := a.ctrl.CheckHeartbeat(t, a.heartbeat); hb != nil {
		s := hb.Snapshot
		bs := a.button.Stats()
		log.Printf("heartbeat: uptime=%v temp=%.1f threshold=%d fan=%s fan_on=%d fan_off=%d threshold_changes=%d presses=%d rejected=%d dropped=%d",
			hb.Uptime, s.LastTemperature, s.Threshold, s.Fan, s.Counts.FanOn, s.Counts.FanOff, s.Counts.Threshold,
			bs.Accepted, bs.Rejected, bs.Dropped)
	}

	a.wait(loopHold)
}

func (a *app) drawReading(c logic.Cycle) error {
	if err := a.display.Clear(); err != nil {
		return err
	}
	if err := a.display.Print(1, 1, logic.TemperatureText(c.Temperature)); err != nil {
		return err
	}
	return a.display.Print(1, logic.ThresholdColumn, logic.ThresholdText(c.Threshold))
}

// shutdown switches the fan and buzzer off and blanks the display.
func (a *app) shutdown(reason string) error {
	s := a.ctrl.Snapshot()
	log.Printf("shutdown: reason=%s cycles=%d threshold=%d fan=%s", reason, s.Cycles, s.Threshold, s.Fan)

	var errs []error
	if err := a.actuators.Set(false); err != nil {
		errs = append(errs, err)
	}
	if err := a.display.Clear(); err != nil {
		errs = append(errs, fmt.Errorf("clear display: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *app) printState(w io.Writer) error {
	if err := a.sampler.Init(); err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	raw, err := a.sampler.Sample(adc.TemperatureChannel)
	if err != nil {
		return fmt.Errorf("read adc: %w", err)
	}
	temp, err := a.sampler.ReadStableTemperature()
	if err != nil {
		return fmt.Errorf("read adc: %w", err)
	}
	relay, buzzer, err := a.actuators.State()
	if err != nil {
		return fmt.Errorf("read outputs: %w", err)
	}
	pressed, err := a.input.Level()
	if err != nil {
		return fmt.Errorf("read button: %w", err)
	}
	fmt.Fprintf(w, "Temp: %.1fC (raw %d), Relay: %s, Buzzer: %s, Button: %s\n",
		temp, raw, stateString(relay), stateString(buzzer), stateString(pressed))
	return nil
}

func logEvent(e logic.Event) {
	log.Printf("event: %s (temp=%.1f threshold=%d fan=%s)", e.Type, e.Temperature, e.Threshold, e.Fan)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
