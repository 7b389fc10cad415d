// Package adc samples the temperature sensor through a 10-bit analog-to-digital
// converter. The Converter interface is the register-level contract of the
// converter; Sampler layers the channel-settling waits, the busy-poll and the
// averaging on top of it.
package adc

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/sweeney/fan-controller/internal/delay"
)

// Justification selects how a 10-bit result is aligned in the 16-bit result register.
type Justification int

const (
	JustifyRight Justification = iota // bits 9..0
	JustifyLeft                       // bits 15..6
)

// Config is applied once by Sampler.Init.
type Config struct {
	// Clock is the conversion clock. Zero selects DefaultClock.
	Clock   physic.Frequency
	Justify Justification
}

// Converter is a 10-bit multi-channel converter.
type Converter interface {
	// Configure sets the conversion clock and result justification.
	Configure(cfg Config) error

	// SelectChannel routes the given channel to the sample-and-hold.
	SelectChannel(ch uint8) error

	// StartConversion begins a conversion on the selected channel.
	StartConversion() error

	// Busy reports whether the conversion is still in progress.
	Busy() (bool, error)

	// Result returns the last conversion result using the configured justification.
	Result() (uint16, error)
}

const (
	MaxCount           = 1023 // full scale of a 10-bit result
	TemperatureChannel = 0
	StableSamples      = 5

	SettleDelay      = 10 * time.Millisecond // after Configure
	AcquisitionDelay = 2 * time.Millisecond  // after channel select
	SampleInterval   = 20 * time.Millisecond // after each averaged sample

	DefaultClock = 1 * physic.MegaHertz
)

// ErrConversionTimeout is returned when the converter stays busy past Sampler.Timeout.
var ErrConversionTimeout = errors.New("adc: conversion did not complete")

// Celsius converts a raw count from a 10 mV/°C sensor on a 5 V reference.
func Celsius(raw uint16) float64 {
	return float64(raw) * 5.0 * 100.0 / 1024.0
}

// Sampler reads the converter with the fixed timing the sensor needs.
type Sampler struct {
	conv  Converter
	cfg   Config
	delay delay.Func
	now   func() time.Time

	// Timeout bounds the busy-poll of a single conversion.
	// Zero waits forever.
	Timeout time.Duration
}

// NewSampler creates a Sampler. wait is used for every settling delay.
func NewSampler(conv Converter, cfg Config, wait delay.Func) *Sampler {
	if cfg.Clock == 0 {
		cfg.Clock = DefaultClock
	}
	return &Sampler{
		conv:  conv,
		cfg:   cfg,
		delay: wait,
		now:   time.Now,
	}
}

// Init configures the converter and waits for it to settle.
func (s *Sampler) Init() error {
	if err := s.conv.Configure(s.cfg); err != nil {
		return fmt.Errorf("configure adc: %w", err)
	}
	s.delay(SettleDelay)
	return nil
}

// Sample performs one conversion on ch and returns a value in [0, MaxCount].
func (s *Sampler) Sample(ch uint8) (uint16, error) {
	if err := s.conv.SelectChannel(ch); err != nil {
		return 0, fmt.Errorf("select channel %d: %w", ch, err)
	}
	s.delay(AcquisitionDelay)

	if err := s.conv.StartConversion(); err != nil {
		return 0, fmt.Errorf("start conversion: %w", err)
	}

	start := s.now()
	for {
		busy, err := s.conv.Busy()
		if err != nil {
			return 0, fmt.Errorf("poll conversion: %w", err)
		}
		if !busy {
			break
		}
		if s.Timeout > 0 && s.now().Sub(start) >= s.Timeout {
			return 0, fmt.Errorf("channel %d: %w", ch, ErrConversionTimeout)
		}
	}

	raw, err := s.conv.Result()
	if err != nil {
		return 0, fmt.Errorf("read result: %w", err)
	}
	if s.cfg.Justify == JustifyLeft {
		raw >>= 6
	}
	return raw & MaxCount, nil
}

// ReadStableTemperature returns the mean temperature of StableSamples
// conversions of TemperatureChannel.
func (s *Sampler) ReadStableTemperature() (float64, error) {
	var total float64
	for i := 0; i < StableSamples; i++ {
		raw, err := s.Sample(TemperatureChannel)
		if err != nil {
			return 0, err
		}
		total += Celsius(raw)
		s.delay(SampleInterval)
	}
	return total / StableSamples, nil
}
