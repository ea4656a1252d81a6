package main

import (
	"errors"
	"fmt"

	"github.com/sweeney/garden-controller/internal/app"
	"github.com/sweeney/garden-controller/internal/config"
	"github.com/sweeney/garden-controller/internal/gpio"
	"github.com/sweeney/garden-controller/internal/sensor"
)

// hardware holds the GPIO lines the daemon owns.
type hardware struct {
	light  gpio.Output
	valve  gpio.Output
	button *gpio.Button
	motion gpio.Input // nil when no PIR is fitted
}

func openHardware(cfg *config.Config) (*hardware, error) {
	g := cfg.GPIO
	hw := &hardware{}

	light, err := gpio.NewRealOutput(g.Chip, g.LightPin, g.RelayActiveLow)
	if err != nil {
		return nil, fmt.Errorf("light relay: %w", err)
	}
	hw.light = light

	valve, err := gpio.NewRealOutput(g.Chip, g.ValvePin, g.RelayActiveLow)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("valve relay: %w", err)
	}
	hw.valve = valve

	// The button shorts the line to ground.
	btn, err := gpio.NewRealInput(g.Chip, g.ButtonPin, true, true)
	if err != nil {
		hw.Close()
		return nil, fmt.Errorf("button: %w", err)
	}
	hw.button = gpio.NewButton(btn, cfg.Debounce())

	if g.MotionEnabled {
		pir, err := gpio.NewRealInput(g.Chip, g.MotionPin, false, false)
		if err != nil {
			hw.Close()
			return nil, fmt.Errorf("motion sensor: %w", err)
		}
		hw.motion = pir
	}
	return hw, nil
}

// Close drives the relays OFF and releases every line.
func (h *hardware) Close() error {
	var errs []error
	if h.light != nil {
		errs = append(errs, h.light.Close())
	}
	if h.valve != nil {
		errs = append(errs, h.valve.Close())
	}
	if h.button != nil {
		errs = append(errs, h.button.Close())
	}
	if h.motion != nil {
		errs = append(errs, h.motion.Close())
	}
	return errors.Join(errs...)
}

func iio(src config.IIOSource) sensor.Sensor[float64] {
	if !src.Fitted() {
		return sensor.Absent[float64]{}
	}
	return sensor.NewIIOChannel(src.Device, src.File, src.Scale)
}

func buildSensors(cfg *config.Config, hw *hardware) app.Sensors {
	s := app.Sensors{
		Climate: sensor.Climate{
			Temperature: iio(cfg.Sensors.Temperature),
			Humidity:    iio(cfg.Sensors.Humidity),
		},
		Motion:     sensor.Absent[bool]{},
		Lux:        iio(cfg.Sensors.Lux),
		AirQuality: iio(cfg.Sensors.AirQuality),
		Soil:       iio(cfg.Sensors.Soil),
	}
	if hw.motion != nil {
		s.Motion = sensor.NewMotion(hw.motion)
	}
	return s
}
