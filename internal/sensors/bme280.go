// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/relabs-tech/enviro_logger/internal/env"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
)

// environmentSensor is the subset of *bmxx80.Dev used here.
type environmentSensor interface {
	Sense(e *physic.Env) error
	Halt() error
}

// BME280 reads temperature, pressure and humidity.
type BME280 struct {
	dev environmentSensor
}

// NewBME280 opens the BME280 on bus at addr (0x76 on the Enviro+).
func NewBME280(bus i2c.Bus, addr uint16) (*BME280, error) {
	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("bme280 init (addr 0x%02X): %w", addr, err)
	}
	return &BME280{dev: dev}, nil
}

func (b *BME280) Name() string { return "bme280" }

func (b *BME280) Sense() (map[string]float64, error) {
	var e physic.Env
	if err := b.dev.Sense(&e); err != nil {
		return nil, fmt.Errorf("bme280 sense: %w", err)
	}
	return envToMetrics(e), nil
}

func (b *BME280) Halt() error {
	return b.dev.Halt()
}

func envToMetrics(e physic.Env) map[string]float64 {
	pressurePa := float64(e.Pressure) / float64(physic.Pascal)
	return map[string]float64{
		env.MetricTemperature: e.Temperature.Celsius(),
		env.MetricPressure:    pressurePa / 100.0, // 1 hPa = 100 Pa
		env.MetricHumidity:    float64(e.Humidity) / float64(physic.PercentRH),
	}
}
