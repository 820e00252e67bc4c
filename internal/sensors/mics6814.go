// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/relabs-tech/enviro_logger/internal/env"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
)

// MICS6814 divider: each sensing element sits under a 56 kΩ load on 3.3 V.
const (
	micsSupplyVolts = 3.3
	micsLoadOhms    = 56000.0
)

type gasChannel struct {
	metric string
	pin    analog.PinADC
}

// MICS6814 reads the oxidising, reducing and NH3 elements through the
// on-board ADS1015 and reports each as a resistance in kΩ.
type MICS6814 struct {
	adc      *ads1x15.Dev
	heater   gpio.PinOut
	channels []gasChannel
}

// NewMICS6814 opens the ADS1015 at addr, binds channels 0-2 single-ended
// and switches the heater on if heaterPin is set.
func NewMICS6814(bus i2c.Bus, addr uint16, heaterPin string) (*MICS6814, error) {
	adc, err := ads1x15.NewADS1015(bus, &ads1x15.Opts{I2cAddress: addr})
	if err != nil {
		return nil, fmt.Errorf("mics6814 ads1015 init (addr 0x%02X): %w", addr, err)
	}

	m := &MICS6814{adc: adc}

	bind := []struct {
		metric string
		ch     ads1x15.Channel
	}{
		{env.MetricOxidising, ads1x15.Channel0},
		{env.MetricReducing, ads1x15.Channel1},
		{env.MetricNH3, ads1x15.Channel2},
	}
	for _, b := range bind {
		pin, err := adc.PinForChannel(b.ch, 4096*physic.MilliVolt, 1600*physic.Hertz, ads1x15.BestQuality)
		if err != nil {
			_ = m.Halt()
			return nil, fmt.Errorf("mics6814 %s channel: %w", b.metric, err)
		}
		m.channels = append(m.channels, gasChannel{metric: b.metric, pin: pin})
	}

	if heaterPin != "" {
		p := gpioreg.ByName(heaterPin)
		if p == nil {
			_ = m.Halt()
			return nil, fmt.Errorf("mics6814 heater pin %q not found", heaterPin)
		}
		if err := p.Out(gpio.High); err != nil {
			_ = m.Halt()
			return nil, fmt.Errorf("mics6814 heater on: %w", err)
		}
		m.heater = p
	}

	return m, nil
}

func (m *MICS6814) Name() string { return "mics6814" }

func (m *MICS6814) Sense() (map[string]float64, error) {
	out := make(map[string]float64, len(m.channels))
	for _, c := range m.channels {
		s, err := c.pin.Read()
		if err != nil {
			return nil, fmt.Errorf("mics6814 read %s: %w", c.metric, err)
		}
		volts := float64(s.V) / float64(physic.Volt)
		out[c.metric] = gasResistance(volts) / 1000.0
	}
	return out, nil
}

// Halt releases the ADC pins and turns the heater off.
func (m *MICS6814) Halt() error {
	var first error
	for _, c := range m.channels {
		if err := c.pin.Halt(); err != nil && first == nil {
			first = err
		}
	}
	if m.heater != nil {
		if err := m.heater.Out(gpio.Low); err != nil && first == nil {
			first = err
		}
	}
	if err := m.adc.Halt(); err != nil && first == nil {
		first = err
	}
	return first
}

// gasResistance converts the divider voltage to the sensing element's
// resistance in ohms. A saturated reading (>= supply) yields 0.
func gasResistance(volts float64) float64 {
	if volts >= micsSupplyVolts || volts <= 0 {
		return 0
	}
	return volts * micsLoadOhms / (micsSupplyVolts - volts)
}
