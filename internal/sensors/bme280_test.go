// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"testing"

	"github.com/relabs-tech/enviro_logger/internal/env"
	"periph.io/x/conn/v3/physic"
)

type fakeEnvironment struct {
	e   physic.Env
	err error
}

func (f *fakeEnvironment) Sense(e *physic.Env) error {
	if f.err != nil {
		return f.err
	}
	*e = f.e
	return nil
}

func (f *fakeEnvironment) Halt() error { return nil }

func TestBME280ConvertsUnits(t *testing.T) {
	b := &BME280{dev: &fakeEnvironment{e: physic.Env{
		Temperature: physic.ZeroCelsius + 21*physic.Celsius,
		Pressure:    101325 * physic.Pascal,
		Humidity:    45 * physic.PercentRH,
	}}}

	m, err := b.Sense()
	if err != nil {
		t.Fatalf("sense: %v", err)
	}
	if !almostEqual(m[env.MetricTemperature], 21) {
		t.Fatalf("temperature %f", m[env.MetricTemperature])
	}
	if !almostEqual(m[env.MetricPressure], 1013.25) {
		t.Fatalf("pressure %f", m[env.MetricPressure])
	}
	if !almostEqual(m[env.MetricHumidity], 45) {
		t.Fatalf("humidity %f", m[env.MetricHumidity])
	}
}

func TestBME280SenseError(t *testing.T) {
	b := &BME280{dev: &fakeEnvironment{err: errors.New("i/o")}}
	if _, err := b.Sense(); err == nil {
		t.Fatalf("expected error")
	}
}
