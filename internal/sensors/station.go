// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"
	"log"

	"github.com/relabs-tech/enviro_logger/internal/config"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Station owns every opened sensor handle and the I2C bus they share.
// It is created once at startup and closed on exit.
type Station struct {
	bus     i2c.BusCloser
	sources []Source
}

// OpenStation initializes periph, opens the I2C bus and every enabled
// sensor. Any open failure is fatal and releases what was already opened.
func OpenStation(cfg *config.Config) (*Station, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	st := &Station{}

	if cfg.BME280Enabled || cfg.LTR559Enabled || cfg.MICS6814Enabled {
		bus, err := i2creg.Open(cfg.I2CBus)
		if err != nil {
			return nil, fmt.Errorf("i2c bus %q open: %w", cfg.I2CBus, err)
		}
		st.bus = bus
		log.Printf("station: i2c bus %s opened", bus)
	}

	if cfg.BME280Enabled {
		dev, err := NewBME280(st.bus, cfg.BME280I2CAddr)
		if err != nil {
			return nil, st.abort(err)
		}
		st.add(dev)
	}

	if cfg.LTR559Enabled {
		dev, err := NewLTR559(st.bus, cfg.LTR559I2CAddr, cfg.ProximityLuxThreshold)
		if err != nil {
			return nil, st.abort(err)
		}
		st.add(dev)
	}

	if cfg.MICS6814Enabled {
		dev, err := NewMICS6814(st.bus, cfg.ADS1015I2CAddr, cfg.GasHeaterPin)
		if err != nil {
			return nil, st.abort(err)
		}
		st.add(dev)
	}

	if cfg.PMS5003Enabled {
		dev, err := OpenPMS5003(PMS5003Options{
			PortName:    cfg.PMS5003SerialPort,
			BaudRate:    cfg.PMS5003BaudRate,
			ReadTimeout: cfg.PMS5003ReadTimeout,
			EnablePin:   cfg.PMS5003EnablePin,
			ResetPin:    cfg.PMS5003ResetPin,
		})
		if err != nil {
			return nil, st.abort(err)
		}
		st.add(dev)
	}

	return st, nil
}

func (s *Station) add(src Source) {
	s.sources = append(s.sources, src)
	log.Printf("station: %s ready", src.Name())
}

func (s *Station) abort(err error) error {
	if cerr := s.Close(); cerr != nil {
		log.Printf("station: cleanup after failed open: %v", cerr)
	}
	return err
}

// Sources returns the opened sensors in sampling order.
func (s *Station) Sources() []Source {
	return s.sources
}

// Close halts every sensor and closes the bus.
func (s *Station) Close() error {
	var errs []error
	for _, src := range s.sources {
		if err := src.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("%s halt: %w", src.Name(), err))
		}
	}
	s.sources = nil
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("i2c bus close: %w", err))
		}
		s.bus = nil
	}
	return errors.Join(errs...)
}
