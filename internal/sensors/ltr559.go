// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/relabs-tech/enviro_logger/internal/env"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
)

// LTR559 registers.
const (
	ltr559ALSControl  = 0x80
	ltr559PSControl   = 0x81
	ltr559PSLED       = 0x82
	ltr559PSNPulses   = 0x83
	ltr559PSMeasRate  = 0x84
	ltr559ALSMeasRate = 0x85
	ltr559PartID      = 0x86
	ltr559ALSDataCh1  = 0x88 // ch1 low, ch1 high, ch0 low, ch0 high
	ltr559PSData      = 0x8D // low, high (bits 2:0)

	ltr559PartIDValue = 0x09 // upper nibble of PART_ID
)

// ALS setup: gain 4x, 50 ms integration.
const (
	ltr559Gain          = 4.0
	ltr559IntegrationMs = 50.0
)

// Lux coefficients indexed by the ch1/(ch0+ch1) ratio band.
var (
	ltr559Ch0Coeff = [4]float64{17743, 42785, 5926, 0}
	ltr559Ch1Coeff = [4]float64{-11059, 19548, -1185, 0}
)

// LTR559 reads ambient light and proximity.
type LTR559 struct {
	dev       conn.Conn
	threshold float64
}

// NewLTR559 checks the part ID and enables both ALS and PS in active mode.
// When proximity reaches threshold the light sensor is covered, so lux
// is reported as 1.0 instead of being read.
func NewLTR559(bus i2c.Bus, addr uint16, threshold float64) (*LTR559, error) {
	l := &LTR559{dev: &i2c.Dev{Bus: bus, Addr: addr}, threshold: threshold}

	id, err := l.readReg(ltr559PartID)
	if err != nil {
		return nil, fmt.Errorf("ltr559 part id (addr 0x%02X): %w", addr, err)
	}
	if id>>4 != ltr559PartIDValue {
		return nil, fmt.Errorf("ltr559: unexpected part id 0x%02X", id)
	}

	setup := [][2]byte{
		{ltr559ALSControl, 0x02<<2 | 0x01}, // gain 4x, active
		{ltr559PSControl, 0x03},            // active
		{ltr559PSLED, 0x1B},                // 30 kHz pulses, 100% duty, 50 mA
		{ltr559PSNPulses, 0x01},
		{ltr559PSMeasRate, 0x00},  // 50 ms
		{ltr559ALSMeasRate, 0x08}, // 50 ms integration, 50 ms repeat
	}
	for _, w := range setup {
		if err := l.dev.Tx(w[:], nil); err != nil {
			return nil, fmt.Errorf("ltr559 write reg 0x%02X: %w", w[0], err)
		}
	}

	return l, nil
}

func (l *LTR559) Name() string { return "ltr559" }

func (l *LTR559) Sense() (map[string]float64, error) {
	prox, err := l.proximity()
	if err != nil {
		return nil, err
	}

	lux := 1.0
	if float64(prox) < l.threshold {
		lux, err = l.lux()
		if err != nil {
			return nil, err
		}
	}

	return map[string]float64{
		env.MetricProximity: float64(prox),
		env.MetricLux:       lux,
	}, nil
}

// Halt puts both ALS and PS into standby.
func (l *LTR559) Halt() error {
	if err := l.dev.Tx([]byte{ltr559ALSControl, 0x00}, nil); err != nil {
		return fmt.Errorf("ltr559 als standby: %w", err)
	}
	if err := l.dev.Tx([]byte{ltr559PSControl, 0x00}, nil); err != nil {
		return fmt.Errorf("ltr559 ps standby: %w", err)
	}
	return nil
}

func (l *LTR559) readReg(reg byte) (byte, error) {
	var b [1]byte
	if err := l.dev.Tx([]byte{reg}, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (l *LTR559) proximity() (uint16, error) {
	var b [2]byte
	if err := l.dev.Tx([]byte{ltr559PSData}, b[:]); err != nil {
		return 0, fmt.Errorf("ltr559 read proximity: %w", err)
	}
	return uint16(b[1]&0x07)<<8 | uint16(b[0]), nil
}

func (l *LTR559) lux() (float64, error) {
	var b [4]byte
	if err := l.dev.Tx([]byte{ltr559ALSDataCh1}, b[:]); err != nil {
		return 0, fmt.Errorf("ltr559 read als: %w", err)
	}
	ch1 := uint16(b[1])<<8 | uint16(b[0])
	ch0 := uint16(b[3])<<8 | uint16(b[2])
	return computeLux(ch0, ch1, ltr559Gain, ltr559IntegrationMs), nil
}

// computeLux converts raw ALS channel counts to lux.
func computeLux(ch0, ch1 uint16, gain, integrationMs float64) float64 {
	ratio := 101.0
	if sum := float64(ch0) + float64(ch1); sum > 0 {
		ratio = float64(ch1) * 100 / sum
	}

	idx := 3
	switch {
	case ratio < 45:
		idx = 0
	case ratio < 64:
		idx = 1
	case ratio < 85:
		idx = 2
	}

	lux := float64(ch0)*ltr559Ch0Coeff[idx] - float64(ch1)*ltr559Ch1Coeff[idx]
	lux /= integrationMs / 100.0
	lux /= gain
	lux /= 10000.0
	if lux < 0 {
		return 0
	}
	return lux
}
