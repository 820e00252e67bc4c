// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	serial "github.com/jacobsa/go-serial/serial"
	"github.com/relabs-tech/enviro_logger/internal/env"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// PMS5003 frame layout: 0x42 0x4D, frame length (28), 13 data words, checksum.
const (
	pmsStart1    = 0x42
	pmsStart2    = 0x4D
	pmsFrameLen  = 32
	pmsBodyLen   = 28
	pmsDataWords = 13
)

var (
	errPMSChecksum = errors.New("pms5003 checksum mismatch")
	errPMSLength   = errors.New("pms5003 bad frame length")
)

// PMSFrame is one decoded PMS5003 data frame.
type PMSFrame struct {
	Data [pmsDataWords]uint16
}

// PM values use the CF=1 standard particle figures (words 0-2).
func (f PMSFrame) PM1() uint16  { return f.Data[0] }
func (f PMSFrame) PM25() uint16 { return f.Data[1] }
func (f PMSFrame) PM10() uint16 { return f.Data[2] }

// Metrics maps the frame onto batch metrics. The atmospheric PM words
// (3-5) are not reported.
func (f PMSFrame) Metrics() map[string]float64 {
	return map[string]float64{
		env.MetricPM1:          float64(f.PM1()),
		env.MetricPM25:         float64(f.PM25()),
		env.MetricPM10:         float64(f.PM10()),
		env.MetricParticles03:  float64(f.Data[6]),
		env.MetricParticles05:  float64(f.Data[7]),
		env.MetricParticles10:  float64(f.Data[8]),
		env.MetricParticles25:  float64(f.Data[9]),
		env.MetricParticles50:  float64(f.Data[10]),
		env.MetricParticles100: float64(f.Data[11]),
	}
}

// ReadPMSFrame scans r for the start bytes and decodes the next frame.
func ReadPMSFrame(r io.ByteReader) (PMSFrame, error) {
	var raw [pmsFrameLen]byte

	// sync on 0x42 0x4D
	prev := byte(0)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return PMSFrame{}, err
		}
		if prev == pmsStart1 && b == pmsStart2 {
			break
		}
		prev = b
	}
	raw[0], raw[1] = pmsStart1, pmsStart2

	for i := 2; i < pmsFrameLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return PMSFrame{}, err
		}
		raw[i] = b
	}

	if n := binary.BigEndian.Uint16(raw[2:4]); n != pmsBodyLen {
		return PMSFrame{}, fmt.Errorf("%w: %d", errPMSLength, n)
	}

	var sum uint16
	for _, b := range raw[:pmsFrameLen-2] {
		sum += uint16(b)
	}
	if want := binary.BigEndian.Uint16(raw[pmsFrameLen-2:]); sum != want {
		return PMSFrame{}, fmt.Errorf("%w: got 0x%04X want 0x%04X", errPMSChecksum, sum, want)
	}

	var f PMSFrame
	for i := 0; i < pmsDataWords; i++ {
		f.Data[i] = binary.BigEndian.Uint16(raw[4+2*i:])
	}
	return f, nil
}

// PMS5003 reads particulate matter over UART.
type PMS5003 struct {
	port    io.ReadWriteCloser
	reader  *bufio.Reader
	timeout time.Duration
	now     func() time.Time
	pins    []gpio.PinOut
}

// PMS5003Options configures OpenPMS5003.
type PMS5003Options struct {
	PortName    string
	BaudRate    int
	ReadTimeout time.Duration
	EnablePin   string // driven high to power the sensor
	ResetPin    string // driven high to release reset
}

// OpenPMS5003 raises the enable/reset lines and opens the serial port.
func OpenPMS5003(opts PMS5003Options) (*PMS5003, error) {
	var pins []gpio.PinOut
	for _, name := range []string{opts.EnablePin, opts.ResetPin} {
		if name == "" {
			continue
		}
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("pms5003 pin %q not found", name)
		}
		if err := p.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("pms5003 pin %s high: %w", name, err)
		}
		pins = append(pins, p)
	}

	serialOpts := serial.OpenOptions{
		PortName:              opts.PortName,
		BaudRate:              uint(opts.BaudRate),
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		MinimumReadSize:       0,
		InterCharacterTimeout: 100, // ms; lets reads return so the deadline is honoured
	}
	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("pms5003 open %s: %w", opts.PortName, err)
	}

	return newPMS5003(port, opts.ReadTimeout, pins), nil
}

func newPMS5003(port io.ReadWriteCloser, timeout time.Duration, pins []gpio.PinOut) *PMS5003 {
	return &PMS5003{
		port:    port,
		reader:  bufio.NewReaderSize(port, 256),
		timeout: timeout,
		now:     time.Now,
		pins:    pins,
	}
}

func (p *PMS5003) Name() string { return "pms5003" }

func (p *PMS5003) Sense() (map[string]float64, error) {
	f, err := p.ReadFrame()
	if err != nil {
		return nil, err
	}
	return f.Metrics(), nil
}

// ReadFrame returns the next valid frame. Empty reads and corrupt frames
// are retried until the read timeout expires.
func (p *PMS5003) ReadFrame() (PMSFrame, error) {
	deadline := p.now().Add(p.timeout)
	var last error

	for p.now().Before(deadline) {
		f, err := ReadPMSFrame(p.reader)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, io.EOF) && !errors.Is(err, errPMSChecksum) && !errors.Is(err, errPMSLength) {
			return PMSFrame{}, fmt.Errorf("pms5003 read: %w", err)
		}
		last = err
	}

	if last == nil {
		last = io.EOF
	}
	return PMSFrame{}, fmt.Errorf("pms5003 no frame within %s: %w", p.timeout, last)
}

func (p *PMS5003) Halt() error {
	err := p.port.Close()
	for _, pin := range p.pins {
		_ = pin.Out(gpio.Low)
	}
	return err
}
