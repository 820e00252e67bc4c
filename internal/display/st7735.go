// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display drives the 0.96" ST7735 LCD fitted to the Enviro+ board.
//
// The panel is 80x160 pixels in its native portrait orientation and sits at
// a (26, 1) offset inside the controller's RAM. Images are rotated in
// software and streamed as RGB565.
package display

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
)

const (
	panelWidth  = 80
	panelHeight = 160
	offsetLeft  = 26
	offsetTop   = 1

	// spidev rejects transfers above 4096 bytes by default.
	maxChunk = 4096
)

// ST7735 commands.
const (
	cmdSWRESET = 0x01
	cmdSLPOUT  = 0x11
	cmdNORON   = 0x13
	cmdINVON   = 0x21
	cmdDISPOFF = 0x28
	cmdDISPON  = 0x29
	cmdCASET   = 0x2A
	cmdRASET   = 0x2B
	cmdRAMWR   = 0x2C
	cmdMADCTL  = 0x36
	cmdCOLMOD  = 0x3A
	cmdFRMCTR1 = 0xB1
	cmdFRMCTR2 = 0xB2
	cmdFRMCTR3 = 0xB3
	cmdINVCTR  = 0xB4
	cmdPWCTR1  = 0xC0
	cmdPWCTR2  = 0xC1
	cmdPWCTR4  = 0xC3
	cmdPWCTR5  = 0xC4
	cmdVMCTR1  = 0xC5
	cmdGMCTRP1 = 0xE0
	cmdGMCTRN1 = 0xE1
)

type initStep struct {
	cmd   byte
	data  []byte
	delay time.Duration
}

var initSequence = []initStep{
	{cmd: cmdSWRESET, delay: 150 * time.Millisecond},
	{cmd: cmdSLPOUT, delay: 500 * time.Millisecond},
	{cmd: cmdFRMCTR1, data: []byte{0x01, 0x2C, 0x2D}},
	{cmd: cmdFRMCTR2, data: []byte{0x01, 0x2C, 0x2D}},
	{cmd: cmdFRMCTR3, data: []byte{0x01, 0x2C, 0x2D, 0x01, 0x2C, 0x2D}},
	{cmd: cmdINVCTR, data: []byte{0x07}},
	{cmd: cmdPWCTR1, data: []byte{0xA2, 0x02, 0x84}},
	{cmd: cmdPWCTR2, data: []byte{0x0A, 0x00}},
	{cmd: cmdPWCTR4, data: []byte{0x8A, 0x2A}},
	{cmd: cmdPWCTR5, data: []byte{0x8A, 0xEE}},
	{cmd: cmdVMCTR1, data: []byte{0x0E}},
	{cmd: cmdINVON},
	{cmd: cmdMADCTL, data: []byte{0xC8}}, // row/col exchange off, BGR
	{cmd: cmdCOLMOD, data: []byte{0x05}}, // 16 bit
	{cmd: cmdGMCTRP1, data: []byte{0x02, 0x1C, 0x07, 0x12, 0x37, 0x32, 0x29, 0x2D, 0x29, 0x25, 0x2B, 0x39, 0x00, 0x01, 0x03, 0x10}},
	{cmd: cmdGMCTRN1, data: []byte{0x03, 0x1D, 0x07, 0x06, 0x2E, 0x2C, 0x29, 0x2D, 0x2E, 0x2E, 0x37, 0x3F, 0x00, 0x00, 0x02, 0x10}},
	{cmd: cmdNORON, delay: 10 * time.Millisecond},
	{cmd: cmdDISPON, delay: 100 * time.Millisecond},
}

// Options selects the SPI device and control lines.
type Options struct {
	SPIDevice string // e.g. "SPI0.1"
	DCPin     string
	Backlight string
	Rotation  int // 0, 90, 180 or 270
	SpeedHz   int64
}

// ST7735 is an opened display.
type ST7735 struct {
	port     spi.PortCloser
	conn     spi.Conn
	dc       gpio.PinOut
	bl       gpio.PinOut
	rotation int
}

// Open connects to the panel, runs the init sequence and turns the
// backlight on. periph host drivers must already be initialized.
func Open(opts Options) (*ST7735, error) {
	switch opts.Rotation {
	case 0, 90, 180, 270:
	default:
		return nil, fmt.Errorf("st7735: unsupported rotation %d", opts.Rotation)
	}

	dc := gpioreg.ByName(opts.DCPin)
	if dc == nil {
		return nil, fmt.Errorf("st7735: dc pin %q not found", opts.DCPin)
	}

	port, err := spireg.Open(opts.SPIDevice)
	if err != nil {
		return nil, fmt.Errorf("st7735: open %s: %w", opts.SPIDevice, err)
	}
	conn, err := port.Connect(physic.Frequency(opts.SpeedHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("st7735: connect %s: %w", opts.SPIDevice, err)
	}

	d := &ST7735{port: port, conn: conn, dc: dc, rotation: opts.Rotation}

	if opts.Backlight != "" {
		bl := gpioreg.ByName(opts.Backlight)
		if bl == nil {
			_ = port.Close()
			return nil, fmt.Errorf("st7735: backlight pin %q not found", opts.Backlight)
		}
		d.bl = bl
	}

	for _, step := range initSequence {
		if err := d.command(step.cmd, step.data...); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("st7735: init 0x%02X: %w", step.cmd, err)
		}
		if step.delay > 0 {
			time.Sleep(step.delay)
		}
	}

	if d.bl != nil {
		if err := d.bl.Out(gpio.High); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("st7735: backlight on: %w", err)
		}
	}
	return d, nil
}

// Bounds returns the drawable area after rotation.
func (d *ST7735) Bounds() image.Rectangle {
	return LogicalBounds(d.rotation)
}

// Draw pushes a full frame. img is read in logical (rotated) coordinates.
func (d *ST7735) Draw(img image.Image) error {
	frame := EncodeFrame(img, d.rotation)

	if err := d.command(cmdCASET, 0, offsetLeft, 0, offsetLeft+panelWidth-1); err != nil {
		return fmt.Errorf("st7735: set columns: %w", err)
	}
	if err := d.command(cmdRASET, 0, offsetTop, 0, offsetTop+panelHeight-1); err != nil {
		return fmt.Errorf("st7735: set rows: %w", err)
	}
	if err := d.command(cmdRAMWR); err != nil {
		return fmt.Errorf("st7735: ram write: %w", err)
	}
	if err := d.data(frame); err != nil {
		return fmt.Errorf("st7735: frame: %w", err)
	}
	return nil
}

// Halt blanks the panel, switches the backlight off and releases the port.
func (d *ST7735) Halt() error {
	err := d.command(cmdDISPOFF)
	if d.bl != nil {
		_ = d.bl.Out(gpio.Low)
	}
	if cerr := d.port.Close(); err == nil {
		err = cerr
	}
	return err
}

func (d *ST7735) command(cmd byte, data ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.conn.Tx([]byte{cmd}, nil); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return d.data(data)
}

func (d *ST7735) data(b []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(b) > 0 {
		n := min(len(b), maxChunk)
		if err := d.conn.Tx(b[:n], nil); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// LogicalBounds is the canvas size callers draw on for a rotation.
func LogicalBounds(rotation int) image.Rectangle {
	if rotation == 90 || rotation == 270 {
		return image.Rect(0, 0, panelHeight, panelWidth)
	}
	return image.Rect(0, 0, panelWidth, panelHeight)
}

// EncodeFrame maps img onto the native panel and encodes it as big-endian
// RGB565, row by row. Rotation is counter-clockwise.
func EncodeFrame(img image.Image, rotation int) []byte {
	out := make([]byte, panelWidth*panelHeight*2)
	origin := img.Bounds().Min

	for py := 0; py < panelHeight; py++ {
		for px := 0; px < panelWidth; px++ {
			var lx, ly int
			switch rotation {
			case 90:
				lx, ly = panelHeight-1-py, px
			case 180:
				lx, ly = panelWidth-1-px, panelHeight-1-py
			case 270:
				lx, ly = py, panelWidth-1-px
			default:
				lx, ly = px, py
			}
			v := RGB565(img.At(origin.X+lx, origin.Y+ly))
			i := (py*panelWidth + px) * 2
			out[i] = byte(v >> 8)
			out[i+1] = byte(v)
		}
	}
	return out
}

// RGB565 packs c into 5-6-5 bits.
func RGB565(c color.Color) uint16 {
	r, g, b, _ := c.RGBA()
	return uint16(r>>11)<<11 | uint16(g>>10)<<5 | uint16(b>>11)
}
