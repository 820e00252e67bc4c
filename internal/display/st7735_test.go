// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

func TestRGB565(t *testing.T) {
	cases := []struct {
		c    color.Color
		want uint16
	}{
		{color.RGBA{255, 0, 0, 255}, 0xF800},
		{color.RGBA{0, 255, 0, 255}, 0x07E0},
		{color.RGBA{0, 0, 255, 255}, 0x001F},
		{color.White, 0xFFFF},
		{color.Black, 0x0000},
	}
	for _, tc := range cases {
		if got := RGB565(tc.c); got != tc.want {
			t.Fatalf("RGB565(%v)=0x%04X want 0x%04X", tc.c, got, tc.want)
		}
	}
}

func TestLogicalBounds(t *testing.T) {
	if b := LogicalBounds(270); b.Dx() != 160 || b.Dy() != 80 {
		t.Fatalf("landscape bounds %v", b)
	}
	if b := LogicalBounds(0); b.Dx() != 80 || b.Dy() != 160 {
		t.Fatalf("portrait bounds %v", b)
	}
}

func TestEncodeFrameRotations(t *testing.T) {
	cases := []struct {
		rotation int
		// native panel pixel expected to hold the logical origin
		px, py int
	}{
		{0, 0, 0},
		{90, 0, panelHeight - 1},
		{180, panelWidth - 1, panelHeight - 1},
		{270, panelWidth - 1, 0},
	}
	for _, tc := range cases {
		img := image.NewRGBA(LogicalBounds(tc.rotation))
		img.Set(0, 0, color.RGBA{255, 0, 0, 255})

		frame := EncodeFrame(img, tc.rotation)
		if len(frame) != panelWidth*panelHeight*2 {
			t.Fatalf("frame size %d", len(frame))
		}
		i := (tc.py*panelWidth + tc.px) * 2
		if frame[i] != 0xF8 || frame[i+1] != 0x00 {
			t.Fatalf("rotation %d: origin not at panel (%d,%d)", tc.rotation, tc.px, tc.py)
		}
	}
}

type fakeSPI struct {
	spi.Conn
	writes [][]byte
}

func (f *fakeSPI) Tx(w, r []byte) error {
	f.writes = append(f.writes, append([]byte(nil), w...))
	return nil
}

type fakePin struct {
	gpio.PinIO
	levels []gpio.Level
}

func (p *fakePin) Out(l gpio.Level) error {
	p.levels = append(p.levels, l)
	return nil
}

func TestDrawStreamsFrameInChunks(t *testing.T) {
	conn := &fakeSPI{}
	d := &ST7735{conn: conn, dc: &fakePin{}, rotation: 270}

	img := image.NewRGBA(d.Bounds())
	draw.Draw(img, img.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	if err := d.Draw(img); err != nil {
		t.Fatalf("draw: %v", err)
	}

	var payload int
	for _, w := range conn.writes {
		if len(w) > maxChunk {
			t.Fatalf("transfer of %d bytes exceeds chunk limit", len(w))
		}
		if len(w) > 4 {
			payload += len(w)
		}
	}
	if payload != panelWidth*panelHeight*2 {
		t.Fatalf("expected full frame payload, got %d bytes", payload)
	}
	if conn.writes[0][0] != cmdCASET || conn.writes[1][3] != offsetLeft+panelWidth-1 {
		t.Fatalf("unexpected column window %v %v", conn.writes[0], conn.writes[1])
	}
}
