// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/relabs-tech/enviro_logger/internal/config"
	"github.com/relabs-tech/enviro_logger/internal/display"
)

var (
	splashBackground = color.RGBA{0, 170, 170, 255}
	splashText       = color.RGBA{255, 255, 255, 255}
)

// showSplash opens the LCD and draws the "Monitoring!" banner. The display
// stays open so the banner remains visible; callers Halt it on exit.
func showSplash(cfg *config.Config) (*display.ST7735, error) {
	lcd, err := display.Open(display.Options{
		SPIDevice: cfg.DisplaySPIDevice,
		DCPin:     cfg.DisplayDCPin,
		Backlight: cfg.DisplayBacklight,
		Rotation:  cfg.DisplayRotation,
		SpeedHz:   cfg.DisplaySPISpeed,
	})
	if err != nil {
		return nil, err
	}

	if err := lcd.Draw(renderSplash(lcd.Bounds(), "Monitoring!")); err != nil {
		_ = lcd.Halt()
		return nil, fmt.Errorf("splash draw: %w", err)
	}
	log.Printf("display: splash shown on %s", cfg.DisplaySPIDevice)
	return lcd, nil
}

// renderSplash draws text centred on the splash background.
func renderSplash(bounds image.Rectangle, text string) *image.RGBA {
	img := image.NewRGBA(bounds)
	draw.Draw(img, bounds, &image.Uniform{splashBackground}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{splashText},
		Face: face,
	}

	width := drawer.MeasureString(text).Round()
	x := bounds.Min.X + (bounds.Dx()-width)/2
	y := bounds.Min.Y + (bounds.Dy()+face.Ascent-face.Descent)/2

	drawer.Dot = fixed.P(x, y)
	drawer.DrawString(text)
	return img
}
