// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package feedback

import (
	"fmt"
	"image"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

const (
	displayWidth  = 128
	displayHeight = 64
	lineChars     = 18 // Face7x13 columns on a 128px display
	textLines     = 3
)

// screen is the part of ssd1306.Dev the display draws through.
type screen interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// Display shows the latest message and a progress bar on an SSD1306 OLED.
type Display struct {
	mu       sync.Mutex
	scr      screen
	closer   func() error
	title    string
	lines    []string
	progress int
}

// OpenDisplay opens the SSD1306 on the given I2C bus.
func OpenDisplay(busName string) (*Display, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", busName, err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized on I2C bus %q", busName)

	d := newDisplay(dev)
	d.closer = func() error {
		dev.Halt()
		return bus.Close()
	}
	d.render()
	return d, nil
}

func newDisplay(scr screen) *Display {
	return &Display{scr: scr, title: "Mag calibration"}
}

func (d *Display) Info(msg string) {
	d.mu.Lock()
	d.title = "Mag calibration"
	d.lines = wrap(msg, lineChars, textLines)
	d.mu.Unlock()
	d.render()
}

func (d *Display) Emergency(msg string) {
	d.mu.Lock()
	d.title = "!! ERROR !!"
	d.lines = wrap(msg, lineChars, textLines)
	d.mu.Unlock()
	d.render()
}

func (d *Display) Progress(pct int) {
	d.mu.Lock()
	d.progress = pct
	d.mu.Unlock()
	d.render()
}

// Tune has no visual cue.
func (d *Display) Tune() {}

// Close halts the panel and releases the bus.
func (d *Display) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}

func (d *Display) render() {
	d.mu.Lock()
	img := d.frame()
	d.mu.Unlock()

	if err := d.scr.Draw(d.scr.Bounds(), img, image.Point{}); err != nil {
		log.Printf("display: draw error: %v", err)
	}
}

func (d *Display) frame() *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	drawer.Dot = fixed.P(0, 11)
	drawer.DrawString(d.title)
	for i, line := range d.lines {
		drawer.Dot = fixed.P(0, 24+i*11)
		drawer.DrawString(line)
	}

	// progress bar on the bottom rows
	pct := d.progress
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}
	filled := pct * displayWidth / 100
	for x := 0; x < displayWidth; x++ {
		img.SetBit(x, displayHeight-6, image1bit.On)
		img.SetBit(x, displayHeight-1, image1bit.On)
		if x < filled {
			for y := displayHeight - 5; y < displayHeight-1; y++ {
				img.SetBit(x, y, image1bit.On)
			}
		}
	}
	return img
}

// wrap splits msg on spaces into at most maxLines lines of width chars.
func wrap(msg string, width, maxLines int) []string {
	var lines []string
	cur := ""
	for _, w := range strings.Fields(msg) {
		for len(w) > width {
			if cur != "" {
				lines = append(lines, cur)
				cur = ""
			}
			lines = append(lines, w[:width])
			w = w[width:]
		}
		switch {
		case cur == "":
			cur = w
		case len(cur)+1+len(w) <= width:
			cur += " " + w
		default:
			lines = append(lines, cur)
			cur = w
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}
