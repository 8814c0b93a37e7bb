// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdscreen renders the memory of an HD44780 character display, as an
// image or on the terminal (stdout) using ANSI color codes.
//
// Useful to watch what a driver does before the display is wired, together
// with hd44780test.Emulator.
package lcdscreen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomono"
)

// Cell geometry in dots. Each 5x8 cell is followed by a 1 dot gap, and the
// whole screen has a 1 dot border.
const (
	cellCols = 5
	cellRows = 8
	pitchX   = cellCols + 1
	pitchY   = cellRows + 1
)

// Codes below this value are taken from CGRAM.
const customCodes = 16

// Source is the memory of a display.
type Source interface {
	Lines() int
	Cols() int
	// Code returns the character code at the zero based line and column.
	Code(line, col int) byte
	// Pattern returns the 8 pixel rows of a custom character.
	Pattern(code byte) [8]byte
	DisplayOn() bool
}

// Opts represents the options available for the screen.
type Opts struct {
	// Scale is the number of pixels per dot in Image. Defaults to 4.
	Scale int
	// Colors of the lit dots, the unlit dots and the background.
	On, Off, Background color.Color
	Palette             *ansi256.Palette
	// W receives Refresh output. Defaults to a colorable stdout.
	W io.Writer

	_ struct{}
}

// Default colors, yellow-green STN.
var (
	DefaultOn         = color.NRGBA{0x1e, 0x2a, 0x0a, 0xff}
	DefaultOff        = color.NRGBA{0x8a, 0xa6, 0x1c, 0xff}
	DefaultBackground = color.NRGBA{0x9c, 0xba, 0x24, 0xff}
)

// Dev renders a Source.
type Dev struct {
	src     Source
	w       io.Writer
	palette ansi256.Palette
	scale   int
	on      color.Color
	off     color.Color
	bg      color.Color
	face    font.Face

	drawn bool
	buf   bytes.Buffer
}

// New returns a Dev that renders src.
func New(src Source, opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	d := &Dev{
		src:   src,
		w:     opts.W,
		scale: opts.Scale,
		on:    opts.On,
		off:   opts.Off,
		bg:    opts.Background,
	}
	if d.w == nil {
		d.w = colorable.NewColorableStdout()
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	d.palette = *p
	if d.scale < 1 {
		d.scale = 4
	}
	if d.on == nil {
		d.on = DefaultOn
	}
	if d.off == nil {
		d.off = DefaultOff
	}
	if d.bg == nil {
		d.bg = DefaultBackground
	}
	d.face = newFace(float64(cellRows * d.scale))
	return d
}

// newFace returns a monospace face of the given pixel size. basicfont is used
// if the embedded Go Mono can't be parsed.
func newFace(size float64) font.Face {
	f, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(f, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
}

func (d *Dev) String() string {
	return fmt.Sprintf("LCDScreen{%dx%d}", d.src.Lines(), d.src.Cols())
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Bounds returns the size of the rendered image.
func (d *Dev) Bounds() image.Rectangle {
	w, h := d.dots()
	return image.Rect(0, 0, w*d.scale, h*d.scale)
}

// Image renders the display. Custom characters are drawn dot by dot, other
// codes with the glyph of the rune of the same value.
func (d *Dev) Image() image.Image {
	r := d.Bounds()
	dc := gg.NewContext(r.Dx(), r.Dy())
	dc.SetColor(d.bg)
	dc.Clear()
	if !d.src.DisplayOn() {
		return dc.Image()
	}
	dc.SetFontFace(d.face)
	s := float64(d.scale)
	for line := range d.src.Lines() {
		for col := range d.src.Cols() {
			x0 := float64(1+col*pitchX) * s
			y0 := float64(1+line*pitchY) * s
			code := d.src.Code(line, col)
			if code < customCodes {
				d.drawPattern(dc, x0, y0, d.src.Pattern(code))
				continue
			}
			dc.SetColor(d.off)
			dc.DrawRectangle(x0, y0, cellCols*s, cellRows*s)
			dc.Fill()
			if code == ' ' {
				continue
			}
			dc.SetColor(d.on)
			dc.DrawStringAnchored(string(rune(code)), x0+cellCols*s/2, y0+cellRows*s/2, 0.5, 0.5)
		}
	}
	return dc.Image()
}

func (d *Dev) drawPattern(dc *gg.Context, x0, y0 float64, pattern [8]byte) {
	s := float64(d.scale)
	for row, bits := range pattern {
		for c := range cellCols {
			if bits&(1<<(cellCols-1-c)) != 0 {
				dc.SetColor(d.on)
			} else {
				dc.SetColor(d.off)
			}
			dc.DrawRectangle(x0+float64(c)*s, y0+float64(row)*s, s, s)
			dc.Fill()
		}
	}
}

// Refresh draws the display on the terminal, one character per dot. Each
// call overwrites the previous drawing.
func (d *Dev) Refresh() error {
	img := d.Image()
	w, h := d.dots()
	// This code is designed to minimize the amount of memory allocated per call.
	d.buf.Reset()
	if d.drawn {
		_, _ = fmt.Fprintf(&d.buf, "\033[%dA", h)
	}
	_, _ = d.buf.WriteString("\r\033[0m")
	half := d.scale / 2
	for y := range h {
		for x := range w {
			c := color.NRGBAModel.Convert(img.At(x*d.scale+half, y*d.scale+half)).(color.NRGBA)
			_, _ = io.WriteString(&d.buf, d.palette.Block(c))
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	_, err := d.buf.WriteTo(d.w)
	if err == nil {
		d.drawn = true
	}
	return err
}

// dots returns the screen size in dots, border included.
func (d *Dev) dots() (w, h int) {
	return d.src.Cols()*pitchX + 1, d.src.Lines()*pitchY + 1
}

var _ fmt.Stringer = &Dev{}
