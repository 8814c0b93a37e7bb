// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

// The methods in this file implement display.TextDisplay. Rows and columns
// are 1 based here, as for every periph text display.

// AutoScroll shifts the whole display on each write instead of moving the
// cursor when enabled.
func (d *Dev) AutoScroll(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry := bits(regEntryMode, regEntryInc)
	if enabled {
		entry |= bits(regEntryShift)
	}
	if err := d.command(entry); err != nil {
		return err
	}
	d.entry = entry
	return nil
}

// Cols returns the number of columns of the display.
func (d *Dev) Cols() int {
	return d.cols
}

// Rows returns the number of lines of the display.
func (d *Dev) Rows() int {
	return d.lines
}

// MinCol returns 1.
func (d *Dev) MinCol() int {
	return 1
}

// MinRow returns 1.
func (d *Dev) MinRow() int {
	return 1
}

// Cursor sets the cursor mode. Modes combine, so
// Cursor(display.CursorUnderline, display.CursorBlink) shows both.
func (d *Dev) Cursor(modes ...display.CursorMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	control := d.control &^ bits(regControlCursor, regControlBlink)
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			control &^= bits(regControlCursor, regControlBlink)
		case display.CursorUnderline:
			control |= bits(regControlCursor)
		case display.CursorBlink, display.CursorBlock:
			control |= bits(regControlBlink)
		default:
			return fmt.Errorf("%s: unexpected cursor mode %d", packageName, mode)
		}
	}
	return d.setControl(control)
}

// Display turns the display on or off. DDRAM is kept while off.
func (d *Dev) Display(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setControl(d.displayControl(on))
}

// Home moves the cursor to the first position and undoes any display shift.
func (d *Dev) Home() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.command(bits(regHome)); err != nil {
		return err
	}
	d.line, d.col = 0, 0
	return nil
}

// Move moves the cursor one position. Forward and Backward continue on the
// next or previous line at the ends of a line; Up and Down wrap between the
// first and last lines.
func (d *Dev) Move(dir display.CursorDirection) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch dir {
	case display.Forward:
		if d.col+1 == d.cols {
			return d.setPosition((d.line+1)%d.lines, 0)
		}
		if err := d.command(bits(regShift, regShiftRight)); err != nil {
			return err
		}
		d.col++
	case display.Backward:
		if d.col == 0 {
			return d.setPosition((d.line+d.lines-1)%d.lines, d.cols-1)
		}
		if err := d.command(bits(regShift)); err != nil {
			return err
		}
		d.col--
	case display.Up:
		return d.setPosition((d.line+d.lines-1)%d.lines, d.col)
	case display.Down:
		return d.setPosition((d.line+1)%d.lines, d.col)
	default:
		return fmt.Errorf("%s: unexpected direction %d: %w", packageName, dir, display.ErrNotImplemented)
	}
	return nil
}

// MoveTo moves the cursor to row, col, counted from MinRow() and MinCol().
func (d *Dev) MoveTo(row, col int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setPosition(row-d.MinRow(), col-d.MinCol())
}

// Write writes p as raw character codes. It returns the number of codes sent.
func (d *Dev) Write(p []byte) (n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range p {
		if err = d.putChar(c); err != nil {
			return
		}
		n++
	}
	return
}

// WriteString writes text as PutString does. It returns the number of bytes
// of text consumed.
func (d *Dev) WriteString(text string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.putString(text)
}

// Halt clears the display and turns it off.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.clear(); err != nil {
		return err
	}
	return d.setControl(d.displayControl(false))
}

// ShiftDisplay scrolls the whole display one position left or right without
// touching DDRAM or the cursor.
func (d *Dev) ShiftDisplay(right bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cmd := bits(regShift, regShiftDisplay)
	if right {
		cmd |= bits(regShiftRight)
	}
	return d.command(cmd)
}

func (d *Dev) displayControl(on bool) byte {
	if on {
		return d.control | bits(regControlDisplay)
	}
	return d.control &^ bits(regControlDisplay)
}

func (d *Dev) setControl(control byte) error {
	if err := d.command(control); err != nil {
		return err
	}
	d.control = control
	return nil
}

var _ display.TextDisplay = &Dev{}
var _ conn.Resource = &Dev{}
