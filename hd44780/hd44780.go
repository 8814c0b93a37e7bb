// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780 controls character LCDs built on the Hitachi HD44780
// controller, wired to host GPIO lines in 4-bit mode.
//
// The driver is open loop. R/W is expected to be tied to ground, so the busy
// flag is never read and every instruction is followed by a fixed delay.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package hd44780

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"periph.io/x/conn/v3/gpio"
)

const packageName = "hd44780"

var (
	// ErrConfiguration is returned by the constructors when the pins or the
	// geometry can't describe a display.
	ErrConfiguration = errors.New("hd44780: invalid configuration")
	// ErrOutOfRange is returned when a cursor position or a custom character
	// code is outside the display.
	ErrOutOfRange = errors.New("hd44780: out of range")
	// ErrInvalidPattern is returned when a custom character pattern isn't
	// exactly 8 rows.
	ErrInvalidPattern = errors.New("hd44780: invalid character pattern")
)

// Instruction register bits.
const (
	regClear          = 0 // DB0: clear display
	regHome           = 1 // DB1: return home
	regEntryMode      = 2 // DB2: entry mode set
	regEntryInc       = 1 // DB1: increment address (0 -> decrement)
	regEntryShift     = 0 // DB0: shift display on write
	regControl        = 3 // DB3: display on/off control
	regControlDisplay = 2 // DB2: display on
	regControlCursor  = 1 // DB1: underline cursor on
	regControlBlink   = 0 // DB0: blink cursor position
	regShift          = 4 // DB4: cursor/display shift
	regShiftDisplay   = 3 // DB3: shift display (0 -> move cursor)
	regShiftRight     = 2 // DB2: right (0 -> left)
	regFunction       = 5 // DB5: function set
	regFunction8Bit   = 4 // DB4: 8 bit interface (0 -> 4 bit)
	regFunction2Lines = 3 // DB3: two line mode
	regCGRAM          = 6 // DB6: set CGRAM address
	regDDRAM          = 7 // DB7: set DDRAM address
)

var (
	function8Bit1Line  = bits(regFunction, regFunction8Bit)
	function4Bit1Line  = bits(regFunction)
	function4Bit2Lines = bits(regFunction, regFunction2Lines)
	displayOff         = bits(regControl)
	displayOn          = bits(regControl, regControlDisplay)
	entryIncrement     = bits(regEntryMode, regEntryInc)
)

const (
	delayPowerOn = 15 * time.Millisecond
	delayReset   = 2 * time.Millisecond
	delaySettle  = 3 * time.Millisecond
	delayPulse   = 10 * time.Microsecond
	delayWrite   = 10 * time.Microsecond
)

// DDRAM address of the first column of each row.
var rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}

// CGRAM holds 8 glyphs of 8 rows each.
const (
	patternSlots = 8
	patternRows  = 8
)

// Opts describes the geometry of the display and the timing source.
type Opts struct {
	// Lines is the number of rows, 1 to 4.
	Lines int
	// Cols is the number of characters per row.
	Cols int
	// Clock supplies the protocol delays. A nil Clock uses HostClock.
	Clock Clock
}

// Common module sizes.
var (
	LCD0802 = Opts{Lines: 2, Cols: 8}
	LCD1602 = Opts{Lines: 2, Cols: 16}
	LCD2002 = Opts{Lines: 2, Cols: 20}
	LCD2004 = Opts{Lines: 4, Cols: 20}
	LCD4001 = Opts{Lines: 1, Cols: 40}
)

// Dev is an HD44780 display on a 4-bit GPIO bus.
//
// The methods are safe for concurrent use. Each one holds the bus for the
// whole transaction.
type Dev struct {
	mu    sync.Mutex
	rs    gpio.PinOut
	e     gpio.PinOut
	data  [4]gpio.PinOut
	clock Clock
	lines int
	cols  int
	line  int
	col   int

	control byte
	entry   byte
}

// New returns a Dev after running the power on initialization sequence.
//
// data holds D4 to D7 in that order. D0 to D3 on the display are left
// unconnected.
func New(rs, e gpio.PinOut, data [4]gpio.PinOut, opts *Opts) (*Dev, error) {
	if opts == nil {
		return nil, fmt.Errorf("%w: nil Opts", ErrConfiguration)
	}
	if opts.Lines < 1 || opts.Lines > len(rowOffsets) {
		return nil, fmt.Errorf("%w: %d lines, want 1 to %d", ErrConfiguration, opts.Lines, len(rowOffsets))
	}
	if opts.Cols < 1 {
		return nil, fmt.Errorf("%w: %d columns", ErrConfiguration, opts.Cols)
	}
	if rs == nil || e == nil {
		return nil, fmt.Errorf("%w: RS and E pins are required", ErrConfiguration)
	}
	for ix, p := range data {
		if p == nil {
			return nil, fmt.Errorf("%w: D%d pin is required", ErrConfiguration, ix+4)
		}
	}
	clock := opts.Clock
	if clock == nil {
		clock = HostClock{}
	}
	d := &Dev{
		rs:    rs,
		e:     e,
		data:  data,
		clock: clock,
		lines: opts.Lines,
		cols:  opts.Cols,
	}
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) String() string {
	names := make([]string, len(d.data))
	for ix, p := range d.data {
		names[ix] = p.String()
	}
	return fmt.Sprintf("%s{RS: %s, E: %s, D4-D7: %s, Lines: %d, Cols: %d}",
		packageName, d.rs, d.e, strings.Join(names, ","), d.lines, d.cols)
}

// Clear blanks the display and moves the cursor to (0, 0).
func (d *Dev) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clear()
}

// Command sends a raw instruction byte.
//
// The tracked cursor isn't updated, so instructions that move the address
// counter leave Position() stale until the next SetPosition.
func (d *Dev) Command(cmd byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.command(cmd)
}

// Position returns the zero based line and column of the cursor.
func (d *Dev) Position() (line, col int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.line, d.col
}

// SetPosition moves the cursor to the zero based line and column.
func (d *Dev) SetPosition(line, col int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setPosition(line, col)
}

// PutChar writes a character code at the cursor and advances it. Reaching
// the end of a line moves the cursor to the start of the next one, wrapping
// from the last line to the first.
func (d *Dev) PutChar(c byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.putChar(c)
}

// PutRune writes r as a character code. Only the low 8 bits are sent, what
// they show depends on the character ROM of the display.
func (d *Dev) PutRune(r rune) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.putChar(byte(r))
}

// PutString writes each rune of s as with PutRune. Bytes that aren't valid
// UTF-8 are sent as is, so "\xdf" writes code 0xdf. Control characters are
// not interpreted.
func (d *Dev) PutString(s string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.putString(s)
	return err
}

// SetAt moves the cursor to line, col and writes s.
func (d *Dev) SetAt(line, col int, s string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.setPosition(line, col); err != nil {
		return err
	}
	_, err := d.putString(s)
	return err
}

// SetCharPattern defines custom character code 0 to 7. pattern holds 8 pixel
// rows, top first; the low 5 bits of each are used.
//
// Write the code with PutChar to show it. The cursor position is restored
// afterwards.
func (d *Dev) SetCharPattern(code int, pattern []byte) error {
	if code < 0 || code >= patternSlots {
		return fmt.Errorf("%w: character code %d, want 0 to %d", ErrOutOfRange, code, patternSlots-1)
	}
	if len(pattern) != patternRows {
		return fmt.Errorf("%w: %d rows, want %d", ErrInvalidPattern, len(pattern), patternRows)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.command(bits(regCGRAM) | byte(code*patternRows)); err != nil {
		return err
	}
	for _, row := range pattern {
		if err := d.writeData(row); err != nil {
			return err
		}
	}
	// CGRAM and DDRAM share the address counter.
	return d.setPosition(d.line, d.col)
}

// init is the 4-bit "initializing by instruction" sequence of the datasheet,
// which recovers the controller from any state.
func (d *Dev) init() error {
	pins := append([]gpio.PinOut{d.rs, d.e}, d.data[:]...)
	for _, p := range pins {
		if err := p.Out(gpio.Low); err != nil {
			return pinError(err)
		}
	}
	d.clock.Sleep(delayPowerOn)

	for range 3 {
		if err := d.writeNibble(function8Bit1Line >> 4); err != nil {
			return err
		}
		d.clock.Sleep(delayReset)
	}
	if err := d.writeNibble(function4Bit1Line >> 4); err != nil {
		return err
	}

	function := function4Bit2Lines
	if d.lines == 1 {
		function = function4Bit1Line
	}
	d.control = displayOn
	d.entry = entryIncrement
	for _, step := range []func() error{
		func() error { return d.command(function) },
		func() error { return d.command(displayOff) },
		d.clear,
		func() error { return d.command(d.entry) },
		func() error { return d.command(d.control) },
	} {
		if err := step(); err != nil {
			return err
		}
	}
	d.clock.Sleep(delaySettle)
	return nil
}

// clear doesn't wait for the 1.52ms the instruction takes; the delays of
// the next write are assumed to cover it.
func (d *Dev) clear() error {
	d.line, d.col = 0, 0
	return d.command(bits(regClear))
}

func (d *Dev) setPosition(line, col int) error {
	if line < 0 || line >= d.lines || col < 0 || col >= d.cols {
		return fmt.Errorf("%w: position (%d, %d) on a %dx%d display", ErrOutOfRange, line, col, d.lines, d.cols)
	}
	if err := d.command(bits(regDDRAM) | (rowOffsets[line] + byte(col))); err != nil {
		return err
	}
	d.line, d.col = line, col
	return nil
}

func (d *Dev) putChar(c byte) error {
	if err := d.writeData(c); err != nil {
		return err
	}
	if d.col+1 < d.cols {
		d.col++
		return nil
	}
	// Rows aren't contiguous in DDRAM, so the address is set explicitly. The
	// cursor stays on the last column if that fails.
	return d.setPosition((d.line+1)%d.lines, 0)
}

// putString returns the number of bytes of s consumed. Bytes that aren't
// valid UTF-8 are sent unchanged.
func (d *Dev) putString(s string) (n int, err error) {
	for n < len(s) {
		r, size := utf8.DecodeRuneInString(s[n:])
		c := byte(r)
		if r == utf8.RuneError && size == 1 {
			c = s[n]
		}
		if err = d.putChar(c); err != nil {
			return
		}
		n += size
	}
	return
}

func (d *Dev) command(cmd byte) error {
	d.clock.Sleep(delayWrite)
	if err := d.write(cmd, false); err != nil {
		return err
	}
	d.clock.Sleep(delayWrite)
	return nil
}

func (d *Dev) writeData(b byte) error {
	d.clock.Sleep(delayWrite)
	if err := d.write(b, true); err != nil {
		return err
	}
	d.clock.Sleep(delayWrite)
	return nil
}

// write sends b as two nibbles, high first. rs selects the data register.
func (d *Dev) write(b byte, rs bool) error {
	for _, nibble := range [2]byte{b >> 4, b} {
		if err := d.outNibble(nibble); err != nil {
			return err
		}
		if err := d.rs.Out(gpio.Level(rs)); err != nil {
			return pinError(err)
		}
		if err := d.pulse(); err != nil {
			return err
		}
	}
	return nil
}

// writeNibble latches a single nibble. Only used before the controller is
// in 4-bit mode.
func (d *Dev) writeNibble(nibble byte) error {
	if err := d.outNibble(nibble); err != nil {
		return err
	}
	return d.pulse()
}

// outNibble puts the low 4 bits of nibble on D4 to D7.
func (d *Dev) outNibble(nibble byte) error {
	for ix, p := range d.data {
		if err := p.Out(gpio.Level(nibble&(1<<ix) != 0)); err != nil {
			return pinError(err)
		}
	}
	return nil
}

// pulse strobes E. The controller latches on the falling edge.
func (d *Dev) pulse() error {
	if err := d.e.Out(gpio.High); err != nil {
		return pinError(err)
	}
	d.clock.Sleep(delayPulse)
	if err := d.e.Out(gpio.Low); err != nil {
		return pinError(err)
	}
	return nil
}

// bits returns a byte with the given bit numbers set.
func bits(n ...uint) byte {
	var b byte
	for _, bit := range n {
		b |= 1 << bit
	}
	return b
}

// pinError wraps an error returned by a pin.
func pinError(err error) error {
	return fmt.Errorf("%s: %w", packageName, err)
}
