// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780test

import (
	"fmt"
	"strings"
	"sync"
)

// Op is an instruction or a data byte executed by the Emulator.
type Op struct {
	// RS is true for a write to the data register.
	RS    bool
	Value byte
	// Nibble is true when the op was latched as a single transfer while the
	// controller was in 8-bit mode. Only the high nibble of Value is set.
	Nibble bool
}

func (o Op) String() string {
	reg := "IR"
	if o.RS {
		reg = "DR"
	}
	if o.Nibble {
		return fmt.Sprintf("%s<-%#02x (8-bit)", reg, o.Value)
	}
	return fmt.Sprintf("%s<-%#02x", reg, o.Value)
}

var rowOffsets = [...]byte{0x00, 0x40, 0x14, 0x54}

// Emulator models the memory and registers of an HD44780 controller.
//
// It powers up in 8-bit mode like the real chip, with D0 to D3 unconnected.
type Emulator struct {
	mu    sync.Mutex
	lines int
	cols  int

	eightBit bool
	twoLines bool
	high     byte
	hasHigh  bool

	ddram     [0x80]byte
	cgram     [64]byte
	ac        byte
	cgramMode bool
	increment bool
	shift     bool
	displayOn bool
	cursor    bool
	blink     bool
	offset    int

	ops []Op
}

// NewEmulator returns an Emulator for a display with the given geometry,
// in its power on state.
func NewEmulator(lines, cols int) *Emulator {
	e := &Emulator{lines: lines, cols: cols, eightBit: true, increment: true}
	for ix := range e.ddram {
		e.ddram[ix] = ' '
	}
	return e
}

// Latch is called on each falling edge of E with the levels of RS and D4 to
// D7.
func (e *Emulator) Latch(rs bool, nibble byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	nibble &= 0x0f
	if e.eightBit {
		e.exec(Op{RS: rs, Value: nibble << 4, Nibble: true})
		return
	}
	if !e.hasHigh {
		e.high = nibble
		e.hasHigh = true
		return
	}
	e.hasHigh = false
	e.exec(Op{RS: rs, Value: e.high<<4 | nibble})
}

func (e *Emulator) exec(op Op) {
	e.ops = append(e.ops, op)
	if op.RS {
		e.writeData(op.Value)
		return
	}
	v := op.Value
	switch {
	case v&0x80 != 0:
		e.ac = v & 0x7f
		e.cgramMode = false
	case v&0x40 != 0:
		e.ac = v & 0x3f
		e.cgramMode = true
	case v&0x20 != 0:
		e.eightBit = v&0x10 != 0
		e.twoLines = v&0x08 != 0
		e.hasHigh = false
	case v&0x10 != 0:
		step := -1
		if v&0x04 != 0 {
			step = 1
		}
		if v&0x08 != 0 {
			e.offset += step
		} else {
			e.ac = byte(int(e.ac)+step) & 0x7f
		}
	case v&0x08 != 0:
		e.displayOn = v&0x04 != 0
		e.cursor = v&0x02 != 0
		e.blink = v&0x01 != 0
	case v&0x04 != 0:
		e.increment = v&0x02 != 0
		e.shift = v&0x01 != 0
	case v&0x02 != 0:
		e.ac = 0
		e.offset = 0
		e.cgramMode = false
	case v&0x01 != 0:
		for ix := range e.ddram {
			e.ddram[ix] = ' '
		}
		e.ac = 0
		e.offset = 0
		e.increment = true
		e.cgramMode = false
	}
}

func (e *Emulator) writeData(v byte) {
	step := -1
	if e.increment {
		step = 1
	}
	if e.cgramMode {
		e.cgram[e.ac&0x3f] = v
		e.ac = byte(int(e.ac)+step) & 0x3f
		return
	}
	e.ddram[e.ac&0x7f] = v
	e.ac = byte(int(e.ac)+step) & 0x7f
	if e.shift {
		e.offset += step
	}
}

// Lines returns the number of rows of the emulated display.
func (e *Emulator) Lines() int {
	return e.lines
}

// Cols returns the number of columns of the emulated display.
func (e *Emulator) Cols() int {
	return e.cols
}

// Code returns the character code stored at line, col. The display shift is
// ignored.
func (e *Emulator) Code(line, col int) byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ddram[(rowOffsets[line]+byte(col))&0x7f]
}

// Line returns the codes of a row as a string.
func (e *Emulator) Line(line int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	start := int(rowOffsets[line])
	end := min(start+e.cols, len(e.ddram))
	return string(e.ddram[start:end])
}

// Text returns all the rows separated by newlines.
func (e *Emulator) Text() string {
	lines := make([]string, e.lines)
	for ix := range lines {
		lines[ix] = e.Line(ix)
	}
	return strings.Join(lines, "\n")
}

// Pattern returns the 8 rows of custom character code. Codes 8 to 15 mirror
// 0 to 7.
func (e *Emulator) Pattern(code byte) [8]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	var p [8]byte
	base := int(code&0x07) * 8
	copy(p[:], e.cgram[base:base+8])
	return p
}

// Address returns the address counter and whether it points into CGRAM.
func (e *Emulator) Address() (ac byte, cgram bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ac, e.cgramMode
}

// FourBit returns true once the controller is switched to the 4-bit
// interface.
func (e *Emulator) FourBit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.eightBit
}

// TwoLines returns true when the controller is in 2 line mode.
func (e *Emulator) TwoLines() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.twoLines
}

// DisplayOn returns true when the display is on.
func (e *Emulator) DisplayOn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.displayOn
}

// CursorMode returns the underline cursor and blink flags.
func (e *Emulator) CursorMode() (underline, blink bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor, e.blink
}

// EntryMode returns the entry mode flags.
func (e *Emulator) EntryMode() (increment, shift bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.increment, e.shift
}

// DisplayShift returns the number of positions the display is shifted right.
func (e *Emulator) DisplayShift() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.offset
}

// Ops returns a copy of the executed ops.
func (e *Emulator) Ops() []Op {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Op(nil), e.ops...)
}

func (e *Emulator) resetOps() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ops = nil
}
