// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"errors"
	"strings"
	"testing"

	"github.com/GermanBionicSystems/charlcd/hd44780/hd44780test"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/display/displaytest"
)

func TestInterface(t *testing.T) {
	dev, _ := getDev(t, 2, 16)
	defer func() { _ = dev.Halt() }()
	errs := displaytest.TestTextDisplay(dev, false)
	for _, err := range errs {
		if !errors.Is(err, display.ErrNotImplemented) {
			t.Error(err)
		}
	}
}

func TestGeometry(t *testing.T) {
	dev, _ := getDev(t, 4, 20)
	if dev.Rows() != 4 || dev.Cols() != 20 {
		t.Errorf("Rows(), Cols() = %d, %d, want 4, 20", dev.Rows(), dev.Cols())
	}
	if dev.MinRow() != 1 || dev.MinCol() != 1 {
		t.Errorf("MinRow(), MinCol() = %d, %d, want 1, 1", dev.MinRow(), dev.MinCol())
	}
	s := dev.String()
	for _, want := range []string{"RS: RS", "E: E", "D4,D5,D6,D7", "Lines: 4", "Cols: 20"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

func TestCursor(t *testing.T) {
	for _, tc := range []struct {
		name  string
		modes []display.CursorMode
		want  byte
	}{
		{name: "off", modes: []display.CursorMode{display.CursorOff}, want: 0x0c},
		{name: "none", want: 0x0c},
		{name: "underline", modes: []display.CursorMode{display.CursorUnderline}, want: 0x0e},
		{name: "blink", modes: []display.CursorMode{display.CursorBlink}, want: 0x0d},
		{name: "block", modes: []display.CursorMode{display.CursorBlock}, want: 0x0d},
		{name: "underline and blink", modes: []display.CursorMode{display.CursorUnderline, display.CursorBlink}, want: 0x0f},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dev, bus := getDev(t, 2, 16)
			if err := dev.Cursor(display.CursorUnderline, display.CursorBlink); err != nil {
				t.Fatal(err)
			}
			bus.Reset()

			if err := dev.Cursor(tc.modes...); err != nil {
				t.Fatal(err)
			}
			checkOps(t, bus, ops(cmd(tc.want)))
			u, b := bus.Emulator.CursorMode()
			if u != (tc.want&0x02 != 0) || b != (tc.want&0x01 != 0) {
				t.Errorf("CursorMode() = %t, %t after %#x", u, b, tc.want)
			}
		})
	}
}

func TestCursorInvalid(t *testing.T) {
	dev, bus := getDev(t, 2, 16)
	bus.Reset()
	if err := dev.Cursor(display.CursorMode(99)); err == nil {
		t.Error("Cursor(99) succeeded")
	}
	if n := len(bus.Events()); n != 0 {
		t.Errorf("Cursor(99) produced %d events", n)
	}
}

func TestDisplay(t *testing.T) {
	dev, bus := getDev(t, 2, 16)
	bus.Reset()

	if err := dev.Display(false); err != nil {
		t.Fatal(err)
	}
	if bus.Emulator.DisplayOn() {
		t.Error("display still on")
	}
	if err := dev.Cursor(display.CursorUnderline); err != nil {
		t.Fatal(err)
	}
	if err := dev.Display(true); err != nil {
		t.Fatal(err)
	}
	checkOps(t, bus, ops(cmd(0x08), cmd(0x0a), cmd(0x0e)))
	if !bus.Emulator.DisplayOn() {
		t.Error("display still off")
	}
}

func TestHome(t *testing.T) {
	dev, bus := getDev(t, 2, 16)
	if err := dev.SetPosition(1, 5); err != nil {
		t.Fatal(err)
	}
	bus.Reset()

	if err := dev.Home(); err != nil {
		t.Fatal(err)
	}
	checkOps(t, bus, ops(cmd(0x02)))
	checkPosition(t, dev, 0, 0)
}

func TestMove(t *testing.T) {
	dev, bus := getDev(t, 2, 16)
	if err := dev.SetPosition(0, 14); err != nil {
		t.Fatal(err)
	}
	for _, step := range []struct {
		dir       display.CursorDirection
		cmd       byte
		line, col int
		addr      byte
	}{
		{dir: display.Forward, cmd: 0x14, line: 0, col: 15, addr: 0x0f},
		{dir: display.Forward, cmd: 0xc0, line: 1, col: 0, addr: 0x40},
		{dir: display.Backward, cmd: 0x8f, line: 0, col: 15, addr: 0x0f},
		{dir: display.Backward, cmd: 0x10, line: 0, col: 14, addr: 0x0e},
		{dir: display.Up, cmd: 0xce, line: 1, col: 14, addr: 0x4e},
		{dir: display.Down, cmd: 0x8e, line: 0, col: 14, addr: 0x0e},
		{dir: display.Down, cmd: 0xce, line: 1, col: 14, addr: 0x4e},
	} {
		bus.Reset()
		if err := dev.Move(step.dir); err != nil {
			t.Fatalf("Move(%d): %v", step.dir, err)
		}
		checkOps(t, bus, ops(cmd(step.cmd)))
		checkPosition(t, dev, step.line, step.col)
		if ac, _ := bus.Emulator.Address(); ac != step.addr {
			t.Errorf("Move(%d): Address() = %#x, want %#x", step.dir, ac, step.addr)
		}
	}
}

func TestMoveTo(t *testing.T) {
	dev, bus := getDev(t, 2, 16)
	bus.Reset()

	if err := dev.MoveTo(2, 3); err != nil {
		t.Fatal(err)
	}
	checkOps(t, bus, ops(cmd(0xc2)))
	checkPosition(t, dev, 1, 2)

	for _, pos := range [][2]int{{0, 1}, {1, 0}, {3, 1}, {1, 17}} {
		if err := dev.MoveTo(pos[0], pos[1]); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("MoveTo%v error = %v, want ErrOutOfRange", pos, err)
		}
	}
}

func TestAutoScroll(t *testing.T) {
	dev, bus := getDev(t, 2, 16)
	bus.Reset()

	if err := dev.AutoScroll(true); err != nil {
		t.Fatal(err)
	}
	if _, shift := bus.Emulator.EntryMode(); !shift {
		t.Error("entry mode shift not set")
	}
	if _, err := dev.WriteString("ab"); err != nil {
		t.Fatal(err)
	}
	if got := bus.Emulator.DisplayShift(); got != 2 {
		t.Errorf("DisplayShift() = %d, want 2", got)
	}
	if err := dev.AutoScroll(false); err != nil {
		t.Fatal(err)
	}
	checkOps(t, bus, ops(cmd(0x07), data("ab"), cmd(0x06)))
	checkPosition(t, dev, 0, 2)
}

func TestShiftDisplay(t *testing.T) {
	dev, bus := getDev(t, 2, 16)
	bus.Reset()

	if err := dev.ShiftDisplay(true); err != nil {
		t.Fatal(err)
	}
	if err := dev.ShiftDisplay(true); err != nil {
		t.Fatal(err)
	}
	if err := dev.ShiftDisplay(false); err != nil {
		t.Fatal(err)
	}
	checkOps(t, bus, ops(cmd(0x1c), cmd(0x1c), cmd(0x18)))
	if got := bus.Emulator.DisplayShift(); got != 1 {
		t.Errorf("DisplayShift() = %d, want 1", got)
	}
	checkPosition(t, dev, 0, 0)
}

func TestWrite(t *testing.T) {
	dev, bus := getDev(t, 1, 8)
	bus.Reset()

	n, err := dev.Write([]byte{0x00, 0x07, 'a', 0xff})
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("Write() = %d, want 4", n)
	}
	checkOps(t, bus, ops(data("\x00\x07a\xff")))

	bus.Reset()
	n, err = dev.WriteString("0123é")
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Errorf("WriteString() = %d, want 6", n)
	}
	want := ops(data("0123"), cmd(0x80), hd44780test.Op{RS: true, Value: 0xe9})
	checkOps(t, bus, want)
	checkPosition(t, dev, 0, 1)
}

func TestWriteStringBytes(t *testing.T) {
	dev, bus := getDev(t, 2, 16)
	bus.Reset()

	for _, tc := range []struct {
		text string
		want int
	}{
		{text: "\xdfC", want: 2},
		{text: "0123é", want: 6},
		{text: "", want: 0},
	} {
		n, err := dev.WriteString(tc.text)
		if err != nil {
			t.Fatal(err)
		}
		if n != tc.want {
			t.Errorf("WriteString(%q) = %d, want %d", tc.text, n, tc.want)
		}
	}
	checkOps(t, bus, ops(data("\xdfC0123\xe9")))
}

func TestHalt(t *testing.T) {
	dev, bus := getDev(t, 2, 16)
	if err := dev.SetAt(1, 1, "bye"); err != nil {
		t.Fatal(err)
	}
	bus.Reset()

	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	checkOps(t, bus, ops(cmd(0x01), cmd(0x08)))
	if bus.Emulator.DisplayOn() {
		t.Error("display on after Halt()")
	}
}
