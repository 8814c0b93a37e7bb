// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780test is meant to be used to test drivers of HD44780 displays
// wired in 4-bit mode.
//
// Bus provides the six pins and the clock of a display. It records every pin
// write and delay, and feeds each nibble latched on the falling edge of E to
// an Emulator.
package hd44780test

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Pin names used by Bus.
const (
	RS = "RS"
	E  = "E"
	D4 = "D4"
	D5 = "D5"
	D6 = "D6"
	D7 = "D7"
)

// Event is a pin write or a delay seen on the Bus.
type Event struct {
	// At is the virtual time of the event. It only advances on Sleep.
	At time.Duration
	// Pin is empty for a delay.
	Pin   string
	Level gpio.Level
	Delay time.Duration
}

// IsDelay returns true for events recorded by Sleep.
func (e Event) IsDelay() bool {
	return e.Pin == ""
}

func (e Event) String() string {
	if e.IsDelay() {
		return fmt.Sprintf("%v: sleep %v", e.At, e.Delay)
	}
	return fmt.Sprintf("%v: %s=%s", e.At, e.Pin, e.Level)
}

// Transfer is a nibble latched by the controller.
type Transfer struct {
	RS     gpio.Level
	Nibble byte
}

// Bus is a fake 4-bit HD44780 bus. It implements hd44780.Clock.
type Bus struct {
	RSPin *Pin
	EPin  *Pin
	Data  [4]*Pin

	// Emulator is the controller listening on the bus.
	Emulator *Emulator

	mu        sync.Mutex
	now       time.Duration
	events    []Event
	transfers []Transfer
}

// NewBus returns a Bus with all pins low and a freshly powered Emulator of
// the given geometry.
func NewBus(lines, cols int) *Bus {
	b := &Bus{Emulator: NewEmulator(lines, cols)}
	b.RSPin = &Pin{bus: b, name: RS, number: 0}
	b.EPin = &Pin{bus: b, name: E, number: 1}
	for ix, name := range []string{D4, D5, D6, D7} {
		b.Data[ix] = &Pin{bus: b, name: name, number: ix + 2}
	}
	return b
}

// DataPins returns D4 to D7 as gpio.PinOut.
func (b *Bus) DataPins() [4]gpio.PinOut {
	var pins [4]gpio.PinOut
	for ix, p := range b.Data {
		pins[ix] = p
	}
	return pins
}

// Sleep records a delay and advances the virtual clock.
func (b *Bus) Sleep(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, Event{At: b.now, Delay: d})
	b.now += d
}

// Reset forgets the recorded events and transfers. The pin levels, the
// virtual clock and the Emulator are kept.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
	b.transfers = nil
	b.Emulator.resetOps()
}

// Events returns a copy of all the recorded events.
func (b *Bus) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.events...)
}

// PinWrites returns the events that are pin writes.
func (b *Bus) PinWrites() []Event {
	var out []Event
	for _, e := range b.Events() {
		if !e.IsDelay() {
			out = append(out, e)
		}
	}
	return out
}

// Delays returns the durations of all the recorded Sleep calls.
func (b *Bus) Delays() []time.Duration {
	var out []time.Duration
	for _, e := range b.Events() {
		if e.IsDelay() {
			out = append(out, e.Delay)
		}
	}
	return out
}

// Transfers returns the nibbles latched so far.
func (b *Bus) Transfers() []Transfer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Transfer(nil), b.transfers...)
}

// Ops returns the instructions and data the Emulator has executed since the
// last Reset.
func (b *Bus) Ops() []Op {
	return b.Emulator.Ops()
}

func (b *Bus) out(p *Pin, l gpio.Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev := p.level
	p.level = l
	b.events = append(b.events, Event{At: b.now, Pin: p.name, Level: l})
	if p == b.EPin && prev == gpio.High && l == gpio.Low {
		t := Transfer{RS: b.RSPin.level}
		for ix, d := range b.Data {
			if d.level {
				t.Nibble |= 1 << ix
			}
		}
		b.transfers = append(b.transfers, t)
		b.Emulator.Latch(bool(t.RS), t.Nibble)
	}
}

// Pin is an output pin of a Bus.
type Pin struct {
	bus    *Bus
	name   string
	number int
	level  gpio.Level
}

// Halt implements conn.Resource.
func (p *Pin) Halt() error {
	return nil
}

// Name returns the name of the pin.
func (p *Pin) Name() string {
	return p.name
}

// Number returns the position of the pin on the bus.
func (p *Pin) Number() int {
	return p.number
}

// Deprecated: returns "Out"
func (p *Pin) Function() string {
	return "Out"
}

// Out records the write and latches a nibble on a falling edge of E.
func (p *Pin) Out(l gpio.Level) error {
	p.bus.out(p, l)
	return nil
}

// Level returns the last level written.
func (p *Pin) Level() gpio.Level {
	p.bus.mu.Lock()
	defer p.bus.mu.Unlock()
	return p.level
}

// PWM is not supported.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return fmt.Errorf("hd44780test: %s: PWM not supported", p.name)
}

func (p *Pin) String() string {
	return p.name
}

var _ gpio.PinOut = &Pin{}
