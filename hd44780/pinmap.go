// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// PinMap names the GPIO lines the display is wired to, as registered in
// gpioreg. host.Init() must have been called first.
type PinMap struct {
	RS string
	E  string
	// Data holds D4 to D7 in that order.
	Data []string
}

// Open resolves every name in the map. All the problems found are reported
// together.
func (m *PinMap) Open() (rs, e gpio.PinOut, data [4]gpio.PinOut, err error) {
	if len(m.Data) != len(data) {
		err = fmt.Errorf("%w: %d data pins, want %d", ErrConfiguration, len(m.Data), len(data))
		return
	}
	var errs []error
	rs = openPin("RS", m.RS, &errs)
	e = openPin("E", m.E, &errs)
	for ix, name := range m.Data {
		data[ix] = openPin(fmt.Sprintf("D%d", ix+4), name, &errs)
	}
	err = errors.Join(errs...)
	return
}

// NewFromPinMap opens the pins named in m and returns an initialized Dev.
func NewFromPinMap(m *PinMap, opts *Opts) (*Dev, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil PinMap", ErrConfiguration)
	}
	rs, e, data, err := m.Open()
	if err != nil {
		return nil, err
	}
	return New(rs, e, data, opts)
}

func openPin(tag, name string, errs *[]error) gpio.PinOut {
	if name == "" {
		*errs = append(*errs, fmt.Errorf("%w: %s pin is not configured", ErrConfiguration, tag))
		return nil
	}
	p := gpioreg.ByName(name)
	if p == nil {
		*errs = append(*errs, fmt.Errorf("%w: %s pin %q not found", ErrConfiguration, tag, name))
		return nil
	}
	return p
}
