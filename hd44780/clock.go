// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"time"

	"periph.io/x/host/v3/cpu"
)

// Clock is the timing source between pin writes. Sleep must block for at
// least d.
type Clock interface {
	Sleep(d time.Duration)
}

// HostClock sleeps on the host CPU.
//
// Delays under a millisecond are busy waited with cpu.Nanospin; longer ones
// use time.Sleep.
type HostClock struct{}

// Sleep implements Clock.
func (HostClock) Sleep(d time.Duration) {
	if d < time.Millisecond {
		cpu.Nanospin(d)
		return
	}
	time.Sleep(d)
}

var _ Clock = HostClock{}
