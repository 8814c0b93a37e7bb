// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package charlcd is a container for the HD44780 character LCD driver and
// its tooling.
//
// hd44780 drives the display over 4 GPIO data lines, hd44780/hd44780test
// records and emulates the bus for tests, and lcdscreen renders the emulated
// display.
package charlcd
