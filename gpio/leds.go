// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gpio

import (
	"fmt"

	"github.com/AxisRay/proxmark3"
	"periph.io/x/conn/v3/gpio"
)

// LEDs drives the four status lamps. Pin writes never block and a
// failed write is only logged: a dead lamp must not take the protocol
// loop down with it.
type LEDs struct {
	pins [4]gpio.PinIO
}

// NewLEDs configures the lamp pins as outputs, all dark
func NewLEDs(a, b, c, d gpio.PinIO) (*LEDs, error) {
	l := &LEDs{pins: [4]gpio.PinIO{a, b, c, d}}
	for _, pin := range l.pins {
		if pin == nil {
			return nil, fmt.Errorf("all four lamp pins must be wired")
		}
		if err := pin.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("configuring lamp pin %s: %w", pin.Name(), err)
		}
	}
	return l, nil
}

// NewLEDsByName resolves the four lamp pins through the periph
// registry
func NewLEDsByName(a, b, c, d string) (*LEDs, error) {
	pins := make([]gpio.PinIO, 4)
	for i, name := range []string{a, b, c, d} {
		pin, err := pinByName(name)
		if err != nil {
			return nil, err
		}
		pins[i] = pin
	}
	return NewLEDs(pins[0], pins[1], pins[2], pins[3])
}

// Set implements proxmark3.StatusLEDs
func (l *LEDs) Set(led proxmark3.LED, on bool) {
	if led < 0 || int(led) >= len(l.pins) {
		return
	}
	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := l.pins[led].Out(level); err != nil {
		proxmark3.Debugf("gpio: lamp %d write failed: %v", led, err)
	}
}

// Off implements proxmark3.StatusLEDs
func (l *LEDs) Off() {
	for i := range l.pins {
		l.Set(proxmark3.LED(i), false)
	}
}

// Interface guard
var _ proxmark3.StatusLEDs = (*LEDs)(nil)
