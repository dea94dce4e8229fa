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
	"time"

	"github.com/AxisRay/proxmark3"
	"periph.io/x/conn/v3/gpio"
)

const defaultDebounce = 20 * time.Millisecond

// Button samples a momentary switch wired active-low against a
// pull-up, the common arrangement on the device. A press shorter than
// the hold window is a click, anything longer a hold.
type Button struct {
	pin      gpio.PinIO
	pressed  gpio.Level
	debounce time.Duration
}

// ButtonOption adjusts a Button
type ButtonOption func(*Button)

// WithActiveHigh flips the electrical sense for switches wired to 3V3
// instead of ground
func WithActiveHigh() ButtonOption {
	return func(b *Button) { b.pressed = gpio.High }
}

// WithDebounce overrides the 20ms switch settle time
func WithDebounce(d time.Duration) ButtonOption {
	return func(b *Button) { b.debounce = d }
}

// NewButton configures pin as a debounced input
func NewButton(pin gpio.PinIO, opts ...ButtonOption) (*Button, error) {
	b := &Button{
		pin:      pin,
		pressed:  gpio.Low,
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(b)
	}

	pull := gpio.PullUp
	if b.pressed == gpio.High {
		pull = gpio.PullDown
	}
	if err := pin.In(pull, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("configuring button pin %s: %w", pin.Name(), err)
	}
	return b, nil
}

// NewButtonByName resolves the pin through the periph registry
func NewButtonByName(name string, opts ...ButtonOption) (*Button, error) {
	pin, err := pinByName(name)
	if err != nil {
		return nil, err
	}
	return NewButton(pin, opts...)
}

// Poll implements proxmark3.Button. An untouched button returns
// immediately; a pressed one blocks until release or until the hold
// window elapses, whichever is first.
func (b *Button) Poll(hold time.Duration) proxmark3.ButtonEvent {
	if b.pin.Read() != b.pressed {
		return proxmark3.ButtonNone
	}

	// Let the contacts settle before trusting the edge
	time.Sleep(b.debounce)
	if b.pin.Read() != b.pressed {
		return proxmark3.ButtonNone
	}

	deadline := time.Now().Add(hold)
	for time.Now().Before(deadline) {
		if b.pin.Read() != b.pressed {
			return proxmark3.ButtonClick
		}
		time.Sleep(b.debounce)
	}
	return proxmark3.ButtonHeld
}

// Interface guard
var _ proxmark3.Button = (*Button)(nil)
