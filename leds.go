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

package proxmark3

import (
	"context"
	"time"
)

// LED identifies one of the four status lamps on the device
type LED int

const (
	LEDA LED = iota
	LEDB
	LEDC
	LEDD
)

// StatusLEDs drives the status lamps. Set must not block; sessions
// call it from their loop on every frame.
type StatusLEDs interface {
	Set(led LED, on bool)
	// Off extinguishes every lamp
	Off()
}

// NopLEDs discards all lamp activity
type NopLEDs struct{}

func (NopLEDs) Set(LED, bool) {}
func (NopLEDs) Off()          {}

// ButtonEvent is the outcome of sampling the hardware button
type ButtonEvent int

const (
	// ButtonNone means the button was untouched
	ButtonNone ButtonEvent = iota
	// ButtonClick is a press released before the hold window elapsed
	ButtonClick
	// ButtonHeld is a press still down once the hold window elapsed
	ButtonHeld
)

// Button samples operator input. Poll returns as soon as it can tell
// a click from a hold, never blocking past the hold window.
type Button interface {
	Poll(hold time.Duration) ButtonEvent
}

// NopButton is a button nobody ever presses
type NopButton struct{}

func (NopButton) Poll(time.Duration) ButtonEvent { return ButtonNone }

// blink flashes led count times, leaving it off. The slow flash on
// lamp A signals exit, the quick double flash on lamp B a failed read.
func blink(ctx context.Context, leds StatusLEDs, led LED, period time.Duration, count int) {
	for i := 0; i < count; i++ {
		leds.Set(led, true)
		if err := sleepCtx(ctx, period); err != nil {
			break
		}
		leds.Set(led, false)
		if err := sleepCtx(ctx, period); err != nil {
			break
		}
	}
	leds.Set(led, false)
}
