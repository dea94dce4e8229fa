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

// Package gpio wires the operator controls - the mode button and the
// four status lamps - to real pins via periph.io. The engine only sees
// the proxmark3.Button and proxmark3.StatusLEDs interfaces, so tests
// and headless builds swap these for fakes.
package gpio

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

var (
	initOnce sync.Once
	initErr  error
)

// Init loads the periph host drivers. Safe to call more than once;
// every constructor taking a pin name calls it.
func Init() error {
	initOnce.Do(func() {
		_, initErr = host.Init()
	})
	if initErr != nil {
		return fmt.Errorf("initializing gpio host drivers: %w", initErr)
	}
	return nil
}

// pinByName resolves a pin name through the periph registry
func pinByName(name string) (gpio.PinIO, error) {
	if err := Init(); err != nil {
		return nil, err
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("no gpio pin named %q", name)
	}
	return pin, nil
}
