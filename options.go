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
	"fmt"
	"time"

	"github.com/AxisRay/proxmark3/internal/iso14443a"
)

const (
	defaultStartupDelay   = 500 * time.Millisecond
	defaultPrepRetryDelay = 500 * time.Millisecond
	defaultButtonHold     = time.Second
	defaultReadSettle     = 100 * time.Millisecond
)

// Config collects the tunables shared by emulation, reader and
// standalone sessions. Start from DefaultConfig, the zero value does
// not validate.
type Config struct {
	// UID is the identifier presented during anticollision
	UID []byte
	// Rules is the APDU replay table consulted for I-blocks. An empty
	// table keeps the tag silent on every I-block.
	Rules ReplayTable
	// ResponseCapacity bounds a response payload in bytes
	ResponseCapacity int
	// ModulationCapacity bounds the precomputed modulation form
	ModulationCapacity int
	// StartupDelay is the settling pause before the tag starts listening
	StartupDelay time.Duration
	// PrepRetryDelay is the pause after a failed modulation prepare
	PrepRetryDelay time.Duration
	// ButtonHold is how long the button must stay down to leave
	// standalone mode
	ButtonHold time.Duration
	// ReadSettle is the pause after a successful card read before
	// emulation resumes
	ReadSettle time.Duration
}

// DefaultConfig returns the configuration the stock firmware ships
// with: the factory UID, the campus card replay table and the timing
// of the original hardware.
func DefaultConfig() Config {
	return Config{
		UID:                DefaultUID(),
		Rules:              DefaultRules(),
		ResponseCapacity:   DefaultResponseCapacity,
		ModulationCapacity: DefaultModulationCapacity,
		StartupDelay:       defaultStartupDelay,
		PrepRetryDelay:     defaultPrepRetryDelay,
		ButtonHold:         defaultButtonHold,
		ReadSettle:         defaultReadSettle,
	}
}

// Validate checks the configuration for values no session can run with
func (c *Config) Validate() error {
	if len(c.UID) != iso14443a.UIDLength4 && len(c.UID) != iso14443a.UIDLength7 {
		return fmt.Errorf("%w: uid must be %d or %d bytes, got %d",
			ErrInvalidUID, iso14443a.UIDLength4, iso14443a.UIDLength7, len(c.UID))
	}
	if err := c.Rules.validate(); err != nil {
		return err
	}
	if c.ResponseCapacity <= 0 {
		return fmt.Errorf("%w: response capacity must be positive, got %d",
			ErrInvalidParameter, c.ResponseCapacity)
	}
	if c.ModulationCapacity <= 0 {
		return fmt.Errorf("%w: modulation capacity must be positive, got %d",
			ErrInvalidParameter, c.ModulationCapacity)
	}
	if c.StartupDelay < 0 {
		return fmt.Errorf("%w: startup delay must not be negative", ErrInvalidParameter)
	}
	if c.PrepRetryDelay < 0 {
		return fmt.Errorf("%w: prepare retry delay must not be negative", ErrInvalidParameter)
	}
	if c.ButtonHold <= 0 {
		return fmt.Errorf("%w: button hold duration must be positive", ErrInvalidParameter)
	}
	if c.ReadSettle < 0 {
		return fmt.Errorf("%w: read settle delay must not be negative", ErrInvalidParameter)
	}
	return nil
}

// Option adjusts a Config before a session is built
type Option func(*Config) error

// WithUID sets the identifier presented during anticollision.
// The slice is copied.
func WithUID(uid []byte) Option {
	return func(c *Config) error {
		if len(uid) != iso14443a.UIDLength4 && len(uid) != iso14443a.UIDLength7 {
			return fmt.Errorf("%w: uid must be %d or %d bytes, got %d",
				ErrInvalidUID, iso14443a.UIDLength4, iso14443a.UIDLength7, len(uid))
		}
		c.UID = cloneBytes(uid)
		return nil
	}
}

// WithRules replaces the replay table. The table is deep-copied, an
// empty table disables APDU replies entirely.
func WithRules(rules ReplayTable) Option {
	return func(c *Config) error {
		if err := rules.validate(); err != nil {
			return err
		}
		c.Rules = rules.clone()
		return nil
	}
}

// WithResponseCapacity sets the response payload buffer size
func WithResponseCapacity(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("%w: response capacity must be positive, got %d",
				ErrInvalidParameter, n)
		}
		c.ResponseCapacity = n
		return nil
	}
}

// WithModulationCapacity sets the modulation buffer size
func WithModulationCapacity(n int) Option {
	return func(c *Config) error {
		if n <= 0 {
			return fmt.Errorf("%w: modulation capacity must be positive, got %d",
				ErrInvalidParameter, n)
		}
		c.ModulationCapacity = n
		return nil
	}
}

// WithStartupDelay sets the settling pause before listening starts.
// Zero disables the pause, useful under test.
func WithStartupDelay(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return fmt.Errorf("%w: startup delay must not be negative", ErrInvalidParameter)
		}
		c.StartupDelay = d
		return nil
	}
}

// WithPrepRetryDelay sets the pause after a failed modulation prepare
func WithPrepRetryDelay(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return fmt.Errorf("%w: prepare retry delay must not be negative", ErrInvalidParameter)
		}
		c.PrepRetryDelay = d
		return nil
	}
}

// WithButtonHold sets how long the button must stay down before the
// standalone loop exits
func WithButtonHold(d time.Duration) Option {
	return func(c *Config) error {
		if d <= 0 {
			return fmt.Errorf("%w: button hold duration must be positive", ErrInvalidParameter)
		}
		c.ButtonHold = d
		return nil
	}
}

// WithReadSettle sets the pause after a successful card read
func WithReadSettle(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return fmt.Errorf("%w: read settle delay must not be negative", ErrInvalidParameter)
		}
		c.ReadSettle = d
		return nil
	}
}

func applyOptions(opts []Option) (Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
