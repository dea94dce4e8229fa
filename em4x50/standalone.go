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

package em4x50

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AxisRay/proxmark3"
	"github.com/AxisRay/proxmark3/flash"
	log "github.com/sirupsen/logrus"
)

// Flash file names, fixed so host-side tooling can find them
const (
	// SimulateFile holds the dump the simulator presents
	SimulateFile = "lf_em4x50_simulate.eml"
	// CollectLogFile accumulates the words of every collected tag
	CollectLogFile = "lf_em4x50_collect.log"
	// TagDataFile receives the refreshed dump when a reader reveals
	// its password during simulation
	TagDataFile = "lf_em4x50_tag_data.log"
)

// Mode is what the standalone is doing between button clicks
type Mode int

const (
	// ModeSimulate presents the dump to whatever reader interrogates
	// the antenna
	ModeSimulate Mode = iota
	// ModeCollect reads tags brought near the antenna and logs them
	ModeCollect
)

func (m Mode) String() string {
	switch m {
	case ModeSimulate:
		return "simulate"
	case ModeCollect:
		return "collect"
	default:
		return "unknown"
	}
}

// OutcomeKind classifies one simulated reader interaction
type OutcomeKind int

const (
	// OutcomeServed means a reader transaction completed
	OutcomeServed OutcomeKind = iota
	// OutcomeTimeout means no reader showed up in time; the simulator
	// resets its authentication state and tries again
	OutcomeTimeout
	// OutcomeAbort means the front end was interrupted
	OutcomeAbort
)

// Outcome is the result of one simulated interaction. PasswordSeen is
// set when the reader authenticated and revealed its password on the
// air.
type Outcome struct {
	Password     uint32
	Kind         OutcomeKind
	PasswordSeen bool
}

// Simulator services a single reader interaction against a tag image
type Simulator interface {
	Serve(ctx context.Context, dump *Dump) (Outcome, error)
}

// Collector runs one standard read of whatever tag sits on the
// antenna, returning its words. proxmark3.ErrNoCardFound when the
// field is empty.
type Collector interface {
	ReadWords(ctx context.Context) ([]uint32, error)
}

// Standalone alternates tag simulation and tag collection under
// button control: a click flips the mode, a hold exits. LED A shows
// simulate, B collect, D flash activity.
type Standalone struct {
	sim    Simulator
	col    Collector
	store  *flash.Store
	button proxmark3.Button
	leds   proxmark3.StatusLEDs
	host   proxmark3.Host

	buttonHold time.Duration
	mode       Mode
	dump       Dump
}

// NewStandalone builds the low-frequency standalone. The flash store
// mounts lazily when Run starts.
func NewStandalone(sim Simulator, col Collector, store *flash.Store) (*Standalone, error) {
	if sim == nil || col == nil || store == nil {
		return nil, fmt.Errorf("%w: simulator, collector and store are all required",
			proxmark3.ErrInvalidParameter)
	}
	return &Standalone{
		sim:        sim,
		col:        col,
		store:      store,
		button:     proxmark3.NopButton{},
		leds:       proxmark3.NopLEDs{},
		host:       proxmark3.NopHost{},
		buttonHold: time.Second,
	}, nil
}

// SetButton wires the hardware button. Passing nil restores the no-op
// default.
func (s *Standalone) SetButton(button proxmark3.Button) {
	if button == nil {
		s.button = proxmark3.NopButton{}
		return
	}
	s.button = button
}

// SetLEDs routes status indication to leds. Passing nil restores the
// no-op default.
func (s *Standalone) SetLEDs(leds proxmark3.StatusLEDs) {
	if leds == nil {
		leds = proxmark3.NopLEDs{}
	}
	s.leds = leds
}

// SetHost wires the channel back to the controlling computer. Passing
// nil restores the no-op default.
func (s *Standalone) SetHost(h proxmark3.Host) {
	if h == nil {
		s.host = proxmark3.NopHost{}
		return
	}
	s.host = h
}

// SetButtonHold overrides the one second hold-to-exit window
func (s *Standalone) SetButtonHold(d time.Duration) {
	if d > 0 {
		s.buttonHold = d
	}
}

// Mode returns what the standalone is currently doing
func (s *Standalone) Mode() Mode {
	return s.mode
}

// Run drives the mode loop until the operator holds the button, the
// host requests a stop, the simulator reports an abort, or ctx ends
func (s *Standalone) Run(ctx context.Context) error {
	if err := s.store.Mount(); err != nil {
		return fmt.Errorf("mounting flash: %w", err)
	}
	defer s.store.Unmount()
	defer s.leds.Off()

	s.enterMode(s.mode)

	var last error
loop:
	for {
		if err := ctx.Err(); err != nil {
			last = err
			break
		}
		if s.host.StopRequested() {
			log.Info("host requested stop")
			break
		}

		switch s.button.Poll(s.buttonHold) {
		case proxmark3.ButtonHeld:
			log.Info("button held, leaving standalone mode")
			break loop
		case proxmark3.ButtonClick:
			s.enterMode(s.toggledMode())
		}

		var err error
		switch s.mode {
		case ModeSimulate:
			var abort bool
			abort, err = s.simulateOnce(ctx)
			if abort {
				last = err
				break loop
			}
		case ModeCollect:
			err = s.collectOnce(ctx)
		}
		// A failed pass is recoverable; only an abort or cancellation
		// colors the final report
		if err != nil && !errors.Is(err, proxmark3.ErrNoCardFound) {
			log.WithError(err).Debug("pass failed")
		}
	}

	s.logRetrievalInstructions()
	status := proxmark3.StatusSuccess
	if last != nil {
		status = proxmark3.StatusAborted
	}
	if err := s.host.Report(status); err != nil {
		log.WithError(err).Debug("reporting status failed")
	}
	return ctx.Err()
}

func (s *Standalone) toggledMode() Mode {
	if s.mode == ModeSimulate {
		return ModeCollect
	}
	return ModeSimulate
}

// enterMode switches the lamps and, entering simulation, loads the
// dump from flash. A missing or invalid dump is logged and simulation
// runs on whatever was read; serving a zeroed tag still exercises the
// reader.
func (s *Standalone) enterMode(mode Mode) {
	s.mode = mode
	s.leds.Set(proxmark3.LEDA, mode == ModeSimulate)
	s.leds.Set(proxmark3.LEDB, mode == ModeCollect)
	log.WithField("mode", mode.String()).Info("mode active")

	if mode != ModeSimulate {
		return
	}

	s.leds.Set(proxmark3.LEDD, true)
	defer s.leds.Set(proxmark3.LEDD, false)

	data, err := s.store.ReadFile(SimulateFile)
	if err != nil {
		log.WithError(err).Warn("no simulation dump, serving a blank tag")
		s.dump = Dump{}
		return
	}
	dump, err := ParseDump(data)
	if err != nil {
		log.WithError(err).Warn("simulation dump unreadable, serving a blank tag")
		s.dump = Dump{}
		return
	}
	if !dump.Valid() {
		log.Warn("simulation dump fails validation, serving it anyway")
	}
	s.dump = *dump
	log.WithField("serial", fmt.Sprintf("%08x", dump.Words[WordSerial])).
		Info("simulation dump loaded")
}

// simulateOnce services one reader interaction. The returned abort
// flag ends the whole standalone.
func (s *Standalone) simulateOnce(ctx context.Context) (abort bool, err error) {
	outcome, err := s.sim.Serve(ctx, &s.dump)
	if err != nil {
		return false, fmt.Errorf("simulating: %w", err)
	}

	if outcome.PasswordSeen && outcome.Password != s.dump.Password() {
		s.dump.SetPassword(outcome.Password)
		s.persistPassword()
	}

	switch outcome.Kind {
	case OutcomeTimeout:
		// Authentication state resets, back to standard read
		return false, nil
	case OutcomeAbort:
		log.Info("simulation interrupted")
		return true, proxmark3.ErrLinkAborted
	default:
		return false, nil
	}
}

// persistPassword writes the refreshed tag image so a power cycle
// cannot lose an observed password
func (s *Standalone) persistPassword() {
	s.leds.Set(proxmark3.LEDD, true)
	defer s.leds.Set(proxmark3.LEDD, false)

	if err := s.store.WriteFile(TagDataFile, s.dump.Marshal(), flash.SafetySafe); err != nil {
		log.WithError(err).Error("persisting observed password failed")
		return
	}
	log.WithField("password", fmt.Sprintf("%08x", s.dump.Password())).
		Info("password observed and persisted")
}

// collectOnce reads one tag and appends its words to the collect log
func (s *Standalone) collectOnce(ctx context.Context) error {
	words, err := s.col.ReadWords(ctx)
	if err != nil {
		return fmt.Errorf("collecting: %w", err)
	}

	s.leds.Set(proxmark3.LEDD, true)
	defer s.leds.Set(proxmark3.LEDD, false)

	var entry bytes.Buffer
	fmt.Fprintf(&entry, "found tag (%d words)\n", len(words))
	for _, word := range words {
		fmt.Fprintf(&entry, "%08x\n", word)
	}
	if err := s.store.Append(CollectLogFile, entry.Bytes(), flash.SafetySafe); err != nil {
		return fmt.Errorf("logging collected tag: %w", err)
	}
	log.WithField("words", len(words)).Info("tag collected")
	return nil
}

// logRetrievalInstructions tells the operator where the session's data
// went, mirroring what the device prints on its console
func (s *Standalone) logRetrievalInstructions() {
	switch s.mode {
	case ModeSimulate:
		log.WithField("file", TagDataFile).Info("refreshed tag images are on flash")
	case ModeCollect:
		log.WithField("file", CollectLogFile).Info("collected tags are on flash")
	}
}
