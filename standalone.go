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
	"errors"
	"fmt"
	"time"

	"github.com/AxisRay/proxmark3/internal/iso14443a"
)

// Exit flashes slowly on lamp A, a failed read flashes lamp B twice
const (
	exitBlinkPeriod = 300 * time.Millisecond
	exitBlinkCount  = 3
	walkBlinkPeriod = 200 * time.Millisecond
	walkBlinkCount  = 2
)

// Standalone is the mode the device boots into with no host attached:
// it emulates the configured card, a button click switches to a read
// pass, a hold leaves the mode. When a read pass finds no card the
// first identifier byte walks up by one so a picky reader eventually
// sees a fresh card.
//
// A Standalone is not safe for concurrent use.
type Standalone struct {
	fe     FrontEnd
	host   Host
	leds   StatusLEDs
	button Button
	em     *Emulator
	reader *Reader
	cfg    Config
	uid    []byte

	exitBlink time.Duration
	walkBlink time.Duration
}

// NewStandalone builds the standalone controller on fe with the given
// options applied over DefaultConfig
func NewStandalone(fe FrontEnd, opts ...Option) (*Standalone, error) {
	if fe == nil {
		return nil, fmt.Errorf("%w: front end is nil", ErrInvalidParameter)
	}
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	reader, err := NewReader(fe)
	if err != nil {
		return nil, err
	}

	// Emulation always presents the first four identifier bytes
	uid := make([]byte, iso14443a.UIDLength4)
	copy(uid, cfg.UID)

	return &Standalone{
		fe:        fe,
		host:      NopHost{},
		leds:      NopLEDs{},
		button:    NopButton{},
		em:        newEmulator(fe, cfg),
		reader:    reader,
		cfg:       cfg,
		uid:       uid,
		exitBlink: exitBlinkPeriod,
		walkBlink: walkBlinkPeriod,
	}, nil
}

// SetHost wires the channel back to the controlling computer. Passing
// nil restores the no-op default.
func (s *Standalone) SetHost(host Host) {
	if host == nil {
		s.host = NopHost{}
		return
	}
	s.host = host
}

// SetLEDs routes status indication to leds. Passing nil restores the
// no-op default.
func (s *Standalone) SetLEDs(leds StatusLEDs) {
	if leds == nil {
		leds = NopLEDs{}
	}
	s.leds = leds
	s.em.SetLEDs(leds)
}

// SetButton wires the hardware button. Passing nil restores the no-op
// default.
func (s *Standalone) SetButton(button Button) {
	if button == nil {
		s.button = NopButton{}
		return
	}
	s.button = button
}

// UID returns a copy of the identifier the next emulation pass will
// present
func (s *Standalone) UID() []byte {
	return cloneBytes(s.uid)
}

// Run loops between emulation and read passes until the operator holds
// the button, the host requests a stop or ctx ends. The outcome of the
// last pass goes to the host in a single report on the way out.
func (s *Standalone) Run(ctx context.Context) error {
	if tracer, ok := s.fe.(interface{ ClearTrace() }); ok {
		tracer.ClearTrace()
	}
	Debugf("standalone: card emulation with badge walk started")

	var last error
loop:
	for {
		if err := ctx.Err(); err != nil {
			last = err
			break
		}
		if s.host.StopRequested() {
			Debugf("standalone: host requested stop")
			break
		}

		switch s.button.Poll(s.cfg.ButtonHold) {
		case ButtonHeld:
			blink(ctx, s.leds, LEDA, s.exitBlink, exitBlinkCount)
			Debugf("standalone: button held, leaving standalone mode")
			break loop

		case ButtonClick:
			Debugf("standalone: reading mode")
			card, err := s.reader.ReadOnce(ctx)
			if err != nil {
				if s.uid[0] < 0xFF {
					s.uid[0]++
					Debugf("standalone: no card selected, walking uid to % X", s.uid)
					blink(ctx, s.leds, LEDB, s.walkBlink, walkBlinkCount)
				}
			} else {
				s.adoptUID(card.UID)
				Debugf("standalone: found card, emulating % X", s.uid)
				if err := sleepCtx(ctx, s.cfg.ReadSettle); err != nil {
					last = err
					break loop
				}
			}
		}

		Debugf("standalone: emulation mode")
		if err := s.em.SetUID(s.uid); err != nil {
			last = err
			break
		}
		last = s.em.Run(ctx)
		if ctx.Err() != nil {
			break
		}
		if errors.Is(last, ErrInitFailed) {
			blink(ctx, s.leds, LEDA, s.exitBlink, exitBlinkCount)
		}
	}

	if err := s.fe.FieldOff(); err != nil {
		Debugf("standalone: error switching field off: %v", err)
	}
	status := statusFromError(last)
	if err := s.host.Report(status); err != nil {
		Debugf("standalone: error reporting %v to host: %v", status, err)
	}
	Debugf("standalone: exiting with status %v", status)
	s.leds.Off()

	return ctx.Err()
}

// adoptUID switches emulation to the card just read, truncated to the
// cascade-1 bytes
func (s *Standalone) adoptUID(uid []byte) {
	if len(uid) >= iso14443a.UIDLength4 {
		copy(s.uid, uid[:iso14443a.UIDLength4])
	}
}

func statusFromError(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrInitFailed):
		return StatusInitFailed
	case errors.Is(err, ErrLinkAborted),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return StatusAborted
	default:
		return StatusFailed
	}
}
