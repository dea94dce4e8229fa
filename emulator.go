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
	"fmt"
	"time"

	"github.com/AxisRay/proxmark3/internal/iso14443a"
)

// Emulator presents a virtual ISO14443A card on a front end. It
// answers the anticollision sequence with precomputed frames and
// replays captured APDU responses for everything the reader asks
// after selection.
//
// An Emulator is not safe for concurrent use. Run may be called
// repeatedly; every call is a fresh session built from the current
// configuration.
type Emulator struct {
	tx   Transceiver
	leds StatusLEDs
	cfg  Config
}

// NewEmulator builds an emulator on tx with the given options applied
// over DefaultConfig
func NewEmulator(tx Transceiver, opts ...Option) (*Emulator, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: transceiver is nil", ErrInvalidParameter)
	}
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return newEmulator(tx, cfg), nil
}

func newEmulator(tx Transceiver, cfg Config) *Emulator {
	return &Emulator{tx: tx, leds: NopLEDs{}, cfg: cfg}
}

// SetLEDs routes activity indication to leds. Passing nil restores
// the no-op default.
func (e *Emulator) SetLEDs(leds StatusLEDs) {
	if leds == nil {
		e.leds = NopLEDs{}
		return
	}
	e.leds = leds
}

// SetUID changes the emulated identifier. It takes effect on the next
// call to Run; the slice is copied.
func (e *Emulator) SetUID(uid []byte) error {
	if len(uid) != iso14443a.UIDLength4 && len(uid) != iso14443a.UIDLength7 {
		return fmt.Errorf("%w: uid must be %d or %d bytes, got %d",
			ErrInvalidUID, iso14443a.UIDLength4, iso14443a.UIDLength7, len(uid))
	}
	e.cfg.UID = cloneBytes(uid)
	return nil
}

// UID returns a copy of the identifier the next session will present
func (e *Emulator) UID() []byte {
	return cloneBytes(e.cfg.UID)
}

// buildResponses assembles and precompiles the anticollision frames
// for the current identifier
func (e *Emulator) buildResponses() (*CannedSet, error) {
	id, err := NewTagIdentity(e.cfg.UID)
	if err != nil {
		return nil, err
	}
	set, err := BuildCannedSet(id, e.cfg.ResponseCapacity, e.cfg.ModulationCapacity)
	if err != nil {
		return nil, err
	}
	if err := set.prepare(e.tx, e.cfg.ModulationCapacity); err != nil {
		return nil, err
	}
	return set, nil
}

// Run emulates the card until the link reports the session is over or
// ctx is cancelled. The session ends with a SessionError wrapping the
// link error; interruption by button or host traffic surfaces as
// ErrLinkAborted. A response that cannot be precompiled drops the
// command and the session keeps listening.
func (e *Emulator) Run(ctx context.Context) error {
	if err := sleepCtx(ctx, e.cfg.StartupDelay); err != nil {
		return err
	}

	canned, err := e.buildResponses()
	if err != nil {
		Debugf("emulator: error initializing emulation: %v", err)
		return newSessionError("init", 0, fmt.Errorf("%w: %v", ErrInitFailed, err))
	}
	if err := e.tx.ListenTag(); err != nil {
		Debugf("emulator: error entering listen mode: %v", err)
		return newSessionError("init", 0, fmt.Errorf("%w: %v", ErrInitFailed, err))
	}
	defer e.leds.Set(LEDC, false)

	recv := make([]byte, iso14443a.MaxCommandLength)
	dynamic := NewTagResponse(e.cfg.ResponseCapacity, e.cfg.ModulationCapacity)
	halted := false
	commands := 0

	for {
		e.leds.Set(LEDC, true)
		dynamic.Reset()

		n, err := e.tx.ReceiveCommand(ctx, recv)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			Debugf("emulator: stopped after %d commands: %v", commands, err)
			return newSessionError("receive", commands, err)
		}
		cmd := recv[:n]
		commands++

		var response *TagResponse
		decision := Classify(cmd, halted)
		switch {
		case decision.Halt:
			halted = true
			Debugf("emulator: halt received")

		case decision.Kind == ReplyCanned:
			// Any answer to request also wakes a halted card
			if decision.Canned == CannedATQA {
				halted = false
			}
			response = canned.Frame(decision.Canned)
			if response == nil {
				// 4-byte identifiers carry no cascade-2 frames
				Debugf("emulator: no frame for cascade request 0x%02X", cmd[0])
			} else {
				Debugf("emulator: anticollision frame 0x%02X", cmd[0])
			}

		case decision.Kind == ReplyDelegate:
			Debugf("emulator: reader command % X", cmd)
			matched, merr := e.cfg.Rules.Match(dynamic, decision.PrefixLen, cmd)
			if merr != nil {
				Debugf("emulator: response does not fit: %v", merr)
			} else if !matched {
				Debugf("emulator: no replay rule for command")
			}

		case decision.Kind == ReplyFixed:
			Debugf("emulator: reader command % X", cmd)
			if serr := dynamic.Set(decision.Fixed[:]); serr != nil {
				Debugf("emulator: response does not fit: %v", serr)
				dynamic.Reset()
			}

		case decision.Unknown:
			Debugf("emulator: unknown command (len=%d): % X", n, cmd)

		default:
			Debugf("emulator: ignoring % X", cmd)
		}

		if dynamic.Len() > 0 {
			Debugf("emulator: answering % X", dynamic.Bytes())
			if err := dynamic.AppendChecksum(); err != nil {
				Debugf("emulator: response does not fit: %v", err)
				continue
			}
			if err := e.tx.PrepareModulation(dynamic, e.cfg.ModulationCapacity); err != nil {
				if serr := sleepCtx(ctx, e.cfg.PrepRetryDelay); serr != nil {
					return serr
				}
				Debugf("emulator: error preparing tag response: %v", err)
				continue
			}
			response = dynamic
		}

		if response != nil {
			if err := e.tx.TransmitPrepared(response); err != nil {
				return newSessionError("transmit", commands, err)
			}
			e.leds.Set(LEDC, false)
		}
	}
}

// sleepCtx pauses for d unless ctx ends first
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
