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

package testing

import (
	"context"
	"fmt"

	"github.com/AxisRay/proxmark3"
	"github.com/AxisRay/proxmark3/internal/iso14443a"
	"github.com/AxisRay/proxmark3/internal/syncutil"
)

// readerState tracks where the virtual reader is in the activation
// sequence
type readerState int

const (
	stateRequest readerState = iota
	stateAnticollision
	stateSelect
	stateRATS
	stateExchange
	stateHalt
	stateDone
)

// Exchange is one command/response pair observed on the virtual air
// interface
type Exchange struct {
	Command  []byte
	Response []byte
}

// VirtualReader is a scripted ISO14443A reader driving a full
// emulation session over the Transceiver interface: REQA through
// select and RATS, then whatever frames were queued, then halt. Later
// commands derive from earlier responses the way a real reader's
// would: the select frame carries the UID the tag actually answered
// with, and a SAK announcing an incomplete UID raises the cascade
// level before RATS. Once the script ends ReceiveCommand reports a
// link abort, which ends the session.
type VirtualReader struct {
	lastErr   error
	frames    [][]byte
	exchanges []Exchange
	pending   []byte
	lastResp  []byte
	mu        syncutil.Mutex
	state     readerState
	frame     int
	sel       byte
}

// NewVirtualReader builds a reader that will activate the tag and
// exchange the given frames in order. Frames are sent verbatim;
// callers append their own CRC_A where the frame format requires one.
func NewVirtualReader(frames ...[]byte) *VirtualReader {
	r := &VirtualReader{sel: iso14443a.SelCascade1}
	for _, f := range frames {
		r.frames = append(r.frames, append([]byte(nil), f...))
	}
	return r
}

// QueueFrame appends one more frame to exchange after activation
func (r *VirtualReader) QueueFrame(f []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, append([]byte(nil), f...))
}

// Exchanges returns the command/response log so far
func (r *VirtualReader) Exchanges() []Exchange {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Exchange, len(r.exchanges))
	copy(out, r.exchanges)
	return out
}

// Err reports the first protocol inconsistency the reader noticed,
// such as a malformed anticollision reply
func (r *VirtualReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// ListenTag implements proxmark3.Transceiver
func (*VirtualReader) ListenTag() error { return nil }

// ReceiveCommand implements proxmark3.Transceiver. Each call produces
// the next command the scripted reader would send given the responses
// seen so far.
func (r *VirtualReader) ReceiveCommand(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("receive cancelled: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cmd, err := r.nextCommand()
	if err != nil {
		return 0, err
	}
	if len(cmd) > len(buf) {
		return 0, proxmark3.ErrBufferOverflow
	}
	r.pending = cmd
	copy(buf, cmd)
	return len(cmd), nil
}

func (r *VirtualReader) nextCommand() ([]byte, error) {
	switch r.state {
	case stateRequest:
		r.state = stateAnticollision
		return []byte{iso14443a.CmdRequest}, nil

	case stateAnticollision:
		r.state = stateSelect
		return []byte{r.sel, iso14443a.NVBAnticollision}, nil

	case stateSelect:
		// The anticollision reply is the UID chunk plus its BCC; echo
		// it back in the select frame
		if len(r.lastResp) != 5 {
			r.lastErr = fmt.Errorf("anticollision reply of %d bytes", len(r.lastResp))
			return nil, proxmark3.ErrLinkAborted
		}
		cmd := append([]byte{r.sel, iso14443a.NVBSelect}, r.lastResp...)
		r.state = stateRATS
		return iso14443a.AppendChecksum(cmd), nil

	case stateRATS:
		// A SAK with the cascade bit set means the UID is not complete
		// yet; raise the cascade level and collect the rest
		if len(r.lastResp) > 0 && r.lastResp[0]&0x04 != 0 && r.sel == iso14443a.SelCascade1 {
			r.sel = iso14443a.SelCascade2
			r.state = stateSelect
			return []byte{r.sel, iso14443a.NVBAnticollision}, nil
		}
		r.state = stateExchange
		return iso14443a.AppendChecksum([]byte{iso14443a.CmdRATS, 0x80}), nil

	case stateExchange:
		if r.frame < len(r.frames) {
			cmd := r.frames[r.frame]
			r.frame++
			return cmd, nil
		}
		r.state = stateDone
		return iso14443a.AppendChecksum([]byte{iso14443a.CmdHalt, 0x00}), nil

	default:
		// Script finished; the reader walks away
		return nil, proxmark3.ErrLinkAborted
	}
}

// PrepareModulation implements proxmark3.Transceiver, copying the
// payload through like the hardware mock does
func (r *VirtualReader) PrepareModulation(resp *proxmark3.TagResponse, modCapacity int) error {
	if resp.Len() > modCapacity {
		return fmt.Errorf("%w: %d bytes into %d", proxmark3.ErrModulationFailed, resp.Len(), modCapacity)
	}
	return resp.SetModulation(resp.Bytes())
}

// TransmitPrepared implements proxmark3.Transceiver. The response is
// logged against the command that provoked it and feeds the next
// command of the activation sequence.
func (r *VirtualReader) TransmitPrepared(resp *proxmark3.TagResponse) error {
	if _, ok := resp.Modulation(); !ok {
		return fmt.Errorf("%w: response was not prepared", proxmark3.ErrModulationFailed)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	frame := append([]byte(nil), resp.Bytes()...)
	r.exchanges = append(r.exchanges, Exchange{Command: r.pending, Response: frame})
	r.lastResp = frame
	return nil
}
