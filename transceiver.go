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

	"github.com/AxisRay/proxmark3/internal/syncutil"
)

// Transceiver is the tag-role side of the RF front end: it configures
// the field for tag simulation, hands reader commands to the engine and
// transmits prepared responses. Implementations block in ReceiveCommand
// until a command arrives, the context is cancelled, or the link is
// aborted by the host.
type Transceiver interface {
	// ListenTag configures the front end for the peak-detected tag
	// simulation path
	ListenTag() error

	// ReceiveCommand blocks for the next reader command and copies it
	// into buf, returning the command length. A link abort surfaces as
	// an error wrapping ErrLinkAborted.
	ReceiveCommand(ctx context.Context, buf []byte) (int, error)

	// PrepareModulation precomputes the low-level modulation form of
	// resp. modCapacity bounds the modulation buffer; responses that
	// cannot fit fail without transmitting.
	PrepareModulation(resp *TagResponse, modCapacity int) error

	// TransmitPrepared sends a response whose modulation has been
	// prepared
	TransmitPrepared(resp *TagResponse) error
}

// Initiator is the reader-role side of the RF front end.
type Initiator interface {
	// ConfigureReader configures the front end for reader-role
	// modulation
	ConfigureReader() error

	// SelectCard runs one anticollision/select handshake against a
	// present card. candidate seeds the anticollision loop and may be
	// nil. withTransport requests transport-layer activation (RATS)
	// after the select. Deadlines ride on ctx.
	SelectCard(ctx context.Context, candidate []byte, withTransport bool) (*CardInfo, error)
}

// FrontEnd combines both radio roles with field and lifecycle control.
type FrontEnd interface {
	Transceiver
	Initiator

	// FieldOff drops the RF field
	FieldOff() error

	// Close releases the front end
	Close() error
}

// MockTransceiver provides a scripted FrontEnd implementation for testing
type MockTransceiver struct {
	receiveErr    error
	listenErr     error
	transmitErr   error
	selectErr     error
	card          *CardInfo
	prepareFail   map[int]error
	script        [][]byte
	transmitted   [][]byte
	mu            syncutil.RWMutex
	scriptPos     int
	prepareCalls  int
	listenCalls   int
	readerCalls   int
	fieldOffCalls int
	closed        bool
}

// NewMockTransceiver creates a mock front end. With an empty script,
// ReceiveCommand reports a link abort, matching a host interrupt.
func NewMockTransceiver() *MockTransceiver {
	return &MockTransceiver{
		receiveErr:  ErrLinkAborted,
		prepareFail: make(map[int]error),
	}
}

// QueueCommand appends a reader command to the receive script
func (m *MockTransceiver) QueueCommand(cmd []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(cmd))
	copy(cp, cmd)
	m.script = append(m.script, cp)
}

// SetReceiveError sets the error returned once the script is exhausted
func (m *MockTransceiver) SetReceiveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receiveErr = err
}

// SetListenError makes ListenTag fail
func (m *MockTransceiver) SetListenError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listenErr = err
}

// FailPrepare injects an error into the nth PrepareModulation call
// (1-based)
func (m *MockTransceiver) FailPrepare(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prepareFail[n] = err
}

// SetTransmitError makes TransmitPrepared fail
func (m *MockTransceiver) SetTransmitError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transmitErr = err
}

// SetCard configures the card returned by SelectCard
func (m *MockTransceiver) SetCard(card *CardInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.card = card
}

// SetSelectError makes SelectCard fail
func (m *MockTransceiver) SetSelectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selectErr = err
}

// Transmitted returns the payload bytes of every transmitted frame in
// order
func (m *MockTransceiver) Transmitted() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]byte, len(m.transmitted))
	for i, frame := range m.transmitted {
		cp := make([]byte, len(frame))
		copy(cp, frame)
		out[i] = cp
	}
	return out
}

// FieldOffCalls returns how many times FieldOff was called
func (m *MockTransceiver) FieldOffCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fieldOffCalls
}

// ListenTag implements Transceiver
func (m *MockTransceiver) ListenTag() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listenCalls++
	return m.listenErr
}

// ReceiveCommand implements Transceiver
func (m *MockTransceiver) ReceiveCommand(ctx context.Context, buf []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("receive cancelled: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrLinkClosed
	}
	if m.scriptPos >= len(m.script) {
		return 0, m.receiveErr
	}
	cmd := m.script[m.scriptPos]
	m.scriptPos++
	if len(cmd) > len(buf) {
		return 0, ErrBufferOverflow
	}
	copy(buf, cmd)
	return len(cmd), nil
}

// PrepareModulation implements Transceiver. The mock copies the payload
// into the modulation buffer unchanged so tests can inspect the frame
// that would go on the air.
func (m *MockTransceiver) PrepareModulation(resp *TagResponse, modCapacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prepareCalls++
	if err, ok := m.prepareFail[m.prepareCalls]; ok {
		return err
	}
	if resp.Len() > modCapacity {
		return fmt.Errorf("%w: %d bytes into %d", ErrModulationFailed, resp.Len(), modCapacity)
	}
	return resp.SetModulation(resp.Bytes())
}

// TransmitPrepared implements Transceiver. Sending a response whose
// modulation was never prepared is a programming error and fails.
func (m *MockTransceiver) TransmitPrepared(resp *TagResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transmitErr != nil {
		return m.transmitErr
	}
	if _, ok := resp.Modulation(); !ok {
		return fmt.Errorf("%w: response was not prepared", ErrModulationFailed)
	}
	frame := make([]byte, resp.Len())
	copy(frame, resp.Bytes())
	m.transmitted = append(m.transmitted, frame)
	return nil
}

// ConfigureReader implements Initiator
func (m *MockTransceiver) ConfigureReader() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readerCalls++
	return nil
}

// SelectCard implements Initiator
func (m *MockTransceiver) SelectCard(ctx context.Context, _ []byte, _ bool) (*CardInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("select cancelled: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.selectErr != nil {
		return nil, m.selectErr
	}
	if m.card == nil {
		return nil, ErrNoCardFound
	}
	card := *m.card
	card.UID = append([]byte(nil), m.card.UID...)
	card.ATS = append([]byte(nil), m.card.ATS...)
	return &card, nil
}

// FieldOff implements FrontEnd
func (m *MockTransceiver) FieldOff() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fieldOffCalls++
	return nil
}

// Close implements FrontEnd
func (m *MockTransceiver) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
