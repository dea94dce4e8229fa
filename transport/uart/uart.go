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

// Package uart drives the RF analog front end over a serial port. The
// front end does the bit-level work: it demodulates reader frames,
// precomputes the modulation form of responses and keys them out. This
// package speaks its framed control protocol and presents the result
// as a proxmark3.FrontEnd.
package uart

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/AxisRay/proxmark3"
	"github.com/AxisRay/proxmark3/internal/iso14443a"
	"github.com/AxisRay/proxmark3/internal/syncutil"
	"go.bug.st/serial"
)

// Control opcodes of the front-end link. A request is opcode, 16-bit
// little-endian length, payload; the response echoes the opcode and
// inserts a status byte ahead of the length.
const (
	opListenTag  = 0x60 // enter tag simulation, no payload
	opReceive    = 0x61 // block for the next reader frame
	opPrepare    = 0x62 // payload: response bytes; reply: modulation form
	opTransmit   = 0x63 // payload: prepared modulation form
	opReader     = 0x64 // enter reader modulation, no payload
	opSelect     = 0x65 // payload: flags + candidate uid; reply: card info
	opFieldOff   = 0x66 // drop the RF field
	opRespMarker = 0x80 // set on every response opcode
)

// Response status bytes
const (
	statusOK      = 0x00
	statusFailed  = 0x01
	statusAborted = 0x02 // receive interrupted by button or host traffic
	statusNoCard  = 0x03 // select found nothing in the field
)

// SelectCard request flag bits
const flagFullSelect = 0x01

const (
	headerLen        = 4 // opcode + status + 16-bit length
	requestHeaderLen = 3
	maxPayload       = 4096

	defaultBaudRate    = 115200
	defaultReadTimeout = 50 * time.Millisecond
	defaultTraceSize   = 32
)

// Transport is a proxmark3.FrontEnd attached over a serial port. All
// link operations serialize on an internal mutex; the front end
// handles one request at a time.
type Transport struct {
	port     serial.Port
	trace    *proxmark3.TraceBuffer
	portName string
	mu       syncutil.Mutex
	closed   bool
}

// Option adjusts the link before it opens
type Option func(*settings)

type settings struct {
	baudRate  int
	traceSize int
}

// WithBaudRate overrides the default 115200 baud
func WithBaudRate(baud int) Option {
	return func(s *settings) { s.baudRate = baud }
}

// WithTraceSize sets how many wire events the post-mortem trace keeps
func WithTraceSize(n int) Option {
	return func(s *settings) { s.traceSize = n }
}

// New opens the front end on portName, 8N1 framing
func New(portName string, opts ...Option) (*Transport, error) {
	s := settings{baudRate: defaultBaudRate, traceSize: defaultTraceSize}
	for _, opt := range opts {
		opt(&s)
	}

	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: s.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("opening front end on %s: %w", portName, err)
	}

	// The short read timeout keeps Read from blocking forever so
	// receive loops can observe context cancellation between slices.
	if err := port.SetReadTimeout(defaultReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("setting read timeout on %s: %w", portName, err)
	}

	return &Transport{
		port:     port,
		portName: portName,
		trace:    proxmark3.NewTraceBuffer("uart", portName, s.traceSize),
	}, nil
}

// Port returns the serial device path the link was opened on
func (t *Transport) Port() string {
	return t.portName
}

// ClearTrace drops the recorded wire events. The standalone loop calls
// this when a fresh session starts.
func (t *Transport) ClearTrace() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trace.Clear()
}

// writeRequest frames and sends one control request
func (t *Transport) writeRequest(op byte, payload []byte) error {
	if len(payload) > maxPayload {
		return proxmark3.NewDataTooLargeError(opName(op), t.portName)
	}

	req := make([]byte, requestHeaderLen+len(payload))
	req[0] = op
	binary.LittleEndian.PutUint16(req[1:3], uint16(len(payload)))
	copy(req[requestHeaderLen:], payload)

	t.trace.RecordTX(req, opName(op))
	if _, err := t.port.Write(req); err != nil {
		return t.trace.WrapError(fmt.Errorf("%w: %w", proxmark3.ErrLinkWrite, err))
	}
	if err := t.port.Drain(); err != nil {
		return t.trace.WrapError(fmt.Errorf("%w: drain: %w", proxmark3.ErrLinkWrite, err))
	}
	return nil
}

// readResponse blocks for the response to op, honoring ctx between
// read slices. A nil ctx waits without a deadline.
func (t *Transport) readResponse(ctx context.Context, op byte) (status byte, payload []byte, err error) {
	header, err := t.readExact(ctx, headerLen, opName(op))
	if err != nil {
		return 0, nil, err
	}
	if header[0] != op|opRespMarker {
		t.trace.RecordRX(header, "bad opcode")
		return 0, nil, t.trace.WrapError(proxmark3.NewFrameCorruptedError(opName(op), t.portName))
	}

	n := int(binary.LittleEndian.Uint16(header[2:4]))
	if n > maxPayload {
		t.trace.RecordRX(header, "oversized payload")
		return 0, nil, t.trace.WrapError(proxmark3.NewFrameCorruptedError(opName(op), t.portName))
	}
	if n > 0 {
		payload, err = t.readExact(ctx, n, opName(op))
		if err != nil {
			return 0, nil, err
		}
	}
	t.trace.RecordRX(append(header[:4:4], payload...), opName(op))
	return header[1], payload, nil
}

// readExact reads exactly n bytes, looping over the port's short read
// timeout so ctx cancellation is seen promptly
func (t *Transport) readExact(ctx context.Context, n int, note string) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				t.trace.RecordTimeout(note)
				return nil, t.trace.WrapError(fmt.Errorf("%s: %w", note, err))
			}
		}
		r, err := t.port.Read(buf[got:])
		if err != nil {
			return nil, t.trace.WrapError(fmt.Errorf("%w: %s: %w", proxmark3.ErrLinkRead, note, err))
		}
		got += r
	}
	return buf, nil
}

// command runs one request/response exchange under the link mutex
func (t *Transport) command(ctx context.Context, op byte, payload []byte) (byte, []byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, nil, proxmark3.NewLinkClosedError(opName(op), t.portName)
	}
	if err := t.writeRequest(op, payload); err != nil {
		return 0, nil, err
	}
	return t.readResponse(ctx, op)
}

// ListenTag implements proxmark3.Transceiver
func (t *Transport) ListenTag() error {
	status, _, err := t.command(nil, opListenTag, nil)
	if err != nil {
		return err
	}
	if status != statusOK {
		return fmt.Errorf("%w: listen rejected with status 0x%02X", proxmark3.ErrLinkNotReady, status)
	}
	return nil
}

// ReceiveCommand implements proxmark3.Transceiver. It blocks until the
// front end demodulates a reader frame; an abort status from the front
// end (button press, host traffic) surfaces as ErrLinkAborted.
func (t *Transport) ReceiveCommand(ctx context.Context, buf []byte) (int, error) {
	status, payload, err := t.command(ctx, opReceive, nil)
	if err != nil {
		return 0, err
	}
	switch status {
	case statusOK:
	case statusAborted:
		return 0, fmt.Errorf("receive: %w", proxmark3.ErrLinkAborted)
	default:
		return 0, fmt.Errorf("%w: receive status 0x%02X", proxmark3.ErrLinkRead, status)
	}
	if len(payload) > len(buf) {
		return 0, fmt.Errorf("%w: %d byte command into %d", proxmark3.ErrBufferOverflow, len(payload), len(buf))
	}
	copy(buf, payload)
	return len(payload), nil
}

// PrepareModulation implements proxmark3.Transceiver. The front end
// answers with the precomputed modulation form, which is stored on
// resp for TransmitPrepared.
func (t *Transport) PrepareModulation(resp *proxmark3.TagResponse, modCapacity int) error {
	status, mod, err := t.command(nil, opPrepare, resp.Bytes())
	if err != nil {
		return err
	}
	if status != statusOK {
		return fmt.Errorf("%w: front end status 0x%02X", proxmark3.ErrModulationFailed, status)
	}
	if len(mod) > modCapacity {
		return fmt.Errorf("%w: %d bytes into %d", proxmark3.ErrModulationFailed, len(mod), modCapacity)
	}
	return resp.SetModulation(mod)
}

// TransmitPrepared implements proxmark3.Transceiver
func (t *Transport) TransmitPrepared(resp *proxmark3.TagResponse) error {
	mod, ok := resp.Modulation()
	if !ok {
		return fmt.Errorf("%w: response was not prepared", proxmark3.ErrModulationFailed)
	}
	status, _, err := t.command(nil, opTransmit, mod)
	if err != nil {
		return err
	}
	if status != statusOK {
		return fmt.Errorf("%w: transmit status 0x%02X", proxmark3.ErrLinkWrite, status)
	}
	return nil
}

// ConfigureReader implements proxmark3.Initiator
func (t *Transport) ConfigureReader() error {
	status, _, err := t.command(nil, opReader, nil)
	if err != nil {
		return err
	}
	if status != statusOK {
		return fmt.Errorf("%w: reader mode rejected with status 0x%02X", proxmark3.ErrLinkNotReady, status)
	}
	return nil
}

// SelectCard implements proxmark3.Initiator. The front end runs the
// anticollision loop; the reply carries ATQA, SAK, UID and the ATS
// when transport activation was requested and answered.
func (t *Transport) SelectCard(ctx context.Context, candidate []byte, withTransport bool) (*proxmark3.CardInfo, error) {
	var flags byte
	if withTransport {
		flags |= flagFullSelect
	}
	payload := append([]byte{flags}, candidate...)

	status, resp, err := t.command(ctx, opSelect, payload)
	if err != nil {
		return nil, err
	}
	switch status {
	case statusOK:
		return parseCardInfo(resp)
	case statusNoCard:
		return nil, proxmark3.ErrNoCardFound
	default:
		return nil, fmt.Errorf("%w: select status 0x%02X", proxmark3.ErrSelectFailed, status)
	}
}

// parseCardInfo decodes a select reply: ATQA, SAK, UID length, UID
// bytes, then whatever ATS the card answered
func parseCardInfo(resp []byte) (*proxmark3.CardInfo, error) {
	if len(resp) < 4 {
		return nil, fmt.Errorf("%w: select reply of %d bytes", proxmark3.ErrFrameCorrupted, len(resp))
	}
	uidLen := int(resp[3])
	if uidLen != iso14443a.UIDLength4 && uidLen != iso14443a.UIDLength7 {
		return nil, fmt.Errorf("%w: select reply uid of %d bytes", proxmark3.ErrFrameCorrupted, uidLen)
	}
	if len(resp) < 4+uidLen {
		return nil, fmt.Errorf("%w: select reply truncated", proxmark3.ErrFrameCorrupted)
	}

	card := &proxmark3.CardInfo{
		ATQA: [2]byte{resp[0], resp[1]},
		SAK:  resp[2],
		UID:  append([]byte(nil), resp[4:4+uidLen]...),
	}
	if ats := resp[4+uidLen:]; len(ats) > 0 {
		card.ATS = append([]byte(nil), ats...)
	}
	return card, nil
}

// FieldOff implements proxmark3.FrontEnd
func (t *Transport) FieldOff() error {
	status, _, err := t.command(nil, opFieldOff, nil)
	if err != nil {
		return err
	}
	if status != statusOK {
		return fmt.Errorf("%w: field off status 0x%02X", proxmark3.ErrLinkWrite, status)
	}
	return nil
}

// Close implements proxmark3.FrontEnd. Closing twice is harmless.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", t.portName, err)
	}
	return nil
}

func opName(op byte) string {
	switch op {
	case opListenTag:
		return "listen"
	case opReceive:
		return "receive"
	case opPrepare:
		return "prepare"
	case opTransmit:
		return "transmit"
	case opReader:
		return "reader"
	case opSelect:
		return "select"
	case opFieldOff:
		return "field off"
	default:
		return fmt.Sprintf("op 0x%02X", op)
	}
}

// Interface guard
var _ proxmark3.FrontEnd = (*Transport)(nil)
