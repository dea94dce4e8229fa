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

package uart

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/AxisRay/proxmark3"
	"github.com/AxisRay/proxmark3/em4x50"
)

// Low-frequency opcodes. Simulation ships the full tag image to the
// front end, which runs the bit-level exchange and reports how it
// went; collection runs one standard read.
const (
	opLFSimulate = 0x70 // payload: 34 LE32 words; reply: kind + seen + password
	opLFCollect  = 0x71 // no payload; reply: N*4 bytes of LE32 words
)

// Reply kinds of opLFSimulate
const (
	lfKindServed  = 0x00
	lfKindTimeout = 0x01
)

const lfSimulateReplyLen = 6

var (
	_ em4x50.Simulator = (*Transport)(nil)
	_ em4x50.Collector = (*Transport)(nil)
)

// Serve pushes dump to the front end and services one reader
// interaction. Implements em4x50.Simulator.
func (t *Transport) Serve(ctx context.Context, dump *em4x50.Dump) (em4x50.Outcome, error) {
	payload := make([]byte, 0, em4x50.NumWords*4)
	for _, word := range dump.Words {
		payload = binary.LittleEndian.AppendUint32(payload, word)
	}

	status, resp, err := t.command(ctx, opLFSimulate, payload)
	if err != nil {
		return em4x50.Outcome{}, err
	}
	switch status {
	case statusOK:
	case statusAborted:
		return em4x50.Outcome{Kind: em4x50.OutcomeAbort}, nil
	default:
		return em4x50.Outcome{}, fmt.Errorf("%w: simulate status 0x%02X", proxmark3.ErrLinkRead, status)
	}

	if len(resp) < lfSimulateReplyLen {
		return em4x50.Outcome{}, fmt.Errorf("%w: simulate reply of %d bytes", proxmark3.ErrFrameCorrupted, len(resp))
	}
	outcome := em4x50.Outcome{
		Password:     binary.LittleEndian.Uint32(resp[2:6]),
		PasswordSeen: resp[1] != 0,
	}
	if resp[0] == lfKindTimeout {
		outcome.Kind = em4x50.OutcomeTimeout
	}
	return outcome, nil
}

// ReadWords runs one standard read of the tag in the field.
// Implements em4x50.Collector.
func (t *Transport) ReadWords(ctx context.Context) ([]uint32, error) {
	status, resp, err := t.command(ctx, opLFCollect, nil)
	if err != nil {
		return nil, err
	}
	switch status {
	case statusOK:
	case statusNoCard:
		return nil, proxmark3.ErrNoCardFound
	default:
		return nil, fmt.Errorf("%w: collect status 0x%02X", proxmark3.ErrLinkRead, status)
	}

	if len(resp) == 0 || len(resp)%4 != 0 {
		return nil, fmt.Errorf("%w: collect reply of %d bytes", proxmark3.ErrFrameCorrupted, len(resp))
	}
	words := make([]uint32, 0, len(resp)/4)
	for i := 0; i < len(resp); i += 4 {
		words = append(words, binary.LittleEndian.Uint32(resp[i:i+4]))
	}
	return words, nil
}
