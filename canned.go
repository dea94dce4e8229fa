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

	"github.com/AxisRay/proxmark3/internal/iso14443a"
)

// CannedIndex selects one of the precomputed anticollision responses
type CannedIndex int

const (
	// CannedATQA answers REQA and WUPA
	CannedATQA CannedIndex = iota
	// CannedUIDCascade1 answers the cascade-1 anticollision request
	CannedUIDCascade1
	// CannedSAKCascade1 acknowledges the cascade-1 select
	CannedSAKCascade1
	// CannedUIDCascade2 answers the cascade-2 anticollision request
	// of a 7-byte identifier
	CannedUIDCascade2
	// CannedSAKCascade2 acknowledges the cascade-2 select
	CannedSAKCascade2
	// CannedATS answers RATS
	CannedATS

	cannedCount
)

// Answer to request: bit frame anticollision, single or double size
// UID. ATQA and the UID frames go out without a frame check; SAK and
// ATS carry one.
var (
	atqaSingle = []byte{0x04, 0x00}
	atqaDouble = []byte{0x44, 0x00}
)

// SAK with bit 6 set: ISO/IEC 14443-4 compliant, UID complete
const sakISODEP = 0x20

// SAK with the cascade bit set: UID not complete, the reader must
// raise the cascade level (ISO/IEC 14443-3 6.5.3.4)
const sakCascade = 0x04

// Answer to select (ISO/IEC 14443-4 5.2.3):
//
//	TL    5     length including itself
//	T0    0x78  TA(1), TB(1), TC(1) present, FSCI 8 (frame size 256)
//	TA(1) 0x80  same divisor both directions, 106kb/s only
//	TB(1) 0x80  FWI 8 (~77ms), SFGT 0
//	TC(1) 0x02  CID supported, no NAD
var atsBody = []byte{0x05, 0x78, 0x80, 0x80, 0x02}

// CannedSet holds the anticollision responses built once per emulation
// session. The set is immutable after construction and owned by the
// session that built it.
type CannedSet struct {
	frames [cannedCount]*TagResponse
}

// BuildCannedSet precomputes the anticollision responses for id. A
// 4-byte identifier finishes in one cascade level, so its set carries
// no cascade-2 frames and Frame returns nil for those indices. A
// 7-byte identifier answers cascade 1 with the cascade tag and an
// incomplete-UID SAK, then completes at cascade 2.
func BuildCannedSet(id *TagIdentity, payloadCap, modulationCap int) (*CannedSet, error) {
	if len(id.UID) != iso14443a.UIDLength4 && len(id.UID) != iso14443a.UIDLength7 {
		return nil, fmt.Errorf("%w: emulation needs a %d or %d byte uid, got %d",
			ErrInvalidUID, iso14443a.UIDLength4, iso14443a.UIDLength7, len(id.UID))
	}

	type frameSpec struct {
		body []byte
		idx  CannedIndex
		crc  bool
	}

	set := &CannedSet{}
	build := []frameSpec{
		{idx: CannedATQA, body: atqaSingle},
		{idx: CannedUIDCascade1, body: uidCascade1Body(id.UID)},
		{idx: CannedSAKCascade1, body: []byte{sakISODEP}, crc: true},
		{idx: CannedATS, body: atsBody, crc: true},
	}
	if len(id.UID) == iso14443a.UIDLength7 {
		build[0].body = atqaDouble
		build[2].body = []byte{sakCascade}
		build = append(build,
			frameSpec{idx: CannedUIDCascade2, body: uidCascade2Body(id.UID)},
			frameSpec{idx: CannedSAKCascade2, body: []byte{sakISODEP}, crc: true},
		)
	}

	for _, b := range build {
		resp := NewTagResponse(payloadCap, modulationCap)
		if err := resp.Set(b.body); err != nil {
			return nil, fmt.Errorf("canned response %d: %w", b.idx, err)
		}
		if b.crc {
			if err := resp.AppendChecksum(); err != nil {
				return nil, fmt.Errorf("canned response %d: %w", b.idx, err)
			}
		}
		set.frames[b.idx] = resp
	}
	return set, nil
}

// uidCascade1Body returns the cascade-1 anticollision answer: the UID
// chunk followed by its check byte. For 7-byte identifiers the chunk
// opens with the cascade tag.
func uidCascade1Body(uid []byte) []byte {
	chunk := iso14443a.CascadeChunk(uid)
	return append(chunk[:], iso14443a.BCC(chunk[:]))
}

// uidCascade2Body returns the cascade-2 answer: the last four UID
// bytes and their check byte
func uidCascade2Body(uid []byte) []byte {
	chunk := cloneBytes(uid[3:iso14443a.UIDLength7])
	return append(chunk, iso14443a.BCC(chunk))
}

// Frame returns the precomputed response for idx, or nil when the
// identifier never reaches that cascade level
func (s *CannedSet) Frame(idx CannedIndex) *TagResponse {
	return s.frames[idx]
}

// prepare precomputes the modulation form of every frame in the set
func (s *CannedSet) prepare(tx Transceiver, modulationCap int) error {
	for idx, frame := range s.frames {
		if frame == nil {
			continue
		}
		if err := tx.PrepareModulation(frame, modulationCap); err != nil {
			return fmt.Errorf("canned response %d: %w", idx, err)
		}
	}
	return nil
}
