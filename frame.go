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

// Buffer sizing for per-command responses. The payload buffer holds the
// response bytes, the modulation buffer the precomputed low-level form.
const (
	DefaultResponseCapacity   = 64
	DefaultModulationCapacity = 1024
)

// TagResponse is one outgoing frame. The payload and modulation buffers
// have fixed capacities; writing past either is an error, never a
// reallocation. Length always counts the meaningful bytes and nothing
// past it is ever read.
type TagResponse struct {
	payload    []byte
	modulation []byte
	n          int
	modN       int
}

// NewTagResponse allocates a response with the given buffer capacities.
// Non-positive capacities fall back to the defaults.
func NewTagResponse(payloadCap, modulationCap int) *TagResponse {
	if payloadCap <= 0 {
		payloadCap = DefaultResponseCapacity
	}
	if modulationCap <= 0 {
		modulationCap = DefaultModulationCapacity
	}
	return &TagResponse{
		payload:    make([]byte, payloadCap),
		modulation: make([]byte, modulationCap),
	}
}

// Reset clears both lengths and zeroes the payload so a shorter reply
// never leaks bytes from a longer predecessor
func (r *TagResponse) Reset() {
	for i := range r.payload[:r.n] {
		r.payload[i] = 0
	}
	r.n = 0
	r.modN = 0
}

// Set copies b into the payload buffer
func (r *TagResponse) Set(b []byte) error {
	if len(b) > len(r.payload) {
		return fmt.Errorf("%w: %d bytes into %d", ErrBufferOverflow, len(b), len(r.payload))
	}
	copy(r.payload, b)
	r.n = len(b)
	return nil
}

// Append adds bytes after the current payload
func (r *TagResponse) Append(b ...byte) error {
	if r.n+len(b) > len(r.payload) {
		return fmt.Errorf("%w: %d bytes into %d", ErrBufferOverflow, r.n+len(b), len(r.payload))
	}
	copy(r.payload[r.n:], b)
	r.n += len(b)
	return nil
}

// AppendChecksum appends the CRC_A frame check over the current payload
func (r *TagResponse) AppendChecksum() error {
	if r.n+iso14443a.CRCLength > len(r.payload) {
		return fmt.Errorf("%w: checksum needs %d bytes", ErrBufferOverflow, r.n+iso14443a.CRCLength)
	}
	crc := iso14443a.Checksum(r.payload[:r.n])
	r.payload[r.n] = byte(crc)
	r.payload[r.n+1] = byte(crc >> 8)
	r.n += iso14443a.CRCLength
	return nil
}

// Len returns the payload length
func (r *TagResponse) Len() int {
	return r.n
}

// Bytes returns the payload view. The slice aliases the internal buffer
// and is only valid until the next Reset or Set.
func (r *TagResponse) Bytes() []byte {
	return r.payload[:r.n]
}

// Capacity returns the payload buffer capacity
func (r *TagResponse) Capacity() int {
	return len(r.payload)
}

// SetModulation copies the precomputed modulation form into the
// modulation buffer. Front-end implementations call this from
// PrepareModulation.
func (r *TagResponse) SetModulation(b []byte) error {
	if len(b) > len(r.modulation) {
		return fmt.Errorf("%w: %d bytes into %d", ErrModulationFailed, len(b), len(r.modulation))
	}
	copy(r.modulation, b)
	r.modN = len(b)
	return nil
}

// Modulation returns the prepared modulation view and whether a
// preparation has happened since the last Reset
func (r *TagResponse) Modulation() ([]byte, bool) {
	if r.modN == 0 {
		return nil, false
	}
	return r.modulation[:r.modN], true
}

// ModulationCapacity returns the modulation buffer capacity
func (r *TagResponse) ModulationCapacity() int {
	return len(r.modulation)
}
