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

package iso14443a

// Checksum computes the CRC_A frame check over buf
// (ISO/IEC 14443-3 6.2.4: preset 0x6363, reflected polynomial 0x8408)
func Checksum(buf []byte) uint16 {
	crc := uint32(0x6363)
	for _, b := range buf {
		b ^= byte(crc)
		b ^= b << 4
		bw := uint32(b)
		crc = crc>>8 ^ bw<<8 ^ bw<<3 ^ bw>>4
	}
	return uint16(crc)
}

// AppendChecksum appends the CRC_A of buf to buf, low byte first as it
// appears on the wire
func AppendChecksum(buf []byte) []byte {
	crc := Checksum(buf)
	return append(buf, byte(crc), byte(crc>>8))
}
