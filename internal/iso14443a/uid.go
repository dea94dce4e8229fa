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

// BCC returns the check byte transmitted after each 4-byte UID chunk
// during anticollision (ISO/IEC 14443-3 6.5.4): the XOR of the chunk
func BCC(chunk []byte) byte {
	var bcc byte
	for _, b := range chunk {
		bcc ^= b
	}
	return bcc
}

// CascadeChunk returns the 4 bytes a tag sends for cascade level 1:
// either the whole UID (4-byte identifiers) or the cascade tag followed
// by the first 3 UID bytes (longer identifiers)
func CascadeChunk(uid []byte) [4]byte {
	var chunk [4]byte
	if len(uid) <= UIDLength4 {
		copy(chunk[:], uid)
		return chunk
	}
	chunk[0] = CascadeTag
	copy(chunk[1:], uid[:3])
	return chunk
}
