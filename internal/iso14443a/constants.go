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

// Short-frame and control commands (ISO/IEC 14443-3)
const (
	CmdRequest = 0x26 // REQA, 7-bit short frame
	CmdWakeup  = 0x52 // WUPA, also wakes halted tags
	CmdHalt    = 0x50 // HLTA, first byte of the 4-byte halt frame
	CmdRATS    = 0xE0 // request for answer to select (ISO/IEC 14443-4)
)

// Anticollision/select frame bytes (ISO/IEC 14443-3 6.5)
const (
	SelCascade1 = 0x93 // cascade level 1
	SelCascade2 = 0x95 // cascade level 2
	SelCascade3 = 0x97 // cascade level 3

	// Second byte of a select frame: number of valid bits
	NVBAnticollision = 0x20 // no UID bits yet, tag answers with full chunk
	NVBSelect        = 0x70 // full UID chunk supplied, select the tag
)

// ISO-DEP block PCBs (ISO/IEC 14443-4 7.1). The low bit of I-blocks is
// the block number and toggles between consecutive blocks.
const (
	PCBBlockNum = 0x01

	PCBIBlock      = 0x02 // I-block, no CID
	PCBIBlockCID   = 0x0A // I-block, CID byte follows the PCB
	PCBChaining    = 0x1A // I-block with the chaining bit set
	PCBDeselect    = 0xC2 // S-block DESELECT
	PCBDeselectCID = 0xCA // S-block DESELECT carrying a CID
)

// CascadeTag prefixes the first UID chunk of identifiers longer than
// 4 bytes during anticollision.
const CascadeTag = 0x88

// UID lengths in bytes
const (
	UIDLength4 = 4
	UIDLength7 = 7
)

// Frame size limits
const (
	MaxCommandLength = 260 // PCB + CID + 255 INF + CRC, rounded up
	CRCLength        = 2
)
