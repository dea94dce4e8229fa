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

import "github.com/AxisRay/proxmark3/internal/iso14443a"

// ReplyKind tells the emulation loop what to do with a classified
// reader command.
type ReplyKind int

const (
	// ReplyNone keeps the tag silent
	ReplyNone ReplyKind = iota
	// ReplyCanned transmits one of the precomputed responses
	ReplyCanned
	// ReplyDelegate hands the frame to the replay table
	ReplyDelegate
	// ReplyFixed transmits the two literal bytes in Decision.Fixed
	ReplyFixed
)

// Vendor command bytes seen from proprietary readers. These live
// outside ISO/IEC 14443-4, so they are matched as literal values;
// masking the block-number bit would fold 0xBB onto the ping byte.
const (
	cmdVendorEcho    = 0xAA
	cmdVendorEchoAlt = 0xBB
	cmdVendorPing    = 0xBA
)

// Decision is the classifier verdict for a single received frame
type Decision struct {
	// Kind selects the response path
	Kind ReplyKind
	// Canned names the precomputed frame when Kind is ReplyCanned
	Canned CannedIndex
	// PrefixLen is the number of protocol bytes echoed ahead of a
	// replayed response when Kind is ReplyDelegate
	PrefixLen int
	// Fixed holds the literal reply when Kind is ReplyFixed
	Fixed [2]byte
	// Halt tells the session to stop answering until the next wakeup
	Halt bool
	// Unknown marks a frame no rule recognized
	Unknown bool
}

// Classify maps a received reader frame to a response decision. The
// rules run in order and the first hit wins. A halted tag answers
// nothing but the short request and wakeup frames.
func Classify(cmd []byte, halted bool) Decision {
	if len(cmd) == 0 {
		return Decision{Unknown: true}
	}

	if halted {
		if len(cmd) == 1 && (cmd[0] == iso14443a.CmdRequest || cmd[0] == iso14443a.CmdWakeup) {
			return Decision{Kind: ReplyCanned, Canned: CannedATQA}
		}
		return Decision{}
	}

	switch {
	case len(cmd) == 1 && cmd[0] == iso14443a.CmdRequest:
		return Decision{Kind: ReplyCanned, Canned: CannedATQA}
	case len(cmd) == 4 && cmd[0] == iso14443a.CmdHalt:
		return Decision{Halt: true}
	case len(cmd) == 1 && cmd[0] == iso14443a.CmdWakeup:
		return Decision{Kind: ReplyCanned, Canned: CannedATQA}
	case len(cmd) == 2 && cmd[0] == iso14443a.SelCascade1 && cmd[1] == iso14443a.NVBAnticollision:
		return Decision{Kind: ReplyCanned, Canned: CannedUIDCascade1}
	case len(cmd) == 9 && cmd[0] == iso14443a.SelCascade1 && cmd[1] == iso14443a.NVBSelect:
		return Decision{Kind: ReplyCanned, Canned: CannedSAKCascade1}
	case len(cmd) == 2 && cmd[0] == iso14443a.SelCascade2 && cmd[1] == iso14443a.NVBAnticollision:
		return Decision{Kind: ReplyCanned, Canned: CannedUIDCascade2}
	case len(cmd) == 9 && cmd[0] == iso14443a.SelCascade2 && cmd[1] == iso14443a.NVBSelect:
		return Decision{Kind: ReplyCanned, Canned: CannedSAKCascade2}
	case len(cmd) == 4 && cmd[0] == iso14443a.CmdRATS:
		return Decision{Kind: ReplyCanned, Canned: CannedATS}
	}

	// Everything else dispatches on the first byte alone. I-blocks
	// arrive with either block number, with or without a CID byte.
	switch cmd[0] {
	case iso14443a.PCBIBlock, iso14443a.PCBIBlock | iso14443a.PCBBlockNum:
		return Decision{Kind: ReplyDelegate, PrefixLen: 1}
	case iso14443a.PCBIBlockCID, iso14443a.PCBIBlockCID | iso14443a.PCBBlockNum:
		return Decision{Kind: ReplyDelegate, PrefixLen: 2}
	case iso14443a.PCBChaining, iso14443a.PCBChaining | iso14443a.PCBBlockNum:
		// Chained frames are not supported, stay quiet
		return Decision{}
	case cmdVendorEcho, cmdVendorEchoAlt:
		return Decision{Kind: ReplyFixed, Fixed: [2]byte{cmd[0] ^ 0x11, 0x00}}
	case cmdVendorPing:
		return Decision{Kind: ReplyFixed, Fixed: [2]byte{0xAB, 0x01}}
	case iso14443a.PCBDeselectCID, iso14443a.PCBDeselect:
		return Decision{Kind: ReplyFixed, Fixed: [2]byte{0xCA, 0x01}}
	}

	return Decision{Unknown: true}
}
