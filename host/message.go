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

// Package host connects the engine to a controlling computer. The
// standalone loop only needs two things from it: an asynchronous stop
// request and a single status report on the way out. The package also
// carries a websocket monitor that streams session events to attached
// browsers.
package host

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Message commands. The link is command/response-free: either side
// sends what it has, nobody waits.
const (
	// CmdStop asks the engine to leave standalone mode at the next
	// loop boundary
	CmdStop uint16 = 0x0001
	// CmdPing checks the link is alive; the device echoes it
	CmdPing uint16 = 0x0002
	// CmdStatus carries the final session status byte, device to host
	CmdStatus uint16 = 0x0003
)

// Message is one frame on the host link
type Message struct {
	Data []byte `cbor:"2,keyasint,omitempty"`
	Cmd  uint16 `cbor:"1,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("host: building cbor encoder: %v", err))
	}
	decMode, err = cbor.DecOptions{
		MaxArrayElements: 1024,
		MaxMapPairs:      1024,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("host: building cbor decoder: %v", err))
	}
}
