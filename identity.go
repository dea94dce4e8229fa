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

// DefaultUID returns the identifier emulation starts with before a card
// has been read
func DefaultUID() []byte {
	return []byte{0xBF, 0x88, 0x69, 0x3E}
}

// TagIdentity is the identity an emulation session presents: the UID
// answered during anticollision plus the counter and tearing state of
// the emulated card. The mode loop owns it across sessions; a session
// never mutates it.
type TagIdentity struct {
	UID      []byte
	Counters [3]uint32
	Tearing  [3]byte
	Pages    uint8
}

// NewTagIdentity builds an identity around uid with zeroed counters and
// blank tearing markers
func NewTagIdentity(uid []byte) (*TagIdentity, error) {
	id := &TagIdentity{
		UID:     append([]byte(nil), uid...),
		Tearing: [3]byte{0xBD, 0xBD, 0xBD},
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return id, nil
}

// Validate checks the identifier length
func (t *TagIdentity) Validate() error {
	switch len(t.UID) {
	case iso14443a.UIDLength4, iso14443a.UIDLength7:
		return nil
	default:
		return fmt.Errorf("%w: %d bytes", ErrInvalidUID, len(t.UID))
	}
}

// String formats the identity for logs
func (t *TagIdentity) String() string {
	return fmt.Sprintf("% X", t.UID)
}
