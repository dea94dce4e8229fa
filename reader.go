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
	"context"
	"fmt"
)

// CardInfo describes a card found during a read session
type CardInfo struct {
	// UID is the complete identifier from the anticollision loop
	UID []byte
	// ATS is the answer to select, empty when the card never got RATS
	ATS []byte
	// ATQA is the answer to request
	ATQA [2]byte
	// SAK is the select acknowledge of the last cascade level
	SAK byte
}

func (c *CardInfo) String() string {
	return fmt.Sprintf("uid % X atqa %02X%02X sak 0x%02X", c.UID, c.ATQA[0], c.ATQA[1], c.SAK)
}

// Reader drives the front end as an initiator and picks up whatever
// card sits in the field
type Reader struct {
	ini Initiator
}

// NewReader builds a reader session on ini
func NewReader(ini Initiator) (*Reader, error) {
	if ini == nil {
		return nil, fmt.Errorf("%w: initiator is nil", ErrInvalidParameter)
	}
	return &Reader{ini: ini}, nil
}

// ReadOnce switches the field to reader modulation and runs one full
// select, transport activation included. Deadlines come from ctx.
func (r *Reader) ReadOnce(ctx context.Context) (*CardInfo, error) {
	if err := r.ini.ConfigureReader(); err != nil {
		return nil, fmt.Errorf("configuring reader field: %w", err)
	}

	card, err := r.ini.SelectCard(ctx, nil, true)
	if err != nil {
		return nil, fmt.Errorf("selecting card: %w", err)
	}

	Debugf("reader: found card %v", card)
	return card, nil
}
