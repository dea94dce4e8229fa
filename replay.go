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
	"bytes"
	"fmt"
)

// ReplayRule pairs an APDU pattern with the response captured from a
// live card. Pattern is compared against the received frame after the
// protocol prefix; Reply goes back with the prefix echoed in front.
type ReplayRule struct {
	Pattern []byte
	Reply   []byte
}

// ReplayTable is an ordered rule list, first match wins
type ReplayTable []ReplayRule

// SELECT MF (file id 3F00)
var apduSelectMaster = []byte{0x00, 0xA4, 0x00, 0x00, 0x02, 0x3F, 0x00}

// SELECT by DF name "NC.eCard.DDF01"
var apduSelectApp = []byte{
	0x00, 0xA4, 0x04, 0x00, 0x0E,
	0x4E, 0x43, 0x2E, 0x65, 0x43, 0x61, 0x72, 0x64, 0x2E, 0x44, 0x44, 0x46, 0x30, 0x31,
}

// READ BINARY, SFI 0x15, 30 bytes
var apduReadProfile = []byte{0x00, 0xB0, 0x95, 0x00, 0x1E}

// FCI naming the payment system directory "1PAY.SYS.DDF01"
var fciPaymentDir = []byte{
	0x6F, 0x15,
	0x84, 0x0E, 0x31, 0x50, 0x41, 0x59, 0x2E, 0x53, 0x59, 0x53, 0x2E, 0x44, 0x44, 0x46, 0x30, 0x31,
	0xA5, 0x03, 0x08, 0x01, 0x01,
	0x90, 0x00,
}

// FCI for the campus card application with the cardholder profile
// embedded in the proprietary template
var fciCampusApp = []byte{
	0x6F, 0x37,
	0x84, 0x0E, 0x4E, 0x43, 0x2E, 0x65, 0x43, 0x61, 0x72, 0x64, 0x2E, 0x44, 0x44, 0x46, 0x30, 0x31,
	0xA5, 0x25,
	0x9F, 0x08, 0x01, 0x02,
	0x9F, 0x0C, 0x1E,
	0x6E, 0x65, 0x77, 0x63, 0x61, 0x70, 0x65, 0x63, 0x00, 0x05,
	0xAA, 0x00, 0x00, 0x01, 0x88, 0x0A, 0x10, 0x00, 0x1A, 0x34,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF8, 0x6A,
	0x90, 0x00,
}

// Raw profile record as READ BINARY returns it
var campusProfile = []byte{
	0x6E, 0x65, 0x77, 0x63, 0x61, 0x70, 0x65, 0x63, 0x00, 0x05,
	0xAA, 0x00, 0x00, 0x01, 0x88, 0x0A, 0x10, 0x00, 0x1A, 0x34,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF8, 0x6F,
	0x90, 0x00,
}

// DefaultRules returns the transaction captured from a campus payment
// card: master file select, application select, profile read. Each
// call returns fresh copies so callers may modify the rules.
func DefaultRules() ReplayTable {
	capture := []struct{ pattern, reply []byte }{
		{apduSelectMaster, fciPaymentDir},
		{apduSelectApp, fciCampusApp},
		{apduReadProfile, campusProfile},
	}

	rules := make(ReplayTable, 0, len(capture))
	for _, c := range capture {
		rules = append(rules, ReplayRule{
			Pattern: cloneBytes(c.pattern),
			Reply:   cloneBytes(c.reply),
		})
	}
	return rules
}

// clone deep-copies the table so callers and sessions never share
// rule storage
func (t ReplayTable) clone() ReplayTable {
	if t == nil {
		return nil
	}
	out := make(ReplayTable, len(t))
	for i, rule := range t {
		out[i] = ReplayRule{
			Pattern: cloneBytes(rule.Pattern),
			Reply:   cloneBytes(rule.Reply),
		}
	}
	return out
}

func (t ReplayTable) validate() error {
	for i, rule := range t {
		if len(rule.Pattern) == 0 {
			return fmt.Errorf("%w: rule %d has an empty pattern", ErrInvalidParameter, i)
		}
		if len(rule.Reply) == 0 {
			return fmt.Errorf("%w: rule %d has an empty reply", ErrInvalidParameter, i)
		}
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Match scans the table for a rule whose pattern follows the protocol
// prefix of recv. On a hit, dst holds the echoed prefix and the rule
// reply and Match reports true. Frames shorter than prefix plus
// pattern skip the rule rather than read past the end. A matched reply
// that does not fit dst returns the overflow error.
func (t ReplayTable) Match(dst *TagResponse, prefixLen int, recv []byte) (bool, error) {
	for _, rule := range t {
		if len(recv) < prefixLen+len(rule.Pattern) {
			continue
		}
		if !bytes.Equal(recv[prefixLen:prefixLen+len(rule.Pattern)], rule.Pattern) {
			continue
		}

		dst.Reset()
		if err := dst.Set(recv[:prefixLen]); err != nil {
			return false, err
		}
		if err := dst.Append(rule.Reply...); err != nil {
			return false, err
		}
		return true, nil
	}

	dst.Reset()
	return false, nil
}
