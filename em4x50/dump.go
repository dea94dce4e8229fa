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

// Package em4x50 is the low-frequency standalone: it simulates an
// EM4x50 tag from a dump held in flash and, flipped into collect mode,
// logs the word contents of tags brought near the antenna.
package em4x50

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// An EM4x50 tag stores 34 words of 32 bits
const (
	// NumWords is the full word count of a tag
	NumWords = 34
	// WordPassword is the write/read password word
	WordPassword = 0
	// WordSerial is the factory serial number
	WordSerial = 32
	// WordDeviceID is the factory device identification
	WordDeviceID = 33
)

// ErrDumpInvalid indicates dump text that does not describe a tag
var ErrDumpInvalid = errors.New("invalid em4x50 dump")

// Dump is one tag image in word order
type Dump struct {
	Words [NumWords]uint32
}

// ParseDump reads the .eml text form: one 8-digit hex word per line,
// blank lines tolerated. Anything else, or a wrong word count, is
// ErrDumpInvalid.
func ParseDump(data []byte) (*Dump, error) {
	var dump Dump
	count := 0
	for lineNo, line := range bytes.Split(data, []byte("\n")) {
		text := strings.TrimSpace(string(line))
		if text == "" {
			continue
		}
		if count >= NumWords {
			return nil, fmt.Errorf("%w: more than %d words", ErrDumpInvalid, NumWords)
		}

		word, err := strconv.ParseUint(text, 16, 32)
		if err != nil || len(text) != 8 {
			return nil, fmt.Errorf("%w: line %d: %q", ErrDumpInvalid, lineNo+1, text)
		}
		dump.Words[count] = uint32(word)
		count++
	}
	if count != NumWords {
		return nil, fmt.Errorf("%w: %d words, want %d", ErrDumpInvalid, count, NumWords)
	}
	return &dump, nil
}

// Marshal renders the dump back into its .eml text form
func (d *Dump) Marshal() []byte {
	var buf bytes.Buffer
	for _, word := range d.Words {
		fmt.Fprintf(&buf, "%08x\n", word)
	}
	return buf.Bytes()
}

// Valid reports whether the image plausibly came from a tag: the
// factory words must differ, a blank or repeated pair means garbage
func (d *Dump) Valid() bool {
	return d.Words[WordSerial] != d.Words[WordDeviceID]
}

// Password returns the password word
func (d *Dump) Password() uint32 {
	return d.Words[WordPassword]
}

// SetPassword replaces the password word
func (d *Dump) SetPassword(pw uint32) {
	d.Words[WordPassword] = pw
}
