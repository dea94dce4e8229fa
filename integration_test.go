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

package proxmark3_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/AxisRay/proxmark3"
	"github.com/AxisRay/proxmark3/internal/iso14443a"
	itesting "github.com/AxisRay/proxmark3/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crcOK reports whether the frame ends in a valid CRC_A over the rest
func crcOK(frame []byte) bool {
	if len(frame) < iso14443a.CRCLength {
		return false
	}
	body := frame[:len(frame)-iso14443a.CRCLength]
	crc := iso14443a.Checksum(body)
	return frame[len(frame)-2] == byte(crc) && frame[len(frame)-1] == byte(crc>>8)
}

// iBlock wraps an APDU in an I-block frame with the given PCB prefix
func iBlock(prefix []byte, apdu []byte) []byte {
	frame := append(append([]byte(nil), prefix...), apdu...)
	return iso14443a.AppendChecksum(frame)
}

// TestCampusCardTransaction replays the full captured transaction
// against the emulation engine: activation, master file select,
// application select, profile read, then the proprietary vendor
// frames a campus terminal sends before walking away.
func TestCampusCardTransaction(t *testing.T) {
	t.Parallel()

	selectMF := iBlock([]byte{0x02}, []byte{0x00, 0xA4, 0x00, 0x00, 0x02, 0x3F, 0x00})
	selectApp := iBlock([]byte{0x03}, append([]byte{0x00, 0xA4, 0x04, 0x00, 0x0E},
		[]byte("NC.eCard.DDF01")...))
	readProfile := iBlock([]byte{0x0A, 0x00}, []byte{0x00, 0xB0, 0x95, 0x00, 0x1E})
	vendorEcho := []byte{0xAA}
	vendorPing := []byte{0xBA}
	deselect := iso14443a.AppendChecksum([]byte{iso14443a.PCBDeselect})

	reader := itesting.NewVirtualReader(
		selectMF, selectApp, readProfile, vendorEcho, vendorPing, deselect,
	)

	emulator, err := proxmark3.NewEmulator(reader, proxmark3.WithStartupDelay(0))
	require.NoError(t, err)

	err = emulator.Run(context.Background())
	require.ErrorIs(t, err, proxmark3.ErrLinkAborted)
	require.NoError(t, reader.Err())

	log := reader.Exchanges()
	require.Len(t, log, 10, "4 activation frames plus 6 exchanges")

	// Master file select names the payment system directory
	mf := log[4].Response
	assert.Equal(t, byte(0x02), mf[0], "response echoes the I-block PCB")
	assert.True(t, bytes.Contains(mf, []byte("1PAY.SYS.DDF01")))
	assert.True(t, crcOK(mf))

	// Application select carries the DF name and the embedded profile
	app := log[5].Response
	assert.Equal(t, byte(0x03), app[0])
	assert.True(t, bytes.Contains(app, []byte("NC.eCard.DDF01")))
	assert.True(t, bytes.Contains(app, []byte("newcapec")))
	assert.True(t, crcOK(app))

	// Profile read echoes PCB and CID ahead of the record
	profile := log[6].Response
	assert.Equal(t, []byte{0x0A, 0x00}, profile[:2])
	assert.True(t, bytes.Contains(profile, []byte("newcapec")))
	assert.True(t, crcOK(profile))

	// Vendor echo answers the command byte with bit 4 and 0 flipped
	echo := log[7].Response
	assert.Equal(t, []byte{0xBB, 0x00}, echo[:2])
	assert.True(t, crcOK(echo))

	// Vendor ping and deselect draw their fixed acknowledgements
	assert.Equal(t, []byte{0xAB, 0x01}, log[8].Response[:2])
	assert.Equal(t, []byte{0xCA, 0x01}, log[9].Response[:2])
}

// TestUnknownCommandsStaySilent runs a session where the reader sends
// garbage after activation; the tag answers activation and nothing
// else.
func TestUnknownCommandsStaySilent(t *testing.T) {
	t.Parallel()

	reader := itesting.NewVirtualReader(
		[]byte{0xF7, 0x01, 0x02}, // no rule matches
		iBlock([]byte{0x02}, []byte{0x00, 0xA4, 0x00, 0x00, 0x02, 0x11, 0x22}), // unknown file
		[]byte{0x95, 0x20}, // a 4-byte UID has no cascade-2 chunk
	)

	emulator, err := proxmark3.NewEmulator(reader, proxmark3.WithStartupDelay(0))
	require.NoError(t, err)

	err = emulator.Run(context.Background())
	require.ErrorIs(t, err, proxmark3.ErrLinkAborted)

	log := reader.Exchanges()
	assert.Len(t, log, 4, "activation only; nothing else drew a response")
}

// TestEmulatorAdoptsConfiguredUID checks that the UID handed to the
// engine is the one presented during anticollision, down to the check
// bytes, and that a 7-byte identifier walks both cascade levels.
func TestEmulatorAdoptsConfiguredUID(t *testing.T) {
	t.Parallel()

	uid := []byte{0x04, 0x68, 0x95, 0x71, 0xFA, 0x5C, 0x64}
	reader := itesting.NewVirtualReader()

	emulator, err := proxmark3.NewEmulator(reader,
		proxmark3.WithStartupDelay(0), proxmark3.WithUID(uid))
	require.NoError(t, err)

	err = emulator.Run(context.Background())
	require.ErrorIs(t, err, proxmark3.ErrLinkAborted)
	require.NoError(t, reader.Err())

	log := reader.Exchanges()
	require.Len(t, log, 6, "double size UID activates in two cascade levels")

	// ATQA announces a double size UID
	assert.Equal(t, []byte{0x44, 0x00}, log[0].Response)

	// Cascade 1 answers with the cascade tag and the first three bytes
	chunk := log[1].Response
	require.Len(t, chunk, 5)
	assert.Equal(t, byte(iso14443a.CascadeTag), chunk[0])
	assert.Equal(t, uid[:3], chunk[1:4])
	assert.Equal(t, iso14443a.BCC(chunk[:4]), chunk[4])

	// The cascade 1 SAK flags the incomplete UID
	sak1 := log[2].Response
	require.NotEmpty(t, sak1)
	assert.Equal(t, byte(0x04), sak1[0])
	assert.True(t, crcOK(sak1))

	// Cascade 2 carries the remaining four bytes
	chunk2 := log[3].Response
	require.Len(t, chunk2, 5)
	assert.Equal(t, uid[3:], chunk2[:4])
	assert.Equal(t, iso14443a.BCC(chunk2[:4]), chunk2[4])

	// The cascade 2 SAK completes selection, then RATS draws the ATS
	sak2 := log[4].Response
	require.NotEmpty(t, sak2)
	assert.Equal(t, byte(0x20), sak2[0])
	assert.True(t, crcOK(log[5].Response))
}
