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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustIdentity(t *testing.T, uid []byte) *TagIdentity {
	t.Helper()
	id, err := NewTagIdentity(uid)
	require.NoError(t, err)
	return id
}

func TestBuildCannedSetFrames(t *testing.T) {
	t.Parallel()
	set, err := BuildCannedSet(mustIdentity(t, DefaultUID()), 0, 0)
	require.NoError(t, err)

	tests := []struct {
		name string
		idx  CannedIndex
		want []byte
	}{
		{
			name: "ATQA goes out without a checksum",
			idx:  CannedATQA,
			want: []byte{0x04, 0x00},
		},
		{
			name: "UID frame carries the check byte, no checksum",
			idx:  CannedUIDCascade1,
			want: []byte{0xBF, 0x88, 0x69, 0x3E, 0x60},
		},
		{
			name: "SAK announces transport support with checksum",
			idx:  CannedSAKCascade1,
			want: []byte{0x20, 0xFC, 0x70},
		},
		{
			name: "ATS with checksum",
			idx:  CannedATS,
			want: []byte{0x05, 0x78, 0x80, 0x80, 0x02, 0xAD, 0x3A},
		},
	}

	for _, tt := range tests {
		tt := tt
		// capture loop variable
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, set.Frame(tt.idx).Bytes())
		})
	}
}

func TestBuildCannedSetUIDChanges(t *testing.T) {
	t.Parallel()
	set, err := BuildCannedSet(mustIdentity(t, []byte{0xC0, 0x88, 0x69, 0x3E}), 0, 0)
	require.NoError(t, err)

	// BCC folds over the new first byte
	assert.Equal(t, []byte{0xC0, 0x88, 0x69, 0x3E, 0x1F}, set.Frame(CannedUIDCascade1).Bytes())
	// ATQA and SAK do not depend on the identifier
	assert.Equal(t, []byte{0x04, 0x00}, set.Frame(CannedATQA).Bytes())
	assert.Equal(t, []byte{0x20, 0xFC, 0x70}, set.Frame(CannedSAKCascade1).Bytes())
	// A 4-byte identifier finishes at cascade 1
	assert.Nil(t, set.Frame(CannedUIDCascade2))
	assert.Nil(t, set.Frame(CannedSAKCascade2))
}

func TestBuildCannedSetCascadeFrames(t *testing.T) {
	t.Parallel()
	set, err := BuildCannedSet(mustIdentity(t, []byte{0x04, 0x68, 0x95, 0x71, 0xFA, 0x5C, 0x64}), 0, 0)
	require.NoError(t, err)

	tests := []struct {
		name string
		idx  CannedIndex
		want []byte
	}{
		{
			name: "ATQA announces a double size UID",
			idx:  CannedATQA,
			want: []byte{0x44, 0x00},
		},
		{
			name: "cascade 1 opens with the cascade tag",
			idx:  CannedUIDCascade1,
			want: []byte{0x88, 0x04, 0x68, 0x95, 0x71},
		},
		{
			name: "cascade 1 SAK signals an incomplete UID",
			idx:  CannedSAKCascade1,
			want: []byte{0x04, 0xDA, 0x17},
		},
		{
			name: "cascade 2 carries the remaining UID bytes",
			idx:  CannedUIDCascade2,
			want: []byte{0x71, 0xFA, 0x5C, 0x64, 0xB3},
		},
		{
			name: "cascade 2 SAK completes with transport support",
			idx:  CannedSAKCascade2,
			want: []byte{0x20, 0xFC, 0x70},
		},
		{
			name: "ATS does not depend on the identifier",
			idx:  CannedATS,
			want: []byte{0x05, 0x78, 0x80, 0x80, 0x02, 0xAD, 0x3A},
		},
	}

	for _, tt := range tests {
		tt := tt
		// capture loop variable
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, set.Frame(tt.idx).Bytes())
		})
	}
}

func TestBuildCannedSetRejectsOddUIDLength(t *testing.T) {
	t.Parallel()
	id := &TagIdentity{UID: []byte{0x04, 0x01, 0x02, 0x03, 0x04}}

	_, err := BuildCannedSet(id, 0, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidUID)
}

func TestBuildCannedSetCapacityTooSmall(t *testing.T) {
	t.Parallel()
	// Four bytes hold the ATQA but not the five byte UID frame
	_, err := BuildCannedSet(mustIdentity(t, DefaultUID()), 4, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBufferOverflow)
}

func TestCannedSetPrepare(t *testing.T) {
	t.Parallel()
	set, err := BuildCannedSet(mustIdentity(t, []byte{0x04, 0x68, 0x95, 0x71, 0xFA, 0x5C, 0x64}), 0, 0)
	require.NoError(t, err)

	mock := NewMockTransceiver()
	require.NoError(t, set.prepare(mock, DefaultModulationCapacity))

	for idx := CannedIndex(0); idx < cannedCount; idx++ {
		_, ok := set.Frame(idx).Modulation()
		assert.True(t, ok, "frame %d not prepared", idx)
	}
}

func TestCannedSetPrepareSkipsAbsentFrames(t *testing.T) {
	t.Parallel()
	set, err := BuildCannedSet(mustIdentity(t, DefaultUID()), 0, 0)
	require.NoError(t, err)

	mock := NewMockTransceiver()
	require.NoError(t, set.prepare(mock, DefaultModulationCapacity))

	assert.Nil(t, set.Frame(CannedUIDCascade2))
	_, ok := set.Frame(CannedATS).Modulation()
	assert.True(t, ok)
}

func TestCannedSetPrepareFailure(t *testing.T) {
	t.Parallel()
	set, err := BuildCannedSet(mustIdentity(t, DefaultUID()), 0, 0)
	require.NoError(t, err)

	mock := NewMockTransceiver()
	mock.FailPrepare(2, ErrModulationFailed)

	err = set.prepare(mock, DefaultModulationCapacity)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModulationFailed)
}
