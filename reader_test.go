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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReaderNilInitiator(t *testing.T) {
	t.Parallel()
	_, err := NewReader(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestReadOnce(t *testing.T) {
	t.Parallel()
	mock := NewMockTransceiver()
	mock.SetCard(&CardInfo{
		UID:  []byte{0xBF, 0x88, 0x69, 0x3E},
		ATQA: [2]byte{0x04, 0x00},
		SAK:  0x20,
		ATS:  []byte{0x05, 0x78, 0x80, 0x80, 0x02},
	})

	reader, err := NewReader(mock)
	require.NoError(t, err)

	card, err := reader.ReadOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0xBF, 0x88, 0x69, 0x3E}, card.UID)
	assert.Equal(t, byte(0x20), card.SAK)

	// The returned card owns its slices
	card.UID[0] = 0x00
	again, err := reader.ReadOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{0xBF, 0x88, 0x69, 0x3E}, again.UID)
}

func TestReadOnceNoCard(t *testing.T) {
	t.Parallel()
	reader, err := NewReader(NewMockTransceiver())
	require.NoError(t, err)

	_, err = reader.ReadOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoCardFound)
}

func TestReadOnceSelectError(t *testing.T) {
	t.Parallel()
	mock := NewMockTransceiver()
	mock.SetSelectError(ErrLinkTimeout)

	reader, err := NewReader(mock)
	require.NoError(t, err)

	_, err = reader.ReadOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLinkTimeout)
}

func TestReadOnceHonorsContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := NewMockTransceiver()
	mock.SetCard(&CardInfo{UID: []byte{0x01, 0x02, 0x03, 0x04}})

	reader, err := NewReader(mock)
	require.NoError(t, err)

	_, err = reader.ReadOnce(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCardInfoString(t *testing.T) {
	t.Parallel()
	card := &CardInfo{
		UID:  []byte{0xBF, 0x88, 0x69, 0x3E},
		ATQA: [2]byte{0x04, 0x00},
		SAK:  0x20,
	}
	assert.Equal(t, "uid BF 88 69 3E atqa 0400 sak 0x20", card.String())
}
