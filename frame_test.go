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

func TestTagResponseDefaults(t *testing.T) {
	t.Parallel()
	resp := NewTagResponse(0, 0)
	assert.Equal(t, DefaultResponseCapacity, resp.Capacity())
	assert.Equal(t, DefaultModulationCapacity, resp.ModulationCapacity())
	assert.Zero(t, resp.Len())
}

func TestTagResponseSetAndAppend(t *testing.T) {
	t.Parallel()
	resp := NewTagResponse(8, 8)
	require.NoError(t, resp.Set([]byte{0x02, 0x90}))
	require.NoError(t, resp.Append(0x00))
	assert.Equal(t, []byte{0x02, 0x90, 0x00}, resp.Bytes())
	assert.Equal(t, 3, resp.Len())
}

func TestTagResponseOverflow(t *testing.T) {
	t.Parallel()
	resp := NewTagResponse(4, 4)
	assert.ErrorIs(t, resp.Set([]byte{1, 2, 3, 4, 5}), ErrBufferOverflow)

	require.NoError(t, resp.Set([]byte{1, 2, 3}))
	assert.ErrorIs(t, resp.Append(4, 5), ErrBufferOverflow)

	// No room for the two checksum bytes either
	require.NoError(t, resp.Append(4))
	assert.ErrorIs(t, resp.AppendChecksum(), ErrBufferOverflow)
}

func TestTagResponseChecksum(t *testing.T) {
	t.Parallel()
	resp := NewTagResponse(8, 8)
	// Halt frame: 50 00 57 CD is the reference vector
	require.NoError(t, resp.Set([]byte{0x50, 0x00}))
	require.NoError(t, resp.AppendChecksum())
	assert.Equal(t, []byte{0x50, 0x00, 0x57, 0xCD}, resp.Bytes())
}

func TestTagResponseResetScrubsPayload(t *testing.T) {
	t.Parallel()
	resp := NewTagResponse(8, 8)
	require.NoError(t, resp.Set([]byte{0xAA, 0xBB, 0xCC}))
	require.NoError(t, resp.SetModulation([]byte{0x01}))
	resp.Reset()

	assert.Zero(t, resp.Len())
	_, prepared := resp.Modulation()
	assert.False(t, prepared, "reset drops the prepared form")

	// A short write after reset must not resurrect old bytes
	require.NoError(t, resp.Append(0x11))
	require.NoError(t, resp.Append(0x22, 0x33))
	assert.Equal(t, []byte{0x11, 0x22, 0x33}, resp.Bytes())
}

func TestTagResponseModulation(t *testing.T) {
	t.Parallel()
	resp := NewTagResponse(8, 4)
	_, prepared := resp.Modulation()
	assert.False(t, prepared)

	require.NoError(t, resp.SetModulation([]byte{0x0F, 0xF0}))
	mod, prepared := resp.Modulation()
	assert.True(t, prepared)
	assert.Equal(t, []byte{0x0F, 0xF0}, mod)

	assert.ErrorIs(t, resp.SetModulation(make([]byte, 5)), ErrModulationFailed)
}
