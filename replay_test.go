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

func TestDefaultRules(t *testing.T) {
	t.Parallel()
	rules := DefaultRules()
	require.Len(t, rules, 3)

	assert.Equal(t, []byte{0x00, 0xA4, 0x00, 0x00, 0x02, 0x3F, 0x00}, rules[0].Pattern)
	assert.Len(t, rules[0].Reply, 25)
	assert.Len(t, rules[1].Pattern, 19)
	assert.Len(t, rules[1].Reply, 59)
	assert.Equal(t, []byte{0x00, 0xB0, 0x95, 0x00, 0x1E}, rules[2].Pattern)
	assert.Len(t, rules[2].Reply, 32)

	// Every reply ends in a success status word
	for i, rule := range rules {
		n := len(rule.Reply)
		assert.Equal(t, []byte{0x90, 0x00}, rule.Reply[n-2:], "rule %d", i)
	}
}

func TestDefaultRulesReturnsCopies(t *testing.T) {
	t.Parallel()
	first := DefaultRules()
	first[0].Pattern[0] = 0xFF
	first[0].Reply[0] = 0xFF

	second := DefaultRules()
	assert.Equal(t, byte(0x00), second[0].Pattern[0])
	assert.Equal(t, byte(0x6F), second[0].Reply[0])
}

func TestReplayMatch(t *testing.T) {
	t.Parallel()
	rules := DefaultRules()

	tests := []struct {
		name      string
		recv      []byte
		want      []byte
		prefixLen int
		matched   bool
	}{
		{
			name:      "master file select behind one prefix byte",
			recv:      append([]byte{0x02}, rules[0].Pattern...),
			prefixLen: 1,
			matched:   true,
			want:      append([]byte{0x02}, rules[0].Reply...),
		},
		{
			name:      "prefix bytes echo as received",
			recv:      append([]byte{0x0A, 0xCD}, rules[0].Pattern...),
			prefixLen: 2,
			matched:   true,
			want:      append([]byte{0x0A, 0xCD}, rules[0].Reply...),
		},
		{
			name:      "trailing bytes do not spoil the match",
			recv:      append(append([]byte{0x03}, rules[2].Pattern...), 0xFF, 0xFF),
			prefixLen: 1,
			matched:   true,
			want:      append([]byte{0x03}, rules[2].Reply...),
		},
		{
			name:      "profile read",
			recv:      append([]byte{0x02}, rules[2].Pattern...),
			prefixLen: 1,
			matched:   true,
			want:      append([]byte{0x02}, rules[2].Reply...),
		},
		{
			name:      "bare apdu without its prefix byte misses",
			recv:      cloneBytes(rules[0].Pattern),
			prefixLen: 1,
			matched:   false,
		},
		{
			name:      "one byte short of the pattern skips the rule",
			recv:      append([]byte{0x02}, rules[0].Pattern[:6]...),
			prefixLen: 1,
			matched:   false,
		},
		{
			name:      "unknown apdu",
			recv:      []byte{0x02, 0x00, 0xA4, 0x04, 0x00, 0x02, 0x10, 0x01},
			prefixLen: 1,
			matched:   false,
		},
		{
			name:      "prefix alone",
			recv:      []byte{0x02},
			prefixLen: 1,
			matched:   false,
		},
	}

	for _, tt := range tests {
		tt := tt
		// capture loop variable
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dst := NewTagResponse(0, 0)
			matched, err := rules.Match(dst, tt.prefixLen, tt.recv)
			require.NoError(t, err)
			assert.Equal(t, tt.matched, matched)
			if tt.matched {
				assert.Equal(t, tt.want, dst.Bytes())
			} else {
				assert.Zero(t, dst.Len())
			}
		})
	}
}

func TestReplayMatchOverflow(t *testing.T) {
	t.Parallel()
	rules := DefaultRules()
	dst := NewTagResponse(8, 0)

	recv := append([]byte{0x02}, rules[0].Pattern...)
	matched, err := rules.Match(dst, 1, recv)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrBufferOverflow)
	assert.False(t, matched)
}

func TestReplayMatchEmptyTable(t *testing.T) {
	t.Parallel()
	dst := NewTagResponse(0, 0)

	matched, err := ReplayTable{}.Match(dst, 1, []byte{0x02, 0x00, 0xA4})
	require.NoError(t, err)
	assert.False(t, matched)
	assert.Zero(t, dst.Len())
}
