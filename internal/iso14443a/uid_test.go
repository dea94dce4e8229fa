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

package iso14443a

import "testing"

func TestBCC(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		chunk []byte
		want  byte
	}{
		{
			name:  "default identifier",
			chunk: []byte{0xBF, 0x88, 0x69, 0x3E},
			want:  0x60,
		},
		{
			name:  "zero chunk",
			chunk: []byte{0x00, 0x00, 0x00, 0x00},
			want:  0x00,
		},
		{
			name:  "self-cancelling pair",
			chunk: []byte{0xAA, 0xAA, 0x12, 0x12},
			want:  0x00,
		},
	}

	for _, tt := range tests {
		tt := tt
		// capture loop variable
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := BCC(tt.chunk); got != tt.want {
				t.Errorf("BCC() = %#02x, want %#02x", got, tt.want)
			}
		})
	}
}

func TestCascadeChunk(t *testing.T) {
	t.Parallel()

	t.Run("4 byte uid passes through", func(t *testing.T) {
		t.Parallel()
		got := CascadeChunk([]byte{0xBF, 0x88, 0x69, 0x3E})
		want := [4]byte{0xBF, 0x88, 0x69, 0x3E}
		if got != want {
			t.Errorf("CascadeChunk() = % X, want % X", got, want)
		}
	})

	t.Run("7 byte uid gets the cascade tag", func(t *testing.T) {
		t.Parallel()
		got := CascadeChunk([]byte{0x04, 0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC})
		want := [4]byte{CascadeTag, 0x04, 0x12, 0x34}
		if got != want {
			t.Errorf("CascadeChunk() = % X, want % X", got, want)
		}
	})
}
