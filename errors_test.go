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
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkErrorFormatting(t *testing.T) {
	t.Parallel()
	withPort := NewLinkReadError("receive", "/dev/ttyACM0")
	assert.Equal(t, "receive /dev/ttyACM0: link read failed", withPort.Error())

	withoutPort := NewLinkReadError("receive", "")
	assert.Equal(t, "receive: link read failed", withoutPort.Error())
}

func TestLinkErrorUnwrap(t *testing.T) {
	t.Parallel()
	err := NewTimeoutError("select", "mock")
	assert.ErrorIs(t, err, ErrLinkTimeout)
}

func TestSessionErrorFormatting(t *testing.T) {
	t.Parallel()
	fresh := newSessionError("init", 0, ErrInitFailed)
	assert.NotContains(t, fresh.Error(), "commands")

	busy := newSessionError("receive", 12, ErrLinkAborted)
	assert.Contains(t, busy.Error(), "after 12 commands")
	assert.ErrorIs(t, busy, ErrLinkAborted)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "timeout sentinel", err: ErrLinkTimeout, want: true},
		{name: "wrapped read failure", err: fmt.Errorf("receive: %w", ErrLinkRead), want: true},
		{name: "modulation failure", err: ErrModulationFailed, want: true},
		{name: "no card", err: ErrNoCardFound, want: true},
		{name: "aborted", err: ErrLinkAborted, want: false},
		{name: "invalid uid", err: ErrInvalidUID, want: false},
		{name: "transient link error", err: NewFrameCorruptedError("receive", "mock"), want: true},
		{name: "permanent link error", err: NewLinkClosedError("transmit", "mock"), want: false},
		{name: "session wrapping retryable", err: newSessionError("receive", 3, ErrLinkRead), want: true},
	}
	for _, tt := range tests {
		tt := tt // capture loop variable
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "closed link", err: ErrLinkClosed, want: true},
		{name: "front end gone", err: ErrFrontEndNotFound, want: true},
		{name: "eof", err: io.EOF, want: true},
		{name: "closed pipe", err: fmt.Errorf("write: %w", io.ErrClosedPipe), want: true},
		{name: "timeout", err: ErrLinkTimeout, want: false},
		{name: "aborted", err: ErrLinkAborted, want: false},
		{name: "permanent link error", err: NewDataTooLargeError("transmit", "mock"), want: true},
		{name: "session wrapping fatal", err: newSessionError("receive", 1, ErrLinkClosed), want: true},
	}
	for _, tt := range tests {
		tt := tt // capture loop variable
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestTraceBufferWrapError(t *testing.T) {
	t.Parallel()
	tb := NewTraceBuffer("uart", "/dev/ttyACM0", 8)
	tb.RecordTX([]byte{0x62, 0x02, 0x00}, "prepare")
	tb.RecordRX([]byte{0xE2, 0x00}, "prepare reply")

	err := tb.WrapError(ErrModulationFailed)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModulationFailed)
	assert.True(t, HasTrace(err))

	traced := GetTrace(err)
	require.NotNil(t, traced)
	formatted := traced.FormatTrace()
	assert.Contains(t, formatted, "62 02 00")
	assert.Contains(t, formatted, "prepare reply")
}

func TestTraceBufferRing(t *testing.T) {
	t.Parallel()
	tb := NewTraceBuffer("uart", "mock", 2)
	tb.RecordTX([]byte{0x01}, "first")
	tb.RecordTX([]byte{0x02}, "second")
	tb.RecordTX([]byte{0x03}, "third")

	formatted := GetTrace(tb.WrapError(errors.New("boom"))).FormatTrace()
	assert.NotContains(t, formatted, "first", "oldest entry dropped at capacity")
	assert.Contains(t, formatted, "second")
	assert.Contains(t, formatted, "third")
}

func TestTraceBufferClear(t *testing.T) {
	t.Parallel()
	tb := NewTraceBuffer("uart", "mock", 4)
	tb.RecordTimeout("receive")
	tb.Clear()

	traced := GetTrace(tb.WrapError(ErrLinkTimeout))
	require.NotNil(t, traced)
	assert.Contains(t, traced.FormatTrace(), "no trace data")
}

func TestHasTraceOnPlainError(t *testing.T) {
	t.Parallel()
	assert.False(t, HasTrace(errors.New("plain")))
	assert.Nil(t, GetTrace(errors.New("plain")))
}

func TestFormatHexBytesTruncates(t *testing.T) {
	t.Parallel()
	long := formatHexBytes(make([]byte, 64))
	assert.True(t, strings.Contains(long, "..."), "long payloads are elided")
}
