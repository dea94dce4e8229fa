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
	"runtime"
	"strings"
	"syscall"
	"time"
)

// Error categories for error handling across the engine
var (
	// Link errors - the connection to the RF front end
	ErrLinkAborted  = errors.New("link aborted")
	ErrLinkClosed   = errors.New("link is closed")
	ErrLinkTimeout  = errors.New("link timeout")
	ErrLinkWrite    = errors.New("link write failed")
	ErrLinkRead     = errors.New("link read failed")
	ErrLinkNotReady = errors.New("link not ready")

	// Session errors - fatal for the running emulation session
	ErrInitFailed       = errors.New("emulation initialization failed")
	ErrModulationFailed = errors.New("modulation preparation failed")
	ErrBufferOverflow   = errors.New("response exceeds buffer capacity")

	// Reader errors
	ErrNoCardFound  = errors.New("no card found")
	ErrSelectFailed = errors.New("card selection failed")

	// Front-end errors - generally not retryable
	ErrFrontEndNotFound = errors.New("front end not found")
	ErrFrameCorrupted   = errors.New("frame corrupted")

	// Data errors - not retryable
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidUID       = errors.New("invalid uid length")
	ErrDataTooLarge     = errors.New("data too large")
)

// ErrorType represents the category of error for recovery decisions
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially recoverable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates a non-recoverable error
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error (special handling)
	ErrorTypeTimeout
)

// LinkError wraps front-end link errors with additional context
type LinkError struct {
	Err       error     // Underlying error
	Op        string    // Operation that failed
	Port      string    // Port or device identifier
	Type      ErrorType // Error category
	Retryable bool      // Whether the error is retryable
}

func (e *LinkError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// SessionError reports how an emulation or reader session ended.
// The zero Commands value means the session never served a command.
type SessionError struct {
	Err      error  // Underlying cause
	Stage    string // Stage the session was in (init, receive, transmit)
	Commands int    // Commands served before the failure
}

func (e *SessionError) Error() string {
	if e.Commands > 0 {
		return fmt.Sprintf("session %s: %v (after %d commands)", e.Stage, e.Err, e.Commands)
	}
	return fmt.Sprintf("session %s: %v", e.Stage, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// newSessionError wraps err with the session stage and command count
func newSessionError(stage string, commands int, err error) *SessionError {
	return &SessionError{Err: err, Stage: stage, Commands: commands}
}

// IsRetryable returns true if the error is potentially retryable.
// The emulation loop never retries on its own; this classification is
// for callers deciding whether to start another session.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var le *LinkError
	if errors.As(err, &le) {
		return le.Retryable
	}

	var se *SessionError
	if errors.As(err, &se) {
		return IsRetryable(se.Err)
	}

	switch {
	case errors.Is(err, ErrLinkTimeout),
		errors.Is(err, ErrLinkRead),
		errors.Is(err, ErrLinkWrite),
		errors.Is(err, ErrModulationFailed),
		errors.Is(err, ErrFrameCorrupted),
		errors.Is(err, ErrNoCardFound):
		return true
	default:
		return false
	}
}

// IsFatal returns true if the error indicates the front end or its
// connection is gone and the mode loop should stop entirely. This is
// distinct from IsRetryable which covers a single failed session.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var le *LinkError
	if errors.As(err, &le) {
		return le.Type == ErrorTypePermanent
	}

	var se *SessionError
	if errors.As(err, &se) {
		return IsFatal(se.Err)
	}

	if isDeviceGoneError(err) {
		return true
	}

	switch {
	case errors.Is(err, ErrLinkClosed),
		errors.Is(err, ErrFrontEndNotFound),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}

// Windows error codes for device disconnection detection.
// These are defined here because they're not available on non-Windows platforms.
const (
	errAccessDenied syscall.Errno = 5   // ERROR_ACCESS_DENIED
	errGenFailure   syscall.Errno = 31  // ERROR_GEN_FAILURE
	errNoSuchDevice syscall.Errno = 433 // ERROR_NO_SUCH_DEVICE
)

// isDeviceGoneError checks for OS-level errors indicating device disconnection.
// These errors occur when a USB front end is unplugged during I/O operations.
func isDeviceGoneError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
		switch errno {
		case syscall.EIO, syscall.ENXIO, syscall.ENODEV:
			return true
		}

		if runtime.GOOS == "windows" {
			//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
			switch errno {
			case errAccessDenied, errGenFailure, errNoSuchDevice:
				return true
			}
		}
	}

	return false
}

// Error constructors for consistent error creation

// NewLinkError creates a standard link error with consistent formatting
func NewLinkError(op, port string, err error, errType ErrorType) *LinkError {
	return &LinkError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError creates a timeout error for link operations
func NewTimeoutError(op, port string) *LinkError {
	return NewLinkError(op, port, ErrLinkTimeout, ErrorTypeTimeout)
}

// NewFrameCorruptedError creates a frame corruption error
func NewFrameCorruptedError(op, port string) *LinkError {
	return NewLinkError(op, port, ErrFrameCorrupted, ErrorTypeTransient)
}

// NewLinkWriteError creates a write error (transient)
func NewLinkWriteError(op, port string) *LinkError {
	return NewLinkError(op, port, ErrLinkWrite, ErrorTypeTransient)
}

// NewLinkReadError creates a read error (transient)
func NewLinkReadError(op, port string) *LinkError {
	return NewLinkError(op, port, ErrLinkRead, ErrorTypeTransient)
}

// NewLinkClosedError creates a closed-link error (permanent)
func NewLinkClosedError(op, port string) *LinkError {
	return NewLinkError(op, port, ErrLinkClosed, ErrorTypePermanent)
}

// NewDataTooLargeError creates a data too large error (permanent)
func NewDataTooLargeError(op, port string) *LinkError {
	return NewLinkError(op, port, ErrDataTooLarge, ErrorTypePermanent)
}

// Link tracing. A failure on the serial link to the front end is much
// easier to diagnose with the last few request/response frames
// attached, so the transports keep a small ring of them and wrap their
// errors in a TraceableError.

// TraceDirection tells which side of the link a traced frame was on
type TraceDirection string

const (
	// TraceTX marks a request shipped down the link to the front end
	TraceTX TraceDirection = "TX"
	// TraceRX marks a response frame coming back from the front end
	TraceRX TraceDirection = "RX"
)

// TraceEntry is one frame observed on the link
type TraceEntry struct {
	Timestamp time.Time
	Direction TraceDirection
	Note      string
	Data      []byte
}

func (e TraceEntry) String() string {
	hexData := formatHexBytes(e.Data)
	if e.Note != "" {
		return fmt.Sprintf("[%s] %s: %s (%s)", e.Timestamp.Format("15:04:05.000"), e.Direction, hexData, e.Note)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Timestamp.Format("15:04:05.000"), e.Direction, hexData)
}

// TraceableError carries the link traffic leading up to a failure.
// Callers pull it out with errors.As:
//
//	var te *proxmark3.TraceableError
//	if errors.As(err, &te) {
//	    log.Printf("link trace:\n%s", te.FormatTrace())
//	}
type TraceableError struct {
	Err       error
	Transport string
	Port      string
	Trace     []TraceEntry
}

func (e *TraceableError) Error() string {
	return e.Err.Error()
}

func (e *TraceableError) Unwrap() error {
	return e.Err
}

// FormatTrace renders the captured frames one per line, requests
// marked > and responses <
func (e *TraceableError) FormatTrace() string {
	if len(e.Trace) == 0 {
		return fmt.Sprintf("[%s:%s] (no trace data)", e.Transport, e.Port)
	}

	var sb strings.Builder
	_, _ = sb.WriteString(fmt.Sprintf("[%s:%s] link trace (%d frames):\n", e.Transport, e.Port, len(e.Trace)))

	for _, entry := range e.Trace {
		direction := ">"
		if entry.Direction == TraceRX {
			direction = "<"
		}
		hexData := formatHexBytes(entry.Data)
		if entry.Note != "" {
			_, _ = sb.WriteString(fmt.Sprintf("  %s %s (%s)\n", direction, hexData, entry.Note))
		} else {
			_, _ = sb.WriteString(fmt.Sprintf("  %s %s\n", direction, hexData))
		}
	}

	return sb.String()
}

// formatHexBytes renders a frame as spaced hex, cut off after 32
// bytes so a full flash page does not flood the log
func formatHexBytes(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	if len(data) > 32 {
		parts := make([]string, 32)
		for i := 0; i < 32; i++ {
			parts[i] = fmt.Sprintf("%02X", data[i])
		}
		return strings.Join(parts, " ") + fmt.Sprintf(" ... (%d bytes total)", len(data))
	}
	parts := make([]string, len(data))
	for i, b := range data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}

// TraceBuffer remembers the most recent frames a transport put on the
// link. It is a fixed-size ring; once full, each new frame evicts the
// oldest. Transports clear it per operation and wrap failures with
// whatever it holds.
type TraceBuffer struct {
	transport string
	port      string
	entries   []TraceEntry
	maxSize   int
}

// NewTraceBuffer sizes a trace ring for one transport. maxSize values
// below 1 fall back to 16 frames, enough for a command worth of
// request/response traffic.
func NewTraceBuffer(transport, port string, maxSize int) *TraceBuffer {
	if maxSize <= 0 {
		maxSize = 16
	}
	return &TraceBuffer{
		entries:   make([]TraceEntry, 0, maxSize),
		maxSize:   maxSize,
		transport: transport,
		port:      port,
	}
}

// RecordTX notes a request frame on its way to the front end
func (tb *TraceBuffer) RecordTX(data []byte, note string) {
	tb.record(TraceTX, data, note)
}

// RecordRX notes a response frame from the front end
func (tb *TraceBuffer) RecordRX(data []byte, note string) {
	tb.record(TraceRX, data, note)
}

// RecordTimeout notes a receive that never completed
func (tb *TraceBuffer) RecordTimeout(note string) {
	tb.record(TraceRX, nil, "TIMEOUT: "+note)
}

func (tb *TraceBuffer) record(dir TraceDirection, data []byte, note string) {
	// the caller's buffer gets reused for the next frame
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	entry := TraceEntry{
		Direction: dir,
		Data:      dataCopy,
		Timestamp: time.Now(),
		Note:      note,
	}

	if len(tb.entries) >= tb.maxSize {
		copy(tb.entries, tb.entries[1:])
		tb.entries[len(tb.entries)-1] = entry
	} else {
		tb.entries = append(tb.entries, entry)
	}
}

// WrapError attaches the ring's frames to err. A nil err stays nil; any
// other error comes back as a TraceableError even when the ring is
// empty, so callers always find the transport and port.
func (tb *TraceBuffer) WrapError(err error) error {
	if err == nil {
		return nil
	}

	entriesCopy := make([]TraceEntry, len(tb.entries))
	copy(entriesCopy, tb.entries)

	return &TraceableError{
		Err:       err,
		Trace:     entriesCopy,
		Transport: tb.transport,
		Port:      tb.port,
	}
}

// Clear drops the recorded frames, keeping the ring's capacity
func (tb *TraceBuffer) Clear() {
	tb.entries = tb.entries[:0]
}

// HasTrace reports whether err carries link trace data
func HasTrace(err error) bool {
	var te *TraceableError
	return errors.As(err, &te)
}

// GetTrace pulls the traced frames out of err, nil when there are none
func GetTrace(err error) *TraceableError {
	var te *TraceableError
	if errors.As(err, &te) {
		return te
	}
	return nil
}
