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

// Status is the outcome a standalone session reports when it hands
// control back to the host
type Status int

const (
	// StatusSuccess means the session ended without a failure
	StatusSuccess Status = iota
	// StatusAborted means the operator or the host interrupted the
	// session
	StatusAborted
	// StatusInitFailed means the emulation could not be initialized
	StatusInitFailed
	// StatusFailed covers every other session failure
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusAborted:
		return "aborted"
	case StatusInitFailed:
		return "init failed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Host is the channel back to the controlling computer. Standalone
// sessions poll StopRequested between passes and Report their outcome
// once on exit.
type Host interface {
	StopRequested() bool
	Report(status Status) error
}

// NopHost lets standalone mode run with no computer attached
type NopHost struct{}

func (NopHost) StopRequested() bool { return false }
func (NopHost) Report(Status) error { return nil }
