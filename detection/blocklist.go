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

package detection

import (
	"path/filepath"
	"strings"
)

// DefaultBlocklist lists USB identities that present a CDC ACM or
// serial interface but are definitely not front ends. Debug probes
// are the usual offenders: they enumerate like a front end and hang
// their target when something else opens the port.
func DefaultBlocklist() []string {
	return []string{
		"0483:374B", // ST-Link V2.1 virtual COM port
		"1D50:6018", // Black Magic Probe
		"1366:0105", // SEGGER J-Link CDC
	}
}

// IsBlocked checks a VID:PID against the blocklist,
// case-insensitively
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	for _, blocked := range blocklist {
		if vidpid == strings.ToUpper(strings.TrimSpace(blocked)) {
			return true
		}
	}
	return false
}

// IsPathIgnored checks whether a device path was explicitly excluded
// from the scan
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" || len(ignorePaths) == 0 {
		return false
	}

	normalizedDevice := normalizedPath(devicePath)
	for _, ignore := range ignorePaths {
		if ignore == "" {
			continue
		}
		if devicePath == ignore || normalizedDevice == normalizedPath(ignore) {
			return true
		}
	}
	return false
}

// normalizedPath cleans a device path for comparison. Lowercasing
// covers case-insensitive filesystems.
func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
