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
	"time"

	"github.com/AxisRay/proxmark3/internal/syncutil"
)

// scanCache keeps the last scan result so repeated lookups during
// startup do not rewalk sysfs
type scanCache struct {
	timestamp time.Time
	devices   []DeviceInfo
	mu        syncutil.RWMutex
	valid     bool
}

var cache scanCache

// getCached returns the cached scan if it is still inside ttl
func getCached(ttl time.Duration) ([]DeviceInfo, bool) {
	cache.mu.RLock()
	defer cache.mu.RUnlock()

	if !cache.valid || time.Since(cache.timestamp) > ttl {
		return nil, false
	}

	devices := make([]DeviceInfo, len(cache.devices))
	copy(devices, cache.devices)
	return devices, true
}

// setCached stores a copy of the scan result
func setCached(devices []DeviceInfo) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	cache.devices = make([]DeviceInfo, len(devices))
	copy(cache.devices, devices)
	cache.timestamp = time.Now()
	cache.valid = true
}

// ClearCache forgets the last scan, forcing the next lookup to rewalk
// the device tree
func ClearCache() {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	cache.devices = nil
	cache.valid = false
}
