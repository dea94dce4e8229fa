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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilterDevicesBlocklist(t *testing.T) {
	t.Parallel()
	devices := []DeviceInfo{
		{Path: "/dev/ttyACM0", VIDPID: "9AC4:4B8F", Confidence: High},
		{Path: "/dev/ttyACM1", VIDPID: "0483:374B", Confidence: High},
	}
	opts := Options{Blocklist: DefaultBlocklist()}

	got := filterDevices(devices, &opts)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "/dev/ttyACM0", got[0].Path)
	}
}

func TestFilterDevicesIgnorePaths(t *testing.T) {
	t.Parallel()
	devices := []DeviceInfo{
		{Path: "/dev/ttyACM0", VIDPID: "9AC4:4B8F", Confidence: High},
		{Path: "/dev/ttyACM1", VIDPID: "9AC4:4B8F", Confidence: High},
	}
	opts := Options{IgnorePaths: []string{"/dev/ttyACM0"}}

	got := filterDevices(devices, &opts)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "/dev/ttyACM1", got[0].Path)
	}
}

func TestFilterDevicesDropsBridgesByDefault(t *testing.T) {
	t.Parallel()
	devices := []DeviceInfo{
		{Path: "/dev/ttyUSB0", VIDPID: "0403:6001", Confidence: Low},
		{Path: "/dev/ttyACM0", VIDPID: "9AC4:4B8F", Confidence: High},
	}

	got := filterDevices(devices, &Options{})
	if assert.Len(t, got, 1) {
		assert.Equal(t, High, got[0].Confidence)
	}

	got = filterDevices(devices, &Options{IncludeBridges: true})
	assert.Len(t, got, 2)
}

func TestRankDevicesOrdersByConfidence(t *testing.T) {
	t.Parallel()
	devices := []DeviceInfo{
		{Path: "/dev/ttyUSB0", Confidence: Low},
		{Path: "/dev/ttyACM1", Confidence: High},
		{Path: "/dev/ttyACM0", Confidence: High},
		{Path: "/dev/ttyACM2", Confidence: Medium},
	}

	ranked, err := rankDevices(devices, &Options{})
	assert.NoError(t, err)
	paths := make([]string, len(ranked))
	for i, d := range ranked {
		paths[i] = d.Path
	}
	assert.Equal(t, []string{"/dev/ttyACM0", "/dev/ttyACM1", "/dev/ttyACM2", "/dev/ttyUSB0"}, paths)
}

func TestRankDevicesEmpty(t *testing.T) {
	t.Parallel()
	_, err := rankDevices(nil, &Options{})
	assert.ErrorIs(t, err, ErrNoFrontEndFound)
}

func TestIsBlockedCaseInsensitive(t *testing.T) {
	t.Parallel()
	blocklist := []string{"1d50:6018"}
	assert.True(t, IsBlocked("1D50:6018", blocklist))
	assert.True(t, IsBlocked(" 1d50:6018 ", blocklist))
	assert.False(t, IsBlocked("9AC4:4B8F", blocklist))
}

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()
	ignore := []string{"/dev/ttyACM0", ""}
	assert.True(t, IsPathIgnored("/dev/ttyACM0", ignore))
	assert.True(t, IsPathIgnored("/dev/../dev/ttyACM0", ignore))
	assert.False(t, IsPathIgnored("/dev/ttyACM1", ignore))
	assert.False(t, IsPathIgnored("", ignore))
}

func TestCacheRoundTrip(t *testing.T) {
	ClearCache()
	t.Cleanup(ClearCache)

	_, ok := getCached(time.Minute)
	assert.False(t, ok)

	devices := []DeviceInfo{{Path: "/dev/ttyACM0", VIDPID: "9AC4:4B8F", Confidence: High}}
	setCached(devices)

	got, ok := getCached(time.Minute)
	assert.True(t, ok)
	assert.Equal(t, devices, got)

	// Expired entries stay invisible
	_, ok = getCached(-time.Second)
	assert.False(t, ok)

	ClearCache()
	_, ok = getCached(time.Minute)
	assert.False(t, ok)
}

func TestCacheReturnsCopies(t *testing.T) {
	ClearCache()
	t.Cleanup(ClearCache)

	setCached([]DeviceInfo{{Path: "/dev/ttyACM0"}})
	got, ok := getCached(time.Minute)
	assert.True(t, ok)
	got[0].Path = "/dev/changed"

	again, ok := getCached(time.Minute)
	assert.True(t, ok)
	assert.Equal(t, "/dev/ttyACM0", again[0].Path)
}
