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

// Package detection finds attached RF front ends by their USB
// identity. The scan is purely descriptor-based: nothing is opened or
// probed, so running it cannot disturb a front end mid-session.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Confidence grades how certain the scan is that a serial device is a
// front end
type Confidence int

const (
	// Low confidence - a generic USB serial bridge that could carry
	// anything
	Low Confidence = iota
	// Medium confidence - descriptor strings mention the device family
	Medium
	// High confidence - the VID:PID is a known front-end identity
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// DeviceInfo describes one detected front-end candidate
type DeviceInfo struct {
	// Path is the serial device to open (e.g. /dev/ttyACM0)
	Path string
	// Name is the kernel device name
	Name string
	// VIDPID is the USB identity in VID:PID form, uppercase hex
	VIDPID string
	// Manufacturer and Product are the USB descriptor strings when
	// the kernel exposes them
	Manufacturer string
	Product      string
	// Confidence grades the match
	Confidence Confidence
}

// String returns a human-readable representation of the device
func (d DeviceInfo) String() string {
	if d.Product != "" {
		return fmt.Sprintf("%s [%s] %s (confidence: %s)", d.Path, d.VIDPID, d.Product, d.Confidence)
	}
	return fmt.Sprintf("%s [%s] (confidence: %s)", d.Path, d.VIDPID, d.Confidence)
}

// Known front-end identities. The CDC ACM identities are exact; the
// bridge chips only mean "some serial hardware" and rank lowest.
var knownDevices = map[string]Confidence{
	"9AC4:4B8F": High, // Proxmark3 RDV4 CDC ACM
	"502D:502D": High, // Proxmark3 easy, pre-2020 bootloader
	"2D2D:504D": High, // ProxSpace community firmware
	"0403:6001": Low,  // FTDI FT232 bridge
	"10C4:EA60": Low,  // Silicon Labs CP210x bridge
}

// Options configures a scan
type Options struct {
	// Blocklist holds VID:PID pairs never to report
	Blocklist []string
	// IgnorePaths holds device paths never to report
	IgnorePaths []string
	// IncludeBridges also reports generic USB serial bridges at low
	// confidence. Off by default: a bare bridge is usually a debug
	// console, not a front end.
	IncludeBridges bool
	// EnableCache reuses scan results within CacheTTL
	EnableCache bool
	// CacheTTL bounds how long cached results stay valid
	CacheTTL time.Duration
}

// DefaultOptions returns the scan configuration used by Detect
func DefaultOptions() Options {
	return Options{
		Blocklist:   DefaultBlocklist(),
		EnableCache: true,
		CacheTTL:    30 * time.Second,
	}
}

// Errors
var (
	// ErrNoFrontEndFound indicates the scan saw no front-end identity
	ErrNoFrontEndFound = errors.New("no front end found")
	// ErrUnsupportedPlatform indicates the platform exposes no device
	// identity to scan
	ErrUnsupportedPlatform = errors.New("platform not supported")
)

// Detect returns the most plausible front end, or ErrNoFrontEndFound
func Detect(ctx context.Context) (DeviceInfo, error) {
	opts := DefaultOptions()
	devices, err := DetectAll(ctx, &opts)
	if err != nil {
		return DeviceInfo{}, err
	}
	return devices[0], nil
}

// DetectAll scans for front ends and returns every candidate, best
// first. Equal confidence ranks by path for a stable order.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("detection cancelled: %w", err)
	}

	if opts.EnableCache {
		if cached, ok := getCached(opts.CacheTTL); ok {
			return rankDevices(filterDevices(cached, opts), opts)
		}
	}

	devices, err := scanSerialDevices()
	if err != nil {
		return nil, err
	}

	if opts.EnableCache {
		if len(devices) > 0 {
			setCached(devices)
		} else {
			// Drop stale entries so a disconnected device stops being
			// reported before the TTL runs out
			ClearCache()
		}
	}

	return rankDevices(filterDevices(devices, opts), opts)
}

// filterDevices applies the blocklist and ignore paths. Cached results
// pass through here too, so a device blocked after being cached stays
// blocked.
func filterDevices(devices []DeviceInfo, opts *Options) []DeviceInfo {
	var out []DeviceInfo
	for _, dev := range devices {
		if IsPathIgnored(dev.Path, opts.IgnorePaths) {
			continue
		}
		if IsBlocked(dev.VIDPID, opts.Blocklist) {
			continue
		}
		if dev.Confidence == Low && !opts.IncludeBridges {
			continue
		}
		out = append(out, dev)
	}
	return out
}

func rankDevices(devices []DeviceInfo, _ *Options) ([]DeviceInfo, error) {
	if len(devices) == 0 {
		return nil, ErrNoFrontEndFound
	}
	sort.SliceStable(devices, func(i, j int) bool {
		if devices[i].Confidence != devices[j].Confidence {
			return devices[i].Confidence > devices[j].Confidence
		}
		return devices[i].Path < devices[j].Path
	})
	return devices, nil
}
