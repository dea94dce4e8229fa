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

//go:build linux

package detection

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ttyClassPath is where the kernel lists tty devices. Tests point this
// at a synthetic tree.
var ttyClassPath = "/sys/class/tty"

// devPrefix maps a tty name to its device node. Overridable for tests
// for the same reason.
var devPrefix = "/dev/"

// scanSerialDevices walks the tty class looking for USB-backed serial
// devices whose identity matches a known front end
func scanSerialDevices() ([]DeviceInfo, error) {
	entries, err := os.ReadDir(ttyClassPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", ttyClassPath, err)
	}

	var devices []DeviceInfo
	for _, entry := range entries {
		dev, ok := inspectTTY(filepath.Join(ttyClassPath, entry.Name()), entry.Name())
		if !ok {
			continue
		}
		devices = append(devices, dev)
	}
	return devices, nil
}

// inspectTTY resolves one tty class entry to a USB device and grades
// it. Non-USB ttys (the dozens of ttyN consoles) resolve nothing and
// are skipped.
func inspectTTY(ttyPath, name string) (DeviceInfo, bool) {
	devLink := filepath.Join(ttyPath, "device")
	resolved, err := filepath.EvalSymlinks(devLink)
	if err != nil {
		return DeviceInfo{}, false
	}

	vidpid, usbRoot, ok := findUSBIdentity(resolved)
	if !ok {
		return DeviceInfo{}, false
	}

	confidence, known := gradeIdentity(vidpid, usbRoot)
	if !known {
		return DeviceInfo{}, false
	}

	dev := DeviceInfo{
		Path:       devPrefix + name,
		Name:       name,
		VIDPID:     vidpid,
		Confidence: confidence,
	}
	if b, err := os.ReadFile(filepath.Join(usbRoot, "manufacturer")); err == nil { //nolint:gosec // path derives from sysfs
		dev.Manufacturer = strings.TrimSpace(string(b))
	}
	if b, err := os.ReadFile(filepath.Join(usbRoot, "product")); err == nil { //nolint:gosec // path derives from sysfs
		dev.Product = strings.TrimSpace(string(b))
	}
	return dev, true
}

// findUSBIdentity walks up from an interface directory until it finds
// the USB device's idVendor/idProduct attributes
func findUSBIdentity(path string) (vidpid, usbRoot string, ok bool) {
	current := filepath.Clean(path)
	for i := 0; i < 10; i++ {
		vid, vidErr := os.ReadFile(filepath.Join(current, "idVendor"))  //nolint:gosec // path derives from sysfs
		pid, pidErr := os.ReadFile(filepath.Join(current, "idProduct")) //nolint:gosec // path derives from sysfs
		if vidErr == nil && pidErr == nil {
			id := strings.ToUpper(strings.TrimSpace(string(vid)) + ":" + strings.TrimSpace(string(pid)))
			return id, current, true
		}
		parent := filepath.Dir(current)
		if parent == current || parent == "/" || parent == "." {
			break
		}
		current = parent
	}
	return "", "", false
}

// gradeIdentity decides whether a USB identity is worth reporting. A
// known VID:PID carries its table grade; an unknown identity whose
// product string names the device family still ranks Medium, covering
// firmware builds with re-flashed descriptors.
func gradeIdentity(vidpid, usbRoot string) (Confidence, bool) {
	if confidence, ok := knownDevices[vidpid]; ok {
		return confidence, true
	}
	if b, err := os.ReadFile(filepath.Join(usbRoot, "product")); err == nil { //nolint:gosec // path derives from sysfs
		product := strings.ToLower(string(b))
		if strings.Contains(product, "proxmark") || strings.Contains(product, "pm3") {
			return Medium, true
		}
	}
	return 0, false
}
