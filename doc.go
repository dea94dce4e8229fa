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

// Package proxmark3 implements the ISO14443A card-emulation engine of
// an RF security research device. An Emulator answers a reader's
// activation sequence with canned anticollision frames, replays
// captured APDU responses from a ReplayTable and handles the
// transport-layer block protocol; a Reader runs the opposite role to
// clone a card's identifier; Standalone ties the two together under
// button control, adopting the UID of the last card read.
//
// The engine talks to the RF hardware through the FrontEnd interface.
// The transport/uart package implements it over a serial link;
// MockTransceiver and internal/testing drive it in tests. Supporting
// packages cover front-end autodetection (detection), operator
// controls (gpio), the onboard flash store (flash), the host link and
// live session monitor (host) and the low-frequency EM4x50 standalone
// (em4x50).
package proxmark3
