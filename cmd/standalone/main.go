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

// Command standalone runs the device firmware loop: card emulation on
// the high-frequency side, EM4x50 simulate/collect on the
// low-frequency side, both driven by the analog front end on a serial
// port.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AxisRay/proxmark3"
	"github.com/AxisRay/proxmark3/detection"
	"github.com/AxisRay/proxmark3/em4x50"
	"github.com/AxisRay/proxmark3/flash"
	"github.com/AxisRay/proxmark3/gpio"
	"github.com/AxisRay/proxmark3/host"
	"github.com/AxisRay/proxmark3/transport/uart"
	log "github.com/sirupsen/logrus"
)

const (
	modeHF = "hf"
	modeLF = "lf"
)

// Default control pins on the reference carrier board
const (
	defaultButtonPin = "GPIO17"
	defaultLEDAPin   = "GPIO22"
	defaultLEDBPin   = "GPIO23"
	defaultLEDCPin   = "GPIO24"
	defaultLEDDPin   = "GPIO25"
)

type config struct {
	mode     string
	port     string
	flashDir string
	monitor  string
	uid      []byte
	debug    bool
}

// Package-level flag variables
var (
	flagMode    string
	flagPort    string
	flagUID     string
	flagFlash   string
	flagMonitor string
	flagDebug   bool
)

func init() {
	flag.StringVar(&flagMode, "mode", modeHF, "Side to run: hf (card emulation) or lf (EM4x50 standalone)")
	flag.StringVar(&flagPort, "port", "auto", "Front-end serial port (auto-detect by default)")
	flag.StringVar(&flagUID, "uid", "", "Card UID to emulate, 4 or 7 hex-encoded bytes")
	flag.StringVar(&flagFlash, "flash", "flash", "Directory backing the onboard flash store")
	flag.StringVar(&flagMonitor, "monitor", "", "Listen address for the live session monitor (disabled if empty)")
	flag.BoolVar(&flagDebug, "debug", false, "Enable debug output")
}

func parseConfig() (*config, error) {
	cfg := &config{
		mode:     flagMode,
		port:     flagPort,
		flashDir: flagFlash,
		monitor:  flagMonitor,
		debug:    flagDebug,
	}

	if cfg.mode != modeHF && cfg.mode != modeLF {
		return nil, fmt.Errorf("%w: unknown mode %q", proxmark3.ErrInvalidParameter, cfg.mode)
	}

	if flagUID != "" {
		uid, err := hex.DecodeString(flagUID)
		if err != nil {
			return nil, fmt.Errorf("%w: uid %q is not hex", proxmark3.ErrInvalidUID, flagUID)
		}
		cfg.uid = uid
	}

	if cfg.debug {
		proxmark3.SetDebugEnabled(true)
		log.SetLevel(log.DebugLevel)
	}
	return cfg, nil
}

// resolvePort turns "auto" into a detected front-end path
func resolvePort(ctx context.Context, cfg *config) (string, error) {
	if cfg.port != "" && cfg.port != "auto" {
		return cfg.port, nil
	}
	device, err := detection.Detect(ctx)
	if err != nil {
		return "", fmt.Errorf("detecting front end: %w", err)
	}
	log.WithFields(log.Fields{
		"path":       device.Path,
		"confidence": device.Confidence.String(),
	}).Info("front end detected")
	return device.Path, nil
}

// controls wires the hardware button and lamps, falling back to no-op
// stand-ins when GPIO is unavailable (development hosts, CI)
func controls() (proxmark3.Button, proxmark3.StatusLEDs) {
	if err := gpio.Init(); err != nil {
		log.WithError(err).Warn("gpio unavailable, running without button and lamps")
		return proxmark3.NopButton{}, proxmark3.NopLEDs{}
	}
	button, err := gpio.NewButtonByName(defaultButtonPin)
	if err != nil {
		log.WithError(err).Warn("button pin unavailable")
		return proxmark3.NopButton{}, proxmark3.NopLEDs{}
	}
	leds, err := gpio.NewLEDsByName(defaultLEDAPin, defaultLEDBPin, defaultLEDCPin, defaultLEDDPin)
	if err != nil {
		log.WithError(err).Warn("lamp pins unavailable")
		return button, proxmark3.NopLEDs{}
	}
	return button, leds
}

// startMonitor serves the live session monitor when an address was
// given. The returned monitor is nil when disabled.
func startMonitor(cfg *config) (*host.Monitor, func()) {
	if cfg.monitor == "" {
		return nil, func() {}
	}

	monitor := host.NewMonitor()
	mux := http.NewServeMux()
	mux.Handle("/events", monitor)
	server := &http.Server{
		Addr:              cfg.monitor,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("monitor server failed")
		}
	}()
	log.WithField("addr", cfg.monitor).Info("session monitor listening")

	return monitor, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Debug("monitor shutdown failed")
		}
		monitor.Close()
	}
}

func publish(monitor *host.Monitor, ev host.Event) {
	if monitor == nil {
		return
	}
	monitor.Publish(ev)
}

func runHF(ctx context.Context, transport *uart.Transport, cfg *config,
	button proxmark3.Button, leds proxmark3.StatusLEDs,
) error {
	var opts []proxmark3.Option
	if len(cfg.uid) > 0 {
		opts = append(opts, proxmark3.WithUID(cfg.uid))
	}
	standalone, err := proxmark3.NewStandalone(transport, opts...)
	if err != nil {
		return fmt.Errorf("building card emulation: %w", err)
	}
	standalone.SetButton(button)
	standalone.SetLEDs(leds)
	return standalone.Run(ctx)
}

func runLF(ctx context.Context, transport *uart.Transport, cfg *config,
	button proxmark3.Button, leds proxmark3.StatusLEDs,
) error {
	store := flash.New(cfg.flashDir)
	standalone, err := em4x50.NewStandalone(transport, transport, store)
	if err != nil {
		return fmt.Errorf("building EM4x50 standalone: %w", err)
	}
	standalone.SetButton(button)
	standalone.SetLEDs(leds)
	return standalone.Run(ctx)
}

func run(ctx context.Context, cfg *config) error {
	path, err := resolvePort(ctx, cfg)
	if err != nil {
		return err
	}

	transport, err := uart.New(path)
	if err != nil {
		return fmt.Errorf("opening front end: %w", err)
	}
	defer func() {
		if err := transport.Close(); err != nil {
			log.WithError(err).Debug("closing front end failed")
		}
	}()

	button, leds := controls()
	monitor, stopMonitor := startMonitor(cfg)
	defer stopMonitor()

	log.WithFields(log.Fields{"mode": cfg.mode, "port": path}).Info("standalone starting")
	publish(monitor, host.Event{Time: time.Now(), Type: "session-start", Detail: cfg.mode})

	switch cfg.mode {
	case modeLF:
		err = runLF(ctx, transport, cfg, button, leds)
	default:
		err = runHF(ctx, transport, cfg, button, leds)
	}

	detail := "ok"
	if err != nil {
		detail = err.Error()
	}
	publish(monitor, host.Event{Time: time.Now(), Type: "session-end", Detail: detail})
	return err
}

func main() {
	flag.Parse()
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			return 0
		}
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
