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

package host

import (
	"errors"
	"fmt"
	"io"

	"github.com/AxisRay/proxmark3"
	"github.com/AxisRay/proxmark3/internal/syncutil"
)

// Link speaks the CBOR host protocol over any byte stream, usually the
// second CDC channel of the USB connection. A background goroutine
// drains incoming messages; a CmdStop latches the stop flag for the
// engine to observe at its loop boundaries.
type Link struct {
	rwc     io.ReadWriteCloser
	done    chan struct{}
	mu      syncutil.Mutex
	stopped bool
	closed  bool
}

// NewLink starts a link on rwc and begins reading immediately
func NewLink(rwc io.ReadWriteCloser) *Link {
	l := &Link{
		rwc:  rwc,
		done: make(chan struct{}),
	}
	go l.readLoop()
	return l
}

// readLoop decodes host messages until the stream ends. Decode errors
// end the loop; a broken host link just means nobody is listening
// anymore, which the engine treats the same as no host at all.
func (l *Link) readLoop() {
	defer close(l.done)
	dec := decMode.NewDecoder(l.rwc)
	for {
		var msg Message
		if err := dec.Decode(&msg); err != nil {
			if !errors.Is(err, io.EOF) {
				proxmark3.Debugf("host: link read ended: %v", err)
			}
			return
		}

		switch msg.Cmd {
		case CmdStop:
			proxmark3.Debugf("host: stop requested")
			l.mu.Lock()
			l.stopped = true
			l.mu.Unlock()
		case CmdPing:
			if err := l.send(Message{Cmd: CmdPing, Data: msg.Data}); err != nil {
				proxmark3.Debugf("host: ping reply failed: %v", err)
			}
		default:
			proxmark3.Debugf("host: ignoring command 0x%04X", msg.Cmd)
		}
	}
}

// StopRequested implements proxmark3.Host. Once set, the flag stays
// set for the lifetime of the link.
func (l *Link) StopRequested() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// Report implements proxmark3.Host, sending the final session status
func (l *Link) Report(status proxmark3.Status) error {
	return l.send(Message{Cmd: CmdStatus, Data: []byte{byte(status)}})
}

func (l *Link) send(msg Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return proxmark3.ErrLinkClosed
	}
	data, err := encMode.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding host message: %w", err)
	}
	if _, err := l.rwc.Write(data); err != nil {
		return fmt.Errorf("%w: %w", proxmark3.ErrLinkWrite, err)
	}
	return nil
}

// Close shuts the link down and waits for the reader to finish.
// Closing twice is harmless.
func (l *Link) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	err := l.rwc.Close()
	<-l.done
	if err != nil {
		return fmt.Errorf("closing host link: %w", err)
	}
	return nil
}

// Interface guard
var _ proxmark3.Host = (*Link)(nil)
