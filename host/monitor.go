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
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Event is one session observation pushed to monitor clients
type Event struct {
	// Time the event happened
	Time time.Time `json:"time"`
	// Type names the event: "mode", "uid", "session"
	Type string `json:"type"`
	// Detail carries the human-readable specifics
	Detail string `json:"detail,omitempty"`
	// UID is the identifier in play, hex-encoded, when relevant
	UID string `json:"uid,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool {
		// The monitor binds to localhost; anything that can reach it
		// may watch
		return true
	},
}

const clientSendBuffer = 64

// Monitor is a websocket hub broadcasting session events to attached
// browsers. Publish never blocks the engine: a client that cannot keep
// up is dropped.
type Monitor struct {
	clients    map[*monitorClient]bool
	broadcast  chan []byte
	register   chan *monitorClient
	unregister chan *monitorClient
	quit       chan struct{}
	closeOnce  sync.Once
}

type monitorClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewMonitor creates a hub and starts its loop
func NewMonitor() *Monitor {
	m := &Monitor{
		clients:    make(map[*monitorClient]bool),
		broadcast:  make(chan []byte, clientSendBuffer),
		register:   make(chan *monitorClient),
		unregister: make(chan *monitorClient),
		quit:       make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Monitor) run() {
	for {
		select {
		case client := <-m.register:
			m.clients[client] = true
		case client := <-m.unregister:
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.send)
			}
		case message := <-m.broadcast:
			for client := range m.clients {
				select {
				case client.send <- message:
				default:
					// Slow client, cut it loose
					delete(m.clients, client)
					close(client.send)
				}
			}
		case <-m.quit:
			for client := range m.clients {
				delete(m.clients, client)
				close(client.send)
			}
			return
		}
	}
}

// Publish queues an event for every attached client. It never blocks;
// when the hub itself is saturated the event is dropped.
func (m *Monitor) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).Warn("monitor: dropping unencodable event")
		return
	}
	select {
	case m.broadcast <- data:
	case <-m.quit:
	default:
		log.Debug("monitor: hub saturated, dropping event")
	}
}

// ServeHTTP upgrades the request and attaches the client to the hub
func (m *Monitor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).WithField("remote", r.RemoteAddr).Warn("monitor: upgrade failed")
		return
	}
	log.WithField("remote", r.RemoteAddr).Info("monitor: client connected")

	client := &monitorClient{
		conn: conn,
		send: make(chan []byte, clientSendBuffer),
	}

	select {
	case m.register <- client:
	case <-m.quit:
		_ = conn.Close()
		return
	}

	go client.writeLoop()
	client.readLoop(m)
}

// writeLoop forwards hub messages to the socket until the send channel
// closes
func (c *monitorClient) writeLoop() {
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
	_ = c.conn.Close()
}

// readLoop discards client traffic; it exists to notice disconnects
func (c *monitorClient) readLoop(m *Monitor) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	select {
	case m.unregister <- c:
	case <-m.quit:
	}
	_ = c.conn.Close()
}

// Close stops the hub and disconnects every client. Closing twice is
// harmless.
func (m *Monitor) Close() {
	m.closeOnce.Do(func() { close(m.quit) })
}
