// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package feedback

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	socketBufferSize  = 1024
	messageBufferSize = 64
	historySize       = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  socketBufferSize,
	WriteBufferSize: socketBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub broadcasts feedback events to websocket clients. New clients first
// receive the events of the current run.
type Hub struct {
	eventSink

	mu      sync.Mutex
	clients map[*client]bool
	history []Event
}

func NewHub() *Hub {
	h := &Hub{clients: make(map[*client]bool)}
	h.eventSink = h.broadcast
	return h
}

func (h *Hub) broadcast(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.history) == historySize {
		h.history = h.history[1:]
	}
	h.history = append(h.history, e)

	for c := range h.clients {
		select {
		case c.send <- e:
		default:
			log.Debug("feedback: websocket client too slow, dropping event")
		}
	}
}

// ServeHTTP upgrades the connection and streams events until the client
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("feedback: websocket upgrade error: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan Event, messageBufferSize+historySize)}

	h.mu.Lock()
	for _, e := range h.history {
		c.send <- e
	}
	h.clients[c] = true
	h.mu.Unlock()
	log.Debug("feedback: websocket client joined")

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Drain client messages; a read error means the client left.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		conn.Close()
		log.Debug("feedback: websocket client left")
	}()

	for {
		select {
		case <-done:
			return
		case e := <-c.send:
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
	}
}
