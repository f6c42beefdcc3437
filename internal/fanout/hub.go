// Package fanout implements the fan-out hub: a topic-keyed
// publish/subscribe broker with a gorilla/websocket transport. Publish
// never blocks on a slow subscriber; a client whose send buffer is full
// is disconnected rather than allowed to stall the publisher, which
// preserves per-topic ordering for every client that keeps up.
package fanout

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/contestengine/internal/adapters/metrics"
)

// defaultSendBuffer is the per-client outbound buffer depth. A client
// this far behind is considered unable to keep up and is disconnected
// rather than blocking the Aggregator/Controller/Executor goroutine
// publishing to it.
const defaultSendBuffer = 256

// envelope is the wire shape for every message sent to a client:
// {topic, payload}.
type envelope struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// Hub maintains the set of connected clients and their topic
// subscriptions, and implements ports.Hub.
type Hub struct {
	sendBuffer int

	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
}

// NewHub starts the hub goroutine. sendBuffer is the per-client outbound
// queue depth; non-positive selects the default.
func NewHub(sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	h := &Hub{
		sendBuffer: sendBuffer,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.SetWSClients(n)
			slog.Debug("fanout: client connected", "total", n)
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.SetWSClients(n)
			slog.Debug("fanout: client disconnected", "total", n)
		}
	}
}

// Publish fans payload out to every client subscribed to topic. It never
// blocks: a client whose send channel is full is disconnected instead of
// slowing the publisher or receiving a gapped stream.
func (h *Hub) Publish(topic string, payload any) {
	msg, err := json.Marshal(envelope{Topic: topic, Payload: payload})
	if err != nil {
		slog.Error("fanout: failed to marshal envelope", "topic", topic, "err", err)
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		if !c.subscribed(topic) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	// Unregistering goes through the hub goroutine, which needs the
	// write lock, so it must happen after the read lock is released and
	// off this goroutine to keep Publish non-blocking.
	for _, c := range slow {
		slog.Warn("fanout: disconnecting slow client", "topic", topic)
		go func(c *Client) { h.unregister <- c }(c)
	}
}

// ClientCount reports the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
