// Package feed pushes newly stored alerts to dashboards over websockets.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/jalrakshak/outbreak-engine/internal/models"
)

// Envelope is the JSON frame sent to subscribers.
type Envelope struct {
	Type    string       `json:"type"`
	Payload models.Alert `json:"payload"`
}

type outbound struct {
	alert models.Alert
	frame []byte
}

// Hub maintains the set of active clients and broadcasts alerts to them.
type Hub struct {
	logger     *slog.Logger
	sendBuffer int

	clients    map[*Client]struct{}
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a hub. sendBuffer bounds each client's queue and the broadcast queue.
func NewHub(logger *slog.Logger, sendBuffer int) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &Hub{
		logger:     logger,
		sendBuffer: sendBuffer,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan outbound, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then disconnects
// every client. Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("feed client registered", slog.String("remote", client.remote()), slog.String("role", string(client.role)))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Debug("feed client unregistered", slog.String("remote", client.remote()))
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(msg.alert) {
					continue
				}
				select {
				case client.send <- msg.frame:
				default:
					h.logger.Warn("feed client too slow, dropping", slog.String("remote", client.remote()))
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// PublishAlert queues an alert for broadcast. It never blocks; when the queue is full
// the alert is dropped from the feed.
func (h *Hub) PublishAlert(alert models.Alert) {
	frame, err := json.Marshal(Envelope{Type: "alert", Payload: alert})
	if err != nil {
		h.logger.Error("feed encode failed", slog.Any("error", err))
		return
	}
	select {
	case h.broadcast <- outbound{alert: alert, frame: frame}:
	default:
		h.logger.Warn("feed queue full, alert not broadcast", slog.String("alert_id", alert.ID))
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
