package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/typerush/typerush/internal/model"
)

// Hub fans events out to the subscribers of a single race
type Hub struct {
	raceID  model.RaceID
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
}

// NewHub creates a new Hub for a race
func NewHub(raceID model.RaceID, logger *slog.Logger) *Hub {
	return &Hub{
		raceID:     raceID,
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("race_id", string(raceID))),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Debug("hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("client subscribed",
				slog.String("participant_id", string(client.participantID)),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				duration := time.Since(client.connectedAt)
				h.logger.Debug("client unsubscribed",
					slog.String("participant_id", string(client.participantID)),
					slog.Duration("connection_duration", duration),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			// A slow subscriber loses messages, not the whole race:
			// drops are per-client and never block the loop
			h.mu.RLock()
			droppedCount := 0
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					droppedCount++
				}
			}
			h.mu.RUnlock()
			if droppedCount > 0 {
				h.logger.Warn("broadcast dropped for slow clients",
					slog.Int("dropped", droppedCount))
			}

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Debug("hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

// Register adds a subscriber to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a subscriber from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast sends a message to all subscribers
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("broadcast dropped - hub buffer full")
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	close(h.done)
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HubManager manages the hubs for all races
type HubManager struct {
	hubs   map[model.RaceID]*Hub
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewHubManager creates a new HubManager
func NewHubManager(logger *slog.Logger) *HubManager {
	return &HubManager{
		hubs:   make(map[model.RaceID]*Hub),
		logger: logger.With(slog.String("component", "realtime")),
	}
}

// GetOrCreateHub returns the hub for a race, creating one if it doesn't exist
func (m *HubManager) GetOrCreateHub(raceID model.RaceID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[raceID]; ok {
		return hub
	}

	hub := NewHub(raceID, m.logger)
	m.hubs[raceID] = hub
	go hub.Run()
	return hub
}

// GetHub returns the hub for a race, or nil if it doesn't exist
func (m *HubManager) GetHub(raceID model.RaceID) *Hub {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hubs[raceID]
}

// RemoveHub removes and closes a hub
func (m *HubManager) RemoveHub(raceID model.RaceID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if hub, ok := m.hubs[raceID]; ok {
		hub.Close()
		delete(m.hubs, raceID)
		m.logger.Info("hub removed", slog.String("race_id", string(raceID)))
	}
}

// CleanupEmptyHubs removes hubs with no subscribers
func (m *HubManager) CleanupEmptyHubs() {
	m.mu.Lock()
	defer m.mu.Unlock()

	removedCount := 0
	for id, hub := range m.hubs {
		if hub.ClientCount() == 0 {
			hub.Close()
			delete(m.hubs, id)
			removedCount++
		}
	}
	if removedCount > 0 {
		m.logger.Info("empty hubs cleaned up", slog.Int("removed", removedCount))
	}
}
