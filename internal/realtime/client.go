package realtime

import (
	"net/http"
	"time"

	"github.com/typerush/typerush/internal/model"
)

const (
	// Time between keepalive pings
	pingPeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Client represents one subscriber connection to a race's event stream
type Client struct {
	hub           *Hub
	participantID model.ParticipantID
	send          chan []byte
	connectedAt   time.Time
}

// NewClient creates a new subscriber for a hub. participantID may be empty
// for spectators.
func NewClient(hub *Hub, participantID model.ParticipantID) *Client {
	return &Client{
		hub:           hub,
		participantID: participantID,
		send:          make(chan []byte, sendBufferSize),
	}
}

// ServeSSE streams the hub's events to an SSE client until it disconnects
// or the hub closes.
func ServeSSE(w http.ResponseWriter, r *http.Request, hub *Hub, participantID model.ParticipantID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := NewClient(hub, participantID)
	client.connectedAt = time.Now()
	hub.Register(client)

	defer func() {
		hub.Unregister(client)
	}()

	_, _ = w.Write([]byte("event: connected\ndata: {\"status\":\"connected\"}\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				// Hub closed the channel
				return
			}
			if _, err := w.Write(formatSSEMessage(message)); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			// Client disconnected
			return
		}
	}
}

// formatSSEMessage wraps a JSON event as an SSE data frame. Event payloads
// are single-line JSON so no multi-line splitting is needed.
func formatSSEMessage(data []byte) []byte {
	msg := make([]byte, 0, len(data)+16)
	msg = append(msg, "data: "...)
	msg = append(msg, data...)
	msg = append(msg, '\n', '\n')
	return msg
}
