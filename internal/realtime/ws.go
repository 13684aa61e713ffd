package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/typerush/typerush/internal/model"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 45 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// InboundMessage is a client-to-server frame on the websocket. Type is
// "progress" or "finish"; the stats fields only apply to progress.
type InboundMessage struct {
	Type     string  `json:"type"`
	Progress int     `json:"progress"`
	WPM      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`
	Errors   int     `json:"errors"`
}

// MessageSink receives the typing signals read off a websocket. The api
// layer implements this on top of the participant and finish services.
type MessageSink interface {
	HandleProgress(ctx context.Context, participantID model.ParticipantID, stats model.Stats) error
	HandleFinish(ctx context.Context, participantID model.ParticipantID) error
}

// ServeWS upgrades the connection and bridges it to the race's hub:
// hub events stream out, progress and finish frames come in. Blocks until
// the client disconnects or the hub closes.
func ServeWS(w http.ResponseWriter, r *http.Request, hub *Hub, participantID model.ParticipantID, sink MessageSink, logger *slog.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := NewClient(hub, participantID)
	client.connectedAt = time.Now()
	hub.Register(client)

	done := make(chan struct{})
	go writePump(conn, client, done)
	readPump(r.Context(), conn, participantID, sink, logger)

	hub.Unregister(client)
	close(done)
	_ = conn.Close()
}

// writePump streams hub events and keepalive pings to the connection
func writePump(conn *websocket.Conn, client *Client, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

// readPump consumes inbound frames until the connection drops. Malformed
// frames are logged and skipped; the connection stays up.
func readPump(ctx context.Context, conn *websocket.Conn, participantID model.ParticipantID, sink MessageSink, logger *slog.Logger) {
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn("malformed websocket frame",
				slog.String("participant_id", string(participantID)),
				slog.Any("error", err))
			continue
		}

		switch msg.Type {
		case "progress":
			err = sink.HandleProgress(ctx, participantID, model.Stats{
				Progress: msg.Progress,
				WPM:      msg.WPM,
				Accuracy: msg.Accuracy,
				Errors:   msg.Errors,
			})
		case "finish":
			err = sink.HandleFinish(ctx, participantID)
		default:
			logger.Warn("unknown websocket message type",
				slog.String("type", msg.Type))
			continue
		}
		if err != nil {
			logger.Warn("websocket message rejected",
				slog.String("participant_id", string(participantID)),
				slog.String("type", msg.Type),
				slog.Any("error", err))
		}
	}
}
