package http

import (
	"log/slog"
	"net/http"

	"aptitude-service/internal/app"
	"github.com/gorilla/websocket"
)

// WSHandler streams per-test leaderboard snapshots to WebSocket clients.
type WSHandler struct {
	service  *app.ScoringService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ScoringService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and pushes a "leaderboard" message for the
// current standings and again after every new submission on the test.
// Clients may send {"type":"refresh"} to get the board on demand.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	testID := r.URL.Query().Get("testId")
	if testID == "" {
		http.Error(w, "missing testId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.service.Subscribe(r.Context(), testID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				slog.Debug("ws write failed", "test_id", testID, "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	push := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "refresh":
			lb, err := h.service.TestLeaderboard(r.Context(), testID, h.service.DefaultLimit())
			if err != nil {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			push(outboundMessage[any]{Type: "leaderboard", Payload: lb})
		default:
			push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
