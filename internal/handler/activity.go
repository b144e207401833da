package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yourorg/libris/internal/events"
)

const (
	activityWriteWait = 10 * time.Second
	activityPingEvery = 30 * time.Second
)

// ActivityHandler streams loan lifecycle events over a websocket.
type ActivityHandler struct {
	hub            *events.Hub
	logger         *slog.Logger
	allowedOrigins []string
}

// NewActivityHandler creates a new activity feed handler.
func NewActivityHandler(hub *events.Hub, logger *slog.Logger, allowedOrigins []string) *ActivityHandler {
	return &ActivityHandler{
		hub:            hub,
		logger:         logger,
		allowedOrigins: allowedOrigins,
	}
}

func (h *ActivityHandler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients send no origin
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// ServeHTTP handles GET /ws/activity.
func (h *ActivityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := h.getUpgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	eventCh, cancel := h.hub.Subscribe()
	defer cancel()

	h.logger.Debug("activity subscriber connected", slog.String("remote", r.RemoteAddr))

	// Drain client frames so close/pong messages are processed.
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	ticker := time.NewTicker(activityPingEvery)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-eventCh:
			if !ok {
				ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "feed closed"),
					time.Now().Add(activityWriteWait))
				return
			}
			ws.SetWriteDeadline(time.Now().Add(activityWriteWait))
			if err := ws.WriteJSON(ev); err != nil {
				h.logger.Debug("activity subscriber dropped", slog.String("error", err.Error()))
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(activityWriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
