package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chargegrid/internal/http/middleware"
	"chargegrid/internal/store"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

// NotificationsHandler streams a user's notifications over a
// websocket, backed by the store's subscription.
type NotificationsHandler struct {
	store    store.Store
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewNotificationsHandler builds the handler.
func NewNotificationsHandler(st store.Store, logger *zap.Logger) *NotificationsHandler {
	return &NotificationsHandler{
		store:  st,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Stream handles GET /api/notifications/stream.
func (h *NotificationsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	notifications, stop, err := h.store.SubscribeNotifications(r.Context(), userID)
	if err != nil {
		h.logger.Error("notification subscribe failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	defer stop()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Drain client frames so close/pong handling works.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(n); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
