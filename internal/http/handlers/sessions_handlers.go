package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"chargegrid/internal/archive"
	"chargegrid/internal/http/middleware"
	"chargegrid/internal/models"
	"chargegrid/internal/orchestrator"
)

// SessionsHandlers serves session lifecycle endpoints.
type SessionsHandlers struct {
	orc     *orchestrator.Orchestrator
	archive *archive.SessionArchive
	logger  *zap.Logger
}

// NewSessionsHandlers builds the handler set. archive may be nil when
// no history backend is configured.
func NewSessionsHandlers(orc *orchestrator.Orchestrator, arch *archive.SessionArchive, logger *zap.Logger) *SessionsHandlers {
	return &SessionsHandlers{
		orc:     orc,
		archive: arch,
		logger:  logger,
	}
}

type sessionStartRequest struct {
	StationID string `json:"station_id"`
	ChargerID string `json:"charger_id"`
	Provider  string `json:"provider"`
}

type sessionStopRequest struct {
	Provider string `json:"provider"`
}

// Start handles POST /api/sessions/start.
func (h *SessionsHandlers) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req sessionStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.StationID == "" || req.ChargerID == "" || req.Provider == "" {
		writeError(w, http.StatusBadRequest, "station_id, charger_id and provider are required")
		return
	}

	session, err := h.orc.StartSession(r.Context(), req.StationID, req.ChargerID, req.Provider, userID)
	if err != nil {
		h.logger.Error("start session failed",
			zap.String("provider", req.Provider),
			zap.String("station_id", req.StationID),
			zap.Error(err))
		writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// Stop handles POST /api/sessions/{id}/stop.
func (h *SessionsHandlers) Stop(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req sessionStopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}

	session, err := h.orc.StopSession(r.Context(), sessionID, req.Provider)
	if err != nil {
		h.logger.Error("stop session failed",
			zap.String("session_id", sessionID),
			zap.String("provider", req.Provider),
			zap.Error(err))
		writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Status handles GET /api/sessions/{id}/status.
func (h *SessionsHandlers) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}

	session, err := h.orc.SessionStatus(r.Context(), sessionID, provider)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Active handles GET /api/sessions/active.
func (h *SessionsHandlers) Active(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	sessions, err := h.orc.ActiveSessions(r.Context(), userID)
	if err != nil {
		h.logger.Error("active sessions lookup failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch active sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// History handles GET /api/sessions/history.
func (h *SessionsHandlers) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	sessions := []models.Session{}
	if h.archive != nil {
		var err error
		sessions, err = h.archive.ListByUser(r.Context(), userID, limit, offset)
		if err != nil {
			h.logger.Error("history lookup failed", zap.String("user_id", userID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to fetch session history")
			return
		}
		if sessions == nil {
			sessions = []models.Session{}
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"total":    len(sessions),
		"limit":    limit,
		"offset":   offset,
	})
}
