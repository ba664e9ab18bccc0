package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"chargegrid/internal/aggregator"
	"chargegrid/internal/orchestrator"
	"chargegrid/internal/providers"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeOperationError maps core errors onto HTTP statuses: client
// errors are 400s, provider refusals 409, unknown ids 404, provider
// outages 502, session-state conflicts 409.
func writeOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, aggregator.ErrUnknownProvider),
		errors.Is(err, aggregator.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orchestrator.ErrSessionNotActive):
		writeError(w, http.StatusConflict, err.Error())
	case providers.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case providers.IsRejected(err):
		writeError(w, http.StatusConflict, err.Error())
	default:
		var pe *providers.ProviderError
		if errors.As(err, &pe) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
