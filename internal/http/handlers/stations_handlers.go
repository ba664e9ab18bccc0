package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"chargegrid/internal/aggregator"
	"chargegrid/internal/clients"
	"chargegrid/internal/store"
)

// StationsHandlers serves station discovery and detail.
type StationsHandlers struct {
	agg    *aggregator.Aggregator
	places *clients.PlacesClient
	store  store.Store
	logger *zap.Logger
}

// NewStationsHandlers builds the handler set. places may be nil when
// the mapping provider is not configured.
func NewStationsHandlers(agg *aggregator.Aggregator, places *clients.PlacesClient, st store.Store, logger *zap.Logger) *StationsHandlers {
	return &StationsHandlers{
		agg:    agg,
		places: places,
		store:  st,
		logger: logger,
	}
}

// Nearby handles GET /api/stations/nearby.
func (h *StationsHandlers) Nearby(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	lat, err := strconv.ParseFloat(query.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lat")
		return
	}
	lon, err := strconv.ParseFloat(query.Get("lon"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lon")
		return
	}
	radius := 5000
	if raw := query.Get("radius"); raw != "" {
		radius, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid radius")
			return
		}
	}
	availableOnly := false
	if raw := query.Get("available_only"); raw != "" {
		availableOnly, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid available_only")
			return
		}
	}

	stations, err := h.agg.Discover(r.Context(), aggregator.Query{
		Latitude:      lat,
		Longitude:     lon,
		RadiusM:       radius,
		ConnectorType: query.Get("connector_type"),
		AvailableOnly: availableOnly,
	})
	if err != nil {
		writeOperationError(w, err)
		return
	}

	response := map[string]interface{}{"stations": stations}

	// Mapping-provider places are a separate concern merged at this
	// level, not inside the aggregator. Lookup failure degrades to an
	// empty list.
	if h.places != nil && query.Get("include_places") == "true" {
		places, err := h.places.NearbyStations(r.Context(), lat, lon, radius)
		if err != nil {
			h.logger.Warn("places lookup failed", zap.Error(err))
			places = nil
		}
		response["nearby_places"] = places
	}

	writeJSON(w, http.StatusOK, response)
}

// Detail handles GET /api/stations/{id}.
func (h *StationsHandlers) Detail(w http.ResponseWriter, r *http.Request) {
	stationID := r.PathValue("id")
	provider := r.URL.Query().Get("provider")
	if provider == "" {
		writeError(w, http.StatusBadRequest, "provider is required")
		return
	}

	station, err := h.agg.StationDetail(r.Context(), stationID, provider)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, station)
}

// Availability handles GET /api/stations/{id}/availability from the
// real-time store only; no provider I/O.
func (h *StationsHandlers) Availability(w http.ResponseWriter, r *http.Request) {
	stationID := r.PathValue("id")

	status, err := h.store.StationStatus(r.Context(), stationID)
	if errors.Is(err, store.ErrNoDocument) {
		writeError(w, http.StatusNotFound, "station status not found")
		return
	}
	if err != nil {
		h.logger.Error("station status lookup failed", zap.String("station_id", stationID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch station status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"station_id":         stationID,
		"available_chargers": status.AvailableChargers,
		"total_chargers":     status.TotalChargers,
		"operational":        status.Operational,
		"last_updated":       status.LastUpdated,
	})
}
