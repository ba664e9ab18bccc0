package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"chargegrid/internal/aggregator"
	"chargegrid/internal/http/middleware"
	"chargegrid/internal/models"
	"chargegrid/internal/orchestrator"
	"chargegrid/internal/providers"
	"chargegrid/internal/store"
)

type stubAdapter struct {
	name     string
	stations []models.Station
	session  *models.Session
	err      error
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) SearchStations(context.Context, float64, float64, int) ([]models.Station, error) {
	return a.stations, a.err
}

func (a *stubAdapter) StationDetail(_ context.Context, id string) (*models.Station, error) {
	if a.err != nil {
		return nil, a.err
	}
	for i := range a.stations {
		if a.stations[i].ID == id {
			s := a.stations[i]
			return &s, nil
		}
	}
	return nil, &providers.ProviderError{Provider: a.name, Op: "station_detail", Reason: providers.ReasonNotFound}
}

func (a *stubAdapter) StartSession(_ context.Context, stationID, chargerID, userID string) (*models.Session, error) {
	if a.err != nil {
		return nil, a.err
	}
	s := *a.session
	s.StationID = stationID
	s.ChargerID = chargerID
	s.UserID = userID
	return &s, nil
}

func (a *stubAdapter) StopSession(context.Context, string) (*models.Session, error) {
	return a.session, a.err
}

func (a *stubAdapter) SessionStatus(context.Context, string) (*models.Session, error) {
	return a.session, a.err
}

func contextWithUser(ctx context.Context, t *testing.T) context.Context {
	t.Helper()
	return middleware.ContextWithUserID(ctx, "u1")
}

func newTestStations(t *testing.T, adapters ...providers.Adapter) (*StationsHandlers, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	agg := aggregator.New(adapters, st, time.Second, zap.NewNop())
	return NewStationsHandlers(agg, nil, st, zap.NewNop()), st
}

func newTestSessions(t *testing.T, adapters ...providers.Adapter) (*SessionsHandlers, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	agg := aggregator.New(adapters, st, time.Second, zap.NewNop())
	orc := orchestrator.New(agg, st, nil, zap.NewNop())
	return NewSessionsHandlers(orc, nil, zap.NewNop()), st
}

func TestNearbyHappyPath(t *testing.T) {
	adapter := &stubAdapter{
		name: "chargepoint",
		stations: []models.Station{{
			ID:       "cp_001",
			Name:     "Downtown",
			Latitude: 37.78,
			Chargers: []models.Charger{{ID: "c1", ConnectorType: models.ConnectorCCS, Available: true}},
		}},
	}
	h, _ := newTestStations(t, adapter)

	req := httptest.NewRequest(http.MethodGet, "/api/stations/nearby?lat=37.77&lon=-122.42", nil)
	rec := httptest.NewRecorder()
	h.Nearby(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Stations []models.Station `json:"stations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Stations) != 1 || resp.Stations[0].Provider != "chargepoint" {
		t.Errorf("stations = %+v", resp.Stations)
	}
}

func TestNearbyRejectsBadCoordinates(t *testing.T) {
	h, _ := newTestStations(t, &stubAdapter{name: "chargepoint"})

	req := httptest.NewRequest(http.MethodGet, "/api/stations/nearby?lat=abc&lon=-122.42", nil)
	rec := httptest.NewRecorder()
	h.Nearby(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestNearbyInvalidConnectorIs400(t *testing.T) {
	h, _ := newTestStations(t, &stubAdapter{name: "chargepoint"})

	req := httptest.NewRequest(http.MethodGet, "/api/stations/nearby?lat=1&lon=2&connector_type=Betamax", nil)
	rec := httptest.NewRecorder()
	h.Nearby(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestDetailUnknownProviderIs400(t *testing.T) {
	h, _ := newTestStations(t, &stubAdapter{name: "chargepoint"})

	req := httptest.NewRequest(http.MethodGet, "/api/stations/cp_001?provider=ghost", nil)
	req.SetPathValue("id", "cp_001")
	rec := httptest.NewRecorder()
	h.Detail(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestDetailNotFoundIs404(t *testing.T) {
	h, _ := newTestStations(t, &stubAdapter{name: "chargepoint"})

	req := httptest.NewRequest(http.MethodGet, "/api/stations/missing?provider=chargepoint", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	h.Detail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAvailabilityStoreOnly(t *testing.T) {
	h, st := newTestStations(t, &stubAdapter{name: "chargepoint"})
	_ = st.SetChargerAvailability(context.Background(), "cp_001", "c1", true, 50)

	req := httptest.NewRequest(http.MethodGet, "/api/stations/cp_001/availability", nil)
	req.SetPathValue("id", "cp_001")
	rec := httptest.NewRecorder()
	h.Availability(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["available_chargers"].(float64) != 1 {
		t.Errorf("response = %v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/stations/ghost/availability", nil)
	req.SetPathValue("id", "ghost")
	rec = httptest.NewRecorder()
	h.Availability(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing status doc should 404, got %d", rec.Code)
	}
}

func TestStartSessionRequiresAuth(t *testing.T) {
	h, _ := newTestSessions(t, &stubAdapter{name: "evgo"})

	body := strings.NewReader(`{"station_id":"s1","charger_id":"c1","provider":"evgo"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/start", body)
	rec := httptest.NewRecorder()
	h.Start(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStartSessionProviderRejectionIs409(t *testing.T) {
	adapter := &stubAdapter{
		name: "evgo",
		err:  &providers.ProviderError{Provider: "evgo", Op: "start_session", Reason: providers.ReasonRejected},
	}
	h, _ := newTestSessions(t, adapter)

	body := strings.NewReader(`{"station_id":"s1","charger_id":"c1","provider":"evgo"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/start", body)
	req = req.WithContext(contextWithUser(req.Context(), t))
	rec := httptest.NewRecorder()
	h.Start(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestStopSessionNotActiveIs409(t *testing.T) {
	h, _ := newTestSessions(t, &stubAdapter{name: "evgo"})

	body := strings.NewReader(`{"provider":"evgo"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions/ghost/stop", body)
	req.SetPathValue("id", "ghost")
	req = req.WithContext(contextWithUser(req.Context(), t))
	rec := httptest.NewRecorder()
	h.Stop(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHistoryWithoutArchiveIsEmpty(t *testing.T) {
	h, _ := newTestSessions(t, &stubAdapter{name: "evgo"})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/history", nil)
	req = req.WithContext(contextWithUser(req.Context(), t))
	rec := httptest.NewRecorder()
	h.History(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Sessions []models.Session `json:"sessions"`
		Total    int              `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Sessions == nil || resp.Total != 0 {
		t.Errorf("response = %+v, body = %s", resp, rec.Body.String())
	}
}
