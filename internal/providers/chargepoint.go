package providers

import (
	"context"
	"fmt"
	"time"

	"chargegrid/internal/models"
)

// ProviderChargePoint is the registry identifier for ChargePoint.
const ProviderChargePoint = "chargepoint"

// ChargePoint speaks the ChargePoint station API. Device records use
// nested geo coordinates and port status strings.
type ChargePoint struct {
	base *baseClient
}

// NewChargePoint returns the ChargePoint adapter.
func NewChargePoint(baseURL, apiKey string, client HTTPDoer) *ChargePoint {
	return &ChargePoint{base: newBaseClient(baseURL, apiKey, client)}
}

// Name implements Adapter.
func (p *ChargePoint) Name() string { return ProviderChargePoint }

type cpStation struct {
	DeviceID    string   `json:"deviceId"`
	StationName string   `json:"stationName"`
	Geo         struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"geo"`
	Address   string   `json:"address"`
	Ports     []cpPort `json:"ports"`
	Amenities []string `json:"amenities"`
	Hours     string   `json:"operatingHours"`
	Rating    *float64 `json:"rating,omitempty"`
}

type cpPort struct {
	OutletID    string  `json:"outletId"`
	Connector   string  `json:"connector"`
	PowerKW     float64 `json:"powerKw"`
	Status      string  `json:"status"`
	PricePerKWh float64 `json:"pricePerKwh"`
}

type cpSession struct {
	SessionID       string     `json:"sessionId"`
	Status          string     `json:"status"`
	DeviceID        string     `json:"deviceId"`
	OutletID        string     `json:"outletId"`
	StartedAt       time.Time  `json:"startedAt"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	EnergyKWh       *float64   `json:"energyKwh,omitempty"`
	DurationMinutes *int       `json:"durationMinutes,omitempty"`
	PowerKW         *float64   `json:"currentPowerKw,omitempty"`
}

// SearchStations implements Adapter.
func (p *ChargePoint) SearchStations(ctx context.Context, lat, lon float64, radiusM int) ([]models.Station, error) {
	var resp struct {
		Stations []cpStation `json:"stations"`
	}
	path := fmt.Sprintf("/stations?lat=%f&lng=%f&radius=%d", lat, lon, radiusM)
	if err := p.base.getJSON(ctx, p.Name(), "search_stations", path, &resp); err != nil {
		return nil, err
	}
	stations := make([]models.Station, 0, len(resp.Stations))
	for _, s := range resp.Stations {
		stations = append(stations, p.normalizeStation(s))
	}
	return stations, nil
}

// StationDetail implements Adapter.
func (p *ChargePoint) StationDetail(ctx context.Context, stationID string) (*models.Station, error) {
	var resp cpStation
	if err := p.base.getJSON(ctx, p.Name(), "station_detail", "/stations/"+stationID, &resp); err != nil {
		return nil, err
	}
	station := p.normalizeStation(resp)
	return &station, nil
}

// StartSession implements Adapter.
func (p *ChargePoint) StartSession(ctx context.Context, stationID, chargerID, userID string) (*models.Session, error) {
	req := map[string]string{
		"deviceId":  stationID,
		"outletId":  chargerID,
		"driverRef": userID,
	}
	var resp cpSession
	if err := p.base.postJSON(ctx, p.Name(), "start_session", "/sessions", req, &resp); err != nil {
		return nil, err
	}
	return p.normalizeSession(resp, stationID, chargerID, userID), nil
}

// StopSession implements Adapter.
func (p *ChargePoint) StopSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var resp cpSession
	if err := p.base.postJSON(ctx, p.Name(), "stop_session", "/sessions/"+sessionID+"/stop", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return p.normalizeSession(resp, "", "", ""), nil
}

// SessionStatus implements Adapter.
func (p *ChargePoint) SessionStatus(ctx context.Context, sessionID string) (*models.Session, error) {
	var resp cpSession
	if err := p.base.getJSON(ctx, p.Name(), "session_status", "/sessions/"+sessionID, &resp); err != nil {
		return nil, err
	}
	return p.normalizeSession(resp, "", "", ""), nil
}

func (p *ChargePoint) normalizeStation(s cpStation) models.Station {
	chargers := make([]models.Charger, 0, len(s.Ports))
	for _, port := range s.Ports {
		chargers = append(chargers, models.Charger{
			ID:            port.OutletID,
			ConnectorType: port.Connector,
			PowerKW:       port.PowerKW,
			Available:     port.Status == "AVAILABLE",
			PricePerKWh:   port.PricePerKWh,
		})
	}
	return models.Station{
		ID:             s.DeviceID,
		Name:           s.StationName,
		Address:        s.Address,
		Latitude:       s.Geo.Lat,
		Longitude:      s.Geo.Lng,
		Chargers:       chargers,
		Amenities:      s.Amenities,
		OperatingHours: s.Hours,
		Rating:         s.Rating,
	}
}

func (p *ChargePoint) normalizeSession(s cpSession, stationID, chargerID, userID string) *models.Session {
	if stationID == "" {
		stationID = s.DeviceID
	}
	if chargerID == "" {
		chargerID = s.OutletID
	}
	return &models.Session{
		ID:              s.SessionID,
		UserID:          userID,
		StationID:       stationID,
		ChargerID:       chargerID,
		Status:          cpStatus(s.Status),
		StartedAt:       s.StartedAt,
		EndedAt:         s.EndedAt,
		EnergyKWh:       s.EnergyKWh,
		DurationMinutes: s.DurationMinutes,
		CurrentPowerKW:  s.PowerKW,
	}
}

func cpStatus(status string) string {
	switch status {
	case "ACTIVE", "CHARGING":
		return models.SessionStatusActive
	case "COMPLETED":
		return models.SessionStatusCompleted
	default:
		return models.SessionStatusFailed
	}
}
