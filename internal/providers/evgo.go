package providers

import (
	"context"
	"fmt"
	"time"

	"chargegrid/internal/models"
)

// ProviderEVgo is the registry identifier for EVgo.
const ProviderEVgo = "evgo"

// EVgo speaks the EVgo location API. Locations carry EVSE records with
// plug-type codes that need mapping onto the normalized connector set.
type EVgo struct {
	base *baseClient
}

// NewEVgo returns the EVgo adapter.
func NewEVgo(baseURL, apiKey string, client HTTPDoer) *EVgo {
	return &EVgo{base: newBaseClient(baseURL, apiKey, client)}
}

// Name implements Adapter.
func (p *EVgo) Name() string { return ProviderEVgo }

type evgoLocation struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Coordinates struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"coordinates"`
	Address   string     `json:"address1"`
	EVSEs     []evgoEVSE `json:"evses"`
	Amenities []string   `json:"siteAmenities"`
	Hours     string     `json:"hours"`
	Rating    *float64   `json:"avgRating,omitempty"`
}

type evgoEVSE struct {
	EVSEID      string  `json:"evseId"`
	PlugType    string  `json:"plugType"`
	MaxPowerKW  float64 `json:"maxPowerKw"`
	IsAvailable bool    `json:"isAvailable"`
	RatePerKWh  float64 `json:"ratePerKwh"`
}

type evgoSession struct {
	ChargeID   string     `json:"chargeId"`
	State      string     `json:"state"`
	LocationID string     `json:"locationId"`
	EVSEID     string     `json:"evseId"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	EnergyKWh  *float64   `json:"totalEnergyKwh,omitempty"`
	Minutes    *int       `json:"totalMinutes,omitempty"`
	PowerKW    *float64   `json:"instantPowerKw,omitempty"`
}

// SearchStations implements Adapter.
func (p *EVgo) SearchStations(ctx context.Context, lat, lon float64, radiusM int) ([]models.Station, error) {
	var resp struct {
		Locations []evgoLocation `json:"locations"`
	}
	path := fmt.Sprintf("/locations/nearby?latitude=%f&longitude=%f&radiusMeters=%d", lat, lon, radiusM)
	if err := p.base.getJSON(ctx, p.Name(), "search_stations", path, &resp); err != nil {
		return nil, err
	}
	stations := make([]models.Station, 0, len(resp.Locations))
	for _, loc := range resp.Locations {
		stations = append(stations, p.normalizeLocation(loc))
	}
	return stations, nil
}

// StationDetail implements Adapter.
func (p *EVgo) StationDetail(ctx context.Context, stationID string) (*models.Station, error) {
	var resp evgoLocation
	if err := p.base.getJSON(ctx, p.Name(), "station_detail", "/locations/"+stationID, &resp); err != nil {
		return nil, err
	}
	station := p.normalizeLocation(resp)
	return &station, nil
}

// StartSession implements Adapter.
func (p *EVgo) StartSession(ctx context.Context, stationID, chargerID, userID string) (*models.Session, error) {
	req := map[string]string{
		"locationId": stationID,
		"evseId":     chargerID,
		"accountRef": userID,
	}
	var resp evgoSession
	if err := p.base.postJSON(ctx, p.Name(), "start_session", "/charges", req, &resp); err != nil {
		return nil, err
	}
	return p.normalizeSession(resp, stationID, chargerID, userID), nil
}

// StopSession implements Adapter.
func (p *EVgo) StopSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var resp evgoSession
	if err := p.base.postJSON(ctx, p.Name(), "stop_session", "/charges/"+sessionID+"/end", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return p.normalizeSession(resp, "", "", ""), nil
}

// SessionStatus implements Adapter.
func (p *EVgo) SessionStatus(ctx context.Context, sessionID string) (*models.Session, error) {
	var resp evgoSession
	if err := p.base.getJSON(ctx, p.Name(), "session_status", "/charges/"+sessionID, &resp); err != nil {
		return nil, err
	}
	return p.normalizeSession(resp, "", "", ""), nil
}

func (p *EVgo) normalizeLocation(loc evgoLocation) models.Station {
	chargers := make([]models.Charger, 0, len(loc.EVSEs))
	for _, evse := range loc.EVSEs {
		chargers = append(chargers, models.Charger{
			ID:            evse.EVSEID,
			ConnectorType: evgoConnector(evse.PlugType),
			PowerKW:       evse.MaxPowerKW,
			Available:     evse.IsAvailable,
			PricePerKWh:   evse.RatePerKWh,
		})
	}
	return models.Station{
		ID:             loc.ID,
		Name:           loc.DisplayName,
		Address:        loc.Address,
		Latitude:       loc.Coordinates.Latitude,
		Longitude:      loc.Coordinates.Longitude,
		Chargers:       chargers,
		Amenities:      loc.Amenities,
		OperatingHours: loc.Hours,
		Rating:         loc.Rating,
	}
}

func (p *EVgo) normalizeSession(s evgoSession, stationID, chargerID, userID string) *models.Session {
	if stationID == "" {
		stationID = s.LocationID
	}
	if chargerID == "" {
		chargerID = s.EVSEID
	}
	return &models.Session{
		ID:              s.ChargeID,
		UserID:          userID,
		StationID:       stationID,
		ChargerID:       chargerID,
		Status:          evgoStatus(s.State),
		StartedAt:       s.StartTime,
		EndedAt:         s.EndTime,
		EnergyKWh:       s.EnergyKWh,
		DurationMinutes: s.Minutes,
		CurrentPowerKW:  s.PowerKW,
	}
}

func evgoConnector(plugType string) string {
	switch plugType {
	case "CCS_COMBO":
		return models.ConnectorCCS
	case "CHADEMO":
		return models.ConnectorCHAdeMO
	case "J1772":
		return models.ConnectorType2
	case "NACS":
		return models.ConnectorTesla
	default:
		return plugType
	}
}

func evgoStatus(state string) string {
	switch state {
	case "charging", "starting":
		return models.SessionStatusActive
	case "complete":
		return models.SessionStatusCompleted
	default:
		return models.SessionStatusFailed
	}
}
