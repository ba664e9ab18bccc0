package providers

import (
	"context"
	"fmt"
	"time"

	"chargegrid/internal/models"
)

// ProviderElectrifyAmerica is the registry identifier for
// Electrify America.
const ProviderElectrifyAmerica = "electrify_america"

// ElectrifyAmerica speaks the Electrify America charging API. Pricing
// sits in a nested object and charger state is a lowercase word.
type ElectrifyAmerica struct {
	base *baseClient
}

// NewElectrifyAmerica returns the Electrify America adapter.
func NewElectrifyAmerica(baseURL, apiKey string, client HTTPDoer) *ElectrifyAmerica {
	return &ElectrifyAmerica{base: newBaseClient(baseURL, apiKey, client)}
}

// Name implements Adapter.
func (p *ElectrifyAmerica) Name() string { return ProviderElectrifyAmerica }

type eaLocation struct {
	LocationID    string      `json:"locationId"`
	Name          string      `json:"name"`
	Lat           float64     `json:"lat"`
	Lon           float64     `json:"lon"`
	StreetAddress string      `json:"streetAddress"`
	Chargers      []eaCharger `json:"chargers"`
	Amenities     []string    `json:"amenities"`
	Hours         string      `json:"hoursOfOperation"`
	Rating        *float64    `json:"rating,omitempty"`
}

type eaCharger struct {
	ID            string  `json:"id"`
	ConnectorType string  `json:"connectorType"`
	PowerKW       float64 `json:"powerKw"`
	State         string  `json:"state"`
	Pricing       struct {
		PerKWh float64 `json:"perKwh"`
	} `json:"pricing"`
}

type eaSession struct {
	ID         string     `json:"id"`
	Status     string     `json:"status"`
	LocationID string     `json:"locationId"`
	ChargerID  string     `json:"chargerId"`
	Started    time.Time  `json:"started"`
	Ended      *time.Time `json:"ended,omitempty"`
	EnergyKWh  *float64   `json:"energyDeliveredKwh,omitempty"`
	Minutes    *int       `json:"durationMin,omitempty"`
	PowerKW    *float64   `json:"powerKw,omitempty"`
}

// SearchStations implements Adapter.
func (p *ElectrifyAmerica) SearchStations(ctx context.Context, lat, lon float64, radiusM int) ([]models.Station, error) {
	var resp struct {
		Results []eaLocation `json:"results"`
	}
	path := fmt.Sprintf("/locations?lat=%f&lon=%f&radius_m=%d", lat, lon, radiusM)
	if err := p.base.getJSON(ctx, p.Name(), "search_stations", path, &resp); err != nil {
		return nil, err
	}
	stations := make([]models.Station, 0, len(resp.Results))
	for _, loc := range resp.Results {
		stations = append(stations, p.normalizeLocation(loc))
	}
	return stations, nil
}

// StationDetail implements Adapter.
func (p *ElectrifyAmerica) StationDetail(ctx context.Context, stationID string) (*models.Station, error) {
	var resp eaLocation
	if err := p.base.getJSON(ctx, p.Name(), "station_detail", "/locations/"+stationID, &resp); err != nil {
		return nil, err
	}
	station := p.normalizeLocation(resp)
	return &station, nil
}

// StartSession implements Adapter.
func (p *ElectrifyAmerica) StartSession(ctx context.Context, stationID, chargerID, userID string) (*models.Session, error) {
	req := map[string]string{
		"locationId": stationID,
		"chargerId":  chargerID,
		"customerId": userID,
	}
	var resp eaSession
	if err := p.base.postJSON(ctx, p.Name(), "start_session", "/sessions/start", req, &resp); err != nil {
		return nil, err
	}
	return p.normalizeSession(resp, stationID, chargerID, userID), nil
}

// StopSession implements Adapter.
func (p *ElectrifyAmerica) StopSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var resp eaSession
	if err := p.base.postJSON(ctx, p.Name(), "stop_session", "/sessions/"+sessionID+"/stop", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return p.normalizeSession(resp, "", "", ""), nil
}

// SessionStatus implements Adapter.
func (p *ElectrifyAmerica) SessionStatus(ctx context.Context, sessionID string) (*models.Session, error) {
	var resp eaSession
	if err := p.base.getJSON(ctx, p.Name(), "session_status", "/sessions/"+sessionID, &resp); err != nil {
		return nil, err
	}
	return p.normalizeSession(resp, "", "", ""), nil
}

func (p *ElectrifyAmerica) normalizeLocation(loc eaLocation) models.Station {
	chargers := make([]models.Charger, 0, len(loc.Chargers))
	for _, c := range loc.Chargers {
		chargers = append(chargers, models.Charger{
			ID:            c.ID,
			ConnectorType: c.ConnectorType,
			PowerKW:       c.PowerKW,
			Available:     c.State == "available",
			PricePerKWh:   c.Pricing.PerKWh,
		})
	}
	return models.Station{
		ID:             loc.LocationID,
		Name:           loc.Name,
		Address:        loc.StreetAddress,
		Latitude:       loc.Lat,
		Longitude:      loc.Lon,
		Chargers:       chargers,
		Amenities:      loc.Amenities,
		OperatingHours: loc.Hours,
		Rating:         loc.Rating,
	}
}

func (p *ElectrifyAmerica) normalizeSession(s eaSession, stationID, chargerID, userID string) *models.Session {
	if stationID == "" {
		stationID = s.LocationID
	}
	if chargerID == "" {
		chargerID = s.ChargerID
	}
	return &models.Session{
		ID:              s.ID,
		UserID:          userID,
		StationID:       stationID,
		ChargerID:       chargerID,
		Status:          eaStatus(s.Status),
		StartedAt:       s.Started,
		EndedAt:         s.Ended,
		EnergyKWh:       s.EnergyKWh,
		DurationMinutes: s.Minutes,
		CurrentPowerKW:  s.PowerKW,
	}
}

func eaStatus(status string) string {
	switch status {
	case "IN_PROGRESS":
		return models.SessionStatusActive
	case "FINISHED":
		return models.SessionStatusCompleted
	default:
		return models.SessionStatusFailed
	}
}
