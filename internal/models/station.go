package models

import "time"

// Connector types reported by charging networks.
const (
	ConnectorCCS     = "CCS"
	ConnectorCHAdeMO = "CHAdeMO"
	ConnectorType2   = "Type2"
	ConnectorTesla   = "Tesla"
)

// KnownConnector reports whether the given connector type is one of
// the enumerated values.
func KnownConnector(connector string) bool {
	switch connector {
	case ConnectorCCS, ConnectorCHAdeMO, ConnectorType2, ConnectorTesla:
		return true
	}
	return false
}

// Charger is a single charging point at a station. Availability is
// mutated only by provider sync or live-store overlays.
type Charger struct {
	ID            string  `json:"charger_id"`
	ConnectorType string  `json:"connector_type"`
	PowerKW       float64 `json:"power_kw"`
	Available     bool    `json:"available"`
	PricePerKWh   float64 `json:"price_per_kwh"`
}

// Availability is the live counter summary overlaid from the
// real-time store when present.
type Availability struct {
	AvailableChargers int       `json:"available_chargers"`
	TotalChargers     int       `json:"total_chargers"`
	Operational       bool      `json:"operational"`
	LastUpdated       time.Time `json:"last_updated"`
}

// Station is the normalized station record. Identity is
// (Provider, ID); co-located records from different providers are
// intentionally kept distinct.
type Station struct {
	ID             string        `json:"station_id"`
	Provider       string        `json:"provider"`
	Name           string        `json:"name"`
	Address        string        `json:"address"`
	Latitude       float64       `json:"latitude"`
	Longitude      float64       `json:"longitude"`
	DistanceKm     *float64      `json:"distance_km,omitempty"`
	Chargers       []Charger     `json:"chargers"`
	Amenities      []string      `json:"amenities"`
	OperatingHours string        `json:"operating_hours"`
	Rating         *float64      `json:"rating,omitempty"`
	Live           *Availability `json:"live_availability,omitempty"`
}

// AvailableChargerCount counts chargers currently marked available.
func (s *Station) AvailableChargerCount() int {
	n := 0
	for _, c := range s.Chargers {
		if c.Available {
			n++
		}
	}
	return n
}

// HasConnector reports whether at least one charger matches the
// connector type.
func (s *Station) HasConnector(connector string) bool {
	for _, c := range s.Chargers {
		if c.ConnectorType == connector {
			return true
		}
	}
	return false
}
