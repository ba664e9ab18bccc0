package models

import "time"

// Session status values. The provider is authoritative for
// energy/duration; the real-time store is the system of record for
// client-visible state.
const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusFailed    = "failed"
)

// TerminalStatus reports whether the status ends a session's lifecycle.
func TerminalStatus(status string) bool {
	return status == SessionStatusCompleted || status == SessionStatusFailed
}

// Session is a charging session. Identity is (Provider, ID) where ID
// is issued by the provider on start.
type Session struct {
	ID              string     `json:"session_id"`
	UserID          string     `json:"user_id"`
	StationID       string     `json:"station_id"`
	ChargerID       string     `json:"charger_id"`
	Provider        string     `json:"provider"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	EnergyKWh       *float64   `json:"energy_delivered_kwh,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	CurrentPowerKW  *float64   `json:"current_power_kw,omitempty"`
}
