// Package store defines the shared real-time store contract: the
// system of record for client-visible station and session state.
// Writes are small-scoped partial updates so unrelated concurrent
// updates never clobber each other; readers treat it as eventually
// consistent.
package store

import (
	"context"
	"errors"
	"time"

	"chargegrid/internal/models"
)

// ErrNoDocument indicates the addressed document does not exist.
var ErrNoDocument = errors.New("store: no document")

// StationStatus is the live counter summary for one station, updated
// by session start/stop events.
type StationStatus struct {
	AvailableChargers int       `json:"available_chargers"`
	TotalChargers     int       `json:"total_chargers"`
	Operational       bool      `json:"operational"`
	LastUpdated       time.Time `json:"last_updated"`
}

// ChargerState is the live per-charger document.
type ChargerState struct {
	Available   bool      `json:"available"`
	PowerKW     float64   `json:"power_kw"`
	LastUpdated time.Time `json:"last_updated"`
}

// Notification is appended to a per-user list and fanned out to live
// stream subscribers.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	SessionID string    `json:"session_id,omitempty"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the shared real-time store used by the aggregator
// (availability merge) and the session orchestrator (session mirror).
type Store interface {
	// StationStatus returns the live status document for a station,
	// or ErrNoDocument when none exists.
	StationStatus(ctx context.Context, stationID string) (*StationStatus, error)

	// SetStationStatus replaces the station status document.
	SetStationStatus(ctx context.Context, stationID string, status StationStatus) error

	// SetChargerAvailability partially updates one charger document
	// and recomputes the station's availability counters.
	SetChargerAvailability(ctx context.Context, stationID, chargerID string, available bool, powerKW float64) error

	// ChargerStates returns the live per-charger documents for a
	// station, keyed by charger id. Missing station yields an empty map.
	ChargerStates(ctx context.Context, stationID string) (map[string]ChargerState, error)

	// CreateSession writes a session document and indexes it in the
	// owning user's active-session set.
	CreateSession(ctx context.Context, session models.Session) error

	// Session returns a session document or ErrNoDocument.
	Session(ctx context.Context, sessionID string) (*models.Session, error)

	// CompleteSession merges the provider's terminal report into the
	// session document, marks it completed and removes the active
	// index entry. The target session must exist.
	CompleteSession(ctx context.Context, sessionID string, endedAt time.Time, energyKWh *float64, durationMinutes *int) (*models.Session, error)

	// ActiveSessions returns the user's currently indexed sessions.
	ActiveSessions(ctx context.Context, userID string) ([]models.Session, error)

	// PushNotification appends to the user's notification list and
	// publishes to live subscribers.
	PushNotification(ctx context.Context, userID string, n Notification) error

	// SubscribeNotifications streams notifications pushed for the
	// user until ctx is done. The returned stop function releases the
	// subscription.
	SubscribeNotifications(ctx context.Context, userID string) (<-chan Notification, func(), error)
}
