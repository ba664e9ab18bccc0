// Package providers defines the uniform capability set implemented by
// every charging-network integration and the HTTP plumbing they share.
package providers

import (
	"context"

	"chargegrid/internal/models"
)

// Adapter is the capability set every charging network implements.
// Adapters are stateless across calls; the shared store is the only
// persisted state. Returned stations are not provider-tagged; the
// aggregator tags them.
type Adapter interface {
	// Name returns the provider identifier this adapter is registered
	// under.
	Name() string

	// SearchStations returns stations near the point. An empty result
	// is not an error; errors indicate transport or auth failure.
	SearchStations(ctx context.Context, lat, lon float64, radiusM int) ([]models.Station, error)

	// StationDetail returns one station or a not-found ProviderError.
	StationDetail(ctx context.Context, stationID string) (*models.Station, error)

	// StartSession asks the network to begin charging. Failures
	// (charger busy, auth, timeout) come back as a single ProviderError
	// whose Reason carries the distinction.
	StartSession(ctx context.Context, stationID, chargerID, userID string) (*models.Session, error)

	// StopSession ends an active session and returns the provider's
	// terminal report (energy, duration, end time).
	StopSession(ctx context.Context, sessionID string) (*models.Session, error)

	// SessionStatus returns the provider's live view of a session.
	SessionStatus(ctx context.Context, sessionID string) (*models.Session, error)
}
