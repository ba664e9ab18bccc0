// Package orchestrator sequences the charging-session lifecycle
// across exactly one provider and the shared real-time store. The
// provider is always the source of truth for whether charging
// started and for terminal energy/duration; the store mirrors that
// state for clients.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chargegrid/internal/aggregator"
	"chargegrid/internal/models"
	"chargegrid/internal/store"
)

// ErrSessionNotActive is returned when stop is requested for a
// session the store does not hold in active state. The store is not
// mutated and no provider call is made.
var ErrSessionNotActive = errors.New("orchestrator: session not active")

// Archive receives completed sessions for historical record keeping.
type Archive interface {
	Archive(ctx context.Context, session models.Session) error
}

// Notification types pushed to users.
const (
	notifySessionStarted   = "session_started"
	notifySessionCompleted = "session_completed"
)

// Orchestrator drives start/stop/status against one adapter and
// mirrors the outcome into the store. Archive may be nil when no
// history backend is configured.
type Orchestrator struct {
	agg     *aggregator.Aggregator
	store   store.Store
	archive Archive
	logger  *zap.Logger
}

// New builds the orchestrator.
func New(agg *aggregator.Aggregator, st store.Store, archive Archive, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		agg:     agg,
		store:   st,
		archive: archive,
		logger:  logger,
	}
}

// StartSession asks the provider to begin charging and, on success,
// mirrors the session into the store, marks the charger unavailable
// and notifies the user. Store failures after a successful provider
// start are logged for reconciliation, never surfaced: the provider
// says charging started, so the call succeeds.
func (o *Orchestrator) StartSession(ctx context.Context, stationID, chargerID, provider, userID string) (*models.Session, error) {
	adapter, err := o.agg.Adapter(provider)
	if err != nil {
		return nil, err
	}

	session, err := adapter.StartSession(ctx, stationID, chargerID, userID)
	if err != nil {
		return nil, err
	}

	session.Provider = provider
	session.UserID = userID
	if session.StationID == "" {
		session.StationID = stationID
	}
	if session.ChargerID == "" {
		session.ChargerID = chargerID
	}
	session.Status = models.SessionStatusActive
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC()
	}

	// The provider-side session exists now; mirror writes must run
	// even if the caller disconnected.
	writeCtx := context.WithoutCancel(ctx)

	if err := o.store.CreateSession(writeCtx, *session); err != nil {
		o.logger.Warn("session mirror write failed, awaiting reconciliation by status poll",
			zap.String("session_id", session.ID),
			zap.String("provider", provider),
			zap.Error(err))
		return session, nil
	}

	if err := o.store.SetChargerAvailability(writeCtx, stationID, chargerID, false, 0); err != nil {
		o.logger.Warn("charger availability update failed",
			zap.String("station_id", stationID),
			zap.String("charger_id", chargerID),
			zap.Error(err))
	}

	o.notify(writeCtx, userID, store.Notification{
		Type:      notifySessionStarted,
		Title:     "Charging Started",
		Message:   fmt.Sprintf("Your charging session has started at %s", stationID),
		SessionID: session.ID,
	})

	return session, nil
}

// StopSession ends an active session. The stored session must be
// active; otherwise the stop fails with no store mutation and no
// provider I/O. On provider success the terminal report (end time,
// energy, duration) is merged into the store, the record is archived
// and the user notified. Charger availability is not restored here;
// the provider's next availability push governs it.
func (o *Orchestrator) StopSession(ctx context.Context, sessionID, provider string) (*models.Session, error) {
	adapter, err := o.agg.Adapter(provider)
	if err != nil {
		return nil, err
	}

	stored, err := o.store.Session(ctx, sessionID)
	if errors.Is(err, store.ErrNoDocument) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotActive, sessionID)
	}
	if err != nil {
		return nil, err
	}
	if stored.Status != models.SessionStatusActive || stored.Provider != provider {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotActive, sessionID)
	}

	report, err := adapter.StopSession(ctx, sessionID)
	if err != nil {
		// Session stays active in the store; retries are the
		// caller's responsibility.
		return nil, err
	}

	endedAt := time.Now().UTC()
	if report.EndedAt != nil {
		endedAt = *report.EndedAt
	}

	writeCtx := context.WithoutCancel(ctx)

	completed, err := o.store.CompleteSession(writeCtx, sessionID, endedAt, report.EnergyKWh, report.DurationMinutes)
	if err != nil {
		o.logger.Warn("session completion write failed, provider reports session stopped",
			zap.String("session_id", sessionID),
			zap.String("provider", provider),
			zap.Error(err))
		// Fall back to the provider's terminal report merged over
		// the stored record.
		merged := *stored
		merged.Status = models.SessionStatusCompleted
		merged.EndedAt = &endedAt
		merged.EnergyKWh = report.EnergyKWh
		merged.DurationMinutes = report.DurationMinutes
		completed = &merged
	}

	if o.archive != nil {
		if err := o.archive.Archive(writeCtx, *completed); err != nil {
			o.logger.Warn("session archive failed",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}

	energy := 0.0
	if completed.EnergyKWh != nil {
		energy = *completed.EnergyKWh
	}
	o.notify(writeCtx, completed.UserID, store.Notification{
		Type:      notifySessionCompleted,
		Title:     "Charging Completed",
		Message:   fmt.Sprintf("Your charging session has ended. Energy delivered: %.1f kWh", energy),
		SessionID: sessionID,
	})

	return completed, nil
}

// SessionStatus returns the provider's live view of a session. A
// provider-side terminal state for a session the store still holds
// active is logged as divergence but not reconciled here; closing a
// session requires an explicit stop.
func (o *Orchestrator) SessionStatus(ctx context.Context, sessionID, provider string) (*models.Session, error) {
	adapter, err := o.agg.Adapter(provider)
	if err != nil {
		return nil, err
	}

	session, err := adapter.SessionStatus(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Provider = provider

	stored, storeErr := o.store.Session(ctx, sessionID)
	if storeErr == nil {
		if session.UserID == "" {
			session.UserID = stored.UserID
		}
		if session.StationID == "" {
			session.StationID = stored.StationID
		}
		if session.ChargerID == "" {
			session.ChargerID = stored.ChargerID
		}
		if models.TerminalStatus(session.Status) && stored.Status == models.SessionStatusActive {
			o.logger.Warn("session state diverged: provider terminal, store active",
				zap.String("session_id", sessionID),
				zap.String("provider", provider),
				zap.String("provider_status", session.Status))
		}
	} else if !errors.Is(storeErr, store.ErrNoDocument) {
		o.logger.Warn("session lookup failed during status poll",
			zap.String("session_id", sessionID),
			zap.Error(storeErr))
	}

	return session, nil
}

// ActiveSessions lists the user's active sessions from the store,
// enriched best-effort with the provider's live view.
func (o *Orchestrator) ActiveSessions(ctx context.Context, userID string) ([]models.Session, error) {
	sessions, err := o.store.ActiveSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range sessions {
		adapter, err := o.agg.Adapter(sessions[i].Provider)
		if err != nil {
			continue
		}
		live, err := adapter.SessionStatus(ctx, sessions[i].ID)
		if err != nil {
			o.logger.Warn("live status enrichment failed",
				zap.String("session_id", sessions[i].ID),
				zap.String("provider", sessions[i].Provider),
				zap.Error(err))
			continue
		}
		sessions[i].Status = live.Status
		sessions[i].EnergyKWh = live.EnergyKWh
		sessions[i].DurationMinutes = live.DurationMinutes
		sessions[i].CurrentPowerKW = live.CurrentPowerKW
	}

	return sessions, nil
}

func (o *Orchestrator) notify(ctx context.Context, userID string, n store.Notification) {
	n.ID = uuid.NewString()
	if err := o.store.PushNotification(ctx, userID, n); err != nil {
		o.logger.Warn("notification push failed",
			zap.String("user_id", userID),
			zap.String("type", n.Type),
			zap.Error(err))
	}
}
