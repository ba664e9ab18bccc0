// Package archive persists completed sessions to Postgres for
// history queries. The real-time store keeps only live state; this is
// the durable copy made when a session completes.
package archive

import (
	"context"
	"database/sql"

	"chargegrid/internal/models"
)

// SessionArchive stores and lists completed sessions.
type SessionArchive struct {
	db *sql.DB
}

// NewSessionArchive returns the repository.
func NewSessionArchive(db *sql.DB) *SessionArchive {
	return &SessionArchive{db: db}
}

// Archive upserts a completed session keyed by (provider, session id),
// so replays of the same stop event are harmless.
func (a *SessionArchive) Archive(ctx context.Context, session models.Session) error {
	const query = `
		INSERT INTO session_archive (
			session_id, provider, user_id, station_id, charger_id,
			status, started_at, ended_at, energy_kwh, duration_minutes, archived_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (provider, session_id) DO UPDATE SET
			status = EXCLUDED.status,
			ended_at = EXCLUDED.ended_at,
			energy_kwh = EXCLUDED.energy_kwh,
			duration_minutes = EXCLUDED.duration_minutes,
			archived_at = NOW()
	`
	_, err := a.db.ExecContext(ctx, query,
		session.ID,
		session.Provider,
		session.UserID,
		session.StationID,
		session.ChargerID,
		session.Status,
		session.StartedAt,
		session.EndedAt,
		session.EnergyKWh,
		session.DurationMinutes,
	)
	return err
}

// ListByUser returns a page of the user's archived sessions, newest
// first.
func (a *SessionArchive) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Session, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
		SELECT session_id, provider, user_id, station_id, charger_id,
		       status, started_at, ended_at, energy_kwh, duration_minutes
		FROM session_archive
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := a.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(
			&s.ID,
			&s.Provider,
			&s.UserID,
			&s.StationID,
			&s.ChargerID,
			&s.Status,
			&s.StartedAt,
			&s.EndedAt,
			&s.EnergyKWh,
			&s.DurationMinutes,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
