package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"chargegrid/internal/models"
)

const (
	dialTimeout  = 5 * time.Second
	readTimeout  = 3 * time.Second
	writeTimeout = 3 * time.Second
)

// NewRedisClient returns a configured go-redis client and validates
// the connection with PING.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("store: redis addr is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// RedisStore implements Store on Redis. Station status and session
// documents are JSON values; per-charger documents live in a hash so
// a single charger update never touches its siblings.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func stationStatusKey(stationID string) string { return "stations:" + stationID + ":status" }
func chargersKey(stationID string) string      { return "stations:" + stationID + ":chargers" }
func sessionKey(sessionID string) string       { return "sessions:" + sessionID }
func activeSetKey(userID string) string        { return "users:" + userID + ":active_sessions" }
func notificationsKey(userID string) string    { return "users:" + userID + ":notifications" }
func notifyChannel(userID string) string       { return "notify:" + userID }

// StationStatus implements Store.
func (s *RedisStore) StationStatus(ctx context.Context, stationID string) (*StationStatus, error) {
	data, err := s.client.Get(ctx, stationStatusKey(stationID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	var status StationStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SetStationStatus implements Store.
func (s *RedisStore) SetStationStatus(ctx context.Context, stationID string, status StationStatus) error {
	if status.LastUpdated.IsZero() {
		status.LastUpdated = time.Now().UTC()
	}
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, stationStatusKey(stationID), data, 0).Err()
}

// SetChargerAvailability implements Store. The charger document is a
// single hash field, then the station counters are recomputed from
// the full hash, mirroring how availability events land one charger
// at a time.
func (s *RedisStore) SetChargerAvailability(ctx context.Context, stationID, chargerID string, available bool, powerKW float64) error {
	state := ChargerState{
		Available:   available,
		PowerKW:     powerKW,
		LastUpdated: time.Now().UTC(),
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, chargersKey(stationID), chargerID, data).Err(); err != nil {
		return err
	}
	return s.recomputeStationStatus(ctx, stationID)
}

// ChargerStates implements Store.
func (s *RedisStore) ChargerStates(ctx context.Context, stationID string) (map[string]ChargerState, error) {
	entries, err := s.client.HGetAll(ctx, chargersKey(stationID)).Result()
	if err != nil {
		return nil, err
	}
	states := make(map[string]ChargerState, len(entries))
	for id, raw := range entries {
		var state ChargerState
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			return nil, err
		}
		states[id] = state
	}
	return states, nil
}

func (s *RedisStore) recomputeStationStatus(ctx context.Context, stationID string) error {
	states, err := s.ChargerStates(ctx, stationID)
	if err != nil {
		return err
	}
	available := 0
	for _, state := range states {
		if state.Available {
			available++
		}
	}
	return s.SetStationStatus(ctx, stationID, StationStatus{
		AvailableChargers: available,
		TotalChargers:     len(states),
		Operational:       available > 0,
		LastUpdated:       time.Now().UTC(),
	})
}

// CreateSession implements Store.
func (s *RedisStore) CreateSession(ctx context.Context, session models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), data, 0)
	pipe.SAdd(ctx, activeSetKey(session.UserID), session.ID)
	_, err = pipe.Exec(ctx)
	return err
}

// Session implements Store.
func (s *RedisStore) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, err
	}
	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CompleteSession implements Store. The merge runs under WATCH so a
// concurrent update to the same session is not silently overwritten.
func (s *RedisStore) CompleteSession(ctx context.Context, sessionID string, endedAt time.Time, energyKWh *float64, durationMinutes *int) (*models.Session, error) {
	key := sessionKey(sessionID)
	var completed *models.Session

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return ErrNoDocument
		}
		if err != nil {
			return err
		}
		var session models.Session
		if err := json.Unmarshal([]byte(data), &session); err != nil {
			return err
		}

		session.Status = models.SessionStatusCompleted
		ended := endedAt.UTC()
		session.EndedAt = &ended
		if energyKWh != nil {
			session.EnergyKWh = energyKWh
		}
		if durationMinutes != nil {
			session.DurationMinutes = durationMinutes
		}
		session.CurrentPowerKW = nil

		updated, err := json.Marshal(session)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			pipe.SRem(ctx, activeSetKey(session.UserID), sessionID)
			return nil
		})
		if err != nil {
			return err
		}
		completed = &session
		return nil
	}, key)
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// ActiveSessions implements Store. Index entries whose session
// document has vanished are skipped.
func (s *RedisStore) ActiveSessions(ctx context.Context, userID string) ([]models.Session, error) {
	ids, err := s.client.SMembers(ctx, activeSetKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	sessions := make([]models.Session, 0, len(ids))
	for _, id := range ids {
		session, err := s.Session(ctx, id)
		if errors.Is(err, ErrNoDocument) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

// PushNotification implements Store.
func (s *RedisStore) PushNotification(ctx context.Context, userID string, n Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, notificationsKey(userID), data)
	pipe.Publish(ctx, notifyChannel(userID), data)
	_, err = pipe.Exec(ctx)
	return err
}

// SubscribeNotifications implements Store via redis pub/sub.
func (s *RedisStore) SubscribeNotifications(ctx context.Context, userID string) (<-chan Notification, func(), error) {
	sub := s.client.Subscribe(ctx, notifyChannel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, err
	}

	out := make(chan Notification, 16)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var n Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				continue
			}
			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := func() { _ = sub.Close() }
	return out, stop, nil
}
