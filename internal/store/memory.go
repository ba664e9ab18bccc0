package store

import (
	"context"
	"sync"
	"time"

	"chargegrid/internal/models"
)

// MemoryStore implements Store in process memory. It backs local
// development runs without Redis and the package tests; semantics
// match RedisStore, including partial per-charger updates and counter
// recomputation.
type MemoryStore struct {
	mu       sync.RWMutex
	statuses map[string]StationStatus
	chargers map[string]map[string]ChargerState
	sessions map[string]models.Session
	active   map[string]map[string]struct{}
	inbox    map[string][]Notification
	subs     map[string]map[int]chan Notification
	nextSub  int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statuses: make(map[string]StationStatus),
		chargers: make(map[string]map[string]ChargerState),
		sessions: make(map[string]models.Session),
		active:   make(map[string]map[string]struct{}),
		inbox:    make(map[string][]Notification),
		subs:     make(map[string]map[int]chan Notification),
	}
}

// StationStatus implements Store.
func (s *MemoryStore) StationStatus(_ context.Context, stationID string) (*StationStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.statuses[stationID]
	if !ok {
		return nil, ErrNoDocument
	}
	return &status, nil
}

// SetStationStatus implements Store.
func (s *MemoryStore) SetStationStatus(_ context.Context, stationID string, status StationStatus) error {
	if status.LastUpdated.IsZero() {
		status.LastUpdated = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[stationID] = status
	return nil
}

// SetChargerAvailability implements Store.
func (s *MemoryStore) SetChargerAvailability(_ context.Context, stationID, chargerID string, available bool, powerKW float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byCharger, ok := s.chargers[stationID]
	if !ok {
		byCharger = make(map[string]ChargerState)
		s.chargers[stationID] = byCharger
	}
	byCharger[chargerID] = ChargerState{
		Available:   available,
		PowerKW:     powerKW,
		LastUpdated: time.Now().UTC(),
	}

	availableCount := 0
	for _, state := range byCharger {
		if state.Available {
			availableCount++
		}
	}
	s.statuses[stationID] = StationStatus{
		AvailableChargers: availableCount,
		TotalChargers:     len(byCharger),
		Operational:       availableCount > 0,
		LastUpdated:       time.Now().UTC(),
	}
	return nil
}

// ChargerStates implements Store.
func (s *MemoryStore) ChargerStates(_ context.Context, stationID string) (map[string]ChargerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make(map[string]ChargerState, len(s.chargers[stationID]))
	for id, state := range s.chargers[stationID] {
		states[id] = state
	}
	return states, nil
}

// CreateSession implements Store.
func (s *MemoryStore) CreateSession(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	set, ok := s.active[session.UserID]
	if !ok {
		set = make(map[string]struct{})
		s.active[session.UserID] = set
	}
	set[session.ID] = struct{}{}
	return nil
}

// Session implements Store.
func (s *MemoryStore) Session(_ context.Context, sessionID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNoDocument
	}
	return &session, nil
}

// CompleteSession implements Store.
func (s *MemoryStore) CompleteSession(_ context.Context, sessionID string, endedAt time.Time, energyKWh *float64, durationMinutes *int) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNoDocument
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
	s.sessions[sessionID] = session

	if set, ok := s.active[session.UserID]; ok {
		delete(set, sessionID)
	}
	return &session, nil
}

// ActiveSessions implements Store.
func (s *MemoryStore) ActiveSessions(_ context.Context, userID string) ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]models.Session, 0, len(s.active[userID]))
	for id := range s.active[userID] {
		if session, ok := s.sessions[id]; ok {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

// PushNotification implements Store.
func (s *MemoryStore) PushNotification(_ context.Context, userID string, n Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbox[userID] = append(s.inbox[userID], n)
	for _, ch := range s.subs[userID] {
		select {
		case ch <- n:
		default:
		}
	}
	return nil
}

// Notifications returns the user's appended notification list.
func (s *MemoryStore) Notifications(userID string) []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, len(s.inbox[userID]))
	copy(out, s.inbox[userID])
	return out
}

// SubscribeNotifications implements Store.
func (s *MemoryStore) SubscribeNotifications(ctx context.Context, userID string) (<-chan Notification, func(), error) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Notification, 16)
	if s.subs[userID] == nil {
		s.subs[userID] = make(map[int]chan Notification)
	}
	s.subs[userID][id] = ch
	s.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[userID], id)
			s.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		<-ctx.Done()
		stop()
	}()

	return ch, stop, nil
}
