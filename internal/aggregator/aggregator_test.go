package aggregator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"chargegrid/internal/models"
	"chargegrid/internal/providers"
	"chargegrid/internal/store"
)

type fakeAdapter struct {
	name     string
	stations []models.Station
	delay    time.Duration
	err      error
	calls    atomic.Int64
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) SearchStations(ctx context.Context, lat, lon float64, radiusM int) ([]models.Station, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Station, len(f.stations))
	copy(out, f.stations)
	return out, nil
}

func (f *fakeAdapter) StationDetail(ctx context.Context, stationID string) (*models.Station, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	for _, s := range f.stations {
		if s.ID == stationID {
			copied := s
			return &copied, nil
		}
	}
	return nil, &providers.ProviderError{Provider: f.name, Op: "station_detail", Reason: providers.ReasonNotFound}
}

func (f *fakeAdapter) StartSession(context.Context, string, string, string) (*models.Session, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAdapter) StopSession(context.Context, string) (*models.Session, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAdapter) SessionStatus(context.Context, string) (*models.Session, error) {
	return nil, errors.New("not implemented")
}

func station(id string, lat, lon float64, chargers ...models.Charger) models.Station {
	return models.Station{
		ID:        id,
		Name:      "station " + id,
		Latitude:  lat,
		Longitude: lon,
		Chargers:  chargers,
	}
}

func ccs(id string, available bool) models.Charger {
	return models.Charger{ID: id, ConnectorType: models.ConnectorCCS, PowerKW: 50, Available: available}
}

func newTestAggregator(t *testing.T, st store.Store, timeout time.Duration, adapters ...providers.Adapter) *Aggregator {
	t.Helper()
	if st == nil {
		st = store.NewMemoryStore()
	}
	return New(adapters, st, timeout, zap.NewNop())
}

func TestDiscoverPartialFailure(t *testing.T) {
	timeout := 100 * time.Millisecond
	a := &fakeAdapter{name: "A", stations: []models.Station{
		station("a1", 37.01, -122.01, ccs("a1-1", true)),
		station("a2", 37.02, -122.02, ccs("a2-1", true)),
	}}
	b := &fakeAdapter{name: "B", delay: time.Second}
	c := &fakeAdapter{name: "C"}

	agg := newTestAggregator(t, nil, timeout, a, b, c)

	started := time.Now()
	stations, err := agg.Discover(context.Background(), Query{Latitude: 37, Longitude: -122, RadiusM: 5000})
	elapsed := time.Since(started)

	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(stations))
	}
	for _, s := range stations {
		if s.Provider != "A" {
			t.Errorf("station %s tagged %q, want A", s.ID, s.Provider)
		}
	}
	// Bounded by the slowest individual timeout, not the sum.
	if elapsed > 500*time.Millisecond {
		t.Errorf("discovery took %v, want < 500ms", elapsed)
	}
}

func TestDiscoverAllProvidersFail(t *testing.T) {
	a := &fakeAdapter{name: "A", err: errors.New("boom")}
	b := &fakeAdapter{name: "B", err: errors.New("boom")}

	agg := newTestAggregator(t, nil, time.Second, a, b)
	stations, err := agg.Discover(context.Background(), Query{RadiusM: 1000})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(stations) != 0 {
		t.Fatalf("expected degraded empty result, got %d stations", len(stations))
	}
}

func TestDiscoverConcatenationOrderStable(t *testing.T) {
	// Two stations at identical coordinates keep registration order
	// after the stable distance sort.
	a := &fakeAdapter{name: "A", stations: []models.Station{station("same-a", 37.5, -122.5, ccs("c", true))}}
	b := &fakeAdapter{name: "B", stations: []models.Station{station("same-b", 37.5, -122.5, ccs("c", true))}}

	agg := newTestAggregator(t, nil, time.Second, a, b)
	stations, err := agg.Discover(context.Background(), Query{Latitude: 37, Longitude: -122, RadiusM: 1000})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(stations))
	}
	if stations[0].Provider != "A" || stations[1].Provider != "B" {
		t.Errorf("tie order changed: got %s, %s", stations[0].Provider, stations[1].Provider)
	}
}

func TestDiscoverSortsByDistanceMissingLast(t *testing.T) {
	a := &fakeAdapter{name: "A", stations: []models.Station{
		station("far", 38.0, -122.0, ccs("c1", true)),
		station("nocoords", 0, 0, ccs("c2", true)),
		station("near", 37.01, -122.0, ccs("c3", true)),
	}}

	agg := newTestAggregator(t, nil, time.Second, a)
	stations, err := agg.Discover(context.Background(), Query{Latitude: 37, Longitude: -122, RadiusM: 5000})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(stations) != 3 {
		t.Fatalf("expected 3 stations, got %d", len(stations))
	}
	if stations[0].ID != "near" || stations[1].ID != "far" || stations[2].ID != "nocoords" {
		t.Errorf("sort order wrong: %s, %s, %s", stations[0].ID, stations[1].ID, stations[2].ID)
	}
	if stations[2].DistanceKm != nil {
		t.Errorf("station without coordinates should have no distance")
	}
	if stations[0].DistanceKm == nil || stations[1].DistanceKm == nil {
		t.Errorf("stations with coordinates should carry distance")
	}
}

func TestDiscoverConnectorFilter(t *testing.T) {
	a := &fakeAdapter{name: "A", stations: []models.Station{
		station("s1", 37.1, -122.1, models.Charger{ID: "c1", ConnectorType: models.ConnectorCHAdeMO, Available: true}),
		station("s2", 37.1, -122.1, ccs("c2", true)),
	}}

	agg := newTestAggregator(t, nil, time.Second, a)
	q := Query{Latitude: 37, Longitude: -122, RadiusM: 5000, ConnectorType: models.ConnectorCCS}

	stations, err := agg.Discover(context.Background(), q)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(stations) != 1 || stations[0].ID != "s2" {
		t.Fatalf("connector filter failed: %+v", stations)
	}
}

func TestFilterIdempotent(t *testing.T) {
	stations := []models.Station{
		station("s1", 37.1, -122.1, ccs("c1", true)),
		station("s2", 37.1, -122.1, ccs("c2", false)),
		station("s3", 37.1, -122.1, models.Charger{ID: "c3", ConnectorType: models.ConnectorTesla, Available: true}),
	}
	q := Query{ConnectorType: models.ConnectorCCS, AvailableOnly: true}

	once := applyFilters(append([]models.Station(nil), stations...), q)
	twice := applyFilters(append([]models.Station(nil), once...), q)

	if len(once) != len(twice) {
		t.Fatalf("filter not idempotent: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Errorf("filter not idempotent at %d: %s vs %s", i, once[i].ID, twice[i].ID)
		}
	}
	if len(once) != 1 || once[0].ID != "s1" {
		t.Fatalf("filter result wrong: %+v", once)
	}
}

func TestDiscoverInvalidFilter(t *testing.T) {
	a := &fakeAdapter{name: "A"}
	agg := newTestAggregator(t, nil, time.Second, a)

	if _, err := agg.Discover(context.Background(), Query{RadiusM: 1000, ConnectorType: "USB-C"}); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter for connector, got %v", err)
	}
	if _, err := agg.Discover(context.Background(), Query{RadiusM: 0}); !errors.Is(err, ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter for radius, got %v", err)
	}
	if got := a.calls.Load(); got != 0 {
		t.Errorf("invalid filter must be rejected before provider I/O, got %d calls", got)
	}
}

func TestDiscoverMergesLiveAvailability(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	// Provider snapshot says available; the live store disagrees.
	if err := st.SetChargerAvailability(ctx, "s1", "c1", false, 50); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	a := &fakeAdapter{name: "A", stations: []models.Station{
		station("s1", 37.1, -122.1, ccs("c1", true)),
		station("s2", 37.2, -122.2, ccs("c2", true)),
	}}
	agg := newTestAggregator(t, st, time.Second, a)

	stations, err := agg.Discover(ctx, Query{Latitude: 37, Longitude: -122, RadiusM: 5000})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	byID := map[string]models.Station{}
	for _, s := range stations {
		byID[s.ID] = s
	}

	merged := byID["s1"]
	if merged.Live == nil {
		t.Fatalf("expected live availability overlay on s1")
	}
	if merged.Live.AvailableChargers != 0 || merged.Live.TotalChargers != 1 {
		t.Errorf("live counters wrong: %+v", merged.Live)
	}
	if merged.Chargers[0].Available {
		t.Errorf("store value must override adapter-reported availability")
	}

	untouched := byID["s2"]
	if untouched.Live != nil {
		t.Errorf("s2 has no store document, expected no overlay")
	}
	if !untouched.Chargers[0].Available {
		t.Errorf("adapter-reported availability must stand when store is silent")
	}
}

func TestDiscoverAvailableOnlyUsesMergedData(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	// Adapter says available, store says the only charger is taken.
	if err := st.SetChargerAvailability(ctx, "s1", "c1", false, 50); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	a := &fakeAdapter{name: "A", stations: []models.Station{
		station("s1", 37.1, -122.1, ccs("c1", true)),
	}}
	agg := newTestAggregator(t, st, time.Second, a)

	stations, err := agg.Discover(ctx, Query{Latitude: 37, Longitude: -122, RadiusM: 5000, AvailableOnly: true})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(stations) != 0 {
		t.Fatalf("available_only must filter on merged live data, got %+v", stations)
	}
}

func TestUnknownProviderNoIO(t *testing.T) {
	a := &fakeAdapter{name: "A"}
	agg := newTestAggregator(t, nil, time.Second, a)

	if _, err := agg.Adapter("nope"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	if _, err := agg.StationDetail(context.Background(), "s1", "nope"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	if got := a.calls.Load(); got != 0 {
		t.Errorf("unknown provider must not trigger provider I/O, got %d calls", got)
	}
}

func TestStationDetailMergesStatus(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	if err := st.SetChargerAvailability(ctx, "s1", "c1", true, 150); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	a := &fakeAdapter{name: "A", stations: []models.Station{
		station("s1", 37.1, -122.1, ccs("c1", false)),
	}}
	agg := newTestAggregator(t, st, time.Second, a)

	detail, err := agg.StationDetail(ctx, "s1", "A")
	if err != nil {
		t.Fatalf("StationDetail: %v", err)
	}
	if detail.Provider != "A" {
		t.Errorf("detail not provider-tagged: %q", detail.Provider)
	}
	if detail.Live == nil || detail.Live.AvailableChargers != 1 {
		t.Errorf("expected live overlay, got %+v", detail.Live)
	}
	if !detail.Chargers[0].Available {
		t.Errorf("store availability must override snapshot")
	}
}

func TestDiscoverCancellation(t *testing.T) {
	a := &fakeAdapter{name: "A", delay: time.Second}
	agg := newTestAggregator(t, nil, 5*time.Second, a)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	if _, err := agg.Discover(ctx, Query{RadiusM: 1000}); err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if elapsed := time.Since(started); elapsed > 500*time.Millisecond {
		t.Errorf("cancellation did not propagate, discovery took %v", elapsed)
	}
}
