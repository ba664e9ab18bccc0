// Package aggregator fans discovery out to every configured charging
// network concurrently and dispatches single-provider operations by
// provider identifier. One provider's failure never invalidates the
// others' results.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"chargegrid/internal/geo"
	"chargegrid/internal/models"
	"chargegrid/internal/providers"
	"chargegrid/internal/store"
)

// ErrUnknownProvider is returned for provider identifiers no adapter
// is registered under. It is a client error: no I/O has happened.
var ErrUnknownProvider = errors.New("aggregator: unknown provider")

// ErrInvalidFilter is returned for malformed discovery filters.
var ErrInvalidFilter = errors.New("aggregator: invalid filter")

// Query describes a discovery request.
type Query struct {
	Latitude      float64
	Longitude     float64
	RadiusM       int
	ConnectorType string
	AvailableOnly bool
}

// Aggregator coordinates the registered adapters and the shared
// real-time store.
type Aggregator struct {
	order    []string
	adapters map[string]providers.Adapter
	store    store.Store
	timeout  time.Duration
	logger   *zap.Logger
}

// New builds an aggregator over the given adapters. Registration
// order defines concatenation order for discovery results. timeout
// bounds each adapter call individually.
func New(adapters []providers.Adapter, st store.Store, timeout time.Duration, logger *zap.Logger) *Aggregator {
	byName := make(map[string]providers.Adapter, len(adapters))
	order := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		byName[adapter.Name()] = adapter
		order = append(order, adapter.Name())
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Aggregator{
		order:    order,
		adapters: byName,
		store:    st,
		timeout:  timeout,
		logger:   logger,
	}
}

// Adapter selects one adapter by provider identifier.
func (a *Aggregator) Adapter(provider string) (providers.Adapter, error) {
	adapter, ok := a.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	return adapter, nil
}

type searchResult struct {
	index    int
	provider string
	stations []models.Station
	err      error
}

// Discover queries every adapter concurrently, tags and concatenates
// the successful results, merges live availability from the store,
// applies filters and sorts by distance. A failing or timed-out
// adapter contributes zero stations. Cross-provider duplicates are
// intentionally not collapsed.
func (a *Aggregator) Discover(ctx context.Context, q Query) ([]models.Station, error) {
	if q.ConnectorType != "" && !models.KnownConnector(q.ConnectorType) {
		return nil, fmt.Errorf("%w: connector type %q", ErrInvalidFilter, q.ConnectorType)
	}
	if q.RadiusM <= 0 {
		return nil, fmt.Errorf("%w: radius must be positive", ErrInvalidFilter)
	}

	results := make(chan searchResult, len(a.order))
	for i, name := range a.order {
		go func(index int, adapter providers.Adapter) {
			callCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			stations, err := adapter.SearchStations(callCtx, q.Latitude, q.Longitude, q.RadiusM)
			results <- searchResult{index: index, provider: adapter.Name(), stations: stations, err: err}
		}(i, a.adapters[name])
	}

	collected := make([][]models.Station, len(a.order))
	for range a.order {
		res := <-results
		if res.err != nil {
			a.logger.Warn("provider search failed",
				zap.String("provider", res.provider),
				zap.Error(res.err))
			continue
		}
		for i := range res.stations {
			res.stations[i].Provider = res.provider
		}
		collected[res.index] = res.stations
	}

	var stations []models.Station
	for _, batch := range collected {
		stations = append(stations, batch...)
	}

	for i := range stations {
		a.mergeAvailability(ctx, &stations[i])
	}

	stations = applyFilters(stations, q)

	for i := range stations {
		if d, ok := distanceFrom(q.Latitude, q.Longitude, stations[i]); ok {
			stations[i].DistanceKm = &d
		}
	}
	sortByDistance(stations)

	return stations, nil
}

// StationDetail fetches one station from its provider and overlays
// live availability.
func (a *Aggregator) StationDetail(ctx context.Context, stationID, provider string) (*models.Station, error) {
	adapter, err := a.Adapter(provider)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	station, err := adapter.StationDetail(callCtx, stationID)
	if err != nil {
		return nil, err
	}
	station.Provider = provider
	a.mergeAvailability(ctx, station)
	return station, nil
}

// mergeAvailability overlays the store's live view when present. The
// store is fresher than provider snapshots because session start/stop
// events update it in real time.
func (a *Aggregator) mergeAvailability(ctx context.Context, station *models.Station) {
	status, err := a.store.StationStatus(ctx, station.ID)
	if errors.Is(err, store.ErrNoDocument) {
		return
	}
	if err != nil {
		a.logger.Warn("station status lookup failed",
			zap.String("station_id", station.ID),
			zap.Error(err))
		return
	}

	station.Live = &models.Availability{
		AvailableChargers: status.AvailableChargers,
		TotalChargers:     status.TotalChargers,
		Operational:       status.Operational,
		LastUpdated:       status.LastUpdated,
	}

	states, err := a.store.ChargerStates(ctx, station.ID)
	if err != nil {
		a.logger.Warn("charger states lookup failed",
			zap.String("station_id", station.ID),
			zap.Error(err))
		return
	}
	for i := range station.Chargers {
		if state, ok := states[station.Chargers[i].ID]; ok {
			station.Chargers[i].Available = state.Available
		}
	}
}

// applyFilters runs after the availability merge so decisions use
// live data. Filtering is idempotent.
func applyFilters(stations []models.Station, q Query) []models.Station {
	if q.ConnectorType == "" && !q.AvailableOnly {
		return stations
	}
	filtered := stations[:0]
	for _, station := range stations {
		if q.ConnectorType != "" && !station.HasConnector(q.ConnectorType) {
			continue
		}
		if q.AvailableOnly && !stationAvailable(station) {
			continue
		}
		filtered = append(filtered, station)
	}
	return filtered
}

func stationAvailable(station models.Station) bool {
	if station.Live != nil {
		return station.Live.AvailableChargers > 0
	}
	return station.AvailableChargerCount() > 0
}

// distanceFrom returns the distance to the query point. Stations
// reporting no coordinates (0,0 is treated as unset) have no
// computable distance.
func distanceFrom(lat, lon float64, station models.Station) (float64, bool) {
	if station.Latitude == 0 && station.Longitude == 0 {
		return 0, false
	}
	return geo.DistanceKm(lat, lon, station.Latitude, station.Longitude), true
}

// sortByDistance orders ascending; stations without a computable
// distance sort last. The sort is stable so equal distances keep
// their pre-sort relative order.
func sortByDistance(stations []models.Station) {
	sort.SliceStable(stations, func(i, j int) bool {
		di, dj := stations[i].DistanceKm, stations[j].DistanceKm
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})
}
