// Package clients holds HTTP clients for external collaborators that
// are not charging networks.
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Place is a mapping-provider result near a query point. Places are
// merged into discovery responses by the stations handler, never by
// the aggregator: the mapping provider knows nothing about chargers.
type Place struct {
	PlaceID   string   `json:"place_id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Rating    *float64 `json:"rating,omitempty"`
	OpenNow   *bool    `json:"open_now,omitempty"`
}

// HTTPDoer defines the http.Client interface subset used here.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// PlacesClient queries a places API for charging-related points of
// interest.
type PlacesClient struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
}

// NewPlacesClient returns the client; a nil result means places
// lookup is not configured.
func NewPlacesClient(baseURL, apiKey string, client HTTPDoer) *PlacesClient {
	if strings.TrimSpace(baseURL) == "" {
		return nil
	}
	return &PlacesClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

type placesResponse struct {
	Results []struct {
		PlaceID  string `json:"place_id"`
		Name     string `json:"name"`
		Vicinity string `json:"vicinity"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
		Rating       *float64 `json:"rating,omitempty"`
		OpeningHours *struct {
			OpenNow bool `json:"open_now"`
		} `json:"opening_hours,omitempty"`
	} `json:"results"`
}

// NearbyStations searches for charging stations near the point.
func (c *PlacesClient) NearbyStations(ctx context.Context, lat, lon float64, radiusM int) ([]Place, error) {
	url := fmt.Sprintf("%s/nearbysearch/json?location=%f,%f&radius=%d&type=charging_station&key=%s",
		c.baseURL, lat, lon, radiusM, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("places: upstream status %d", resp.StatusCode)
	}

	var decoded placesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		place := Place{
			PlaceID:   r.PlaceID,
			Name:      r.Name,
			Address:   r.Vicinity,
			Latitude:  r.Geometry.Location.Lat,
			Longitude: r.Geometry.Location.Lng,
			Rating:    r.Rating,
		}
		if r.OpeningHours != nil {
			open := r.OpeningHours.OpenNow
			place.OpenNow = &open
		}
		places = append(places, place)
	}
	return places, nil
}
