package geo

import (
	"math"
	"testing"
)

func TestDistanceKm(t *testing.T) {
	cases := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
		tolerance              float64
	}{
		{"same point", 37.7749, -122.4194, 37.7749, -122.4194, 0, 0.001},
		{"sf to oakland", 37.7749, -122.4194, 37.8044, -122.2712, 13.5, 1.0},
		{"sf to la", 37.7749, -122.4194, 34.0522, -118.2437, 559, 5.0},
		{"across equator", 1.0, 0.0, -1.0, 0.0, 222.4, 1.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DistanceKm(tc.lat1, tc.lon1, tc.lat2, tc.lon2)
			if math.Abs(got-tc.wantKm) > tc.tolerance {
				t.Errorf("DistanceKm = %.3f, want %.1f ± %.1f", got, tc.wantKm, tc.tolerance)
			}
		})
	}
}

func TestDistanceKmSymmetric(t *testing.T) {
	a := DistanceKm(37.7749, -122.4194, 40.7128, -74.0060)
	b := DistanceKm(40.7128, -74.0060, 37.7749, -122.4194)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", a, b)
	}
}
