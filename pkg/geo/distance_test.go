package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umahmood/haversine"
)

func TestDistanceKmSamePointIsZero(t *testing.T) {
	points := []struct{ lat, lng float64 }{
		{55.75, 37.61},
		{0, 0},
		{-33.8688, 151.2093},
		{89.9999, -179.9999},
		{55.755826, 37.6173},
	}

	for _, p := range points {
		d := DistanceKm(p.lat, p.lng, p.lat, p.lng)
		require.False(t, math.IsNaN(d), "distance at (%v, %v) is NaN", p.lat, p.lng)
		assert.InDelta(t, 0, d, 1e-6)
	}
}

func TestDistanceKmMatchesHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
	}{
		{"moscow to saint petersburg", 55.7558, 37.6173, 59.9311, 30.3609},
		{"london to paris", 51.5074, -0.1278, 48.8566, 2.3522},
		{"across the antimeridian", 64.8378, -147.7164, 62.0355, 129.6755},
		{"southern hemisphere", -33.8688, 151.2093, -37.8136, 144.9631},
		{"short hop", 55.75, 37.61, 55.7501, 37.6101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			_, wantKm := haversine.Distance(
				haversine.Coord{Lat: tt.lat1, Lon: tt.lng1},
				haversine.Coord{Lat: tt.lat2, Lon: tt.lng2},
			)
			// Both use a 6371 km sphere; only the formula differs.
			assert.InDelta(t, wantKm, got, math.Max(0.01, wantKm*1e-6))
		})
	}
}

func TestDistanceKmIsSymmetric(t *testing.T) {
	a := DistanceKm(55.75, 37.61, 48.85, 2.35)
	b := DistanceKm(48.85, 2.35, 55.75, 37.61)
	assert.InDelta(t, a, b, 1e-9)
}
