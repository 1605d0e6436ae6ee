package services

import (
	"context"
	"testing"

	"org-directory/pkg/ontology"
	"org-directory/pkg/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchFixture struct {
	*fixture
	kremlin, arbat, hermitage *ontology.Organization
}

func newSearchFixture(t *testing.T) *searchFixture {
	f := newFixture(t)

	kremlin := f.building(t, "Red Square 1", 55.7520, 37.6175)
	arbat := f.building(t, "Arbat 10", 55.7500, 37.5900)
	hermitage := f.building(t, "Palace Square 2", 59.9398, 30.3146)

	return &searchFixture{
		fixture:   f,
		kremlin:   f.organization(t, "Kremlin Tours", kremlin.ID, nil),
		arbat:     f.organization(t, "Arbat Books", arbat.ID, nil),
		hermitage: f.organization(t, "Hermitage Cafe", hermitage.ID, nil),
	}
}

func names(page shared.Page[ontology.Organization]) []string {
	out := make([]string, len(page.Items))
	for i, o := range page.Items {
		out[i] = o.Name
	}
	return out
}

func TestRectangleSearch(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  ontology.RectangleSearchRequest
		want []string
	}{
		{
			name: "moscow box",
			req:  ontology.RectangleSearchRequest{MinLat: ptr(55.0), MaxLat: ptr(56.0), MinLng: ptr(37.0), MaxLng: ptr(38.0)},
			want: []string{"Kremlin Tours", "Arbat Books"},
		},
		{
			name: "bounds are inclusive",
			req:  ontology.RectangleSearchRequest{MinLat: ptr(55.7520), MaxLat: ptr(55.7520), MinLng: ptr(37.6175), MaxLng: ptr(37.6175)},
			want: []string{"Kremlin Tours"},
		},
		{
			name: "inverted latitude range",
			req:  ontology.RectangleSearchRequest{MinLat: ptr(56.0), MaxLat: ptr(55.0), MinLng: ptr(37.0), MaxLng: ptr(38.0)},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.search.Rectangle(ctx, &tt.req, firstPage())
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), page.Total)
			assert.Equal(t, tt.want, names(page))
		})
	}
}

func TestRectangleSearchRequiresBounds(t *testing.T) {
	f := newSearchFixture(t)

	_, err := f.search.Rectangle(context.Background(), &ontology.RectangleSearchRequest{MinLat: ptr(1.0)}, firstPage())
	requireCode(t, err, shared.CodeValidation)
}

func TestRadiusSearch(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		lat    float64
		lng    float64
		radius float64
		want   []string
	}{
		// Kremlin to Arbat is roughly 1.7 km.
		{"center point matches tiny radius", 55.7520, 37.6175, 0.001, []string{"Kremlin Tours"}},
		{"neighbourhood", 55.7520, 37.6175, 2, []string{"Kremlin Tours", "Arbat Books"}},
		{"whole country", 55.7520, 37.6175, 1000, []string{"Kremlin Tours", "Arbat Books", "Hermitage Cafe"}},
		{"middle of nowhere", 0, 0, 10, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.search.Radius(ctx, &ontology.RadiusSearchRequest{
				Latitude:  ptr(tt.lat),
				Longitude: ptr(tt.lng),
				RadiusKm:  ptr(tt.radius),
			}, firstPage())
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), page.Total)
			assert.Equal(t, tt.want, names(page))
		})
	}
}

func TestRadiusSearchPaginates(t *testing.T) {
	f := newSearchFixture(t)

	page, err := f.search.Radius(context.Background(), &ontology.RadiusSearchRequest{
		Latitude:  ptr(55.7520),
		Longitude: ptr(37.6175),
		RadiusKm:  ptr(1000.0),
	}, shared.NewPageRequest(2, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, []string{"Hermitage Cafe"}, names(page))
	assert.Equal(t, f.hermitage.ID, page.Items[0].ID)
}

func TestRadiusSearchRejectsNonPositiveRadius(t *testing.T) {
	f := newSearchFixture(t)

	for _, radius := range []float64{0, -5} {
		_, err := f.search.Radius(context.Background(), &ontology.RadiusSearchRequest{
			Latitude:  ptr(55.0),
			Longitude: ptr(37.0),
			RadiusKm:  ptr(radius),
		}, firstPage())
		requireCode(t, err, shared.CodeValidation)
		assert.Contains(t, err.Error(), "radius_km")
	}
}

func TestRadiusSearchRejectsInvalidCenter(t *testing.T) {
	f := newSearchFixture(t)

	tests := []struct {
		name  string
		req   ontology.RadiusSearchRequest
		field string
	}{
		{"latitude above range", ontology.RadiusSearchRequest{Latitude: ptr(91.0), Longitude: ptr(37.0), RadiusKm: ptr(5.0)}, "latitude"},
		{"latitude below range", ontology.RadiusSearchRequest{Latitude: ptr(-90.5), Longitude: ptr(37.0), RadiusKm: ptr(5.0)}, "latitude"},
		{"longitude above range", ontology.RadiusSearchRequest{Latitude: ptr(55.0), Longitude: ptr(180.1), RadiusKm: ptr(5.0)}, "longitude"},
		{"longitude below range", ontology.RadiusSearchRequest{Latitude: ptr(55.0), Longitude: ptr(-181.0), RadiusKm: ptr(5.0)}, "longitude"},
		{"missing latitude", ontology.RadiusSearchRequest{Longitude: ptr(37.0), RadiusKm: ptr(5.0)}, "latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.search.Radius(context.Background(), &tt.req, firstPage())
			requireCode(t, err, shared.CodeValidation)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
