package places

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacksregistry/registry-server/internal/domain"
	"github.com/stacksregistry/registry-server/internal/errors"
	"github.com/stacksregistry/registry-server/internal/geo"
	"github.com/stacksregistry/registry-server/internal/store"
)

// fakePlaceStore satisfies store.PlaceLookup from a fixed set of places.
type fakePlaceStore struct {
	places []*domain.Place
}

func (f *fakePlaceStore) PlacesByName(_ context.Context, name string, placeType *domain.PlaceType) ([]*domain.Place, error) {
	var out []*domain.Place
	for _, p := range f.places {
		if placeType != nil {
			if p.Type != *placeType {
				continue
			}
		} else if p.Type == domain.PlaceCounty {
			continue
		}
		if strings.EqualFold(p.ExternalName, name) || strings.EqualFold(p.AbbreviatedName, name) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePlaceStore) GetPlace(_ context.Context, id string) (*domain.Place, error) {
	for _, p := range f.places {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, store.ErrNotFound
}

func place(id string, t domain.PlaceType, name, abbrev, parentID string, g *geo.Geometry) *domain.Place {
	return &domain.Place{
		ID:              id,
		Type:            t,
		ExternalName:    name,
		AbbreviatedName: abbrev,
		ParentID:        parentID,
		Geometry:        g,
	}
}

// newTestWorld builds a small consistent geography: a nation containing one
// state, which contains a city sharing the state's name, a county, and a
// ZIP code. A second city sits entirely outside the state, sharing only its
// eastern border.
func newTestWorld() *fakePlaceStore {
	nationGeom := geo.SquareAround(geo.Point{Lat: 40, Lng: -95}, 25)
	stateGeom := geo.SquareAround(geo.Point{Lat: 42.9, Lng: -75.5}, 3)
	cityGeom := geo.SquareAround(geo.Point{Lat: 40.7, Lng: -74.0}, 0.3)
	countyGeom := geo.SquareAround(geo.Point{Lat: 40.65, Lng: -73.95}, 0.1)
	zipGeom := geo.SquareAround(geo.Point{Lat: 40.66, Lng: -73.91}, 0.02)
	borderGeom := &geo.Geometry{Polygons: []geo.Polygon{{geo.Ring{
		{Lat: 40.4, Lng: -72.5}, {Lat: 40.4, Lng: -71.5},
		{Lat: 41.4, Lng: -71.5}, {Lat: 41.4, Lng: -72.5},
	}}}}

	return &fakePlaceStore{places: []*domain.Place{
		place("everywhere", domain.PlaceEverywhere, "everywhere", "", "", nil),
		place("us", domain.PlaceNation, "United States", "US", "", nationGeom),
		place("ny-state", domain.PlaceState, "New York", "NY", "us", stateGeom),
		place("ny-city", domain.PlaceCity, "New York", "", "ny-state", cityGeom),
		place("kings", domain.PlaceCounty, "Kings", "", "ny-state", countyGeom),
		place("zip-11212", domain.PlacePostalCode, "11212", "", "ny-state", zipGeom),
		// Shares only a border with the state; lives elsewhere.
		place("edgeville", domain.PlaceCity, "Edgeville", "", "other-state", borderGeom),
	}}
}

func (f *fakePlaceStore) get(t *testing.T, id string) *domain.Place {
	t.Helper()
	p, err := f.GetPlace(context.Background(), id)
	require.NoError(t, err)
	return p
}

func TestLargerPlaceTypes(t *testing.T) {
	tests := []struct {
		scope domain.PlaceType
		want  []domain.PlaceType
	}{
		{domain.PlaceEverywhere, []domain.PlaceType{domain.PlaceEverywhere}},
		{domain.PlaceNation, []domain.PlaceType{domain.PlaceEverywhere}},
		{domain.PlaceState, []domain.PlaceType{domain.PlaceEverywhere, domain.PlaceNation}},
		{domain.PlaceCounty, []domain.PlaceType{domain.PlaceEverywhere, domain.PlaceNation, domain.PlaceState}},
		{domain.PlacePostalCode, []domain.PlaceType{domain.PlaceEverywhere, domain.PlaceNation, domain.PlaceState}},
		{domain.PlaceCity, []domain.PlaceType{domain.PlaceEverywhere, domain.PlaceNation, domain.PlaceState, domain.PlaceCounty}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LargerPlaceTypes(tt.scope), "scope %s", tt.scope)
	}
}

func TestNameParts(t *testing.T) {
	assert.Equal(t, []string{"MA", "Boston"}, NameParts("Boston, MA"))
	assert.Equal(t, []string{"US", "New York", "New York"}, NameParts("New York, New York, US"))
	assert.Equal(t, []string{"Kings County"}, NameParts("Kings County"))
}

func TestParseName(t *testing.T) {
	name, placeType := ParseName("Kings County")
	assert.Equal(t, "Kings", name)
	require.NotNil(t, placeType)
	assert.Equal(t, domain.PlaceCounty, *placeType)

	name, placeType = ParseName("Washington State")
	assert.Equal(t, "Washington", name)
	require.NotNil(t, placeType)
	assert.Equal(t, domain.PlaceState, *placeType)

	name, placeType = ParseName("Boston")
	assert.Equal(t, "Boston", name)
	assert.Nil(t, placeType)
}

// "New York, New York" is the classic case: by geometry alone the state and
// the city both match the second part, but parentage picks the city inside
// the state, and the state inside the nation.
func TestLookupInsideCityNamedLikeItsState(t *testing.T) {
	world := newTestWorld()
	r := NewResolver(world, nil, nil)

	found, err := r.LookupInside(context.Background(), "New York, New York", world.get(t, "us"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "ny-city", found.ID)
}

func TestLookupInsideBareCounty(t *testing.T) {
	world := newTestWorld()
	r := NewResolver(world, nil, nil)

	found, err := r.LookupInside(context.Background(), "Kings County", world.get(t, "ny-state"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "kings", found.ID)
}

func TestLookupInsideZipUnderNation(t *testing.T) {
	world := newTestWorld()
	r := NewResolver(world, nil, nil)

	// A ZIP's parent is its state, but parentage skips one level so the ZIP
	// is still found directly under the nation.
	found, err := r.LookupInside(context.Background(), "11212", world.get(t, "us"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "zip-11212", found.ID)
}

func TestLookupInsideBorderDoesNotCount(t *testing.T) {
	world := newTestWorld()
	r := NewResolver(world, nil, nil)

	// Edgeville shares the state's eastern border but has no territory
	// inside it.
	found, err := r.LookupInside(context.Background(), "Edgeville", world.get(t, "ny-state"))
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestLookupInsideUnknownIsSilent(t *testing.T) {
	world := newTestWorld()
	r := NewResolver(world, nil, nil)

	found, err := r.LookupInside(context.Background(), "Atlantis", world.get(t, "ny-state"))
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestLookupInsideAmbiguous(t *testing.T) {
	world := newTestWorld()
	world.places = append(world.places,
		place("spring-1", domain.PlaceCity, "Springfield", "", "ny-state",
			geo.SquareAround(geo.Point{Lat: 42.0, Lng: -75.0}, 0.1)),
		place("spring-2", domain.PlaceCity, "Springfield", "", "ny-state",
			geo.SquareAround(geo.Point{Lat: 43.5, Lng: -76.0}, 0.1)),
	)
	r := NewResolver(world, nil, nil)

	_, err := r.LookupInside(context.Background(), "Springfield", world.get(t, "ny-state"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAmbiguousPlace)
	assert.Contains(t, err.Error(), "Springfield")
	assert.Contains(t, err.Error(), "New York")
}

func TestLookupInsideEverywhereScope(t *testing.T) {
	world := newTestWorld()
	r := NewResolver(world, nil, nil)

	found, err := r.LookupInside(context.Background(), "Kings County", world.get(t, "everywhere"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "kings", found.ID)
}

// fakeZips maps one city to a fixed ZIP list.
type fakeZips struct {
	city, state string
	zips        []string
}

func (f *fakeZips) ZipsForCity(city, state string) []string {
	if strings.EqualFold(city, f.city) && strings.EqualFold(state, f.state) {
		return f.zips
	}
	return nil
}

func TestLookupInsideZipFallback(t *testing.T) {
	world := newTestWorld()
	zips := &fakeZips{city: "Brownsville", state: "NY", zips: []string{"11212"}}
	r := NewResolver(world, zips, nil)

	// Brownsville has no place record; the external table maps it to a ZIP
	// that does.
	found, err := r.LookupInside(context.Background(), "Brownsville", world.get(t, "ny-state"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "zip-11212", found.ID)

	// The fallback applies only to state-level scopes.
	found, err = r.LookupInside(context.Background(), "Brownsville", world.get(t, "us"))
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestCSVZipSource(t *testing.T) {
	csv := "city,state,zip\nBrownsville,NY,11212\nBrownsville,NY,11233\nArvin,CA,93203\n"
	source, err := ReadCSVZipSource(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, []string{"11212", "11233"}, source.ZipsForCity("brownsville", "ny"))
	assert.Equal(t, []string{"93203"}, source.ZipsForCity("Arvin", "CA"))
	assert.Nil(t, source.ZipsForCity("Nowhere", "KS"))
}
