package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stacksregistry/registry-server/internal/domain"
	"github.com/stacksregistry/registry-server/internal/geo"
	"github.com/stacksregistry/registry-server/internal/store"
)

func TestCreateAndGetPlace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	p := &domain.Place{
		ID:              "place-ny",
		Type:            domain.PlaceState,
		ExternalID:      "36",
		ExternalName:    "New York",
		AbbreviatedName: "NY",
		Geometry:        geo.SquareAround(geo.Point{Lat: 42.9, Lng: -75.5}, 2),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.CreatePlace(ctx, p); err != nil {
		t.Fatalf("CreatePlace: %v", err)
	}

	got, err := s.GetPlace(ctx, "place-ny")
	if err != nil {
		t.Fatalf("GetPlace: %v", err)
	}
	if got.Type != domain.PlaceState {
		t.Errorf("Type: got %q, want %q", got.Type, domain.PlaceState)
	}
	if got.ExternalName != "New York" {
		t.Errorf("ExternalName: got %q", got.ExternalName)
	}
	if got.AbbreviatedName != "NY" {
		t.Errorf("AbbreviatedName: got %q", got.AbbreviatedName)
	}
	if got.Geometry == nil {
		t.Fatal("Geometry: missing after round trip")
	}
	if !got.Geometry.Contains(geo.Point{Lat: 42.9, Lng: -75.5}) {
		t.Error("geometry should contain the state's center")
	}
}

func TestGetPlaceNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPlace(context.Background(), "nowhere")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEverywherePlaceHasNoGeometry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	p := &domain.Place{
		ID:           "place-everywhere",
		Type:         domain.PlaceEverywhere,
		ExternalName: "everywhere",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.CreatePlace(ctx, p); err != nil {
		t.Fatalf("CreatePlace: %v", err)
	}

	got, err := s.GetPlace(ctx, "place-everywhere")
	if err != nil {
		t.Fatalf("GetPlace: %v", err)
	}
	if got.Geometry != nil {
		t.Error("everywhere place should round-trip with nil geometry")
	}
	if !got.IsEverywhere() {
		t.Error("IsEverywhere: expected true")
	}
}

func TestPlacesByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	city := createTestPlace(t, s, "place-city", domain.PlaceCity, "Springfield", geo.Point{Lat: 39.8, Lng: -89.6})
	county := createTestPlace(t, s, "place-county", domain.PlaceCounty, "Springfield", geo.Point{Lat: 37.2, Lng: -93.3})
	createTestPlace(t, s, "place-other", domain.PlaceCity, "Shelbyville", geo.Point{Lat: 39.4, Lng: -88.8})

	// A bare name excludes counties.
	got, err := s.PlacesByName(ctx, "Springfield", nil)
	if err != nil {
		t.Fatalf("PlacesByName: %v", err)
	}
	if len(got) != 1 || got[0].ID != city.ID {
		t.Errorf("bare name: got %d places, want just the city", len(got))
	}

	// An explicit county type finds the county.
	countyType := domain.PlaceCounty
	got, err = s.PlacesByName(ctx, "Springfield", &countyType)
	if err != nil {
		t.Fatalf("PlacesByName(county): %v", err)
	}
	if len(got) != 1 || got[0].ID != county.ID {
		t.Errorf("county type: got %d places, want just the county", len(got))
	}
}

func TestPlacesByNameMatchesAliasAndAbbreviation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	state := &domain.Place{
		ID:              "place-ny",
		Type:            domain.PlaceState,
		ExternalName:    "New York",
		AbbreviatedName: "NY",
		Geometry:        geo.SquareAround(geo.Point{Lat: 42.9, Lng: -75.5}, 2),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.CreatePlace(ctx, state); err != nil {
		t.Fatalf("CreatePlace: %v", err)
	}
	if err := s.CreatePlaceAlias(ctx, &domain.PlaceAlias{
		ID: "alias-1", PlaceID: "place-ny", Name: "Empire State", Language: "eng",
	}); err != nil {
		t.Fatalf("CreatePlaceAlias: %v", err)
	}

	for _, name := range []string{"New York", "NY", "Empire State"} {
		got, err := s.PlacesByName(ctx, name, nil)
		if err != nil {
			t.Fatalf("PlacesByName(%q): %v", name, err)
		}
		if len(got) != 1 || got[0].ID != "place-ny" {
			t.Errorf("PlacesByName(%q): got %d places, want place-ny", name, len(got))
		}
	}
}

func TestPlaceRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createTestPlace(t, s, "place-1", domain.PlaceCity, "Springfield", geo.Point{Lat: 39.8, Lng: -89.6})
	createTestPlace(t, s, "place-2", domain.PlaceCity, "Shelbyville", geo.Point{Lat: 39.4, Lng: -88.8})
	if err := s.CreatePlaceAlias(ctx, &domain.PlaceAlias{
		ID: "alias-1", PlaceID: "place-1", Name: "Home of the Simpsons", Language: "eng",
	}); err != nil {
		t.Fatalf("CreatePlaceAlias: %v", err)
	}

	records, err := s.PlaceRecords(ctx)
	if err != nil {
		t.Fatalf("PlaceRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Place.ID != "place-1" {
		t.Errorf("records[0]: got %q, want place-1", records[0].Place.ID)
	}
	if len(records[0].Aliases) != 1 || records[0].Aliases[0] != "Home of the Simpsons" {
		t.Errorf("records[0].Aliases: got %v", records[0].Aliases)
	}
	if len(records[1].Aliases) != 0 {
		t.Errorf("records[1].Aliases: got %v, want none", records[1].Aliases)
	}
}
