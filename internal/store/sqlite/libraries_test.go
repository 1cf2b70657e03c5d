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

// makeTestLibrary creates a domain.Library with sensible defaults for testing.
func makeTestLibrary(id, shortName, name string) *domain.Library {
	now := time.Now()
	return &domain.Library{
		ID:            id,
		Name:          name,
		ShortName:     shortName,
		SharedSecret:  "s3cret-" + id,
		LibraryStage:  domain.StageProduction,
		RegistryStage: domain.StageProduction,
		Audiences:     []string{domain.AudiencePublic},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// createTestPlace inserts a city-sized square place centered on the given point.
func createTestPlace(t *testing.T, s *Store, id string, placeType domain.PlaceType, name string, center geo.Point) *domain.Place {
	t.Helper()
	now := time.Now()
	p := &domain.Place{
		ID:           id,
		Type:         placeType,
		ExternalName: name,
		Geometry:     geo.SquareAround(center, 0.1),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.CreatePlace(context.Background(), p); err != nil {
		t.Fatalf("createTestPlace(%s): %v", id, err)
	}
	return p
}

func TestCreateAndGetLibrary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lib := makeTestLibrary("lib-1", "NYPL", "New York Public Library")
	lib.Description = "Serves the five boroughs."
	lib.Audiences = []string{domain.AudiencePublic, domain.AudienceResearch}

	if err := s.CreateLibrary(ctx, lib); err != nil {
		t.Fatalf("CreateLibrary: %v", err)
	}

	got, err := s.GetLibrary(ctx, "lib-1")
	if err != nil {
		t.Fatalf("GetLibrary: %v", err)
	}

	if got.ID != lib.ID {
		t.Errorf("ID: got %q, want %q", got.ID, lib.ID)
	}
	if got.Name != lib.Name {
		t.Errorf("Name: got %q, want %q", got.Name, lib.Name)
	}
	if got.ShortName != "NYPL" {
		t.Errorf("ShortName: got %q, want %q", got.ShortName, "NYPL")
	}
	if got.SharedSecret != lib.SharedSecret {
		t.Errorf("SharedSecret: got %q, want %q", got.SharedSecret, lib.SharedSecret)
	}
	if got.Description != lib.Description {
		t.Errorf("Description: got %q, want %q", got.Description, lib.Description)
	}
	if len(got.Audiences) != 2 || got.Audiences[0] != domain.AudiencePublic || got.Audiences[1] != domain.AudienceResearch {
		t.Errorf("Audiences: got %v, want %v", got.Audiences, lib.Audiences)
	}
	if !got.InProduction() {
		t.Error("InProduction: expected true")
	}
}

func TestGetLibraryNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetLibrary(context.Background(), "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateLibraryDuplicateShortName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateLibrary(ctx, makeTestLibrary("lib-1", "NYPL", "First")); err != nil {
		t.Fatalf("CreateLibrary: %v", err)
	}
	err := s.CreateLibrary(ctx, makeTestLibrary("lib-2", "NYPL", "Second"))
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateLibraryInvalidShortName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateLibrary(ctx, makeTestLibrary("lib-1", "", "No Short Name")); err == nil {
		t.Error("expected error for empty short name")
	}
	if err := s.CreateLibrary(ctx, makeTestLibrary("lib-2", "A|B", "Piped")); err == nil {
		t.Error("expected error for short name containing a pipe")
	}
}

func TestLibraryByShortName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateLibrary(ctx, makeTestLibrary("lib-1", "NYPL", "New York Public Library")); err != nil {
		t.Fatalf("CreateLibrary: %v", err)
	}

	got, err := s.LibraryByShortName(ctx, "NYPL")
	if err != nil {
		t.Fatalf("LibraryByShortName: %v", err)
	}
	if got.ID != "lib-1" {
		t.Errorf("ID: got %q, want %q", got.ID, "lib-1")
	}

	_, err = s.LibraryByShortName(ctx, "UNKNOWN")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateLibrary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lib := makeTestLibrary("lib-1", "NYPL", "New York Public Library")
	if err := s.CreateLibrary(ctx, lib); err != nil {
		t.Fatalf("CreateLibrary: %v", err)
	}

	lib.Description = "Updated description"
	lib.RegistryStage = domain.StageTesting
	if err := s.UpdateLibrary(ctx, lib); err != nil {
		t.Fatalf("UpdateLibrary: %v", err)
	}

	got, err := s.GetLibrary(ctx, "lib-1")
	if err != nil {
		t.Fatalf("GetLibrary: %v", err)
	}
	if got.Description != "Updated description" {
		t.Errorf("Description: got %q", got.Description)
	}
	if got.RegistryStage != domain.StageTesting {
		t.Errorf("RegistryStage: got %q, want %q", got.RegistryStage, domain.StageTesting)
	}

	missing := makeTestLibrary("lib-x", "GONE", "Missing")
	if err := s.UpdateLibrary(ctx, missing); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListLibrariesFeedRestriction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	prod := makeTestLibrary("lib-1", "PROD", "Production Library")
	testing1 := makeTestLibrary("lib-2", "TEST", "Testing Library")
	testing1.LibraryStage = domain.StageTesting
	cancelled := makeTestLibrary("lib-3", "GONE", "Cancelled Library")
	cancelled.RegistryStage = domain.StageCancelled

	for _, lib := range []*domain.Library{prod, testing1, cancelled} {
		if err := s.CreateLibrary(ctx, lib); err != nil {
			t.Fatalf("CreateLibrary(%s): %v", lib.ID, err)
		}
	}

	got, err := s.ListLibraries(ctx, true)
	if err != nil {
		t.Fatalf("ListLibraries(production): %v", err)
	}
	if len(got) != 1 || got[0].ID != "lib-1" {
		t.Errorf("production feed: got %d libraries, want just lib-1", len(got))
	}

	got, err = s.ListLibraries(ctx, false)
	if err != nil {
		t.Fatalf("ListLibraries(testing): %v", err)
	}
	if len(got) != 2 {
		t.Errorf("testing feed: got %d libraries, want 2", len(got))
	}
}

func TestLibraryRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lib := makeTestLibrary("lib-1", "NYPL", "New York Public Library")
	if err := s.CreateLibrary(ctx, lib); err != nil {
		t.Fatalf("CreateLibrary: %v", err)
	}
	if err := s.CreateLibraryAlias(ctx, &domain.LibraryAlias{
		ID: "alias-1", LibraryID: "lib-1", Name: "NYPL", Language: "eng",
	}); err != nil {
		t.Fatalf("CreateLibraryAlias: %v", err)
	}

	place := createTestPlace(t, s, "place-1", domain.PlaceCity, "New York", geo.Point{Lat: 40.75, Lng: -73.98})
	if err := s.CreateServiceArea(ctx, &domain.ServiceArea{
		ID: "sa-1", LibraryID: "lib-1", PlaceID: place.ID, Type: domain.ServiceAreaEligibility,
	}); err != nil {
		t.Fatalf("CreateServiceArea: %v", err)
	}

	records, err := s.LibraryRecords(ctx, true)
	if err != nil {
		t.Fatalf("LibraryRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.Library.ID != "lib-1" {
		t.Errorf("Library.ID: got %q", rec.Library.ID)
	}
	if len(rec.Aliases) != 1 || rec.Aliases[0] != "NYPL" {
		t.Errorf("Aliases: got %v", rec.Aliases)
	}
	if len(rec.ServiceAreas) != 1 {
		t.Fatalf("ServiceAreas: got %d, want 1", len(rec.ServiceAreas))
	}
	area := rec.ServiceAreas[0]
	if area.PlaceID != "place-1" || area.PlaceType != domain.PlaceCity {
		t.Errorf("ServiceArea: got %+v", area)
	}
	if area.Geometry == nil {
		t.Fatal("ServiceArea geometry missing")
	}
	if !area.Geometry.Contains(geo.Point{Lat: 40.75, Lng: -73.98}) {
		t.Error("service area should contain its center point")
	}
}

func TestCreateServiceAreaDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateLibrary(ctx, makeTestLibrary("lib-1", "NYPL", "Library")); err != nil {
		t.Fatalf("CreateLibrary: %v", err)
	}
	createTestPlace(t, s, "place-1", domain.PlaceCity, "New York", geo.Point{Lat: 40.75, Lng: -73.98})

	area := &domain.ServiceArea{ID: "sa-1", LibraryID: "lib-1", PlaceID: "place-1", Type: domain.ServiceAreaFocus}
	if err := s.CreateServiceArea(ctx, area); err != nil {
		t.Fatalf("CreateServiceArea: %v", err)
	}
	dup := &domain.ServiceArea{ID: "sa-2", LibraryID: "lib-1", PlaceID: "place-1", Type: domain.ServiceAreaFocus}
	if err := s.CreateServiceArea(ctx, dup); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}
