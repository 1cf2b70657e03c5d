// Package main provides a tool to seed the registry database from a JSON
// fixture file.
//
// The fixture describes places (with GeoJSON geometries) and libraries (with
// service areas, aliases, and collection summaries). Entries reference each
// other through file-local "ref" keys; real record IDs are generated on
// insert.
//
// Usage:
//
//	DATABASE_PATH=~/stacks-registry/registry.db go run ./cmd/seed --file fixtures/us.json
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"encoding/json/jsontext"
	"encoding/json/v2"

	"github.com/stacksregistry/registry-server/internal/domain"
	"github.com/stacksregistry/registry-server/internal/geo"
	"github.com/stacksregistry/registry-server/internal/id"
	"github.com/stacksregistry/registry-server/internal/store/sqlite"
)

var seedFile = flag.String("file", "", "Path to the JSON fixture file")

// seedPlace is one place entry in the fixture file.
type seedPlace struct {
	Ref             string         `json:"ref"`
	Type            string         `json:"type"`
	ExternalID      string         `json:"external_id"`
	ExternalName    string         `json:"external_name"`
	AbbreviatedName string         `json:"abbreviated_name"`
	Parent          string         `json:"parent"` // ref of the parent place
	Aliases         []string       `json:"aliases"`
	Geometry        jsontext.Value `json:"geometry"` // GeoJSON, absent for everywhere
}

// seedSummary is one collection summary entry.
type seedSummary struct {
	Language string `json:"language"`
	Size     int64  `json:"size"`
}

// seedLibrary is one library entry in the fixture file.
type seedLibrary struct {
	Name          string        `json:"name"`
	ShortName     string        `json:"short_name"`
	SharedSecret  string        `json:"shared_secret"`
	Description   string        `json:"description"`
	LibraryStage  string        `json:"library_stage"`
	RegistryStage string        `json:"registry_stage"`
	Audiences     []string      `json:"audiences"`
	Aliases       []string      `json:"aliases"`
	Summaries     []seedSummary `json:"collection_summaries"`
	Eligibility   []string      `json:"eligibility"` // refs of eligibility places
	Focus         []string      `json:"focus"`       // refs of focus places
}

// fixture is the root of the seed file.
type fixture struct {
	Places    []seedPlace   `json:"places"`
	Libraries []seedLibrary `json:"libraries"`
}

func main() {
	flag.Parse()

	if *seedFile == "" {
		log.Fatal("No fixture file given. Use --file.")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to locate home directory: %v", err)
		}
		dbPath = filepath.Join(home, "stacks-registry", "registry.db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := sqlite.Open(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	data, err := os.ReadFile(*seedFile)
	if err != nil {
		log.Fatalf("Failed to read fixture file: %v", err)
	}

	var fix fixture
	if err := json.Unmarshal(data, &fix); err != nil {
		log.Fatalf("Failed to parse fixture file: %v", err)
	}

	ctx := context.Background()

	placeIDs, err := seedPlaces(ctx, s, fix.Places)
	if err != nil {
		log.Fatalf("Failed to seed places: %v", err)
	}
	fmt.Printf("Created %d places\n", len(placeIDs))

	created, err := seedLibraries(ctx, s, fix.Libraries, placeIDs)
	if err != nil {
		log.Fatalf("Failed to seed libraries: %v", err)
	}
	fmt.Printf("Created %d libraries\n", created)

	fmt.Println("\nSeeding complete!")
}

// seedPlaces inserts places in file order (parents must come before
// children) and returns the ref-to-ID mapping.
func seedPlaces(ctx context.Context, s *sqlite.Store, entries []seedPlace) (map[string]string, error) {
	ids := make(map[string]string, len(entries))

	for _, entry := range entries {
		if entry.Ref == "" {
			return nil, fmt.Errorf("place %q has no ref", entry.ExternalName)
		}

		var geometry *geo.Geometry
		if len(entry.Geometry) > 0 {
			parsed, err := geo.ParseGeoJSON(entry.Geometry)
			if err != nil {
				return nil, fmt.Errorf("place %s: %w", entry.Ref, err)
			}
			geometry = parsed
		}

		parentID := ""
		if entry.Parent != "" {
			resolved, ok := ids[entry.Parent]
			if !ok {
				return nil, fmt.Errorf("place %s: unknown parent ref %q", entry.Ref, entry.Parent)
			}
			parentID = resolved
		}

		place := &domain.Place{
			ID:              id.MustGenerate("place"),
			Type:            domain.PlaceType(entry.Type),
			ExternalID:      entry.ExternalID,
			ExternalName:    entry.ExternalName,
			AbbreviatedName: entry.AbbreviatedName,
			ParentID:        parentID,
			Geometry:        geometry,
		}
		if err := s.CreatePlace(ctx, place); err != nil {
			return nil, fmt.Errorf("place %s: %w", entry.Ref, err)
		}
		ids[entry.Ref] = place.ID

		for _, alias := range entry.Aliases {
			err := s.CreatePlaceAlias(ctx, &domain.PlaceAlias{
				ID:       id.MustGenerate("palias"),
				PlaceID:  place.ID,
				Name:     alias,
				Language: "eng",
			})
			if err != nil {
				return nil, fmt.Errorf("place %s alias %q: %w", entry.Ref, alias, err)
			}
		}

		fmt.Printf("  Place: %s (%s)\n", entry.ExternalName, entry.Type)
	}

	return ids, nil
}

// seedLibraries inserts libraries with their aliases, collection summaries,
// and service areas. Returns the number of libraries created.
func seedLibraries(ctx context.Context, s *sqlite.Store, entries []seedLibrary, placeIDs map[string]string) (int, error) {
	created := 0

	for _, entry := range entries {
		lib := &domain.Library{
			ID:            id.MustGenerate("lib"),
			Name:          entry.Name,
			ShortName:     strings.ToUpper(entry.ShortName),
			SharedSecret:  entry.SharedSecret,
			Description:   entry.Description,
			LibraryStage:  domain.Stage(entry.LibraryStage),
			RegistryStage: domain.Stage(entry.RegistryStage),
			Audiences:     entry.Audiences,
		}
		if lib.LibraryStage == "" {
			lib.LibraryStage = domain.StageProduction
		}
		if lib.RegistryStage == "" {
			lib.RegistryStage = domain.StageProduction
		}
		if len(lib.Audiences) == 0 {
			lib.Audiences = []string{domain.AudiencePublic}
		}

		if err := s.CreateLibrary(ctx, lib); err != nil {
			return created, fmt.Errorf("library %s: %w", entry.ShortName, err)
		}
		created++

		for _, alias := range entry.Aliases {
			err := s.CreateLibraryAlias(ctx, &domain.LibraryAlias{
				ID:        id.MustGenerate("lalias"),
				LibraryID: lib.ID,
				Name:      alias,
				Language:  "eng",
			})
			if err != nil {
				return created, fmt.Errorf("library %s alias %q: %w", entry.ShortName, alias, err)
			}
		}

		for _, summary := range entry.Summaries {
			err := s.SetCollectionSummary(ctx, &domain.CollectionSummary{
				LibraryID: lib.ID,
				Language:  summary.Language,
				Size:      summary.Size,
			})
			if err != nil {
				return created, fmt.Errorf("library %s summary: %w", entry.ShortName, err)
			}
		}

		if err := createServiceAreas(ctx, s, lib.ID, entry.Eligibility, domain.ServiceAreaEligibility, placeIDs); err != nil {
			return created, fmt.Errorf("library %s: %w", entry.ShortName, err)
		}
		if err := createServiceAreas(ctx, s, lib.ID, entry.Focus, domain.ServiceAreaFocus, placeIDs); err != nil {
			return created, fmt.Errorf("library %s: %w", entry.ShortName, err)
		}

		fmt.Printf("  Library: %s (%s)\n", entry.Name, lib.ShortName)
	}

	return created, nil
}

func createServiceAreas(ctx context.Context, s *sqlite.Store, libraryID string, refs []string, areaType domain.ServiceAreaType, placeIDs map[string]string) error {
	for _, ref := range refs {
		placeID, ok := placeIDs[ref]
		if !ok {
			return fmt.Errorf("unknown place ref %q", ref)
		}
		err := s.CreateServiceArea(ctx, &domain.ServiceArea{
			ID:        id.MustGenerate("area"),
			LibraryID: libraryID,
			PlaceID:   placeID,
			Type:      areaType,
		})
		if err != nil {
			return fmt.Errorf("service area %q: %w", ref, err)
		}
	}
	return nil
}
