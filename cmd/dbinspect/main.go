// Package main provides a tool to inspect a registry database: how many
// libraries and places it holds, which feeds the libraries belong to, and
// whether service areas are attached.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/stacksregistry/registry-server/internal/store/sqlite"
)

func main() {
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to locate home directory: %v", err)
		}
		dbPath = filepath.Join(home, "stacks-registry", "registry.db")
	}

	s, err := sqlite.Open(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer s.Close()

	fmt.Println("=== Registry Database Inspection ===")
	fmt.Println()

	ctx := context.Background()

	records, err := s.LibraryRecords(ctx, false)
	if err != nil {
		log.Fatalf("Failed to list libraries: %v", err)
	}

	inProduction := 0
	withAreas := 0
	shown := 0
	for _, rec := range records {
		if rec.Library.InProduction() {
			inProduction++
		}
		if len(rec.ServiceAreas) > 0 {
			withAreas++
		}

		// Show the first few libraries in detail
		if shown < 5 {
			fmt.Printf("Library: %s\n", rec.Library.Name)
			fmt.Printf("  ID: %s\n", rec.Library.ID)
			fmt.Printf("  Short name: %s\n", rec.Library.ShortName)
			fmt.Printf("  Stages: library=%s registry=%s\n",
				rec.Library.LibraryStage, rec.Library.RegistryStage)
			fmt.Printf("  Aliases: %d\n", len(rec.Aliases))
			fmt.Printf("  Service areas: %d\n", len(rec.ServiceAreas))
			fmt.Println()
			shown++
		}
	}

	places, err := s.PlaceRecords(ctx)
	if err != nil {
		log.Fatalf("Failed to list places: %v", err)
	}

	byType := make(map[string]int)
	for _, rec := range places {
		byType[string(rec.Place.Type)]++
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Feed-eligible libraries: %d\n", len(records))
	fmt.Printf("  In production feed: %d\n", inProduction)
	fmt.Printf("  With service areas: %d\n", withAreas)
	fmt.Printf("Places: %d\n", len(places))
	for placeType, count := range byType {
		fmt.Printf("  %s: %d\n", placeType, count)
	}
}
