// Package store defines the persistence interfaces the registry cores
// consume, and the batched record shapes they are fed with. The ranking and
// search engines never build queries themselves; they receive plain records
// fetched in one round trip and do all scoring and matching in memory.
package store

import (
	"context"

	"github.com/stacksregistry/registry-server/internal/domain"
	"github.com/stacksregistry/registry-server/internal/errors"
	"github.com/stacksregistry/registry-server/internal/geo"
)

// Sentinel errors shared by store implementations.
var (
	ErrNotFound      = errors.ErrNotFound
	ErrAlreadyExists = errors.ErrAlreadyExists
)

// AreaGeometry is a service-area place reduced to what scoring needs: its
// type (to recognize EVERYWHERE) and its shape.
type AreaGeometry struct {
	PlaceID   string
	PlaceType domain.PlaceType
	Geometry  *geo.Geometry
}

// RankingCandidate is one library plus the signals relevance ranking needs.
type RankingCandidate struct {
	Library *domain.Library

	// CollectionSize is the library's collection summary size for the
	// requested language. Nil means no summary row exists: unknown, which is
	// not the same as zero.
	CollectionSize *int64

	EligibilityAreas []AreaGeometry
	FocusAreas       []AreaGeometry
}

// LibraryRecord is a library with the related rows search needs.
type LibraryRecord struct {
	Library      *domain.Library
	Aliases      []string
	ServiceAreas []AreaGeometry
}

// PlaceRecord is a place with its alternate names.
type PlaceRecord struct {
	Place   *domain.Place
	Aliases []string
}

// RankingStore feeds the relevance ranker.
type RankingStore interface {
	// RankingCandidates returns every feed-eligible library whose collection
	// summaries match the language or that has no summaries at all, with
	// service-area geometries attached.
	RankingCandidates(ctx context.Context, language string, production bool) ([]RankingCandidate, error)

	// MaxCollectionSize returns the largest collection summary size recorded
	// for the language across all libraries, or zero if there are none.
	MaxCollectionSize(ctx context.Context, language string) (int64, error)
}

// SearchStore feeds the search engine.
type SearchStore interface {
	// LibraryRecords returns every feed-eligible library with aliases and
	// service-area geometries.
	LibraryRecords(ctx context.Context, production bool) ([]LibraryRecord, error)

	// PlaceRecords returns every place with its aliases.
	PlaceRecords(ctx context.Context) ([]PlaceRecord, error)
}

// PlaceLookup feeds place-name resolution.
type PlaceLookup interface {
	// PlacesByName finds places whose external name, abbreviated name, or
	// alias equals name. When placeType is nil, counties are excluded: in all
	// realistic cases a bare "Foo" means the city of Foo, and "Foo County"
	// arrives with an explicit type.
	PlacesByName(ctx context.Context, name string, placeType *domain.PlaceType) ([]*domain.Place, error)

	// GetPlace fetches a place by ID. Returns ErrNotFound if missing.
	GetPlace(ctx context.Context, id string) (*domain.Place, error)
}

// LibraryLookup resolves the issuing library of a Short Client Token.
type LibraryLookup interface {
	// LibraryByShortName fetches a library by its uppercase short name.
	// Returns ErrNotFound if no such library is registered.
	LibraryByShortName(ctx context.Context, shortName string) (*domain.Library, error)
}

// DelegatedIdentifiers is the get-or-create surface for delegated patron
// identifiers. Implementations must insert optimistically and fall back to a
// lookup on a uniqueness violation; check-then-insert is racy and forbidden.
type DelegatedIdentifiers interface {
	// GetOrCreateDelegatedIdentifier returns the delegated identifier for
	// (idType, libraryID, patronIdentifier), minting one with factory only
	// if none exists. The bool reports whether a row was created.
	GetOrCreateDelegatedIdentifier(ctx context.Context, idType, libraryID, patronIdentifier string, factory func() (string, error)) (*domain.DelegatedPatronIdentifier, bool, error)
}
