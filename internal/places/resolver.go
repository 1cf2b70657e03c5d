package places

import (
	"context"
	"strings"

	"github.com/stacksregistry/registry-server/internal/domain"
	"github.com/stacksregistry/registry-server/internal/errors"
	"github.com/stacksregistry/registry-server/internal/geo"
	"github.com/stacksregistry/registry-server/internal/logger"
	"github.com/stacksregistry/registry-server/internal/store"
)

// Resolver resolves place names against the place store, optionally
// consulting an external city-to-ZIP table when a city is missing from the
// geography import.
type Resolver struct {
	store  store.PlaceLookup
	zips   CityZipSource
	logger *logger.Logger
}

// NewResolver creates a Resolver. zips may be nil to disable the external
// city-to-ZIP fallback.
func NewResolver(s store.PlaceLookup, zips CityZipSource, log *logger.Logger) *Resolver {
	return &Resolver{store: s, zips: zips, logger: log}
}

// NameParts splits a scoped name on commas and reverses it, so the most
// general part comes first: "Boston, MA" becomes ["MA", "Boston"].
func NameParts(name string) []string {
	raw := strings.Split(name, ",")
	parts := make([]string, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		if trimmed := strings.TrimSpace(raw[i]); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// ParseName recognizes an explicit type suffix: "Kings County" is the
// county called Kings, "Washington State" the state called Washington.
func ParseName(name string) (string, *domain.PlaceType) {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, " county") {
		t := domain.PlaceCounty
		return strings.TrimSpace(name[:len(name)-len(" county")]), &t
	}
	if strings.HasSuffix(lower, " state") {
		t := domain.PlaceState
		return strings.TrimSpace(name[:len(name)-len(" state")]), &t
	}
	return name, nil
}

// LookupInside resolves a possibly scoped name within scope. The scope may
// be the everywhere place, which constrains nothing. An unknown name
// resolves to (nil, nil); an ambiguous one returns an error naming the
// query and the scope, because callers treat the two very differently.
func (r *Resolver) LookupInside(ctx context.Context, name string, scope *domain.Place) (*domain.Place, error) {
	location := scope
	for _, part := range NameParts(name) {
		found, err := r.lookupOne(ctx, part, location, true)
		if err != nil {
			return nil, err
		}
		if found == nil {
			return nil, nil
		}
		location = found
	}
	if location == scope {
		return nil, nil
	}
	return location, nil
}

// lookupOne resolves a single unscoped name part within scope.
func (r *Resolver) lookupOne(ctx context.Context, name string, scope *domain.Place, allowZipFallback bool) (*domain.Place, error) {
	bareName, explicitType := ParseName(name)

	candidates, err := r.store.PlacesByName(ctx, bareName, explicitType)
	if err != nil {
		return nil, err
	}

	larger := LargerPlaceTypes(scope.Type)
	inside := make([]*domain.Place, 0, len(candidates))
	byParentage := make([]*domain.Place, 0, len(candidates))
	for _, candidate := range candidates {
		// Nothing is inside a place of its own type, and nothing is inside
		// a strictly smaller one.
		if candidate.Type == scope.Type || containsType(larger, candidate.Type) {
			continue
		}
		parentage, err := r.isChildOf(ctx, candidate, scope)
		if err != nil {
			return nil, err
		}
		overlap := scope.IsEverywhere() ||
			geo.OverlapsNotCountingBorder(candidate.Geometry, scope.Geometry)
		if parentage || overlap {
			inside = append(inside, candidate)
		}
		if parentage {
			byParentage = append(byParentage, candidate)
		}
	}

	// Geometric overlap can be genuinely ambiguous when a place shares its
	// name with its enclosing region; explicit parentage settles it.
	if len(inside) > 1 && len(byParentage) == 1 {
		inside = byParentage
	}

	switch len(inside) {
	case 1:
		return inside[0], nil
	case 0:
		if allowZipFallback && explicitType == nil {
			return r.zipFallback(ctx, bareName, scope)
		}
		return nil, nil
	default:
		return nil, errors.AmbiguousPlacef("more than one place called %s inside %s", name, scope.ExternalName)
	}
}

// isChildOf reports whether candidate's parent is scope, skipping one level
// for postal codes: a ZIP's parent is a state, but looking one up directly
// under the nation should still work.
func (r *Resolver) isChildOf(ctx context.Context, candidate, scope *domain.Place) (bool, error) {
	if candidate.ParentID == "" {
		return false, nil
	}
	if candidate.ParentID == scope.ID {
		return true, nil
	}
	if candidate.Type != domain.PlacePostalCode {
		return false, nil
	}
	parent, err := r.store.GetPlace(ctx, candidate.ParentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return parent.ParentID == scope.ID, nil
}

// zipFallback consults the external city-to-ZIP table when a city name has
// no place record: a ZIP place inside the state stands in for the missing
// city. Only state-level scopes qualify; the table is keyed by state.
func (r *Resolver) zipFallback(ctx context.Context, city string, scope *domain.Place) (*domain.Place, error) {
	if r.zips == nil || scope.Type != domain.PlaceState {
		return nil, nil
	}
	state := scope.AbbreviatedName
	if state == "" {
		state = scope.ExternalName
	}
	for _, zip := range r.zips.ZipsForCity(city, state) {
		found, err := r.lookupOne(ctx, zip, scope, false)
		if err != nil {
			return nil, err
		}
		if found != nil {
			if r.logger != nil {
				r.logger.Debug("resolved city via ZIP table",
					"city", city, "state", state, "zip", zip)
			}
			return found, nil
		}
	}
	return nil, nil
}
