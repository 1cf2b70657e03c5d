// Package places resolves human place names, scoped ("Boston, MA") or bare
// ("Kings County"), to place records. Unknown names resolve to nothing;
// ambiguous names fail loudly. Callers depend on telling those two apart.
package places

import "github.com/stacksregistry/registry-server/internal/domain"

// LargerPlaceTypes returns the place types known to be at least as large as
// the given type. A place of one of these types can never be found inside a
// place of the given type, so lookups exclude them up front.
//
// The order is a partial one: everywhere > nation > state > {county, city,
// postal code}. Postal codes are the exception; their parent is a state but
// they may also be looked up directly under a nation.
func LargerPlaceTypes(t domain.PlaceType) []domain.PlaceType {
	types := []domain.PlaceType{domain.PlaceEverywhere}
	if t != domain.PlaceNation && t != domain.PlaceEverywhere {
		types = append(types, domain.PlaceNation)
	}
	switch t {
	case domain.PlaceCounty, domain.PlaceCity, domain.PlacePostalCode:
		types = append(types, domain.PlaceState)
	}
	if t == domain.PlaceCity {
		types = append(types, domain.PlaceCounty)
	}
	return types
}

func containsType(types []domain.PlaceType, t domain.PlaceType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
