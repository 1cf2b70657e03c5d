package search

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/stacksregistry/registry-server/internal/domain"
	"github.com/stacksregistry/registry-server/internal/geo"
	"github.com/stacksregistry/registry-server/internal/logger"
	"github.com/stacksregistry/registry-server/internal/store"
)

// maxPerGroup caps each of the three match groups.
const maxPerGroup = 10

// NearbyRadiusKm is how far away a library's service area may be and still
// count as "nearby".
const NearbyRadiusKm = 150.0

// Query describes one search request.
type Query struct {
	Text string

	// Location, when known, orders each match group by distance.
	Location *geo.Point

	// Production selects the production feed; otherwise the testing feed.
	Production bool
}

// Result is one matched library. DistanceKm is nil when no location was
// supplied or the match has no usable geometry.
type Result struct {
	Library    *domain.Library
	DistanceKm *float64
}

// Engine resolves free-text queries into libraries. Three independent match
// groups run per query: library names, place names, and descriptions, and
// the groups concatenate in that fixed order with earlier groups winning
// duplicates.
type Engine struct {
	store  store.SearchStore
	index  *DescriptionIndex
	logger *logger.Logger
}

// New creates an Engine.
func New(s store.SearchStore, index *DescriptionIndex, log *logger.Logger) *Engine {
	return &Engine{store: s, index: index, logger: log}
}

// Search resolves the query. No results is an empty slice, not an error.
func (e *Engine) Search(ctx context.Context, q Query) ([]Result, error) {
	cleaned := CleanupQuery(q.Text)
	if cleaned == "" {
		return nil, nil
	}

	records, err := e.store.LibraryRecords(ctx, q.Production)
	if err != nil {
		return nil, err
	}

	// A ZIP code is unambiguous: skip name and description matching.
	if zip := AsPostalCode(cleaned); zip != "" {
		placeType := domain.PlacePostalCode
		group, err := e.matchByPlace(ctx, records, zip, &placeType, q.Location)
		if err != nil {
			return nil, err
		}
		return group, nil
	}

	libraryProbe, placeProbe := QueryParts(cleaned)
	placeName, placeType := ParsePlaceProbe(placeProbe)

	nameGroup := matchByName(records, libraryProbe, q.Location)

	var locationGroup []Result
	if placeName != "" {
		locationGroup, err = e.matchByPlace(ctx, records, placeName, placeType, q.Location)
		if err != nil {
			return nil, err
		}
	}

	descriptionGroup, err := e.matchByDescription(records, cleaned, q.Location)
	if err != nil {
		return nil, err
	}

	results := dedupe(nameGroup, locationGroup, descriptionGroup)
	if e.logger != nil {
		e.logger.Debug("search resolved",
			"query", cleaned,
			"by_name", len(nameGroup), "by_place", len(locationGroup),
			"by_description", len(descriptionGroup), "results", len(results))
	}
	return results, nil
}

// Nearby returns the libraries whose service areas lie within
// NearbyRadiusKm of the location, closest first.
func (e *Engine) Nearby(ctx context.Context, location geo.Point, production bool) ([]Result, error) {
	records, err := e.store.LibraryRecords(ctx, production)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, rec := range records {
		d, ok := minServiceAreaDistance(rec.ServiceAreas, location)
		if !ok || d > NearbyRadiusKm {
			continue
		}
		dist := d
		results = append(results, Result{Library: rec.Library, DistanceKm: &dist})
	}
	sort.Slice(results, func(i, j int) bool {
		if *results[i].DistanceKm != *results[j].DistanceKm {
			return *results[i].DistanceKm < *results[j].DistanceKm
		}
		return results[i].Library.ID < results[j].Library.ID
	})
	return results, nil
}

// ServedBy returns the feed-eligible libraries whose service area overlaps
// the place. Sharing a border does not count as overlap.
func (e *Engine) ServedBy(ctx context.Context, place *domain.Place, production bool) ([]*domain.Library, error) {
	records, err := e.store.LibraryRecords(ctx, production)
	if err != nil {
		return nil, err
	}

	var libraries []*domain.Library
	for _, rec := range records {
		if serves(rec.ServiceAreas, place) {
			libraries = append(libraries, rec.Library)
		}
	}
	sort.Slice(libraries, func(i, j int) bool {
		if libraries[i].Name != libraries[j].Name {
			return libraries[i].Name < libraries[j].Name
		}
		return libraries[i].ID < libraries[j].ID
	})
	return libraries, nil
}

func serves(areas []store.AreaGeometry, place *domain.Place) bool {
	for _, area := range areas {
		if area.PlaceID == place.ID || area.Geometry == nil {
			return true
		}
		if place.Geometry != nil && geo.OverlapsNotCountingBorder(area.Geometry, place.Geometry) {
			return true
		}
	}
	return false
}

// nameMatch ranks a library-name hit; lower rank sorts earlier when no
// location orders the group.
type nameMatch struct {
	result Result
	rank   int
}

const (
	rankExact = iota
	rankFuzzy
	rankPartial
)

// matchByName finds libraries whose name or alias matches the probe.
func matchByName(records []store.LibraryRecord, probe string, location *geo.Point) []Result {
	var matches []nameMatch
	for _, rec := range records {
		rank, ok := nameRank(rec, probe)
		if !ok {
			continue
		}
		matches = append(matches, nameMatch{
			result: resultWithDistance(rec.Library, rec.ServiceAreas, location),
			rank:   rank,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if location != nil {
			di, dj := distanceOrInf(matches[i].result), distanceOrInf(matches[j].result)
			if di != dj {
				return di < dj
			}
		}
		if matches[i].rank != matches[j].rank {
			return matches[i].rank < matches[j].rank
		}
		return matches[i].result.Library.ID < matches[j].result.Library.ID
	})

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		results = append(results, m.result)
		if len(results) == maxPerGroup {
			break
		}
	}
	return results
}

func nameRank(rec store.LibraryRecord, probe string) (int, bool) {
	names := append([]string{rec.Library.Name}, rec.Aliases...)
	rank := -1
	for _, name := range names {
		switch {
		case strings.EqualFold(name, probe):
			return rankExact, true
		case FuzzyMatches(name, probe):
			rank = rankFuzzy
		case rank == -1 && PartialMatches(name, probe):
			rank = rankPartial
		}
	}
	return rank, rank >= 0
}

// matchByPlace finds libraries whose service area intersects a place
// matching the probe. Border contact counts: a library serving a county
// that touches the searched city is still plausibly useful.
func (e *Engine) matchByPlace(ctx context.Context, records []store.LibraryRecord, name string, placeType *domain.PlaceType, location *geo.Point) ([]Result, error) {
	placeRecords, err := e.store.PlaceRecords(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*domain.Place
	for _, rec := range placeRecords {
		if placeType != nil && rec.Place.Type != *placeType {
			continue
		}
		if rec.Place.Geometry == nil {
			continue
		}
		if placeRecordMatches(rec, name) {
			matched = append(matched, rec.Place)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}

	var results []Result
	for _, rec := range records {
		place, ok := servedPlace(rec.ServiceAreas, matched)
		if !ok {
			continue
		}
		res := Result{Library: rec.Library}
		if location != nil {
			d := place.Geometry.DistanceKm(*location)
			res.DistanceKm = &d
		}
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool {
		if location != nil {
			di, dj := distanceOrInf(results[i]), distanceOrInf(results[j])
			if di != dj {
				return di < dj
			}
		}
		return results[i].Library.ID < results[j].Library.ID
	})
	if len(results) > maxPerGroup {
		results = results[:maxPerGroup]
	}
	return results, nil
}

func placeRecordMatches(rec store.PlaceRecord, name string) bool {
	if FuzzyMatches(rec.Place.ExternalName, name) {
		return true
	}
	if rec.Place.AbbreviatedName != "" && strings.EqualFold(rec.Place.AbbreviatedName, name) {
		return true
	}
	for _, alias := range rec.Aliases {
		if FuzzyMatches(alias, name) {
			return true
		}
	}
	return false
}

// servedPlace returns the first matched place one of the service areas
// intersects. An everywhere service area intersects all of them.
func servedPlace(areas []store.AreaGeometry, matched []*domain.Place) (*domain.Place, bool) {
	for _, place := range matched {
		for _, area := range areas {
			if area.PlaceType == domain.PlaceEverywhere || area.Geometry == nil {
				return place, true
			}
			if geo.Intersects(area.Geometry, place.Geometry) {
				return place, true
			}
		}
	}
	return nil, false
}

// matchByDescription runs the full-text index over library descriptions.
func (e *Engine) matchByDescription(records []store.LibraryRecord, query string, location *geo.Point) ([]Result, error) {
	if e.index == nil {
		return nil, nil
	}
	ids, err := e.index.MatchDescriptions(query, maxPerGroup)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	byID := make(map[string]store.LibraryRecord, len(records))
	for _, rec := range records {
		byID[rec.Library.ID] = rec
	}

	var results []Result
	for _, id := range ids {
		rec, ok := byID[id]
		if !ok {
			// Indexed but no longer feed-eligible.
			continue
		}
		results = append(results, resultWithDistance(rec.Library, rec.ServiceAreas, location))
	}
	if location != nil {
		sort.Slice(results, func(i, j int) bool {
			di, dj := distanceOrInf(results[i]), distanceOrInf(results[j])
			if di != dj {
				return di < dj
			}
			return results[i].Library.ID < results[j].Library.ID
		})
	}
	return results, nil
}

// dedupe concatenates the groups, keeping only each library's first
// occurrence.
func dedupe(groups ...[]Result) []Result {
	seen := make(map[string]bool)
	var results []Result
	for _, group := range groups {
		for _, res := range group {
			if seen[res.Library.ID] {
				continue
			}
			seen[res.Library.ID] = true
			results = append(results, res)
		}
	}
	return results
}

func resultWithDistance(lib *domain.Library, areas []store.AreaGeometry, location *geo.Point) Result {
	res := Result{Library: lib}
	if location == nil {
		return res
	}
	if d, ok := minServiceAreaDistance(areas, *location); ok {
		res.DistanceKm = &d
	}
	return res
}

// minServiceAreaDistance is the smallest distance from location to any of
// the library's service areas; an everywhere area is distance zero.
func minServiceAreaDistance(areas []store.AreaGeometry, location geo.Point) (float64, bool) {
	if len(areas) == 0 {
		return 0, false
	}
	minKm := math.Inf(1)
	for _, area := range areas {
		if area.PlaceType == domain.PlaceEverywhere || area.Geometry == nil {
			return 0, true
		}
		if d := area.Geometry.DistanceKm(location); d < minKm {
			minKm = d
		}
	}
	return minKm, true
}

func distanceOrInf(res Result) float64 {
	if res.DistanceKm == nil {
		return math.Inf(1)
	}
	return *res.DistanceKm
}
