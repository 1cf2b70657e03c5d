package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stacksregistry/registry-server/internal/domain"
	"github.com/stacksregistry/registry-server/internal/errors"
	"github.com/stacksregistry/registry-server/internal/geo"
	"github.com/stacksregistry/registry-server/internal/http/response"
	"github.com/stacksregistry/registry-server/internal/language"
	"github.com/stacksregistry/registry-server/internal/metrics"
	"github.com/stacksregistry/registry-server/internal/ranking"
	"github.com/stacksregistry/registry-server/internal/search"
)

// LibraryResult is one library in API responses.
type LibraryResult struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	DistanceKm  *float64 `json:"distance_km,omitempty"`
	Score       *float64 `json:"score,omitempty"`
}

// PlaceResult is one place in API responses.
type PlaceResult struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		response.BadRequest(w, "missing query parameter q", s.logger)
		return
	}

	q := search.Query{
		Text:       query,
		Production: productionFeed(r),
	}
	if loc, ok, err := parseLocation(r.URL.Query().Get("location")); err != nil {
		response.BadRequest(w, err.Error(), s.logger)
		return
	} else if ok {
		q.Location = &loc
	}

	start := time.Now()
	results, err := s.engine.Search(r.Context(), q)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	metrics.SearchesTotal.Inc()
	metrics.SearchDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	if len(results) == 0 {
		metrics.EmptySearchesTotal.Inc()
	}

	response.Success(w, searchResults(results), s.logger)
}

func (s *Server) handleRelevant(w http.ResponseWriter, r *http.Request) {
	loc, ok, err := parseLocation(r.URL.Query().Get("location"))
	if err != nil {
		response.BadRequest(w, err.Error(), s.logger)
		return
	}
	if !ok {
		response.BadRequest(w, "missing query parameter location", s.logger)
		return
	}

	languages := language.FromAcceptLanguage(r.Header.Get("Accept-Language"))
	q := ranking.Query{
		Location:   loc,
		Language:   languages[0],
		Production: productionFeed(r),
	}
	if audiences := r.URL.Query().Get("audiences"); audiences != "" {
		q.Audiences = strings.Split(audiences, ",")
	}

	start := time.Now()
	results, err := s.ranker.Relevant(r.Context(), q)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	metrics.RankingsTotal.Inc()
	metrics.RankingDurationMs.Observe(float64(time.Since(start).Milliseconds()))

	out := make([]LibraryResult, 0, len(results))
	for _, res := range results {
		score := res.Score
		out = append(out, LibraryResult{
			ID:          res.Library.ID,
			Name:        res.Library.Name,
			Description: res.Library.Description,
			Score:       &score,
		})
	}
	response.Success(w, out, s.logger)
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	loc, ok, err := parseLocation(r.URL.Query().Get("location"))
	if err != nil {
		response.BadRequest(w, err.Error(), s.logger)
		return
	}
	if !ok {
		response.BadRequest(w, "missing query parameter location", s.logger)
		return
	}

	results, err := s.engine.Nearby(r.Context(), loc, productionFeed(r))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, searchResults(results), s.logger)
}

func (s *Server) handleResolvePlace(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		response.BadRequest(w, "missing query parameter name", s.logger)
		return
	}

	scope, err := s.resolutionScope(r)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	place, err := s.resolver.LookupInside(r.Context(), name, scope)
	if err != nil {
		metrics.PlaceLookupsTotal.WithLabelValues("error").Inc()
		response.HandleError(w, err, s.logger)
		return
	}
	if place == nil {
		metrics.PlaceLookupsTotal.WithLabelValues("miss").Inc()
		response.NotFound(w, "no such place: "+name, s.logger)
		return
	}

	metrics.PlaceLookupsTotal.WithLabelValues("hit").Inc()
	response.Success(w, PlaceResult{
		ID:   place.ID,
		Type: string(place.Type),
		Name: place.ExternalName,
	}, s.logger)
}

func (s *Server) handleServedBy(w http.ResponseWriter, r *http.Request) {
	place, err := s.placeStore.GetPlace(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	libraries, err := s.engine.ServedBy(r.Context(), place, productionFeed(r))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	out := make([]LibraryResult, 0, len(libraries))
	for _, lib := range libraries {
		out = append(out, LibraryResult{ID: lib.ID, Name: lib.Name, Description: lib.Description})
	}
	response.Success(w, out, s.logger)
}

// resolutionScope returns the place names are resolved inside: the
// configured default nation, or everywhere if it is not registered.
func (s *Server) resolutionScope(r *http.Request) (*domain.Place, error) {
	nation := domain.PlaceNation
	candidates, err := s.placeStore.PlacesByName(r.Context(), s.defaultNation, &nation)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	return &domain.Place{Type: domain.PlaceEverywhere, ExternalName: "everywhere"}, nil
}

func searchResults(results []search.Result) []LibraryResult {
	out := make([]LibraryResult, 0, len(results))
	for _, res := range results {
		out = append(out, LibraryResult{
			ID:          res.Library.ID,
			Name:        res.Library.Name,
			Description: res.Library.Description,
			DistanceKm:  res.DistanceKm,
		})
	}
	return out
}

// parseLocation parses a "latitude,longitude" pair. The bool reports whether
// a location was given at all.
func parseLocation(raw string) (geo.Point, bool, error) {
	if raw == "" {
		return geo.Point{}, false, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return geo.Point{}, false, errors.Validationf("location must be latitude,longitude, got %q", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Point{}, false, errors.Validationf("invalid latitude %q", parts[0])
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Point{}, false, errors.Validationf("invalid longitude %q", parts[1])
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return geo.Point{}, false, errors.Validationf("location %q out of range", raw)
	}
	return geo.Point{Lat: lat, Lng: lng}, true, nil
}

// productionFeed reports whether the request targets the production feed.
// Anything other than an explicit stage=testing does.
func productionFeed(r *http.Request) bool {
	return r.URL.Query().Get("stage") != "testing"
}
