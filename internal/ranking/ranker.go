// Package ranking scores libraries by how relevant they are to a patron at a
// known location. Scoring is a pure computation over candidate records
// fetched in one batch; no queries happen mid-formula.
package ranking

import (
	"context"
	"math"
	"sort"

	"github.com/stacksregistry/registry-server/internal/domain"
	"github.com/stacksregistry/registry-server/internal/geo"
	"github.com/stacksregistry/registry-server/internal/logger"
	"github.com/stacksregistry/registry-server/internal/store"
)

// Scoring constants. The absolute numbers are meaningless; only their
// relative effect on the composite score matters.
const (
	baseScore                 = 1.0
	audienceFactor            = 1.01
	collectionSizeFactor      = 1000.0
	eligibilityDistanceFactor = 0.1
	focusDistanceFactor       = 0.005
	focusAreaSizeFactor       = 1e-8
	scoreThreshold            = 1e-5
)

// Query describes one relevance request.
type Query struct {
	Location geo.Point
	Language string // ISO 639-2 alpha-3 code

	// Audiences defaults to just the general public.
	Audiences []string

	// Production selects the production feed; otherwise the testing feed.
	Production bool
}

// Result is one scored library.
type Result struct {
	Library *domain.Library
	Score   float64
}

// Ranker computes relevance scores for feed-eligible libraries.
type Ranker struct {
	store  store.RankingStore
	logger *logger.Logger
}

// New creates a Ranker.
func New(s store.RankingStore, log *logger.Logger) *Ranker {
	return &Ranker{store: s, logger: log}
}

// Relevant returns the libraries relevant to the query, most relevant first.
// Libraries scoring at or below the threshold are omitted; an empty result
// is not an error.
func (r *Ranker) Relevant(ctx context.Context, q Query) ([]Result, error) {
	audiences := q.Audiences
	if len(audiences) == 0 {
		audiences = []string{domain.AudiencePublic}
	}

	candidates, err := r.store.RankingCandidates(ctx, q.Language, q.Production)
	if err != nil {
		return nil, err
	}
	maxSize, err := r.store.MaxCollectionSize(ctx, q.Language)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, cand := range candidates {
		score := Score(cand, q.Location, audiences, maxSize)
		if score <= scoreThreshold {
			continue
		}
		results = append(results, Result{Library: cand.Library, Score: score})
	}

	// Descending by score; equal scores fall back to ascending library ID so
	// the order is stable across requests.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Library.ID < results[j].Library.ID
	})

	if r.logger != nil {
		r.logger.Debug("ranked libraries",
			"language", q.Language, "candidates", len(candidates), "results", len(results))
	}
	return results, nil
}

// Score computes the composite relevance score of one candidate for a
// patron at location. maxCollectionSize is the largest known collection for
// the requested language across all libraries; zero means no signal.
func Score(cand store.RankingCandidate, location geo.Point, audiences []string, maxCollectionSize int64) float64 {
	score := audienceScore(cand.Library, audiences)
	if score == 0 {
		return 0
	}

	// Collection size saturates toward 1: tiny collections contribute about
	// proportionally, huge ones are all roughly equal. A library with no
	// summary row gets an "at least one book" floor so an unknown collection
	// outranks a known-empty one.
	if maxCollectionSize > 0 {
		estimated := 1.0
		if cand.CollectionSize != nil {
			estimated = float64(*cand.CollectionSize)
		}
		score *= 1 - decay(-collectionSizeFactor*estimated/float64(maxCollectionSize))
	}

	// A library with no service areas of either kind has no presence
	// anywhere and cannot be ranked against a location.
	if len(cand.EligibilityAreas) == 0 || len(cand.FocusAreas) == 0 {
		return 0
	}

	score *= decay(-eligibilityDistanceFactor * minDistanceKm(cand.EligibilityAreas, location))
	score *= decay(-focusDistanceFactor * minDistanceKm(cand.FocusAreas, location))
	score *= decay(-focusAreaSizeFactor * totalAreaKm2(cand.FocusAreas))

	return score
}

// audienceScore is zero when the library serves none of the requested
// audiences. Serving a specifically requested non-public audience beats
// serving the general public.
func audienceScore(lib *domain.Library, audiences []string) float64 {
	servesPublic := false
	for _, audience := range audiences {
		if !lib.ServesAudience(audience) {
			continue
		}
		if audience == domain.AudiencePublic {
			servesPublic = true
			continue
		}
		return baseScore * audienceFactor
	}
	if servesPublic {
		return baseScore
	}
	return 0
}

// minDistanceKm is the smallest great-circle distance from location to any
// of the areas. An everywhere area is distance zero from anywhere.
func minDistanceKm(areas []store.AreaGeometry, location geo.Point) float64 {
	minKm := math.Inf(1)
	for _, area := range areas {
		if area.PlaceType == domain.PlaceEverywhere || area.Geometry == nil {
			return 0
		}
		if d := area.Geometry.DistanceKm(location); d < minKm {
			minKm = d
		}
	}
	return minKm
}

// totalAreaKm2 sums the geometric areas; an everywhere area counts as the
// full surface of the Earth.
func totalAreaKm2(areas []store.AreaGeometry) float64 {
	var total float64
	for _, area := range areas {
		if area.PlaceType == domain.PlaceEverywhere || area.Geometry == nil {
			total += geo.EarthAreaKm2
			continue
		}
		total += area.Geometry.AreaKm2()
	}
	return total
}

// decay is math.Exp with its argument clamped to avoid overflow on extreme
// inputs; within the clamp it is the identical monotonic curve.
func decay(x float64) float64 {
	if x > 500 {
		x = 500
	} else if x < -500 {
		x = -500
	}
	return math.Exp(x)
}
