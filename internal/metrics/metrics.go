// Package metrics registers the registry's Prometheus collectors and exposes
// the /metrics handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registry_searches_total",
		Help: "Total number of library search requests",
	})
	SearchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "registry_search_duration_ms",
		Help:    "Search duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	EmptySearchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registry_empty_searches_total",
		Help: "Total number of searches that matched no library",
	})
	RankingsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registry_rankings_total",
		Help: "Total number of relevance ranking requests",
	})
	RankingDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "registry_ranking_duration_ms",
		Help:    "Relevance ranking duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	TokenDecodesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_token_decodes_total",
		Help: "Short client token decode outcomes",
	}, []string{"outcome"})
	TokenDecodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "registry_token_decode_duration_ms",
		Help:    "Token decode duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	DelegateRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_delegate_requests_total",
		Help: "Upstream vendor ID delegate requests by outcome",
	}, []string{"outcome"})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "registry_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter",
	})
	PlaceLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_place_lookups_total",
		Help: "Place name resolution outcomes",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchDurationMs)
	prometheus.MustRegister(EmptySearchesTotal)
	prometheus.MustRegister(RankingsTotal)
	prometheus.MustRegister(RankingDurationMs)
	prometheus.MustRegister(TokenDecodesTotal)
	prometheus.MustRegister(TokenDecodeDurationMs)
	prometheus.MustRegister(DelegateRequestsTotal)
	prometheus.MustRegister(RateLimitedTotal)
	prometheus.MustRegister(PlaceLookupsTotal)
}

// Handler returns the HTTP handler that serves the registered metrics.
func Handler() http.Handler { return promhttp.Handler() }
