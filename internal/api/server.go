// Package api provides the HTTP API server and handlers for the registry.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/stacksregistry/registry-server/internal/metrics"
	"github.com/stacksregistry/registry-server/internal/places"
	"github.com/stacksregistry/registry-server/internal/ranking"
	"github.com/stacksregistry/registry-server/internal/ratelimit"
	"github.com/stacksregistry/registry-server/internal/search"
	"github.com/stacksregistry/registry-server/internal/store"
	"github.com/stacksregistry/registry-server/internal/vendorid"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	engine        *search.Engine
	ranker        *ranking.Ranker
	resolver      *places.Resolver
	placeStore    store.PlaceLookup
	vendor        *vendorid.Service
	limiter       *ratelimit.KeyedRateLimiter
	defaultNation string
	version       string
	router        *chi.Mux
	logger        *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(engine *search.Engine, ranker *ranking.Ranker, resolver *places.Resolver, placeStore store.PlaceLookup, vendor *vendorid.Service, limiter *ratelimit.KeyedRateLimiter, defaultNation, version string, logger *slog.Logger) *Server {
	s := &Server{
		engine:        engine,
		ranker:        ranker,
		resolver:      resolver,
		placeStore:    placeStore,
		vendor:        vendor,
		limiter:       limiter,
		defaultNation: defaultNation,
		version:       version,
		router:        chi.NewRouter(),
		logger:        logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type"},
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealthCheck)
	s.router.Get("/version", s.handleVersion)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router.Route("/libraries", func(r chi.Router) {
		r.Get("/search", s.handleSearch)
		r.Get("/relevant", s.handleRelevant)
		r.Get("/nearby", s.handleNearby)
	})

	s.router.Get("/places/resolve", s.handleResolvePlace)
	s.router.Get("/places/{id}/libraries", s.handleServedBy)

	// The DRM vendor ID protocol. SignIn carries patron credentials, so it
	// is the one rate-limited route.
	s.router.Route("/AdobeAuth", func(r chi.Router) {
		r.With(s.rateLimit).Post("/SignIn", s.handleSignIn)
		r.Post("/AccountInfo", s.handleAccountInfo)
		r.Get("/Status", s.handleStatus)
	})
}

// rateLimit rejects clients that exceed the token-endpoint budget.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow(r.RemoteAddr) {
			metrics.RateLimitedTotal.Inc()
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
