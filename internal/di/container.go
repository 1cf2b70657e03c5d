// Package di provides dependency injection configuration for the registry server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/stacksregistry/registry-server/internal/config"
	"github.com/stacksregistry/registry-server/internal/di/providers"
	"github.com/stacksregistry/registry-server/internal/logger"
	"github.com/stacksregistry/registry-server/internal/places"
	"github.com/stacksregistry/registry-server/internal/ranking"
	"github.com/stacksregistry/registry-server/internal/search"
	"github.com/stacksregistry/registry-server/internal/sct"
	"github.com/stacksregistry/registry-server/internal/vendorid"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchEngine)

	// Geographic cores
	do.Provide(injector, providers.ProvideRanker)
	do.Provide(injector, providers.ProvideResolver)

	// DRM vendor ID layer
	do.Provide(injector, providers.ProvideURNMinter)
	do.Provide(injector, providers.ProvideDecoder)
	do.Provide(injector, providers.ProvideVendorService)
	do.Provide(injector, providers.ProvideRateLimiter)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*search.Engine](injector)
	_ = do.MustInvoke[*ranking.Ranker](injector)
	_ = do.MustInvoke[*places.Resolver](injector)
	_ = do.MustInvoke[*sct.URNMinter](injector)
	_ = do.MustInvoke[*sct.Decoder](injector)
	_ = do.MustInvoke[*vendorid.Service](injector)
	_ = do.MustInvoke[*providers.RateLimiterHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Rebuild the description index if it is empty but libraries exist.
	providers.ReindexIfNeeded(injector)

	return nil
}
