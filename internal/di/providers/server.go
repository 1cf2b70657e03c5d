package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/stacksregistry/registry-server/internal/api"
	"github.com/stacksregistry/registry-server/internal/config"
	"github.com/stacksregistry/registry-server/internal/logger"
	"github.com/stacksregistry/registry-server/internal/places"
	"github.com/stacksregistry/registry-server/internal/ranking"
	"github.com/stacksregistry/registry-server/internal/search"
	"github.com/stacksregistry/registry-server/internal/vendorid"
)

// version is stamped into /version responses.
const version = "dev"

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	engine := do.MustInvoke[*search.Engine](i)
	ranker := do.MustInvoke[*ranking.Ranker](i)
	resolver := do.MustInvoke[*places.Resolver](i)
	vendor := do.MustInvoke[*vendorid.Service](i)
	limiterHandle := do.MustInvoke[*RateLimiterHandle](i)

	handler := api.NewServer(engine, ranker, resolver, storeHandle.Store, vendor,
		limiterHandle.KeyedRateLimiter, cfg.Places.DefaultNation, version, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
