package providers

import (
	"github.com/samber/do/v2"

	"github.com/stacksregistry/registry-server/internal/config"
	"github.com/stacksregistry/registry-server/internal/logger"
	"github.com/stacksregistry/registry-server/internal/places"
	"github.com/stacksregistry/registry-server/internal/ranking"
	"github.com/stacksregistry/registry-server/internal/ratelimit"
	"github.com/stacksregistry/registry-server/internal/sct"
	"github.com/stacksregistry/registry-server/internal/vendorid"
)

// ProvideRanker provides the relevance ranker.
func ProvideRanker(i do.Injector) (*ranking.Ranker, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return ranking.New(storeHandle.Store, log), nil
}

// ProvideResolver provides the place name resolver. The city-to-ZIP fallback
// is only wired when a table path is configured.
func ProvideResolver(i do.Injector) (*places.Resolver, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	var zips places.CityZipSource
	if cfg.Places.ZipTablePath != "" {
		source, err := places.LoadCSVZipSource(cfg.Places.ZipTablePath)
		if err != nil {
			return nil, err
		}
		zips = source
		log.Info("City-to-ZIP table loaded", "path", cfg.Places.ZipTablePath)
	}

	return places.NewResolver(storeHandle.Store, zips, log), nil
}

// ProvideURNMinter provides the account identifier minter.
func ProvideURNMinter(i do.Injector) (*sct.URNMinter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return sct.NewURNMinter(cfg.VendorID.NodeValue)
}

// ProvideDecoder provides the Short Client Token decoder.
func ProvideDecoder(i do.Injector) (*sct.Decoder, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	minter := do.MustInvoke[*sct.URNMinter](i)

	return sct.NewDecoder(storeHandle.Store, storeHandle.Store, minter), nil
}

// ProvideVendorService provides the DRM vendor ID service.
func ProvideVendorService(i do.Injector) (*vendorid.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	decoder := do.MustInvoke[*sct.Decoder](i)
	log := do.MustInvoke[*logger.Logger](i)

	delegates := vendorid.NewDelegates(cfg.VendorID.Delegates)
	if len(delegates) > 0 {
		log.Info("Vendor ID delegates configured", "count", len(delegates))
	}

	return vendorid.NewService(cfg.VendorID.Name, decoder, delegates, log), nil
}

// RateLimiterHandle wraps the keyed rate limiter with shutdown capability.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideRateLimiter provides the per-client rate limiter for token endpoints.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	limiter := ratelimit.New(float64(cfg.RateLimit.TokenRPS), cfg.RateLimit.TokenBurst)
	return &RateLimiterHandle{KeyedRateLimiter: limiter}, nil
}
