package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/stacksregistry/registry-server/internal/config"
	"github.com/stacksregistry/registry-server/internal/domain"
	"github.com/stacksregistry/registry-server/internal/logger"
	"github.com/stacksregistry/registry-server/internal/search"
)

// SearchIndexHandle wraps the description index with shutdown capability.
type SearchIndexHandle struct {
	*search.DescriptionIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve description index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewDescriptionIndex(cfg.Database.SearchIndexPath)
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized",
		"path", cfg.Database.SearchIndexPath, "documents", docCount)

	return &SearchIndexHandle{DescriptionIndex: index}, nil
}

// ProvideSearchEngine provides the library search engine.
func ProvideSearchEngine(i do.Injector) (*search.Engine, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return search.New(storeHandle.Store, indexHandle.DescriptionIndex, log), nil
}

// ReindexIfNeeded rebuilds the description index when it is empty but
// libraries exist. Should be called after all services are wired.
func ReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	// The testing feed is the superset of feed-eligible libraries.
	ctx := context.Background()
	records, err := storeHandle.LibraryRecords(ctx, false)
	if err != nil || len(records) == 0 {
		return
	}

	libraries := make([]*domain.Library, 0, len(records))
	for _, rec := range records {
		libraries = append(libraries, rec.Library)
	}

	log.Info("Search index is empty but libraries exist, triggering initial reindex",
		"library_count", len(libraries),
	)

	if err := indexHandle.IndexLibraries(libraries); err != nil {
		log.Error("Initial search reindex failed", "error", err)
		return
	}

	count, _ := indexHandle.DocumentCount()
	log.Info("Initial search reindex completed", "documents", count)
}
