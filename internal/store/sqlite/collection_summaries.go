package sqlite

import (
	"context"

	"github.com/stacksregistry/registry-server/internal/domain"
)

// SetCollectionSummary records (or replaces) the approximate number of
// titles a library holds in one language.
func (s *Store) SetCollectionSummary(ctx context.Context, summary *domain.CollectionSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collection_summaries (library_id, language, size)
		VALUES (?, ?, ?)
		ON CONFLICT (library_id, language) DO UPDATE SET size = excluded.size`,
		summary.LibraryID, summary.Language, summary.Size,
	)
	return err
}

// MaxCollectionSize returns the largest collection summary size recorded for
// the language across all libraries, or zero if there are none.
func (s *Store) MaxCollectionSize(ctx context.Context, language string) (int64, error) {
	var maxSize int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(size), 0) FROM collection_summaries WHERE language = ?`,
		language,
	).Scan(&maxSize)
	if err != nil {
		return 0, err
	}
	return maxSize, nil
}
