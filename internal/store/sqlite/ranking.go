package sqlite

import (
	"context"
	"database/sql"

	"github.com/stacksregistry/registry-server/internal/domain"
	"github.com/stacksregistry/registry-server/internal/store"
)

// RankingCandidates returns every feed-eligible library whose collection
// summaries match the language, or that has no summaries at all (an unknown
// collection is not disqualifying), with service-area geometries attached.
func (s *Store) RankingCandidates(ctx context.Context, language string, production bool) ([]store.RankingCandidate, error) {
	query, args, err := sq.Select(prefixColumns("l", libraryColumns)...).
		Column("cs.size").
		From("libraries l").
		LeftJoin("collection_summaries cs ON cs.library_id = l.id AND cs.language = ?", language).
		Where(feedRestriction(production)).
		Where(`(cs.library_id IS NOT NULL
			OR NOT EXISTS (SELECT 1 FROM collection_summaries c2 WHERE c2.library_id = l.id))`).
		OrderBy("l.id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []store.RankingCandidate
	index := make(map[string]int)
	for rows.Next() {
		cand, err := scanRankingCandidate(rows)
		if err != nil {
			return nil, err
		}
		index[cand.Library.ID] = len(candidates)
		candidates = append(candidates, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.Library.ID
	}
	areas, err := s.serviceAreasForLibraries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for libID, libAreas := range areas {
		i := index[libID]
		for _, a := range libAreas {
			switch a.saType {
			case domain.ServiceAreaEligibility:
				candidates[i].EligibilityAreas = append(candidates[i].EligibilityAreas, a.area)
			case domain.ServiceAreaFocus:
				candidates[i].FocusAreas = append(candidates[i].FocusAreas, a.area)
			}
		}
	}

	return candidates, nil
}

// scanRankingCandidate scans a library row with a trailing nullable
// collection size.
func scanRankingCandidate(rows *sql.Rows) (store.RankingCandidate, error) {
	var lib domain.Library
	var (
		createdAt     string
		updatedAt     string
		libraryStage  string
		registryStage string
		audiences     string
		size          sql.NullInt64
	)

	err := rows.Scan(
		&lib.ID,
		&createdAt,
		&updatedAt,
		&lib.Name,
		&lib.ShortName,
		&lib.SharedSecret,
		&lib.Description,
		&libraryStage,
		&registryStage,
		&audiences,
		&size,
	)
	if err != nil {
		return store.RankingCandidate{}, err
	}

	lib.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return store.RankingCandidate{}, err
	}
	lib.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return store.RankingCandidate{}, err
	}
	if err := unmarshalAudiences(audiences, &lib.Audiences); err != nil {
		return store.RankingCandidate{}, err
	}
	lib.LibraryStage = domain.Stage(libraryStage)
	lib.RegistryStage = domain.Stage(registryStage)

	cand := store.RankingCandidate{Library: &lib}
	if size.Valid {
		cand.CollectionSize = &size.Int64
	}
	return cand, nil
}
