package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/stacksregistry/registry-server/internal/domain"
	"github.com/stacksregistry/registry-server/internal/store"
)

// libraryColumns is the ordered list of columns selected in library queries.
// Must match the scan order in scanLibrary.
const libraryColumns = `id, created_at, updated_at, name, short_name, shared_secret, description, library_stage, registry_stage, audiences`

// scanLibrary scans a sql.Row (or sql.Rows via its Scan method) into a domain.Library.
func scanLibrary(scanner interface{ Scan(dest ...any) error }) (*domain.Library, error) {
	var lib domain.Library

	var (
		createdAt     string
		updatedAt     string
		libraryStage  string
		registryStage string
		audiences     string
	)

	err := scanner.Scan(
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
	)
	if err != nil {
		return nil, err
	}

	// Parse timestamps.
	lib.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	lib.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	// Parse audiences JSON array.
	if err := json.Unmarshal([]byte(audiences), &lib.Audiences); err != nil {
		return nil, err
	}

	lib.LibraryStage = domain.Stage(libraryStage)
	lib.RegistryStage = domain.Stage(registryStage)

	return &lib, nil
}

// feedRestriction builds the WHERE clause for feed eligibility: the
// production feed requires both stages to be production, the testing feed
// accepts production or testing from both.
func feedRestriction(production bool) squirrel.Sqlizer {
	if production {
		return squirrel.Eq{
			"library_stage":  string(domain.StageProduction),
			"registry_stage": string(domain.StageProduction),
		}
	}
	stages := []string{string(domain.StageProduction), string(domain.StageTesting)}
	return squirrel.And{
		squirrel.Eq{"library_stage": stages},
		squirrel.Eq{"registry_stage": stages},
	}
}

// CreateLibrary inserts a new library into the database.
// Returns store.ErrAlreadyExists on duplicate ID or short name.
func (s *Store) CreateLibrary(ctx context.Context, lib *domain.Library) error {
	if err := domain.ValidateShortName(lib.ShortName); err != nil {
		return err
	}

	audiencesJSON, err := json.Marshal(lib.Audiences)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO libraries (
			`+libraryColumns+`
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lib.ID,
		formatTime(lib.CreatedAt),
		formatTime(lib.UpdatedAt),
		lib.Name,
		lib.ShortName,
		lib.SharedSecret,
		lib.Description,
		string(lib.LibraryStage),
		string(lib.RegistryStage),
		string(audiencesJSON),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetLibrary retrieves a library by ID.
// Returns store.ErrNotFound if the library does not exist.
func (s *Store) GetLibrary(ctx context.Context, id string) (*domain.Library, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+libraryColumns+` FROM libraries WHERE id = ?`, id)

	lib, err := scanLibrary(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return lib, nil
}

// LibraryByShortName retrieves a library by its unique short name.
// Returns store.ErrNotFound if no library uses the short name.
func (s *Store) LibraryByShortName(ctx context.Context, shortName string) (*domain.Library, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+libraryColumns+` FROM libraries WHERE short_name = ?`, shortName)

	lib, err := scanLibrary(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return lib, nil
}

// UpdateLibrary updates a library's mutable fields.
// Returns store.ErrNotFound if the library does not exist.
func (s *Store) UpdateLibrary(ctx context.Context, lib *domain.Library) error {
	audiencesJSON, err := json.Marshal(lib.Audiences)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE libraries
		SET updated_at = ?, name = ?, shared_secret = ?, description = ?,
		    library_stage = ?, registry_stage = ?, audiences = ?
		WHERE id = ?`,
		formatTime(time.Now()),
		lib.Name,
		lib.SharedSecret,
		lib.Description,
		string(lib.LibraryStage),
		string(lib.RegistryStage),
		string(audiencesJSON),
		lib.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListLibraries returns the libraries eligible for the requested feed,
// ordered by ID.
func (s *Store) ListLibraries(ctx context.Context, production bool) ([]*domain.Library, error) {
	query, args, err := sq.Select(libraryColumns).
		From("libraries").
		Where(feedRestriction(production)).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var libs []*domain.Library
	for rows.Next() {
		lib, err := scanLibrary(rows)
		if err != nil {
			return nil, err
		}
		libs = append(libs, lib)
	}
	return libs, rows.Err()
}

// CreateLibraryAlias records an alternate name for a library.
// Returns store.ErrAlreadyExists on a duplicate (library, name, language).
func (s *Store) CreateLibraryAlias(ctx context.Context, alias *domain.LibraryAlias) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO library_aliases (id, library_id, name, language)
		VALUES (?, ?, ?, ?)`,
		alias.ID, alias.LibraryID, alias.Name, alias.Language,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// LibraryRecords returns every feed-eligible library with its aliases and
// service-area geometries attached, in one batch.
func (s *Store) LibraryRecords(ctx context.Context, production bool) ([]store.LibraryRecord, error) {
	libs, err := s.ListLibraries(ctx, production)
	if err != nil {
		return nil, err
	}
	if len(libs) == 0 {
		return nil, nil
	}

	ids := make([]string, len(libs))
	records := make([]store.LibraryRecord, len(libs))
	index := make(map[string]int, len(libs))
	for i, lib := range libs {
		ids[i] = lib.ID
		records[i] = store.LibraryRecord{Library: lib}
		index[lib.ID] = i
	}

	// Aliases.
	query, args, err := sq.Select("library_id", "name").
		From("library_aliases").
		Where(squirrel.Eq{"library_id": ids}).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var libID, name string
		if err := rows.Scan(&libID, &name); err != nil {
			return nil, err
		}
		i := index[libID]
		records[i].Aliases = append(records[i].Aliases, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Service areas, both kinds.
	areas, err := s.serviceAreasForLibraries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for libID, libAreas := range areas {
		i := index[libID]
		for _, a := range libAreas {
			records[i].ServiceAreas = append(records[i].ServiceAreas, a.area)
		}
	}

	return records, nil
}
