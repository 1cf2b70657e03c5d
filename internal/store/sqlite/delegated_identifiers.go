package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/stacksregistry/registry-server/internal/domain"
	"github.com/stacksregistry/registry-server/internal/id"
)

const delegatedIdentifierColumns = `id, created_at, type, library_id, patron_identifier, delegated_identifier`

// scanDelegatedIdentifier scans a row into a domain.DelegatedPatronIdentifier.
func scanDelegatedIdentifier(scanner interface{ Scan(dest ...any) error }) (*domain.DelegatedPatronIdentifier, error) {
	var dpi domain.DelegatedPatronIdentifier
	var createdAt string

	err := scanner.Scan(
		&dpi.ID,
		&createdAt,
		&dpi.Type,
		&dpi.LibraryID,
		&dpi.PatronIdentifier,
		&dpi.DelegatedIdentifier,
	)
	if err != nil {
		return nil, err
	}

	dpi.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &dpi, nil
}

// GetOrCreateDelegatedIdentifier returns the delegated identifier for
// (idType, libraryID, patronIdentifier), minting a new one with factory only
// if none exists. The insert is optimistic: a concurrent writer losing the
// race falls back to reading the winner's row, so the same patron always
// gets the same identifier. The bool reports whether a row was created.
func (s *Store) GetOrCreateDelegatedIdentifier(ctx context.Context, idType, libraryID, patronIdentifier string, factory func() (string, error)) (*domain.DelegatedPatronIdentifier, bool, error) {
	dpi, err := s.getDelegatedIdentifier(ctx, idType, libraryID, patronIdentifier)
	if err == nil {
		return dpi, false, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, err
	}

	delegated, err := factory()
	if err != nil {
		return nil, false, err
	}

	dpi = &domain.DelegatedPatronIdentifier{
		ID:                  id.MustGenerate("dpi"),
		Type:                idType,
		LibraryID:           libraryID,
		PatronIdentifier:    patronIdentifier,
		DelegatedIdentifier: delegated,
		CreatedAt:           time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO delegated_patron_identifiers (
			`+delegatedIdentifierColumns+`
		) VALUES (?, ?, ?, ?, ?, ?)`,
		dpi.ID,
		formatTime(dpi.CreatedAt),
		dpi.Type,
		dpi.LibraryID,
		dpi.PatronIdentifier,
		dpi.DelegatedIdentifier,
	)
	if err == nil {
		return dpi, true, nil
	}
	if !strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return nil, false, err
	}

	// Lost the race; the winner's identifier is authoritative.
	dpi, err = s.getDelegatedIdentifier(ctx, idType, libraryID, patronIdentifier)
	if err != nil {
		return nil, false, err
	}
	return dpi, false, nil
}

func (s *Store) getDelegatedIdentifier(ctx context.Context, idType, libraryID, patronIdentifier string) (*domain.DelegatedPatronIdentifier, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+delegatedIdentifierColumns+`
		FROM delegated_patron_identifiers
		WHERE type = ? AND library_id = ? AND patron_identifier = ?`,
		idType, libraryID, patronIdentifier,
	)
	return scanDelegatedIdentifier(row)
}
