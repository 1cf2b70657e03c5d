package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/stacksregistry/registry-server/internal/domain"
	"github.com/stacksregistry/registry-server/internal/geo"
	"github.com/stacksregistry/registry-server/internal/store"
)

// placeColumns is the ordered list of columns selected in place queries.
// Must match the scan order in scanPlace.
const placeColumns = `id, created_at, updated_at, type, external_id, external_name, abbreviated_name, parent_id, geometry`

// scanPlace scans a sql.Row (or sql.Rows via its Scan method) into a domain.Place.
func scanPlace(scanner interface{ Scan(dest ...any) error }) (*domain.Place, error) {
	var p domain.Place

	var (
		createdAt       string
		updatedAt       string
		placeType       string
		externalID      sql.NullString
		abbreviatedName sql.NullString
		parentID        sql.NullString
		geometry        sql.NullString
	)

	err := scanner.Scan(
		&p.ID,
		&createdAt,
		&updatedAt,
		&placeType,
		&externalID,
		&p.ExternalName,
		&abbreviatedName,
		&parentID,
		&geometry,
	)
	if err != nil {
		return nil, err
	}

	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	p.Type = domain.PlaceType(placeType)
	p.ExternalID = externalID.String
	p.AbbreviatedName = abbreviatedName.String
	p.ParentID = parentID.String

	// The everywhere place stores no geometry.
	if geometry.Valid && geometry.String != "" {
		p.Geometry, err = geo.ParseGeoJSON([]byte(geometry.String))
		if err != nil {
			return nil, err
		}
	}

	return &p, nil
}

// CreatePlace inserts a new place into the database.
// Returns store.ErrAlreadyExists on duplicate ID.
func (s *Store) CreatePlace(ctx context.Context, p *domain.Place) error {
	var geometry sql.NullString
	if p.Geometry != nil {
		doc, err := p.Geometry.MarshalGeoJSON()
		if err != nil {
			return err
		}
		geometry = sql.NullString{String: string(doc), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO places (
			`+placeColumns+`
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
		string(p.Type),
		nullString(p.ExternalID),
		p.ExternalName,
		nullString(p.AbbreviatedName),
		nullString(p.ParentID),
		geometry,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetPlace retrieves a place by ID.
// Returns store.ErrNotFound if the place does not exist.
func (s *Store) GetPlace(ctx context.Context, id string) (*domain.Place, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+placeColumns+` FROM places WHERE id = ?`, id)

	p, err := scanPlace(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PlacesByName finds places whose external name, abbreviated name, or alias
// equals name. When placeType is nil, counties are excluded: a bare "Foo"
// almost always means the city of Foo, and county queries arrive with an
// explicit type attached.
func (s *Store) PlacesByName(ctx context.Context, name string, placeType *domain.PlaceType) ([]*domain.Place, error) {
	cols := make([]string, 0, 9)
	for _, c := range strings.Split(placeColumns, ", ") {
		cols = append(cols, "p."+c)
	}

	builder := sq.Select(cols...).
		Distinct().
		From("places p").
		LeftJoin("place_aliases pa ON pa.place_id = p.id").
		Where(squirrel.Or{
			squirrel.Eq{"p.external_name": name},
			squirrel.Eq{"p.abbreviated_name": name},
			squirrel.Eq{"pa.name": name},
		}).
		OrderBy("p.id ASC")

	if placeType != nil {
		builder = builder.Where(squirrel.Eq{"p.type": string(*placeType)})
	} else {
		builder = builder.Where(squirrel.NotEq{"p.type": string(domain.PlaceCounty)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []*domain.Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	return places, rows.Err()
}

// PlaceRecords returns every place with its aliases, in one batch.
func (s *Store) PlaceRecords(ctx context.Context) ([]store.PlaceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+placeColumns+` FROM places ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []store.PlaceRecord
	index := make(map[string]int)
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		index[p.ID] = len(records)
		records = append(records, store.PlaceRecord{Place: p})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	aliasRows, err := s.db.QueryContext(ctx,
		`SELECT place_id, name FROM place_aliases`)
	if err != nil {
		return nil, err
	}
	defer aliasRows.Close()
	for aliasRows.Next() {
		var placeID, name string
		if err := aliasRows.Scan(&placeID, &name); err != nil {
			return nil, err
		}
		if i, ok := index[placeID]; ok {
			records[i].Aliases = append(records[i].Aliases, name)
		}
	}
	return records, aliasRows.Err()
}

// CreatePlaceAlias records an alternate name for a place.
// Returns store.ErrAlreadyExists on a duplicate (place, name, language).
func (s *Store) CreatePlaceAlias(ctx context.Context, alias *domain.PlaceAlias) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO place_aliases (id, place_id, name, language)
		VALUES (?, ?, ?, ?)`,
		alias.ID, alias.PlaceID, alias.Name, alias.Language,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// CreateServiceArea ties a library to a place it serves.
// Returns store.ErrAlreadyExists on a duplicate (library, place, type).
func (s *Store) CreateServiceArea(ctx context.Context, area *domain.ServiceArea) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_areas (id, library_id, place_id, type)
		VALUES (?, ?, ?, ?)`,
		area.ID, area.LibraryID, area.PlaceID, string(area.Type),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// typedArea is a service-area geometry tagged with its eligibility/focus type.
type typedArea struct {
	saType domain.ServiceAreaType
	area   store.AreaGeometry
}

// serviceAreasForLibraries batch-loads the service areas of the given
// libraries, with each area's place type and geometry attached.
func (s *Store) serviceAreasForLibraries(ctx context.Context, libraryIDs []string) (map[string][]typedArea, error) {
	query, args, err := sq.Select("sa.library_id", "sa.type", "p.id", "p.type", "p.geometry").
		From("service_areas sa").
		Join("places p ON p.id = sa.place_id").
		Where(squirrel.Eq{"sa.library_id": libraryIDs}).
		OrderBy("sa.library_id ASC", "p.id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	areas := make(map[string][]typedArea)
	for rows.Next() {
		var (
			libID    string
			saType   string
			placeID  string
			pType    string
			geometry sql.NullString
		)
		if err := rows.Scan(&libID, &saType, &placeID, &pType, &geometry); err != nil {
			return nil, err
		}
		area := store.AreaGeometry{PlaceID: placeID, PlaceType: domain.PlaceType(pType)}
		if geometry.Valid && geometry.String != "" {
			area.Geometry, err = geo.ParseGeoJSON([]byte(geometry.String))
			if err != nil {
				return nil, err
			}
		}
		areas[libID] = append(areas[libID], typedArea{
			saType: domain.ServiceAreaType(saType),
			area:   area,
		})
	}
	return areas, rows.Err()
}
