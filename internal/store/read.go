package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a render does not exist.
var ErrNotFound = errors.New("render not found")

const renderColumns = `id, query, fingerprint, params_hash, template, sql, params, seq`

// ReadRenders returns every render recorded for query, ordered by seq.
// An empty query returns every render. The result is never nil.
func (s *Store) ReadRenders(ctx context.Context, query string) ([]Render, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if query == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+renderColumns+`
			FROM renders
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+renderColumns+`
			FROM renders
			WHERE query = ?
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`, query)
	}
	if err != nil {
		return nil, fmt.Errorf("query renders: %w", err)
	}
	defer rows.Close()

	renders := []Render{}
	for rows.Next() {
		r, err := scanRender(rows)
		if err != nil {
			return nil, err
		}
		renders = append(renders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate renders: %w", err)
	}
	return renders, nil
}

// ReadRender returns the render with the given ID.
func (s *Store) ReadRender(ctx context.Context, id string) (Render, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+renderColumns+` FROM renders WHERE id = ?`, id)
	r, err := scanRender(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Render{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// Fingerprints returns the distinct statement fingerprints recorded for
// query, in the order they were first seen.
func (s *Store) Fingerprints(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fingerprint
		FROM renders
		WHERE query = ?
		GROUP BY fingerprint
		ORDER BY MIN(seq) ASC
	`, query)
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()

	fps := []string{}
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		fps = append(fps, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprints: %w", err)
	}
	return fps, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRender(row scanner) (Render, error) {
	var (
		r          Render
		paramsJSON string
	)
	err := row.Scan(&r.ID, &r.Query, &r.Fingerprint, &r.ParamsHash, &r.Template, &r.SQL, &paramsJSON, &r.Seq)
	if errors.Is(err, sql.ErrNoRows) {
		return Render{}, err
	}
	if err != nil {
		return Render{}, fmt.Errorf("scan render: %w", err)
	}
	if r.Params, err = unmarshalParams(paramsJSON); err != nil {
		return Render{}, err
	}
	return r, nil
}
