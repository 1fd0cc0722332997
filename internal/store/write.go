package store

import (
	"context"
	"fmt"

	"github.com/roach88/shorthand/internal/ir"
)

// Render is one recorded rendering of a statement.
type Render struct {
	ID          string
	Query       string
	Fingerprint string
	ParamsHash  string
	Template    string
	SQL         string
	Params      ir.IRObject
	Seq         int64
}

// NewRender fills in the content-addressed fields of a Render: ParamsHash
// from params and ID from the fingerprint and the params hash.
func NewRender(query, fingerprint, template, sql string, params ir.IRObject) (Render, error) {
	ph, err := ir.ParamsHash(params)
	if err != nil {
		return Render{}, fmt.Errorf("new render: %w", err)
	}
	return Render{
		ID:          ir.RenderID(fingerprint, ph),
		Query:       query,
		Fingerprint: fingerprint,
		ParamsHash:  ph,
		Template:    template,
		SQL:         sql,
		Params:      params,
	}, nil
}

// WriteRender records r and returns the seq it was stored under. Recording a
// render with the same fingerprint and params hash again is a no-op that
// returns the original seq.
func (s *Store) WriteRender(ctx context.Context, r Render) (int64, error) {
	paramsJSON, err := marshalParams(r.Params)
	if err != nil {
		return 0, fmt.Errorf("write render: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write render: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM renders`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write render: next seq: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO renders
		(id, query, fingerprint, params_hash, template, sql, params, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		r.ID,
		r.Query,
		r.Fingerprint,
		r.ParamsHash,
		r.Template,
		r.SQL,
		paramsJSON,
		seq,
	)
	if err != nil {
		return 0, fmt.Errorf("write render: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("write render: %w", err)
	}
	if n == 0 {
		if err := tx.QueryRowContext(ctx, `SELECT seq FROM renders WHERE id = ?`, r.ID).Scan(&seq); err != nil {
			return 0, fmt.Errorf("write render: existing seq: %w", err)
		}
		s.logger.Debug("render already recorded", "query", r.Query, "id", r.ID, "seq", seq)
	} else {
		s.logger.Debug("render recorded", "query", r.Query, "id", r.ID, "seq", seq)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write render: commit: %w", err)
	}
	return seq, nil
}
