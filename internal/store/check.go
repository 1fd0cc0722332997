package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// CheckError reports a statement SQLite rejected. Schema errors are returned
// as plain errors.
type CheckError struct {
	SQL string
	Err error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("sqlite rejected statement: %v", e.Err)
}

func (e *CheckError) Unwrap() error { return e.Err }

// Check creates schema in a fresh in-memory database and prepares stmt
// against it. The statement is never executed.
func Check(ctx context.Context, schema []string, stmt string) error {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return fmt.Errorf("open scratch database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	for i, ddl := range schema {
		if strings.TrimSpace(ddl) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}

	prepared, err := db.PrepareContext(ctx, stmt)
	if err != nil {
		return &CheckError{SQL: stmt, Err: err}
	}
	return prepared.Close()
}
