package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates every gateway table that does not exist yet. It is
// optional: deployments that manage DDL elsewhere can skip it, and a save
// against an unmanaged database simply skips tables it cannot find.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

func schemaStatements() []string {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`,
	}
	for _, spec := range stateTables() {
		if spec.softDelete {
			stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`, spec.name))
			continue
		}
		stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`, spec.name))
	}
	return stmts
}
