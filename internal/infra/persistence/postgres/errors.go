package postgres

import (
	"errors"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// TableError records a failure scoped to a single table. One broken table
// never blocks the rest of a save or load.
type TableError struct {
	Table string
	Err   error
}

func (e TableError) Error() string { return e.Table + ": " + e.Err.Error() }

func (e TableError) Unwrap() error { return e.Err }

// SaveError aggregates the per-table failures of one save pass. Tables are
// sorted by name so the message is deterministic.
type SaveError struct {
	Tables []TableError
}

func (e *SaveError) Error() string {
	parts := make([]string, len(e.Tables))
	for i, t := range e.Tables {
		parts[i] = t.Error()
	}
	return strings.Join(parts, "; ")
}

func (e *SaveError) Unwrap() []error {
	errs := make([]error, len(e.Tables))
	for i := range e.Tables {
		errs[i] = e.Tables[i]
	}
	return errs
}

func newSaveError(tables []TableError) error {
	if len(tables) == 0 {
		return nil
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Table < tables[j].Table })
	return &SaveError{Tables: tables}
}

const undefinedTableCode = "42P01"

// isMissingRelation reports whether err means the target table does not
// exist yet, which is treated as "no data" rather than a failure.
func isMissingRelation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == undefinedTableCode
	}
	msg := err.Error()
	return strings.Contains(msg, "does not exist") && strings.Contains(msg, "relation")
}
