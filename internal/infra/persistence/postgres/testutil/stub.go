// Package testutil provides a normalized stub database for postgres
// gateway tests: statements are parsed just enough to maintain an
// in-memory table map, with per-table failure injection.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

var stubSeq uint64

// StubConn records normalized statements and maintains in-memory tables.
// The gateway issues statements from concurrent goroutines, so every
// entry point serializes on the connection mutex.
type StubConn struct {
	mu    sync.Mutex
	Execs []string
	// Tables maps table name to rows keyed by column.
	Tables map[string][]map[string]any
	// FailTables makes every statement against a table fail.
	FailTables map[string]bool
	// MissingTables makes statements fail with a "relation does not
	// exist" error, mimicking an unmanaged target schema.
	MissingTables map[string]bool
	// BlockQueries, when non-nil, parks every read until the channel is
	// closed or the query context expires. Lets tests exercise timeouts.
	BlockQueries chan struct{}
	FailPing     bool
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("stubpg%d", atomic.AddUint64(&stubSeq, 1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// Rows returns the rows of a table (soft-deleted rows included).
func (c *StubConn) Rows(table string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, len(c.Tables[table]))
	copy(out, c.Tables[table])
	return out
}

func (c *StubConn) tableErr(table string) error {
	if c.MissingTables != nil && c.MissingTables[table] {
		return fmt.Errorf("relation %q does not exist", table)
	}
	if c.FailTables != nil && c.FailTables[table] {
		return fmt.Errorf("stub failure for %s", table)
	}
	return nil
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) { return nil, fmt.Errorf("not implemented") }

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	normalized := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(normalized, "CREATE TABLE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(normalized, "INSERT INTO"):
		return c.execInsert(query, args)
	case strings.HasPrefix(normalized, "DELETE FROM"):
		return c.execDelete(query, args)
	case strings.HasPrefix(normalized, "UPDATE"):
		return c.execUpdate(query, args)
	}
	return driver.RowsAffected(0), nil
}

func (c *StubConn) execInsert(query string, args []driver.NamedValue) (driver.Result, error) {
	table, cols, err := parseInsert(query)
	if err != nil {
		return nil, err
	}
	if err := c.tableErr(table); err != nil {
		return nil, err
	}
	if len(cols) != len(args) {
		return nil, fmt.Errorf("column/arg mismatch for %s", table)
	}
	row := make(map[string]any, len(cols))
	for i, col := range cols {
		row[col] = args[i].Value
	}
	if strings.Contains(strings.ToUpper(query), "ON CONFLICT") && len(cols) > 0 {
		primary := cols[0]
		var filtered []map[string]any
		for _, existing := range c.Tables[table] {
			if existing[primary] == row[primary] {
				continue
			}
			filtered = append(filtered, existing)
		}
		c.Tables[table] = filtered
	}
	c.Tables[table] = append(c.Tables[table], row)
	return driver.RowsAffected(1), nil
}

func (c *StubConn) execDelete(query string, args []driver.NamedValue) (driver.Result, error) {
	table, col, err := parseDelete(query)
	if err != nil {
		return nil, err
	}
	if err := c.tableErr(table); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("missing args for delete %s", table)
	}
	target := args[0].Value
	var filtered []map[string]any
	for _, row := range c.Tables[table] {
		if row[col] == target {
			continue
		}
		filtered = append(filtered, row)
	}
	c.Tables[table] = filtered
	return driver.RowsAffected(1), nil
}

func (c *StubConn) execUpdate(query string, args []driver.NamedValue) (driver.Result, error) {
	table, setCol, whereCol, err := parseUpdate(query)
	if err != nil {
		return nil, err
	}
	if err := c.tableErr(table); err != nil {
		return nil, err
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("update %s expects set and predicate args", table)
	}
	updated := int64(0)
	for _, row := range c.Tables[table] {
		if row[whereCol] == args[1].Value {
			row[setCol] = args[0].Value
			updated++
		}
	}
	return driver.RowsAffected(updated), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(ctx context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	block := c.BlockQueries
	c.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	table, cols, err := parseSelect(query)
	if err != nil {
		return nil, err
	}
	if err := c.tableErr(table); err != nil {
		return nil, err
	}
	values := make([][]driver.Value, 0, len(c.Tables[table]))
	for _, row := range c.Tables[table] {
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		values = append(values, vals)
	}
	return &stubRows{cols: cols, rows: values}, nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func parseInsert(query string) (string, []string, error) {
	up := strings.ToUpper(query)
	intoIdx := strings.Index(up, "INTO ")
	if intoIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	rest := strings.TrimSpace(query[intoIdx+len("INTO "):])
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open == -1 || closeIdx == -1 || closeIdx <= open {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	table := strings.ToLower(strings.TrimSpace(rest[:open]))
	cols := splitColumns(rest[open+1 : closeIdx])
	return table, cols, nil
}

func parseDelete(query string) (string, string, error) {
	lower := strings.ToLower(strings.TrimSpace(query))
	const prefix = "delete from "
	if !strings.HasPrefix(lower, prefix) {
		return "", "", fmt.Errorf("cannot parse delete: %s", query)
	}
	rest := strings.TrimSpace(query[len(prefix):])
	whereIdx := strings.Index(strings.ToLower(rest), " where ")
	if whereIdx == -1 {
		return "", "", fmt.Errorf("cannot parse delete: %s", query)
	}
	table := strings.ToLower(strings.TrimSpace(rest[:whereIdx]))
	predicate := strings.SplitN(rest[whereIdx+len(" where "):], "=", 2)
	if len(predicate) != 2 {
		return "", "", fmt.Errorf("cannot parse delete predicate: %s", query)
	}
	return table, strings.ToLower(strings.TrimSpace(predicate[0])), nil
}

func parseUpdate(query string) (table, setCol, whereCol string, err error) {
	lower := strings.ToLower(strings.TrimSpace(query))
	const prefix = "update "
	if !strings.HasPrefix(lower, prefix) {
		return "", "", "", fmt.Errorf("cannot parse update: %s", query)
	}
	rest := strings.TrimSpace(lower[len(prefix):])
	setIdx := strings.Index(rest, " set ")
	whereIdx := strings.Index(rest, " where ")
	if setIdx == -1 || whereIdx == -1 || whereIdx <= setIdx {
		return "", "", "", fmt.Errorf("cannot parse update: %s", query)
	}
	table = strings.TrimSpace(rest[:setIdx])
	setClause := strings.SplitN(rest[setIdx+len(" set "):whereIdx], "=", 2)
	whereClause := strings.SplitN(rest[whereIdx+len(" where "):], "=", 2)
	if len(setClause) != 2 || len(whereClause) != 2 {
		return "", "", "", fmt.Errorf("cannot parse update clauses: %s", query)
	}
	return table, strings.TrimSpace(setClause[0]), strings.TrimSpace(whereClause[0]), nil
}

func parseSelect(query string) (string, []string, error) {
	lower := strings.ToLower(strings.TrimSpace(query))
	const prefix = "select "
	if !strings.HasPrefix(lower, prefix) {
		return "", nil, fmt.Errorf("cannot parse select: %s", query)
	}
	fromIdx := strings.Index(lower, " from ")
	if fromIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse select: %s", query)
	}
	cols := query[len(prefix):fromIdx]
	rest := strings.TrimSpace(query[fromIdx+len(" from "):])
	if rest == "" {
		return "", nil, fmt.Errorf("cannot parse select: %s", query)
	}
	table := strings.ToLower(strings.Fields(rest)[0])
	return table, splitColumns(cols), nil
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
