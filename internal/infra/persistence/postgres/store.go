// Package postgres implements the remote gateway on a relational schema:
// one table per state collection holding id-keyed JSON payloads, plus a
// key/value settings table. Saves and loads fan out per table so a single
// broken table degrades that collection only.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"plancore/pkg/domain"
)

var _ domain.RemoteStore = (*Store)(nil)

const (
	defaultDriver      = "pgx"
	defaultLoadTimeout = 15 * time.Second

	settingsKeySettings     = "settings"
	settingsKeyJiraSettings = "jiraSettings"
	settingsKeyActiveID     = "activeScenarioId"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Options tunes gateway construction.
type Options struct {
	Logger *slog.Logger
	// EnsureSchema creates missing tables on startup.
	EnsureSchema bool
	LoadTimeout  time.Duration
}

// Store syncs the application state with a Postgres database.
type Store struct {
	db          *sql.DB
	logger      *slog.Logger
	loadTimeout time.Duration
	tables      []tableSpec
}

// NewStore opens the remote gateway for the given DSN.
func NewStore(dsn string, opts Options) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if opts.EnsureSchema {
		if err := EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.LoadTimeout
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}
	return &Store{db: db, logger: logger, loadTimeout: timeout, tables: stateTables()}, nil
}

// DB exposes the underlying handle for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Save writes a full snapshot: every table is reconciled concurrently
// (upsert current rows, prune departed ids) and failures are aggregated
// into a SaveError naming each broken table. Tables that do not exist in
// the target database are skipped.
func (s *Store) Save(ctx context.Context, state domain.AppState) error {
	var (
		mu       sync.Mutex
		failures []TableError
		wg       sync.WaitGroup
	)
	record := func(table string, err error) {
		mu.Lock()
		failures = append(failures, TableError{Table: table, Err: err})
		mu.Unlock()
	}
	for _, spec := range s.tables {
		wg.Add(1)
		go func(spec tableSpec) {
			defer wg.Done()
			if err := s.syncTable(ctx, spec, state); err != nil {
				if isMissingRelation(err) {
					s.logger.Warn("table missing, skipping", "table", spec.name)
					return
				}
				record(spec.name, err)
			}
		}(spec)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.saveSettings(ctx, state); err != nil {
			if isMissingRelation(err) {
				s.logger.Warn("table missing, skipping", "table", "settings")
				return
			}
			record("settings", err)
		}
	}()
	wg.Wait()
	return newSaveError(failures)
}

// syncTable reconciles one table with the snapshot. When the id listing
// fails the prune step is skipped but upserts still run, so a transient
// read error cannot wipe data or block writes.
func (s *Store) syncTable(ctx context.Context, spec tableSpec, state domain.AppState) error {
	rows, err := spec.rows(state)
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(rows))
	for _, r := range rows {
		keep[r.id] = true
	}

	existing, readErr := s.existingIDs(ctx, spec.name)
	if readErr != nil && isMissingRelation(readErr) {
		return readErr
	}

	var errs []error
	for _, r := range rows {
		if spec.softDelete {
			_, err = s.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (id, payload, is_active) VALUES ($1, $2, $3)
		ON CONFLICT(id) DO UPDATE SET payload = EXCLUDED.payload, is_active = EXCLUDED.is_active`, spec.name), r.id, r.payload, true)
		} else {
			_, err = s.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s (id, payload) VALUES ($1, $2)
		ON CONFLICT(id) DO UPDATE SET payload = EXCLUDED.payload`, spec.name), r.id, r.payload)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("upsert %s: %w", r.id, err))
		}
	}

	if readErr != nil {
		errs = append(errs, fmt.Errorf("list ids: %w", readErr))
		return errors.Join(errs...)
	}
	for _, id := range existing {
		if keep[id] {
			continue
		}
		if spec.softDelete {
			_, err = s.db.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET is_active = $1 WHERE id = $2`, spec.name), false, id)
		} else {
			_, err = s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, spec.name), id)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("prune %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) existingIDs(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s`, table))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) saveSettings(ctx context.Context, state domain.AppState) error {
	entries := []struct {
		key   string
		value any
	}{
		{settingsKeySettings, state.Settings},
		{settingsKeyJiraSettings, state.JiraSettings},
		{settingsKeyActiveID, state.ActiveScenarioID},
	}
	var errs []error
	for _, e := range entries {
		payload, err := json.Marshal(e.value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", e.key, err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO settings (key, payload) VALUES ($1, $2)
		ON CONFLICT(key) DO UPDATE SET payload = EXCLUDED.payload`, e.key, payload); err != nil {
			errs = append(errs, fmt.Errorf("upsert %s: %w", e.key, err))
		}
	}
	return errors.Join(errs...)
}

// Load reads the remote state. An empty database yields (nil, nil) so the
// caller can fall back to its local cache; a database where every table is
// unreadable yields an error. Partial failures degrade to whatever loaded,
// and inactive team members are filtered out.
func (s *Store) Load(ctx context.Context) (*domain.AppState, error) {
	ctx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		state    domain.AppState
		failed   int
		rowsSeen bool
	)
	total := len(s.tables) + 1

	for _, spec := range s.tables {
		wg.Add(1)
		go func(spec tableSpec) {
			defer wg.Done()
			payloads, err := s.tablePayloads(ctx, spec)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if isMissingRelation(err) {
					return
				}
				s.logger.Warn("table load failed", "table", spec.name, "error", err)
				failed++
				return
			}
			if err := spec.assign(&state, payloads); err != nil {
				s.logger.Warn("table decode failed", "table", spec.name, "error", err)
				failed++
				return
			}
			if len(payloads) > 0 {
				rowsSeen = true
			}
		}(spec)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		found, err := s.loadSettings(ctx, &mu, &state)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if isMissingRelation(err) {
				return
			}
			s.logger.Warn("settings load failed", "error", err)
			failed++
			return
		}
		if found {
			rowsSeen = true
		}
	}()
	wg.Wait()

	if failed == total {
		return nil, fmt.Errorf("remote load failed: all %d tables unreadable", total)
	}
	if !rowsSeen {
		return nil, nil
	}
	domain.UpgradeState(&state)
	return &state, nil
}

// tablePayloads reads every row of one table. Soft-deleted rows are
// filtered here rather than in SQL so the predicate stays in one place.
func (s *Store) tablePayloads(ctx context.Context, spec tableSpec) ([][]byte, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s`, spec.name)
	if spec.softDelete {
		query = fmt.Sprintf(`SELECT payload, is_active FROM %s`, spec.name)
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var payloads [][]byte
	for rows.Next() {
		var payload []byte
		if spec.softDelete {
			var active sql.NullBool
			if err := rows.Scan(&payload, &active); err != nil {
				return nil, err
			}
			if active.Valid && !active.Bool {
				continue
			}
		} else {
			if err := rows.Scan(&payload); err != nil {
				return nil, err
			}
		}
		payloads = append(payloads, append([]byte(nil), payload...))
	}
	return payloads, rows.Err()
}

func (s *Store) loadSettings(ctx context.Context, mu *sync.Mutex, state *domain.AppState) (bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, payload FROM settings`)
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()
	found := false
	for rows.Next() {
		var key string
		var payload []byte
		if err := rows.Scan(&key, &payload); err != nil {
			return found, err
		}
		mu.Lock()
		switch key {
		case settingsKeySettings:
			err = json.Unmarshal(payload, &state.Settings)
		case settingsKeyJiraSettings:
			err = json.Unmarshal(payload, &state.JiraSettings)
		case settingsKeyActiveID:
			err = json.Unmarshal(payload, &state.ActiveScenarioID)
		}
		mu.Unlock()
		if err != nil {
			return found, fmt.Errorf("decode %s: %w", key, err)
		}
		found = true
	}
	return found, rows.Err()
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a
// restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
