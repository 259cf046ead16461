// Package sqlite implements the local cache gateway on a single-file
// SQLite database. The whole application state is stored as one JSON
// payload; the cache is a crash recovery aid, not a query surface.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"plancore/pkg/domain"
)

const stateKey = "appState"

// Store caches the full application state locally between sessions.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

var _ domain.LocalStore = (*Store)(nil)

// NewStore opens (or creates) the cache database at path.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		path = "plancore.db"
	}
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Store{db: db, path: path, logger: logger}, nil
}

// Load reads the cached state. A missing or unreadable cache yields the
// default state so a fresh or corrupted cache never blocks startup; every
// loaded state is run through the migration pass before use.
func (s *Store) Load() domain.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	var payload []byte
	err := s.db.QueryRow(`SELECT payload FROM state WHERE key = ?`, stateKey).Scan(&payload)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.DefaultState()
	case err != nil:
		s.logger.Error("cache read failed, starting from defaults", "path", s.path, "error", err)
		return domain.DefaultState()
	}
	var state domain.AppState
	if err := json.Unmarshal(payload, &state); err != nil {
		s.logger.Error("cache payload corrupt, starting from defaults", "path", s.path, "error", err)
		return domain.DefaultState()
	}
	domain.UpgradeState(&state)
	return state
}

// Save replaces the cached state with a full snapshot.
func (s *Store) Save(state domain.AppState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`INSERT INTO state (key, payload) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload`, stateKey, payload); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
