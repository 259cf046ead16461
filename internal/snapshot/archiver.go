// Package snapshot exports and imports full application state archives
// through a blob store, for point-in-time backups independent of the
// remote sync path.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"plancore/internal/infra/blob"
	"plancore/pkg/domain"
)

const keyPrefix = "snapshots/"

// Archiver writes timestamped state archives to a blob store.
type Archiver struct {
	store blob.Store
	nowFn func() time.Time
	newID func() string
}

// NewArchiver wraps a blob store.
func NewArchiver(store blob.Store) *Archiver {
	return &Archiver{store: store, nowFn: time.Now, newID: uuid.NewString}
}

// Export archives the given state and returns the stored object info.
func (a *Archiver) Export(ctx context.Context, state domain.AppState) (blob.Info, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return blob.Info{}, fmt.Errorf("encode state: %w", err)
	}
	// Timestamp for ordering, id suffix for uniqueness within a second.
	key := fmt.Sprintf("%s%s-%s.json", keyPrefix, a.nowFn().UTC().Format("20060102T150405Z"), a.newID()[:8])
	info, err := a.store.Put(ctx, key, bytes.NewReader(payload), "application/json")
	if err != nil {
		return blob.Info{}, fmt.Errorf("store snapshot: %w", err)
	}
	return info, nil
}

// Import reads an archive back into a migrated application state.
func (a *Archiver) Import(ctx context.Context, key string) (domain.AppState, error) {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return domain.AppState{}, fmt.Errorf("fetch snapshot: %w", err)
	}
	defer func() { _ = rc.Close() }()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return domain.AppState{}, fmt.Errorf("read snapshot: %w", err)
	}
	var state domain.AppState
	if err := json.Unmarshal(payload, &state); err != nil {
		return domain.AppState{}, fmt.Errorf("decode snapshot: %w", err)
	}
	domain.UpgradeState(&state)
	return state, nil
}

// List returns the stored archives sorted by key, which is creation order.
func (a *Archiver) List(ctx context.Context) ([]blob.Info, error) {
	return a.store.List(ctx, keyPrefix)
}

// Delete removes one archive.
func (a *Archiver) Delete(ctx context.Context, key string) error {
	return a.store.Delete(ctx, key)
}
