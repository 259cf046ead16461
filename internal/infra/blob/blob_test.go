package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("filesystem store: %v", err)
	}
	return map[string]Store{
		"memory": NewMemory(),
		"fs":     fsStore,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			payload := `{"projects":[]}`
			info, err := store.Put(ctx, "snapshots/2026-02-01.json", strings.NewReader(payload), "application/json")
			if err != nil {
				t.Fatalf("put: %v", err)
			}
			if info.Size != int64(len(payload)) {
				t.Fatalf("size = %d, want %d", info.Size, len(payload))
			}

			got, rc, err := store.Get(ctx, "snapshots/2026-02-01.json")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			defer func() { _ = rc.Close() }()
			body, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(body) != payload {
				t.Fatalf("body = %q", body)
			}
			if got.Key != "snapshots/2026-02-01.json" {
				t.Fatalf("key = %q", got.Key)
			}
		})
	}
}

func TestStorePutOverwrites(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Put(ctx, "k", strings.NewReader("old"), ""); err != nil {
				t.Fatalf("put old: %v", err)
			}
			if _, err := store.Put(ctx, "k", strings.NewReader("new"), ""); err != nil {
				t.Fatalf("put new: %v", err)
			}
			_, rc, err := store.Get(ctx, "k")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			defer func() { _ = rc.Close() }()
			body, _ := io.ReadAll(rc)
			if string(body) != "new" {
				t.Fatalf("body = %q, want new", body)
			}
		})
	}
}

func TestStoreListFiltersAndSorts(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, key := range []string{"snapshots/b.json", "snapshots/a.json", "other/c.json"} {
				if _, err := store.Put(ctx, key, strings.NewReader("x"), ""); err != nil {
					t.Fatalf("put %s: %v", key, err)
				}
			}
			infos, err := store.List(ctx, "snapshots/")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(infos) != 2 || infos[0].Key != "snapshots/a.json" || infos[1].Key != "snapshots/b.json" {
				t.Fatalf("unexpected listing: %#v", infos)
			}
		})
	}
}

func TestStoreDeleteAndMissing(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := store.Put(ctx, "k", strings.NewReader("x"), ""); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := store.Delete(ctx, "k"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := store.Delete(ctx, "k"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on double delete, got %v", err)
			}
		})
	}
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("filesystem store: %v", err)
	}
	keys := []string{"", ".", ".."}
	for _, key := range keys {
		if _, err := store.Put(context.Background(), key, strings.NewReader("x"), ""); err == nil {
			t.Fatalf("key %q must be rejected", key)
		}
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	mem, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if mem.Driver() != DriverMemory {
		t.Fatalf("driver = %s", mem.Driver())
	}
	fsStore, err := Open(ctx, Config{FSRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("open default: %v", err)
	}
	if fsStore.Driver() != DriverFilesystem {
		t.Fatalf("driver = %s", fsStore.Driver())
	}
	if _, err := Open(ctx, Config{Driver: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
