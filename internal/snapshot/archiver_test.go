package snapshot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"plancore/internal/infra/blob"
	"plancore/pkg/domain"
)

func testArchiver() *Archiver {
	a := NewArchiver(blob.NewMemory())
	var tick int64
	a.nowFn = func() time.Time {
		tick++
		return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(tick) * time.Minute)
	}
	var seq int
	a.newID = func() string {
		seq++
		return fmt.Sprintf("%08d", seq)
	}
	return a
}

func TestArchiverRoundTrip(t *testing.T) {
	a := testArchiver()
	ctx := context.Background()

	state := domain.DefaultState()
	state.Projects = []domain.Project{{ID: "p1", Name: "Billing", Phases: []domain.Phase{
		{ID: "ph1", StartDate: "2026-01-01", EndDate: "2026-03-31"},
	}}}
	state.Scenarios = []domain.Scenario{{ID: "sc1", Name: "Hiring push"}}

	info, err := a.Export(ctx, state)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if info.Key != "snapshots/20260201T120100Z-00000001.json" {
		t.Fatalf("key = %q", info.Key)
	}

	got, err := a.Import(ctx, info.Key)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(got.Projects) != 1 || got.Projects[0].Name != "Billing" {
		t.Fatalf("projects did not survive: %#v", got.Projects)
	}
	if len(got.Scenarios) != 1 {
		t.Fatalf("scenarios did not survive: %#v", got.Scenarios)
	}
}

func TestArchiverImportMigratesLegacyArchives(t *testing.T) {
	a := testArchiver()
	ctx := context.Background()

	legacy := domain.AppState{
		Projects: []domain.Project{{ID: "p1", Phases: []domain.Phase{{ID: "ph1", Quarter: "Q1 2026"}}}},
	}
	info, err := a.Export(ctx, legacy)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	got, err := a.Import(ctx, info.Key)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got.Settings != domain.DefaultSettings() {
		t.Fatalf("settings not defaulted: %#v", got.Settings)
	}
	ph := got.Projects[0].Phases[0]
	if ph.StartDate != "2026-01-01" || ph.EndDate != "2026-03-31" {
		t.Fatalf("legacy quarter not converted: %q..%q", ph.StartDate, ph.EndDate)
	}
}

func TestArchiverListOrdersByCreation(t *testing.T) {
	a := testArchiver()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := a.Export(ctx, domain.DefaultState()); err != nil {
			t.Fatalf("export %d: %v", i, err)
		}
	}
	infos, err := a.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("archives = %d, want 3", len(infos))
	}
	for i := 1; i < len(infos); i++ {
		if infos[i-1].Key >= infos[i].Key {
			t.Fatalf("listing out of order: %q >= %q", infos[i-1].Key, infos[i].Key)
		}
	}
}

func TestArchiverDelete(t *testing.T) {
	a := testArchiver()
	ctx := context.Background()
	info, err := a.Export(ctx, domain.DefaultState())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := a.Delete(ctx, info.Key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := a.Import(ctx, info.Key); err == nil {
		t.Fatal("expected import of deleted archive to fail")
	}
}
