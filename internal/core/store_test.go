package core

import (
	"fmt"
	"testing"
	"time"

	"plancore/pkg/domain"
)

func testStore(t *testing.T, initial domain.AppState) *Store {
	t.Helper()
	s := NewStore(initial)
	var tick int64
	s.nowFn = func() time.Time {
		tick++
		return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(tick) * time.Second)
	}
	var seq int
	s.newID = func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	return s
}

func seededState() domain.AppState {
	s := domain.DefaultState()
	s.Projects = []domain.Project{
		{ID: "p1", Name: "Billing", Phases: []domain.Phase{{ID: "ph1", Assignments: []domain.Assignment{{ID: "a1", MemberID: "m1", Days: 10}}}}},
		{ID: "p2", Name: "Portal", Phases: []domain.Phase{{ID: "ph2"}}},
		{ID: "p3", Name: "Data", Phases: []domain.Phase{{ID: "ph3"}}},
	}
	s.TeamMembers = []domain.TeamMember{
		{ID: "m1", Name: "Ada"}, {ID: "m2", Name: "Brent"}, {ID: "m3", Name: "Cleo"},
		{ID: "m4", Name: "Dev"}, {ID: "m5", Name: "Eyal"},
	}
	s.TimeOff = []domain.TimeOff{{ID: "t1", MemberID: "m1", StartDate: "2026-03-02", EndDate: "2026-03-06"}}
	return s
}

func TestStoreApplyBumpsLastModified(t *testing.T) {
	s := testStore(t, domain.DefaultState())
	before := s.State().LastModified
	countries := []domain.Country{{ID: "c1", Name: "Utopia"}}
	next := s.Apply(domain.Update{Countries: &countries})
	if !next.LastModified.After(before) {
		t.Fatalf("expected LastModified bump, got %v", next.LastModified)
	}
}

func TestStoreScenarioEndToEnd(t *testing.T) {
	s := testStore(t, seededState())

	sc := s.CreateScenario("Q1 2026", "what if")
	if len(sc.Projects) != 3 || len(sc.TeamMembers) != 5 {
		t.Fatalf("scenario should copy 3 projects and 5 members, got %d/%d", len(sc.Projects), len(sc.TeamMembers))
	}
	if got := s.State().ActiveScenarioID; got != "" {
		t.Fatalf("creation must not switch, active=%q", got)
	}

	s.SwitchScenario(sc.ID)
	eff := s.Effective()
	if len(eff.Projects) != 3 || len(eff.TeamMembers) != 5 {
		t.Fatalf("effective state should mirror the scenario, got %d/%d", len(eff.Projects), len(eff.TeamMembers))
	}

	// Delete one project in the scenario view.
	projects := eff.Projects[:2]
	s.Apply(domain.Update{Projects: &projects})

	if got := len(s.Effective().Projects); got != 2 {
		t.Fatalf("scenario should have 2 projects, got %d", got)
	}
	if got := len(s.State().Projects); got != 3 {
		t.Fatalf("baseline must still have 3 projects, got %d", got)
	}
}

func TestStoreScenarioIsolationBothDirections(t *testing.T) {
	s := testStore(t, seededState())
	sc := s.CreateScenario("iso", "")

	// Baseline edit while no scenario is active.
	members := append(s.State().TeamMembers, domain.TeamMember{ID: "m6", Name: "Fay"})
	s.Apply(domain.Update{TeamMembers: &members})

	state := s.State()
	i := domain.FindScenario(state.Scenarios, sc.ID)
	if i < 0 {
		t.Fatal("scenario missing")
	}
	if got := len(state.Scenarios[i].TeamMembers); got != 5 {
		t.Fatalf("baseline edit leaked into scenario: %d members", got)
	}

	// Scenario edit must not leak into the baseline.
	s.SwitchScenario(sc.ID)
	scoped := []domain.TeamMember{{ID: "only", Name: "Solo"}}
	s.Apply(domain.Update{TeamMembers: &scoped})
	if got := len(s.State().TeamMembers); got != 6 {
		t.Fatalf("scenario edit leaked into baseline: %d members", got)
	}
}

func TestStoreDuplicateScenarioIndependence(t *testing.T) {
	s := testStore(t, seededState())
	src := s.CreateScenario("src", "")
	dup, err := s.DuplicateScenario(src.ID, "dup")
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if dup.ID == src.ID {
		t.Fatal("duplicate must get a fresh id")
	}

	s.SwitchScenario(dup.ID)
	empty := []domain.TeamMember{}
	s.Apply(domain.Update{TeamMembers: &empty})

	state := s.State()
	if got := len(state.Scenarios[domain.FindScenario(state.Scenarios, src.ID)].TeamMembers); got != 5 {
		t.Fatalf("editing the duplicate mutated the source: %d members", got)
	}
}

func TestStoreDuplicateScenarioMissingSource(t *testing.T) {
	s := testStore(t, seededState())
	if _, err := s.DuplicateScenario("nope", "dup"); err == nil {
		t.Fatal("expected error for missing source scenario")
	}
}

func TestStoreSwitchScenarioIdempotent(t *testing.T) {
	s := testStore(t, seededState())
	var commits int
	s.Subscribe(func(domain.AppState) { commits++ })

	s.SwitchScenario("")
	if commits != 0 {
		t.Fatalf("switching to the active target must be a no-op, got %d commits", commits)
	}

	sc := s.CreateScenario("sw", "")
	s.SwitchScenario(sc.ID)
	after := commits
	s.SwitchScenario(sc.ID)
	if commits != after {
		t.Fatal("re-switching to the active scenario must not commit")
	}
}

func TestStoreSwitchToMissingScenarioDoesNotThrow(t *testing.T) {
	s := testStore(t, seededState())
	s.SwitchScenario("ghost")
	eff := s.Effective()
	if len(eff.Projects) != 3 {
		t.Fatalf("effective state must fail open to the baseline, got %d projects", len(eff.Projects))
	}
}

func TestStoreDeleteScenarioClearsActivePointer(t *testing.T) {
	s := testStore(t, seededState())
	sc := s.CreateScenario("doomed", "")
	s.SwitchScenario(sc.ID)
	s.DeleteScenario(sc.ID)

	state := s.State()
	if state.ActiveScenarioID != "" {
		t.Fatalf("active pointer not cleared: %q", state.ActiveScenarioID)
	}
	if len(state.Scenarios) != 0 {
		t.Fatalf("scenario not deleted: %d left", len(state.Scenarios))
	}
}

func TestStoreDanglingActiveScenarioRecovery(t *testing.T) {
	s := testStore(t, seededState())
	// Force a dangling pointer without going through DeleteScenario.
	ghost := "ghost"
	s.Apply(domain.Update{ActiveScenarioID: &ghost})

	members := []domain.TeamMember{{ID: "solo"}}
	next := s.Apply(domain.Update{TeamMembers: &members})
	if len(next.TeamMembers) != 1 || next.TeamMembers[0].ID != "solo" {
		t.Fatalf("update must recover onto the baseline, got %#v", next.TeamMembers)
	}
	if next.ActiveScenarioID != "" {
		t.Fatalf("dangling pointer should be cleared, got %q", next.ActiveScenarioID)
	}
}

func TestStoreRemoveTeamMemberCascades(t *testing.T) {
	s := testStore(t, seededState())
	next := s.RemoveTeamMember("m1")

	for _, m := range next.TeamMembers {
		if m.ID == "m1" {
			t.Fatal("member still present")
		}
	}
	if len(next.TimeOff) != 0 {
		t.Fatalf("time off not cascaded: %#v", next.TimeOff)
	}
	for _, a := range next.Assignments {
		if a.MemberID == "m1" {
			t.Fatalf("flattened assignment not cascaded: %#v", a)
		}
	}
	for _, p := range next.Projects {
		for _, ph := range p.Phases {
			for _, a := range ph.Assignments {
				if a.MemberID == "m1" {
					t.Fatalf("nested assignment not cascaded: %#v", a)
				}
			}
		}
	}
}

func TestStoreRemoveTeamMemberInScenarioLeavesBaseline(t *testing.T) {
	s := testStore(t, seededState())
	sc := s.CreateScenario("trim", "")
	s.SwitchScenario(sc.ID)
	s.RemoveTeamMember("m1")

	if got := len(s.State().TeamMembers); got != 5 {
		t.Fatalf("baseline member count changed: %d", got)
	}
	if got := len(s.Effective().TeamMembers); got != 4 {
		t.Fatalf("scenario member count wrong: %d", got)
	}
}

func TestStoreNotifiesSubscribersWithSnapshot(t *testing.T) {
	s := testStore(t, seededState())
	var seen domain.AppState
	s.Subscribe(func(st domain.AppState) { seen = st })
	countries := []domain.Country{{ID: "c1"}}
	s.Apply(domain.Update{Countries: &countries})
	if len(seen.Countries) != 1 {
		t.Fatalf("subscriber got stale state: %#v", seen.Countries)
	}
	// Mutating the delivered snapshot must not reach the store.
	seen.Countries[0].ID = "mutated"
	if s.State().Countries[0].ID != "c1" {
		t.Fatal("subscriber snapshot aliases store state")
	}
}
