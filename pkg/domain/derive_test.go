package domain

import "testing"

func buildProjects() []Project {
	return []Project{
		{
			ID: "p1",
			Phases: []Phase{
				{ID: "ph1", Assignments: []Assignment{
					{ID: "a1", MemberID: "m1", Quarter: "2026-Q1", Days: 10},
					{ID: "a2", MemberID: "m2", Quarter: "2026-Q1", Days: 5},
				}},
				{ID: "ph2", Assignments: []Assignment{
					{ID: "a3", MemberID: "m1", Quarter: "2026-Q2", Days: 8},
				}},
			},
		},
		{
			ID: "p2",
			Phases: []Phase{
				{ID: "ph3", Assignments: []Assignment{
					{ID: "a4", MemberID: "m3", SprintID: "s1", Days: 3},
				}},
			},
		},
	}
}

func TestFlattenAssignmentsOrderAndAnnotation(t *testing.T) {
	flat := FlattenAssignments(buildProjects())
	if len(flat) != 4 {
		t.Fatalf("expected 4 flat assignments, got %d", len(flat))
	}
	wantOrder := []string{"a1", "a2", "a3", "a4"}
	for i, id := range wantOrder {
		if flat[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, flat[i].ID)
		}
	}
	if flat[0].ProjectID != "p1" || flat[0].PhaseID != "ph1" {
		t.Fatalf("a1 annotated with %s/%s", flat[0].ProjectID, flat[0].PhaseID)
	}
	if flat[2].ProjectID != "p1" || flat[2].PhaseID != "ph2" {
		t.Fatalf("a3 annotated with %s/%s", flat[2].ProjectID, flat[2].PhaseID)
	}
	if flat[3].ProjectID != "p2" || flat[3].PhaseID != "ph3" {
		t.Fatalf("a4 annotated with %s/%s", flat[3].ProjectID, flat[3].PhaseID)
	}
}

func TestFlattenAssignmentsEmptyTree(t *testing.T) {
	if got := FlattenAssignments(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
	if got := FlattenAssignments([]Project{{ID: "p", Phases: []Phase{{ID: "ph"}}}}); len(got) != 0 {
		t.Fatalf("expected no entries for leafless tree, got %d", len(got))
	}
}

func TestEffectiveStateBaseline(t *testing.T) {
	s := DefaultState()
	s.Projects = buildProjects()
	eff := EffectiveState(s)
	if len(eff.Projects) != 2 {
		t.Fatalf("expected baseline projects, got %d", len(eff.Projects))
	}
}

func TestEffectiveStateScenarioOverlay(t *testing.T) {
	s := DefaultState()
	s.Projects = buildProjects()
	s.TeamMembers = []TeamMember{{ID: "m1"}, {ID: "m2"}}
	s.Scenarios = []Scenario{{
		ID:          "sc1",
		Projects:    []Project{{ID: "only"}},
		TeamMembers: []TeamMember{{ID: "m9"}},
	}}
	s.ActiveScenarioID = "sc1"

	eff := EffectiveState(s)
	if len(eff.Projects) != 1 || eff.Projects[0].ID != "only" {
		t.Fatalf("expected scenario projects, got %#v", eff.Projects)
	}
	if len(eff.TeamMembers) != 1 || eff.TeamMembers[0].ID != "m9" {
		t.Fatalf("expected scenario members, got %#v", eff.TeamMembers)
	}
	// Shared collections stay the baseline ones.
	if len(eff.Scenarios) != 1 {
		t.Fatalf("scenario list should remain shared")
	}
}

func TestEffectiveStateLazyFlatten(t *testing.T) {
	s := DefaultState()
	s.Scenarios = []Scenario{{ID: "sc1", Projects: buildProjects(), Assignments: nil}}
	s.ActiveScenarioID = "sc1"
	eff := EffectiveState(s)
	if len(eff.Assignments) != 4 {
		t.Fatalf("expected lazily flattened assignments, got %d", len(eff.Assignments))
	}
}

func TestEffectiveStateDanglingScenarioFailsOpen(t *testing.T) {
	s := DefaultState()
	s.Projects = buildProjects()
	s.ActiveScenarioID = "gone"
	eff := EffectiveState(s)
	if len(eff.Projects) != 2 {
		t.Fatalf("expected baseline fallback, got %d projects", len(eff.Projects))
	}
}
