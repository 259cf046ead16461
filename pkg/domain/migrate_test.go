package domain

import (
	"encoding/json"
	"testing"
)

func TestUpgradeStateFillsCollections(t *testing.T) {
	var s AppState
	UpgradeState(&s)
	if s.Countries == nil || s.TeamMembers == nil || s.Scenarios == nil || s.Assignments == nil {
		t.Fatalf("expected non-nil collections after upgrade: %#v", s)
	}
	if s.Settings.WorkingDaysPerWeek != 5 || s.Settings.Theme != "light" {
		t.Fatalf("expected default settings merged in, got %#v", s.Settings)
	}
	if s.JiraSettings.SyncIntervalMinutes != 60 {
		t.Fatalf("expected default jira sync interval, got %d", s.JiraSettings.SyncIntervalMinutes)
	}
}

func TestUpgradeStatePreservesExplicitSettings(t *testing.T) {
	s := DefaultState()
	s.Settings.Theme = "dark"
	s.Settings.HoursPerDay = 7.5
	UpgradeState(&s)
	if s.Settings.Theme != "dark" || s.Settings.HoursPerDay != 7.5 {
		t.Fatalf("explicit settings overwritten: %#v", s.Settings)
	}
}

func TestUpgradeStateConvertsLegacyQuarterPhases(t *testing.T) {
	s := DefaultState()
	s.Projects = []Project{{ID: "p1", Phases: []Phase{
		{ID: "ph1", Quarter: "Q1 2026"},
		{ID: "ph2", Quarter: "2026-Q3"},
		{ID: "ph3", Quarter: "Q2 2026", StartDate: "2026-04-10", EndDate: "2026-05-01"},
	}}}
	UpgradeState(&s)
	ph := s.Projects[0].Phases
	if ph[0].StartDate != "2026-01-01" || ph[0].EndDate != "2026-03-31" {
		t.Fatalf("Q1 2026 bounds wrong: %s..%s", ph[0].StartDate, ph[0].EndDate)
	}
	if ph[1].StartDate != "2026-07-01" || ph[1].EndDate != "2026-09-30" {
		t.Fatalf("2026-Q3 bounds wrong: %s..%s", ph[1].StartDate, ph[1].EndDate)
	}
	// Explicit dates are never overwritten by the legacy label.
	if ph[2].StartDate != "2026-04-10" || ph[2].EndDate != "2026-05-01" {
		t.Fatalf("explicit dates clobbered: %s..%s", ph[2].StartDate, ph[2].EndDate)
	}
}

func TestUpgradeStateRegeneratesFlattenedCache(t *testing.T) {
	s := DefaultState()
	s.Projects = buildProjects()
	s.Assignments = nil
	s.Scenarios = []Scenario{{ID: "sc1", Projects: buildProjects()}}
	UpgradeState(&s)
	if len(s.Assignments) != 4 {
		t.Fatalf("baseline cache not regenerated: %d", len(s.Assignments))
	}
	if len(s.Scenarios[0].Assignments) != 4 {
		t.Fatalf("scenario cache not regenerated: %d", len(s.Scenarios[0].Assignments))
	}
}

func TestUpgradeStateIsNoOpOnCurrentData(t *testing.T) {
	s := DefaultState()
	s.Projects = buildProjects()
	UpgradeState(&s)

	before, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	UpgradeState(&s)
	after, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(before) != string(after) {
		t.Fatalf("upgrade of current data must be a no-op:\n%s\n%s", before, after)
	}
}

func TestQuarterBounds(t *testing.T) {
	cases := []struct {
		label      string
		start, end string
		wantErr    bool
	}{
		{label: "Q1 2026", start: "2026-01-01", end: "2026-03-31"},
		{label: "2026-Q4", start: "2026-10-01", end: "2026-12-31"},
		{label: "q2 2025", start: "2025-04-01", end: "2025-06-30"},
		{label: "Q5 2026", wantErr: true},
		{label: "sometime", wantErr: true},
	}
	for _, tc := range cases {
		start, end, err := QuarterBounds(tc.label)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error", tc.label)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tc.label, err)
		}
		if start != tc.start || end != tc.end {
			t.Fatalf("%s: got %s..%s", tc.label, start, end)
		}
	}
}
