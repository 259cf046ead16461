package domain

// FlattenAssignments walks every project, every phase, every assignment and
// emits one FlatAssignment per leaf, annotated with the owning project and
// phase IDs. Order is stable: projects in list order, phases in list order,
// assignments in list order. Pure and deterministic.
func FlattenAssignments(projects []Project) []FlatAssignment {
	out := []FlatAssignment{}
	for _, p := range projects {
		for _, ph := range p.Phases {
			for _, a := range ph.Assignments {
				out = append(out, FlatAssignment{
					Assignment: a,
					ProjectID:  p.ID,
					PhaseID:    ph.ID,
				})
			}
		}
	}
	return out
}

// FindScenario returns the index of the scenario with the given id, or -1.
func FindScenario(scenarios []Scenario, id string) int {
	for i := range scenarios {
		if scenarios[i].ID == id {
			return i
		}
	}
	return -1
}

// EffectiveState returns the state visible to readers. With no active
// scenario the baseline is returned unchanged. With an active scenario the
// scenario-scoped collections are replaced by the scenario's own copies; a
// scenario whose flattened assignments were never materialised gets them
// derived from its project tree. A dangling ActiveScenarioID fails open to
// the baseline view rather than erroring.
func EffectiveState(s AppState) AppState {
	if s.ActiveScenarioID == "" {
		return s
	}
	i := FindScenario(s.Scenarios, s.ActiveScenarioID)
	if i < 0 {
		return s
	}
	sc := s.Scenarios[i]
	s.Projects = sc.Projects
	s.TeamMembers = sc.TeamMembers
	s.TimeOff = sc.TimeOff
	s.JiraWorkItems = sc.JiraWorkItems
	if sc.Assignments == nil {
		s.Assignments = FlattenAssignments(sc.Projects)
	} else {
		s.Assignments = sc.Assignments
	}
	return s
}
