package domain

import "time"

// Update is a partial state mutation. A nil field leaves the corresponding
// collection untouched; a non-nil pointer replaces it wholesale, including
// with an empty slice. Projects, TeamMembers, Assignments, TimeOff and
// JiraWorkItems are scenario-scoped and are routed to the active scenario
// when one is selected; every other field is shared and always lands on the
// root state.
type Update struct {
	Settings     *Settings     `json:"settings,omitempty"`
	JiraSettings *JiraSettings `json:"jiraSettings,omitempty"`

	Countries           *[]Country            `json:"countries,omitempty"`
	PublicHolidays      *[]PublicHoliday      `json:"publicHolidays,omitempty"`
	Roles               *[]Role               `json:"roles,omitempty"`
	Skills              *[]Skill              `json:"skills,omitempty"`
	Systems             *[]System             `json:"systems,omitempty"`
	Squads              *[]Squad              `json:"squads,omitempty"`
	ProcessTeams        *[]ProcessTeam        `json:"processTeams,omitempty"`
	Sprints             *[]Sprint             `json:"sprints,omitempty"`
	JiraConnections     *[]JiraConnection     `json:"jiraConnections,omitempty"`
	BusinessContacts    *[]BusinessContact    `json:"businessContacts,omitempty"`
	BusinessTimeOff     *[]BusinessTimeOff    `json:"businessTimeOff,omitempty"`
	BusinessAssignments *[]BusinessAssignment `json:"businessAssignments,omitempty"`

	TeamMembers   *[]TeamMember     `json:"teamMembers,omitempty"`
	Projects      *[]Project        `json:"projects,omitempty"`
	Assignments   *[]FlatAssignment `json:"assignments,omitempty"`
	TimeOff       *[]TimeOff        `json:"timeOff,omitempty"`
	JiraWorkItems *[]JiraWorkItem   `json:"jiraWorkItems,omitempty"`

	Scenarios        *[]Scenario `json:"scenarios,omitempty"`
	ActiveScenarioID *string     `json:"activeScenarioId,omitempty"`
}

// Apply routes a partial update to the baseline or the active scenario and
// returns the resulting state; the input is never mutated.
//
// When Projects is written without an explicit Assignments list the
// flattened list is derived from the incoming tree in the same commit:
// the flattened collection is treated as derivable unless overridden.
// Scenario-scoped fields land on the active scenario when one is selected
// (bumping its UpdatedAt); shared fields always land on the root. When the
// active scenario id no longer resolves the update recovers by editing the
// baseline and dropping the dangling pointer in the same commit, so reads
// and subsequent writes agree on the target. LastModified is always bumped.
func Apply(s AppState, u Update, now time.Time) AppState {
	next := CloneState(s)
	if u.Projects != nil && u.Assignments == nil {
		flat := FlattenAssignments(*u.Projects)
		u.Assignments = &flat
	}
	if next.ActiveScenarioID != "" && u.TouchesScenarioScope() {
		if i := FindScenario(next.Scenarios, next.ActiveScenarioID); i >= 0 {
			sc := &next.Scenarios[i]
			u.applyScoped(scenarioScope(sc))
			sc.UpdatedAt = now
		} else {
			next.ActiveScenarioID = ""
			u.applyScoped(baselineScope(&next))
		}
	} else {
		u.applyScoped(baselineScope(&next))
	}
	u.applyShared(&next)
	next.LastModified = now
	return next
}

// TouchesScenarioScope reports whether the update writes any scenario-scoped
// collection.
func (u Update) TouchesScenarioScope() bool {
	return u.Projects != nil || u.TeamMembers != nil || u.Assignments != nil ||
		u.TimeOff != nil || u.JiraWorkItems != nil
}

// applyShared merges every non-scenario-scoped field of the update into the
// root state.
func (u Update) applyShared(s *AppState) {
	if u.Settings != nil {
		s.Settings = *u.Settings
	}
	if u.JiraSettings != nil {
		s.JiraSettings = *u.JiraSettings
	}
	if u.Countries != nil {
		s.Countries = copySlice(*u.Countries)
	}
	if u.PublicHolidays != nil {
		s.PublicHolidays = copySlice(*u.PublicHolidays)
	}
	if u.Roles != nil {
		s.Roles = copySlice(*u.Roles)
	}
	if u.Skills != nil {
		s.Skills = copySlice(*u.Skills)
	}
	if u.Systems != nil {
		s.Systems = copySlice(*u.Systems)
	}
	if u.Squads != nil {
		s.Squads = copySlice(*u.Squads)
	}
	if u.ProcessTeams != nil {
		s.ProcessTeams = copySlice(*u.ProcessTeams)
	}
	if u.Sprints != nil {
		s.Sprints = copySlice(*u.Sprints)
	}
	if u.JiraConnections != nil {
		s.JiraConnections = cloneSlice(*u.JiraConnections, CloneJiraConnection)
	}
	if u.BusinessContacts != nil {
		s.BusinessContacts = copySlice(*u.BusinessContacts)
	}
	if u.BusinessTimeOff != nil {
		s.BusinessTimeOff = copySlice(*u.BusinessTimeOff)
	}
	if u.BusinessAssignments != nil {
		s.BusinessAssignments = copySlice(*u.BusinessAssignments)
	}
	if u.Scenarios != nil {
		s.Scenarios = cloneSlice(*u.Scenarios, CloneScenario)
	}
	if u.ActiveScenarioID != nil {
		s.ActiveScenarioID = *u.ActiveScenarioID
	}
}

// scope is the mutable view of the scenario-scoped collections, pointing
// either at the root state or at one scenario.
type scope struct {
	Projects      *[]Project
	TeamMembers   *[]TeamMember
	Assignments   *[]FlatAssignment
	TimeOff       *[]TimeOff
	JiraWorkItems *[]JiraWorkItem
}

func baselineScope(s *AppState) scope {
	return scope{
		Projects:      &s.Projects,
		TeamMembers:   &s.TeamMembers,
		Assignments:   &s.Assignments,
		TimeOff:       &s.TimeOff,
		JiraWorkItems: &s.JiraWorkItems,
	}
}

func scenarioScope(sc *Scenario) scope {
	return scope{
		Projects:      &sc.Projects,
		TeamMembers:   &sc.TeamMembers,
		Assignments:   &sc.Assignments,
		TimeOff:       &sc.TimeOff,
		JiraWorkItems: &sc.JiraWorkItems,
	}
}

// applyScoped merges the scenario-scoped fields of the update into the given
// scope, deep-copying so the caller never aliases the update's slices.
func (u Update) applyScoped(t scope) {
	if u.Projects != nil {
		*t.Projects = CloneProjects(*u.Projects)
	}
	if u.TeamMembers != nil {
		*t.TeamMembers = CloneTeamMembers(*u.TeamMembers)
	}
	if u.Assignments != nil {
		*t.Assignments = CloneAssignments(*u.Assignments)
	}
	if u.TimeOff != nil {
		*t.TimeOff = CloneTimeOff(*u.TimeOff)
	}
	if u.JiraWorkItems != nil {
		*t.JiraWorkItems = CloneJiraWorkItems(*u.JiraWorkItems)
	}
}
