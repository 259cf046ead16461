package domain

// Clone helpers give every aggregate full deep-copy semantics. Scenario
// creation and mutation routing rely on them: a scenario and its source must
// never share a slice or nested struct. Nil-ness is preserved: an empty
// collection stays empty and a nil one stays nil, so a cloned state
// serializes identically to its source.

func cloneSlice[T any](in []T, clone func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = clone(v)
	}
	return out
}

func copySlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneStrings(in []string) []string {
	return copySlice(in)
}

// CloneTeamMember deep-copies a team member.
func CloneTeamMember(m TeamMember) TeamMember {
	m.SkillIDs = cloneStrings(m.SkillIDs)
	return m
}

// ClonePhase deep-copies a phase including its assignments.
func ClonePhase(p Phase) Phase {
	p.Assignments = copySlice(p.Assignments)
	return p
}

// CloneProject deep-copies a project including its phase tree.
func CloneProject(p Project) Project {
	p.SystemIDs = cloneStrings(p.SystemIDs)
	p.Phases = cloneSlice(p.Phases, ClonePhase)
	return p
}

// CloneJiraConnection deep-copies a Jira connection.
func CloneJiraConnection(c JiraConnection) JiraConnection {
	c.ProjectKeys = cloneStrings(c.ProjectKeys)
	return c
}

// CloneProjects deep-copies a project list.
func CloneProjects(ps []Project) []Project {
	return cloneSlice(ps, CloneProject)
}

// CloneTeamMembers deep-copies a team member list.
func CloneTeamMembers(ms []TeamMember) []TeamMember {
	return cloneSlice(ms, CloneTeamMember)
}

// CloneAssignments copies a flattened assignment list.
func CloneAssignments(as []FlatAssignment) []FlatAssignment {
	return copySlice(as)
}

// CloneTimeOff copies a time-off list.
func CloneTimeOff(ts []TimeOff) []TimeOff {
	return copySlice(ts)
}

// CloneJiraWorkItems copies a Jira work item list.
func CloneJiraWorkItems(ws []JiraWorkItem) []JiraWorkItem {
	return copySlice(ws)
}

// CloneScenario deep-copies a scenario including all of its owned
// collections.
func CloneScenario(sc Scenario) Scenario {
	sc.Projects = CloneProjects(sc.Projects)
	sc.TeamMembers = CloneTeamMembers(sc.TeamMembers)
	sc.Assignments = CloneAssignments(sc.Assignments)
	sc.TimeOff = CloneTimeOff(sc.TimeOff)
	sc.JiraWorkItems = CloneJiraWorkItems(sc.JiraWorkItems)
	return sc
}

// CloneState deep-copies the full aggregate.
func CloneState(s AppState) AppState {
	s.Countries = copySlice(s.Countries)
	s.PublicHolidays = copySlice(s.PublicHolidays)
	s.Roles = copySlice(s.Roles)
	s.Skills = copySlice(s.Skills)
	s.Systems = copySlice(s.Systems)
	s.Squads = copySlice(s.Squads)
	s.ProcessTeams = copySlice(s.ProcessTeams)
	s.Sprints = copySlice(s.Sprints)
	s.JiraConnections = cloneSlice(s.JiraConnections, CloneJiraConnection)
	s.BusinessContacts = copySlice(s.BusinessContacts)
	s.BusinessTimeOff = copySlice(s.BusinessTimeOff)
	s.BusinessAssignments = copySlice(s.BusinessAssignments)
	s.TeamMembers = CloneTeamMembers(s.TeamMembers)
	s.Projects = CloneProjects(s.Projects)
	s.Assignments = CloneAssignments(s.Assignments)
	s.TimeOff = CloneTimeOff(s.TimeOff)
	s.JiraWorkItems = CloneJiraWorkItems(s.JiraWorkItems)
	s.Scenarios = cloneSlice(s.Scenarios, CloneScenario)
	return s
}
