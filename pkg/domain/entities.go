// Package domain defines the capacity-planning entities, the application
// state aggregate, and the pure derivations shared by every persistence
// gateway. JSON tags are camelCase: the serialized bare AppState object is
// the interchange format for the local cache and snapshot exports.
package domain

import "time"

// WorkItemType identifies the kind of an imported Jira work item.
type WorkItemType string

// Work item kinds recognised by the Jira mapping layer.
const (
	WorkItemEpic    WorkItemType = "epic"
	WorkItemFeature WorkItemType = "feature"
	WorkItemStory   WorkItemType = "story"
	WorkItemTask    WorkItemType = "task"
	WorkItemBug     WorkItemType = "bug"
)

// DateLayout is the wire format for calendar dates carried as strings.
const DateLayout = "2006-01-02"

// Country is a reference record shared across baseline and scenarios.
type Country struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PublicHoliday is a per-country non-working day.
type PublicHoliday struct {
	ID        string `json:"id"`
	CountryID string `json:"countryId"`
	Name      string `json:"name"`
	Date      string `json:"date"`
}

// Role is a reference record; team members reference roles by display name,
// not by ID.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Skill is a reference record linked from team members by ID.
type Skill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// System is an IT system that projects can be attributed to.
type System struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Squad is a delivery squad reference record.
type Squad struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProcessTeam is a process-team reference record.
type ProcessTeam struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Sprint is a shared planning interval synchronised from Jira.
type Sprint struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// TeamMember is a plannable person. Role is deliberately a plain display
// name matched against the Role reference list, not a foreign key.
// SyncedFromJira and NeedsEnrichment flag records created by automatic
// import that still need a human to fill in role and country.
type TeamMember struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	Role                  string   `json:"role"`
	CountryID             string   `json:"countryId"`
	SkillIDs              []string `json:"skillIds"`
	SquadID               string   `json:"squadId,omitempty"`
	MaxConcurrentProjects int      `json:"maxConcurrentProjects"`
	SyncedFromJira        bool     `json:"syncedFromJira,omitempty"`
	NeedsEnrichment       bool     `json:"needsEnrichment,omitempty"`
}

// Assignment is a leaf booking of a member onto a phase for a quarter or
// sprint.
type Assignment struct {
	ID       string  `json:"id"`
	MemberID string  `json:"memberId"`
	Quarter  string  `json:"quarter,omitempty"`
	SprintID string  `json:"sprintId,omitempty"`
	Days     float64 `json:"days"`
}

// Phase is an ordered stage of a project owning its assignments. Quarter is
// the legacy single-label schedule; StartDate/EndDate supersede it.
type Phase struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Quarter     string       `json:"quarter,omitempty"`
	StartDate   string       `json:"startDate,omitempty"`
	EndDate     string       `json:"endDate,omitempty"`
	Assignments []Assignment `json:"assignments"`
}

// Project owns an ordered list of phases.
type Project struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Priority    int      `json:"priority,omitempty"`
	SystemIDs   []string `json:"systemIds"`
	Phases      []Phase  `json:"phases"`
}

// FlatAssignment is a leaf assignment annotated with its owning project and
// phase. The flattened collection is a cache derived from the project tree,
// never a second source of truth.
type FlatAssignment struct {
	Assignment
	ProjectID string `json:"projectId"`
	PhaseID   string `json:"phaseId"`
}

// TimeOff is an absence interval for a team member.
type TimeOff struct {
	ID        string `json:"id"`
	MemberID  string `json:"memberId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Type      string `json:"type,omitempty"`
}

// JiraConnection holds the coordinates of one Jira instance.
type JiraConnection struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	BaseURL     string   `json:"baseUrl"`
	Email       string   `json:"email,omitempty"`
	APIToken    string   `json:"apiToken,omitempty"`
	ProjectKeys []string `json:"projectKeys"`
}

// JiraWorkItem is an externally sourced work record. The Mapped* fields link
// it into the domain model without it becoming a Project/Phase/Assignment.
type JiraWorkItem struct {
	ID              string       `json:"id"`
	Key             string       `json:"key"`
	Type            WorkItemType `json:"type"`
	Summary         string       `json:"summary"`
	Status          string       `json:"status"`
	StoryPoints     float64      `json:"storyPoints,omitempty"`
	Assignee        string       `json:"assignee,omitempty"`
	ConnectionID    string       `json:"connectionId,omitempty"`
	MappedProjectID string       `json:"mappedProjectId,omitempty"`
	MappedPhaseID   string       `json:"mappedPhaseId,omitempty"`
	MappedMemberID  string       `json:"mappedMemberId,omitempty"`
}

// BusinessContact is a stakeholder outside the delivery teams.
type BusinessContact struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
	Email      string `json:"email,omitempty"`
}

// BusinessTimeOff is an absence interval for a business contact.
type BusinessTimeOff struct {
	ID        string `json:"id"`
	ContactID string `json:"contactId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// BusinessAssignment books a business contact onto a project.
type BusinessAssignment struct {
	ID        string  `json:"id"`
	ContactID string  `json:"contactId"`
	ProjectID string  `json:"projectId"`
	Quarter   string  `json:"quarter,omitempty"`
	Days      float64 `json:"days"`
}

// Settings are global knobs shared by the baseline and every scenario.
type Settings struct {
	WorkingDaysPerWeek  int     `json:"workingDaysPerWeek"`
	HoursPerDay         float64 `json:"hoursPerDay"`
	DefaultCapacityDays float64 `json:"defaultCapacityDays"`
	CapacityBufferPct   float64 `json:"capacityBufferPct"`
	FirstDayOfWeek      string  `json:"firstDayOfWeek"`
	Theme               string  `json:"theme"`
}

// JiraSettings configure the import side of the Jira integration.
type JiraSettings struct {
	SyncIntervalMinutes int    `json:"syncIntervalMinutes"`
	AutoCreateMembers   bool   `json:"autoCreateMembers"`
	DefaultConnectionID string `json:"defaultConnectionId,omitempty"`
	LastSyncAt          string `json:"lastSyncAt,omitempty"`
}

// Scenario is a named, fully independent snapshot of the scenario-scoped
// collections. A scenario owns its copies outright: mutating a scenario
// never touches the baseline copies and vice versa.
type Scenario struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	Color         string           `json:"color,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
	BasedOnSyncAt string           `json:"basedOnSyncAt,omitempty"`
	Projects      []Project        `json:"projects"`
	TeamMembers   []TeamMember     `json:"teamMembers"`
	Assignments   []FlatAssignment `json:"assignments"`
	TimeOff       []TimeOff        `json:"timeOff"`
	JiraWorkItems []JiraWorkItem   `json:"jiraWorkItems"`
}

// AppState is the root aggregate. Reference collections and settings are
// shared across all scenarios; Projects, TeamMembers, Assignments, TimeOff
// and JiraWorkItems are the scenario-scoped collections. ActiveScenarioID
// selects the visible overlay; empty means the baseline is active.
type AppState struct {
	Settings     Settings     `json:"settings"`
	JiraSettings JiraSettings `json:"jiraSettings"`

	Countries           []Country            `json:"countries"`
	PublicHolidays      []PublicHoliday      `json:"publicHolidays"`
	Roles               []Role               `json:"roles"`
	Skills              []Skill              `json:"skills"`
	Systems             []System             `json:"systems"`
	Squads              []Squad              `json:"squads"`
	ProcessTeams        []ProcessTeam        `json:"processTeams"`
	Sprints             []Sprint             `json:"sprints"`
	JiraConnections     []JiraConnection     `json:"jiraConnections"`
	BusinessContacts    []BusinessContact    `json:"businessContacts"`
	BusinessTimeOff     []BusinessTimeOff    `json:"businessTimeOff"`
	BusinessAssignments []BusinessAssignment `json:"businessAssignments"`

	TeamMembers   []TeamMember     `json:"teamMembers"`
	Projects      []Project        `json:"projects"`
	Assignments   []FlatAssignment `json:"assignments"`
	TimeOff       []TimeOff        `json:"timeOff"`
	JiraWorkItems []JiraWorkItem   `json:"jiraWorkItems"`

	Scenarios        []Scenario `json:"scenarios"`
	ActiveScenarioID string     `json:"activeScenarioId,omitempty"`
	LastModified     time.Time  `json:"lastModified"`
}

// DefaultSettings returns the settings applied to fresh and migrated states.
func DefaultSettings() Settings {
	return Settings{
		WorkingDaysPerWeek:  5,
		HoursPerDay:         8,
		DefaultCapacityDays: 60,
		CapacityBufferPct:   20,
		FirstDayOfWeek:      "monday",
		Theme:               "light",
	}
}

// DefaultJiraSettings returns the Jira import defaults.
func DefaultJiraSettings() JiraSettings {
	return JiraSettings{SyncIntervalMinutes: 60}
}

// DefaultState returns the documented empty state every gateway falls back
// to when nothing usable is stored. All collections are non-nil.
func DefaultState() AppState {
	return AppState{
		Settings:            DefaultSettings(),
		JiraSettings:        DefaultJiraSettings(),
		Countries:           []Country{},
		PublicHolidays:      []PublicHoliday{},
		Roles:               []Role{},
		Skills:              []Skill{},
		Systems:             []System{},
		Squads:              []Squad{},
		ProcessTeams:        []ProcessTeam{},
		Sprints:             []Sprint{},
		JiraConnections:     []JiraConnection{},
		BusinessContacts:    []BusinessContact{},
		BusinessTimeOff:     []BusinessTimeOff{},
		BusinessAssignments: []BusinessAssignment{},
		TeamMembers:         []TeamMember{},
		Projects:            []Project{},
		Assignments:         []FlatAssignment{},
		TimeOff:             []TimeOff{},
		JiraWorkItems:       []JiraWorkItem{},
		Scenarios:           []Scenario{},
	}
}
