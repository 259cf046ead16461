package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UpgradeState brings a state decoded from an older stored shape up to the
// current contract, in place. Applied to already-current data it is a no-op,
// which makes it safe to run on every load:
//
//   - nil collections become empty slices
//   - settings are merged field-by-field with the current defaults
//   - phases carrying only a legacy quarter label get explicit start/end dates
//   - a missing flattened assignment cache is regenerated from the project
//     tree, for the baseline and for each scenario
func UpgradeState(s *AppState) {
	ensureCollections(s)
	s.Settings = mergeSettings(s.Settings)
	if s.JiraSettings.SyncIntervalMinutes <= 0 {
		s.JiraSettings.SyncIntervalMinutes = DefaultJiraSettings().SyncIntervalMinutes
	}
	upgradeProjects(s.Projects)
	if len(s.Assignments) == 0 {
		s.Assignments = FlattenAssignments(s.Projects)
	}
	for i := range s.Scenarios {
		sc := &s.Scenarios[i]
		ensureScenarioCollections(sc)
		upgradeProjects(sc.Projects)
		if len(sc.Assignments) == 0 {
			sc.Assignments = FlattenAssignments(sc.Projects)
		}
	}
}

func ensureCollections(s *AppState) {
	if s.Countries == nil {
		s.Countries = []Country{}
	}
	if s.PublicHolidays == nil {
		s.PublicHolidays = []PublicHoliday{}
	}
	if s.Roles == nil {
		s.Roles = []Role{}
	}
	if s.Skills == nil {
		s.Skills = []Skill{}
	}
	if s.Systems == nil {
		s.Systems = []System{}
	}
	if s.Squads == nil {
		s.Squads = []Squad{}
	}
	if s.ProcessTeams == nil {
		s.ProcessTeams = []ProcessTeam{}
	}
	if s.Sprints == nil {
		s.Sprints = []Sprint{}
	}
	if s.JiraConnections == nil {
		s.JiraConnections = []JiraConnection{}
	}
	if s.BusinessContacts == nil {
		s.BusinessContacts = []BusinessContact{}
	}
	if s.BusinessTimeOff == nil {
		s.BusinessTimeOff = []BusinessTimeOff{}
	}
	if s.BusinessAssignments == nil {
		s.BusinessAssignments = []BusinessAssignment{}
	}
	if s.TeamMembers == nil {
		s.TeamMembers = []TeamMember{}
	}
	if s.Projects == nil {
		s.Projects = []Project{}
	}
	if s.TimeOff == nil {
		s.TimeOff = []TimeOff{}
	}
	if s.JiraWorkItems == nil {
		s.JiraWorkItems = []JiraWorkItem{}
	}
	if s.Scenarios == nil {
		s.Scenarios = []Scenario{}
	}
}

func ensureScenarioCollections(sc *Scenario) {
	if sc.Projects == nil {
		sc.Projects = []Project{}
	}
	if sc.TeamMembers == nil {
		sc.TeamMembers = []TeamMember{}
	}
	if sc.TimeOff == nil {
		sc.TimeOff = []TimeOff{}
	}
	if sc.JiraWorkItems == nil {
		sc.JiraWorkItems = []JiraWorkItem{}
	}
}

func mergeSettings(s Settings) Settings {
	def := DefaultSettings()
	if s.WorkingDaysPerWeek == 0 {
		s.WorkingDaysPerWeek = def.WorkingDaysPerWeek
	}
	if s.HoursPerDay == 0 {
		s.HoursPerDay = def.HoursPerDay
	}
	if s.DefaultCapacityDays == 0 {
		s.DefaultCapacityDays = def.DefaultCapacityDays
	}
	if s.CapacityBufferPct == 0 {
		s.CapacityBufferPct = def.CapacityBufferPct
	}
	if s.FirstDayOfWeek == "" {
		s.FirstDayOfWeek = def.FirstDayOfWeek
	}
	if s.Theme == "" {
		s.Theme = def.Theme
	}
	return s
}

func upgradeProjects(ps []Project) {
	for i := range ps {
		for j := range ps[i].Phases {
			ph := &ps[i].Phases[j]
			if ph.Assignments == nil {
				ph.Assignments = []Assignment{}
			}
			if ph.Quarter != "" && ph.StartDate == "" && ph.EndDate == "" {
				if start, end, err := QuarterBounds(ph.Quarter); err == nil {
					ph.StartDate = start
					ph.EndDate = end
				}
			}
		}
	}
}

// QuarterBounds resolves a quarter label ("Q1 2026" or "2026-Q1") to its
// first and last calendar day in DateLayout format.
func QuarterBounds(label string) (start, end string, err error) {
	year, q, err := parseQuarter(label)
	if err != nil {
		return "", "", err
	}
	first := time.Date(year, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 3, -1)
	return first.Format(DateLayout), last.Format(DateLayout), nil
}

func parseQuarter(label string) (year, quarter int, err error) {
	norm := strings.ToUpper(strings.TrimSpace(label))
	var yearPart, qPart string
	switch {
	case strings.Contains(norm, " "): // "Q1 2026"
		parts := strings.Fields(norm)
		if len(parts) != 2 {
			return 0, 0, fmt.Errorf("quarter label %q not recognised", label)
		}
		qPart, yearPart = parts[0], parts[1]
	case strings.Contains(norm, "-"): // "2026-Q1"
		parts := strings.SplitN(norm, "-", 2)
		yearPart, qPart = parts[0], parts[1]
	default:
		return 0, 0, fmt.Errorf("quarter label %q not recognised", label)
	}
	qPart = strings.TrimPrefix(qPart, "Q")
	year, err = strconv.Atoi(yearPart)
	if err != nil {
		return 0, 0, fmt.Errorf("quarter label %q: bad year", label)
	}
	quarter, err = strconv.Atoi(qPart)
	if err != nil || quarter < 1 || quarter > 4 {
		return 0, 0, fmt.Errorf("quarter label %q: bad quarter", label)
	}
	return year, quarter, nil
}
