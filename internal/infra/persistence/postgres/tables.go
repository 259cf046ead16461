package postgres

import (
	"encoding/json"
	"fmt"

	"plancore/pkg/domain"
)

// row is one entity ready for upsert: its id plus the JSON payload holding
// the full record.
type row struct {
	id      string
	payload []byte
}

// tableSpec binds one state collection to its table. Every entity table
// shares the same shape (id plus JSON payload); team_members additionally
// carries an is_active flag and is soft deleted instead of pruned.
type tableSpec struct {
	name       string
	softDelete bool
	rows       func(s domain.AppState) ([]row, error)
	assign     func(s *domain.AppState, payloads [][]byte) error
}

func entityTable[T any](name string, get func(domain.AppState) []T, set func(*domain.AppState, []T), id func(T) string) tableSpec {
	return tableSpec{
		name: name,
		rows: func(s domain.AppState) ([]row, error) {
			items := get(s)
			out := make([]row, 0, len(items))
			for _, item := range items {
				payload, err := json.Marshal(item)
				if err != nil {
					return nil, fmt.Errorf("encode %s: %w", name, err)
				}
				out = append(out, row{id: id(item), payload: payload})
			}
			return out, nil
		},
		assign: func(s *domain.AppState, payloads [][]byte) error {
			items := make([]T, 0, len(payloads))
			for _, payload := range payloads {
				var item T
				if err := json.Unmarshal(payload, &item); err != nil {
					return fmt.Errorf("decode %s: %w", name, err)
				}
				items = append(items, item)
			}
			set(s, items)
			return nil
		},
	}
}

// stateTables lists every entity table the gateway syncs. The settings
// key/value table is handled separately in the store.
func stateTables() []tableSpec {
	tables := []tableSpec{
		entityTable("countries",
			func(s domain.AppState) []domain.Country { return s.Countries },
			func(s *domain.AppState, v []domain.Country) { s.Countries = v },
			func(v domain.Country) string { return v.ID }),
		entityTable("public_holidays",
			func(s domain.AppState) []domain.PublicHoliday { return s.PublicHolidays },
			func(s *domain.AppState, v []domain.PublicHoliday) { s.PublicHolidays = v },
			func(v domain.PublicHoliday) string { return v.ID }),
		entityTable("roles",
			func(s domain.AppState) []domain.Role { return s.Roles },
			func(s *domain.AppState, v []domain.Role) { s.Roles = v },
			func(v domain.Role) string { return v.ID }),
		entityTable("skills",
			func(s domain.AppState) []domain.Skill { return s.Skills },
			func(s *domain.AppState, v []domain.Skill) { s.Skills = v },
			func(v domain.Skill) string { return v.ID }),
		entityTable("systems",
			func(s domain.AppState) []domain.System { return s.Systems },
			func(s *domain.AppState, v []domain.System) { s.Systems = v },
			func(v domain.System) string { return v.ID }),
		entityTable("squads",
			func(s domain.AppState) []domain.Squad { return s.Squads },
			func(s *domain.AppState, v []domain.Squad) { s.Squads = v },
			func(v domain.Squad) string { return v.ID }),
		entityTable("process_teams",
			func(s domain.AppState) []domain.ProcessTeam { return s.ProcessTeams },
			func(s *domain.AppState, v []domain.ProcessTeam) { s.ProcessTeams = v },
			func(v domain.ProcessTeam) string { return v.ID }),
		entityTable("sprints",
			func(s domain.AppState) []domain.Sprint { return s.Sprints },
			func(s *domain.AppState, v []domain.Sprint) { s.Sprints = v },
			func(v domain.Sprint) string { return v.ID }),
		entityTable("team_members",
			func(s domain.AppState) []domain.TeamMember { return s.TeamMembers },
			func(s *domain.AppState, v []domain.TeamMember) { s.TeamMembers = v },
			func(v domain.TeamMember) string { return v.ID }),
		entityTable("projects",
			func(s domain.AppState) []domain.Project { return s.Projects },
			func(s *domain.AppState, v []domain.Project) { s.Projects = v },
			func(v domain.Project) string { return v.ID }),
		entityTable("assignments",
			func(s domain.AppState) []domain.FlatAssignment { return s.Assignments },
			func(s *domain.AppState, v []domain.FlatAssignment) { s.Assignments = v },
			func(v domain.FlatAssignment) string { return v.ID }),
		entityTable("time_off",
			func(s domain.AppState) []domain.TimeOff { return s.TimeOff },
			func(s *domain.AppState, v []domain.TimeOff) { s.TimeOff = v },
			func(v domain.TimeOff) string { return v.ID }),
		entityTable("jira_connections",
			func(s domain.AppState) []domain.JiraConnection { return s.JiraConnections },
			func(s *domain.AppState, v []domain.JiraConnection) { s.JiraConnections = v },
			func(v domain.JiraConnection) string { return v.ID }),
		entityTable("jira_work_items",
			func(s domain.AppState) []domain.JiraWorkItem { return s.JiraWorkItems },
			func(s *domain.AppState, v []domain.JiraWorkItem) { s.JiraWorkItems = v },
			func(v domain.JiraWorkItem) string { return v.ID }),
		entityTable("scenarios",
			func(s domain.AppState) []domain.Scenario { return s.Scenarios },
			func(s *domain.AppState, v []domain.Scenario) { s.Scenarios = v },
			func(v domain.Scenario) string { return v.ID }),
		entityTable("business_contacts",
			func(s domain.AppState) []domain.BusinessContact { return s.BusinessContacts },
			func(s *domain.AppState, v []domain.BusinessContact) { s.BusinessContacts = v },
			func(v domain.BusinessContact) string { return v.ID }),
		entityTable("business_time_off",
			func(s domain.AppState) []domain.BusinessTimeOff { return s.BusinessTimeOff },
			func(s *domain.AppState, v []domain.BusinessTimeOff) { s.BusinessTimeOff = v },
			func(v domain.BusinessTimeOff) string { return v.ID }),
		entityTable("business_assignments",
			func(s domain.AppState) []domain.BusinessAssignment { return s.BusinessAssignments },
			func(s *domain.AppState, v []domain.BusinessAssignment) { s.BusinessAssignments = v },
			func(v domain.BusinessAssignment) string { return v.ID }),
	}
	for i := range tables {
		if tables[i].name == "team_members" {
			tables[i].softDelete = true
		}
	}
	return tables
}
