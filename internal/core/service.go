package core

import (
	"fmt"
	"log/slog"

	"plancore/pkg/domain"
)

// Service is the entry point collaborators talk to: it funnels every
// mutation through the store's router and wires the persistence side
// effects — a synchronous cache-first write to the local gateway and a
// debounced remote save per committed mutation. The router itself never
// fails; the committed state is canonical regardless of what persistence
// does downstream.
type Service struct {
	store  *Store
	local  domain.LocalStore
	sched  *Scheduler
	logger *slog.Logger
}

// NewService wires the store to its persistence side effects. local may be
// nil (no cache, e.g. in tests); sched must not be nil — run the scheduler
// with a nil remote for offline sessions.
func NewService(store *Store, local domain.LocalStore, sched *Scheduler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &Service{store: store, local: local, sched: sched, logger: logger}
	store.Subscribe(svc.persist)
	return svc
}

func (s *Service) persist(state domain.AppState) {
	if s.local != nil {
		if err := s.local.Save(state); err != nil {
			s.logger.Error("local cache write failed", "error", err)
		}
	}
	s.sched.Schedule(state)
}

// Apply routes a partial update and returns the committed state.
func (s *Service) Apply(u domain.Update) domain.AppState {
	return s.store.Apply(u)
}

// State returns the raw baseline-rooted state.
func (s *Service) State() domain.AppState { return s.store.State() }

// Effective returns the state visible to readers.
func (s *Service) Effective() domain.AppState { return s.store.Effective() }

// SwitchScenario changes the active overlay; empty id selects the baseline.
func (s *Service) SwitchScenario(id string) domain.AppState {
	return s.store.SwitchScenario(id)
}

// CreateScenario snapshots the effective state into a new named scenario.
func (s *Service) CreateScenario(name, description string) (domain.Scenario, error) {
	if name == "" {
		return domain.Scenario{}, fmt.Errorf("scenario name required")
	}
	return s.store.CreateScenario(name, description), nil
}

// DuplicateScenario clones a stored scenario under a new name.
func (s *Service) DuplicateScenario(sourceID, name string) (domain.Scenario, error) {
	if name == "" {
		return domain.Scenario{}, fmt.Errorf("scenario name required")
	}
	return s.store.DuplicateScenario(sourceID, name)
}

// DeleteScenario removes a scenario, clearing the active pointer when
// needed.
func (s *Service) DeleteScenario(id string) { s.store.DeleteScenario(id) }

// RemoveTeamMember cascades a member deletion through time off and
// assignments in the effective view.
func (s *Service) RemoveTeamMember(id string) domain.AppState {
	return s.store.RemoveTeamMember(id)
}

// MapJiraWorkItem links a work item to a project, phase and member. The
// write goes through the same mutation path as every other update; there is
// no separate code path for the Jira mapping layer.
func (s *Service) MapJiraWorkItem(workItemID, projectID, phaseID, memberID string) error {
	items := s.store.Effective().JiraWorkItems
	found := false
	for i := range items {
		if items[i].ID == workItemID {
			items[i].MappedProjectID = projectID
			items[i].MappedPhaseID = phaseID
			items[i].MappedMemberID = memberID
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("jira work item %q not found", workItemID)
	}
	s.store.Apply(domain.Update{JiraWorkItems: &items})
	return nil
}

// SyncStatus reports the scheduler state and last error message.
func (s *Service) SyncStatus() (SyncStatus, string) { return s.sched.Status() }

// RetrySync re-attempts a remote save of the last known state.
func (s *Service) RetrySync() { s.sched.Retry() }
