// Package core owns the in-memory application state and everything that
// mutates it: the mutation router, scenario lifecycle, and the debounced
// remote sync scheduler. The Store is the single writer; collaborators hold
// a reference to it instead of reaching for shared globals.
package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"plancore/pkg/domain"
)

// Store holds the canonical AppState. All mutation funnels through Apply
// (or the scenario helpers built on it), which always commits a freshly
// cloned state so consumers can compare old and new references cheaply.
type Store struct {
	mu    sync.RWMutex
	state domain.AppState
	nowFn func() time.Time
	newID func() string

	subMu sync.Mutex
	subs  []func(domain.AppState)
}

// NewStore constructs a store seeded with the given state, which is upgraded
// to the current shape and deep-cloned on the way in.
func NewStore(initial domain.AppState) *Store {
	domain.UpgradeState(&initial)
	return &Store{
		state: domain.CloneState(initial),
		nowFn: func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Subscribe registers fn to run after every committed mutation with a
// snapshot of the new state. Subscribers run outside the store lock, in
// registration order, on the mutating goroutine.
func (s *Store) Subscribe(fn func(domain.AppState)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

// State returns a deep-cloned snapshot of the raw (baseline-rooted) state.
func (s *Store) State() domain.AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneState(s.state)
}

// Effective returns the state visible to readers: the baseline, or the
// active scenario overlaid onto the shared collections.
func (s *Store) Effective() domain.AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneState(domain.EffectiveState(s.state))
}

// Apply routes a partial update to the baseline or active scenario,
// regenerates derived data, commits and returns the new state. It has no
// I/O and never fails; persistence outcomes are reported asynchronously by
// the subscribers wired in by the Service.
func (s *Store) Apply(u domain.Update) domain.AppState {
	s.mu.Lock()
	next := domain.Apply(s.state, u, s.nowFn())
	s.state = next
	snapshot := domain.CloneState(next)
	s.mu.Unlock()
	s.notify(snapshot)
	return snapshot
}

// SwitchScenario points readers and scenario-scoped writes at the scenario
// with the given id, or back at the baseline when id is empty. Switching to
// the already-active target is a no-op: nothing is committed and no
// timestamp moves.
func (s *Store) SwitchScenario(id string) domain.AppState {
	s.mu.Lock()
	if s.state.ActiveScenarioID == id {
		snapshot := domain.CloneState(s.state)
		s.mu.Unlock()
		return snapshot
	}
	next := domain.Apply(s.state, domain.Update{ActiveScenarioID: &id}, s.nowFn())
	s.state = next
	snapshot := domain.CloneState(next)
	s.mu.Unlock()
	s.notify(snapshot)
	return snapshot
}

// CreateScenario deep-copies the scenario-scoped collections of the
// currently effective state (baseline or active scenario, whichever is
// visible) into a new named scenario. The active pointer is left untouched;
// switching is an explicit separate step.
func (s *Store) CreateScenario(name, description string) domain.Scenario {
	s.mu.Lock()
	eff := domain.EffectiveState(s.state)
	now := s.nowFn()
	sc := domain.Scenario{
		ID:            s.newID(),
		Name:          name,
		Description:   description,
		CreatedAt:     now,
		UpdatedAt:     now,
		BasedOnSyncAt: s.state.JiraSettings.LastSyncAt,
		Projects:      domain.CloneProjects(eff.Projects),
		TeamMembers:   domain.CloneTeamMembers(eff.TeamMembers),
		Assignments:   domain.CloneAssignments(eff.Assignments),
		TimeOff:       domain.CloneTimeOff(eff.TimeOff),
		JiraWorkItems: domain.CloneJiraWorkItems(eff.JiraWorkItems),
	}
	scenarios := append(domain.CloneState(s.state).Scenarios, sc)
	next := domain.Apply(s.state, domain.Update{Scenarios: &scenarios}, now)
	s.state = next
	snapshot := domain.CloneState(next)
	s.mu.Unlock()
	s.notify(snapshot)
	return domain.CloneScenario(sc)
}

// DuplicateScenario clones a stored scenario into a fully independent new
// one. A later edit to either must never affect the other.
func (s *Store) DuplicateScenario(sourceID, name string) (domain.Scenario, error) {
	s.mu.Lock()
	i := domain.FindScenario(s.state.Scenarios, sourceID)
	if i < 0 {
		s.mu.Unlock()
		return domain.Scenario{}, fmt.Errorf("scenario %q not found", sourceID)
	}
	now := s.nowFn()
	sc := domain.CloneScenario(s.state.Scenarios[i])
	sc.ID = s.newID()
	sc.Name = name
	sc.CreatedAt = now
	sc.UpdatedAt = now
	scenarios := append(domain.CloneState(s.state).Scenarios, sc)
	next := domain.Apply(s.state, domain.Update{Scenarios: &scenarios}, now)
	s.state = next
	snapshot := domain.CloneState(next)
	s.mu.Unlock()
	s.notify(snapshot)
	return domain.CloneScenario(sc), nil
}

// DeleteScenario removes a stored scenario. When it was the active one the
// pointer is cleared in the same commit, returning readers to the baseline.
func (s *Store) DeleteScenario(id string) {
	s.mu.Lock()
	i := domain.FindScenario(s.state.Scenarios, id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	scenarios := domain.CloneState(s.state).Scenarios
	scenarios = append(scenarios[:i], scenarios[i+1:]...)
	u := domain.Update{Scenarios: &scenarios}
	if s.state.ActiveScenarioID == id {
		baseline := ""
		u.ActiveScenarioID = &baseline
	}
	next := domain.Apply(s.state, u, s.nowFn())
	s.state = next
	snapshot := domain.CloneState(next)
	s.mu.Unlock()
	s.notify(snapshot)
}

// RemoveTeamMember deletes a member from the effective view together with
// their time off and every assignment referencing them, both inside the
// project tree and in the flattened cache. The cascade is routed like any
// other scoped write: it lands on the active scenario when one is selected.
func (s *Store) RemoveTeamMember(id string) domain.AppState {
	s.mu.RLock()
	eff := domain.CloneState(domain.EffectiveState(s.state))
	s.mu.RUnlock()

	members := make([]domain.TeamMember, 0, len(eff.TeamMembers))
	for _, m := range eff.TeamMembers {
		if m.ID != id {
			members = append(members, m)
		}
	}
	timeOff := make([]domain.TimeOff, 0, len(eff.TimeOff))
	for _, to := range eff.TimeOff {
		if to.MemberID != id {
			timeOff = append(timeOff, to)
		}
	}
	projects := eff.Projects
	for i := range projects {
		for j := range projects[i].Phases {
			ph := &projects[i].Phases[j]
			kept := make([]domain.Assignment, 0, len(ph.Assignments))
			for _, a := range ph.Assignments {
				if a.MemberID != id {
					kept = append(kept, a)
				}
			}
			ph.Assignments = kept
		}
	}

	// Assignments are left to the router's derivation pass so the flattened
	// cache is rebuilt from the pruned tree in the same commit.
	return s.Apply(domain.Update{
		TeamMembers: &members,
		TimeOff:     &timeOff,
		Projects:    &projects,
	})
}

func (s *Store) notify(snapshot domain.AppState) {
	s.subMu.Lock()
	subs := append([]func(domain.AppState){}, s.subs...)
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(snapshot)
	}
}
