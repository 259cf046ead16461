package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"plancore/pkg/domain"
)

// SyncStatus is the user-visible remote sync state.
type SyncStatus string

// Scheduler states. Offline is permanent for the session: it only occurs
// when no remote backend is configured at all.
const (
	StatusIdle    SyncStatus = "idle"
	StatusSaving  SyncStatus = "saving"
	StatusSaved   SyncStatus = "saved"
	StatusError   SyncStatus = "error"
	StatusOffline SyncStatus = "offline"
)

// DefaultDebounce is the delay between the last mutation and the remote
// save it triggers.
const DefaultDebounce = 1500 * time.Millisecond

// Scheduler coalesces rapid successive mutations into one debounced remote
// save. It is a small explicit state machine: a single-slot last-write-wins
// pending state, one cancellable timer, and an in-flight flag that
// serializes actual saves. An in-flight save is never cancelled; a state
// scheduled during the flight becomes the next save once it settles.
type Scheduler struct {
	remote  domain.RemoteStore
	delay   time.Duration
	logger  *slog.Logger
	metrics MetricsRecorder

	mu       sync.Mutex
	timer    *time.Timer
	pending  *domain.AppState
	last     *domain.AppState
	inflight bool
	settled  chan struct{}
	status   SyncStatus
	lastErr  string
}

// NewScheduler wires a scheduler to the remote backend. A nil remote means
// the session runs offline: status is permanently StatusOffline and no
// scheduling occurs. Delay <= 0 selects DefaultDebounce; a nil logger or
// recorder selects no-op implementations.
func NewScheduler(remote domain.RemoteStore, delay time.Duration, logger *slog.Logger, metrics MetricsRecorder) *Scheduler {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	status := StatusIdle
	if remote == nil {
		status = StatusOffline
	}
	return &Scheduler{
		remote:  remote,
		delay:   delay,
		logger:  logger,
		metrics: metrics,
		status:  status,
	}
}

// Status returns the current state and, when in StatusError, the retained
// failure message.
func (s *Scheduler) Status() (SyncStatus, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.lastErr
}

// Schedule records state as the pending save, replacing any previously
// pending one, and re-arms the debounce timer. Status moves to saving
// immediately so the UI reflects unsynced work.
func (s *Scheduler) Schedule(state domain.AppState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusOffline {
		return
	}
	snapshot := domain.CloneState(state)
	s.pending = &snapshot
	s.last = &snapshot
	s.status = StatusSaving
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

// Retry re-attempts a save of the last known full state after a failure.
func (s *Scheduler) Retry() {
	s.mu.Lock()
	if s.status == StatusOffline || s.last == nil {
		s.mu.Unlock()
		return
	}
	s.pending = s.last
	s.status = StatusSaving
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.fire()
}

// Flush cancels the debounce delay and saves any pending state before
// returning. It honors the single-flight rule: a save already running is
// waited out before the pending state is written, never raced. Used on
// shutdown.
func (s *Scheduler) Flush(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.status == StatusOffline {
			s.mu.Unlock()
			return nil
		}
		if s.timer != nil {
			s.timer.Stop()
		}
		if s.inflight {
			wait := s.settled
			s.mu.Unlock()
			select {
			case <-wait:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		if s.pending == nil {
			s.mu.Unlock()
			return nil
		}
		state := *s.pending
		s.pending = nil
		s.beginFlight()
		s.mu.Unlock()

		err := s.save(ctx, state)
		s.endFlight()
		return err
	}
}

// fire runs when the debounce timer elapses. If a save is already in
// flight the pending state is re-scheduled rather than run concurrently.
func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.inflight {
		s.timer = time.AfterFunc(s.delay, s.fire)
		s.mu.Unlock()
		return
	}
	if s.pending == nil {
		s.mu.Unlock()
		return
	}
	state := *s.pending
	s.pending = nil
	s.beginFlight()
	s.mu.Unlock()

	_ = s.save(context.Background(), state)
	s.endFlight()
}

// beginFlight marks a save in flight. Callers hold the mutex.
func (s *Scheduler) beginFlight() {
	s.inflight = true
	s.settled = make(chan struct{})
}

// endFlight settles the flight and re-arms the timer when a newer state
// arrived while the save ran.
func (s *Scheduler) endFlight() {
	s.mu.Lock()
	s.inflight = false
	close(s.settled)
	if s.pending != nil {
		if s.timer != nil {
			s.timer.Stop()
		}
		s.timer = time.AfterFunc(s.delay, s.fire)
	}
	s.mu.Unlock()
}

// save performs one remote save and records status, logs and metrics.
func (s *Scheduler) save(ctx context.Context, state domain.AppState) error {
	start := time.Now()
	err := s.remote.Save(ctx, state)
	s.metrics.Observe(ctx, "remote_save", err == nil, time.Since(start))

	s.mu.Lock()
	if err != nil {
		s.status = StatusError
		s.lastErr = err.Error()
	} else if s.pending == nil {
		s.status = StatusSaved
		s.lastErr = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("remote save failed", "error", err)
		return err
	}
	s.logger.Debug("remote save complete", "duration", time.Since(start))
	return nil
}
