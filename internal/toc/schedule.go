package toc

import (
	"sync"
	"time"

	"github.com/metcalfc/chattoc/internal/dom"
	"github.com/metcalfc/chattoc/internal/timing"
)

// SchedulerState is the scheduler's coalescing state.
type SchedulerState int

const (
	// SchedIdle: no check pending.
	SchedIdle SchedulerState = iota
	// SchedPending: a deferred check is armed; further triggers are
	// dropped.
	SchedPending
	// SchedChecking: the check is running.
	SchedChecking
)

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	Clock timing.Clock

	// Delay is the deferral before a scheduled check runs. It stands in
	// for idle-priority scheduling: the check runs once the burst that
	// triggered it has had this long to settle.
	Delay time.Duration

	// Count returns the current user-turn count.
	Count func() int

	// Sync runs the synchronization pass; invoked only when Count
	// actually changed.
	Sync func()

	// Handoff, when set, is invoked when the deferral elapses instead of
	// running the check inline; the owner then calls RunDueCheck from its
	// own loop. Event-loop owners using a real clock should set this.
	Handoff func()
}

// Scheduler coalesces document change notifications into at most one
// pending synchronization check. N rapid notifications within one window
// yield a single check; the check invokes Sync only when the observable
// user-turn count changed.
type Scheduler struct {
	cfg SchedulerConfig

	mu        sync.Mutex
	state     SchedulerState
	timer     timing.Timer
	lastCount int
}

// NewScheduler creates a scheduler. A zero Delay defaults to 600ms.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = timing.Real()
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 600 * time.Millisecond
	}
	return &Scheduler{cfg: cfg}
}

// State returns the current coalescing state.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Notify feeds one document mutation to the scheduler. Only mutations that
// plausibly added a turn or user message schedule a check.
func (s *Scheduler) Notify(m dom.Mutation) {
	if !mutationAddsTurn(m) {
		return
	}
	s.schedule()
}

// Kick schedules a check unconditionally (initial scan, manual refresh).
func (s *Scheduler) Kick() {
	s.schedule()
}

// Stop cancels any pending check.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state = SchedIdle
}

func (s *Scheduler) schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SchedIdle {
		return
	}
	s.state = SchedPending
	s.timer = s.cfg.Clock.AfterFunc(s.cfg.Delay, s.due)
}

func (s *Scheduler) due() {
	if s.cfg.Handoff != nil {
		s.cfg.Handoff()
		return
	}
	s.RunDueCheck()
}

// RunDueCheck executes a pending check: compare the current user-turn
// count to the last observed one and synchronize only on a real change.
// Without a pending check it is a no-op.
func (s *Scheduler) RunDueCheck() {
	s.mu.Lock()
	if s.state != SchedPending {
		s.mu.Unlock()
		return
	}
	s.state = SchedChecking
	s.timer = nil
	s.mu.Unlock()

	count := s.cfg.Count()
	changed := count != s.lastCount
	if changed {
		s.lastCount = count
	}

	// Back to idle before Sync so changes observed during the pass can
	// schedule the next one.
	s.mu.Lock()
	s.state = SchedIdle
	s.mu.Unlock()

	if changed {
		s.cfg.Sync()
	}
}

func turnish(n *dom.Node) bool {
	return isTurnContainer(n) || isUserNode(n)
}

func mutationAddsTurn(m dom.Mutation) bool {
	for _, n := range m.Added {
		if n.Type != dom.ElementNode {
			continue
		}
		if turnish(n) || n.Find(turnish) != nil {
			return true
		}
	}
	return false
}
