// Package timer implements the session countdown state machine.
package timer

import (
	"errors"
	"sync"
	"time"

	"pomoquest/internal/model"
)

// ErrInvalidTransition indicates a command was issued in a state that
// forbids it. It is always recoverable and never fatal.
var ErrInvalidTransition = errors.New("invalid transition")

// State represents the current timer lifecycle phase.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

const breakEndingThreshold = time.Minute

// Options contains runtime options for a Timer.
type Options struct {
	Round          int
	RoundsPerCycle int
	Now            func() time.Time
}

// Timer is a single-session countdown state machine. One instance
// covers one session attempt; a new session always starts a fresh
// instance in StateIdle.
//
// Remaining time is tracked as an elapsed accumulator reconciled
// against tick deltas rather than a wall-clock deadline, so
// pause/resume and bursty or missed ticks never lose or gain time.
// The mutex makes each transition the single serialization point: when
// a user stop races a pending completion tick, whichever call locks
// first wins and the loser is a no-op.
type Timer struct {
	mu sync.Mutex

	kind       model.Kind
	planned    time.Duration
	remaining  time.Duration
	elapsed    time.Duration
	startedAt  time.Time
	state      State
	extensions int

	round          int
	roundsPerCycle int
	breakWarned    bool

	subs []chan Event
	now  func() time.Time
}

// New creates an idle timer.
func New(opts Options) *Timer {
	if opts.Round <= 0 {
		opts.Round = 1
	}
	if opts.RoundsPerCycle <= 0 {
		opts.RoundsPerCycle = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Timer{
		state:          StateIdle,
		round:          opts.Round,
		roundsPerCycle: opts.RoundsPerCycle,
		now:            opts.Now,
	}
}

// Subscribe registers a new observer channel. Sends never block; a
// slow observer misses events rather than stalling the tick path.
func (t *Timer) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	t.mu.Lock()
	t.subs = append(t.subs, ch)
	t.mu.Unlock()
	return ch
}

// Start begins the countdown. Only valid from StateIdle.
func (t *Timer) Start(kind model.Kind, planned time.Duration) error {
	t.mu.Lock()
	if t.state != StateIdle {
		t.mu.Unlock()
		return ErrInvalidTransition
	}
	t.kind = kind
	t.planned = planned
	t.remaining = planned
	t.elapsed = 0
	t.extensions = 0
	t.breakWarned = false
	t.startedAt = t.now()
	t.state = StateRunning
	t.mu.Unlock()

	t.emit(Event{Type: EventStateChange, State: StateRunning, Remaining: planned, At: t.now()})
	return nil
}

// Tick advances the countdown by the elapsed delta since the previous
// tick. Outside StateRunning it is a silent no-op: tick sources are
// not guaranteed to be silenced instantly after a pause or completion.
func (t *Timer) Tick(delta time.Duration) {
	if delta <= 0 {
		return
	}
	t.mu.Lock()
	if t.state != StateRunning {
		t.mu.Unlock()
		return
	}

	t.remaining -= delta
	t.elapsed += delta
	if t.elapsed > t.planned {
		t.elapsed = t.planned
	}

	if t.remaining > 0 {
		remaining := t.remaining
		warn := false
		if t.kind.IsBreak() && !t.breakWarned && remaining <= breakEndingThreshold {
			t.breakWarned = true
			warn = true
		}
		t.mu.Unlock()
		t.emit(Event{Type: EventTick, State: StateRunning, Remaining: remaining, At: t.now()})
		if warn {
			t.emit(Event{Type: EventBreakEnding, State: StateRunning, Remaining: remaining, At: t.now()})
		}
		return
	}

	// Countdown exhausted: complete exactly once. Any further Tick
	// finds a terminal state and returns above.
	t.remaining = 0
	t.elapsed = t.planned
	t.state = StateCompleted
	record := t.recordLocked(model.StatusCompleted)
	t.mu.Unlock()

	t.emit(Event{Type: EventCompleted, State: StateCompleted, Record: record, At: record.EndedAt})
}

// Pause freezes the countdown. A no-op when already paused; invalid
// from idle or terminal states.
func (t *Timer) Pause() error {
	t.mu.Lock()
	switch t.state {
	case StatePaused:
		t.mu.Unlock()
		return nil
	case StateRunning:
		t.state = StatePaused
		t.mu.Unlock()
		t.emit(Event{Type: EventStateChange, State: StatePaused, At: t.now()})
		return nil
	default:
		t.mu.Unlock()
		return ErrInvalidTransition
	}
}

// Resume unfreezes a paused countdown.
func (t *Timer) Resume() error {
	t.mu.Lock()
	if t.state != StatePaused {
		t.mu.Unlock()
		return ErrInvalidTransition
	}
	t.state = StateRunning
	remaining := t.remaining
	t.mu.Unlock()

	t.emit(Event{Type: EventStateChange, State: StateRunning, Remaining: remaining, At: t.now()})
	return nil
}

// Extend adds extra time to a running or paused session without
// changing state. The flow-state "+5 more minutes" control.
func (t *Timer) Extend(extra time.Duration) error {
	t.mu.Lock()
	if t.state != StateRunning && t.state != StatePaused {
		t.mu.Unlock()
		return ErrInvalidTransition
	}
	if extra <= 0 {
		t.mu.Unlock()
		return nil
	}
	t.remaining += extra
	t.planned += extra
	t.extensions++
	state := t.state
	remaining := t.remaining
	t.mu.Unlock()

	t.emit(Event{Type: EventTick, State: state, Remaining: remaining, At: t.now()})
	return nil
}

// Stop aborts a running or paused session, recording the partial
// elapsed duration. Aborted sessions never earn XP.
func (t *Timer) Stop() (model.SessionRecord, error) {
	t.mu.Lock()
	if t.state != StateRunning && t.state != StatePaused {
		t.mu.Unlock()
		return model.SessionRecord{}, ErrInvalidTransition
	}
	t.state = StateAborted
	record := t.recordLocked(model.StatusAbandoned)
	t.mu.Unlock()

	t.emit(Event{Type: EventAborted, State: StateAborted, Record: record, At: record.EndedAt})
	return record, nil
}

func (t *Timer) recordLocked(status model.Status) model.SessionRecord {
	return model.SessionRecord{
		Kind:           t.kind,
		Planned:        t.planned,
		Elapsed:        t.elapsed,
		StartedAt:      t.startedAt,
		EndedAt:        t.now(),
		Status:         status,
		Round:          t.round,
		RoundsPerCycle: t.roundsPerCycle,
		Extensions:     t.extensions,
	}
}

// State returns the current lifecycle state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Kind returns the session kind set at Start.
func (t *Timer) Kind() model.Kind {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.kind
}

// Remaining returns the time left on the clock.
func (t *Timer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Planned returns the total planned duration including extensions.
func (t *Timer) Planned() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.planned
}

// Elapsed returns the accumulated active countdown time.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

// Extensions returns how many times the session was extended.
func (t *Timer) Extensions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.extensions
}

// Round returns the 1-based work round within the cycle.
func (t *Timer) Round() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.round
}

// PercentComplete returns progress through the session in [0, 1].
func (t *Timer) PercentComplete() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.planned <= 0 {
		return 0
	}
	p := float64(t.elapsed) / float64(t.planned)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func (t *Timer) emit(event Event) {
	t.mu.Lock()
	subs := append([]chan Event(nil), t.subs...)
	t.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}
