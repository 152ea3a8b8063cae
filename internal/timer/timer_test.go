package timer

import (
	"errors"
	"testing"
	"time"

	"pomoquest/internal/model"
)

func newTestTimer() *Timer {
	base := time.Unix(1700000000, 0)
	return New(Options{Now: func() time.Time { return base }})
}

func TestInitialStateIsIdle(t *testing.T) {
	tm := newTestTimer()
	if tm.State() != StateIdle {
		t.Fatalf("expected idle, got %s", tm.State())
	}
}

func TestStartTransitionsToRunning(t *testing.T) {
	tm := newTestTimer()
	if err := tm.Start(model.KindWork, 25*time.Minute); err != nil {
		t.Fatalf("start: %v", err)
	}
	if tm.State() != StateRunning {
		t.Fatalf("expected running, got %s", tm.State())
	}
	if tm.Remaining() != 25*time.Minute {
		t.Fatalf("expected 25m remaining, got %s", tm.Remaining())
	}
}

func TestStartFailsWhenNotIdle(t *testing.T) {
	tm := newTestTimer()
	if err := tm.Start(model.KindWork, time.Minute); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tm.Start(model.KindWork, time.Minute); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTickDecrementsRemaining(t *testing.T) {
	tm := newTestTimer()
	if err := tm.Start(model.KindWork, time.Minute); err != nil {
		t.Fatalf("start: %v", err)
	}
	tm.Tick(10 * time.Second)
	if tm.Remaining() != 50*time.Second {
		t.Fatalf("expected 50s remaining, got %s", tm.Remaining())
	}
	if tm.Elapsed() != 10*time.Second {
		t.Fatalf("expected 10s elapsed, got %s", tm.Elapsed())
	}
}

func TestTickOutsideRunningIsNoop(t *testing.T) {
	tm := newTestTimer()
	tm.Tick(time.Second)
	if tm.State() != StateIdle {
		t.Fatalf("tick from idle changed state to %s", tm.State())
	}

	if err := tm.Start(model.KindWork, time.Minute); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tm.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	tm.Tick(30 * time.Second)
	if tm.Remaining() != time.Minute {
		t.Fatalf("tick while paused changed remaining to %s", tm.Remaining())
	}
}

func TestCompletionFiresExactlyOnce(t *testing.T) {
	tm := newTestTimer()
	events := tm.Subscribe(16)
	if err := tm.Start(model.KindWork, 2*time.Second); err != nil {
		t.Fatalf("start: %v", err)
	}
	tm.Tick(time.Second)
	tm.Tick(time.Second)
	tm.Tick(time.Second) // straggler after completion
	tm.Tick(time.Second)

	if tm.State() != StateCompleted {
		t.Fatalf("expected completed, got %s", tm.State())
	}
	completed := 0
	for {
		select {
		case ev := <-events:
			if ev.Type == EventCompleted {
				completed++
			}
			continue
		default:
		}
		break
	}
	if completed != 1 {
		t.Fatalf("expected exactly one completed event, got %d", completed)
	}
}

func TestBurstyTickCompletesWithoutLosingTime(t *testing.T) {
	tm := newTestTimer()
	if err := tm.Start(model.KindWork, time.Minute); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Host process suspended; one big delta arrives.
	tm.Tick(5 * time.Minute)
	if tm.State() != StateCompleted {
		t.Fatalf("expected completed after burst tick, got %s", tm.State())
	}
	if tm.Elapsed() != time.Minute {
		t.Fatalf("elapsed exceeded planned: %s", tm.Elapsed())
	}
}

func TestPauseAndResume(t *testing.T) {
	tm := newTestTimer()
	if err := tm.Start(model.KindWork, time.Minute); err != nil {
		t.Fatalf("start: %v", err)
	}
	tm.Tick(20 * time.Second)
	if err := tm.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if tm.State() != StatePaused {
		t.Fatalf("expected paused, got %s", tm.State())
	}
	if err := tm.Pause(); err != nil {
		t.Fatalf("double pause should be a no-op, got %v", err)
	}
	if err := tm.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if tm.State() != StateRunning {
		t.Fatalf("expected running after resume, got %s", tm.State())
	}
	if tm.Remaining() != 40*time.Second {
		t.Fatalf("pause/resume lost time: %s remaining", tm.Remaining())
	}
}

func TestPauseInvalidFromIdleAndTerminal(t *testing.T) {
	tm := newTestTimer()
	if err := tm.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from idle, got %v", err)
	}
	if err := tm.Start(model.KindWork, time.Second); err != nil {
		t.Fatalf("start: %v", err)
	}
	tm.Tick(time.Second)
	if err := tm.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from completed, got %v", err)
	}
}

func TestResumeInvalidWhenNotPaused(t *testing.T) {
	tm := newTestTimer()
	if err := tm.Resume(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestExtendAddsTimeWithoutStateChange(t *testing.T) {
	tm := newTestTimer()
	if err := tm.Start(model.KindWork, 25*time.Minute); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tm.Extend(5 * time.Minute); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if tm.State() != StateRunning {
		t.Fatalf("extend changed state to %s", tm.State())
	}
	if tm.Remaining() != 30*time.Minute {
		t.Fatalf("expected 30m remaining, got %s", tm.Remaining())
	}
	if tm.Planned() != 30*time.Minute {
		t.Fatalf("expected planned to grow to 30m, got %s", tm.Planned())
	}
	if tm.Extensions() != 1 {
		t.Fatalf("expected 1 extension, got %d", tm.Extensions())
	}
}

func TestExtendWorksWhilePaused(t *testing.T) {
	tm := newTestTimer()
	if err := tm.Start(model.KindWork, time.Minute); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tm.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := tm.Extend(time.Minute); err != nil {
		t.Fatalf("extend while paused: %v", err)
	}
	if tm.State() != StatePaused {
		t.Fatalf("extend changed state to %s", tm.State())
	}
	if tm.Remaining() != 2*time.Minute {
		t.Fatalf("expected 2m remaining, got %s", tm.Remaining())
	}
}

func TestExtendInvalidWhenTerminal(t *testing.T) {
	tm := newTestTimer()
	if err := tm.Start(model.KindWork, time.Second); err != nil {
		t.Fatalf("start: %v", err)
	}
	tm.Tick(time.Second)
	if err := tm.Extend(time.Minute); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	// A zero extension is still a command against a terminal state.
	if err := tm.Extend(0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for zero extend, got %v", err)
	}
}

func TestExtendZeroIsNoOpWhileRunning(t *testing.T) {
	tm := newTestTimer()
	if err := tm.Start(model.KindWork, 25*time.Minute); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tm.Extend(0); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if tm.Remaining() != 25*time.Minute || tm.Extensions() != 0 {
		t.Fatalf("zero extend changed the clock: remaining %s, extensions %d",
			tm.Remaining(), tm.Extensions())
	}
}

func TestStopRecordsPartialElapsed(t *testing.T) {
	tm := newTestTimer()
	if err := tm.Start(model.KindWork, 25*time.Minute); err != nil {
		t.Fatalf("start: %v", err)
	}
	tm.Tick(10 * time.Minute)
	record, err := tm.Stop()
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if tm.State() != StateAborted {
		t.Fatalf("expected aborted, got %s", tm.State())
	}
	if record.Status != model.StatusAbandoned {
		t.Fatalf("expected abandoned status, got %s", record.Status)
	}
	if record.Elapsed != 10*time.Minute {
		t.Fatalf("expected 10m elapsed, got %s", record.Elapsed)
	}
	if record.Planned != 25*time.Minute {
		t.Fatalf("expected 25m planned, got %s", record.Planned)
	}
	if record.XPAwarded != 0 {
		t.Fatalf("aborted session must not carry XP, got %d", record.XPAwarded)
	}
}

func TestStopRacingCompletionLoses(t *testing.T) {
	tm := newTestTimer()
	if err := tm.Start(model.KindWork, time.Second); err != nil {
		t.Fatalf("start: %v", err)
	}
	tm.Tick(time.Second) // completion wins
	if _, err := tm.Stop(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition after completion, got %v", err)
	}
	if tm.State() != StateCompleted {
		t.Fatalf("stop after completion changed state to %s", tm.State())
	}
}

func TestCompletedRecordCarriesCycleInfo(t *testing.T) {
	base := time.Unix(1700000000, 0)
	tm := New(Options{Round: 4, RoundsPerCycle: 4, Now: func() time.Time { return base }})
	events := tm.Subscribe(4)
	if err := tm.Start(model.KindWork, time.Second); err != nil {
		t.Fatalf("start: %v", err)
	}
	tm.Tick(time.Second)
	var record model.SessionRecord
	for {
		select {
		case ev := <-events:
			if ev.Type == EventCompleted {
				record = ev.Record
			}
			continue
		default:
		}
		break
	}
	if record.Round != 4 || record.RoundsPerCycle != 4 {
		t.Fatalf("unexpected cycle info: round %d of %d", record.Round, record.RoundsPerCycle)
	}
	if record.Status != model.StatusCompleted {
		t.Fatalf("expected completed status, got %s", record.Status)
	}
	if record.Elapsed != record.Planned {
		t.Fatalf("completed session elapsed %s != planned %s", record.Elapsed, record.Planned)
	}
}

func TestBreakEndingFiresOnce(t *testing.T) {
	tm := newTestTimer()
	events := tm.Subscribe(16)
	if err := tm.Start(model.KindShortBreak, 90*time.Second); err != nil {
		t.Fatalf("start: %v", err)
	}
	tm.Tick(40 * time.Second) // 50s left, under threshold
	tm.Tick(10 * time.Second) // 40s left
	warned := 0
	for {
		select {
		case ev := <-events:
			if ev.Type == EventBreakEnding {
				warned++
			}
			continue
		default:
		}
		break
	}
	if warned != 1 {
		t.Fatalf("expected one break-ending event, got %d", warned)
	}
}

func TestPercentComplete(t *testing.T) {
	tm := newTestTimer()
	if err := tm.Start(model.KindWork, time.Minute); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := tm.PercentComplete(); got != 0 {
		t.Fatalf("expected 0%% at start, got %f", got)
	}
	tm.Tick(30 * time.Second)
	if got := tm.PercentComplete(); got != 0.5 {
		t.Fatalf("expected 50%%, got %f", got)
	}
}
