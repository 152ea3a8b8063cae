package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pomoquest/internal/model"
	"pomoquest/internal/store"
	"pomoquest/internal/unlock"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "pomoquest.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	catalog, err := unlock.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return New(st, catalog, model.DefaultTimerConfig()), st
}

func completedRecord(kind model.Kind, endedAt time.Time, elapsed time.Duration, round int) model.SessionRecord {
	return model.SessionRecord{
		Kind:           kind,
		Planned:        elapsed,
		Elapsed:        elapsed,
		StartedAt:      endedAt.Add(-elapsed),
		EndedAt:        endedAt,
		Status:         model.StatusCompleted,
		Round:          round,
		RoundsPerCycle: 4,
	}
}

func TestCompleteFirstWorkSession(t *testing.T) {
	coord, st := newTestCoordinator(t)
	ctx := context.Background()
	endedAt := time.Date(2025, 6, 10, 9, 30, 0, 0, time.Local)

	result, err := coord.CompleteSession(ctx, completedRecord(model.KindWork, endedAt, 25*time.Minute, 1))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Base 100 + streak x1 (10) + daily kickoff (50).
	if result.XPEarned != 160 {
		t.Fatalf("expected 160 XP, got %d (%v)", result.XPEarned, result.Bonuses)
	}
	if result.Streak != 1 {
		t.Fatalf("expected streak 1, got %d", result.Streak)
	}
	if result.LeveledUp {
		t.Fatal("160 XP should not level up")
	}

	unlocked := map[string]bool{}
	for _, u := range result.NewUnlocks {
		unlocked[u.Key] = true
	}
	for _, key := range []string{"midnight", "sprout", "first_steps"} {
		if !unlocked[key] {
			t.Fatalf("expected %s unlocked, got %v", key, result.NewUnlocks)
		}
	}

	progress, err := st.LoadProgress(ctx)
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if progress.TotalXP != 160 || progress.TotalSessions != 1 || progress.CurrentStreak != 1 {
		t.Fatalf("unexpected progress: %+v", progress)
	}
	if progress.TotalFocusMinutes != 25 {
		t.Fatalf("expected 25 focus minutes, got %d", progress.TotalFocusMinutes)
	}
}

func TestSecondSessionSameDaySkipsKickoff(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()
	endedAt := time.Date(2025, 6, 10, 9, 30, 0, 0, time.Local)

	if _, err := coord.CompleteSession(ctx, completedRecord(model.KindWork, endedAt, 25*time.Minute, 1)); err != nil {
		t.Fatalf("first: %v", err)
	}
	result, err := coord.CompleteSession(ctx, completedRecord(model.KindWork, endedAt.Add(time.Hour), 25*time.Minute, 2))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	// Base 100 + streak x1 (10); no kickoff, no cycle.
	if result.XPEarned != 110 {
		t.Fatalf("expected 110 XP, got %d (%v)", result.XPEarned, result.Bonuses)
	}
}

func TestCycleBonusOnFourthRound(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()
	endedAt := time.Date(2025, 6, 10, 9, 30, 0, 0, time.Local)

	result, err := coord.CompleteSession(ctx, completedRecord(model.KindWork, endedAt, 25*time.Minute, 4))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	// Base 100 + streak x1 (10) + kickoff (50) + full cycle (150).
	if result.XPEarned != 310 {
		t.Fatalf("expected 310 XP, got %d (%v)", result.XPEarned, result.Bonuses)
	}
	if !result.LeveledUp || result.NewLevel != 2 {
		t.Fatalf("310 XP should reach level 2, got level %d", result.NewLevel)
	}
}

func TestBreakEarnsNothingAndKeepsProgress(t *testing.T) {
	coord, st := newTestCoordinator(t)
	ctx := context.Background()
	endedAt := time.Date(2025, 6, 10, 9, 30, 0, 0, time.Local)

	result, err := coord.CompleteSession(ctx, completedRecord(model.KindShortBreak, endedAt, 5*time.Minute, 1))
	if err != nil {
		t.Fatalf("complete break: %v", err)
	}
	if result.XPEarned != 0 || result.Streak != 0 {
		t.Fatalf("break changed rewards: %+v", result)
	}
	progress, err := st.LoadProgress(ctx)
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if progress.TotalSessions != 0 || progress.TotalXP != 0 {
		t.Fatalf("break mutated progress totals: %+v", progress)
	}
	day, ok, err := st.DailyStatsFor(ctx, endedAt)
	if err != nil || !ok {
		t.Fatalf("daily stats: ok=%v err=%v", ok, err)
	}
	if day.BreakSessions != 1 || day.StreakQualified {
		t.Fatalf("unexpected daily stats for break: %+v", day)
	}
}

func TestMicroSessionQualifiesStreak(t *testing.T) {
	coord, st := newTestCoordinator(t)
	ctx := context.Background()
	endedAt := time.Date(2025, 6, 10, 9, 30, 0, 0, time.Local)

	result, err := coord.CompleteSession(ctx, completedRecord(model.KindMicro, endedAt, 10*time.Minute, 1))
	if err != nil {
		t.Fatalf("complete micro: %v", err)
	}
	// Base 40 + streak x1 (10) + kickoff (50).
	if result.XPEarned != 100 {
		t.Fatalf("expected 100 XP, got %d (%v)", result.XPEarned, result.Bonuses)
	}
	if result.Streak != 1 {
		t.Fatalf("micro should qualify the day, streak %d", result.Streak)
	}
	day, ok, err := st.DailyStatsFor(ctx, endedAt)
	if err != nil || !ok {
		t.Fatalf("daily stats: ok=%v err=%v", ok, err)
	}
	if day.MicroSessions != 1 || !day.StreakQualified {
		t.Fatalf("unexpected daily stats: %+v", day)
	}
}

func TestUnlockDeltaIsEmptyOnRepeat(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	ctx := context.Background()
	endedAt := time.Date(2025, 6, 10, 9, 30, 0, 0, time.Local)

	first, err := coord.CompleteSession(ctx, completedRecord(model.KindWork, endedAt, 25*time.Minute, 1))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if len(first.NewUnlocks) == 0 {
		t.Fatal("expected unlocks on first completion")
	}
	second, err := coord.CompleteSession(ctx, completedRecord(model.KindWork, endedAt.Add(time.Hour), 25*time.Minute, 2))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	for _, u := range second.NewUnlocks {
		for _, prev := range first.NewUnlocks {
			if u.UnlockKey == prev.UnlockKey {
				t.Fatalf("unlock %s granted twice", u.Key)
			}
		}
	}
}

func TestRejectsNonCompletedRecord(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	record := completedRecord(model.KindWork, time.Now(), 25*time.Minute, 1)
	record.Status = model.StatusAbandoned
	if _, err := coord.CompleteSession(context.Background(), record); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("expected ErrNotCompleted, got %v", err)
	}
}

func TestAbortPersistsRecordOnly(t *testing.T) {
	coord, st := newTestCoordinator(t)
	ctx := context.Background()
	record := completedRecord(model.KindWork, time.Now(), 25*time.Minute, 1)
	record.Status = model.StatusAbandoned
	record.Elapsed = 10 * time.Minute

	saved, err := coord.RecordAbort(ctx, record)
	if err != nil {
		t.Fatalf("record abort: %v", err)
	}
	if saved.ID == 0 {
		t.Fatal("expected a persisted id")
	}
	progress, err := st.LoadProgress(ctx)
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if progress.TotalXP != 0 || progress.TotalSessions != 0 || progress.CurrentStreak != 0 {
		t.Fatalf("abort mutated progress: %+v", progress)
	}
}

// failingStore delegates reads to the real store but refuses commits.
type failingStore struct {
	*store.Store
}

var errCommit = errors.New("disk full")

func (f failingStore) CommitCompletion(context.Context, model.SessionRecord,
	model.DailyStats, model.UserProgress, []model.Unlock) (int64, error) {
	return 0, errCommit
}

func TestCommitFailureLeavesProgressUnchanged(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "pomoquest.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	catalog, err := unlock.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	coord := New(failingStore{st}, catalog, model.DefaultTimerConfig())

	_, err = coord.CompleteSession(context.Background(),
		completedRecord(model.KindWork, time.Now(), 25*time.Minute, 1))
	if !errors.Is(err, errCommit) {
		t.Fatalf("expected commit error, got %v", err)
	}

	progress, err := st.LoadProgress(context.Background())
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if progress.TotalXP != 0 || progress.TotalSessions != 0 || progress.CurrentStreak != 0 {
		t.Fatalf("failed commit left partial state: %+v", progress)
	}
}

func TestNextAfterCycleRotation(t *testing.T) {
	coord, _ := newTestCoordinator(t)
	cases := []struct {
		kind      model.Kind
		round     int
		wantKind  model.Kind
		wantRound int
	}{
		{model.KindWork, 1, model.KindShortBreak, 1},
		{model.KindWork, 3, model.KindShortBreak, 3},
		{model.KindWork, 4, model.KindLongBreak, 4},
		{model.KindMicro, 2, model.KindShortBreak, 2},
		{model.KindShortBreak, 2, model.KindWork, 3},
		{model.KindLongBreak, 4, model.KindWork, 1},
	}
	for _, tc := range cases {
		kind, round := coord.NextAfter(tc.kind, tc.round)
		if kind != tc.wantKind || round != tc.wantRound {
			t.Fatalf("after %s round %d: expected %s round %d, got %s round %d",
				tc.kind, tc.round, tc.wantKind, tc.wantRound, kind, round)
		}
	}
}
