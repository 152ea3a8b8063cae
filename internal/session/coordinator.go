// Package session orchestrates completed sessions into durable
// progress updates.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pomoquest/internal/model"
	"pomoquest/internal/streak"
	"pomoquest/internal/unlock"
	"pomoquest/internal/xp"
)

// ErrNotCompleted indicates a record that never reached the completed
// state was handed to CompleteSession.
var ErrNotCompleted = errors.New("session not completed")

// Store is the persistence boundary the coordinator commits through.
type Store interface {
	LoadProgress(ctx context.Context) (model.UserProgress, error)
	QualifyingDates(ctx context.Context) ([]time.Time, error)
	DailyStatsFor(ctx context.Context, day time.Time) (model.DailyStats, bool, error)
	UnlockedKeys(ctx context.Context) (map[model.UnlockKey]bool, error)
	CommitCompletion(ctx context.Context, record model.SessionRecord,
		dailyDelta model.DailyStats, progress model.UserProgress,
		newUnlocks []model.Unlock) (int64, error)
	RecordAbort(ctx context.Context, record model.SessionRecord) (int64, error)
}

// Coordinator ties the rules engines to the store. All engines are
// pure functions over snapshots; the only mutation path is the store's
// atomic commit.
type Coordinator struct {
	store   Store
	catalog *unlock.Catalog
	cfg     model.TimerConfig
}

// New creates a coordinator.
func New(store Store, catalog *unlock.Catalog, cfg model.TimerConfig) *Coordinator {
	return &Coordinator{store: store, catalog: catalog, cfg: cfg}
}

// CompleteSession turns a completed session record into one atomic
// progress update and returns the outcome for the host layer to
// render. If the commit fails nothing is applied and the error is
// returned; the caller may retry.
func (c *Coordinator) CompleteSession(ctx context.Context, record model.SessionRecord) (model.CompletionResult, error) {
	if record.Status != model.StatusCompleted {
		return model.CompletionResult{}, ErrNotCompleted
	}

	progress, err := c.store.LoadProgress(ctx)
	if err != nil {
		return model.CompletionResult{}, fmt.Errorf("load progress: %w", err)
	}
	dates, err := c.store.QualifyingDates(ctx)
	if err != nil {
		return model.CompletionResult{}, fmt.Errorf("load history: %w", err)
	}
	today := streak.Day(record.EndedAt)
	daily, _, err := c.store.DailyStatsFor(ctx, today)
	if err != nil {
		return model.CompletionResult{}, fmt.Errorf("load daily stats: %w", err)
	}

	focus := record.Kind.IsFocus()
	currentStreak := progress.CurrentStreak
	longest := progress.LongestStreak
	if focus {
		withToday := append(append([]time.Time(nil), dates...), today)
		currentStreak = streak.Compute(withToday, today)
		if run := streak.Longest(withToday); run > longest {
			longest = run
		}
		if currentStreak > longest {
			longest = currentStreak
		}
	}

	earned, bonuses := xp.Award(xp.AwardInput{
		Kind:                 record.Kind,
		Elapsed:              record.Elapsed,
		Streak:               currentStreak,
		CompletedTodayBefore: daily.WorkSessions + daily.MicroSessions,
		Round:                record.Round,
		RoundsPerCycle:       record.RoundsPerCycle,
		StreakBonus:          c.cfg.StreakBonus,
		CycleBonus:           c.cfg.CycleBonus,
		KickoffBonus:         c.cfg.KickoffBonus,
	})
	record.XPAwarded = earned

	oldLevel := progress.Level
	updated := progress
	updated.TotalXP += earned
	updated.Level = xp.LevelForXP(updated.TotalXP)
	updated.CurrentStreak = currentStreak
	updated.LongestStreak = longest
	if focus {
		updated.TotalSessions++
		updated.TotalFocusMinutes += int(record.Elapsed / time.Minute)
		updated.LastSessionDate = today
	}

	snapshot := model.Snapshot{
		Level:         updated.Level,
		Streak:        updated.CurrentStreak,
		TotalSessions: updated.TotalSessions,
	}
	already, err := c.store.UnlockedKeys(ctx)
	if err != nil {
		return model.CompletionResult{}, fmt.Errorf("load unlocks: %w", err)
	}
	entries := unlock.NewUnlocks(snapshot, c.catalog, already)
	newUnlocks := make([]model.Unlock, 0, len(entries))
	for _, e := range entries {
		newUnlocks = append(newUnlocks, model.Unlock{
			UnlockKey:  e.UnlockKey,
			Name:       e.Name,
			UnlockedAt: record.EndedAt,
			// The starter theme and companion arrive equipped.
			Equipped: e.Key == "midnight" || e.Key == "sprout",
		})
	}

	dailyDelta := model.DailyStats{Date: today, XPEarned: earned}
	switch record.Kind {
	case model.KindWork:
		dailyDelta.WorkSessions = 1
	case model.KindMicro:
		dailyDelta.MicroSessions = 1
	default:
		dailyDelta.BreakSessions = 1
	}
	if focus {
		dailyDelta.FocusMinutes = int(record.Elapsed / time.Minute)
		dailyDelta.StreakQualified = true
	}

	id, err := c.store.CommitCompletion(ctx, record, dailyDelta, updated, newUnlocks)
	if err != nil {
		return model.CompletionResult{}, fmt.Errorf("commit session: %w", err)
	}
	record.ID = id

	return model.CompletionResult{
		Record:        record,
		XPEarned:      earned,
		Bonuses:       bonuses,
		TotalXP:       updated.TotalXP,
		OldLevel:      oldLevel,
		NewLevel:      updated.Level,
		LeveledUp:     updated.Level > oldLevel,
		NewTitle:      xp.TitleForLevel(updated.Level),
		Streak:        updated.CurrentStreak,
		LongestStreak: updated.LongestStreak,
		NewUnlocks:    newUnlocks,
	}, nil
}

// RecordAbort persists an abandoned session record. Nothing else
// changes: no XP, no streak, no progress mutation.
func (c *Coordinator) RecordAbort(ctx context.Context, record model.SessionRecord) (model.SessionRecord, error) {
	if record.Status != model.StatusAbandoned {
		return model.SessionRecord{}, fmt.Errorf("record status %q is not abandoned", record.Status)
	}
	record.XPAwarded = 0
	id, err := c.store.RecordAbort(ctx, record)
	if err != nil {
		return model.SessionRecord{}, fmt.Errorf("record abort: %w", err)
	}
	record.ID = id
	return record, nil
}

// NextAfter returns the session kind and work round that follow a
// finished session in the cycle rotation: work alternates with short
// breaks and the final round of the cycle ends in a long break.
func (c *Coordinator) NextAfter(kind model.Kind, round int) (model.Kind, int) {
	perCycle := c.cfg.RoundsPerCycle
	if perCycle <= 0 {
		perCycle = 4
	}
	if kind.IsFocus() {
		if round >= perCycle {
			return model.KindLongBreak, round
		}
		return model.KindShortBreak, round
	}
	if kind == model.KindLongBreak {
		return model.KindWork, 1
	}
	return model.KindWork, round + 1
}
