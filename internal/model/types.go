// Package model defines shared data structures.
package model

import "time"

// Kind identifies the type of a timed session.
type Kind string

const (
	KindWork       Kind = "work"
	KindShortBreak Kind = "short_break"
	KindLongBreak  Kind = "long_break"
	KindMicro      Kind = "micro"
)

// IsBreak reports whether the kind is a break.
func (k Kind) IsBreak() bool {
	return k == KindShortBreak || k == KindLongBreak
}

// IsFocus reports whether the kind counts as focused work.
func (k Kind) IsFocus() bool {
	return k == KindWork || k == KindMicro
}

// Status is the terminal outcome of a session.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// SessionRecord captures one finished session attempt. Records are
// append-only: once written they are never mutated or deleted.
type SessionRecord struct {
	ID             int64
	Kind           Kind
	Planned        time.Duration
	Elapsed        time.Duration
	StartedAt      time.Time
	EndedAt        time.Time
	Status         Status
	Round          int
	RoundsPerCycle int
	Extensions     int
	XPAwarded      int
}

// DailyStats aggregates completed sessions for one local calendar day.
// It is derivable by re-folding the day's SessionRecords; the store
// keeps it denormalized for cheap dashboard reads.
type DailyStats struct {
	Date            time.Time
	WorkSessions    int
	BreakSessions   int
	MicroSessions   int
	FocusMinutes    int
	XPEarned        int
	StreakQualified bool
}

// Sessions returns the total completed sessions for the day.
func (d DailyStats) Sessions() int {
	return d.WorkSessions + d.BreakSessions + d.MicroSessions
}

// UserProgress is the singleton cumulative state.
type UserProgress struct {
	TotalXP           int
	Level             int
	CurrentStreak     int
	LongestStreak     int
	TotalSessions     int
	TotalFocusMinutes int
	LastSessionDate   time.Time
	EquippedTheme     string
	EquippedCompanion string
	EquippedTitle     string
}

// UnlockCategory groups unlockable items.
type UnlockCategory string

const (
	CategoryTheme     UnlockCategory = "theme"
	CategoryCompanion UnlockCategory = "companion"
	CategoryTitle     UnlockCategory = "title"
)

// UnlockKey identifies one unlockable item.
type UnlockKey struct {
	Category UnlockCategory
	Key      string
}

// Unlock is a persisted earned item.
type Unlock struct {
	UnlockKey
	Name       string
	UnlockedAt time.Time
	Equipped   bool
}

// Snapshot is the progress view engines evaluate predicates against.
// For completion handling it reflects the post-update state, so one
// session can cross several thresholds at once.
type Snapshot struct {
	Level         int
	Streak        int
	TotalSessions int
}

// Bonus is one additive component of an XP award.
type Bonus struct {
	Name   string
	Amount int
}

// CompletionResult is returned to the host layer after a completed
// session is committed.
type CompletionResult struct {
	Record        SessionRecord
	XPEarned      int
	Bonuses       []Bonus
	TotalXP       int
	OldLevel      int
	NewLevel      int
	LeveledUp     bool
	NewTitle      string
	Streak        int
	LongestStreak int
	NewUnlocks    []Unlock
}

// TimerConfig is the immutable configuration handed to the core at
// session-start time.
type TimerConfig struct {
	WorkDuration       time.Duration
	ShortBreakDuration time.Duration
	LongBreakDuration  time.Duration
	RoundsPerCycle     int
	ExtendBy           time.Duration
	MicroMinutes       int

	StreakBonus  bool
	CycleBonus   bool
	KickoffBonus bool
}

// DefaultTimerConfig returns the classic pomodoro defaults.
func DefaultTimerConfig() TimerConfig {
	return TimerConfig{
		WorkDuration:       25 * time.Minute,
		ShortBreakDuration: 5 * time.Minute,
		LongBreakDuration:  15 * time.Minute,
		RoundsPerCycle:     4,
		ExtendBy:           5 * time.Minute,
		MicroMinutes:       10,
		StreakBonus:        true,
		CycleBonus:         true,
		KickoffBonus:       true,
	}
}

// Duration returns the configured planned duration for a kind.
func (c TimerConfig) Duration(kind Kind) time.Duration {
	switch kind {
	case KindShortBreak:
		return c.ShortBreakDuration
	case KindLongBreak:
		return c.LongBreakDuration
	case KindMicro:
		return time.Duration(c.MicroMinutes) * time.Minute
	default:
		return c.WorkDuration
	}
}

// StatsConfig defines filters for stats output.
type StatsConfig struct {
	Since *time.Time
	Last  int
}
