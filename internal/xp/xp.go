// Package xp implements XP awards, the leveling curve, and titles.
package xp

import (
	"fmt"
	"math"
	"time"

	"pomoquest/internal/model"
)

// Award amounts. Breaks earn nothing: breaks are their own reward.
const (
	xp25Min = 100
	xp15Min = 65
	xp10Min = 40

	cycleBonus   = 150
	kickoffBonus = 50
	streakPerDay = 10
	streakCap    = 100
)

// Leveling curve: 200 XP from level 1 to 2, each subsequent level
// needs 15% more than the previous.
const (
	baseXPPerLevel = 200
	levelScaling   = 1.15
)

// AwardInput carries everything needed to score one completed session.
type AwardInput struct {
	Kind                 model.Kind
	Elapsed              time.Duration
	Streak               int
	CompletedTodayBefore int
	Round                int
	RoundsPerCycle       int

	StreakBonus  bool
	CycleBonus   bool
	KickoffBonus bool
}

// Award computes the XP for a completed session as a sum of
// independently toggleable bonuses, returned alongside the breakdown.
// Only completed sessions are scored; aborted sessions never reach
// this function.
func Award(in AwardInput) (int, []model.Bonus) {
	if in.Kind.IsBreak() {
		return 0, nil
	}

	base := baseForDuration(in.Elapsed)
	bonuses := []model.Bonus{{Name: "Session", Amount: base}}
	total := base

	if in.StreakBonus && in.Streak > 0 {
		amount := in.Streak * streakPerDay
		if amount > streakCap {
			amount = streakCap
		}
		bonuses = append(bonuses, model.Bonus{
			Name:   fmt.Sprintf("Streak x%d", in.Streak),
			Amount: amount,
		})
		total += amount
	}

	if in.KickoffBonus && in.CompletedTodayBefore == 0 {
		bonuses = append(bonuses, model.Bonus{Name: "Daily Kickoff", Amount: kickoffBonus})
		total += kickoffBonus
	}

	if in.CycleBonus && in.RoundsPerCycle > 0 && in.Round >= in.RoundsPerCycle {
		bonuses = append(bonuses, model.Bonus{Name: "Full Cycle!", Amount: cycleBonus})
		total += cycleBonus
	}

	return total, bonuses
}

// baseForDuration maps focus time to the base award. Micro sessions
// land in the lowest band, reduced but never zero, so low-energy days
// still progress.
func baseForDuration(elapsed time.Duration) int {
	minutes := int(elapsed / time.Minute)
	switch {
	case minutes >= 25:
		return xp25Min
	case minutes >= 15:
		return xp15Min
	default:
		return xp10Min
	}
}

// xpDelta is the XP needed to go from level to level+1; the single
// knob controlling the curve.
func xpDelta(level int) int {
	return int(math.Round(baseXPPerLevel * math.Pow(levelScaling, float64(level-1))))
}

// XPForLevel returns the cumulative XP required to reach a level.
// Level 1 starts at zero.
func XPForLevel(level int) int {
	total := 0
	for l := 1; l < level; l++ {
		total += xpDelta(l)
	}
	return total
}

// LevelForXP maps total XP to the current level. Pure and monotonic
// non-decreasing; no level-up state is kept anywhere else.
func LevelForXP(totalXP int) int {
	level := 1
	for XPForLevel(level+1) <= totalXP {
		level++
	}
	return level
}

// XPToNextLevel returns the XP still needed for the next level.
func XPToNextLevel(totalXP int) int {
	return XPForLevel(LevelForXP(totalXP)+1) - totalXP
}

// XPInCurrentLevel returns progress within the current level as
// (earned, needed).
func XPInCurrentLevel(totalXP int) (int, int) {
	level := LevelForXP(totalXP)
	floor := XPForLevel(level)
	ceiling := XPForLevel(level + 1)
	return totalXP - floor, ceiling - floor
}

// Ordered descending so the first match wins.
var levelTitles = []struct {
	threshold int
	title     string
}{
	{30, "Legendary Focuser"},
	{25, "Time Bender"},
	{20, "Pomodoro Master"},
	{15, "Deep Work Sage"},
	{10, "Flow State Warrior"},
	{5, "Concentration Adept"},
	{1, "Focus Apprentice"},
}

// TitleForLevel returns the title earned at a level.
func TitleForLevel(level int) string {
	for _, entry := range levelTitles {
		if level >= entry.threshold {
			return entry.title
		}
	}
	return "Focus Apprentice"
}
