package tui

import (
	"strings"
	"testing"
	"time"

	"pomoquest/internal/model"
)

func TestFormatClock(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{25 * time.Minute, "25:00"},
		{90 * time.Second, "01:30"},
		{time.Second, "00:01"},
		{0, "00:00"},
		{-time.Second, "00:00"},
	}
	for _, c := range cases {
		if got := formatClock(c.d); got != c.want {
			t.Fatalf("formatClock(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestKindLabel(t *testing.T) {
	cases := []struct {
		kind model.Kind
		want string
	}{
		{model.KindWork, "Focus"},
		{model.KindShortBreak, "Short break"},
		{model.KindLongBreak, "Long break"},
		{model.KindMicro, "Micro focus"},
	}
	for _, c := range cases {
		if got := kindLabel(c.kind); got != c.want {
			t.Fatalf("kindLabel(%s) = %q, want %q", c.kind, got, c.want)
		}
	}
}

func TestBuildToastWorkSession(t *testing.T) {
	result := model.CompletionResult{
		Record:   model.SessionRecord{Kind: model.KindWork},
		XPEarned: 160,
		Bonuses: []model.Bonus{
			{Name: "Session", Amount: 100},
			{Name: "Streak x1", Amount: 10},
			{Name: "Daily Kickoff", Amount: 50},
		},
		LeveledUp: true,
		NewLevel:  2,
		NewTitle:  "Focus Apprentice",
		NewUnlocks: []model.Unlock{
			{UnlockKey: model.UnlockKey{Category: model.CategoryTheme, Key: "midnight"}, Name: "Midnight"},
		},
	}
	lines := buildToast(result)
	joined := strings.Join(lines, "\n")
	for _, want := range []string{
		"Focus session complete!",
		"+160 XP",
		"Session +100",
		"Daily Kickoff +50",
		"Level up! Level 2",
		"Unlocked: Midnight (theme)",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("toast should contain %q, got:\n%s", want, joined)
		}
	}
}

func TestBuildToastBreakStaysPositive(t *testing.T) {
	result := model.CompletionResult{
		Record: model.SessionRecord{Kind: model.KindShortBreak},
	}
	lines := buildToast(result)
	if len(lines) != 1 {
		t.Fatalf("break toast = %v, want a single line", lines)
	}
	if strings.Contains(lines[0], "XP") {
		t.Fatalf("break toast should not mention XP, got %q", lines[0])
	}
}
