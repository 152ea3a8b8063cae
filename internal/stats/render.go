package stats

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"pomoquest/internal/model"
	"pomoquest/internal/xp"
)

const terminalWidthBackup = 80

// RenderSummary prints the progress header, range summary, per-day
// table, and a focus-minutes sparkline.
func RenderSummary(w io.Writer, report Report) error {
	p := report.Progress
	earned, needed := xp.XPInCurrentLevel(p.TotalXP)
	lines := []string{
		fmt.Sprintf("Level %d — %s", p.Level, xp.TitleForLevel(p.Level)),
		fmt.Sprintf("XP: %d (%d/%d into this level)", p.TotalXP, earned, needed),
	}
	if p.CurrentStreak > 0 {
		lines = append(lines, fmt.Sprintf("Streak: %d day(s), longest %d", p.CurrentStreak, p.LongestStreak))
	}
	lines = append(lines,
		fmt.Sprintf("Sessions: %d, focus time: %s", p.TotalSessions, formatMinutes(p.TotalFocusMinutes)),
		"")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	if len(report.Days) == 0 {
		_, err := fmt.Fprintln(w, "No sessions recorded yet — the first one starts your story.")
		return err
	}

	s := report.Summary
	if _, err := fmt.Fprintf(w, "Last %d day(s): %d session(s), %s focused, %d XP\n",
		s.Days, s.Sessions, formatMinutes(s.FocusMinutes), s.XPEarned); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Best day: %s, average per active day: %s\n\n",
		formatMinutes(s.BestDayFocus), formatMinutes(int(s.AvgFocusPerActiveDay))); err != nil {
		return err
	}

	series := FocusSeries(report.Days)
	if width := terminalWidth(); len(series) > width {
		series = series[len(series)-width:]
	}
	if _, err := fmt.Fprintf(w, "Focus minutes: %s\n\n", Sparkline(series)); err != nil {
		return err
	}

	return renderDailyTable(w, report.Days)
}

// RenderHistory prints recent session records, newest first.
func RenderHistory(w io.Writer, sessions []model.SessionRecord) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions recorded yet.")
		return err
	}
	headers := []string{"When", "Kind", "Planned", "Elapsed", "Status", "XP"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.EndedAt.Format("2006-01-02 15:04"),
			string(s.Kind),
			formatDuration(s.Planned),
			formatDuration(s.Elapsed),
			string(s.Status),
			fmt.Sprintf("%d", s.XPAwarded),
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{2: true, 3: true, 5: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func renderDailyTable(w io.Writer, days []model.DailyStats) error {
	headers := []string{"Date", "Work", "Micro", "Breaks", "Focus", "XP"}
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{
			d.Date.Format("2006-01-02"),
			fmt.Sprintf("%d", d.WorkSessions),
			fmt.Sprintf("%d", d.MicroSessions),
			fmt.Sprintf("%d", d.BreakSessions),
			formatMinutes(d.FocusMinutes),
			fmt.Sprintf("%d", d.XPEarned),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatMinutes(minutes int) string {
	if minutes >= 60 {
		return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

func formatDuration(d time.Duration) string {
	return formatMinutes(int(d / time.Minute))
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}
