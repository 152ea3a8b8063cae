// Package stats contains statistics calculations and reporting.
package stats

import (
	"math"
	"strings"

	"pomoquest/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Summary aggregates a range of daily stats.
type Summary struct {
	Days                 int
	ActiveDays           int
	Sessions             int
	FocusMinutes         int
	XPEarned             int
	BestDayFocus         int
	AvgFocusPerActiveDay float64
}

// Summarize folds per-day aggregates into range totals.
func Summarize(days []model.DailyStats) Summary {
	s := Summary{Days: len(days)}
	for _, d := range days {
		s.Sessions += d.Sessions()
		s.FocusMinutes += d.FocusMinutes
		s.XPEarned += d.XPEarned
		if d.FocusMinutes > s.BestDayFocus {
			s.BestDayFocus = d.FocusMinutes
		}
		if d.Sessions() > 0 {
			s.ActiveDays++
		}
	}
	if s.ActiveDays > 0 {
		s.AvgFocusPerActiveDay = float64(s.FocusMinutes) / float64(s.ActiveDays)
	}
	return s
}

// FocusSeries returns the focus minutes per day, in input order.
func FocusSeries(days []model.DailyStats) []float64 {
	out := make([]float64, len(days))
	for i, d := range days {
		out[i] = float64(d.FocusMinutes)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}
