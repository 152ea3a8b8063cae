// Package streak derives daily streaks from completion history.
package streak

import "time"

// A day qualifies when at least one focus session completed that day.
// The streak is the run of consecutive qualifying days ending at today
// or yesterday: until today fully elapses, yesterday's streak still
// counts, so opening the app before the first session of the day never
// shows a reset. There is no "streak lost" signal anywhere; a broken
// streak simply restarts at 1 on the next qualifying day.

// Day truncates a timestamp to its local calendar day.
func Day(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// Compute returns the current streak given the qualifying-session
// dates and today's date. Dates may arrive in any order and with
// duplicates; only the calendar day matters.
func Compute(dates []time.Time, today time.Time) int {
	days := daySet(dates)
	if len(days) == 0 {
		return 0
	}
	anchor := Day(today)
	if _, ok := days[anchor]; !ok {
		// Grace day: no session yet today, yesterday's run still counts.
		anchor = anchor.AddDate(0, 0, -1)
		if _, ok := days[anchor]; !ok {
			return 0
		}
	}
	run := 0
	for {
		if _, ok := days[anchor]; !ok {
			return run
		}
		run++
		anchor = anchor.AddDate(0, 0, -1)
	}
}

// Longest returns the longest consecutive run anywhere in history.
func Longest(dates []time.Time) int {
	days := daySet(dates)
	longest := 0
	for day := range days {
		// Only count runs from their first day.
		if _, ok := days[day.AddDate(0, 0, -1)]; ok {
			continue
		}
		run := 0
		for {
			if _, ok := days[day]; !ok {
				break
			}
			run++
			day = day.AddDate(0, 0, 1)
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

func daySet(dates []time.Time) map[time.Time]struct{} {
	days := make(map[time.Time]struct{}, len(dates))
	for _, d := range dates {
		days[Day(d)] = struct{}{}
	}
	return days
}
