package habit

import (
	"slices"
	"time"

	"github.com/brk3/habitkit/pkg/calendar"
)

// CalculateStreak reduces h's completion history to its current and longest
// streak, evaluated at now.
//
// A streak is a run of consecutive calendar days with at least one
// completion. Scheduled-off days of weekly or custom habits are not skipped:
// they break a run like any other empty day. The current streak is the final
// run, but only while its last day is today or yesterday; once it lapses the
// current streak is 0 and only Longest remembers it.
func CalculateStreak(h Habit, completions []Completion, now time.Time) Streak {
	s := Streak{HabitID: h.ID}

	loc := now.Location()
	seen := make(map[string]struct{})
	var days []time.Time
	var last *time.Time
	for _, c := range completions {
		if c.HabitID != h.ID {
			continue
		}
		if last == nil || c.CompletedAt.After(*last) {
			ts := c.CompletedAt
			last = &ts
		}
		day := calendar.StartOfDay(c.CompletedAt.In(loc))
		key := calendar.DateKey(day)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		days = append(days, day)
	}
	if len(days) == 0 {
		return s
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })

	run, start := 1, days[0]
	for i := 1; i < len(days); i++ {
		if calendar.DaysBetween(days[i-1], days[i]) == 1 {
			run++
			continue
		}
		s.Longest = max(s.Longest, run)
		run, start = 1, days[i]
	}
	s.Longest = max(s.Longest, run)
	s.LastCompletedAt = last

	final := days[len(days)-1]
	if calendar.IsToday(final, now) || calendar.IsYesterday(final, now) {
		s.Current = run
		s.StartDate = &start
	}
	return s
}
