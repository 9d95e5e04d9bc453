package habit

import (
	"time"

	"github.com/brk3/habitkit/pkg/calendar"
)

// CompletionOn returns the first completion of habitID falling on date's
// calendar day. Same-day duplicates are ignored.
func CompletionOn(habitID string, completions []Completion, date time.Time) (Completion, bool) {
	for _, c := range completions {
		if c.HabitID == habitID && calendar.SameDay(date, c.CompletedAt) {
			return c, true
		}
	}
	return Completion{}, false
}

func IsCompletedOn(habitID string, completions []Completion, date time.Time) bool {
	_, ok := CompletionOn(habitID, completions, date)
	return ok
}

// ByHabit buckets completions by habit id, preserving their relative order.
// Callers evaluating many habits or many dates use it to avoid rescanning the
// full history for every lookup.
func ByHabit(completions []Completion) map[string][]Completion {
	out := make(map[string][]Completion)
	for _, c := range completions {
		out[c.HabitID] = append(out[c.HabitID], c)
	}
	return out
}
