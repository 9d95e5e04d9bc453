package habit

import (
	"time"

	"github.com/brk3/habitkit/pkg/calendar"
)

// DailyStatuses builds the checklist for date: one entry per habit due that
// day, in input order. Streaks are computed over each habit's whole history
// at now. A streak can only be at risk when date is today.
func DailyStatuses(habits []Habit, completions []Completion, date, now time.Time) ([]DailyStatus, error) {
	if err := validateFrequencies(habits); err != nil {
		return nil, err
	}
	byHabit := ByHabit(completions)
	today := calendar.SameDay(now, date)

	out := make([]DailyStatus, 0, len(habits))
	for _, h := range habits {
		if !IsDue(h, date) {
			continue
		}
		history := byHabit[h.ID]
		st := DailyStatus{
			Habit:  h,
			Streak: CalculateStreak(h, history, now).Current,
		}
		if c, ok := CompletionOn(h.ID, history, date); ok {
			st.IsCompleted = true
			id := c.ID
			st.CompletionID = &id
		}
		st.IsStreakAtRisk = !st.IsCompleted && st.Streak > 0 && today
		out = append(out, st)
	}
	return out, nil
}
