package habit

import (
	"fmt"
	"math"
	"time"

	"github.com/brk3/habitkit/pkg/calendar"
)

// RollingWindowDays is the trailing window, today included, used for
// completion rates.
const RollingWindowDays = 30

// WithStats decorates every habit, archived ones included, with its streak,
// today's completion flag, rolling completion rate and lifetime total.
func WithStats(habits []Habit, completions []Completion, now time.Time) ([]HabitWithStats, error) {
	if err := validateFrequencies(habits); err != nil {
		return nil, err
	}
	byHabit := ByHabit(completions)

	out := make([]HabitWithStats, 0, len(habits))
	for _, h := range habits {
		history := byHabit[h.ID]
		out = append(out, HabitWithStats{
			Habit:            h,
			Streak:           CalculateStreak(h, history, now),
			CompletedToday:   IsCompletedOn(h.ID, history, now),
			CompletionRate:   CompletionRate(h, history, now, RollingWindowDays),
			TotalCompletions: len(history),
		})
	}
	return out, nil
}

// CompletionRate is the rounded percentage of due days among the last days
// days (ending with now) that have a completion. It is 0 when no day in the
// window was due.
func CompletionRate(h Habit, completions []Completion, now time.Time, days int) int {
	possible, completed := 0, 0
	for i := 0; i < days; i++ {
		day := calendar.AddDays(now, -i)
		if !IsDue(h, day) {
			continue
		}
		possible++
		if IsCompletedOn(h.ID, completions, day) {
			completed++
		}
	}
	return percent(completed, possible)
}

func percent(n, d int) int {
	if d == 0 {
		return 0
	}
	return int(math.Round(100 * float64(n) / float64(d)))
}

// Statistics computes the detailed analytics view for a single habit.
func Statistics(h Habit, completions []Completion, now time.Time) (HabitStatistics, error) {
	if err := validateFrequencies([]Habit{h}); err != nil {
		return HabitStatistics{}, err
	}
	history := ByHabit(completions)[h.ID]
	streak := CalculateStreak(h, history, now)

	st := HabitStatistics{
		HabitID:            h.ID,
		TotalCompletions:   len(history),
		CurrentStreak:      streak.Current,
		LongestStreak:      streak.Longest,
		CompletionRate:     CompletionRate(h, history, now, RollingWindowDays),
		WeeklyCompletions:  make([]int, len(calendar.Weekdays)),
		MonthlyCompletions: make(map[string]int),
	}

	// backfilled completions may predate the habit
	since := h.CreatedAt
	for _, c := range history {
		if c.CompletedAt.Before(since) {
			since = c.CompletedAt
		}
	}
	weeks := float64(calendar.DaysBetween(since, now)+1) / 7
	if weeks < 1 {
		weeks = 1
	}
	st.AverageCompletionsPerWeek = math.Round(float64(len(history))/weeks*100) / 100

	loc := now.Location()
	weekStart := calendar.StartOfWeek(now)
	monthStart := calendar.StartOfMonth(now)
	var byDay [7]int
	var byHour [24]int
	for _, c := range history {
		at := c.CompletedAt.In(loc)
		byDay[calendar.DayOfWeek(at).Index()]++
		byHour[at.Hour()]++

		if !at.Before(weekStart) && calendar.DaysBetween(weekStart, at) < 7 {
			st.WeeklyCompletions[calendar.DayOfWeek(at).Index()]++
		}
		if calendar.SameDay(monthStart, calendar.StartOfMonth(at)) {
			st.MonthlyCompletions[calendar.DateKey(at)]++
		}
	}

	if i := argmax(byDay[:]); i >= 0 {
		d := calendar.Weekdays[i]
		st.BestDay = &d
	}
	if i := argmax(byHour[:]); i >= 0 {
		t := fmt.Sprintf("%02d:00", i)
		st.BestTime = &t
	}
	return st, nil
}

// argmax returns the first index holding the largest positive count, or -1.
func argmax(counts []int) int {
	best, idx := 0, -1
	for i, n := range counts {
		if n > best {
			best, idx = n, i
		}
	}
	return idx
}

// SummarizeWeek totals due and completed habit-days over date's Monday-first week.
func SummarizeWeek(habits []Habit, completions []Completion, date time.Time) (WeekSummary, error) {
	if err := validateFrequencies(habits); err != nil {
		return WeekSummary{}, err
	}
	days := calendar.WeekDates(date)
	sum := WeekSummary{
		StartDate:      days[0],
		EndDate:        calendar.EndOfDay(days[len(days)-1]),
		HabitBreakdown: make(map[string]int),
	}
	byHabit := ByHabit(completions)
	for _, h := range habits {
		history := byHabit[h.ID]
		for _, day := range days {
			if !IsDue(h, day) {
				continue
			}
			sum.TotalPossible++
			if IsCompletedOn(h.ID, history, day) {
				sum.TotalCompletions++
				sum.HabitBreakdown[h.ID]++
			}
		}
	}
	sum.CompletionRate = percent(sum.TotalCompletions, sum.TotalPossible)
	return sum, nil
}

// CalendarMonth reports, for every day of date's month, which habits were
// completed and how many were due.
func CalendarMonth(habits []Habit, completions []Completion, date time.Time) ([]CalendarDay, error) {
	if err := validateFrequencies(habits); err != nil {
		return nil, err
	}
	byHabit := ByHabit(completions)
	days := calendar.MonthDates(date)
	out := make([]CalendarDay, 0, len(days))
	for _, day := range days {
		cd := CalendarDay{Date: day, CompletedHabits: []string{}}
		dueDone := 0
		for _, h := range habits {
			done := IsCompletedOn(h.ID, byHabit[h.ID], day)
			if done {
				cd.CompletedHabits = append(cd.CompletedHabits, h.ID)
			}
			if IsDue(h, day) {
				cd.TotalHabits++
				if done {
					dueDone++
				}
			}
		}
		cd.CompletionRate = percent(dueDone, cd.TotalHabits)
		out = append(out, cd)
	}
	return out, nil
}
