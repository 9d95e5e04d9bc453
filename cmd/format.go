package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/brk3/habitkit/pkg/calendar"
	"github.com/brk3/habitkit/pkg/habit"
	"github.com/charmbracelet/lipgloss"
)

var (
	nameStyle  = lipgloss.NewStyle().Width(24)
	idStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	riskStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// schedule renders a habit's cadence, e.g. "daily" or "mon wed fri".
func schedule(h habit.Habit) string {
	if h.Frequency == habit.FrequencyDaily || len(h.TargetDays) == 0 {
		return string(h.Frequency)
	}
	days := make([]string, len(h.TargetDays))
	for i, d := range h.TargetDays {
		days[i] = string(d)
	}
	return strings.Join(days, " ")
}

func printHabits(w io.Writer, views []habit.HabitWithStats) {
	if len(views) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No habits yet. Add one with `habits add`."))
		return
	}
	for _, v := range views {
		mark := " "
		if v.CompletedToday {
			mark = doneStyle.Render("✓")
		}
		line := fmt.Sprintf("%s %s %-14s streak %-3d %3d%%",
			mark, nameStyle.Render(v.Name), schedule(v.Habit), v.Streak.Current, v.CompletionRate)
		if v.IsArchived() {
			line += mutedStyle.Render(" (archived)")
		}
		fmt.Fprintln(w, line, idStyle.Render(v.ID))
	}
}

func printToday(w io.Writer, statuses []habit.DailyStatus) {
	if len(statuses) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("Nothing due today."))
		return
	}
	done := 0
	for _, st := range statuses {
		mark := "[ ]"
		if st.IsCompleted {
			mark = doneStyle.Render("[✓]")
			done++
		}
		line := fmt.Sprintf("%s %s streak %d", mark, nameStyle.Render(st.Habit.Name), st.Streak)
		if st.IsStreakAtRisk {
			line += " " + riskStyle.Render("at risk")
		}
		if st.Habit.ReminderTime != nil {
			if t, err := calendar.FormatTime(*st.Habit.ReminderTime); err == nil {
				line += " " + mutedStyle.Render("@ "+t)
			}
		}
		fmt.Fprintln(w, line, idStyle.Render(st.Habit.ID))
	}
	fmt.Fprintf(w, "%d/%d done\n", done, len(statuses))
}

func printStatistics(w io.Writer, st habit.HabitStatistics) {
	fmt.Fprintf(w, "Total completions:  %d\n", st.TotalCompletions)
	fmt.Fprintf(w, "Current streak:     %d\n", st.CurrentStreak)
	fmt.Fprintf(w, "Longest streak:     %d\n", st.LongestStreak)
	fmt.Fprintf(w, "Completion rate:    %d%%\n", st.CompletionRate)
	fmt.Fprintf(w, "Average per week:   %.1f\n", st.AverageCompletionsPerWeek)
	if st.BestDay != nil {
		fmt.Fprintf(w, "Best day:           %s\n", st.BestDay.Label())
	}
	if st.BestTime != nil {
		fmt.Fprintf(w, "Best time:          %s\n", *st.BestTime)
	}
	if len(st.WeeklyCompletions) == len(calendar.Weekdays) {
		parts := make([]string, len(st.WeeklyCompletions))
		for i, n := range st.WeeklyCompletions {
			parts[i] = fmt.Sprintf("%s:%d", calendar.Weekdays[i].Short(), n)
		}
		fmt.Fprintf(w, "By weekday:         %s\n", strings.Join(parts, " "))
	}
}
