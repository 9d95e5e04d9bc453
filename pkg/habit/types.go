package habit

import (
	"time"

	"github.com/brk3/habitkit/pkg/calendar"
)

type Weekday = calendar.Weekday

type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

// Validate rejects frequency tags the scheduler does not know.
func (f Frequency) Validate() error {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyCustom:
		return nil
	}
	return &ConfigurationError{Field: "frequency", Value: string(f)}
}

type Habit struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     *string    `json:"description,omitempty"`
	Icon            string     `json:"icon"`
	Color           string     `json:"color"`
	Frequency       Frequency  `json:"frequency"`
	TargetDays      []Weekday  `json:"target_days,omitempty"`
	TargetCount     *int       `json:"target_count,omitempty"`
	ReminderTime    *string    `json:"reminder_time,omitempty"`
	ReminderEnabled bool       `json:"reminder_enabled"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty"`
	CategoryID      *string    `json:"category_id,omitempty"`
	Order           int64      `json:"order"`
}

func (h Habit) IsArchived() bool {
	return h.ArchivedAt != nil
}

// Completion marks a habit as done at a point in time. HabitID is a weak
// reference: completions may outlive their habit.
type Completion struct {
	ID          string    `json:"id"`
	HabitID     string    `json:"habit_id"`
	CompletedAt time.Time `json:"completed_at"`
	Note        *string   `json:"note,omitempty"`
	Value       *float64  `json:"value,omitempty"`
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
	Order int64  `json:"order"`
}

// Streak is derived from a habit's completion history on every query.
type Streak struct {
	HabitID         string     `json:"habit_id"`
	Current         int        `json:"current_streak"`
	Longest         int        `json:"longest_streak"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
	StartDate       *time.Time `json:"streak_start_date,omitempty"`
}

type DailyStatus struct {
	Habit          Habit   `json:"habit"`
	IsCompleted    bool    `json:"is_completed"`
	CompletionID   *string `json:"completion_id,omitempty"`
	Streak         int     `json:"streak"`
	IsStreakAtRisk bool    `json:"is_streak_at_risk"`
}

// HabitWithStats flattens the habit's own fields alongside its statistics.
type HabitWithStats struct {
	Habit
	Streak           Streak `json:"streak"`
	CompletedToday   bool   `json:"completed_today"`
	CompletionRate   int    `json:"completion_rate"`
	TotalCompletions int    `json:"total_completions"`
}

type CreateInput struct {
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	Icon            string    `json:"icon"`
	Color           string    `json:"color"`
	Frequency       Frequency `json:"frequency"`
	TargetDays      []Weekday `json:"target_days,omitempty"`
	TargetCount     *int      `json:"target_count,omitempty"`
	ReminderTime    *string   `json:"reminder_time,omitempty"`
	ReminderEnabled *bool     `json:"reminder_enabled,omitempty"`
	CategoryID      *string   `json:"category_id,omitempty"`
}

// UpdateInput carries a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name            *string    `json:"name,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Icon            *string    `json:"icon,omitempty"`
	Color           *string    `json:"color,omitempty"`
	Frequency       *Frequency `json:"frequency,omitempty"`
	TargetDays      []Weekday  `json:"target_days,omitempty"`
	TargetCount     *int       `json:"target_count,omitempty"`
	ReminderTime    *string    `json:"reminder_time,omitempty"`
	ReminderEnabled *bool      `json:"reminder_enabled,omitempty"`
	CategoryID      *string    `json:"category_id,omitempty"`
}

type HabitStatistics struct {
	HabitID                   string         `json:"habit_id"`
	TotalCompletions          int            `json:"total_completions"`
	CurrentStreak             int            `json:"current_streak"`
	LongestStreak             int            `json:"longest_streak"`
	CompletionRate            int            `json:"completion_rate"`
	AverageCompletionsPerWeek float64        `json:"average_completions_per_week"`
	BestDay                   *Weekday       `json:"best_day"`
	BestTime                  *string        `json:"best_time"`
	WeeklyCompletions         []int          `json:"weekly_completions"`
	MonthlyCompletions        map[string]int `json:"monthly_completions"`
}

type WeekSummary struct {
	StartDate        time.Time      `json:"start_date"`
	EndDate          time.Time      `json:"end_date"`
	TotalCompletions int            `json:"total_completions"`
	TotalPossible    int            `json:"total_possible"`
	CompletionRate   int            `json:"completion_rate"`
	HabitBreakdown   map[string]int `json:"habit_breakdown"`
}

type CalendarDay struct {
	Date            time.Time `json:"date"`
	CompletedHabits []string  `json:"completed_habits"`
	TotalHabits     int       `json:"total_habits"`
	CompletionRate  int       `json:"completion_rate"`
}
