package nudge

import (
	"context"

	"github.com/brk3/habitkit/pkg/habit"
)

type mockClient struct {
	reminders map[string][]habit.Habit
	today     []habit.DailyStatus
	err       error

	reminderCalls []string
	todayCalls    int
}

func (f *mockClient) Reminders(ctx context.Context, hhmm string) ([]habit.Habit, error) {
	f.reminderCalls = append(f.reminderCalls, hhmm)
	return f.reminders[hhmm], f.err
}

func (f *mockClient) Today(ctx context.Context, date string) ([]habit.DailyStatus, error) {
	f.todayCalls++
	return f.today, f.err
}
