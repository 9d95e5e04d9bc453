// Package nudge polls a habits server for due reminders and streaks about
// to lapse, and hands them to a Notifier.
package nudge

import (
	"context"
	"fmt"
	"time"

	"github.com/brk3/habitkit/internal/logger"
	"github.com/brk3/habitkit/pkg/calendar"
	"github.com/brk3/habitkit/pkg/habit"
)

// Querier is the subset of the API client a nudge poll needs.
type Querier interface {
	Reminders(ctx context.Context, hhmm string) ([]habit.Habit, error)
	Today(ctx context.Context, date string) ([]habit.DailyStatus, error)
}

type Notifier interface {
	SendNudge(ctx context.Context, n Nudge) error
}

// Nudge is one message worth of reminders.
type Nudge struct {
	At        time.Time
	Reminders []habit.Habit
	AtRisk    []habit.DailyStatus
	// HoursLeft is the number of whole hours until the at-risk streaks lapse
	// at midnight.
	HoursLeft int
}

func (n Nudge) Empty() bool {
	return len(n.Reminders) == 0 && len(n.AtRisk) == 0
}

// StreaksAtRisk keeps the statuses whose running streak ends tonight unless
// the habit is completed.
func StreaksAtRisk(statuses []habit.DailyStatus) []habit.DailyStatus {
	var out []habit.DailyStatus
	for _, st := range statuses {
		if st.IsStreakAtRisk {
			out = append(out, st)
		}
	}
	return out
}

// Runner remembers which at-risk streaks it has already reported so a
// watching loop warns about each habit at most once per day.
type Runner struct {
	Querier  Querier
	Notifier Notifier
	Now      func() time.Time
	// RiskAfter ("HH:mm") holds back at-risk warnings until that time of
	// day. Empty means warn on every poll.
	RiskAfter string

	warned map[string]string
}

// Poll runs one check and sends a nudge if there is anything to say.
func (r *Runner) Poll(ctx context.Context) (Nudge, error) {
	now := r.Now()
	n := Nudge{At: now, HoursLeft: int(calendar.EndOfDay(now).Sub(now).Hours())}

	due, err := r.Querier.Reminders(ctx, calendar.Clock(now))
	if err != nil {
		return Nudge{}, fmt.Errorf("fetch reminders: %w", err)
	}
	n.Reminders = due

	if r.RiskAfter == "" || calendar.Clock(now) >= r.RiskAfter {
		statuses, err := r.Querier.Today(ctx, "")
		if err != nil {
			return Nudge{}, fmt.Errorf("fetch today: %w", err)
		}
		n.AtRisk = r.unwarned(StreaksAtRisk(statuses), calendar.DateKey(now))
	}

	if n.Empty() {
		logger.Debug("Nothing to nudge", "at", calendar.Clock(now))
		return n, nil
	}
	if err := r.Notifier.SendNudge(ctx, n); err != nil {
		return Nudge{}, fmt.Errorf("send nudge: %w", err)
	}
	for _, st := range n.AtRisk {
		r.warned[st.Habit.ID] = calendar.DateKey(now)
	}
	logger.Info("Sent nudge", "reminders", len(n.Reminders), "at_risk", len(n.AtRisk))
	return n, nil
}

func (r *Runner) unwarned(atRisk []habit.DailyStatus, day string) []habit.DailyStatus {
	if r.warned == nil {
		r.warned = make(map[string]string)
	}
	var out []habit.DailyStatus
	for _, st := range atRisk {
		if r.warned[st.Habit.ID] != day {
			out = append(out, st)
		}
	}
	return out
}

// Watch polls at the top of every minute until ctx is cancelled. Poll
// failures are logged and retried on the next tick.
func (r *Runner) Watch(ctx context.Context) error {
	for {
		if _, err := r.Poll(ctx); err != nil {
			logger.Warn("Nudge poll failed", "error", err)
		}
		now := r.Now()
		wait := now.Truncate(time.Minute).Add(time.Minute).Sub(now)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
