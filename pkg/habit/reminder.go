package habit

import (
	"time"

	"github.com/brk3/habitkit/pkg/calendar"
)

// NeedsReminder selects the habits whose reminder fires at currentTime
// ("HH:mm") on now's day. The match is exact, so callers poll once a minute.
func NeedsReminder(habits []Habit, currentTime string, now time.Time) ([]Habit, error) {
	if _, _, err := calendar.ParseClock(currentTime); err != nil {
		return nil, err
	}
	if err := validateFrequencies(habits); err != nil {
		return nil, err
	}
	var out []Habit
	for _, h := range habits {
		if !h.ReminderEnabled || h.ReminderTime == nil || *h.ReminderTime != currentTime {
			continue
		}
		if h.IsArchived() || !IsDue(h, now) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}
