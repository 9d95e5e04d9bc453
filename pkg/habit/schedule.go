package habit

import (
	"fmt"
	"slices"
	"time"

	"github.com/brk3/habitkit/pkg/calendar"
)

// IsDue reports whether date counts toward h's cadence. Archived habits are
// never due, and a weekly or custom habit without target days is due on no
// day. An unknown frequency is treated as not due; the aggregators reject
// unarchived habits with an unknown frequency up front with a
// ConfigurationError.
func IsDue(h Habit, date time.Time) bool {
	if h.IsArchived() {
		return false
	}
	switch h.Frequency {
	case FrequencyDaily:
		return true
	case FrequencyWeekly, FrequencyCustom:
		return slices.Contains(h.TargetDays, calendar.DayOfWeek(date))
	default:
		return false
	}
}

// validateFrequencies skips archived habits; IsDue never reads their
// frequency.
func validateFrequencies(habits []Habit) error {
	for _, h := range habits {
		if h.IsArchived() {
			continue
		}
		if err := h.Frequency.Validate(); err != nil {
			return fmt.Errorf("habit %s: %w", h.ID, err)
		}
	}
	return nil
}
