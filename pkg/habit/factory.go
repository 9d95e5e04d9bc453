package habit

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brk3/habitkit/pkg/calendar"
	"github.com/brk3/habitkit/pkg/ident"
)

const (
	MaxNameLength = 50
	MaxNoteLength = 1024
)

// Factory stamps new records with ids, sort orders and timestamps.
type Factory struct {
	NewID     func() string
	NextOrder func() int64
	Now       func() time.Time
}

// DefaultFactory uses UUIDv7 ids and a process-local order sequence seeded
// from the wall clock.
func DefaultFactory() Factory {
	return NewFactory(ident.NewSequence(0))
}

// NewFactory uses seq for habit sort orders. Servers seed seq with the
// largest order already stored.
func NewFactory(seq *ident.Sequence) Factory {
	return Factory{
		NewID:     ident.New,
		NextOrder: seq.Next,
		Now:       time.Now,
	}
}

// NewHabit validates in and builds a habit from it. The returned habit does
// not share slices or pointers with in.
func (f Factory) NewHabit(in CreateInput) (Habit, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := ValidateInput(in); err != nil {
		return Habit{}, err
	}
	now := f.Now()
	h := Habit{
		ID:           f.NewID(),
		Name:         in.Name,
		Description:  cloneTrimmed(in.Description),
		Icon:         in.Icon,
		Color:        in.Color,
		Frequency:    in.Frequency,
		TargetDays:   slices.Clone(in.TargetDays),
		TargetCount:  clonePtr(in.TargetCount),
		ReminderTime: clonePtr(in.ReminderTime),
		CreatedAt:    now,
		UpdatedAt:    now,
		CategoryID:   clonePtr(in.CategoryID),
		Order:        f.NextOrder(),
	}
	if in.ReminderEnabled != nil {
		h.ReminderEnabled = *in.ReminderEnabled
	}
	return h, nil
}

func (f Factory) NewCompletion(habitID string, note *string, value *float64) Completion {
	return Completion{
		ID:          f.NewID(),
		HabitID:     habitID,
		CompletedAt: f.Now(),
		Note:        clonePtr(note),
		Value:       clonePtr(value),
	}
}

func (f Factory) NewCategory(name, color, icon string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return Category{}, &ValidationError{Field: "name", Reason: "must be 1-50 characters"}
	}
	return Category{
		ID:    f.NewID(),
		Name:  name,
		Color: color,
		Icon:  icon,
		Order: f.NextOrder(),
	}, nil
}

// ValidateInput applies the same rules the habit form enforces.
func ValidateInput(in CreateInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return &ValidationError{Field: "name", Reason: "must be 1-50 characters"}
	}
	return validateSchedule(in.Frequency, in.TargetDays, in.ReminderTime, in.TargetCount)
}

func validateSchedule(freq Frequency, days []Weekday, reminder *string, count *int) error {
	if err := freq.Validate(); err != nil {
		return err
	}
	for _, d := range days {
		if !d.Valid() {
			return &ValidationError{Field: "target_days", Reason: "unknown weekday " + string(d)}
		}
	}
	if freq != FrequencyDaily && len(days) == 0 {
		return &ValidationError{Field: "target_days", Reason: "select at least one day"}
	}
	if count != nil && *count < 1 {
		return &ValidationError{Field: "target_count", Reason: "must be positive"}
	}
	if reminder != nil {
		if _, _, err := calendar.ParseClock(*reminder); err != nil {
			return err
		}
	}
	return nil
}

// ApplyUpdate returns a copy of h with the non-nil fields of in applied.
func ApplyUpdate(h Habit, in UpdateInput, now time.Time) (Habit, error) {
	out := h
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
			return Habit{}, &ValidationError{Field: "name", Reason: "must be 1-50 characters"}
		}
		out.Name = name
	}
	if in.Description != nil {
		out.Description = cloneTrimmed(in.Description)
	}
	if in.Icon != nil {
		out.Icon = *in.Icon
	}
	if in.Color != nil {
		out.Color = *in.Color
	}
	if in.Frequency != nil {
		out.Frequency = *in.Frequency
	}
	if in.TargetDays != nil {
		out.TargetDays = slices.Clone(in.TargetDays)
	} else {
		out.TargetDays = slices.Clone(h.TargetDays)
	}
	if in.TargetCount != nil {
		out.TargetCount = clonePtr(in.TargetCount)
	}
	if in.ReminderTime != nil {
		out.ReminderTime = clonePtr(in.ReminderTime)
	}
	if in.ReminderEnabled != nil {
		out.ReminderEnabled = *in.ReminderEnabled
	}
	if in.CategoryID != nil {
		out.CategoryID = clonePtr(in.CategoryID)
	}
	if err := validateSchedule(out.Frequency, out.TargetDays, out.ReminderTime, out.TargetCount); err != nil {
		return Habit{}, err
	}
	out.UpdatedAt = now
	return out, nil
}

func Archive(h Habit, now time.Time) Habit {
	if h.ArchivedAt == nil {
		h.ArchivedAt = &now
		h.UpdatedAt = now
	}
	return h
}

func Unarchive(h Habit, now time.Time) Habit {
	if h.ArchivedAt != nil {
		h.ArchivedAt = nil
		h.UpdatedAt = now
	}
	return h
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTrimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
