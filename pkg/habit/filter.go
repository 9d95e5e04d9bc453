package habit

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

type Filters struct {
	CategoryID   string
	Frequency    Frequency
	ShowArchived bool
	SearchQuery  string
}

// Filter keeps the views matching every set field of f. Archived habits are
// dropped unless ShowArchived is set.
func Filter(views []HabitWithStats, f Filters) []HabitWithStats {
	q := strings.ToLower(strings.TrimSpace(f.SearchQuery))
	out := make([]HabitWithStats, 0, len(views))
	for _, v := range views {
		if v.IsArchived() && !f.ShowArchived {
			continue
		}
		if f.CategoryID != "" && (v.CategoryID == nil || *v.CategoryID != f.CategoryID) {
			continue
		}
		if f.Frequency != "" && v.Frequency != f.Frequency {
			continue
		}
		if q != "" && !matches(v.Habit, q) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func matches(h Habit, q string) bool {
	if strings.Contains(strings.ToLower(h.Name), q) {
		return true
	}
	return h.Description != nil && strings.Contains(strings.ToLower(*h.Description), q)
}

type SortField string

const (
	SortByName           SortField = "name"
	SortByCreatedAt      SortField = "created_at"
	SortByStreak         SortField = "streak"
	SortByCompletionRate SortField = "completion_rate"
	SortByOrder          SortField = "order"
)

type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

type SortSpec struct {
	Field     SortField
	Direction SortDirection
}

func ParseSortSpec(field, dir string) (SortSpec, error) {
	s := SortSpec{Field: SortField(field), Direction: SortDirection(dir)}
	if s.Field == "" {
		s.Field = SortByOrder
	}
	if s.Direction == "" {
		s.Direction = Ascending
	}
	switch s.Field {
	case SortByName, SortByCreatedAt, SortByStreak, SortByCompletionRate, SortByOrder:
	default:
		return SortSpec{}, fmt.Errorf("unknown sort field %q", field)
	}
	if s.Direction != Ascending && s.Direction != Descending {
		return SortSpec{}, fmt.Errorf("unknown sort direction %q", dir)
	}
	return s, nil
}

// Sort returns a stably sorted copy of views.
func Sort(views []HabitWithStats, s SortSpec) []HabitWithStats {
	out := slices.Clone(views)
	slices.SortStableFunc(out, func(a, b HabitWithStats) int {
		var c int
		switch s.Field {
		case SortByName:
			c = cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case SortByCreatedAt:
			c = a.CreatedAt.Compare(b.CreatedAt)
		case SortByStreak:
			c = cmp.Compare(a.Streak.Current, b.Streak.Current)
		case SortByCompletionRate:
			c = cmp.Compare(a.CompletionRate, b.CompletionRate)
		default:
			c = cmp.Compare(a.Order, b.Order)
		}
		if s.Direction == Descending {
			return -c
		}
		return c
	})
	return out
}
