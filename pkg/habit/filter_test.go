package habit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func views() []HabitWithStats {
	archived := day(0)
	health := "health"
	desc := "Morning stretch routine"
	return []HabitWithStats{
		{Habit: Habit{ID: "1", Name: "Yoga", Frequency: FrequencyDaily, Order: 3, CategoryID: &health, Description: &desc, CreatedAt: day(2)}, CompletionRate: 40, Streak: Streak{Current: 2}},
		{Habit: Habit{ID: "2", Name: "guitar", Frequency: FrequencyWeekly, Order: 1, CreatedAt: day(0)}, CompletionRate: 90, Streak: Streak{Current: 7}},
		{Habit: Habit{ID: "3", Name: "Journal", Frequency: FrequencyDaily, Order: 2, ArchivedAt: &archived, CreatedAt: day(1)}, CompletionRate: 10},
	}
}

func ids(vs []HabitWithStats) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	assert.Equal(t, []string{"1", "2"}, ids(Filter(views(), Filters{})))
	assert.Equal(t, []string{"1", "2", "3"}, ids(Filter(views(), Filters{ShowArchived: true})))
	assert.Equal(t, []string{"1"}, ids(Filter(views(), Filters{CategoryID: "health"})))
	assert.Equal(t, []string{"2"}, ids(Filter(views(), Filters{Frequency: FrequencyWeekly})))
	assert.Equal(t, []string{"1"}, ids(Filter(views(), Filters{SearchQuery: "STRETCH"})))
	assert.Equal(t, []string{"2"}, ids(Filter(views(), Filters{SearchQuery: "gui"})))
}

func TestSort(t *testing.T) {
	tests := []struct {
		field, dir string
		want       []string
	}{
		{"", "", []string{"2", "3", "1"}},
		{"name", "asc", []string{"2", "3", "1"}},
		{"name", "desc", []string{"1", "3", "2"}},
		{"created_at", "asc", []string{"2", "3", "1"}},
		{"streak", "desc", []string{"2", "1", "3"}},
		{"completion_rate", "asc", []string{"3", "1", "2"}},
	}
	for _, tc := range tests {
		t.Run(tc.field+"/"+tc.dir, func(t *testing.T) {
			spec, err := ParseSortSpec(tc.field, tc.dir)
			require.NoError(t, err)
			in := views()
			assert.Equal(t, tc.want, ids(Sort(in, spec)))
			assert.Equal(t, "1", in[0].ID)
		})
	}
}

func TestParseSortSpec_Invalid(t *testing.T) {
	_, err := ParseSortSpec("colour", "asc")
	assert.Error(t, err)
	_, err = ParseSortSpec("name", "sideways")
	assert.Error(t, err)
}
