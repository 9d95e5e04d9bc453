package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDayOfWeek_MondayFirst(t *testing.T) {
	// 2024-01-01 was a Monday
	start := date(2024, time.January, 1)
	for i, want := range Weekdays {
		got := DayOfWeek(AddDays(start, i).Add(15 * time.Hour))
		assert.Equal(t, want, got, "day %d", i)
	}
	assert.Equal(t, Sunday, DayOfWeek(date(2024, time.January, 7)))
	assert.Equal(t, 6, Sunday.Index())
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    Weekday
		wantErr bool
	}{
		{"mon", Monday, false},
		{"Wednesday", Wednesday, false},
		{" SUN ", Sunday, false},
		{"sunny", "", true},
		{"xx", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseWeekday(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestStartAndEndOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, time.March, 5, 17, 42, 9, 123, loc)

	assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, loc), StartOfDay(ts))
	end := EndOfDay(ts)
	assert.Equal(t, 23, end.Hour())
	assert.Equal(t, 999999999, end.Nanosecond())
	assert.True(t, SameDay(ts, end))
}

func TestSameDay_UsesFirstArgumentLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	local := time.Date(2024, time.March, 5, 21, 0, 0, 0, loc)
	// 02:00 UTC on the 6th is still the 5th in UTC-5
	utc := time.Date(2024, time.March, 6, 2, 0, 0, 0, time.UTC)

	assert.True(t, SameDay(local, utc))
	assert.False(t, SameDay(utc, date(2024, time.March, 5)))
}

func TestIsTodayIsYesterday(t *testing.T) {
	now := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	assert.True(t, IsToday(now.Add(10*time.Hour), now))
	assert.True(t, IsYesterday(date(2024, time.February, 29), now))
	assert.False(t, IsYesterday(date(2024, time.February, 28), now))
}

func TestStartOfWeek(t *testing.T) {
	// Sunday belongs to the week that started six days earlier
	assert.Equal(t, date(2024, time.January, 1), StartOfWeek(time.Date(2024, time.January, 7, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, date(2024, time.January, 8), StartOfWeek(date(2024, time.January, 8)))
	assert.Equal(t, date(2024, time.February, 26), StartOfWeek(date(2024, time.March, 1)))
}

func TestStartOfMonthAndMonthDates(t *testing.T) {
	leap := time.Date(2024, time.February, 17, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, date(2024, time.February, 1), StartOfMonth(leap))

	days := MonthDates(leap)
	require.Len(t, days, 29)
	assert.Equal(t, date(2024, time.February, 1), days[0])
	assert.Equal(t, date(2024, time.February, 29), days[28])
	assert.Len(t, MonthDates(date(2023, time.February, 3)), 28)
}

func TestWeekDates(t *testing.T) {
	days := WeekDates(date(2024, time.January, 3))
	require.Len(t, days, 7)
	for i, d := range days {
		assert.Equal(t, Weekdays[i], DayOfWeek(d))
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, time.January, 1, 23, 59, 0, 0, time.UTC)
	b := time.Date(2024, time.January, 2, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(a, b))
	assert.Equal(t, 1, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a.Add(-time.Hour)))
	assert.Equal(t, 366, DaysBetween(date(2024, time.January, 1), date(2025, time.January, 1)))
}

func TestDaysBetween_AcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// clocks sprang forward on 2024-03-10
	a := time.Date(2024, time.March, 9, 12, 0, 0, 0, loc)
	b := time.Date(2024, time.March, 11, 0, 30, 0, 0, loc)
	assert.Equal(t, 2, DaysBetween(a, b))
}

func TestDateKeyRoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	start := time.Date(2023, time.December, 25, 22, 30, 0, 0, loc)
	for i := 0; i < 400; i += 7 {
		d := AddDays(start, i)
		parsed, err := ParseDateKey(DateKey(d), loc)
		require.NoError(t, err)
		assert.True(t, SameDay(d, parsed), "key %s", DateKey(d))
	}
	assert.Equal(t, "2024-03-05", DateKey(date(2024, time.March, 5)))
}

func TestDateKey_YearRange(t *testing.T) {
	last := date(9999, time.December, 31)
	parsed, err := ParseDateKey(DateKey(last), time.UTC)
	require.NoError(t, err)
	assert.True(t, SameDay(last, parsed))

	key := DateKey(date(10000, time.January, 2))
	assert.Equal(t, "10000-01-02", key)
	_, err = ParseDateKey(key, time.UTC)
	var target *MalformedDateKeyError
	assert.True(t, errors.As(err, &target), "got %v", err)
}

func TestParseDateKey_Malformed(t *testing.T) {
	for _, in := range []string{"", "2024-2-3", "2024-02-30", "20240203", "2024/02/03", "yesterday"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseDateKey(in, time.UTC)
			var target *MalformedDateKeyError
			assert.True(t, errors.As(err, &target), "got %v", err)
		})
	}
}

func TestRelativeDateString(t *testing.T) {
	now := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Today", RelativeDateString(now, now))
	assert.Equal(t, "Yesterday", RelativeDateString(AddDays(now, -1), now))
	assert.Equal(t, "Fri, Mar 1", RelativeDateString(date(2024, time.March, 1), now))
}
