// Package calendar holds the date arithmetic the habit engine is built on.
//
// Every function works in the location carried by its time.Time argument, so
// callers choose what "local time" means by converting with t.In(loc) first.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is a Monday-first day tag.
type Weekday string

const (
	Monday    Weekday = "mon"
	Tuesday   Weekday = "tue"
	Wednesday Weekday = "wed"
	Thursday  Weekday = "thu"
	Friday    Weekday = "fri"
	Saturday  Weekday = "sat"
	Sunday    Weekday = "sun"
)

// Weekdays lists every tag in week order, Sunday last.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayLabels = map[Weekday]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
	Sunday:    "Sunday",
}

func (w Weekday) Valid() bool {
	_, ok := weekdayLabels[w]
	return ok
}

// Label returns the full English name, e.g. "Monday".
func (w Weekday) Label() string {
	return weekdayLabels[w]
}

// Short returns the single letter used in compact week strips.
func (w Weekday) Short() string {
	if !w.Valid() {
		return ""
	}
	return strings.ToUpper(string(w[0]))
}

// Index is the zero-based position of w in Weekdays, or -1.
func (w Weekday) Index() int {
	for i, d := range Weekdays {
		if d == w {
			return i
		}
	}
	return -1
}

// ParseWeekday accepts a tag ("wed") or a full name ("Wednesday"), case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) >= 3 {
		if w := Weekday(s[:3]); w.Valid() && (len(s) == 3 || strings.EqualFold(s, w.Label())) {
			return w, nil
		}
	}
	return "", fmt.Errorf("unknown weekday %q", s)
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// DayOfWeek maps t onto a Monday-first week: Sunday is sun, the last tag.
func DayOfWeek(t time.Time) Weekday {
	return Weekdays[mondayOffset(t)]
}

func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// SameDay reports whether a and b fall on the same calendar date in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ya, ma, da := a.Date()
	yb, mb, db := b.Date()
	return ya == yb && ma == mb && da == db
}

func IsToday(t, now time.Time) bool {
	return SameDay(now, t)
}

func IsYesterday(t, now time.Time) bool {
	return SameDay(AddDays(now, -1), t)
}

// StartOfWeek returns midnight of the Monday on or before t.
func StartOfWeek(t time.Time) time.Time {
	return AddDays(StartOfDay(t), -mondayOffset(t))
}

func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// AddDays moves t by n calendar days, keeping the wall clock time.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysBetween counts the calendar days separating a and b, ignoring time of
// day. The result is never negative.
func DaysBetween(a, b time.Time) int {
	b = b.In(a.Location())
	ya, ma, da := a.Date()
	yb, mb, db := b.Date()
	// civil dates compared in UTC so DST transitions never skew the count
	ca := time.Date(ya, ma, da, 0, 0, 0, 0, time.UTC)
	cb := time.Date(yb, mb, db, 0, 0, 0, 0, time.UTC)
	n := int(cb.Sub(ca).Hours() / 24)
	if n < 0 {
		return -n
	}
	return n
}

const dateKeyLayout = "2006-01-02"

// DateKey formats t as a zero-padded YYYY-MM-DD string. Keys only round-trip
// through ParseDateKey for years 0000 to 9999.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// ParseDateKey parses a YYYY-MM-DD string into midnight of that day in loc.
// Impossible dates such as 2024-02-30 are rejected.
func ParseDateKey(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if len(s) != len(dateKeyLayout) {
		return time.Time{}, &MalformedDateKeyError{Value: s}
	}
	t, err := time.ParseInLocation(dateKeyLayout, s, loc)
	if err != nil {
		return time.Time{}, &MalformedDateKeyError{Value: s, Err: err}
	}
	return t, nil
}

// WeekDates returns the seven days of t's Monday-first week.
func WeekDates(t time.Time) []time.Time {
	return datesFrom(StartOfWeek(t), 7)
}

// MonthDates returns every day of t's month.
func MonthDates(t time.Time) []time.Time {
	return datesFrom(StartOfMonth(t), DaysInMonth(t))
}

func DaysInMonth(t time.Time) int {
	return StartOfMonth(t).AddDate(0, 1, -1).Day()
}

func datesFrom(start time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = AddDays(start, i)
	}
	return out
}

// RelativeDateString renders t as "Today", "Yesterday" or e.g. "Mon, Jan 2".
func RelativeDateString(t, now time.Time) string {
	switch {
	case IsToday(t, now):
		return "Today"
	case IsYesterday(t, now):
		return "Yesterday"
	default:
		return t.Format("Mon, Jan 2")
	}
}
