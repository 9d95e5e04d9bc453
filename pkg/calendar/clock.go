package calendar

import (
	"fmt"
	"time"
)

// ParseClock splits a 24-hour "HH:mm" string into hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, &MalformedTimeError{Value: s}
	}
	hour, ok := twoDigits(s[0:2])
	if !ok || hour > 23 {
		return 0, 0, &MalformedTimeError{Value: s}
	}
	minute, ok = twoDigits(s[3:5])
	if !ok || minute > 59 {
		return 0, 0, &MalformedTimeError{Value: s}
	}
	return hour, minute, nil
}

func twoDigits(s string) (int, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// FormatTime converts "HH:mm" to a 12-hour display string: "00:05" is
// "12:05 AM" and "12:30" is "12:30 PM".
func FormatTime(hhmm string) (string, error) {
	hour, minute, err := ParseClock(hhmm)
	if err != nil {
		return "", err
	}
	period := "AM"
	if hour >= 12 {
		period = "PM"
	}
	display := hour % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:%02d %s", display, minute, period), nil
}

// Clock renders t's wall clock as "HH:mm", the format reminders are polled with.
func Clock(t time.Time) string {
	return t.Format("15:04")
}
