package calendar

import "fmt"

// MalformedTimeError reports a time-of-day string that is not a valid 24-hour "HH:mm".
type MalformedTimeError struct {
	Value string
}

func (e *MalformedTimeError) Error() string {
	return fmt.Sprintf("malformed time %q: want HH:mm", e.Value)
}

// MalformedDateKeyError reports a date key that is not a real YYYY-MM-DD date.
type MalformedDateKeyError struct {
	Value string
	Err   error
}

func (e *MalformedDateKeyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed date key %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("malformed date key %q: want YYYY-MM-DD", e.Value)
}

func (e *MalformedDateKeyError) Unwrap() error {
	return e.Err
}
