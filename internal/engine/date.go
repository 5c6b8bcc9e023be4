package engine

import "time"

// DateLayout is the calendar date format accepted at the engine boundary.
const DateLayout = "2006-01-02"

// Date is a calendar date in YYYY-MM-DD form.
type Date string

// ParseDate validates s against DateLayout and returns it as a Date.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", err
	}
	return Date(s), nil
}

// Time converts the date to a time.Time at midnight UTC. The zero time is
// returned for a malformed date; construction through ParseDate prevents that.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// String returns the YYYY-MM-DD representation.
func (d Date) String() string {
	return string(d)
}
