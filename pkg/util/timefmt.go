package util

import "time"

// TimeLayout shows the local zone so audit timestamps are unambiguous.
const TimeLayout = "2006-01-02 15:04:05 MST"

// FormatLocal renders t in the local zone, or "-" for the zero time.
func FormatLocal(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(time.Local).Format(TimeLayout)
}
