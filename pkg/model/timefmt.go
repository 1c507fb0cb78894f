package model

import "time"

// The OIMS backend exchanges timestamps as ISO-8601 strings in local time,
// with no timezone offset. Slots split the window into a date and two
// clock times.
const (
	TimestampLayout = "2006-01-02T15:04:05"
	DateLayout      = "2006-01-02"
	ClockLayout     = "15:04:05"
)

func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.Local)
}

// CombineSlotTimes rebuilds a timestamp from a slot's (date, clock time)
// pair, e.g. ("2024-07-01", "14:00:00") -> 2024-07-01T14:00:00.
func CombineSlotTimes(date, clock string) (time.Time, error) {
	return time.ParseInLocation(DateLayout+"T"+ClockLayout, date+"T"+clock, time.Local)
}
