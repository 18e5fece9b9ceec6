package format

import "time"

const (
	filetimeOffset = 116444736000000000 // FILETIME epoch to Unix epoch, in 100ns units
	filetimeUnit   = 100                // FILETIME ticks are 100ns
)

// FiletimeToTime converts a Windows FILETIME value to time.Time in UTC.
// Values at or before the Unix epoch collapse to the epoch.
func FiletimeToTime(v uint64) time.Time {
	if v <= filetimeOffset {
		return time.Unix(0, 0).UTC()
	}
	ns := int64((v - filetimeOffset) * filetimeUnit)
	return time.Unix(ns/int64(time.Second), ns%int64(time.Second)).UTC()
}
