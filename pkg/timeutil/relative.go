package timeutil

import (
	"fmt"
	"time"
)

// Relative renders the elapsed time between ts and now as the largest
// applicable unit, truncated: "5sec ago", "2min ago", "3hr ago", "4d ago",
// "2mo ago", "1yr ago". Months are 30 days and years 12 months, matching the
// badge ages shown in the appraisal lists. A timestamp in the future (clock
// skew) is clamped to "0sec ago".
func Relative(ts, now time.Time) string {
	seconds := int64(now.Sub(ts) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		return fmt.Sprintf("%dsec ago", seconds)
	}

	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dmin ago", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dhr ago", hours)
	}

	days := hours / 24
	if days < 30 {
		return fmt.Sprintf("%dd ago", days)
	}

	months := days / 30
	if months < 12 {
		return fmt.Sprintf("%dmo ago", months)
	}

	return fmt.Sprintf("%dyr ago", months/12)
}

// RelativeISO parses an ISO-8601 timestamp and renders it with Relative.
// Unparseable input yields the empty string rather than an error; a missing
// or malformed timestamp is a display no-op, not a fault.
func RelativeISO(raw string, now time.Time) string {
	if raw == "" {
		return ""
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return ""
	}
	return Relative(ts, now)
}
