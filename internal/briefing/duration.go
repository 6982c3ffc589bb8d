package briefing

import (
	"fmt"
	"time"
)

// isoLayout matches the first 19 characters of an ISO-8601 timestamp, which
// is enough to strip any timezone offset the upstream feed appends.
const isoLayout = "2006-01-02T15:04:05"

// FormatDuration renders the elapsed time since an ISO-8601 timestamp as a
// human-readable duration like "3 days" or "2 months". Future timestamps
// render as "starting soon". Malformed or empty input yields an empty string
// rather than an error; a missing duration is not worth failing a briefing
// over.
func FormatDuration(isoTimestamp string, now time.Time) string {
	if len(isoTimestamp) < len(isoLayout) {
		return ""
	}

	start, err := time.Parse(isoLayout, isoTimestamp[:len(isoLayout)])
	if err != nil {
		return ""
	}

	minutes := now.Sub(start).Minutes()
	if minutes < 0 {
		return "starting soon"
	}
	if minutes < 60 {
		return plural(int(minutes), "minute")
	}
	hours := minutes / 60
	if hours < 24 {
		return plural(int(hours), "hour")
	}
	days := hours / 24
	if days < 30 {
		return plural(int(days), "day")
	}
	// Mean Gregorian month; close enough for display.
	months := days / 30.44
	if months < 12 {
		return plural(int(months), "month")
	}
	years := days / 365.25
	return fmt.Sprintf("%.1f years", years)
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
