package i18n

import (
	"fmt"
	"time"
)

// unitAgo renders "1 <unit> ago" / "N <units> ago" through the locale
// bundle, using a dedicated message for the singular form since not every
// language pluralizes the same way.
func unitAgo(n int, oneID, oneDefault, manyID, manyDefault string) string {
	if n == 1 {
		return T(oneID, oneDefault)
	}
	return Tf(manyID, manyDefault, n)
}

// RelativeTime returns a human-readable relative time string (long form),
// e.g. "just now", "5 mins ago", "3 days ago".
func RelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return T("common.time.justNow", "just now")
	case d < time.Hour:
		return unitAgo(int(d.Minutes()),
			"common.time.oneMinAgo", "1 min ago",
			"common.time.minsAgo", "%d mins ago")
	case d < 24*time.Hour:
		return unitAgo(int(d.Hours()),
			"common.time.oneHourAgo", "1 hour ago",
			"common.time.hoursAgo", "%d hours ago")
	default:
		return unitAgo(int(d.Hours()/24),
			"common.time.oneDayAgo", "1 day ago",
			"common.time.daysAgo", "%d days ago")
	}
}

// RelativeTimeShort returns a compact relative time for TUI list rows:
// "today", "1d ago", "5d ago", "2mo ago", "1y ago". The day/month/year
// abbreviations are not localized; they are unit symbols, not words.
func RelativeTimeShort(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	const day = 24 * time.Hour
	switch {
	case d < day:
		return T("common.time.short.today", "today")
	case d < 2*day:
		return T("common.time.short.oneDayAgo", "1d ago")
	case d < 30*day:
		return fmt.Sprintf("%dd ago", int(d/day))
	case d < 365*day:
		return fmt.Sprintf("%dmo ago", int(d/(30*day)))
	default:
		return fmt.Sprintf("%dy ago", int(d/(365*day)))
	}
}
