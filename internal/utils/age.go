package utils

import (
	"fmt"
	"time"
)

// Generates a rounded, human readable age from a duration. Used for
// the "updated x ago" column on account listings.
func RoundedAge(duration time.Duration) string {
	seconds := duration.Seconds()

	minute := 60.0
	hour := 60 * minute
	day := 24 * hour
	week := 7 * day
	month := 30 * day
	year := 12 * month

	switch {
	case seconds/year >= 1:
		return text(seconds/year, "yr", "yrs")
	case seconds/month >= 1:
		return text(seconds/month, "mo", "mo")
	case seconds/week >= 1:
		return text(seconds/week, "wk", "wks")
	case seconds/day >= 1:
		return text(seconds/day, "d", "d")
	case seconds/hour >= 1:
		return text(seconds/hour, "h", "h")
	case seconds/minute >= 1:
		return text(seconds/minute, "m", "m")
	}

	return text(seconds, "s", "s")
}

func text(value float64, singular string, plural string) string {
	suffix := singular
	if value >= 2 {
		suffix = plural
	}
	return fmt.Sprintf("%d %s", int(value), suffix)
}
