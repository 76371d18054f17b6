package recency

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day
	Year  = 365 * Day
)

// months and years are fixed-length approximations, not calendar arithmetic
var units = map[string]time.Duration{
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    Day,
	"week":   Week,
	"month":  Month,
	"year":   Year,
}

var relativeRegex = regexp.MustCompile(`(?i)\b(\d+|an?)\s+(minute|hour|day|week|month|year)s?\s+ago\b`)

// ParseRelative reads the first "<n> <unit> ago" phrase in text and returns
// now minus that age. "a" and "an" count as one. Ages too large for a
// time.Duration saturate at the longest one, which stays in the past.
func ParseRelative(text string, now time.Time) (time.Time, bool) {
	groups := relativeRegex.FindStringSubmatch(text)
	if len(groups) < 3 {
		return time.Time{}, false
	}

	var n int64
	switch strings.ToLower(groups[1]) {
	case "a", "an":
		n = 1
	default:
		parsed, err := strconv.ParseInt(groups[1], 10, 32)
		if err != nil {
			return time.Time{}, false
		}
		n = parsed
	}

	unit := units[strings.ToLower(groups[2])]
	age := time.Duration(math.MaxInt64)
	if n <= int64(math.MaxInt64/unit) {
		age = time.Duration(n) * unit
	}
	return now.Add(-age), true
}

// ParseRelativePtr is ParseRelative returning nil for no hint.
func ParseRelativePtr(text string, now time.Time) *time.Time {
	t, ok := ParseRelative(text, now)
	if !ok {
		return nil
	}
	return &t
}
