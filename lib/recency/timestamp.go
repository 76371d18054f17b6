package recency

import (
	"regexp"
	"strings"
	"time"
)

var looseRegex = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[ T](\d{2}:\d{2}(?::\d{2})?)`)

// ParseTimestamp accepts RFC 3339 first, then a looser "date[ T]time"
// prefix read as UTC. Anything else is unknown.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}

	groups := looseRegex.FindStringSubmatch(value)
	if len(groups) < 3 {
		return time.Time{}, false
	}
	clock := groups[2]
	if len(clock) == len("15:04") {
		clock += ":00"
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", groups[1]+" "+clock, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
