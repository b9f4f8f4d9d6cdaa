// Package timerange parses the relative and absolute time expressions used by
// dashboard queries and alert rules into absolute instants.
package timerange

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// relativeRegex matches expressions like "now-5m", "now-2h", "now-7d".
var relativeRegex = regexp.MustCompile(`^now-(\d+)([smhdw])$`)

// durationRegex matches durations like "30s", "15m", "24h", "7d".
var durationRegex = regexp.MustCompile(`^(\d+)(s|m|h|d|w)$`)

// absoluteFormats are tried in order when a value is neither "now" nor a
// relative expression.
var absoluteFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Resolve parses a from/to expression pair into absolute instants. It never
// fails: "now" and empty input resolve to the current instant, "now-<N><unit>"
// subtracts the offset, anything else is tried against the absolute formats
// and falls back to the current instant when unparsable. Alert evaluation must
// not be blocked by a malformed range.
func Resolve(from, to string) (time.Time, time.Time) {
	now := time.Now()
	return resolveOne(from, now), resolveOne(to, now)
}

func resolveOne(value string, now time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "now") {
		return now
	}

	if m := relativeRegex.FindStringSubmatch(strings.ToLower(value)); m != nil {
		n, _ := strconv.Atoi(m[1])
		return now.Add(-time.Duration(n) * unitDuration(m[2]))
	}

	for _, format := range absoluteFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t
		}
	}
	for _, format := range absoluteFormats {
		if t, err := time.ParseInLocation(format, value, time.Local); err == nil {
			return t
		}
	}
	return now
}

func unitDuration(unit string) time.Duration {
	switch unit {
	case "s":
		return time.Second
	case "m":
		return time.Minute
	case "h":
		return time.Hour
	case "d":
		return 24 * time.Hour
	case "w":
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// ParseDuration parses a duration string, extending Go's syntax with days and
// weeks ("7d", "2w"). Used for alert time windows and frequencies.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	m := durationRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid duration format: %s (examples: 30s, 5m, 1h, 7d)", s)
	}

	n, _ := strconv.Atoi(m[1])
	return time.Duration(n) * unitDuration(m[2]), nil
}

// EpochSeconds formats an instant the way the pull-metrics backend expects
// its start/end parameters.
func EpochSeconds(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// InterpolateSQL substitutes the $__from/$__to placeholder pair in raw
// backend-native query text with quoted UTC timestamp literals.
func InterpolateSQL(sql string, from, to time.Time) string {
	if sql == "" {
		return sql
	}
	fromLit := "'" + from.UTC().Format(time.RFC3339) + "'"
	toLit := "'" + to.UTC().Format(time.RFC3339) + "'"
	sql = strings.ReplaceAll(sql, "$__from", fromLit)
	return strings.ReplaceAll(sql, "$__to", toLit)
}
