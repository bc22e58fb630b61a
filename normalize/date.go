package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const isoDateLayout = "2006-01-02"

// ParseDateLocal parses "YYYY-MM-DD" as a local calendar date. Years up to
// 1900, out of range months or days, and dates that would roll over (2023-02-30)
// are rejected.
func ParseDateLocal(text string) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(text), "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	y, errY := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	d, errD := strconv.Atoi(parts[2])
	if errY != nil || errM != nil || errD != nil {
		return time.Time{}, false
	}
	if y <= 1900 || m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, false
	}
	dt := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.Local)
	if dt.Year() != y || int(dt.Month()) != m || dt.Day() != d {
		return time.Time{}, false
	}
	return dt, true
}

// CoerceDate accepts a time.Time, a *time.Time or a string. Strings are read as
// "YYYY-MM-DD" first and as RFC 3339 timestamps otherwise.
func CoerceDate(input any) (time.Time, bool) {
	switch v := input.(type) {
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case string:
		if strings.Count(v, "-") == 2 && len(strings.TrimSpace(v)) <= len(isoDateLayout) {
			return ParseDateLocal(v)
		}
		dt, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
		if err != nil {
			return time.Time{}, false
		}
		return dt, true
	default:
		return time.Time{}, false
	}
}

func IsNotFuture(date time.Time) bool {
	return IsNotFutureAt(date, time.Now())
}

// IsNotFutureAt compares calendar days only; the time of day is ignored.
func IsNotFutureAt(date, now time.Time) bool {
	return !startOfDay(date).After(startOfDay(now.In(date.Location())))
}

func IsWithinYears(date time.Time, years int) bool {
	return IsWithinYearsAt(date, years, time.Now())
}

// IsWithinYearsAt reports whether date falls on or after the same calendar day
// years before now.
func IsWithinYearsAt(date time.Time, years int, now time.Time) bool {
	now = now.In(date.Location())
	cutoff := time.Date(now.Year()-years, now.Month(), now.Day(), 0, 0, 0, 0, date.Location())
	return !startOfDay(date).Before(cutoff)
}

// ToISODateStringLocal renders the calendar date of t in its own location.
func ToISODateStringLocal(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
