package history

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout of the date query parameter.
const DateLayout = "2006-01-02"

// Filter selects chunks with From <= created_at < To.
type Filter struct {
	From time.Time
	To   time.Time
}

// Day returns the filter for the calendar day containing t in t's location.
func Day(t time.Time) Filter {
	y, m, d := t.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return Filter{From: from, To: from.AddDate(0, 0, 1)}
}

// ParseDay parses a YYYY-MM-DD date in loc.
func ParseDay(date string, loc *time.Location) (Filter, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return Filter{}, fmt.Errorf("history: invalid date %q: %w", date, err)
	}
	return Day(t), nil
}

// LastDays returns the filter covering the n days before now.
func LastDays(n int, now time.Time) Filter {
	return Filter{From: now.AddDate(0, 0, -n), To: now.Add(time.Millisecond)}
}

// ParsePeriod parses a period such as "7d" relative to now.
func ParsePeriod(period string, now time.Time) (Filter, error) {
	p := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(period)), "d")
	n, err := strconv.Atoi(p)
	if err != nil || n <= 0 {
		return Filter{}, fmt.Errorf("history: invalid period %q", period)
	}
	return LastDays(n, now), nil
}
