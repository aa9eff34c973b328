// Package dates provides the calendar-day and week-boundary arithmetic the
// task views are built on. All keys are local-time "YYYY-MM-DD" strings,
// zero-padded so lexicographic order matches calendar order.
package dates

import (
	"fmt"
	"time"

	"github.com/teamtrack/core/internal/domain/entities"
)

const DayKeyLayout = "2006-01-02"

// DayKey returns the canonical day key for t in its own location.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// ParseDayKey parses a canonical day key back into a midnight local time.
func ParseDayKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DayKeyLayout, key, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", entities.ErrInvalidDayKey, key)
	}
	return t, nil
}

// WeekStart returns the Monday of the week containing t, truncated to
// midnight. Sunday belongs to the preceding week, so it goes back six days.
func WeekStart(t time.Time) time.Time {
	back := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -back)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

// WeekEnd returns the Sunday of the week containing t, truncated to midnight.
func WeekEnd(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, 6)
}

// WeekRange returns the day keys of the Monday and Sunday bounding the week
// containing t.
func WeekRange(t time.Time) (startKey, endKey string) {
	return DayKey(WeekStart(t)), DayKey(WeekEnd(t))
}

// AddMonths shifts t by n calendar months, preserving the day of month where
// possible (Go normalizes overflow, e.g. Jan 31 + 1 month = Mar 2/3).
func AddMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// FormatHuman renders a date for display, e.g. "Mon, Jan 2 2006".
func FormatHuman(t time.Time) string {
	return t.Format("Mon, Jan 2 2006")
}

// FormatWeekRange renders the span of the week containing t, e.g.
// "Jan 1 – Jan 7" or "Jan 29 – Feb 4" across a month boundary.
func FormatWeekRange(t time.Time) string {
	start, end := WeekStart(t), WeekEnd(t)
	if start.Month() == end.Month() {
		return fmt.Sprintf("%s %d – %d", start.Month().String()[:3], start.Day(), end.Day())
	}
	return fmt.Sprintf("%s %d – %s %d", start.Month().String()[:3], start.Day(), end.Month().String()[:3], end.Day())
}
