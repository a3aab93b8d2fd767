package ledger

import (
	"fmt"
	"time"

	"github.com/Dan9191/loan-xtrack/internal/models"
)

// WeekTagFor returns the Friday on or after the calendar date of t in loc.
// The result is a UTC midnight date so it compares equal regardless of zone.
func WeekTagFor(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	delta := (int(time.Friday) - int(local.Weekday()) + 7) % 7
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, delta)
}

// ParseWeekTag parses a YYYY-MM-DD week tag and checks that it is a Friday
func ParseWeekTag(s string) (time.Time, error) {
	week, err := time.Parse(models.WeekTagLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid week tag %q: %w", s, err)
	}
	if week.Weekday() != time.Friday {
		return time.Time{}, fmt.Errorf("week tag %s is a %s, not a Friday", s, week.Weekday())
	}
	return week, nil
}

// FormatWeekTag renders a week tag as YYYY-MM-DD
func FormatWeekTag(week time.Time) string {
	return week.Format(models.WeekTagLayout)
}
