// Package recurring generates invoices from recurring schedules.
package recurring

import (
	"time"

	"github.com/craudioviz/invoicer/internal/models"
)

// NextRun advances a run date by one interval of the given frequency.
// Month-based frequencies move by calendar months and clamp to the last day
// of shorter target months, so Jan 31 plus one month is Feb 28 (or 29), not
// Mar 3. Unknown frequencies return the date unchanged; they are rejected at
// validation time and cannot reach the scheduler.
func NextRun(from time.Time, f models.Frequency) time.Time {
	switch f {
	case models.FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case models.FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	case models.FrequencyMonthly:
		return addMonths(from, 1)
	case models.FrequencyQuarterly:
		return addMonths(from, 3)
	case models.FrequencyYearly:
		return addMonths(from, 12)
	}
	return from
}

// addMonths adds calendar months with day-of-month clamping.
func addMonths(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	day := t.Day()
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in a month. Day zero of the following
// month is the last day of this one.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
