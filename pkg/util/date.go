package util

import "time"

const (
	dayLayout        = "2006-01-02"
	compactDayLayout = "20060102"
)

// FormatDay renders t as a UTC calendar day.
func FormatDay(t time.Time) string { return t.UTC().Format(dayLayout) }

// FormatCompactDay renders t as YYYYMMDD.
func FormatCompactDay(t time.Time) string { return t.UTC().Format(compactDayLayout) }

// LookbackRange returns the [from, to] calendar window ending at now.
func LookbackRange(now time.Time, days int) (time.Time, time.Time) {
	to := now.UTC()
	return to.AddDate(0, 0, -days), to
}
