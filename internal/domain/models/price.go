package models

import "time"

// DateLayout is the calendar-day format used by every provider and by the snapshot.
const DateLayout = "2006-01-02"

// MinHistoryRows is the row count below which no confident light is produced.
const MinHistoryRows = 220

// OHLCPoint is one daily bar. Only Close is required downstream.
type OHLCPoint struct {
	Date   time.Time `json:"date"` // UTC midnight
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// FlatPoint builds a bar where only the close is known.
func FlatPoint(day time.Time, close float64) OHLCPoint {
	return OHLCPoint{Date: day, Open: close, High: close, Low: close, Close: close}
}

// ProviderAttempt records one rung of the fallback chain that did not produce data.
type ProviderAttempt struct {
	Provider string `json:"provider"`
	Symbol   string `json:"symbol,omitempty"`
	Reason   string `json:"reason"`
}

// ProviderResult is produced exactly once per ticker per run.
type ProviderResult struct {
	Ticker        string
	Series        []OHLCPoint
	Provider      string // "fallback" when every provider declined
	LastObserved  time.Time
	RowCount      int
	ErrorReason   string // "all_sources_failed" on exhaustion
	MappedSymbol  string
	IsProxy       bool
	ProxyFor      string
	PriceAdjusted bool
	Attempts      []ProviderAttempt
}

// OK reports whether the series passes the acceptance predicate.
func (r ProviderResult) OK() bool {
	n := len(r.Series)
	return n > 0 && r.Series[n-1].Close != 0
}

// ParseDay parses a YYYY-MM-DD prefix into a UTC calendar day.
func ParseDay(s string) (time.Time, error) {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
