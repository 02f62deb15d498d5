package domain

import (
	"errors"
	"fmt"
	"time"
)

// Cadence is the recurrence granularity of a work or task template.
type Cadence string

const (
	CadenceDaily      Cadence = "daily"
	CadenceWeekly     Cadence = "weekly"
	CadenceMonthly    Cadence = "monthly"
	CadenceQuarterly  Cadence = "quarterly"
	CadenceHalfYearly Cadence = "half_yearly"
	CadenceYearly     Cadence = "yearly"
)

// DefaultFiscalYearStartMonth anchors quarterly/half-yearly/yearly periods
// when a work does not configure one.
const DefaultFiscalYearStartMonth = time.April

var ErrInvalidCadence = errors.New("invalid_cadence")

func (c Cadence) Valid() bool {
	switch c {
	case CadenceDaily, CadenceWeekly, CadenceMonthly, CadenceQuarterly, CadenceHalfYearly, CadenceYearly:
		return true
	}
	return false
}

// Months returns the cadence length in whole months, 0 for sub-monthly cadences.
func (c Cadence) Months() int {
	switch c {
	case CadenceMonthly:
		return 1
	case CadenceQuarterly:
		return 3
	case CadenceHalfYearly:
		return 6
	case CadenceYearly:
		return 12
	}
	return 0
}

// Span is one period occurrence: inclusive [Start, End] dates at UTC midnight
// plus a display name.
type Span struct {
	Start time.Time
	End   time.Time
	Name  string
}

func (s Span) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(s.Start) && !d.After(s.End)
}

// DateOf truncates t to a UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Boundaries returns the period enclosing ref for the given cadence.
// Quarterly, half-yearly and yearly periods are anchored to the fiscal-year
// start month, not calendar January. The function is pure: identical inputs
// always yield identical boundaries.
func Boundaries(ref time.Time, cadence Cadence, fyStart time.Month, weekStart time.Weekday) (Span, error) {
	date := DateOf(ref)
	if fyStart < time.January || fyStart > time.December {
		fyStart = DefaultFiscalYearStartMonth
	}

	switch cadence {
	case CadenceDaily:
		return Span{Start: date, End: date, Name: date.Format("2 Jan 2006")}, nil

	case CadenceWeekly:
		back := (int(date.Weekday()) - int(weekStart) + 7) % 7
		start := date.AddDate(0, 0, -back)
		return Span{
			Start: start,
			End:   start.AddDate(0, 0, 6),
			Name:  "Week of " + start.Format("2 Jan 2006"),
		}, nil

	case CadenceMonthly:
		start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Span{
			Start: start,
			End:   start.AddDate(0, 1, -1),
			Name:  start.Format("January 2006"),
		}, nil

	case CadenceQuarterly:
		anchor, monthsSince := fiscalAnchor(date, fyStart)
		idx := monthsSince / 3
		start := anchor.AddDate(0, 3*idx, 0)
		return Span{
			Start: start,
			End:   start.AddDate(0, 3, -1),
			Name:  fmt.Sprintf("Q%d %d", idx+1, anchor.Year()),
		}, nil

	case CadenceHalfYearly:
		anchor, monthsSince := fiscalAnchor(date, fyStart)
		idx := monthsSince / 6
		start := anchor.AddDate(0, 6*idx, 0)
		return Span{
			Start: start,
			End:   start.AddDate(0, 6, -1),
			Name:  fmt.Sprintf("H%d %d", idx+1, anchor.Year()),
		}, nil

	case CadenceYearly:
		anchor, _ := fiscalAnchor(date, fyStart)
		return Span{
			Start: anchor,
			End:   anchor.AddDate(0, 12, -1),
			Name:  fmt.Sprintf("FY %d-%02d", anchor.Year(), (anchor.Year()+1)%100),
		}, nil
	}

	return Span{}, ErrInvalidCadence
}

// fiscalAnchor returns the first day of the fiscal year containing date and
// the number of whole months between that anchor and date.
func fiscalAnchor(date time.Time, fyStart time.Month) (time.Time, int) {
	year := date.Year()
	if date.Month() < fyStart {
		year--
	}
	anchor := time.Date(year, fyStart, 1, 0, 0, 0, 0, time.UTC)
	monthsSince := (int(date.Month()) - int(fyStart) + 12) % 12
	return anchor, monthsSince
}

// NextSpan returns the period immediately following span.
func NextSpan(span Span, cadence Cadence, fyStart time.Month, weekStart time.Weekday) (Span, error) {
	return Boundaries(span.End.AddDate(0, 0, 1), cadence, fyStart, weekStart)
}

// PreviousSpan returns the period immediately preceding span.
func PreviousSpan(span Span, cadence Cadence, fyStart time.Month, weekStart time.Weekday) (Span, error) {
	return Boundaries(span.Start.AddDate(0, 0, -1), cadence, fyStart, weekStart)
}

// MonthSpans splits span into its constituent calendar months. Used to nest
// monthly task templates inside quarterly/half-yearly/yearly periods.
func MonthSpans(span Span) []Span {
	var months []Span
	cursor := time.Date(span.Start.Year(), span.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(span.End) {
		month, _ := Boundaries(cursor, CadenceMonthly, DefaultFiscalYearStartMonth, time.Monday)
		months = append(months, month)
		cursor = cursor.AddDate(0, 1, 0)
	}
	return months
}
