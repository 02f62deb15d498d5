package domain

import "time"

// OffsetKind selects how a task's due date is derived from its period.
type OffsetKind string

const (
	// OffsetDays adds N days to the period end.
	OffsetDays OffsetKind = "days"
	// OffsetMonths adds N months to the period end.
	OffsetMonths OffsetKind = "months"
	// OffsetDayOfMonth picks day N of the month that begins MonthsAfter
	// months after the period ends (default: the month right after).
	OffsetDayOfMonth OffsetKind = "day_of_month"
)

// fallbackDueDays applies when a template carries no usable offset rule.
const fallbackDueDays = 10

// DueRule is the due-date computation rule of a task template, always
// anchored to the period end unless an explicit anchor is configured.
type DueRule struct {
	Cadence     Cadence
	OffsetKind  OffsetKind
	OffsetValue int
	MonthsAfter int // day_of_month only; 0 means the month right after the period

	// ExactDate is a single fixed due date configured on the template.
	ExactDate *time.Time

	// AnchorMonth/AnchorDay pin yearly/half-yearly/quarterly templates to a
	// precise month+day, clamped to the last valid day of that month.
	AnchorMonth time.Month
	AnchorDay   int

	// Weekday anchors weekly templates to the first occurrence of the named
	// weekday on/after the period start.
	Weekday *time.Weekday

	// Overrides maps a period end date (formatted 2006-01-02) to an explicit
	// due date, taking precedence over every other rule.
	Overrides map[string]time.Time
}

// ResolveDueDate computes the due date of a task rule inside span, or nil
// when the rule's cadence does not apply to a period of that length (a
// yearly rule evaluated against a monthly sub-period).
//
// Resolution priority, first match wins:
//  1. per-period-end override map
//  2. exact due date
//  3. month+day anchor, clamped
//  4. weekday anchor
//  5. offset from the period end (days / months / day-of-month)
//  6. period end + 10 days
func ResolveDueDate(rule DueRule, span Span) *time.Time {
	if !appliesTo(rule.Cadence, span) {
		return nil
	}

	if len(rule.Overrides) > 0 {
		if due, ok := rule.Overrides[span.End.Format("2006-01-02")]; ok {
			d := DateOf(due)
			return &d
		}
	}

	if rule.ExactDate != nil {
		d := DateOf(*rule.ExactDate)
		return &d
	}

	if rule.AnchorMonth >= time.January && rule.AnchorMonth <= time.December && rule.AnchorDay > 0 {
		due := monthDayOnOrAfter(span.Start, rule.AnchorMonth, rule.AnchorDay)
		return &due
	}

	if rule.Weekday != nil {
		ahead := (int(*rule.Weekday) - int(span.Start.Weekday()) + 7) % 7
		due := span.Start.AddDate(0, 0, ahead)
		return &due
	}

	switch rule.OffsetKind {
	case OffsetDays:
		due := span.End.AddDate(0, 0, rule.OffsetValue)
		return &due
	case OffsetMonths:
		due := span.End.AddDate(0, rule.OffsetValue, 0)
		return &due
	case OffsetDayOfMonth:
		monthsAfter := rule.MonthsAfter
		if monthsAfter <= 0 {
			monthsAfter = 1
		}
		base := time.Date(span.End.Year(), span.End.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, monthsAfter, 0)
		due := clampToMonth(base, rule.OffsetValue)
		return &due
	}

	due := span.End.AddDate(0, 0, fallbackDueDays)
	return &due
}

// appliesTo reports whether a rule cadence fits a period of span's length.
// A rule is inapplicable when its cadence is coarser than the span.
func appliesTo(cadence Cadence, span Span) bool {
	if cadence == "" {
		return true
	}
	ruleMonths := cadence.Months()
	if ruleMonths == 0 {
		// daily/weekly rules fit any span
		return true
	}
	spanDays := int(span.End.Sub(span.Start).Hours()/24) + 1
	// 28 days is the shortest month; a one-day tolerance is irrelevant here
	// because cadences differ by whole months.
	return ruleMonths*28 <= spanDays
}

// monthDayOnOrAfter returns day/month in from's year, rolling into the next
// year when that date precedes from, with the day clamped to the month.
func monthDayOnOrAfter(from time.Time, month time.Month, day int) time.Time {
	candidate := clampToMonth(time.Date(from.Year(), month, 1, 0, 0, 0, 0, time.UTC), day)
	if candidate.Before(from) {
		candidate = clampToMonth(time.Date(from.Year()+1, month, 1, 0, 0, 0, 0, time.UTC), day)
	}
	return candidate
}

// clampToMonth returns the day-th date of firstOfMonth's month, clamped to
// the last valid day (Feb 30 becomes Feb 28/29).
func clampToMonth(firstOfMonth time.Time, day int) time.Time {
	if day < 1 {
		day = 1
	}
	last := firstOfMonth.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return time.Date(firstOfMonth.Year(), firstOfMonth.Month(), day, 0, 0, 0, 0, time.UTC)
}
