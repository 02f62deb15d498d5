package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBoundaries_FiscalQuarter(t *testing.T) {
	span, err := Boundaries(date(2025, time.May, 15), CadenceQuarterly, time.April, time.Monday)
	require.NoError(t, err)

	assert.Equal(t, date(2025, time.April, 1), span.Start)
	assert.Equal(t, date(2025, time.June, 30), span.End)
	assert.Equal(t, "Q1 2025", span.Name)
}

func TestBoundaries_FiscalYear(t *testing.T) {
	span, err := Boundaries(date(2025, time.May, 15), CadenceYearly, time.April, time.Monday)
	require.NoError(t, err)

	assert.Equal(t, date(2025, time.April, 1), span.Start)
	assert.Equal(t, date(2026, time.March, 31), span.End)
	assert.Equal(t, "FY 2025-26", span.Name)
}

func TestBoundaries_FiscalYearBeforeStartMonth(t *testing.T) {
	// February 2026 still belongs to FY 2025-26 when the year starts in April.
	span, err := Boundaries(date(2026, time.February, 10), CadenceYearly, time.April, time.Monday)
	require.NoError(t, err)

	assert.Equal(t, date(2025, time.April, 1), span.Start)
	assert.Equal(t, date(2026, time.March, 31), span.End)
	assert.Equal(t, "FY 2025-26", span.Name)
}

func TestBoundaries_HalfYearly(t *testing.T) {
	span, err := Boundaries(date(2025, time.November, 2), CadenceHalfYearly, time.April, time.Monday)
	require.NoError(t, err)

	assert.Equal(t, date(2025, time.October, 1), span.Start)
	assert.Equal(t, date(2026, time.March, 31), span.End)
	assert.Equal(t, "H2 2025", span.Name)
}

func TestBoundaries_Monthly(t *testing.T) {
	span, err := Boundaries(date(2025, time.February, 17), CadenceMonthly, time.April, time.Monday)
	require.NoError(t, err)

	assert.Equal(t, date(2025, time.February, 1), span.Start)
	assert.Equal(t, date(2025, time.February, 28), span.End)
	assert.Equal(t, "February 2025", span.Name)
}

func TestBoundaries_WeeklyRespectsWeekStart(t *testing.T) {
	// 2025-05-15 is a Thursday.
	ref := date(2025, time.May, 15)

	monday, err := Boundaries(ref, CadenceWeekly, time.April, time.Monday)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.May, 12), monday.Start)
	assert.Equal(t, date(2025, time.May, 18), monday.End)

	sunday, err := Boundaries(ref, CadenceWeekly, time.April, time.Sunday)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.May, 11), sunday.Start)
	assert.Equal(t, date(2025, time.May, 17), sunday.End)
}

func TestBoundaries_Daily(t *testing.T) {
	span, err := Boundaries(date(2025, time.May, 15), CadenceDaily, time.April, time.Monday)
	require.NoError(t, err)
	assert.Equal(t, span.Start, span.End)
	assert.Equal(t, "15 May 2025", span.Name)
}

func TestBoundaries_InvalidCadence(t *testing.T) {
	_, err := Boundaries(date(2025, time.May, 15), Cadence("fortnightly"), time.April, time.Monday)
	assert.ErrorIs(t, err, ErrInvalidCadence)
}

func TestBoundaries_Pure(t *testing.T) {
	ref := date(2025, time.August, 9)
	first, err := Boundaries(ref, CadenceQuarterly, time.April, time.Monday)
	require.NoError(t, err)
	second, err := Boundaries(ref, CadenceQuarterly, time.April, time.Monday)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNextSpan_ChainsWithoutGaps(t *testing.T) {
	span, err := Boundaries(date(2025, time.April, 1), CadenceQuarterly, time.April, time.Monday)
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		next, err := NextSpan(span, CadenceQuarterly, time.April, time.Monday)
		require.NoError(t, err)
		assert.Equal(t, span.End.AddDate(0, 0, 1), next.Start, "gap after %s", span.Name)
		span = next
	}
	assert.Equal(t, "Q1 2027", span.Name)
}

func TestPreviousSpan(t *testing.T) {
	span, err := Boundaries(date(2025, time.April, 1), CadenceQuarterly, time.April, time.Monday)
	require.NoError(t, err)

	prev, err := PreviousSpan(span, CadenceQuarterly, time.April, time.Monday)
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.January, 1), prev.Start)
	assert.Equal(t, date(2025, time.March, 31), prev.End)
	assert.Equal(t, "Q4 2024", prev.Name)
}

func TestMonthSpans_SplitsQuarter(t *testing.T) {
	quarter := Span{Start: date(2025, time.July, 1), End: date(2025, time.September, 30)}

	months := MonthSpans(quarter)
	require.Len(t, months, 3)
	assert.Equal(t, "July 2025", months[0].Name)
	assert.Equal(t, "August 2025", months[1].Name)
	assert.Equal(t, "September 2025", months[2].Name)
	assert.Equal(t, date(2025, time.September, 30), months[2].End)
}
