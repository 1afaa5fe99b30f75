package dues_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/dues-engine/dues"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(y int, m time.Month, d int) dues.Date {
	return dues.NewDate(y, m, d)
}

func datePtr(y int, m time.Month, d int) *dues.Date {
	v := dues.NewDate(y, m, d)
	return &v
}

func intPtr(n int) *int { return &n }

func monthly(start, end *dues.Date, day int) dues.RecurrenceDefinition {
	return dues.RecurrenceDefinition{
		Kind:         dues.KindMonthly,
		Amount:       decimal.NewFromInt(50000),
		StartDate:    start,
		EndDate:      end,
		RecurringDay: intPtr(day),
	}
}

func keys(periods []dues.PeriodDescriptor) []string {
	out := make([]string, len(periods))
	for i, p := range periods {
		out[i] = p.Key
	}
	return out
}

// =============================================================================
// MONTHLY
// =============================================================================

func TestEnumerate_Monthly_FullYear(t *testing.T) {
	// GIVEN: Monthly dues for 2025, due on the 10th
	// WHEN: Enumerating as of mid-year
	// THEN: Twelve periods, each due on the 10th of its month

	r := dues.NewReconciler()
	def := monthly(datePtr(2025, time.January, 1), datePtr(2025, time.December, 31), 10)

	periods, err := r.Enumerate(def, date(2025, time.June, 15))
	require.NoError(t, err)
	require.Len(t, periods, 12)

	assert.Equal(t, "2025-01", periods[0].Key)
	assert.Equal(t, "2025-12", periods[11].Key)
	assert.Equal(t, "Januari 2025", periods[0].Label)
	assert.Equal(t, "Mar", periods[2].ShortLabel)

	for i, want := range []dues.Date{date(2025, time.January, 10), date(2025, time.February, 10), date(2025, time.March, 10)} {
		require.NotNil(t, periods[i].DueDate)
		assert.Equal(t, want, *periods[i].DueDate)
	}
	for _, p := range periods {
		assert.Equal(t, dues.StatusUnpaid, p.Status)
		assert.Nil(t, p.Record)
	}
}

func TestEnumerate_Monthly_OpenEndedStopsAtAsOfMonth(t *testing.T) {
	// GIVEN: Monthly dues starting mid-January with no end date
	// WHEN: Enumerating as of 5 March
	// THEN: January through March, the start month included

	r := dues.NewReconciler()
	def := monthly(datePtr(2025, time.January, 15), nil, 10)

	periods, err := r.Enumerate(def, date(2025, time.March, 5))
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01", "2025-02", "2025-03"}, keys(periods))
}

func TestEnumerate_Monthly_DefaultsStartToCreationMonth(t *testing.T) {
	r := dues.NewReconciler()
	def := monthly(nil, nil, 1)
	def.CreatedAt = date(2025, time.February, 20)

	periods, err := r.Enumerate(def, date(2025, time.April, 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-02", "2025-03", "2025-04"}, keys(periods))
}

func TestEnumerate_Monthly_ClampsRecurringDay(t *testing.T) {
	// GIVEN: Dues due on the 31st
	// WHEN: Enumerating February
	// THEN: Due date is the last day of February

	r := dues.NewReconciler()
	def := monthly(datePtr(2025, time.February, 1), datePtr(2025, time.February, 28), 31)

	periods, err := r.Enumerate(def, date(2025, time.February, 1))
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, date(2025, time.February, 28), *periods[0].DueDate)
}

// =============================================================================
// WEEKLY
// =============================================================================

func TestEnumerate_Weekly_ThreeWeeks(t *testing.T) {
	// GIVEN: Weekly dues from Wed 1 Jan to Tue 21 Jan 2025, due Mondays
	// WHEN: Enumerating
	// THEN: ISO weeks 1-3, each due on its Monday

	r := dues.NewReconciler()
	def := dues.RecurrenceDefinition{
		Kind:         dues.KindWeekly,
		Amount:       decimal.NewFromInt(10000),
		StartDate:    datePtr(2025, time.January, 1),
		EndDate:      datePtr(2025, time.January, 21),
		RecurringDay: intPtr(1),
	}

	periods, err := r.Enumerate(def, date(2025, time.January, 21))
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01", "2025-02", "2025-03"}, keys(periods))

	assert.Equal(t, date(2024, time.December, 30), *periods[0].DueDate)
	assert.Equal(t, date(2025, time.January, 6), *periods[1].DueDate)
	assert.Equal(t, date(2025, time.January, 13), *periods[2].DueDate)

	assert.Equal(t, "Minggu ke-1 2025", periods[0].Label)
	assert.Equal(t, "W03", periods[2].ShortLabel)
	assert.Equal(t, date(2025, time.January, 5), periods[0].End)
}

// =============================================================================
// YEARLY AND ONCE
// =============================================================================

func TestEnumerate_Yearly_ClampsLeapDay(t *testing.T) {
	r := dues.NewReconciler()
	def := dues.RecurrenceDefinition{
		Kind:      dues.KindYearly,
		Amount:    decimal.NewFromInt(100000),
		StartDate: datePtr(2020, time.June, 1),
		EndDate:   datePtr(2025, time.December, 31),
		DueDate:   datePtr(2024, time.February, 29),
	}

	periods, err := r.Enumerate(def, date(2025, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"2020", "2021", "2022", "2023", "2024", "2025"}, keys(periods))
	assert.Equal(t, date(2021, time.February, 28), *periods[1].DueDate)
	assert.Equal(t, date(2024, time.February, 29), *periods[4].DueDate)
}

func TestEnumerate_Once_SingleDescriptor(t *testing.T) {
	r := dues.NewReconciler()
	def := dues.RecurrenceDefinition{
		Kind:    dues.KindOnce,
		Amount:  decimal.NewFromInt(250000),
		DueDate: datePtr(2025, time.May, 1),
	}

	periods, err := r.Enumerate(def, date(2030, time.January, 1))
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, dues.OnceKey, periods[0].Key)
	assert.Equal(t, "Status", periods[0].ShortLabel)
	assert.Equal(t, date(2025, time.May, 1), *periods[0].DueDate)
}

// =============================================================================
// BOUNDS
// =============================================================================

func TestEnumerate_CapsAtMaxPeriods(t *testing.T) {
	// GIVEN: Weekly dues running for 25 years
	// WHEN: Enumerating with the default and a custom cap
	// THEN: The list is cut at exactly the cap

	def := dues.RecurrenceDefinition{Kind: dues.KindWeekly, StartDate: datePtr(2000, time.January, 3)}
	asOf := date(2025, time.January, 1)

	periods, err := dues.NewReconciler().Enumerate(def, asOf)
	require.NoError(t, err)
	assert.Len(t, periods, dues.DefaultMaxPeriods)

	periods, err = dues.Reconciler{MaxPeriods: 10}.Enumerate(def, asOf)
	require.NoError(t, err)
	assert.Len(t, periods, 10)
	assert.Equal(t, "2000-01", periods[0].Key)
}

func TestEnumerate_InvertedWindow_NoPeriods(t *testing.T) {
	r := dues.NewReconciler()
	def := monthly(datePtr(2025, time.June, 1), datePtr(2025, time.January, 1), 1)

	periods, err := r.Enumerate(def, date(2025, time.March, 1))
	require.NoError(t, err)
	assert.Empty(t, periods)
}

func TestEnumerate_Idempotent(t *testing.T) {
	r := dues.NewReconciler()
	def := monthly(datePtr(2024, time.November, 1), nil, 5)
	asOf := date(2025, time.March, 1)

	first, err := r.Enumerate(def, asOf)
	require.NoError(t, err)
	second, err := r.Enumerate(def, asOf)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// =============================================================================
// UNSUPPORTED KINDS
// =============================================================================

func TestEnumerate_DailyRejected(t *testing.T) {
	// GIVEN: A daily definition and an unknown kind
	// WHEN: Enumerating with default settings
	// THEN: Both fail with ErrUnsupportedPeriodKind naming the kind

	r := dues.NewReconciler()
	for _, kind := range []dues.PeriodKind{dues.KindDaily, "hourly"} {
		_, err := r.Enumerate(dues.RecurrenceDefinition{Kind: kind}, date(2025, time.January, 1))
		require.ErrorIs(t, err, dues.ErrUnsupportedPeriodKind)

		var defErr *dues.DefinitionError
		require.ErrorAs(t, err, &defErr)
		assert.Equal(t, kind, defErr.Kind)
		assert.True(t, dues.IsClientError(err))
	}
}

func TestEnumerate_DailyLegacyFallback(t *testing.T) {
	r := dues.Reconciler{LegacyDailyFallback: true}
	def := dues.RecurrenceDefinition{
		Kind:      dues.KindDaily,
		StartDate: datePtr(2025, time.January, 1),
		EndDate:   datePtr(2025, time.January, 5),
	}

	periods, err := r.Enumerate(def, date(2025, time.January, 5))
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-01", "2025-01-02", "2025-01-03", "2025-01-04", "2025-01-05"}, keys(periods))
}

// =============================================================================
// YEAR PERIODS / LOOKUPS
// =============================================================================

func TestYearPeriods_WeekCounts(t *testing.T) {
	r := dues.NewReconciler()
	def := dues.RecurrenceDefinition{Kind: dues.KindWeekly}

	p2020, err := r.YearPeriods(def, 2020)
	require.NoError(t, err)
	assert.Len(t, p2020, 53)

	p2025, err := r.YearPeriods(def, 2025)
	require.NoError(t, err)
	assert.Len(t, p2025, 52)
	assert.Equal(t, "W52", p2025[51].ShortLabel)
}

func TestYearPeriods_MonthlyAndOnce(t *testing.T) {
	r := dues.NewReconciler()

	months, err := r.YearPeriods(dues.RecurrenceDefinition{Kind: dues.KindMonthly}, 2025)
	require.NoError(t, err)
	require.Len(t, months, 12)
	assert.Equal(t, "Mei", months[4].ShortLabel)
	assert.Equal(t, "Desember 2025", months[11].Label)

	once, err := r.YearPeriods(dues.RecurrenceDefinition{Kind: dues.KindOnce}, 2025)
	require.NoError(t, err)
	assert.Len(t, once, 1)
}

func TestPeriodForKey(t *testing.T) {
	r := dues.NewReconciler()

	p, err := r.PeriodForKey(dues.RecurrenceDefinition{Kind: dues.KindMonthly}, "2025-03")
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.March, 1), p.Start)
	assert.Equal(t, date(2025, time.March, 31), p.End)

	p, err = r.PeriodForKey(dues.RecurrenceDefinition{Kind: dues.KindWeekly}, "2020-53")
	require.NoError(t, err)
	assert.Equal(t, date(2020, time.December, 28), p.Start)

	_, err = r.PeriodForKey(dues.RecurrenceDefinition{Kind: dues.KindMonthly}, "2025-3")
	assert.ErrorIs(t, err, dues.ErrInvalidPeriodKey)

	_, err = r.PeriodForKey(dues.RecurrenceDefinition{Kind: dues.KindWeekly}, "2025-53")
	assert.ErrorIs(t, err, dues.ErrInvalidPeriodKey)
}

func TestPreviousPeriod(t *testing.T) {
	r := dues.NewReconciler()

	monthDef := dues.RecurrenceDefinition{Kind: dues.KindMonthly}
	jan, err := r.PeriodForKey(monthDef, "2025-01")
	require.NoError(t, err)
	prev, err := r.PreviousPeriod(monthDef, jan)
	require.NoError(t, err)
	assert.Equal(t, "2024-12", prev.Key)

	weekDef := dues.RecurrenceDefinition{Kind: dues.KindWeekly}
	w1, err := r.PeriodForKey(weekDef, "2025-01")
	require.NoError(t, err)
	prev, err = r.PreviousPeriod(weekDef, w1)
	require.NoError(t, err)
	assert.Equal(t, "2024-52", prev.Key)

	onceDef := dues.RecurrenceDefinition{Kind: dues.KindOnce}
	_, err = r.PreviousPeriod(onceDef, dues.PeriodDescriptor{Key: dues.OnceKey})
	assert.ErrorIs(t, err, dues.ErrNotPeriodic)
}

func TestISOCalendarHelpers(t *testing.T) {
	assert.Equal(t, 53, dues.ISOWeeksInYear(2020))
	assert.Equal(t, 52, dues.ISOWeeksInYear(2025))
	assert.Equal(t, date(2024, time.December, 30), dues.ISOWeekStart(2025, 1))
	assert.Equal(t, 7, date(2025, time.January, 5).ISOWeekday())
	assert.Equal(t, 29, dues.DaysInMonth(2024, time.February))
}
