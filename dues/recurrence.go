package dues

import "github.com/shopspring/decimal"

// =============================================================================
// PERIOD KIND
// =============================================================================

type PeriodKind string

const (
	KindOnce    PeriodKind = "once"
	KindWeekly  PeriodKind = "weekly"
	KindMonthly PeriodKind = "monthly"
	KindYearly  PeriodKind = "yearly"

	// KindDaily exists in stored configuration but has no period rules.
	// Enumerate rejects it unless Reconciler.LegacyDailyFallback is set.
	KindDaily PeriodKind = "daily"
)

// Supported reports whether the engine has enumeration rules for k.
func (k PeriodKind) Supported() bool {
	switch k {
	case KindOnce, KindWeekly, KindMonthly, KindYearly:
		return true
	}
	return false
}

// Periodic is false for once-kind obligations.
func (k PeriodKind) Periodic() bool {
	return k.Supported() && k != KindOnce
}

// =============================================================================
// RECURRENCE DEFINITION
// =============================================================================

// RecurrenceDefinition describes how often an obligation repeats and over
// which window.
//
// EndDate >= StartDate is checked by the configuration layer
// (factory.Factory); the engine yields zero periods for an inverted window.
type RecurrenceDefinition struct {
	Kind   PeriodKind
	Amount decimal.Decimal

	// StartDate nil means the first day of the month of CreatedAt.
	StartDate *Date
	// EndDate nil means "as of", extended to the end of its period.
	EndDate *Date

	// RecurringDay is a day of month (1-31, clamped) for monthly and an ISO
	// day of week (1-7, Monday first) for weekly. Due dates only.
	RecurringDay *int

	// DueDate is the single due date of a once obligation; for yearly its
	// month and day apply to every year.
	DueDate *Date

	CreatedAt Date
}

// Window returns the inclusive [start, end] range enumerated as of asOf.
func (d RecurrenceDefinition) Window(asOf Date) (Date, Date) {
	var start Date
	switch {
	case d.StartDate != nil:
		start = *d.StartDate
	case !d.CreatedAt.IsZero():
		start = StartOfMonth(d.CreatedAt.Year(), d.CreatedAt.Month())
	default:
		start = StartOfMonth(asOf.Year(), asOf.Month())
	}

	if d.EndDate != nil {
		return start, *d.EndDate
	}

	end := asOf
	switch d.Kind {
	case KindMonthly:
		end = EndOfMonth(asOf.Year(), asOf.Month())
	case KindWeekly:
		end = EndOfISOWeek(asOf)
	case KindYearly:
		end = EndOfYear(asOf.Year())
	}
	return start, end
}

// ExpiredOn reports whether the obligation's due date lies before today.
func (d RecurrenceDefinition) ExpiredOn(today Date) bool {
	return d.DueDate != nil && d.DueDate.Before(today)
}
