package dues

import (
	"fmt"
	"strconv"
	"time"
)

// =============================================================================
// PERIOD DESCRIPTOR - One occurrence of a recurring obligation
// =============================================================================

// PeriodStatus is the reconciled state of one period for one subject.
type PeriodStatus string

const (
	StatusPaid    PeriodStatus = "paid"
	StatusPending PeriodStatus = "pending"
	StatusUnpaid  PeriodStatus = "unpaid"
)

// Label is the word shown in member-facing tables.
func (s PeriodStatus) Label() string {
	switch s {
	case StatusPaid:
		return "Lunas"
	case StatusPending:
		return "Proses"
	default:
		return "-"
	}
}

// OnceKey is the key of the single period of a once obligation.
const OnceKey = "once"

// PeriodDescriptor is computed on every call and never stored.
type PeriodDescriptor struct {
	Key        string // machine key, compared with PaymentRecord.PaymentPeriod
	Label      string // "Maret 2025", "Minggu ke-3 2025", "2025", "Status"
	ShortLabel string // matrix column header: "Mar", "W03", "2025", "Status"
	DueDate    *Date

	// Start and End bound the calendar window of the period. Both are zero
	// for once obligations.
	Start Date
	End   Date

	Status PeriodStatus
	Record *PaymentRecord
}

// =============================================================================
// RECONCILER
// =============================================================================

// DefaultMaxPeriods bounds enumeration of long or open-ended windows.
const DefaultMaxPeriods = 500

// Reconciler matches expected periods against payment records. The zero
// value is usable; NewReconciler spells the defaults out.
type Reconciler struct {
	// MaxPeriods caps every enumeration. Zero means DefaultMaxPeriods.
	MaxPeriods int

	// Normalize maps a stored payment-period string to a canonical key.
	// Nil means CanonicalKey.
	Normalize KeyNormalizer

	// LegacyDailyFallback reproduces the historical catch-all for daily and
	// unrecognized kinds: one period per day instead of an error.
	LegacyDailyFallback bool
}

func NewReconciler() Reconciler {
	return Reconciler{MaxPeriods: DefaultMaxPeriods, Normalize: CanonicalKey}
}

func (r Reconciler) maxPeriods() int {
	if r.MaxPeriods <= 0 {
		return DefaultMaxPeriods
	}
	return r.MaxPeriods
}

func (r Reconciler) normalize(kind PeriodKind, raw string) (string, bool) {
	if r.Normalize == nil {
		return CanonicalKey(kind, raw)
	}
	return r.Normalize(kind, raw)
}

// checkKind returns the error for kinds that cannot be enumerated.
func (r Reconciler) checkKind(kind PeriodKind) error {
	if kind.Supported() || r.LegacyDailyFallback {
		return nil
	}
	return &DefinitionError{Kind: kind, Err: ErrUnsupportedPeriodKind}
}

// =============================================================================
// ENUMERATION
// =============================================================================

// Enumerate lists every period of def between its start and end, in
// ascending order. All statuses are unpaid; Join fills them in.
//
// Monthly and yearly cursors start on the first day of the start month or
// year. The weekly cursor starts on the start date itself and steps seven
// days, so a window ending mid-week before the cursor's weekday does not
// pull in that last week.
func (r Reconciler) Enumerate(def RecurrenceDefinition, asOf Date) ([]PeriodDescriptor, error) {
	if err := r.checkKind(def.Kind); err != nil {
		return nil, err
	}
	if def.Kind == KindOnce {
		return []PeriodDescriptor{describeOnce(def)}, nil
	}

	start, end := def.Window(asOf)
	limit := r.maxPeriods()

	var cursor Date
	var step func(Date) Date
	switch def.Kind {
	case KindMonthly:
		cursor = StartOfMonth(start.Year(), start.Month())
		step = func(d Date) Date { return d.AddMonths(1) }
	case KindWeekly:
		cursor = start
		step = func(d Date) Date { return d.AddDays(7) }
	case KindYearly:
		cursor = StartOfYear(start.Year())
		step = func(d Date) Date { return d.AddYears(1) }
	default:
		cursor = start
		step = func(d Date) Date { return d.AddDays(1) }
	}

	periods := []PeriodDescriptor{}
	for len(periods) < limit && cursor.BeforeOrEqual(end) {
		periods = append(periods, describeAt(def, cursor))
		cursor = step(cursor)
	}
	return periods, nil
}

// YearPeriods lists the periods of one calendar year regardless of the
// definition's window: 12 months, every ISO week of the ISO year (52 or
// 53), the year itself, or the single once column.
func (r Reconciler) YearPeriods(def RecurrenceDefinition, year int) ([]PeriodDescriptor, error) {
	if err := r.checkKind(def.Kind); err != nil {
		return nil, err
	}

	var periods []PeriodDescriptor
	switch def.Kind {
	case KindOnce:
		periods = append(periods, describeOnce(def))
	case KindMonthly:
		for m := time.January; m <= time.December; m++ {
			periods = append(periods, describeMonth(def, year, m))
		}
	case KindWeekly:
		for w := 1; w <= ISOWeeksInYear(year); w++ {
			periods = append(periods, describeWeek(def, year, w))
		}
	case KindYearly:
		periods = append(periods, describeYear(def, year))
	default:
		for d := StartOfYear(year); d.Year() == year; d = d.AddDays(1) {
			periods = append(periods, describeDay(d))
		}
	}

	if limit := r.maxPeriods(); len(periods) > limit {
		periods = periods[:limit]
	}
	return periods, nil
}

// PeriodAt describes the period of def that contains date.
func (r Reconciler) PeriodAt(def RecurrenceDefinition, date Date) (PeriodDescriptor, error) {
	if err := r.checkKind(def.Kind); err != nil {
		return PeriodDescriptor{}, err
	}
	return describeAt(def, date), nil
}

// PreviousPeriod describes the period immediately before p.
func (r Reconciler) PreviousPeriod(def RecurrenceDefinition, p PeriodDescriptor) (PeriodDescriptor, error) {
	if err := r.checkKind(def.Kind); err != nil {
		return PeriodDescriptor{}, err
	}
	switch def.Kind {
	case KindOnce:
		return PeriodDescriptor{}, ErrNotPeriodic
	case KindMonthly:
		return describeAt(def, p.Start.AddMonths(-1)), nil
	case KindWeekly:
		return describeAt(def, p.Start.AddDays(-7)), nil
	case KindYearly:
		return describeAt(def, p.Start.AddYears(-1)), nil
	default:
		return describeAt(def, p.Start.AddDays(-1)), nil
	}
}

// PeriodForKey describes the period identified by key. The key goes through
// the reconciler's normalizer first.
func (r Reconciler) PeriodForKey(def RecurrenceDefinition, key string) (PeriodDescriptor, error) {
	if err := r.checkKind(def.Kind); err != nil {
		return PeriodDescriptor{}, err
	}
	if def.Kind == KindOnce {
		return describeOnce(def), nil
	}
	canonical, ok := r.normalize(def.Kind, key)
	if !ok {
		return PeriodDescriptor{}, &PeriodKeyError{Kind: def.Kind, Key: key}
	}
	start, err := periodStart(def.Kind, canonical)
	if err != nil {
		return PeriodDescriptor{}, &PeriodKeyError{Kind: def.Kind, Key: key}
	}
	return describeAt(def, start), nil
}

// =============================================================================
// KEY / LABEL / DUE DATE DERIVATION
// =============================================================================

var monthNames = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

var monthShortNames = [...]string{
	"Jan", "Feb", "Mar", "Apr", "Mei", "Jun",
	"Jul", "Agu", "Sep", "Okt", "Nov", "Des",
}

// MonthName returns the Indonesian name of m.
func MonthName(m time.Month) string { return monthNames[m-1] }

func describeAt(def RecurrenceDefinition, d Date) PeriodDescriptor {
	switch def.Kind {
	case KindOnce:
		return describeOnce(def)
	case KindMonthly:
		return describeMonth(def, d.Year(), d.Month())
	case KindWeekly:
		y, w := d.ISOWeek()
		return describeWeek(def, y, w)
	case KindYearly:
		return describeYear(def, d.Year())
	default:
		return describeDay(d)
	}
}

func describeOnce(def RecurrenceDefinition) PeriodDescriptor {
	return PeriodDescriptor{
		Key:        OnceKey,
		Label:      "Status",
		ShortLabel: "Status",
		DueDate:    def.DueDate,
		Status:     StatusUnpaid,
	}
}

func describeMonth(def RecurrenceDefinition, year int, month time.Month) PeriodDescriptor {
	p := PeriodDescriptor{
		Key:        fmt.Sprintf("%04d-%02d", year, int(month)),
		Label:      fmt.Sprintf("%s %d", MonthName(month), year),
		ShortLabel: monthShortNames[month-1],
		Start:      StartOfMonth(year, month),
		End:        EndOfMonth(year, month),
		Status:     StatusUnpaid,
	}
	if def.RecurringDay != nil {
		due := clampDay(year, month, *def.RecurringDay)
		p.DueDate = &due
	}
	return p
}

func describeWeek(def RecurrenceDefinition, isoYear, week int) PeriodDescriptor {
	monday := ISOWeekStart(isoYear, week)
	p := PeriodDescriptor{
		Key:        fmt.Sprintf("%04d-%02d", isoYear, week),
		Label:      fmt.Sprintf("Minggu ke-%d %d", week, isoYear),
		ShortLabel: fmt.Sprintf("W%02d", week),
		Start:      monday,
		End:        monday.AddDays(6),
		Status:     StatusUnpaid,
	}
	if def.RecurringDay != nil {
		day := *def.RecurringDay
		if day < 1 {
			day = 1
		}
		if day > 7 {
			day = 7
		}
		due := monday.AddDays(day - 1)
		p.DueDate = &due
	}
	return p
}

func describeYear(def RecurrenceDefinition, year int) PeriodDescriptor {
	key := strconv.Itoa(year)
	p := PeriodDescriptor{
		Key:        key,
		Label:      key,
		ShortLabel: key,
		Start:      StartOfYear(year),
		End:        EndOfYear(year),
		Status:     StatusUnpaid,
	}
	if def.DueDate != nil {
		due := clampDay(year, def.DueDate.Month(), def.DueDate.Day())
		p.DueDate = &due
	}
	return p
}

func describeDay(d Date) PeriodDescriptor {
	return PeriodDescriptor{
		Key:        d.String(),
		Label:      fmt.Sprintf("%d %s %d", d.Day(), MonthName(d.Month()), d.Year()),
		ShortLabel: fmt.Sprintf("%02d/%02d", d.Day(), int(d.Month())),
		Start:      d,
		End:        d,
		Status:     StatusUnpaid,
	}
}

// periodStart parses a canonical key back to the first day of its period.
func periodStart(kind PeriodKind, key string) (Date, error) {
	switch kind {
	case KindMonthly:
		t, err := time.Parse("2006-01", key)
		if err != nil {
			return Date{}, err
		}
		return DateOf(t), nil
	case KindWeekly:
		y, w, err := splitWeekKey(key)
		if err != nil {
			return Date{}, err
		}
		return ISOWeekStart(y, w), nil
	case KindYearly:
		y, err := strconv.Atoi(key)
		if err != nil {
			return Date{}, err
		}
		return StartOfYear(y), nil
	default:
		return ParseDate(key)
	}
}
