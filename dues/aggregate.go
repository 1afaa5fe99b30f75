package dues

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROSTER HELPERS
// =============================================================================

func activeSubjects(roster []Subject) []Subject {
	active := make([]Subject, 0, len(roster))
	for _, s := range roster {
		if s.Active {
			active = append(active, s)
		}
	}
	return active
}

func recordsBySubject(records []PaymentRecord) map[SubjectID][]PaymentRecord {
	grouped := make(map[SubjectID][]PaymentRecord)
	for _, rec := range records {
		grouped[rec.SubjectID] = append(grouped[rec.SubjectID], rec)
	}
	return grouped
}

// index resolves, per subject, the record that decides each period key.
func (r Reconciler) index(def RecurrenceDefinition, records []PaymentRecord) map[SubjectID]map[string]PaymentRecord {
	idx := make(map[SubjectID]map[string]PaymentRecord)
	for id, recs := range recordsBySubject(records) {
		idx[id] = r.pick(def, recs)
	}
	return idx
}

func paidFor(idx map[SubjectID]map[string]PaymentRecord, id SubjectID, key string) (PaymentRecord, bool) {
	rec, ok := idx[id][key]
	return rec, ok && rec.Status == PaymentPaid
}

// =============================================================================
// AGGREGATE - One period across the roster
// =============================================================================

type Aggregate struct {
	Period      PeriodDescriptor
	ActiveCount int
	PaidCount   int
	UnpaidCount int
	Collected   decimal.Decimal // sum of the deciding paid record per subject
	Expected    decimal.Decimal // amount x active subjects
	Percentage  decimal.Decimal // paid / active * 100, two decimal places
	Paid        []SubjectID
	Unpaid      []SubjectID
}

// Aggregate partitions the active roster into paid and not paid for one
// period key. Pending subjects count as not paid. For once obligations the
// key is ignored.
func (r Reconciler) Aggregate(def RecurrenceDefinition, periodKey string, roster []Subject, records []PaymentRecord) (Aggregate, error) {
	period, err := r.PeriodForKey(def, periodKey)
	if err != nil {
		return Aggregate{}, err
	}

	active := activeSubjects(roster)
	idx := r.index(def, records)

	agg := Aggregate{
		Period:      period,
		ActiveCount: len(active),
		Collected:   decimal.Zero,
		Expected:    def.Amount.Mul(decimal.NewFromInt(int64(len(active)))),
		Paid:        []SubjectID{},
		Unpaid:      []SubjectID{},
	}
	for _, s := range active {
		if rec, ok := paidFor(idx, s.ID, period.Key); ok {
			agg.Paid = append(agg.Paid, s.ID)
			agg.Collected = agg.Collected.Add(rec.Amount)
			continue
		}
		agg.Unpaid = append(agg.Unpaid, s.ID)
	}
	agg.PaidCount = len(agg.Paid)
	agg.UnpaidCount = len(agg.Unpaid)
	agg.Percentage = percentage(agg.PaidCount, agg.ActiveCount, 2)
	return agg, nil
}

// =============================================================================
// ARREARS - Monitoring dashboard buckets
// =============================================================================

// ArrearsInput selects the current period either from AsOf or, when set,
// from CurrentKey.
type ArrearsInput struct {
	Definition RecurrenceDefinition
	AsOf       Date
	CurrentKey string
	Roster     []Subject
	Records    []PaymentRecord
}

// ArrearsReport places every active subject in exactly one bucket:
//
//  1. Paid:    paid for the current period
//  2. Arrears: not paid for the current period, missed the previous one
//  3. Unpaid:  not paid for the current period only
//
// Paid + Arrears + Unpaid == Total. PaidWithArrears counts Paid subjects
// that also missed the previous period; it overlaps Paid.
type ArrearsReport struct {
	Current  PeriodDescriptor
	Previous *PeriodDescriptor // nil when the current period is the first

	Total           int
	PaidCount       int
	ArrearsCount    int
	UnpaidCount     int
	PaidWithArrears int

	Paid    []SubjectID
	Arrears []SubjectID
	Unpaid  []SubjectID
}

func (r Reconciler) Arrears(in ArrearsInput) (ArrearsReport, error) {
	def := in.Definition
	if err := r.checkKind(def.Kind); err != nil {
		return ArrearsReport{}, err
	}
	if def.Kind == KindOnce {
		return ArrearsReport{}, ErrNotPeriodic
	}

	var current PeriodDescriptor
	var err error
	if in.CurrentKey != "" {
		current, err = r.PeriodForKey(def, in.CurrentKey)
	} else {
		current, err = r.PeriodAt(def, in.AsOf)
	}
	if err != nil {
		return ArrearsReport{}, err
	}

	report := ArrearsReport{
		Current: current,
		Paid:    []SubjectID{},
		Arrears: []SubjectID{},
		Unpaid:  []SubjectID{},
	}

	prev, err := r.PreviousPeriod(def, current)
	if err != nil {
		return ArrearsReport{}, err
	}
	windowStart, _ := def.Window(in.AsOf)
	if !prev.End.Before(windowStart) {
		report.Previous = &prev
	}

	idx := r.index(def, in.Records)
	for _, s := range activeSubjects(in.Roster) {
		report.Total++
		_, paidNow := paidFor(idx, s.ID, current.Key)
		missedPrev := false
		if report.Previous != nil {
			_, paidPrev := paidFor(idx, s.ID, report.Previous.Key)
			missedPrev = !paidPrev
		}

		switch {
		case paidNow:
			report.Paid = append(report.Paid, s.ID)
			if missedPrev {
				report.PaidWithArrears++
			}
		case missedPrev:
			report.Arrears = append(report.Arrears, s.ID)
		default:
			report.Unpaid = append(report.Unpaid, s.ID)
		}
	}
	report.PaidCount = len(report.Paid)
	report.ArrearsCount = len(report.Arrears)
	report.UnpaidCount = len(report.Unpaid)
	return report, nil
}

// =============================================================================
// MATRIX - Subjects x periods of one year
// =============================================================================

type MatrixColumn struct {
	Period  PeriodDescriptor
	Paid    int
	Pending int
	Unpaid  int
}

type MatrixRow struct {
	Subject Subject
	Cells   []PeriodStatus // aligned with Matrix.Columns
	Summary Summary
}

type Matrix struct {
	Year    int
	Columns []MatrixColumn
	Rows    []MatrixRow
}

// Matrix builds the monitoring grid of one calendar year for the active
// roster, ordered by name.
func (r Reconciler) Matrix(def RecurrenceDefinition, year int, roster []Subject, records []PaymentRecord) (Matrix, error) {
	periods, err := r.YearPeriods(def, year)
	if err != nil {
		return Matrix{}, err
	}

	active := activeSubjects(roster)
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Name != active[j].Name {
			return active[i].Name < active[j].Name
		}
		return active[i].ID < active[j].ID
	})

	m := Matrix{Year: year, Columns: make([]MatrixColumn, len(periods)), Rows: make([]MatrixRow, 0, len(active))}
	for i, p := range periods {
		m.Columns[i] = MatrixColumn{Period: p}
	}

	grouped := recordsBySubject(records)
	for _, s := range active {
		joined := r.Join(def, periods, grouped[s.ID])
		row := MatrixRow{Subject: s, Cells: make([]PeriodStatus, len(joined)), Summary: Summarize(joined)}
		for i, p := range joined {
			row.Cells[i] = p.Status
			switch p.Status {
			case StatusPaid:
				m.Columns[i].Paid++
			case StatusPending:
				m.Columns[i].Pending++
			default:
				m.Columns[i].Unpaid++
			}
		}
		m.Rows = append(m.Rows, row)
	}
	return m, nil
}
