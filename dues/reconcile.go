package dues

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// KEY NORMALIZATION
// =============================================================================

// KeyNormalizer maps a stored payment-period string to the canonical key of
// kind. ok=false means the record matches no period.
type KeyNormalizer func(kind PeriodKind, raw string) (key string, ok bool)

// CanonicalKey accepts only keys already in the engine's format for kind:
// "YYYY-MM" (monthly), "YYYY-WW" (weekly), "YYYY" (yearly), "YYYY-MM-DD"
// (daily). Empty strings never match a periodic kind. Every record matches
// the single once period.
func CanonicalKey(kind PeriodKind, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case KindOnce:
		return OnceKey, true
	case KindMonthly:
		if len(raw) != 7 {
			return "", false
		}
		if _, err := time.Parse("2006-01", raw); err != nil {
			return "", false
		}
		return raw, true
	case KindWeekly:
		if _, _, err := splitWeekKey(raw); err != nil {
			return "", false
		}
		return raw, true
	case KindYearly:
		if len(raw) != 4 {
			return "", false
		}
		if _, err := strconv.Atoi(raw); err != nil {
			return "", false
		}
		return raw, true
	default:
		if len(raw) != len(DateLayout) {
			return "", false
		}
		if _, err := time.Parse(DateLayout, raw); err != nil {
			return "", false
		}
		return raw, true
	}
}

var errWeekKey = errors.New("malformed week key")

func splitWeekKey(key string) (int, int, error) {
	if len(key) != 7 || key[4] != '-' {
		return 0, 0, errWeekKey
	}
	y, err := strconv.Atoi(key[:4])
	if err != nil {
		return 0, 0, errWeekKey
	}
	w, err := strconv.Atoi(key[5:])
	if err != nil {
		return 0, 0, errWeekKey
	}
	if w < 1 || w > ISOWeeksInYear(y) {
		return 0, 0, errWeekKey
	}
	return y, w, nil
}

// =============================================================================
// JOIN - Periods x payment records
// =============================================================================

// pick chooses the record that decides each period key. Rejected records
// and records whose key does not normalize are skipped. A paid record beats
// a pending one; otherwise the first record in input order wins.
func (r Reconciler) pick(def RecurrenceDefinition, records []PaymentRecord) map[string]PaymentRecord {
	best := make(map[string]PaymentRecord)
	for _, rec := range records {
		if rec.Status != PaymentPaid && rec.Status != PaymentPending {
			continue
		}
		key, ok := r.normalize(def.Kind, rec.PaymentPeriod)
		if !ok {
			continue
		}
		cur, seen := best[key]
		if !seen || (cur.Status != PaymentPaid && rec.Status == PaymentPaid) {
			best[key] = rec
		}
	}
	return best
}

// Join sets each period's status from one subject's payment records. The
// input slice is left untouched.
func (r Reconciler) Join(def RecurrenceDefinition, periods []PeriodDescriptor, records []PaymentRecord) []PeriodDescriptor {
	best := r.pick(def, records)
	out := make([]PeriodDescriptor, len(periods))
	for i, p := range periods {
		p.Status = StatusUnpaid
		p.Record = nil
		if rec, ok := best[p.Key]; ok {
			rec := rec
			p.Record = &rec
			p.Status = statusOf(rec.Status)
		}
		out[i] = p
	}
	return out
}

func statusOf(s PaymentStatus) PeriodStatus {
	switch s {
	case PaymentPaid:
		return StatusPaid
	case PaymentPending:
		return StatusPending
	default:
		return StatusUnpaid
	}
}

// =============================================================================
// SUMMARY
// =============================================================================

type Summary struct {
	Total      int
	Paid       int
	Pending    int
	Unpaid     int
	Percentage decimal.Decimal // paid / total * 100, one decimal place
}

// Summarize counts statuses. Percentage is zero when there are no periods.
func Summarize(periods []PeriodDescriptor) Summary {
	s := Summary{Total: len(periods)}
	for _, p := range periods {
		switch p.Status {
		case StatusPaid:
			s.Paid++
		case StatusPending:
			s.Pending++
		default:
			s.Unpaid++
		}
	}
	s.Percentage = percentage(s.Paid, s.Total, 1)
	return s
}

func percentage(part, whole int, places int32) decimal.Decimal {
	if whole <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(whole))).
		Round(places)
}

// =============================================================================
// PER-SUBJECT VIEWS
// =============================================================================

// MemberStatus is the self-service view of one subject for one type.
type MemberStatus struct {
	Periods     []PeriodDescriptor
	Summary     Summary
	Outstanding decimal.Decimal // unpaid periods x amount
}

// Status enumerates and joins any kind, once included.
func (r Reconciler) Status(def RecurrenceDefinition, asOf Date, records []PaymentRecord) (MemberStatus, error) {
	periods, err := r.Enumerate(def, asOf)
	if err != nil {
		return MemberStatus{}, err
	}
	periods = r.Join(def, periods, records)
	summary := Summarize(periods)
	return MemberStatus{
		Periods:     periods,
		Summary:     summary,
		Outstanding: def.Amount.Mul(decimal.NewFromInt(int64(summary.Unpaid))),
	}, nil
}

// Progress is the per-type progress of one subject on a periodic obligation.
type Progress struct {
	Periods []PeriodDescriptor
	Summary Summary
	NextDue *PeriodDescriptor // earliest unpaid period, nil when all settled
}

// Progress fails with ErrNotPeriodic for once-kind definitions.
func (r Reconciler) Progress(def RecurrenceDefinition, asOf Date, records []PaymentRecord) (Progress, error) {
	if def.Kind == KindOnce {
		return Progress{}, ErrNotPeriodic
	}
	periods, err := r.Enumerate(def, asOf)
	if err != nil {
		return Progress{}, err
	}
	periods = r.Join(def, periods, records)

	progress := Progress{Periods: periods, Summary: Summarize(periods)}
	for i := range periods {
		if periods[i].Status == StatusUnpaid {
			next := periods[i]
			progress.NextDue = &next
			break
		}
	}
	return progress, nil
}
