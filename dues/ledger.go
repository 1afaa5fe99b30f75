/*
ledger.go - Payment writes and reconciled reads over a TxStore

PURPOSE:
  The Ledger is the only writer of payment records. It enforces the rules
  the Reconciler relies on and keeps wallet balances in step with payment
  status:

  - Record:     a member submits a payment; it starts pending
  - Verify:     pending -> paid (wallet += amount) or rejected
  - Delete:     removes a record; a paid record gives its amount back
  - BulkRecord: an administrator records many paid payments at once,
                skipping every (subject, type, period) already paid

CRITICAL INVARIANTS:
  1. ATOMIC BALANCE: every wallet adjustment shares a WithTx call with the
     status change that caused it
  2. IDEMPOTENT BULK: re-running the same BulkRecord creates nothing new
  3. ONE LIVE RECORD: a subject has at most one pending-or-paid record per
     type and period

READS:
  MemberStatus, MemberProgress, PeriodAggregate, ArrearsReport, TypeMatrix
  and UnpaidSubjects load rows and delegate to the Reconciler.

SEE ALSO:
  - store.go: persistence interfaces
  - period.go, reconcile.go, aggregate.go: the engine
*/
package dues

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	Store      TxStore
	Reconciler Reconciler

	// Now stamps CreatedAt and VerifiedAt. Defaults to time.Now.
	Now func() time.Time
	// NewID generates record IDs. Defaults to uuid.NewString.
	NewID func() string
}

func NewLedger(store TxStore, reconciler Reconciler) *Ledger {
	return &Ledger{
		Store:      store,
		Reconciler: reconciler,
		Now:        time.Now,
		NewID:      uuid.NewString,
	}
}

func (l *Ledger) now() time.Time {
	if l.Now == nil {
		return time.Now().UTC()
	}
	return l.Now().UTC()
}

func (l *Ledger) newID() string {
	if l.NewID == nil {
		return uuid.NewString()
	}
	return l.NewID()
}

var livePayment = []PaymentStatus{PaymentPending, PaymentPaid}

// periodKey validates the period key of a payment for t. Once-kind types
// store an empty key.
func (l *Ledger) periodKey(t *ContributionType, raw string) (string, error) {
	if t.Definition.Kind == KindOnce {
		return "", nil
	}
	if raw == "" {
		return "", ErrPeriodRequired
	}
	if err := l.Reconciler.checkKind(t.Definition.Kind); err != nil {
		return "", err
	}
	key, ok := l.Reconciler.normalize(t.Definition.Kind, raw)
	if !ok {
		return "", &PeriodKeyError{Kind: t.Definition.Kind, Key: raw}
	}
	return key, nil
}

// liveRecords returns the pending and paid records of subject for t that
// fall in period key.
func (l *Ledger) liveRecords(ctx context.Context, s Store, t *ContributionType, subject SubjectID, key string) ([]PaymentRecord, error) {
	recs, err := s.ListPayments(ctx, PaymentFilter{TypeID: t.ID, SubjectID: subject, Statuses: livePayment})
	if err != nil {
		return nil, err
	}
	if t.Definition.Kind == KindOnce {
		return recs, nil
	}
	var out []PaymentRecord
	for _, rec := range recs {
		if k, ok := l.Reconciler.normalize(t.Definition.Kind, rec.PaymentPeriod); ok && k == key {
			out = append(out, rec)
		}
	}
	return out, nil
}

// =============================================================================
// WRITES
// =============================================================================

// RecordInput is a payment submitted for verification.
type RecordInput struct {
	SubjectID     SubjectID
	TypeID        TypeID
	Amount        decimal.Decimal
	PaymentDate   Date
	PaymentPeriod string
	Method        string
	Notes         string
}

// Record stores a pending payment. The wallet is taken from the type.
func (l *Ledger) Record(ctx context.Context, in RecordInput) (PaymentRecord, error) {
	if in.Amount.IsNegative() {
		return PaymentRecord{}, ErrInvalidAmount
	}

	var rec PaymentRecord
	err := l.Store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetSubject(ctx, in.SubjectID); err != nil {
			return err
		}
		t, err := s.GetType(ctx, in.TypeID)
		if err != nil {
			return err
		}
		if t.WalletID == "" {
			return ErrWalletRequired
		}
		key, err := l.periodKey(t, in.PaymentPeriod)
		if err != nil {
			return err
		}

		live, err := l.liveRecords(ctx, s, t, in.SubjectID, key)
		if err != nil {
			return err
		}
		if len(live) > 0 {
			return ErrDuplicatePayment
		}

		rec = PaymentRecord{
			ID:            RecordID(l.newID()),
			SubjectID:     in.SubjectID,
			TypeID:        t.ID,
			WalletID:      t.WalletID,
			Amount:        in.Amount,
			PaymentDate:   in.PaymentDate,
			PaymentPeriod: key,
			Method:        in.Method,
			Status:        PaymentPending,
			Notes:         in.Notes,
			CreatedAt:     l.now(),
		}
		return s.SavePayment(ctx, rec)
	})
	if err != nil {
		return PaymentRecord{}, err
	}
	return rec, nil
}

// Verify settles a pending record. Paid records credit their wallet in the
// same transaction.
func (l *Ledger) Verify(ctx context.Context, id RecordID, status PaymentStatus, verifier string) (PaymentRecord, error) {
	if status != PaymentPaid && status != PaymentRejected {
		return PaymentRecord{}, ErrInvalidStatus
	}

	var rec PaymentRecord
	err := l.Store.WithTx(ctx, func(s Store) error {
		existing, err := s.GetPayment(ctx, id)
		if err != nil {
			return err
		}
		if existing.Status != PaymentPending {
			return ErrAlreadyVerified
		}

		now := l.now()
		rec = *existing
		rec.Status = status
		rec.VerifiedAt = &now
		rec.VerifiedBy = verifier
		if err := s.SavePayment(ctx, rec); err != nil {
			return err
		}
		if status == PaymentPaid {
			return s.AdjustWalletBalance(ctx, rec.WalletID, rec.Amount)
		}
		return nil
	})
	if err != nil {
		return PaymentRecord{}, err
	}
	return rec, nil
}

// Delete removes a record. A paid record debits its wallet in the same
// transaction.
func (l *Ledger) Delete(ctx context.Context, id RecordID) error {
	return l.Store.WithTx(ctx, func(s Store) error {
		rec, err := s.GetPayment(ctx, id)
		if err != nil {
			return err
		}
		if rec.Status == PaymentPaid {
			if err := s.AdjustWalletBalance(ctx, rec.WalletID, rec.Amount.Neg()); err != nil {
				return err
			}
		}
		return s.DeletePayment(ctx, id)
	})
}

// BulkInput records the type's amount as paid for every subject x period.
// Periods is ignored for once-kind types.
type BulkInput struct {
	TypeID      TypeID
	SubjectIDs  []SubjectID
	Periods     []string
	PaymentDate Date
	Method      string
	Notes       string
	RecordedBy  string
}

// BulkEntry identifies one subject x period combination.
type BulkEntry struct {
	SubjectID SubjectID
	Period    string
}

type BulkResult struct {
	Created  []PaymentRecord
	Promoted []PaymentRecord // pending records verified as paid
	Skipped  []BulkEntry     // already paid
	Total    decimal.Decimal // credited to the wallet
}

// BulkRecord is idempotent: combinations already paid are skipped, pending
// ones are promoted to paid instead of duplicated. All writes and the
// wallet credit share one transaction.
func (l *Ledger) BulkRecord(ctx context.Context, in BulkInput) (BulkResult, error) {
	result := BulkResult{
		Created:  []PaymentRecord{},
		Promoted: []PaymentRecord{},
		Skipped:  []BulkEntry{},
		Total:    decimal.Zero,
	}

	err := l.Store.WithTx(ctx, func(s Store) error {
		t, err := s.GetType(ctx, in.TypeID)
		if err != nil {
			return err
		}
		if t.WalletID == "" {
			return ErrWalletRequired
		}

		periods := in.Periods
		if t.Definition.Kind == KindOnce {
			periods = []string{""}
		}
		keys := make([]string, 0, len(periods))
		seen := make(map[string]bool)
		for _, raw := range periods {
			key, err := l.periodKey(t, raw)
			if err != nil {
				return err
			}
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
		if len(keys) == 0 {
			return ErrPeriodRequired
		}

		now := l.now()
		for _, subjectID := range in.SubjectIDs {
			if _, err := s.GetSubject(ctx, subjectID); err != nil {
				return err
			}
			for _, key := range keys {
				live, err := l.liveRecords(ctx, s, t, subjectID, key)
				if err != nil {
					return err
				}
				if pending, paid := splitLive(live); paid {
					result.Skipped = append(result.Skipped, BulkEntry{SubjectID: subjectID, Period: key})
					continue
				} else if pending != nil {
					rec := *pending
					rec.Status = PaymentPaid
					rec.VerifiedAt = &now
					rec.VerifiedBy = in.RecordedBy
					if err := s.SavePayment(ctx, rec); err != nil {
						return err
					}
					result.Promoted = append(result.Promoted, rec)
					result.Total = result.Total.Add(rec.Amount)
					continue
				}

				rec := PaymentRecord{
					ID:            RecordID(l.newID()),
					SubjectID:     subjectID,
					TypeID:        t.ID,
					WalletID:      t.WalletID,
					Amount:        t.Definition.Amount,
					PaymentDate:   in.PaymentDate,
					PaymentPeriod: key,
					Method:        in.Method,
					Status:        PaymentPaid,
					Notes:         in.Notes,
					VerifiedAt:    &now,
					VerifiedBy:    in.RecordedBy,
					CreatedAt:     now,
				}
				if err := s.SavePayment(ctx, rec); err != nil {
					return err
				}
				result.Created = append(result.Created, rec)
				result.Total = result.Total.Add(rec.Amount)
			}
		}

		if result.Total.IsZero() {
			return nil
		}
		return s.AdjustWalletBalance(ctx, t.WalletID, result.Total)
	})
	if err != nil {
		return BulkResult{}, err
	}
	return result, nil
}

// splitLive returns the first pending record and whether any is paid.
func splitLive(live []PaymentRecord) (*PaymentRecord, bool) {
	var pending *PaymentRecord
	for i := range live {
		if live[i].Status == PaymentPaid {
			return nil, true
		}
		if pending == nil {
			pending = &live[i]
		}
	}
	return pending, false
}

// =============================================================================
// ROSTER AND CATALOG
// =============================================================================

// CreateSubject adds a member. An existing ID is refused, never replaced.
func (l *Ledger) CreateSubject(ctx context.Context, m Subject) error {
	return l.Store.WithTx(ctx, func(s Store) error {
		_, err := s.GetSubject(ctx, m.ID)
		if err := taken("member", string(m.ID), err); err != nil {
			return err
		}
		return s.SaveSubject(ctx, m)
	})
}

// CreateWallet adds a wallet with its opening balance. Later balance
// changes only come from payment status changes.
func (l *Ledger) CreateWallet(ctx context.Context, w Wallet) error {
	if w.Balance.IsNegative() {
		return ErrInvalidAmount
	}
	return l.Store.WithTx(ctx, func(s Store) error {
		_, err := s.GetWallet(ctx, w.ID)
		if err := taken("wallet", string(w.ID), err); err != nil {
			return err
		}
		return s.SaveWallet(ctx, w)
	})
}

// CreateType adds a contribution type. An existing type is never
// redefined under its payment records.
func (l *Ledger) CreateType(ctx context.Context, t ContributionType) error {
	return l.Store.WithTx(ctx, func(s Store) error {
		_, err := s.GetType(ctx, t.ID)
		if err := taken("contribution type", string(t.ID), err); err != nil {
			return err
		}
		return s.SaveType(ctx, t)
	})
}

// taken maps the error of a Get on id: missing is nil, found is an
// AlreadyExistsError, anything else passes through.
func taken(entity, id string, err error) error {
	switch {
	case IsNotFound(err):
		return nil
	case err != nil:
		return err
	}
	return &AlreadyExistsError{Entity: entity, ID: id}
}

// DeleteType removes a contribution type that has no payment records.
func (l *Ledger) DeleteType(ctx context.Context, id TypeID) error {
	return l.Store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetType(ctx, id); err != nil {
			return err
		}
		recs, err := s.ListPayments(ctx, PaymentFilter{TypeID: id})
		if err != nil {
			return err
		}
		if len(recs) > 0 {
			return ErrTypeInUse
		}
		return s.DeleteType(ctx, id)
	})
}

// DeactivateExpired switches off active types whose due date is before
// today and returns them.
func (l *Ledger) DeactivateExpired(ctx context.Context, today Date) ([]ContributionType, error) {
	var expired []ContributionType
	err := l.Store.WithTx(ctx, func(s Store) error {
		types, err := s.ListTypes(ctx, true)
		if err != nil {
			return err
		}
		for _, t := range types {
			if !t.Definition.ExpiredOn(today) {
				continue
			}
			t.Active = false
			if err := s.SaveType(ctx, t); err != nil {
				return fmt.Errorf("deactivate %s: %w", t.ID, err)
			}
			expired = append(expired, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// =============================================================================
// READS
// =============================================================================

func (l *Ledger) subjectRecords(ctx context.Context, subjectID SubjectID, typeID TypeID) (*ContributionType, []PaymentRecord, error) {
	if _, err := l.Store.GetSubject(ctx, subjectID); err != nil {
		return nil, nil, err
	}
	t, err := l.Store.GetType(ctx, typeID)
	if err != nil {
		return nil, nil, err
	}
	recs, err := l.Store.ListPayments(ctx, PaymentFilter{TypeID: typeID, SubjectID: subjectID})
	if err != nil {
		return nil, nil, err
	}
	return t, recs, nil
}

func (l *Ledger) rosterRecords(ctx context.Context, typeID TypeID) (*ContributionType, []Subject, []PaymentRecord, error) {
	t, err := l.Store.GetType(ctx, typeID)
	if err != nil {
		return nil, nil, nil, err
	}
	roster, err := l.Store.ListSubjects(ctx, true)
	if err != nil {
		return nil, nil, nil, err
	}
	recs, err := l.Store.ListPayments(ctx, PaymentFilter{TypeID: typeID})
	if err != nil {
		return nil, nil, nil, err
	}
	return t, roster, recs, nil
}

// TypePeriods enumerates a type's periods with no payment data.
func (l *Ledger) TypePeriods(ctx context.Context, typeID TypeID, asOf Date) ([]PeriodDescriptor, error) {
	t, err := l.Store.GetType(ctx, typeID)
	if err != nil {
		return nil, err
	}
	return l.Reconciler.Enumerate(t.Definition, asOf)
}

// CurrentPeriod describes the period of a type that contains asOf.
func (l *Ledger) CurrentPeriod(ctx context.Context, typeID TypeID, asOf Date) (PeriodDescriptor, error) {
	t, err := l.Store.GetType(ctx, typeID)
	if err != nil {
		return PeriodDescriptor{}, err
	}
	return l.Reconciler.PeriodAt(t.Definition, asOf)
}

func (l *Ledger) MemberStatus(ctx context.Context, subjectID SubjectID, typeID TypeID, asOf Date) (MemberStatus, error) {
	t, recs, err := l.subjectRecords(ctx, subjectID, typeID)
	if err != nil {
		return MemberStatus{}, err
	}
	return l.Reconciler.Status(t.Definition, asOf, recs)
}

func (l *Ledger) MemberProgress(ctx context.Context, subjectID SubjectID, typeID TypeID, asOf Date) (Progress, error) {
	t, recs, err := l.subjectRecords(ctx, subjectID, typeID)
	if err != nil {
		return Progress{}, err
	}
	return l.Reconciler.Progress(t.Definition, asOf, recs)
}

func (l *Ledger) PeriodAggregate(ctx context.Context, typeID TypeID, periodKey string) (Aggregate, error) {
	t, roster, recs, err := l.rosterRecords(ctx, typeID)
	if err != nil {
		return Aggregate{}, err
	}
	return l.Reconciler.Aggregate(t.Definition, periodKey, roster, recs)
}

func (l *Ledger) ArrearsReport(ctx context.Context, typeID TypeID, asOf Date) (ArrearsReport, error) {
	t, roster, recs, err := l.rosterRecords(ctx, typeID)
	if err != nil {
		return ArrearsReport{}, err
	}
	return l.Reconciler.Arrears(ArrearsInput{Definition: t.Definition, AsOf: asOf, Roster: roster, Records: recs})
}

func (l *Ledger) TypeMatrix(ctx context.Context, typeID TypeID, year int) (Matrix, error) {
	t, roster, recs, err := l.rosterRecords(ctx, typeID)
	if err != nil {
		return Matrix{}, err
	}
	return l.Reconciler.Matrix(t.Definition, year, roster, recs)
}

// UnpaidSubjects lists active subjects with no paid record for the period.
// A periodic type with no period returns the whole active roster.
func (l *Ledger) UnpaidSubjects(ctx context.Context, typeID TypeID, period string) ([]Subject, error) {
	t, roster, recs, err := l.rosterRecords(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if t.Definition.Kind != KindOnce && period == "" {
		return roster, nil
	}

	agg, err := l.Reconciler.Aggregate(t.Definition, period, roster, recs)
	if err != nil {
		return nil, err
	}
	unpaid := make(map[SubjectID]bool, len(agg.Unpaid))
	for _, id := range agg.Unpaid {
		unpaid[id] = true
	}
	out := make([]Subject, 0, len(agg.Unpaid))
	for _, s := range roster {
		if unpaid[s.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}
