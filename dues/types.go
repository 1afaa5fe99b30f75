/*
Package dues provides the contribution (dues) reconciliation engine.

PURPOSE:
  A contribution type repeats once, weekly, monthly or yearly. Members pay
  into a ledger of payment records that move pending -> paid | rejected.
  This package turns a recurrence definition plus payment records into a
  period-by-period view: which periods exist, when each is due, which are
  paid, pending or unpaid, and how the whole roster is doing.

KEY CONCEPTS IN THIS FILE (types.go):
  - Identifiers: SubjectID, TypeID, WalletID, RecordID
  - PaymentStatus: lifecycle of a ledger row
  - PaymentRecord: one payment attempt for one period
  - Subject, Wallet, ContributionType: what the ledger stores around it

DESIGN PRINCIPLES:
  1. Purity: the Reconciler never touches storage or the wall clock
  2. Precision: money and percentages use decimal.Decimal
  3. Explicit time: every entry point receives an as-of Date
  4. Atomicity lives in the Ledger: balance changes share a store
     transaction with the status change that caused them

USAGE:
  r := dues.NewReconciler()
  periods, err := r.Enumerate(def, dues.NewDate(2025, time.March, 15))
  periods = r.Join(def, periods, records)
  summary := dues.Summarize(periods)

SEE ALSO:
  - recurrence.go: PeriodKind and RecurrenceDefinition
  - period.go: period enumeration
  - reconcile.go: joining payment records, summaries
  - aggregate.go: roster-wide statistics, arrears, matrix
  - ledger.go: payment writes with wallet atomicity
*/
package dues

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SubjectID string
type TypeID string
type WalletID string
type RecordID string

// =============================================================================
// PAYMENT STATUS
// =============================================================================

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRejected PaymentStatus = "rejected"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentRejected:
		return true
	}
	return false
}

// =============================================================================
// PAYMENT RECORD - One ledger row
// =============================================================================

// PaymentRecord is one payment attempt by a subject for a contribution type.
// PaymentPeriod holds a period key (see PeriodDescriptor.Key); it is empty
// for rows that predate recurring support and for once-kind types.
type PaymentRecord struct {
	ID            RecordID
	SubjectID     SubjectID
	TypeID        TypeID
	WalletID      WalletID
	Amount        decimal.Decimal
	PaymentDate   Date
	PaymentPeriod string
	Method        string
	Status        PaymentStatus
	Notes         string

	VerifiedAt *time.Time
	VerifiedBy string
	CreatedAt  time.Time
}

// =============================================================================
// SUBJECTS, WALLETS, CONTRIBUTION TYPES
// =============================================================================

// Subject is a member of the roster. Only active subjects are expected to pay.
type Subject struct {
	ID        SubjectID
	Code      string
	Name      string
	Active    bool
	CreatedAt time.Time
}

// Wallet receives the money of verified payments.
type Wallet struct {
	ID          WalletID
	Name        string
	Description string
	Balance     decimal.Decimal
	Active      bool
	CreatedAt   time.Time
}

// ContributionType is a configured obligation: where the money goes and how
// often it repeats.
type ContributionType struct {
	ID          TypeID
	Name        string
	WalletID    WalletID
	Description string
	Active      bool
	Definition  RecurrenceDefinition
	CreatedAt   time.Time
}
