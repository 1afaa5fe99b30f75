/*
store.go - Persistence interface for the ledger

PURPOSE:
  Defines the interface between the Ledger and the database. The
  Reconciler never sees a Store; the Ledger loads rows, hands them to the
  Reconciler and writes the outcome back.

KEY INTERFACES:
  Store:   subjects, wallets, contribution types, payment records
  TxStore: Store plus WithTx for atomic multi-row writes

ATOMIC WRITES:
  Verifying a payment as paid increments the wallet balance. Both writes
  happen inside one WithTx call, so no reader ever sees a paid record with
  a stale balance or the reverse.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - dues/store/memory.go:   in-memory for tests and demos

SEE ALSO:
  - ledger.go: uses these interfaces
*/
package dues

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE
// =============================================================================

// PaymentFilter narrows ListPayments. Zero fields match everything.
type PaymentFilter struct {
	TypeID    TypeID
	SubjectID SubjectID
	Period    string
	Statuses  []PaymentStatus
}

// Matches reports whether rec passes the filter.
func (f PaymentFilter) Matches(rec PaymentRecord) bool {
	if f.TypeID != "" && rec.TypeID != f.TypeID {
		return false
	}
	if f.SubjectID != "" && rec.SubjectID != f.SubjectID {
		return false
	}
	if f.Period != "" && rec.PaymentPeriod != f.Period {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if rec.Status == s {
			return true
		}
	}
	return false
}

// Store persists ledger data. Get* methods return an error wrapping
// ErrNotFound for missing rows.
type Store interface {
	SaveSubject(ctx context.Context, s Subject) error
	GetSubject(ctx context.Context, id SubjectID) (*Subject, error)
	ListSubjects(ctx context.Context, activeOnly bool) ([]Subject, error)

	SaveWallet(ctx context.Context, w Wallet) error
	GetWallet(ctx context.Context, id WalletID) (*Wallet, error)
	ListWallets(ctx context.Context) ([]Wallet, error)
	// AdjustWalletBalance adds delta (possibly negative) to the balance.
	AdjustWalletBalance(ctx context.Context, id WalletID, delta decimal.Decimal) error

	SaveType(ctx context.Context, t ContributionType) error
	GetType(ctx context.Context, id TypeID) (*ContributionType, error)
	ListTypes(ctx context.Context, activeOnly bool) ([]ContributionType, error)
	DeleteType(ctx context.Context, id TypeID) error

	// SavePayment inserts or replaces a record by ID.
	SavePayment(ctx context.Context, rec PaymentRecord) error
	GetPayment(ctx context.Context, id RecordID) (*PaymentRecord, error)
	DeletePayment(ctx context.Context, id RecordID) error
	// ListPayments returns matching records ordered by creation time.
	ListPayments(ctx context.Context, filter PaymentFilter) ([]PaymentRecord, error)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
