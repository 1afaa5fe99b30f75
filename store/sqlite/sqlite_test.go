package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/dues-engine/dues"
	"github.com/warp/dues-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seed(t *testing.T, store *sqlite.Store) {
	t.Helper()
	ctx := context.Background()

	day := 10
	start := dues.NewDate(2025, time.January, 1)

	require.NoError(t, store.SaveWallet(ctx, dues.Wallet{ID: "kas", Name: "Kas RT", Balance: decimal.Zero, Active: true}))
	require.NoError(t, store.SaveType(ctx, dues.ContributionType{
		ID:       "iuran",
		Name:     "Iuran Bulanan",
		WalletID: "kas",
		Active:   true,
		Definition: dues.RecurrenceDefinition{
			Kind:         dues.KindMonthly,
			Amount:       decimal.RequireFromString("50000.50"),
			StartDate:    &start,
			RecurringDay: &day,
		},
	}))
	require.NoError(t, store.SaveSubject(ctx, dues.Subject{ID: "ani", Code: "A-01", Name: "Ani", Active: true}))
	require.NoError(t, store.SaveSubject(ctx, dues.Subject{ID: "budi", Code: "B-01", Name: "Budi", Active: false}))
}

func TestStore_ContributionTypeRoundTrip(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	got, err := store.GetType(ctx, "iuran")
	require.NoError(t, err)

	assert.Equal(t, dues.KindMonthly, got.Definition.Kind)
	assert.Equal(t, dues.WalletID("kas"), got.WalletID)
	assert.Equal(t, "50000.5", got.Definition.Amount.String())
	require.NotNil(t, got.Definition.StartDate)
	assert.Equal(t, dues.NewDate(2025, time.January, 1), *got.Definition.StartDate)
	require.NotNil(t, got.Definition.RecurringDay)
	assert.Equal(t, 10, *got.Definition.RecurringDay)
	assert.Nil(t, got.Definition.EndDate)
	assert.Nil(t, got.Definition.DueDate)
	assert.False(t, got.Definition.CreatedAt.IsZero())

	_, err = store.GetType(ctx, "missing")
	assert.True(t, dues.IsNotFound(err))
}

func TestStore_SaveWallet_KeepsBalance(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	require.NoError(t, store.AdjustWalletBalance(ctx, "kas", decimal.NewFromInt(75000)))
	require.NoError(t, store.SaveWallet(ctx, dues.Wallet{ID: "kas", Name: "Kas Warga", Active: true}))

	got, err := store.GetWallet(ctx, "kas")
	require.NoError(t, err)
	assert.Equal(t, "Kas Warga", got.Name)
	assert.Equal(t, "75000", got.Balance.String())
}

func TestStore_ListSubjects_ActiveOnly(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	all, err := store.ListSubjects(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := store.ListSubjects(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "A-01", active[0].Code)
}

func TestStore_ListPayments_FilterAndOrder(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	for _, rec := range []dues.PaymentRecord{
		{ID: "p3", SubjectID: "ani", TypeID: "iuran", WalletID: "kas", Amount: decimal.NewFromInt(1), PaymentPeriod: "2025-03", Status: dues.PaymentPending},
		{ID: "p1", SubjectID: "ani", TypeID: "iuran", WalletID: "kas", Amount: decimal.NewFromInt(1), PaymentPeriod: "2025-01", Status: dues.PaymentPaid},
		{ID: "p2", SubjectID: "budi", TypeID: "iuran", WalletID: "kas", Amount: decimal.NewFromInt(1), PaymentPeriod: "2025-01", Status: dues.PaymentRejected},
	} {
		rec.PaymentDate = dues.NewDate(2025, time.March, 1)
		require.NoError(t, store.SavePayment(ctx, rec))
	}

	all, err := store.ListPayments(ctx, dues.PaymentFilter{TypeID: "iuran"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, dues.RecordID("p3"), all[0].ID, "insertion order")
	assert.Equal(t, dues.NewDate(2025, time.March, 1), all[0].PaymentDate)

	live, err := store.ListPayments(ctx, dues.PaymentFilter{
		TypeID:   "iuran",
		Period:   "2025-01",
		Statuses: []dues.PaymentStatus{dues.PaymentPending, dues.PaymentPaid},
	})
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, dues.RecordID("p1"), live[0].ID)

	// upsert keeps the original position
	all[0].Status = dues.PaymentPaid
	require.NoError(t, store.SavePayment(ctx, all[0]))
	again, err := store.ListPayments(ctx, dues.PaymentFilter{SubjectID: "ani"})
	require.NoError(t, err)
	assert.Equal(t, dues.RecordID("p3"), again[0].ID)
	assert.Equal(t, dues.PaymentPaid, again[0].Status)
}

func TestStore_WithTx_RollsBack(t *testing.T) {
	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx dues.Store) error {
		require.NoError(t, tx.AdjustWalletBalance(ctx, "kas", decimal.NewFromInt(100)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	w, err := store.GetWallet(ctx, "kas")
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
}

func TestStore_LedgerVerifyCreditsWallet(t *testing.T) {
	// GIVEN: A ledger over SQLite with one pending payment
	// WHEN: Verifying it as paid
	// THEN: The stored balance reflects the payment

	store := newTestStore(t)
	seed(t, store)
	ctx := context.Background()
	ledger := dues.NewLedger(store, dues.NewReconciler())

	rec, err := ledger.Record(ctx, dues.RecordInput{
		SubjectID:     "ani",
		TypeID:        "iuran",
		Amount:        decimal.RequireFromString("50000.50"),
		PaymentDate:   dues.NewDate(2025, time.March, 2),
		PaymentPeriod: "2025-03",
	})
	require.NoError(t, err)

	_, err = ledger.Verify(ctx, rec.ID, dues.PaymentPaid, "bendahara")
	require.NoError(t, err)

	w, err := store.GetWallet(ctx, "kas")
	require.NoError(t, err)
	assert.Equal(t, "50000.5", w.Balance.String())

	got, err := store.GetPayment(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got.VerifiedAt)
	assert.Equal(t, "bendahara", got.VerifiedBy)

	require.NoError(t, ledger.Delete(ctx, rec.ID))
	w, err = store.GetWallet(ctx, "kas")
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
}
