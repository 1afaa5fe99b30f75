/*
Package sqlite provides a SQLite-backed implementation of dues.TxStore.

KEY TABLES:
  members:            the roster (subjects)
  wallets:            balances credited by verified payments
  contribution_types: recurrence definitions with their wallet
  contributions:      payment records (pending | paid | rejected)

INDEXES:
  - idx_contributions_type_period: roster-wide period lookups (hot path)
  - idx_contributions_member_type: per-member status views

STORAGE FORMATS:
  Dates are TEXT "YYYY-MM-DD", timestamps TEXT RFC3339, money TEXT decimal
  strings so no float rounding ever touches a balance.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, so an
  in-memory database (":memory:") is shared by every query.

USAGE:
  store, err := sqlite.New("./data/dues.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := dues.NewLedger(store, dues.NewReconciler())

SEE ALSO:
  - dues/store.go: Interface definitions
  - dues/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/dues-engine/dues"
)

// Store implements dues.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		member_code TEXT NOT NULL DEFAULT '',
		full_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_members_status
		ON members(status);

	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		balance TEXT NOT NULL DEFAULT '0',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contribution_types (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		wallet_id TEXT REFERENCES wallets(id) ON DELETE SET NULL,
		amount TEXT NOT NULL,
		period TEXT NOT NULL,
		description TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		due_date TEXT,
		start_date TEXT,
		end_date TEXT,
		recurring_day INTEGER,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contributions (
		id TEXT PRIMARY KEY,
		seq INTEGER NOT NULL,
		member_id TEXT NOT NULL REFERENCES members(id),
		contribution_type_id TEXT NOT NULL REFERENCES contribution_types(id),
		wallet_id TEXT,
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		payment_period TEXT,
		payment_method TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		notes TEXT,
		verified_at TEXT,
		verified_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contributions_type_period
		ON contributions(contribution_type_id, payment_period);
	CREATE INDEX IF NOT EXISTS idx_contributions_member_type
		ON contributions(member_id, contribution_type_id);
	CREATE INDEX IF NOT EXISTS idx_contributions_status
		ON contributions(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LOCKED ENTRY POINTS (dues.Store interface)
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) conn() queries { return queries{q: s.db} }

func (s *Store) SaveSubject(ctx context.Context, m dues.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().SaveSubject(ctx, m)
}

func (s *Store) GetSubject(ctx context.Context, id dues.SubjectID) (*dues.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetSubject(ctx, id)
}

func (s *Store) ListSubjects(ctx context.Context, activeOnly bool) ([]dues.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().ListSubjects(ctx, activeOnly)
}

func (s *Store) SaveWallet(ctx context.Context, w dues.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().SaveWallet(ctx, w)
}

func (s *Store) GetWallet(ctx context.Context, id dues.WalletID) (*dues.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetWallet(ctx, id)
}

func (s *Store) ListWallets(ctx context.Context) ([]dues.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().ListWallets(ctx)
}

// AdjustWalletBalance runs read-modify-write in its own transaction when
// called outside WithTx.
func (s *Store) AdjustWalletBalance(ctx context.Context, id dues.WalletID, delta decimal.Decimal) error {
	return s.WithTx(ctx, func(tx dues.Store) error {
		return tx.AdjustWalletBalance(ctx, id, delta)
	})
}

func (s *Store) SaveType(ctx context.Context, t dues.ContributionType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().SaveType(ctx, t)
}

func (s *Store) GetType(ctx context.Context, id dues.TypeID) (*dues.ContributionType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetType(ctx, id)
}

func (s *Store) ListTypes(ctx context.Context, activeOnly bool) ([]dues.ContributionType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().ListTypes(ctx, activeOnly)
}

func (s *Store) DeleteType(ctx context.Context, id dues.TypeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().DeleteType(ctx, id)
}

func (s *Store) SavePayment(ctx context.Context, rec dues.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().SavePayment(ctx, rec)
}

func (s *Store) GetPayment(ctx context.Context, id dues.RecordID) (*dues.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().GetPayment(ctx, id)
}

func (s *Store) DeletePayment(ctx context.Context, id dues.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn().DeletePayment(ctx, id)
}

func (s *Store) ListPayments(ctx context.Context, filter dues.PaymentFilter) ([]dues.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn().ListPayments(ctx, filter)
}

// =============================================================================
// TRANSACTIONAL STORE (dues.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store dues.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(queries{q: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// Reset deletes all rows. Used by the demo seed.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"contributions", "contribution_types", "wallets", "members"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// QUERIES - Shared by the pool and by transactions
// =============================================================================

type queries struct {
	q querier
}

// Members

func (qs queries) SaveSubject(ctx context.Context, m dues.Subject) error {
	status := "inactive"
	if m.Active {
		status = "active"
	}
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO members (id, member_code, full_name, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			member_code = excluded.member_code,
			full_name = excluded.full_name,
			status = excluded.status
	`, m.ID, m.Code, m.Name, status, createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save member: %w", err)
	}
	return nil
}

func (qs queries) GetSubject(ctx context.Context, id dues.SubjectID) (*dues.Subject, error) {
	rows, err := qs.q.QueryContext(ctx, `
		SELECT id, member_code, full_name, status, created_at FROM members WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	subjects, err := scanSubjects(rows)
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		return nil, &dues.NotFoundError{Entity: "member", ID: string(id)}
	}
	return &subjects[0], nil
}

func (qs queries) ListSubjects(ctx context.Context, activeOnly bool) ([]dues.Subject, error) {
	query := `SELECT id, member_code, full_name, status, created_at FROM members`
	if activeOnly {
		query += ` WHERE status = 'active'`
	}
	query += ` ORDER BY full_name ASC, id ASC`

	rows, err := qs.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return scanSubjects(rows)
}

func scanSubjects(rows *sql.Rows) ([]dues.Subject, error) {
	defer rows.Close()

	subjects := []dues.Subject{}
	for rows.Next() {
		var (
			m         dues.Subject
			status    string
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.Active = status == "active"
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		subjects = append(subjects, m)
	}
	return subjects, rows.Err()
}

// Wallets

func (qs queries) SaveWallet(ctx context.Context, w dues.Wallet) error {
	createdAt := w.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO wallets (id, name, description, balance, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			is_active = excluded.is_active
	`, w.ID, w.Name, nullString(w.Description), w.Balance.String(), w.Active, createdAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	return nil
}

func (qs queries) GetWallet(ctx context.Context, id dues.WalletID) (*dues.Wallet, error) {
	rows, err := qs.q.QueryContext(ctx, `
		SELECT id, name, description, balance, is_active, created_at FROM wallets WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	wallets, err := scanWallets(rows)
	if err != nil {
		return nil, err
	}
	if len(wallets) == 0 {
		return nil, &dues.NotFoundError{Entity: "wallet", ID: string(id)}
	}
	return &wallets[0], nil
}

func (qs queries) ListWallets(ctx context.Context) ([]dues.Wallet, error) {
	rows, err := qs.q.QueryContext(ctx, `
		SELECT id, name, description, balance, is_active, created_at FROM wallets ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return scanWallets(rows)
}

func (qs queries) AdjustWalletBalance(ctx context.Context, id dues.WalletID, delta decimal.Decimal) error {
	w, err := qs.GetWallet(ctx, id)
	if err != nil {
		return err
	}
	_, err = qs.q.ExecContext(ctx, `UPDATE wallets SET balance = ? WHERE id = ?`,
		w.Balance.Add(delta).String(), id)
	if err != nil {
		return fmt.Errorf("failed to adjust wallet balance: %w", err)
	}
	return nil
}

func scanWallets(rows *sql.Rows) ([]dues.Wallet, error) {
	defer rows.Close()

	wallets := []dues.Wallet{}
	for rows.Next() {
		var (
			w           dues.Wallet
			description sql.NullString
			balance     string
			createdAt   string
		)
		if err := rows.Scan(&w.ID, &w.Name, &description, &balance, &w.Active, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		w.Description = description.String
		w.Balance = parseDecimal(balance)
		w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// Contribution types

const typeColumns = `id, name, wallet_id, amount, period, description, is_active,
	due_date, start_date, end_date, recurring_day, created_at`

func (qs queries) SaveType(ctx context.Context, t dues.ContributionType) error {
	def := t.Definition
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var recurringDay sql.NullInt64
	if def.RecurringDay != nil {
		recurringDay = sql.NullInt64{Int64: int64(*def.RecurringDay), Valid: true}
	}

	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO contribution_types (`+typeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			wallet_id = excluded.wallet_id,
			amount = excluded.amount,
			period = excluded.period,
			description = excluded.description,
			is_active = excluded.is_active,
			due_date = excluded.due_date,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			recurring_day = excluded.recurring_day
	`,
		t.ID, t.Name, nullString(string(t.WalletID)), def.Amount.String(), string(def.Kind),
		nullString(t.Description), t.Active,
		nullDate(def.DueDate), nullDate(def.StartDate), nullDate(def.EndDate),
		recurringDay, createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save contribution type: %w", err)
	}
	return nil
}

func (qs queries) GetType(ctx context.Context, id dues.TypeID) (*dues.ContributionType, error) {
	rows, err := qs.q.QueryContext(ctx, `SELECT `+typeColumns+` FROM contribution_types WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution type: %w", err)
	}
	types, err := scanTypes(rows)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return nil, &dues.NotFoundError{Entity: "contribution type", ID: string(id)}
	}
	return &types[0], nil
}

func (qs queries) ListTypes(ctx context.Context, activeOnly bool) ([]dues.ContributionType, error) {
	query := `SELECT ` + typeColumns + ` FROM contribution_types`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`

	rows, err := qs.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list contribution types: %w", err)
	}
	return scanTypes(rows)
}

func (qs queries) DeleteType(ctx context.Context, id dues.TypeID) error {
	res, err := qs.q.ExecContext(ctx, `DELETE FROM contribution_types WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contribution type: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &dues.NotFoundError{Entity: "contribution type", ID: string(id)}
	}
	return nil
}

func scanTypes(rows *sql.Rows) ([]dues.ContributionType, error) {
	defer rows.Close()

	types := []dues.ContributionType{}
	for rows.Next() {
		var (
			t            dues.ContributionType
			walletID     sql.NullString
			amount       string
			period       string
			description  sql.NullString
			dueDate      sql.NullString
			startDate    sql.NullString
			endDate      sql.NullString
			recurringDay sql.NullInt64
			createdAt    string
		)
		err := rows.Scan(&t.ID, &t.Name, &walletID, &amount, &period, &description, &t.Active,
			&dueDate, &startDate, &endDate, &recurringDay, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contribution type: %w", err)
		}

		t.WalletID = dues.WalletID(walletID.String)
		t.Description = description.String
		t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		t.Definition = dues.RecurrenceDefinition{
			Kind:      dues.PeriodKind(period),
			Amount:    parseDecimal(amount),
			DueDate:   parseNullDate(dueDate),
			StartDate: parseNullDate(startDate),
			EndDate:   parseNullDate(endDate),
			CreatedAt: dues.DateOf(t.CreatedAt),
		}
		if recurringDay.Valid {
			day := int(recurringDay.Int64)
			t.Definition.RecurringDay = &day
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// Contributions

const paymentColumns = `id, member_id, contribution_type_id, wallet_id, amount, payment_date,
	payment_period, payment_method, status, notes, verified_at, verified_by, created_at`

func (qs queries) SavePayment(ctx context.Context, rec dues.PaymentRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var verifiedAt sql.NullString
	if rec.VerifiedAt != nil {
		verifiedAt = sql.NullString{String: rec.VerifiedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO contributions (seq, `+paymentColumns+`)
		VALUES ((SELECT COALESCE(MAX(seq), 0) + 1 FROM contributions), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			wallet_id = excluded.wallet_id,
			amount = excluded.amount,
			payment_date = excluded.payment_date,
			payment_period = excluded.payment_period,
			payment_method = excluded.payment_method,
			status = excluded.status,
			notes = excluded.notes,
			verified_at = excluded.verified_at,
			verified_by = excluded.verified_by
	`,
		rec.ID, rec.SubjectID, rec.TypeID, nullString(string(rec.WalletID)), rec.Amount.String(),
		rec.PaymentDate.String(), nullString(rec.PaymentPeriod), nullString(rec.Method),
		string(rec.Status), nullString(rec.Notes), verifiedAt, nullString(rec.VerifiedBy),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save contribution: %w", err)
	}
	return nil
}

func (qs queries) GetPayment(ctx context.Context, id dues.RecordID) (*dues.PaymentRecord, error) {
	rows, err := qs.q.QueryContext(ctx, `SELECT `+paymentColumns+` FROM contributions WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution: %w", err)
	}
	recs, err := scanPayments(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &dues.NotFoundError{Entity: "payment", ID: string(id)}
	}
	return &recs[0], nil
}

func (qs queries) DeletePayment(ctx context.Context, id dues.RecordID) error {
	res, err := qs.q.ExecContext(ctx, `DELETE FROM contributions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contribution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &dues.NotFoundError{Entity: "payment", ID: string(id)}
	}
	return nil
}

func (qs queries) ListPayments(ctx context.Context, filter dues.PaymentFilter) ([]dues.PaymentRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.TypeID != "" {
		where = append(where, "contribution_type_id = ?")
		args = append(args, filter.TypeID)
	}
	if filter.SubjectID != "" {
		where = append(where, "member_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.Period != "" {
		where = append(where, "payment_period = ?")
		args = append(args, filter.Period)
	}
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}

	query := `SELECT ` + paymentColumns + ` FROM contributions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY seq ASC`

	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contributions: %w", err)
	}
	return scanPayments(rows)
}

func scanPayments(rows *sql.Rows) ([]dues.PaymentRecord, error) {
	defer rows.Close()

	var recs []dues.PaymentRecord
	for rows.Next() {
		var (
			rec         dues.PaymentRecord
			walletID    sql.NullString
			amount      string
			paymentDate string
			period      sql.NullString
			method      sql.NullString
			status      string
			notes       sql.NullString
			verifiedAt  sql.NullString
			verifiedBy  sql.NullString
			createdAt   string
		)
		err := rows.Scan(&rec.ID, &rec.SubjectID, &rec.TypeID, &walletID, &amount, &paymentDate,
			&period, &method, &status, &notes, &verifiedAt, &verifiedBy, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}

		rec.WalletID = dues.WalletID(walletID.String)
		rec.Amount = parseDecimal(amount)
		if d, err := dues.ParseDate(paymentDate); err == nil {
			rec.PaymentDate = d
		}
		rec.PaymentPeriod = period.String
		rec.Method = method.String
		rec.Status = dues.PaymentStatus(status)
		rec.Notes = notes.String
		rec.VerifiedBy = verifiedBy.String
		if verifiedAt.Valid {
			if t, err := time.Parse(time.RFC3339, verifiedAt.String); err == nil {
				rec.VerifiedAt = &t
			}
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *dues.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(s sql.NullString) *dues.Date {
	if !s.Valid || s.String == "" {
		return nil
	}
	d, err := dues.ParseDate(s.String)
	if err != nil {
		return nil
	}
	return &d
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// IsNotFound reports whether err came from a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, dues.ErrNotFound)
}
