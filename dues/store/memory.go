// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/dues-engine/dues"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements dues.TxStore. Every public method takes the lock and
// delegates to an unlocked view; WithTx holds the lock for the whole
// callback and restores a snapshot when it fails.
type Memory struct {
	mu    sync.RWMutex
	state *memoryState
}

type memoryState struct {
	subjects map[dues.SubjectID]dues.Subject
	wallets  map[dues.WalletID]dues.Wallet
	types    map[dues.TypeID]dues.ContributionType
	payments map[dues.RecordID]dues.PaymentRecord
	seq      map[dues.RecordID]int // insertion order of payments
	next     int
}

func NewMemory() *Memory {
	return &Memory{state: &memoryState{
		subjects: make(map[dues.SubjectID]dues.Subject),
		wallets:  make(map[dues.WalletID]dues.Wallet),
		types:    make(map[dues.TypeID]dues.ContributionType),
		payments: make(map[dues.RecordID]dues.PaymentRecord),
		seq:      make(map[dues.RecordID]int),
	}}
}

func (m *Memory) read() dues.Store {
	return memoryView{state: m.state}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(dues.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(memoryView{state: m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// Reset drops every row.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = NewMemory().state
	return nil
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		subjects: make(map[dues.SubjectID]dues.Subject, len(s.subjects)),
		wallets:  make(map[dues.WalletID]dues.Wallet, len(s.wallets)),
		types:    make(map[dues.TypeID]dues.ContributionType, len(s.types)),
		payments: make(map[dues.RecordID]dues.PaymentRecord, len(s.payments)),
		seq:      make(map[dues.RecordID]int, len(s.seq)),
		next:     s.next,
	}
	for k, v := range s.subjects {
		c.subjects[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.types {
		c.types[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.seq {
		c.seq[k] = v
	}
	return c
}

// Locked wrappers.

func (m *Memory) SaveSubject(ctx context.Context, s dues.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().SaveSubject(ctx, s)
}

func (m *Memory) GetSubject(ctx context.Context, id dues.SubjectID) (*dues.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetSubject(ctx, id)
}

func (m *Memory) ListSubjects(ctx context.Context, activeOnly bool) ([]dues.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().ListSubjects(ctx, activeOnly)
}

func (m *Memory) SaveWallet(ctx context.Context, w dues.Wallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().SaveWallet(ctx, w)
}

func (m *Memory) GetWallet(ctx context.Context, id dues.WalletID) (*dues.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetWallet(ctx, id)
}

func (m *Memory) ListWallets(ctx context.Context) ([]dues.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().ListWallets(ctx)
}

func (m *Memory) AdjustWalletBalance(ctx context.Context, id dues.WalletID, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().AdjustWalletBalance(ctx, id, delta)
}

func (m *Memory) SaveType(ctx context.Context, t dues.ContributionType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().SaveType(ctx, t)
}

func (m *Memory) GetType(ctx context.Context, id dues.TypeID) (*dues.ContributionType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetType(ctx, id)
}

func (m *Memory) ListTypes(ctx context.Context, activeOnly bool) ([]dues.ContributionType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().ListTypes(ctx, activeOnly)
}

func (m *Memory) DeleteType(ctx context.Context, id dues.TypeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().DeleteType(ctx, id)
}

func (m *Memory) SavePayment(ctx context.Context, rec dues.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().SavePayment(ctx, rec)
}

func (m *Memory) GetPayment(ctx context.Context, id dues.RecordID) (*dues.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().GetPayment(ctx, id)
}

func (m *Memory) DeletePayment(ctx context.Context, id dues.RecordID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().DeletePayment(ctx, id)
}

func (m *Memory) ListPayments(ctx context.Context, filter dues.PaymentFilter) ([]dues.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().ListPayments(ctx, filter)
}

// =============================================================================
// UNLOCKED VIEW
// =============================================================================

type memoryView struct {
	state *memoryState
}

func (v memoryView) SaveSubject(_ context.Context, s dues.Subject) error {
	v.state.subjects[s.ID] = s
	return nil
}

func (v memoryView) GetSubject(_ context.Context, id dues.SubjectID) (*dues.Subject, error) {
	s, ok := v.state.subjects[id]
	if !ok {
		return nil, &dues.NotFoundError{Entity: "member", ID: string(id)}
	}
	return &s, nil
}

func (v memoryView) ListSubjects(_ context.Context, activeOnly bool) ([]dues.Subject, error) {
	out := make([]dues.Subject, 0, len(v.state.subjects))
	for _, s := range v.state.subjects {
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SaveWallet keeps the balance of an existing wallet; only
// AdjustWalletBalance moves it.
func (v memoryView) SaveWallet(_ context.Context, w dues.Wallet) error {
	if old, ok := v.state.wallets[w.ID]; ok {
		w.Balance = old.Balance
	}
	v.state.wallets[w.ID] = w
	return nil
}

func (v memoryView) GetWallet(_ context.Context, id dues.WalletID) (*dues.Wallet, error) {
	w, ok := v.state.wallets[id]
	if !ok {
		return nil, &dues.NotFoundError{Entity: "wallet", ID: string(id)}
	}
	return &w, nil
}

func (v memoryView) ListWallets(_ context.Context) ([]dues.Wallet, error) {
	out := make([]dues.Wallet, 0, len(v.state.wallets))
	for _, w := range v.state.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (v memoryView) AdjustWalletBalance(_ context.Context, id dues.WalletID, delta decimal.Decimal) error {
	w, ok := v.state.wallets[id]
	if !ok {
		return &dues.NotFoundError{Entity: "wallet", ID: string(id)}
	}
	w.Balance = w.Balance.Add(delta)
	v.state.wallets[id] = w
	return nil
}

func (v memoryView) SaveType(_ context.Context, t dues.ContributionType) error {
	v.state.types[t.ID] = t
	return nil
}

func (v memoryView) GetType(_ context.Context, id dues.TypeID) (*dues.ContributionType, error) {
	t, ok := v.state.types[id]
	if !ok {
		return nil, &dues.NotFoundError{Entity: "contribution type", ID: string(id)}
	}
	return &t, nil
}

func (v memoryView) ListTypes(_ context.Context, activeOnly bool) ([]dues.ContributionType, error) {
	out := make([]dues.ContributionType, 0, len(v.state.types))
	for _, t := range v.state.types {
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (v memoryView) DeleteType(_ context.Context, id dues.TypeID) error {
	if _, ok := v.state.types[id]; !ok {
		return &dues.NotFoundError{Entity: "contribution type", ID: string(id)}
	}
	delete(v.state.types, id)
	return nil
}

func (v memoryView) SavePayment(_ context.Context, rec dues.PaymentRecord) error {
	if _, ok := v.state.seq[rec.ID]; !ok {
		v.state.seq[rec.ID] = v.state.next
		v.state.next++
	}
	v.state.payments[rec.ID] = rec
	return nil
}

func (v memoryView) GetPayment(_ context.Context, id dues.RecordID) (*dues.PaymentRecord, error) {
	rec, ok := v.state.payments[id]
	if !ok {
		return nil, &dues.NotFoundError{Entity: "payment", ID: string(id)}
	}
	return &rec, nil
}

func (v memoryView) DeletePayment(_ context.Context, id dues.RecordID) error {
	if _, ok := v.state.payments[id]; !ok {
		return &dues.NotFoundError{Entity: "payment", ID: string(id)}
	}
	delete(v.state.payments, id)
	delete(v.state.seq, id)
	return nil
}

func (v memoryView) ListPayments(_ context.Context, filter dues.PaymentFilter) ([]dues.PaymentRecord, error) {
	var out []dues.PaymentRecord
	for _, rec := range v.state.payments {
		if filter.Matches(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return v.state.seq[out[i].ID] < v.state.seq[out[j].ID]
	})
	return out, nil
}
