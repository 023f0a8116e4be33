package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/baharbilginay/execution-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	txMu      sync.Mutex // serializes ExecTx snapshot/restore
	accounts  map[string]*model.Account
	positions map[string]map[string]*model.Position // accountID → symbol → position
	orders    map[string]*model.Order
	trades    []model.Trade
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:  make(map[string]*model.Account),
		positions: make(map[string]map[string]*model.Position),
		orders:    make(map[string]*model.Order),
	}
}

// --- Accounts ---

func (s *MemoryStore) CreateAccount(_ context.Context, a *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.ID]; ok {
		return fmt.Errorf("account %s already exists", a.ID)
	}
	// Store a copy to avoid external mutation.
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, model.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) UpdateBalance(_ context.Context, accountID string, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return fmt.Errorf("account %s: %w", accountID, model.ErrNotFound)
	}
	a.CashBalance = balance
	return nil
}

// --- Positions ---

func (s *MemoryStore) GetPosition(_ context.Context, accountID, symbol string) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[accountID][symbol]
	if !ok {
		return nil, fmt.Errorf("position %s/%s: %w", accountID, symbol, model.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListPositions(_ context.Context, accountID string) ([]model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var positions []model.Position
	for _, p := range s.positions[accountID] {
		positions = append(positions, *p)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })
	return positions, nil
}

func (s *MemoryStore) UpsertPosition(_ context.Context, p *model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bySymbol, ok := s.positions[p.AccountID]
	if !ok {
		bySymbol = make(map[string]*model.Position)
		s.positions[p.AccountID] = bySymbol
	}
	cp := *p
	bySymbol[p.Symbol] = &cp
	return nil
}

func (s *MemoryStore) DeletePosition(_ context.Context, accountID, symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.positions[accountID], symbol)
	return nil
}

// --- Orders ---

func (s *MemoryStore) InsertOrder(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[o.ID]; ok {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, model.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) ListOrdersByStatus(_ context.Context, status string) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []model.Order
	for _, o := range s.orders {
		if o.Status == status {
			orders = append(orders, *o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	return orders, nil
}

func (s *MemoryStore) ListAccountOrders(_ context.Context, accountID string, statuses ...string) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}

	var orders []model.Order
	for _, o := range s.orders {
		if o.AccountID == accountID && (len(want) == 0 || want[o.Status]) {
			orders = append(orders, *o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (s *MemoryStore) UpdateOrderQuantity(_ context.Context, id string, quantity int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, model.ErrNotFound)
	}
	if o.Status != model.StatusPending {
		return fmt.Errorf("order %s is %s: %w", id, o.Status, model.ErrNotPending)
	}
	o.Quantity = quantity
	return nil
}

func (s *MemoryStore) TransitionOrder(_ context.Context, id, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, model.ErrNotFound)
	}
	if o.Status != from {
		return fmt.Errorf("order %s is %s, not %s: %w", id, o.Status, from, model.ErrNotPending)
	}
	o.Status = to
	return nil
}

// --- Trades ---

func (s *MemoryStore) InsertTrade(_ context.Context, t *model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = append(s.trades, *t)
	return nil
}

func (s *MemoryStore) ListTradesByAccount(_ context.Context, accountID string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var trades []model.Trade
	for _, t := range s.trades {
		if t.AccountID == accountID {
			trades = append(trades, t)
		}
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].ExecutedAt.After(trades[j].ExecutedAt) })
	return trades, nil
}

// --- Transactions ---

// ExecTx snapshots the whole store, runs fn, and restores the snapshot if fn
// fails. Transactions serialize against each other via txMu. A
// non-transactional write racing a failing transaction can be lost to the
// restore; good enough for a test/dev store, PostgreSQL is the real thing.
func (s *MemoryStore) ExecTx(_ context.Context, fn func(Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	accounts  map[string]*model.Account
	positions map[string]map[string]*model.Position
	orders    map[string]*model.Order
	trades    []model.Trade
}

func (s *MemoryStore) snapshot() memSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := memSnapshot{
		accounts:  make(map[string]*model.Account, len(s.accounts)),
		positions: make(map[string]map[string]*model.Position, len(s.positions)),
		orders:    make(map[string]*model.Order, len(s.orders)),
		trades:    make([]model.Trade, len(s.trades)),
	}
	for id, a := range s.accounts {
		cp := *a
		snap.accounts[id] = &cp
	}
	for acct, bySymbol := range s.positions {
		m := make(map[string]*model.Position, len(bySymbol))
		for sym, p := range bySymbol {
			cp := *p
			m[sym] = &cp
		}
		snap.positions[acct] = m
	}
	for id, o := range s.orders {
		cp := *o
		snap.orders[id] = &cp
	}
	copy(snap.trades, s.trades)
	return snap
}

func (s *MemoryStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = snap.accounts
	s.positions = snap.positions
	s.orders = snap.orders
	s.trades = snap.trades
}
