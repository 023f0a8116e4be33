package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/baharbilginay/execution-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for the hot per-account reads: balance and positions. Writes go to
// the primary store and invalidate the cache; order and trade queries pass
// through uncached.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{primary: primary, rdb: rdb, ttl: ttl}
}

// --- Accounts ---

func (s *CachedStore) CreateAccount(ctx context.Context, a *model.Account) error {
	if err := s.primary.CreateAccount(ctx, a); err != nil {
		return err
	}
	s.cacheAccount(ctx, a)
	return nil
}

func (s *CachedStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	data, err := s.rdb.Get(ctx, accountKey(id)).Bytes()
	if err == nil {
		var a model.Account
		if json.Unmarshal(data, &a) == nil {
			return &a, nil
		}
	}

	a, err := s.primary.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheAccount(ctx, a)
	return a, nil
}

func (s *CachedStore) UpdateBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	if err := s.primary.UpdateBalance(ctx, accountID, balance); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, accountKey(accountID))
	return nil
}

// --- Positions ---

func (s *CachedStore) GetPosition(ctx context.Context, accountID, symbol string) (*model.Position, error) {
	return s.primary.GetPosition(ctx, accountID, symbol)
}

func (s *CachedStore) ListPositions(ctx context.Context, accountID string) ([]model.Position, error) {
	data, err := s.rdb.Get(ctx, positionsKey(accountID)).Bytes()
	if err == nil {
		var positions []model.Position
		if json.Unmarshal(data, &positions) == nil {
			return positions, nil
		}
	}

	positions, err := s.primary.ListPositions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(positions); err == nil {
		s.rdb.Set(ctx, positionsKey(accountID), data, s.ttl)
	}
	return positions, nil
}

func (s *CachedStore) UpsertPosition(ctx context.Context, p *model.Position) error {
	if err := s.primary.UpsertPosition(ctx, p); err != nil {
		return err
	}
	s.rdb.Del(ctx, positionsKey(p.AccountID))
	return nil
}

func (s *CachedStore) DeletePosition(ctx context.Context, accountID, symbol string) error {
	if err := s.primary.DeletePosition(ctx, accountID, symbol); err != nil {
		return err
	}
	s.rdb.Del(ctx, positionsKey(accountID))
	return nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) InsertOrder(ctx context.Context, o *model.Order) error {
	return s.primary.InsertOrder(ctx, o)
}

func (s *CachedStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return s.primary.GetOrder(ctx, id)
}

func (s *CachedStore) ListOrdersByStatus(ctx context.Context, status string) ([]model.Order, error) {
	return s.primary.ListOrdersByStatus(ctx, status)
}

func (s *CachedStore) ListAccountOrders(ctx context.Context, accountID string, statuses ...string) ([]model.Order, error) {
	return s.primary.ListAccountOrders(ctx, accountID, statuses...)
}

func (s *CachedStore) UpdateOrderQuantity(ctx context.Context, id string, quantity int64) error {
	return s.primary.UpdateOrderQuantity(ctx, id, quantity)
}

func (s *CachedStore) TransitionOrder(ctx context.Context, id, from, to string) error {
	return s.primary.TransitionOrder(ctx, id, from, to)
}

func (s *CachedStore) InsertTrade(ctx context.Context, t *model.Trade) error {
	return s.primary.InsertTrade(ctx, t)
}

func (s *CachedStore) ListTradesByAccount(ctx context.Context, accountID string) ([]model.Trade, error) {
	return s.primary.ListTradesByAccount(ctx, accountID)
}

// ExecTx delegates to the primary transaction and wraps the transactional
// view so writes inside fn still invalidate cache keys.
func (s *CachedStore) ExecTx(ctx context.Context, fn func(Store) error) error {
	return s.primary.ExecTx(ctx, func(tx Store) error {
		return fn(&CachedStore{primary: tx, rdb: s.rdb, ttl: s.ttl})
	})
}

// --- Cache helpers ---

func (s *CachedStore) cacheAccount(ctx context.Context, a *model.Account) {
	if data, err := json.Marshal(a); err == nil {
		s.rdb.Set(ctx, accountKey(a.ID), data, s.ttl)
	}
}

func accountKey(id string) string { return fmt.Sprintf("account:%s", id) }
func positionsKey(id string) string { return fmt.Sprintf("positions:%s", id) }
