// Package store defines the persistence interface for the execution engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/baharbilginay/execution-engine/internal/model"
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
//
// Status transitions and quantity edits are conditional writes: they only
// apply when the row is still in the expected status, so a racing cancel
// and sweep cannot both win.
type Store interface {
	// --- Accounts ---

	// CreateAccount persists a new account.
	CreateAccount(ctx context.Context, a *model.Account) error

	// GetAccount retrieves an account by ID. Returns model.ErrNotFound
	// if it does not exist.
	GetAccount(ctx context.Context, id string) (*model.Account, error)

	// UpdateBalance sets the account's cash balance.
	UpdateBalance(ctx context.Context, accountID string, balance decimal.Decimal) error

	// --- Positions ---

	// GetPosition retrieves one (account, symbol) position. Returns
	// model.ErrNotFound if the account holds no shares of the symbol.
	GetPosition(ctx context.Context, accountID, symbol string) (*model.Position, error)

	// ListPositions returns all positions held by an account.
	ListPositions(ctx context.Context, accountID string) ([]model.Position, error)

	// UpsertPosition inserts or replaces a position row.
	UpsertPosition(ctx context.Context, p *model.Position) error

	// DeletePosition removes a closed position.
	DeletePosition(ctx context.Context, accountID, symbol string) error

	// --- Orders ---

	// InsertOrder persists a new order.
	InsertOrder(ctx context.Context, o *model.Order) error

	// GetOrder retrieves an order by ID. Returns model.ErrNotFound if it
	// does not exist.
	GetOrder(ctx context.Context, id string) (*model.Order, error)

	// ListOrdersByStatus returns all orders in the given status across
	// accounts, oldest first.
	ListOrdersByStatus(ctx context.Context, status string) ([]model.Order, error)

	// ListAccountOrders returns an account's orders in any of the given
	// statuses, newest first.
	ListAccountOrders(ctx context.Context, accountID string, statuses ...string) ([]model.Order, error)

	// UpdateOrderQuantity sets the quantity of a still-pending order.
	// Returns model.ErrNotPending if the order has left the pending state.
	UpdateOrderQuantity(ctx context.Context, id string, quantity int64) error

	// TransitionOrder moves an order from one status to another. The write
	// only applies if the current status equals from; otherwise
	// model.ErrNotPending is returned and nothing changes.
	TransitionOrder(ctx context.Context, id, from, to string) error

	// --- Immutable trade history ---

	// InsertTrade appends an immutable execution record.
	InsertTrade(ctx context.Context, t *model.Trade) error

	// ListTradesByAccount returns all trades for an account, newest first.
	ListTradesByAccount(ctx context.Context, accountID string) ([]model.Trade, error)

	// --- Transactions ---

	// ExecTx runs fn against a transactional view of the store. Either
	// every write fn performs commits, or none does. Used to keep balance,
	// position, trade, and order-status mutations all-or-nothing.
	ExecTx(ctx context.Context, fn func(Store) error) error
}
