// Package model defines the core domain types shared across the execution
// engine. All monetary values use shopspring/decimal — never float64 for
// money. Share quantities are whole numbers (int64).
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order sides.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Order lifecycle statuses. A pending order moves to processing while a
// sweep executes it, then to completed. Completed and cancelled are terminal.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Account holds a user's cash balance. The balance is mutated only by the
// ledger and never goes negative after a committed operation.
type Account struct {
	ID          string          `json:"id" db:"id"`
	CashBalance decimal.Decimal `json:"cash_balance" db:"cash_balance"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Position is one account's holding in one symbol. AverageCost is the
// quantity-weighted average purchase price; sells never change it. A
// position whose quantity reaches zero is deleted rather than kept as a
// zero row.
type Position struct {
	AccountID   string          `json:"account_id" db:"account_id"`
	Symbol      string          `json:"symbol" db:"symbol"`
	Quantity    int64           `json:"quantity" db:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost" db:"average_cost"`
}

// Order is a buy/sell instruction accepted while the market is closed,
// awaiting execution by a sweep. RequestedPrice is the quote at submission
// time; the sweep re-quotes and falls back to it only when no fresh quote
// exists. Quantity may be edited by the owner while the order is pending.
type Order struct {
	ID             string          `json:"id" db:"id"`
	AccountID      string          `json:"account_id" db:"account_id"`
	Symbol         string          `json:"symbol" db:"symbol"`
	Quantity       int64           `json:"quantity" db:"quantity"`
	RequestedPrice decimal.Decimal `json:"requested_price" db:"requested_price"`
	Side           string          `json:"side" db:"side"`
	Status         string          `json:"status" db:"status"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Trade is an immutable record of one execution. Once created, these are
// never modified or deleted — the audit trail. Exactly one trade exists per
// executed order, immediate or swept.
type Trade struct {
	ID         string          `json:"id" db:"id"`
	AccountID  string          `json:"account_id" db:"account_id"`
	Symbol     string          `json:"symbol" db:"symbol"`
	Quantity   int64           `json:"quantity" db:"quantity"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Side       string          `json:"side" db:"side"`
	ExecutedAt time.Time       `json:"executed_at" db:"executed_at"`
}

// ValidSide reports whether s is a recognized order side.
func ValidSide(s string) bool {
	return s == SideBuy || s == SideSell
}
