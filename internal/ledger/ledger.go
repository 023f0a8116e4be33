// Package ledger owns per-account cash balances. Callers are responsible
// for serializing operations on one account (the engine holds the account
// lock) and for running debit/credit inside a store transaction when they
// must commit together with position and trade writes.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/baharbilginay/execution-engine/internal/model"
	"github.com/baharbilginay/execution-engine/internal/store"
)

// Ledger applies debits and credits against a store. Construction is cheap;
// the engine rebinds it to a transactional store view per execution.
type Ledger struct {
	store store.Store
}

// New creates a Ledger over the given store.
func New(st store.Store) *Ledger {
	return &Ledger{store: st}
}

// Balance returns the account's current cash balance.
func (l *Ledger) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	a, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return a.CashBalance, nil
}

// Debit decreases the account's balance by amount and returns the new
// balance. Fails with model.ErrInsufficientFunds if amount exceeds the
// current balance; the balance can never go negative.
func (l *Ledger) Debit(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("debit amount %s is negative", amount)
	}

	a, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.GreaterThan(a.CashBalance) {
		return decimal.Zero, fmt.Errorf("debit %s from balance %s: %w",
			amount, a.CashBalance, model.ErrInsufficientFunds)
	}

	newBalance := a.CashBalance.Sub(amount)
	if err := l.store.UpdateBalance(ctx, accountID, newBalance); err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// Credit increases the account's balance by amount and returns the new
// balance. Amount must be non-negative.
func (l *Ledger) Credit(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("credit amount %s is negative", amount)
	}

	a, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	newBalance := a.CashBalance.Add(amount)
	if err := l.store.UpdateBalance(ctx, accountID, newBalance); err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}
