// Package position owns per-account per-symbol holdings and their
// quantity-weighted average cost.
package position

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/baharbilginay/execution-engine/internal/model"
	"github.com/baharbilginay/execution-engine/internal/store"
)

// Book applies buy/sell deltas against a store. Like the ledger, it is
// rebound to a transactional store view per execution and relies on the
// engine's per-account lock for serialization.
type Book struct {
	store store.Store
}

// New creates a Book over the given store.
func New(st store.Store) *Book {
	return &Book{store: st}
}

// Get returns the (account, symbol) position, or model.ErrNotFound.
func (b *Book) Get(ctx context.Context, accountID, symbol string) (*model.Position, error) {
	return b.store.GetPosition(ctx, accountID, symbol)
}

// List returns all positions held by the account.
func (b *Book) List(ctx context.Context, accountID string) ([]model.Position, error) {
	return b.store.ListPositions(ctx, accountID)
}

// ApplyBuy adds quantity shares at price. A first buy creates the position
// with averageCost = price; subsequent buys recompute the weighted average:
//
//	avg' = (oldQty*oldAvg + qty*price) / (oldQty + qty)
func (b *Book) ApplyBuy(ctx context.Context, accountID, symbol string, quantity int64, price decimal.Decimal) (*model.Position, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("buy %d shares: %w", quantity, model.ErrInvalidQuantity)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("buy price %s is negative", price)
	}

	p, err := b.store.GetPosition(ctx, accountID, symbol)
	switch {
	case errors.Is(err, model.ErrNotFound):
		p = &model.Position{
			AccountID:   accountID,
			Symbol:      symbol,
			Quantity:    quantity,
			AverageCost: price,
		}
	case err != nil:
		return nil, err
	default:
		oldQty := decimal.NewFromInt(p.Quantity)
		newQty := decimal.NewFromInt(quantity)
		totalCost := oldQty.Mul(p.AverageCost).Add(newQty.Mul(price))
		p.Quantity += quantity
		p.AverageCost = totalCost.Div(oldQty.Add(newQty))
	}

	if err := b.store.UpsertPosition(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplySell removes quantity shares. Fails with model.ErrInsufficientShares
// if the account holds fewer shares than requested. AverageCost is left
// unchanged; realized P/L is computed by the caller from the execution
// price, not stored here. A position sold down to zero is deleted.
func (b *Book) ApplySell(ctx context.Context, accountID, symbol string, quantity int64) (*model.Position, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("sell %d shares: %w", quantity, model.ErrInvalidQuantity)
	}

	p, err := b.store.GetPosition(ctx, accountID, symbol)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("sell %d %s with no position: %w", quantity, symbol, model.ErrInsufficientShares)
	}
	if err != nil {
		return nil, err
	}
	if quantity > p.Quantity {
		return nil, fmt.Errorf("sell %d of %d held: %w", quantity, p.Quantity, model.ErrInsufficientShares)
	}

	p.Quantity -= quantity
	if p.Quantity == 0 {
		if err := b.store.DeletePosition(ctx, accountID, symbol); err != nil {
			return nil, err
		}
		return p, nil
	}

	if err := b.store.UpsertPosition(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
