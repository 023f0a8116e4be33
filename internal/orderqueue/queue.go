// Package orderqueue owns the pending-order state machine. Orders enter in
// pending when the market is closed, move to processing while a sweep
// executes them, and end in completed or cancelled. An order whose
// execution fails during a sweep returns to pending — it is never lost and
// never stuck in processing.
package orderqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/baharbilginay/execution-engine/internal/model"
	"github.com/baharbilginay/execution-engine/internal/store"
)

// Executor runs one pending order end to end: re-quote, move money and
// shares, append the trade, and complete the order — all inside one store
// transaction. The engine provides it.
type Executor func(ctx context.Context, o *model.Order) error

// SweepResult reports the outcome of one order within a sweep.
type SweepResult struct {
	Order model.Order
	Err   error // nil on success; the order was returned to pending otherwise
}

// Queue manages order persistence and lifecycle transitions.
type Queue struct {
	store store.Store
}

// New creates a Queue over the given store.
func New(st store.Store) *Queue {
	return &Queue{store: st}
}

// Enqueue inserts o as a pending order and returns its ID. The caller fills
// in account, symbol, quantity, side, and requested price; the queue assigns
// ID, status, and creation time.
func (q *Queue) Enqueue(ctx context.Context, o *model.Order) (string, error) {
	if o.Quantity <= 0 {
		return "", fmt.Errorf("enqueue %d shares: %w", o.Quantity, model.ErrInvalidQuantity)
	}
	if !model.ValidSide(o.Side) {
		return "", fmt.Errorf("enqueue side %q: %w", o.Side, model.ErrInvalidSide)
	}
	if !o.RequestedPrice.IsPositive() {
		return "", fmt.Errorf("enqueue price %s: %w", o.RequestedPrice, model.ErrPriceUnavailable)
	}

	o.ID = uuid.New().String()
	o.Status = model.StatusPending
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}

	if err := q.store.InsertOrder(ctx, o); err != nil {
		return "", err
	}
	return o.ID, nil
}

// Cancel transitions a pending order to cancelled. Only the owning account
// may cancel, and only while the order is still pending; a cancel racing a
// sweep loses with model.ErrNotPending once the sweep has claimed the order.
func (q *Queue) Cancel(ctx context.Context, orderID, accountID string) error {
	o, err := q.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o.AccountID != accountID {
		return fmt.Errorf("order %s: %w", orderID, model.ErrNotOwner)
	}
	return q.store.TransitionOrder(ctx, orderID, model.StatusPending, model.StatusCancelled)
}

// EditQuantity changes a pending order's quantity. Price, symbol, and side
// are immutable. Same ownership and pending-only rules as Cancel.
func (q *Queue) EditQuantity(ctx context.Context, orderID, accountID string, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("edit to %d shares: %w", quantity, model.ErrInvalidQuantity)
	}

	o, err := q.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o.AccountID != accountID {
		return fmt.Errorf("order %s: %w", orderID, model.ErrNotOwner)
	}
	return q.store.UpdateOrderQuantity(ctx, orderID, quantity)
}

// Get returns one order by ID.
func (q *Queue) Get(ctx context.Context, orderID string) (*model.Order, error) {
	return q.store.GetOrder(ctx, orderID)
}

// ListOpen returns an account's pending and processing orders, newest first.
func (q *Queue) ListOpen(ctx context.Context, accountID string) ([]model.Order, error) {
	return q.store.ListAccountOrders(ctx, accountID, model.StatusPending, model.StatusProcessing)
}

// Sweep attempts to execute every pending order. Each order is claimed with
// a pending→processing transition (skipping orders a racing cancel got to
// first), handed to the executor, and returned to pending if execution
// fails. The executor itself commits the processing→completed transition
// together with the money movement, so a crash can never leave a completed
// order without its trade.
//
// Per-order failures are reported in the results, never aborting the rest
// of the sweep.
func (q *Queue) Sweep(ctx context.Context, execute Executor) ([]SweepResult, error) {
	pending, err := q.store.ListOrdersByStatus(ctx, model.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}

	var results []SweepResult
	for i := range pending {
		o := pending[i]

		if err := q.store.TransitionOrder(ctx, o.ID, model.StatusPending, model.StatusProcessing); err != nil {
			if errors.Is(err, model.ErrNotPending) {
				// Cancelled or claimed since listing; skip.
				continue
			}
			results = append(results, SweepResult{Order: o, Err: err})
			continue
		}
		o.Status = model.StatusProcessing

		// Re-read so edits made while the order sat pending are honored.
		fresh, err := q.store.GetOrder(ctx, o.ID)
		if err == nil {
			o = *fresh
		}

		if err := execute(ctx, &o); err != nil {
			// Back to pending; the order must not be lost.
			if rbErr := q.store.TransitionOrder(ctx, o.ID, model.StatusProcessing, model.StatusPending); rbErr != nil {
				slog.Error("order stuck in processing",
					"order_id", o.ID, "exec_err", err, "rollback_err", rbErr)
			}
			results = append(results, SweepResult{Order: o, Err: err})
			continue
		}
		o.Status = model.StatusCompleted
		results = append(results, SweepResult{Order: o})
	}
	return results, nil
}
