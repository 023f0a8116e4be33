// Package engine is the order-submission entry point. It decides whether a
// buy/sell instruction executes immediately or queues as a pending order,
// and mutates cash balance, position, and trade history atomically under a
// per-account lock.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/baharbilginay/execution-engine/internal/calendar"
	"github.com/baharbilginay/execution-engine/internal/ledger"
	"github.com/baharbilginay/execution-engine/internal/metrics"
	"github.com/baharbilginay/execution-engine/internal/model"
	"github.com/baharbilginay/execution-engine/internal/oracle"
	"github.com/baharbilginay/execution-engine/internal/orderqueue"
	"github.com/baharbilginay/execution-engine/internal/position"
	"github.com/baharbilginay/execution-engine/internal/store"
)

// Outcome is the result of a submission: either an immediate execution with
// its trade, or a queued order awaiting the next sweep.
type Outcome struct {
	Executed bool
	Trade    *model.Trade // set when Executed
	OrderID  string       // set when queued
}

// Engine orchestrates the market calendar, price oracle, ledger, position
// book, and order queue. All state touching one account is serialized by a
// per-account mutex; different accounts proceed fully in parallel.
type Engine struct {
	store    store.Store
	oracle   oracle.Oracle
	calendar *calendar.Calendar
	queue    *orderqueue.Queue
	events   Publisher // optional, may be nil
	locks    *accountLocks

	// Now is the clock used for market-hours checks and timestamps.
	// Overridable in tests.
	Now func() time.Time
}

// New creates an Engine. Pass nil for events if no notification channel is
// wired.
func New(st store.Store, orc oracle.Oracle, cal *calendar.Calendar, q *orderqueue.Queue, events Publisher) *Engine {
	return &Engine{
		store:    st,
		oracle:   orc,
		calendar: cal,
		queue:    q,
		events:   events,
		locks:    newAccountLocks(),
		Now:      time.Now,
	}
}

// Submit validates and routes one buy/sell instruction.
//
// Market open: execute immediately against ledger + position book + trade
// history. Insufficient funds or shares reject the whole submission — such
// orders are never queued. Market closed: enqueue pending with the current
// quote as requested price; nothing is reserved, the solvency/share check
// reruns at sweep time.
func (e *Engine) Submit(ctx context.Context, accountID, symbol string, quantity int64, side string) (*Outcome, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("submit %d shares: %w", quantity, model.ErrInvalidQuantity)
	}
	if !model.ValidSide(side) {
		return nil, fmt.Errorf("submit side %q: %w", side, model.ErrInvalidSide)
	}

	quote, err := e.oracle.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(accountID)
	defer unlock()

	if !e.calendar.IsOpen(e.Now()) {
		order := &model.Order{
			AccountID:      accountID,
			Symbol:         symbol,
			Quantity:       quantity,
			RequestedPrice: quote.Price,
			Side:           side,
			CreatedAt:      e.Now().UTC(),
		}
		orderID, err := e.queue.Enqueue(ctx, order)
		if err != nil {
			return nil, err
		}

		metrics.OrdersSubmitted.WithLabelValues(side, "queued").Inc()
		slog.Info("order queued",
			"order_id", orderID, "account", accountID,
			"symbol", symbol, "side", side, "qty", quantity,
			"requested_price", quote.Price.String())
		e.publish(Event{
			Type: EventOrderQueued, AccountID: accountID, OrderID: orderID,
			Symbol: symbol, Side: side, Quantity: quantity, Price: quote.Price.String(),
		})
		return &Outcome{OrderID: orderID}, nil
	}

	trade, err := e.settle(ctx, accountID, symbol, quantity, quote.Price, side, nil)
	if err != nil {
		metrics.OrdersSubmitted.WithLabelValues(side, "rejected").Inc()
		return nil, err
	}

	metrics.OrdersSubmitted.WithLabelValues(side, "executed").Inc()
	return &Outcome{Executed: true, Trade: trade}, nil
}

// ExecuteOrder is the sweep executor for one claimed (processing) order. It
// re-quotes the symbol, falling back to the order's requested price when
// the oracle has nothing fresh, and settles under the order's account
// lock, committing the processing→completed transition in the same store
// transaction as the money movement.
func (e *Engine) ExecuteOrder(ctx context.Context, o *model.Order) error {
	price := o.RequestedPrice
	if quote, err := e.oracle.Quote(ctx, o.Symbol); err == nil && quote.Price.IsPositive() {
		price = quote.Price
	}
	if !price.IsPositive() {
		return fmt.Errorf("order %s has no usable price: %w", o.ID, model.ErrPriceUnavailable)
	}

	unlock := e.locks.Lock(o.AccountID)
	defer unlock()

	_, err := e.settle(ctx, o.AccountID, o.Symbol, o.Quantity, price, o.Side, o)
	return err
}

// RunSweep executes all pending orders if the market is open. Invoked by
// the scheduler at its configured cadence; per-order failures are reported
// and published, never fatal.
func (e *Engine) RunSweep(ctx context.Context) ([]orderqueue.SweepResult, error) {
	if !e.calendar.IsOpen(e.Now()) {
		return nil, nil
	}

	metrics.SweepRuns.Inc()
	results, err := e.queue.Sweep(ctx, e.ExecuteOrder)
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.Err == nil {
			continue
		}
		metrics.SweepOrderFailures.Inc()
		slog.Warn("pending order execution failed",
			"order_id", r.Order.ID, "account", r.Order.AccountID,
			"symbol", r.Order.Symbol, "err", r.Err)
		e.publish(Event{
			Type: EventOrderFailed, AccountID: r.Order.AccountID,
			OrderID: r.Order.ID, Symbol: r.Order.Symbol,
			Side: r.Order.Side, Quantity: r.Order.Quantity,
			Reason: r.Err.Error(),
		})
	}
	return results, nil
}

// settle moves cash and shares for one execution and appends the trade, all
// inside a single store transaction. When order is non-nil the sweep path
// also commits its processing→completed transition atomically. Caller must
// hold the account lock.
func (e *Engine) settle(ctx context.Context, accountID, symbol string, quantity int64, price decimal.Decimal, side string, order *model.Order) (*model.Trade, error) {
	trade := &model.Trade{
		ID:         uuid.New().String(),
		AccountID:  accountID,
		Symbol:     symbol,
		Quantity:   quantity,
		Price:      price,
		Side:       side,
		ExecutedAt: e.Now().UTC(),
	}

	err := e.store.ExecTx(ctx, func(tx store.Store) error {
		lg := ledger.New(tx)
		book := position.New(tx)

		if side == model.SideBuy {
			total := price.Mul(decimal.NewFromInt(quantity))
			if _, err := lg.Debit(ctx, accountID, total); err != nil {
				return err
			}
			if _, err := book.ApplyBuy(ctx, accountID, symbol, quantity, price); err != nil {
				return err
			}
		} else {
			if _, err := book.ApplySell(ctx, accountID, symbol, quantity); err != nil {
				return err
			}
			proceeds := price.Mul(decimal.NewFromInt(quantity))
			if _, err := lg.Credit(ctx, accountID, proceeds); err != nil {
				return err
			}
		}

		if err := tx.InsertTrade(ctx, trade); err != nil {
			return err
		}
		if order != nil {
			return tx.TransitionOrder(ctx, order.ID, model.StatusProcessing, model.StatusCompleted)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TradesExecuted.WithLabelValues(side).Inc()
	slog.Info("trade executed",
		"trade_id", trade.ID, "account", accountID, "symbol", symbol,
		"side", side, "qty", quantity, "price", price.String())
	e.publish(Event{
		Type: EventTradeExecuted, AccountID: accountID, TradeID: trade.ID,
		Symbol: symbol, Side: side, Quantity: quantity, Price: price.String(),
	})
	return trade, nil
}

func (e *Engine) publish(ev Event) {
	if e.events != nil {
		e.events.Publish(ev)
	}
}
