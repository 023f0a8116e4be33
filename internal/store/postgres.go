package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/baharbilginay/execution-engine/internal/model"
)

// pgxConn is satisfied by both *pgxpool.Pool and pgx.Tx, so the same query
// methods serve direct and transactional use.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	conn pgxConn
	pool *pgxpool.Pool // nil inside a transaction
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{conn: pool, pool: pool}
}

// --- Accounts ---

func (s *PostgresStore) CreateAccount(ctx context.Context, a *model.Account) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO accounts (id, cash_balance, created_at)
		 VALUES ($1, $2::NUMERIC, $3)`,
		a.ID, a.CashBalance.String(), a.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	var a model.Account
	var balance string

	err := s.conn.QueryRow(ctx,
		`SELECT id, cash_balance::TEXT, created_at FROM accounts WHERE id = $1`, id).
		Scan(&a.ID, &balance, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", id, err)
	}

	a.CashBalance, _ = decimal.NewFromString(balance)
	return &a, nil
}

func (s *PostgresStore) UpdateBalance(ctx context.Context, accountID string, balance decimal.Decimal) error {
	tag, err := s.conn.Exec(ctx,
		`UPDATE accounts SET cash_balance = $2::NUMERIC WHERE id = $1`,
		accountID, balance.String(),
	)
	if err != nil {
		return fmt.Errorf("update balance %s: %w", accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", accountID, model.ErrNotFound)
	}
	return nil
}

// --- Positions ---

func (s *PostgresStore) GetPosition(ctx context.Context, accountID, symbol string) (*model.Position, error) {
	var p model.Position
	var avgCost string

	err := s.conn.QueryRow(ctx,
		`SELECT account_id, symbol, quantity, average_cost::TEXT
		 FROM positions WHERE account_id = $1 AND symbol = $2`,
		accountID, symbol).
		Scan(&p.AccountID, &p.Symbol, &p.Quantity, &avgCost)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("position %s/%s: %w", accountID, symbol, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get position %s/%s: %w", accountID, symbol, err)
	}

	p.AverageCost, _ = decimal.NewFromString(avgCost)
	return &p, nil
}

func (s *PostgresStore) ListPositions(ctx context.Context, accountID string) ([]model.Position, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT account_id, symbol, quantity, average_cost::TEXT
		 FROM positions WHERE account_id = $1 ORDER BY symbol`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []model.Position
	for rows.Next() {
		var p model.Position
		var avgCost string
		if err := rows.Scan(&p.AccountID, &p.Symbol, &p.Quantity, &avgCost); err != nil {
			return nil, err
		}
		p.AverageCost, _ = decimal.NewFromString(avgCost)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func (s *PostgresStore) UpsertPosition(ctx context.Context, p *model.Position) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO positions (account_id, symbol, quantity, average_cost)
		 VALUES ($1, $2, $3, $4::NUMERIC)
		 ON CONFLICT (account_id, symbol)
		 DO UPDATE SET quantity = EXCLUDED.quantity, average_cost = EXCLUDED.average_cost`,
		p.AccountID, p.Symbol, p.Quantity, p.AverageCost.String(),
	)
	return err
}

func (s *PostgresStore) DeletePosition(ctx context.Context, accountID, symbol string) error {
	_, err := s.conn.Exec(ctx,
		`DELETE FROM positions WHERE account_id = $1 AND symbol = $2`,
		accountID, symbol,
	)
	return err
}

// --- Orders ---

func (s *PostgresStore) InsertOrder(ctx context.Context, o *model.Order) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO orders (id, account_id, symbol, quantity, requested_price, side, status, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6, $7, $8)`,
		o.ID, o.AccountID, o.Symbol, o.Quantity,
		o.RequestedPrice.String(), o.Side, o.Status, o.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT id, account_id, symbol, quantity, requested_price::TEXT, side, status, created_at
		 FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return o, nil
}

func (s *PostgresStore) ListOrdersByStatus(ctx context.Context, status string) ([]model.Order, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, account_id, symbol, quantity, requested_price::TEXT, side, status, created_at
		 FROM orders WHERE status = $1 ORDER BY created_at`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrders(rows)
}

func (s *PostgresStore) ListAccountOrders(ctx context.Context, accountID string, statuses ...string) ([]model.Order, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, account_id, symbol, quantity, requested_price::TEXT, side, status, created_at
		 FROM orders
		 WHERE account_id = $1 AND (cardinality($2::TEXT[]) = 0 OR status = ANY($2::TEXT[]))
		 ORDER BY created_at DESC`, accountID, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOrders(rows)
}

func (s *PostgresStore) UpdateOrderQuantity(ctx context.Context, id string, quantity int64) error {
	tag, err := s.conn.Exec(ctx,
		`UPDATE orders SET quantity = $2 WHERE id = $1 AND status = $3`,
		id, quantity, model.StatusPending,
	)
	if err != nil {
		return fmt.Errorf("update order %s quantity: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", id, model.ErrNotPending)
	}
	return nil
}

func (s *PostgresStore) TransitionOrder(ctx context.Context, id, from, to string) error {
	tag, err := s.conn.Exec(ctx,
		`UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`,
		id, from, to,
	)
	if err != nil {
		return fmt.Errorf("transition order %s %s→%s: %w", id, from, to, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s not in %s: %w", id, from, model.ErrNotPending)
	}
	return nil
}

// --- Trades ---

func (s *PostgresStore) InsertTrade(ctx context.Context, t *model.Trade) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO trades (id, account_id, symbol, quantity, price, side, executed_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6, $7)`,
		t.ID, t.AccountID, t.Symbol, t.Quantity, t.Price.String(), t.Side, t.ExecutedAt,
	)
	return err
}

func (s *PostgresStore) ListTradesByAccount(ctx context.Context, accountID string) ([]model.Trade, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, account_id, symbol, quantity, price::TEXT, side, executed_at
		 FROM trades WHERE account_id = $1 ORDER BY executed_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var price string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Symbol, &t.Quantity, &price, &t.Side, &t.ExecutedAt); err != nil {
			return nil, err
		}
		t.Price, _ = decimal.NewFromString(price)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// --- Transactions ---

// ExecTx runs fn inside a database transaction. Nested calls reuse the
// enclosing transaction.
func (s *PostgresStore) ExecTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %v: %w", err, model.ErrTransientStore)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresStore{conn: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %v: %w", err, model.ErrTransientStore)
	}
	return nil
}

// --- Row scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var o model.Order
	var price string

	if err := row.Scan(&o.ID, &o.AccountID, &o.Symbol, &o.Quantity,
		&price, &o.Side, &o.Status, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.RequestedPrice, _ = decimal.NewFromString(price)
	return &o, nil
}

func scanOrders(rows pgx.Rows) ([]model.Order, error) {
	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}
