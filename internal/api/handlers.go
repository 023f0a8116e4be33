package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/baharbilginay/execution-engine/internal/engine"
	"github.com/baharbilginay/execution-engine/internal/ledger"
	"github.com/baharbilginay/execution-engine/internal/model"
	"github.com/baharbilginay/execution-engine/internal/oracle"
	"github.com/baharbilginay/execution-engine/internal/orderqueue"
	"github.com/baharbilginay/execution-engine/internal/position"
	"github.com/baharbilginay/execution-engine/internal/store"
)

// Server exposes the execution core over HTTP. The account identity arrives
// in request bodies/paths — callers are assumed pre-authenticated by the
// surrounding service.
type Server struct {
	engine *engine.Engine
	queue  *orderqueue.Queue
	oracle *oracle.MemoryOracle
	store  store.Store
	hub    *Hub
}

// NewServer creates the HTTP server facade.
func NewServer(eng *engine.Engine, q *orderqueue.Queue, orc *oracle.MemoryOracle, st store.Store, hub *Hub) *Server {
	return &Server{engine: eng, queue: q, oracle: orc, store: st, hub: hub}
}

// --- Request/Response types ---

// SubmitOrderRequest is the JSON body for POST /orders.
type SubmitOrderRequest struct {
	AccountID string `json:"account_id"`
	Symbol    string `json:"symbol"`
	Quantity  int64  `json:"quantity"`
	Side      string `json:"side"` // "buy" or "sell"
}

// SubmitOrderResponse reports whether the submission executed immediately
// or queued for the next sweep.
type SubmitOrderResponse struct {
	Status  string       `json:"status"` // "executed" or "queued"
	Trade   *model.Trade `json:"trade,omitempty"`
	OrderID string       `json:"order_id,omitempty"`
}

// CancelOrderRequest is the JSON body for POST /orders/{orderID}/cancel.
type CancelOrderRequest struct {
	AccountID string `json:"account_id"`
}

// EditOrderRequest is the JSON body for PATCH /orders/{orderID}.
type EditOrderRequest struct {
	AccountID string `json:"account_id"`
	Quantity  int64  `json:"quantity"`
}

// CreateAccountRequest is the JSON body for POST /accounts.
type CreateAccountRequest struct {
	ID             string          `json:"id"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// DepositRequest is the JSON body for POST /accounts/{accountID}/deposit.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// SetPriceRequest is the JSON body for PUT /prices/{symbol}.
type SetPriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

// --- Order handlers ---

// SubmitOrder handles POST /api/v1/orders.
func (s *Server) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.AccountID == "" || req.Symbol == "" {
		writeError(w, "account_id and symbol are required", http.StatusBadRequest)
		return
	}

	outcome, err := s.engine.Submit(r.Context(), req.AccountID, req.Symbol, req.Quantity, req.Side)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	resp := SubmitOrderResponse{Status: "queued", OrderID: outcome.OrderID}
	if outcome.Executed {
		resp = SubmitOrderResponse{Status: "executed", Trade: outcome.Trade}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CancelOrder handles POST /api/v1/orders/{orderID}/cancel.
func (s *Server) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccountID == "" {
		writeError(w, "account_id is required", http.StatusBadRequest)
		return
	}

	if err := s.queue.Cancel(r.Context(), orderID, req.AccountID); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	slog.Info("order cancelled", "order_id", orderID, "account", req.AccountID)
	s.hub.Publish(engine.Event{
		Type: engine.EventOrderCancelled, AccountID: req.AccountID, OrderID: orderID,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// EditOrder handles PATCH /api/v1/orders/{orderID}. Only the quantity of a
// still-pending order can change.
func (s *Server) EditOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req EditOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccountID == "" {
		writeError(w, "account_id is required", http.StatusBadRequest)
		return
	}

	if err := s.queue.EditQuantity(r.Context(), orderID, req.AccountID, req.Quantity); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	slog.Info("order updated", "order_id", orderID, "account", req.AccountID, "qty", req.Quantity)
	s.hub.Publish(engine.Event{
		Type: engine.EventOrderUpdated, AccountID: req.AccountID,
		OrderID: orderID, Quantity: req.Quantity,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListOrders handles GET /api/v1/accounts/{accountID}/orders. Returns the
// account's pending and processing orders.
func (s *Server) ListOrders(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	orders, err := s.queue.ListOpen(r.Context(), accountID)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// --- Account handlers ---

// CreateAccount handles POST /api/v1/accounts.
func (s *Server) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeError(w, "id is required", http.StatusBadRequest)
		return
	}
	if req.InitialBalance.IsNegative() {
		writeError(w, "initial_balance cannot be negative", http.StatusBadRequest)
		return
	}

	account := &model.Account{
		ID:          req.ID,
		CashBalance: req.InitialBalance,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateAccount(r.Context(), account); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	slog.Info("account created", "account", account.ID, "balance", account.CashBalance.String())
	writeJSON(w, http.StatusCreated, account)
}

// Deposit handles POST /api/v1/accounts/{accountID}/deposit, the cash
// credit that ends an approved deposit flow.
func (s *Server) Deposit(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Amount.IsPositive() {
		writeError(w, "amount must be positive", http.StatusBadRequest)
		return
	}

	var newBalance decimal.Decimal
	err := s.store.ExecTx(r.Context(), func(tx store.Store) error {
		var err error
		newBalance, err = ledger.New(tx).Credit(r.Context(), accountID, req.Amount)
		return err
	})
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}

	slog.Info("deposit credited", "account", accountID, "amount", req.Amount.String())
	s.hub.Publish(engine.Event{
		Type: engine.EventBalanceChanged, AccountID: accountID, Price: newBalance.String(),
	})
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"cash_balance": newBalance})
}

// GetBalance handles GET /api/v1/accounts/{accountID}/balance.
func (s *Server) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	balance, err := ledger.New(s.store).Balance(r.Context(), accountID)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"cash_balance": balance})
}

// ListPositions handles GET /api/v1/accounts/{accountID}/positions.
func (s *Server) ListPositions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	positions, err := position.New(s.store).List(r.Context(), accountID)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	if positions == nil {
		positions = []model.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

// GetPosition handles GET /api/v1/accounts/{accountID}/positions/{symbol}.
func (s *Server) GetPosition(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	symbol := chi.URLParam(r, "symbol")

	pos, err := position.New(s.store).Get(r.Context(), accountID, symbol)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

// ListTrades handles GET /api/v1/accounts/{accountID}/trades. Returns the
// account's execution history, newest first.
func (s *Server) ListTrades(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	trades, err := s.store.ListTradesByAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

// --- Price handlers ---

// GetPrice handles GET /api/v1/prices/{symbol}.
func (s *Server) GetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	quote, err := s.oracle.Quote(r.Context(), symbol)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// ListPrices handles GET /api/v1/prices.
func (s *Server) ListPrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.oracle.List())
}

// SetPrice handles PUT /api/v1/prices/{symbol}, the price-updater feed.
func (s *Server) SetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	var req SetPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.oracle.SetPrice(symbol, req.Price, time.Now().UTC()); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"symbol": symbol, "price": req.Price.String()})
}

// --- Helpers ---

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidQuantity), errors.Is(err, model.ErrInvalidSide):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotPending),
		errors.Is(err, model.ErrInsufficientFunds),
		errors.Is(err, model.ErrInsufficientShares):
		return http.StatusConflict
	case errors.Is(err, model.ErrPriceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
