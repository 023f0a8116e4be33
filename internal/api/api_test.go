package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/baharbilginay/execution-engine/internal/calendar"
	"github.com/baharbilginay/execution-engine/internal/engine"
	"github.com/baharbilginay/execution-engine/internal/model"
	"github.com/baharbilginay/execution-engine/internal/oracle"
	"github.com/baharbilginay/execution-engine/internal/orderqueue"
	"github.com/baharbilginay/execution-engine/internal/store"
)

// Wednesday mid-session / after-hours in Europe/Istanbul.
var (
	openInstant   = time.Date(2025, time.August, 13, 9, 0, 0, 0, time.UTC)
	closedInstant = time.Date(2025, time.August, 13, 17, 0, 0, 0, time.UTC)
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

type testEnv struct {
	router http.Handler
	engine *engine.Engine
	store  *store.MemoryStore
	oracle *oracle.MemoryOracle
	hub    *Hub
}

func newTestEnv(t *testing.T, at time.Time) *testEnv {
	t.Helper()

	ms := store.NewMemoryStore()
	orc := oracle.NewMemoryOracle()
	q := orderqueue.New(ms)
	hub := NewHub()
	go hub.Run()

	eng := engine.New(ms, orc, calendar.Default(), q, hub)
	eng.Now = func() time.Time { return at }

	srv := NewServer(eng, q, orc, ms, hub)
	return &testEnv{router: srv.Router(), engine: eng, store: ms, oracle: orc, hub: hub}
}

func (env *testEnv) seedAccount(t *testing.T, id string, balance float64) {
	t.Helper()
	err := env.store.CreateAccount(context.Background(), &model.Account{
		ID:          id,
		CashBalance: d(balance),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestSubmitOrder_Executed(t *testing.T) {
	env := newTestEnv(t, openInstant)
	env.seedAccount(t, "acct", 1000)
	env.oracle.SetPrice("THYAO", d(50), openInstant)

	rec := env.do(t, http.MethodPost, "/api/v1/orders", SubmitOrderRequest{
		AccountID: "acct", Symbol: "THYAO", Quantity: 10, Side: model.SideBuy,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	resp := decode[SubmitOrderResponse](t, rec)
	if resp.Status != "executed" || resp.Trade == nil {
		t.Fatalf("resp = %+v, want executed with trade", resp)
	}
	if !resp.Trade.Price.Equal(d(50)) || resp.Trade.Quantity != 10 {
		t.Errorf("trade = %+v, want 10 @ 50", resp.Trade)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/accounts/acct/balance", nil)
	balance := decode[map[string]decimal.Decimal](t, rec)
	if !balance["cash_balance"].Equal(d(500)) {
		t.Errorf("balance = %s, want 500", balance["cash_balance"])
	}
}

func TestSubmitOrder_Queued(t *testing.T) {
	env := newTestEnv(t, closedInstant)
	env.seedAccount(t, "acct", 1000)
	env.oracle.SetPrice("THYAO", d(50), closedInstant)

	rec := env.do(t, http.MethodPost, "/api/v1/orders", SubmitOrderRequest{
		AccountID: "acct", Symbol: "THYAO", Quantity: 10, Side: model.SideBuy,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	resp := decode[SubmitOrderResponse](t, rec)
	if resp.Status != "queued" || resp.OrderID == "" {
		t.Fatalf("resp = %+v, want queued with order ID", resp)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/accounts/acct/orders", nil)
	orders := decode[[]model.Order](t, rec)
	if len(orders) != 1 || orders[0].ID != resp.OrderID {
		t.Errorf("open orders = %+v, want the queued order", orders)
	}
}

func TestSubmitOrder_ErrorMapping(t *testing.T) {
	env := newTestEnv(t, openInstant)
	env.seedAccount(t, "acct", 100)
	env.oracle.SetPrice("THYAO", d(50), openInstant)

	tests := []struct {
		name string
		req  SubmitOrderRequest
		want int
	}{
		{"zero quantity", SubmitOrderRequest{AccountID: "acct", Symbol: "THYAO", Quantity: 0, Side: model.SideBuy}, http.StatusBadRequest},
		{"bad side", SubmitOrderRequest{AccountID: "acct", Symbol: "THYAO", Quantity: 1, Side: "hold"}, http.StatusBadRequest},
		{"missing account field", SubmitOrderRequest{Symbol: "THYAO", Quantity: 1, Side: model.SideBuy}, http.StatusBadRequest},
		{"no quote", SubmitOrderRequest{AccountID: "acct", Symbol: "GARAN", Quantity: 1, Side: model.SideBuy}, http.StatusServiceUnavailable},
		{"insufficient funds", SubmitOrderRequest{AccountID: "acct", Symbol: "THYAO", Quantity: 3, Side: model.SideBuy}, http.StatusConflict},
		{"insufficient shares", SubmitOrderRequest{AccountID: "acct", Symbol: "THYAO", Quantity: 1, Side: model.SideSell}, http.StatusConflict},
		{"unknown account", SubmitOrderRequest{AccountID: "ghost", Symbol: "THYAO", Quantity: 1, Side: model.SideBuy}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/orders", tt.req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestCancelOrder(t *testing.T) {
	env := newTestEnv(t, closedInstant)
	env.seedAccount(t, "acct", 1000)
	env.oracle.SetPrice("THYAO", d(50), closedInstant)

	rec := env.do(t, http.MethodPost, "/api/v1/orders", SubmitOrderRequest{
		AccountID: "acct", Symbol: "THYAO", Quantity: 10, Side: model.SideBuy,
	})
	orderID := decode[SubmitOrderResponse](t, rec).OrderID

	path := fmt.Sprintf("/api/v1/orders/%s/cancel", orderID)
	rec = env.do(t, http.MethodPost, path, CancelOrderRequest{AccountID: "acct"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Second cancel conflicts: the order is no longer pending.
	rec = env.do(t, http.MethodPost, path, CancelOrderRequest{AccountID: "acct"})
	if rec.Code != http.StatusConflict {
		t.Errorf("second cancel status = %d, want 409", rec.Code)
	}

	// Cancelled orders leave the open list.
	rec = env.do(t, http.MethodGet, "/api/v1/accounts/acct/orders", nil)
	if orders := decode[[]model.Order](t, rec); len(orders) != 0 {
		t.Errorf("open orders = %+v, want none", orders)
	}
}

func TestCancelOrder_WrongOwner(t *testing.T) {
	env := newTestEnv(t, closedInstant)
	env.seedAccount(t, "acct", 1000)
	env.oracle.SetPrice("THYAO", d(50), closedInstant)

	rec := env.do(t, http.MethodPost, "/api/v1/orders", SubmitOrderRequest{
		AccountID: "acct", Symbol: "THYAO", Quantity: 10, Side: model.SideBuy,
	})
	orderID := decode[SubmitOrderResponse](t, rec).OrderID

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/cancel", orderID),
		CancelOrderRequest{AccountID: "intruder"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/orders/missing/cancel",
		CancelOrderRequest{AccountID: "acct"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestEditOrder(t *testing.T) {
	env := newTestEnv(t, closedInstant)
	env.seedAccount(t, "acct", 1000)
	env.oracle.SetPrice("THYAO", d(50), closedInstant)

	rec := env.do(t, http.MethodPost, "/api/v1/orders", SubmitOrderRequest{
		AccountID: "acct", Symbol: "THYAO", Quantity: 10, Side: model.SideBuy,
	})
	orderID := decode[SubmitOrderResponse](t, rec).OrderID

	rec = env.do(t, http.MethodPatch, "/api/v1/orders/"+orderID,
		EditOrderRequest{AccountID: "acct", Quantity: 4})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/accounts/acct/orders", nil)
	orders := decode[[]model.Order](t, rec)
	if len(orders) != 1 || orders[0].Quantity != 4 {
		t.Errorf("orders = %+v, want quantity 4", orders)
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/orders/"+orderID,
		EditOrderRequest{AccountID: "acct", Quantity: 0})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero quantity status = %d, want 400", rec.Code)
	}
}

func TestCreateAccountAndDeposit(t *testing.T) {
	env := newTestEnv(t, openInstant)

	rec := env.do(t, http.MethodPost, "/api/v1/accounts", CreateAccountRequest{
		ID: "acct", InitialBalance: d(100),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Duplicate ID conflicts.
	rec = env.do(t, http.MethodPost, "/api/v1/accounts", CreateAccountRequest{ID: "acct"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/accounts/acct/deposit", DepositRequest{Amount: d(250)})
	if rec.Code != http.StatusOK {
		t.Fatalf("deposit status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[map[string]decimal.Decimal](t, rec)
	if !resp["cash_balance"].Equal(d(350)) {
		t.Errorf("balance = %s, want 350", resp["cash_balance"])
	}

	rec = env.do(t, http.MethodPost, "/api/v1/accounts/acct/deposit", DepositRequest{Amount: d(-5)})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative deposit status = %d, want 400", rec.Code)
	}
}

func TestPositionsAndTrades(t *testing.T) {
	env := newTestEnv(t, openInstant)
	env.seedAccount(t, "acct", 10000)
	env.oracle.SetPrice("THYAO", d(50), openInstant)
	env.oracle.SetPrice("GARAN", d(90), openInstant)

	env.do(t, http.MethodPost, "/api/v1/orders", SubmitOrderRequest{
		AccountID: "acct", Symbol: "THYAO", Quantity: 10, Side: model.SideBuy,
	})
	env.do(t, http.MethodPost, "/api/v1/orders", SubmitOrderRequest{
		AccountID: "acct", Symbol: "GARAN", Quantity: 5, Side: model.SideBuy,
	})

	rec := env.do(t, http.MethodGet, "/api/v1/accounts/acct/positions", nil)
	positions := decode[[]model.Position](t, rec)
	if len(positions) != 2 {
		t.Errorf("positions = %d, want 2", len(positions))
	}

	rec = env.do(t, http.MethodGet, "/api/v1/accounts/acct/positions/THYAO", nil)
	pos := decode[model.Position](t, rec)
	if pos.Quantity != 10 || !pos.AverageCost.Equal(d(50)) {
		t.Errorf("position = %+v, want {10, 50}", pos)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/accounts/acct/positions/SASA", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing position status = %d, want 404", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/accounts/acct/trades", nil)
	trades := decode[[]model.Trade](t, rec)
	if len(trades) != 2 {
		t.Errorf("trades = %d, want 2", len(trades))
	}
}

func TestPriceEndpoints(t *testing.T) {
	env := newTestEnv(t, openInstant)

	rec := env.do(t, http.MethodPut, "/api/v1/prices/THYAO", SetPriceRequest{Price: d(250)})
	if rec.Code != http.StatusOK {
		t.Fatalf("set price status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/prices/THYAO", nil)
	quote := decode[oracle.Quote](t, rec)
	if !quote.Price.Equal(d(250)) {
		t.Errorf("price = %s, want 250", quote.Price)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/prices/GARAN", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unknown symbol status = %d, want 503", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/api/v1/prices/THYAO", SetPriceRequest{Price: d(-1)})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative price status = %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/prices", nil)
	quotes := decode[[]oracle.Quote](t, rec)
	if len(quotes) != 1 {
		t.Errorf("quotes = %d, want 1", len(quotes))
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, openInstant)

	rec := env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestWebSocket_DeliversAccountEvents(t *testing.T) {
	env := newTestEnv(t, openInstant)
	env.seedAccount(t, "acct", 1000)
	env.oracle.SetPrice("THYAO", d(50), openInstant)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?account_id=acct"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the hub's register a moment before publishing.
	time.Sleep(50 * time.Millisecond)

	if _, err := env.engine.Submit(context.Background(), "acct", "THYAO", 10, model.SideBuy); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var ev engine.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Type != engine.EventTradeExecuted || ev.AccountID != "acct" || ev.Symbol != "THYAO" {
		t.Errorf("event = %+v, want trade_executed for acct/THYAO", ev)
	}
}

func TestWebSocket_FiltersOtherAccounts(t *testing.T) {
	env := newTestEnv(t, openInstant)
	env.seedAccount(t, "a", 1000)
	env.seedAccount(t, "b", 1000)
	env.oracle.SetPrice("THYAO", d(50), openInstant)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?account_id=a"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	time.Sleep(50 * time.Millisecond)

	// Activity on account b must not reach a's subscription.
	if _, err := env.engine.Submit(context.Background(), "b", "THYAO", 1, model.SideBuy); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, data, err := conn.ReadMessage(); err == nil {
		t.Errorf("unexpected message for filtered account: %s", data)
	}
}
