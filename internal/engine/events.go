package engine

// Event is published after every committed state transition so the layer
// that notifies users (WebSocket hub, push, UI) can react. This replaces
// the hosted platform's table-change subscriptions with an explicit
// per-account channel.
type Event struct {
	Type      string `json:"type"`
	AccountID string `json:"account_id"`
	OrderID   string `json:"order_id,omitempty"`
	TradeID   string `json:"trade_id,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Side      string `json:"side,omitempty"`
	Quantity  int64  `json:"quantity,omitempty"`
	Price     string `json:"price,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Event types.
const (
	EventTradeExecuted  = "trade_executed"
	EventOrderQueued    = "order_queued"
	EventOrderCancelled = "order_cancelled"
	EventOrderUpdated   = "order_updated"
	EventOrderFailed    = "order_failed"
	EventBalanceChanged = "balance_changed"
)

// Publisher delivers events to interested subscribers. Pass nil to the
// engine if no notification channel is wired.
type Publisher interface {
	Publish(ev Event)
}
