// Package oracle supplies current tradable prices. The engine treats it as
// an injected dependency: any market-data feed that can answer Quote works.
package oracle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharbilginay/execution-engine/internal/model"
)

// Quote is a point-in-time price for one symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	AsOf   time.Time       `json:"as_of"`
}

// Oracle answers price lookups. Implementations return
// model.ErrPriceUnavailable when no quote exists for a symbol.
type Oracle interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// MemoryOracle is an in-process Oracle fed by the admin price endpoint.
// Safe for concurrent use.
type MemoryOracle struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

// NewMemoryOracle creates an empty in-memory oracle.
func NewMemoryOracle() *MemoryOracle {
	return &MemoryOracle{quotes: make(map[string]Quote)}
}

// Quote returns the current price for symbol.
func (o *MemoryOracle) Quote(_ context.Context, symbol string) (Quote, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	q, ok := o.quotes[symbol]
	if !ok {
		return Quote{}, fmt.Errorf("quote %s: %w", symbol, model.ErrPriceUnavailable)
	}
	return q, nil
}

// SetPrice records a new price for symbol. Non-positive prices are rejected;
// the engine must never see a price of zero.
func (o *MemoryOracle) SetPrice(symbol string, price decimal.Decimal, asOf time.Time) error {
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !price.IsPositive() {
		return fmt.Errorf("price for %s must be positive, got %s", symbol, price)
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	o.quotes[symbol] = Quote{Symbol: symbol, Price: price, AsOf: asOf}
	return nil
}

// List returns all known quotes sorted by symbol.
func (o *MemoryOracle) List() []Quote {
	o.mu.RLock()
	defer o.mu.RUnlock()

	quotes := make([]Quote, 0, len(o.quotes))
	for _, q := range o.quotes {
		quotes = append(quotes, q)
	}
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Symbol < quotes[j].Symbol })
	return quotes
}
