package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharbilginay/execution-engine/internal/model"
)

func TestMemoryOracle_SetAndQuote(t *testing.T) {
	o := NewMemoryOracle()
	asOf := time.Now().UTC()

	if err := o.SetPrice("THYAO", decimal.NewFromInt(250), asOf); err != nil {
		t.Fatalf("SetPrice: %v", err)
	}

	q, err := o.Quote(context.Background(), "THYAO")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !q.Price.Equal(decimal.NewFromInt(250)) {
		t.Errorf("price = %s, want 250", q.Price)
	}
	if !q.AsOf.Equal(asOf) {
		t.Errorf("asOf = %s, want %s", q.AsOf, asOf)
	}
}

func TestMemoryOracle_Unavailable(t *testing.T) {
	o := NewMemoryOracle()

	_, err := o.Quote(context.Background(), "GARAN")
	if !errors.Is(err, model.ErrPriceUnavailable) {
		t.Errorf("err = %v, want ErrPriceUnavailable", err)
	}
}

func TestMemoryOracle_RejectsNonPositive(t *testing.T) {
	o := NewMemoryOracle()

	if err := o.SetPrice("THYAO", decimal.Zero, time.Now()); err == nil {
		t.Error("expected error for zero price")
	}
	if err := o.SetPrice("THYAO", decimal.NewFromInt(-5), time.Now()); err == nil {
		t.Error("expected error for negative price")
	}
	if err := o.SetPrice("", decimal.NewFromInt(10), time.Now()); err == nil {
		t.Error("expected error for empty symbol")
	}
}

func TestMemoryOracle_ListSorted(t *testing.T) {
	o := NewMemoryOracle()
	now := time.Now()
	o.SetPrice("GARAN", decimal.NewFromInt(90), now)
	o.SetPrice("AKBNK", decimal.NewFromInt(55), now)
	o.SetPrice("THYAO", decimal.NewFromInt(250), now)

	quotes := o.List()
	if len(quotes) != 3 {
		t.Fatalf("len = %d, want 3", len(quotes))
	}
	if quotes[0].Symbol != "AKBNK" || quotes[2].Symbol != "THYAO" {
		t.Errorf("quotes not sorted by symbol: %v", quotes)
	}
}
