package fx

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

type stubStore struct {
	rates   map[string]decimal.Decimal
	lookups int
}

func (s *stubStore) GetRate(_ context.Context, date core.Date, base, quote string) (decimal.Decimal, error) {
	s.lookups++
	key := fmt.Sprintf("%s|%s|%s", date, base, quote)
	if rate, ok := s.rates[key]; ok {
		return rate, nil
	}
	return decimal.Decimal{}, core.ErrRateNotFound
}

func TestResolver_Resolve(t *testing.T) {
	store := &stubStore{rates: map[string]decimal.Decimal{
		"2025-03-10|USD|THB": decimal.RequireFromString("35.00"),
	}}
	resolver := NewResolver(store)
	ctx := context.Background()

	t.Run("same currency is identity without lookup", func(t *testing.T) {
		before := store.lookups
		rate, err := resolver.Resolve(ctx, core.NewDate(2025, 3, 10), "THB", "THB")
		if err != nil {
			t.Fatalf("Resolve error: %v", err)
		}
		if !rate.Equal(decimal.NewFromInt(1)) {
			t.Errorf("rate = %s, want 1", rate)
		}
		if store.lookups != before {
			t.Error("same-currency resolve must not hit the store")
		}
	})

	t.Run("exact date match", func(t *testing.T) {
		rate, err := resolver.Resolve(ctx, core.NewDate(2025, 3, 10), "USD", "THB")
		if err != nil {
			t.Fatalf("Resolve error: %v", err)
		}
		if got := rate.String(); got != "35" {
			t.Errorf("rate = %s, want 35", got)
		}
	})

	t.Run("missing date fails, no date-walking", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, core.NewDate(2025, 3, 11), "USD", "THB")
		if !errors.Is(err, core.ErrRateNotFound) {
			t.Errorf("err = %v, want ErrRateNotFound", err)
		}
	})

	t.Run("no reciprocal lookup", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, core.NewDate(2025, 3, 10), "THB", "USD")
		if !errors.Is(err, core.ErrRateNotFound) {
			t.Errorf("err = %v, want ErrRateNotFound for unrecorded reverse pair", err)
		}
	})
}

func TestResolver_Convert(t *testing.T) {
	store := &stubStore{rates: map[string]decimal.Decimal{
		"2025-03-10|USD|THB": decimal.RequireFromString("35.00"),
	}}
	resolver := NewResolver(store)

	got, err := resolver.Convert(context.Background(), core.NewDate(2025, 3, 10), "USD", "THB",
		decimal.RequireFromString("150.00"))
	if err != nil {
		t.Fatalf("Convert error: %v", err)
	}
	if core.Format2(got) != "5250.00" {
		t.Errorf("Convert = %s, want 5250.00", core.Format2(got))
	}
}
