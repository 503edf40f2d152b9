// Package fx resolves historical exchange rates.
//
// The resolver's contract is deliberately narrow: an exact
// (date, base, quote) match or core.ErrRateNotFound. Fallback-date
// selection belongs to callers (the balance calculator picks as-of,
// latest-transaction or current date); no date-walking and no
// reciprocal derivation happens here.
package fx

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

// RateStore is the slice of the storage layer the resolver needs.
type RateStore interface {
	GetRate(ctx context.Context, date core.Date, base, quote string) (decimal.Decimal, error)
}

type Resolver struct {
	store RateStore
}

func NewResolver(store RateStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the conversion rate from one currency to another on
// the given date. Same-currency conversion is the identity and performs
// no lookup. A missing rate surfaces as core.ErrRateNotFound — never a
// silent zero or 1:1 substitute.
func (r *Resolver) Resolve(ctx context.Context, date core.Date, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	rate, err := r.store.GetRate(ctx, date, from, to)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("resolve %s->%s on %s: %w", from, to, date, err)
	}
	return rate, nil
}

// Convert values an amount in the target currency using the rate for
// the given date. The result keeps full precision; rounding is the
// caller's presentation concern.
func (r *Resolver) Convert(ctx context.Context, date core.Date, from, to string, amount decimal.Decimal) (decimal.Decimal, error) {
	rate, err := r.Resolve(ctx, date, from, to)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return amount.Mul(rate), nil
}
