package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType is the closed set of ledger entry kinds. Adding a kind means
// touching every exhaustive switch over this type.
type TxType string

const (
	TxIncome      TxType = "income"
	TxExpense     TxType = "expense"
	TxTransferIn  TxType = "transfer_in"
	TxTransferOut TxType = "transfer_out"
)

// Valid reports whether t is one of the known transaction types.
func (t TxType) Valid() bool {
	switch t {
	case TxIncome, TxExpense, TxTransferIn, TxTransferOut:
		return true
	}
	return false
}

// Sign returns +1 for entries that increase a wallet balance and -1 for
// entries that decrease it.
func (t TxType) Sign() int {
	switch t {
	case TxIncome, TxTransferIn:
		return 1
	case TxExpense, TxTransferOut:
		return -1
	}
	return 0
}

// BudgetScope selects whether a budget limit covers all spending or a
// single category.
type BudgetScope string

const (
	ScopeTotal    BudgetScope = "total"
	ScopeCategory BudgetScope = "category"
)

func (s BudgetScope) Valid() bool {
	switch s {
	case ScopeTotal, ScopeCategory:
		return true
	}
	return false
}

// Interval is a trend report bucket size.
type Interval string

const (
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
)

func (i Interval) Valid() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalMonthly:
		return true
	}
	return false
}

// Date is a calendar date with no time-of-day component, anchored in UTC.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// After reports whether d falls strictly after other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// Owner is the authenticated identity every core query is scoped to.
// BaseCurrency is required; callers must not fall back to a default when
// the profile lacks one.
type Owner struct {
	ID           int64
	Username     string
	BaseCurrency string
}

// Currency is immutable reference data.
type Currency struct {
	Code          string
	DecimalPlaces int
}

// FxRate records that on Date, 1 unit of Base bought Rate units of Quote.
// Rows are append-only; at most one per (date, base, quote).
type FxRate struct {
	ID    int64
	Date  Date
	Base  string
	Quote string
	Rate  decimal.Decimal
}

// Wallet holds funds in a single currency. OpeningBalance is fixed at
// creation and predates every recorded transaction.
type Wallet struct {
	ID             int64
	OwnerID        int64
	Name           string
	Currency       string
	OpeningBalance decimal.Decimal
	IsActive       bool
}

// Category is a grouping key. The ledger treats it as flat; the parent
// reference exists only for presentation layers.
type Category struct {
	ID       int64
	OwnerID  int64
	Name     string
	Type     TxType // income or expense
	ParentID *int64
}

// Transaction is one ledger entry. BaseAmount is the owner-base-currency
// valuation computed once at write time; it is never recomputed, even
// when FX rates for that date are later corrected.
type Transaction struct {
	ID         int64
	OwnerID    int64
	WalletID   int64
	CategoryID *int64
	Type       TxType
	Amount     decimal.Decimal
	BaseAmount decimal.Decimal
	OccurredAt time.Time
	Merchant   string
	Note       string
	IsDeleted  bool
	LinkID     string // shared by the two legs of a transfer, empty otherwise
}

// Budget is a monthly spending limit in the owner's base currency.
// The alert flags are flipped by the alert worker, never by the status
// engine itself.
type Budget struct {
	ID           int64
	OwnerID      int64
	Month        string // YYYY-MM
	Scope        BudgetScope
	CategoryID   *int64
	CategoryName string
	LimitBase    decimal.Decimal
	Alert80Sent  bool
	Alert100Sent bool
}
