package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// BudgetStatusItem is one budget row evaluated against the month's
// spending. Monetary fields are two-decimal strings; the decimal
// twins exist for callers that compare, like the alert worker.
type BudgetStatusItem struct {
	BudgetID     int64  `json:"budget_id"`
	Title        string `json:"title"`
	Scope        string `json:"scope"`
	CategoryID   *int64 `json:"category_id"`
	Limit        string `json:"limit"`
	Spent        string `json:"spent"`
	Remaining    string `json:"remaining"`
	PercentUsed  string `json:"percent_used"`
	Alert80Sent  bool   `json:"alert_80_sent"`
	Alert100Sent bool   `json:"alert_100_sent"`

	LimitValue   decimal.Decimal `json:"-"`
	SpentValue   decimal.Decimal `json:"-"`
	PercentValue decimal.Decimal `json:"-"`
}

// BudgetStatus is the full status response for one owner and month.
type BudgetStatus struct {
	Month        string             `json:"month"`
	BaseCurrency string             `json:"base_currency"`
	Items        []BudgetStatusItem `json:"items"`
}

// BudgetService evaluates budget consumption. It is read-only: alert
// flags are surfaced as stored, never flipped here.
type BudgetService struct {
	repo *storage.Repository
}

func NewBudgetService(repo *storage.Repository) *BudgetService {
	return &BudgetService{repo: repo}
}

// ValidateMonth checks the YYYY-MM form.
func ValidateMonth(month string) error {
	if len(month) != 7 {
		return core.ErrInvalidMonth
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		return core.ErrInvalidMonth
	}
	return nil
}

// MonthWindow derives the half-open instant interval [start, end)
// covering the calendar month in the given time zone. December rolls
// into January of the following year via AddDate.
func MonthWindow(month string, loc *time.Location) (start, end time.Time, err error) {
	if err := ValidateMonth(month); err != nil {
		return time.Time{}, time.Time{}, err
	}
	t, err := time.ParseInLocation("2006-01", month, loc)
	if err != nil {
		return time.Time{}, time.Time{}, core.ErrInvalidMonth
	}
	return t, t.AddDate(0, 1, 0), nil
}

// MonthRange returns the first and last calendar dates of the month as
// observed in loc. The instants from MonthWindow must not be truncated
// through UTC; east of Greenwich that lands a day early.
func MonthRange(month string, loc *time.Location) (from, to core.Date, err error) {
	start, end, err := MonthWindow(month, loc)
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	last := end.AddDate(0, 0, -1)
	from = core.NewDate(start.Year(), int(start.Month()), start.Day())
	to = core.NewDate(last.Year(), int(last.Month()), last.Day())
	return from, to, nil
}

// Status evaluates every budget row the owner holds for the month.
// Duplicate rows are evaluated independently. The time zone arrives as
// an explicit parameter so the computation stays testable without
// ambient process configuration.
func (s *BudgetService) Status(ctx context.Context, owner core.Owner, month string, loc *time.Location) (BudgetStatus, error) {
	if owner.BaseCurrency == "" {
		return BudgetStatus{}, core.ErrMissingBaseCurrency
	}

	start, end, err := MonthWindow(month, loc)
	if err != nil {
		return BudgetStatus{}, err
	}

	budgets, err := s.repo.ListBudgetsForMonth(ctx, owner.ID, month)
	if err != nil {
		return BudgetStatus{}, fmt.Errorf("budgets for %s: %w", month, err)
	}

	status := BudgetStatus{
		Month:        month,
		BaseCurrency: owner.BaseCurrency,
		Items:        make([]BudgetStatusItem, 0, len(budgets)),
	}

	for _, b := range budgets {
		item, err := s.evaluate(ctx, owner, b, start, end)
		if err != nil {
			return BudgetStatus{}, err
		}
		status.Items = append(status.Items, item)
	}
	return status, nil
}

func (s *BudgetService) evaluate(ctx context.Context, owner core.Owner, b core.Budget, start, end time.Time) (BudgetStatusItem, error) {
	var (
		title      string
		categoryID *int64
	)
	switch b.Scope {
	case core.ScopeTotal:
		title = "Total Budget"
	case core.ScopeCategory:
		name := b.CategoryName
		if name == "" {
			name = "Uncategorized"
		}
		title = "Category: " + name
		categoryID = b.CategoryID
	default:
		return BudgetStatusItem{}, fmt.Errorf("budget %d scope %q: %w", b.ID, b.Scope, core.ErrInvalidScope)
	}

	spentMicros, err := s.repo.SumExpenseBase(ctx, owner.ID, start, end, categoryID)
	if err != nil {
		return BudgetStatusItem{}, fmt.Errorf("budget %d spent: %w", b.ID, err)
	}
	spent := core.FromMicros(spentMicros)

	limit := b.LimitBase
	remaining := limit.Sub(spent) // may go negative, overspend is fine

	percent := decimal.Zero
	if limit.IsPositive() {
		percent = spent.Div(limit).Mul(decimal.NewFromInt(100))
	}

	return BudgetStatusItem{
		BudgetID:     b.ID,
		Title:        title,
		Scope:        string(b.Scope),
		CategoryID:   categoryID,
		Limit:        core.Format2(limit),
		Spent:        core.Format2(spent),
		Remaining:    core.Format2(remaining),
		PercentUsed:  core.Format2(percent),
		Alert80Sent:  b.Alert80Sent,
		Alert100Sent: b.Alert100Sent,
		LimitValue:   limit,
		SpentValue:   spent,
		PercentValue: percent,
	}, nil
}
