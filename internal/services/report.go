package services

import (
	"context"
	"fmt"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// DefaultMerchantLimit caps top-merchant rankings when the caller does
// not supply a limit.
const DefaultMerchantLimit = 10

// Summary is total income, expense and net over a date range.
type Summary struct {
	From         string `json:"from"`
	To           string `json:"to"`
	BaseCurrency string `json:"base_currency"`
	Income       string `json:"income"`
	Expense      string `json:"expense"`
	Net          string `json:"net"`
}

// CategoryItem is one row of a by-category breakdown. CategoryID is nil
// for the Uncategorized bucket.
type CategoryItem struct {
	CategoryID   *int64 `json:"category_id"`
	CategoryName string `json:"category_name"`
	Total        string `json:"total"`
}

// CategoryReport groups one transaction type by category.
type CategoryReport struct {
	From         string         `json:"from"`
	To           string         `json:"to"`
	Type         string         `json:"type"`
	BaseCurrency string         `json:"base_currency"`
	Items        []CategoryItem `json:"items"`
}

// TrendPoint is one time bucket with both sums from the same pass.
type TrendPoint struct {
	Bucket  string `json:"bucket"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
}

// TrendReport buckets a date range by day, ISO week or month. Buckets
// without transactions do not appear.
type TrendReport struct {
	From         string       `json:"from"`
	To           string       `json:"to"`
	Interval     string       `json:"interval"`
	BaseCurrency string       `json:"base_currency"`
	Items        []TrendPoint `json:"items"`
}

// MerchantItem is one row of a top-merchant ranking.
type MerchantItem struct {
	Merchant string `json:"merchant"`
	Total    string `json:"total"`
}

// MerchantReport ranks merchants by summed base amount.
type MerchantReport struct {
	From         string         `json:"from"`
	To           string         `json:"to"`
	Type         string         `json:"type"`
	Limit        int            `json:"limit"`
	BaseCurrency string         `json:"base_currency"`
	Items        []MerchantItem `json:"items"`
}

// ReportService aggregates transactions over arbitrary date ranges. All
// queries operate on pre-computed base amounts; no currency conversion
// happens at report time.
type ReportService struct {
	repo *storage.Repository
}

func NewReportService(repo *storage.Repository) *ReportService {
	return &ReportService{repo: repo}
}

// ValidateRange enforces from <= to.
func ValidateRange(from, to core.Date) error {
	if from.IsZero() || to.IsZero() || from.After(to) {
		return core.ErrInvalidRange
	}
	return nil
}

// normalizeType applies the expense default and rejects anything other
// than income or expense — transfers never appear in reports.
func normalizeType(txType core.TxType) (core.TxType, error) {
	if txType == "" {
		return core.TxExpense, nil
	}
	switch txType {
	case core.TxIncome, core.TxExpense:
		return txType, nil
	}
	return "", fmt.Errorf("%q: %w", txType, core.ErrInvalidType)
}

// Summary computes total income, expense and their net over [from, to].
func (s *ReportService) Summary(ctx context.Context, owner core.Owner, from, to core.Date) (Summary, error) {
	if owner.BaseCurrency == "" {
		return Summary{}, core.ErrMissingBaseCurrency
	}
	if err := ValidateRange(from, to); err != nil {
		return Summary{}, err
	}

	incomeMicros, expenseMicros, err := s.repo.SummaryTotals(ctx, owner.ID, from, to)
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}

	return Summary{
		From:         from.String(),
		To:           to.String(),
		BaseCurrency: owner.BaseCurrency,
		Income:       core.FormatMicros2(incomeMicros),
		Expense:      core.FormatMicros2(expenseMicros),
		Net:          core.FormatMicros2(incomeMicros - expenseMicros),
	}, nil
}

// ByCategory groups one transaction type by category, descending by
// total. Uncategorized entries group under a sentinel label.
func (s *ReportService) ByCategory(ctx context.Context, owner core.Owner, from, to core.Date, txType core.TxType) (CategoryReport, error) {
	if owner.BaseCurrency == "" {
		return CategoryReport{}, core.ErrMissingBaseCurrency
	}
	if err := ValidateRange(from, to); err != nil {
		return CategoryReport{}, err
	}
	typ, err := normalizeType(txType)
	if err != nil {
		return CategoryReport{}, err
	}

	totals, err := s.repo.CategoryTotals(ctx, owner.ID, from, to, typ)
	if err != nil {
		return CategoryReport{}, fmt.Errorf("by category: %w", err)
	}

	report := CategoryReport{
		From:         from.String(),
		To:           to.String(),
		Type:         string(typ),
		BaseCurrency: owner.BaseCurrency,
		Items:        make([]CategoryItem, 0, len(totals)),
	}
	for _, row := range totals {
		name := row.Name
		if row.CategoryID == nil || name == "" {
			name = "Uncategorized"
		}
		report.Items = append(report.Items, CategoryItem{
			CategoryID:   row.CategoryID,
			CategoryName: name,
			Total:        core.FormatMicros2(row.Micros),
		})
	}
	return report, nil
}

// Trend buckets the range by the given interval (daily default),
// ascending by bucket start.
func (s *ReportService) Trend(ctx context.Context, owner core.Owner, from, to core.Date, interval core.Interval) (TrendReport, error) {
	if owner.BaseCurrency == "" {
		return TrendReport{}, core.ErrMissingBaseCurrency
	}
	if err := ValidateRange(from, to); err != nil {
		return TrendReport{}, err
	}
	if interval == "" {
		interval = core.IntervalDaily
	}
	if !interval.Valid() {
		return TrendReport{}, fmt.Errorf("%q: %w", interval, core.ErrInvalidInterval)
	}

	rows, err := s.repo.TrendBuckets(ctx, owner.ID, from, to, interval)
	if err != nil {
		return TrendReport{}, fmt.Errorf("trend: %w", err)
	}

	report := TrendReport{
		From:         from.String(),
		To:           to.String(),
		Interval:     string(interval),
		BaseCurrency: owner.BaseCurrency,
		Items:        make([]TrendPoint, 0, len(rows)),
	}
	for _, row := range rows {
		report.Items = append(report.Items, TrendPoint{
			Bucket:  row.Bucket,
			Income:  core.FormatMicros2(row.IncomeMicros),
			Expense: core.FormatMicros2(row.ExpenseMicros),
		})
	}
	return report, nil
}

// TopMerchants ranks merchants of one transaction type by total,
// capped at limit (DefaultMerchantLimit when non-positive).
func (s *ReportService) TopMerchants(ctx context.Context, owner core.Owner, from, to core.Date, txType core.TxType, limit int) (MerchantReport, error) {
	if owner.BaseCurrency == "" {
		return MerchantReport{}, core.ErrMissingBaseCurrency
	}
	if err := ValidateRange(from, to); err != nil {
		return MerchantReport{}, err
	}
	typ, err := normalizeType(txType)
	if err != nil {
		return MerchantReport{}, err
	}
	if limit <= 0 {
		limit = DefaultMerchantLimit
	}

	totals, err := s.repo.MerchantTotals(ctx, owner.ID, from, to, typ, limit)
	if err != nil {
		return MerchantReport{}, fmt.Errorf("top merchants: %w", err)
	}

	report := MerchantReport{
		From:         from.String(),
		To:           to.String(),
		Type:         string(typ),
		Limit:        limit,
		BaseCurrency: owner.BaseCurrency,
		Items:        make([]MerchantItem, 0, len(totals)),
	}
	for _, row := range totals {
		report.Items = append(report.Items, MerchantItem{
			Merchant: row.Merchant,
			Total:    core.FormatMicros2(row.Micros),
		})
	}
	return report, nil
}
