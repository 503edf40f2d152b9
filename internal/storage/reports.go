package storage

import (
	"context"
	"database/sql"
	"fmt"

	"ledger/internal/core"
)

// CategoryTotal is one by-category aggregation row. CategoryID is nil
// for uncategorized entries.
type CategoryTotal struct {
	CategoryID *int64
	Name       string
	Micros     int64
}

// TrendRow carries one time bucket with income and expense summed in a
// single pass via conditional aggregation.
type TrendRow struct {
	Bucket        string
	IncomeMicros  int64
	ExpenseMicros int64
}

// MerchantTotal is one top-merchant aggregation row.
type MerchantTotal struct {
	Merchant string
	Micros   int64
}

// SummaryTotals sums base amounts by type over [from, to] (inclusive
// dates) in one conditional-aggregation query.
func (r *Repository) SummaryTotals(ctx context.Context, ownerID int64, from, to core.Date) (incomeMicros, expenseMicros int64, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN type = 'income'  THEN base_amount_micros ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN type = 'expense' THEN base_amount_micros ELSE 0 END), 0)
		 FROM transactions
		 WHERE owner_id = ? AND is_deleted = 0
		   AND date(occurred_at) >= ? AND date(occurred_at) <= ?`,
		ownerID, from.String(), to.String()).
		Scan(&incomeMicros, &expenseMicros)
	if err != nil {
		return 0, 0, fmt.Errorf("summary totals: %w", err)
	}
	return incomeMicros, expenseMicros, nil
}

// CategoryTotals groups entries of one type by category, descending by
// total. Uncategorized entries come back with a nil CategoryID.
func (r *Repository) CategoryTotals(ctx context.Context, ownerID int64, from, to core.Date, txType core.TxType) ([]CategoryTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.category_id, COALESCE(c.name, ''), SUM(t.base_amount_micros) AS total
		 FROM transactions t
		 LEFT JOIN categories c ON c.id = t.category_id
		 WHERE t.owner_id = ? AND t.is_deleted = 0 AND t.type = ?
		   AND date(t.occurred_at) >= ? AND date(t.occurred_at) <= ?
		 GROUP BY t.category_id, c.name
		 ORDER BY total DESC`,
		ownerID, string(txType), from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var out []CategoryTotal
	for rows.Next() {
		var (
			ct  CategoryTotal
			cid sql.NullInt64
		)
		if err := rows.Scan(&cid, &ct.Name, &ct.Micros); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		if cid.Valid {
			ct.CategoryID = &cid.Int64
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// bucketExpr maps an interval onto the SQLite expression producing its
// bucket start date. Weekly buckets start on Monday (ISO weeks).
func bucketExpr(interval core.Interval) (string, error) {
	switch interval {
	case core.IntervalDaily:
		return `date(occurred_at)`, nil
	case core.IntervalWeekly:
		return `date(occurred_at, 'weekday 0', '-6 days')`, nil
	case core.IntervalMonthly:
		return `date(occurred_at, 'start of month')`, nil
	}
	return "", fmt.Errorf("%q: %w", interval, core.ErrInvalidInterval)
}

// TrendBuckets groups entries into time buckets, each with income and
// expense summed in the same pass. Only buckets containing at least one
// entry appear; nothing is synthesized for gaps.
func (r *Repository) TrendBuckets(ctx context.Context, ownerID int64, from, to core.Date, interval core.Interval) ([]TrendRow, error) {
	expr, err := bucketExpr(interval)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expr+` AS bucket,
		   COALESCE(SUM(CASE WHEN type = 'income'  THEN base_amount_micros ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN type = 'expense' THEN base_amount_micros ELSE 0 END), 0)
		 FROM transactions
		 WHERE owner_id = ? AND is_deleted = 0
		   AND date(occurred_at) >= ? AND date(occurred_at) <= ?
		 GROUP BY bucket
		 ORDER BY bucket ASC`,
		ownerID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("trend buckets: %w", err)
	}
	defer rows.Close()

	var out []TrendRow
	for rows.Next() {
		var tr TrendRow
		if err := rows.Scan(&tr.Bucket, &tr.IncomeMicros, &tr.ExpenseMicros); err != nil {
			return nil, fmt.Errorf("scan trend row: %w", err)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// MerchantTotals groups entries of one type by merchant, descending by
// total, capped at limit. Entries with an empty merchant are skipped.
func (r *Repository) MerchantTotals(ctx context.Context, ownerID int64, from, to core.Date, txType core.TxType, limit int) ([]MerchantTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT merchant, SUM(base_amount_micros) AS total
		 FROM transactions
		 WHERE owner_id = ? AND is_deleted = 0 AND type = ? AND merchant != ''
		   AND date(occurred_at) >= ? AND date(occurred_at) <= ?
		 GROUP BY merchant
		 ORDER BY total DESC
		 LIMIT ?`,
		ownerID, string(txType), from.String(), to.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("merchant totals: %w", err)
	}
	defer rows.Close()

	var out []MerchantTotal
	for rows.Next() {
		var mt MerchantTotal
		if err := rows.Scan(&mt.Merchant, &mt.Micros); err != nil {
			return nil, fmt.Errorf("scan merchant total: %w", err)
		}
		out = append(out, mt)
	}
	return out, rows.Err()
}
