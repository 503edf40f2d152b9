package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ledger/internal/core"
)

// CreateBudget stores a budget row. Duplicates for the same
// (owner, month, scope, category) are tolerated; the status engine
// evaluates each row independently.
func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (owner_id, month, scope, category_id, limit_base_micros)
		 VALUES (?, ?, ?, ?, ?)`,
		b.OwnerID, b.Month, string(b.Scope), b.CategoryID, core.ToMicros(b.LimitBase))
	if err != nil {
		return 0, fmt.Errorf("create budget: %w", err)
	}
	return res.LastInsertId()
}

// ListBudgetsForMonth returns the owner's budget rows for one month,
// carrying the category name for presentation.
func (r *Repository) ListBudgetsForMonth(ctx context.Context, ownerID int64, month string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.owner_id, b.month, b.scope, b.category_id, COALESCE(c.name, ''),
		        b.limit_base_micros, b.alert_80_sent, b.alert_100_sent
		 FROM budgets b
		 LEFT JOIN categories c ON c.id = b.category_id
		 WHERE b.owner_id = ? AND b.month = ?
		 ORDER BY b.id`,
		ownerID, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBudget loads one budget row scoped to its owner.
func (r *Repository) GetBudget(ctx context.Context, ownerID, id int64) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT b.id, b.owner_id, b.month, b.scope, b.category_id, COALESCE(c.name, ''),
		        b.limit_base_micros, b.alert_80_sent, b.alert_100_sent
		 FROM budgets b
		 LEFT JOIN categories c ON c.id = b.category_id
		 WHERE b.id = ? AND b.owner_id = ?`, id, ownerID)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// SetBudgetAlerts records which alert thresholds have been notified.
// Only the alert worker calls this; the status engine reads the flags
// as-is.
func (r *Repository) SetBudgetAlerts(ctx context.Context, id int64, alert80, alert100 bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET alert_80_sent = ?, alert_100_sent = ? WHERE id = ?`,
		boolToInt(alert80), boolToInt(alert100), id)
	if err != nil {
		return fmt.Errorf("set budget alerts: %w", err)
	}
	return nil
}

// ListOwnersWithBudgets returns the distinct owners holding at least one
// budget for the month, used by the alert worker's sweep.
func (r *Repository) ListOwnersWithBudgets(ctx context.Context, month string) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT owner_id FROM budgets WHERE month = ? ORDER BY owner_id`, month)
	if err != nil {
		return nil, fmt.Errorf("list owners with budgets: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan owner id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SumExpenseBase sums base amounts of non-deleted expenses in the
// half-open instant window [start, end), optionally narrowed to one
// category. An empty window sums to zero, not an error.
func (r *Repository) SumExpenseBase(ctx context.Context, ownerID int64, start, end time.Time, categoryID *int64) (int64, error) {
	query := `SELECT COALESCE(SUM(base_amount_micros), 0)
	          FROM transactions
	          WHERE owner_id = ? AND is_deleted = 0 AND type = 'expense'
	            AND occurred_at >= ? AND occurred_at < ?`
	args := []any{ownerID, formatOccurredAt(start), formatOccurredAt(end)}
	if categoryID != nil {
		query += ` AND category_id = ?`
		args = append(args, *categoryID)
	}

	var micros int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&micros); err != nil {
		return 0, fmt.Errorf("sum expense base: %w", err)
	}
	return micros, nil
}

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b         core.Budget
		scope     string
		catID     sql.NullInt64
		limit     int64
		a80, a100 int
	)
	err := row.Scan(&b.ID, &b.OwnerID, &b.Month, &scope, &catID, &b.CategoryName,
		&limit, &a80, &a100)
	if err != nil {
		return core.Budget{}, err
	}
	b.Scope = core.BudgetScope(scope)
	if catID.Valid {
		b.CategoryID = &catID.Int64
	}
	b.LimitBase = core.FromMicros(limit)
	b.Alert80Sent = a80 != 0
	b.Alert100Sent = a100 != 0
	return b, nil
}
