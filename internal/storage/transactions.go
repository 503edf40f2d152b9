package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ledger/internal/core"
)

// occurredAtFormat keeps stored timestamps fixed-width UTC so that
// lexicographic comparison matches chronological order.
const occurredAtFormat = "2006-01-02T15:04:05Z"

func formatOccurredAt(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(occurredAtFormat)
}

// InsertTransaction stores one ledger entry and returns its id.
// BaseAmount must already be valued; it is never recomputed here.
func (r *Repository) InsertTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	id, err := insertTransaction(ctx, r.db, tx)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTransaction(ctx context.Context, db execer, tx core.Transaction) (int64, error) {
	var link any
	if tx.LinkID != "" {
		link = tx.LinkID
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO transactions
		   (owner_id, wallet_id, category_id, type, amount_micros, base_amount_micros,
		    occurred_at, merchant, note, is_deleted, link_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		tx.OwnerID, tx.WalletID, tx.CategoryID, string(tx.Type),
		core.ToMicros(tx.Amount), core.ToMicros(tx.BaseAmount),
		formatOccurredAt(tx.OccurredAt), tx.Merchant, tx.Note, link)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertTransferPair persists both legs of a transfer in one database
// transaction. Either both rows commit or neither does.
func (r *Repository) InsertTransferPair(ctx context.Context, out, in core.Transaction) (outID, inID int64, err error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin transfer: %w", err)
	}
	defer func() {
		if err != nil {
			_ = dbTx.Rollback()
		}
	}()

	outID, err = insertTransaction(ctx, dbTx, out)
	if err != nil {
		return 0, 0, fmt.Errorf("insert transfer_out: %w", err)
	}
	inID, err = insertTransaction(ctx, dbTx, in)
	if err != nil {
		return 0, 0, fmt.Errorf("insert transfer_in: %w", err)
	}
	if err = dbTx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit transfer: %w", err)
	}
	return outID, inID, nil
}

// SoftDeleteTransaction marks an entry deleted; aggregations skip it
// from then on. The row itself stays.
func (r *Repository) SoftDeleteTransaction(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET is_deleted = 1 WHERE id = ? AND owner_id = ?`,
		id, ownerID)
	if err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// GetTransaction loads one entry scoped to its owner, deleted or not.
func (r *Repository) GetTransaction(ctx context.Context, ownerID, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+` WHERE id = ? AND owner_id = ?`, id, ownerID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// TxFilter narrows ListTransactions. Zero values mean "no filter".
type TxFilter struct {
	WalletID   int64
	CategoryID int64
	Type       core.TxType
	From       core.Date
	To         core.Date
}

// ListTransactions returns the owner's non-deleted entries, newest
// first, optionally narrowed by wallet, category, type and date range.
func (r *Repository) ListTransactions(ctx context.Context, ownerID int64, f TxFilter) ([]core.Transaction, error) {
	query := selectTransaction + ` WHERE owner_id = ? AND is_deleted = 0`
	args := []any{ownerID}

	if f.WalletID != 0 {
		query += ` AND wallet_id = ?`
		args = append(args, f.WalletID)
	}
	if f.CategoryID != 0 {
		query += ` AND category_id = ?`
		args = append(args, f.CategoryID)
	}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	if !f.From.IsZero() && !f.To.IsZero() {
		query += ` AND date(occurred_at) >= ? AND date(occurred_at) <= ?`
		args = append(args, f.From.String(), f.To.String())
	}
	query += ` ORDER BY occurred_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// LinkedTransactions returns both legs of a transfer by link id.
func (r *Repository) LinkedTransactions(ctx context.Context, ownerID int64, linkID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		selectTransaction+` WHERE owner_id = ? AND link_id = ? ORDER BY id`, ownerID, linkID)
	if err != nil {
		return nil, fmt.Errorf("linked transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// WalletTypeSums aggregates a wallet's non-deleted entries by type in
// wallet-native micros, optionally truncated to entries on or before
// asOf. Missing types simply stay zero.
func (r *Repository) WalletTypeSums(ctx context.Context, walletID int64, asOf *core.Date) (map[core.TxType]int64, error) {
	query := `SELECT type, COALESCE(SUM(amount_micros), 0)
	          FROM transactions WHERE wallet_id = ? AND is_deleted = 0`
	args := []any{walletID}
	if asOf != nil {
		query += ` AND date(occurred_at) <= ?`
		args = append(args, asOf.String())
	}
	query += ` GROUP BY type`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("wallet type sums: %w", err)
	}
	defer rows.Close()

	sums := make(map[core.TxType]int64)
	for rows.Next() {
		var (
			typ    string
			micros int64
		)
		if err := rows.Scan(&typ, &micros); err != nil {
			return nil, fmt.Errorf("scan type sum: %w", err)
		}
		sums[core.TxType(typ)] = micros
	}
	return sums, rows.Err()
}

// LatestTransactionDate returns the occurrence date of the wallet's most
// recent non-deleted entry. ok is false when the wallet has none.
func (r *Repository) LatestTransactionDate(ctx context.Context, walletID int64) (core.Date, bool, error) {
	var s string
	err := r.db.QueryRowContext(ctx,
		`SELECT occurred_at FROM transactions
		 WHERE wallet_id = ? AND is_deleted = 0
		 ORDER BY occurred_at DESC LIMIT 1`, walletID).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Date{}, false, nil
	}
	if err != nil {
		return core.Date{}, false, fmt.Errorf("latest transaction date: %w", err)
	}
	t, err := time.Parse(occurredAtFormat, s)
	if err != nil {
		return core.Date{}, false, fmt.Errorf("parse occurred_at %q: %w", s, err)
	}
	return core.DateOf(t), true, nil
}

const selectTransaction = `
	SELECT id, owner_id, wallet_id, category_id, type, amount_micros,
	       base_amount_micros, occurred_at, merchant, note, is_deleted, link_id
	FROM transactions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx         core.Transaction
		categoryID sql.NullInt64
		typ        string
		amount     int64
		baseAmount int64
		occurredAt string
		deleted    int
		linkID     sql.NullString
	)
	err := row.Scan(&tx.ID, &tx.OwnerID, &tx.WalletID, &categoryID, &typ,
		&amount, &baseAmount, &occurredAt, &tx.Merchant, &tx.Note, &deleted, &linkID)
	if err != nil {
		return core.Transaction{}, err
	}
	if categoryID.Valid {
		tx.CategoryID = &categoryID.Int64
	}
	tx.Type = core.TxType(typ)
	tx.Amount = core.FromMicros(amount)
	tx.BaseAmount = core.FromMicros(baseAmount)
	tx.IsDeleted = deleted != 0
	tx.LinkID = linkID.String
	t, err := time.Parse(occurredAtFormat, occurredAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse occurred_at %q: %w", occurredAt, err)
	}
	tx.OccurredAt = t
	return tx, nil
}
