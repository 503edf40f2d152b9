// Package storage implements the persistent query surface of the ledger
// on SQLite. All monetary columns are integer micros so SQL aggregation
// stays exact; FX rates are kept as decimal strings because they are
// never summed in SQL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"ledger/internal/core"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and applies
// pending migrations.
func New(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

// NewMemory opens a fresh in-memory database, used by tests.
func NewMemory() (*Repository, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	// A second connection would see a different empty database.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListCurrencies returns the currency reference table.
func (r *Repository) ListCurrencies(ctx context.Context) ([]core.Currency, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT code, decimal_places FROM currencies ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	defer rows.Close()

	var out []core.Currency
	for rows.Next() {
		var c core.Currency
		if err := rows.Scan(&c.Code, &c.DecimalPlaces); err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateOwner registers an owner profile. BaseCurrency is mandatory:
// a profile without one would poison every base-amount computation.
func (r *Repository) CreateOwner(ctx context.Context, username, baseCurrency string) (int64, error) {
	if baseCurrency == "" {
		return 0, core.ErrMissingBaseCurrency
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO owners (username, base_currency) VALUES (?, ?)`,
		username, baseCurrency)
	if err != nil {
		return 0, fmt.Errorf("create owner: %w", err)
	}
	return res.LastInsertId()
}

// GetOwner loads the owner context every core query is scoped to.
func (r *Repository) GetOwner(ctx context.Context, id int64) (core.Owner, error) {
	var o core.Owner
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, base_currency FROM owners WHERE id = ?`, id).
		Scan(&o.ID, &o.Username, &o.BaseCurrency)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Owner{}, fmt.Errorf("owner %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Owner{}, fmt.Errorf("get owner: %w", err)
	}
	if o.BaseCurrency == "" {
		return core.Owner{}, fmt.Errorf("owner %d: %w", id, core.ErrMissingBaseCurrency)
	}
	return o, nil
}

// InsertRate records an FX quote. Rows are append-only; a second quote
// for the same (date, base, quote) violates the unique constraint.
func (r *Repository) InsertRate(ctx context.Context, rate core.FxRate) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO fx_rates (date, base, quote, rate) VALUES (?, ?, ?, ?)`,
		rate.Date.String(), rate.Base, rate.Quote, rate.Rate.String())
	if err != nil {
		return 0, fmt.Errorf("insert fx rate: %w", err)
	}
	return res.LastInsertId()
}

// GetRate returns the stored rate for the exact (date, base, quote)
// tuple, or core.ErrRateNotFound. No date-walking and no reciprocal
// lookup happens here.
func (r *Repository) GetRate(ctx context.Context, date core.Date, base, quote string) (decimal.Decimal, error) {
	var s string
	err := r.db.QueryRowContext(ctx,
		`SELECT rate FROM fx_rates WHERE date = ? AND base = ? AND quote = ?`,
		date.String(), base, quote).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Decimal{}, fmt.Errorf("%s %s->%s: %w", date, base, quote, core.ErrRateNotFound)
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("get fx rate: %w", err)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse stored rate %q: %w", s, err)
	}
	return d, nil
}

// ListRates returns stored quotes, optionally narrowed to one date,
// ordered newest first.
func (r *Repository) ListRates(ctx context.Context, date *core.Date) ([]core.FxRate, error) {
	query := `SELECT id, date, base, quote, rate FROM fx_rates`
	var args []any
	if date != nil {
		query += ` WHERE date = ?`
		args = append(args, date.String())
	}
	query += ` ORDER BY date DESC, base, quote`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list fx rates: %w", err)
	}
	defer rows.Close()

	var out []core.FxRate
	for rows.Next() {
		var (
			rate    core.FxRate
			day     string
			rateStr string
		)
		if err := rows.Scan(&rate.ID, &day, &rate.Base, &rate.Quote, &rateStr); err != nil {
			return nil, fmt.Errorf("scan fx rate: %w", err)
		}
		if rate.Date, err = core.ParseDate(day); err != nil {
			return nil, fmt.Errorf("parse stored rate date %q: %w", day, err)
		}
		if rate.Rate, err = decimal.NewFromString(rateStr); err != nil {
			return nil, fmt.Errorf("parse stored rate %q: %w", rateStr, err)
		}
		out = append(out, rate)
	}
	return out, rows.Err()
}

// CreateWallet stores a wallet; the opening balance is fixed here and
// never updated afterwards.
func (r *Repository) CreateWallet(ctx context.Context, w core.Wallet) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO wallets (owner_id, name, currency, opening_balance_micros, is_active)
		 VALUES (?, ?, ?, ?, ?)`,
		w.OwnerID, w.Name, w.Currency, core.ToMicros(w.OpeningBalance), boolToInt(w.IsActive))
	if err != nil {
		return 0, fmt.Errorf("create wallet: %w", err)
	}
	return res.LastInsertId()
}

// GetWallet loads one wallet scoped to its owner.
func (r *Repository) GetWallet(ctx context.Context, ownerID, id int64) (core.Wallet, error) {
	var (
		w      core.Wallet
		micros int64
		active int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, currency, opening_balance_micros, is_active
		 FROM wallets WHERE id = ? AND owner_id = ?`, id, ownerID).
		Scan(&w.ID, &w.OwnerID, &w.Name, &w.Currency, &micros, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Wallet{}, fmt.Errorf("wallet %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Wallet{}, fmt.Errorf("get wallet: %w", err)
	}
	w.OpeningBalance = core.FromMicros(micros)
	w.IsActive = active != 0
	return w, nil
}

// ListActiveWallets returns the owner's active wallets ordered by name.
func (r *Repository) ListActiveWallets(ctx context.Context, ownerID int64) ([]core.Wallet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, currency, opening_balance_micros, is_active
		 FROM wallets WHERE owner_id = ? AND is_active = 1 ORDER BY name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var out []core.Wallet
	for rows.Next() {
		var (
			w      core.Wallet
			micros int64
			active int
		)
		if err := rows.Scan(&w.ID, &w.OwnerID, &w.Name, &w.Currency, &micros, &active); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		w.OpeningBalance = core.FromMicros(micros)
		w.IsActive = active != 0
		out = append(out, w)
	}
	return out, rows.Err()
}

// CreateCategory stores a category node.
func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (owner_id, name, type, parent_id) VALUES (?, ?, ?, ?)`,
		c.OwnerID, c.Name, string(c.Type), c.ParentID)
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	return res.LastInsertId()
}

// GetCategory loads one category scoped to its owner.
func (r *Repository) GetCategory(ctx context.Context, ownerID, id int64) (core.Category, error) {
	var (
		c      core.Category
		typ    string
		parent sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, type, parent_id FROM categories
		 WHERE id = ? AND owner_id = ?`, id, ownerID).
		Scan(&c.ID, &c.OwnerID, &c.Name, &typ, &parent)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	c.Type = core.TxType(typ)
	if parent.Valid {
		c.ParentID = &parent.Int64
	}
	return c, nil
}

// ListCategories returns the owner's categories ordered by type then
// name.
func (r *Repository) ListCategories(ctx context.Context, ownerID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, type, parent_id FROM categories
		 WHERE owner_id = ? ORDER BY type, name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var (
			c      core.Category
			typ    string
			parent sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &typ, &parent); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TxType(typ)
		if parent.Valid {
			c.ParentID = &parent.Int64
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
