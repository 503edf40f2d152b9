package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/fx"
	"ledger/internal/storage"
)

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.NewMemory()
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestResolver(repo *storage.Repository) *fx.Resolver {
	return fx.NewResolver(repo)
}

func seedOwner(t *testing.T, repo *storage.Repository, username, baseCurrency string) core.Owner {
	t.Helper()
	id, err := repo.CreateOwner(context.Background(), username, baseCurrency)
	if err != nil {
		t.Fatalf("CreateOwner(%s): %v", username, err)
	}
	return core.Owner{ID: id, Username: username, BaseCurrency: baseCurrency}
}

func seedWallet(t *testing.T, repo *storage.Repository, ownerID int64, name, currency, opening string) core.Wallet {
	t.Helper()
	w := core.Wallet{
		OwnerID:        ownerID,
		Name:           name,
		Currency:       currency,
		OpeningBalance: dec(t, opening),
		IsActive:       true,
	}
	id, err := repo.CreateWallet(context.Background(), w)
	if err != nil {
		t.Fatalf("CreateWallet(%s): %v", name, err)
	}
	w.ID = id
	return w
}

func seedCategory(t *testing.T, repo *storage.Repository, ownerID int64, name string, typ core.TxType) core.Category {
	t.Helper()
	c := core.Category{OwnerID: ownerID, Name: name, Type: typ}
	id, err := repo.CreateCategory(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCategory(%s): %v", name, err)
	}
	c.ID = id
	return c
}

func seedRate(t *testing.T, repo *storage.Repository, day, base, quote, rate string) {
	t.Helper()
	_, err := repo.InsertRate(context.Background(), core.FxRate{
		Date:  date(t, day),
		Base:  base,
		Quote: quote,
		Rate:  dec(t, rate),
	})
	if err != nil {
		t.Fatalf("InsertRate(%s %s->%s): %v", day, base, quote, err)
	}
}

// seedTx inserts an already-valued entry occurring at noon UTC on day.
func seedTx(t *testing.T, repo *storage.Repository, tx core.Transaction, day string) int64 {
	t.Helper()
	d := date(t, day)
	tx.OccurredAt = time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.UTC)
	id, err := repo.InsertTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("InsertTransaction: %v", err)
	}
	return id
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func date(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}
