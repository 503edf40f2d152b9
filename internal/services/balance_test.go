package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledger/internal/core"
)

func TestWalletBalanceSameCurrency(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewBalanceService(repo, newTestResolver(repo))

	owner := seedOwner(t, repo, "somchai", "THB")
	wallet := seedWallet(t, repo, owner.ID, "Cash", "THB", "100")

	seedTx(t, repo, core.Transaction{
		OwnerID: owner.ID, WalletID: wallet.ID,
		Type: core.TxIncome, Amount: dec(t, "50"), BaseAmount: dec(t, "50"),
	}, "2025-03-01")
	seedTx(t, repo, core.Transaction{
		OwnerID: owner.ID, WalletID: wallet.ID,
		Type: core.TxExpense, Amount: dec(t, "30.25"), BaseAmount: dec(t, "30.25"),
	}, "2025-03-05")

	got, err := svc.WalletBalance(context.Background(), owner, wallet, nil)
	if err != nil {
		t.Fatalf("WalletBalance: %v", err)
	}

	if got.OpeningBalance != "100.00" || got.Income != "50.00" || got.Expense != "30.25" {
		t.Errorf("breakdown = %+v", got)
	}
	if got.Balance != "119.75" {
		t.Errorf("balance = %s, want 119.75", got.Balance)
	}
	// Same currency as the owner's base needs no FX rate at all.
	if got.BaseBalance != "119.75" || got.BaseCurrency != "THB" {
		t.Errorf("base balance = %s %s", got.BaseBalance, got.BaseCurrency)
	}
}

func TestWalletBalanceConvertsToBase(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewBalanceService(repo, newTestResolver(repo))

	owner := seedOwner(t, repo, "somchai", "THB")
	wallet := seedWallet(t, repo, owner.ID, "US Account", "USD", "0")

	seedTx(t, repo, core.Transaction{
		OwnerID: owner.ID, WalletID: wallet.ID,
		Type: core.TxIncome, Amount: dec(t, "150"), BaseAmount: dec(t, "5250"),
	}, "2025-03-10")
	seedRate(t, repo, "2025-03-10", "USD", "THB", "35")

	// With no as-of, the rate date falls back to the wallet's latest
	// entry date.
	got, err := svc.WalletBalance(context.Background(), owner, wallet, nil)
	if err != nil {
		t.Fatalf("WalletBalance: %v", err)
	}
	if got.Balance != "150.00" {
		t.Errorf("native balance = %s, want 150.00", got.Balance)
	}
	if got.BaseBalance != "5250.00" {
		t.Errorf("base balance = %s, want 5250.00", got.BaseBalance)
	}
}

func TestWalletBalanceAsOf(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewBalanceService(repo, newTestResolver(repo))

	owner := seedOwner(t, repo, "somchai", "THB")
	wallet := seedWallet(t, repo, owner.ID, "US Account", "USD", "0")

	seedTx(t, repo, core.Transaction{
		OwnerID: owner.ID, WalletID: wallet.ID,
		Type: core.TxIncome, Amount: dec(t, "100"), BaseAmount: dec(t, "3500"),
	}, "2025-03-01")
	seedTx(t, repo, core.Transaction{
		OwnerID: owner.ID, WalletID: wallet.ID,
		Type: core.TxIncome, Amount: dec(t, "100"), BaseAmount: dec(t, "3600"),
	}, "2025-03-20")
	seedRate(t, repo, "2025-03-05", "USD", "THB", "34.50")

	asOf := date(t, "2025-03-05")
	got, err := svc.WalletBalance(context.Background(), owner, wallet, &asOf)
	if err != nil {
		t.Fatalf("WalletBalance: %v", err)
	}
	// Only the first entry is inside the cutoff, valued at the as-of
	// date's rate.
	if got.Balance != "100.00" {
		t.Errorf("native balance = %s, want 100.00", got.Balance)
	}
	if got.BaseBalance != "3450.00" {
		t.Errorf("base balance = %s, want 3450.00", got.BaseBalance)
	}

	t.Run("missing rate is an error", func(t *testing.T) {
		asOf := date(t, "2025-03-06")
		_, err := svc.WalletBalance(context.Background(), owner, wallet, &asOf)
		if !errors.Is(err, core.ErrRateNotFound) {
			t.Errorf("error = %v, want ErrRateNotFound", err)
		}
	})
}

func TestWalletBalanceEmptyWalletUsesToday(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewBalanceService(repo, newTestResolver(repo))
	svc.now = func() time.Time {
		return time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	}

	owner := seedOwner(t, repo, "somchai", "THB")
	wallet := seedWallet(t, repo, owner.ID, "US Account", "USD", "10")
	seedRate(t, repo, "2025-03-15", "USD", "THB", "2")

	got, err := svc.WalletBalance(context.Background(), owner, wallet, nil)
	if err != nil {
		t.Fatalf("WalletBalance: %v", err)
	}
	if got.BaseBalance != "20.00" {
		t.Errorf("base balance = %s, want 20.00", got.BaseBalance)
	}
}

func TestAllBalances(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewBalanceService(repo, newTestResolver(repo))

	owner := seedOwner(t, repo, "somchai", "THB")
	cash := seedWallet(t, repo, owner.ID, "Cash", "THB", "1000")
	usd := seedWallet(t, repo, owner.ID, "US Account", "USD", "0")

	seedTx(t, repo, core.Transaction{
		OwnerID: owner.ID, WalletID: usd.ID,
		Type: core.TxIncome, Amount: dec(t, "150"), BaseAmount: dec(t, "5250"),
	}, "2025-03-10")
	seedTx(t, repo, core.Transaction{
		OwnerID: owner.ID, WalletID: cash.ID,
		Type: core.TxExpense, Amount: dec(t, "250"), BaseAmount: dec(t, "250"),
	}, "2025-03-11")
	seedRate(t, repo, "2025-03-10", "USD", "THB", "35")

	report, err := svc.AllBalances(context.Background(), owner, nil)
	if err != nil {
		t.Fatalf("AllBalances: %v", err)
	}
	if len(report.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(report.Items))
	}
	// Wallets come back in name order.
	if report.Items[0].Name != "Cash" || report.Items[1].Name != "US Account" {
		t.Errorf("order = %s, %s", report.Items[0].Name, report.Items[1].Name)
	}
	// 750 THB + 5250 THB.
	if report.TotalBaseBalance != "6000.00" {
		t.Errorf("total = %s, want 6000.00", report.TotalBaseBalance)
	}
	if report.AsOf != "" {
		t.Errorf("as_of = %q, want empty", report.AsOf)
	}
}

func TestAllBalancesRequiresBaseCurrency(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewBalanceService(repo, newTestResolver(repo))

	_, err := svc.AllBalances(context.Background(), core.Owner{ID: 1}, nil)
	if !errors.Is(err, core.ErrMissingBaseCurrency) {
		t.Errorf("error = %v, want ErrMissingBaseCurrency", err)
	}
}
