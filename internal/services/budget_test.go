package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledger/internal/core"
)

func TestValidateMonth(t *testing.T) {
	tests := []struct {
		month string
		valid bool
	}{
		{"2025-03", true},
		{"2025-12", true},
		{"2025-13", false},
		{"2025-00", false},
		{"2025-3", false},
		{"202503", false},
		{"march", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.month, func(t *testing.T) {
			err := ValidateMonth(tt.month)
			if tt.valid && err != nil {
				t.Errorf("ValidateMonth(%q) = %v, want nil", tt.month, err)
			}
			if !tt.valid && !errors.Is(err, core.ErrInvalidMonth) {
				t.Errorf("ValidateMonth(%q) = %v, want ErrInvalidMonth", tt.month, err)
			}
		})
	}
}

func TestMonthWindow(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*3600)

	start, end, err := MonthWindow("2025-03", bangkok)
	if err != nil {
		t.Fatalf("MonthWindow: %v", err)
	}
	if !start.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, bangkok)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, bangkok)) {
		t.Errorf("end = %v", end)
	}

	t.Run("december rolls into january", func(t *testing.T) {
		_, end, err := MonthWindow("2025-12", time.UTC)
		if err != nil {
			t.Fatalf("MonthWindow: %v", err)
		}
		if !end.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("end = %v, want 2026-01-01", end)
		}
	})
}

func TestMonthRange(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*3600)

	from, to, err := MonthRange("2025-02", bangkok)
	if err != nil {
		t.Fatalf("MonthRange: %v", err)
	}
	// The local month boundaries, not the UTC instants they map to.
	if from.String() != "2025-02-01" || to.String() != "2025-02-28" {
		t.Errorf("range = [%s, %s], want [2025-02-01, 2025-02-28]", from, to)
	}

	t.Run("december", func(t *testing.T) {
		from, to, err := MonthRange("2025-12", bangkok)
		if err != nil {
			t.Fatalf("MonthRange: %v", err)
		}
		if from.String() != "2025-12-01" || to.String() != "2025-12-31" {
			t.Errorf("range = [%s, %s]", from, to)
		}
	})

	t.Run("invalid month", func(t *testing.T) {
		if _, _, err := MonthRange("2025-2", bangkok); !errors.Is(err, core.ErrInvalidMonth) {
			t.Errorf("err = %v, want ErrInvalidMonth", err)
		}
	})
}

func TestBudgetStatus(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewBudgetService(repo)
	ctx := context.Background()

	owner := seedOwner(t, repo, "somchai", "THB")
	wallet := seedWallet(t, repo, owner.ID, "Cash", "THB", "0")
	food := seedCategory(t, repo, owner.ID, "Food", core.TxExpense)

	if _, err := repo.CreateBudget(ctx, core.Budget{
		OwnerID: owner.ID, Month: "2025-03", Scope: core.ScopeTotal,
		LimitBase: dec(t, "1000"),
	}); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	if _, err := repo.CreateBudget(ctx, core.Budget{
		OwnerID: owner.ID, Month: "2025-03", Scope: core.ScopeCategory,
		CategoryID: &food.ID, LimitBase: dec(t, "300"),
	}); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	seedTx(t, repo, core.Transaction{
		OwnerID: owner.ID, WalletID: wallet.ID, CategoryID: &food.ID,
		Type: core.TxExpense, Amount: dec(t, "250"), BaseAmount: dec(t, "250"),
	}, "2025-03-05")
	seedTx(t, repo, core.Transaction{
		OwnerID: owner.ID, WalletID: wallet.ID,
		Type: core.TxExpense, Amount: dec(t, "150"), BaseAmount: dec(t, "150"),
	}, "2025-03-12")
	// Outside the month; must not count.
	seedTx(t, repo, core.Transaction{
		OwnerID: owner.ID, WalletID: wallet.ID, CategoryID: &food.ID,
		Type: core.TxExpense, Amount: dec(t, "999"), BaseAmount: dec(t, "999"),
	}, "2025-04-02")

	status, err := svc.Status(ctx, owner, "2025-03", time.UTC)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Month != "2025-03" || status.BaseCurrency != "THB" {
		t.Errorf("header = %+v", status)
	}
	if len(status.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(status.Items))
	}

	total := status.Items[0]
	if total.Title != "Total Budget" {
		t.Errorf("title = %q", total.Title)
	}
	if total.Spent != "400.00" || total.Remaining != "600.00" || total.PercentUsed != "40.00" {
		t.Errorf("total = spent %s remaining %s percent %s", total.Spent, total.Remaining, total.PercentUsed)
	}

	byCat := status.Items[1]
	if byCat.Title != "Category: Food" {
		t.Errorf("title = %q", byCat.Title)
	}
	if byCat.Spent != "250.00" || byCat.Remaining != "50.00" {
		t.Errorf("category = spent %s remaining %s", byCat.Spent, byCat.Remaining)
	}
}

func TestBudgetStatusOverspendAndZeroLimit(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewBudgetService(repo)
	ctx := context.Background()

	owner := seedOwner(t, repo, "somchai", "THB")
	wallet := seedWallet(t, repo, owner.ID, "Cash", "THB", "0")

	if _, err := repo.CreateBudget(ctx, core.Budget{
		OwnerID: owner.ID, Month: "2025-03", Scope: core.ScopeTotal,
		LimitBase: dec(t, "100"),
	}); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	if _, err := repo.CreateBudget(ctx, core.Budget{
		OwnerID: owner.ID, Month: "2025-03", Scope: core.ScopeTotal,
		LimitBase: dec(t, "0"),
	}); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}

	seedTx(t, repo, core.Transaction{
		OwnerID: owner.ID, WalletID: wallet.ID,
		Type: core.TxExpense, Amount: dec(t, "150"), BaseAmount: dec(t, "150"),
	}, "2025-03-05")

	status, err := svc.Status(ctx, owner, "2025-03", time.UTC)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}

	over := status.Items[0]
	if over.Remaining != "-50.00" || over.PercentUsed != "150.00" {
		t.Errorf("overspend = remaining %s percent %s", over.Remaining, over.PercentUsed)
	}

	// A zero limit reports 0 percent instead of dividing by zero.
	zero := status.Items[1]
	if zero.PercentUsed != "0.00" {
		t.Errorf("zero-limit percent = %s, want 0.00", zero.PercentUsed)
	}
	if zero.Remaining != "-150.00" {
		t.Errorf("zero-limit remaining = %s, want -150.00", zero.Remaining)
	}
}

func TestBudgetStatusValidation(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewBudgetService(repo)
	owner := seedOwner(t, repo, "somchai", "THB")

	if _, err := svc.Status(context.Background(), owner, "2025-3", time.UTC); !errors.Is(err, core.ErrInvalidMonth) {
		t.Errorf("bad month error = %v, want ErrInvalidMonth", err)
	}

	noBase := core.Owner{ID: owner.ID}
	if _, err := svc.Status(context.Background(), noBase, "2025-03", time.UTC); !errors.Is(err, core.ErrMissingBaseCurrency) {
		t.Errorf("no base currency error = %v, want ErrMissingBaseCurrency", err)
	}
}
