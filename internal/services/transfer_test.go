package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledger/internal/core"
	"ledger/internal/storage"
)

func TestCreateTransferSameCurrency(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewTransferService(repo, newTestResolver(repo))
	ctx := context.Background()

	owner := seedOwner(t, repo, "somchai", "THB")
	cash := seedWallet(t, repo, owner.ID, "Cash", "THB", "0")
	bank := seedWallet(t, repo, owner.ID, "Bank", "THB", "0")

	// No FX rates exist; a same-currency transfer in the base currency
	// must not need any.
	result, err := svc.CreateTransfer(ctx, owner, TransferInput{
		SourceWalletID: cash.ID,
		DestWalletID:   bank.ID,
		Amount:         dec(t, "200"),
		OccurredAt:     time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		Note:           "monthly saving",
	})
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}

	if result.LinkID == "" {
		t.Fatal("expected a link id")
	}
	if result.OutTx.Type != core.TxTransferOut || result.InTx.Type != core.TxTransferIn {
		t.Errorf("types = %s, %s", result.OutTx.Type, result.InTx.Type)
	}
	if !result.OutTx.Amount.Equal(result.InTx.Amount) {
		t.Errorf("amounts differ: %s vs %s", result.OutTx.Amount, result.InTx.Amount)
	}
	if result.OutTx.LinkID != result.InTx.LinkID {
		t.Errorf("link ids differ: %s vs %s", result.OutTx.LinkID, result.InTx.LinkID)
	}

	linked, err := repo.LinkedTransactions(ctx, owner.ID, result.LinkID)
	if err != nil {
		t.Fatalf("LinkedTransactions: %v", err)
	}
	if len(linked) != 2 {
		t.Errorf("got %d persisted legs, want 2", len(linked))
	}
}

func TestCreateTransferCrossCurrency(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewTransferService(repo, newTestResolver(repo))
	ctx := context.Background()

	owner := seedOwner(t, repo, "somchai", "THB")
	usd := seedWallet(t, repo, owner.ID, "US Account", "USD", "0")
	cash := seedWallet(t, repo, owner.ID, "Cash", "THB", "0")
	seedRate(t, repo, "2025-03-10", "USD", "THB", "35")

	result, err := svc.CreateTransfer(ctx, owner, TransferInput{
		SourceWalletID: usd.ID,
		DestWalletID:   cash.ID,
		Amount:         dec(t, "100"),
		OccurredAt:     time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}

	if !result.OutTx.Amount.Equal(dec(t, "100")) {
		t.Errorf("out amount = %s, want 100", result.OutTx.Amount)
	}
	if !result.InTx.Amount.Equal(dec(t, "3500")) {
		t.Errorf("in amount = %s, want 3500", result.InTx.Amount)
	}
	// Both legs valued in the owner's base currency for that date.
	if !result.OutTx.BaseAmount.Equal(dec(t, "3500")) || !result.InTx.BaseAmount.Equal(dec(t, "3500")) {
		t.Errorf("base amounts = %s, %s; want 3500 each", result.OutTx.BaseAmount, result.InTx.BaseAmount)
	}
}

func TestCreateTransferMissingRateWritesNothing(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewTransferService(repo, newTestResolver(repo))
	ctx := context.Background()

	owner := seedOwner(t, repo, "somchai", "THB")
	usd := seedWallet(t, repo, owner.ID, "US Account", "USD", "0")
	cash := seedWallet(t, repo, owner.ID, "Cash", "THB", "0")

	_, err := svc.CreateTransfer(ctx, owner, TransferInput{
		SourceWalletID: usd.ID,
		DestWalletID:   cash.ID,
		Amount:         dec(t, "100"),
		OccurredAt:     time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, core.ErrRateNotFound) {
		t.Fatalf("error = %v, want ErrRateNotFound", err)
	}

	txs, err := repo.ListTransactions(ctx, owner.ID, storage.TxFilter{})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("got %d rows after failed transfer, want 0", len(txs))
	}
}

func TestCreateTransferValidation(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewTransferService(repo, newTestResolver(repo))
	ctx := context.Background()

	owner := seedOwner(t, repo, "somchai", "THB")
	cash := seedWallet(t, repo, owner.ID, "Cash", "THB", "0")
	bank := seedWallet(t, repo, owner.ID, "Bank", "THB", "0")
	occurred := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("same wallet", func(t *testing.T) {
		_, err := svc.CreateTransfer(ctx, owner, TransferInput{
			SourceWalletID: cash.ID, DestWalletID: cash.ID,
			Amount: dec(t, "10"), OccurredAt: occurred,
		})
		if !errors.Is(err, core.ErrSameWallet) {
			t.Errorf("error = %v, want ErrSameWallet", err)
		}
	})

	t.Run("non-positive amount", func(t *testing.T) {
		_, err := svc.CreateTransfer(ctx, owner, TransferInput{
			SourceWalletID: cash.ID, DestWalletID: bank.ID,
			Amount: dec(t, "0"), OccurredAt: occurred,
		})
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("error = %v, want ErrInvalidAmount", err)
		}
	})

	t.Run("unknown wallet", func(t *testing.T) {
		_, err := svc.CreateTransfer(ctx, owner, TransferInput{
			SourceWalletID: cash.ID, DestWalletID: 999,
			Amount: dec(t, "10"), OccurredAt: occurred,
		})
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("missing base currency", func(t *testing.T) {
		_, err := svc.CreateTransfer(ctx, core.Owner{ID: owner.ID}, TransferInput{
			SourceWalletID: cash.ID, DestWalletID: bank.ID,
			Amount: dec(t, "10"), OccurredAt: occurred,
		})
		if !errors.Is(err, core.ErrMissingBaseCurrency) {
			t.Errorf("error = %v, want ErrMissingBaseCurrency", err)
		}
	})
}
