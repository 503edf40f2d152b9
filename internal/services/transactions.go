package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/fx"
	"ledger/internal/storage"
)

// TransactionInput describes a plain income or expense entry in the
// wallet's currency.
type TransactionInput struct {
	WalletID   int64
	CategoryID *int64
	Type       core.TxType
	Amount     decimal.Decimal
	OccurredAt time.Time
	Merchant   string
	Note       string
}

// TransactionService handles plain (non-transfer) ledger writes.
type TransactionService struct {
	repo     *storage.Repository
	resolver *fx.Resolver
}

func NewTransactionService(repo *storage.Repository, resolver *fx.Resolver) *TransactionService {
	return &TransactionService{repo: repo, resolver: resolver}
}

// Create values and persists one entry. The base amount is computed
// here, once, from the FX rate applicable to the occurrence date;
// later rate corrections never touch it.
func (s *TransactionService) Create(ctx context.Context, owner core.Owner, in TransactionInput) (core.Transaction, error) {
	if owner.BaseCurrency == "" {
		return core.Transaction{}, core.ErrMissingBaseCurrency
	}
	switch in.Type {
	case core.TxIncome, core.TxExpense:
	default:
		return core.Transaction{}, fmt.Errorf("%q: %w", in.Type, core.ErrInvalidType)
	}
	if !in.Amount.IsPositive() {
		return core.Transaction{}, core.ErrInvalidAmount
	}

	wallet, err := s.repo.GetWallet(ctx, owner.ID, in.WalletID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("wallet: %w", err)
	}
	if in.CategoryID != nil {
		if _, err := s.repo.GetCategory(ctx, owner.ID, *in.CategoryID); err != nil {
			return core.Transaction{}, fmt.Errorf("category: %w", err)
		}
	}

	baseAmount, err := s.resolver.Convert(ctx, core.DateOf(in.OccurredAt),
		wallet.Currency, owner.BaseCurrency, in.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("valuation: %w", err)
	}

	tx := core.Transaction{
		OwnerID:    owner.ID,
		WalletID:   wallet.ID,
		CategoryID: in.CategoryID,
		Type:       in.Type,
		Amount:     in.Amount,
		BaseAmount: baseAmount,
		OccurredAt: in.OccurredAt,
		Merchant:   in.Merchant,
		Note:       in.Note,
	}
	id, err := s.repo.InsertTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.ID = id
	return tx, nil
}

// Get returns one of the owner's entries by id.
func (s *TransactionService) Get(ctx context.Context, owner core.Owner, id int64) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, owner.ID, id)
}

// Delete soft-deletes an entry; every aggregation excludes it from
// then on.
func (s *TransactionService) Delete(ctx context.Context, owner core.Owner, id int64) error {
	return s.repo.SoftDeleteTransaction(ctx, owner.ID, id)
}

// List returns the owner's entries, newest first.
func (s *TransactionService) List(ctx context.Context, owner core.Owner, filter storage.TxFilter) ([]core.Transaction, error) {
	return s.repo.ListTransactions(ctx, owner.ID, filter)
}
