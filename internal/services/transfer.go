package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/fx"
	"ledger/internal/storage"
)

// TransferInput describes a wallet-to-wallet transfer in the source
// wallet's currency.
type TransferInput struct {
	SourceWalletID int64
	DestWalletID   int64
	Amount         decimal.Decimal
	OccurredAt     time.Time
	Note           string
}

// TransferResult carries the generated link id and both persisted legs.
type TransferResult struct {
	LinkID string           `json:"link_id"`
	OutTx  core.Transaction `json:"-"`
	InTx   core.Transaction `json:"-"`
}

// TransferService is the ledger's only write path with cross-entity
// consistency requirements: the two legs of a transfer commit atomically
// or not at all.
type TransferService struct {
	repo     *storage.Repository
	resolver *fx.Resolver
}

func NewTransferService(repo *storage.Repository, resolver *fx.Resolver) *TransferService {
	return &TransferService{repo: repo, resolver: resolver}
}

// CreateTransfer creates the transfer_out/transfer_in pair sharing one
// link id.
//
// Same-currency transfers copy the amount with no FX lookup. When the
// wallets differ, the destination amount is converted through the FX
// rate for the occurrence date, and each leg's base amount is valued
// independently through its own wallet-to-base rate for that date. A
// missing rate aborts before anything is written.
func (s *TransferService) CreateTransfer(ctx context.Context, owner core.Owner, in TransferInput) (TransferResult, error) {
	if owner.BaseCurrency == "" {
		return TransferResult{}, core.ErrMissingBaseCurrency
	}
	if !in.Amount.IsPositive() {
		return TransferResult{}, core.ErrInvalidAmount
	}
	if in.SourceWalletID == in.DestWalletID {
		return TransferResult{}, core.ErrSameWallet
	}

	source, err := s.repo.GetWallet(ctx, owner.ID, in.SourceWalletID)
	if err != nil {
		return TransferResult{}, fmt.Errorf("source wallet: %w", err)
	}
	dest, err := s.repo.GetWallet(ctx, owner.ID, in.DestWalletID)
	if err != nil {
		return TransferResult{}, fmt.Errorf("destination wallet: %w", err)
	}

	date := core.DateOf(in.OccurredAt)

	destAmount := in.Amount
	if source.Currency != dest.Currency {
		destAmount, err = s.resolver.Convert(ctx, date, source.Currency, dest.Currency, in.Amount)
		if err != nil {
			return TransferResult{}, fmt.Errorf("transfer conversion: %w", err)
		}
	}

	outBase, err := s.resolver.Convert(ctx, date, source.Currency, owner.BaseCurrency, in.Amount)
	if err != nil {
		return TransferResult{}, fmt.Errorf("transfer_out valuation: %w", err)
	}
	inBase, err := s.resolver.Convert(ctx, date, dest.Currency, owner.BaseCurrency, destAmount)
	if err != nil {
		return TransferResult{}, fmt.Errorf("transfer_in valuation: %w", err)
	}

	linkID := uuid.NewString()

	outTx := core.Transaction{
		OwnerID:    owner.ID,
		WalletID:   source.ID,
		Type:       core.TxTransferOut,
		Amount:     in.Amount,
		BaseAmount: outBase,
		OccurredAt: in.OccurredAt,
		Note:       in.Note,
		LinkID:     linkID,
	}
	inTx := core.Transaction{
		OwnerID:    owner.ID,
		WalletID:   dest.ID,
		Type:       core.TxTransferIn,
		Amount:     destAmount,
		BaseAmount: inBase,
		OccurredAt: in.OccurredAt,
		Note:       in.Note,
		LinkID:     linkID,
	}

	outID, inID, err := s.repo.InsertTransferPair(ctx, outTx, inTx)
	if err != nil {
		return TransferResult{}, fmt.Errorf("persist transfer: %w", err)
	}
	outTx.ID = outID
	inTx.ID = inID

	return TransferResult{LinkID: linkID, OutTx: outTx, InTx: inTx}, nil
}
