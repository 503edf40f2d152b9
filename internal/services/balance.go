// Package services implements the ledger's computation engines: wallet
// balances, budget status, report aggregation, transfers and budget
// alerts. Every engine is a pure read over the repository except the
// transfer writer and the alert sweeper.
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

// WalletBalance is one wallet's balance breakdown, every monetary field
// already formatted to two decimal places.
type WalletBalance struct {
	WalletID       int64  `json:"wallet_id"`
	Name           string `json:"name"`
	Currency       string `json:"currency"`
	OpeningBalance string `json:"opening_balance"`
	Income         string `json:"income"`
	Expense        string `json:"expense"`
	TransferIn     string `json:"transfer_in"`
	TransferOut    string `json:"transfer_out"`
	Balance        string `json:"balance"`
	BaseCurrency   string `json:"base_currency"`
	BaseBalance    string `json:"base_balance"`
}

// BalancesReport covers all of an owner's active wallets.
type BalancesReport struct {
	AsOf             string          `json:"as_of,omitempty"`
	BaseCurrency     string          `json:"base_currency"`
	TotalBaseBalance string          `json:"total_base_balance"`
	Items            []WalletBalance `json:"items"`
}

// BalanceService folds transaction history into wallet balances and
// converts them to the owner's base currency.
type BalanceService struct {
	repo     *storage.Repository
	resolver *fx.Resolver
	now      func() time.Time
}

func NewBalanceService(repo *storage.Repository, resolver *fx.Resolver) *BalanceService {
	return &BalanceService{repo: repo, resolver: resolver, now: time.Now}
}

// WalletBalance computes one wallet's balance, optionally truncated to
// entries occurring on or before asOf.
//
// The conversion rate date is asOf when given, else the date of the
// wallet's latest non-deleted entry, else today. A missing rate
// surfaces as core.ErrRateNotFound; it is never defaulted away.
func (s *BalanceService) WalletBalance(ctx context.Context, owner core.Owner, wallet core.Wallet, asOf *core.Date) (WalletBalance, error) {
	sums, err := s.repo.WalletTypeSums(ctx, wallet.ID, asOf)
	if err != nil {
		return WalletBalance{}, fmt.Errorf("wallet %d sums: %w", wallet.ID, err)
	}

	income := sums[core.TxIncome]
	expense := sums[core.TxExpense]
	tin := sums[core.TxTransferIn]
	tout := sums[core.TxTransferOut]

	openingMicros := core.ToMicros(wallet.OpeningBalance)
	nativeMicros := openingMicros + income + tin - expense - tout

	// Wallet-currency presentation precision; the base conversion
	// multiplies the already-rounded native balance, matching the
	// write-side valuation order.
	native := core.FromMicros(nativeMicros).Round(2)

	base := native
	if wallet.Currency != owner.BaseCurrency {
		rateDate, err := s.rateDate(ctx, wallet.ID, asOf)
		if err != nil {
			return WalletBalance{}, err
		}
		rate, err := s.resolver.Resolve(ctx, rateDate, wallet.Currency, owner.BaseCurrency)
		if err != nil {
			return WalletBalance{}, fmt.Errorf("wallet %d balance: %w", wallet.ID, err)
		}
		base = native.Mul(rate).Round(2)
	}

	return WalletBalance{
		WalletID:       wallet.ID,
		Name:           wallet.Name,
		Currency:       wallet.Currency,
		OpeningBalance: core.FormatMicros2(openingMicros),
		Income:         core.FormatMicros2(income),
		Expense:        core.FormatMicros2(expense),
		TransferIn:     core.FormatMicros2(tin),
		TransferOut:    core.FormatMicros2(tout),
		Balance:        core.Format2(native),
		BaseCurrency:   owner.BaseCurrency,
		BaseBalance:    core.Format2(base),
	}, nil
}

// rateDate picks the conversion date: explicit as-of, then the latest
// transaction date, then today. This fallback lives here, not in the
// resolver, on purpose.
func (s *BalanceService) rateDate(ctx context.Context, walletID int64, asOf *core.Date) (core.Date, error) {
	if asOf != nil {
		return *asOf, nil
	}
	latest, ok, err := s.repo.LatestTransactionDate(ctx, walletID)
	if err != nil {
		return core.Date{}, fmt.Errorf("wallet %d latest date: %w", walletID, err)
	}
	if ok {
		return latest, nil
	}
	return core.DateOf(s.now()), nil
}

// AllBalances computes every active wallet's balance plus the base-
// currency grand total, wallets ordered by name.
func (s *BalanceService) AllBalances(ctx context.Context, owner core.Owner, asOf *core.Date) (BalancesReport, error) {
	if owner.BaseCurrency == "" {
		return BalancesReport{}, core.ErrMissingBaseCurrency
	}

	wallets, err := s.repo.ListActiveWallets(ctx, owner.ID)
	if err != nil {
		return BalancesReport{}, fmt.Errorf("list wallets: %w", err)
	}

	report := BalancesReport{
		BaseCurrency: owner.BaseCurrency,
		Items:        make([]WalletBalance, 0, len(wallets)),
	}
	if asOf != nil {
		report.AsOf = asOf.String()
	}

	total := decimal.Zero
	for _, w := range wallets {
		wb, err := s.WalletBalance(ctx, owner, w, asOf)
		if err != nil {
			return BalancesReport{}, err
		}
		report.Items = append(report.Items, wb)

		bb, err := decimal.NewFromString(wb.BaseBalance)
		if err != nil {
			return BalancesReport{}, fmt.Errorf("parse base balance %q: %w", wb.BaseBalance, err)
		}
		total = total.Add(bb)
	}
	report.TotalBaseBalance = core.Format2(total)
	return report, nil
}
