package core

import "errors"

// Sentinel errors shared across the ledger. Callers match them with
// errors.Is; each layer wraps with fmt.Errorf("...: %w", err) on the way up.
var (
	// ErrRateNotFound means no FX rate exists for the exact
	// (date, base, quote) tuple. It must be surfaced, never defaulted
	// to a zero or identity conversion.
	ErrRateNotFound = errors.New("fx rate not found")

	ErrInvalidRange    = errors.New("invalid date range")
	ErrInvalidMonth    = errors.New("month must be YYYY-MM")
	ErrInvalidInterval = errors.New("interval must be daily, weekly or monthly")
	ErrInvalidType     = errors.New("type must be income or expense")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidScope    = errors.New("scope must be total or category")

	// ErrMissingBaseCurrency means the owner profile carries no base
	// currency. That is a configuration error, not a default-to-THB case.
	ErrMissingBaseCurrency = errors.New("owner has no base currency configured")

	ErrNotFound   = errors.New("not found")
	ErrSameWallet = errors.New("source and destination wallets must differ")
)
