package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

type createRateRequest struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Base  string `json:"base"`
	Quote string `json:"quote"`
	Rate  string `json:"rate"`
}

type rateResponse struct {
	ID    int64  `json:"id"`
	Date  string `json:"date"`
	Base  string `json:"base"`
	Quote string `json:"quote"`
	Rate  string `json:"rate"`
}

func (s *Server) handleFxRates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListRates(w, r)
	case http.MethodPost:
		s.handleCreateRate(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreateRate(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.ownerFromRequest(w, r); !ok {
		return
	}

	var req createRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := core.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid date")
		return
	}
	base := strings.ToUpper(strings.TrimSpace(req.Base))
	quote := strings.ToUpper(strings.TrimSpace(req.Quote))
	if base == "" || quote == "" || base == quote {
		writeError(w, r, http.StatusBadRequest, "base and quote must be distinct currency codes")
		return
	}
	rate, err := core.ParseRate(req.Rate)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	id, err := s.repo.InsertRate(r.Context(), core.FxRate{
		Date:  date,
		Base:  base,
		Quote: quote,
		Rate:  rate,
	})
	if err != nil {
		// The unique index on (date, base, quote) makes duplicate
		// quotes a client error, not a server one.
		if strings.Contains(err.Error(), "UNIQUE") {
			writeError(w, r, http.StatusConflict, "rate already recorded for that date")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, rateResponse{
		ID:    id,
		Date:  date.String(),
		Base:  base,
		Quote: quote,
		Rate:  rate.String(),
	})
}

func (s *Server) handleListRates(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.ownerFromRequest(w, r); !ok {
		return
	}

	var date *core.Date
	if v := strings.TrimSpace(r.URL.Query().Get("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid date")
			return
		}
		date = &d
	}

	rates, err := s.repo.ListRates(r.Context(), date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := make([]rateResponse, 0, len(rates))
	for _, rate := range rates {
		items = append(items, rateResponse{
			ID:    rate.ID,
			Date:  rate.Date.String(),
			Base:  rate.Base,
			Quote: rate.Quote,
			Rate:  rate.Rate.String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type createWalletRequest struct {
	Name           string `json:"name"`
	Currency       string `json:"currency"`
	OpeningBalance string `json:"opening_balance"`
}

func (s *Server) handleWallets(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.ownerFromRequest(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		wallets, err := s.repo.ListActiveWallets(r.Context(), owner.ID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		type walletRow struct {
			ID             int64  `json:"id"`
			Name           string `json:"name"`
			Currency       string `json:"currency"`
			OpeningBalance string `json:"opening_balance"`
		}
		items := make([]walletRow, 0, len(wallets))
		for _, wl := range wallets {
			items = append(items, walletRow{
				ID:             wl.ID,
				Name:           wl.Name,
				Currency:       wl.Currency,
				OpeningBalance: core.Format2(wl.OpeningBalance),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})

	case http.MethodPost:
		var req createWalletRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		name := strings.TrimSpace(req.Name)
		currency := strings.ToUpper(strings.TrimSpace(req.Currency))
		if name == "" || currency == "" {
			writeError(w, r, http.StatusBadRequest, "name and currency are required")
			return
		}
		opening := decimal.Zero
		if strings.TrimSpace(req.OpeningBalance) != "" {
			var err error
			if opening, err = core.ParseAmount(req.OpeningBalance); err != nil {
				writeServiceError(w, r, err)
				return
			}
		}

		id, err := s.repo.CreateWallet(r.Context(), core.Wallet{
			OwnerID:        owner.ID,
			Name:           name,
			Currency:       currency,
			OpeningBalance: opening,
			IsActive:       true,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":              id,
			"name":            name,
			"currency":        currency,
			"opening_balance": core.Format2(opening),
		})

	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type createCategoryRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	ParentID *int64 `json:"parent_id"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.ownerFromRequest(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		categories, err := s.repo.ListCategories(r.Context(), owner.ID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		type categoryRow struct {
			ID       int64  `json:"id"`
			Name     string `json:"name"`
			Type     string `json:"type"`
			ParentID *int64 `json:"parent_id"`
		}
		items := make([]categoryRow, 0, len(categories))
		for _, c := range categories {
			items = append(items, categoryRow{
				ID:       c.ID,
				Name:     c.Name,
				Type:     string(c.Type),
				ParentID: c.ParentID,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})

	case http.MethodPost:
		var req createCategoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		name := strings.TrimSpace(req.Name)
		typ := core.TxType(strings.TrimSpace(req.Type))
		if name == "" {
			writeError(w, r, http.StatusBadRequest, "name is required")
			return
		}
		if typ != core.TxIncome && typ != core.TxExpense {
			writeServiceError(w, r, core.ErrInvalidType)
			return
		}
		if req.ParentID != nil {
			if _, err := s.repo.GetCategory(r.Context(), owner.ID, *req.ParentID); err != nil {
				writeServiceError(w, r, err)
				return
			}
		}

		id, err := s.repo.CreateCategory(r.Context(), core.Category{
			OwnerID:  owner.ID,
			Name:     name,
			Type:     typ,
			ParentID: req.ParentID,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":   id,
			"name": name,
			"type": string(typ),
		})

	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCurrencies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := s.ownerFromRequest(w, r); !ok {
		return
	}

	currencies, err := s.repo.ListCurrencies(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	type currencyRow struct {
		Code          string `json:"code"`
		DecimalPlaces int    `json:"decimal_places"`
	}
	items := make([]currencyRow, 0, len(currencies))
	for _, c := range currencies {
		items = append(items, currencyRow{Code: c.Code, DecimalPlaces: c.DecimalPlaces})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type createOwnerRequest struct {
	Username     string `json:"username"`
	BaseCurrency string `json:"base_currency"`
}

// handleOwners provisions a profile. It is the one route that takes no
// X-Owner-ID; deployments are expected to gate it at the proxy.
func (s *Server) handleOwners(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req createOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	username := strings.TrimSpace(req.Username)
	baseCurrency := strings.ToUpper(strings.TrimSpace(req.BaseCurrency))
	if username == "" {
		writeError(w, r, http.StatusBadRequest, "username is required")
		return
	}

	id, err := s.repo.CreateOwner(r.Context(), username, baseCurrency)
	if err != nil {
		if errors.Is(err, core.ErrMissingBaseCurrency) {
			writeError(w, r, http.StatusBadRequest, "base_currency is required")
			return
		}
		if strings.Contains(err.Error(), "UNIQUE") {
			writeError(w, r, http.StatusConflict, "username already taken")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":            id,
		"username":      username,
		"base_currency": baseCurrency,
	})
}
