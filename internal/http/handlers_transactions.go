package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
	"ledger/internal/services"
	"ledger/internal/storage"
)

type createTransactionRequest struct {
	WalletID   int64  `json:"wallet_id"`
	CategoryID *int64 `json:"category_id"`
	Type       string `json:"type"`
	Amount     string `json:"amount"`
	OccurredAt string `json:"occurred_at"` // RFC 3339 or YYYY-MM-DD
	Merchant   string `json:"merchant"`
	Note       string `json:"note"`
}

type transactionResponse struct {
	ID         int64  `json:"id"`
	WalletID   int64  `json:"wallet_id"`
	CategoryID *int64 `json:"category_id"`
	Type       string `json:"type"`
	Amount     string `json:"amount"`
	BaseAmount string `json:"base_amount"`
	OccurredAt string `json:"occurred_at"`
	Merchant   string `json:"merchant,omitempty"`
	Note       string `json:"note,omitempty"`
	LinkID     string `json:"link_id,omitempty"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:         tx.ID,
		WalletID:   tx.WalletID,
		CategoryID: tx.CategoryID,
		Type:       string(tx.Type),
		Amount:     core.Format2(tx.Amount),
		BaseAmount: core.Format2(tx.BaseAmount),
		OccurredAt: tx.OccurredAt.UTC().Format(time.RFC3339),
		Merchant:   tx.Merchant,
		Note:       tx.Note,
		LinkID:     tx.LinkID,
	}
}

// parseOccurredAt accepts a full timestamp or a bare date. Bare dates
// land at midnight in the server timezone.
func (s *Server) parseOccurredAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().In(s.loc), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", raw, s.loc)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTransactions(w, r)
	case http.MethodPost:
		s.handleCreateTransaction(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.ownerFromRequest(w, r)
	if !ok {
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	occurredAt, err := s.parseOccurredAt(req.OccurredAt)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid occurred_at")
		return
	}

	tx, err := s.transactions.Create(r.Context(), owner, services.TransactionInput{
		WalletID:   req.WalletID,
		CategoryID: req.CategoryID,
		Type:       core.TxType(req.Type),
		Amount:     amount,
		OccurredAt: occurredAt,
		Merchant:   strings.TrimSpace(req.Merchant),
		Note:       strings.TrimSpace(req.Note),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.ownerFromRequest(w, r)
	if !ok {
		return
	}

	var filter storage.TxFilter
	if id, err := parseOptionalID(r, "wallet_id"); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	} else if id != nil {
		filter.WalletID = *id
	}
	if id, err := parseOptionalID(r, "category_id"); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	} else if id != nil {
		filter.CategoryID = *id
	}
	if v := strings.TrimSpace(r.URL.Query().Get("type")); v != "" {
		t := core.TxType(v)
		if !t.Valid() {
			writeServiceError(w, r, core.ErrInvalidType)
			return
		}
		filter.Type = t
	}
	if r.URL.Query().Get("from") != "" || r.URL.Query().Get("to") != "" {
		from, to, err := parseRange(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		filter.From, filter.To = from, to
	}

	txs, err := s.transactions.List(r.Context(), owner, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

// handleTransactionByID serves /api/transactions/{id}. Delete is a soft
// delete; the row stays for linked-transfer bookkeeping.
func (s *Server) handleTransactionByID(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.ownerFromRequest(w, r)
	if !ok {
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid transaction id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		tx, err := s.transactions.Get(r.Context(), owner, id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, toTransactionResponse(tx))
	case http.MethodDelete:
		if err := s.transactions.Delete(r.Context(), owner, id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Allow", "GET, DELETE")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type transferRequest struct {
	SourceWalletID int64  `json:"source_wallet_id"`
	DestWalletID   int64  `json:"dest_wallet_id"`
	Amount         string `json:"amount"`
	OccurredAt     string `json:"occurred_at"`
	Note           string `json:"note"`
}

type transferResponse struct {
	LinkID string              `json:"link_id"`
	OutTx  transactionResponse `json:"out_tx"`
	InTx   transactionResponse `json:"in_tx"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	owner, ok := s.ownerFromRequest(w, r)
	if !ok {
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	occurredAt, err := s.parseOccurredAt(req.OccurredAt)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid occurred_at")
		return
	}

	result, err := s.transfers.CreateTransfer(r.Context(), owner, services.TransferInput{
		SourceWalletID: req.SourceWalletID,
		DestWalletID:   req.DestWalletID,
		Amount:         amount,
		OccurredAt:     occurredAt,
		Note:           strings.TrimSpace(req.Note),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, transferResponse{
		LinkID: result.LinkID,
		OutTx:  toTransactionResponse(result.OutTx),
		InTx:   toTransactionResponse(result.InTx),
	})
}
