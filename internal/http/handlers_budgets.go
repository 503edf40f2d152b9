package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"ledger/internal/core"
	"ledger/internal/services"
)

type createBudgetRequest struct {
	Month      string `json:"month"` // YYYY-MM
	Scope      string `json:"scope"`
	CategoryID *int64 `json:"category_id"`
	Limit      string `json:"limit"`
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListBudgets(w, r)
	case http.MethodPost:
		s.handleCreateBudget(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.ownerFromRequest(w, r)
	if !ok {
		return
	}

	var req createBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := services.ValidateMonth(req.Month); err != nil {
		writeServiceError(w, r, err)
		return
	}
	scope := core.BudgetScope(strings.TrimSpace(req.Scope))
	if !scope.Valid() {
		writeServiceError(w, r, core.ErrInvalidScope)
		return
	}
	if scope == core.ScopeCategory && req.CategoryID == nil {
		writeError(w, r, http.StatusBadRequest, "category budgets require category_id")
		return
	}
	if scope == core.ScopeTotal {
		req.CategoryID = nil
	}
	limit, err := core.ParseAmount(req.Limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.CategoryID != nil {
		if _, err := s.repo.GetCategory(r.Context(), owner.ID, *req.CategoryID); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	id, err := s.repo.CreateBudget(r.Context(), core.Budget{
		OwnerID:    owner.ID,
		Month:      req.Month,
		Scope:      scope,
		CategoryID: req.CategoryID,
		LimitBase:  limit,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":    id,
		"month": req.Month,
		"scope": string(scope),
		"limit": core.Format2(limit),
	})
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.ownerFromRequest(w, r)
	if !ok {
		return
	}
	month := s.parseMonth(r)
	if err := services.ValidateMonth(month); err != nil {
		writeServiceError(w, r, err)
		return
	}

	budgets, err := s.repo.ListBudgetsForMonth(r.Context(), owner.ID, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	type budgetRow struct {
		ID         int64  `json:"id"`
		Month      string `json:"month"`
		Scope      string `json:"scope"`
		CategoryID *int64 `json:"category_id"`
		Limit      string `json:"limit"`
	}
	items := make([]budgetRow, 0, len(budgets))
	for _, b := range budgets {
		items = append(items, budgetRow{
			ID:         b.ID,
			Month:      b.Month,
			Scope:      string(b.Scope),
			CategoryID: b.CategoryID,
			Limit:      core.Format2(b.LimitBase),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"month": month, "items": items})
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	owner, ok := s.ownerFromRequest(w, r)
	if !ok {
		return
	}
	month := s.parseMonth(r)

	status, err := s.budgets.Status(r.Context(), owner, month, s.loc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
