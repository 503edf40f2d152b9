package http

import (
	"log/slog"
	"net/http"
	"strings"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	owner, ok := s.ownerFromRequest(w, r)
	if !ok {
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.reports.Summary(r.Context(), owner, from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleByCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	owner, ok := s.ownerFromRequest(w, r)
	if !ok {
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	txType := core.TxType(strings.TrimSpace(r.URL.Query().Get("type")))

	report, err := s.reports.ByCategory(r.Context(), owner, from, to, txType)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	owner, ok := s.ownerFromRequest(w, r)
	if !ok {
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	interval := core.Interval(strings.TrimSpace(r.URL.Query().Get("interval")))

	report, err := s.reports.Trend(r.Context(), owner, from, to, interval)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleTopMerchants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	owner, ok := s.ownerFromRequest(w, r)
	if !ok {
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	txType := core.TxType(strings.TrimSpace(r.URL.Query().Get("type")))

	report, err := s.reports.TopMerchants(r.Context(), owner, from, to, txType, parseLimit(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleWalletBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	owner, ok := s.ownerFromRequest(w, r)
	if !ok {
		return
	}
	asOf, err := parseAsOf(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.balances.AllBalances(r.Context(), owner, asOf)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleExportMonth appends one month's summary and category breakdown
// to the configured Google Sheet.
func (s *Server) handleExportMonth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.exporter == nil {
		writeError(w, r, http.StatusNotImplemented, "sheet export is not configured")
		return
	}
	owner, ok := s.ownerFromRequest(w, r)
	if !ok {
		return
	}
	month := s.parseMonth(r)
	from, to, err := services.MonthRange(month, s.loc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	summary, err := s.reports.Summary(r.Context(), owner, from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	categories, err := s.reports.ByCategory(r.Context(), owner, from, to, core.TxExpense)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := s.exporter.ExportMonth(r.Context(), month, summary, categories); err != nil {
		slog.ErrorContext(r.Context(), "Sheet export failed",
			applog.FieldComponent, applog.ComponentExport,
			applog.FieldOwnerID, owner.ID,
			applog.FieldMonth, month,
			applog.FieldError, err)
		writeError(w, r, http.StatusBadGateway, "sheet export failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"month": month, "status": "exported"})
}
