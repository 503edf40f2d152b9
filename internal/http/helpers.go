package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatus, status,
			applog.FieldError, msg)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps domain errors onto HTTP statuses. Validation
// failures are 400, a missing FX rate is 422 so clients can tell it
// apart from bad input, and unknown rows are 404.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidRange),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidInterval),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidScope),
		errors.Is(err, core.ErrSameWallet):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrRateNotFound):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// ownerFromRequest resolves the owner the upstream proxy authenticated.
// Profiles without a base currency are rejected here so no handler ever
// runs with an unpriceable owner.
func (s *Server) ownerFromRequest(w http.ResponseWriter, r *http.Request) (core.Owner, bool) {
	raw := strings.TrimSpace(r.Header.Get("X-Owner-ID"))
	if raw == "" {
		writeError(w, r, http.StatusUnauthorized, "missing X-Owner-ID header")
		return core.Owner{}, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusUnauthorized, "invalid X-Owner-ID header")
		return core.Owner{}, false
	}

	if owner, ok := s.ownerCache.Get(raw); ok {
		return owner, true
	}

	owner, err := s.repo.GetOwner(r.Context(), id)
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, r, http.StatusUnauthorized, "unknown owner")
		return core.Owner{}, false
	case errors.Is(err, core.ErrMissingBaseCurrency):
		writeError(w, r, http.StatusInternalServerError, "owner has no base currency")
		return core.Owner{}, false
	case err != nil:
		writeServiceError(w, r, err)
		return core.Owner{}, false
	}

	s.ownerCache.Set(raw, owner)
	return owner, true
}

// parseRange reads the from/to query parameters. Both are required so a
// truncated query string cannot pass for a deliberate range.
func parseRange(r *http.Request) (from, to core.Date, err error) {
	fromRaw := strings.TrimSpace(r.URL.Query().Get("from"))
	toRaw := strings.TrimSpace(r.URL.Query().Get("to"))
	if fromRaw == "" || toRaw == "" {
		return from, to, fmt.Errorf("from and to query parameters are required")
	}

	if from, err = core.ParseDate(fromRaw); err != nil {
		return from, to, fmt.Errorf("invalid from date %q", fromRaw)
	}
	if to, err = core.ParseDate(toRaw); err != nil {
		return from, to, fmt.Errorf("invalid to date %q", toRaw)
	}
	return from, to, nil
}

// parseAsOf reads the optional as_of query parameter.
func parseAsOf(r *http.Request) (*core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get("as_of"))
	if v == "" {
		return nil, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("invalid as_of date %q", v)
	}
	return &d, nil
}

// parseMonth reads the month query parameter, defaulting to the current
// month in the server timezone.
func (s *Server) parseMonth(r *http.Request) string {
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		return v
	}
	return time.Now().In(s.loc).Format("2006-01")
}

func parseLimit(r *http.Request) int {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseOptionalID(r *http.Request, name string) (*int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid %s %q", name, v)
	}
	return &id, nil
}

// generateRequestID creates a unique request id for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
