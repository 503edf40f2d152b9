// Package http exposes the ledger over a JSON API. Authentication is
// delegated to an upstream proxy; requests arrive with a trusted
// X-Owner-ID header and every handler is scoped to that owner.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/export"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage"
)

// Server wires the service layer into HTTP routes.
type Server struct {
	http.Server

	repo         *storage.Repository
	balances     *services.BalanceService
	budgets      *services.BudgetService
	reports      *services.ReportService
	transactions *services.TransactionService
	transfers    *services.TransferService
	exporter     *export.SheetsExporter // nil when export is not configured
	loc          *time.Location

	// ownerCache only shortcuts the X-Owner-ID lookup. Balances,
	// budgets and rates are never cached.
	ownerCache *cache.TTLCache[core.Owner]

	rateLimiter      *rateLimiter
	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// Deps collects everything the server needs. Exporter may be nil.
type Deps struct {
	Repo         *storage.Repository
	Balances     *services.BalanceService
	Budgets      *services.BudgetService
	Reports      *services.ReportService
	Transactions *services.TransactionService
	Transfers    *services.TransferService
	Exporter     *export.SheetsExporter
	Location     *time.Location
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, d Deps) *Server {
	mux := http.NewServeMux()

	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		repo:             d.Repo,
		balances:         d.Balances,
		budgets:          d.Budgets,
		reports:          d.Reports,
		transactions:     d.Transactions,
		transfers:        d.Transfers,
		exporter:         d.Exporter,
		loc:              loc,
		ownerCache:       cache.NewTTLCache[core.Owner](500, 30*time.Second),
		rateLimiter:      newRateLimiter(),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/api/reports/summary", s.withRequestLog(s.handleSummary))
	mux.HandleFunc("/api/reports/by-category", s.withRequestLog(s.handleByCategory))
	mux.HandleFunc("/api/reports/trend", s.withRequestLog(s.handleTrend))
	mux.HandleFunc("/api/reports/top-merchants", s.withRequestLog(s.handleTopMerchants))
	mux.HandleFunc("/api/reports/wallet-balances", s.withRequestLog(s.handleWalletBalances))
	mux.HandleFunc("/api/reports/export", s.withRequestLog(s.handleExportMonth))

	mux.HandleFunc("/api/budgets", s.withRequestLog(s.handleBudgets))
	mux.HandleFunc("/api/budgets/status", s.withRequestLog(s.handleBudgetStatus))

	mux.HandleFunc("/api/transactions", s.withRequestLog(s.handleTransactions))
	mux.HandleFunc("/api/transactions/", s.withRequestLog(s.handleTransactionByID))
	mux.HandleFunc("/api/transactions/transfer", s.withRequestLog(s.handleTransfer))

	mux.HandleFunc("/api/fx-rates", s.withRequestLog(s.handleFxRates))
	mux.HandleFunc("/api/wallets", s.withRequestLog(s.handleWallets))
	mux.HandleFunc("/api/categories", s.withRequestLog(s.handleCategories))
	mux.HandleFunc("/api/currencies", s.withRequestLog(s.handleCurrencies))
	mux.HandleFunc("/api/owners", s.withRequestLog(s.handleOwners))

	return s
}

// withRequestLog adds a request id, request logging, and write rate
// limiting.
func (s *Server) withRequestLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldRequestID, requestID,
				"client_ip", clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatus, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds())
	}
}

type requestIDKey struct{}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.ownerCache.CleanExpired(); n > 0 {
				slog.Debug("Owner cache cleanup", "entries_removed", n)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown stops the cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.repo.ListCurrencies(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// rateLimiter allows up to 60 write requests per client per minute.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]
	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
