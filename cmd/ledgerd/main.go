package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledger/internal/config"
	"ledger/internal/export"
	"ledger/internal/fx"
	apphttp "ledger/internal/http"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage"
)

func main() {
	// Load .env for local development; absent in containers.
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.New(cfg.SQLiteDBPath)
	if err != nil {
		slog.Error("Failed to open database", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	resolver := fx.NewResolver(repo)

	var exporter *export.SheetsExporter
	if cfg.GoogleSpreadsheetID != "" {
		exporter, err = export.NewFromEnv(context.Background(), cfg.GoogleSpreadsheetID, cfg.ExportSheetName)
		if err != nil {
			slog.Error("Failed to initialize sheet export", applog.FieldError, err)
			os.Exit(1)
		}
		slog.Info("Sheet export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		slog.Info("Sheet export disabled, no GOOGLE_SPREADSHEET_ID provided")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Repo:         repo,
		Balances:     services.NewBalanceService(repo, resolver),
		Budgets:      services.NewBudgetService(repo),
		Reports:      services.NewReportService(repo),
		Transactions: services.NewTransactionService(repo, resolver),
		Transfers:    services.NewTransferService(repo, resolver),
		Exporter:     exporter,
		Location:     cfg.Location(),
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		slog.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	slog.Info("Starting ledger server", "port", cfg.Port, "timezone", cfg.Timezone)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("Server stopped gracefully")
}
