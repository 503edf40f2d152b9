package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/config"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentAlerts,
	})
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

	// The worker runs without a broker; alerts are then recorded in the
	// database but not delivered.
	var client *amqp.Client
	if cfg.AMQPURL != "" {
		client, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Error("Failed to connect to AMQP broker", applog.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		slog.Info("Connected to AMQP broker", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		slog.Warn("AMQP disabled, alerts will be recorded but not delivered")
	}

	var publisher services.AlertPublisher
	if client != nil {
		publisher = client
	}
	evaluator := services.NewAlertEvaluator(
		repo,
		services.NewBudgetService(repo),
		publisher,
		cfg.Location(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(cfg.AlertInterval)
		defer ticker.Stop()

		slog.Info("Starting budget alert sweep loop", "interval", cfg.AlertInterval.String())
		if err := evaluator.RunOnce(ctx); err != nil {
			slog.Error("Budget alert sweep failed", applog.FieldError, err)
		}
		for {
			select {
			case <-ticker.C:
				if err := evaluator.RunOnce(ctx); err != nil {
					slog.Error("Budget alert sweep failed", applog.FieldError, err)
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	if client != nil {
		g.Go(func() error {
			return client.ConsumeBudgetAlerts(ctx, func(msg *amqp.BudgetAlertMessage) error {
				slog.Info("Budget alert delivered",
					applog.FieldBudgetID, msg.BudgetID,
					applog.FieldOwnerID, msg.OwnerID,
					applog.FieldMonth, msg.Month,
					"level", msg.Level,
					"spent", msg.Spent,
					"limit", msg.Limit,
					"percent_used", msg.PercentUsed)
				return nil
			})
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	slog.Info("Worker stopped gracefully")
}
