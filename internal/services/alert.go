package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/storage"
)

// AlertPublisher is the outbound side of budget alerting. A nil
// publisher disables notification without disabling flag bookkeeping.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// AlertEvaluator is the external collaborator the budget status engine
// defers to: it sweeps current-month budgets, flips the sent flags once
// per threshold crossing and publishes one message per alert.
type AlertEvaluator struct {
	repo      *storage.Repository
	budgets   *BudgetService
	publisher AlertPublisher
	loc       *time.Location
	now       func() time.Time
}

func NewAlertEvaluator(repo *storage.Repository, budgets *BudgetService, publisher AlertPublisher, loc *time.Location) *AlertEvaluator {
	return &AlertEvaluator{
		repo:      repo,
		budgets:   budgets,
		publisher: publisher,
		loc:       loc,
		now:       time.Now,
	}
}

var (
	threshold80  = decimal.NewFromInt(80)
	threshold100 = decimal.NewFromInt(100)
)

// RunOnce sweeps every owner holding budgets for the current month.
// Individual owner failures are logged and skipped so one broken
// profile cannot starve the rest of the sweep.
func (e *AlertEvaluator) RunOnce(ctx context.Context) error {
	month := e.now().In(e.loc).Format("2006-01")

	owners, err := e.repo.ListOwnersWithBudgets(ctx, month)
	if err != nil {
		return fmt.Errorf("alert sweep %s: %w", month, err)
	}

	for _, ownerID := range owners {
		if err := e.sweepOwner(ctx, ownerID, month); err != nil {
			slog.ErrorContext(ctx, "Budget alert sweep failed for owner",
				"owner_id", ownerID,
				"month", month,
				"error", err)
		}
	}
	return nil
}

func (e *AlertEvaluator) sweepOwner(ctx context.Context, ownerID int64, month string) error {
	owner, err := e.repo.GetOwner(ctx, ownerID)
	if err != nil {
		return err
	}

	status, err := e.budgets.Status(ctx, owner, month, e.loc)
	if err != nil {
		return err
	}

	for _, item := range status.Items {
		if err := e.evaluateItem(ctx, owner, month, item); err != nil {
			return err
		}
	}
	return nil
}

func (e *AlertEvaluator) evaluateItem(ctx context.Context, owner core.Owner, month string, item BudgetStatusItem) error {
	var level int
	switch {
	case item.PercentValue.GreaterThanOrEqual(threshold100) && !item.Alert100Sent:
		level = amqp.AlertLevel100
		if err := e.repo.SetBudgetAlerts(ctx, item.BudgetID, true, true); err != nil {
			return err
		}
	case item.PercentValue.GreaterThanOrEqual(threshold80) && !item.Alert80Sent && !item.Alert100Sent:
		// A set 100 flag implies the 80 crossing was already handled,
		// even if the 80 flag itself was lost.
		level = amqp.AlertLevel80
		if err := e.repo.SetBudgetAlerts(ctx, item.BudgetID, true, false); err != nil {
			return err
		}
	default:
		return nil
	}

	if e.publisher == nil {
		slog.WarnContext(ctx, "Alert publisher not available, flag recorded without notification",
			"budget_id", item.BudgetID,
			"level", level)
		return nil
	}

	msg := &amqp.BudgetAlertMessage{
		BudgetID:    item.BudgetID,
		OwnerID:     owner.ID,
		Month:       month,
		Level:       level,
		Spent:       item.Spent,
		Limit:       item.Limit,
		PercentUsed: item.PercentUsed,
		Timestamp:   e.now(),
	}
	if err := e.publisher.PublishBudgetAlert(ctx, msg); err != nil {
		// Flag already recorded; the alert is lost, not the sweep.
		slog.ErrorContext(ctx, "Failed to publish budget alert",
			"budget_id", item.BudgetID,
			"level", level,
			"error", err)
	}
	return nil
}
