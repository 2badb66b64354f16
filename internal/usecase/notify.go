package usecase

import (
	"fmt"
	"strconv"

	"github.com/bakeryhq/ops-backend/internal/adapter/observability"
	"github.com/bakeryhq/ops-backend/internal/domain"
)

// AlertEvaluator evaluates alert rules against a domain event
// and inserts a Notification per matching admin/manager, synchronously and
// in the triggering transaction (spec.md §4.7: "if notification insert
// fails, the domain event fails with it").
type AlertEvaluator struct {
	AlertRules    domain.AlertRuleRepository
	Notifications domain.NotificationRepository
}

// EvaluateHighSale notifies branch admins/managers when a completed sale's
// total crosses any enabled high_sale threshold.
func (e *AlertEvaluator) EvaluateHighSale(ctx domain.Context, branchID int64, total float64) error {
	rules, err := e.AlertRules.ListByEventType(ctx, branchID, "high_sale")
	if err != nil {
		return fmt.Errorf("op=notify.high_sale.list_rules: %w", err)
	}
	for _, r := range rules {
		if total <= r.Threshold {
			continue
		}
		msg := fmt.Sprintf("Sale of %.2f exceeded the high-sale threshold of %.2f", total, r.Threshold)
		if err := e.notifyBranch(ctx, branchID, "High sale", msg, "high_sale"); err != nil {
			return err
		}
	}
	return nil
}

// EvaluateLowStock notifies branch admins/managers when a product's stock
// level has dropped below any enabled low_stock threshold.
func (e *AlertEvaluator) EvaluateLowStock(ctx domain.Context, branchID, productID int64, quantity float64) error {
	rules, err := e.AlertRules.ListByEventType(ctx, branchID, "low_stock")
	if err != nil {
		return fmt.Errorf("op=notify.low_stock.list_rules: %w", err)
	}
	for _, r := range rules {
		if quantity >= r.Threshold {
			continue
		}
		msg := fmt.Sprintf("Product %d stock at %.2f is below the low-stock threshold of %.2f", productID, quantity, r.Threshold)
		if err := e.notifyBranch(ctx, branchID, "Low stock", msg, "low_stock"); err != nil {
			return err
		}
	}
	return nil
}

func (e *AlertEvaluator) notifyBranch(ctx domain.Context, branchID int64, title, message, notificationType string) error {
	recipients, err := e.Notifications.ListAdminsAndManagers(ctx, branchID)
	if err != nil {
		return fmt.Errorf("op=notify.list_recipients: %w", err)
	}
	for _, a := range recipients {
		n := domain.Notification{
			RecipientActorID: a.ID, BranchID: branchID, Title: title,
			Message: message, NotificationType: notificationType,
		}
		if _, err := e.Notifications.Create(ctx, n); err != nil {
			return fmt.Errorf("op=notify.create: %w", err)
		}
		observability.RecordNotificationCreated(strconv.FormatInt(branchID, 10), notificationType)
	}
	return nil
}
