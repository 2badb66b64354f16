package postgres

import (
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// KpiEventRepo implements domain.KpiEventRepository.
type KpiEventRepo struct{ Pool Querier }

// NewKpiEventRepo constructs a KpiEventRepo.
func NewKpiEventRepo(p Querier) *KpiEventRepo { return &KpiEventRepo{Pool: p} }

func (r *KpiEventRepo) Append(ctx domain.Context, e domain.KpiEvent) (int64, error) {
	ctx, span := otel.Tracer("repo.kpi_events").Start(ctx, "kpi_events.Append")
	defer span.End()

	meta, _ := json.Marshal(e.Metadata)
	var id int64
	err := r.Pool.QueryRow(ctx, `INSERT INTO kpi_events (branch_id, actor_id, event_type, metric_key, event_value, duration_ms, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		e.BranchID, e.ActorID, e.EventType, e.MetricKey, e.EventValue, e.DurationMs, meta, e.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("op=kpi_event.append: %w", err)
	}
	return id, nil
}

// AlertRuleRepo implements domain.AlertRuleRepository.
type AlertRuleRepo struct{ Pool Querier }

// NewAlertRuleRepo constructs an AlertRuleRepo.
func NewAlertRuleRepo(p Querier) *AlertRuleRepo { return &AlertRuleRepo{Pool: p} }

func (r *AlertRuleRepo) ListByEventType(ctx domain.Context, branchID int64, eventType string) ([]domain.AlertRule, error) {
	ctx, span := otel.Tracer("repo.alert_rules").Start(ctx, "alert_rules.ListByEventType")
	defer span.End()

	rows, err := r.Pool.Query(ctx, `SELECT id, branch_id, event_type, threshold, enabled FROM alert_rules
		WHERE event_type=$1 AND enabled=true AND (branch_id IS NULL OR branch_id=$2)`, eventType, branchID)
	if err != nil {
		return nil, fmt.Errorf("op=alert_rule.list_by_event_type: %w", err)
	}
	defer rows.Close()

	var out []domain.AlertRule
	for rows.Next() {
		var a domain.AlertRule
		if err := rows.Scan(&a.ID, &a.BranchID, &a.EventType, &a.Threshold, &a.Enabled); err != nil {
			return nil, fmt.Errorf("op=alert_rule.list_by_event_type.scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// NotificationRepo implements domain.NotificationRepository.
type NotificationRepo struct{ Pool Querier }

// NewNotificationRepo constructs a NotificationRepo.
func NewNotificationRepo(p Querier) *NotificationRepo { return &NotificationRepo{Pool: p} }

func (r *NotificationRepo) Create(ctx domain.Context, n domain.Notification) (int64, error) {
	ctx, span := otel.Tracer("repo.notifications").Start(ctx, "notifications.Create")
	defer span.End()

	var id int64
	err := r.Pool.QueryRow(ctx, `INSERT INTO notifications (recipient_actor_id, branch_id, title, message, notification_type, is_read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		n.RecipientActorID, n.BranchID, n.Title, n.Message, n.NotificationType, n.IsRead, n.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("op=notification.create: %w", err)
	}
	return id, nil
}

func (r *NotificationRepo) ListAdminsAndManagers(ctx domain.Context, branchID int64) ([]domain.Actor, error) {
	ctx, span := otel.Tracer("repo.notifications").Start(ctx, "notifications.ListAdminsAndManagers")
	defer span.End()

	rows, err := r.Pool.Query(ctx, `SELECT `+actorSelectCols+` FROM actors
		WHERE is_active=true AND role IN ('admin','manager')
		AND (branch_id=$1 OR id IN (SELECT actor_id FROM actor_branches WHERE branch_id=$1))`, branchID)
	if err != nil {
		return nil, fmt.Errorf("op=notification.list_admins_and_managers: %w", err)
	}
	defer rows.Close()

	var out []domain.Actor
	for rows.Next() {
		a, err := scanActor(rows)
		if err != nil {
			return nil, fmt.Errorf("op=notification.list_admins_and_managers.scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
