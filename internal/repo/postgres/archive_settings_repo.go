package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// ArchiveSettingsRepo implements domain.ArchiveSettingsRepository.
type ArchiveSettingsRepo struct{ Pool Querier }

// NewArchiveSettingsRepo constructs an ArchiveSettingsRepo.
func NewArchiveSettingsRepo(p Querier) *ArchiveSettingsRepo { return &ArchiveSettingsRepo{Pool: p} }

func (r *ArchiveSettingsRepo) Get(ctx domain.Context, branchID int64) (domain.ArchiveSettings, error) {
	ctx, span := otel.Tracer("repo.archive_settings").Start(ctx, "archive_settings.Get")
	defer span.End()

	var s domain.ArchiveSettings
	s.BranchID = branchID
	row := r.Pool.QueryRow(ctx, `SELECT enabled, retention_months, cold_storage_after_months, last_run_at, last_reminder_at, confirmation_phrase
		FROM archive_settings WHERE branch_id=$1`, branchID)
	if err := row.Scan(&s.Enabled, &s.RetentionMonths, &s.ColdStorageAfterMonths, &s.LastRunAt, &s.LastReminderAt, &s.ConfirmationPhrase); err != nil {
		if err == pgx.ErrNoRows {
			return domain.ArchiveSettings{}, fmt.Errorf("op=archive_settings.get: %w", domain.ErrNotFound)
		}
		return domain.ArchiveSettings{}, fmt.Errorf("op=archive_settings.get: %w", err)
	}
	return s, nil
}

func (r *ArchiveSettingsRepo) Upsert(ctx domain.Context, s domain.ArchiveSettings) error {
	ctx, span := otel.Tracer("repo.archive_settings").Start(ctx, "archive_settings.Upsert")
	defer span.End()

	_, err := r.Pool.Exec(ctx, `INSERT INTO archive_settings
		(branch_id, enabled, retention_months, cold_storage_after_months, last_run_at, last_reminder_at, confirmation_phrase)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (branch_id) DO UPDATE SET enabled=$2, retention_months=$3, cold_storage_after_months=$4,
			last_run_at=$5, last_reminder_at=$6, confirmation_phrase=$7`,
		s.BranchID, s.Enabled, s.RetentionMonths, s.ColdStorageAfterMonths, s.LastRunAt, s.LastReminderAt, s.ConfirmationPhrase)
	if err != nil {
		return fmt.Errorf("op=archive_settings.upsert: %w", err)
	}
	return nil
}

func (r *ArchiveSettingsRepo) ListEnabled(ctx domain.Context) ([]domain.ArchiveSettings, error) {
	return r.list(ctx, true)
}

func (r *ArchiveSettingsRepo) ListAll(ctx domain.Context) ([]domain.ArchiveSettings, error) {
	return r.list(ctx, false)
}

func (r *ArchiveSettingsRepo) list(ctx domain.Context, enabledOnly bool) ([]domain.ArchiveSettings, error) {
	ctx, span := otel.Tracer("repo.archive_settings").Start(ctx, "archive_settings.list")
	defer span.End()

	q := `SELECT branch_id, enabled, retention_months, cold_storage_after_months, last_run_at, last_reminder_at, confirmation_phrase FROM archive_settings`
	if enabledOnly {
		q += ` WHERE enabled = true`
	}
	rows, err := r.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("op=archive_settings.list: %w", err)
	}
	defer rows.Close()

	var out []domain.ArchiveSettings
	for rows.Next() {
		var s domain.ArchiveSettings
		if err := rows.Scan(&s.BranchID, &s.Enabled, &s.RetentionMonths, &s.ColdStorageAfterMonths, &s.LastRunAt, &s.LastReminderAt, &s.ConfirmationPhrase); err != nil {
			return nil, fmt.Errorf("op=archive_settings.list.scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ArchiveRunRepo implements domain.ArchiveRunRepository.
type ArchiveRunRepo struct{ Pool Querier }

// NewArchiveRunRepo constructs an ArchiveRunRepo.
func NewArchiveRunRepo(p Querier) *ArchiveRunRepo { return &ArchiveRunRepo{Pool: p} }

func (r *ArchiveRunRepo) Create(ctx domain.Context, run domain.ArchiveRun) (int64, error) {
	ctx, span := otel.Tracer("repo.archive_runs").Start(ctx, "archive_runs.Create")
	defer span.End()

	details, _ := json.Marshal(run.Details)
	var id int64
	err := r.Pool.QueryRow(ctx, `INSERT INTO archive_runs
		(branch_id, triggered_by_actor_id, run_type, status, cutoff_at, details, error_message, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		run.BranchID, run.TriggeredByActorID, run.RunType, run.Status, run.CutoffAt, details, run.ErrorMessage, run.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("op=archive_run.create: %w", err)
	}
	return id, nil
}
