package usecase

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bakeryhq/ops-backend/internal/adapter/observability"
	"github.com/bakeryhq/ops-backend/internal/domain"
	obsctx "github.com/bakeryhq/ops-backend/internal/observability"
	"github.com/bakeryhq/ops-backend/internal/repo/postgres"
)

// reminderInterval is how often a gentle archival reminder fires regardless
// of whether archival is enabled (spec.md §4.6 "every six months").
const reminderInterval = 6 * 30 * 24 * time.Hour

// ArchiveRunOutcome is the status an archive run finishes with.
type ArchiveRunOutcome struct {
	Run    domain.ArchiveRun
	Counts map[string]int64
}

// ArchiveService implements the archival engine (spec.md §4.6): per-branch,
// transaction-scoped, dependency-ordered sweep of aged rows into archive
// tables, guarded by a process-wide advisory lock and, for manual runs, an
// operator-supplied confirmation phrase.
//
// Grounded on the teacher's CleanupService transaction-scoped
// delete-after-insert shape, generalized to a per-aggregate,
// dependency-ordered sweep.
type ArchiveService struct {
	Runner   *postgres.Runner
	Lock     *postgres.AdvisoryLock
	Settings domain.ArchiveSettingsRepository
	Runs     domain.ArchiveRunRepository
}

// NewArchiveService constructs an ArchiveService.
func NewArchiveService(runner *postgres.Runner, lock *postgres.AdvisoryLock, settings domain.ArchiveSettingsRepository, runs domain.ArchiveRunRepository) *ArchiveService {
	return &ArchiveService{Runner: runner, Lock: lock, Settings: settings, Runs: runs}
}

// DefaultConfirmationPhrase is the fixed sentence a manual run must echo
// back verbatim when archive_settings.confirmation_phrase is unset.
func DefaultConfirmationPhrase(retentionMonths int) string {
	return fmt.Sprintf("I confirm permanent archival of all branch data older than %d months.", retentionMonths)
}

// RunScheduled runs the archival sweep for branchID using its own settings,
// skipping silently if archival is disabled. Intended for the daily
// scheduler, one call per active branch.
func (s *ArchiveService) RunScheduled(ctx domain.Context, branchID int64) (ArchiveRunOutcome, error) {
	settings, err := s.Settings.Get(ctx, branchID)
	if err != nil {
		return ArchiveRunOutcome{}, fmt.Errorf("op=archive.scheduled.settings: %w", err)
	}
	if !settings.Enabled {
		return s.recordSkipped(ctx, branchID, nil, domain.ArchiveRunScheduled, "archival disabled for branch")
	}
	return s.run(ctx, branchID, settings, nil, domain.ArchiveRunScheduled)
}

// RunManual runs the archival sweep on operator request, requiring
// confirmationPhrase to exactly match archive_settings.confirmation_phrase
// (or the computed default when unset).
func (s *ArchiveService) RunManual(ctx domain.Context, branchID, actorID int64, confirmationPhrase string) (ArchiveRunOutcome, error) {
	settings, err := s.Settings.Get(ctx, branchID)
	if err != nil {
		return ArchiveRunOutcome{}, fmt.Errorf("op=archive.manual.settings: %w", err)
	}
	expected := settings.ConfirmationPhrase
	if expected == "" {
		expected = DefaultConfirmationPhrase(settings.RetentionMonths)
	}
	if confirmationPhrase != expected {
		return ArchiveRunOutcome{}, fmt.Errorf("op=archive.manual.confirm: %w", domain.ErrArchiveConfirmationMismatch)
	}
	return s.run(ctx, branchID, settings, &actorID, domain.ArchiveRunManual)
}

// MaybeSendReminder fires a reminder notification if more than
// reminderInterval has elapsed since the branch's last reminder,
// irrespective of the enabled flag.
func (s *ArchiveService) MaybeSendReminder(ctx domain.Context, branchID int64, notify *AlertEvaluator) error {
	settings, err := s.Settings.Get(ctx, branchID)
	if err != nil {
		return fmt.Errorf("op=archive.reminder.settings: %w", err)
	}
	now := time.Now().UTC()
	if settings.LastReminderAt != nil && now.Sub(*settings.LastReminderAt) < reminderInterval {
		return nil
	}
	settings.LastReminderAt = &now
	if err := s.Settings.Upsert(ctx, settings); err != nil {
		return fmt.Errorf("op=archive.reminder.upsert: %w", err)
	}
	return notify.notifyBranch(ctx, branchID, "Archive reminder",
		fmt.Sprintf("It has been %d months since the last archival reminder for this branch.", settings.RetentionMonths),
		"archive_reminder")
}

func (s *ArchiveService) run(ctx domain.Context, branchID int64, settings domain.ArchiveSettings, triggeredBy *int64, runType domain.ArchiveRunType) (ArchiveRunOutcome, error) {
	lg := obsctx.LoggerFromContext(ctx)

	ok, err := s.Lock.TryLockBranchArchive(ctx, branchID)
	if err != nil {
		return ArchiveRunOutcome{}, fmt.Errorf("op=archive.lock: %w", err)
	}
	if !ok {
		return s.recordSkipped(ctx, branchID, triggeredBy, runType, "archive run already in progress")
	}
	defer func() {
		if uErr := s.Lock.UnlockBranchArchive(ctx, branchID); uErr != nil {
			lg.Error("failed to release archive advisory lock", slog.Any("error", uErr), slog.Int64("branch_id", branchID))
		}
	}()

	cutoff := time.Now().UTC().AddDate(0, -settings.RetentionMonths, 0)
	counts := make(map[string]int64, 6)

	err = s.Runner.WithinTx(ctx, func(ctx domain.Context, tx pgx.Tx) error {
		batches := postgres.NewBatchRepo(tx)
		n, err := batches.ArchiveOlderThan(ctx, branchID, cutoff)
		if err != nil {
			return fmt.Errorf("op=archive.batches: %w", err)
		}
		counts["batches"] = n

		sales := postgres.NewSaleRepo(tx)
		n, err = sales.ArchiveOlderThan(ctx, branchID, cutoff)
		if err != nil {
			return fmt.Errorf("op=archive.sales: %w", err)
		}
		counts["sales"] = n

		movements := postgres.NewMovementRepo(tx)
		n, err = movements.ArchiveOlderThan(ctx, branchID, cutoff)
		if err != nil {
			return fmt.Errorf("op=archive.inventory_movements: %w", err)
		}
		counts["inventory_movements"] = n

		expenses := postgres.NewExpenseRepo(tx)
		n, err = expenses.ArchiveOlderThan(ctx, branchID, cutoff)
		if err != nil {
			return fmt.Errorf("op=archive.expenses: %w", err)
		}
		counts["expenses"] = n

		staffPayments := postgres.NewStaffPaymentRepo(tx)
		n, err = staffPayments.ArchiveOlderThan(ctx, branchID, cutoff)
		if err != nil {
			return fmt.Errorf("op=archive.staff_payments: %w", err)
		}
		counts["staff_payments"] = n

		settings.LastRunAt = timePtr(time.Now().UTC())
		settingsRepo := postgres.NewArchiveSettingsRepo(tx)
		if err := settingsRepo.Upsert(ctx, settings); err != nil {
			return fmt.Errorf("op=archive.settings.upsert: %w", err)
		}

		runsRepo := postgres.NewArchiveRunRepo(tx)
		details := make(map[string]any, len(counts))
		for k, v := range counts {
			details[k] = v
		}
		run := domain.ArchiveRun{
			BranchID: branchID, TriggeredByActorID: triggeredBy, RunType: runType,
			Status: domain.ArchiveRunSuccess, CutoffAt: cutoff, Details: details, CreatedAt: time.Now().UTC(),
		}
		runID, err := runsRepo.Create(ctx, run)
		if err != nil {
			return fmt.Errorf("op=archive.run.record: %w", err)
		}
		run.ID = runID

		notifications := postgres.NewNotificationRepo(tx)
		recipients, err := notifications.ListAdminsAndManagers(ctx, branchID)
		if err != nil {
			return fmt.Errorf("op=archive.notify.list_recipients: %w", err)
		}
		summary := archiveSummary(counts)
		for _, a := range recipients {
			if _, err := notifications.Create(ctx, domain.Notification{
				RecipientActorID: a.ID, BranchID: branchID, Title: "Archival complete",
				Message: summary, NotificationType: "archive_complete",
			}); err != nil {
				return fmt.Errorf("op=archive.notify.create: %w", err)
			}
		}

		lg.Info("archive run completed", slog.Int64("branch_id", branchID), slog.Any("counts", counts))
		return nil
	})
	branchLabel := strconv.FormatInt(branchID, 10)
	if err != nil {
		observability.RecordArchiveRun(branchLabel, string(runType), "failed")
		return ArchiveRunOutcome{}, err
	}
	observability.RecordArchiveRun(branchLabel, string(runType), string(domain.ArchiveRunSuccess))
	for table, n := range counts {
		observability.RecordArchiveRowsMoved(branchLabel, table, n)
	}
	return ArchiveRunOutcome{Run: domain.ArchiveRun{BranchID: branchID, RunType: runType, Status: domain.ArchiveRunSuccess, CutoffAt: cutoff}, Counts: counts}, nil
}

func (s *ArchiveService) recordSkipped(ctx domain.Context, branchID int64, triggeredBy *int64, runType domain.ArchiveRunType, reason string) (ArchiveRunOutcome, error) {
	run := domain.ArchiveRun{
		BranchID: branchID, TriggeredByActorID: triggeredBy, RunType: runType,
		Status: domain.ArchiveRunSkipped, CutoffAt: time.Now().UTC(), ErrorMessage: &reason, CreatedAt: time.Now().UTC(),
	}
	if _, err := s.Runs.Create(ctx, run); err != nil {
		return ArchiveRunOutcome{}, fmt.Errorf("op=archive.record_skipped: %w", err)
	}
	observability.RecordArchiveRun(strconv.FormatInt(branchID, 10), string(runType), string(domain.ArchiveRunSkipped))
	return ArchiveRunOutcome{Run: run}, nil
}

func archiveSummary(counts map[string]int64) string {
	return fmt.Sprintf("Archived %d batches, %d sales, %d movements, %d expenses, %d staff payments.",
		counts["batches"], counts["sales"], counts["inventory_movements"], counts["expenses"], counts["staff_payments"])
}

func timePtr(t time.Time) *time.Time { return &t }
