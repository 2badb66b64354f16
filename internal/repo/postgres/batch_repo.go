package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// BatchRepo implements domain.BatchRepository over batches + batch_items.
type BatchRepo struct{ Pool Querier }

// NewBatchRepo constructs a BatchRepo.
func NewBatchRepo(p Querier) *BatchRepo { return &BatchRepo{Pool: p} }

func (r *BatchRepo) Create(ctx domain.Context, b domain.Batch, items []domain.BatchItem) (int64, error) {
	ctx, span := otel.Tracer("repo.batches").Start(ctx, "batches.Create")
	defer span.End()

	var id int64
	err := r.Pool.QueryRow(ctx, `INSERT INTO batches
		(branch_id, creator_actor_id, batch_date, status, notes, is_offline, original_actor_id, synced_by_actor_id, synced_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		b.BranchID, b.CreatorActorID, b.BatchDate, b.Status, b.Notes, b.IsOffline, b.OriginalActorID,
		b.SyncedByActorID, b.SyncedAt, b.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("op=batch.create: %w", err)
	}

	for _, it := range items {
		if _, err := r.Pool.Exec(ctx, `INSERT INTO batch_items (batch_id, product_id, quantity, source)
			VALUES ($1,$2,$3,$4)`, id, it.ProductID, it.Quantity, it.Source); err != nil {
			return 0, fmt.Errorf("op=batch.create.items: %w", err)
		}
	}
	return id, nil
}

func (r *BatchRepo) Get(ctx domain.Context, id int64) (domain.Batch, []domain.BatchItem, error) {
	ctx, span := otel.Tracer("repo.batches").Start(ctx, "batches.Get")
	defer span.End()

	var b domain.Batch
	b.ID = id
	row := r.Pool.QueryRow(ctx, `SELECT branch_id, creator_actor_id, batch_date, status, notes, is_offline,
		original_actor_id, synced_by_actor_id, synced_at, created_at FROM batches WHERE id=$1`, id)
	if err := row.Scan(&b.BranchID, &b.CreatorActorID, &b.BatchDate, &b.Status, &b.Notes, &b.IsOffline,
		&b.OriginalActorID, &b.SyncedByActorID, &b.SyncedAt, &b.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Batch{}, nil, fmt.Errorf("op=batch.get: %w", domain.ErrNotFound)
		}
		return domain.Batch{}, nil, fmt.Errorf("op=batch.get: %w", err)
	}

	rows, err := r.Pool.Query(ctx, `SELECT id, batch_id, product_id, quantity, source FROM batch_items WHERE batch_id=$1 ORDER BY id`, id)
	if err != nil {
		return domain.Batch{}, nil, fmt.Errorf("op=batch.get.items: %w", err)
	}
	defer rows.Close()

	var items []domain.BatchItem
	for rows.Next() {
		var it domain.BatchItem
		if err := rows.Scan(&it.ID, &it.BatchID, &it.ProductID, &it.Quantity, &it.Source); err != nil {
			return domain.Batch{}, nil, fmt.Errorf("op=batch.get.items.scan: %w", err)
		}
		items = append(items, it)
	}
	return b, items, rows.Err()
}

func (r *BatchRepo) UpdateStatus(ctx domain.Context, id int64, status domain.BatchStatus) error {
	ctx, span := otel.Tracer("repo.batches").Start(ctx, "batches.UpdateStatus")
	defer span.End()

	_, err := r.Pool.Exec(ctx, `UPDATE batches SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return fmt.Errorf("op=batch.update_status: %w", err)
	}
	return nil
}

// ReplaceItems diffs to the new item set by deleting all existing lines and
// inserting the desired ones; the caller (internal/usecase/batch.go) is
// responsible for computing the compensating ledger movements from the
// before/after quantities, this only persists the new BatchItem rows.
func (r *BatchRepo) ReplaceItems(ctx domain.Context, batchID int64, items []domain.BatchItem) error {
	ctx, span := otel.Tracer("repo.batches").Start(ctx, "batches.ReplaceItems")
	defer span.End()

	if _, err := r.Pool.Exec(ctx, `DELETE FROM batch_items WHERE batch_id=$1`, batchID); err != nil {
		return fmt.Errorf("op=batch.replace_items.delete: %w", err)
	}
	for _, it := range items {
		if _, err := r.Pool.Exec(ctx, `INSERT INTO batch_items (batch_id, product_id, quantity, source)
			VALUES ($1,$2,$3,$4)`, batchID, it.ProductID, it.Quantity, it.Source); err != nil {
			return fmt.Errorf("op=batch.replace_items.insert: %w", err)
		}
	}
	return nil
}

func (r *BatchRepo) MarkSynced(ctx domain.Context, id, syncedByActorID int64, syncedAt time.Time) error {
	ctx, span := otel.Tracer("repo.batches").Start(ctx, "batches.MarkSynced")
	defer span.End()

	_, err := r.Pool.Exec(ctx, `UPDATE batches SET synced_by_actor_id=$2, synced_at=$3 WHERE id=$1`, id, syncedByActorID, syncedAt)
	if err != nil {
		return fmt.Errorf("op=batch.mark_synced: %w", err)
	}
	return nil
}

func (r *BatchRepo) ListOlderThan(ctx domain.Context, branchID int64, cutoff time.Time) ([]domain.Batch, error) {
	ctx, span := otel.Tracer("repo.batches").Start(ctx, "batches.ListOlderThan")
	defer span.End()

	rows, err := r.Pool.Query(ctx, `SELECT id, branch_id, creator_actor_id, batch_date, status, notes, is_offline,
		original_actor_id, synced_by_actor_id, synced_at, created_at FROM batches
		WHERE branch_id=$1 AND created_at < $2`, branchID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("op=batch.list_older_than: %w", err)
	}
	defer rows.Close()

	var out []domain.Batch
	for rows.Next() {
		var b domain.Batch
		if err := rows.Scan(&b.ID, &b.BranchID, &b.CreatorActorID, &b.BatchDate, &b.Status, &b.Notes, &b.IsOffline,
			&b.OriginalActorID, &b.SyncedByActorID, &b.SyncedAt, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=batch.list_older_than.scan: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ArchiveOlderThan moves batches (and their batch_items) older than cutoff
// for branchID into the archive mirror tables in the caller's transaction.
// Child rows are archived and deleted together with their parent so no
// dangling children are ever left behind (spec.md §4.6 step 2).
func (r *BatchRepo) ArchiveOlderThan(ctx domain.Context, branchID int64, cutoff time.Time) (int64, error) {
	ctx, span := otel.Tracer("repo.batches").Start(ctx, "batches.ArchiveOlderThan")
	defer span.End()

	var count int64
	err := r.Pool.QueryRow(ctx, `WITH moved AS (
		INSERT INTO batches_archive
		SELECT * FROM batches WHERE branch_id=$1 AND created_at < $2
		ON CONFLICT DO NOTHING RETURNING id
	) SELECT count(*) FROM moved`, branchID, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("op=batch.archive_older_than.batches: %w", err)
	}

	if _, err := r.Pool.Exec(ctx, `INSERT INTO batch_items_archive
		SELECT bi.* FROM batch_items bi JOIN batches b ON b.id=bi.batch_id
		WHERE b.branch_id=$1 AND b.created_at < $2
		ON CONFLICT DO NOTHING`, branchID, cutoff); err != nil {
		return 0, fmt.Errorf("op=batch.archive_older_than.items: %w", err)
	}

	if _, err := r.Pool.Exec(ctx, `DELETE FROM batch_items WHERE batch_id IN
		(SELECT id FROM batches WHERE branch_id=$1 AND created_at < $2)`, branchID, cutoff); err != nil {
		return 0, fmt.Errorf("op=batch.archive_older_than.delete_items: %w", err)
	}
	if _, err := r.Pool.Exec(ctx, `DELETE FROM batches WHERE branch_id=$1 AND created_at < $2`, branchID, cutoff); err != nil {
		return 0, fmt.Errorf("op=batch.archive_older_than.delete_batches: %w", err)
	}
	return count, nil
}
