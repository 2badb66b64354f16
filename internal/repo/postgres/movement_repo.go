package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// MovementRepo implements domain.MovementRepository over the append-only
// inventory_movements ledger table. Mutating inserts happen inside
// internal/ledger within the command's own transaction; this repo covers
// read paths (audit, void diffing, archival).
type MovementRepo struct{ Pool Querier }

// NewMovementRepo constructs a MovementRepo.
func NewMovementRepo(p Querier) *MovementRepo { return &MovementRepo{Pool: p} }

func (r *MovementRepo) Append(ctx domain.Context, m domain.InventoryMovement) (int64, error) {
	ctx, span := otel.Tracer("repo.movements").Start(ctx, "movements.Append")
	defer span.End()

	meta, _ := json.Marshal(m.Metadata)
	var id int64
	err := r.Pool.QueryRow(ctx, `INSERT INTO inventory_movements
		(branch_id, product_id, movement_type, quantity_change, source, reference_type, reference_id, actor_id, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		m.BranchID, m.ProductID, m.MovementType, m.QuantityChange, m.Source, m.ReferenceType, m.ReferenceID,
		m.ActorID, meta, m.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("op=movement.append: %w", err)
	}
	return id, nil
}

func (r *MovementRepo) ListByReference(ctx domain.Context, referenceType string, referenceID int64) ([]domain.InventoryMovement, error) {
	ctx, span := otel.Tracer("repo.movements").Start(ctx, "movements.ListByReference")
	defer span.End()

	rows, err := r.Pool.Query(ctx, `SELECT id, branch_id, product_id, movement_type, quantity_change, source,
		reference_type, reference_id, actor_id, metadata, created_at
		FROM inventory_movements WHERE reference_type=$1 AND reference_id=$2 ORDER BY id`, referenceType, referenceID)
	if err != nil {
		return nil, fmt.Errorf("op=movement.list_by_reference: %w", err)
	}
	defer rows.Close()
	return scanMovements(rows)
}

// SumByProductSource sums quantity_change per (product, source) for all
// movements referencing the given batch, used by batch edit/void diffing.
func (r *MovementRepo) SumByProductSource(ctx domain.Context, batchID int64) (map[domain.StockSourceKey]float64, error) {
	ctx, span := otel.Tracer("repo.movements").Start(ctx, "movements.SumByProductSource")
	defer span.End()

	rows, err := r.Pool.Query(ctx, `SELECT product_id, source, SUM(quantity_change) FROM inventory_movements
		WHERE reference_type='batch' AND reference_id=$1 GROUP BY product_id, source`, batchID)
	if err != nil {
		return nil, fmt.Errorf("op=movement.sum_by_product_source: %w", err)
	}
	defer rows.Close()

	out := map[domain.StockSourceKey]float64{}
	for rows.Next() {
		var k domain.StockSourceKey
		var source string
		var sum float64
		if err := rows.Scan(&k.ProductID, &source, &sum); err != nil {
			return nil, fmt.Errorf("op=movement.sum_by_product_source.scan: %w", err)
		}
		k.Source = domain.StockSource(source)
		out[k] = sum
	}
	return out, rows.Err()
}

func (r *MovementRepo) ListOlderThan(ctx domain.Context, branchID int64, cutoff time.Time) ([]domain.InventoryMovement, error) {
	ctx, span := otel.Tracer("repo.movements").Start(ctx, "movements.ListOlderThan")
	defer span.End()

	rows, err := r.Pool.Query(ctx, `SELECT id, branch_id, product_id, movement_type, quantity_change, source,
		reference_type, reference_id, actor_id, metadata, created_at
		FROM inventory_movements WHERE branch_id=$1 AND created_at < $2`, branchID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("op=movement.list_older_than: %w", err)
	}
	defer rows.Close()
	return scanMovements(rows)
}

// ArchiveOlderThan moves rows older than cutoff for branchID into
// inventory_movements_archive and deletes them from the hot table, in the
// caller's transaction. Returns the row count moved.
func (r *MovementRepo) ArchiveOlderThan(ctx domain.Context, branchID int64, cutoff time.Time) (int64, error) {
	ctx, span := otel.Tracer("repo.movements").Start(ctx, "movements.ArchiveOlderThan")
	defer span.End()

	var count int64
	err := r.Pool.QueryRow(ctx, `WITH moved AS (
		INSERT INTO inventory_movements_archive
		SELECT * FROM inventory_movements WHERE branch_id=$1 AND created_at < $2
		ON CONFLICT DO NOTHING RETURNING id
	) SELECT count(*) FROM moved`, branchID, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("op=movement.archive_older_than.insert: %w", err)
	}

	if _, err := r.Pool.Exec(ctx, `DELETE FROM inventory_movements WHERE branch_id=$1 AND created_at < $2`, branchID, cutoff); err != nil {
		return 0, fmt.Errorf("op=movement.archive_older_than.delete: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMovements(rows rowScanner) ([]domain.InventoryMovement, error) {
	var out []domain.InventoryMovement
	for rows.Next() {
		var m domain.InventoryMovement
		var meta []byte
		if err := rows.Scan(&m.ID, &m.BranchID, &m.ProductID, &m.MovementType, &m.QuantityChange, &m.Source,
			&m.ReferenceType, &m.ReferenceID, &m.ActorID, &meta, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=movement.scan: %w", err)
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &m.Metadata)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
