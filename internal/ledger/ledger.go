// Package ledger implements the append-only inventory movement ledger that
// every stock-affecting operation (batch receipt, sale, void, manual
// adjustment) goes through. StockLevel rows are never written directly;
// they are always the side effect of applying a set of movements here.
//
// Grounded on the retrieved generic-ledger reference's append-only,
// balance-derived-from-transactions shape (balance is never a free-standing
// field, it is replayed/summed from the log), adapted to a SQL-backed,
// per-(branch,product) sorted-lock implementation in the teacher's explicit
// pgx transaction style (internal/adapter/repo/postgres/jobs_repo.go).
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// Movement is one pending ledger entry to apply within a transaction.
type Movement struct {
	BranchID       int64
	ProductID      int64
	MovementType   domain.MovementType
	QuantityChange float64
	Source         domain.StockSource
	ReferenceType  string
	ReferenceID    *int64
	ActorID        int64
	Metadata       map[string]any
}

// StockViolation describes a movement that would drive stock negative.
type StockViolation struct {
	ProductID int64
	Current   float64
	Requested float64
}

// InsufficientStockError wraps domain.ErrInsufficientStock with the
// violating product/branch detail the handler needs for the error envelope.
type InsufficientStockError struct {
	BranchID int64
	Violation StockViolation
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: branch=%d product=%d current=%.4f requested=%.4f",
		e.BranchID, e.Violation.ProductID, e.Violation.Current, -e.Violation.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return domain.ErrInsufficientStock }

// ApplyMovements atomically, within the caller's open transaction tx:
//  1. locks the affected (branch_id, product_id) pairs in sorted order,
//  2. validates that no movement drives stock negative,
//  3. appends one row per movement to inventory_movements,
//  4. upserts the resulting stock_levels quantities.
//
// Callers must have already begun tx and are responsible for commit/rollback.
func ApplyMovements(ctx context.Context, tx pgx.Tx, movements []Movement) error {
	tracer := otel.Tracer("ledger")
	ctx, span := tracer.Start(ctx, "ledger.ApplyMovements")
	defer span.End()
	span.SetAttributes(attribute.Int("ledger.movement_count", len(movements)))

	if len(movements) == 0 {
		return nil
	}

	keys := sortedKeys(movements)
	current, err := lockStockForUpdate(ctx, tx, keys)
	if err != nil {
		return fmt.Errorf("op=ledger.lock: %w", err)
	}

	deltas := make(map[domain.StockKey]float64, len(keys))
	sources := make(map[domain.StockKey]domain.StockSource, len(keys))
	for _, m := range movements {
		k := domain.StockKey{BranchID: m.BranchID, ProductID: m.ProductID}
		deltas[k] += m.QuantityChange
		sources[k] = m.Source
	}

	for _, k := range keys {
		resulting := current[k].Quantity + deltas[k]
		if resulting < 0 {
			span.SetAttributes(attribute.Bool("ledger.rejected", true))
			return &InsufficientStockError{
				BranchID: k.BranchID,
				Violation: StockViolation{
					ProductID: k.ProductID,
					Current:   current[k].Quantity,
					Requested: deltas[k],
				},
			}
		}
	}

	now := time.Now().UTC()
	for _, m := range movements {
		if err := appendMovement(ctx, tx, m, now); err != nil {
			return fmt.Errorf("op=ledger.append: %w", err)
		}
	}

	for _, k := range keys {
		level := domain.StockLevel{
			BranchID:    k.BranchID,
			ProductID:   k.ProductID,
			Quantity:    current[k].Quantity + deltas[k],
			Source:      sources[k],
			LastUpdated: now,
		}
		if level.Source == "" {
			level.Source = current[k].Source
		}
		if err := upsertStock(ctx, tx, level); err != nil {
			return fmt.Errorf("op=ledger.upsert_stock: %w", err)
		}
	}

	return nil
}

func sortedKeys(movements []Movement) []domain.StockKey {
	seen := make(map[domain.StockKey]struct{})
	var keys []domain.StockKey
	for _, m := range movements {
		k := domain.StockKey{BranchID: m.BranchID, ProductID: m.ProductID}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].BranchID != keys[j].BranchID {
			return keys[i].BranchID < keys[j].BranchID
		}
		return keys[i].ProductID < keys[j].ProductID
	})
	return keys
}

func lockStockForUpdate(ctx context.Context, tx pgx.Tx, keys []domain.StockKey) (map[domain.StockKey]domain.StockLevel, error) {
	result := make(map[domain.StockKey]domain.StockLevel, len(keys))
	for _, k := range keys {
		var level domain.StockLevel
		var source string
		var lastUpdated time.Time
		row := tx.QueryRow(ctx, `SELECT quantity, source, last_updated FROM stock_levels
			WHERE branch_id=$1 AND product_id=$2 FOR UPDATE`, k.BranchID, k.ProductID)
		err := row.Scan(&level.Quantity, &source, &lastUpdated)
		if err == pgx.ErrNoRows {
			// No existing row: insert a zero row and lock it, so concurrent
			// writers on the same pair still serialize through the row lock.
			_, insErr := tx.Exec(ctx, `INSERT INTO stock_levels (branch_id, product_id, quantity, source, last_updated)
				VALUES ($1, $2, 0, '', now()) ON CONFLICT (branch_id, product_id) DO NOTHING`, k.BranchID, k.ProductID)
			if insErr != nil {
				return nil, insErr
			}
			row = tx.QueryRow(ctx, `SELECT quantity, source, last_updated FROM stock_levels
				WHERE branch_id=$1 AND product_id=$2 FOR UPDATE`, k.BranchID, k.ProductID)
			if err := row.Scan(&level.Quantity, &source, &lastUpdated); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}
		level.BranchID = k.BranchID
		level.ProductID = k.ProductID
		level.Source = domain.StockSource(source)
		level.LastUpdated = lastUpdated
		result[k] = level
	}
	return result, nil
}

func appendMovement(ctx context.Context, tx pgx.Tx, m Movement, now time.Time) error {
	_, err := tx.Exec(ctx, `INSERT INTO inventory_movements
		(branch_id, product_id, movement_type, quantity_change, source, reference_type, reference_id, actor_id, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		m.BranchID, m.ProductID, m.MovementType, m.QuantityChange, m.Source,
		m.ReferenceType, m.ReferenceID, m.ActorID, metadataJSON(m.Metadata), now)
	return err
}

func upsertStock(ctx context.Context, tx pgx.Tx, level domain.StockLevel) error {
	_, err := tx.Exec(ctx, `INSERT INTO stock_levels (branch_id, product_id, quantity, source, last_updated)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (branch_id, product_id) DO UPDATE SET quantity=$3, source=$4, last_updated=$5`,
		level.BranchID, level.ProductID, level.Quantity, level.Source, level.LastUpdated)
	return err
}

func metadataJSON(m map[string]any) []byte {
	if len(m) == 0 {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}
