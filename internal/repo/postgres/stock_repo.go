package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// StockRepo implements domain.StockRepository for read paths outside a
// ledger transaction (GET /inventory). All mutation flows through
// internal/ledger.ApplyMovements, never through this repo directly.
type StockRepo struct{ Pool Querier }

// NewStockRepo constructs a StockRepo.
func NewStockRepo(p Querier) *StockRepo { return &StockRepo{Pool: p} }

func (r *StockRepo) Get(ctx domain.Context, branchID, productID int64) (domain.StockLevel, error) {
	ctx, span := otel.Tracer("repo.stock").Start(ctx, "stock.Get")
	defer span.End()

	var level domain.StockLevel
	level.BranchID = branchID
	level.ProductID = productID
	var source string
	row := r.Pool.QueryRow(ctx, `SELECT quantity, source, last_updated FROM stock_levels WHERE branch_id=$1 AND product_id=$2`,
		branchID, productID)
	if err := row.Scan(&level.Quantity, &source, &level.LastUpdated); err != nil {
		if err == pgx.ErrNoRows {
			return domain.StockLevel{BranchID: branchID, ProductID: productID, LastUpdated: time.Now().UTC()}, nil
		}
		return domain.StockLevel{}, fmt.Errorf("op=stock.get: %w", err)
	}
	level.Source = domain.StockSource(source)
	return level, nil
}

// GetForUpdate is a thin pass-through kept for ports.go's interface symmetry;
// the real locked-read path lives in internal/ledger, which operates inside
// the command's own pgx.Tx rather than through this pooled repo.
func (r *StockRepo) GetForUpdate(ctx domain.Context, pairs []domain.StockKey) (map[domain.StockKey]domain.StockLevel, error) {
	out := make(map[domain.StockKey]domain.StockLevel, len(pairs))
	for _, k := range pairs {
		level, err := r.Get(ctx, k.BranchID, k.ProductID)
		if err != nil {
			return nil, err
		}
		out[k] = level
	}
	return out, nil
}

func (r *StockRepo) Upsert(ctx domain.Context, level domain.StockLevel) error {
	ctx, span := otel.Tracer("repo.stock").Start(ctx, "stock.Upsert")
	defer span.End()

	_, err := r.Pool.Exec(ctx, `INSERT INTO stock_levels (branch_id, product_id, quantity, source, last_updated)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (branch_id, product_id) DO UPDATE SET quantity=$3, source=$4, last_updated=$5`,
		level.BranchID, level.ProductID, level.Quantity, level.Source, level.LastUpdated)
	if err != nil {
		return fmt.Errorf("op=stock.upsert: %w", err)
	}
	return nil
}

func (r *StockRepo) ListByBranch(ctx domain.Context, branchID int64) ([]domain.StockLevel, error) {
	ctx, span := otel.Tracer("repo.stock").Start(ctx, "stock.ListByBranch")
	defer span.End()

	rows, err := r.Pool.Query(ctx, `SELECT branch_id, product_id, quantity, source, last_updated FROM stock_levels
		WHERE branch_id=$1 ORDER BY product_id`, branchID)
	if err != nil {
		return nil, fmt.Errorf("op=stock.list_by_branch: %w", err)
	}
	defer rows.Close()

	var out []domain.StockLevel
	for rows.Next() {
		var level domain.StockLevel
		var source string
		if err := rows.Scan(&level.BranchID, &level.ProductID, &level.Quantity, &source, &level.LastUpdated); err != nil {
			return nil, fmt.Errorf("op=stock.list_by_branch.scan: %w", err)
		}
		level.Source = domain.StockSource(source)
		out = append(out, level)
	}
	return out, rows.Err()
}
