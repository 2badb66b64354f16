package usecase

import (
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bakeryhq/ops-backend/internal/domain"
	"github.com/bakeryhq/ops-backend/internal/ledger"
	"github.com/bakeryhq/ops-backend/internal/repo/postgres"
)

// AdjustStockInput is the command DTO for a manual stock correction
// (spec.md §6 "PUT /inventory/:product_id" and "DELETE /inventory/:product_id",
// the latter modeled as an adjustment to zero).
type AdjustStockInput struct {
	BranchID       int64
	ProductID      int64
	ActorID        int64
	Source         domain.StockSource
	NewQuantity    float64
	Reason         string
	IdempotencyKey string
}

// InventoryService exposes read access to current stock and the manual
// adjustment path, the only way a usecase may change StockLevel outside of
// a batch or sale (spec.md §4.2: "Mutation happens only through the ledger").
type InventoryService struct {
	Runner *postgres.Runner
	Stock  domain.StockRepository
}

// NewInventoryService constructs an InventoryService.
func NewInventoryService(runner *postgres.Runner, stock domain.StockRepository) *InventoryService {
	return &InventoryService{Runner: runner, Stock: stock}
}

// List returns every stock level for a branch.
func (s *InventoryService) List(ctx domain.Context, branchID int64) ([]domain.StockLevel, error) {
	levels, err := s.Stock.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("op=inventory.list: %w", err)
	}
	return levels, nil
}

// Adjust writes a manual_adjustment movement bringing the (branch, product)
// quantity from its current value to in.NewQuantity, recording in.Reason in
// the movement's metadata, and evaluates the low-stock alert rule.
func (s *InventoryService) Adjust(ctx domain.Context, in AdjustStockInput) (domain.StockLevel, []byte, error) {
	if in.NewQuantity < 0 {
		return domain.StockLevel{}, nil, fmt.Errorf("op=inventory.adjust.validate: %w: quantity must be >= 0", domain.ErrInvalidArgument)
	}

	var out domain.StockLevel
	var replay []byte
	err := s.Runner.WithinTx(ctx, func(ctx domain.Context, tx pgx.Tx) error {
		idem := postgres.NewIdempotencyRepo(tx)
		admitted, cached, err := Admit(ctx, idem, in.ActorID, in.IdempotencyKey, "PUT /inventory")
		if err != nil {
			return err
		}
		if !admitted {
			replay = cached
			return nil
		}

		current, err := postgres.NewStockRepo(tx).Get(ctx, in.BranchID, in.ProductID)
		if err != nil {
			return fmt.Errorf("op=inventory.adjust.current: %w", err)
		}
		delta := in.NewQuantity - current.Quantity
		if delta != 0 {
			m := ledger.Movement{
				BranchID: in.BranchID, ProductID: in.ProductID, MovementType: domain.MovementManualAdjustment,
				QuantityChange: delta, Source: in.Source, ReferenceType: "manual_adjustment", ActorID: in.ActorID,
				Metadata: map[string]any{"reason": in.Reason},
			}
			if err := ledger.ApplyMovements(ctx, tx, []ledger.Movement{m}); err != nil {
				return err
			}
		}

		level, err := postgres.NewStockRepo(tx).Get(ctx, in.BranchID, in.ProductID)
		if err != nil {
			return fmt.Errorf("op=inventory.adjust.reload: %w", err)
		}

		notifier := &AlertEvaluator{
			AlertRules:    postgres.NewAlertRuleRepo(tx),
			Notifications: postgres.NewNotificationRepo(tx),
		}
		if err := notifier.EvaluateLowStock(ctx, in.BranchID, in.ProductID, level.Quantity); err != nil {
			return err
		}

		out = level
		saved, err := SaveJSONResponse(ctx, idem, in.ActorID, in.IdempotencyKey, out)
		if err != nil {
			return err
		}
		replay = saved
		return nil
	})
	if err != nil {
		return domain.StockLevel{}, nil, err
	}
	return out, replay, nil
}

// Remove zeroes out a (branch, product) stock level, modeling
// "DELETE /inventory/:product_id" as an adjustment to zero rather than a
// row deletion, so the ledger retains a full audit trail.
func (s *InventoryService) Remove(ctx domain.Context, in AdjustStockInput) (domain.StockLevel, []byte, error) {
	in.NewQuantity = 0
	return s.Adjust(ctx, in)
}
