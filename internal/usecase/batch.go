package usecase

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bakeryhq/ops-backend/internal/domain"
	"github.com/bakeryhq/ops-backend/internal/ledger"
	obsctx "github.com/bakeryhq/ops-backend/internal/observability"
	"github.com/bakeryhq/ops-backend/internal/repo/postgres"
)

// defaultEditWindow is the policy default from spec.md §3/§4.3: a batch is
// editable or voidable only within this interval of its creation.
const defaultEditWindow = 20 * time.Minute

// BatchItemInput is one requested product line for a batch create/edit call.
type BatchItemInput struct {
	ProductID int64
	Quantity  float64
	Source    domain.StockSource
}

// CreateBatchInput is the command DTO for creating a production batch.
type CreateBatchInput struct {
	BranchID        int64
	ActorID         int64
	Role            domain.Role
	Items           []BatchItemInput
	Notes           string
	IsOffline       bool
	OriginalActorID *int64
	IdempotencyKey  string
}

// EditBatchInput is the command DTO for replacing a batch's items within
// its edit window.
type EditBatchInput struct {
	BatchID        int64
	ActorID        int64
	Role           domain.Role
	Items          []BatchItemInput
	IdempotencyKey string
}

// VoidBatchInput is the command DTO for voiding a batch within its edit window.
type VoidBatchInput struct {
	BatchID        int64
	ActorID        int64
	Role           domain.Role
	IdempotencyKey string
}

// BatchResult is what create/edit/void return to the HTTP adapter and what
// gets persisted verbatim against the idempotency key.
type BatchResult struct {
	Batch domain.Batch
	Items []domain.BatchItem
}

// BatchService implements the batch lifecycle (spec.md §4.3): create, the
// time-window-and-role-gated edit and void, and offline attribution.
type BatchService struct {
	Runner     *postgres.Runner
	Idem       domain.IdempotencyRepository
	EditWindow time.Duration
}

// NewBatchService constructs a BatchService with the default 20-minute edit window.
func NewBatchService(runner *postgres.Runner, idem domain.IdempotencyRepository) *BatchService {
	return &BatchService{Runner: runner, Idem: idem, EditWindow: defaultEditWindow}
}

func (s *BatchService) editWindow() time.Duration {
	if s.EditWindow <= 0 {
		return defaultEditWindow
	}
	return s.EditWindow
}

// Create inserts a new batch with its items and applies a batch_in movement
// per item, all inside one transaction gated by idempotency admission.
func (s *BatchService) Create(ctx domain.Context, in CreateBatchInput) (BatchResult, []byte, error) {
	lg := obsctx.LoggerFromContext(ctx)

	if err := validateBatchItems(in.Items); err != nil {
		return BatchResult{}, nil, err
	}

	var out BatchResult
	var replay []byte
	err := s.Runner.WithinTx(ctx, func(ctx domain.Context, tx pgx.Tx) error {
		idem := postgres.NewIdempotencyRepo(tx)
		admitted, cached, err := Admit(ctx, idem, in.ActorID, in.IdempotencyKey, "POST /inventory/batches")
		if err != nil {
			return err
		}
		if !admitted {
			replay = cached
			return nil
		}

		creatorID := in.ActorID
		b := domain.Batch{
			BranchID:  in.BranchID,
			Status:    domain.BatchSent,
			Notes:     in.Notes,
			IsOffline: in.IsOffline,
			BatchDate: time.Now().UTC(),
		}
		if in.IsOffline && in.OriginalActorID != nil {
			creatorID = *in.OriginalActorID
			b.OriginalActorID = in.OriginalActorID
			synced := in.ActorID
			now := time.Now().UTC()
			b.SyncedByActorID = &synced
			b.SyncedAt = &now
			b.Status = domain.BatchPending
		}
		b.CreatorActorID = creatorID

		items := make([]domain.BatchItem, len(in.Items))
		for i, it := range in.Items {
			items[i] = domain.BatchItem{ProductID: it.ProductID, Quantity: it.Quantity, Source: it.Source}
		}

		batches := postgres.NewBatchRepo(tx)
		batchID, err := batches.Create(ctx, b, items)
		if err != nil {
			return fmt.Errorf("op=batch.create: %w", err)
		}
		b.ID = batchID
		for i := range items {
			items[i].BatchID = batchID
		}

		movements := make([]ledger.Movement, 0, len(items))
		refID := batchID
		for _, it := range items {
			movements = append(movements, ledger.Movement{
				BranchID:       in.BranchID,
				ProductID:      it.ProductID,
				MovementType:   domain.MovementBatchIn,
				QuantityChange: it.Quantity,
				Source:         it.Source,
				ReferenceType:  "batch",
				ReferenceID:    &refID,
				ActorID:        creatorID,
			})
		}
		if err := ledger.ApplyMovements(ctx, tx, movements); err != nil {
			return err
		}

		out = BatchResult{Batch: b, Items: items}
		lg.Info("batch created", slog.Int64("batch_id", batchID), slog.Int64("branch_id", in.BranchID))
		saved, err := SaveJSONResponse(ctx, idem, in.ActorID, in.IdempotencyKey, out)
		if err != nil {
			return err
		}
		replay = saved
		return nil
	})
	if err != nil {
		return BatchResult{}, nil, err
	}
	return out, replay, nil
}

// Edit diffs desired items against the batch's current items and applies a
// compensating movement per changed (product, source) pair.
func (s *BatchService) Edit(ctx domain.Context, in EditBatchInput) (BatchResult, []byte, error) {
	if err := validateBatchItems(in.Items); err != nil {
		return BatchResult{}, nil, err
	}

	var out BatchResult
	var replay []byte
	err := s.Runner.WithinTx(ctx, func(ctx domain.Context, tx pgx.Tx) error {
		idem := postgres.NewIdempotencyRepo(tx)
		endpoint := fmt.Sprintf("PUT /inventory/batches/%d", in.BatchID)
		admitted, cached, err := Admit(ctx, idem, in.ActorID, in.IdempotencyKey, endpoint)
		if err != nil {
			return err
		}
		if !admitted {
			replay = cached
			return nil
		}

		batches := postgres.NewBatchRepo(tx)
		b, current, err := batches.Get(ctx, in.BatchID)
		if err != nil {
			return err
		}
		if !canEditOrVoid(b, in.ActorID, in.Role, s.editWindow()) {
			return fmt.Errorf("op=batch.edit: %w", domain.ErrBatchLocked)
		}

		newItems := make([]domain.BatchItem, len(in.Items))
		for i, it := range in.Items {
			newItems[i] = domain.BatchItem{BatchID: in.BatchID, ProductID: it.ProductID, Quantity: it.Quantity, Source: it.Source}
		}

		movements := diffBatchItems(b.BranchID, b.CreatorActorID, in.BatchID, current, newItems)
		if len(movements) > 0 {
			if err := ledger.ApplyMovements(ctx, tx, movements); err != nil {
				return err
			}
		}

		if err := batches.ReplaceItems(ctx, in.BatchID, newItems); err != nil {
			return fmt.Errorf("op=batch.edit.replace_items: %w", err)
		}
		if err := batches.UpdateStatus(ctx, in.BatchID, domain.BatchEdited); err != nil {
			return fmt.Errorf("op=batch.edit.status: %w", err)
		}

		b.Status = domain.BatchEdited
		out = BatchResult{Batch: b, Items: newItems}
		saved, err := SaveJSONResponse(ctx, idem, in.ActorID, in.IdempotencyKey, out)
		if err != nil {
			return err
		}
		replay = saved
		return nil
	})
	if err != nil {
		return BatchResult{}, nil, err
	}
	return out, replay, nil
}

// Void compensates every surviving batch item with an equal-magnitude
// void_out movement and marks the batch voided.
func (s *BatchService) Void(ctx domain.Context, in VoidBatchInput) (BatchResult, []byte, error) {
	var out BatchResult
	var replay []byte
	err := s.Runner.WithinTx(ctx, func(ctx domain.Context, tx pgx.Tx) error {
		idem := postgres.NewIdempotencyRepo(tx)
		endpoint := fmt.Sprintf("POST /inventory/batches/%d/void", in.BatchID)
		admitted, cached, err := Admit(ctx, idem, in.ActorID, in.IdempotencyKey, endpoint)
		if err != nil {
			return err
		}
		if !admitted {
			replay = cached
			return nil
		}

		batches := postgres.NewBatchRepo(tx)
		b, items, err := batches.Get(ctx, in.BatchID)
		if err != nil {
			return err
		}
		if !canEditOrVoid(b, in.ActorID, in.Role, s.editWindow()) {
			return fmt.Errorf("op=batch.void: %w", domain.ErrBatchLocked)
		}

		refID := in.BatchID
		movements := make([]ledger.Movement, 0, len(items))
		for _, it := range items {
			movements = append(movements, ledger.Movement{
				BranchID:       b.BranchID,
				ProductID:      it.ProductID,
				MovementType:   domain.MovementVoidOut,
				QuantityChange: -it.Quantity,
				Source:         it.Source,
				ReferenceType:  "batch",
				ReferenceID:    &refID,
				ActorID:        in.ActorID,
			})
		}
		if len(movements) > 0 {
			if err := ledger.ApplyMovements(ctx, tx, movements); err != nil {
				return err
			}
		}

		if err := batches.UpdateStatus(ctx, in.BatchID, domain.BatchVoided); err != nil {
			return fmt.Errorf("op=batch.void.status: %w", err)
		}
		b.Status = domain.BatchVoided
		out = BatchResult{Batch: b, Items: items}
		saved, err := SaveJSONResponse(ctx, idem, in.ActorID, in.IdempotencyKey, out)
		if err != nil {
			return err
		}
		replay = saved
		return nil
	})
	if err != nil {
		return BatchResult{}, nil, err
	}
	return out, replay, nil
}

// canEditOrVoid implements testable property 6: status≠voided, within the
// edit window, and the actor is the creator or an admin, with role
// restricted to manager/admin.
func canEditOrVoid(b domain.Batch, actorID int64, role domain.Role, window time.Duration) bool {
	if b.Status == domain.BatchVoided {
		return false
	}
	if time.Since(b.CreatedAt) > window {
		return false
	}
	if role != domain.RoleManager && role != domain.RoleAdmin {
		return false
	}
	if actorID != b.CreatorActorID && role != domain.RoleAdmin {
		return false
	}
	return true
}

func validateBatchItems(items []BatchItemInput) error {
	if len(items) == 0 {
		return fmt.Errorf("op=batch.validate: %w: at least one item required", domain.ErrInvalidArgument)
	}
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.Quantity < 1 {
			return fmt.Errorf("op=batch.validate: %w: quantity must be >= 1", domain.ErrInvalidArgument)
		}
		key := fmt.Sprintf("%d:%s", it.ProductID, it.Source)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("op=batch.validate: %w: duplicate (product_id, source) line", domain.ErrInvalidArgument)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// diffBatchItems produces one compensating movement per (product_id,
// source) pair whose quantity changed between current and desired.
func diffBatchItems(branchID, actorID, batchID int64, current, desired []domain.BatchItem) []ledger.Movement {
	type key struct {
		productID int64
		source    domain.StockSource
	}
	old := make(map[key]float64, len(current))
	for _, it := range current {
		old[key{it.ProductID, it.Source}] = it.Quantity
	}
	want := make(map[key]float64, len(desired))
	for _, it := range desired {
		want[key{it.ProductID, it.Source}] = it.Quantity
	}

	keys := make(map[key]struct{}, len(old)+len(want))
	for k := range old {
		keys[k] = struct{}{}
	}
	for k := range want {
		keys[k] = struct{}{}
	}

	refID := batchID
	var movements []ledger.Movement
	for k := range keys {
		delta := want[k] - old[k]
		if delta == 0 {
			continue
		}
		movements = append(movements, ledger.Movement{
			BranchID:       branchID,
			ProductID:      k.productID,
			MovementType:   domain.MovementBatchIn,
			QuantityChange: delta,
			Source:         k.source,
			ReferenceType:  "batch",
			ReferenceID:    &refID,
			ActorID:        actorID,
		})
	}
	return movements
}
