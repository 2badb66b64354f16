package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

func TestSortedKeys_DedupesAndOrdersByBranchThenProduct(t *testing.T) {
	movements := []Movement{
		{BranchID: 2, ProductID: 5, QuantityChange: 1},
		{BranchID: 1, ProductID: 9, QuantityChange: 1},
		{BranchID: 1, ProductID: 3, QuantityChange: 1},
		{BranchID: 1, ProductID: 3, QuantityChange: -1}, // duplicate key, different sign
	}

	keys := sortedKeys(movements)

	want := []domain.StockKey{
		{BranchID: 1, ProductID: 3},
		{BranchID: 1, ProductID: 9},
		{BranchID: 2, ProductID: 5},
	}
	if len(keys) != len(want) {
		t.Fatalf("expected %d distinct keys, got %d: %+v", len(want), len(keys), keys)
	}
	for i, k := range keys {
		if k != want[i] {
			t.Errorf("key[%d] = %+v, want %+v", i, k, want[i])
		}
	}
}

func TestApplyMovements_EmptyIsNoop(t *testing.T) {
	if err := ApplyMovements(context.Background(), nil, nil); err != nil {
		t.Fatalf("expected nil-movement call to be a no-op, got %v", err)
	}
}

func TestInsufficientStockError_WrapsDomainSentinel(t *testing.T) {
	err := &InsufficientStockError{
		BranchID:  1,
		Violation: StockViolation{ProductID: 7, Current: 2, Requested: -5},
	}

	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatal("expected InsufficientStockError to unwrap to domain.ErrInsufficientStock")
	}
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty error message")
	}
}
