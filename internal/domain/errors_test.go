package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorConstants(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ErrInvalidArgument", ErrInvalidArgument, "invalid argument"},
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrConflict", ErrConflict, "conflict"},
		{"ErrRateLimited", ErrRateLimited, "rate limited"},
		{"ErrInternal", ErrInternal, "internal error"},
		{"ErrDBTransient", ErrDBTransient, "db transient error"},
		{"ErrInsufficientStock", ErrInsufficientStock, "insufficient stock"},
		{"ErrBatchLocked", ErrBatchLocked, "batch locked"},
		{"ErrProductUnavailable", ErrProductUnavailable, "product unavailable"},
		{"ErrArchiveConfirmationMismatch", ErrArchiveConfirmationMismatch, "archive confirmation mismatch"},
		{"ErrIdempotencyEndpointMismatch", ErrIdempotencyEndpointMismatch, "idempotency endpoint mismatch"},
		{"ErrStaffAlreadyLinked", ErrStaffAlreadyLinked, "staff already linked"},
		{"ErrAccountAlreadyExists", ErrAccountAlreadyExists, "account already exists"},
		{"ErrReceiptCollision", ErrReceiptCollision, "receipt collision"},
		{"ErrArchiveInProgress", ErrArchiveInProgress, "archive already in progress"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("expected %s to be %q, got %q", tt.name, tt.expected, tt.err.Error())
			}
		})
	}
}

func TestErrorIsWrapped(t *testing.T) {
	wrapped := fmt.Errorf("sale: %w", ErrInsufficientStock)
	if !errors.Is(wrapped, ErrInsufficientStock) {
		t.Fatal("expected errors.Is to unwrap to ErrInsufficientStock")
	}
	if errors.Is(wrapped, ErrBatchLocked) {
		t.Fatal("did not expect wrapped ErrInsufficientStock to match ErrBatchLocked")
	}
}
