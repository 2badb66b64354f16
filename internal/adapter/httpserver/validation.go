package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// maxIdempotencyKeyLen enforces spec.md §6's "opaque <= 120 chars" bound.
const maxIdempotencyKeyLen = 120

// validateIdempotencyKey rejects missing or oversized idempotency keys
// before a handler ever opens a transaction.
func validateIdempotencyKey(key string) error {
	if key == "" {
		return fmt.Errorf("op=validate.idempotency_key: %w: X-Idempotency-Key is required", domain.ErrInvalidArgument)
	}
	if len(key) > maxIdempotencyKeyLen {
		return fmt.Errorf("op=validate.idempotency_key: %w: X-Idempotency-Key exceeds %d chars", domain.ErrInvalidArgument, maxIdempotencyKeyLen)
	}
	return nil
}

// pathInt64 parses a chi URL path parameter as a positive int64 id.
func pathInt64(r *http.Request, value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("op=validate.path_id: %w: invalid id %q", domain.ErrInvalidArgument, value)
	}
	return id, nil
}

// queryBranchID resolves the branch/location scope for a read-only request:
// the actor's own branch from X-Location-Id takes precedence, falling back
// to an explicit ?branch_id= query parameter for multi-branch actors.
func queryBranchID(r *http.Request, actor ActorContext) (int64, error) {
	if actor.BranchID > 0 {
		return actor.BranchID, nil
	}
	q := r.URL.Query().Get("branch_id")
	if q == "" {
		return 0, fmt.Errorf("op=validate.branch_id: %w: branch_id is required", domain.ErrInvalidArgument)
	}
	id, err := strconv.ParseInt(q, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("op=validate.branch_id: %w: invalid branch_id %q", domain.ErrInvalidArgument, q)
	}
	return id, nil
}
