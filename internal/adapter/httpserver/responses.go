// Package httpserver contains HTTP handlers and middleware.
//
// It provides REST API endpoints for branch operations: sales, batches,
// inventory, staff, ledger entries, and archival. The package follows
// clean architecture principles and keeps HTTP concerns separate from
// the usecase layer underneath it.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bakeryhq/ops-backend/internal/domain"
	obsctx "github.com/bakeryhq/ops-backend/internal/observability"
)

type errorEnvelope struct {
	Error     string      `json:"error"`
	Code      string      `json:"code"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"requestId"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
		codeStr = "NOT_FOUND"
	case errors.Is(err, domain.ErrRateLimited):
		code = http.StatusTooManyRequests
		codeStr = "RATE_LIMITED"
	case errors.Is(err, domain.ErrInsufficientStock):
		code = http.StatusConflict
		codeStr = "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrBatchLocked):
		code = http.StatusConflict
		codeStr = "BATCH_LOCKED"
	case errors.Is(err, domain.ErrProductUnavailable):
		code = http.StatusUnprocessableEntity
		codeStr = "PRODUCT_UNAVAILABLE"
	case errors.Is(err, domain.ErrArchiveConfirmationMismatch):
		code = http.StatusBadRequest
		codeStr = "ARCHIVE_CONFIRMATION_MISMATCH"
	case errors.Is(err, domain.ErrArchiveInProgress):
		code = http.StatusConflict
		codeStr = "ARCHIVE_IN_PROGRESS"
	case errors.Is(err, domain.ErrIdempotencyEndpointMismatch):
		code = http.StatusConflict
		codeStr = "IDEMPOTENCY_ENDPOINT_MISMATCH"
	case errors.Is(err, domain.ErrStaffAlreadyLinked):
		code = http.StatusConflict
		codeStr = "STAFF_ALREADY_LINKED"
	case errors.Is(err, domain.ErrAccountAlreadyExists):
		code = http.StatusConflict
		codeStr = "ACCOUNT_ALREADY_EXISTS"
	case errors.Is(err, domain.ErrReceiptCollision):
		code = http.StatusConflict
		codeStr = "RECEIPT_COLLISION"
	case errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
		codeStr = "CONFLICT"
	case errors.Is(err, domain.ErrDBTransient):
		code = http.StatusServiceUnavailable
		codeStr = "DB_TRANSIENT"
		w.Header().Set("Retry-After", "1")
	}
	requestID := ""
	if r != nil {
		requestID = obsctx.RequestIDFromContext(r.Context())
	}
	writeJSON(w, code, errorEnvelope{Error: err.Error(), Code: codeStr, Details: details, RequestID: requestID})
}
