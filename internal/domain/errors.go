package domain

import "errors"

// Error taxonomy (sentinels). Handlers return these; a single adapter maps
// them to the HTTP error envelope.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRateLimited       = errors.New("rate limited")
	ErrInternal          = errors.New("internal error")

	// ErrDBTransient marks a connection-termination/timeout class failure
	// surfaced to the caller as a 503 with Retry-After.
	ErrDBTransient = errors.New("db transient error")

	// ErrInsufficientStock is raised by the inventory ledger when a
	// sale_out/void_out movement would drive stock below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrBatchLocked is raised when a batch edit/void is attempted outside
	// the edit window or by an actor without the required role/ownership.
	ErrBatchLocked = errors.New("batch locked")

	// ErrProductUnavailable is raised when a sale references an unknown or
	// inactive product.
	ErrProductUnavailable = errors.New("product unavailable")

	// ErrArchiveConfirmationMismatch is raised when a manual archive run's
	// confirmation phrase does not match archive_settings.confirmation_phrase.
	ErrArchiveConfirmationMismatch = errors.New("archive confirmation mismatch")

	// ErrIdempotencyEndpointMismatch is raised when the same (actor, key)
	// pair is replayed against a different endpoint than it was first used with.
	ErrIdempotencyEndpointMismatch = errors.New("idempotency endpoint mismatch")

	// ErrStaffAlreadyLinked is raised when creating an account for a staff
	// profile that is already linked to an active actor.
	ErrStaffAlreadyLinked = errors.New("staff already linked")

	// ErrAccountAlreadyExists is raised when an active duplicate actor
	// (by username or derived email) already exists.
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrReceiptCollision marks a receipt_number unique-constraint
	// collision; callers retry with the next sequence internally.
	ErrReceiptCollision = errors.New("receipt collision")

	// ErrArchiveInProgress maps to 409 ARCHIVE_IN_PROGRESS. ArchiveService
	// does not return it: a run that finds the ARCHIVE_SCHEDULER advisory
	// lock held is recorded as a skipped run instead.
	ErrArchiveInProgress = errors.New("archive already in progress")
)
