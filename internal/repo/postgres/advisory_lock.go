package postgres

import (
	"fmt"
	"hash/fnv"

	"go.opentelemetry.io/otel"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// archiveSchedulerLockNamespace is hashed into the fixed advisory lock key
// archival runs contend on, so at most one archival pass runs at a time
// across every process talking to the same database (spec.md §4.6).
const archiveSchedulerLockNamespace = "ARCHIVE_SCHEDULER"

// AdvisoryLock wraps Postgres session-level advisory locks on a connection
// held for the lifetime of a transaction.
type AdvisoryLock struct{ Pool Querier }

// NewAdvisoryLock constructs an AdvisoryLock.
func NewAdvisoryLock(p Querier) *AdvisoryLock { return &AdvisoryLock{Pool: p} }

// TryLockBranchArchive attempts to acquire the archive scheduler lock without
// blocking. The key does not depend on branchID, so a run for any branch
// holds it. ok is false if another archival run already holds it; callers
// must run this and the corresponding unlock over the same pooled connection
// (pgx.Tx satisfies Pool for this purpose).
func (l *AdvisoryLock) TryLockBranchArchive(ctx domain.Context, branchID int64) (bool, error) {
	ctx, span := otel.Tracer("repo.advisory_lock").Start(ctx, "advisory_lock.TryLockBranchArchive")
	defer span.End()

	key := archiveLockKey()
	var ok bool
	if err := l.Pool.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&ok); err != nil {
		return false, fmt.Errorf("op=advisory_lock.try_lock: %w", err)
	}
	return ok, nil
}

// UnlockBranchArchive releases a lock previously acquired by
// TryLockBranchArchive, on the same connection.
func (l *AdvisoryLock) UnlockBranchArchive(ctx domain.Context, branchID int64) error {
	ctx, span := otel.Tracer("repo.advisory_lock").Start(ctx, "advisory_lock.UnlockBranchArchive")
	defer span.End()

	key := archiveLockKey()
	if _, err := l.Pool.Exec(ctx, `SELECT pg_advisory_unlock($1)`, key); err != nil {
		return fmt.Errorf("op=advisory_lock.unlock: %w", err)
	}
	return nil
}

// archiveLockKey derives the stable bigint advisory lock key from the fixed
// scheduler namespace. The key is the same for every branch, so archival
// runs for different branches do not overlap either.
func archiveLockKey() int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(archiveSchedulerLockNamespace))
	sum := h.Sum64()
	return int64(sum >> 1)
}
