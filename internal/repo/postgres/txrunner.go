package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// Runner opens one transaction per logical command and retries BEGIN on
// transient connection failure. Generalized from the teacher's explicit
// BeginTx/Commit/Rollback style in jobs_repo.go#UpdateStatus (manual
// transaction management, not an ORM helper), extended with the bounded,
// jittered retry loop spec.md §5 requires on transient BEGIN failure.
type Runner struct {
	Pool Pool

	// MaxBeginRetries bounds the BEGIN retry loop. Defaults to 3.
	MaxBeginRetries int
}

// NewRunner constructs a Runner over pool.
func NewRunner(pool Pool) *Runner {
	return &Runner{Pool: pool, MaxBeginRetries: 3}
}

// WithinTx runs fn inside one transaction with READ COMMITTED isolation.
// fn's returned error causes a rollback; fn's nil return commits. A
// transient error on BEGIN is retried up to MaxBeginRetries times with
// jitter; a transient error once inside fn surfaces as domain.ErrDBTransient.
func (r *Runner) WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	maxRetries := r.MaxBeginRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	beginPolicy := backoff.WithContext(
		backoff.WithMaxRetries(beginBackOff(), uint64(maxRetries)),
		ctx,
	)

	var tx pgx.Tx
	beginErr := backoff.RetryNotify(
		func() error {
			var err error
			tx, err = r.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
			if err == nil {
				return nil
			}
			if !isTransientDbError(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		beginPolicy,
		func(err error, wait time.Duration) {
			slog.Warn("transient error beginning transaction, retrying",
				slog.Duration("wait", wait), slog.Any("error", err))
		},
	)
	if beginErr != nil {
		return fmt.Errorf("op=tx.begin: %w", beginErr)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				slog.Error("failed to rollback transaction", slog.Any("error", rbErr))
			}
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if isTransientDbError(err) {
			return fmt.Errorf("op=tx.run: %w: %w", domain.ErrDBTransient, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isTransientDbError(err) {
			return fmt.Errorf("op=tx.commit: %w: %w", domain.ErrDBTransient, err)
		}
		return fmt.Errorf("op=tx.commit: %w", err)
	}
	committed = true
	return nil
}

// isTransientDbError matches connection-termination and timeout classes,
// including the literal substring "Connection terminated" per spec.md §5.
func isTransientDbError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	if strings.Contains(msg, "Connection terminated") {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "57P01", // admin_shutdown
			"57P02", // crash_shutdown
			"57P03", // cannot_connect_now
			"08000", // connection_exception
			"08003", // connection_does_not_exist
			"08006", // connection_failure
			"08001", // sqlclient_unable_to_establish_sqlconnection
			"08004", // sqlserver_rejected_establishment_of_sqlconnection
			"40001": // serialization_failure
			return true
		}
	}
	var connErr interface{ Timeout() bool }
	if errors.As(err, &connErr) && connErr.Timeout() {
		return true
	}
	return false
}

// beginBackOff is a short, tightly-capped policy (base 100ms, factor 2, cap
// 2s, jitter 25%) for retrying a failed BEGIN — distinct from the offline
// queue's much longer replay backoff (see internal/offlinequeue), since a
// server request has a short overall deadline (spec.md §5, default 15s).
func beginBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.Multiplier = 2
	b.MaxInterval = 2 * time.Second
	b.RandomizationFactor = 0.25
	b.MaxElapsedTime = 0
	return b
}
