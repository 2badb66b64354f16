package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// IdempotencyRepo implements domain.IdempotencyRepository against Postgres.
// Grounded on the teacher's FindByIdempotencyKey/jobs_repo.go lookup shape,
// replacing the job-dedup use case with the generalized admission-token
// pattern of spec.md §4.1.
type IdempotencyRepo struct{ Pool Querier }

// NewIdempotencyRepo constructs an IdempotencyRepo.
func NewIdempotencyRepo(p Querier) *IdempotencyRepo { return &IdempotencyRepo{Pool: p} }

// Admit performs INSERT ... ON CONFLICT (actor_id, key) DO NOTHING RETURNING
// actor_id; the insert's success is the admission token itself (spec.md
// §4.1). Must be called within the command's own transaction via Runner.
func (r *IdempotencyRepo) Admit(ctx domain.Context, actorID int64, key, endpoint string) (bool, error) {
	tracer := otel.Tracer("repo.idempotency")
	ctx, span := tracer.Start(ctx, "idempotency.Admit")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.sql.table", "idempotency_keys"),
	)

	var won int64
	err := r.Pool.QueryRow(ctx, `INSERT INTO idempotency_keys (actor_id, key, endpoint, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (actor_id, key) DO NOTHING
		RETURNING actor_id`, actorID, key, endpoint, time.Now().UTC()).Scan(&won)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("op=idempotency.admit: %w", err)
	}
	return true, nil
}

// Get fetches the stored record for (actorID, key).
func (r *IdempotencyRepo) Get(ctx domain.Context, actorID int64, key string) (domain.IdempotencyRecord, error) {
	tracer := otel.Tracer("repo.idempotency")
	ctx, span := tracer.Start(ctx, "idempotency.Get")
	defer span.End()

	var rec domain.IdempotencyRecord
	rec.ActorID = actorID
	rec.Key = key
	row := r.Pool.QueryRow(ctx, `SELECT endpoint, response_payload, created_at FROM idempotency_keys
		WHERE actor_id=$1 AND key=$2`, actorID, key)
	if err := row.Scan(&rec.Endpoint, &rec.ResponsePayload, &rec.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.IdempotencyRecord{}, fmt.Errorf("op=idempotency.get: %w", domain.ErrNotFound)
		}
		return domain.IdempotencyRecord{}, fmt.Errorf("op=idempotency.get: %w", err)
	}
	return rec, nil
}

// SaveResponse persists the response payload for an already-admitted key,
// within the same transaction that performed the mutation.
func (r *IdempotencyRepo) SaveResponse(ctx domain.Context, actorID int64, key string, payload []byte) error {
	tracer := otel.Tracer("repo.idempotency")
	ctx, span := tracer.Start(ctx, "idempotency.SaveResponse")
	defer span.End()

	_, err := r.Pool.Exec(ctx, `UPDATE idempotency_keys SET response_payload=$3 WHERE actor_id=$1 AND key=$2`,
		actorID, key, payload)
	if err != nil {
		return fmt.Errorf("op=idempotency.save_response: %w", err)
	}
	return nil
}
