// Package usecase contains the application services that orchestrate
// repositories and the inventory ledger into the bakery's write-path
// operations (idempotent admission, batch lifecycle, sales, archival,
// notifications, staff lifecycle).
package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bakeryhq/ops-backend/internal/domain"
	obsctx "github.com/bakeryhq/ops-backend/internal/observability"
)

// Admit runs the idempotency admission check for (actorID, key, endpoint)
// against repo. It must be called inside the same transaction as the
// command's business logic so that admission and effect commit or roll
// back together (spec.md §4.1).
//
// admitted is true when this call won the insert and the caller should
// proceed and eventually call SaveResponse before commit. When admitted is
// false, replay holds the previously stored response payload verbatim.
func Admit(ctx domain.Context, repo domain.IdempotencyRepository, actorID int64, key, endpoint string) (admitted bool, replay []byte, err error) {
	lg := obsctx.LoggerFromContext(ctx)

	if key == "" {
		// No client-generated key: nothing to dedupe against, every call executes.
		return true, nil, nil
	}
	if actorID == 0 {
		return false, nil, fmt.Errorf("op=idempotency.admit: %w: key requires an authenticated actor", domain.ErrInvalidArgument)
	}

	won, err := repo.Admit(ctx, actorID, key, endpoint)
	if err != nil {
		return false, nil, fmt.Errorf("op=idempotency.admit: %w", err)
	}
	if won {
		lg.Info("idempotency key admitted", slog.Int64("actor_id", actorID), slog.String("endpoint", endpoint))
		return true, nil, nil
	}

	rec, err := repo.Get(ctx, actorID, key)
	if err != nil {
		return false, nil, fmt.Errorf("op=idempotency.get: %w", err)
	}
	if rec.Endpoint != endpoint {
		lg.Warn("idempotency endpoint mismatch", slog.Int64("actor_id", actorID),
			slog.String("stored_endpoint", rec.Endpoint), slog.String("requested_endpoint", endpoint))
		return false, nil, fmt.Errorf("op=idempotency.endpoint_mismatch: %w", domain.ErrIdempotencyEndpointMismatch)
	}
	lg.Info("idempotency replay", slog.Int64("actor_id", actorID), slog.String("endpoint", endpoint))
	return false, rec.ResponsePayload, nil
}

// SaveJSONResponse marshals v and persists it against (actorID, key) inside
// the caller's transaction, so that later replays return byte-identical
// bodies (spec.md §4.1, testable property 3). No-op when key is empty.
func SaveJSONResponse(ctx domain.Context, repo domain.IdempotencyRepository, actorID int64, key string, v any) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("op=idempotency.marshal_response: %w", err)
	}
	if err := repo.SaveResponse(ctx, actorID, key, payload); err != nil {
		return nil, fmt.Errorf("op=idempotency.save_response: %w", err)
	}
	return payload, nil
}
