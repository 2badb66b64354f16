package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// ActorRepo implements domain.ActorRepository, including the actor_branches
// multi-branch-access mapping table.
type ActorRepo struct{ Pool Querier }

// NewActorRepo constructs an ActorRepo.
func NewActorRepo(p Querier) *ActorRepo { return &ActorRepo{Pool: p} }

func (r *ActorRepo) Create(ctx domain.Context, a domain.Actor) (int64, error) {
	tracer := otel.Tracer("repo.actors")
	ctx, span := tracer.Start(ctx, "actors.Create")
	defer span.End()
	span.SetAttributes(attribute.String("db.sql.table", "actors"))

	var id int64
	err := r.Pool.QueryRow(ctx, `INSERT INTO actors (username, email, password_hash, role, branch_id, is_active, hire_date, termination_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		a.Username, a.Email, a.PasswordHash, a.Role, a.BranchID, a.IsActive, a.HireDate, a.TerminationDate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("op=actor.create: %w", err)
	}
	return id, nil
}

func scanActor(row pgx.Row) (domain.Actor, error) {
	var a domain.Actor
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Role, &a.BranchID, &a.IsActive, &a.HireDate, &a.TerminationDate); err != nil {
		return domain.Actor{}, err
	}
	return a, nil
}

const actorSelectCols = `id, username, email, password_hash, role, branch_id, is_active, hire_date, termination_date`

func (r *ActorRepo) Get(ctx domain.Context, id int64) (domain.Actor, error) {
	tracer := otel.Tracer("repo.actors")
	ctx, span := tracer.Start(ctx, "actors.Get")
	defer span.End()

	a, err := scanActor(r.Pool.QueryRow(ctx, `SELECT `+actorSelectCols+` FROM actors WHERE id=$1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Actor{}, fmt.Errorf("op=actor.get: %w", domain.ErrNotFound)
		}
		return domain.Actor{}, fmt.Errorf("op=actor.get: %w", err)
	}
	return a, nil
}

func (r *ActorRepo) FindByUsername(ctx domain.Context, username string) (domain.Actor, error) {
	tracer := otel.Tracer("repo.actors")
	ctx, span := tracer.Start(ctx, "actors.FindByUsername")
	defer span.End()

	a, err := scanActor(r.Pool.QueryRow(ctx, `SELECT `+actorSelectCols+` FROM actors WHERE username=$1`, username))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Actor{}, fmt.Errorf("op=actor.find_by_username: %w", domain.ErrNotFound)
		}
		return domain.Actor{}, fmt.Errorf("op=actor.find_by_username: %w", err)
	}
	return a, nil
}

func (r *ActorRepo) FindByEmail(ctx domain.Context, email string) (domain.Actor, error) {
	tracer := otel.Tracer("repo.actors")
	ctx, span := tracer.Start(ctx, "actors.FindByEmail")
	defer span.End()

	a, err := scanActor(r.Pool.QueryRow(ctx, `SELECT `+actorSelectCols+` FROM actors WHERE email=$1`, email))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Actor{}, fmt.Errorf("op=actor.find_by_email: %w", domain.ErrNotFound)
		}
		return domain.Actor{}, fmt.Errorf("op=actor.find_by_email: %w", err)
	}
	return a, nil
}

func (r *ActorRepo) Update(ctx domain.Context, a domain.Actor) error {
	tracer := otel.Tracer("repo.actors")
	ctx, span := tracer.Start(ctx, "actors.Update")
	defer span.End()

	_, err := r.Pool.Exec(ctx, `UPDATE actors SET username=$2, email=$3, password_hash=$4, role=$5, branch_id=$6, is_active=$7, termination_date=$8
		WHERE id=$1`, a.ID, a.Username, a.Email, a.PasswordHash, a.Role, a.BranchID, a.IsActive, a.TerminationDate)
	if err != nil {
		return fmt.Errorf("op=actor.update: %w", err)
	}
	return nil
}

func (r *ActorRepo) SetActive(ctx domain.Context, id int64, active bool) error {
	tracer := otel.Tracer("repo.actors")
	ctx, span := tracer.Start(ctx, "actors.SetActive")
	defer span.End()

	_, err := r.Pool.Exec(ctx, `UPDATE actors SET is_active=$2 WHERE id=$1`, id, active)
	if err != nil {
		return fmt.Errorf("op=actor.set_active: %w", err)
	}
	return nil
}

func (r *ActorRepo) SetBranches(ctx domain.Context, actorID int64, branchIDs []int64) error {
	tracer := otel.Tracer("repo.actors")
	ctx, span := tracer.Start(ctx, "actors.SetBranches")
	defer span.End()

	if _, err := r.Pool.Exec(ctx, `DELETE FROM actor_branches WHERE actor_id=$1`, actorID); err != nil {
		return fmt.Errorf("op=actor.set_branches.clear: %w", err)
	}
	for _, bid := range branchIDs {
		if _, err := r.Pool.Exec(ctx, `INSERT INTO actor_branches (actor_id, branch_id) VALUES ($1,$2)
			ON CONFLICT DO NOTHING`, actorID, bid); err != nil {
			return fmt.Errorf("op=actor.set_branches.insert: %w", err)
		}
	}
	return nil
}

func (r *ActorRepo) Branches(ctx domain.Context, actorID int64) ([]int64, error) {
	tracer := otel.Tracer("repo.actors")
	ctx, span := tracer.Start(ctx, "actors.Branches")
	defer span.End()

	rows, err := r.Pool.Query(ctx, `SELECT branch_id FROM actor_branches WHERE actor_id=$1`, actorID)
	if err != nil {
		return nil, fmt.Errorf("op=actor.branches: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var bid int64
		if err := rows.Scan(&bid); err != nil {
			return nil, fmt.Errorf("op=actor.branches.scan: %w", err)
		}
		out = append(out, bid)
	}
	return out, rows.Err()
}
