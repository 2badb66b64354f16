package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// BranchRepo implements domain.BranchRepository.
type BranchRepo struct{ Pool Querier }

// NewBranchRepo constructs a BranchRepo.
func NewBranchRepo(p Querier) *BranchRepo { return &BranchRepo{Pool: p} }

func (r *BranchRepo) Create(ctx domain.Context, b domain.Branch) (int64, error) {
	tracer := otel.Tracer("repo.branches")
	ctx, span := tracer.Start(ctx, "branches.Create")
	defer span.End()
	span.SetAttributes(attribute.String("db.sql.table", "branches"))

	var id int64
	err := r.Pool.QueryRow(ctx, `INSERT INTO branches (name, address, phone, is_active, created_at)
		VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		b.Name, b.Address, b.Phone, b.IsActive, time.Now().UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("op=branch.create: %w", err)
	}
	return id, nil
}

func (r *BranchRepo) Get(ctx domain.Context, id int64) (domain.Branch, error) {
	tracer := otel.Tracer("repo.branches")
	ctx, span := tracer.Start(ctx, "branches.Get")
	defer span.End()

	var b domain.Branch
	b.ID = id
	row := r.Pool.QueryRow(ctx, `SELECT name, address, phone, is_active, created_at FROM branches WHERE id=$1`, id)
	if err := row.Scan(&b.Name, &b.Address, &b.Phone, &b.IsActive, &b.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Branch{}, fmt.Errorf("op=branch.get: %w", domain.ErrNotFound)
		}
		return domain.Branch{}, fmt.Errorf("op=branch.get: %w", err)
	}
	return b, nil
}

func (r *BranchRepo) List(ctx domain.Context, activeOnly bool) ([]domain.Branch, error) {
	tracer := otel.Tracer("repo.branches")
	ctx, span := tracer.Start(ctx, "branches.List")
	defer span.End()

	q := `SELECT id, name, address, phone, is_active, created_at FROM branches`
	if activeOnly {
		q += ` WHERE is_active = true`
	}
	rows, err := r.Pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("op=branch.list: %w", err)
	}
	defer rows.Close()

	var out []domain.Branch
	for rows.Next() {
		var b domain.Branch
		if err := rows.Scan(&b.ID, &b.Name, &b.Address, &b.Phone, &b.IsActive, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=branch.list.scan: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BranchRepo) SetActive(ctx domain.Context, id int64, active bool) error {
	tracer := otel.Tracer("repo.branches")
	ctx, span := tracer.Start(ctx, "branches.SetActive")
	defer span.End()

	_, err := r.Pool.Exec(ctx, `UPDATE branches SET is_active=$2 WHERE id=$1`, id, active)
	if err != nil {
		return fmt.Errorf("op=branch.set_active: %w", err)
	}
	return nil
}
