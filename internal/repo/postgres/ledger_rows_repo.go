package postgres

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// ExpenseRepo implements domain.ExpenseRepository.
type ExpenseRepo struct{ Pool Querier }

// NewExpenseRepo constructs an ExpenseRepo.
func NewExpenseRepo(p Querier) *ExpenseRepo { return &ExpenseRepo{Pool: p} }

func (r *ExpenseRepo) Create(ctx domain.Context, e domain.Expense) (int64, error) {
	ctx, span := otel.Tracer("repo.expenses").Start(ctx, "expenses.Create")
	defer span.End()

	var id int64
	err := r.Pool.QueryRow(ctx, `INSERT INTO expenses (branch_id, amount, date, category, created_by_actor_id)
		VALUES ($1,$2,$3,$4,$5) RETURNING id`, e.BranchID, e.Amount, e.Date, e.Category, e.CreatedByActorID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("op=expense.create: %w", err)
	}
	return id, nil
}

func (r *ExpenseRepo) List(ctx domain.Context, branchID int64) ([]domain.Expense, error) {
	ctx, span := otel.Tracer("repo.expenses").Start(ctx, "expenses.List")
	defer span.End()

	rows, err := r.Pool.Query(ctx, `SELECT id, branch_id, amount, date, category, created_by_actor_id
		FROM expenses WHERE branch_id=$1 ORDER BY date DESC`, branchID)
	if err != nil {
		return nil, fmt.Errorf("op=expense.list: %w", err)
	}
	defer rows.Close()

	var out []domain.Expense
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.BranchID, &e.Amount, &e.Date, &e.Category, &e.CreatedByActorID); err != nil {
			return nil, fmt.Errorf("op=expense.list.scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *ExpenseRepo) ArchiveOlderThan(ctx domain.Context, branchID int64, cutoff time.Time) (int64, error) {
	ctx, span := otel.Tracer("repo.expenses").Start(ctx, "expenses.ArchiveOlderThan")
	defer span.End()

	var count int64
	err := r.Pool.QueryRow(ctx, `WITH moved AS (
		INSERT INTO expenses_archive SELECT * FROM expenses WHERE branch_id=$1 AND date < $2
		ON CONFLICT DO NOTHING RETURNING id
	) SELECT count(*) FROM moved`, branchID, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("op=expense.archive_older_than: %w", err)
	}
	if _, err := r.Pool.Exec(ctx, `DELETE FROM expenses WHERE branch_id=$1 AND date < $2`, branchID, cutoff); err != nil {
		return 0, fmt.Errorf("op=expense.archive_older_than.delete: %w", err)
	}
	return count, nil
}

// StaffPaymentRepo implements domain.StaffPaymentRepository.
type StaffPaymentRepo struct{ Pool Querier }

// NewStaffPaymentRepo constructs a StaffPaymentRepo.
func NewStaffPaymentRepo(p Querier) *StaffPaymentRepo { return &StaffPaymentRepo{Pool: p} }

func (r *StaffPaymentRepo) Create(ctx domain.Context, p domain.StaffPayment) (int64, error) {
	ctx, span := otel.Tracer("repo.staff_payments").Start(ctx, "staff_payments.Create")
	defer span.End()

	var id int64
	err := r.Pool.QueryRow(ctx, `INSERT INTO staff_payments (branch_id, amount, date, payment_type, created_by_actor_id)
		VALUES ($1,$2,$3,$4,$5) RETURNING id`, p.BranchID, p.Amount, p.Date, p.PaymentType, p.CreatedByActorID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("op=staff_payment.create: %w", err)
	}
	return id, nil
}

func (r *StaffPaymentRepo) List(ctx domain.Context, branchID int64) ([]domain.StaffPayment, error) {
	ctx, span := otel.Tracer("repo.staff_payments").Start(ctx, "staff_payments.List")
	defer span.End()

	rows, err := r.Pool.Query(ctx, `SELECT id, branch_id, amount, date, payment_type, created_by_actor_id
		FROM staff_payments WHERE branch_id=$1 ORDER BY date DESC`, branchID)
	if err != nil {
		return nil, fmt.Errorf("op=staff_payment.list: %w", err)
	}
	defer rows.Close()

	var out []domain.StaffPayment
	for rows.Next() {
		var p domain.StaffPayment
		if err := rows.Scan(&p.ID, &p.BranchID, &p.Amount, &p.Date, &p.PaymentType, &p.CreatedByActorID); err != nil {
			return nil, fmt.Errorf("op=staff_payment.list.scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *StaffPaymentRepo) ArchiveOlderThan(ctx domain.Context, branchID int64, cutoff time.Time) (int64, error) {
	ctx, span := otel.Tracer("repo.staff_payments").Start(ctx, "staff_payments.ArchiveOlderThan")
	defer span.End()

	var count int64
	err := r.Pool.QueryRow(ctx, `WITH moved AS (
		INSERT INTO staff_payments_archive SELECT * FROM staff_payments WHERE branch_id=$1 AND date < $2
		ON CONFLICT DO NOTHING RETURNING id
	) SELECT count(*) FROM moved`, branchID, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("op=staff_payment.archive_older_than: %w", err)
	}
	if _, err := r.Pool.Exec(ctx, `DELETE FROM staff_payments WHERE branch_id=$1 AND date < $2`, branchID, cutoff); err != nil {
		return 0, fmt.Errorf("op=staff_payment.archive_older_than.delete: %w", err)
	}
	return count, nil
}
