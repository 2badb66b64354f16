package postgres

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/bakeryhq/ops-backend/internal/domain"
)

// SaleRepo implements domain.SaleRepository over sales + sale_items.
type SaleRepo struct{ Pool Querier }

// NewSaleRepo constructs a SaleRepo.
func NewSaleRepo(p Querier) *SaleRepo { return &SaleRepo{Pool: p} }

func (r *SaleRepo) Create(ctx domain.Context, s domain.Sale, items []domain.SaleItem) (int64, error) {
	ctx, span := otel.Tracer("repo.sales").Start(ctx, "sales.Create")
	defer span.End()

	var id int64
	err := r.Pool.QueryRow(ctx, `INSERT INTO sales (branch_id, cashier_actor_id, total_amount, payment_method, is_offline, sale_date, receipt_number)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		s.BranchID, s.CashierActorID, s.TotalAmount, s.PaymentMethod, s.IsOffline, s.SaleDate, s.ReceiptNumber).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("op=sale.create: %w", err)
	}

	for _, it := range items {
		if _, err := r.Pool.Exec(ctx, `INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, subtotal)
			VALUES ($1,$2,$3,$4,$5)`, id, it.ProductID, it.Quantity, it.UnitPrice, it.Subtotal); err != nil {
			return 0, fmt.Errorf("op=sale.create.items: %w", err)
		}
	}
	return id, nil
}

func (r *SaleRepo) Get(ctx domain.Context, id int64) (domain.Sale, []domain.SaleItem, error) {
	ctx, span := otel.Tracer("repo.sales").Start(ctx, "sales.Get")
	defer span.End()

	var s domain.Sale
	s.ID = id
	row := r.Pool.QueryRow(ctx, `SELECT branch_id, cashier_actor_id, total_amount, payment_method, is_offline, sale_date, receipt_number
		FROM sales WHERE id=$1`, id)
	if err := row.Scan(&s.BranchID, &s.CashierActorID, &s.TotalAmount, &s.PaymentMethod, &s.IsOffline, &s.SaleDate, &s.ReceiptNumber); err != nil {
		if err == pgx.ErrNoRows {
			return domain.Sale{}, nil, fmt.Errorf("op=sale.get: %w", domain.ErrNotFound)
		}
		return domain.Sale{}, nil, fmt.Errorf("op=sale.get: %w", err)
	}

	rows, err := r.Pool.Query(ctx, `SELECT id, sale_id, product_id, quantity, unit_price, subtotal FROM sale_items WHERE sale_id=$1 ORDER BY id`, id)
	if err != nil {
		return domain.Sale{}, nil, fmt.Errorf("op=sale.get.items: %w", err)
	}
	defer rows.Close()

	var items []domain.SaleItem
	for rows.Next() {
		var it domain.SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return domain.Sale{}, nil, fmt.Errorf("op=sale.get.items.scan: %w", err)
		}
		items = append(items, it)
	}
	return s, items, rows.Err()
}

// NextSequenceForDay returns the next per-day receipt sequence number for
// day, backed by a dedicated sequence row so concurrent sales on the same
// day each get a distinct, monotonically increasing number (spec.md §6
// receipt number format, §8 property 5).
func (r *SaleRepo) NextSequenceForDay(ctx domain.Context, day time.Time) (int, error) {
	ctx, span := otel.Tracer("repo.sales").Start(ctx, "sales.NextSequenceForDay")
	defer span.End()

	dayKey := day.UTC().Format("20060102")
	var seq int
	err := r.Pool.QueryRow(ctx, `INSERT INTO receipt_sequences (day_key, last_seq) VALUES ($1, 1)
		ON CONFLICT (day_key) DO UPDATE SET last_seq = receipt_sequences.last_seq + 1
		RETURNING last_seq`, dayKey).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("op=sale.next_sequence: %w", err)
	}
	return seq, nil
}

func (r *SaleRepo) ListOlderThan(ctx domain.Context, branchID int64, cutoff time.Time) ([]domain.Sale, error) {
	ctx, span := otel.Tracer("repo.sales").Start(ctx, "sales.ListOlderThan")
	defer span.End()

	rows, err := r.Pool.Query(ctx, `SELECT id, branch_id, cashier_actor_id, total_amount, payment_method, is_offline, sale_date, receipt_number
		FROM sales WHERE branch_id=$1 AND sale_date < $2`, branchID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("op=sale.list_older_than: %w", err)
	}
	defer rows.Close()

	var out []domain.Sale
	for rows.Next() {
		var s domain.Sale
		if err := rows.Scan(&s.ID, &s.BranchID, &s.CashierActorID, &s.TotalAmount, &s.PaymentMethod, &s.IsOffline, &s.SaleDate, &s.ReceiptNumber); err != nil {
			return nil, fmt.Errorf("op=sale.list_older_than.scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ArchiveOlderThan moves sales (and their sale_items) older than cutoff for
// branchID into the archive mirror tables, children first, in the caller's
// transaction.
func (r *SaleRepo) ArchiveOlderThan(ctx domain.Context, branchID int64, cutoff time.Time) (int64, error) {
	ctx, span := otel.Tracer("repo.sales").Start(ctx, "sales.ArchiveOlderThan")
	defer span.End()

	var count int64
	err := r.Pool.QueryRow(ctx, `WITH moved AS (
		INSERT INTO sales_archive
		SELECT * FROM sales WHERE branch_id=$1 AND sale_date < $2
		ON CONFLICT DO NOTHING RETURNING id
	) SELECT count(*) FROM moved`, branchID, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("op=sale.archive_older_than.sales: %w", err)
	}

	if _, err := r.Pool.Exec(ctx, `INSERT INTO sale_items_archive
		SELECT si.* FROM sale_items si JOIN sales s ON s.id=si.sale_id
		WHERE s.branch_id=$1 AND s.sale_date < $2
		ON CONFLICT DO NOTHING`, branchID, cutoff); err != nil {
		return 0, fmt.Errorf("op=sale.archive_older_than.items: %w", err)
	}

	if _, err := r.Pool.Exec(ctx, `DELETE FROM sale_items WHERE sale_id IN
		(SELECT id FROM sales WHERE branch_id=$1 AND sale_date < $2)`, branchID, cutoff); err != nil {
		return 0, fmt.Errorf("op=sale.archive_older_than.delete_items: %w", err)
	}
	if _, err := r.Pool.Exec(ctx, `DELETE FROM sales WHERE branch_id=$1 AND sale_date < $2`, branchID, cutoff); err != nil {
		return 0, fmt.Errorf("op=sale.archive_older_than.delete_sales: %w", err)
	}
	return count, nil
}
