package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bakeryhq/ops-backend/internal/domain"
	"github.com/bakeryhq/ops-backend/internal/ledger"
	obsctx "github.com/bakeryhq/ops-backend/internal/observability"
	"github.com/bakeryhq/ops-backend/internal/repo/postgres"
)

// maxReceiptRetries bounds the receipt-number collision retry loop
// (spec.md §4.4 step 4: "retry with the next sequence up to a small bound").
const maxReceiptRetries = 5

// SaleItemInput is one requested product line for a sale.
type SaleItemInput struct {
	ProductID int64
	Quantity  float64
}

// CreateSaleInput is the command DTO for the sale write path.
type CreateSaleInput struct {
	BranchID        int64
	CashierActorID  int64
	Items           []SaleItemInput
	PaymentMethod   domain.PaymentMethod
	CashierTimingMs *int64
	IsOffline       bool
	IdempotencyKey  string
}

// SaleResult is what Create returns and what gets persisted against the
// idempotency key, so later replays return a byte-identical body.
type SaleResult struct {
	Sale  domain.Sale
	Items []domain.SaleItem
}

// SaleService implements the sale write path (spec.md §4.4).
type SaleService struct {
	Runner   *postgres.Runner
	Products domain.ProductRepository
}

// NewSaleService constructs a SaleService.
func NewSaleService(runner *postgres.Runner, products domain.ProductRepository) *SaleService {
	return &SaleService{Runner: runner, Products: products}
}

// Create resolves current prices, applies sale_out movements, allocates a
// receipt number (retrying on collision), inserts the sale, emits KPI
// events, evaluates alert rules, and persists the idempotent response — all
// inside one transaction.
func (s *SaleService) Create(ctx domain.Context, in CreateSaleInput) (SaleResult, []byte, error) {
	lg := obsctx.LoggerFromContext(ctx)

	if len(in.Items) == 0 {
		return SaleResult{}, nil, fmt.Errorf("op=sale.validate: %w: at least one item required", domain.ErrInvalidArgument)
	}
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return SaleResult{}, nil, fmt.Errorf("op=sale.validate: %w: quantity must be >= 1", domain.ErrInvalidArgument)
		}
	}

	var out SaleResult
	var replay []byte
	err := s.Runner.WithinTx(ctx, func(ctx domain.Context, tx pgx.Tx) error {
		idem := postgres.NewIdempotencyRepo(tx)
		admitted, cached, err := Admit(ctx, idem, in.CashierActorID, in.IdempotencyKey, "POST /sales")
		if err != nil {
			return err
		}
		if !admitted {
			replay = cached
			return nil
		}

		lines, total, err := s.resolveLines(ctx, tx, in.Items)
		if err != nil {
			return err
		}

		movements := make([]ledger.Movement, 0, len(lines))
		for _, l := range lines {
			movements = append(movements, ledger.Movement{
				BranchID:       in.BranchID,
				ProductID:      l.productID,
				MovementType:   domain.MovementSaleOut,
				QuantityChange: -l.quantity,
				ReferenceType:  "sale",
				ActorID:        in.CashierActorID,
			})
		}
		if err := ledger.ApplyMovements(ctx, tx, movements); err != nil {
			return err
		}

		items := make([]domain.SaleItem, len(lines))
		for i, l := range lines {
			items[i] = domain.SaleItem{
				ProductID: l.productID, Quantity: l.quantity,
				UnitPrice: l.unitPrice, Subtotal: roundCurrency(l.quantity * l.unitPrice),
			}
		}

		sales := postgres.NewSaleRepo(tx)
		saleDate := time.Now().UTC()
		receipt, saleID, err := createWithReceiptRetry(ctx, sales, in, items, saleDate, total)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].SaleID = saleID
		}

		sale := domain.Sale{
			ID: saleID, BranchID: in.BranchID, CashierActorID: in.CashierActorID,
			TotalAmount: total, PaymentMethod: in.PaymentMethod, IsOffline: in.IsOffline,
			SaleDate: saleDate, ReceiptNumber: receipt,
		}

		kpiEvents := postgres.NewKpiEventRepo(tx)
		if _, err := kpiEvents.Append(ctx, domain.KpiEvent{
			BranchID: in.BranchID, ActorID: &in.CashierActorID, EventType: "sale_completed",
			EventValue: total, CreatedAt: saleDate,
		}); err != nil {
			return fmt.Errorf("op=sale.kpi.sale_completed: %w", err)
		}
		if in.CashierTimingMs != nil {
			metricKey := "cashier_order_ms"
			if _, err := kpiEvents.Append(ctx, domain.KpiEvent{
				BranchID: in.BranchID, ActorID: &in.CashierActorID, EventType: "cashier_order_duration",
				MetricKey: &metricKey, EventValue: float64(*in.CashierTimingMs), DurationMs: in.CashierTimingMs,
				CreatedAt: saleDate,
			}); err != nil {
				return fmt.Errorf("op=sale.kpi.cashier_order_duration: %w", err)
			}
		}

		notifier := &AlertEvaluator{
			AlertRules:    postgres.NewAlertRuleRepo(tx),
			Notifications: postgres.NewNotificationRepo(tx),
		}
		if err := notifier.EvaluateHighSale(ctx, in.BranchID, total); err != nil {
			return err
		}
		for _, l := range lines {
			level, err := postgres.NewStockRepo(tx).Get(ctx, in.BranchID, l.productID)
			if err != nil {
				return fmt.Errorf("op=sale.low_stock_check: %w", err)
			}
			if err := notifier.EvaluateLowStock(ctx, in.BranchID, l.productID, level.Quantity); err != nil {
				return err
			}
		}

		out = SaleResult{Sale: sale, Items: items}
		lg.Info("sale completed", slog.String("receipt_number", receipt), slog.Float64("total_amount", total))
		saved, err := SaveJSONResponse(ctx, idem, in.CashierActorID, in.IdempotencyKey, out)
		if err != nil {
			return err
		}
		replay = saved
		return nil
	})
	if err != nil {
		return SaleResult{}, nil, err
	}
	return out, replay, nil
}

type saleLine struct {
	productID int64
	quantity  float64
	unitPrice float64
}

func (s *SaleService) resolveLines(ctx domain.Context, tx pgx.Tx, items []SaleItemInput) ([]saleLine, float64, error) {
	products := postgres.NewProductRepo(tx)
	lines := make([]saleLine, 0, len(items))
	var total float64
	for _, it := range items {
		p, err := products.Get(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, 0, fmt.Errorf("op=sale.resolve_product: %w", domain.ErrProductUnavailable)
			}
			return nil, 0, fmt.Errorf("op=sale.resolve_product: %w", err)
		}
		if !p.IsActive {
			return nil, 0, fmt.Errorf("op=sale.resolve_product: %w", domain.ErrProductUnavailable)
		}
		lines = append(lines, saleLine{productID: it.ProductID, quantity: it.Quantity, unitPrice: p.Price})
		total += it.Quantity * p.Price
	}
	return lines, roundCurrency(total), nil
}

// createWithReceiptRetry allocates a per-day sequence and inserts the sale,
// retrying on a receipt_number unique-constraint collision up to
// maxReceiptRetries times (spec.md §4.4 step 4).
func createWithReceiptRetry(ctx domain.Context, sales *postgres.SaleRepo, in CreateSaleInput, items []domain.SaleItem, saleDate time.Time, total float64) (string, int64, error) {
	for attempt := 0; attempt < maxReceiptRetries; attempt++ {
		seq, err := sales.NextSequenceForDay(ctx, saleDate)
		if err != nil {
			return "", 0, fmt.Errorf("op=sale.next_sequence: %w", err)
		}
		receipt := fmt.Sprintf("R%s%06d", saleDate.Format("20060102"), seq)

		id, err := sales.Create(ctx, domain.Sale{
			BranchID: in.BranchID, CashierActorID: in.CashierActorID, TotalAmount: total,
			PaymentMethod: in.PaymentMethod, IsOffline: in.IsOffline, SaleDate: saleDate, ReceiptNumber: receipt,
		}, items)
		if err == nil {
			return receipt, id, nil
		}
		if isUniqueViolation(err) {
			continue
		}
		return "", 0, fmt.Errorf("op=sale.create: %w", err)
	}
	return "", 0, fmt.Errorf("op=sale.create: %w", domain.ErrReceiptCollision)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func roundCurrency(v float64) float64 {
	return math.Round(v*100) / 100
}
