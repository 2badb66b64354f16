package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bakeryhq/ops-backend/internal/adapter/observability"
	"github.com/bakeryhq/ops-backend/internal/config"
	"github.com/bakeryhq/ops-backend/internal/domain"
	"github.com/bakeryhq/ops-backend/internal/usecase"
)

// Server holds the usecase services the HTTP layer dispatches to. It is a
// thin adapter: every handler validates its own inputs, reads actor/branch
// context off the request, and delegates the actual work to a usecase.
type Server struct {
	Cfg config.Config

	Sales      *usecase.SaleService
	Batches    *usecase.BatchService
	Inventory  *usecase.InventoryService
	Archive    *usecase.ArchiveService
	Staff      *usecase.StaffService
	LedgerLog  *usecase.LedgerEntryService
	AlertRules domain.AlertRuleRepository

	Events  domain.EventPublisher
	Limiter domain.RateLimiter

	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// publishEvent fires a best-effort domain event after a mutation has
// committed; publish failures are logged, never surfaced to the caller.
func (s *Server) publishEvent(r *http.Request, topic, key string, payload interface{}) {
	if s.Events == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		LoggerFrom(r).Error("event marshal failed", "topic", topic, "error", err)
		return
	}
	if err := s.Events.Publish(r.Context(), topic, key, b); err != nil {
		LoggerFrom(r).Warn("event publish failed", "topic", topic, "error", err)
		observability.RecordEventPublishFailure(topic)
	}
}

// --- Sales -----------------------------------------------------------------

type saleItemRequest struct {
	ProductID int64   `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

type createSaleRequest struct {
	Items           []saleItemRequest    `json:"items"`
	PaymentMethod   domain.PaymentMethod `json:"payment_method"`
	CashierTimingMs *int64               `json:"cashier_timing_ms,omitempty"`
}

// CreateSaleHandler handles POST /sales (spec.md §4.4).
func (s *Server) CreateSaleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		key := idempotencyKeyFromRequest(r)
		if err := validateIdempotencyKey(key); err != nil {
			writeError(w, r, err, nil)
			return
		}

		var req createSaleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, domain.ErrInvalidArgument, err.Error())
			return
		}
		items := make([]usecase.SaleItemInput, len(req.Items))
		for i, it := range req.Items {
			items[i] = usecase.SaleItemInput{ProductID: it.ProductID, Quantity: it.Quantity}
		}
		isOffline, _ := queuedReplayAttribution(r)

		out, replay, err := s.Sales.Create(r.Context(), usecase.CreateSaleInput{
			BranchID:        actor.BranchID,
			CashierActorID:  actor.ActorID,
			Items:           items,
			PaymentMethod:   req.PaymentMethod,
			CashierTimingMs: req.CashierTimingMs,
			IsOffline:       isOffline,
			IdempotencyKey:  key,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		branchLabel := strconv.FormatInt(actor.BranchID, 10)
		if replay != nil {
			observability.RecordIdempotencyReplay("/sales")
		} else {
			observability.RecordSaleCompleted(branchLabel, string(out.Sale.PaymentMethod), out.Sale.TotalAmount)
		}
		s.publishEvent(r, "sale_completed", out.Sale.ReceiptNumber, out.Sale)
		writeReplay(w, http.StatusCreated, replay)
	}
}

// --- Batches -----------------------------------------------------------------

type batchItemRequest struct {
	ProductID int64              `json:"product_id"`
	Quantity  float64            `json:"quantity"`
	Source    domain.StockSource `json:"source"`
}

type createBatchRequest struct {
	Items []batchItemRequest `json:"items"`
	Notes string             `json:"notes"`
}

func toBatchItems(items []batchItemRequest) []usecase.BatchItemInput {
	out := make([]usecase.BatchItemInput, len(items))
	for i, it := range items {
		out[i] = usecase.BatchItemInput{ProductID: it.ProductID, Quantity: it.Quantity, Source: it.Source}
	}
	return out
}

// CreateBatchHandler handles POST /inventory/batches (spec.md §4.3).
func (s *Server) CreateBatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		key := idempotencyKeyFromRequest(r)
		if err := validateIdempotencyKey(key); err != nil {
			writeError(w, r, err, nil)
			return
		}

		var req createBatchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, domain.ErrInvalidArgument, err.Error())
			return
		}
		isOffline, originalActorID := queuedReplayAttribution(r)

		out, replay, err := s.Batches.Create(r.Context(), usecase.CreateBatchInput{
			BranchID:        actor.BranchID,
			ActorID:         actor.ActorID,
			Role:            actor.Role,
			Items:           toBatchItems(req.Items),
			Notes:           req.Notes,
			IsOffline:       isOffline,
			OriginalActorID: originalActorID,
			IdempotencyKey:  key,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if replay != nil {
			observability.RecordIdempotencyReplay("/inventory/batches")
		} else {
			observability.RecordBatchTransition(strconv.FormatInt(actor.BranchID, 10), "create")
		}
		writeReplay(w, http.StatusCreated, replayOrJSON(replay, out))
	}
}

// EditBatchHandler handles PUT /inventory/batches/:id (spec.md §4.3).
func (s *Server) EditBatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		key := idempotencyKeyFromRequest(r)
		if err := validateIdempotencyKey(key); err != nil {
			writeError(w, r, err, nil)
			return
		}
		batchID, err := pathInt64(r, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}

		var req createBatchRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, domain.ErrInvalidArgument, err.Error())
			return
		}

		out, replay, err := s.Batches.Edit(r.Context(), usecase.EditBatchInput{
			BatchID:        batchID,
			ActorID:        actor.ActorID,
			Role:           actor.Role,
			Items:          toBatchItems(req.Items),
			IdempotencyKey: key,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if replay != nil {
			observability.RecordIdempotencyReplay("/inventory/batches/{id}")
		} else {
			observability.RecordBatchTransition(strconv.FormatInt(actor.BranchID, 10), "edit")
		}
		writeReplay(w, http.StatusOK, replayOrJSON(replay, out))
	}
}

// VoidBatchHandler handles POST /inventory/batches/:id/void (spec.md §4.3).
func (s *Server) VoidBatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		key := idempotencyKeyFromRequest(r)
		if err := validateIdempotencyKey(key); err != nil {
			writeError(w, r, err, nil)
			return
		}
		batchID, err := pathInt64(r, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}

		out, replay, err := s.Batches.Void(r.Context(), usecase.VoidBatchInput{
			BatchID: batchID, ActorID: actor.ActorID, Role: actor.Role, IdempotencyKey: key,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if replay != nil {
			observability.RecordIdempotencyReplay("/inventory/batches/{id}/void")
		} else {
			observability.RecordBatchTransition(strconv.FormatInt(actor.BranchID, 10), "void")
		}
		s.publishEvent(r, "batch_voided", chi.URLParam(r, "id"), out.Batch)
		writeReplay(w, http.StatusOK, replayOrJSON(replay, out))
	}
}

// --- Inventory ---------------------------------------------------------------

// ListInventoryHandler handles GET /inventory.
func (s *Server) ListInventoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		branchID, err := queryBranchID(r, actor)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		levels, err := s.Inventory.List(r.Context(), branchID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, levels)
	}
}

type adjustStockRequest struct {
	Source      domain.StockSource `json:"source"`
	NewQuantity float64            `json:"new_quantity"`
	Reason      string             `json:"reason"`
}

// AdjustInventoryHandler handles PUT /inventory/:product_id.
func (s *Server) AdjustInventoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		key := idempotencyKeyFromRequest(r)
		if err := validateIdempotencyKey(key); err != nil {
			writeError(w, r, err, nil)
			return
		}
		productID, err := pathInt64(r, chi.URLParam(r, "product_id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		var req adjustStockRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, domain.ErrInvalidArgument, err.Error())
			return
		}

		out, replay, err := s.Inventory.Adjust(r.Context(), usecase.AdjustStockInput{
			BranchID: actor.BranchID, ProductID: productID, ActorID: actor.ActorID,
			Source: req.Source, NewQuantity: req.NewQuantity, Reason: req.Reason, IdempotencyKey: key,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if replay != nil {
			observability.RecordIdempotencyReplay("/inventory/{product_id}")
		} else {
			observability.RecordInventoryMovement(strconv.FormatInt(actor.BranchID, 10), "adjust")
		}
		writeReplay(w, http.StatusOK, replayOrJSON(replay, out))
	}
}

// RemoveInventoryHandler handles DELETE /inventory/:product_id.
func (s *Server) RemoveInventoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		key := idempotencyKeyFromRequest(r)
		if err := validateIdempotencyKey(key); err != nil {
			writeError(w, r, err, nil)
			return
		}
		productID, err := pathInt64(r, chi.URLParam(r, "product_id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}

		out, replay, err := s.Inventory.Remove(r.Context(), usecase.AdjustStockInput{
			BranchID: actor.BranchID, ProductID: productID, ActorID: actor.ActorID, IdempotencyKey: key,
		})
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if replay != nil {
			observability.RecordIdempotencyReplay("/inventory/{product_id}:remove")
		} else {
			observability.RecordInventoryMovement(strconv.FormatInt(actor.BranchID, 10), "remove")
		}
		writeReplay(w, http.StatusOK, replayOrJSON(replay, out))
	}
}

// --- Ledger entries: expenses & staff payments --------------------------------

// CreateExpenseHandler handles POST /expenses.
func (s *Server) CreateExpenseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		var e domain.Expense
		if err := decodeJSON(r, &e); err != nil {
			writeError(w, r, domain.ErrInvalidArgument, err.Error())
			return
		}
		e.BranchID = actor.BranchID
		e.CreatedByActorID = actor.ActorID
		id, err := s.LedgerLog.RecordExpense(r.Context(), e)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		e.ID = id
		writeJSON(w, http.StatusCreated, e)
	}
}

// ListExpensesHandler handles GET /expenses.
func (s *Server) ListExpensesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		branchID, err := queryBranchID(r, actor)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		es, err := s.LedgerLog.ListExpenses(r.Context(), branchID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, es)
	}
}

// CreateStaffPaymentHandler handles POST /payments.
func (s *Server) CreateStaffPaymentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		var p domain.StaffPayment
		if err := decodeJSON(r, &p); err != nil {
			writeError(w, r, domain.ErrInvalidArgument, err.Error())
			return
		}
		p.BranchID = actor.BranchID
		id, err := s.LedgerLog.RecordStaffPayment(r.Context(), p)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		p.ID = id
		writeJSON(w, http.StatusCreated, p)
	}
}

// ListStaffPaymentsHandler handles GET /payments.
func (s *Server) ListStaffPaymentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		branchID, err := queryBranchID(r, actor)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		ps, err := s.LedgerLog.ListStaffPayments(r.Context(), branchID)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, ps)
	}
}

// --- Notification rules (read-only) -------------------------------------------

// ListAlertRulesHandler handles GET /notifications/rules?event_type=.
func (s *Server) ListAlertRulesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		branchID, err := queryBranchID(r, actor)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		eventType := r.URL.Query().Get("event_type")
		if eventType == "" {
			writeError(w, r, domain.ErrInvalidArgument, "event_type is required")
			return
		}
		rules, err := s.AlertRules.ListByEventType(r.Context(), branchID, eventType)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, rules)
	}
}

// --- Staff/account lifecycle ---------------------------------------------------

// CreateStaffAccountHandler handles POST /admin/users (spec.md §4.8).
func (s *Server) CreateStaffAccountHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req usecase.CreateAccountInput
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, domain.ErrInvalidArgument, err.Error())
			return
		}
		actorOut, err := s.Staff.CreateAccountForProfile(r.Context(), req)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, actorOut)
	}
}

type archiveUserStatusRequest struct {
	LinkedProfileID *int64 `json:"linked_profile_id,omitempty"`
}

// ArchiveStaffAccountHandler handles PATCH /admin/users/:id/status.
func (s *Server) ArchiveStaffAccountHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, err := pathInt64(r, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		var req archiveUserStatusRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, domain.ErrInvalidArgument, err.Error())
			return
		}
		if err := s.Staff.ArchiveAccount(r.Context(), actorID, req.LinkedProfileID); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- Archival engine -----------------------------------------------------------

type runArchiveRequest struct {
	ConfirmationPhrase string `json:"confirmation_phrase"`
}

// RunArchiveHandler handles POST /archive/run (spec.md §4.6).
func (s *Server) RunArchiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFromContext(r.Context())
		if actor.Role != domain.RoleAdmin {
			writeError(w, r, domain.ErrInvalidArgument, "only an admin may trigger a manual archive run")
			return
		}
		var req runArchiveRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, domain.ErrInvalidArgument, err.Error())
			return
		}
		out, err := s.Archive.RunManual(r.Context(), actor.BranchID, actor.ActorID, req.ConfirmationPhrase)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// --- Health/readiness ------------------------------------------------------------

// HealthzHandler reports process liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler reports whether the database and Redis dependencies are
// reachable, returning 503 with per-dependency detail if not.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]func(context.Context) error{
			"db":    s.DBCheck,
			"redis": s.RedisCheck,
		}
		details := map[string]string{}
		ready := true
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check(r.Context()); err != nil {
				ready = false
				details[name] = err.Error()
			} else {
				details[name] = "ok"
			}
		}
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]interface{}{"ready": ready, "checks": details})
	}
}

func writeReplay(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// replayOrJSON returns replay verbatim when the usecase supplied one and
// marshals v otherwise. The keyed usecases return the payload saved against
// the idempotency key on a first call as well as on a replay, so replay is
// nil only when the usecase saved no payload.
func replayOrJSON(replay []byte, v interface{}) []byte {
	if replay != nil {
		return replay
	}
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{}`)
	}
	return b
}
