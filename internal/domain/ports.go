package domain

import "time"

// BranchRepository manages Branch rows.
//
//go:generate mockery --name=BranchRepository --with-expecter --filename=branch_repository_mock.go
type BranchRepository interface {
	Create(ctx Context, b Branch) (int64, error)
	Get(ctx Context, id int64) (Branch, error)
	List(ctx Context, activeOnly bool) ([]Branch, error)
	SetActive(ctx Context, id int64, active bool) error
}

// ActorRepository manages Actor rows and the actor_branches mapping.
//
//go:generate mockery --name=ActorRepository --with-expecter --filename=actor_repository_mock.go
type ActorRepository interface {
	Create(ctx Context, a Actor) (int64, error)
	Get(ctx Context, id int64) (Actor, error)
	FindByUsername(ctx Context, username string) (Actor, error)
	FindByEmail(ctx Context, email string) (Actor, error)
	Update(ctx Context, a Actor) error
	SetActive(ctx Context, id int64, active bool) error
	SetBranches(ctx Context, actorID int64, branchIDs []int64) error
	Branches(ctx Context, actorID int64) ([]int64, error)
}

// StaffProfileRepository manages StaffProfile rows.
//
//go:generate mockery --name=StaffProfileRepository --with-expecter --filename=staff_profile_repository_mock.go
type StaffProfileRepository interface {
	Create(ctx Context, p StaffProfile) (int64, error)
	Get(ctx Context, id int64) (StaffProfile, error)
	Update(ctx Context, p StaffProfile) error
	LinkActor(ctx Context, profileID, actorID int64) error
	Unlink(ctx Context, profileID int64) error
	SetActive(ctx Context, id int64, active bool) error
}

// CategoryRepository manages Category rows.
type CategoryRepository interface {
	Create(ctx Context, c Category) (int64, error)
	Get(ctx Context, id int64) (Category, error)
	List(ctx Context) ([]Category, error)
}

// ProductRepository manages Product rows.
//
//go:generate mockery --name=ProductRepository --with-expecter --filename=product_repository_mock.go
type ProductRepository interface {
	Create(ctx Context, p Product) (int64, error)
	Get(ctx Context, id int64) (Product, error)
	List(ctx Context, activeOnly bool) ([]Product, error)
	Update(ctx Context, p Product) error
	SetActive(ctx Context, id int64, active bool) error
}

// StockRepository manages StockLevel rows. Mutation happens only through
// the ledger package, never through direct writes from usecases.
//
//go:generate mockery --name=StockRepository --with-expecter --filename=stock_repository_mock.go
type StockRepository interface {
	// Get returns the current stock level, creating an implicit zero row if absent.
	Get(ctx Context, branchID, productID int64) (StockLevel, error)
	// GetForUpdate locks and returns current stock levels for the given pairs,
	// which must already be sorted by (branch_id, product_id).
	GetForUpdate(ctx Context, pairs []StockKey) (map[StockKey]StockLevel, error)
	// Upsert writes the new absolute quantity and source for a pair.
	Upsert(ctx Context, level StockLevel) error
	ListByBranch(ctx Context, branchID int64) ([]StockLevel, error)
}

// StockKey identifies a (branch, product) stock row.
type StockKey struct {
	BranchID  int64
	ProductID int64
}

// MovementRepository manages the append-only InventoryMovement ledger.
//
//go:generate mockery --name=MovementRepository --with-expecter --filename=movement_repository_mock.go
type MovementRepository interface {
	Append(ctx Context, m InventoryMovement) (int64, error)
	ListByReference(ctx Context, referenceType string, referenceID int64) ([]InventoryMovement, error)
	SumByProductSource(ctx Context, batchID int64) (map[StockSourceKey]float64, error)
	ListOlderThan(ctx Context, branchID int64, cutoff time.Time) ([]InventoryMovement, error)
	ArchiveOlderThan(ctx Context, branchID int64, cutoff time.Time) (int64, error)
}

// StockSourceKey identifies a (product, source) pair within one batch.
type StockSourceKey struct {
	ProductID int64
	Source    StockSource
}

// BatchRepository manages Batch and BatchItem rows.
//
//go:generate mockery --name=BatchRepository --with-expecter --filename=batch_repository_mock.go
type BatchRepository interface {
	Create(ctx Context, b Batch, items []BatchItem) (int64, error)
	Get(ctx Context, id int64) (Batch, []BatchItem, error)
	UpdateStatus(ctx Context, id int64, status BatchStatus) error
	ReplaceItems(ctx Context, batchID int64, items []BatchItem) error
	MarkSynced(ctx Context, id, syncedByActorID int64, syncedAt time.Time) error
	ListOlderThan(ctx Context, branchID int64, cutoff time.Time) ([]Batch, error)
	ArchiveOlderThan(ctx Context, branchID int64, cutoff time.Time) (int64, error)
}

// SaleRepository manages Sale and SaleItem rows.
//
//go:generate mockery --name=SaleRepository --with-expecter --filename=sale_repository_mock.go
type SaleRepository interface {
	Create(ctx Context, s Sale, items []SaleItem) (int64, error)
	Get(ctx Context, id int64) (Sale, []SaleItem, error)
	NextSequenceForDay(ctx Context, day time.Time) (int, error)
	ListOlderThan(ctx Context, branchID int64, cutoff time.Time) ([]Sale, error)
	ArchiveOlderThan(ctx Context, branchID int64, cutoff time.Time) (int64, error)
}

// ExpenseRepository manages Expense rows.
type ExpenseRepository interface {
	Create(ctx Context, e Expense) (int64, error)
	List(ctx Context, branchID int64) ([]Expense, error)
	ArchiveOlderThan(ctx Context, branchID int64, cutoff time.Time) (int64, error)
}

// StaffPaymentRepository manages StaffPayment rows.
type StaffPaymentRepository interface {
	Create(ctx Context, p StaffPayment) (int64, error)
	List(ctx Context, branchID int64) ([]StaffPayment, error)
	ArchiveOlderThan(ctx Context, branchID int64, cutoff time.Time) (int64, error)
}

// IdempotencyRepository manages the idempotency admission table.
//
//go:generate mockery --name=IdempotencyRepository --with-expecter --filename=idempotency_repository_mock.go
type IdempotencyRepository interface {
	// Admit attempts INSERT ... ON CONFLICT DO NOTHING RETURNING id. ok is
	// true iff this call won admission (the record did not already exist).
	Admit(ctx Context, actorID int64, key, endpoint string) (ok bool, err error)
	// Get fetches the stored record for (actorID, key), regardless of endpoint.
	Get(ctx Context, actorID int64, key string) (IdempotencyRecord, error)
	// SaveResponse persists the response payload for an already-admitted key.
	SaveResponse(ctx Context, actorID int64, key string, payload []byte) error
}

// KpiEventRepository manages KpiEvent rows.
//
//go:generate mockery --name=KpiEventRepository --with-expecter --filename=kpi_event_repository_mock.go
type KpiEventRepository interface {
	Append(ctx Context, e KpiEvent) (int64, error)
}

// AlertRuleRepository manages AlertRule rows.
type AlertRuleRepository interface {
	ListByEventType(ctx Context, branchID int64, eventType string) ([]AlertRule, error)
}

// NotificationRepository manages Notification rows.
type NotificationRepository interface {
	Create(ctx Context, n Notification) (int64, error)
	ListAdminsAndManagers(ctx Context, branchID int64) ([]Actor, error)
}

// ArchiveSettingsRepository manages ArchiveSettings rows.
type ArchiveSettingsRepository interface {
	Get(ctx Context, branchID int64) (ArchiveSettings, error)
	Upsert(ctx Context, s ArchiveSettings) error
	ListEnabled(ctx Context) ([]ArchiveSettings, error)
	ListAll(ctx Context) ([]ArchiveSettings, error)
}

// ArchiveRunRepository manages ArchiveRun rows.
type ArchiveRunRepository interface {
	Create(ctx Context, r ArchiveRun) (int64, error)
}

// EventPublisher publishes domain/KPI events to the out-of-band event bus
// (e.g. Kafka/Redpanda). Publish failures are logged and metriced but never
// block or roll back the owning transaction.
type EventPublisher interface {
	Publish(ctx Context, topic string, key string, payload []byte) error
	Close() error
}

// RateLimiter gates mutating requests per actor/IP.
type RateLimiter interface {
	Allow(ctx Context, key string, cost int) (allowed bool, retryAfter time.Duration, err error)
}
