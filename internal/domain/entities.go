// Package domain defines core entities, ports, and domain-specific errors
// for the bakery operations backend.
package domain

import (
	"context"
	"time"
)

// Context is a type alias to stdlib context.Context for convenience across layers.
type Context = context.Context

// Role enumerates the actor roles in the system.
type Role string

// Role values.
const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleCashier Role = "cashier"
)

// Branch is the root aggregate for all branch-scoped data.
type Branch struct {
	ID        int64
	Name      string
	Address   string
	Phone     string
	IsActive  bool
	CreatedAt time.Time
}

// Actor is an authenticated principal.
type Actor struct {
	ID              int64
	Username        string
	Email           string
	PasswordHash    string
	Role            Role
	BranchID        *int64
	IsActive        bool
	HireDate        time.Time
	TerminationDate *time.Time
}

// StaffRolePreference enumerates the role a staff profile is being
// tracked for, independent of whether it has a login Actor yet.
type StaffRolePreference string

// StaffRolePreference values.
const (
	StaffRoleCashier StaffRolePreference = "cashier"
	StaffRoleManager StaffRolePreference = "manager"
	StaffRoleOther   StaffRolePreference = "other"
)

// StaffProfile is the HR record for a person, optionally linked to a login Actor.
type StaffProfile struct {
	ID              int64
	FullName        string
	PhoneNumber     string
	NationalID      *string
	Age             *int
	MonthlySalary   float64
	RolePreference  StaffRolePreference
	JobTitle        *string
	BranchID        int64
	LinkedActorID   *int64
	IsActive        bool
	HireDate        time.Time
	TerminationDate *time.Time
}

// Category groups products.
type Category struct {
	ID   int64
	Name string
}

// Product is a catalog item shared across all branches.
type Product struct {
	ID         int64
	Name       string
	CategoryID int64
	Price      float64
	Cost       *float64
	Unit       string
	IsActive   bool
}

// StockSource enumerates how stock at a branch was produced.
type StockSource string

// StockSource values.
const (
	SourceBaked     StockSource = "baked"
	SourcePurchased StockSource = "purchased"
)

// StockLevel is the cached, derived quantity on hand for a (branch, product) pair.
// It is never mutated directly; it is always the side effect of a ledger movement.
type StockLevel struct {
	BranchID    int64
	ProductID   int64
	Quantity    float64
	Source      StockSource
	LastUpdated time.Time
}

// MovementType enumerates the kinds of inventory ledger entries.
type MovementType string

// MovementType values.
const (
	MovementBatchIn          MovementType = "batch_in"
	MovementSaleOut          MovementType = "sale_out"
	MovementVoidOut          MovementType = "void_out"
	MovementManualAdjustment MovementType = "manual_adjustment"
)

// InventoryMovement is one append-only row in the inventory ledger.
type InventoryMovement struct {
	ID             int64
	BranchID       int64
	ProductID      int64
	MovementType   MovementType
	QuantityChange float64
	Source         StockSource
	ReferenceType  string
	ReferenceID    *int64
	ActorID        int64
	Metadata       map[string]any
	CreatedAt      time.Time
}

// BatchStatus enumerates the lifecycle states of a production batch.
type BatchStatus string

// BatchStatus values.
const (
	BatchPending  BatchStatus = "pending"
	BatchSent     BatchStatus = "sent"
	BatchReceived BatchStatus = "received"
	BatchEdited   BatchStatus = "edited"
	BatchVoided   BatchStatus = "voided"
)

// Batch is a production event that increases stock at a branch.
type Batch struct {
	ID              int64
	BranchID        int64
	CreatorActorID  int64
	BatchDate       time.Time
	Status          BatchStatus
	Notes           string
	IsOffline       bool
	OriginalActorID *int64
	SyncedByActorID *int64
	SyncedAt        *time.Time
	CreatedAt       time.Time
}

// BatchItem is one product line of a Batch; unique per (batch_id, product_id, source).
type BatchItem struct {
	ID        int64
	BatchID   int64
	ProductID int64
	Quantity  float64
	Source    StockSource
}

// PaymentMethod enumerates how a sale was paid.
type PaymentMethod string

// PaymentMethod values.
const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentMobile PaymentMethod = "mobile"
)

// Sale is a committed point-of-sale transaction.
type Sale struct {
	ID             int64
	BranchID       int64
	CashierActorID int64
	TotalAmount    float64
	PaymentMethod  PaymentMethod
	IsOffline      bool
	SaleDate       time.Time
	ReceiptNumber  string
}

// SaleItem is one product line of a Sale.
type SaleItem struct {
	ID        int64
	SaleID    int64
	ProductID int64
	Quantity  float64
	UnitPrice float64
	Subtotal  float64
}

// Expense is a per-branch ledger row for an outgoing cost.
type Expense struct {
	ID               int64
	BranchID         int64
	Amount           float64
	Date             time.Time
	Category         string
	CreatedByActorID int64
}

// StaffPayment is a per-branch ledger row for a payroll payment.
type StaffPayment struct {
	ID               int64
	BranchID         int64
	Amount           float64
	Date             time.Time
	PaymentType      string
	CreatedByActorID int64
}

// IdempotencyRecord is a stored admission+response for a (actor, key) pair.
type IdempotencyRecord struct {
	ActorID         int64
	Key             string
	Endpoint        string
	ResponsePayload []byte
	CreatedAt       time.Time
}

// KpiEvent is a domain event recorded for dashboards and alert rule evaluation.
type KpiEvent struct {
	ID         int64
	BranchID   int64
	ActorID    *int64
	EventType  string
	MetricKey  *string
	EventValue float64
	DurationMs *int64
	Metadata   map[string]any
	CreatedAt  time.Time
}

// AlertRule triggers a Notification when a KpiEvent crosses a threshold.
type AlertRule struct {
	ID        int64
	BranchID  *int64
	EventType string
	Threshold float64
	Enabled   bool
}

// Notification is a message surfaced to an actor.
type Notification struct {
	ID               int64
	RecipientActorID int64
	BranchID         int64
	Title            string
	Message          string
	NotificationType string
	IsRead           bool
	CreatedAt        time.Time
}

// ArchiveSettings configures the per-branch archival policy.
type ArchiveSettings struct {
	BranchID               int64
	Enabled                bool
	RetentionMonths        int
	ColdStorageAfterMonths int
	LastRunAt              *time.Time
	LastReminderAt         *time.Time
	ConfirmationPhrase     string
}

// ArchiveRunType enumerates how an ArchiveRun was triggered.
type ArchiveRunType string

// ArchiveRunType values.
const (
	ArchiveRunScheduled ArchiveRunType = "scheduled"
	ArchiveRunManual    ArchiveRunType = "manual"
)

// ArchiveRunStatus enumerates the outcome of an ArchiveRun.
type ArchiveRunStatus string

// ArchiveRunStatus values.
const (
	ArchiveRunSuccess ArchiveRunStatus = "success"
	ArchiveRunFailed  ArchiveRunStatus = "failed"
	ArchiveRunSkipped ArchiveRunStatus = "skipped"
)

// ArchiveRun records one execution of the archival engine for one branch.
type ArchiveRun struct {
	ID                 int64
	BranchID           int64
	TriggeredByActorID *int64
	RunType            ArchiveRunType
	Status             ArchiveRunStatus
	CutoffAt           time.Time
	Details            map[string]any
	ErrorMessage       *string
	CreatedAt          time.Time
}
