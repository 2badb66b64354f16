package postgres

import (
	"context"
	"fmt"
)

// schemaStatements holds one CREATE TABLE IF NOT EXISTS per hot table and
// its archive mirror. Mirrors the teacher's lack of a separate migration
// framework (no golang-migrate/goose dependency) by applying idempotent DDL
// at process start instead, consistent with what the pack otherwise uses.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS branches (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS actors (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		branch_id BIGINT REFERENCES branches(id),
		is_active BOOLEAN NOT NULL DEFAULT true,
		hire_date TIMESTAMPTZ NOT NULL DEFAULT now(),
		termination_date TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS actor_branches (
		actor_id BIGINT NOT NULL REFERENCES actors(id) ON DELETE CASCADE,
		branch_id BIGINT NOT NULL REFERENCES branches(id) ON DELETE CASCADE,
		PRIMARY KEY (actor_id, branch_id)
	)`,
	`CREATE TABLE IF NOT EXISTS staff_profiles (
		id BIGSERIAL PRIMARY KEY,
		full_name TEXT NOT NULL,
		phone_number TEXT NOT NULL,
		national_id TEXT,
		age INT,
		monthly_salary NUMERIC NOT NULL DEFAULT 0,
		role_preference TEXT NOT NULL,
		job_title TEXT,
		branch_id BIGINT NOT NULL REFERENCES branches(id),
		linked_actor_id BIGINT REFERENCES actors(id),
		is_active BOOLEAN NOT NULL DEFAULT true,
		hire_date TIMESTAMPTZ NOT NULL DEFAULT now(),
		termination_date TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		category_id BIGINT NOT NULL REFERENCES categories(id),
		price NUMERIC NOT NULL,
		cost NUMERIC,
		unit TEXT NOT NULL DEFAULT 'unit',
		is_active BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS stock_levels (
		branch_id BIGINT NOT NULL REFERENCES branches(id),
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity NUMERIC NOT NULL DEFAULT 0,
		source TEXT NOT NULL DEFAULT '',
		last_updated TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (branch_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_movements (
		id BIGSERIAL PRIMARY KEY,
		branch_id BIGINT NOT NULL REFERENCES branches(id),
		product_id BIGINT NOT NULL REFERENCES products(id),
		movement_type TEXT NOT NULL,
		quantity_change NUMERIC NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		reference_type TEXT NOT NULL DEFAULT '',
		reference_id BIGINT,
		actor_id BIGINT NOT NULL REFERENCES actors(id),
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_movements_branch_created ON inventory_movements (branch_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS batches (
		id BIGSERIAL PRIMARY KEY,
		branch_id BIGINT NOT NULL REFERENCES branches(id),
		creator_actor_id BIGINT NOT NULL REFERENCES actors(id),
		batch_date TIMESTAMPTZ NOT NULL DEFAULT now(),
		status TEXT NOT NULL DEFAULT 'sent',
		notes TEXT NOT NULL DEFAULT '',
		is_offline BOOLEAN NOT NULL DEFAULT false,
		original_actor_id BIGINT REFERENCES actors(id),
		synced_by_actor_id BIGINT REFERENCES actors(id),
		synced_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS batch_items (
		id BIGSERIAL PRIMARY KEY,
		batch_id BIGINT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity NUMERIC NOT NULL,
		source TEXT NOT NULL,
		UNIQUE (batch_id, product_id, source)
	)`,
	`CREATE TABLE IF NOT EXISTS receipt_sequences (
		day_key TEXT PRIMARY KEY,
		last_seq INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id BIGSERIAL PRIMARY KEY,
		branch_id BIGINT NOT NULL REFERENCES branches(id),
		cashier_actor_id BIGINT NOT NULL REFERENCES actors(id),
		total_amount NUMERIC NOT NULL,
		payment_method TEXT NOT NULL,
		is_offline BOOLEAN NOT NULL DEFAULT false,
		sale_date TIMESTAMPTZ NOT NULL DEFAULT now(),
		receipt_number TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS sale_items (
		id BIGSERIAL PRIMARY KEY,
		sale_id BIGINT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity NUMERIC NOT NULL,
		unit_price NUMERIC NOT NULL,
		subtotal NUMERIC NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id BIGSERIAL PRIMARY KEY,
		branch_id BIGINT NOT NULL REFERENCES branches(id),
		amount NUMERIC NOT NULL,
		date TIMESTAMPTZ NOT NULL DEFAULT now(),
		category TEXT NOT NULL DEFAULT '',
		created_by_actor_id BIGINT NOT NULL REFERENCES actors(id)
	)`,
	`CREATE TABLE IF NOT EXISTS staff_payments (
		id BIGSERIAL PRIMARY KEY,
		branch_id BIGINT NOT NULL REFERENCES branches(id),
		amount NUMERIC NOT NULL,
		date TIMESTAMPTZ NOT NULL DEFAULT now(),
		payment_type TEXT NOT NULL DEFAULT '',
		created_by_actor_id BIGINT NOT NULL REFERENCES actors(id)
	)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		actor_id BIGINT NOT NULL,
		key TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		response_payload BYTEA,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (actor_id, key)
	)`,
	`CREATE TABLE IF NOT EXISTS kpi_events (
		id BIGSERIAL PRIMARY KEY,
		branch_id BIGINT NOT NULL REFERENCES branches(id),
		actor_id BIGINT REFERENCES actors(id),
		event_type TEXT NOT NULL,
		metric_key TEXT,
		event_value NUMERIC NOT NULL DEFAULT 0,
		duration_ms BIGINT,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS alert_rules (
		id BIGSERIAL PRIMARY KEY,
		branch_id BIGINT REFERENCES branches(id),
		event_type TEXT NOT NULL,
		threshold NUMERIC NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		recipient_actor_id BIGINT NOT NULL REFERENCES actors(id),
		branch_id BIGINT NOT NULL REFERENCES branches(id),
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		notification_type TEXT NOT NULL DEFAULT '',
		is_read BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS archive_settings (
		branch_id BIGINT PRIMARY KEY REFERENCES branches(id),
		enabled BOOLEAN NOT NULL DEFAULT false,
		retention_months INT NOT NULL DEFAULT 6,
		cold_storage_after_months INT NOT NULL DEFAULT 24,
		last_run_at TIMESTAMPTZ,
		last_reminder_at TIMESTAMPTZ,
		confirmation_phrase TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS archive_runs (
		id BIGSERIAL PRIMARY KEY,
		branch_id BIGINT NOT NULL REFERENCES branches(id),
		triggered_by_actor_id BIGINT REFERENCES actors(id),
		run_type TEXT NOT NULL,
		status TEXT NOT NULL,
		cutoff_at TIMESTAMPTZ NOT NULL,
		details JSONB,
		error_message TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// Archive mirror tables: same shape as their hot counterparts, populated
	// only by the archival engine (internal/usecase/archive.go).
	`CREATE TABLE IF NOT EXISTS batches_archive (LIKE batches INCLUDING ALL)`,
	`CREATE TABLE IF NOT EXISTS batch_items_archive (LIKE batch_items INCLUDING ALL)`,
	`CREATE TABLE IF NOT EXISTS sales_archive (LIKE sales INCLUDING ALL)`,
	`CREATE TABLE IF NOT EXISTS sale_items_archive (LIKE sale_items INCLUDING ALL)`,
	`CREATE TABLE IF NOT EXISTS inventory_movements_archive (LIKE inventory_movements INCLUDING ALL)`,
	`CREATE TABLE IF NOT EXISTS expenses_archive (LIKE expenses INCLUDING ALL)`,
	`CREATE TABLE IF NOT EXISTS staff_payments_archive (LIKE staff_payments INCLUDING ALL)`,
}

// EnsureSchema applies every CREATE TABLE IF NOT EXISTS statement in order.
// Safe to call on every process start; later statements depend on earlier
// tables via foreign keys so ordering matters.
func EnsureSchema(ctx context.Context, pool Pool) error {
	for i, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("op=schema.ensure statement=%d: %w", i, err)
		}
	}
	return nil
}
