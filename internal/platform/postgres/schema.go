package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS partners (
		id BIGSERIAL PRIMARY KEY,
		kind TEXT NOT NULL,
		external_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		address TEXT,
		location_lat DOUBLE PRECISION,
		location_lng DOUBLE PRECISION,
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (kind, external_id)
	)`,

	`CREATE TABLE IF NOT EXISTS couriers (
		id BIGSERIAL PRIMARY KEY,
		external_courier_id BIGINT NOT NULL UNIQUE,
		partner_id BIGINT REFERENCES partners(id),
		name TEXT NOT NULL,
		deliveries_today INTEGER NOT NULL DEFAULT 0,
		deliveries_this_hour INTEGER NOT NULL DEFAULT 0,
		last_delivery_at TIMESTAMPTZ,
		high_volume_active BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS fee_calculations (
		id BIGSERIAL PRIMARY KEY,
		courier_id BIGINT NOT NULL REFERENCES couriers(id),
		external_order_id BIGINT,
		distance_km DOUBLE PRECISION NOT NULL,
		delivery_fee DOUBLE PRECISION NOT NULL,
		company_share DOUBLE PRECISION NOT NULL,
		courier_share DOUBLE PRECISION NOT NULL,
		high_volume_bonus BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fee_calculations_courier ON fee_calculations(courier_id)`,

	`CREATE TABLE IF NOT EXISTS settlements (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		partner_id BIGINT NOT NULL REFERENCES partners(id),
		partner_external_id BIGINT NOT NULL,
		partner_name TEXT NOT NULL,
		partner_kind TEXT NOT NULL,
		settlement_date DATE NOT NULL,
		week_start DATE NOT NULL,
		week_end DATE NOT NULL,
		total_amount_due DOUBLE PRECISION NOT NULL,
		total_orders INTEGER NOT NULL,
		regular_deliveries INTEGER NOT NULL DEFAULT 0,
		high_volume_deliveries INTEGER NOT NULL DEFAULT 0,
		total_order_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_delivery_fees DOUBLE PRECISION NOT NULL DEFAULT 0,
		bill_ref TEXT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_settlements_partner_week
		ON settlements(partner_kind, partner_id, week_start)`,
	`CREATE INDEX IF NOT EXISTS idx_settlements_week ON settlements(week_start)`,

	`CREATE TABLE IF NOT EXISTS settlement_lines (
		id BIGSERIAL PRIMARY KEY,
		settlement_id BIGINT NOT NULL REFERENCES settlements(id) ON DELETE CASCADE,
		external_order_id BIGINT NOT NULL,
		order_date DATE NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		high_volume_bonus BOOLEAN NOT NULL DEFAULT FALSE,
		order_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		delivery_fee DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_settlement_lines_settlement ON settlement_lines(settlement_id)`,

	`CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		actor TEXT NOT NULL,
		role TEXT NOT NULL,
		action TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		metadata JSONB,
		payload_digest TEXT,
		ip TEXT,
		user_agent TEXT,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

// InitSchema creates the tables this service owns when they are missing.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: nil db")
	}
	for i, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: statement %d: %w", i, err)
		}
	}
	return nil
}
