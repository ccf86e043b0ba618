package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	courier "delivery-settlement/internal/courier/domain"
	platformpg "delivery-settlement/internal/platform/postgres"
)

const defaultCourierTable = "couriers"

// CourierRepository is a Postgres implementation for couriers.
type CourierRepository struct {
	db    *sql.DB
	table string
}

// RepositoryOption configures the repository.
type RepositoryOption func(*CourierRepository)

// WithTable overrides the default table.
func WithTable(table string) RepositoryOption {
	return func(repo *CourierRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewCourierRepository constructs a repository with defaults.
func NewCourierRepository(db *sql.DB, opts ...RepositoryOption) *CourierRepository {
	repo := &CourierRepository{db: db, table: defaultCourierTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Create inserts a courier and assigns its id.
func (r *CourierRepository) Create(ctx context.Context, c *courier.Courier) error {
	if r == nil || r.db == nil {
		return errors.New("courier repo: nil db")
	}
	if c == nil {
		return courier.ErrNilCourier
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`
INSERT INTO %s (external_courier_id, partner_id, name, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (external_courier_id) DO NOTHING
RETURNING id`, r.table)

	err := r.db.QueryRowContext(ctx, query, c.ExternalID, c.PartnerID, c.Name, c.CreatedAt).Scan(&c.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return courier.ErrCourierExists
	}
	return err
}

// FindByID loads a courier.
func (r *CourierRepository) FindByID(ctx context.Context, id int64) (*courier.Courier, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("courier repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, r.selectQuery("WHERE id = $1"), id)
	return scanCourier(row)
}

// FindByExternalID loads a courier by the delivery platform id.
func (r *CourierRepository) FindByExternalID(ctx context.Context, externalID int64) (*courier.Courier, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("courier repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, r.selectQuery("WHERE external_courier_id = $1 LIMIT 1"), externalID)
	return scanCourier(row)
}

// Update locks the courier row, applies fn and writes the volume state back
// in the same transaction. Repositories that write through the context fn
// receives join that transaction.
func (r *CourierRepository) Update(ctx context.Context, id int64, fn courier.UpdateFunc) (*courier.Courier, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("courier repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, r.selectQuery("WHERE id = $1 FOR UPDATE"), id)
	current, err := scanCourier(row)
	if err != nil {
		return nil, err
	}
	if err := fn(platformpg.WithTx(ctx, tx), current); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
UPDATE %s
SET deliveries_today = $1,
	deliveries_this_hour = $2,
	last_delivery_at = $3,
	high_volume_active = $4,
	updated_at = NOW()
WHERE id = $5`, r.table)
	var last any
	if current.LastDeliveryAt != nil {
		last = current.LastDeliveryAt.UTC()
	}
	if _, err := tx.ExecContext(ctx, query,
		current.DeliveriesToday,
		current.DeliveriesThisHour,
		last,
		current.HighVolumeActive,
		id,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return current, nil
}

// ListIDs returns all courier ids in ascending order.
func (r *CourierRepository) ListIDs(ctx context.Context) ([]int64, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("courier repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s ORDER BY id ASC`, r.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *CourierRepository) selectQuery(where string) string {
	return fmt.Sprintf(`
SELECT id, external_courier_id, partner_id, name, deliveries_today,
	deliveries_this_hour, last_delivery_at, high_volume_active, created_at
FROM %s
%s`, r.table, where)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourier(row rowScanner) (*courier.Courier, error) {
	var c courier.Courier
	var last sql.NullTime
	err := row.Scan(
		&c.ID, &c.ExternalID, &c.PartnerID, &c.Name, &c.DeliveriesToday,
		&c.DeliveriesThisHour, &last, &c.HighVolumeActive, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, courier.ErrCourierNotFound
		}
		return nil, err
	}
	if last.Valid {
		at := last.Time.UTC()
		c.LastDeliveryAt = &at
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}
