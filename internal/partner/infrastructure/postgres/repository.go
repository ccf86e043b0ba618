package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	partner "delivery-settlement/internal/partner/domain"
)

const defaultPartnerTable = "partners"

// PartnerRepository is a Postgres implementation for partners.
type PartnerRepository struct {
	db    *sql.DB
	table string
}

// RepositoryOption configures the repository.
type RepositoryOption func(*PartnerRepository)

// WithTable overrides the default table.
func WithTable(table string) RepositoryOption {
	return func(repo *PartnerRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewPartnerRepository constructs a repository with defaults.
func NewPartnerRepository(db *sql.DB, opts ...RepositoryOption) *PartnerRepository {
	repo := &PartnerRepository{db: db, table: defaultPartnerTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Create inserts a partner and assigns its id.
func (r *PartnerRepository) Create(ctx context.Context, p *partner.Partner) error {
	if r == nil || r.db == nil {
		return errors.New("partner repo: nil db")
	}
	if p == nil {
		return partner.ErrNilPartner
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`
INSERT INTO %s (kind, external_id, name, phone, email, address, location_lat, location_lng, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (kind, external_id) DO NOTHING
RETURNING id`, r.table)

	err := r.db.QueryRowContext(ctx, query,
		string(p.Kind), p.ExternalID, p.Name, nullString(p.Phone), nullString(p.Email), nullString(p.Address),
		nullFloat(p.Lat), nullFloat(p.Lng), p.CreatedAt,
	).Scan(&p.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return partner.ErrPartnerExists
	}
	return err
}

// FindByID loads a partner.
func (r *PartnerRepository) FindByID(ctx context.Context, id int64) (*partner.Partner, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("partner repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, r.selectQuery("WHERE id = $1"), id)
	return scanPartner(row)
}

// FindByExternalID loads a partner by kind and platform id.
func (r *PartnerRepository) FindByExternalID(ctx context.Context, kind partner.Kind, externalID int64) (*partner.Partner, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("partner repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, r.selectQuery("WHERE kind = $1 AND external_id = $2"), string(kind), externalID)
	return scanPartner(row)
}

func (r *PartnerRepository) selectQuery(where string) string {
	return fmt.Sprintf(`
SELECT id, kind, external_id, name, phone, email, address, location_lat, location_lng, created_at
FROM %s
%s`, r.table, where)
}

func scanPartner(row *sql.Row) (*partner.Partner, error) {
	var p partner.Partner
	var kind string
	var phone, email, address sql.NullString
	var lat, lng sql.NullFloat64
	err := row.Scan(&p.ID, &kind, &p.ExternalID, &p.Name, &phone, &email, &address, &lat, &lng, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, partner.ErrPartnerNotFound
		}
		return nil, err
	}
	p.Kind = partner.Kind(kind)
	p.Phone = phone.String
	p.Email = email.String
	p.Address = address.String
	if lat.Valid {
		p.Lat = &lat.Float64
	}
	if lng.Valid {
		p.Lng = &lng.Float64
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullFloat(value *float64) sql.NullFloat64 {
	if value == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *value, Valid: true}
}
