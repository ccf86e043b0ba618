package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	fees "delivery-settlement/internal/fees/domain"
	platformpg "delivery-settlement/internal/platform/postgres"
)

// FeeCalculationRepository persists fee calculations in Postgres.
type FeeCalculationRepository struct {
	db *sql.DB
}

// NewFeeCalculationRepository constructs a repository.
func NewFeeCalculationRepository(db *sql.DB) *FeeCalculationRepository {
	return &FeeCalculationRepository{db: db}
}

// Create inserts a calculation and assigns its id. It joins the transaction
// carried by ctx, if any.
func (r *FeeCalculationRepository) Create(ctx context.Context, calc *fees.FeeCalculation) error {
	if r == nil || r.db == nil {
		return errors.New("fee calculation repo: nil db")
	}
	if calc == nil {
		return fees.ErrNilCalculation
	}
	if calc.CreatedAt.IsZero() {
		calc.CreatedAt = time.Now().UTC()
	}
	return platformpg.Conn(ctx, r.db).QueryRowContext(ctx, `
INSERT INTO fee_calculations (
	courier_id, distance_km, delivery_fee, company_share, courier_share,
	high_volume_bonus, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id`,
		calc.CourierID, calc.DistanceKm, calc.BaseFee, calc.CompanyShare, calc.CourierShare,
		calc.HighVolumeBonus, calc.CreatedAt,
	).Scan(&calc.ID)
}

// FindByID loads a calculation.
func (r *FeeCalculationRepository) FindByID(ctx context.Context, id int64) (*fees.FeeCalculation, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("fee calculation repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, courier_id, external_order_id, distance_km, delivery_fee, company_share,
	courier_share, high_volume_bonus, created_at
FROM fee_calculations
WHERE id = $1`, id)
	calc, err := scanCalculation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fees.ErrCalculationNotFound
	}
	return calc, err
}

// ListByIDs returns the calculations that exist among ids.
func (r *FeeCalculationRepository) ListByIDs(ctx context.Context, ids []int64) ([]fees.FeeCalculation, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("fee calculation repo: nil db")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, courier_id, external_order_id, distance_km, delivery_fee, company_share,
	courier_share, high_volume_bonus, created_at
FROM fee_calculations
WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []fees.FeeCalculation
	for rows.Next() {
		calc, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *calc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// AttachOrder links the external order id.
func (r *FeeCalculationRepository) AttachOrder(ctx context.Context, id, externalOrderID int64) error {
	if r == nil || r.db == nil {
		return errors.New("fee calculation repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE fee_calculations SET external_order_id = $1 WHERE id = $2`, externalOrderID, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fees.ErrCalculationNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalculation(row rowScanner) (*fees.FeeCalculation, error) {
	var calc fees.FeeCalculation
	var orderID sql.NullInt64
	if err := row.Scan(
		&calc.ID, &calc.CourierID, &orderID, &calc.DistanceKm, &calc.BaseFee, &calc.CompanyShare,
		&calc.CourierShare, &calc.HighVolumeBonus, &calc.CreatedAt,
	); err != nil {
		return nil, err
	}
	if orderID.Valid {
		calc.ExternalOrderID = orderID.Int64
	}
	calc.CreatedAt = calc.CreatedAt.UTC()
	return &calc, nil
}
