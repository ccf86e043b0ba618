package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	settlement "delivery-settlement/internal/settlement/domain"
)

const uniqueViolation = "23505"

// SettlementRepository persists settlements and their lines.
type SettlementRepository struct {
	db *sql.DB
}

// NewSettlementRepository constructs a repository.
func NewSettlementRepository(db *sql.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// Create inserts the settlement and its lines in one transaction.
func (r *SettlementRepository) Create(ctx context.Context, s *settlement.Settlement) error {
	if r == nil || r.db == nil {
		return errors.New("settlement repo: nil db")
	}
	if s == nil {
		return settlement.ErrNilSettlement
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	err = tx.QueryRowContext(ctx, `
INSERT INTO settlements (
	name, partner_id, partner_external_id, partner_name, partner_kind,
	settlement_date, week_start, week_end, total_amount_due, total_orders,
	regular_deliveries, high_volume_deliveries, total_order_amount, total_delivery_fees,
	created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
RETURNING id`,
		s.Name, s.PartnerID, s.PartnerExternalID, s.PartnerName, string(s.PartnerKind),
		s.SettlementDate, s.WeekStart, s.WeekEnd, s.TotalAmountDue, s.TotalOrders,
		s.RegularCount, s.HighVolumeCount, s.TotalOrderAmount, s.TotalDeliveryFees,
		s.CreatedAt,
	).Scan(&s.ID)
	if err != nil {
		if isUniqueViolation(err) {
			err = settlement.ErrDuplicateSettlement
		}
		return abortCreate(tx, s, err)
	}
	for _, line := range s.Lines {
		_, err := tx.ExecContext(ctx, `
INSERT INTO settlement_lines (
	settlement_id, external_order_id, order_date, amount, high_volume_bonus, order_amount, delivery_fee
) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			s.ID, line.ExternalOrderID, line.OrderDate, line.Amount, line.HighVolumeBonus, line.OrderAmount, line.DeliveryFee)
		if err != nil {
			return abortCreate(tx, s, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return abortCreate(tx, s, err)
	}
	return nil
}

type rollbacker interface {
	Rollback() error
}

// abortCreate discards a failed Create and clears the id it may have
// assigned.
func abortCreate(tx rollbacker, s *settlement.Settlement, err error) error {
	_ = tx.Rollback()
	s.ID = 0
	return err
}

// LinkBill records the bill reference once.
func (r *SettlementRepository) LinkBill(ctx context.Context, id int64, billRef string) error {
	if r == nil || r.db == nil {
		return errors.New("settlement repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE settlements SET bill_ref = $1
WHERE id = $2 AND bill_ref IS NULL`, billRef, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	var existing sql.NullString
	err = r.db.QueryRowContext(ctx, `SELECT bill_ref FROM settlements WHERE id = $1`, id).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return settlement.ErrSettlementNotFound
	}
	if err != nil {
		return err
	}
	return settlement.ErrBillAlreadyLinked
}

// GetByID loads a settlement with its lines.
func (r *SettlementRepository) GetByID(ctx context.Context, id int64) (*settlement.Settlement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settlement repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, selectSettlements+`WHERE id = $1`, id)
	s, err := scanSettlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, settlement.ErrSettlementNotFound
	}
	if err != nil {
		return nil, err
	}
	lines, err := r.listLines(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Lines = lines
	return s, nil
}

// List returns settlements without lines, newest week first.
func (r *SettlementRepository) List(ctx context.Context, filter settlement.ListFilter) ([]settlement.Settlement, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settlement repo: nil db")
	}
	var where []string
	var args []any
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		where = append(where, fmt.Sprintf("partner_kind = $%d", len(args)))
	}
	if filter.PartnerID != 0 {
		args = append(args, filter.PartnerID)
		where = append(where, fmt.Sprintf("partner_id = $%d", len(args)))
	}
	if !filter.WeekStart.IsZero() {
		args = append(args, filter.WeekStart)
		where = append(where, fmt.Sprintf("week_start = $%d", len(args)))
	}
	query := selectSettlements
	if len(where) > 0 {
		query += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	query += "ORDER BY week_start DESC, id ASC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []settlement.Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SettlementRepository) listLines(ctx context.Context, settlementID int64) ([]settlement.Line, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT external_order_id, order_date, amount, high_volume_bonus, order_amount, delivery_fee
FROM settlement_lines
WHERE settlement_id = $1
ORDER BY order_date ASC, external_order_id ASC`, settlementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []settlement.Line
	for rows.Next() {
		var line settlement.Line
		if err := rows.Scan(&line.ExternalOrderID, &line.OrderDate, &line.Amount, &line.HighVolumeBonus, &line.OrderAmount, &line.DeliveryFee); err != nil {
			return nil, err
		}
		line.OrderDate = line.OrderDate.UTC()
		result = append(result, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

const selectSettlements = `
SELECT id, name, partner_id, partner_external_id, partner_name, partner_kind,
	settlement_date, week_start, week_end, total_amount_due, total_orders,
	regular_deliveries, high_volume_deliveries, total_order_amount, total_delivery_fees,
	bill_ref, created_at
FROM settlements
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSettlement(row rowScanner) (*settlement.Settlement, error) {
	var s settlement.Settlement
	var kind string
	var billRef sql.NullString
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.PartnerID,
		&s.PartnerExternalID,
		&s.PartnerName,
		&kind,
		&s.SettlementDate,
		&s.WeekStart,
		&s.WeekEnd,
		&s.TotalAmountDue,
		&s.TotalOrders,
		&s.RegularCount,
		&s.HighVolumeCount,
		&s.TotalOrderAmount,
		&s.TotalDeliveryFees,
		&billRef,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.PartnerKind = settlement.PartnerKind(kind)
	s.BillRef = billRef.String
	s.SettlementDate = s.SettlementDate.UTC()
	s.WeekStart = s.WeekStart.UTC()
	s.WeekEnd = s.WeekEnd.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	return &s, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
