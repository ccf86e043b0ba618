package orders

import (
	"context"
	"database/sql"
	"errors"
	"time"

	settlementapp "delivery-settlement/internal/settlement/application"
)

// PostgresSource reads the order platform's database.
type PostgresSource struct {
	db *sql.DB
}

// NewPostgresSource constructs a source on the order platform connection.
func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// FetchDeliveredOrders lists delivered orders created between the two dates
// inclusive.
func (s *PostgresSource) FetchDeliveredOrders(ctx context.Context, weekStart, weekEnd time.Time) ([]settlementapp.DeliveredOrder, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("order source: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT
	o.order_id,
	o.courier_id,
	o.restaurant_id,
	o.created_at,
	COALESCE(o.cost, 0) AS order_total,
	COALESCE(o.delivery_fee, 0) AS delivery_fee,
	COALESCE(o.courier_share, 0) AS courier_share,
	COALESCE(o.company_share, 0) AS company_share,
	COALESCE(o.odoo_calculation_id, 0) AS calculation_id
FROM orders o
WHERE o.order_status = 'delivered'
	AND DATE(o.created_at) BETWEEN $1 AND $2
ORDER BY o.created_at`, weekStart.Format("2006-01-02"), weekEnd.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []settlementapp.DeliveredOrder
	for rows.Next() {
		var order settlementapp.DeliveredOrder
		if err := rows.Scan(
			&order.OrderID,
			&order.CourierID,
			&order.RestaurantID,
			&order.CreatedAt,
			&order.OrderTotal,
			&order.DeliveryFee,
			&order.CourierShare,
			&order.CompanyShare,
			&order.CalculationID,
		); err != nil {
			return nil, err
		}
		order.CreatedAt = order.CreatedAt.UTC()
		result = append(result, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FetchCourierDetails returns nil when the platform has no such courier.
func (s *PostgresSource) FetchCourierDetails(ctx context.Context, courierID int64) (*settlementapp.CourierDetails, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("order source: nil db")
	}
	var details settlementapp.CourierDetails
	var address sql.NullString
	err := s.db.QueryRowContext(ctx, `
SELECT courier_id, courier_full_name, courier_address
FROM couriers
WHERE courier_id = $1`, courierID).Scan(&details.ID, &details.FullName, &address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	details.Address = address.String
	return &details, nil
}

// FetchRestaurantDetails returns nil when the platform has no such restaurant.
func (s *PostgresSource) FetchRestaurantDetails(ctx context.Context, restaurantID int64) (*settlementapp.RestaurantDetails, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("order source: nil db")
	}
	var details settlementapp.RestaurantDetails
	var location sql.NullString
	err := s.db.QueryRowContext(ctx, `
SELECT restaurant_id, restaurant_name, restaurant_location
FROM restaurants
WHERE restaurant_id = $1`, restaurantID).Scan(&details.ID, &details.Name, &location)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	details.Location = location.String
	return &details, nil
}
