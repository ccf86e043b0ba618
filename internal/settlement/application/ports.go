package application

import (
	"context"
	"time"

	settlement "delivery-settlement/internal/settlement/domain"
)

// DeliveredOrder is one delivered order read from the order platform.
type DeliveredOrder struct {
	OrderID       int64
	CourierID     int64
	RestaurantID  int64
	CreatedAt     time.Time
	OrderTotal    float64
	DeliveryFee   float64
	CourierShare  float64
	CompanyShare  float64
	CalculationID int64
}

// CourierDetails is the order platform's record of a courier.
type CourierDetails struct {
	ID       int64
	FullName string
	Address  string
}

// RestaurantDetails is the order platform's record of a restaurant.
type RestaurantDetails struct {
	ID       int64
	Name     string
	Location string
}

// OrderSource reads the order platform. Details lookups return nil when the
// platform has no such record.
type OrderSource interface {
	FetchDeliveredOrders(ctx context.Context, weekStart, weekEnd time.Time) ([]DeliveredOrder, error)
	FetchCourierDetails(ctx context.Context, courierID int64) (*CourierDetails, error)
	FetchRestaurantDetails(ctx context.Context, restaurantID int64) (*RestaurantDetails, error)
}

// BillRequest asks the payables system for a posted vendor bill.
type BillRequest struct {
	IdempotencyKey string                `json:"idempotency_key"`
	SettlementID   int64                 `json:"settlement_id"`
	PartnerID      int64                 `json:"partner_id"`
	PartnerName    string                `json:"partner_name"`
	Reference      string                `json:"reference"`
	InvoiceDate    time.Time             `json:"invoice_date"`
	Lines          []settlement.BillLine `json:"lines"`
}

// PayablesGateway is the accounts-payable system.
type PayablesGateway interface {
	CreateAndPostBill(ctx context.Context, req BillRequest) (string, error)
	BillStatus(ctx context.Context, billRef string) (settlement.BillStatus, error)
	PaymentStatus(ctx context.Context, billRef string) (settlement.PaymentStatus, error)
}

// BonusReader reports which fee calculations carried the high-volume bonus.
// Unknown ids are absent from the result.
type BonusReader interface {
	HighVolumeByCalculation(ctx context.Context, calculationIDs []int64) (map[int64]bool, error)
}

// PartnerResolver maps platform ids onto local partners, provisioning them
// when needed. Unresolvable partners fail with settlement.ErrPartnerUnresolved.
type PartnerResolver interface {
	ResolveCourier(ctx context.Context, externalID int64) (settlement.PartnerRef, error)
	ResolveRestaurant(ctx context.Context, externalID int64) (settlement.PartnerRef, error)
}

// SettlementCreated is emitted once a settlement is stored.
type SettlementCreated struct {
	SettlementID int64
	PartnerID    int64
	PartnerKind  settlement.PartnerKind
	WeekStart    time.Time
	Amount       float64
	BillRef      string
	OccurredAt   time.Time
}

// SettlementPublisher emits settlement created events.
type SettlementPublisher interface {
	PublishSettlementCreated(ctx context.Context, event SettlementCreated) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
