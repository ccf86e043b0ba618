package settlement

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PartnerKind distinguishes courier settlements from restaurant settlements.
type PartnerKind string

const (
	PartnerKindCourier    PartnerKind = "courier"
	PartnerKindRestaurant PartnerKind = "restaurant"
)

// Valid reports whether k is a known kind.
func (k PartnerKind) Valid() bool {
	return k == PartnerKindCourier || k == PartnerKindRestaurant
}

// ParsePartnerKind converts a request value into a PartnerKind.
// An empty value yields the empty kind.
func ParsePartnerKind(value string) (PartnerKind, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", nil
	}
	kind := PartnerKind(value)
	if !kind.Valid() {
		return "", ErrInvalidKind
	}
	return kind, nil
}

// PartnerRef identifies the partner a settlement pays.
type PartnerRef struct {
	ID         int64
	ExternalID int64
	Name       string
}

// Settlement is one partner's payable for one week.
type Settlement struct {
	ID                int64       `json:"id"`
	Name              string      `json:"name"`
	PartnerID         int64       `json:"partner_id"`
	PartnerExternalID int64       `json:"partner_external_id"`
	PartnerName       string      `json:"partner_name"`
	PartnerKind       PartnerKind `json:"partner_kind"`
	SettlementDate    time.Time   `json:"settlement_date"`
	WeekStart         time.Time   `json:"week_start"`
	WeekEnd           time.Time   `json:"week_end"`

	TotalAmountDue float64 `json:"total_amount_due"`
	TotalOrders    int     `json:"total_orders"`

	RegularCount    int `json:"regular_deliveries"`
	HighVolumeCount int `json:"high_volume_deliveries"`

	TotalOrderAmount  float64 `json:"total_order_amount"`
	TotalDeliveryFees float64 `json:"total_delivery_fees"`

	BillRef   string    `json:"bill_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Lines     []Line    `json:"lines,omitempty"`
}

// Line is one delivered order's contribution to a settlement.
type Line struct {
	ExternalOrderID int64     `json:"external_order_id"`
	OrderDate       time.Time `json:"order_date"`
	Amount          float64   `json:"amount"`

	HighVolumeBonus bool `json:"high_volume_bonus,omitempty"`

	OrderAmount float64 `json:"order_amount,omitempty"`
	DeliveryFee float64 `json:"delivery_fee,omitempty"`
}

// Week returns the settlement period.
func (s *Settlement) Week() Week {
	return Week{Start: s.WeekStart, End: s.WeekEnd}
}

// HasBill reports whether a payable bill is linked.
func (s *Settlement) HasBill() bool {
	return s.BillRef != ""
}

// Clone returns a detached copy including lines.
func (s *Settlement) Clone() *Settlement {
	if s == nil {
		return nil
	}
	copy := *s
	if s.Lines != nil {
		copy.Lines = append([]Line(nil), s.Lines...)
	}
	return &copy
}

// CourierOrder is a delivered order seen from the courier's side.
type CourierOrder struct {
	ExternalOrderID int64
	OrderDate       time.Time
	CourierShare    float64
	HighVolumeBonus bool
}

// RestaurantOrder is a delivered order seen from the restaurant's side.
type RestaurantOrder struct {
	ExternalOrderID int64
	OrderDate       time.Time
	OrderTotal      float64
	DeliveryFee     float64
}

// NewCourierSettlement sums a courier's week: the amount due is the sum of
// courier shares and each order counts as regular or high-volume.
func NewCourierSettlement(ref PartnerRef, week Week, orders []CourierOrder, now time.Time) (*Settlement, error) {
	s, err := newSettlement(ref, PartnerKindCourier, week, len(orders), now)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	s.Lines = make([]Line, 0, len(orders))
	for _, order := range orders {
		share := decimal.NewFromFloat(order.CourierShare)
		total = total.Add(share)
		if order.HighVolumeBonus {
			s.HighVolumeCount++
		} else {
			s.RegularCount++
		}
		s.Lines = append(s.Lines, Line{
			ExternalOrderID: order.ExternalOrderID,
			OrderDate:       order.OrderDate.UTC(),
			Amount:          money(share),
			HighVolumeBonus: order.HighVolumeBonus,
		})
	}
	s.TotalAmountDue = money(total)
	sortLines(s.Lines)
	return s, nil
}

// NewRestaurantSettlement sums a restaurant's week: the amount due is the
// order revenue minus the delivery fees.
func NewRestaurantSettlement(ref PartnerRef, week Week, orders []RestaurantOrder, now time.Time) (*Settlement, error) {
	s, err := newSettlement(ref, PartnerKindRestaurant, week, len(orders), now)
	if err != nil {
		return nil, err
	}

	revenue := decimal.Zero
	fees := decimal.Zero
	s.Lines = make([]Line, 0, len(orders))
	for _, order := range orders {
		orderTotal := decimal.NewFromFloat(order.OrderTotal)
		fee := decimal.NewFromFloat(order.DeliveryFee)
		revenue = revenue.Add(orderTotal)
		fees = fees.Add(fee)
		s.Lines = append(s.Lines, Line{
			ExternalOrderID: order.ExternalOrderID,
			OrderDate:       order.OrderDate.UTC(),
			Amount:          money(orderTotal.Sub(fee)),
			OrderAmount:     money(orderTotal),
			DeliveryFee:     money(fee),
		})
	}
	s.TotalOrderAmount = money(revenue)
	s.TotalDeliveryFees = money(fees)
	s.TotalAmountDue = money(revenue.Sub(fees))
	sortLines(s.Lines)
	return s, nil
}

// DisplayName renders the settlement reference shown on exports and bills.
func DisplayName(partnerName string, kind PartnerKind, week Week) string {
	return fmt.Sprintf("Settlement - %s (%s) - %s to %s",
		partnerName, kind, week.Start.Format(dateLayout), week.End.Format(dateLayout))
}

func newSettlement(ref PartnerRef, kind PartnerKind, week Week, orders int, now time.Time) (*Settlement, error) {
	if ref.ID <= 0 {
		return nil, ErrInvalidPartner
	}
	if week.Start.IsZero() || week.End.Before(week.Start) {
		return nil, ErrInvalidWeek
	}
	if orders == 0 {
		return nil, ErrNoOrders
	}
	now = now.UTC()
	return &Settlement{
		Name:              DisplayName(ref.Name, kind, week),
		PartnerID:         ref.ID,
		PartnerExternalID: ref.ExternalID,
		PartnerName:       ref.Name,
		PartnerKind:       kind,
		SettlementDate:    dateOf(now),
		WeekStart:         week.Start,
		WeekEnd:           week.End,
		TotalOrders:       orders,
		CreatedAt:         now,
	}, nil
}

func sortLines(lines []Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		if !lines[i].OrderDate.Equal(lines[j].OrderDate) {
			return lines[i].OrderDate.Before(lines[j].OrderDate)
		}
		return lines[i].ExternalOrderID < lines[j].ExternalOrderID
	})
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
