package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	settlementapp "delivery-settlement/internal/settlement/application"
)

// MemorySource is an in-process order platform for tests and local runs.
type MemorySource struct {
	mu          sync.RWMutex
	orders      []settlementapp.DeliveredOrder
	couriers    map[int64]settlementapp.CourierDetails
	restaurants map[int64]settlementapp.RestaurantDetails
	err         error
}

// NewMemorySource constructs an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		couriers:    make(map[int64]settlementapp.CourierDetails),
		restaurants: make(map[int64]settlementapp.RestaurantDetails),
	}
}

// AddOrders appends delivered orders.
func (s *MemorySource) AddOrders(orders ...settlementapp.DeliveredOrder) {
	s.mu.Lock()
	s.orders = append(s.orders, orders...)
	s.mu.Unlock()
}

// AddCourier registers courier details.
func (s *MemorySource) AddCourier(details settlementapp.CourierDetails) {
	s.mu.Lock()
	s.couriers[details.ID] = details
	s.mu.Unlock()
}

// AddRestaurant registers restaurant details.
func (s *MemorySource) AddRestaurant(details settlementapp.RestaurantDetails) {
	s.mu.Lock()
	s.restaurants[details.ID] = details
	s.mu.Unlock()
}

// FailWith makes every call return err until cleared with nil.
func (s *MemorySource) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// FetchDeliveredOrders returns orders whose date falls in [weekStart, weekEnd].
func (s *MemorySource) FetchDeliveredOrders(ctx context.Context, weekStart, weekEnd time.Time) ([]settlementapp.DeliveredOrder, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	from := dateOf(weekStart)
	to := dateOf(weekEnd)
	var result []settlementapp.DeliveredOrder
	for _, order := range s.orders {
		day := dateOf(order.CreatedAt)
		if day.Before(from) || day.After(to) {
			continue
		}
		result = append(result, order)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// FetchCourierDetails returns nil when the courier is unknown.
func (s *MemorySource) FetchCourierDetails(ctx context.Context, courierID int64) (*settlementapp.CourierDetails, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	details, ok := s.couriers[courierID]
	if !ok {
		return nil, nil
	}
	return &details, nil
}

// FetchRestaurantDetails returns nil when the restaurant is unknown.
func (s *MemorySource) FetchRestaurantDetails(ctx context.Context, restaurantID int64) (*settlementapp.RestaurantDetails, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	details, ok := s.restaurants[restaurantID]
	if !ok {
		return nil, nil
	}
	return &details, nil
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
