package memory

import (
	"context"
	"sort"
	"sync"

	courier "delivery-settlement/internal/courier/domain"
)

// CourierRepository is an in-memory repository for couriers.
type CourierRepository struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*courier.Courier
	locks  map[int64]*sync.Mutex
}

// NewCourierRepository constructs a repository.
func NewCourierRepository() *CourierRepository {
	return &CourierRepository{
		data:  make(map[int64]*courier.Courier),
		locks: make(map[int64]*sync.Mutex),
	}
}

// Create stores a new courier and assigns its id.
func (r *CourierRepository) Create(ctx context.Context, c *courier.Courier) error {
	_ = ctx
	if c == nil {
		return courier.ErrNilCourier
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.data {
		if existing.ExternalID == c.ExternalID {
			return courier.ErrCourierExists
		}
	}
	r.nextID++
	c.ID = r.nextID
	r.data[c.ID] = c.Clone()
	r.locks[c.ID] = &sync.Mutex{}
	return nil
}

// FindByID loads a courier.
func (r *CourierRepository) FindByID(ctx context.Context, id int64) (*courier.Courier, error) {
	_ = ctx
	r.mu.RLock()
	c := r.data[id]
	r.mu.RUnlock()
	if c == nil {
		return nil, courier.ErrCourierNotFound
	}
	return c.Clone(), nil
}

// FindByExternalID loads a courier by the delivery platform id.
func (r *CourierRepository) FindByExternalID(ctx context.Context, externalID int64) (*courier.Courier, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.data {
		if c.ExternalID == externalID {
			return c.Clone(), nil
		}
	}
	return nil, courier.ErrCourierNotFound
}

// Update runs fn while holding the courier's lock and stores the result
// only when fn succeeds.
func (r *CourierRepository) Update(ctx context.Context, id int64, fn courier.UpdateFunc) (*courier.Courier, error) {
	r.mu.RLock()
	lock := r.locks[id]
	r.mu.RUnlock()
	if lock == nil {
		return nil, courier.ErrCourierNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	current := r.data[id].Clone()
	r.mu.RUnlock()

	if err := fn(ctx, current); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.data[id] = current.Clone()
	r.mu.Unlock()
	return current, nil
}

// ListIDs returns all courier ids in ascending order.
func (r *CourierRepository) ListIDs(ctx context.Context) ([]int64, error) {
	_ = ctx
	r.mu.RLock()
	ids := make([]int64, 0, len(r.data))
	for id := range r.data {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
