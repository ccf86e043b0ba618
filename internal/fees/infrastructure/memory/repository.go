package memory

import (
	"context"
	"sync"

	fees "delivery-settlement/internal/fees/domain"
)

// FeeCalculationRepository is an in-memory repository for fee calculations.
type FeeCalculationRepository struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]fees.FeeCalculation
}

// NewFeeCalculationRepository constructs a repository.
func NewFeeCalculationRepository() *FeeCalculationRepository {
	return &FeeCalculationRepository{data: make(map[int64]fees.FeeCalculation)}
}

// Create stores a calculation and assigns its id.
func (r *FeeCalculationRepository) Create(ctx context.Context, calc *fees.FeeCalculation) error {
	_ = ctx
	if calc == nil {
		return fees.ErrNilCalculation
	}
	r.mu.Lock()
	r.nextID++
	calc.ID = r.nextID
	r.data[calc.ID] = *calc
	r.mu.Unlock()
	return nil
}

// FindByID loads a calculation.
func (r *FeeCalculationRepository) FindByID(ctx context.Context, id int64) (*fees.FeeCalculation, error) {
	_ = ctx
	r.mu.RLock()
	calc, ok := r.data[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fees.ErrCalculationNotFound
	}
	return &calc, nil
}

// ListByIDs returns the calculations that exist among ids.
func (r *FeeCalculationRepository) ListByIDs(ctx context.Context, ids []int64) ([]fees.FeeCalculation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []fees.FeeCalculation
	for _, id := range ids {
		if calc, ok := r.data[id]; ok {
			result = append(result, calc)
		}
	}
	return result, nil
}

// AttachOrder links the external order id.
func (r *FeeCalculationRepository) AttachOrder(ctx context.Context, id, externalOrderID int64) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	calc, ok := r.data[id]
	if !ok {
		return fees.ErrCalculationNotFound
	}
	calc.ExternalOrderID = externalOrderID
	r.data[id] = calc
	return nil
}
