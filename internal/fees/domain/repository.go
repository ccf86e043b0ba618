package fees

import "context"

// Repository persists fee calculations. Calculations are append-only apart
// from the external order link.
type Repository interface {
	Create(ctx context.Context, calc *FeeCalculation) error
	FindByID(ctx context.Context, id int64) (*FeeCalculation, error)
	ListByIDs(ctx context.Context, ids []int64) ([]FeeCalculation, error)
	AttachOrder(ctx context.Context, id, externalOrderID int64) error
}
