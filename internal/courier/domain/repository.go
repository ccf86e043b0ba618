package courier

import "context"

// UpdateFunc mutates a courier inside the repository's exclusive section.
// Writes made through ctx join the same unit of work, and a returned error
// discards the mutation and those writes.
type UpdateFunc func(ctx context.Context, c *Courier) error

// Repository persists couriers.
//
// Update must hold an exclusive per-courier lock for the whole
// read-modify-write so concurrent deliveries never race on the counters.
type Repository interface {
	Create(ctx context.Context, c *Courier) error
	FindByID(ctx context.Context, id int64) (*Courier, error)
	FindByExternalID(ctx context.Context, externalID int64) (*Courier, error)
	Update(ctx context.Context, id int64, fn UpdateFunc) (*Courier, error)
	ListIDs(ctx context.Context) ([]int64, error)
}
