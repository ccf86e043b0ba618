package partner

import "context"

// Repository persists partners.
type Repository interface {
	// Create assigns the id. A second partner with the same kind and
	// external id fails with ErrPartnerExists.
	Create(ctx context.Context, p *Partner) error
	FindByID(ctx context.Context, id int64) (*Partner, error)
	FindByExternalID(ctx context.Context, kind Kind, externalID int64) (*Partner, error)
}
