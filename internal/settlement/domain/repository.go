package settlement

import (
	"context"
	"time"
)

// ListFilter narrows settlement listings. Zero fields match everything.
type ListFilter struct {
	Kind      PartnerKind
	PartnerID int64
	WeekStart time.Time
	Limit     int
}

// Repository persists settlements with their lines.
type Repository interface {
	// Create stores the settlement and its lines atomically and assigns the
	// id. A second settlement for the same kind, partner and week start fails
	// with ErrDuplicateSettlement.
	Create(ctx context.Context, s *Settlement) error
	// LinkBill records the bill reference once.
	LinkBill(ctx context.Context, id int64, billRef string) error
	// GetByID loads a settlement with its lines.
	GetByID(ctx context.Context, id int64) (*Settlement, error)
	// List returns settlements without lines, newest week first.
	List(ctx context.Context, filter ListFilter) ([]Settlement, error)
}
