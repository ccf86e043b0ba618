package fees

import (
	"context"
	"errors"

	feesdomain "delivery-settlement/internal/fees/domain"
)

// BonusReader answers bonus lookups from stored fee calculations.
type BonusReader struct {
	repo feesdomain.Repository
}

// NewBonusReader constructs a reader.
func NewBonusReader(repo feesdomain.Repository) (*BonusReader, error) {
	if repo == nil {
		return nil, errors.New("bonus reader: nil fee calculation repository")
	}
	return &BonusReader{repo: repo}, nil
}

// HighVolumeByCalculation returns the bonus flag of every known calculation
// among ids.
func (r *BonusReader) HighVolumeByCalculation(ctx context.Context, ids []int64) (map[int64]bool, error) {
	calcs, err := r.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	result := make(map[int64]bool, len(calcs))
	for _, calc := range calcs {
		result[calc.ID] = calc.HighVolumeBonus
	}
	return result, nil
}
