package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	settlement "delivery-settlement/internal/settlement/domain"
)

type weekKey struct {
	kind      settlement.PartnerKind
	partnerID int64
	weekStart time.Time
}

// SettlementRepository is an in-memory repository for settlements.
type SettlementRepository struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*settlement.Settlement
	weeks  map[weekKey]int64
}

// NewSettlementRepository constructs a repository.
func NewSettlementRepository() *SettlementRepository {
	return &SettlementRepository{
		data:  make(map[int64]*settlement.Settlement),
		weeks: make(map[weekKey]int64),
	}
}

// Create stores a settlement with its lines and assigns its id.
func (r *SettlementRepository) Create(ctx context.Context, s *settlement.Settlement) error {
	_ = ctx
	if s == nil {
		return settlement.ErrNilSettlement
	}
	key := weekKey{kind: s.PartnerKind, partnerID: s.PartnerID, weekStart: s.WeekStart.UTC()}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.weeks[key]; ok {
		return settlement.ErrDuplicateSettlement
	}
	r.nextID++
	s.ID = r.nextID
	r.data[s.ID] = s.Clone()
	r.weeks[key] = s.ID
	return nil
}

// LinkBill records the bill reference once.
func (r *SettlementRepository) LinkBill(ctx context.Context, id int64, billRef string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return settlement.ErrSettlementNotFound
	}
	if s.HasBill() {
		return settlement.ErrBillAlreadyLinked
	}
	s.BillRef = billRef
	return nil
}

// GetByID loads a settlement with its lines.
func (r *SettlementRepository) GetByID(ctx context.Context, id int64) (*settlement.Settlement, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.data[id]
	if !ok {
		return nil, settlement.ErrSettlementNotFound
	}
	return s.Clone(), nil
}

// List returns settlements without lines, newest week first.
func (r *SettlementRepository) List(ctx context.Context, filter settlement.ListFilter) ([]settlement.Settlement, error) {
	_ = ctx
	r.mu.RLock()
	var result []settlement.Settlement
	for _, s := range r.data {
		if filter.Kind != "" && s.PartnerKind != filter.Kind {
			continue
		}
		if filter.PartnerID != 0 && s.PartnerID != filter.PartnerID {
			continue
		}
		if !filter.WeekStart.IsZero() && !s.WeekStart.Equal(filter.WeekStart) {
			continue
		}
		copy := *s
		copy.Lines = nil
		result = append(result, copy)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].WeekStart.Equal(result[j].WeekStart) {
			return result[i].WeekStart.After(result[j].WeekStart)
		}
		return result[i].ID < result[j].ID
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}
