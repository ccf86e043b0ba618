package memory

import (
	"context"
	"sync"

	partner "delivery-settlement/internal/partner/domain"
)

type partnerKey struct {
	kind       partner.Kind
	externalID int64
}

// PartnerRepository is an in-memory repository for partners.
type PartnerRepository struct {
	mu         sync.RWMutex
	nextID     int64
	data       map[int64]partner.Partner
	byExternal map[partnerKey]int64
}

// NewPartnerRepository constructs a repository.
func NewPartnerRepository() *PartnerRepository {
	return &PartnerRepository{
		data:       make(map[int64]partner.Partner),
		byExternal: make(map[partnerKey]int64),
	}
}

// Create stores a partner and assigns its id.
func (r *PartnerRepository) Create(ctx context.Context, p *partner.Partner) error {
	_ = ctx
	if p == nil {
		return partner.ErrNilPartner
	}
	key := partnerKey{kind: p.Kind, externalID: p.ExternalID}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byExternal[key]; ok {
		return partner.ErrPartnerExists
	}
	r.nextID++
	p.ID = r.nextID
	r.data[p.ID] = *p
	r.byExternal[key] = p.ID
	return nil
}

// FindByID loads a partner.
func (r *PartnerRepository) FindByID(ctx context.Context, id int64) (*partner.Partner, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.data[id]
	if !ok {
		return nil, partner.ErrPartnerNotFound
	}
	return &p, nil
}

// FindByExternalID loads a partner by kind and platform id.
func (r *PartnerRepository) FindByExternalID(ctx context.Context, kind partner.Kind, externalID int64) (*partner.Partner, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byExternal[partnerKey{kind: kind, externalID: externalID}]
	if !ok {
		return nil, partner.ErrPartnerNotFound
	}
	p := r.data[id]
	return &p, nil
}
