package partners

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	courier "delivery-settlement/internal/courier/domain"
	partnerapp "delivery-settlement/internal/partner/application"
	partner "delivery-settlement/internal/partner/domain"
	settlementapp "delivery-settlement/internal/settlement/application"
	settlement "delivery-settlement/internal/settlement/domain"
)

// Directory is the partner registry used for resolution.
type Directory interface {
	Get(ctx context.Context, id int64) (*partner.Partner, error)
	FindCourierByExternalID(ctx context.Context, externalID int64) (*courier.Courier, error)
	FindRestaurantByExternalID(ctx context.Context, externalID int64) (*partner.Partner, error)
	CreateCourier(ctx context.Context, profile partnerapp.CourierProfile) (*courier.Courier, *partner.Partner, error)
	CreateRestaurant(ctx context.Context, profile partnerapp.RestaurantProfile) (*partner.Partner, error)
}

// Resolver finds local partners and provisions missing ones from the order
// platform.
type Resolver struct {
	directory Directory
	source    settlementapp.OrderSource
	logger    logrus.FieldLogger
}

// NewResolver constructs a resolver.
func NewResolver(directory Directory, source settlementapp.OrderSource, logger logrus.FieldLogger) (*Resolver, error) {
	if directory == nil {
		return nil, errors.New("partner resolver: nil directory")
	}
	if source == nil {
		return nil, errors.New("partner resolver: nil order source")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Resolver{directory: directory, source: source, logger: logger}, nil
}

// ResolveCourier returns the courier's contact, registering the courier
// when only the order platform knows it.
func (r *Resolver) ResolveCourier(ctx context.Context, externalID int64) (settlement.PartnerRef, error) {
	c, err := r.directory.FindCourierByExternalID(ctx, externalID)
	if errors.Is(err, courier.ErrCourierNotFound) {
		c, err = r.provisionCourier(ctx, externalID)
	}
	if err != nil {
		return settlement.PartnerRef{}, err
	}
	contact, err := r.directory.Get(ctx, c.PartnerID)
	if err != nil {
		return settlement.PartnerRef{}, fmt.Errorf("courier %d contact: %w", externalID, err)
	}
	return settlement.PartnerRef{ID: contact.ID, ExternalID: externalID, Name: contact.Name}, nil
}

// ResolveRestaurant returns the restaurant partner, registering it when only
// the order platform knows it.
func (r *Resolver) ResolveRestaurant(ctx context.Context, externalID int64) (settlement.PartnerRef, error) {
	p, err := r.directory.FindRestaurantByExternalID(ctx, externalID)
	if errors.Is(err, partner.ErrPartnerNotFound) {
		p, err = r.provisionRestaurant(ctx, externalID)
	}
	if err != nil {
		return settlement.PartnerRef{}, err
	}
	return settlement.PartnerRef{ID: p.ID, ExternalID: externalID, Name: p.Name}, nil
}

func (r *Resolver) provisionCourier(ctx context.Context, externalID int64) (*courier.Courier, error) {
	details, err := r.source.FetchCourierDetails(ctx, externalID)
	if err != nil {
		r.logger.WithError(err).WithField("external_courier_id", externalID).Warn("courier lookup at order source failed")
		details = nil
	}
	if details == nil {
		return nil, fmt.Errorf("courier %d: %w", externalID, settlement.ErrPartnerUnresolved)
	}

	c, _, err := r.directory.CreateCourier(ctx, partnerapp.CourierProfile{
		ExternalID: externalID,
		Name:       details.FullName,
		Address:    details.Address,
	})
	if errors.Is(err, courier.ErrCourierExists) {
		return r.directory.FindCourierByExternalID(ctx, externalID)
	}
	if err != nil {
		return nil, fmt.Errorf("courier %d: %w: %v", externalID, settlement.ErrPartnerUnresolved, err)
	}
	r.logger.WithFields(logrus.Fields{
		"external_courier_id": externalID,
		"courier":             c.Name,
	}).Info("courier provisioned from order source")
	return c, nil
}

func (r *Resolver) provisionRestaurant(ctx context.Context, externalID int64) (*partner.Partner, error) {
	details, err := r.source.FetchRestaurantDetails(ctx, externalID)
	if err != nil {
		r.logger.WithError(err).WithField("external_restaurant_id", externalID).Warn("restaurant lookup at order source failed")
		details = nil
	}
	if details == nil {
		return nil, fmt.Errorf("restaurant %d: %w", externalID, settlement.ErrPartnerUnresolved)
	}

	p, err := r.directory.CreateRestaurant(ctx, partnerapp.RestaurantProfile{
		ExternalID: externalID,
		Name:       details.Name,
		Address:    details.Location,
	})
	if errors.Is(err, partner.ErrRestaurantExists) {
		return r.directory.FindRestaurantByExternalID(ctx, externalID)
	}
	if err != nil {
		return nil, fmt.Errorf("restaurant %d: %w: %v", externalID, settlement.ErrPartnerUnresolved, err)
	}
	r.logger.WithFields(logrus.Fields{
		"external_restaurant_id": externalID,
		"restaurant":             p.Name,
	}).Info("restaurant provisioned from order source")
	return p, nil
}
