package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	courier "delivery-settlement/internal/courier/domain"
	partner "delivery-settlement/internal/partner/domain"
)

// CourierProfile is the data needed to register a courier.
type CourierProfile struct {
	ExternalID int64
	Name       string
	Phone      string
	Email      string
	Address    string
}

// RestaurantProfile is the data needed to register a restaurant.
type RestaurantProfile struct {
	ExternalID int64
	Name       string
	Address    string
	Lat        *float64
	Lng        *float64
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Service registers couriers and restaurants and looks them up.
type Service struct {
	partners partner.Repository
	couriers courier.Repository
	clock    Clock
	logger   logrus.FieldLogger
}

// NewService constructs the partner service.
func NewService(partners partner.Repository, couriers courier.Repository, clock Clock, logger logrus.FieldLogger) (*Service, error) {
	if partners == nil {
		return nil, errors.New("partner service: nil partner repository")
	}
	if couriers == nil {
		return nil, errors.New("partner service: nil courier repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{partners: partners, couriers: couriers, clock: clock, logger: logger}, nil
}

// CreateCourier registers the courier contact and its activity record.
// A contact left behind by an earlier partial registration is reused.
func (s *Service) CreateCourier(ctx context.Context, profile CourierProfile) (*courier.Courier, *partner.Partner, error) {
	if profile.ExternalID <= 0 {
		return nil, nil, partner.ErrInvalidExternalID
	}
	if _, err := s.couriers.FindByExternalID(ctx, profile.ExternalID); err == nil {
		return nil, nil, courier.ErrCourierExists
	} else if !errors.Is(err, courier.ErrCourierNotFound) {
		return nil, nil, err
	}

	now := s.clock.Now()
	contact, err := s.partners.FindByExternalID(ctx, partner.KindCourier, profile.ExternalID)
	if errors.Is(err, partner.ErrPartnerNotFound) {
		contact, err = partner.New(partner.KindCourier, profile.ExternalID, profile.Name, now)
		if err != nil {
			return nil, nil, err
		}
		contact.Phone = profile.Phone
		contact.Email = profile.Email
		contact.Address = profile.Address
		err = s.partners.Create(ctx, contact)
	}
	if err != nil {
		return nil, nil, err
	}

	c, err := courier.New(profile.ExternalID, contact.ID, contact.Name, now)
	if err != nil {
		return nil, nil, err
	}
	if err := s.couriers.Create(ctx, c); err != nil {
		return nil, nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"courier_id":          c.ID,
		"external_courier_id": c.ExternalID,
		"partner_id":          contact.ID,
	}).Info("courier registered")
	return c, contact, nil
}

// CreateRestaurant registers a restaurant partner.
func (s *Service) CreateRestaurant(ctx context.Context, profile RestaurantProfile) (*partner.Partner, error) {
	p, err := partner.New(partner.KindRestaurant, profile.ExternalID, profile.Name, s.clock.Now())
	if err != nil {
		return nil, err
	}
	p.Address = profile.Address
	p.Lat = profile.Lat
	p.Lng = profile.Lng
	if err := s.partners.Create(ctx, p); err != nil {
		if errors.Is(err, partner.ErrPartnerExists) {
			return nil, partner.ErrRestaurantExists
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"partner_id":             p.ID,
		"external_restaurant_id": p.ExternalID,
	}).Info("restaurant registered")
	return p, nil
}

// Get loads a partner by id.
func (s *Service) Get(ctx context.Context, id int64) (*partner.Partner, error) {
	return s.partners.FindByID(ctx, id)
}

// FindCourierByExternalID loads a courier by its platform id.
func (s *Service) FindCourierByExternalID(ctx context.Context, externalID int64) (*courier.Courier, error) {
	return s.couriers.FindByExternalID(ctx, externalID)
}

// FindRestaurantByExternalID loads a restaurant partner by its platform id.
func (s *Service) FindRestaurantByExternalID(ctx context.Context, externalID int64) (*partner.Partner, error) {
	return s.partners.FindByExternalID(ctx, partner.KindRestaurant, externalID)
}
