package application_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	courier "delivery-settlement/internal/courier/domain"
	couriermemory "delivery-settlement/internal/courier/infrastructure/memory"
	"delivery-settlement/internal/partner/application"
	partner "delivery-settlement/internal/partner/domain"
	partnermemory "delivery-settlement/internal/partner/infrastructure/memory"
)

func newService(t *testing.T) (*application.Service, *partnermemory.PartnerRepository) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	partners := partnermemory.NewPartnerRepository()
	svc, err := application.NewService(partners, couriermemory.NewCourierRepository(), nil, logger)
	require.NoError(t, err)
	return svc, partners
}

func TestCreateCourier(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	c, contact, err := svc.CreateCourier(ctx, application.CourierProfile{ExternalID: 42, Name: "Ana Lima", Phone: "555"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima (#42)", c.Name)
	assert.Equal(t, contact.ID, c.PartnerID)
	assert.Equal(t, partner.KindCourier, contact.Kind)
	assert.Equal(t, "555", contact.Phone)

	found, err := svc.FindCourierByExternalID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)

	_, _, err = svc.CreateCourier(ctx, application.CourierProfile{ExternalID: 42, Name: "Again"})
	assert.ErrorIs(t, err, courier.ErrCourierExists)
}

func TestCreateCourier_ReusesOrphanContact(t *testing.T) {
	svc, partners := newService(t)
	ctx := context.Background()

	orphan, err := partner.New(partner.KindCourier, 9, "Left Over", testNow)
	require.NoError(t, err)
	require.NoError(t, partners.Create(ctx, orphan))

	c, contact, err := svc.CreateCourier(ctx, application.CourierProfile{ExternalID: 9, Name: "Left Over"})
	require.NoError(t, err)
	assert.Equal(t, orphan.ID, contact.ID)
	assert.Equal(t, orphan.ID, c.PartnerID)
}

func TestCreateCourier_Validation(t *testing.T) {
	svc, _ := newService(t)
	_, _, err := svc.CreateCourier(context.Background(), application.CourierProfile{ExternalID: 0, Name: "A"})
	assert.ErrorIs(t, err, partner.ErrInvalidExternalID)
	_, _, err = svc.CreateCourier(context.Background(), application.CourierProfile{ExternalID: 3})
	assert.ErrorIs(t, err, partner.ErrEmptyName)
}

func TestCreateRestaurant(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	lat, lng := 41.0, 29.0

	p, err := svc.CreateRestaurant(ctx, application.RestaurantProfile{ExternalID: 5, Name: "Kebab House", Lat: &lat, Lng: &lng})
	require.NoError(t, err)
	assert.Equal(t, partner.KindRestaurant, p.Kind)

	found, err := svc.FindRestaurantByExternalID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
	require.NotNil(t, found.Lat)
	assert.Equal(t, 41.0, *found.Lat)

	_, err = svc.CreateRestaurant(ctx, application.RestaurantProfile{ExternalID: 5, Name: "Kebab House"})
	assert.ErrorIs(t, err, partner.ErrRestaurantExists)

	_, err = svc.FindRestaurantByExternalID(ctx, 6)
	assert.ErrorIs(t, err, partner.ErrPartnerNotFound)
}

var testNow = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
