package partners

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	couriermemory "delivery-settlement/internal/courier/infrastructure/memory"
	partnerapp "delivery-settlement/internal/partner/application"
	partnermemory "delivery-settlement/internal/partner/infrastructure/memory"
	settlementapp "delivery-settlement/internal/settlement/application"
	settlement "delivery-settlement/internal/settlement/domain"
	"delivery-settlement/internal/settlement/infrastructure/orders"
)

type clock struct{}

func (clock) Now() time.Time { return time.Date(2026, time.March, 9, 2, 0, 0, 0, time.UTC) }

func newResolver(t *testing.T) (*Resolver, *partnerapp.Service, *orders.MemorySource) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	directory, err := partnerapp.NewService(partnermemory.NewPartnerRepository(), couriermemory.NewCourierRepository(), clock{}, logger)
	require.NoError(t, err)
	source := orders.NewMemorySource()
	resolver, err := NewResolver(directory, source, logger)
	require.NoError(t, err)
	return resolver, directory, source
}

func TestResolveCourier_ProvisionsFromSourceOnce(t *testing.T) {
	resolver, directory, source := newResolver(t)
	ctx := context.Background()
	source.AddCourier(settlementapp.CourierDetails{ID: 5, FullName: "Marta Gil", Address: "Calle Luna 4"})

	first, err := resolver.ResolveCourier(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Marta Gil", first.Name)
	assert.Equal(t, int64(5), first.ExternalID)

	second, err := resolver.ResolveCourier(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	c, err := directory.FindCourierByExternalID(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, first.ID, c.PartnerID)
}

func TestResolveCourier_PrefersLocalRecord(t *testing.T) {
	resolver, directory, _ := newResolver(t)
	ctx := context.Background()

	_, contact, err := directory.CreateCourier(ctx, partnerapp.CourierProfile{ExternalID: 6, Name: "Local Rider"})
	require.NoError(t, err)

	ref, err := resolver.ResolveCourier(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, contact.ID, ref.ID)
	assert.Equal(t, "Local Rider", ref.Name)
}

func TestResolveRestaurant(t *testing.T) {
	resolver, _, source := newResolver(t)
	source.AddRestaurant(settlementapp.RestaurantDetails{ID: 9, Name: "Casa Verde", Location: "Av. Sur"})

	ref, err := resolver.ResolveRestaurant(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "Casa Verde", ref.Name)
	assert.NotZero(t, ref.ID)
}

func TestResolve_Unresolvable(t *testing.T) {
	resolver, _, source := newResolver(t)
	ctx := context.Background()

	_, err := resolver.ResolveCourier(ctx, 404)
	assert.ErrorIs(t, err, settlement.ErrPartnerUnresolved)

	source.FailWith(errors.New("orders db down"))
	_, err = resolver.ResolveRestaurant(ctx, 404)
	assert.ErrorIs(t, err, settlement.ErrPartnerUnresolved)
}
