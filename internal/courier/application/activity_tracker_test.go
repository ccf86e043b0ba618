package application_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"delivery-settlement/internal/courier/application"
	courier "delivery-settlement/internal/courier/domain"
	"delivery-settlement/internal/courier/infrastructure/memory"
)

func TestActivityTracker_RecordDeliveryReturnsCommittedState(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCourierRepository()
	c := mustCourier(t, repo, 77)
	clock := &stepClock{now: time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)}
	tracker := newTracker(t, repo, clock)

	var last *courier.Courier
	for i := 0; i < 6; i++ {
		var err error
		last, err = tracker.RecordDelivery(ctx, c.ID)
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	assert.True(t, last.HighVolumeActive)
	assert.Equal(t, 6, last.DeliveriesThisHour)

	stored, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, stored.DeliveriesToday)
	assert.True(t, stored.HighVolumeActive)
}

func TestActivityTracker_RecordDeliveryWithDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCourierRepository()
	c := mustCourier(t, repo, 78)
	tracker := newTracker(t, repo, &stepClock{now: time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)})
	failed := errors.New("downstream write failed")

	var seen int
	_, err := tracker.RecordDeliveryWith(ctx, c.ID, func(_ context.Context, state *courier.Courier) error {
		seen = state.DeliveriesThisHour
		return failed
	})
	require.ErrorIs(t, err, failed)
	assert.Equal(t, 1, seen)

	stored, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.DeliveriesToday)
	assert.Nil(t, stored.LastDeliveryAt)
}

func TestActivityTracker_UnknownCourier(t *testing.T) {
	repo := memory.NewCourierRepository()
	tracker := newTracker(t, repo, &stepClock{now: time.Now().UTC()})

	_, err := tracker.RecordDelivery(context.Background(), 999)
	assert.ErrorIs(t, err, courier.ErrCourierNotFound)
}

func TestActivityTracker_ConcurrentDeliveriesAreSerialized(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCourierRepository()
	c := mustCourier(t, repo, 5)
	tracker := newTracker(t, repo, &stepClock{now: time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)})

	const workers = 40
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := tracker.RecordDelivery(ctx, c.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := repo.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, workers, stored.DeliveriesToday)
	assert.Equal(t, workers, stored.DeliveriesThisHour)
	assert.True(t, stored.HighVolumeActive)
}

func TestActivityTracker_ResetAllDaily(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCourierRepository()
	clock := &stepClock{now: time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)}
	tracker := newTracker(t, repo, clock)

	ids := []int64{}
	for ext := int64(1); ext <= 3; ext++ {
		c := mustCourier(t, repo, ext)
		ids = append(ids, c.ID)
		for i := 0; i < 7; i++ {
			_, err := tracker.RecordDelivery(ctx, c.ID)
			require.NoError(t, err)
		}
	}

	count, err := tracker.ResetAllDaily(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	for _, id := range ids {
		stored, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, stored.DeliveriesToday)
		assert.Zero(t, stored.DeliveriesThisHour)
		assert.False(t, stored.HighVolumeActive)
	}
}

func newTracker(t *testing.T, repo courier.Repository, clock application.Clock) *application.ActivityTracker {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	tracker, err := application.NewActivityTracker(repo, clock, logger)
	require.NoError(t, err)
	return tracker
}

func mustCourier(t *testing.T, repo courier.Repository, externalID int64) *courier.Courier {
	t.Helper()
	c, err := courier.New(externalID, externalID*10, "Courier", time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
