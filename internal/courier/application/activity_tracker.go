package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	courier "delivery-settlement/internal/courier/domain"
	"delivery-settlement/internal/observability/metrics"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ActivityTracker owns the courier volume counters that drive the
// high-volume bonus.
type ActivityTracker struct {
	repo   courier.Repository
	clock  Clock
	logger logrus.FieldLogger
}

// NewActivityTracker constructs the tracker.
func NewActivityTracker(repo courier.Repository, clock Clock, logger logrus.FieldLogger) (*ActivityTracker, error) {
	if repo == nil {
		return nil, errors.New("activity tracker: nil repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ActivityTracker{repo: repo, clock: clock, logger: logger}, nil
}

// RecordDelivery counts a delivery for the courier and returns the state
// committed by that update.
func (t *ActivityTracker) RecordDelivery(ctx context.Context, courierID int64) (*courier.Courier, error) {
	return t.RecordDeliveryWith(ctx, courierID, nil)
}

// RecordDeliveryWith counts a delivery and runs then against the updated
// state before the counters are committed. An error from then leaves the
// courier untouched.
func (t *ActivityTracker) RecordDeliveryWith(ctx context.Context, courierID int64, then courier.UpdateFunc) (*courier.Courier, error) {
	now := t.clock.Now()
	var activated bool
	updated, err := t.repo.Update(ctx, courierID, func(ctx context.Context, c *courier.Courier) error {
		wasActive := c.HighVolumeActive
		c.RecordDelivery(now)
		activated = !wasActive && c.HighVolumeActive
		if then == nil {
			return nil
		}
		return then(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	if activated {
		t.logger.WithFields(logrus.Fields{
			"courier_id":           updated.ID,
			"deliveries_this_hour": updated.DeliveriesThisHour,
		}).Info("high volume bonus activated")
	}
	return updated, nil
}

// ResetDaily clears one courier's daily counters and bonus flag.
func (t *ActivityTracker) ResetDaily(ctx context.Context, courierID int64) error {
	_, err := t.repo.Update(ctx, courierID, func(_ context.Context, c *courier.Courier) error {
		c.ResetDaily()
		return nil
	})
	return err
}

// ResetAllDaily resets every courier and returns how many were reset.
// A courier that fails to reset is logged and the sweep continues.
func (t *ActivityTracker) ResetAllDaily(ctx context.Context) (int, error) {
	ids, err := t.repo.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	reset := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return reset, err
		}
		if err := t.ResetDaily(ctx, id); err != nil {
			t.logger.WithError(err).WithField("courier_id", id).Warn("daily reset failed")
			continue
		}
		reset++
	}
	metrics.AddCourierResets(reset)
	t.logger.WithField("couriers", reset).Info("daily courier counters reset")
	return reset, nil
}
