package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	courier "delivery-settlement/internal/courier/domain"
	fees "delivery-settlement/internal/fees/domain"
	"delivery-settlement/internal/observability/metrics"
)

// DeliveryRecorder counts a delivery and runs then in the same unit of work,
// before the counters are committed.
type DeliveryRecorder interface {
	RecordDeliveryWith(ctx context.Context, courierID int64, then courier.UpdateFunc) (*courier.Courier, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FeeCalculator prices deliveries and records each decision.
type FeeCalculator struct {
	repo     fees.Repository
	recorder DeliveryRecorder
	clock    Clock
	logger   logrus.FieldLogger
}

// NewFeeCalculator constructs the calculator.
func NewFeeCalculator(repo fees.Repository, recorder DeliveryRecorder, clock Clock, logger logrus.FieldLogger) (*FeeCalculator, error) {
	if repo == nil {
		return nil, errors.New("fee calculator: nil repository")
	}
	if recorder == nil {
		return nil, errors.New("fee calculator: nil delivery recorder")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FeeCalculator{repo: repo, recorder: recorder, clock: clock, logger: logger}, nil
}

// Calculate prices a delivery of distanceKm for the courier.
//
// The delivery is recorded against the courier before the split is chosen,
// so the bonus decision includes the delivery being priced. The counter
// update and the stored calculation commit together.
func (c *FeeCalculator) Calculate(ctx context.Context, distanceKm float64, courierID int64) (*fees.FeeCalculation, error) {
	start := time.Now()
	calc, err := c.calculate(ctx, distanceKm, courierID)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveFeeCalculation(result, calc != nil && calc.HighVolumeBonus, time.Since(start))
	return calc, err
}

func (c *FeeCalculator) calculate(ctx context.Context, distanceKm float64, courierID int64) (*fees.FeeCalculation, error) {
	if err := fees.ValidateDistance(distanceKm); err != nil {
		return nil, err
	}
	if courierID <= 0 {
		return nil, courier.ErrCourierNotFound
	}

	var calc *fees.FeeCalculation
	state, err := c.recorder.RecordDeliveryWith(ctx, courierID, func(ctx context.Context, current *courier.Courier) error {
		priced, err := fees.NewFeeCalculation(current.ID, distanceKm, current.HighVolumeActive, c.clock.Now())
		if err != nil {
			return err
		}
		if err := c.repo.Create(ctx, priced); err != nil {
			return fmt.Errorf("store fee calculation: %w", err)
		}
		calc = priced
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"calculation_id":    calc.ID,
		"courier":           state.Name,
		"distance_km":       distanceKm,
		"delivery_fee":      calc.BaseFee,
		"high_volume_bonus": calc.HighVolumeBonus,
	}).Info("fee calculated")
	return calc, nil
}

// MarkOrderDelivered links a calculation to the delivered external order.
func (c *FeeCalculator) MarkOrderDelivered(ctx context.Context, calculationID, externalOrderID int64, orderTotal float64) error {
	if calculationID <= 0 || externalOrderID <= 0 {
		return fees.ErrInvalidID
	}
	if orderTotal < 0 {
		return fees.ErrInvalidOrderTotal
	}
	if err := c.repo.AttachOrder(ctx, calculationID, externalOrderID); err != nil {
		return err
	}
	c.logger.WithFields(logrus.Fields{
		"calculation_id": calculationID,
		"order_id":       externalOrderID,
		"order_total":    orderTotal,
	}).Info("order delivered")
	return nil
}
