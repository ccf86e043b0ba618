package interfaces

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"delivery-settlement/internal/settlement/application"
)

// LoggingPublisher logs settlement created events.
type LoggingPublisher struct {
	logger logrus.FieldLogger
}

// NewLoggingPublisher constructs a logging publisher.
func NewLoggingPublisher(logger logrus.FieldLogger) *LoggingPublisher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LoggingPublisher{logger: logger}
}

// PublishSettlementCreated logs the event.
func (p *LoggingPublisher) PublishSettlementCreated(ctx context.Context, event application.SettlementCreated) error {
	_ = ctx
	if p == nil {
		return errors.New("settlement publisher: nil publisher")
	}
	p.logger.WithFields(logrus.Fields{
		"settlement_id": event.SettlementID,
		"partner_id":    event.PartnerID,
		"partner_kind":  event.PartnerKind,
		"week_start":    event.WeekStart.Format("2006-01-02"),
		"amount":        event.Amount,
		"bill_ref":      event.BillRef,
	}).Info("settlement created")
	return nil
}
