package courier

import (
	"fmt"
	"time"
)

// HighVolumeThreshold is the hourly delivery count that must be exceeded
// before the high-volume bonus activates.
const HighVolumeThreshold = 5

// Courier is a delivery courier and its rolling volume state.
type Courier struct {
	ID         int64  `json:"id"`
	ExternalID int64  `json:"external_courier_id"`
	PartnerID  int64  `json:"partner_id"`
	Name       string `json:"name"`

	DeliveriesToday    int        `json:"deliveries_today"`
	DeliveriesThisHour int        `json:"deliveries_this_hour"`
	LastDeliveryAt     *time.Time `json:"last_delivery_at,omitempty"`
	HighVolumeActive   bool       `json:"high_volume_active"`

	CreatedAt time.Time `json:"created_at"`
}

// New builds a courier with zeroed volume state.
func New(externalID, partnerID int64, partnerName string, now time.Time) (*Courier, error) {
	if externalID <= 0 {
		return nil, ErrInvalidExternalID
	}
	return &Courier{
		ExternalID: externalID,
		PartnerID:  partnerID,
		Name:       DisplayName(partnerName, externalID),
		CreatedAt:  now.UTC(),
	}, nil
}

// DisplayName renders "<name> (#<external id>)", or "Courier #<id>" when the
// contact has no name.
func DisplayName(partnerName string, externalID int64) string {
	if partnerName == "" {
		return fmt.Sprintf("Courier #%d", externalID)
	}
	return fmt.Sprintf("%s (#%d)", partnerName, externalID)
}

// RecordDelivery counts one delivery completed at now.
//
// The hourly counter restarts at 1 whenever now falls in a different clock
// hour than the previous delivery. Once the hourly count passes
// HighVolumeThreshold the bonus stays active until ResetDaily.
func (c *Courier) RecordDelivery(now time.Time) {
	if c.LastDeliveryAt != nil && hourBucket(*c.LastDeliveryAt).Equal(hourBucket(now)) {
		c.DeliveriesThisHour++
	} else {
		c.DeliveriesThisHour = 1
	}

	at := now.UTC()
	c.LastDeliveryAt = &at
	c.DeliveriesToday++

	if c.DeliveriesThisHour > HighVolumeThreshold {
		c.HighVolumeActive = true
	}
}

// ResetDaily clears the daily volume state.
func (c *Courier) ResetDaily() {
	c.DeliveriesToday = 0
	c.DeliveriesThisHour = 0
	c.HighVolumeActive = false
}

// Clone returns a detached copy.
func (c *Courier) Clone() *Courier {
	if c == nil {
		return nil
	}
	copy := *c
	if c.LastDeliveryAt != nil {
		at := *c.LastDeliveryAt
		copy.LastDeliveryAt = &at
	}
	return &copy
}

func hourBucket(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
}
