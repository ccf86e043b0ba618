package fees

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxDistanceKm is the longest delivery that can be priced.
const MaxDistanceKm = 100.0

// Courier share of the base fee, in percent. The company keeps the rest.
const (
	RegularCourierPercent = 60
	BonusCourierPercent   = 65
)

var hundred = decimal.NewFromInt(100)

// tier maps distances below UpToKm to Fee. Tiers are ascending and the
// last tier is open-ended up to MaxDistanceKm.
type tier struct {
	UpToKm float64
	Fee    float64
}

var baseFeeTiers = []tier{
	{UpToKm: 5, Fee: 2.0},
	{UpToKm: 7, Fee: 3.0},
}

const longDistanceFee = 5.0

// FeeCalculation is an immutable record of one fee decision.
type FeeCalculation struct {
	ID              int64     `json:"id"`
	CourierID       int64     `json:"courier_id"`
	ExternalOrderID int64     `json:"external_order_id,omitempty"`
	DistanceKm      float64   `json:"distance_km"`
	BaseFee         float64   `json:"delivery_fee"`
	CompanyShare    float64   `json:"company_share"`
	CourierShare    float64   `json:"courier_share"`
	HighVolumeBonus bool      `json:"high_volume_bonus"`
	CreatedAt       time.Time `json:"created_at"`
}

// ValidateDistance rejects distances outside (0, MaxDistanceKm].
func ValidateDistance(distanceKm float64) error {
	if !(distanceKm > 0) || distanceKm > MaxDistanceKm {
		return ErrInvalidDistance
	}
	return nil
}

// BaseFee returns the tiered base fee for a distance.
func BaseFee(distanceKm float64) (float64, error) {
	if err := ValidateDistance(distanceKm); err != nil {
		return 0, err
	}
	for _, t := range baseFeeTiers {
		if distanceKm < t.UpToKm {
			return t.Fee, nil
		}
	}
	return longDistanceFee, nil
}

// Split divides the base fee between company and courier. The courier
// share is the remainder after the rounded company share, so the two
// always add up to the base fee.
func Split(baseFee float64, highVolumeBonus bool) (company, courier float64) {
	pct := decimal.NewFromInt(100 - CourierPercent(highVolumeBonus))
	base := decimal.NewFromFloat(baseFee).Round(2)
	companyShare := base.Mul(pct).Div(hundred).Round(2)
	courierShare := base.Sub(companyShare)
	return companyShare.InexactFloat64(), courierShare.InexactFloat64()
}

// CourierPercent returns the courier's share percentage.
func CourierPercent(highVolumeBonus bool) int64 {
	if highVolumeBonus {
		return BonusCourierPercent
	}
	return RegularCourierPercent
}

// NewFeeCalculation prices a delivery for a courier whose bonus state is
// already known.
func NewFeeCalculation(courierID int64, distanceKm float64, highVolumeBonus bool, now time.Time) (*FeeCalculation, error) {
	if courierID <= 0 {
		return nil, ErrInvalidID
	}
	baseFee, err := BaseFee(distanceKm)
	if err != nil {
		return nil, err
	}
	company, courier := Split(baseFee, highVolumeBonus)
	return &FeeCalculation{
		CourierID:       courierID,
		DistanceKm:      distanceKm,
		BaseFee:         baseFee,
		CompanyShare:    company,
		CourierShare:    courier,
		HighVolumeBonus: highVolumeBonus,
		CreatedAt:       now.UTC(),
	}, nil
}
