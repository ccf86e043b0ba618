package fees

import "errors"

var (
	// ErrInvalidDistance is returned when distance is outside (0, MaxDistanceKm].
	ErrInvalidDistance = errors.New("fees: invalid distance")
	// ErrInvalidID is returned for non-positive ids.
	ErrInvalidID = errors.New("fees: invalid id")
	// ErrInvalidOrderTotal is returned for negative order totals.
	ErrInvalidOrderTotal = errors.New("fees: invalid order total")
	// ErrCalculationNotFound is returned when a calculation does not exist.
	ErrCalculationNotFound = errors.New("fees: calculation not found")
	// ErrNilCalculation is returned when saving a nil calculation.
	ErrNilCalculation = errors.New("fees: nil calculation")
)
