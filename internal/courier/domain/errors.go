package courier

import "errors"

var (
	// ErrCourierNotFound is returned when a courier reference does not resolve.
	ErrCourierNotFound = errors.New("courier: not found")
	// ErrCourierExists is returned when provisioning a duplicate external id.
	ErrCourierExists = errors.New("courier: already exists")
	// ErrInvalidExternalID is returned for non-positive external ids.
	ErrInvalidExternalID = errors.New("courier: invalid external id")
	// ErrNilCourier is returned when saving a nil courier.
	ErrNilCourier = errors.New("courier: nil courier")
)
