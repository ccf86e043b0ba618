package partner

import "errors"

var (
	// ErrPartnerNotFound is returned when a partner does not exist.
	ErrPartnerNotFound = errors.New("partner: not found")
	// ErrPartnerExists is returned when a partner with the same kind and external id exists.
	ErrPartnerExists = errors.New("partner: already exists")
	// ErrRestaurantExists is returned when registering a known restaurant.
	ErrRestaurantExists = errors.New("partner: restaurant already exists")
	// ErrEmptyName is returned when a partner has no name.
	ErrEmptyName = errors.New("partner: empty name")
	// ErrInvalidExternalID is returned for non-positive external ids.
	ErrInvalidExternalID = errors.New("partner: invalid external id")
	// ErrInvalidKind is returned for an unknown partner kind.
	ErrInvalidKind = errors.New("partner: invalid kind")
	// ErrNilPartner is returned when saving a nil partner.
	ErrNilPartner = errors.New("partner: nil partner")
)
