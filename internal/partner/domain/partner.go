package partner

import (
	"strings"
	"time"
)

// Kind distinguishes couriers from restaurants.
type Kind string

const (
	KindCourier    Kind = "courier"
	KindRestaurant Kind = "restaurant"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindCourier || k == KindRestaurant
}

// ParseKind converts a request value into a Kind.
func ParseKind(value string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(value)))
	if !kind.Valid() {
		return "", ErrInvalidKind
	}
	return kind, nil
}

// Partner is a payable counterparty.
type Partner struct {
	ID         int64    `json:"id"`
	Kind       Kind     `json:"kind"`
	ExternalID int64    `json:"external_id"`
	Name       string   `json:"name"`
	Phone      string   `json:"phone,omitempty"`
	Email      string   `json:"email,omitempty"`
	Address    string   `json:"address,omitempty"`
	Lat        *float64 `json:"location_lat,omitempty"`
	Lng        *float64 `json:"location_lng,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// New validates and builds a partner.
func New(kind Kind, externalID int64, name string, now time.Time) (*Partner, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	if externalID <= 0 {
		return nil, ErrInvalidExternalID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	return &Partner{
		Kind:       kind,
		ExternalID: externalID,
		Name:       name,
		CreatedAt:  now.UTC(),
	}, nil
}
