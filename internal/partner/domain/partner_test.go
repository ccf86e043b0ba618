package partner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.FixedZone("X", 3600))
	p, err := New(KindRestaurant, 7, "  Pizza Place ", now)
	require.NoError(t, err)
	assert.Equal(t, "Pizza Place", p.Name)
	assert.Equal(t, time.UTC, p.CreatedAt.Location())

	_, err = New(KindCourier, 0, "A", now)
	assert.ErrorIs(t, err, ErrInvalidExternalID)
	_, err = New(KindCourier, 1, " ", now)
	assert.ErrorIs(t, err, ErrEmptyName)
	_, err = New("customer", 1, "A", now)
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestParseKind(t *testing.T) {
	kind, err := ParseKind(" Courier")
	require.NoError(t, err)
	assert.Equal(t, KindCourier, kind)

	_, err = ParseKind("")
	assert.ErrorIs(t, err, ErrInvalidKind)
}
