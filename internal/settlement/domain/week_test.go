package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviousWeek(t *testing.T) {
	cases := []struct {
		now   time.Time
		start string
	}{
		{time.Date(2026, time.March, 9, 0, 5, 0, 0, time.UTC), "2026-03-02"},  // Monday
		{time.Date(2026, time.March, 11, 12, 0, 0, 0, time.UTC), "2026-03-02"}, // Wednesday
		{time.Date(2026, time.March, 15, 23, 0, 0, 0, time.UTC), "2026-03-02"}, // Sunday
	}
	for _, tc := range cases {
		week := PreviousWeek(tc.now)
		assert.Equal(t, tc.start, week.Start.Format(dateLayout), tc.now.String())
		assert.Equal(t, time.Monday, week.Start.Weekday())
		assert.Equal(t, time.Sunday, week.End.Weekday())
		assert.Equal(t, 6*24*time.Hour, week.End.Sub(week.Start))
	}
}

func TestNewWeek(t *testing.T) {
	week, err := NewWeek(
		time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 8, 1, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02 to 2026-03-08", week.String())

	_, err = NewWeek(week.End, week.Start)
	assert.ErrorIs(t, err, ErrInvalidWeek)
	_, err = NewWeek(time.Time{}, week.End)
	assert.ErrorIs(t, err, ErrInvalidWeek)
}

func TestParseWeek(t *testing.T) {
	week, err := ParseWeek("2026-03-02", "2026-03-08")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, week.Start.Weekday())

	_, err = ParseWeek("03/02/2026", "2026-03-08")
	assert.ErrorIs(t, err, ErrInvalidWeek)
}
