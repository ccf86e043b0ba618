package settlement

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Week is an inclusive range of calendar days.
type Week struct {
	Start time.Time
	End   time.Time
}

// NewWeek truncates both bounds to UTC dates and checks their order.
func NewWeek(start, end time.Time) (Week, error) {
	if start.IsZero() || end.IsZero() {
		return Week{}, ErrInvalidWeek
	}
	week := Week{Start: dateOf(start), End: dateOf(end)}
	if week.End.Before(week.Start) {
		return Week{}, ErrInvalidWeek
	}
	return week, nil
}

// PreviousWeek returns Monday to Sunday of the week before now.
func PreviousWeek(now time.Time) Week {
	today := dateOf(now)
	sinceMonday := (int(today.Weekday()) + 6) % 7
	start := today.AddDate(0, 0, -(sinceMonday + 7))
	return Week{Start: start, End: start.AddDate(0, 0, 6)}
}

// ParseWeek parses YYYY-MM-DD bounds.
func ParseWeek(start, end string) (Week, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return Week{}, fmt.Errorf("%w: week start %q", ErrInvalidWeek, start)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return Week{}, fmt.Errorf("%w: week end %q", ErrInvalidWeek, end)
	}
	return NewWeek(s, e)
}

func (w Week) String() string {
	return w.Start.Format(dateLayout) + " to " + w.End.Format(dateLayout)
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
