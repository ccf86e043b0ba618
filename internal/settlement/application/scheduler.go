package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	settlement "delivery-settlement/internal/settlement/domain"
)

// WeeklyRunner settles the previous week.
type WeeklyRunner interface {
	RunPreviousWeek(ctx context.Context) ([]*settlement.Settlement, error)
}

// DailyResetter clears courier volume counters.
type DailyResetter interface {
	ResetAllDaily(ctx context.Context) (int, error)
}

// Schedule holds the UTC trigger times. Times use the "15:04" layout; an
// empty time disables that job.
type Schedule struct {
	WeeklyDay    time.Weekday
	WeeklyAt     string
	DailyResetAt string
}

// Scheduler triggers the weekly settlement run and the daily courier reset.
type Scheduler struct {
	weekly   WeeklyRunner
	resetter DailyResetter
	schedule Schedule
	logger   logrus.FieldLogger
}

// NewScheduler constructs a Scheduler.
func NewScheduler(weekly WeeklyRunner, resetter DailyResetter, schedule Schedule, logger logrus.FieldLogger) *Scheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scheduler{
		weekly:   weekly,
		resetter: resetter,
		schedule: schedule,
		logger:   logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || (s.weekly == nil && s.resetter == nil) {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(ctx, now.UTC())
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	if s.resetter != nil && atMinute(s.schedule.DailyResetAt, now) {
		if _, err := s.resetter.ResetAllDaily(ctx); err != nil {
			s.logger.WithError(err).Error("scheduled daily reset failed")
		}
	}
	if s.weekly != nil && now.Weekday() == s.schedule.WeeklyDay && atMinute(s.schedule.WeeklyAt, now) {
		if _, err := s.weekly.RunPreviousWeek(ctx); err != nil {
			s.logger.WithError(err).Error("scheduled weekly settlement failed")
		}
	}
}

func atMinute(value string, now time.Time) bool {
	if value == "" {
		return false
	}
	hour, minute, err := parseDailyAt(value)
	if err != nil {
		return false
	}
	return now.Hour() == hour && now.Minute() == minute
}

func parseDailyAt(value string) (int, int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
