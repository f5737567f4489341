package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Expirer releases bookings stuck in checkout.
type Expirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// Janitor periodically expires pending bookings.
type Janitor struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger
}

// NewJanitor schedules target.ExpireStale every interval. Runs never overlap.
func NewJanitor(target Expirer, interval, timeout time.Duration, logger *zap.Logger) (*Janitor, error) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if timeout <= 0 {
		timeout = time.Minute
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("janitor: create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if _, err := target.ExpireStale(ctx); err != nil {
				logger.Error("expire pending bookings", zap.Error(err))
			}
		}),
		gocron.WithName("expire-pending-bookings"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("janitor: create job: %w", err)
	}

	return &Janitor{scheduler: s, logger: logger}, nil
}

// Start begins scheduling.
func (j *Janitor) Start() {
	j.logger.Info("starting booking janitor")
	j.scheduler.Start()
}

// Stop waits for a running job and stops the scheduler.
func (j *Janitor) Stop() error {
	return j.scheduler.Shutdown()
}
