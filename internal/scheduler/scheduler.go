package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-now/internal/weather"
)

// jobTimeout bounds a single scheduled refresh.
const jobTimeout = 60 * time.Second

// Fetcher starts a fetch and reports its terminal state.
type Fetcher interface {
	Fetch(ctx context.Context, coord *weather.Coordinate) <-chan weather.State
}

// CoordinateSource reports the current coordinate, nil while unknown.
type CoordinateSource interface {
	Coordinate() *weather.Coordinate
}

// Scheduler periodically refreshes the weather for the current location.
type Scheduler struct {
	scheduler *gocron.Scheduler
	fetcher   Fetcher
	location  CoordinateSource
	interval  time.Duration
	cronExpr  string
	logger    *slog.Logger
}

// New creates a Scheduler. A non-empty cronExpr takes precedence over interval.
func New(fetcher Fetcher, location CoordinateSource, interval time.Duration, cronExpr string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		fetcher:   fetcher,
		location:  location,
		interval:  interval,
		cronExpr:  cronExpr,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	var err error
	if s.cronExpr != "" {
		_, err = s.scheduler.Cron(s.cronExpr).SingletonMode().Do(s.refresh)
	} else {
		interval := s.interval
		if interval <= 0 {
			interval = 15 * time.Minute
		}
		_, err = s.scheduler.Every(interval).SingletonMode().Do(s.refresh)
	}
	if err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "interval", s.interval, "cron", s.cronExpr)
	return nil
}

func (s *Scheduler) refresh() {
	coord := s.location.Coordinate()
	if coord == nil {
		s.logger.Debug("no location yet; delegating to orchestrator")
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	select {
	case state := <-s.fetcher.Fetch(ctx, coord):
		s.logger.Debug("scheduled refresh finished", "state", state)
	case <-ctx.Done():
		s.logger.Warn("scheduled refresh timed out")
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
