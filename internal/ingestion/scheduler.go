package ingestion

import (
	"context"
	"time"

	"github.com/bearhedge/navledger/internal/logger"
)

// Scheduler fires one merge per day at a fixed local hour in the
// reporting timezone, after the trading day it covers has closed.
type Scheduler struct {
	pipeline *Pipeline
	loc      *time.Location
	hour     int
}

func NewScheduler(pipeline *Pipeline, loc *time.Location, hour int) *Scheduler {
	return &Scheduler{pipeline: pipeline, loc: loc, hour: hour}
}

// Start blocks, running the pipeline at each scheduled tick until ctx is
// cancelled. A failed run is logged and retried at the next tick; the
// checkpoint guarantees the retry re-covers whatever the failure skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	for {
		next := s.nextTick(time.Now().In(s.loc))
		logger.L().Info().Time("next_run", next).Msg("merge scheduled")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if err := s.pipeline.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.L().Error().Err(err).Msg("scheduled merge failed; will retry at next tick")
		}
	}
}

// nextTick returns the next occurrence of the scheduled hour strictly
// after now.
func (s *Scheduler) nextTick(now time.Time) time.Time {
	tick := time.Date(now.Year(), now.Month(), now.Day(), s.hour, 0, 0, 0, s.loc)
	if !tick.After(now) {
		tick = tick.AddDate(0, 0, 1)
	}
	return tick
}
