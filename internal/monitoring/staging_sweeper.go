package monitoring

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Sweeper removes stale staged files. *staging.Stager satisfies it.
type Sweeper interface {
	Sweep(maxAge time.Duration) (int, error)
}

// StagingSweeper periodically clears staging files left behind by crashes.
type StagingSweeper struct {
	sweeper Sweeper
	maxAge  time.Duration
	cron    *cron.Cron
}

// NewStagingSweeper creates a sweeper that runs on a standard cron schedule.
func NewStagingSweeper(sweeper Sweeper, schedule string, maxAge time.Duration) (*StagingSweeper, error) {
	s := &StagingSweeper{
		sweeper: sweeper,
		maxAge:  maxAge,
		cron:    cron.New(),
	}
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run sweeps once immediately, then on schedule until Stop is called.
func (s *StagingSweeper) Run() {
	log.Info().Msg("Starting staging sweeper...")
	s.RunOnce()
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *StagingSweeper) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Second):
	}
	log.Info().Msg("Stopped staging sweeper.")
}

// RunOnce performs a single sweep.
func (s *StagingSweeper) RunOnce() {
	removed, err := s.sweeper.Sweep(s.maxAge)
	if err != nil {
		log.Error().Err(err).Msg("StagingSweeper: sweep failed")
		return
	}
	if removed > 0 {
		log.Warn().Int("removed", removed).Msg("StagingSweeper: removed stale staging files")
	}
}

