package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/metrics"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
)

// MarkRefresher is the part of GameService the scheduler drives.
type MarkRefresher interface {
	ActiveGameIDs(ctx context.Context) ([]string, error)
	RefreshMarks(ctx context.Context, gameID, trigger string) (model.MarkRefresh, error)
}

// Scheduler refreshes the mark prices of every active game on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	games   MarkRefresher
	timeout time.Duration
	spec    string
}

// NewScheduler parses spec (standard five-field cron syntax) and registers the
// refresh job. Each run is bounded by timeout.
func NewScheduler(spec string, games MarkRefresher, timeout time.Duration) (*Scheduler, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	s := &Scheduler{
		cron:    c,
		games:   games,
		timeout: timeout,
		spec:    spec,
	}
	if _, err := c.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Str("schedule", s.spec).Msg("mark refresh scheduler started")
}

// Stop prevents new runs and waits for a running one to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn().Msg("mark refresh still running at shutdown")
	}
}

// RunOnce refreshes every active game once. Failures are logged per game and do
// not stop the run.
func (s *Scheduler) RunOnce() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ids, err := s.games.ActiveGameIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list active games for mark refresh")
		return
	}

	refreshed := 0
	for _, id := range ids {
		if _, err := s.games.RefreshMarks(ctx, id, metrics.TriggerScheduled); err != nil {
			log.Error().Err(err).Str("game_id", id).Msg("scheduled mark refresh failed")
			continue
		}
		refreshed++
	}
	log.Info().Int("games", len(ids)).Int("refreshed", refreshed).Msg("scheduled mark refresh complete")
}
