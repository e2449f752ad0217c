// Package scheduler wires up the cron job that periodically runs the cache
// eviction policies so the local store stays bounded.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"jobsift/internal/config"
	"jobsift/internal/evict"
	"jobsift/internal/logging"
)

// Scheduler wraps robfig/cron around the eviction policies.
type Scheduler struct {
	cron     *cron.Cron
	policies *evict.Policies
	cfg      config.Config
	log      *logging.Logger

	mu      sync.Mutex
	running bool
	lastRun time.Time
}

func New(policies *evict.Policies, cfg config.Config, log *logging.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		policies: policies,
		cfg:      cfg,
		log:      log,
	}
}

// Start registers the housekeeping job and starts the cron loop. One pass
// runs immediately so a long-dormant store is trimmed without waiting for the
// first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.HousekeepingSpec, func() {
		s.runHousekeeping(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.cron.Start()
	s.log.Info("housekeeping scheduled", "spec", s.cfg.HousekeepingSpec)

	go s.runHousekeeping(ctx)
	return nil
}

// Stop shuts the cron loop down. A running housekeeping pass finishes.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunNow triggers one housekeeping pass, as the message boundary's
// run_eviction does.
func (s *Scheduler) RunNow(ctx context.Context) Report {
	return s.runHousekeeping(ctx)
}

// Report summarizes one housekeeping pass.
type Report struct {
	AgedOut          int       `json:"aged_out"`
	Pruned           int       `json:"pruned"`
	DecidedEvicted   int       `json:"decided_evicted"`
	EmbeddingsPurged int       `json:"embeddings_purged"`
	RanAt            time.Time `json:"ran_at"`
}

func (s *Scheduler) runHousekeeping(ctx context.Context) Report {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Debug("housekeeping already running, skipping tick")
		return Report{}
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.lastRun = time.Now()
		s.mu.Unlock()
	}()

	var rep Report
	rep.RanAt = time.Now().UTC()

	n, err := s.policies.DeleteOlderThan(ctx, s.cfg.MaxListingAgeDays)
	if err != nil {
		s.log.Error("age eviction failed", "err", err)
	} else {
		rep.AgedOut = n
	}

	n, err = s.policies.DeleteDecided(ctx, s.cfg.DecidedRetentionDays)
	if err != nil {
		s.log.Error("decided eviction failed", "err", err)
	} else {
		rep.DecidedEvicted = n
	}

	n, err = s.policies.PruneByScore(ctx, s.cfg.KeepTopScored)
	if err != nil {
		s.log.Error("score pruning failed", "err", err)
	} else {
		rep.Pruned = n
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -s.cfg.EmbeddingMaxAgeDays)
	n, err = s.policies.EvictEmbeddingsOlderThan(ctx, cutoff)
	if err != nil {
		s.log.Error("embedding eviction failed", "err", err)
	} else {
		rep.EmbeddingsPurged = n
	}

	if rep.AgedOut+rep.Pruned+rep.DecidedEvicted+rep.EmbeddingsPurged > 0 {
		s.log.Info("housekeeping done",
			"aged_out", rep.AgedOut,
			"pruned", rep.Pruned,
			"decided_evicted", rep.DecidedEvicted,
			"embeddings_purged", rep.EmbeddingsPurged)
	}
	return rep
}
