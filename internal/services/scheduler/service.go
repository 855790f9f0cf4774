package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/interfaces"
)

// refreshTimeout bounds one scheduled catalogue refresh.
const refreshTimeout = 10 * time.Minute

// Service refreshes the static catalogue (listings, company records,
// trade calendar) on a cron schedule. One job, one schedule; overlapping
// runs are skipped.
type Service struct {
	cfg     *common.SchedulerConfig
	catalog interfaces.CatalogService
	logger  arbor.ILogger

	mu         sync.Mutex
	cron       *cron.Cron
	entryID    cron.EntryID
	running    bool
	refreshing bool
}

var _ interfaces.SchedulerService = (*Service)(nil)

func NewService(cfg *common.SchedulerConfig, catalog interfaces.CatalogService, logger arbor.ILogger) *Service {
	return &Service{
		cfg:     cfg,
		catalog: catalog,
		logger:  logger,
	}
}

// Start registers the refresh job and starts the cron loop. Disabled
// configuration is a quiet no-op so callers can wire unconditionally.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Enabled {
		s.logger.Info().Msg("Catalogue refresh scheduler disabled")
		return nil
	}
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if err := common.ValidateSchedule(s.cfg.Schedule); err != nil {
		return err
	}

	s.cron = cron.New(cron.WithSeconds())
	entryID, err := s.cron.AddFunc(s.cfg.Schedule, s.refresh)
	if err != nil {
		return fmt.Errorf("failed to schedule catalogue refresh: %w", err)
	}
	s.entryID = entryID
	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", s.cfg.Schedule).
		Msg("Catalogue refresh scheduler started")
	return nil
}

// Stop halts the cron loop and waits for an in-flight refresh to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	c := s.cron
	s.cron = nil
	s.running = false
	s.mu.Unlock()

	<-c.Stop().Done()
	s.logger.Info().Msg("Catalogue refresh scheduler stopped")
}

// IsRunning reports whether the cron loop is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled refresh time.
func (s *Service) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.cron == nil {
		return time.Time{}, false
	}
	return s.cron.Entry(s.entryID).Next, true
}

// TriggerNow runs the catalogue refresh immediately.
func (s *Service) TriggerNow(ctx context.Context) error {
	s.logger.Info().Msg("Manual catalogue refresh triggered")
	return s.catalog.Bootstrap(ctx)
}

// refresh is the scheduled job body. A refresh that overlaps a still
// running one is skipped rather than queued.
func (s *Service) refresh() {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		s.logger.Warn().Msg("Catalogue refresh still running, skipping this cycle")
		return
	}
	s.refreshing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	started := time.Now()
	if err := s.catalog.Bootstrap(ctx); err != nil {
		s.logger.Error().
			Err(err).
			Msg("Scheduled catalogue refresh failed")
		return
	}
	s.logger.Info().
		Int("listings", s.catalog.Count()).
		Str("duration", time.Since(started).Round(time.Millisecond).String()).
		Msg("Scheduled catalogue refresh complete")
}
