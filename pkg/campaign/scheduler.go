package campaign

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/glowdesk/glowdesk/pkg/logger"
	"github.com/glowdesk/glowdesk/pkg/metrics"
	"github.com/glowdesk/glowdesk/pkg/models"
	"github.com/glowdesk/glowdesk/pkg/store"
)

// ErrSchedulerStopped is returned by Tick after a fatal store error has
// shut the scheduler down.
var ErrSchedulerStopped = errors.New("scheduler stopped")

// SchedulerHandle is a running scheduler instance. The process that
// bootstraps the service owns the handle; Stop consumes it. Exactly one
// handle should exist per deployment.
type SchedulerHandle struct {
	cron    *cron.Cron
	stopped *atomic.Bool
}

// Stop halts the recurring timer. In-flight ticks run to completion.
func (h *SchedulerHandle) Stop() {
	h.stopped.Store(true)
	ctx := h.cron.Stop()
	<-ctx.Done()
}

// Scheduler discovers campaigns due to send and drives the drip processor
// over them on a recurring interval.
type Scheduler struct {
	store     store.Store
	processor *Processor
	logger    logger.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	now       func() time.Time

	ticking atomic.Bool
	stopped atomic.Bool
}

// SchedulerOption customizes a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerClock overrides the wall clock, for tests.
func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) { s.now = now }
}

// WithSchedulerMetrics attaches Prometheus counters.
func WithSchedulerMetrics(m *metrics.Metrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

// NewScheduler creates a campaign scheduler.
func NewScheduler(st store.Store, processor *Processor, interval time.Duration, log logger.Logger, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:     st,
		processor: processor,
		logger:    log,
		interval:  interval,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs an immediate first tick, then ticks on the configured
// interval, and returns the handle that owns the timer.
func (s *Scheduler) Start(ctx context.Context) (*SchedulerHandle, error) {
	c := cron.New()
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := c.AddFunc(spec, func() {
		if err := s.Tick(context.Background()); err != nil && err != ErrSchedulerStopped {
			s.logger.Error("scheduler tick failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to register scheduler job: %w", err)
	}

	s.logger.Info("campaign scheduler starting", "interval", s.interval.String())
	if err := s.Tick(ctx); err != nil && err != ErrSchedulerStopped {
		s.logger.Error("initial scheduler tick failed", "error", err)
	}
	c.Start()

	return &SchedulerHandle{cron: c, stopped: &s.stopped}, nil
}

// Tick runs one scheduling pass: due scheduled campaigns first, then
// campaigns already mid-send. Overlapping ticks are dropped; a store error
// stops the scheduler for good.
func (s *Scheduler) Tick(ctx context.Context) error {
	if s.stopped.Load() {
		return ErrSchedulerStopped
	}
	if !s.ticking.CompareAndSwap(false, true) {
		s.logger.Warn("scheduler tick skipped, previous tick still running")
		return nil
	}
	defer s.ticking.Store(false)

	if s.metrics != nil {
		s.metrics.RecordSchedulerTick()
	}

	campaigns, err := s.store.ListCampaigns(ctx)
	if err != nil {
		// A broken store cannot be out-ticked. Stop instead of spinning.
		s.stopped.Store(true)
		s.logger.Error("scheduler stopping after store failure", "error", err)
		return fmt.Errorf("failed to list campaigns: %w", err)
	}

	now := s.now()
	var due, inProgress []*models.Campaign
	for _, c := range campaigns {
		switch {
		case c.Status == models.CampaignScheduled && c.ScheduledAt != nil && !c.ScheduledAt.After(now):
			due = append(due, c)
		case c.Status == models.CampaignSending:
			inProgress = append(inProgress, c)
		}
	}

	for _, c := range append(due, inProgress...) {
		if s.stopped.Load() {
			return ErrSchedulerStopped
		}
		if _, err := s.processor.Process(ctx, c.ID); err != nil {
			s.logger.Error("campaign processing failed", "campaign_id", c.ID, "error", err)
			failed := models.CampaignFailed
			if _, markErr := s.store.UpdateCampaign(ctx, c.ID, models.CampaignUpdate{Status: &failed}); markErr != nil {
				s.logger.Error("failed to mark campaign failed", "campaign_id", c.ID, "error", markErr)
			} else if s.metrics != nil {
				s.metrics.RecordCampaignCompleted(string(models.CampaignFailed))
			}
		}
	}
	return nil
}

// Stopped reports whether the scheduler has shut itself down.
func (s *Scheduler) Stopped() bool {
	return s.stopped.Load()
}
