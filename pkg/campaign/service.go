package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glowdesk/glowdesk/pkg/logger"
	"github.com/glowdesk/glowdesk/pkg/metrics"
	"github.com/glowdesk/glowdesk/pkg/models"
	"github.com/glowdesk/glowdesk/pkg/store"
)

var (
	// ErrNotEditable is returned when modifying a campaign past draft/scheduled.
	ErrNotEditable = errors.New("campaign can no longer be edited")
	// ErrNotCancellable is returned when cancelling a terminal campaign.
	ErrNotCancellable = errors.New("campaign can no longer be cancelled")
	// ErrQuietHours is returned when an interactive SMS send falls outside
	// the allowed local-time window.
	ErrQuietHours = errors.New("send deferred: outside quiet hours window")
	// ErrInvalidChannel is returned for unknown channel values.
	ErrInvalidChannel = errors.New("invalid campaign channel")
)

// Stats is the derived view of a campaign's counters.
type Stats struct {
	CampaignID      int                    `json:"campaign_id"`
	Name            string                 `json:"name"`
	Channel         models.CampaignChannel `json:"channel"`
	Status          models.CampaignStatus  `json:"status"`
	TotalRecipients int                    `json:"total_recipients"`
	PendingCount    int                    `json:"pending_count"`
	SentCount       int                    `json:"sent_count"`
	DeliveredCount  int                    `json:"delivered_count"`
	FailedCount     int                    `json:"failed_count"`
	OpenedCount     int                    `json:"opened_count"`
	ClickedCount    int                    `json:"clicked_count"`
	DeliveryRate    float64                `json:"delivery_rate"`
	OpenRate        float64                `json:"open_rate"`
	FailureRate     float64                `json:"failure_rate"`
}

// Service is the application-facing surface for campaign management:
// CRUD, scheduling, interactive sends and statistics.
type Service struct {
	store     store.Store
	processor *Processor
	quiet     QuietHours
	logger    logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithServiceClock overrides the wall clock, for tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithServiceMetrics attaches Prometheus counters.
func WithServiceMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a campaign service.
func NewService(st store.Store, processor *Processor, quiet QuietHours, log logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:     st,
		processor: processor,
		quiet:     quiet,
		logger:    log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all campaigns.
func (s *Service) List(ctx context.Context) ([]*models.Campaign, error) {
	return s.store.ListCampaigns(ctx)
}

// Get returns one campaign.
func (s *Service) Get(ctx context.Context, id int) (*models.Campaign, error) {
	return s.store.GetCampaign(ctx, id)
}

// Create stores a new draft campaign.
func (s *Service) Create(ctx context.Context, c *models.Campaign) error {
	if c.Channel != models.ChannelEmail && c.Channel != models.ChannelSMS {
		return ErrInvalidChannel
	}
	if c.Audience == "" {
		c.Audience = models.AudienceAllClients
	}
	c.Status = models.CampaignDraft
	if err := s.store.CreateCampaign(ctx, c); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RecordCampaignCreated()
	}
	s.logger.Info("campaign created", "campaign_id", c.ID, "channel", c.Channel, "audience", c.Audience)
	return nil
}

// Update applies a partial edit. Campaigns past draft/scheduled belong to
// the scheduler and cannot be edited.
func (s *Service) Update(ctx context.Context, id int, upd models.CampaignUpdate) (*models.Campaign, error) {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Editable() {
		return nil, ErrNotEditable
	}
	// Status transitions go through Schedule/Cancel/SendNow, not Update.
	upd.Status = nil
	upd.SentAt = nil
	upd.RecipientsCount = nil
	return s.store.UpdateCampaign(ctx, id, upd)
}

// Delete removes a campaign that is not mid-send.
func (s *Service) Delete(ctx context.Context, id int) error {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return err
	}
	if c.Status == models.CampaignSending {
		return ErrNotEditable
	}
	return s.store.DeleteCampaign(ctx, id)
}

// Schedule queues a draft or scheduled campaign for the given time. The
// background scheduler picks it up on the first tick at or after sendAt.
func (s *Service) Schedule(ctx context.Context, id int, sendAt time.Time) (*models.Campaign, error) {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Editable() {
		return nil, ErrNotEditable
	}
	status := models.CampaignScheduled
	return s.store.UpdateCampaign(ctx, id, models.CampaignUpdate{Status: &status, ScheduledAt: &sendAt})
}

// Cancel stops a campaign. In-flight batches are not interrupted; the next
// tick's selection filter skips cancelled campaigns.
func (s *Service) Cancel(ctx context.Context, id int) (*models.Campaign, error) {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Terminal() {
		return nil, ErrNotCancellable
	}
	status := models.CampaignCancelled
	updated, err := s.store.UpdateCampaign(ctx, id, models.CampaignUpdate{Status: &status, ClearScheduledAt: true})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordCampaignCompleted(string(models.CampaignCancelled))
	}
	s.logger.Info("campaign cancelled", "campaign_id", id)
	return updated, nil
}

// SendNow kicks one batch synchronously and returns its results. Outside
// quiet hours an SMS campaign is scheduled for the next background tick
// instead of sent, and ErrQuietHours is returned.
func (s *Service) SendNow(ctx context.Context, id int) (*BatchResult, error) {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Terminal() {
		return nil, ErrNotEditable
	}

	if c.Channel == models.ChannelSMS && !s.quiet.Allows(s.now()) {
		status := models.CampaignScheduled
		sendAt := s.now()
		if _, err := s.store.UpdateCampaign(ctx, id, models.CampaignUpdate{Status: &status, ScheduledAt: &sendAt}); err != nil {
			return nil, err
		}
		s.logger.Info("interactive send deferred to next tick", "campaign_id", id)
		return nil, ErrQuietHours
	}

	return s.processor.Process(ctx, id)
}

// ListRecipients returns a campaign's recipients in seed order.
func (s *Service) ListRecipients(ctx context.Context, id int) ([]*models.Recipient, error) {
	return s.store.ListRecipients(ctx, id)
}

// GetStats returns the derived statistics for one campaign.
func (s *Service) GetStats(ctx context.Context, id int) (*Stats, error) {
	c, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.CountPendingRecipients(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending recipients: %w", err)
	}

	stats := &Stats{
		CampaignID:      c.ID,
		Name:            c.Name,
		Channel:         c.Channel,
		Status:          c.Status,
		TotalRecipients: c.RecipientsCount,
		PendingCount:    pending,
		SentCount:       c.SentCount,
		DeliveredCount:  c.DeliveredCount,
		FailedCount:     c.FailedCount,
		OpenedCount:     c.OpenedCount,
		ClickedCount:    c.ClickedCount,
	}
	if c.SentCount > 0 {
		stats.DeliveryRate = float64(c.DeliveredCount) / float64(c.SentCount) * 100
		stats.OpenRate = float64(c.OpenedCount) / float64(c.SentCount) * 100
	}
	if attempted := c.SentCount + c.FailedCount; attempted > 0 {
		stats.FailureRate = float64(c.FailedCount) / float64(attempted) * 100
	}
	return stats, nil
}
