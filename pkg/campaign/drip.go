package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/glowdesk/glowdesk/pkg/logger"
	"github.com/glowdesk/glowdesk/pkg/metrics"
	"github.com/glowdesk/glowdesk/pkg/models"
	"github.com/glowdesk/glowdesk/pkg/store"
)

// BatchResult summarizes one drip tick for one campaign.
type BatchResult struct {
	CampaignID       int  `json:"campaign_id"`
	Seeded           int  `json:"seeded"`
	Processed        int  `json:"processed"`
	Sent             int  `json:"sent"`
	Failed           int  `json:"failed"`
	Skipped          int  `json:"skipped"`
	RemainingPending int  `json:"remaining_pending"`
	Completed        bool `json:"completed"`
}

// Processor drives one campaign through one drip tick: seed on first run,
// send one bounded batch, update recipient and campaign state. It is the
// sole writer of recipient status and campaign counters.
type Processor struct {
	store    store.Store
	resolver *AudienceResolver
	channels map[models.CampaignChannel]Channel
	claimer  Claimer
	logger   logger.Logger
	metrics  *metrics.Metrics

	sendTimeout time.Duration
	now         func() time.Time
	sleep       func(time.Duration)
}

// ProcessorOption customizes a Processor.
type ProcessorOption func(*Processor)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

// WithSleep overrides the inter-send delay function, for tests.
func WithSleep(sleep func(time.Duration)) ProcessorOption {
	return func(p *Processor) { p.sleep = sleep }
}

// WithMetrics attaches Prometheus counters.
func WithMetrics(m *metrics.Metrics) ProcessorOption {
	return func(p *Processor) { p.metrics = m }
}

// WithSendTimeout bounds each individual provider call. A hung call turns
// into a failed recipient instead of starving the scheduler.
func WithSendTimeout(d time.Duration) ProcessorOption {
	return func(p *Processor) { p.sendTimeout = d }
}

// NewProcessor creates a drip processor for the given channels.
func NewProcessor(st store.Store, resolver *AudienceResolver, channels []Channel, claimer Claimer, log logger.Logger, opts ...ProcessorOption) *Processor {
	byName := make(map[models.CampaignChannel]Channel, len(channels))
	for _, ch := range channels {
		byName[ch.Name()] = ch
	}
	p := &Processor{
		store:       st,
		resolver:    resolver,
		channels:    byName,
		claimer:     claimer,
		logger:      log,
		sendTimeout: 30 * time.Second,
		now:         time.Now,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs one drip tick for the campaign: transition to sending, seed
// if this is the first run, deliver one batch, then reconcile counters and
// status. Store errors propagate; provider errors never do.
func (p *Processor) Process(ctx context.Context, campaignID int) (*BatchResult, error) {
	c, err := p.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Terminal() {
		return &BatchResult{CampaignID: c.ID, Completed: c.Status == models.CampaignSent}, nil
	}

	ch, ok := p.channels[c.Channel]
	if !ok {
		return nil, fmt.Errorf("no channel strategy for %q", c.Channel)
	}

	if c.Status != models.CampaignSending {
		sending := models.CampaignSending
		if c, err = p.store.UpdateCampaign(ctx, c.ID, models.CampaignUpdate{Status: &sending}); err != nil {
			return nil, err
		}
	}

	result := &BatchResult{CampaignID: c.ID}
	start := p.now()

	seeded, err := p.seed(ctx, c, ch)
	if err != nil {
		return nil, err
	}
	result.Seeded = seeded

	if err := p.sendBatch(ctx, c, ch, result); err != nil {
		return nil, err
	}

	if result.Sent > 0 || result.Failed > 0 {
		// Delivered stays 0 from this path. Delivery receipts arrive on
		// provider webhooks this service does not ingest; the additive store
		// update leaves the column free for an external receipt consumer.
		if err := p.store.AddCampaignCounters(ctx, c.ID, result.Sent, 0, result.Failed); err != nil {
			return nil, err
		}
	}

	pending, err := p.store.CountPendingRecipients(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	result.RemainingPending = pending

	if pending == 0 {
		sent := models.CampaignSent
		sentAt := p.now()
		if _, err := p.store.UpdateCampaign(ctx, c.ID, models.CampaignUpdate{Status: &sent, SentAt: &sentAt}); err != nil {
			return nil, err
		}
		result.Completed = true
		if p.metrics != nil {
			p.metrics.RecordCampaignCompleted(string(models.CampaignSent))
		}
	}

	if p.metrics != nil {
		p.metrics.RecordBatchDuration(string(c.Channel), p.now().Sub(start))
	}

	p.logger.Info("campaign batch processed",
		"campaign_id", c.ID,
		"channel", c.Channel,
		"seeded", result.Seeded,
		"sent", result.Sent,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"remaining", result.RemainingPending,
	)
	return result, nil
}

// seed creates pending recipients on the campaign's first run. Existing
// recipients make this a no-op, so restarts and overlapping ticks never
// queue the same contact twice.
func (p *Processor) seed(ctx context.Context, c *models.Campaign, ch Channel) (int, error) {
	existing, err := p.store.ListRecipients(ctx, c.ID)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	candidates, err := p.resolver.Resolve(ctx, c)
	if err != nil {
		return 0, err
	}

	bypassConsent := c.Audience == models.AudienceSpecific
	seen := make(map[string]bool)
	created := 0

	for _, client := range candidates {
		contact := ch.ResolveContact(client)
		if contact == "" {
			continue
		}
		if !bypassConsent && !ch.HasConsent(client) {
			continue
		}
		key := ch.ContactKey(contact)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		r := &models.Recipient{CampaignID: c.ID, ClientID: client.ID, Contact: contact}
		if err := p.store.CreateRecipient(ctx, r); err != nil {
			return created, err
		}
		created++
	}

	count := created
	if _, err := p.store.UpdateCampaign(ctx, c.ID, models.CampaignUpdate{RecipientsCount: &count}); err != nil {
		return created, err
	}
	if p.metrics != nil {
		p.metrics.RecordRecipientsSeeded(created)
	}
	p.logger.Info("campaign seeded", "campaign_id", c.ID, "recipients", created, "candidates", len(candidates))
	return created, nil
}

// sendBatch drains one bounded prefix of pending recipients, one at a time
// with the channel's delay between sends.
func (p *Processor) sendBatch(ctx context.Context, c *models.Campaign, ch Channel, result *BatchResult) error {
	recipients, err := p.store.ListRecipients(ctx, c.ID)
	if err != nil {
		return err
	}

	var batch []*models.Recipient
	for _, r := range recipients {
		if r.Status == models.RecipientPending {
			batch = append(batch, r)
			if len(batch) == ch.BatchSize() {
				break
			}
		}
	}

	bypassConsent := c.Audience == models.AudienceSpecific

	for i, r := range batch {
		claimed, err := p.claimer.Claim(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("failed to claim recipient %d: %w", r.ID, err)
		}
		if !claimed {
			// Another worker owns this recipient; leave it pending.
			result.Skipped++
			continue
		}

		result.Processed++
		if err := p.sendOne(ctx, c, ch, r, bypassConsent, result); err != nil {
			return err
		}

		if i < len(batch)-1 {
			p.sleep(ch.SendDelay())
		}
	}
	return nil
}

// sendOne delivers to a single claimed recipient and records the outcome.
// Only store errors are returned.
func (p *Processor) sendOne(ctx context.Context, c *models.Campaign, ch Channel, r *models.Recipient, bypassConsent bool, result *BatchResult) error {
	client, err := p.store.GetClient(ctx, r.ClientID)
	if err == store.ErrClientNotFound {
		p.releaseClaim(ctx, r.ID)
		return p.markFailed(ctx, ch, r, ch.MissingContactReason(), result)
	}
	if err != nil {
		return err
	}

	// Preferences may have changed since seeding; re-validate before sending.
	contact := ch.ResolveContact(client)
	if contact == "" || (!bypassConsent && !ch.HasConsent(client)) {
		p.releaseClaim(ctx, r.ID)
		return p.markFailed(ctx, ch, r, ch.MissingContactReason(), result)
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.sendTimeout)
	outcome := ch.Send(sendCtx, contact, c, client)
	cancel()

	if !outcome.Success {
		reason := outcome.Error
		if reason == "" {
			reason = models.FailureSendFailed
		}
		return p.markFailed(ctx, ch, r, reason, result)
	}

	sent := models.RecipientSent
	sentAt := p.now()
	upd := models.RecipientUpdate{Status: &sent, SentAt: &sentAt}
	if outcome.MessageID != "" {
		upd.ProviderMessageID = &outcome.MessageID
	}
	if err := p.store.UpdateRecipient(ctx, r.ID, upd); err != nil {
		return err
	}
	result.Sent++
	if p.metrics != nil {
		p.metrics.RecordMessageSent(string(ch.Name()))
	}
	return nil
}

// releaseClaim frees a claim that ended in no send attempt. The recipient's
// status update is what prevents reprocessing; the claim just stops holding
// the slot for the full TTL.
func (p *Processor) releaseClaim(ctx context.Context, recipientID int) {
	if err := p.claimer.Release(ctx, recipientID); err != nil {
		p.logger.Warn("failed to release recipient claim", "recipient_id", recipientID, "error", err)
	}
}

func (p *Processor) markFailed(ctx context.Context, ch Channel, r *models.Recipient, reason string, result *BatchResult) error {
	failed := models.RecipientFailed
	if err := p.store.UpdateRecipient(ctx, r.ID, models.RecipientUpdate{Status: &failed, ErrorMessage: &reason}); err != nil {
		return err
	}
	result.Failed++
	if p.metrics != nil {
		p.metrics.RecordMessageFailed(string(ch.Name()))
	}
	return nil
}
