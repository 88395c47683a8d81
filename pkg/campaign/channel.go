package campaign

import (
	"context"
	"strings"
	"time"

	"github.com/glowdesk/glowdesk/pkg/email"
	"github.com/glowdesk/glowdesk/pkg/models"
	"github.com/glowdesk/glowdesk/pkg/phone"
	"github.com/glowdesk/glowdesk/pkg/sms"
)

// SendOutcome is the result of one delivery attempt. Provider errors are
// folded into Error so one bad recipient never aborts a batch.
type SendOutcome struct {
	Success   bool
	MessageID string
	Error     string
}

// Channel abstracts the per-channel behavior the drip processor needs:
// contact resolution, consent checks, body formatting and the actual send.
// The processor selects a strategy once per campaign and stays
// channel-agnostic after that.
type Channel interface {
	Name() models.CampaignChannel
	// BatchSize bounds how many pending recipients one tick may process.
	BatchSize() int
	// SendDelay is the pause inserted between consecutive sends.
	SendDelay() time.Duration
	// ResolveContact returns the client's address for this channel, or ""
	// when the client has none.
	ResolveContact(c *models.Client) string
	// HasConsent reports the client's promotional opt-in for this channel.
	HasConsent(c *models.Client) bool
	// ContactKey normalizes an address to its dedup identity.
	ContactKey(contact string) string
	// Format prepares the outbound body (compliance text for SMS).
	Format(body string) string
	// MissingContactReason is the failure reason recorded when a recipient
	// has no usable address or no consent.
	MissingContactReason() string
	Send(ctx context.Context, contact string, cmp *models.Campaign, client *models.Client) SendOutcome
}

// EmailChannel delivers campaigns through the email service.
type EmailChannel struct {
	sender    email.Sender
	batchSize int
	sendDelay time.Duration
}

var _ Channel = (*EmailChannel)(nil)

// NewEmailChannel creates the email strategy.
func NewEmailChannel(sender email.Sender, batchSize int, sendDelay time.Duration) *EmailChannel {
	return &EmailChannel{sender: sender, batchSize: batchSize, sendDelay: sendDelay}
}

func (e *EmailChannel) Name() models.CampaignChannel { return models.ChannelEmail }
func (e *EmailChannel) BatchSize() int               { return e.batchSize }
func (e *EmailChannel) SendDelay() time.Duration     { return e.sendDelay }

func (e *EmailChannel) ResolveContact(c *models.Client) string {
	return strings.ToLower(strings.TrimSpace(c.Email))
}

func (e *EmailChannel) HasConsent(c *models.Client) bool { return c.EmailPromoOptIn }

func (e *EmailChannel) ContactKey(contact string) string {
	return strings.ToLower(strings.TrimSpace(contact))
}

// Format is a pass-through; email bodies carry no compliance suffix.
func (e *EmailChannel) Format(body string) string { return body }

func (e *EmailChannel) MissingContactReason() string { return models.FailureNoEmailOrPref }

func (e *EmailChannel) Send(ctx context.Context, contact string, cmp *models.Campaign, client *models.Client) SendOutcome {
	res, err := e.sender.Send(ctx, contact, client.FullName(), cmp.Subject, cmp.Body, "")
	if err != nil {
		return SendOutcome{Error: err.Error()}
	}
	return SendOutcome{Success: true, MessageID: res.MessageID}
}

// SMSChannel delivers campaigns through the SMS provider.
type SMSChannel struct {
	provider   sms.Provider
	fromNumber string
	region     string
	batchSize  int
	sendDelay  time.Duration
}

var _ Channel = (*SMSChannel)(nil)

// NewSMSChannel creates the SMS strategy. region is the default ISO country
// code for phone parsing.
func NewSMSChannel(provider sms.Provider, fromNumber, region string, batchSize int, sendDelay time.Duration) *SMSChannel {
	return &SMSChannel{
		provider:   provider,
		fromNumber: fromNumber,
		region:     region,
		batchSize:  batchSize,
		sendDelay:  sendDelay,
	}
}

func (s *SMSChannel) Name() models.CampaignChannel { return models.ChannelSMS }
func (s *SMSChannel) BatchSize() int               { return s.batchSize }
func (s *SMSChannel) SendDelay() time.Duration     { return s.sendDelay }

func (s *SMSChannel) ResolveContact(c *models.Client) string {
	raw := strings.TrimSpace(c.Phone)
	if raw == "" {
		return ""
	}
	if e164, err := phone.Normalize(raw, s.region); err == nil {
		return e164
	}
	return raw
}

func (s *SMSChannel) HasConsent(c *models.Client) bool { return c.SMSPromoOptIn }

func (s *SMSChannel) ContactKey(contact string) string {
	return phone.CanonicalKey(contact, s.region)
}

// Format guarantees the body carries opt-out instructions.
func (s *SMSChannel) Format(body string) string { return FormatSMSBody(body) }

func (s *SMSChannel) MissingContactReason() string { return models.FailureNoPhoneOrPref }

func (s *SMSChannel) Send(ctx context.Context, contact string, cmp *models.Campaign, client *models.Client) SendOutcome {
	res, err := s.provider.SendSMS(ctx, contact, s.fromNumber, s.Format(cmp.Body), cmp.MediaURL)
	if err != nil {
		return SendOutcome{Error: err.Error()}
	}
	return SendOutcome{Success: true, MessageID: res.SID}
}
