package models

import "time"

// CampaignChannel identifies the delivery channel of a campaign.
type CampaignChannel string

const (
	// ChannelEmail delivers the campaign via email.
	ChannelEmail CampaignChannel = "email"
	// ChannelSMS delivers the campaign via SMS.
	ChannelSMS CampaignChannel = "sms"
)

// CampaignStatus is the lifecycle status of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
	CampaignFailed    CampaignStatus = "failed"
	CampaignCancelled CampaignStatus = "cancelled"
)

// Audience selector names. "specific" carries an explicit client ID list and
// bypasses consent filtering during seeding.
const (
	AudienceAllClients      = "all_clients"
	AudienceRegularClients  = "regular_clients"
	AudienceNewClients      = "new_clients"
	AudienceInactiveClients = "inactive_clients"
	AudienceSpecific        = "specific"
)

// Campaign is a single outbound marketing send definition: one audience, one
// message, one channel. Counters are cumulative across drip batches and never
// reset after creation.
type Campaign struct {
	ID                int             `json:"id"`
	Name              string          `json:"name"`
	Channel           CampaignChannel `json:"channel"`
	Audience          string          `json:"audience"`
	AudienceClientIDs []int           `json:"audience_client_ids,omitempty"`
	Subject           string          `json:"subject,omitempty"`
	Body              string          `json:"body"`
	MediaURL          string          `json:"media_url,omitempty"`
	Status            CampaignStatus  `json:"status"`
	ScheduledAt       *time.Time      `json:"scheduled_at,omitempty"`
	SentAt            *time.Time      `json:"sent_at,omitempty"`
	RecipientsCount   int             `json:"recipients_count"`
	SentCount         int             `json:"sent_count"`
	DeliveredCount    int             `json:"delivered_count"`
	FailedCount       int             `json:"failed_count"`
	OpenedCount       int             `json:"opened_count"`
	ClickedCount      int             `json:"clicked_count"`
	UnsubscribedCount int             `json:"unsubscribed_count"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Editable reports whether the campaign content can still be modified.
// Past draft/scheduled the campaign is owned by the scheduler.
func (c *Campaign) Editable() bool {
	return c.Status == CampaignDraft || c.Status == CampaignScheduled
}

// Terminal reports whether the campaign reached a final state.
func (c *Campaign) Terminal() bool {
	return c.Status == CampaignSent || c.Status == CampaignFailed || c.Status == CampaignCancelled
}

// CampaignUpdate is a partial update of a campaign. Nil fields are untouched.
type CampaignUpdate struct {
	Name              *string
	Audience          *string
	AudienceClientIDs []int
	Subject           *string
	Body              *string
	MediaURL          *string
	Status            *CampaignStatus
	ScheduledAt       *time.Time
	ClearScheduledAt  bool
	SentAt            *time.Time
	RecipientsCount   *int
}

// RecipientStatus is the delivery status of a single campaign recipient.
type RecipientStatus string

const (
	RecipientPending RecipientStatus = "pending"
	RecipientSent    RecipientStatus = "sent"
	RecipientFailed  RecipientStatus = "failed"
)

// Recipient failure reasons recorded on RecipientUpdate.ErrorMessage. Provider
// errors are stored verbatim instead.
const (
	FailureNoEmailOrPref = "no_email_or_pref"
	FailureNoPhoneOrPref = "no_phone_or_pref"
	FailureSendFailed    = "send_failed"
)

// Recipient tracks one campaign's send attempt to one client. At most one
// record exists per (campaign, client) pair; the seeding logic enforces this.
type Recipient struct {
	ID                int             `json:"id"`
	CampaignID        int             `json:"campaign_id"`
	ClientID          int             `json:"client_id"`
	Contact           string          `json:"contact"`
	Status            RecipientStatus `json:"status"`
	SentAt            *time.Time      `json:"sent_at,omitempty"`
	OpenedAt          *time.Time      `json:"opened_at,omitempty"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	ProviderMessageID string          `json:"provider_message_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// RecipientUpdate is a partial update of a recipient. Nil fields are untouched.
type RecipientUpdate struct {
	Status            *RecipientStatus
	SentAt            *time.Time
	OpenedAt          *time.Time
	ErrorMessage      *string
	ProviderMessageID *string
}
