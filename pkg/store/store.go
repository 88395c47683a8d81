package store

import (
	"context"
	"errors"

	"github.com/glowdesk/glowdesk/pkg/models"
)

var (
	// ErrCampaignNotFound is returned when a campaign doesn't exist.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrRecipientNotFound is returned when a recipient doesn't exist.
	ErrRecipientNotFound = errors.New("recipient not found")
	// ErrClientNotFound is returned when a client doesn't exist.
	ErrClientNotFound = errors.New("client not found")
)

// Store is the persistence boundary of the campaign engine. Every method is
// mandatory; backends that cannot support an operation must return an explicit
// error rather than be probed for optional capabilities.
type Store interface {
	// Campaigns
	ListCampaigns(ctx context.Context) ([]*models.Campaign, error)
	GetCampaign(ctx context.Context, id int) (*models.Campaign, error)
	CreateCampaign(ctx context.Context, c *models.Campaign) error
	UpdateCampaign(ctx context.Context, id int, upd models.CampaignUpdate) (*models.Campaign, error)
	DeleteCampaign(ctx context.Context, id int) error
	// AddCampaignCounters increments the cumulative campaign counters. The
	// deltas are added to the stored values, never assigned, so concurrent
	// ticks and manual edits cannot lose increments.
	AddCampaignCounters(ctx context.Context, id int, sent, delivered, failed int) error

	// Recipients
	ListRecipients(ctx context.Context, campaignID int) ([]*models.Recipient, error)
	CreateRecipient(ctx context.Context, r *models.Recipient) error
	UpdateRecipient(ctx context.Context, id int, upd models.RecipientUpdate) error
	CountPendingRecipients(ctx context.Context, campaignID int) (int, error)

	// Clients and appointments (read side of the audience resolver)
	GetClient(ctx context.Context, id int) (*models.Client, error)
	ListClientsByRole(ctx context.Context, role string) ([]*models.Client, error)
	ListAppointmentsByClient(ctx context.Context, clientID int) ([]*models.Appointment, error)

	// Write side used by the seeder and tests
	CreateClient(ctx context.Context, c *models.Client) error
	CreateAppointment(ctx context.Context, a *models.Appointment) error
}
