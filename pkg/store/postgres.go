package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/glowdesk/glowdesk/pkg/models"
)

// Postgres implements Store on top of database/sql with the lib/pq driver.
type Postgres struct {
	DB *sql.DB
}

var _ Store = (*Postgres)(nil)

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db}
}

// schema is applied by InitSchema. Kept additive so repeated startups are safe.
const schema = `
CREATE TABLE IF NOT EXISTS clients (
	id SERIAL PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT 'client',
	email_promo_opt_in BOOLEAN NOT NULL DEFAULT FALSE,
	sms_promo_opt_in BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS appointments (
	id SERIAL PRIMARY KEY,
	client_id INTEGER NOT NULL REFERENCES clients(id),
	staff_id INTEGER,
	service TEXT NOT NULL DEFAULT '',
	start_time TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL DEFAULT 'booked'
);
CREATE INDEX IF NOT EXISTS idx_appointments_client ON appointments(client_id);

CREATE TABLE IF NOT EXISTS campaigns (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	channel TEXT NOT NULL,
	audience TEXT NOT NULL DEFAULT 'all_clients',
	audience_client_ids INTEGER[],
	subject TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	media_url TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'draft',
	scheduled_at TIMESTAMPTZ,
	sent_at TIMESTAMPTZ,
	recipients_count INTEGER NOT NULL DEFAULT 0,
	sent_count INTEGER NOT NULL DEFAULT 0,
	delivered_count INTEGER NOT NULL DEFAULT 0,
	failed_count INTEGER NOT NULL DEFAULT 0,
	opened_count INTEGER NOT NULL DEFAULT 0,
	clicked_count INTEGER NOT NULL DEFAULT 0,
	unsubscribed_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_campaigns_status ON campaigns(status);
CREATE INDEX IF NOT EXISTS idx_campaigns_scheduled_at ON campaigns(scheduled_at);

CREATE TABLE IF NOT EXISTS campaign_recipients (
	id SERIAL PRIMARY KEY,
	campaign_id INTEGER NOT NULL REFERENCES campaigns(id),
	client_id INTEGER NOT NULL,
	contact TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	sent_at TIMESTAMPTZ,
	opened_at TIMESTAMPTZ,
	error_message TEXT NOT NULL DEFAULT '',
	provider_message_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (campaign_id, client_id)
);
CREATE INDEX IF NOT EXISTS idx_campaign_recipients_campaign ON campaign_recipients(campaign_id);
CREATE INDEX IF NOT EXISTS idx_campaign_recipients_status ON campaign_recipients(campaign_id, status);
`

// InitSchema creates the tables if they don't exist yet.
func (p *Postgres) InitSchema(ctx context.Context) error {
	if _, err := p.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

const campaignColumns = `id, name, channel, audience, audience_client_ids, subject, body, media_url,
	status, scheduled_at, sent_at, recipients_count, sent_count, delivered_count, failed_count,
	opened_count, clicked_count, unsubscribed_count, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*models.Campaign, error) {
	var c models.Campaign
	var ids pq.Int64Array
	err := row.Scan(
		&c.ID, &c.Name, &c.Channel, &c.Audience, &ids, &c.Subject, &c.Body, &c.MediaURL,
		&c.Status, &c.ScheduledAt, &c.SentAt, &c.RecipientsCount, &c.SentCount, &c.DeliveredCount,
		&c.FailedCount, &c.OpenedCount, &c.ClickedCount, &c.UnsubscribedCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		c.AudienceClientIDs = append(c.AudienceClientIDs, int(id))
	}
	return &c, nil
}

func toInt64Array(ids []int) pq.Int64Array {
	out := make(pq.Int64Array, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// ListCampaigns returns all campaigns, newest first.
func (p *Postgres) ListCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT `+campaignColumns+` FROM campaigns ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// GetCampaign returns one campaign by ID.
func (p *Postgres) GetCampaign(ctx context.Context, id int) (*models.Campaign, error) {
	row := p.DB.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id=$1`, id)
	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return c, nil
}

// CreateCampaign inserts a campaign and fills in its ID and timestamps.
func (p *Postgres) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	if c.Status == "" {
		c.Status = models.CampaignDraft
	}
	err := p.DB.QueryRowContext(ctx, `
		INSERT INTO campaigns (name, channel, audience, audience_client_ids, subject, body, media_url, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		c.Name, c.Channel, c.Audience, toInt64Array(c.AudienceClientIDs), c.Subject, c.Body, c.MediaURL, c.Status, c.ScheduledAt,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

// UpdateCampaign applies a partial update and returns the stored row.
func (p *Postgres) UpdateCampaign(ctx context.Context, id int, upd models.CampaignUpdate) (*models.Campaign, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{}
	pos := 1

	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, pos))
		args = append(args, val)
		pos++
	}

	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Audience != nil {
		add("audience", *upd.Audience)
	}
	if upd.AudienceClientIDs != nil {
		add("audience_client_ids", toInt64Array(upd.AudienceClientIDs))
	}
	if upd.Subject != nil {
		add("subject", *upd.Subject)
	}
	if upd.Body != nil {
		add("body", *upd.Body)
	}
	if upd.MediaURL != nil {
		add("media_url", *upd.MediaURL)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.ScheduledAt != nil {
		add("scheduled_at", *upd.ScheduledAt)
	} else if upd.ClearScheduledAt {
		sets = append(sets, "scheduled_at = NULL")
	}
	if upd.SentAt != nil {
		add("sent_at", *upd.SentAt)
	}
	if upd.RecipientsCount != nil {
		add("recipients_count", *upd.RecipientsCount)
	}

	query := fmt.Sprintf(`UPDATE campaigns SET %s WHERE id = $%d RETURNING `+campaignColumns,
		strings.Join(sets, ", "), pos)
	args = append(args, id)

	c, err := scanCampaign(p.DB.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update campaign: %w", err)
	}
	return c, nil
}

// DeleteCampaign removes a campaign and its recipients.
func (p *Postgres) DeleteCampaign(ctx context.Context, id int) error {
	if _, err := p.DB.ExecContext(ctx, `DELETE FROM campaign_recipients WHERE campaign_id=$1`, id); err != nil {
		return fmt.Errorf("failed to delete recipients: %w", err)
	}
	res, err := p.DB.ExecContext(ctx, `DELETE FROM campaigns WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

// AddCampaignCounters increments the cumulative counters in a single statement.
func (p *Postgres) AddCampaignCounters(ctx context.Context, id int, sent, delivered, failed int) error {
	res, err := p.DB.ExecContext(ctx, `
		UPDATE campaigns
		SET sent_count = sent_count + $1,
		    delivered_count = delivered_count + $2,
		    failed_count = failed_count + $3,
		    updated_at = NOW()
		WHERE id = $4`,
		sent, delivered, failed, id)
	if err != nil {
		return fmt.Errorf("failed to add campaign counters: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

const recipientColumns = `id, campaign_id, client_id, contact, status, sent_at, opened_at,
	error_message, provider_message_id, created_at`

// ListRecipients returns a campaign's recipients in seed order.
func (p *Postgres) ListRecipients(ctx context.Context, campaignID int) ([]*models.Recipient, error) {
	rows, err := p.DB.QueryContext(ctx,
		`SELECT `+recipientColumns+` FROM campaign_recipients WHERE campaign_id=$1 ORDER BY id`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	var recipients []*models.Recipient
	for rows.Next() {
		var r models.Recipient
		if err := rows.Scan(&r.ID, &r.CampaignID, &r.ClientID, &r.Contact, &r.Status,
			&r.SentAt, &r.OpenedAt, &r.ErrorMessage, &r.ProviderMessageID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, &r)
	}
	return recipients, rows.Err()
}

// CreateRecipient inserts a pending recipient. The unique (campaign, client)
// constraint backs up the seed-once guard.
func (p *Postgres) CreateRecipient(ctx context.Context, r *models.Recipient) error {
	if r.Status == "" {
		r.Status = models.RecipientPending
	}
	err := p.DB.QueryRowContext(ctx, `
		INSERT INTO campaign_recipients (campaign_id, client_id, contact, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (campaign_id, client_id) DO NOTHING
		RETURNING id, created_at`,
		r.CampaignID, r.ClientID, r.Contact, r.Status,
	).Scan(&r.ID, &r.CreatedAt)
	if err == sql.ErrNoRows {
		// Already seeded by a concurrent run; treat as success.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create recipient: %w", err)
	}
	return nil
}

// UpdateRecipient applies a partial update to one recipient.
func (p *Postgres) UpdateRecipient(ctx context.Context, id int, upd models.RecipientUpdate) error {
	sets := []string{}
	args := []any{}
	pos := 1

	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, pos))
		args = append(args, val)
		pos++
	}

	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.SentAt != nil {
		add("sent_at", *upd.SentAt)
	}
	if upd.OpenedAt != nil {
		add("opened_at", *upd.OpenedAt)
	}
	if upd.ErrorMessage != nil {
		add("error_message", *upd.ErrorMessage)
	}
	if upd.ProviderMessageID != nil {
		add("provider_message_id", *upd.ProviderMessageID)
	}
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf(`UPDATE campaign_recipients SET %s WHERE id = $%d`, strings.Join(sets, ", "), pos)
	args = append(args, id)

	res, err := p.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update recipient: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRecipientNotFound
	}
	return nil
}

// CountPendingRecipients returns how many recipients are still pending.
func (p *Postgres) CountPendingRecipients(ctx context.Context, campaignID int) (int, error) {
	var count int
	err := p.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM campaign_recipients WHERE campaign_id=$1 AND status=$2`,
		campaignID, models.RecipientPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending recipients: %w", err)
	}
	return count, nil
}

const clientColumns = `id, first_name, last_name, email, phone, role, email_promo_opt_in, sms_promo_opt_in, created_at`

// GetClient returns one client by ID.
func (p *Postgres) GetClient(ctx context.Context, id int) (*models.Client, error) {
	var c models.Client
	err := p.DB.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id=$1`, id).Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Role,
		&c.EmailPromoOptIn, &c.SMSPromoOptIn, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &c, nil
}

// ListClientsByRole returns all clients with the given role, in creation order.
func (p *Postgres) ListClientsByRole(ctx context.Context, role string) ([]*models.Client, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE role=$1 ORDER BY id`, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Role,
			&c.EmailPromoOptIn, &c.SMSPromoOptIn, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, &c)
	}
	return clients, rows.Err()
}

// ListAppointmentsByClient returns a client's appointment history.
func (p *Postgres) ListAppointmentsByClient(ctx context.Context, clientID int) ([]*models.Appointment, error) {
	rows, err := p.DB.QueryContext(ctx, `
		SELECT id, client_id, COALESCE(staff_id, 0), service, start_time, status
		FROM appointments WHERE client_id=$1 ORDER BY start_time DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	var appointments []*models.Appointment
	for rows.Next() {
		var a models.Appointment
		if err := rows.Scan(&a.ID, &a.ClientID, &a.StaffID, &a.Service, &a.StartTime, &a.Status); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, &a)
	}
	return appointments, rows.Err()
}

// CreateClient inserts a client and fills in its ID.
func (p *Postgres) CreateClient(ctx context.Context, c *models.Client) error {
	if c.Role == "" {
		c.Role = models.RoleClient
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	err := p.DB.QueryRowContext(ctx, `
		INSERT INTO clients (first_name, last_name, email, phone, role, email_promo_opt_in, sms_promo_opt_in, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Role, c.EmailPromoOptIn, c.SMSPromoOptIn, createdAt,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// CreateAppointment inserts an appointment and fills in its ID.
func (p *Postgres) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	if a.Status == "" {
		a.Status = models.AppointmentBooked
	}
	err := p.DB.QueryRowContext(ctx, `
		INSERT INTO appointments (client_id, staff_id, service, start_time, status)
		VALUES ($1, NULLIF($2, 0), $3, $4, $5)
		RETURNING id`,
		a.ClientID, a.StaffID, a.Service, a.StartTime, a.Status,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}
