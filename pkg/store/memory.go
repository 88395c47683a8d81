package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/glowdesk/glowdesk/pkg/models"
)

// Memory is an in-memory Store used by tests and local development.
type Memory struct {
	mu sync.RWMutex

	campaigns    map[int]*models.Campaign
	recipients   map[int]*models.Recipient
	clients      map[int]*models.Client
	appointments map[int]*models.Appointment

	nextCampaignID    int
	nextRecipientID   int
	nextClientID      int
	nextAppointmentID int
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		campaigns:         make(map[int]*models.Campaign),
		recipients:        make(map[int]*models.Recipient),
		clients:           make(map[int]*models.Client),
		appointments:      make(map[int]*models.Appointment),
		nextCampaignID:    1,
		nextRecipientID:   1,
		nextClientID:      1,
		nextAppointmentID: 1,
	}
}

func copyCampaign(c *models.Campaign) *models.Campaign {
	out := *c
	out.AudienceClientIDs = append([]int(nil), c.AudienceClientIDs...)
	return &out
}

// ListCampaigns returns all campaigns, newest first.
func (m *Memory) ListCampaigns(ctx context.Context) ([]*models.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Campaign, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		out = append(out, copyCampaign(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// GetCampaign returns one campaign by ID.
func (m *Memory) GetCampaign(ctx context.Context, id int) (*models.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.campaigns[id]
	if !ok {
		return nil, ErrCampaignNotFound
	}
	return copyCampaign(c), nil
}

// CreateCampaign inserts a campaign and fills in its ID and timestamps.
func (m *Memory) CreateCampaign(ctx context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.Status == "" {
		c.Status = models.CampaignDraft
	}
	c.ID = m.nextCampaignID
	m.nextCampaignID++
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	m.campaigns[c.ID] = copyCampaign(c)
	return nil
}

// UpdateCampaign applies a partial update and returns the stored value.
func (m *Memory) UpdateCampaign(ctx context.Context, id int, upd models.CampaignUpdate) (*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.campaigns[id]
	if !ok {
		return nil, ErrCampaignNotFound
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Audience != nil {
		c.Audience = *upd.Audience
	}
	if upd.AudienceClientIDs != nil {
		c.AudienceClientIDs = append([]int(nil), upd.AudienceClientIDs...)
	}
	if upd.Subject != nil {
		c.Subject = *upd.Subject
	}
	if upd.Body != nil {
		c.Body = *upd.Body
	}
	if upd.MediaURL != nil {
		c.MediaURL = *upd.MediaURL
	}
	if upd.Status != nil {
		c.Status = *upd.Status
	}
	if upd.ScheduledAt != nil {
		t := *upd.ScheduledAt
		c.ScheduledAt = &t
	} else if upd.ClearScheduledAt {
		c.ScheduledAt = nil
	}
	if upd.SentAt != nil {
		t := *upd.SentAt
		c.SentAt = &t
	}
	if upd.RecipientsCount != nil {
		c.RecipientsCount = *upd.RecipientsCount
	}
	c.UpdatedAt = time.Now()
	return copyCampaign(c), nil
}

// DeleteCampaign removes a campaign and its recipients.
func (m *Memory) DeleteCampaign(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.campaigns[id]; !ok {
		return ErrCampaignNotFound
	}
	delete(m.campaigns, id)
	for rid, r := range m.recipients {
		if r.CampaignID == id {
			delete(m.recipients, rid)
		}
	}
	return nil
}

// AddCampaignCounters increments the cumulative counters.
func (m *Memory) AddCampaignCounters(ctx context.Context, id int, sent, delivered, failed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.campaigns[id]
	if !ok {
		return ErrCampaignNotFound
	}
	c.SentCount += sent
	c.DeliveredCount += delivered
	c.FailedCount += failed
	c.UpdatedAt = time.Now()
	return nil
}

// ListRecipients returns a campaign's recipients in seed order.
func (m *Memory) ListRecipients(ctx context.Context, campaignID int) ([]*models.Recipient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Recipient
	for _, r := range m.recipients {
		if r.CampaignID == campaignID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateRecipient inserts a pending recipient. Inserting the same
// (campaign, client) pair twice is a no-op, matching the unique constraint
// the SQL backend enforces.
func (m *Memory) CreateRecipient(ctx context.Context, r *models.Recipient) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.recipients {
		if existing.CampaignID == r.CampaignID && existing.ClientID == r.ClientID {
			return nil
		}
	}
	if r.Status == "" {
		r.Status = models.RecipientPending
	}
	r.ID = m.nextRecipientID
	m.nextRecipientID++
	r.CreatedAt = time.Now()
	cp := *r
	m.recipients[r.ID] = &cp
	return nil
}

// UpdateRecipient applies a partial update to one recipient.
func (m *Memory) UpdateRecipient(ctx context.Context, id int, upd models.RecipientUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.recipients[id]
	if !ok {
		return ErrRecipientNotFound
	}
	if upd.Status != nil {
		r.Status = *upd.Status
	}
	if upd.SentAt != nil {
		t := *upd.SentAt
		r.SentAt = &t
	}
	if upd.OpenedAt != nil {
		t := *upd.OpenedAt
		r.OpenedAt = &t
	}
	if upd.ErrorMessage != nil {
		r.ErrorMessage = *upd.ErrorMessage
	}
	if upd.ProviderMessageID != nil {
		r.ProviderMessageID = *upd.ProviderMessageID
	}
	return nil
}

// CountPendingRecipients returns how many recipients are still pending.
func (m *Memory) CountPendingRecipients(ctx context.Context, campaignID int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, r := range m.recipients {
		if r.CampaignID == campaignID && r.Status == models.RecipientPending {
			count++
		}
	}
	return count, nil
}

// GetClient returns one client by ID.
func (m *Memory) GetClient(ctx context.Context, id int) (*models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.clients[id]
	if !ok {
		return nil, ErrClientNotFound
	}
	cp := *c
	return &cp, nil
}

// ListClientsByRole returns all clients with the given role, in creation order.
func (m *Memory) ListClientsByRole(ctx context.Context, role string) ([]*models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Client
	for _, c := range m.clients {
		if c.Role == role {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListAppointmentsByClient returns a client's appointment history.
func (m *Memory) ListAppointmentsByClient(ctx context.Context, clientID int) ([]*models.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.Appointment
	for _, a := range m.appointments {
		if a.ClientID == clientID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out, nil
}

// CreateClient inserts a client and fills in its ID.
func (m *Memory) CreateClient(ctx context.Context, c *models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.Role == "" {
		c.Role = models.RoleClient
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.ID = m.nextClientID
	m.nextClientID++
	cp := *c
	m.clients[c.ID] = &cp
	return nil
}

// CreateAppointment inserts an appointment and fills in its ID.
func (m *Memory) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.Status == "" {
		a.Status = models.AppointmentBooked
	}
	a.ID = m.nextAppointmentID
	m.nextAppointmentID++
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}
