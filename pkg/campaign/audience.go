package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/glowdesk/glowdesk/pkg/logger"
	"github.com/glowdesk/glowdesk/pkg/models"
	"github.com/glowdesk/glowdesk/pkg/store"
)

// AudienceConfig holds the trailing windows used to classify clients.
type AudienceConfig struct {
	// RegularWindow is how far back completed appointments count toward
	// "regular" status.
	RegularWindow time.Duration
	// RegularMinVisits is the completed-appointment threshold for "regular".
	RegularMinVisits int
	// NewWindow bounds how recently a client must have been created to
	// count as "new".
	NewWindow time.Duration
	// InactiveWindow is the span with zero appointments that makes a
	// client "inactive".
	InactiveWindow time.Duration
}

// DefaultAudienceConfig returns the standard classification windows.
func DefaultAudienceConfig() AudienceConfig {
	return AudienceConfig{
		RegularWindow:    180 * 24 * time.Hour,
		RegularMinVisits: 3,
		NewWindow:        30 * 24 * time.Hour,
		InactiveWindow:   90 * 24 * time.Hour,
	}
}

// AudienceResolver computes the candidate client set for a campaign's
// audience selector. It applies no consent or contact filtering; that is
// channel-specific and happens during seeding.
type AudienceResolver struct {
	store  store.Store
	config AudienceConfig
	logger logger.Logger
	now    func() time.Time
}

// NewAudienceResolver creates a resolver. A nil now function uses the wall
// clock.
func NewAudienceResolver(st store.Store, cfg AudienceConfig, log logger.Logger, now func() time.Time) *AudienceResolver {
	if now == nil {
		now = time.Now
	}
	return &AudienceResolver{store: st, config: cfg, logger: log, now: now}
}

// Resolve returns the candidate clients for the campaign's audience
// selector. An unrecognized selector falls back to all clients with a
// warning.
func (r *AudienceResolver) Resolve(ctx context.Context, c *models.Campaign) ([]*models.Client, error) {
	switch c.Audience {
	case models.AudienceAllClients:
		return r.allClients(ctx)
	case models.AudienceRegularClients:
		return r.regularClients(ctx)
	case models.AudienceNewClients:
		return r.newClients(ctx)
	case models.AudienceInactiveClients:
		return r.inactiveClients(ctx)
	case models.AudienceSpecific:
		return r.specificClients(ctx, c.AudienceClientIDs)
	default:
		r.logger.Warn("unknown audience selector, falling back to all clients",
			"campaign_id", c.ID, "audience", c.Audience)
		return r.allClients(ctx)
	}
}

func (r *AudienceResolver) allClients(ctx context.Context) ([]*models.Client, error) {
	clients, err := r.store.ListClientsByRole(ctx, models.RoleClient)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

// regularClients returns clients with at least RegularMinVisits completed
// appointments inside the regular window.
func (r *AudienceResolver) regularClients(ctx context.Context) ([]*models.Client, error) {
	clients, err := r.allClients(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := r.now().Add(-r.config.RegularWindow)

	var out []*models.Client
	for _, client := range clients {
		appointments, err := r.store.ListAppointmentsByClient(ctx, client.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list appointments for client %d: %w", client.ID, err)
		}
		completed := 0
		for _, a := range appointments {
			if a.Status == models.AppointmentCompleted && a.StartTime.After(cutoff) {
				completed++
			}
		}
		if completed >= r.config.RegularMinVisits {
			out = append(out, client)
		}
	}
	return out, nil
}

// newClients returns clients created inside the new-client window.
func (r *AudienceResolver) newClients(ctx context.Context) ([]*models.Client, error) {
	clients, err := r.allClients(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := r.now().Add(-r.config.NewWindow)

	var out []*models.Client
	for _, client := range clients {
		if client.CreatedAt.After(cutoff) {
			out = append(out, client)
		}
	}
	return out, nil
}

// inactiveClients returns clients with zero appointments of any status
// inside the inactive window.
func (r *AudienceResolver) inactiveClients(ctx context.Context) ([]*models.Client, error) {
	clients, err := r.allClients(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := r.now().Add(-r.config.InactiveWindow)

	var out []*models.Client
	for _, client := range clients {
		appointments, err := r.store.ListAppointmentsByClient(ctx, client.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list appointments for client %d: %w", client.ID, err)
		}
		recent := false
		for _, a := range appointments {
			if a.StartTime.After(cutoff) {
				recent = true
				break
			}
		}
		if !recent {
			out = append(out, client)
		}
	}
	return out, nil
}

// specificClients loads an explicit ID list. Missing IDs are skipped with a
// warning so one stale ID cannot block a send.
func (r *AudienceResolver) specificClients(ctx context.Context, ids []int) ([]*models.Client, error) {
	var out []*models.Client
	for _, id := range ids {
		client, err := r.store.GetClient(ctx, id)
		if err == store.ErrClientNotFound {
			r.logger.Warn("audience references missing client", "client_id", id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get client %d: %w", id, err)
		}
		out = append(out, client)
	}
	return out, nil
}
