package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/glowdesk/pkg/logger"
	"github.com/glowdesk/glowdesk/pkg/models"
	"github.com/glowdesk/glowdesk/pkg/store"
)

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestResolver(t *testing.T) (*AudienceResolver, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	r := NewAudienceResolver(st, DefaultAudienceConfig(), logger.Discard(), func() time.Time { return testNow })
	return r, st
}

func addClient(t *testing.T, st *store.Memory, c *models.Client) *models.Client {
	t.Helper()
	require.NoError(t, st.CreateClient(context.Background(), c))
	return c
}

func addAppointment(t *testing.T, st *store.Memory, clientID int, daysAgo int, status string) {
	t.Helper()
	require.NoError(t, st.CreateAppointment(context.Background(), &models.Appointment{
		ClientID:  clientID,
		Service:   "Haircut",
		StartTime: testNow.AddDate(0, 0, -daysAgo),
		Status:    status,
	}))
}

func clientIDs(clients []*models.Client) []int {
	ids := make([]int, len(clients))
	for i, c := range clients {
		ids[i] = c.ID
	}
	return ids
}

func TestResolveAllClients(t *testing.T) {
	r, st := newTestResolver(t)
	a := addClient(t, st, &models.Client{FirstName: "Ana", Email: "ana@example.com"})
	b := addClient(t, st, &models.Client{FirstName: "Ben", Email: "ben@example.com"})
	addClient(t, st, &models.Client{FirstName: "Staff", Role: models.RoleStaff})

	got, err := r.Resolve(context.Background(), &models.Campaign{Audience: models.AudienceAllClients})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{a.ID, b.ID}, clientIDs(got), "staff are never campaign candidates")
}

func TestResolveRegularClients(t *testing.T) {
	r, st := newTestResolver(t)

	regular := addClient(t, st, &models.Client{FirstName: "Reg"})
	addAppointment(t, st, regular.ID, 10, models.AppointmentCompleted)
	addAppointment(t, st, regular.ID, 60, models.AppointmentCompleted)
	addAppointment(t, st, regular.ID, 120, models.AppointmentCompleted)

	// Two completed visits is below the threshold.
	casual := addClient(t, st, &models.Client{FirstName: "Cas"})
	addAppointment(t, st, casual.ID, 10, models.AppointmentCompleted)
	addAppointment(t, st, casual.ID, 20, models.AppointmentCompleted)

	// Three visits but outside the 180-day window.
	lapsed := addClient(t, st, &models.Client{FirstName: "Lap"})
	addAppointment(t, st, lapsed.ID, 200, models.AppointmentCompleted)
	addAppointment(t, st, lapsed.ID, 220, models.AppointmentCompleted)
	addAppointment(t, st, lapsed.ID, 240, models.AppointmentCompleted)

	// Three recent visits but cancelled ones don't count.
	flaky := addClient(t, st, &models.Client{FirstName: "Fla"})
	addAppointment(t, st, flaky.ID, 10, models.AppointmentCancelled)
	addAppointment(t, st, flaky.ID, 20, models.AppointmentCancelled)
	addAppointment(t, st, flaky.ID, 30, models.AppointmentCompleted)

	got, err := r.Resolve(context.Background(), &models.Campaign{Audience: models.AudienceRegularClients})
	require.NoError(t, err)
	assert.Equal(t, []int{regular.ID}, clientIDs(got))
}

func TestResolveNewClients(t *testing.T) {
	r, st := newTestResolver(t)

	fresh := addClient(t, st, &models.Client{FirstName: "New", CreatedAt: testNow.AddDate(0, 0, -5)})
	addClient(t, st, &models.Client{FirstName: "Old", CreatedAt: testNow.AddDate(0, 0, -45)})

	got, err := r.Resolve(context.Background(), &models.Campaign{Audience: models.AudienceNewClients})
	require.NoError(t, err)
	assert.Equal(t, []int{fresh.ID}, clientIDs(got))
}

func TestResolveInactiveClients(t *testing.T) {
	r, st := newTestResolver(t)

	active := addClient(t, st, &models.Client{FirstName: "Act"})
	addAppointment(t, st, active.ID, 30, models.AppointmentCompleted)

	// Any appointment inside the window counts as activity, even a booking.
	booked := addClient(t, st, &models.Client{FirstName: "Boo"})
	addAppointment(t, st, booked.ID, 5, models.AppointmentBooked)

	idle := addClient(t, st, &models.Client{FirstName: "Idl"})
	addAppointment(t, st, idle.ID, 120, models.AppointmentCompleted)

	never := addClient(t, st, &models.Client{FirstName: "Nev"})

	got, err := r.Resolve(context.Background(), &models.Campaign{Audience: models.AudienceInactiveClients})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{idle.ID, never.ID}, clientIDs(got))
}

func TestResolveSpecificClients(t *testing.T) {
	r, st := newTestResolver(t)
	a := addClient(t, st, &models.Client{FirstName: "Ana"})
	b := addClient(t, st, &models.Client{FirstName: "Ben"})
	addClient(t, st, &models.Client{FirstName: "Eve"})

	got, err := r.Resolve(context.Background(), &models.Campaign{
		Audience:          models.AudienceSpecific,
		AudienceClientIDs: []int{a.ID, b.ID, 999},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{a.ID, b.ID}, clientIDs(got), "missing IDs are skipped, not fatal")
}

func TestResolveUnknownSelectorFallsBack(t *testing.T) {
	r, st := newTestResolver(t)
	a := addClient(t, st, &models.Client{FirstName: "Ana"})

	got, err := r.Resolve(context.Background(), &models.Campaign{Audience: "vip_whales"})
	require.NoError(t, err)
	assert.Equal(t, []int{a.ID}, clientIDs(got))
}
