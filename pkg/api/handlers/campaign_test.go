package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/glowdesk/pkg/campaign"
	"github.com/glowdesk/glowdesk/pkg/email"
	"github.com/glowdesk/glowdesk/pkg/logger"
	"github.com/glowdesk/glowdesk/pkg/models"
	"github.com/glowdesk/glowdesk/pkg/sms"
	"github.com/glowdesk/glowdesk/pkg/store"
)

type testEnv struct {
	echo    *echo.Echo
	handler *CampaignHandler
	store   *store.Memory
}

// newTestEnv wires the full campaign stack on the in-memory store with
// console providers, clocked at noon UTC so quiet hours allow SMS.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.NewMemory()
	log := logger.Discard()
	noon := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return noon }

	resolver := campaign.NewAudienceResolver(st, campaign.DefaultAudienceConfig(), log, clock)
	channels := []campaign.Channel{
		campaign.NewEmailChannel(email.NewService("hello@glowdesk.test", "GlowDesk", ""), 50, 0),
		campaign.NewSMSChannel(sms.ConsoleProvider{}, "+12125550100", "US", 100, 0),
	}
	claimer := campaign.NewMemoryClaimer(15*time.Minute, clock)
	processor := campaign.NewProcessor(st, resolver, channels, claimer, log,
		campaign.WithClock(clock), campaign.WithSleep(func(time.Duration) {}))
	svc := campaign.NewService(st, processor, campaign.DefaultQuietHours(time.UTC), log,
		campaign.WithServiceClock(clock))

	return &testEnv{echo: echo.New(), handler: NewCampaignHandler(svc), store: st}
}

func (env *testEnv) request(method, path, body string) (*http.Request, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return req, httptest.NewRecorder()
}

func (env *testEnv) addCampaign(t *testing.T, c *models.Campaign) *models.Campaign {
	t.Helper()
	if c.Status == "" {
		c.Status = models.CampaignDraft
	}
	if c.Audience == "" {
		c.Audience = models.AudienceAllClients
	}
	require.NoError(t, env.store.CreateCampaign(context.Background(), c))
	return c
}

func TestCreateCampaign(t *testing.T) {
	env := newTestEnv(t)

	body := `{"name":"Summer Sale","channel":"email","subject":"20% off","body":"<p>Hi!</p>"}`
	req, rec := env.request(http.MethodPost, "/api/v1/campaigns", body)
	c := env.echo.NewContext(req, rec)

	require.NoError(t, env.handler.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var got models.Campaign
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotZero(t, got.ID)
	assert.Equal(t, models.CampaignDraft, got.Status)
	assert.Equal(t, models.AudienceAllClients, got.Audience)
}

func TestCreateCampaignValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"channel":"email","body":"hi"}`},
		{"bad channel", `{"name":"X","channel":"carrier_pigeon","body":"hi"}`},
		{"missing body", `{"name":"X","channel":"sms"}`},
		{"bad audience", `{"name":"X","channel":"sms","body":"hi","audience":"everyone"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := env.request(http.MethodPost, "/api/v1/campaigns", tt.body)
			c := env.echo.NewContext(req, rec)
			require.NoError(t, env.handler.Create(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetCampaignNotFound(t *testing.T) {
	env := newTestEnv(t)

	req, rec := env.request(http.MethodGet, "/api/v1/campaigns/999", "")
	c := env.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("999")

	require.NoError(t, env.handler.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCampaigns(t *testing.T) {
	env := newTestEnv(t)
	env.addCampaign(t, &models.Campaign{Name: "A", Channel: models.ChannelEmail, Body: "hi"})
	env.addCampaign(t, &models.Campaign{Name: "B", Channel: models.ChannelSMS, Body: "hi"})

	req, rec := env.request(http.MethodGet, "/api/v1/campaigns", "")
	c := env.echo.NewContext(req, rec)

	require.NoError(t, env.handler.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Campaigns []models.Campaign `json:"campaigns"`
		Count     int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Count)
	assert.Len(t, got.Campaigns, 2)
}

func TestUpdateCampaignConflictAfterSendStarts(t *testing.T) {
	env := newTestEnv(t)
	cmp := env.addCampaign(t, &models.Campaign{
		Name: "A", Channel: models.ChannelEmail, Body: "hi", Status: models.CampaignSending,
	})

	req, rec := env.request(http.MethodPatch, "/api/v1/campaigns/1", `{"name":"Renamed"}`)
	c := env.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(itoa(cmp.ID))

	require.NoError(t, env.handler.Update(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSendCampaign(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.CreateClient(context.Background(), &models.Client{
		FirstName: "Ana", Email: "ana@example.com", EmailPromoOptIn: true,
	}))
	cmp := env.addCampaign(t, &models.Campaign{Name: "A", Channel: models.ChannelEmail, Body: "hi"})

	req, rec := env.request(http.MethodPost, "/api/v1/campaigns/1/send", "")
	c := env.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(itoa(cmp.ID))

	require.NoError(t, env.handler.Send(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var result campaign.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Sent)
	assert.True(t, result.Completed)
}

func TestSendSMSCampaignDeferredAtNight(t *testing.T) {
	env := newTestEnv(t)

	// Rebuild the service clocked at 23:00, outside the send window.
	st := env.store
	log := logger.Discard()
	night := time.Date(2024, 6, 10, 23, 0, 0, 0, time.UTC)
	clock := func() time.Time { return night }
	resolver := campaign.NewAudienceResolver(st, campaign.DefaultAudienceConfig(), log, clock)
	channels := []campaign.Channel{
		campaign.NewSMSChannel(sms.ConsoleProvider{}, "+12125550100", "US", 100, 0),
	}
	processor := campaign.NewProcessor(st, resolver, channels, campaign.NewMemoryClaimer(15*time.Minute, clock), log,
		campaign.WithClock(clock), campaign.WithSleep(func(time.Duration) {}))
	svc := campaign.NewService(st, processor, campaign.DefaultQuietHours(time.UTC), log,
		campaign.WithServiceClock(clock))
	handler := NewCampaignHandler(svc)

	cmp := env.addCampaign(t, &models.Campaign{Name: "A", Channel: models.ChannelSMS, Body: "hi"})

	req, rec := env.request(http.MethodPost, "/api/v1/campaigns/1/send", "")
	c := env.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(itoa(cmp.ID))

	require.NoError(t, handler.Send(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, true, got["deferred"])

	stored, err := st.GetCampaign(context.Background(), cmp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignScheduled, stored.Status)
}

func TestCancelCampaignConflictWhenFinished(t *testing.T) {
	env := newTestEnv(t)
	cmp := env.addCampaign(t, &models.Campaign{
		Name: "A", Channel: models.ChannelEmail, Body: "hi", Status: models.CampaignSent,
	})

	req, rec := env.request(http.MethodPost, "/api/v1/campaigns/1/cancel", "")
	c := env.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(itoa(cmp.ID))

	require.NoError(t, env.handler.Cancel(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestScheduleCampaign(t *testing.T) {
	env := newTestEnv(t)
	cmp := env.addCampaign(t, &models.Campaign{Name: "A", Channel: models.ChannelEmail, Body: "hi"})

	req, rec := env.request(http.MethodPost, "/api/v1/campaigns/1/schedule", `{"send_at":"2024-06-11T09:00:00Z"}`)
	c := env.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(itoa(cmp.ID))

	require.NoError(t, env.handler.Schedule(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var got models.Campaign
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.CampaignScheduled, got.Status)
	require.NotNil(t, got.ScheduledAt)
}

func TestCampaignStats(t *testing.T) {
	env := newTestEnv(t)
	cmp := env.addCampaign(t, &models.Campaign{Name: "A", Channel: models.ChannelEmail, Body: "hi"})
	require.NoError(t, env.store.AddCampaignCounters(context.Background(), cmp.ID, 4, 3, 1))

	req, rec := env.request(http.MethodGet, "/api/v1/campaigns/1/stats", "")
	c := env.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(itoa(cmp.ID))

	require.NoError(t, env.handler.Stats(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var stats campaign.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 4, stats.SentCount)
	assert.InDelta(t, 75.0, stats.DeliveryRate, 0.001)
}

func TestCampaignRecipients(t *testing.T) {
	env := newTestEnv(t)
	cmp := env.addCampaign(t, &models.Campaign{Name: "A", Channel: models.ChannelEmail, Body: "hi"})
	require.NoError(t, env.store.CreateRecipient(context.Background(), &models.Recipient{
		CampaignID: cmp.ID, ClientID: 1, Contact: "a@example.com",
	}))

	req, rec := env.request(http.MethodGet, "/api/v1/campaigns/1/recipients", "")
	c := env.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(itoa(cmp.ID))

	require.NoError(t, env.handler.Recipients(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Recipients []models.Recipient `json:"recipients"`
		Count      int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Count)
}

func TestDeleteCampaign(t *testing.T) {
	env := newTestEnv(t)
	cmp := env.addCampaign(t, &models.Campaign{Name: "A", Channel: models.ChannelEmail, Body: "hi"})

	req, rec := env.request(http.MethodDelete, "/api/v1/campaigns/1", "")
	c := env.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(itoa(cmp.ID))

	require.NoError(t, env.handler.Delete(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := env.store.GetCampaign(context.Background(), cmp.ID)
	assert.ErrorIs(t, err, store.ErrCampaignNotFound)
}

func itoa(id int) string {
	return strconv.Itoa(id)
}
