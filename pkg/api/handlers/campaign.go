package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apierrors "github.com/glowdesk/glowdesk/pkg/api/errors"
	"github.com/glowdesk/glowdesk/pkg/campaign"
	"github.com/glowdesk/glowdesk/pkg/models"
	"github.com/glowdesk/glowdesk/pkg/store"
)

var validate = validator.New()

// CampaignHandler handles campaign-related HTTP requests
type CampaignHandler struct {
	service *campaign.Service
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(service *campaign.Service) *CampaignHandler {
	return &CampaignHandler{service: service}
}

// CreateCampaignRequest represents a create campaign request
type CreateCampaignRequest struct {
	Name              string `json:"name" validate:"required,min=1,max=200"`
	Channel           string `json:"channel" validate:"required,oneof=email sms"`
	Audience          string `json:"audience" validate:"omitempty,oneof=all_clients regular_clients new_clients inactive_clients specific"`
	AudienceClientIDs []int  `json:"audience_client_ids,omitempty"`
	Subject           string `json:"subject" validate:"omitempty,max=300"`
	Body              string `json:"body" validate:"required"`
	MediaURL          string `json:"media_url" validate:"omitempty,url"`
}

// UpdateCampaignRequest represents a partial campaign update
type UpdateCampaignRequest struct {
	Name              *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Audience          *string `json:"audience,omitempty" validate:"omitempty,oneof=all_clients regular_clients new_clients inactive_clients specific"`
	AudienceClientIDs []int   `json:"audience_client_ids,omitempty"`
	Subject           *string `json:"subject,omitempty" validate:"omitempty,max=300"`
	Body              *string `json:"body,omitempty"`
	MediaURL          *string `json:"media_url,omitempty" validate:"omitempty,url"`
}

// ScheduleCampaignRequest carries the send time for a scheduled campaign
type ScheduleCampaignRequest struct {
	SendAt time.Time `json:"send_at" validate:"required"`
}

// Create handles POST /api/v1/campaigns
func (h *CampaignHandler) Create(c echo.Context) error {
	var req CreateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	cmp := &models.Campaign{
		Name:              req.Name,
		Channel:           models.CampaignChannel(req.Channel),
		Audience:          req.Audience,
		AudienceClientIDs: req.AudienceClientIDs,
		Subject:           req.Subject,
		Body:              req.Body,
		MediaURL:          req.MediaURL,
	}
	if err := h.service.Create(c.Request().Context(), cmp); err != nil {
		if err == campaign.ErrInvalidChannel {
			return apierrors.ValidationError(c, err)
		}
		return apierrors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusCreated, cmp)
}

// List handles GET /api/v1/campaigns
func (h *CampaignHandler) List(c echo.Context) error {
	campaigns, err := h.service.List(c.Request().Context())
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	if campaigns == nil {
		campaigns = []*models.Campaign{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"campaigns": campaigns,
		"count":     len(campaigns),
	})
}

// Get handles GET /api/v1/campaigns/:id
func (h *CampaignHandler) Get(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid campaign ID")
	}

	cmp, err := h.service.Get(c.Request().Context(), id)
	if err == store.ErrCampaignNotFound {
		return apierrors.NotFoundError(c, "campaign")
	}
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, cmp)
}

// Update handles PATCH /api/v1/campaigns/:id
func (h *CampaignHandler) Update(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid campaign ID")
	}

	var req UpdateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	upd := models.CampaignUpdate{
		Name:              req.Name,
		Audience:          req.Audience,
		AudienceClientIDs: req.AudienceClientIDs,
		Subject:           req.Subject,
		Body:              req.Body,
		MediaURL:          req.MediaURL,
	}
	cmp, err := h.service.Update(c.Request().Context(), id, upd)
	switch {
	case err == store.ErrCampaignNotFound:
		return apierrors.NotFoundError(c, "campaign")
	case err == campaign.ErrNotEditable:
		return apierrors.ConflictError(c, "Campaign can no longer be edited")
	case err != nil:
		return apierrors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, cmp)
}

// Delete handles DELETE /api/v1/campaigns/:id
func (h *CampaignHandler) Delete(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid campaign ID")
	}

	err = h.service.Delete(c.Request().Context(), id)
	switch {
	case err == store.ErrCampaignNotFound:
		return apierrors.NotFoundError(c, "campaign")
	case err == campaign.ErrNotEditable:
		return apierrors.ConflictError(c, "Campaign is mid-send and cannot be deleted")
	case err != nil:
		return apierrors.DatabaseError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Schedule handles POST /api/v1/campaigns/:id/schedule
func (h *CampaignHandler) Schedule(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid campaign ID")
	}

	var req ScheduleCampaignRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	cmp, err := h.service.Schedule(c.Request().Context(), id, req.SendAt)
	switch {
	case err == store.ErrCampaignNotFound:
		return apierrors.NotFoundError(c, "campaign")
	case err == campaign.ErrNotEditable:
		return apierrors.ConflictError(c, "Campaign can no longer be scheduled")
	case err != nil:
		return apierrors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, cmp)
}

// Cancel handles POST /api/v1/campaigns/:id/cancel
func (h *CampaignHandler) Cancel(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid campaign ID")
	}

	cmp, err := h.service.Cancel(c.Request().Context(), id)
	switch {
	case err == store.ErrCampaignNotFound:
		return apierrors.NotFoundError(c, "campaign")
	case err == campaign.ErrNotCancellable:
		return apierrors.ConflictError(c, "Campaign already finished")
	case err != nil:
		return apierrors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, cmp)
}

// Send handles POST /api/v1/campaigns/:id/send. It runs one batch
// synchronously and returns the batch results.
func (h *CampaignHandler) Send(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid campaign ID")
	}

	result, err := h.service.SendNow(c.Request().Context(), id)
	switch {
	case err == store.ErrCampaignNotFound:
		return apierrors.NotFoundError(c, "campaign")
	case err == campaign.ErrNotEditable:
		return apierrors.ConflictError(c, "Campaign already finished")
	case err == campaign.ErrQuietHours:
		return c.JSON(http.StatusAccepted, map[string]interface{}{
			"deferred": true,
			"message":  "Outside quiet hours; campaign queued for the next scheduled run.",
		})
	case err != nil:
		return apierrors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Stats handles GET /api/v1/campaigns/:id/stats
func (h *CampaignHandler) Stats(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid campaign ID")
	}

	stats, err := h.service.GetStats(c.Request().Context(), id)
	if err == store.ErrCampaignNotFound {
		return apierrors.NotFoundError(c, "campaign")
	}
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// Recipients handles GET /api/v1/campaigns/:id/recipients
func (h *CampaignHandler) Recipients(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid campaign ID")
	}

	if _, err := h.service.Get(c.Request().Context(), id); err != nil {
		if err == store.ErrCampaignNotFound {
			return apierrors.NotFoundError(c, "campaign")
		}
		return apierrors.DatabaseError(c, err)
	}

	recipients, err := h.service.ListRecipients(c.Request().Context(), id)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	if recipients == nil {
		recipients = []*models.Recipient{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"recipients": recipients,
		"count":      len(recipients),
	})
}
