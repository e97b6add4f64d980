package controller

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-integrations/app/dto"
	httpdto "github.com/vibast-solutions/ms-go-integrations/app/dto/http"
	"github.com/vibast-solutions/ms-go-integrations/app/entity"
	"github.com/vibast-solutions/ms-go-integrations/app/repository"
	"github.com/vibast-solutions/ms-go-integrations/app/service"
)

type IntegrationController struct {
	hub *service.Hub
}

func NewIntegrationController(hub *service.Hub) *IntegrationController {
	return &IntegrationController{hub: hub}
}

func (c *IntegrationController) Create(ctx echo.Context) error {
	var req httpdto.CreateIntegrationRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind create integration request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	in, err := c.hub.Integrations.Create(ctx.Request().Context(), &entity.Integration{
		Name:               req.Name,
		IntegrationType:    req.IntegrationType,
		Provider:           nullString(req.Provider),
		APIEndpoint:        nullString(req.APIEndpoint),
		WebhookURL:         nullString(req.WebhookURL),
		AuthenticationType: req.AuthenticationType,
		Configuration:      req.Configuration,
		SyncEnabled:        req.SyncEnabled,
		SyncFrequency:      req.SyncFrequency,
	})
	if err != nil {
		return c.writeError(ctx, err, "Failed to create integration")
	}

	logrus.WithFields(logrus.Fields{
		"integration_id": in.ID,
		"name":           in.Name,
	}).Info("Integration created")
	return ctx.JSON(http.StatusCreated, httpdto.NewIntegrationResponse(in))
}

func (c *IntegrationController) Update(ctx echo.Context) error {
	id, err := integrationID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid integration id"})
	}

	var req httpdto.UpdateIntegrationRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind update integration request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	in, err := c.hub.Integrations.Update(ctx.Request().Context(), id, dto.IntegrationPatch{
		Name:               req.Name,
		IntegrationType:    req.IntegrationType,
		Provider:           req.Provider,
		APIEndpoint:        req.APIEndpoint,
		WebhookURL:         req.WebhookURL,
		AuthenticationType: req.AuthenticationType,
		Configuration:      req.Configuration,
		SyncEnabled:        req.SyncEnabled,
		SyncFrequency:      req.SyncFrequency,
	})
	if err != nil {
		return c.writeError(ctx, err, "Failed to update integration")
	}
	return ctx.JSON(http.StatusOK, httpdto.NewIntegrationResponse(in))
}

func (c *IntegrationController) Get(ctx echo.Context) error {
	id, err := integrationID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid integration id"})
	}

	in, err := c.hub.Integrations.Get(ctx.Request().Context(), id)
	if err != nil {
		return c.writeError(ctx, err, "Failed to load integration")
	}
	return ctx.JSON(http.StatusOK, httpdto.NewIntegrationResponse(in))
}

// Delete requires confirm=true; the explicit flag replaces the dashboard's
// old client-side confirmation dialog.
func (c *IntegrationController) Delete(ctx echo.Context) error {
	id, err := integrationID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid integration id"})
	}

	confirm := strings.EqualFold(ctx.QueryParam("confirm"), "true")
	if err := c.hub.Integrations.Delete(ctx.Request().Context(), id, confirm); err != nil {
		return c.writeError(ctx, err, "Failed to delete integration")
	}

	logrus.WithField("integration_id", id).Info("Integration deleted")
	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Message: "integration deleted"})
}

func (c *IntegrationController) List(ctx echo.Context) error {
	filter := repository.IntegrationFilter{
		Type:   ctx.QueryParam("type"),
		Status: ctx.QueryParam("status"),
		Search: ctx.QueryParam("search"),
	}

	integrations, err := c.hub.Integrations.List(ctx.Request().Context(), filter)
	if err != nil {
		return c.writeError(ctx, err, "Failed to list integrations")
	}

	responses := make([]httpdto.IntegrationResponse, 0, len(integrations))
	for _, in := range integrations {
		responses = append(responses, httpdto.NewIntegrationResponse(in))
	}
	return ctx.JSON(http.StatusOK, responses)
}

// Deactivate moves the integration to inactive from any state. An active
// integration must pass through here before it can be re-tested.
func (c *IntegrationController) Deactivate(ctx echo.Context) error {
	id, err := integrationID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid integration id"})
	}

	in, err := c.hub.Integrations.Deactivate(ctx.Request().Context(), id)
	if err != nil {
		return c.writeError(ctx, err, "Failed to deactivate integration")
	}

	logrus.WithField("integration_id", id).Info("Integration deactivated")
	return ctx.JSON(http.StatusOK, httpdto.NewIntegrationResponse(in))
}

// Test runs a connectivity probe. A failed probe is still a 200: the
// outcome is a structured result, not a transport error.
func (c *IntegrationController) Test(ctx echo.Context) error {
	id, err := integrationID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid integration id"})
	}

	result, err := c.hub.Orchestrator.Test(ctx.Request().Context(), id)
	if err != nil {
		return c.writeError(ctx, err, "Failed to run connectivity test")
	}
	return ctx.JSON(http.StatusOK, result)
}

func (c *IntegrationController) Sync(ctx echo.Context) error {
	id, err := integrationID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid integration id"})
	}

	result, err := c.hub.Orchestrator.Sync(ctx.Request().Context(), id)
	if err != nil {
		return c.writeError(ctx, err, "Failed to run sync")
	}
	return ctx.JSON(http.StatusOK, result)
}

// Webhook accepts an inbound delivery from the external system and journals
// it.
func (c *IntegrationController) Webhook(ctx echo.Context) error {
	start := time.Now()

	id, err := integrationID(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid integration id"})
	}

	var req httpdto.WebhookDeliveryRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind webhook delivery")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	if err := c.hub.Orchestrator.RecordWebhookDelivery(ctx.Request().Context(), id, req.Event, time.Since(start)); err != nil {
		return c.writeError(ctx, err, "Failed to record webhook delivery")
	}
	return ctx.JSON(http.StatusAccepted, httpdto.MessageResponse{Message: "webhook recorded"})
}

func (c *IntegrationController) writeError(ctx echo.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "integration not found"})
	case errors.Is(err, service.ErrForbidden):
		return ctx.JSON(http.StatusForbidden, httpdto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrPrecondition):
		return ctx.JSON(http.StatusUnprocessableEntity, httpdto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrAlreadyInProgress):
		return ctx.JSON(http.StatusConflict, httpdto.ErrorResponse{Error: err.Error()})
	}
	logrus.WithError(err).Error(logMessage)
	return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
}

func integrationID(ctx echo.Context) (uint64, error) {
	return strconv.ParseUint(ctx.Param("id"), 10, 64)
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
