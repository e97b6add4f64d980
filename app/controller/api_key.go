package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-integrations/app/dto"
	httpdto "github.com/vibast-solutions/ms-go-integrations/app/dto/http"
	"github.com/vibast-solutions/ms-go-integrations/app/service"
)

type APIKeyController struct {
	hub *service.Hub
}

func NewAPIKeyController(hub *service.Hub) *APIKeyController {
	return &APIKeyController{hub: hub}
}

// Create mints a new API key. The plaintext token appears in this response
// and nowhere else, ever.
func (c *APIKeyController) Create(ctx echo.Context) error {
	var req httpdto.CreateAPIKeyRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind create api key request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
	}

	result, err := c.hub.Credentials.Issue(ctx.Request().Context(), dto.IssueAPIKeyInput{
		Name:      req.Name,
		PerMinute: req.RateLimitPerMinute,
		PerHour:   req.RateLimitPerHour,
		PerDay:    req.RateLimitPerDay,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).Error("Failed to issue api key")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithFields(logrus.Fields{
		"key_id": result.Key.ID,
		"name":   result.Key.Name,
	}).Info("API key issued")

	return ctx.JSON(http.StatusCreated, httpdto.CreateAPIKeyResponse{
		APIKeyResponse: httpdto.NewAPIKeyResponse(result.Key),
		Key:            result.Plaintext,
	})
}

// Revoke deactivates a key. Revoking twice is a success both times.
func (c *APIKeyController) Revoke(ctx echo.Context) error {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid api key id"})
	}

	if err := c.hub.Credentials.Revoke(ctx.Request().Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "api key not found"})
		}
		logrus.WithError(err).WithField("key_id", id).Error("Failed to revoke api key")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithField("key_id", id).Info("API key revoked")
	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Message: "api key revoked"})
}

// List returns key metadata only; secret material never leaves the store.
func (c *APIKeyController) List(ctx echo.Context) error {
	keys, err := c.hub.Credentials.List(ctx.Request().Context())
	if err != nil {
		logrus.WithError(err).Error("Failed to list api keys")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	responses := make([]httpdto.APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, httpdto.NewAPIKeyResponse(key))
	}
	return ctx.JSON(http.StatusOK, responses)
}
