package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	httpdto "github.com/vibast-solutions/ms-go-integrations/app/dto/http"
	"github.com/vibast-solutions/ms-go-integrations/app/repository"
	"github.com/vibast-solutions/ms-go-integrations/app/service"
)

type ActivityLogController struct {
	hub *service.Hub
}

func NewActivityLogController(hub *service.Hub) *ActivityLogController {
	return &ActivityLogController{hub: hub}
}

func (c *ActivityLogController) List(ctx echo.Context) error {
	filter := repository.ActivityLogFilter{
		LogType: ctx.QueryParam("logType"),
		Status:  ctx.QueryParam("status"),
	}
	if raw := ctx.QueryParam("integrationId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid integrationId"})
		}
		filter.IntegrationID = id
	}
	if raw := ctx.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid limit"})
		}
		filter.Limit = limit
	}

	logs, err := c.hub.Activity.Query(ctx.Request().Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: err.Error()})
		}
		logrus.WithError(err).Error("Failed to query activity log")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	responses := make([]httpdto.ActivityLogResponse, 0, len(logs))
	for _, log := range logs {
		responses = append(responses, httpdto.NewActivityLogResponse(log))
	}
	return ctx.JSON(http.StatusOK, responses)
}
