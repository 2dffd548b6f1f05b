package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Prasann123/Tradition-RAG/internal/agent/core"
	"github.com/Prasann123/Tradition-RAG/internal/travel"
)

// TripPlanner runs the travel tool chain.
type TripPlanner interface {
	Plan(ctx context.Context, q travel.Query) (travel.Result, error)
}

type TravelHandler struct {
	Planner TripPlanner
}

func (h *TravelHandler) Register(g *echo.Group) {
	g.POST("/travelsgent", h.plan)
}

func (h *TravelHandler) plan(c echo.Context) error {
	var req struct {
		Query *travel.Query `json:"query"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	res, err := h.Planner.Plan(c.Request().Context(), *req.Query)
	if err != nil {
		var ce *core.ConfigError
		if errors.As(err, &ce) || errors.Is(err, travel.ErrInvalidQuery) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("Travel planning failed: %v", err)).SetInternal(err)
	}
	if res.Messages == nil {
		res.Messages = []travel.Message{}
	}
	return c.JSON(http.StatusOK, res)
}
