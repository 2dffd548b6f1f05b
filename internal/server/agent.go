package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Prasann123/Tradition-RAG/internal/agent/core"
)

// Invoker answers a routed chat query.
type Invoker interface {
	Invoke(ctx context.Context, query string, cfg core.RequestConfig) (core.InvokeResult, error)
}

type AgentHandler struct {
	Agent  Invoker
	Logger *log.Logger
}

func (h *AgentHandler) Register(g *echo.Group) {
	g.POST("/invoke_agent", h.invoke)
}

type invokeRequest struct {
	Query  string             `json:"query"`
	Config core.RequestConfig `json:"config"`
}

type invokeResponse struct {
	FinalAnswer        string        `json:"final_answer"`
	Feedback           string        `json:"feedback"`
	IsValid            core.Validity `json:"is_valid"`
	Sources            []core.Source `json:"sources"`
	AnswerSource       string        `json:"answer_source"`
	MaxRetriesExceeded bool          `json:"max_retries_exceeded,omitempty"`
}

func (h *AgentHandler) invoke(c echo.Context) error {
	var req invokeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Query is required")
	}

	res, err := h.Agent.Invoke(c.Request().Context(), req.Query, req.Config)
	var ce *core.ConfigError
	switch {
	case err == nil:
	case errors.As(err, &ce):
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error":   ce.Message,
			"context": []string{},
			"sources": []core.Source{},
		})
	case errors.Is(err, core.ErrEmptyQuery):
		return echo.NewHTTPError(http.StatusBadRequest, "Query is required")
	case errors.Is(err, core.ErrDeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "Agent execution timed out")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("Agent execution failed: %v", err)).SetInternal(err)
	}

	sources := res.Sources
	if sources == nil {
		sources = []core.Source{}
	}
	return c.JSON(http.StatusOK, invokeResponse{
		FinalAnswer:        res.FinalAnswer,
		Feedback:           res.Feedback,
		IsValid:            res.IsValid,
		Sources:            sources,
		AnswerSource:       res.AnswerSource,
		MaxRetriesExceeded: res.MaxRetriesExceeded,
	})
}
