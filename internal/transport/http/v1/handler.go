// Package v1 holds the version 1 HTTP handlers.
package v1

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/cache"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/graph"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/memory"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/services"
	errx "github.com/Chative-core-poc-v1/orchestrator/internal/core/error"
)

// Prober reports per-service readiness.
type Prober interface {
	Ping(ctx context.Context) []services.Readiness
}

// CacheStatter exposes intent cache counters.
type CacheStatter interface {
	Stats() cache.Stats
}

// SessionLookup finds a live session's context window.
type SessionLookup interface {
	Get(sessionID string) (*memory.Window, bool)
}

// Config wires the handler. History, Sessions and Metrics are optional.
type Config struct {
	Runner       graph.Runner
	Services     Prober
	Cache        CacheStatter
	History      model.HistoryRepository
	Sessions     SessionLookup
	ReasonerMode string
	Metrics      http.Handler
	Version      string
}

// Handler handles HTTP requests.
type Handler struct {
	cfg Config
}

// NewHandler creates a new handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	return &Handler{cfg: cfg}
}

// RegisterRoutes registers all routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/query", h.ProcessQuery)
	e.GET("/v1/sessions/:session_id/history", h.GetSessionHistory)
	e.GET("/v1/sessions/:session_id/context", h.GetSessionContext)
	e.GET("/v1/cache/stats", h.CacheStats)

	e.GET("/health", h.Health)
	if h.cfg.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.cfg.Metrics))
	}
}

func errorJSON(c echo.Context, err error) error {
	return c.JSON(errx.StatusOf(err), map[string]string{"error": errx.MessageOf(err)})
}
