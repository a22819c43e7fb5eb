package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/services"
)

const pingTimeout = 2 * time.Second

// Health reports per-service readiness, the reasoner mode and cache stats.
// Any unready service degrades health to 503.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
	defer cancel()

	var readiness []services.Readiness
	if h.cfg.Services != nil {
		readiness = h.cfg.Services.Ping(ctx)
	}

	status, code := "healthy", http.StatusOK
	for _, p := range readiness {
		if !p.Ready {
			status, code = "degraded", http.StatusServiceUnavailable
			break
		}
	}

	body := map[string]any{
		"status":   status,
		"version":  h.cfg.Version,
		"reasoner": h.cfg.ReasonerMode,
		"services": readiness,
	}
	if h.cfg.Cache != nil {
		body["cache"] = h.cfg.Cache.Stats()
	}
	return c.JSON(code, body)
}

// CacheStats returns the intent cache counters.
// GET /v1/cache/stats
func (h *Handler) CacheStats(c echo.Context) error {
	if h.cfg.Cache == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "intent cache not configured"})
	}
	return c.JSON(http.StatusOK, h.cfg.Cache.Stats())
}
