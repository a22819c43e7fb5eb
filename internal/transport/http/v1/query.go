package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Chative-core-poc-v1/orchestrator/internal/agent/model"
	logx "github.com/Chative-core-poc-v1/orchestrator/pkg/logger"
)

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Trace     bool   `json:"trace,omitempty"`
}

// ProcessQuery runs one query through the orchestrator.
// POST /v1/query
func (h *Handler) ProcessQuery(c echo.Context) error {
	ctx := c.Request().Context()

	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	resp, err := h.cfg.Runner.Process(ctx, model.Query{
		Text:      req.Query,
		SessionID: req.SessionID,
		UserID:    req.UserID,
		WithTrace: req.Trace,
	})
	if err != nil {
		logx.Warn().Err(err).Str("session_id", req.SessionID).Msg("query rejected")
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
