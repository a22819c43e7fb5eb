package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// HistoryMessage is one stored turn half.
type HistoryMessage struct {
	Role    string         `json:"role"`
	Content string         `json:"content"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// GetSessionHistory returns the stored messages of a session, oldest first.
// GET /v1/sessions/:session_id/history
func (h *Handler) GetSessionHistory(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id is required"})
	}

	messages := []HistoryMessage{}
	if h.cfg.History != nil {
		hist, err := h.cfg.History.LoadHistory(ctx, sessionID)
		if err != nil {
			return errorJSON(c, err)
		}
		for _, m := range hist.Messages {
			messages = append(messages, HistoryMessage{Role: string(m.Role), Content: m.Content, Extra: m.Extra})
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   messages,
	})
}

// GetSessionContext returns the bounded context view of a live session. With
// ?query= only messages sharing a word with the query are kept.
// GET /v1/sessions/:session_id/context
func (h *Handler) GetSessionContext(c echo.Context) error {
	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id is required"})
	}
	if h.cfg.Sessions == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	w, ok := h.cfg.Sessions.Get(sessionID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}

	if q := strings.TrimSpace(c.QueryParam("query")); q != "" {
		return c.JSON(http.StatusOK, w.RelevantContext(q))
	}
	return c.JSON(http.StatusOK, w.ContextForReasoning())
}
