package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/w000nab0/aurafx/internal/signal"
)

// SignalHandler serves signal history and per-strategy performance
// summaries.
type SignalHandler struct {
	engine *signal.Engine
}

// NewSignalHandler builds a SignalHandler.
func NewSignalHandler(engine *signal.Engine) *SignalHandler {
	return &SignalHandler{engine: engine}
}

type historyGroup struct {
	Strategy string         `json:"strategy"`
	Events   []signal.Event `json:"events"`
}

// GetHistory groups every recorded event by strategy.
func (h *SignalHandler) GetHistory(c echo.Context) error {
	strategy := c.QueryParam("strategy")
	events := h.engine.GetHistory(strategy)

	grouped := make(map[string][]signal.Event)
	var order []string
	for _, ev := range events {
		if _, seen := grouped[ev.Strategy]; !seen {
			order = append(order, ev.Strategy)
		}
		grouped[ev.Strategy] = append(grouped[ev.Strategy], ev)
	}

	out := make([]historyGroup, 0, len(order))
	for _, name := range order {
		out = append(out, historyGroup{Strategy: name, Events: grouped[name]})
	}
	return c.JSON(http.StatusOK, out)
}

// GetSummary returns per-strategy aggregate performance, optionally
// filtered by from/to/strategy query parameters (RFC3339).
func (h *SignalHandler) GetSummary(c echo.Context) error {
	var from, to time.Time
	if v := c.QueryParam("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid from timestamp"})
		}
		from = parsed
	}
	if v := c.QueryParam("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid to timestamp"})
		}
		to = parsed
	}
	strategy := c.QueryParam("strategy")

	summary := h.engine.GetSummary(strategy, from, to)
	return c.JSON(http.StatusOK, map[string]interface{}{"strategies": summary})
}
