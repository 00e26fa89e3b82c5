package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/w000nab0/aurafx/internal/broadcast"
	"github.com/w000nab0/aurafx/internal/indicator"
	"github.com/w000nab0/aurafx/internal/livetrading"
	"github.com/w000nab0/aurafx/internal/position"
	"github.com/w000nab0/aurafx/internal/signal"
	"github.com/w000nab0/aurafx/internal/stream"
)

// PositionHandler serves the open-position surface: listing open
// positions and manually closing one.
type PositionHandler struct {
	positions  *position.Manager
	indicators *indicator.Engine
	signals    *signal.Engine
	controller *livetrading.Controller
	hub        *broadcast.Hub
	persister  stream.Persister
}

// NewPositionHandler builds a PositionHandler.
func NewPositionHandler(positions *position.Manager, indicators *indicator.Engine, signals *signal.Engine, controller *livetrading.Controller, hub *broadcast.Hub, persister stream.Persister) *PositionHandler {
	return &PositionHandler{positions: positions, indicators: indicators, signals: signals, controller: controller, hub: hub, persister: persister}
}

// GetPositions returns every open position.
func (h *PositionHandler) GetPositions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.positions.Positions())
}

// ClosePosition manually closes the open position for symbol at its last
// observed price, dispatches the corresponding broker close order, and
// records the derived close signal.
func (h *PositionHandler) ClosePosition(c echo.Context) error {
	symbol := c.Param("symbol")

	var found bool
	for _, p := range h.positions.Positions() {
		if p.Symbol == symbol {
			found = true
			break
		}
	}
	if !found {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "position not found"})
	}

	price := h.positions.GetLastPrice(symbol)
	event, ok := h.positions.ClosePosition(symbol, price, time.Now().UTC(), position.EventManualClose)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unable to close position"})
	}

	if h.controller != nil {
		h.controller.ClosePosition(event.Position.Symbol, event.Position.Direction, event.Position.LotSize)
	}
	if h.hub != nil {
		h.hub.Publish(broadcast.Message{Type: "position", Data: event})
	}
	if h.persister != nil {
		if record, err := stream.PositionToPersistedEvent(event); err == nil {
			if err := h.persister.SaveEvent(record); err != nil {
				log.Warn().Err(err).Str("symbol", symbol).Msg("failed to persist manual close position event")
			}
		}
	}

	var store *indicator.Store
	if h.indicators != nil {
		store = h.indicators.Store()
	}
	closeSignal := stream.SynthesizeCloseSignal(store, event)
	if h.signals != nil {
		h.signals.RecordCloseEvent(closeSignal)
	}
	if h.hub != nil {
		h.hub.Publish(broadcast.Message{Type: "signal", Data: closeSignal})
	}
	if h.persister != nil {
		if record, err := stream.SignalToPersistedEvent(closeSignal); err == nil {
			if err := h.persister.SaveEvent(record); err != nil {
				log.Warn().Err(err).Str("symbol", symbol).Msg("failed to persist manual close signal event")
			}
		}
	}

	return c.JSON(http.StatusOK, event)
}
