// Package livetrading bridges signal and position events to the broker
// dispatcher, applying blackout and spread gates before any order reaches
// the wire.
package livetrading

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/w000nab0/aurafx/internal/blackout"
	"github.com/w000nab0/aurafx/internal/broker"
	"github.com/w000nab0/aurafx/internal/dispatcher"
	"github.com/w000nab0/aurafx/internal/position"
	"github.com/w000nab0/aurafx/internal/signal"
)

// Controller is the thin policy layer between the signal/position event
// stream and the broker order dispatcher.
type Controller struct {
	client     *broker.Client
	positions  *position.Manager
	dispatcher *dispatcher.Dispatcher
	calendar   *blackout.Calendar
}

// NewController builds a Controller. client or dispatcher may be nil,
// in which case every call is a no-op (no broker configured).
func NewController(client *broker.Client, positions *position.Manager, d *dispatcher.Dispatcher, calendar *blackout.Calendar) *Controller {
	return &Controller{client: client, positions: positions, dispatcher: d, calendar: calendar}
}

// HandleSignal queues a market order for an OPEN/REVERSE-class signal,
// skipping during a blackout window, when trading is inactive, or when
// the spread is too wide.
func (c *Controller) HandleSignal(event signal.Event, spread float64, hasSpread bool) {
	if c.client == nil || c.positions == nil {
		return
	}
	if !c.positions.IsTradingActive() {
		return
	}
	if event.Direction != position.DirectionBuy && event.Direction != position.DirectionSell {
		return
	}
	if event.TradeAction != signal.ActionOpen && event.TradeAction != signal.ActionReverse {
		return
	}
	if c.calendar != nil && c.calendar.IsBlackout(event.OccurredAt) {
		log.Info().Str("symbol", event.Symbol).Msg("skipping market order: blackout active")
		return
	}
	if hasSpread && spread >= 0.5 {
		log.Info().Str("symbol", event.Symbol).Float64("spread", spread).Msg("skipping market order: spread too wide")
		return
	}

	lotSize := c.positions.GetLotSize()
	side := broker.Side(event.Direction)
	log.Info().Str("symbol", event.Symbol).Str("side", string(side)).Float64("lotSize", lotSize).Msg("queueing broker open order")

	c.enqueue("create_market_order "+event.Symbol, func() (interface{}, error) {
		if c.calendar != nil && c.calendar.IsBlackout(time.Now()) {
			return nil, dispatcher.ErrSkip
		}
		if !c.positions.IsTradingActive() {
			return nil, dispatcher.ErrSkip
		}
		return c.client.OpenMarketOrder(event.Symbol, side, lotSize)
	})
}

// HandlePositionEvent queues a close order for any non-OPEN position
// event (STOP_LOSS, TAKE_PROFIT, REVERSE, MANUAL_CLOSE).
func (c *Controller) HandlePositionEvent(event position.Event) {
	if c.client == nil {
		return
	}
	if event.Type == position.EventOpen {
		return
	}
	closeSide := broker.Opposite(broker.Side(event.Position.Direction))
	log.Info().
		Str("symbol", event.Position.Symbol).
		Str("side", string(closeSide)).
		Float64("lotSize", event.Position.LotSize).
		Str("event", string(event.Type)).
		Msg("queueing broker close order")

	c.enqueue("close_market_order "+event.Position.Symbol, func() (interface{}, error) {
		return c.client.CloseMarketOrder(event.Position.Symbol, closeSide, event.Position.LotSize)
	})
}

// ClosePosition queues a manual close order for symbol, independent of
// any position event (used by the HTTP close-position route).
func (c *Controller) ClosePosition(symbol string, direction position.Direction, size float64) {
	if c.client == nil {
		return
	}
	side := broker.Opposite(broker.Side(direction))
	c.enqueue("manual_close "+symbol, func() (interface{}, error) {
		return c.client.CloseMarketOrder(symbol, side, size)
	})
}

// enqueue hands factory to the dispatcher's queue synchronously, on the
// caller's own goroutine, so that two signals handled back-to-back on the
// single pipeline goroutine are enqueued in that same order regardless of
// how their results are later awaited. Only the wait for the result runs
// on a spawned goroutine.
func (c *Controller) enqueue(description string, factory dispatcher.Job) {
	if c.dispatcher == nil {
		log.Warn().Str("job", description).Msg("order dispatcher not configured; skipping")
		return
	}
	result := c.dispatcher.SubmitAsync(description, factory)
	go func() {
		if r := <-result; r.Err != nil {
			log.Error().Err(r.Err).Str("job", description).Msg("order dispatch failed")
		}
	}()
}
