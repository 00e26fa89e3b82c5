// Package stream runs the live ticker WebSocket and drives the full
// tick -> candle -> indicator -> signal -> position -> broker pipeline for
// each message, publishing every intermediate result to the broadcast
// hub.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/w000nab0/aurafx/internal/broadcast"
	"github.com/w000nab0/aurafx/internal/candle"
	"github.com/w000nab0/aurafx/internal/indicator"
	"github.com/w000nab0/aurafx/internal/livetrading"
	"github.com/w000nab0/aurafx/internal/position"
	"github.com/w000nab0/aurafx/internal/ratelimit"
	"github.com/w000nab0/aurafx/internal/signal"
)

// PersistedEvent is the storage-layer shape of a signal or position event.
type PersistedEvent struct {
	ID           string
	Symbol       string
	Timeframe    string
	Direction    string
	TradeAction  string
	Strategy     string
	StrategyName string
	OccurredAt   time.Time
	Price        float64
	PnL          *float64
	Pips         *float64
	Payload      json.RawMessage
	CreatedAt    time.Time
}

// Persister stores PersistedEvents. A failure to persist is logged, never
// fatal to the pipeline.
type Persister interface {
	SaveEvent(PersistedEvent) error
}

// Config holds MarketStream's static wiring parameters. PingInterval is
// stored but no ping frames are sent, and ReconnectWait is a fixed pause
// between connection attempts, not a growing backoff.
type Config struct {
	Endpoint      string
	Symbols       []string
	PingInterval  time.Duration
	ReconnectWait time.Duration
}

// MarketStream is the pipeline root: it owns the WebSocket connection and
// drives every downstream component for each tick. It is intended to run
// on a single goroutine, so per-tick ordering across symbols and
// timeframes falls out of cooperative scheduling instead of locking.
type MarketStream struct {
	cfg Config

	limiter     *ratelimit.Limiter
	aggregator  *candle.Aggregator
	indicators  *indicator.Engine
	signals     *signal.Engine
	positions   *position.Manager
	hub         *broadcast.Hub
	controller  *livetrading.Controller
	persister   Persister
	timeframes  map[int]string

	stopOnce sync.Once
	stopCh   chan struct{}
	stopped  chan struct{}
}

// New builds a MarketStream. timeframeLabels maps each configured
// timeframe (seconds) to its wire label ("1m", "5m", ...).
func New(
	cfg Config,
	limiter *ratelimit.Limiter,
	aggregator *candle.Aggregator,
	indicators *indicator.Engine,
	signals *signal.Engine,
	positions *position.Manager,
	hub *broadcast.Hub,
	controller *livetrading.Controller,
	persister Persister,
	timeframeLabels map[int]string,
) *MarketStream {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 20 * time.Second
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 5 * time.Second
	}
	return &MarketStream{
		cfg:        cfg,
		limiter:    limiter,
		aggregator: aggregator,
		indicators: indicators,
		signals:    signals,
		positions:  positions,
		hub:        hub,
		controller: controller,
		persister:  persister,
		timeframes: timeframeLabels,
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Stop requests shutdown and blocks until Run has flushed open candles
// and returned.
func (m *MarketStream) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	<-m.stopped
}

// Run connects and processes ticks until Stop is called, reconnecting on
// any error after a 5s pause.
func (m *MarketStream) Run(ctx context.Context) {
	defer close(m.stopped)
	for {
		select {
		case <-m.stopCh:
			m.flush()
			return
		case <-ctx.Done():
			m.flush()
			return
		default:
		}

		if err := m.runOnce(ctx); err != nil {
			log.Error().Err(err).Msg("market stream error, reconnecting")
			select {
			case <-time.After(m.cfg.ReconnectWait):
			case <-m.stopCh:
				m.flush()
				return
			case <-ctx.Done():
				m.flush()
				return
			}
		}
	}
}

func (m *MarketStream) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, m.cfg.Endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	for _, symbol := range m.cfg.Symbols {
		if m.limiter != nil {
			if err := m.limiter.Acquire(ctx, "ws-sub"); err != nil {
				return fmt.Errorf("rate limiter wait interrupted: %w", err)
			}
		}
		msg := map[string]string{"command": "subscribe", "channel": "ticker", "symbol": symbol}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("failed to subscribe %s: %w", symbol, err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	log.Info().Int("symbols", len(m.cfg.Symbols)).Msg("market stream subscribed")

	for {
		select {
		case <-m.stopCh:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}
		m.handleFrame(data)
	}
}

func (m *MarketStream) handleFrame(data []byte) {
	m.hub.Publish(broadcast.Message{Type: "ticker", Data: json.RawMessage(data)})

	tick, ok := parseTick(data)
	if !ok {
		return
	}
	price := tick.Price()
	spread, hasSpread := tick.Spread()

	if closeEvent, ok := m.positions.EvaluatePrice(tick.Symbol, price, tick.Timestamp); ok {
		m.handlePositionEvent(closeEvent)
		closeSignal := m.synthesizeCloseSignal(closeEvent)
		m.signals.RecordCloseEvent(closeSignal)
		m.hub.Publish(broadcast.Message{Type: "signal", Data: closeSignal})
		m.persistSignal(closeSignal)
	}

	volume := tick.Volume
	closed := m.aggregator.AddTick(tick.Symbol, price, volume, tick.Timestamp)
	for _, c := range closed {
		m.hub.Publish(broadcast.Message{Type: "candle", Data: c.Candle})

		snap := m.indicators.HandleCandle(c.Symbol, c.TimeframeSeconds, c.Candle)
		m.hub.Publish(broadcast.Message{Type: "indicator", Data: snap})
	}

	m.evaluateSignals(tick.Symbol, price, tick.Timestamp, spread, hasSpread)
}

// evaluateSignals runs the strategy table once per tick for every
// configured timeframe, against the latest cached snapshot for that
// timeframe rather than only on the tick that closed it. A strategy can
// therefore be evaluated repeatedly against the same snapshot across
// several ticks, which is what lets the dedup window (same strategy,
// symbol, timeframe, direction, and indicator_timestamp) actually
// suppress a repeat emission instead of every call seeing a unique
// timestamp.
func (m *MarketStream) evaluateSignals(symbol string, price float64, ts time.Time, spread float64, hasSpread bool) {
	for _, timeframeSeconds := range m.aggregator.Timeframes() {
		label, ok := m.timeframes[timeframeSeconds]
		if !ok {
			continue
		}
		snap, ok := m.indicators.Store().GetSnapshot(symbol, strconv.Itoa(timeframeSeconds))
		if !ok {
			continue
		}
		candles := m.aggregator.GetCandles(symbol, timeframeSeconds)
		events := m.signals.Evaluate(symbol, label, timeframeSeconds, price, snap, ts, candles)
		for _, ev := range events {
			posEvents := m.positions.HandleSignal(symbol, ev.Direction, price, ts, ev.Strategy)
			ev.TradeAction = tradeActionFromPositionEvents(posEvents)

			m.hub.Publish(broadcast.Message{Type: "signal", Data: ev})
			m.persistSignal(ev)

			for _, pe := range posEvents {
				m.handlePositionEvent(pe)
			}
			m.controller.HandleSignal(ev, spread, hasSpread)
		}
	}
}

func (m *MarketStream) handlePositionEvent(event position.Event) {
	m.hub.Publish(broadcast.Message{Type: "position", Data: event})
	m.persistPositionEvent(event)
	m.controller.HandlePositionEvent(event)
}

func tradeActionFromPositionEvents(events []position.Event) signal.TradeAction {
	if len(events) == 0 {
		return signal.ActionNone
	}
	switch events[0].Type {
	case position.EventOpen:
		return signal.ActionOpen
	case position.EventReverse:
		return signal.ActionReverse
	default:
		return signal.ActionClose
	}
}

// synthesizeCloseSignal builds the close-derived signal for a position
// close event: the latest snapshot for the position's natural timeframe,
// or a zeroed fallback when none exists yet.
func (m *MarketStream) synthesizeCloseSignal(event position.Event) signal.Event {
	return SynthesizeCloseSignal(m.indicators.Store(), event)
}

// SynthesizeCloseSignal builds the close-derived signal for a position
// event, looking up the latest snapshot for its natural timeframe from
// store, or falling back to a zeroed snapshot when none exists yet. Used
// by both the streaming pipeline and the manual-close API route.
func SynthesizeCloseSignal(store *indicator.Store, event position.Event) signal.Event {
	const timeframe = "1m"
	const timeframeSeconds = 60
	var snap indicator.Snapshot
	var ok bool
	if store != nil {
		snap, ok = store.GetSnapshot(event.Position.Symbol, strconv.Itoa(timeframeSeconds))
	}
	if !ok {
		snap = indicator.Snapshot{Symbol: event.Position.Symbol, Timeframe: timeframe, Timestamp: event.Timestamp}
	}
	direction := position.DirectionSell
	if event.Position.Direction == position.DirectionSell {
		direction = position.DirectionBuy
	}
	return signal.Event{
		Strategy:    event.Position.Strategy,
		Symbol:      event.Position.Symbol,
		Timeframe:   snap.Timeframe,
		Direction:   direction,
		Price:       event.Price,
		OccurredAt:  event.Timestamp,
		Indicator:   snap,
		TradeAction: signal.ActionClose,
		PnL:         event.PnL,
		Pips:        event.Pips,
	}
}

func (m *MarketStream) persistSignal(ev signal.Event) {
	if m.persister == nil {
		return
	}
	record, err := SignalToPersistedEvent(ev)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode signal payload for persistence")
		return
	}
	if err := m.persister.SaveEvent(record); err != nil {
		log.Warn().Err(err).Str("symbol", ev.Symbol).Msg("failed to persist signal event")
	}
}

func (m *MarketStream) persistPositionEvent(ev position.Event) {
	if m.persister == nil {
		return
	}
	record, err := PositionToPersistedEvent(ev)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode position payload for persistence")
		return
	}
	if err := m.persister.SaveEvent(record); err != nil {
		log.Warn().Err(err).Str("symbol", ev.Position.Symbol).Msg("failed to persist position event")
	}
}

// SignalToPersistedEvent converts a signal.Event into its persisted-record
// shape, shared by the streaming pipeline and the manual-close API route.
func SignalToPersistedEvent(ev signal.Event) (PersistedEvent, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return PersistedEvent{}, err
	}
	record := PersistedEvent{
		Symbol:       ev.Symbol,
		Timeframe:    ev.Timeframe,
		Direction:    string(ev.Direction),
		TradeAction:  string(ev.TradeAction),
		Strategy:     ev.Strategy,
		StrategyName: ev.Strategy,
		OccurredAt:   ev.OccurredAt,
		Price:        ev.Price,
		Payload:      payload,
		CreatedAt:    time.Now().UTC(),
	}
	if ev.TradeAction == signal.ActionClose {
		pnl, pips := ev.PnL, ev.Pips
		record.PnL, record.Pips = &pnl, &pips
	}
	return record, nil
}

// PositionToPersistedEvent converts a position.Event into its
// persisted-record shape.
func PositionToPersistedEvent(ev position.Event) (PersistedEvent, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return PersistedEvent{}, err
	}
	pnl, pips := ev.PnL, ev.Pips
	return PersistedEvent{
		Symbol:       ev.Position.Symbol,
		Direction:    string(ev.Position.Direction),
		TradeAction:  string(ev.Type),
		Strategy:     ev.Position.Strategy,
		StrategyName: ev.Position.Strategy,
		OccurredAt:   ev.Timestamp,
		Price:        ev.Price,
		PnL:          &pnl,
		Pips:         &pips,
		Payload:      payload,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// flush closes every currently-open candle and publishes it, run on
// shutdown.
func (m *MarketStream) flush() {
	for _, c := range m.aggregator.FlushOpen() {
		m.hub.Publish(broadcast.Message{Type: "candle", Data: c.Candle})
	}
}
