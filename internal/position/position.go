// Package position implements the per-(symbol, strategy) position state
// machine with stop-loss / take-profit supervision.
package position

import "time"

// Direction is the side of a position or signal.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// EventType enumerates how a position was opened or closed.
type EventType string

const (
	EventOpen        EventType = "OPEN"
	EventReverse     EventType = "REVERSE"
	EventStopLoss    EventType = "STOP_LOSS"
	EventTakeProfit  EventType = "TAKE_PROFIT"
	EventManualClose EventType = "MANUAL_CLOSE"
)

// Position is one open position, keyed externally by (symbol, strategy).
type Position struct {
	Symbol     string
	Direction  Direction
	EntryPrice float64
	LotSize    float64
	StopLoss   float64
	TakeProfit float64
	OpenedAt   time.Time
	FeeRate    float64
	OpenFee    float64
	Strategy   string
}

// Unrealized returns the mark-to-market P&L (before fees) at price p.
func (p Position) Unrealized(price float64) float64 {
	sign := 1.0
	if p.Direction == DirectionSell {
		sign = -1.0
	}
	return (price - p.EntryPrice) * p.LotSize * sign
}

// Event is emitted whenever a position opens or closes.
type Event struct {
	Type      EventType
	Position  Position
	Price     float64
	Timestamp time.Time
	PnL       float64
	FeePaid   float64
	Pips      float64
}

type key struct {
	symbol   string
	strategy string
}

// Config holds the economics used to size new positions.
type Config struct {
	PipSize        float64
	LotSize        float64
	StopLossPips   float64
	TakeProfitPips float64
	FeeRate        float64
	TradingActive  bool
}

// Manager owns the position book. It is intended to be driven exclusively
// by the pipeline task, so it carries no internal locking.
type Manager struct {
	cfg       Config
	positions map[key]Position
	lastPrice map[string]float64
}

// NewManager creates an empty position book with the given economics.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg, positions: make(map[key]Position), lastPrice: make(map[string]float64)}
}

// Config returns the current economics configuration.
func (m *Manager) Config() Config { return m.cfg }

// UpdateConfig mutates economics going forward. It never retroactively
// alters an already-open position's stop-loss / take-profit.
func (m *Manager) UpdateConfig(update func(*Config)) {
	update(&m.cfg)
}

// SetTradingActive flips the master trading switch.
func (m *Manager) SetTradingActive(active bool) { m.cfg.TradingActive = active }

// IsTradingActive reports the master trading switch.
func (m *Manager) IsTradingActive() bool { return m.cfg.TradingActive }

// GetLotSize returns the configured lot size.
func (m *Manager) GetLotSize() float64 { return m.cfg.LotSize }

// Positions returns every open position.
func (m *Manager) Positions() []Position {
	out := make([]Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out
}

// GetLastPrice returns the last observed price for a symbol, falling back
// to an open position's entry price, or 0.
func (m *Manager) GetLastPrice(symbol string) float64 {
	if p, ok := m.lastPrice[symbol]; ok {
		return p
	}
	for k, p := range m.positions {
		if k.symbol == symbol {
			return p.EntryPrice
		}
	}
	return 0
}

// HandleSignal opens a new position for (symbol, strategy) if trading is
// active and no same-key position already exists. A direction flip on an
// existing key is a no-op: positions only close via EvaluatePrice,
// ClosePosition, or an explicit reversal performed by the caller — this
// engine never auto-reverses on an opposing signal.
func (m *Manager) HandleSignal(symbol string, direction Direction, price float64, ts time.Time, strategy string) []Event {
	m.lastPrice[symbol] = price
	if !m.cfg.TradingActive {
		return nil
	}
	if strategy == "" {
		strategy = "default"
	}
	k := key{symbol: symbol, strategy: strategy}
	if _, exists := m.positions[k]; exists {
		return nil
	}

	pos := m.createPosition(symbol, direction, price, ts, strategy)
	m.positions[k] = pos
	return []Event{{
		Type:      EventOpen,
		Position:  pos,
		Price:     price,
		Timestamp: ts,
		PnL:       -pos.OpenFee,
		FeePaid:   pos.OpenFee,
		Pips:      0,
	}}
}

func (m *Manager) createPosition(symbol string, direction Direction, price float64, ts time.Time, strategy string) Position {
	offset := m.cfg.PipSize
	var stopLoss, takeProfit float64
	if direction == DirectionBuy {
		stopLoss = price - m.cfg.StopLossPips*offset
		takeProfit = price + m.cfg.TakeProfitPips*offset
	} else {
		stopLoss = price + m.cfg.StopLossPips*offset
		takeProfit = price - m.cfg.TakeProfitPips*offset
	}
	notional := price * m.cfg.LotSize
	return Position{
		Symbol:     symbol,
		Direction:  direction,
		EntryPrice: price,
		LotSize:    m.cfg.LotSize,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		OpenedAt:   ts,
		FeeRate:    m.cfg.FeeRate,
		OpenFee:    notional * m.cfg.FeeRate,
		Strategy:   strategy,
	}
}

// EvaluatePrice scans every position on symbol for a stop-loss or
// take-profit trigger at the new price. At most one position is closed per
// call (the first match in iteration order); remaining triggered positions
// are re-evaluated on the next tick.
func (m *Manager) EvaluatePrice(symbol string, price float64, ts time.Time) (Event, bool) {
	m.lastPrice[symbol] = price
	for k, p := range m.positions {
		if k.symbol != symbol {
			continue
		}
		var reason EventType
		if p.Direction == DirectionBuy {
			switch {
			case price <= p.StopLoss:
				reason = EventStopLoss
			case price >= p.TakeProfit:
				reason = EventTakeProfit
			}
		} else {
			switch {
			case price >= p.StopLoss:
				reason = EventStopLoss
			case price <= p.TakeProfit:
				reason = EventTakeProfit
			}
		}
		if reason == "" {
			continue
		}
		return m.closeByKey(k, price, ts, reason), true
	}
	return Event{}, false
}

// ClosePosition closes the first matching position for symbol regardless
// of direction or SL/TP bounds.
func (m *Manager) ClosePosition(symbol string, price float64, ts time.Time, reason EventType) (Event, bool) {
	if reason == "" {
		reason = EventManualClose
	}
	for k := range m.positions {
		if k.symbol != symbol {
			continue
		}
		return m.closeByKey(k, price, ts, reason), true
	}
	return Event{}, false
}

func (m *Manager) closeByKey(k key, price float64, ts time.Time, reason EventType) Event {
	p := m.positions[k]
	delete(m.positions, k)

	pnlBeforeFee := p.Unrealized(price)
	closeFee := price * p.LotSize * p.FeeRate
	pnl := pnlBeforeFee - closeFee

	sign := 1.0
	if p.Direction == DirectionSell {
		sign = -1.0
	}
	pips := 0.0
	if m.cfg.PipSize != 0 {
		pips = (price - p.EntryPrice) * sign / m.cfg.PipSize
	}

	m.lastPrice[p.Symbol] = price
	return Event{
		Type:      reason,
		Position:  p,
		Price:     price,
		Timestamp: ts,
		PnL:       pnl,
		FeePaid:   closeFee,
		Pips:      pips,
	}
}
