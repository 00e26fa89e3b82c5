package storage

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/w000nab0/aurafx/internal/stream"
)

// EventRecord is the read-side shape of a persisted event row.
type EventRecord struct {
	ID          string
	Symbol      string
	Timeframe   string
	Direction   string
	TradeAction string
	Strategy    string
	OccurredAt  time.Time
	Price       float64
	PnL         *float64
	Pips        *float64
	Payload     []byte
	CreatedAt   time.Time
}

// EventRepository implements stream.Persister against the events table,
// upserting by id so a republished event replaces rather than duplicates
// its row.
type EventRepository struct {
	db *SQLiteDB
}

// NewEventRepository builds an EventRepository.
func NewEventRepository(db *SQLiteDB) *EventRepository {
	return &EventRepository{db: db}
}

var _ stream.Persister = (*EventRepository)(nil)

// SaveEvent persists one PersistedEvent, generating an id when the
// caller didn't supply one.
func (r *EventRepository) SaveEvent(ev stream.PersistedEvent) error {
	id := ev.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(`
		INSERT INTO events (id, symbol, timeframe, direction, trade_action, strategy, occurred_at, price, pnl, pips, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			trade_action = excluded.trade_action,
			price = excluded.price,
			pnl = excluded.pnl,
			pips = excluded.pips,
			payload = excluded.payload
	`, id, ev.Symbol, ev.Timeframe, ev.Direction, ev.TradeAction, ev.Strategy, ev.OccurredAt, ev.Price, ev.PnL, ev.Pips, string(ev.Payload), createdAt)
	return err
}

// ListBySymbol returns the most recent limit events for symbol, newest
// first. A limit of 0 defaults to 100.
func (r *EventRepository) ListBySymbol(symbol string, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(`
		SELECT id, symbol, timeframe, direction, trade_action, strategy, occurred_at, price, pnl, pips, payload, created_at
		FROM events WHERE symbol = ? ORDER BY occurred_at DESC LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListByStrategy returns events for strategy within [from, to], newest
// first. A zero from/to bound is unbounded on that side.
func (r *EventRepository) ListByStrategy(strategy string, from, to time.Time) ([]EventRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, symbol, timeframe, direction, trade_action, strategy, occurred_at, price, pnl, pips, payload, created_at
		FROM events
		WHERE strategy = ?
		  AND (? = 1 OR occurred_at >= ?)
		  AND (? = 1 OR occurred_at <= ?)
		ORDER BY occurred_at DESC
	`, strategy, from.IsZero(), from, to.IsZero(), to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]EventRecord, error) {
	var out []EventRecord
	for rows.Next() {
		var rec EventRecord
		var payload string
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Timeframe, &rec.Direction, &rec.TradeAction, &rec.Strategy,
			&rec.OccurredAt, &rec.Price, &rec.PnL, &rec.Pips, &payload, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Payload = []byte(payload)
		out = append(out, rec)
	}
	return out, rows.Err()
}
