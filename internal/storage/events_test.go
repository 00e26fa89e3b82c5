package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/w000nab0/aurafx/internal/stream"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("unexpected error opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveEventThenListBySymbol(t *testing.T) {
	repo := NewEventRepository(newTestDB(t))
	ev := stream.PersistedEvent{
		ID:          "evt-1",
		Symbol:      "USD_JPY",
		Timeframe:   "1m",
		Direction:   "BUY",
		TradeAction: "OPEN",
		Strategy:    "ma_cross",
		OccurredAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Price:       150.0,
		Payload:     []byte(`{"foo":"bar"}`),
	}
	if err := repo.SaveEvent(ev); err != nil {
		t.Fatalf("unexpected save error: %v", err)
	}

	recs, err := repo.ListBySymbol("USD_JPY", 0)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "evt-1" {
		t.Fatalf("expected one matching record, got %+v", recs)
	}
}

func TestSaveEventUpsertsOnDuplicateID(t *testing.T) {
	repo := NewEventRepository(newTestDB(t))
	base := stream.PersistedEvent{
		ID: "evt-1", Symbol: "USD_JPY", Strategy: "ma_cross", Direction: "BUY",
		TradeAction: "OPEN", OccurredAt: time.Now().UTC(), Price: 150.0, Payload: []byte(`{}`),
	}
	if err := repo.SaveEvent(base); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	base.TradeAction = "CLOSE"
	base.Price = 151.0
	if err := repo.SaveEvent(base); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recs, err := repo.ListBySymbol("USD_JPY", 0)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(recs) != 1 || recs[0].TradeAction != "CLOSE" || recs[0].Price != 151.0 {
		t.Fatalf("expected upsert to replace row, got %+v", recs)
	}
}

func TestListByStrategyFiltersByTimeRange(t *testing.T) {
	repo := NewEventRepository(newTestDB(t))
	old := stream.PersistedEvent{
		ID: "evt-old", Symbol: "USD_JPY", Strategy: "ma_cross", Direction: "BUY",
		TradeAction: "OPEN", OccurredAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Price: 150, Payload: []byte(`{}`),
	}
	recent := stream.PersistedEvent{
		ID: "evt-new", Symbol: "USD_JPY", Strategy: "ma_cross", Direction: "BUY",
		TradeAction: "OPEN", OccurredAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Price: 150, Payload: []byte(`{}`),
	}
	if err := repo.SaveEvent(old); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.SaveEvent(recent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	recs, err := repo.ListByStrategy("ma_cross", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "evt-new" {
		t.Fatalf("expected only the recent event, got %+v", recs)
	}
}
