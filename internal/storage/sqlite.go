// Package storage persists pipeline events (signals and position
// lifecycle transitions) to SQLite: WAL mode, a migration slice run at
// startup, and a thin query surface over database/sql.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// SQLiteDB wraps the database connection.
type SQLiteDB struct {
	db   *sql.DB
	path string
}

// NewSQLiteDB creates a new SQLite database connection.
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sqliteDB := &SQLiteDB{db: db, path: dbPath}

	if err := sqliteDB.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("SQLite database initialized")
	return sqliteDB, nil
}

// DB returns the underlying sql.DB.
func (s *SQLiteDB) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) migrate() error {
	migrations := []string{
		// Persisted pipeline events: signals and position lifecycle
		// transitions. Payload carries the full source event as JSON
		// for replay/inspection; the flat columns exist for indexed
		// querying.
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			timeframe TEXT,
			direction TEXT NOT NULL,
			trade_action TEXT NOT NULL,
			strategy TEXT NOT NULL,
			occurred_at DATETIME NOT NULL,
			price REAL NOT NULL,
			pnl REAL,
			pips REAL,
			payload TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_events_symbol_time
		 ON events(symbol, occurred_at DESC)`,

		`CREATE INDEX IF NOT EXISTS idx_events_strategy_time
		 ON events(strategy, occurred_at DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, migration)
		}
	}

	log.Debug().Msg("database migrations completed")
	return nil
}

// Exec executes a query without returning rows.
func (s *SQLiteDB) Exec(query string, args ...interface{}) (sql.Result, error) {
	return s.db.Exec(query, args...)
}

// Query executes a query that returns rows.
func (s *SQLiteDB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.Query(query, args...)
}

// QueryRow executes a query that returns a single row.
func (s *SQLiteDB) QueryRow(query string, args ...interface{}) *sql.Row {
	return s.db.QueryRow(query, args...)
}

