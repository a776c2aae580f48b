package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/notifiq-session/store"
	"github.com/jrsteele09/notifiq-session/token"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

var _ store.Store = (*SQLiteStore)(nil)

// SQLiteStore keeps the token pair in a key/value table of a SQLite database
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (or creates) a SQLite database at dbPath.
// Use ":memory:" for an in-memory database (useful in tests).
func Open(dbPath string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// A single connection keeps ":memory:" databases alive and serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With().Str("component", "sqlitestore").Logger(),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates the key/value table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug().Str("op", "migrate").Msg("sql")
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("migrate kv: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*token.Pair, error) {
	s.logger.Debug().Str("op", "select").Str("key", store.Key).Msg("sql")

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, store.Key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", store.Key, err)
	}

	var pair token.Pair
	if err := json.Unmarshal([]byte(value), &pair); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", store.Key, err)
	}
	return &pair, nil
}

func (s *SQLiteStore) Save(ctx context.Context, pair *token.Pair) error {
	s.logger.Debug().Str("op", "upsert").Str("key", store.Key).Msg("sql")

	value, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", store.Key, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		store.Key, string(value), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", store.Key, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.logger.Debug().Str("op", "delete").Str("key", store.Key).Msg("sql")

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, store.Key); err != nil {
		return fmt.Errorf("delete %s: %w", store.Key, err)
	}
	return nil
}
