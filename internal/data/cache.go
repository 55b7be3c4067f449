package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"equity-backtest/internal/model"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// BarCache is a permanent on-disk cache of fetched bar payloads, keyed
// by (symbol, date, history_length). Entries are never expired: bars for
// a past trading date do not change, so a hit is always valid.
//
// A nil *BarCache is a working no-op cache; every Get misses and every
// Put is dropped. That keeps the cache optional at the Stage level.
type BarCache struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

const cacheDDL = `
CREATE TABLE IF NOT EXISTS bars (
	symbol         TEXT    NOT NULL,
	date           TEXT    NOT NULL,
	history_length INTEGER NOT NULL,
	payload        BLOB    NOT NULL,
	created_at     TEXT    NOT NULL,
	PRIMARY KEY (symbol, date, history_length)
);`

// OpenCache opens (creating if needed) the sqlite cache at path.
func OpenCache(path string, log *zap.SugaredLogger) (*BarCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening bar cache: %w", err)
	}
	// WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec(cacheDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("bar cache schema: %w", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &BarCache{db: db, log: log}, nil
}

// Get looks up the cached series for (symbol, date, historyLength).
// A decode failure is logged and reported as a miss so the entry gets
// refetched and overwritten.
func (c *BarCache) Get(ctx context.Context, symbol string, date time.Time, historyLength int) (model.BarSeries, bool) {
	if c == nil {
		return nil, false
	}
	var payload []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM bars WHERE symbol = ? AND date = ? AND history_length = ?`,
		symbol, date.Format(model.DateFormat), historyLength,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		c.log.Warnw("bar cache read failed", "symbol", symbol, "error", err)
		return nil, false
	}
	var series model.BarSeries
	if err := json.Unmarshal(payload, &series); err != nil {
		c.log.Warnw("corrupt bar cache entry, treating as miss", "symbol", symbol, "error", err)
		return nil, false
	}
	return series, true
}

// Put stores a fetched series, replacing any existing entry for the key.
func (c *BarCache) Put(ctx context.Context, symbol string, date time.Time, historyLength int, series model.BarSeries) error {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("encode bars for cache: %w", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO bars (symbol, date, history_length, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		symbol, date.Format(model.DateFormat), historyLength, payload,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("write bar cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *BarCache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}
