package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var _ Store = (*SQLite)(nil)

const createSQLiteKVTable = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLite is the on-device store. The *sql.DB is opened by driver.OpenSQLite.
type SQLite struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLite(ctx context.Context, db *sql.DB, logger *zap.Logger) (*SQLite, error) {
	if _, err := db.ExecContext(ctx, createSQLiteKVTable); err != nil {
		logger.Error("Failed to create kv table", zap.Error(err))
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &SQLite{
		db:     db,
		logger: logger,
	}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		s.logger.Error("Failed to get key", zap.String("key", key), zap.Error(err))
		return "", false, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		s.logger.Error("Failed to set key", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}
