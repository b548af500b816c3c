package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"goflare.io/storefront/driver"
)

var _ Store = (*Postgres)(nil)

const createKVTable = `
CREATE TABLE IF NOT EXISTS storefront_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertKV = `
INSERT INTO storefront_kv (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

const selectKV = `SELECT value FROM storefront_kv WHERE key = $1`

type Postgres struct {
	conn               driver.PostgresPool
	transactionManager *driver.TransactionManager
	logger             *zap.Logger
}

func NewPostgres(conn driver.PostgresPool, tm *driver.TransactionManager, logger *zap.Logger) *Postgres {
	return &Postgres{
		conn:               conn,
		transactionManager: tm,
		logger:             logger,
	}
}

// EnsureSchema creates the key-value table when it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.conn.Exec(ctx, createKVTable); err != nil {
		p.logger.Error("Failed to create kv table", zap.Error(err))
		return fmt.Errorf("create kv table: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.conn.QueryRow(ctx, selectKV, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		p.logger.Error("Failed to get key", zap.String("key", key), zap.Error(err))
		return "", false, fmt.Errorf("postgres get %s: %w", key, err)
	}
	return value, true, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	return p.transactionManager.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertKV, key, value); err != nil {
			p.logger.Error("Failed to set key", zap.String("key", key), zap.Error(err))
			return fmt.Errorf("postgres set %s: %w", key, err)
		}
		return nil
	})
}
