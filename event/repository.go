package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"goflare.io/storefront/models"
	"goflare.io/storefront/models/enum"
	"goflare.io/storefront/store"
)

const keyPrefix = "event_"

var _ Repository = (*repository)(nil)

// Repository remembers which events were already processed.
type Repository interface {
	Create(ctx context.Context, event *models.Event) error
	Exists(ctx context.Context, id string) (bool, error)
}

type record struct {
	ID          string         `json:"id"`
	Type        enum.EventType `json:"type"`
	ProcessedAt time.Time      `json:"processed_at"`
}

type repository struct {
	store  store.Store
	logger *zap.Logger
}

func NewRepository(s store.Store, logger *zap.Logger) Repository {
	return &repository{
		store:  s,
		logger: logger,
	}
}

func (r *repository) Create(ctx context.Context, event *models.Event) error {
	data, err := json.Marshal(record{ID: event.ID, Type: event.Type, ProcessedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	if err = r.store.Set(ctx, keyPrefix+event.ID, string(data)); err != nil {
		r.logger.Error("Failed to record event", zap.String("event_id", event.ID), zap.Error(err))
		return fmt.Errorf("record event %s: %w", event.ID, err)
	}
	return nil
}

func (r *repository) Exists(ctx context.Context, id string) (bool, error) {
	_, found, err := r.store.Get(ctx, keyPrefix+id)
	if err != nil {
		return false, fmt.Errorf("lookup event %s: %w", id, err)
	}
	return found, nil
}
