package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"goflare.io/storefront/models"
	"goflare.io/storefront/store"
)

// ErrMalformedCart is returned by Load when the stored value is not a cart.
var ErrMalformedCart = errors.New("cart: malformed stored cart")

const keyPrefix = "cartItems_"

var _ Repository = (*repository)(nil)

type Repository interface {
	Load(ctx context.Context, userID string) (models.Cart, error)
	Save(ctx context.Context, userID string, cart models.Cart) error
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

// Key returns the persisted-store key of userID's cart.
func Key(userID string) string {
	return keyPrefix + userID
}

func (r *repository) Load(ctx context.Context, userID string) (models.Cart, error) {
	raw, found, err := r.store.Get(ctx, Key(userID))
	if err != nil {
		r.logger.Error("Failed to load cart", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("load cart %s: %w", userID, err)
	}
	if !found || raw == "" {
		return models.Cart{}, nil
	}

	var cart models.Cart
	if err = json.Unmarshal([]byte(raw), &cart); err != nil {
		r.logger.Warn("Stored cart is not valid JSON", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrMalformedCart, err)
	}
	if cart == nil {
		// "null"
		return models.Cart{}, nil
	}

	return normalize(cart), nil
}

func (r *repository) Save(ctx context.Context, userID string, cart models.Cart) error {
	if cart == nil {
		cart = models.Cart{}
	}
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", userID, err)
	}
	if err = r.store.Set(ctx, Key(userID), string(data)); err != nil {
		r.logger.Error("Failed to save cart", zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("save cart %s: %w", userID, err)
	}
	return nil
}

// normalize drops lines without an id or with a non-positive quantity and merges
// duplicate ids the same way AddItem does.
func normalize(in models.Cart) models.Cart {
	out := make(models.Cart, 0, len(in))
	for _, item := range in {
		if item.ID == "" || item.Quantity < 1 {
			continue
		}
		if i := out.Index(item.ID); i >= 0 {
			out[i].Quantity += item.Quantity
			continue
		}
		out = append(out, item)
	}
	return out
}
