// Package cart 管理目前登入使用者的購物車, 並同步到持久化儲存
package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"goflare.io/storefront/models"
)

const (
	defaultLoadTimeout = 5 * time.Second
	defaultSaveTimeout = 5 * time.Second
)

// SavedHook is called from the writer goroutine after a cart snapshot was persisted.
type SavedHook func(userID string, cart models.Cart)

type Option func(*Manager)

func WithLoadTimeout(d time.Duration) Option {
	return func(m *Manager) { m.loadTimeout = d }
}

func WithSaveTimeout(d time.Duration) Option {
	return func(m *Manager) { m.saveTimeout = d }
}

func WithSavedHook(hook SavedHook) Option {
	return func(m *Manager) { m.savedHooks = append(m.savedHooks, hook) }
}

type op func(models.Cart) models.Cart

// Manager owns the cart of the active identity. Mutations apply to memory
// synchronously and never fail; loads and saves run in the background.
type Manager struct {
	repo        Repository
	writer      *writer
	logger      *zap.Logger
	loadTimeout time.Duration
	saveTimeout time.Duration
	savedHooks  []SavedHook

	mu         sync.Mutex
	userID     string
	generation uint64
	loading    bool
	loaded     chan struct{}
	replay     []op
	items      models.Cart
}

func NewManager(repo Repository, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		repo:        repo,
		logger:      logger,
		loadTimeout: defaultLoadTimeout,
		saveTimeout: defaultSaveTimeout,
		items:       models.Cart{},
		loaded:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	close(m.loaded)
	m.writer = newWriter(repo, m.saveTimeout, m.savedHooks, logger)
	return m
}

// OnIdentityChange switches the cart to userID ("" means nobody is logged in).
// The previous identity's stored cart is left untouched.
func (m *Manager) OnIdentityChange(userID string) {
	m.mu.Lock()
	if userID == m.userID && userID != "" {
		m.mu.Unlock()
		return
	}
	m.userID = userID
	m.items = models.Cart{}
	if userID == "" {
		m.generation++
		m.finishLoadLocked()
		m.mu.Unlock()
		return
	}
	m.startLoadLocked(nil)
	m.mu.Unlock()
}

// Reload re-reads the active identity's cart, keeping local changes made
// while the load is in flight.
func (m *Manager) Reload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userID == "" {
		return
	}
	m.startLoadLocked(m.replay)
}

// startLoadLocked supersedes any in-flight load. replay carries operations that
// must survive into the new load (same identity only).
func (m *Manager) startLoadLocked(replay []op) {
	m.generation++
	m.finishLoadLocked()
	m.loading = true
	m.loaded = make(chan struct{})
	m.replay = replay
	go m.load(m.generation, m.userID, m.loaded)
}

func (m *Manager) finishLoadLocked() {
	if m.loading {
		close(m.loaded)
	}
	m.loading = false
	m.replay = nil
}

func (m *Manager) load(generation uint64, userID string, loaded chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), m.loadTimeout)
	defer cancel()

	// saves issued before the load must land first, or we read our own stale cart
	if err := m.writer.flush(ctx); err != nil {
		m.logger.Warn("Pending cart saves not flushed before load", zap.String("user_id", userID), zap.Error(err))
	}

	cart, err := m.repo.Load(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrMalformedCart) {
			m.logger.Warn("Discarding malformed stored cart", zap.String("user_id", userID), zap.Error(err))
		} else {
			m.logger.Error("Failed to load cart, starting empty", zap.String("user_id", userID), zap.Error(err))
		}
		cart = models.Cart{}
	}

	m.mu.Lock()
	if generation != m.generation {
		m.mu.Unlock()
		m.logger.Debug("Ignoring stale cart load", zap.String("user_id", userID))
		return
	}
	for _, o := range m.replay {
		cart = o(cart)
	}
	replayed := len(m.replay)
	m.items = cart
	m.replay = nil
	m.loading = false
	if replayed > 0 {
		m.scheduleSaveLocked()
	}
	m.logger.Debug("Cart loaded",
		zap.String("user_id", userID),
		zap.Int("lines", len(cart)),
		zap.Int("replayed", replayed))
	close(loaded)
	m.mu.Unlock()
}

// AddItem merges item into the cart: an existing line keeps its name, price and
// image and gains item.Quantity; otherwise item is appended.
func (m *Manager) AddItem(item models.CartItem) {
	if item.ID == "" || item.Quantity < 1 {
		m.logger.Warn("Ignoring invalid cart item",
			zap.String("item_id", item.ID),
			zap.Int("quantity", item.Quantity))
		return
	}
	m.mutate(func(c models.Cart) models.Cart {
		if i := c.Index(item.ID); i >= 0 {
			c[i].Quantity += item.Quantity
			return c
		}
		return append(c, item)
	})
}

func (m *Manager) RemoveItem(id string) {
	m.mutate(func(c models.Cart) models.Cart {
		return remove(c, id)
	})
}

// SetQuantity replaces the quantity of line id. A quantity of zero or less
// removes the line.
func (m *Manager) SetQuantity(id string, quantity int) {
	m.mutate(func(c models.Cart) models.Cart {
		i := c.Index(id)
		if i < 0 {
			return c
		}
		if quantity <= 0 {
			return remove(c, id)
		}
		c[i].Quantity = quantity
		return c
	})
}

func (m *Manager) Increment(id string) {
	m.mutate(func(c models.Cart) models.Cart {
		if i := c.Index(id); i >= 0 {
			c[i].Quantity++
		}
		return c
	})
}

// Decrement lowers the quantity of line id by one, removing it at one.
func (m *Manager) Decrement(id string) {
	m.mutate(func(c models.Cart) models.Cart {
		i := c.Index(id)
		if i < 0 {
			return c
		}
		if c[i].Quantity <= 1 {
			return remove(c, id)
		}
		c[i].Quantity--
		return c
	})
}

func remove(c models.Cart, id string) models.Cart {
	i := c.Index(id)
	if i < 0 {
		return c
	}
	return append(c[:i:i], c[i+1:]...)
}

func (m *Manager) mutate(o op) {
	m.mu.Lock()
	m.items = o(m.items)
	if m.loading {
		m.replay = append(m.replay, o)
	} else {
		m.scheduleSaveLocked()
	}
	m.mu.Unlock()
}

func (m *Manager) scheduleSaveLocked() {
	if m.userID == "" {
		return
	}
	m.writer.enqueue(m.userID, m.items.Clone())
}

// Items returns a copy of the current cart.
func (m *Manager) Items() models.Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.Clone()
}

func (m *Manager) Summary() models.CartSummary {
	return m.Items().Summary()
}

func (m *Manager) Identity() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// WaitLoaded blocks until the load for the current identity has resolved.
func (m *Manager) WaitLoaded(ctx context.Context) error {
	for {
		m.mu.Lock()
		loaded := m.loaded
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-loaded:
		}

		// a superseded load closes its channel early; wait for the one that replaced it
		m.mu.Lock()
		done := !m.loading || m.loaded == loaded
		m.mu.Unlock()
		if done {
			return nil
		}
	}
}

// Flush waits for every save issued so far to be written.
func (m *Manager) Flush(ctx context.Context) error {
	return m.writer.flush(ctx)
}

// Close drains pending saves and stops the writer.
func (m *Manager) Close() {
	m.writer.close()
}
