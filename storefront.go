package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"goflare.io/storefront/cart"
	"goflare.io/storefront/catalog"
	"goflare.io/storefront/category"
	"goflare.io/storefront/event"
	"goflare.io/storefront/models"
	"goflare.io/storefront/models/enum"
	"goflare.io/storefront/session"
	"goflare.io/storefront/store"
)

const sessionKey = "session_state"

var ErrProductNotFound = errors.New("product not found")

type Service interface {
	ListProducts(ctx context.Context) ([]*models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
	ListCategoryProducts(ctx context.Context, categoryID string) ([]*models.Product, error)

	Login(ctx context.Context, username, password string) (*models.User, error)
	Logout(ctx context.Context) error
	RestoreSession(ctx context.Context) error
	CurrentUser() (*models.User, bool)
	EditProfile(ctx context.Context, edit models.UserEdit) (*models.User, error)

	AddToCart(ctx context.Context, productID string, quantity int) (*models.CartItem, error)
	AddItemToCart(item models.CartItem)
	RemoveItemFromCart(id string)
	UpdateCartItemQuantity(id string, quantity int)
	IncreaseCartItem(id string)
	DecreaseCartItem(id string)
	CartItems(ctx context.Context) (models.Cart, error)
	CartSummary(ctx context.Context) (models.CartSummary, error)

	ProcessEvent(ctx context.Context, event *models.Event) error
	Close(ctx context.Context) error
}

// Config holds the collaborators of a Service. Catalog and Store are required.
type Config struct {
	Catalog        catalog.Repository
	Store          store.Store
	NATS           *nats.Conn
	TokenSecret    []byte
	Workers        int
	CartOptions    []cart.Option
	SessionOptions []session.Option
}

type service struct {
	catalog  catalog.Repository
	category category.Repository
	event    event.Repository
	store    store.Store

	session *session.Holder
	cart    *cart.Manager

	eventManager *EventManager
	workerPool   *WorkerPool

	logger *zap.Logger
}

func NewService(cfg Config, logger *zap.Logger) Service {
	s := &service{
		catalog:  cfg.Catalog,
		category: category.NewRepository(cfg.Catalog, logger),
		event:    event.NewRepository(cfg.Store, logger),
		store:    cfg.Store,
		logger:   logger,
	}
	s.eventManager = NewEventManager(cfg.NATS, uuid.NewString(), logger)

	cartOpts := append([]cart.Option{cart.WithSavedHook(s.cartSaved)}, cfg.CartOptions...)
	s.cart = cart.NewManager(cart.NewRepository(cfg.Store, logger), logger, cartOpts...)

	s.session = session.NewHolder(cfg.Catalog, cfg.TokenSecret, logger, cfg.SessionOptions...)
	s.session.Subscribe(s.identityChanged)

	s.workerPool = NewWorkerPool(cfg.Workers, s, logger)
	s.registerEventHandlers()

	if err := s.eventManager.SubscribeToEvents(s.workerPool); err != nil {
		logger.Error("Failed to subscribe to events", zap.Error(err))
	}

	return s
}

func (s *service) identityChanged(userID string) {
	s.cart.OnIdentityChange(userID)
	s.eventManager.Publish(enum.EventTypeIdentityChanged, userID, nil)
}

func (s *service) cartSaved(userID string, items models.Cart) {
	s.eventManager.Publish(enum.EventTypeCartUpdated, userID, items)
}

func (s *service) ListProducts(ctx context.Context) ([]*models.Product, error) {
	return s.category.Products(ctx, models.CategoryAll)
}

func (s *service) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		if catalog.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		s.logger.Error("Error fetching product", zap.String("product_id", id), zap.Error(err))
		return nil, err
	}
	return product, nil
}

func (s *service) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return s.category.List(ctx)
}

func (s *service) ListCategoryProducts(ctx context.Context, categoryID string) ([]*models.Product, error) {
	return s.category.Products(ctx, categoryID)
}

func (s *service) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.session.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	s.persistSession(ctx)
	return user, nil
}

func (s *service) Logout(ctx context.Context) error {
	s.session.Logout()
	s.persistSession(ctx)
	return nil
}

// RestoreSession reinstates the session saved by a previous Login.
func (s *service) RestoreSession(ctx context.Context) error {
	raw, found, err := s.store.Get(ctx, sessionKey)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !found || raw == "" || raw == "null" {
		return nil
	}

	var state session.State
	if err = json.Unmarshal([]byte(raw), &state); err != nil {
		s.logger.Warn("Discarding malformed session", zap.Error(err))
		return nil
	}
	if err = s.session.Restore(&state); err != nil {
		s.logger.Warn("Discarding invalid session", zap.Error(err))
		return nil
	}
	return s.cart.WaitLoaded(ctx)
}

func (s *service) persistSession(ctx context.Context) {
	data, err := json.Marshal(s.session.Snapshot())
	if err != nil {
		s.logger.Error("Failed to encode session", zap.Error(err))
		return
	}
	if err = s.store.Set(ctx, sessionKey, string(data)); err != nil {
		s.logger.Error("Failed to persist session", zap.Error(err))
	}
}

func (s *service) CurrentUser() (*models.User, bool) {
	return s.session.User()
}

func (s *service) EditProfile(ctx context.Context, edit models.UserEdit) (*models.User, error) {
	user, err := s.session.Edit(edit)
	if err != nil {
		return nil, err
	}
	s.persistSession(ctx)
	s.eventManager.Publish(enum.EventTypeProfileUpdated, user.ID.String(), user)
	return user, nil
}

// AddToCart snapshots the product's name, price and image into a cart line.
func (s *service) AddToCart(ctx context.Context, productID string, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1, got %d", quantity)
	}
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err = s.cart.WaitLoaded(ctx); err != nil {
		return nil, err
	}
	item := models.NewCartItemFromProduct(product, quantity)
	s.cart.AddItem(item)
	return &item, nil
}

func (s *service) AddItemToCart(item models.CartItem) {
	s.cart.AddItem(item)
}

func (s *service) RemoveItemFromCart(id string) {
	s.cart.RemoveItem(id)
}

func (s *service) UpdateCartItemQuantity(id string, quantity int) {
	s.cart.SetQuantity(id, quantity)
}

func (s *service) IncreaseCartItem(id string) {
	s.cart.Increment(id)
}

func (s *service) DecreaseCartItem(id string) {
	s.cart.Decrement(id)
}

// CartItems waits for an in-flight load before reading the cart.
func (s *service) CartItems(ctx context.Context) (models.Cart, error) {
	if err := s.cart.WaitLoaded(ctx); err != nil {
		return nil, err
	}
	return s.cart.Items(), nil
}

func (s *service) CartSummary(ctx context.Context) (models.CartSummary, error) {
	items, err := s.CartItems(ctx)
	if err != nil {
		return models.CartSummary{}, err
	}
	return items.Summary(), nil
}

// Close stops event processing and writes every pending cart save.
func (s *service) Close(ctx context.Context) error {
	s.eventManager.Unsubscribe()
	s.workerPool.Shutdown()

	err := s.cart.Flush(ctx)
	s.cart.Close()
	if err != nil {
		return fmt.Errorf("flush cart: %w", err)
	}
	return nil
}
