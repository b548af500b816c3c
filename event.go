package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"goflare.io/storefront/models"
	"goflare.io/storefront/models/enum"
)

const subjectPrefix = "storefront.event."

type EventHandler func(context.Context, *models.Event) error

// EventManager publishes and receives domain events over NATS. With a nil
// connection publishing and subscribing are no-ops.
type EventManager struct {
	natsConn *nats.Conn
	source   string
	handlers map[enum.EventType]EventHandler
	sub      *nats.Subscription
	logger   *zap.Logger
}

func NewEventManager(natsConn *nats.Conn, source string, logger *zap.Logger) *EventManager {
	return &EventManager{
		natsConn: natsConn,
		source:   source,
		handlers: make(map[enum.EventType]EventHandler),
		logger:   logger,
	}
}

func (em *EventManager) RegisterHandler(eventType enum.EventType, handler EventHandler) {
	em.handlers[eventType] = handler
}

func (em *EventManager) GetHandler(eventType enum.EventType) (EventHandler, bool) {
	handler, exists := em.handlers[eventType]
	return handler, exists
}

func (em *EventManager) NewEvent(eventType enum.EventType, userID string, payload any) (*models.Event, error) {
	event := &models.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    em.source,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
		}
		event.Payload = raw
	}
	return event, nil
}

func (em *EventManager) Publish(eventType enum.EventType, userID string, payload any) {
	if em.natsConn == nil {
		return
	}
	event, err := em.NewEvent(eventType, userID, payload)
	if err != nil {
		em.logger.Error("Failed to build event", zap.String("event_type", string(eventType)), zap.Error(err))
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		em.logger.Error("Failed to marshal event", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	if err = em.natsConn.Publish(subjectPrefix+string(eventType), data); err != nil {
		em.logger.Error("Failed to publish event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}

func (em *EventManager) SubscribeToEvents(wp *WorkerPool) error {
	if em.natsConn == nil {
		return nil
	}
	sub, err := em.natsConn.Subscribe(subjectPrefix+">", func(msg *nats.Msg) {
		var event models.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			em.logger.Error("Failed to unmarshal event", zap.Error(err))
			return
		}
		wp.Submit(context.Background(), &event)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s>: %w", subjectPrefix, err)
	}
	em.sub = sub
	return nil
}

func (em *EventManager) Unsubscribe() {
	if em.sub == nil {
		return
	}
	if err := em.sub.Unsubscribe(); err != nil {
		em.logger.Warn("Failed to unsubscribe from events", zap.Error(err))
	}
	em.sub = nil
}

func (s *service) registerEventHandlers() {
	eventHandlers := map[enum.EventType]EventHandler{
		enum.EventTypeCartUpdated:     s.handleCartUpdated,
		enum.EventTypeProfileUpdated:  s.handleProfileUpdated,
		enum.EventTypeIdentityChanged: s.handleIdentityChanged,
	}

	for eventType, handler := range eventHandlers {
		s.eventManager.RegisterHandler(eventType, handler)
	}
}

// handleCartUpdated reloads the cart when another device saved it for the same user.
func (s *service) handleCartUpdated(ctx context.Context, event *models.Event) error {
	if event.UserID == "" || event.UserID != s.cart.Identity() {
		return nil
	}
	s.logger.Info("Cart changed on another device, reloading",
		zap.String("event_id", event.ID),
		zap.String("user_id", event.UserID))
	s.cart.Reload()
	return nil
}

func (s *service) handleProfileUpdated(ctx context.Context, event *models.Event) error {
	if event.UserID == "" || event.UserID != s.session.Identity() {
		return nil
	}

	var user models.User
	if err := json.Unmarshal(event.Payload, &user); err != nil {
		s.logger.Error("Failed to unmarshal profile", zap.String("event_id", event.ID), zap.Error(err))
		return err
	}
	if err := s.session.UpdateUser(user); err != nil {
		return fmt.Errorf("apply remote profile: %w", err)
	}

	s.logger.Info("Profile updated from another device", zap.String("user_id", event.UserID))
	return nil
}

func (s *service) handleIdentityChanged(ctx context.Context, event *models.Event) error {
	s.logger.Debug("Identity changed on another device",
		zap.String("event_id", event.ID),
		zap.String("source", event.Source),
		zap.String("user_id", event.UserID))
	return nil
}

func (s *service) ProcessEvent(ctx context.Context, event *models.Event) error {
	if event.Source == s.eventManager.source {
		return nil
	}

	processed, err := s.event.Exists(ctx, event.ID)
	if err != nil {
		s.logger.Warn("Failed to check event", zap.String("event_id", event.ID), zap.Error(err))
	}
	if processed {
		s.logger.Info("Event already processed", zap.String("event_id", event.ID))
		return nil
	}

	handler, exists := s.eventManager.GetHandler(event.Type)
	if !exists {
		return fmt.Errorf("no handler registered for event type: %s", event.Type)
	}

	if err = s.event.Create(ctx, event); err != nil {
		s.logger.Error("Failed to create event", zap.Error(err))
		return err
	}

	if err = handler(ctx, event); err != nil {
		s.logger.Error("Failed to handle event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		return err
	}

	s.logger.Debug("Event processed", zap.String("event_id", event.ID))
	return nil
}
