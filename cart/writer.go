package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"goflare.io/storefront/models"
)

type saveTask struct {
	userID string
	cart   models.Cart
}

// writer serializes cart saves through a single goroutine. Only the latest
// snapshot per user is kept while a save is in flight, so storage always ends
// at the most recently issued snapshot.
type writer struct {
	repo    Repository
	timeout time.Duration
	hooks   []SavedHook
	logger  *zap.Logger

	mu        sync.Mutex
	pending   map[string]models.Cart
	order     []string
	issued    uint64
	processed uint64
	changed   chan struct{}
	closed    bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func newWriter(repo Repository, timeout time.Duration, hooks []SavedHook, logger *zap.Logger) *writer {
	w := &writer{
		repo:    repo,
		timeout: timeout,
		hooks:   hooks,
		logger:  logger,
		pending: make(map[string]models.Cart),
		changed: make(chan struct{}),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *writer) enqueue(userID string, cart models.Cart) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Warn("Cart save dropped after close", zap.String("user_id", userID))
		return
	}
	if _, ok := w.pending[userID]; !ok {
		w.order = append(w.order, userID)
	}
	w.pending[userID] = cart
	w.issued++
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.quit:
			w.drain()
			return
		}
	}
}

func (w *writer) drain() {
	for {
		w.mu.Lock()
		if len(w.order) == 0 {
			w.mu.Unlock()
			return
		}
		batch := make([]saveTask, 0, len(w.order))
		for _, userID := range w.order {
			batch = append(batch, saveTask{userID: userID, cart: w.pending[userID]})
		}
		top := w.issued
		w.pending = make(map[string]models.Cart)
		w.order = nil
		w.mu.Unlock()

		for _, task := range batch {
			w.save(task)
		}

		w.mu.Lock()
		w.processed = top
		close(w.changed)
		w.changed = make(chan struct{})
		w.mu.Unlock()
	}
}

func (w *writer) save(task saveTask) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.repo.Save(ctx, task.userID, task.cart); err != nil {
		w.logger.Error("Failed to persist cart",
			zap.String("user_id", task.userID),
			zap.Int("lines", len(task.cart)),
			zap.Error(err))
		return
	}
	for _, hook := range w.hooks {
		hook(task.userID, task.cart)
	}
}

// flush waits until every save issued before the call has been attempted.
func (w *writer) flush(ctx context.Context) error {
	w.mu.Lock()
	target := w.issued
	w.mu.Unlock()

	for {
		w.mu.Lock()
		if w.processed >= target {
			w.mu.Unlock()
			return nil
		}
		changed := w.changed
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

func (w *writer) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return
	}
	w.closed = true
	w.mu.Unlock()

	close(w.quit)
	<-w.done
}
