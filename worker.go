package storefront

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"goflare.io/storefront/models"
)

type EventProcessor interface {
	ProcessEvent(ctx context.Context, event *models.Event) error
}

type WorkerPool struct {
	tasks     chan func()
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	logger    *zap.Logger
	processor EventProcessor
}

func NewWorkerPool(size int, processor EventProcessor, logger *zap.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	wp := &WorkerPool{
		tasks:     make(chan func(), 256),
		logger:    logger,
		processor: processor,
	}

	wp.wg.Add(size)
	for i := 0; i < size; i++ {
		go wp.worker()
	}

	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.tasks {
		task()
	}
}

// Submit queues event for processing. Events submitted after Shutdown are dropped.
func (wp *WorkerPool) Submit(ctx context.Context, event *models.Event) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		wp.logger.Warn("Dropping event after shutdown",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID))
		return
	}
	wp.tasks <- func() {
		if err := wp.processor.ProcessEvent(ctx, event); err != nil {
			wp.logger.Error("Failed to process event",
				zap.Error(err),
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID))
		}
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish.
func (wp *WorkerPool) Shutdown() {
	wp.mu.Lock()
	if !wp.closed {
		wp.closed = true
		close(wp.tasks)
	}
	wp.mu.Unlock()
	wp.wg.Wait()
}
