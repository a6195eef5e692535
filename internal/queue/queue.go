package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"estatemap/internal/logging"
	"estatemap/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// PropertyQueue is an in-memory queue of property batches. Batches are
// handed to the subscribers one at a time, in push order.
type PropertyQueue struct {
	items   chan []models.Property
	drained chan struct{}
	maxSize int
	closed  bool
	started bool
	mu      sync.RWMutex
	logger  *logrus.Logger

	// handlerMu guards handlers; delivery never takes mu
	handlerMu sync.RWMutex
	handlers  []func([]models.Property) error
}

// NewPropertyQueue creates a new property queue with the specified buffer size
func NewPropertyQueue(bufferSize int, logger *logrus.Logger) *PropertyQueue {
	return &PropertyQueue{
		items:   make(chan []models.Property, bufferSize),
		drained: make(chan struct{}),
		maxSize: bufferSize,
		logger:  logging.OrDiscard(logger),
	}
}

// Push adds a batch without blocking
func (q *PropertyQueue) Push(batch []models.Property) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// PushWait adds a batch, waiting for room until ctx is done
func (q *PropertyQueue) PushWait(ctx context.Context, batch []models.Property) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Pushed batch to queue")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe adds a handler function that will be called for each batch
func (q *PropertyQueue) Subscribe(handler func([]models.Property) error) {
	q.handlerMu.Lock()
	defer q.handlerMu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items in the queue. Calling it twice is a no-op.
func (q *PropertyQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true
	go q.process()
}

func (q *PropertyQueue) process() {
	defer close(q.drained)
	for batch := range q.items {
		q.processBatch(batch)
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *PropertyQueue) processBatch(batch []models.Property) {
	q.handlerMu.RLock()
	handlers := q.handlers
	q.handlerMu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Close stops accepting batches. Batches already queued are still handled.
func (q *PropertyQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.items)
	return nil
}

// Wait blocks until the queue is closed and every batch is handled
func (q *PropertyQueue) Wait() {
	q.mu.RLock()
	started := q.started
	q.mu.RUnlock()
	if !started {
		return
	}
	<-q.drained
}

// Len returns the current number of batches in the queue
func (q *PropertyQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *PropertyQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
