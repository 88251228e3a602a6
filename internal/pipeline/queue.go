package pipeline

import (
	"context"
	"errors"
	"sync"

	"handshakewatch/internal/models"
)

// ErrQueueClosed is returned by Push after Close.
var ErrQueueClosed = errors.New("queue closed")

// Queue is a FIFO hand-off between the ingest goroutine and the consumer.
// A capacity of zero makes it unbounded and Push never blocks.
type Queue struct {
	mu       sync.Mutex
	items    []models.HandshakeMeasurement
	head     int
	capacity int
	closed   bool

	ready chan struct{} // signalled when an item was added
	space chan struct{} // signalled when an item was removed
	done  chan struct{} // closed by Close
}

// NewQueue creates a queue. capacity <= 0 means unbounded.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		capacity: capacity,
		ready:    make(chan struct{}, 1),
		space:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Push appends m. On a bounded queue it waits for room, returning ctx.Err()
// if the context ends first.
func (q *Queue) Push(ctx context.Context, m models.HandshakeMeasurement) error {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return ErrQueueClosed
		}
		if q.capacity == 0 || q.lenLocked() < q.capacity {
			q.items = append(q.items, m)
			q.mu.Unlock()
			notify(q.ready)
			return nil
		}
		q.mu.Unlock()

		select {
		case <-q.space:
		case <-q.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Pop removes the oldest item, waiting until one is available. ok is false
// once the queue is closed and drained, or when ctx ends.
func (q *Queue) Pop(ctx context.Context) (models.HandshakeMeasurement, bool) {
	for {
		q.mu.Lock()
		if q.lenLocked() > 0 {
			m := q.items[q.head]
			q.items[q.head] = models.HandshakeMeasurement{}
			q.head++
			if q.head == len(q.items) {
				q.items = q.items[:0]
				q.head = 0
			} else if q.head > 1024 && q.head*2 > len(q.items) {
				q.compactLocked()
			}
			remaining := q.lenLocked()
			q.mu.Unlock()

			notify(q.space)
			if remaining > 0 {
				notify(q.ready)
			}
			return m, true
		}
		if q.closed {
			q.mu.Unlock()
			return models.HandshakeMeasurement{}, false
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return models.HandshakeMeasurement{}, false
		}
	}
}

// Close stops further pushes. Items already queued can still be popped.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.done)
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

// Capacity returns the configured bound, zero for unbounded.
func (q *Queue) Capacity() int {
	return q.capacity
}

func (q *Queue) lenLocked() int {
	return len(q.items) - q.head
}

func (q *Queue) compactLocked() {
	n := copy(q.items, q.items[q.head:])
	clear(q.items[n:])
	q.items = q.items[:n]
	q.head = 0
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
