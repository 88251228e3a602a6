package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"handshakewatch/internal/logger"
	"handshakewatch/internal/sink"
)

// Consumer drains a Queue into a Sink on its own goroutine.
type Consumer struct {
	queue   *Queue
	sink    sink.Sink
	written atomic.Int64
}

// NewConsumer creates a consumer for queue writing to s.
func NewConsumer(queue *Queue, s sink.Sink) *Consumer {
	return &Consumer{
		queue: queue,
		sink:  s,
	}
}

// Run writes measurements in queue order until the queue is closed and
// drained or ctx ends. A sink failure stops the consumer and is returned.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, ok := c.queue.Pop(ctx)
		if !ok {
			logger.Debug("Consumer stopped", "written", c.written.Load())
			return nil
		}

		if err := c.sink.Write(m); err != nil {
			return fmt.Errorf("failed to write measurement for %s: %w", m.ServerAddress, err)
		}
		c.written.Add(1)
	}
}

// Written returns how many measurements reached the sink.
func (c *Consumer) Written() int64 {
	return c.written.Load()
}
