package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handshakewatch/internal/models"
	"handshakewatch/internal/sink"
)

func measurement(i int) models.HandshakeMeasurement {
	return models.HandshakeMeasurement{
		ServerAddress:  fmt.Sprintf("10.0.%d.%d", i/256, i%256),
		LatencySeconds: float64(i) / 1000,
	}
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Push(ctx, measurement(i)))
	}
	assert.Equal(t, 5, q.Len())

	for i := 0; i < 5; i++ {
		m, ok := q.Pop(ctx)
		require.True(t, ok)
		assert.Equal(t, measurement(i), m)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueueUnboundedNeverBlocks(t *testing.T) {
	q := NewQueue(0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 5000; i++ {
		require.NoError(t, q.Push(ctx, measurement(i)))
	}
	assert.Equal(t, 5000, q.Len())
	assert.Equal(t, 0, q.Capacity())
}

func TestQueueCloseDrains(t *testing.T) {
	q := NewQueue(0)
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, measurement(1)))
	q.Close()
	q.Close()

	assert.ErrorIs(t, q.Push(ctx, measurement(2)), ErrQueueClosed)

	m, ok := q.Pop(ctx)
	require.True(t, ok)
	assert.Equal(t, measurement(1), m)

	_, ok = q.Pop(ctx)
	assert.False(t, ok)
}

func TestQueuePopWaitsForPush(t *testing.T) {
	q := NewQueue(0)
	got := make(chan models.HandshakeMeasurement, 1)

	go func() {
		m, ok := q.Pop(context.Background())
		if ok {
			got <- m
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Push(context.Background(), measurement(7)))

	select {
	case m := <-got:
		assert.Equal(t, measurement(7), m)
	case <-time.After(2 * time.Second):
		t.Fatal("Pop did not return after Push")
	}
}

func TestQueuePopHonorsContext(t *testing.T) {
	q := NewQueue(0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := q.Pop(ctx)
	assert.False(t, ok)
}

func TestBoundedQueueBlocksProducer(t *testing.T) {
	q := NewQueue(2)
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, measurement(1)))
	require.NoError(t, q.Push(ctx, measurement(2)))

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Push(short, measurement(3)), context.DeadlineExceeded)

	pushed := make(chan error, 1)
	go func() { pushed <- q.Push(ctx, measurement(3)) }()

	m, ok := q.Pop(ctx)
	require.True(t, ok)
	assert.Equal(t, measurement(1), m)

	select {
	case err := <-pushed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked producer was not released")
	}
	assert.Equal(t, 2, q.Len())
}

func TestQueueConcurrentNoLoss(t *testing.T) {
	q := NewQueue(16)
	ctx := context.Background()
	const n = 2000

	var got []models.HandshakeMeasurement
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			m, ok := q.Pop(ctx)
			if !ok {
				return
			}
			got = append(got, m)
		}
	}()

	for i := 0; i < n; i++ {
		require.NoError(t, q.Push(ctx, measurement(i)))
	}
	q.Close()
	<-done

	require.Len(t, got, n)
	for i := range got {
		assert.Equal(t, measurement(i), got[i])
	}
}

type recordingSink struct {
	mu  sync.Mutex
	got []models.HandshakeMeasurement
}

func (r *recordingSink) Write(m models.HandshakeMeasurement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, m)
	return nil
}

func TestConsumerWritesAllInOrder(t *testing.T) {
	q := NewQueue(0)
	ctx := context.Background()
	const n = 100
	for i := 0; i < n; i++ {
		require.NoError(t, q.Push(ctx, measurement(i)))
	}
	q.Close()

	rec := &recordingSink{}
	c := NewConsumer(q, rec)
	require.NoError(t, c.Run(ctx))

	assert.Equal(t, int64(n), c.Written())
	require.Len(t, rec.got, n)
	for i := range rec.got {
		assert.Equal(t, measurement(i), rec.got[i])
	}
}

func TestConsumerStopsOnSinkError(t *testing.T) {
	q := NewQueue(0)
	ctx := context.Background()
	require.NoError(t, q.Push(ctx, measurement(1)))
	require.NoError(t, q.Push(ctx, measurement(2)))

	diskFull := errors.New("no space left on device")
	c := NewConsumer(q, sink.Func(func(models.HandshakeMeasurement) error { return diskFull }))

	err := c.Run(ctx)
	require.ErrorIs(t, err, diskFull)
	assert.Equal(t, int64(0), c.Written())
	assert.Equal(t, 1, q.Len())
}
