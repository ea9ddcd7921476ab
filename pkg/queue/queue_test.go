package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueConsumeInProductionOrder(t *testing.T) {
	q := NewQueue[int]()
	c, err := q.NewConsumer()
	require.NoError(t, err)
	require.NoError(t, q.Produce(1))
	require.NoError(t, q.Produce(2))
	for _, expected := range []int{1, 2} {
		value, err := c.Consume(context.Background())
		require.NoError(t, err)
		assert.Equal(t, expected, value)
	}
}

func TestQueueFansOutToEveryConsumer(t *testing.T) {
	q := NewQueue[string]()
	first, err := q.NewConsumer()
	require.NoError(t, err)
	second, err := q.NewConsumer()
	require.NoError(t, err)
	require.NoError(t, q.Produce("hello"))
	for _, c := range []Consumer[string]{first, second} {
		value, err := c.Consume(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "hello", value)
	}
}

func TestQueueConsumeBlocksUntilProduce(t *testing.T) {
	q := NewQueue[int]()
	c, err := q.NewConsumer()
	require.NoError(t, err)
	values := make(chan int, 1)
	go func() {
		value, err := c.Consume(context.Background())
		if err == nil {
			values <- value
		}
	}()
	select {
	case <-values:
		t.Fatal("consumed before anything was produced")
	case <-time.After(20 * time.Millisecond):
	}
	require.NoError(t, q.Produce(7))
	select {
	case value := <-values:
		assert.Equal(t, 7, value)
	case <-time.After(time.Second):
		t.Fatal("value was never consumed")
	}
}

func TestQueueConsumeHonoursContext(t *testing.T) {
	q := NewQueue[int]()
	c, err := q.NewConsumer()
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Consume(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCancelledConsumerStopsReceiving(t *testing.T) {
	q := NewQueue[int]()
	c, err := q.NewConsumer()
	require.NoError(t, err)
	c.Cancel()
	require.NoError(t, q.Produce(1))
	_, err = c.Consume(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestQueueMaxConsumers(t *testing.T) {
	q := NewQueue[int](WithMaxConsumers(1))
	_, err := q.NewConsumer()
	require.NoError(t, err)
	_, err = q.NewConsumer()
	assert.Error(t, err)
}
