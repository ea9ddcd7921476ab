// Package queue implements a small in-process fan-out queue: every consumer
// receives every produced value, in production order.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var ErrCancelled = fmt.Errorf("consumer cancelled")

type Producer[T any] interface {
	Produce(value T) error
}

type Consumer[T any] interface {
	// Consume blocks until a value is available or ctx is done.
	Consume(ctx context.Context) (T, error)
	// Cancel detaches the consumer; pending Consume calls return ErrCancelled.
	Cancel()
}

type Queue[T any] interface {
	Producer[T]
	NewConsumer() (Consumer[T], error)
}

type queue[T any] struct {
	mu           sync.Mutex
	consumers    map[string]*consumer[T]
	maxConsumers int
}

type Option func(maxConsumers *int)

func WithMaxConsumers(max int) Option {
	return func(maxConsumers *int) {
		*maxConsumers = max
	}
}

func NewQueue[T any](options ...Option) Queue[T] {
	q := &queue[T]{
		consumers: map[string]*consumer[T]{},
	}
	for _, option := range options {
		option(&q.maxConsumers)
	}
	return q
}

func (q *queue[T]) Produce(value T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, c := range q.consumers {
		c.push(value)
	}
	return nil
}

func (q *queue[T]) NewConsumer() (Consumer[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.maxConsumers > 0 && len(q.consumers) == q.maxConsumers {
		return nil, fmt.Errorf("too many consumers")
	}
	c := &consumer[T]{
		id:   uuid.NewString(),
		q:    q,
		wake: make(chan struct{}, 1),
	}
	q.consumers[c.id] = c
	return c, nil
}

func (q *queue[T]) cancel(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.consumers, id)
}

type consumer[T any] struct {
	id        string
	q         *queue[T]
	mu        sync.Mutex
	buffer    []T
	wake      chan struct{}
	cancelled bool
}

func (c *consumer[T]) push(value T) {
	c.mu.Lock()
	c.buffer = append(c.buffer, value)
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *consumer[T]) Consume(ctx context.Context) (T, error) {
	var zero T
	for {
		c.mu.Lock()
		if len(c.buffer) > 0 {
			value := c.buffer[0]
			c.buffer = c.buffer[1:]
			c.mu.Unlock()
			return value, nil
		}
		if c.cancelled {
			c.mu.Unlock()
			return zero, ErrCancelled
		}
		c.mu.Unlock()
		select {
		case <-c.wake:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

func (c *consumer[T]) Cancel() {
	c.q.cancel(c.id)
	c.mu.Lock()
	c.cancelled = true
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
