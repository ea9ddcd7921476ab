// Package lock provides cooperative in-process locks keyed by name. Waiters
// on the same key are granted strictly in arrival order; interruption is
// advisory and observed, never enforced.
package lock

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// A Lock is one acquisition over one or more keys. It is owned exclusively by
// the caller Acquire returned it to.
type Lock struct {
	id       string
	keys     []string
	manager  *Manager
	ready    chan struct{}
	granted  bool
	released bool
}

// Keys returns the keys this lock serializes on.
func (l *Lock) Keys() []string {
	keys := make([]string, len(l.keys))
	copy(keys, l.keys)
	return keys
}

// Interrupted reports whether any of the lock's keys has been interrupted.
// A holder observing true should abort its critical section and release.
func (l *Lock) Interrupted() bool {
	l.manager.mu.Lock()
	defer l.manager.mu.Unlock()
	for _, key := range l.keys {
		if _, interrupted := l.manager.interrupted[key]; interrupted {
			return true
		}
	}
	return false
}

// Release removes the lock from each of its keys' queues, granting the next
// waiters. It must run on every exit path of the critical section; calling it
// more than once is harmless.
func (l *Lock) Release() {
	l.manager.mu.Lock()
	defer l.manager.mu.Unlock()
	if l.released {
		return
	}
	l.released = true
	l.manager.removeLocked(l)
}

// A Manager tracks one FIFO waiter queue per key. The zero value is not
// usable; construct with NewManager.
type Manager struct {
	mu          sync.Mutex
	queues      map[string][]*Lock
	interrupted map[string]struct{}
}

func NewManager() *Manager {
	return &Manager{
		queues:      map[string][]*Lock{},
		interrupted: map[string]struct{}{},
	}
}

// Acquire enqueues one waiter per key and suspends until the lock is at the
// head of every one of its keys' queues. All keys are enqueued atomically, so
// other callers never observe a partial acquisition. Cancelling ctx abandons
// the waiter without disturbing the order of others.
func (m *Manager) Acquire(ctx context.Context, keys ...string) (*Lock, error) {
	keys = dedupe(keys)
	if len(keys) == 0 {
		return nil, fmt.Errorf("acquire requires at least one key")
	}
	l := &Lock{
		id:      uuid.NewString(),
		keys:    keys,
		manager: m,
		ready:   make(chan struct{}),
	}
	m.mu.Lock()
	for _, key := range keys {
		m.queues[key] = append(m.queues[key], l)
	}
	m.grantLocked(l)
	m.mu.Unlock()
	select {
	case <-l.ready:
		return l, nil
	case <-ctx.Done():
		m.abandon(l)
		return nil, ctx.Err()
	}
}

// Interrupt marks every current and future-granted lock for key as
// interrupted until ClearInterrupt. Holders are not revoked; they are
// expected to observe Interrupted and release.
func (m *Manager) Interrupt(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interrupted[key] = struct{}{}
}

func (m *Manager) ClearInterrupt(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.interrupted, key)
}

// Clear drops every queue and interruption flag. It must only run once no
// acquisitions are outstanding, typically at engine teardown.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues = map[string][]*Lock{}
	m.interrupted = map[string]struct{}{}
}

func (m *Manager) grantLocked(l *Lock) {
	if l.granted {
		return
	}
	for _, key := range l.keys {
		queue := m.queues[key]
		if len(queue) == 0 || queue[0] != l {
			return
		}
	}
	l.granted = true
	close(l.ready)
}

func (m *Manager) removeLocked(l *Lock) {
	affected := make([]string, 0, len(l.keys))
	for _, key := range l.keys {
		queue := m.queues[key]
		for i, waiter := range queue {
			if waiter == l {
				queue = append(queue[:i], queue[i+1:]...)
				break
			}
		}
		if len(queue) == 0 {
			delete(m.queues, key)
			continue
		}
		m.queues[key] = queue
		affected = append(affected, key)
	}
	for _, key := range affected {
		m.grantLocked(m.queues[key][0])
	}
}

func (m *Manager) abandon(l *Lock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// the grant may have raced the cancellation
	if l.granted {
		if l.released {
			return
		}
		l.released = true
	}
	m.removeLocked(l)
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	deduped := keys[:0:0]
	for _, key := range keys {
		if _, duplicate := seen[key]; duplicate {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, key)
	}
	return deduped
}
