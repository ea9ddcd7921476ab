package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type grant struct {
	caller int
	lock   *Lock
}

func acquireAsync(t *testing.T, m *Manager, caller int, grants chan<- grant, keys ...string) {
	t.Helper()
	go func() {
		l, err := m.Acquire(context.Background(), keys...)
		if err != nil {
			return
		}
		grants <- grant{caller: caller, lock: l}
	}()
}

func waitForWaiters(t *testing.T, m *Manager, key string, count int) {
	t.Helper()
	require.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.queues[key]) == count
	}, time.Second, time.Millisecond)
}

func expectGrant(t *testing.T, grants <-chan grant, caller int) *Lock {
	t.Helper()
	select {
	case g := <-grants:
		require.Equal(t, caller, g.caller, "granted out of arrival order")
		return g.lock
	case <-time.After(time.Second):
		t.Fatalf("caller %d was never granted", caller)
		return nil
	}
}

func expectNoGrant(t *testing.T, grants <-chan grant) {
	t.Helper()
	select {
	case g := <-grants:
		t.Fatalf("caller %d granted while the key was held", g.caller)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAcquireFreeKeyIsImmediate(t *testing.T) {
	m := NewManager()
	l, err := m.Acquire(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, l.Keys())
	assert.False(t, l.Interrupted())
	l.Release()
}

func TestAcquireRequiresAKey(t *testing.T) {
	m := NewManager()
	_, err := m.Acquire(context.Background())
	assert.Error(t, err)
}

func TestGrantOrderIsFIFO(t *testing.T) {
	m := NewManager()
	first, err := m.Acquire(context.Background(), "x")
	require.NoError(t, err)
	grants := make(chan grant, 2)
	acquireAsync(t, m, 2, grants, "x")
	waitForWaiters(t, m, "x", 2)
	acquireAsync(t, m, 3, grants, "x")
	waitForWaiters(t, m, "x", 3)
	expectNoGrant(t, grants)
	first.Release()
	second := expectGrant(t, grants, 2)
	expectNoGrant(t, grants)
	second.Release()
	third := expectGrant(t, grants, 3)
	third.Release()
}

func TestMultiKeyAcquireIsAtomic(t *testing.T) {
	m := NewManager()
	holder, err := m.Acquire(context.Background(), "a")
	require.NoError(t, err)
	grants := make(chan grant, 2)
	acquireAsync(t, m, 2, grants, "a", "b")
	waitForWaiters(t, m, "b", 1)
	// caller 3 arrives after caller 2 enqueued on both keys, so it waits
	// behind it on "b" even though "b" itself is free
	acquireAsync(t, m, 3, grants, "b")
	waitForWaiters(t, m, "b", 2)
	expectNoGrant(t, grants)
	holder.Release()
	multi := expectGrant(t, grants, 2)
	expectNoGrant(t, grants)
	multi.Release()
	single := expectGrant(t, grants, 3)
	single.Release()
}

func TestDuplicateKeysAreDeduped(t *testing.T) {
	m := NewManager()
	l, err := m.Acquire(context.Background(), "x", "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, l.Keys())
	l.Release()
}

func TestInterruptMarksCurrentAndFutureHolders(t *testing.T) {
	m := NewManager()
	held, err := m.Acquire(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, held.Interrupted())
	m.Interrupt("x")
	assert.True(t, held.Interrupted(), "a current holder observes the interruption")
	held.Release()
	next, err := m.Acquire(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, next.Interrupted(), "a lock granted after the interruption observes it")
	next.Release()
	m.ClearInterrupt("x")
	cleared, err := m.Acquire(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, cleared.Interrupted())
	cleared.Release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	m := NewManager()
	l, err := m.Acquire(context.Background(), "x")
	require.NoError(t, err)
	l.Release()
	l.Release()
	again, err := m.Acquire(context.Background(), "x")
	require.NoError(t, err)
	again.Release()
}

func TestCancelledWaiterLeavesTheQueue(t *testing.T) {
	m := NewManager()
	first, err := m.Acquire(context.Background(), "x")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	abandoned := make(chan error, 1)
	go func() {
		_, err := m.Acquire(ctx, "x")
		abandoned <- err
	}()
	waitForWaiters(t, m, "x", 2)
	grants := make(chan grant, 1)
	acquireAsync(t, m, 3, grants, "x")
	waitForWaiters(t, m, "x", 3)
	cancel()
	require.ErrorIs(t, <-abandoned, context.Canceled)
	waitForWaiters(t, m, "x", 2)
	first.Release()
	third := expectGrant(t, grants, 3)
	third.Release()
}

func TestClearResetsEverything(t *testing.T) {
	m := NewManager()
	l, err := m.Acquire(context.Background(), "x")
	require.NoError(t, err)
	l.Release()
	m.Interrupt("x")
	m.Clear()
	fresh, err := m.Acquire(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, fresh.Interrupted())
	fresh.Release()
}
