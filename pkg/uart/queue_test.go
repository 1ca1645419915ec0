package uart

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueFIFOModel(t *testing.T) {
	for _, capacity := range []int{1, 2, 7, 100} {
		q := NewQueue[int](capacity)
		require.Equal(t, capacity, q.Cap())
		var model []int
		next := 0
		rnd := rand.New(rand.NewSource(int64(capacity)))
		for i := 0; i < 2000; i++ {
			if rnd.Intn(2) == 0 {
				_, err := q.TryEnqueue(next)
				if len(model) == capacity {
					require.Equal(t, ErrQueueFull, err)
				} else {
					require.NoError(t, err)
					model = append(model, next)
				}
				next++
			} else {
				item, _, err := q.TryDequeue()
				if len(model) == 0 {
					require.Equal(t, ErrQueueEmpty, err)
				} else {
					require.NoError(t, err)
					require.Equal(t, model[0], item)
					model = model[1:]
				}
			}
			require.Equal(t, len(model), q.Len())
			require.True(t, q.Len() <= capacity)
		}
	}
}

func TestQueueFullLeavesStateUnchanged(t *testing.T) {
	q := NewQueue[byte](2)
	_, err := q.TryEnqueue('a')
	require.NoError(t, err)
	_, err = q.TryEnqueue('b')
	require.NoError(t, err)
	_, err = q.TryEnqueue('c')
	require.Equal(t, ErrQueueFull, err)
	require.Equal(t, 2, q.Len())

	b, _, err := q.TryDequeue()
	require.NoError(t, err)
	require.Equal(t, byte('a'), b)
	b, _, err = q.TryDequeue()
	require.NoError(t, err)
	require.Equal(t, byte('b'), b)
	_, _, err = q.TryDequeue()
	require.Equal(t, ErrQueueEmpty, err)
	require.Equal(t, 0, q.Len())
}

func TestQueueDequeueTimeout(t *testing.T) {
	q := NewQueue[byte](1)
	start := time.Now()
	_, err := q.Dequeue(context.Background(), 20*time.Millisecond)
	require.Equal(t, ErrTimeout, err)
	require.True(t, time.Since(start) >= 20*time.Millisecond)

	// an item arriving after a timeout is still there for the next caller.
	_, err = q.TryEnqueue('x')
	require.NoError(t, err)
	b, err := q.Dequeue(context.Background(), time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, byte('x'), b)
}

func TestQueueDequeueWakesOnEnqueue(t *testing.T) {
	q := NewQueue[byte](1)
	resultCh := make(chan byte, 1)
	go func() {
		b, err := q.Dequeue(context.Background(), 0)
		if err == nil {
			resultCh <- b
		}
	}()
	waitFor(t, func() bool { return hasWaiter(&q.lock, &q.readers) })
	woken, err := q.TryEnqueue('z')
	require.NoError(t, err)
	require.True(t, woken)
	select {
	case b := <-resultCh:
		require.Equal(t, byte('z'), b)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("dequeue not woken")
	}
}

func TestQueueWokenOnlyWithWaiter(t *testing.T) {
	q := NewQueue[byte](1)
	_, err := q.Dequeue(context.Background(), time.Millisecond)
	require.Equal(t, ErrTimeout, err)
	require.False(t, hasWaiter(&q.lock, &q.readers))
	woken, err := q.TryEnqueue('a')
	require.NoError(t, err)
	require.False(t, woken)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	require.Equal(t, context.DeadlineExceeded, q.Enqueue(ctx, 'b'))
	require.False(t, hasWaiter(&q.lock, &q.writers))
	b, woken, err := q.TryDequeue()
	require.NoError(t, err)
	require.False(t, woken)
	require.Equal(t, byte('a'), b)

	_, _, err = q.TryDequeue()
	require.Equal(t, ErrQueueEmpty, err)
	woken, err = q.TryEnqueue('c')
	require.NoError(t, err)
	require.False(t, woken)
}

func TestQueueEnqueueBlocksUntilRoom(t *testing.T) {
	q := NewQueue[byte](1)
	require.NoError(t, q.Enqueue(context.Background(), 1))
	doneCh := make(chan error, 1)
	go func() {
		doneCh <- q.Enqueue(context.Background(), 2)
	}()
	waitFor(t, func() bool { return hasWaiter(&q.lock, &q.writers) })
	b, woken, err := q.TryDequeue()
	require.NoError(t, err)
	require.True(t, woken)
	require.Equal(t, byte(1), b)
	select {
	case err := <-doneCh:
		require.NoError(t, err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("enqueue not woken")
	}
	b, _, err = q.TryDequeue()
	require.NoError(t, err)
	require.Equal(t, byte(2), b)
}

func TestQueueCanceled(t *testing.T) {
	q := NewQueue[byte](1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Dequeue(ctx, time.Second)
	require.Equal(t, context.Canceled, err)
	require.NoError(t, q.Enqueue(ctx, 1))
	require.Equal(t, context.Canceled, q.Enqueue(ctx, 2))
	require.Equal(t, 1, q.Len())
}

func hasWaiter(lock *sync.Mutex, waiters *int) bool {
	lock.Lock()
	defer lock.Unlock()
	return *waiters > 0
}

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.After(time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition not met")
		case <-time.After(time.Millisecond):
		}
	}
}
