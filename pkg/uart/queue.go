package uart

import (
	"context"
	"sync"
	"time"
)

// Queue is a fixed capacity FIFO shared between interrupt and task context.
// The Try variants never block and are the only ones handlers may use.
type Queue[T any] struct {
	lock  sync.Mutex
	items []T
	head  int
	size  int

	// Wait channels are created by waiters and closed by the opposite side
	// when the queue state changes in their favour. readers and writers
	// count the callers currently blocked on them.
	readable chan struct{}
	writable chan struct{}
	readers  int
	writers  int
}

// NewQueue creates a Queue holding at most capacity items.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{items: make([]T, capacity)}
}

// Cap returns the capacity.
func (q *Queue[T]) Cap() int {
	return len(q.items)
}

// Len returns the number of items waiting.
func (q *Queue[T]) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.size
}

// TryEnqueue appends item if there's room. woken reports whether a blocked
// consumer may have become runnable.
func (q *Queue[T]) TryEnqueue(item T) (woken bool, err error) {
	ok, woken, _ := q.offer(item, false)
	if !ok {
		return false, ErrQueueFull
	}
	return woken, nil
}

// Enqueue appends item, waiting for room until ctx is done.
func (q *Queue[T]) Enqueue(ctx context.Context, item T) error {
	for {
		ok, _, wait := q.offer(item, true)
		if ok {
			return nil
		}
		select {
		case <-wait:
			q.leave(&q.writers, &q.writable)
		case <-ctx.Done():
			q.leave(&q.writers, &q.writable)
			return ctx.Err()
		}
	}
}

// TryDequeue removes the oldest item. woken reports whether a blocked
// producer may have become runnable.
func (q *Queue[T]) TryDequeue() (item T, woken bool, err error) {
	item, ok, woken, _ := q.take(false)
	if !ok {
		return item, false, ErrQueueEmpty
	}
	return item, woken, nil
}

// Dequeue removes the oldest item, waiting up to timeout for one to arrive.
// A timeout <= 0 waits until ctx is done. ErrTimeout is returned on expiry.
func (q *Queue[T]) Dequeue(ctx context.Context, timeout time.Duration) (T, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	for {
		item, ok, _, wait := q.take(true)
		if ok {
			return item, nil
		}
		select {
		case <-wait:
			q.leave(&q.readers, &q.readable)
		case <-expired:
			q.leave(&q.readers, &q.readable)
			return item, ErrTimeout
		case <-ctx.Done():
			q.leave(&q.readers, &q.readable)
			return item, ctx.Err()
		}
	}
}

// offer appends item if possible. Otherwise, when wait is set, the caller
// is registered as a writer and gets a channel closed when room may be
// available; it must call leave once done waiting.
func (q *Queue[T]) offer(item T, wait bool) (ok, woken bool, waitCh <-chan struct{}) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.size == len(q.items) {
		if !wait {
			return false, false, nil
		}
		if q.writable == nil {
			q.writable = make(chan struct{})
		}
		q.writers++
		return false, false, q.writable
	}
	q.items[(q.head+q.size)%len(q.items)] = item
	q.size++
	return true, q.wake(&q.readable, q.readers), nil
}

// take removes the oldest item if possible. Otherwise, when wait is set,
// the caller is registered as a reader, see offer.
func (q *Queue[T]) take(wait bool) (item T, ok, woken bool, waitCh <-chan struct{}) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.size == 0 {
		if !wait {
			return item, false, false, nil
		}
		if q.readable == nil {
			q.readable = make(chan struct{})
		}
		q.readers++
		return item, false, false, q.readable
	}
	var zero T
	item, q.items[q.head] = q.items[q.head], zero
	q.head = (q.head + 1) % len(q.items)
	q.size--
	return item, true, q.wake(&q.writable, q.writers), nil
}

// wake closes ch and reports whether anyone was blocked on it.
// Must be called with lock held.
func (q *Queue[T]) wake(ch *chan struct{}, waiters int) bool {
	if *ch == nil {
		return false
	}
	close(*ch)
	*ch = nil
	return waiters > 0
}

// leave unregisters a waiter. The wait channel is dropped with the last
// one so a later state change doesn't report a stale wake-up.
func (q *Queue[T]) leave(waiters *int, ch *chan struct{}) {
	q.lock.Lock()
	defer q.lock.Unlock()
	*waiters--
	if *waiters == 0 {
		*ch = nil
	}
}
