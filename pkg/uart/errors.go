package uart

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueFull indicates the queue has no room for another item.
	ErrQueueFull = errors.New("queue full")
	// ErrQueueEmpty indicates there's nothing to dequeue.
	ErrQueueEmpty = errors.New("queue empty")
	// ErrTimeout indicates a blocking dequeue expired before an item arrived.
	// Nothing is consumed when this is returned.
	ErrTimeout = errors.New("timed out")
	// ErrNotStarted indicates the driver is used before Start.
	ErrNotStarted = errors.New("driver not started")
)

// InitError wraps a failure to bring up the hardware link.
type InitError struct {
	Err error
}

// Error implements error.
func (e *InitError) Error() string {
	return fmt.Sprintf("link initialization failed: %v", e.Err)
}

// Unwrap returns the cause.
func (e *InitError) Unwrap() error {
	return e.Err
}
