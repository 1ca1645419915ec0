package uart

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultQueueSize is the capacity of each direction when not specified.
const DefaultQueueSize = 100

// Driver owns both queues of a link and implements the interrupt handlers
// and the task facing gateway.
type Driver struct {
	Link     Link
	Counters *Counters

	rx *Queue[byte]
	tx *Queue[byte]

	// txLock is the critical section excluding the transmit handler from the
	// gateway. Lock order is txLock before a queue lock.
	txLock  sync.Mutex
	txArmed atomic.Bool
	started atomic.Bool
}

// NewDriver creates a Driver with queues of the given capacity.
func NewDriver(link Link, counters *Counters, queueSize int) *Driver {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if counters == nil {
		counters = NewCounters()
	}
	return &Driver{
		Link:     link,
		Counters: counters,
		rx:       NewQueue[byte](queueSize),
		tx:       NewQueue[byte](queueSize),
	}
}

// Start brings up the link and enables the receive side interrupts.
// It must be called once before any task uses the driver.
func (d *Driver) Start() error {
	if init, ok := d.Link.(Initializer); ok {
		if err := init.Init(); err != nil {
			return &InitError{Err: err}
		}
	}
	if src, ok := d.Link.(InterruptSource); ok {
		src.SetInterruptHandler(d)
	}
	d.started.Store(true)
	d.Link.SetInterruptMask(d.Link.InterruptMask() | IntrDefault)
	return nil
}

// Inbound exposes the receive queue.
func (d *Driver) Inbound() *Queue[byte] {
	return d.rx
}

// Outbound exposes the transmit queue.
func (d *Driver) Outbound() *Queue[byte] {
	return d.tx
}

// TxArmed reports whether the transmit-empty interrupt is enabled.
func (d *Driver) TxArmed() bool {
	return d.txArmed.Load()
}

// HandleInterrupt implements InterruptHandler.
func (d *Driver) HandleInterrupt(ev Event) bool {
	switch ev {
	case EventRecvData:
		return d.handleReceive()
	case EventSentData:
		return d.handleSent()
	default:
		d.Counters.CountSpurious()
		return false
	}
}

func (d *Driver) handleReceive() (yield bool) {
	d.Counters.CountRxInterrupt()
	for d.Link.DataAvailable() {
		woken, err := d.rx.TryEnqueue(d.Link.ReadByte())
		if err != nil {
			d.Counters.CountDropped()
			continue
		}
		yield = yield || woken
	}
	return
}

func (d *Driver) handleSent() (yield bool) {
	d.Counters.CountTxInterrupt()
	d.txLock.Lock()
	defer d.txLock.Unlock()
	for !d.Link.TransmitFull() {
		b, woken, err := d.tx.TryDequeue()
		if err != nil {
			break
		}
		d.Link.WriteByte(b)
		yield = yield || woken
	}
	if d.tx.Len() == 0 {
		d.Link.SetInterruptMask(d.Link.InterruptMask() &^ IntrTxEmpty)
		d.txArmed.Store(false)
	}
	return
}

// SendByte emits b, writing it straight to the link when the transmit path
// is idle. Otherwise b is queued and the caller waits while the queue is
// full.
func (d *Driver) SendByte(ctx context.Context, b byte) error {
	if !d.started.Load() {
		return ErrNotStarted
	}
	for {
		done, wait := d.trySend(b)
		if done {
			return nil
		}
		select {
		case <-wait:
			d.tx.leave(&d.tx.writers, &d.tx.writable)
		case <-ctx.Done():
			d.tx.leave(&d.tx.writers, &d.tx.writable)
			return ctx.Err()
		}
	}
}

func (d *Driver) trySend(b byte) (bool, <-chan struct{}) {
	d.txLock.Lock()
	defer d.txLock.Unlock()
	d.Link.SetInterruptMask(d.Link.InterruptMask() | IntrTxEmpty)
	d.txArmed.Store(true)
	if d.tx.Len() == 0 && d.Link.TransmitEmpty() {
		d.Link.WriteByte(b)
		return true, nil
	}
	ok, _, wait := d.tx.offer(b, true)
	return ok, wait
}

// Receive takes the next received byte, waiting up to timeout.
// ErrTimeout is returned when nothing arrived in time.
func (d *Driver) Receive(ctx context.Context, timeout time.Duration) (byte, error) {
	if !d.started.Load() {
		return 0, ErrNotStarted
	}
	return d.rx.Dequeue(ctx, timeout)
}

// Writer adapts SendByte to io.Writer.
func (d *Driver) Writer(ctx context.Context) io.Writer {
	return &gatewayWriter{ctx: ctx, d: d}
}

type gatewayWriter struct {
	ctx context.Context
	d   *Driver
}

func (w *gatewayWriter) Write(p []byte) (int, error) {
	for n, b := range p {
		if err := w.d.SendByte(w.ctx, b); err != nil {
			return n, err
		}
	}
	return len(p), nil
}
