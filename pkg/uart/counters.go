package uart

import (
	"fmt"
	"sync/atomic"
)

// Counters is the shared event accounting of the subsystem. Handlers and
// tasks update it concurrently.
type Counters struct {
	rxIntr   atomic.Uint32
	txIntr   atomic.Uint32
	bytes    atomic.Uint32
	dropped  atomic.Uint32
	spurious atomic.Uint32
}

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	RxInterrupts uint32
	TxInterrupts uint32
	Bytes        uint32

	// Fault counters, not affected by Reset.
	RxDropped uint32
	Spurious  uint32
}

func (s Snapshot) String() string {
	return fmt.Sprintf("rx=%d tx=%d bytes=%d dropped=%d spurious=%d",
		s.RxInterrupts, s.TxInterrupts, s.Bytes, s.RxDropped, s.Spurious)
}

// NewCounters creates zeroed Counters.
func NewCounters() *Counters {
	return &Counters{}
}

// CountRxInterrupt records one receive handler invocation.
func (c *Counters) CountRxInterrupt() { c.rxIntr.Add(1) }

// CountTxInterrupt records one transmit handler invocation.
func (c *Counters) CountTxInterrupt() { c.txIntr.Add(1) }

// CountByte records one byte processed by the receiving task.
func (c *Counters) CountByte() { c.bytes.Add(1) }

// CountDropped records one received byte lost to a full inbound queue.
func (c *Counters) CountDropped() { c.dropped.Add(1) }

// CountSpurious records an interrupt with no recognized cause.
func (c *Counters) CountSpurious() { c.spurious.Add(1) }

// Snapshot reads all counters.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		RxInterrupts: c.rxIntr.Load(),
		TxInterrupts: c.txIntr.Load(),
		Bytes:        c.bytes.Load(),
		RxDropped:    c.dropped.Load(),
		Spurious:     c.spurious.Load(),
	}
}

// Reset zeroes the interrupt and byte counters and returns their values
// right before the reset.
func (c *Counters) Reset() Snapshot {
	return Snapshot{
		RxInterrupts: c.rxIntr.Swap(0),
		TxInterrupts: c.txIntr.Swap(0),
		Bytes:        c.bytes.Swap(0),
		RxDropped:    c.dropped.Load(),
		Spurious:     c.spurious.Load(),
	}
}
