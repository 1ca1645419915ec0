// Package hw models a FIFO based UART peripheral on top of a byte wire,
// either a host serial port or an in-memory cable.
package hw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/uart.go/pkg/sched"
	"github.com/robotalks/uart.go/pkg/uart"
)

// DefaultFIFODepth is the depth of each hardware FIFO.
const DefaultFIFODepth = 64

// Config defines the peripheral parameters.
type Config struct {
	// FIFO depth for each direction.
	RxDepth int
	TxDepth int
	// ByteTime is how long the shifter holds each transmitted byte.
	ByteTime time.Duration
}

// ByteTimeFor returns the time to shift one 8N1 frame at baud.
func ByteTimeFor(baud int) time.Duration {
	if baud <= 0 {
		return 0
	}
	return time.Second * 10 / time.Duration(baud)
}

// Device is a UART peripheral. It implements uart.Link,
// uart.InterruptSource and uart.Initializer.
//
// Interrupts are level triggered and delivered by a single dispatcher
// goroutine, so handlers never run concurrently with each other. Register
// accesses never call back into the handler.
type Device struct {
	Config
	Wire io.ReadWriter

	lock     sync.Mutex
	rx       []byte
	tx       []byte
	shifting bool
	mask     uart.Mask
	overruns int
	overrun  bool
	handler  uart.InterruptHandler

	irqCh   chan struct{}
	shiftCh chan struct{}
}

// New creates a Device on wire.
func New(wire io.ReadWriter, conf Config) *Device {
	if conf.RxDepth == 0 {
		conf.RxDepth = DefaultFIFODepth
	}
	if conf.TxDepth == 0 {
		conf.TxDepth = DefaultFIFODepth
	}
	return &Device{
		Config:  conf,
		Wire:    wire,
		irqCh:   make(chan struct{}, 1),
		shiftCh: make(chan struct{}, 1),
	}
}

// Init implements uart.Initializer.
func (d *Device) Init() error {
	if d.Wire == nil {
		return errors.New("no wire attached")
	}
	if d.RxDepth < 1 || d.TxDepth < 1 {
		return fmt.Errorf("invalid FIFO depth rx=%d tx=%d", d.RxDepth, d.TxDepth)
	}
	if d.ByteTime < 0 {
		return fmt.Errorf("invalid byte time %v", d.ByteTime)
	}
	return nil
}

// SetInterruptHandler implements uart.InterruptSource.
func (d *Device) SetInterruptHandler(h uart.InterruptHandler) {
	d.lock.Lock()
	d.handler = h
	d.lock.Unlock()
	d.raise()
}

// DataAvailable implements uart.Link.
func (d *Device) DataAvailable() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return len(d.rx) > 0
}

// ReadByte implements uart.Link. It returns 0 when the FIFO is empty.
func (d *Device) ReadByte() byte {
	d.lock.Lock()
	defer d.lock.Unlock()
	if len(d.rx) == 0 {
		return 0
	}
	b := d.rx[0]
	d.rx = d.rx[1:]
	return b
}

// TransmitFull implements uart.Link.
func (d *Device) TransmitFull() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return len(d.tx) >= d.TxDepth
}

// TransmitEmpty implements uart.Link.
func (d *Device) TransmitEmpty() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.txIdle()
}

func (d *Device) txIdle() bool {
	return len(d.tx) == 0 && !d.shifting
}

// WriteByte implements uart.Link. A byte written to a full FIFO is lost.
func (d *Device) WriteByte(b byte) {
	d.lock.Lock()
	if len(d.tx) < d.TxDepth {
		d.tx = append(d.tx, b)
	}
	d.lock.Unlock()
	notify(d.shiftCh)
}

// InterruptMask implements uart.Link.
func (d *Device) InterruptMask() uart.Mask {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.mask
}

// SetInterruptMask implements uart.Link.
func (d *Device) SetInterruptMask(m uart.Mask) {
	d.lock.Lock()
	d.mask = m
	d.lock.Unlock()
	d.raise()
}

// Overruns returns the number of bytes lost to a full receive FIFO.
func (d *Device) Overruns() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.overruns
}

// Receive puts bytes into the receive FIFO as if they arrived on the wire.
func (d *Device) Receive(p ...byte) {
	d.lock.Lock()
	for _, b := range p {
		if len(d.rx) >= d.RxDepth {
			d.overruns++
			d.overrun = true
			continue
		}
		d.rx = append(d.rx, b)
	}
	d.lock.Unlock()
	d.raise()
}

// Run drives the peripheral until ctx is done or the wire fails. A wire
// implementing io.Closer is closed on return to release the reader,
// otherwise the caller must close it.
func (d *Device) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reader := d.readLoop
	closer, closes := d.Wire.(io.Closer)
	if closes {
		reader = func() error {
			return sched.RunWithContextCloser(ctx, closer, d.readLoop)
		}
	}
	readCh, shiftCh := make(chan error, 1), make(chan error, 1)
	go func() { readCh <- reader() }()
	go func() { shiftCh <- d.shiftLoop(ctx) }()
	go d.dispatchLoop(ctx)

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-shiftCh:
	case err = <-readCh:
		return err
	}
	cancel()
	if closes {
		<-readCh
	}
	return err
}

func (d *Device) readLoop() error {
	buf := make([]byte, 64)
	for {
		n, err := d.Wire.Read(buf)
		if n > 0 {
			d.Receive(buf[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				glog.V(1).Info("uart wire closed")
			}
			return err
		}
	}
}

func (d *Device) shiftLoop(ctx context.Context) error {
	var frame [1]byte
	for {
		d.lock.Lock()
		if len(d.tx) == 0 {
			d.lock.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-d.shiftCh:
			}
			continue
		}
		frame[0] = d.tx[0]
		d.tx = d.tx[1:]
		d.shifting = true
		d.lock.Unlock()

		_, err := d.Wire.Write(frame[:])
		if d.ByteTime > 0 {
			time.Sleep(d.ByteTime)
		}

		d.lock.Lock()
		d.shifting = false
		d.lock.Unlock()
		d.raise()
		if err != nil {
			return err
		}
	}
}

// pending evaluates the interrupt lines.
func (d *Device) pending() (uart.InterruptHandler, []uart.Event) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.handler == nil {
		return nil, nil
	}
	var events []uart.Event
	if d.overrun {
		d.overrun = false
		if d.mask.Has(uart.IntrRxOver) {
			events = append(events, uart.EventOverrun)
		}
	}
	if len(d.rx) > 0 && d.mask.Has(uart.IntrRxData) {
		events = append(events, uart.EventRecvData)
	}
	if d.txIdle() && d.mask.Has(uart.IntrTxEmpty) {
		events = append(events, uart.EventSentData)
	}
	return d.handler, events
}

func (d *Device) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.irqCh:
		}
		for {
			h, events := d.pending()
			if len(events) == 0 {
				break
			}
			yield := false
			for _, ev := range events {
				if h.HandleInterrupt(ev) {
					yield = true
				}
			}
			if yield {
				runtime.Gosched()
			}
		}
	}
}

func (d *Device) raise() {
	notify(d.irqCh)
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
