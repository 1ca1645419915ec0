package echo

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/uart.go/pkg/panel"
	"github.com/robotalks/uart.go/pkg/sched"
	"github.com/robotalks/uart.go/pkg/uart"
)

// wireLink is a link whose transmitter is always ready, every written byte
// lands on the wire immediately. It never raises interrupts.
type wireLink struct {
	lock    sync.Mutex
	wire    bytes.Buffer
	mask    uart.Mask
	initErr error
}

func (l *wireLink) Init() error         { return l.initErr }
func (l *wireLink) DataAvailable() bool { return false }
func (l *wireLink) ReadByte() byte      { return 0 }
func (l *wireLink) TransmitFull() bool  { return false }
func (l *wireLink) TransmitEmpty() bool { return true }

func (l *wireLink) WriteByte(b byte) {
	l.lock.Lock()
	l.wire.WriteByte(b)
	l.lock.Unlock()
}

func (l *wireLink) InterruptMask() uart.Mask {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.mask
}

func (l *wireLink) SetInterruptMask(m uart.Mask) {
	l.lock.Lock()
	l.mask = m
	l.lock.Unlock()
}

func (l *wireLink) sent() string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.wire.String()
}

type syncBuffer struct {
	lock sync.Mutex
	buf  bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(time.Millisecond)
	}
}

type fixture struct {
	link   *wireLink
	panel  *panel.Memory
	system *System
	output *syncBuffer
	cancel func()
	doneCh chan error
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		link:   &wireLink{},
		panel:  panel.NewMemory(),
		output: &syncBuffer{},
	}
	f.system = NewSystem(f.link, f.panel, Config{PollInterval: time.Millisecond})
	f.system.Receiver.Output = f.output
	require.NoError(t, f.system.Start())
	return f
}

// run starts the system in a Loop which only iterates when triggered.
func (f *fixture) run() {
	loop := sched.NewLoop()
	loop.Interval = time.Hour
	loop.Add(f.system)
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.doneCh = make(chan error, 1)
	go func() { f.doneCh <- loop.Run(ctx) }()
}

func (f *fixture) stop(t *testing.T) {
	f.cancel()
	select {
	case err := <-f.doneCh:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("loop not stopped")
	}
}

func (f *fixture) receive(t *testing.T, s string) {
	for i := 0; i < len(s); i++ {
		_, err := f.system.Driver.Inbound().TryEnqueue(s[i])
		require.NoError(t, err)
	}
}

func (f *fixture) preset(rx, tx, count int) {
	c := f.system.Counters
	for i := 0; i < rx; i++ {
		c.CountRxInterrupt()
	}
	for i := 0; i < tx; i++ {
		c.CountTxInterrupt()
	}
	for i := 0; i < count; i++ {
		c.CountByte()
	}
}

func TestTransform(t *testing.T) {
	for i := 0; i < 256; i++ {
		b := byte(i)
		swapped := Transform(b)
		require.Equal(t, b, Transform(swapped))
		switch {
		case b >= 'a' && b <= 'z':
			require.Equal(t, strings.ToUpper(string(b)), string(swapped))
		case b >= 'A' && b <= 'Z':
			require.Equal(t, strings.ToLower(string(b)), string(swapped))
		default:
			require.Equal(t, b, swapped)
		}
	}
}

func TestFormatReport(t *testing.T) {
	require.Equal(t, "Byte count: 12\rRx interrupts: 3\rTx interrupts: 4\r",
		FormatReport(uart.Snapshot{Bytes: 12, RxInterrupts: 3, TxInterrupts: 4}))
}

func TestSystemStartFailure(t *testing.T) {
	failure := errors.New("no device")
	s := NewSystem(&wireLink{initErr: failure}, nil, Config{})
	err := s.Start()
	initErr, ok := err.(*uart.InitError)
	require.True(t, ok)
	require.Equal(t, failure, initErr.Err)
}

func TestEchoRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.run()
	defer f.stop(t)

	var input, expected []byte
	for i := 0; i < 256; i++ {
		if b := byte(i); b != '\r' {
			input = append(input, b)
			expected = append(expected, Transform(b))
		}
	}
	// Keep the inbound queue from overflowing.
	for i := 0; i < len(input); i += 50 {
		end := i + 50
		if end > len(input) {
			end = len(input)
		}
		f.receive(t, string(input[i:end]))
		waitFor(t, func() bool { return len(f.link.sent()) == end })
	}
	require.Equal(t, string(expected), f.link.sent())
	require.Equal(t, uint32(len(input)), f.system.Counters.Snapshot().Bytes)
}

func TestResetSequence(t *testing.T) {
	f := newFixture(t)
	f.preset(5, 3, 2)
	f.run()
	defer f.stop(t)

	f.receive(t, "Ab\r%\r")
	waitFor(t, func() bool { return f.output.String() == ResetMessage })
	require.Equal(t, "aB\r%\r", f.link.sent())
	s := f.system.Counters.Snapshot()
	require.Equal(t, uint32(0), s.RxInterrupts)
	require.Equal(t, uint32(0), s.TxInterrupts)
	require.Equal(t, uint32(0), s.Bytes)
}

func TestResetIdempotent(t *testing.T) {
	f := newFixture(t)
	f.run()
	defer f.stop(t)

	f.receive(t, "\r%\r\r%\r")
	waitFor(t, func() bool { return f.output.String() == ResetMessage+ResetMessage })
	require.Equal(t, uart.Snapshot{}, f.system.Counters.Snapshot())
}

func TestReportSequence(t *testing.T) {
	f := newFixture(t)
	f.run()
	defer f.stop(t)

	f.receive(t, "\r#\r")
	expected := "\r#\r" + "Byte count: 3\rRx interrupts: 0\rTx interrupts: 0\r"
	waitFor(t, func() bool { return f.link.sent() == expected })
}

func TestPartialSequences(t *testing.T) {
	f := newFixture(t)
	f.run()
	defer f.stop(t)

	f.receive(t, "\r#x\r%")
	waitFor(t, func() bool { return f.system.Counters.Snapshot().Bytes == 5 })
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, "\r#X\r%", f.link.sent())
	require.Empty(t, f.output.String())
}

func TestReceiverRestartClearsWindow(t *testing.T) {
	f := newFixture(t)
	f.system.Receiver.window.Push('\r')
	f.system.Receiver.window.Push('%')
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, context.Canceled, f.system.Receiver.Run(ctx))
	require.Equal(t, []byte{0, 0, 0}, f.system.Receiver.window.Bytes())
}

func TestPanelPolling(t *testing.T) {
	f := newFixture(t)
	f.preset(7, 4, 9)
	f.run()
	defer f.stop(t)

	displayed := func(expected uint32) func() bool {
		return func() bool {
			v, _ := f.panel.Value()
			return v == expected
		}
	}

	f.panel.Press(panel.BTN0)
	waitFor(t, displayed(7))
	f.panel.Press(panel.BTN1)
	waitFor(t, displayed(4))
	f.panel.Press(panel.BTN2)
	waitFor(t, displayed(9))
	f.panel.Press(panel.BTN0 | panel.BTN1)
	waitFor(t, displayed(0))
	f.panel.Press(panel.BTN3)
	waitFor(t, displayed(resetDisplay))
	require.Equal(t, uart.Snapshot{}, f.system.Counters.Snapshot())
}

func TestPeriodicReport(t *testing.T) {
	link := &wireLink{}
	s := NewSystem(link, nil, Config{ReportInterval: time.Millisecond})
	require.NoError(t, s.Start())
	s.Counters.CountByte()

	loop := sched.NewLoop()
	loop.Interval = time.Millisecond
	loop.AddController(sched.PrLvNormal, s.Reporter)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	report := FormatReport(uart.Snapshot{Bytes: 1})
	waitFor(t, func() bool { return strings.Count(link.sent(), report) >= 2 })
}
