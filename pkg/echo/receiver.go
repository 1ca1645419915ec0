package echo

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/uart.go/pkg/panel"
	"github.com/robotalks/uart.go/pkg/sched"
	"github.com/robotalks/uart.go/pkg/seq"
	"github.com/robotalks/uart.go/pkg/uart"
)

// DefaultPollInterval is how long the receiver waits for a byte before
// polling the panel.
const DefaultPollInterval = 10 * time.Millisecond

// ResetMessage confirms the reset sequence.
const ResetMessage = "Byte Count, and interrupt counters set to zero\n\n"

// resetDisplay is shown when the counters are reset from the panel.
const resetDisplay = 88

// Panel is the button input and numeric display polled when idle.
type Panel interface {
	Buttons() (panel.Buttons, error)
	Display(value uint32) error
}

// ReportRequest is posted to the Loop when the report sequence is received.
type ReportRequest struct{}

// Receiver is the receive processing Task. It must run inside a
// sched.Loop for report requests to be delivered.
type Receiver struct {
	Driver       *uart.Driver
	Panel        Panel
	PollInterval time.Duration
	// Output receives the reset confirmation, the driver when nil.
	Output io.Writer

	window *seq.Window
	faults uart.Snapshot
}

// NewReceiver creates a Receiver.
func NewReceiver(d *uart.Driver, p Panel) *Receiver {
	return &Receiver{
		Driver:       d,
		Panel:        p,
		PollInterval: DefaultPollInterval,
		window:       seq.NewWindow(seq.Length),
	}
}

// Name implements sched.Named.
func (r *Receiver) Name() string {
	return "receiver"
}

// Run implements sched.Task.
func (r *Receiver) Run(ctx context.Context) error {
	if r.window == nil {
		r.window = seq.NewWindow(seq.Length)
	}
	// bytes seen by a previous run never complete a sequence
	r.window.Clear()
	out := r.Output
	if out == nil {
		out = r.Driver.Writer(ctx)
	}
	interval := r.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	for {
		b, err := r.Driver.Receive(ctx, interval)
		switch err {
		case nil:
			if err := r.process(ctx, b, out); err != nil {
				return err
			}
		case uart.ErrTimeout:
			r.idle()
		default:
			return err
		}
	}
}

func (r *Receiver) process(ctx context.Context, b byte, out io.Writer) error {
	r.Driver.Counters.CountByte()
	r.window.Push(b)
	if glog.V(4) {
		glog.Infof("rx %q window %q", b, r.window.Bytes())
	}
	if err := r.Driver.SendByte(ctx, Transform(b)); err != nil {
		return err
	}
	switch {
	case r.window.Matches(seq.Report):
		glog.V(3).Info("report requested")
		if ctl := sched.LoopCtlFrom(ctx); ctl != nil {
			ctl.PostMessage(&ReportRequest{})
			ctl.TriggerNext()
		}
	case r.window.Matches(seq.Reset):
		prev := r.Driver.Counters.Reset()
		glog.V(1).Infof("counters reset from %s", prev)
		if _, err := io.WriteString(out, ResetMessage); err != nil {
			return err
		}
	}
	return nil
}

func (r *Receiver) idle() {
	r.logFaults()
	if r.Panel == nil {
		return
	}
	buttons, err := r.Panel.Buttons()
	if err != nil {
		glog.Warningf("read buttons: %v", err)
		return
	}
	counters := r.Driver.Counters
	var value uint32
	switch buttons {
	case panel.BTN0:
		value = counters.Snapshot().RxInterrupts
	case panel.BTN1:
		value = counters.Snapshot().TxInterrupts
	case panel.BTN2:
		value = counters.Snapshot().Bytes
	case panel.BTN3:
		counters.Reset()
		value = resetDisplay
	}
	if err := r.Panel.Display(value); err != nil {
		glog.Warningf("update display: %v", err)
	}
}

// logFaults reports faults counted in interrupt context since the last pass.
func (r *Receiver) logFaults() {
	s := r.Driver.Counters.Snapshot()
	if n := s.RxDropped - r.faults.RxDropped; n > 0 {
		glog.Warningf("%d received bytes dropped, inbound queue full", n)
	}
	if n := s.Spurious - r.faults.Spurious; n > 0 {
		glog.Warningf("%d unexpected interrupt events", n)
	}
	r.faults = s
}
