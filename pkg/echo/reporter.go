package echo

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/robotalks/uart.go/pkg/sched"
	"github.com/robotalks/uart.go/pkg/uart"
)

// DefaultReportInterval is the period of reports when not configured.
const DefaultReportInterval = time.Second

// FormatReport formats the counter report sent on the wire.
func FormatReport(s uart.Snapshot) string {
	return fmt.Sprintf("Byte count: %d\rRx interrupts: %d\rTx interrupts: %d\r",
		s.Bytes, s.RxInterrupts, s.TxInterrupts)
}

// Reporter is the status reporting Controller. It reports every Interval
// and whenever a ReportRequest is posted. A zero Interval disables periodic
// reports.
type Reporter struct {
	Driver   *uart.Driver
	Interval time.Duration
	// Output receives reports, the driver when nil.
	Output io.Writer

	lastReport time.Time
}

// NewReporter creates a Reporter.
func NewReporter(d *uart.Driver, interval time.Duration) *Reporter {
	return &Reporter{Driver: d, Interval: interval}
}

// Control implements sched.Controller.
func (r *Reporter) Control(cc sched.ControlContext) error {
	requested := false
	cc.Messages().ProcessMessages(sched.ProcessMessageFunc(func(mc sched.MessageProcessingContext) {
		if _, ok := mc.CurrentMessage().(*ReportRequest); ok {
			mc.MessageTaken()
			requested = true
		}
	}))
	due := r.Interval > 0 && cc.Time().Sub(r.lastReport) >= r.Interval
	if !requested && !due {
		return nil
	}
	r.lastReport = cc.Time()
	return r.Report(cc.Context())
}

// Report sends the current counters.
func (r *Reporter) Report(ctx context.Context) error {
	out := r.Output
	if out == nil {
		out = r.Driver.Writer(ctx)
	}
	_, err := io.WriteString(out, FormatReport(r.Driver.Counters.Snapshot()))
	return err
}
