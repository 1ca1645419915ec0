package echo

import (
	"time"

	"github.com/robotalks/uart.go/pkg/sched"
	"github.com/robotalks/uart.go/pkg/uart"
)

// Config defines the system parameters.
type Config struct {
	QueueSize      int
	PollInterval   time.Duration
	ReportInterval time.Duration
}

// System wires the driver and the tasks of one link.
type System struct {
	Counters *uart.Counters
	Driver   *uart.Driver
	Receiver *Receiver
	Reporter *Reporter
}

// NewSystem creates a System on link.
func NewSystem(link uart.Link, p Panel, conf Config) *System {
	counters := uart.NewCounters()
	drv := uart.NewDriver(link, counters, conf.QueueSize)
	recv := NewReceiver(drv, p)
	if conf.PollInterval > 0 {
		recv.PollInterval = conf.PollInterval
	}
	return &System{
		Counters: counters,
		Driver:   drv,
		Receiver: recv,
		Reporter: NewReporter(drv, conf.ReportInterval),
	}
}

// Start initializes the link, it must succeed before the Loop runs.
func (s *System) Start() error {
	return s.Driver.Start()
}

// AddToLoop implements sched.LoopAdder.
func (s *System) AddToLoop(l *sched.Loop) {
	l.AddTask(s.Receiver)
	l.AddController(sched.PrLvNormal, s.Reporter)
}
