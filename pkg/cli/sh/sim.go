package sh

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/robotalks/uart.go/pkg/echo"
	"github.com/robotalks/uart.go/pkg/env"
	"github.com/robotalks/uart.go/pkg/panel"
	"github.com/robotalks/uart.go/pkg/sched"
)

// quietPeriod ends collecting terminal output.
const quietPeriod = 30 * time.Millisecond

// Sim is a system running on a simulated cable with an in-process panel.
type Sim struct {
	Link   *env.Link
	Panel  *panel.Memory
	System *echo.System

	cancel func()
	group  *sched.Group

	lock     sync.Mutex
	received bytes.Buffer
}

// StartSim starts a Sim. The port in conf is ignored.
func StartSim(conf *env.Config) (*Sim, error) {
	simConf := *conf
	simConf.Port = env.SimPort
	link, err := simConf.OpenLink()
	if err != nil {
		return nil, err
	}
	s := &Sim{
		Link:  link,
		Panel: panel.NewMemory(),
	}
	s.System = echo.NewSystem(link.Device, s.Panel, simConf.SystemConfig())
	if err := s.System.Start(); err != nil {
		link.Close()
		return nil, err
	}
	loop := sched.NewLoop().Add(s.System)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.group = sched.NewGroupWith(ctx).Go(
		sched.NamedTask("device", sched.TaskFunc(link.Device.Run)),
		sched.NamedTask("loop", loop),
	)
	go s.readTerminal()
	return s, nil
}

func (s *Sim) readTerminal() {
	buf := make([]byte, 256)
	for {
		n, err := s.Link.Terminal.Read(buf)
		if n > 0 {
			s.lock.Lock()
			s.received.Write(buf[:n])
			s.lock.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Type sends p from the terminal and returns what the terminal received
// until the line goes quiet, or timeout elapses.
func (s *Sim) Type(p []byte, timeout time.Duration) (string, error) {
	s.Drain()
	if _, err := s.Link.Terminal.Write(p); err != nil {
		return "", err
	}
	return s.Collect(timeout), nil
}

// Collect waits for the terminal output to settle and returns it.
func (s *Sim) Collect(timeout time.Duration) string {
	deadline := time.Now().Add(timeout)
	size := -1
	for time.Now().Before(deadline) {
		time.Sleep(quietPeriod)
		s.lock.Lock()
		n := s.received.Len()
		s.lock.Unlock()
		if n > 0 && n == size {
			break
		}
		size = n
	}
	return s.Drain()
}

// Drain returns and clears the terminal output received so far.
func (s *Sim) Drain() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := s.received.String()
	s.received.Reset()
	return out
}

// Close stops the Sim.
func (s *Sim) Close() error {
	s.cancel()
	s.Link.Close()
	return s.group.Wait()
}
