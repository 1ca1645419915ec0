package sched

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/golang/glog"
)

type namedTask struct {
	Task
	name string
}

func (t *namedTask) Name() string {
	return t.name
}

// NamedTask wraps a Task with a name used in logs.
func NamedTask(name string, task Task) Task {
	return &namedTask{name: name, Task: task}
}

// Group runs multiple Tasks and collects their errors.
type Group struct {
	Context context.Context
	Tasks   []Task

	errCh  chan error
	exitCh chan struct{}
}

// NewGroup creates a Group with a background context.
func NewGroup() *Group {
	return NewGroupWith(context.Background())
}

// NewGroupWith creates a Group with a specified context.
func NewGroupWith(ctx context.Context) *Group {
	return &Group{
		Context: ctx,
		errCh:   make(chan error, 1),
		exitCh:  make(chan struct{}),
	}
}

// HandleSignals cancels the Group on SIGINT/SIGTERM, a second signal
// forces Wait to return.
func (g *Group) HandleSignals() *Group {
	ctx, cancel := context.WithCancel(g.Context)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	g.Context = ctx
	go func() {
		<-sigCh
		glog.Info("stop requested")
		cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(g.exitCh)
	}()
	return g
}

// Go spawns Tasks with the Group context.
func (g *Group) Go(tasks ...Task) *Group {
	return g.GoWith(g.Context, tasks...)
}

// GoWith spawns Tasks with a specified context.
func (g *Group) GoWith(ctx context.Context, tasks ...Task) *Group {
	for _, task := range tasks {
		name := strconv.Itoa(len(g.Tasks))
		if named, ok := task.(Named); ok {
			name = named.Name()
		}
		g.Tasks = append(g.Tasks, task)
		go func(task Task, name string) {
			glog.V(4).Infof("task[%s] started", name)
			err := task.Run(ctx)
			glog.V(4).Infof("task[%s] stopped: %v", name, err)
			g.errCh <- err
		}(task, name)
	}
	return g
}

// Wait waits until all Tasks stop and aggregates their errors.
// Cancellation is not reported as an error.
func (g *Group) Wait() error {
	var errs AggregatedError
	for range g.Tasks {
		select {
		case <-g.exitCh:
			return errors.New("forced exit")
		case err := <-g.errCh:
			if err != context.Canceled {
				errs.Add(err)
			}
		}
	}
	return errs.Aggregate()
}

// RunWithContextCloser runs fn which doesn't accept a context. closer is
// closed when ctx is canceled, or when fn returns.
func RunWithContextCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		closer.Close()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		closer.Close()
		return err
	}
}
