package main

import (
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/uart.go/pkg/echo"
	"github.com/robotalks/uart.go/pkg/env"
	"github.com/robotalks/uart.go/pkg/metrics"
	"github.com/robotalks/uart.go/pkg/sched"
	"github.com/robotalks/uart.go/pkg/uart"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := env.NewConfig()
	if err := conf.Validate(); err != nil {
		glog.Exitf("invalid config: %v", err)
	}
	link := conf.MustOpenLink()
	defer link.Close()
	p, err := conf.NewPanel()
	if err != nil {
		glog.Exitf("create panel error: %v", err)
	}
	defer p.Close()

	system := echo.NewSystem(link.Device, p, conf.SystemConfig())
	if err := system.Start(); err != nil {
		glog.Exitf("UART initialization failed: %v", err)
	}
	glog.Info(echo.Banner)

	tasks := []sched.Task{
		sched.NamedTask("device", sched.TaskFunc(link.Device.Run)),
		sched.NamedTask("loop", sched.NewLoop().Add(system)),
	}
	if link.Terminal != nil {
		tasks = append(tasks, sched.NamedTask("terminal", sched.TaskFunc(echoTerminal(link))))
	}
	if conf.MetricsAddr != "" {
		tasks = append(tasks, metrics.NewServer(conf.MetricsAddr, uart.NewCollector(system.Driver)))
	}
	if err := sched.NewGroup().HandleSignals().Go(tasks...).Wait(); err != nil {
		glog.Exit(err)
	}
}
