// Package metrics serves prometheus metrics over HTTP.
package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/uart.go/pkg/sched"
)

// Server is a Task serving /metrics of Registry.
type Server struct {
	Addr     string
	Registry *prometheus.Registry

	listener net.Listener
}

// NewServer creates a Server with a registry holding the process and Go
// runtime collectors and cs.
func NewServer(addr string, cs ...prometheus.Collector) *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	reg.MustRegister(cs...)
	return &Server{Addr: addr, Registry: reg}
}

// Name implements sched.Named.
func (s *Server) Name() string {
	return "metrics"
}

// Listen opens the listener, Run calls it when needed.
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("could not listen: %v", err)
	}
	s.listener = l
	return nil
}

// ListenAddr returns the bound address after Listen.
func (s *Server) ListenAddr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run implements sched.Task.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
	glog.Infof("metrics on http://%s/metrics", s.listener.Addr())
	return sched.RunWithContextCloser(ctx, s.listener, func() error {
		return http.Serve(s.listener, mux)
	})
}
