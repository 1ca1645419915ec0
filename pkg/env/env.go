// Package env builds the runtime environment of the commands from flags and
// environment variables.
package env

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
	"go.bug.st/serial"

	"github.com/robotalks/uart.go/pkg/echo"
	"github.com/robotalks/uart.go/pkg/hw"
	"github.com/robotalks/uart.go/pkg/mqtt"
	"github.com/robotalks/uart.go/pkg/panel"
	"github.com/robotalks/uart.go/pkg/uart"
)

// SimPort selects the in-memory cable instead of a serial port.
const SimPort = "sim"

// Config provides the options to set up a system.
type Config struct {
	// Port is a serial device path or SimPort.
	Port string
	Baud int

	QueueSize      int
	PollInterval   time.Duration
	ReportInterval time.Duration

	// MetricsAddr enables the metrics server when not empty.
	MetricsAddr string

	// PanelMQTT specifies a broker for the remote panel,
	// e.g. mqtt://host:port/topic-prefix. Empty uses an in-process panel.
	PanelMQTT string
	ClientID  string
}

var defaultConfig = Config{
	Port:           SimPort,
	Baud:           115200,
	QueueSize:      uart.DefaultQueueSize,
	PollInterval:   echo.DefaultPollInterval,
	ReportInterval: echo.DefaultReportInterval,
}

func init() {
	if val := os.Getenv("UART_PORT"); val != "" {
		defaultConfig.Port = val
	}
	durationFromEnv("UART_REPORT_INTERVAL", &defaultConfig.ReportInterval)
	if val := os.Getenv("UART_METRICS_ADDR"); val != "" {
		defaultConfig.MetricsAddr = val
	}
	if val := os.Getenv("UART_PANEL_MQTT"); val != "" {
		defaultConfig.PanelMQTT = val
	}
	if id, err := machineid.ProtectedID("uart.go"); err == nil {
		defaultConfig.ClientID = id
	}
}

// durationFromEnv overrides d with the duration in the named variable.
// Invalid values are ignored.
func durationFromEnv(name string, d *time.Duration) {
	val := os.Getenv(name)
	if val == "" {
		return
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		glog.Warningf("ignore %s=%q: %v", name, val, err)
		return
	}
	*d = parsed
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port, or "+SimPort+" for a simulated cable")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Baud rate")
	flag.IntVar(&defaultConfig.QueueSize, "queue", defaultConfig.QueueSize, "Capacity of each byte queue")
	flag.DurationVar(&defaultConfig.PollInterval, "poll", defaultConfig.PollInterval, "Receive timeout before polling the panel")
	flag.DurationVar(&defaultConfig.ReportInterval, "report", defaultConfig.ReportInterval, "Periodic report interval, 0 disables")
	flag.StringVar(&defaultConfig.MetricsAddr, "metrics", defaultConfig.MetricsAddr, "Metrics listen address")
	flag.StringVar(&defaultConfig.PanelMQTT, "panel-mqtt", defaultConfig.PanelMQTT, "MQTT broker URL of the remote panel")
	flag.StringVar(&defaultConfig.ClientID, "client-id", defaultConfig.ClientID, "MQTT client ID")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must be specified")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Baud)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("invalid queue size %d", c.QueueSize)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid poll interval %v", c.PollInterval)
	}
	if c.ReportInterval < 0 {
		return fmt.Errorf("invalid report interval %v", c.ReportInterval)
	}
	return nil
}

// SystemConfig returns the config of the echo system.
func (c *Config) SystemConfig() echo.Config {
	return echo.Config{
		QueueSize:      c.QueueSize,
		PollInterval:   c.PollInterval,
		ReportInterval: c.ReportInterval,
	}
}

// Link is an opened device and its wire.
type Link struct {
	Device *hw.Device
	// Terminal is the far end of a simulated cable, nil on a serial port.
	Terminal net.Conn

	wire io.Closer
}

// Close closes the wire and the terminal.
func (l *Link) Close() error {
	if l.Terminal != nil {
		l.Terminal.Close()
	}
	return l.wire.Close()
}

// OpenLink opens the wire and creates the device on it.
func (c *Config) OpenLink() (*Link, error) {
	devConf := hw.Config{ByteTime: hw.ByteTimeFor(c.Baud)}
	if c.Port == SimPort {
		terminal, wire := net.Pipe()
		glog.V(1).Info("using simulated cable")
		return &Link{Device: hw.New(wire, devConf), Terminal: terminal, wire: wire}, nil
	}
	port, err := serial.Open(c.Port, &serial.Mode{
		BaudRate: c.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s error: %v", c.Port, err)
	}
	glog.V(1).Infof("opened %s @ %d baud", c.Port, c.Baud)
	return &Link{Device: hw.New(port, devConf), wire: port}, nil
}

// MustOpenLink opens the link and fails on error.
func (c *Config) MustOpenLink() *Link {
	l, err := c.OpenLink()
	if err != nil {
		log.Fatalln(err)
	}
	return l
}

// Panel is a panel with resources to release.
type Panel interface {
	echo.Panel
	io.Closer
}

type memoryPanel struct {
	*panel.Memory
}

func (p *memoryPanel) Close() error {
	return nil
}

// NewPanel creates the remote panel when PanelMQTT is set, or an
// in-process one.
func (c *Config) NewPanel() (Panel, error) {
	if c.PanelMQTT == "" {
		return &memoryPanel{Memory: panel.NewMemory()}, nil
	}
	opts, prefix, err := mqtt.ClientOptionsFromURL(c.PanelMQTT)
	if err != nil {
		return nil, fmt.Errorf("invalid panel MQTT URL: %v", err)
	}
	if opts.ClientID == "" {
		opts.SetClientID(c.ClientID)
	}
	q := mqtt.NewQueue(opts, prefix)
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect panel MQTT error: %v", token.Error())
	}
	return &remotePanel{Remote: panel.NewRemote(q), queue: q}, nil
}

type remotePanel struct {
	*panel.Remote
	queue *mqtt.Queue
}

func (p *remotePanel) Close() error {
	p.Remote.Close()
	return p.queue.Close()
}
