package uart

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports Driver state as prometheus metrics. Values are read at
// scrape time, so a reset is visible right away.
type Collector struct {
	driver *Driver

	rxIntr   *prometheus.Desc
	txIntr   *prometheus.Desc
	bytes    *prometheus.Desc
	dropped  *prometheus.Desc
	spurious *prometheus.Desc
	depth    *prometheus.Desc
	armed    *prometheus.Desc
}

// NewCollector creates a Collector for d.
func NewCollector(d *Driver) *Collector {
	return &Collector{
		driver:   d,
		rxIntr:   prometheus.NewDesc("uart_rx_interrupts", "Receive interrupts since the last reset.", nil, nil),
		txIntr:   prometheus.NewDesc("uart_tx_interrupts", "Transmit interrupts since the last reset.", nil, nil),
		bytes:    prometheus.NewDesc("uart_bytes_processed", "Bytes processed since the last reset.", nil, nil),
		dropped:  prometheus.NewDesc("uart_rx_dropped_total", "Received bytes lost to a full inbound queue.", nil, nil),
		spurious: prometheus.NewDesc("uart_spurious_interrupts_total", "Interrupts with no handled cause.", nil, nil),
		depth:    prometheus.NewDesc("uart_queue_depth", "Items waiting in a queue.", []string{"direction"}, nil),
		armed:    prometheus.NewDesc("uart_tx_armed", "1 if the transmit-empty interrupt is enabled.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.rxIntr
	ch <- c.txIntr
	ch <- c.bytes
	ch <- c.dropped
	ch <- c.spurious
	ch <- c.depth
	ch <- c.armed
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.driver.Counters.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.rxIntr, prometheus.GaugeValue, float64(s.RxInterrupts))
	ch <- prometheus.MustNewConstMetric(c.txIntr, prometheus.GaugeValue, float64(s.TxInterrupts))
	ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(s.Bytes))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.RxDropped))
	ch <- prometheus.MustNewConstMetric(c.spurious, prometheus.CounterValue, float64(s.Spurious))
	ch <- prometheus.MustNewConstMetric(c.depth, prometheus.GaugeValue, float64(c.driver.rx.Len()), "inbound")
	ch <- prometheus.MustNewConstMetric(c.depth, prometheus.GaugeValue, float64(c.driver.tx.Len()), "outbound")
	var armed float64
	if c.driver.TxArmed() {
		armed = 1
	}
	ch <- prometheus.MustNewConstMetric(c.armed, prometheus.GaugeValue, armed)
}
