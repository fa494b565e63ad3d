// Package metrics exports security layer activity as Prometheus metrics.
package metrics

import (
	"github.com/opd-ai/sasl"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sasl"

// Collector counts the traffic and failures of every layer it observes.
// One Collector may be shared by any number of layers; pass it to
// sasl.Install with sasl.WithObserver and register it once.
type Collector struct {
	layers       prometheus.Gauge
	installs     prometheus.Counter
	ssf          prometheus.Histogram
	plainBytes   *prometheus.CounterVec
	encodedBytes *prometheus.CounterVec
	calls        *prometheus.CounterVec
	failures     *prometheus.CounterVec
}

var _ sasl.Observer = (*Collector)(nil)
var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates an unregistered collector.
func NewCollector() *Collector {
	return &Collector{
		layers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_layers",
			Help:      "Security layers currently installed.",
		}),
		installs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layers_installed_total",
			Help:      "Security layers installed.",
		}),
		ssf: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layer_ssf",
			Help:      "Strength factor of installed layers.",
			Buckets:   []float64{0, 1, 56, 112, 128, 256},
		}),
		plainBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plaintext_bytes_total",
			Help:      "Application bytes passed through the layer.",
		}, []string{"direction"}),
		encodedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encoded_bytes_total",
			Help:      "Protected bytes exchanged with the socket.",
		}, []string{"direction"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_calls_total",
			Help:      "Encode and decode calls.",
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Fatal layer errors by operation.",
		}, []string{"op"}),
	}
}

// LayerInstalled records a new layer.
func (c *Collector) LayerInstalled(ssf int) {
	c.layers.Inc()
	c.installs.Inc()
	c.ssf.Observe(float64(ssf))
}

// LayerClosed records a layer teardown.
func (c *Collector) LayerClosed(int) {
	c.layers.Dec()
}

// Encoded records one outgoing chunk.
func (c *Collector) Encoded(plain, encoded int) {
	c.calls.WithLabelValues("encode").Inc()
	c.plainBytes.WithLabelValues("out").Add(float64(plain))
	c.encodedBytes.WithLabelValues("out").Add(float64(encoded))
}

// Decoded records one network read.
func (c *Collector) Decoded(encoded, plain int) {
	c.calls.WithLabelValues("decode").Inc()
	c.encodedBytes.WithLabelValues("in").Add(float64(encoded))
	c.plainBytes.WithLabelValues("in").Add(float64(plain))
}

// Failed records a fatal error of op.
func (c *Collector) Failed(op string) {
	c.failures.WithLabelValues(op).Inc()
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.layers.Describe(ch)
	c.installs.Describe(ch)
	c.ssf.Describe(ch)
	c.plainBytes.Describe(ch)
	c.encodedBytes.Describe(ch)
	c.calls.Describe(ch)
	c.failures.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.layers.Collect(ch)
	c.installs.Collect(ch)
	c.ssf.Collect(ch)
	c.plainBytes.Collect(ch)
	c.encodedBytes.Collect(ch)
	c.calls.Collect(ch)
	c.failures.Collect(ch)
}
