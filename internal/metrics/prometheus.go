package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "audiorelay"

// Metrics contains all Prometheus metrics for the audio relay
type Metrics struct {
	registry *prometheus.Registry

	// Send path metrics
	FramesCaptured prometheus.Counter
	FramesGated    prometheus.Counter
	FramesDropped  prometheus.Counter
	EncryptErrors  prometheus.Counter
	PacketsSent    prometheus.Counter
	SendErrors     prometheus.Counter
	SendQueueSize  prometheus.Gauge
	PacketSize     prometheus.Histogram

	// Receive path metrics
	PacketsReceived prometheus.Counter
	DecryptFailures prometheus.Counter
	LatePackets     prometheus.Counter
	ReceiveErrors   prometheus.Counter

	// Jitter buffer metrics
	JitterBufferFill prometheus.Gauge
	SamplesTrimmed   prometheus.Counter
	Underruns        prometheus.Counter

	// Configuration reloads
	ConfigReloads *prometheus.CounterVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics on a dedicated registry that also carries
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FramesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_captured_total",
			Help:      "Total number of frames delivered by the capture device",
		}),
		FramesGated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_gated_total",
			Help:      "Total number of frames below the volume threshold",
		}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Total number of encrypted frames dropped because the send queue was full",
		}),
		EncryptErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encrypt_errors_total",
			Help:      "Total number of frames that failed to encrypt",
		}),
		PacketsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_sent_total",
			Help:      "Total number of datagrams written to the socket",
		}),
		SendErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "Total number of failed socket writes",
		}),
		SendQueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "send_queue_size",
			Help:      "Current number of packets waiting in the send queue",
		}),
		PacketSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "packet_size_bytes",
			Help:      "Size of datagrams on the wire",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 10), // 64B to 32KB
		}),

		PacketsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Total number of datagrams read from the socket",
		}),
		DecryptFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decrypt_failures_total",
			Help:      "Total number of datagrams dropped because they failed to decrypt",
		}),
		LatePackets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "late_packets_total",
			Help:      "Total number of authenticated packets dropped as late or duplicate",
		}),
		ReceiveErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receive_errors_total",
			Help:      "Total number of failed socket reads",
		}),

		JitterBufferFill: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jitter_buffer_samples",
			Help:      "Current number of mono samples waiting for playback",
		}),
		SamplesTrimmed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jitter_buffer_trimmed_samples_total",
			Help:      "Total number of samples discarded when the buffer passed its high watermark",
		}),
		Underruns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jitter_buffer_underruns_total",
			Help:      "Total number of playback callbacks padded with silence",
		}),

		ConfigReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Total number of configuration reload attempts",
		}, []string{"result"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// Handler returns the /metrics handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the registry for tests
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// RecordCapture records a captured frame and whether it passed the gate
func (m *Metrics) RecordCapture(passed bool) {
	m.FramesCaptured.Inc()
	if !passed {
		m.FramesGated.Inc()
	}
}

// RecordFrameDropped increments the dropped frames counter
func (m *Metrics) RecordFrameDropped() {
	m.FramesDropped.Inc()
}

// RecordEncryptError increments the encrypt errors counter
func (m *Metrics) RecordEncryptError() {
	m.EncryptErrors.Inc()
}

// RecordPacketSent records a datagram written to the socket
func (m *Metrics) RecordPacketSent(sizeBytes int) {
	m.PacketsSent.Inc()
	m.PacketSize.Observe(float64(sizeBytes))
}

// RecordSendError increments the send errors counter
func (m *Metrics) RecordSendError() {
	m.SendErrors.Inc()
}

// SetSendQueueSize sets the current send queue length
func (m *Metrics) SetSendQueueSize(size int) {
	m.SendQueueSize.Set(float64(size))
}

// RecordPacketReceived increments the packets received counter
func (m *Metrics) RecordPacketReceived() {
	m.PacketsReceived.Inc()
}

// RecordDecryptFailure increments the decrypt failures counter
func (m *Metrics) RecordDecryptFailure() {
	m.DecryptFailures.Inc()
}

// RecordLatePacket increments the late packets counter
func (m *Metrics) RecordLatePacket() {
	m.LatePackets.Inc()
}

// RecordReceiveError increments the receive errors counter
func (m *Metrics) RecordReceiveError() {
	m.ReceiveErrors.Inc()
}

// RecordBufferAppend records the fill level after an append and any samples trimmed
func (m *Metrics) RecordBufferAppend(fill, trimmed int) {
	m.JitterBufferFill.Set(float64(fill))
	if trimmed > 0 {
		m.SamplesTrimmed.Add(float64(trimmed))
	}
}

// RecordBufferDrain records the fill level after a drain and whether it underran
func (m *Metrics) RecordBufferDrain(fill int, underrun bool) {
	m.JitterBufferFill.Set(float64(fill))
	if underrun {
		m.Underruns.Inc()
	}
}

// RecordConfigReload records a configuration reload attempt
func (m *Metrics) RecordConfigReload(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	m.ConfigReloads.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
