package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServerMetrics records protocol-level activity on the OmniFS server.
type ServerMetrics interface {
	// RecordRequest records one completed request with its outcome.
	RecordRequest(operation, status string, duration time.Duration)

	// ConnectionOpened and ConnectionClosed track the live connection
	// gauge and the accept counter.
	ConnectionOpened()
	ConnectionClosed()

	// SetActiveSessions reports the current session table size.
	SetActiveSessions(n int)
}

// NewServerMetrics creates a Prometheus-backed ServerMetrics, or a no-op
// implementation when metrics are disabled.
func NewServerMetrics() ServerMetrics {
	if !IsEnabled() {
		return noopServerMetrics{}
	}

	reg := GetRegistry()
	return &serverMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "omnifs_requests_total",
				Help: "Total number of requests by operation and status",
			},
			[]string{"operation", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "omnifs_request_duration_milliseconds",
				Help: "Duration of requests in milliseconds",
				Buckets: []float64{
					1,     // 1ms
					10,    // 10ms
					100,   // 100ms
					1000,  // 1s
					10000, // 10s
				},
			},
			[]string{"operation"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "omnifs_active_connections",
				Help: "Current number of open client connections",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "omnifs_connections_accepted_total",
				Help: "Total number of client connections accepted",
			},
		),
		activeSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "omnifs_active_sessions",
				Help: "Current number of authenticated sessions",
			},
		),
	}
}

type serverMetrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	activeConnections   prometheus.Gauge
	connectionsAccepted prometheus.Counter
	activeSessions      prometheus.Gauge
}

func (m *serverMetrics) RecordRequest(operation, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(operation, status).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(float64(duration.Milliseconds()))
}

func (m *serverMetrics) ConnectionOpened() {
	m.connectionsAccepted.Inc()
	m.activeConnections.Inc()
}

func (m *serverMetrics) ConnectionClosed() {
	m.activeConnections.Dec()
}

func (m *serverMetrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// noopServerMetrics discards everything.
type noopServerMetrics struct{}

func (noopServerMetrics) RecordRequest(string, string, time.Duration) {}
func (noopServerMetrics) ConnectionOpened()                           {}
func (noopServerMetrics) ConnectionClosed()                           {}
func (noopServerMetrics) SetActiveSessions(int)                       {}
