// Package prometheus contains the Prometheus-backed implementations of
// the packrat metrics interfaces.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/packrat/pkg/metrics"
)

type backupMetrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	bytesSent           prometheus.Counter
	activeConnections   prometheus.Gauge
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
}

// NewBackupMetrics creates a Prometheus-backed BackupMetrics, or a no-op
// implementation when metrics are disabled.
func NewBackupMetrics() metrics.BackupMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopBackupMetrics()
	}

	reg := metrics.GetRegistry()

	return &backupMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "packrat_backup_requests_total",
				Help: "Total number of backup protocol requests by opcode and response status",
			},
			[]string{"op", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "packrat_backup_request_duration_milliseconds",
				Help:    "Duration of backup protocol request handling in milliseconds",
				Buckets: []float64{1, 10, 100, 1000, 10000},
			},
			[]string{"op"},
		),
		bytesSent: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "packrat_backup_response_bytes_total",
				Help: "Total response bytes written to clients",
			},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "packrat_backup_active_connections",
				Help: "Current number of open client connections",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "packrat_backup_connections_accepted_total",
				Help: "Total number of accepted client connections",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "packrat_backup_connections_closed_total",
				Help: "Total number of closed client connections",
			},
		),
	}
}

func (m *backupMetrics) RecordRequest(op string, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(op, status).Inc()
	m.requestDuration.WithLabelValues(op).Observe(float64(duration.Milliseconds()))
}

func (m *backupMetrics) RecordBytesSent(n int64) {
	m.bytesSent.Add(float64(n))
}

func (m *backupMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *backupMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}

func (m *backupMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}
