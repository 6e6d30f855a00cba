package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wirebridge",
			Subsystem: "admin",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wirebridge",
			Subsystem: "admin",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	bridgeSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wirebridge",
			Subsystem: "bridge",
			Name:      "sends_total",
			Help:      "Buffers submitted through the send bridge.",
		},
		[]string{"result"},
	)
	bridgeEscalations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wirebridge",
			Subsystem: "bridge",
			Name:      "escalations_total",
			Help:      "Send failures escalated to a stop signal.",
		},
	)
	bridgeStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wirebridge",
			Subsystem: "bridge",
			Name:      "stops_total",
			Help:      "Stop requests through the stop bridge.",
		},
		[]string{"result"},
	)
	writerBuffers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wirebridge",
			Subsystem: "writer",
			Name:      "buffers_total",
			Help:      "Buffers written by the runtime writer.",
		},
	)
	writerBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wirebridge",
			Subsystem: "writer",
			Name:      "bytes_total",
			Help:      "Bytes written by the runtime writer.",
		},
	)
)

// Result labels shared by the bridge recorders.
const (
	ResultOK            = "ok"
	ResultNotRegistered = "not_registered"
	ResultFailed        = "failed"
	ResultAlreadyDone   = "already_stopped"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			bridgeSends,
			bridgeEscalations,
			bridgeStops,
			writerBuffers,
			writerBytes,
		)
	})
}

func RecordSend(result string) {
	RegisterMetrics()
	bridgeSends.WithLabelValues(result).Inc()
}

func RecordEscalation() {
	RegisterMetrics()
	bridgeEscalations.Inc()
}

func RecordStop(result string) {
	RegisterMetrics()
	bridgeStops.WithLabelValues(result).Inc()
}

func RecordWrite(n int) {
	RegisterMetrics()
	writerBuffers.Inc()
	writerBytes.Add(float64(n))
}
