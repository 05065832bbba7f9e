package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ListenerMetrics holds the Prometheus metrics for the capture side.
type ListenerMetrics struct {
	FramesTotal     *prometheus.CounterVec
	BytesTotal      prometheus.Counter
	WALActive       prometheus.Gauge
	JS8CallUp       prometheus.Gauge
	ReconnectsTotal prometheus.Counter
}

// NewListenerMetrics initializes and registers the capture metrics.
func NewListenerMetrics() *ListenerMetrics {
	return &ListenerMetrics{
		FramesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statwatch",
			Subsystem: "listener",
			Name:      "frames_total",
			Help:      "Total number of captured frames by status.",
		}, []string{"status"}), // status: accepted, filtered, empty, error_parse, error_size, error_buffer
		BytesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "statwatch",
			Subsystem: "listener",
			Name:      "bytes_total",
			Help:      "Total number of frame bytes captured.",
		}),
		WALActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "statwatch",
			Subsystem: "listener",
			Name:      "wal_active_gauge",
			Help:      "Indicates if the Write-Ahead Log is currently active (1 for active, 0 for inactive).",
		}),
		JS8CallUp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "statwatch",
			Subsystem: "listener",
			Name:      "js8call_up_gauge",
			Help:      "Indicates if the JS8Call TCP connection is established (1 for connected).",
		}),
		ReconnectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "statwatch",
			Subsystem: "listener",
			Name:      "js8call_reconnects_total",
			Help:      "Total number of JS8Call reconnect attempts.",
		}),
	}
}

// ArchiverMetrics holds the Prometheus metrics for the decode and archive
// side.
type ArchiverMetrics struct {
	RecordsTotal    *prometheus.CounterVec
	DecodeFailures  *prometheus.CounterVec
	DuplicatesTotal prometheus.Counter
	LookupOutcomes  *prometheus.CounterVec
	BatchDuration   prometheus.Histogram
	TimeFallbacks   prometheus.Counter
	NotifyFailures  *prometheus.CounterVec
}

// NewArchiverMetrics initializes and registers the pipeline metrics.
func NewArchiverMetrics() *ArchiverMetrics {
	return &ArchiverMetrics{
		RecordsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statwatch",
			Subsystem: "pipeline",
			Name:      "records_total",
			Help:      "Total number of archived records by variant kind.",
		}, []string{"kind"}),
		DecodeFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statwatch",
			Subsystem: "pipeline",
			Name:      "decode_failures_total",
			Help:      "Total number of frames that failed to decode, by reason.",
		}, []string{"reason"}), // reason: malformed, persist
		DuplicatesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "statwatch",
			Subsystem: "pipeline",
			Name:      "duplicates_total",
			Help:      "Total number of records the archive reported as duplicates.",
		}),
		LookupOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statwatch",
			Subsystem: "pipeline",
			Name:      "locator_lookups_total",
			Help:      "Total number of last-known-grid lookups by outcome.",
		}, []string{"outcome"}), // outcome: hit, miss, timeout, error
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "statwatch",
			Subsystem: "pipeline",
			Name:      "batch_duration_seconds",
			Help:      "Time spent processing one batch of frames.",
			Buckets:   prometheus.DefBuckets,
		}),
		TimeFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "statwatch",
			Subsystem: "pipeline",
			Name:      "timestamp_fallbacks_total",
			Help:      "Total number of records stamped with arrival time because the payload timestamp did not parse.",
		}),
		NotifyFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statwatch",
			Subsystem: "archive",
			Name:      "notify_failures_total",
			Help:      "Total number of notifier deliveries that failed, by sink.",
		}, []string{"sink"}),
	}
}
