package metrics

import "github.com/prometheus/client_golang/prometheus"

// Detection Prometheus metrics.
var (
	DetectionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "toolscout",
			Name:      "detection_requests_total",
			Help:      "Total number of detector backend invocations",
		},
		[]string{"backend", "status"},
	)

	DetectionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "toolscout",
			Name:      "detection_duration_seconds",
			Help:      "Detector backend invocation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"backend"},
	)

	DetectionTagsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "toolscout",
			Name:      "detection_tags_total",
			Help:      "Total observations emitted by detector backends",
		},
		[]string{"backend"},
	)

	BackupUploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "toolscout",
			Name:      "backup_uploads_total",
			Help:      "Total remote backup uploads",
		},
		[]string{"status"},
	)
)

var detectionMetricsRegistered bool

// RegisterDetectionMetrics registers detection metrics. Must be called once from main.
func RegisterDetectionMetrics() {
	if detectionMetricsRegistered {
		return
	}
	prometheus.MustRegister(DetectionRequestsTotal)
	prometheus.MustRegister(DetectionDuration)
	prometheus.MustRegister(DetectionTagsTotal)
	prometheus.MustRegister(BackupUploadsTotal)
	detectionMetricsRegistered = true
}
