package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path", "status"},
	)

	CompressionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compressions_total",
			Help: "Total number of target-size compressions",
		},
		[]string{"format", "target_met"},
	)

	CompressionAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compression_encode_attempts",
			Help:    "Encode attempts used per target-size search",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 20},
		},
		[]string{"format"},
	)

	CompressionInputBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "compression_input_bytes",
			Help:    "Size of compression inputs in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	CompressionOutputBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "compression_output_bytes",
			Help:    "Size of compression outputs in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	UpscaleGuardTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upscale_guard_total",
			Help: "How often the post-compression upscale guard fired",
		},
		[]string{"upscaled"},
	)

	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_cache_operations_total",
			Help: "Result cache operations",
		},
		[]string{"operation", "outcome"},
	)
)

// ObserveCompression records one completed target-size search.
func ObserveCompression(format string, inputBytes, outputBytes int64, attempts int, targetMet bool) {
	met := "false"
	if targetMet {
		met = "true"
	}
	CompressionsTotal.WithLabelValues(format, met).Inc()
	CompressionAttempts.WithLabelValues(format).Observe(float64(attempts))
	CompressionInputBytes.Observe(float64(inputBytes))
	CompressionOutputBytes.Observe(float64(outputBytes))
}

// ObserveUpscaleGuard records an upscale guard pass.
func ObserveUpscaleGuard(upscaled bool) {
	v := "false"
	if upscaled {
		v = "true"
	}
	UpscaleGuardTotal.WithLabelValues(v).Inc()
}
