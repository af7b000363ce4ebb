// Package metrics holds the Prometheus collectors of the API server and the worker.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Job outcomes.
const (
	OutcomeDone    = "done"
	OutcomeRetried = "retried"
	OutcomeFailed  = "failed"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filemanager_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filemanager_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "filemanager_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filemanager_uploads_total",
			Help: "Total number of stored uploads by kind",
		},
		[]string{"kind"},
	)

	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filemanager_jobs_total",
			Help: "Total number of processed jobs by queue and outcome",
		},
		[]string{"queue", "outcome"},
	)

	jobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filemanager_job_duration_seconds",
			Help:    "Job processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"queue"},
	)

	thumbnailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filemanager_thumbnails_generated_total",
			Help: "Total number of thumbnails written by width",
		},
		[]string{"width"},
	)

	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "filemanager_queue_depth",
			Help: "Number of jobs in each list of a queue",
		},
		[]string{"queue", "list"},
	)
)

// Middleware records request counts and latencies labelled with the route pattern.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			if err := next(c); err != nil {
				// Let echo render the error so the final status is known.
				c.Error(err)
			}

			// Route pattern keeps label cardinality bounded.
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			status := strconv.Itoa(c.Response().Status)

			httpRequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// RecordUpload counts a stored upload.
func RecordUpload(kind string) {
	uploadsTotal.WithLabelValues(kind).Inc()
}

// RecordJob counts a processed job and observes how long it took.
func RecordJob(queue, outcome string, took time.Duration) {
	jobsTotal.WithLabelValues(queue, outcome).Inc()
	jobDuration.WithLabelValues(queue).Observe(took.Seconds())
}

// RecordThumbnail counts a written thumbnail.
func RecordThumbnail(width int) {
	thumbnailsTotal.WithLabelValues(strconv.Itoa(width)).Inc()
}

// SetQueueDepth publishes the list lengths of a queue.
func SetQueueDepth(queue string, pending, processing, failed int64) {
	queueDepth.WithLabelValues(queue, "pending").Set(float64(pending))
	queueDepth.WithLabelValues(queue, "processing").Set(float64(processing))
	queueDepth.WithLabelValues(queue, "failed").Set(float64(failed))
}
