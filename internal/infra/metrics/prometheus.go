package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snowex_jobs_processed_total",
		Help: "Total number of pose-analysis jobs processed, by status",
	}, []string{"status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snowex_job_processing_duration_seconds",
		Help:    "Duration of pose pipeline stages",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesAnalyzedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snowex_frames_analyzed_total",
		Help: "Total number of frames run through pose detection",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snowex_active_workers",
		Help: "Number of currently active pipeline workers",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snowex_retry_total",
		Help: "Total number of job retries",
	}, []string{"attempt"})

	FrameRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snowex_frame_requests_total",
		Help: "Frame API requests, by outcome",
	}, []string{"outcome"})

	FrameRenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snowex_frame_render_duration_seconds",
		Help:    "Duration of frame render stages",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"stage"})

	HarnessConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "snowex_harness_connections",
		Help: "Currently connected harness websocket clients",
	})
)
