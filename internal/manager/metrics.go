package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "segmentd",
			Subsystem: "jobs",
			Name:      "finished_total",
			Help:      "Prediction jobs by terminal status",
		},
		[]string{"status"},
	)

	jobsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "segmentd",
			Subsystem: "jobs",
			Name:      "rejected_total",
			Help:      "Prediction jobs rejected at admission",
		},
		[]string{"reason"},
	)

	jobsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "segmentd",
			Subsystem: "jobs",
			Name:      "running",
			Help:      "Inference processes currently running",
		},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "segmentd",
			Subsystem: "jobs",
			Name:      "queue_depth",
			Help:      "Prediction jobs waiting for a worker",
		},
	)

	inferenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "segmentd",
			Subsystem: "jobs",
			Name:      "inference_duration_seconds",
			Help:      "Wall time of inference processes",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"task"},
	)

	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "segmentd",
			Subsystem: "uploads",
			Name:      "total",
			Help:      "Upload attempts by result",
		},
		[]string{"result"},
	)

	uploadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "segmentd",
			Subsystem: "uploads",
			Name:      "bytes_total",
			Help:      "Bytes staged by successful uploads",
		},
	)
)

func init() {
	prometheus.MustRegister(jobsTotal, jobsRejected, jobsRunning, queueDepth, inferenceDuration, uploadsTotal, uploadBytes)
}
