package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Queue related metrics
	QueueOperations     *prometheus.CounterVec
	QueueTransitions    *prometheus.CounterVec
	QueueOperationTime  *prometheus.HistogramVec
	LaneDepth           *prometheus.GaugeVec
	TriageAssessments   *prometheus.CounterVec
	BrokerPublishErrors prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		QueueOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_operations_total",
			Help:      "Total number of queue operations by kind and outcome",
		}, []string{"operation", "status"}),
		QueueTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_transitions_total",
			Help:      "Total number of queue status transitions",
		}, []string{"to_status"}),
		QueueOperationTime: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_operation_duration_seconds",
			Help:      "Duration of queue operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		LaneDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_lane_depth",
			Help:      "Current number of waiting entries per department",
		}, []string{"department"}),
		TriageAssessments: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "triage_assessments_total",
			Help:      "Total number of triage assessments by category",
		}, []string{"category"}),
		BrokerPublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "broker_publish_errors_total",
			Help:      "Total number of failed lane-change publishes",
		}),
	}
}
