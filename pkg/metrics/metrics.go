package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Bus metrics
	EventsPublished  *prometheus.CounterVec
	ListenerOutcomes *prometheus.CounterVec
	ListenerErrors   *prometheus.CounterVec
	DispatchLatency  *prometheus.HistogramVec

	// Notification metrics
	NotificationsCreated *prometheus.CounterVec
	RenderFallbacks      *prometheus.CounterVec
	EmailDeliveries      *prometheus.CounterVec

	// Worker metrics
	TasksProcessed    *prometheus.CounterVec
	TasksDeadLettered *prometheus.CounterVec
	TaskRetries       *prometheus.CounterVec
	TaskQueueSize     prometheus.Gauge

	// Retention metrics
	SweepDeleted  *prometheus.CounterVec
	SweepDuration prometheus.Histogram

	// Queue metrics
	RedisOperations *prometheus.CounterVec
}

// New creates all metrics and registers them with reg. A nil reg uses the
// default prometheus registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events accepted by the bus",
		}, []string{"event_type"}),
		ListenerOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listener_outcomes_total",
			Help:      "Listener dispatch outcomes by listener and status",
		}, []string{"listener", "status"}),
		ListenerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listener_errors_total",
			Help:      "Listener failures reported to the error hook",
		}, []string{"listener", "event_type"}),
		DispatchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent dispatching one published event to all listeners",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"event_type"}),

		NotificationsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Notifications persisted by channel",
		}, []string{"channel"}),
		RenderFallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_fallbacks_total",
			Help:      "Notifications rendered with fallback content",
		}, []string{"channel", "reason"}),
		EmailDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_deliveries_total",
			Help:      "Email delivery attempts by status",
		}, []string{"status"}),

		TasksProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_processed_total",
			Help:      "Deferred listener tasks processed by status",
		}, []string{"listener", "status"}),
		TasksDeadLettered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_dead_lettered_total",
			Help:      "Deferred tasks moved to the dead-letter queue",
		}, []string{"listener"}),
		TaskRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_retry_attempts_total",
			Help:      "Retry attempts for deferred tasks",
		}, []string{"listener"}),
		TaskQueueSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "task_queue_size",
			Help:      "Tasks waiting in the queue at last poll",
		}),

		SweepDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_deleted_total",
			Help:      "Rows removed by the retention sweep",
		}, []string{"category"}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retention_sweep_duration_seconds",
			Help:      "Duration of retention sweeps",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),

		RedisOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redis_operations_total",
			Help:      "Total number of Redis operations",
		}, []string{"operation", "status"}),
	}
}

// NewForTest registers against a private registry.
func NewForTest() *Metrics {
	return New("test", prometheus.NewRegistry())
}

// Nop returns metrics registered nowhere that can be scraped. Constructors
// use it when no metrics are supplied.
func Nop() *Metrics {
	return New("", prometheus.NewRegistry())
}
