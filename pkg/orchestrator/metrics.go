package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "manus",
		Name:      "sessions_active",
		Help:      "Number of live browser sessions.",
	})
	metricSessionsInitialized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "manus",
		Name:      "sessions_initialized_total",
		Help:      "Number of sessions successfully initialized.",
	})
	metricInitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "manus",
		Name:      "session_init_failures_total",
		Help:      "Number of initialize calls that failed to bring up an actuator.",
	})
	metricRunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "manus",
		Name:      "task_runs_started_total",
		Help:      "Number of task runs accepted for background execution.",
	})
	metricRunsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "manus",
		Name:      "task_runs_completed_total",
		Help:      "Number of task runs that finished with a result.",
	})
	metricRunsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "manus",
		Name:      "task_runs_failed_total",
		Help:      "Number of task runs that ended in failure, by cause.",
	}, []string{"cause"})
	metricRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "manus",
		Name:      "task_run_duration_seconds",
		Help:      "Wall-clock duration of task runs, suspension included.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
	})
	metricQuestionsAsked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "manus",
		Name:      "input_questions_asked_total",
		Help:      "Number of human-input requests surfaced by actuators.",
	})
	metricQuestionsAnswered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "manus",
		Name:      "input_questions_answered_total",
		Help:      "Number of human-input requests resolved by callers.",
	})
	metricEventsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "manus",
		Name:      "status_events_published_total",
		Help:      "Number of status events published to the push channel.",
	})
)

func recordRunFailure(cause string) {
	metricRunsFailed.WithLabelValues(cause).Inc()
}
