package runtime

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "lambdaloop"
	metricsSubsystem = "runtime"
)

// loopMetrics holds the Prometheus collectors for the event loop. A nil
// *loopMetrics is a valid no-op receiver so the loop code never has to
// check whether metrics are enabled.
type loopMetrics struct {
	polls              *prometheus.CounterVec
	invocations        *prometheus.CounterVec
	invocationDuration prometheus.Histogram
	errorReports       prometheus.Counter
}

func newLoopMetrics(reg prometheus.Registerer) *loopMetrics {
	m := &loopMetrics{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "polls_total",
			Help:      "Polls against the control endpoint, partitioned by outcome.",
		}, []string{"outcome"}),
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "invocations_total",
			Help:      "Completed function invocations, partitioned by outcome.",
		}, []string{"outcome"}),
		invocationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "invocation_duration_seconds",
			Help:      "Duration of function invocations in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
		errorReports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "error_reports_total",
			Help:      "Error reports delivered to the control endpoint.",
		}),
	}
	reg.MustRegister(m.polls, m.invocations, m.invocationDuration, m.errorReports)
	return m
}

func (m *loopMetrics) pollOutcome(outcome string) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(outcome).Inc()
}

func (m *loopMetrics) invocation(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(outcome).Inc()
	m.invocationDuration.Observe(elapsed.Seconds())
}

func (m *loopMetrics) errorReport() {
	if m == nil {
		return
	}
	m.errorReports.Inc()
}
