package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records engine activity. A nil *Metrics is a no-op.
type Metrics struct {
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	suspensions   *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// NewMetrics creates the engine collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blogwriter",
			Name:      "runs_started_total",
			Help:      "Runs started.",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blogwriter",
			Name:      "runs_completed_total",
			Help:      "Runs that reached the complete stage.",
		}),
		suspensions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blogwriter",
			Name:      "suspensions_total",
			Help:      "Suspensions handed to reviewers, by kind and phase.",
		}, []string{"kind", "phase"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blogwriter",
			Name:      "stage_failures_total",
			Help:      "Stage executions that aborted a call.",
		}, []string{"stage"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "blogwriter",
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent entering a stage.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"stage"}),
	}
	if reg != nil {
		reg.MustRegister(m.runsStarted, m.runsCompleted, m.suspensions, m.stageFailures, m.stageDuration)
	}
	return m
}

func (m *Metrics) runStarted() {
	if m != nil {
		m.runsStarted.Inc()
	}
}

func (m *Metrics) runCompleted() {
	if m != nil {
		m.runsCompleted.Inc()
	}
}

func (m *Metrics) suspended(s *Suspension) {
	if m != nil && s != nil {
		m.suspensions.WithLabelValues(string(s.Kind), string(s.Stage)).Inc()
	}
}

func (m *Metrics) stageFailed(stage Stage) {
	if m != nil {
		m.stageFailures.WithLabelValues(string(stage)).Inc()
	}
}

func (m *Metrics) observeStage(stage Stage, d time.Duration) {
	if m != nil {
		m.stageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
	}
}
