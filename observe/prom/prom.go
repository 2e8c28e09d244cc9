// Package prom provides a Prometheus-backed implementation of the
// task.Observer interface. Executions are labelled by task name; unnamed
// tasks share the empty label.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer exports execution lifecycle counts and durations as Prometheus
// collectors. It implements task.Observer.
type Observer struct {
	started   *prometheus.CounterVec
	settled   *prometheus.CounterVec
	errored   *prometheus.CounterVec
	abandoned *prometheus.CounterVec
	cancelled *prometheus.CounterVec
	running   *prometheus.GaugeVec
	duration  *prometheus.HistogramVec
}

// New creates an Observer and registers its collectors with reg. Pass
// prometheus.DefaultRegisterer for the global registry.
func New(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "task",
			Name:      "executions_started_total",
			Help:      "Executions whose executor was invoked.",
		}, []string{"task"}),
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "task",
			Name:      "executions_settled_total",
			Help:      "Executions that fulfilled or rejected.",
		}, []string{"task"}),
		errored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "task",
			Name:      "executions_errored_total",
			Help:      "Executions that rejected.",
		}, []string{"task"}),
		abandoned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "task",
			Name:      "executions_abandoned_total",
			Help:      "Cancelled executions left permanently unsettled.",
		}, []string{"task"}),
		cancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "task",
			Name:      "tasks_cancelled_total",
			Help:      "Tasks whose root scope was aborted via Cancel.",
		}, []string{"task"}),
		running: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "task",
			Name:      "executions_running",
			Help:      "Executions currently running.",
		}, []string{"task"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "task",
			Name:      "execution_duration_seconds",
			Help:      "Wall-clock time from executor invocation to settlement.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"task"}),
	}
	for _, c := range []prometheus.Collector{
		o.started, o.settled, o.errored, o.abandoned, o.cancelled, o.running, o.duration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// MustNew is New, panicking on registration failure.
func MustNew(reg prometheus.Registerer) *Observer {
	o, err := New(reg)
	if err != nil {
		panic(err)
	}
	return o
}

// ExecutionStarted records an executor invocation.
func (o *Observer) ExecutionStarted(name string) {
	o.started.WithLabelValues(name).Inc()
	o.running.WithLabelValues(name).Inc()
}

// ExecutionSettled records a settlement and its duration.
func (o *Observer) ExecutionSettled(name string, d time.Duration, err error) {
	o.running.WithLabelValues(name).Dec()
	o.settled.WithLabelValues(name).Inc()
	if err != nil {
		o.errored.WithLabelValues(name).Inc()
	}
	o.duration.WithLabelValues(name).Observe(d.Seconds())
}

// ExecutionAbandoned records a cancelled execution that will never settle.
func (o *Observer) ExecutionAbandoned(name string) {
	o.running.WithLabelValues(name).Dec()
	o.abandoned.WithLabelValues(name).Inc()
}

// TaskCancelled records a Task cancellation.
func (o *Observer) TaskCancelled(name string) {
	o.cancelled.WithLabelValues(name).Inc()
}
