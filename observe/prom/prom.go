// Package prom exports scope and task transitions as Prometheus metrics.
package prom

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/NetPo4ki/go-fanout/scope"
)

// Observer implements scope.Observer on top of Prometheus collectors.
type Observer struct {
	scopesCreated   prometheus.Counter
	scopesCancelled prometheus.Counter
	joins           prometheus.Counter
	joinWait        prometheus.Histogram
	activeTasks     prometheus.Gauge
	tasksStarted    prometheus.Counter
	tasksFinished   *prometheus.CounterVec
	taskDuration    prometheus.Histogram
}

// New registers the collectors on reg (the default registerer when nil) and
// returns the observer.
func New(reg prometheus.Registerer) *Observer {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Observer{
		scopesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fanout", Subsystem: "scope", Name: "created_total",
			Help: "Scopes created.",
		}),
		scopesCancelled: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fanout", Subsystem: "scope", Name: "cancelled_total",
			Help: "Scopes cancelled before all children completed normally.",
		}),
		joins: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fanout", Subsystem: "scope", Name: "joins_total",
			Help: "Join calls on scopes.",
		}),
		joinWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fanout", Subsystem: "scope", Name: "join_wait_seconds",
			Help:    "Time spent blocked in scope joins.",
			Buckets: prometheus.DefBuckets,
		}),
		activeTasks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "fanout", Subsystem: "task", Name: "active",
			Help: "Tasks currently running.",
		}),
		tasksStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fanout", Subsystem: "task", Name: "started_total",
			Help: "Tasks started.",
		}),
		tasksFinished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fanout", Subsystem: "task", Name: "finished_total",
			Help: "Tasks finished, by terminal outcome.",
		}, []string{"outcome"}),
		taskDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fanout", Subsystem: "task", Name: "duration_seconds",
			Help:    "Task wall time from start to terminal state.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (o *Observer) ScopeCreated(_ context.Context) { o.scopesCreated.Inc() }

func (o *Observer) ScopeCancelled(_ context.Context, _ error) { o.scopesCancelled.Inc() }

func (o *Observer) ScopeJoined(_ context.Context, wait time.Duration) {
	o.joins.Inc()
	o.joinWait.Observe(wait.Seconds())
}

func (o *Observer) TaskStarted(_ context.Context, _ string) {
	o.activeTasks.Inc()
	o.tasksStarted.Inc()
}

func (o *Observer) TaskFinished(_ context.Context, _ string, dur time.Duration, kind scope.Kind, _ error) {
	o.activeTasks.Dec()
	o.tasksFinished.WithLabelValues(kind.String()).Inc()
	o.taskDuration.Observe(dur.Seconds())
}
