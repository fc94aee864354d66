// Package otel exports scope and task transitions through OpenTelemetry
// metrics and span events.
package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/NetPo4ki/go-fanout/scope"
)

const instrumentationName = "github.com/NetPo4ki/go-fanout/observe/otel"

// Observer implements scope.Observer on OpenTelemetry instruments. When a
// span is present on the context, task transitions are also attached to it
// as events.
type Observer struct {
	scopesCreated   metric.Int64Counter
	scopesCancelled metric.Int64Counter
	joinWait        metric.Float64Histogram
	tasksStarted    metric.Int64Counter
	tasksFinished   metric.Int64Counter
	taskDuration    metric.Float64Histogram
}

// New builds the instruments on mp, falling back to the global meter
// provider when nil.
func New(mp metric.MeterProvider) (*Observer, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m := mp.Meter(instrumentationName)

	o := &Observer{}
	var err error
	if o.scopesCreated, err = m.Int64Counter("fanout.scopes.created",
		metric.WithDescription("Scopes created.")); err != nil {
		return nil, err
	}
	if o.scopesCancelled, err = m.Int64Counter("fanout.scopes.cancelled",
		metric.WithDescription("Scopes cancelled before all children completed normally.")); err != nil {
		return nil, err
	}
	if o.joinWait, err = m.Float64Histogram("fanout.scope.join_wait",
		metric.WithDescription("Time spent blocked in scope joins."),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if o.tasksStarted, err = m.Int64Counter("fanout.tasks.started",
		metric.WithDescription("Tasks started.")); err != nil {
		return nil, err
	}
	if o.tasksFinished, err = m.Int64Counter("fanout.tasks.finished",
		metric.WithDescription("Tasks finished, by terminal outcome.")); err != nil {
		return nil, err
	}
	if o.taskDuration, err = m.Float64Histogram("fanout.task.duration",
		metric.WithDescription("Task wall time from start to terminal state."),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Observer) ScopeCreated(ctx context.Context) {
	o.scopesCreated.Add(ctx, 1)
}

func (o *Observer) ScopeCancelled(ctx context.Context, cause error) {
	o.scopesCancelled.Add(ctx, 1)
	span := trace.SpanFromContext(ctx)
	if cause != nil {
		span.AddEvent("scope cancelled", trace.WithAttributes(attribute.String("cause", cause.Error())))
	} else {
		span.AddEvent("scope cancelled")
	}
}

func (o *Observer) ScopeJoined(ctx context.Context, wait time.Duration) {
	o.joinWait.Record(ctx, wait.Seconds())
}

func (o *Observer) TaskStarted(ctx context.Context, name string) {
	o.tasksStarted.Add(ctx, 1)
	trace.SpanFromContext(ctx).AddEvent("task started",
		trace.WithAttributes(attribute.String("task", name)))
}

func (o *Observer) TaskFinished(ctx context.Context, name string, dur time.Duration, kind scope.Kind, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("task", name),
		attribute.String("outcome", kind.String()),
	}
	o.tasksFinished.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", kind.String())))
	o.taskDuration.Record(ctx, dur.Seconds(), metric.WithAttributes(attribute.String("outcome", kind.String())))
	if err != nil {
		attrs = append(attrs, attribute.String("error", err.Error()))
	}
	trace.SpanFromContext(ctx).AddEvent("task finished", trace.WithAttributes(attrs...))
}
