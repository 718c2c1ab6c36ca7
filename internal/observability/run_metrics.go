package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricTasksDispatchedTotal = "trakka.run.tasks.dispatched.total"
	metricTasksFailedTotal     = "trakka.run.tasks.failed.total"
	metricTasksPoisonedTotal   = "trakka.run.tasks.poisoned.total"
	metricQueueDepth           = "trakka.run.queue.depth"
	metricRunDuration          = "trakka.run.duration.seconds"

	attrTask = "task"
)

// RunMetrics holds OTel instruments for a single RunTracker invocation.
type RunMetrics struct {
	tasksDispatched metric.Int64Counter
	tasksFailed     metric.Int64Counter
	tasksPoisoned   metric.Int64Counter
	queueDepth      metric.Int64UpDownCounter
	runDuration     metric.Float64Histogram
}

// RunStats summarizes a completed run, decoupled from runner package types
// so observability stays free of a dependency on pkg/runner.
type RunStats struct {
	Duration        time.Duration
	TasksDispatched int64
	TasksFailed     int64
	TasksPoisoned   int64
}

// NewRunMetrics creates run metric instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RunMetrics{
		tasksDispatched: b.counter(metricTasksDispatchedTotal, "Total tasks dispatched", "{task}"),
		tasksFailed:     b.counter(metricTasksFailedTotal, "Total tasks that raised an error", "{task}"),
		tasksPoisoned:   b.counter(metricTasksPoisonedTotal, "Total tasks skipped due to a poisoned input path", "{task}"),
		queueDepth:      b.upDownCounter(metricQueueDepth, "Pending events in the runner queue", "{event}"),
		runDuration:     b.histogram(metricRunDuration, "Wall-clock duration of a RunTracker call in seconds", "s", durationBucketBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return rm, nil
}

// TaskDispatched records a task entering the running state.
// Safe to call on a nil receiver (no-op).
func (rm *RunMetrics) TaskDispatched(ctx context.Context, taskName string) {
	if rm == nil {
		return
	}

	rm.tasksDispatched.Add(ctx, 1, metric.WithAttributes(attribute.String(attrTask, taskName)))
}

// TaskFailed records a task whose Run returned an error.
func (rm *RunMetrics) TaskFailed(ctx context.Context, taskName string) {
	if rm == nil {
		return
	}

	rm.tasksFailed.Add(ctx, 1, metric.WithAttributes(attribute.String(attrTask, taskName)))
}

// TaskPoisoned records a task skipped because one of its input paths poisoned.
func (rm *RunMetrics) TaskPoisoned(ctx context.Context, taskName string) {
	if rm == nil {
		return
	}

	rm.tasksPoisoned.Add(ctx, 1, metric.WithAttributes(attribute.String(attrTask, taskName)))
}

// QueueDepthChanged adjusts the pending-event gauge by delta (positive on
// push, negative on drain).
func (rm *RunMetrics) QueueDepthChanged(ctx context.Context, delta int64) {
	if rm == nil {
		return
	}

	rm.queueDepth.Add(ctx, delta)
}

// RecordRun records the duration of a completed run. The task counts in
// stats are not recorded.
func (rm *RunMetrics) RecordRun(ctx context.Context, stats RunStats) {
	if rm == nil {
		return
	}

	rm.runDuration.Record(ctx, stats.Duration.Seconds())
}
