package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	apperrors "mktyield/internal/errors"
	"mktyield/internal/infrastructure"
	"mktyield/pkg/contracts/domain"
)

const (
	TracerName = "mktyield.operations"
)

// RunTracer provides OpenTelemetry instrumentation for load runs
type RunTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.RunMetrics
}

// NewRunTracer creates a tracer using meter for run metrics. A nil meter
// uses the global meter provider.
func NewRunTracer(meter metric.Meter) (*RunTracer, error) {
	if meter == nil {
		meter = otel.Meter(infrastructure.MeterName)
	}

	metrics, err := infrastructure.CreateRunMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create run metrics: %w", err)
	}

	return &RunTracer{
		tracer:  otel.Tracer(TracerName),
		metrics: metrics,
	}, nil
}

// StartRun creates the span covering a whole run
func (rt *RunTracer) StartRun(ctx context.Context, runID, location, businessDate string) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "yieldload.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.location", location),
			attribute.String("run.business_date", businessDate),
		),
	)
}

// StartState creates a child span for one run state
func (rt *RunTracer) StartState(ctx context.Context, state RunState) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "yieldload.state."+string(state),
		trace.WithAttributes(attribute.String("run.state", string(state))),
	)
}

// EndState records the time spent in state and ends its span
func (rt *RunTracer) EndState(ctx context.Context, span trace.Span, state RunState, elapsed time.Duration, err error) {
	rt.metrics.StateDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("state", string(state))))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// RecordStaged counts rows staged by curve kind and skipped records, and
// notes the pass on the run span carried by ctx
func (rt *RunTracer) RecordStaged(ctx context.Context, location string, kind domain.CurveKind, staged, skipped int) {
	attrs := metric.WithAttributes(
		attribute.String("location", location),
		attribute.String("kind", string(kind)),
	)
	rt.metrics.RowsStaged.Add(ctx, int64(staged), attrs)
	if skipped > 0 {
		rt.metrics.RecordsSkipped.Add(ctx, int64(skipped), attrs)
	}

	infrastructure.AddSpanEvent(ctx, "pass.staged", map[string]interface{}{
		"kind":    string(kind),
		"staged":  staged,
		"skipped": skipped,
	})
}

// FinishRun records the run outcome and ends the run span. ctx must carry
// the span returned by StartRun.
func (rt *RunTracer) FinishRun(ctx context.Context, span trace.Span, result *RunResult, err error) {
	state := attribute.String("state", string(result.State))
	location := attribute.String("location", result.Location)

	rt.metrics.RunsTotal.Add(ctx, 1, metric.WithAttributes(state, location))
	rt.metrics.RunDuration.Record(ctx, result.Duration.Seconds(), metric.WithAttributes(state, location))

	span.SetAttributes(
		attribute.String("run.final_state", string(result.State)),
		attribute.Int("run.rows_committed", result.RowsCommitted),
	)

	if err != nil {
		failed, _ := FailedState(err)
		rt.metrics.RunErrors.Add(ctx, 1, metric.WithAttributes(
			location,
			attribute.String("failed_state", string(failed)),
			attribute.String("error_type", string(apperrors.TypeOf(err))),
		))
		infrastructure.RecordError(ctx, err)
	} else {
		rt.metrics.RowsCommitted.Add(ctx, int64(result.RowsCommitted), metric.WithAttributes(location))
		span.SetStatus(codes.Ok, "committed")
	}

	span.End()
}
