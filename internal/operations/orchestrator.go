package operations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"mktyield/internal/businessday"
	"mktyield/internal/dataprocessing"
	apperrors "mktyield/internal/errors"
	"mktyield/internal/exporter"
	"mktyield/internal/infrastructure"
	"mktyield/internal/sink"
	"mktyield/pkg/contracts/domain"
)

// SnapshotValidator checks the run-wide values before extraction
type SnapshotValidator interface {
	ValidateSnapshot(snap domain.Snapshot) error
}

// RunResult summarises one load run
type RunResult struct {
	RunID         string
	Location      string
	AsOfDate      time.Time
	PrevDate      time.Time
	State         RunState
	RowsCommitted int
	ByKind        map[domain.CurveKind]int
	Skipped       int
	Passes        []dataprocessing.PassStats
	ExportPath    string
	Duration      time.Duration
}

// Orchestrator runs one snapshot load: previous business day lookup,
// extraction into a single transaction, then commit or rollback
type Orchestrator struct {
	cfg       Config
	provider  sink.ConnProvider
	dialect   sink.Dialect
	lookup    businessday.Lookup
	source    dataprocessing.DocumentSource
	extractor *dataprocessing.Extractor

	validator SnapshotValidator
	exporter  *exporter.SnapshotExporter
	tracer    *RunTracer
	gatherer  prometheus.Gatherer
	observer  Observer
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures optional orchestrator collaborators
type Option func(*Orchestrator)

// WithValidator checks the snapshot before extraction
func WithValidator(v SnapshotValidator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// WithExporter writes committed snapshots to CSV
func WithExporter(e *exporter.SnapshotExporter) Option {
	return func(o *Orchestrator) { o.exporter = e }
}

// WithTracer records spans and metrics for each run
func WithTracer(t *RunTracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithGatherer sets the registry dumped to the metrics textfile
func WithGatherer(g prometheus.Gatherer) Option {
	return func(o *Orchestrator) { o.gatherer = g }
}

// WithObserver receives every state transition
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator wires the run collaborators
func NewOrchestrator(cfg Config, provider sink.ConnProvider, dialect sink.Dialect, lookup businessday.Lookup,
	source dataprocessing.DocumentSource, extractor *dataprocessing.Extractor, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		cfg:       cfg,
		provider:  provider,
		dialect:   dialect,
		lookup:    lookup,
		source:    source,
		extractor: extractor,
		logger:    infrastructure.WithComponent(logger, "orchestrator"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run carries the per-run mutable state
type run struct {
	o       *Orchestrator
	ctx     context.Context
	result  *RunResult
	entered time.Time
	span    trace.Span
}

// enter moves the run to next, closing the span of the current state
func (r *run) enter(next RunState, cause error) {
	now := r.o.now()
	prev := r.result.State

	if r.span != nil && r.o.tracer != nil {
		r.o.tracer.EndState(r.ctx, r.span, prev, now.Sub(r.entered), cause)
		r.span = nil
	}

	if prev != next {
		if !prev.CanTransition(next) {
			panic(fmt.Sprintf("invalid run transition %s -> %s", prev, next))
		}
		r.result.State = next
	}
	r.entered = now

	attrs := []any{slog.String("from", string(prev)), slog.String("to", string(next))}
	if cause != nil {
		attrs = append(attrs, slog.String("error", cause.Error()))
	}
	r.o.logger.InfoContext(r.ctx, "Run state changed", attrs...)

	if r.o.observer != nil {
		r.o.observer.OnTransition(Transition{RunID: r.result.RunID, From: prev, To: next, At: now, Err: cause})
	}

	if !next.IsTerminal() && r.o.tracer != nil {
		_, r.span = r.o.tracer.StartState(r.ctx, next)
	}
}

// fail rolls the run back and wraps cause with the state it happened in
func (r *run) fail(tx *sink.TxContext, cause error) error {
	failed := r.result.State
	if tx != nil {
		if err := tx.Close(); err != nil {
			infrastructure.WithError(r.o.logger, err).WarnContext(r.ctx, "Failed to release connection")
		}
	}
	r.enter(StateRolledBack, cause)
	return &RunError{State: failed, Cause: cause}
}

// Run loads the snapshot for location and businessDate. Every failure rolls
// back all staged rows; the returned result always carries the final state.
func (o *Orchestrator) Run(ctx context.Context, location, businessDate string) (result *RunResult, err error) {
	start := o.now()
	runID := infrastructure.GenerateTraceID()
	ctx = infrastructure.WithTraceID(ctx, runID)

	result = &RunResult{
		RunID:    runID,
		Location: location,
		State:    StateInitialized,
		ByKind:   make(map[domain.CurveKind]int),
	}

	var runSpan trace.Span
	if o.tracer != nil {
		ctx, runSpan = o.tracer.StartRun(ctx, runID, location, businessDate)
	}

	r := &run{o: o, ctx: ctx, result: result}
	r.enter(StateInitialized, nil)

	defer func() {
		result.Duration = o.now().Sub(start)
		if o.tracer != nil {
			o.tracer.FinishRun(ctx, runSpan, result, err)
		}
		o.logOutcome(ctx, result, err)
		o.writeMetrics(ctx)
	}()

	location = strings.TrimSpace(location)
	if location == "" {
		return result, r.fail(nil, apperrors.NewAppValidationError("location is required", nil))
	}

	asOf, perr := time.Parse(o.cfg.dateLayout(), strings.TrimSpace(businessDate))
	if perr != nil {
		return result, r.fail(nil, apperrors.NewAppValidationError(
			fmt.Sprintf("invalid business date %q", businessDate), perr))
	}
	result.AsOfDate = asOf

	tx, err := sink.Begin(ctx, o.provider, o.cfg.Table, o.dialect, o.logger)
	if err != nil {
		return result, r.fail(nil, err)
	}
	defer tx.Close()

	r.enter(StateResolvingPrevDate, nil)
	prev, err := o.lookup.PreviousBusinessDay(ctx, location, asOf)
	if err != nil {
		return result, r.fail(tx, err)
	}
	result.PrevDate = prev

	snap := domain.Snapshot{
		Location:        location,
		SystemLocation:  o.cfg.SystemLocation,
		Application:     o.cfg.Application,
		CurveType:       o.cfg.CurveType,
		CurveID:         o.cfg.CurveID,
		AsOfDate:        asOf,
		PrevDate:        prev,
		ImportTimestamp: o.now(),
	}
	if o.validator != nil {
		if err := o.validator.ValidateSnapshot(snap); err != nil {
			return result, r.fail(tx, apperrors.NewAppValidationError("invalid run snapshot", err))
		}
	}

	r.enter(StateExtracting, nil)
	doc, err := o.source.Load(ctx)
	if err != nil {
		return result, r.fail(tx, err)
	}

	passes, err := o.extractor.ExtractAll(ctx, doc, snap, tx)
	result.Passes = passes
	for _, p := range passes {
		result.Skipped += p.Skipped
		if o.tracer != nil {
			o.tracer.RecordStaged(ctx, location, p.Kind, p.Staged, p.Skipped)
		}
	}
	if err != nil {
		return result, r.fail(tx, err)
	}

	r.enter(StateLoading, nil)
	loaded, err := tx.Commit(ctx)
	if err != nil {
		return result, r.fail(tx, err)
	}

	result.RowsCommitted = loaded.Staged
	result.ByKind = loaded.ByKind
	r.enter(StateCommitted, nil)

	if o.exporter != nil {
		path, xerr := o.exporter.Export(location, asOf, tx.Staged())
		if xerr != nil {
			o.logger.WarnContext(ctx, "Snapshot export failed", slog.String("error", xerr.Error()))
		} else {
			result.ExportPath = path
		}
	}

	return result, nil
}

// Preview resolves the previous business day and extracts the document
// without touching the sink
func (o *Orchestrator) Preview(ctx context.Context, location, businessDate string) ([]domain.QuoteRecord, error) {
	asOf, err := time.Parse(o.cfg.dateLayout(), strings.TrimSpace(businessDate))
	if err != nil {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("invalid business date %q", businessDate), err)
	}

	prev, err := o.lookup.PreviousBusinessDay(ctx, location, asOf)
	if err != nil {
		return nil, err
	}

	doc, err := o.source.Load(ctx)
	if err != nil {
		return nil, err
	}

	return o.extractor.Extract(ctx, doc, domain.Snapshot{
		Location:        location,
		SystemLocation:  o.cfg.SystemLocation,
		Application:     o.cfg.Application,
		CurveType:       o.cfg.CurveType,
		CurveID:         o.cfg.CurveID,
		AsOfDate:        asOf,
		PrevDate:        prev,
		ImportTimestamp: o.now(),
	})
}

func (o *Orchestrator) logOutcome(ctx context.Context, result *RunResult, err error) {
	if err != nil {
		o.logger.ErrorContext(ctx, "Run rolled back",
			slog.String("location", result.Location),
			slog.String("error", err.Error()),
			slog.String("error_type", string(apperrors.TypeOf(err))),
			slog.Duration("duration", result.Duration))
		return
	}

	o.logger.InfoContext(ctx, "Run committed",
		slog.String("location", result.Location),
		slog.String("as_of_date", result.AsOfDate.Format(time.DateOnly)),
		slog.String("prev_date", result.PrevDate.Format(time.DateOnly)),
		slog.Int("rows", result.RowsCommitted),
		slog.Int("skipped", result.Skipped),
		slog.Duration("duration", result.Duration))
}

func (o *Orchestrator) writeMetrics(ctx context.Context) {
	if o.cfg.MetricsTextfile == "" {
		return
	}
	if err := infrastructure.WriteMetricsTextfile(o.cfg.MetricsTextfile, o.gatherer); err != nil {
		o.logger.WarnContext(ctx, "Failed to write metrics textfile", slog.String("error", err.Error()))
	}
}
