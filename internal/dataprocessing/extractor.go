package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	apperrors "mktyield/internal/errors"
	"mktyield/pkg/contracts/domain"
)

// RecordErrorPolicy decides what happens to a quote that cannot be turned into a valid record
type RecordErrorPolicy string

const (
	// PolicyAbort fails the pass, which rolls back the whole run
	PolicyAbort RecordErrorPolicy = "abort"
	// PolicySkip drops the quote with a warning and continues
	PolicySkip RecordErrorPolicy = "skip"
)

// Stager receives extracted records; the load batch implements it
type Stager interface {
	Stage(records ...domain.QuoteRecord)
}

// RecordValidator checks a record before it is staged
type RecordValidator interface {
	ValidateRecord(record domain.QuoteRecord) error
}

// ExtractOptions configures an Extractor
type ExtractOptions struct {
	DateLayout    string
	OnRecordError RecordErrorPolicy
}

// RecordError describes a quote that could not be turned into a record
type RecordError struct {
	Kind       domain.CurveKind
	CurveIndex int
	QuoteIndex int
	Label      string
	Field      string
	Value      string
	Err        error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s curve %d quote %d (term %q): invalid %s %q: %v",
		e.Kind, e.CurveIndex, e.QuoteIndex, e.Label, e.Field, e.Value, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// PassStats summarises one extraction pass
type PassStats struct {
	Kind           domain.CurveKind
	Curves         int
	ExcludedCurves int
	Staged         int
	Skipped        int
}

// Extractor turns curve elements into quote records
type Extractor struct {
	opts      ExtractOptions
	validator RecordValidator
	logger    *slog.Logger
}

// NewExtractor creates an extractor. A nil validator disables record validation.
func NewExtractor(opts ExtractOptions, validator RecordValidator, logger *slog.Logger) *Extractor {
	if opts.DateLayout == "" {
		opts.DateLayout = "2006-01-02"
	}
	if opts.OnRecordError == "" {
		opts.OnRecordError = PolicyAbort
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		opts:      opts,
		validator: validator,
		logger:    logger.With(slog.String("component", "extractor")),
	}
}

// ExtractAll runs every curve pass in order, staging into stager.
// It stops at the first pass that fails.
func (x *Extractor) ExtractAll(ctx context.Context, doc *Document, snap domain.Snapshot, stager Stager) ([]PassStats, error) {
	stats := make([]PassStats, 0, len(CurveSpecs))
	for _, spec := range CurveSpecs {
		s, err := x.ExtractKind(ctx, doc, spec, snap, stager)
		stats = append(stats, s)
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// Extract runs every pass and returns the records instead of staging them
func (x *Extractor) Extract(ctx context.Context, doc *Document, snap domain.Snapshot) ([]domain.QuoteRecord, error) {
	var c collector
	if _, err := x.ExtractAll(ctx, doc, snap, &c); err != nil {
		return nil, err
	}
	return c.records, nil
}

// ExtractKind runs a single pass for spec
func (x *Extractor) ExtractKind(ctx context.Context, doc *Document, spec CurveSpec, snap domain.Snapshot, stager Stager) (PassStats, error) {
	stats := PassStats{Kind: spec.Kind}

	curves := findAll(doc.Root(), spec.Element, nil)
	for ci, curve := range curves {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if spec.ExcludeUnder != "" && HasAncestor(curve, spec.ExcludeUnder) {
			stats.ExcludedCurves++
			x.logger.InfoContext(ctx, "Skipping nested curve",
				slog.String("curve", spec.Element),
				slog.String("ancestor", spec.ExcludeUnder),
				slog.Int("curve_index", ci))
			continue
		}
		stats.Curves++

		ccy := attr(curve, spec.CurrencyAttr)
		index := attr(curve, spec.IndexAttr)

		x.logger.InfoContext(ctx, "Processing curve",
			slog.String("curve", spec.Element),
			slog.String("ccy", ccy),
			slog.String(spec.IndexAttr, index))

		for qi, quote := range descendants(curve, spec.QuoteElement) {
			rec, err := x.buildRecord(spec, snap, quote, ccy, index, ci, qi)
			if err == nil && x.validator != nil {
				if verr := x.validator.ValidateRecord(rec); verr != nil {
					err = apperrors.NewAppValidationError("invalid quote record", &RecordError{
						Kind: spec.Kind, CurveIndex: ci, QuoteIndex: qi,
						Label: rec.Term, Field: "record", Err: verr,
					})
				}
			}

			if err != nil {
				if x.opts.OnRecordError == PolicySkip {
					stats.Skipped++
					x.logger.WarnContext(ctx, "Skipping invalid quote",
						slog.String("curve", spec.Element),
						slog.Int("curve_index", ci),
						slog.Int("quote_index", qi),
						slog.String("error", err.Error()))
					continue
				}
				return stats, err
			}

			x.logger.DebugContext(ctx, "Staging quote",
				slog.String("curve", spec.Element),
				slog.String("term", rec.Term),
				slog.String("mkttype", string(rec.MarketType)),
				slog.String("rate", rec.Rate.String()),
				slog.String("spread", rec.Spread.String()))

			stager.Stage(rec)
			stats.Staged++
		}
	}

	x.logger.InfoContext(ctx, "Curve pass complete",
		slog.String("kind", string(spec.Kind)),
		slog.Int("curves", stats.Curves),
		slog.Int("excluded_curves", stats.ExcludedCurves),
		slog.Int("staged", stats.Staged),
		slog.Int("skipped", stats.Skipped))

	return stats, nil
}

func (x *Extractor) buildRecord(spec CurveSpec, snap domain.Snapshot, quote *etree.Element, ccy, index string, ci, qi int) (domain.QuoteRecord, error) {
	rec := snap.NewQuoteRecord(spec.Kind)
	rec.Commodity1 = ccy
	rec.Commodity2 = index

	for _, key := range spec.LabelAttrs {
		if v := attr(quote, key); v != "" {
			rec.Term = v
			break
		}
	}

	if rec.Term == "" && spec.DateRangeFallback {
		rec.Term = attr(quote, "startDate")
		if end := strings.TrimSpace(attr(quote, "endDate")); end != "" {
			toDate, err := time.Parse(x.opts.DateLayout, end)
			if err != nil {
				return rec, apperrors.NewParsingError("invalid quote date", &RecordError{
					Kind: spec.Kind, CurveIndex: ci, QuoteIndex: qi,
					Label: rec.Term, Field: "endDate", Value: end, Err: err,
				})
			}
			rec.ToDate = &toDate
		}
	}

	rec.MarketType = Classify(rec.Term)

	field := spec.ValueAttr
	var raw string
	if field == "" {
		field = "text"
		raw = textContent(quote)
	} else {
		raw = attr(quote, field)
	}

	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return rec, apperrors.NewParsingError("invalid quote value", &RecordError{
			Kind: spec.Kind, CurveIndex: ci, QuoteIndex: qi,
			Label: rec.Term, Field: field, Value: raw, Err: err,
		})
	}

	if spec.Spread {
		rec.Spread = value
	} else {
		rec.Rate = value
	}

	return rec, nil
}

// collector is a Stager that keeps records in memory
type collector struct {
	records []domain.QuoteRecord
}

func (c *collector) Stage(records ...domain.QuoteRecord) {
	c.records = append(c.records, records...)
}
