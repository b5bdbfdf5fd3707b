package dataprocessing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mktyield/internal/errors"
	"mktyield/internal/shared/testutil"
	"mktyield/internal/validation"
	"mktyield/pkg/contracts/domain"
)

func testSnapshot() domain.Snapshot {
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	return domain.Snapshot{
		Location:        "LDN",
		SystemLocation:  "PARIS",
		Application:     "SUMMIT",
		CurveType:       "YCURVE",
		CurveID:         "MSSEOD",
		AsOfDate:        asOf,
		PrevDate:        asOf.AddDate(0, 0, -1),
		ImportTimestamp: asOf.Add(19 * time.Hour),
	}
}

func mustParse(t *testing.T, content string) *Document {
	t.Helper()
	doc, err := ParseDocument(strings.NewReader(content), t.Name())
	require.NoError(t, err)
	return doc
}

func newTestExtractor(t *testing.T, policy RecordErrorPolicy) (*Extractor, *testutil.BufferedSlogHandler) {
	logger, handler := testutil.NewTestLogger(t)
	return NewExtractor(ExtractOptions{OnRecordError: policy}, validation.NewRecordValidator(), logger), handler
}

type row struct {
	kind   domain.CurveKind
	mt     domain.MarketType
	term   string
	rate   string
	spread string
	ccy    string
	index  string
}

func toRows(records []domain.QuoteRecord) []row {
	out := make([]row, 0, len(records))
	for _, r := range records {
		out = append(out, row{r.Kind, r.MarketType, r.Term, r.Rate.String(), r.Spread.String(), r.Commodity1, r.Commodity2})
	}
	return out
}

func TestExtractor_FullDocument(t *testing.T) {
	x, handler := newTestExtractor(t, PolicyAbort)
	doc := mustParse(t, testutil.FullCurvesDocument)

	records, err := x.Extract(context.Background(), doc, testSnapshot())
	require.NoError(t, err)
	require.Len(t, records, testutil.FullCurvesRowCount)

	want := []row{
		{domain.CurveKindMoneyMarket, "AIC", "ON", "3.9", "0", "EUR", "ESTR"},
		{domain.CurveKindMoneyMarket, "MM", "3M", "3.95", "0", "EUR", "ESTR"},
		{domain.CurveKindMoneyMarket, "AIC", "2024-03-15", "3.97", "0", "EUR", "ESTR"},
		{domain.CurveKindSwap, "AIC", "5Y", "2.35", "0", "EUR", "EURIBOR"},
		{domain.CurveKindSwap, "MM", "18M", "2.8", "0", "EUR", "EURIBOR"},
		{domain.CurveKindInflationSwap, "AIC", "10Y", "2.1", "0", "EUR", "HICPXT"},
		{domain.CurveKindInflationSwap, "MM", "0Y", "2.5", "0", "EUR", "HICPXT"},
		{domain.CurveKindSpread, "FUT", "EDZ24", "0", "0.15", "USD", "SOFR"},
		{domain.CurveKindSpread, "MM", "2W", "0", "0.05", "USD", "SOFR"},
	}
	assert.Equal(t, want, toRows(records))

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "Skipping nested curve")
	testutil.AssertNoErrors(t, handler)
}

func TestExtractor_SnapshotFieldsStamped(t *testing.T) {
	x, _ := newTestExtractor(t, PolicyAbort)
	snap := testSnapshot()

	records, err := x.Extract(context.Background(), mustParse(t, testutil.SingleSwapDocument), snap)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "LDN", r.Location)
	assert.Equal(t, "PARIS", r.SystemLocation)
	assert.Equal(t, "SUMMIT", r.Application)
	assert.Equal(t, "YCURVE", r.CurveType)
	assert.Equal(t, "MSSEOD", r.CurveID)
	assert.Equal(t, snap.AsOfDate, r.AsOfDate)
	assert.Equal(t, snap.PrevDate, r.PrevDate)
	assert.Equal(t, snap.ImportTimestamp, r.ImportTimestamp)
	assert.Equal(t, domain.MarketTypeOther, r.MarketType)
	assert.Equal(t, "5Y", r.Term)
	assert.True(t, r.Rate.Equal(decimal.RequireFromString("2.35")))
	assert.True(t, r.Spread.IsZero())
	assert.Equal(t, "EUR", r.Commodity1)
	assert.Equal(t, "EURIBOR", r.Commodity2)
	assert.Nil(t, r.ToDate)
}

func TestExtractor_MoneyMarketDateFallback(t *testing.T) {
	x, _ := newTestExtractor(t, PolicyAbort)
	doc := mustParse(t, `<Curves>
  <MoneyMarketQuotes ccy="GBP" rateFixingindex="SONIA">
    <Quote startDate="2024-03-15" endDate="2024-06-17" midRate="5.2"/>
  </MoneyMarketQuotes>
</Curves>`)

	records, err := x.Extract(context.Background(), doc, testSnapshot())
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "2024-03-15", r.Term)
	require.NotNil(t, r.ToDate)
	assert.Equal(t, time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC), *r.ToDate)
	assert.Equal(t, domain.MarketTypeOther, r.MarketType)
}

func TestExtractor_NestedCurvesExcluded(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind domain.CurveKind
	}{
		{
			name: "money market directly under swap curve",
			doc:  `<R><SwapCurve><MoneyMarketQuotes ccy="EUR"><Quote tenor="1M" midRate="1"/></MoneyMarketQuotes></SwapCurve></R>`,
			kind: domain.CurveKindMoneyMarket,
		},
		{
			name: "money market deep under swap curve",
			doc:  `<R><SwapCurve><A><B><MoneyMarketQuotes ccy="EUR"><Quote tenor="1M" midRate="1"/></MoneyMarketQuotes></B></A></SwapCurve></R>`,
			kind: domain.CurveKindMoneyMarket,
		},
		{
			name: "swap rates under swap curve",
			doc:  `<R><SwapCurve><SwapRates ccy="EUR"><Quote term="2Y" midRate="1"/></SwapRates></SwapCurve></R>`,
			kind: domain.CurveKindSwap,
		},
		{
			name: "inflation swap under inflation curve",
			doc:  `<R><InflationCurve><X><InflationSwap ccy="EUR"><Element maturity="2Y">1</Element></InflationSwap></X></InflationCurve></R>`,
			kind: domain.CurveKindInflationSwap,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, _ := newTestExtractor(t, PolicyAbort)
			spec, ok := SpecFor(tt.kind)
			require.True(t, ok)

			var c collector
			stats, err := x.ExtractKind(context.Background(), mustParse(t, tt.doc), spec, testSnapshot(), &c)
			require.NoError(t, err)
			assert.Empty(t, c.records)
			assert.Equal(t, 1, stats.ExcludedCurves)
			assert.Equal(t, 0, stats.Curves)
		})
	}
}

func TestExtractor_SpreadCurveNotExcluded(t *testing.T) {
	x, _ := newTestExtractor(t, PolicyAbort)
	doc := mustParse(t, `<R><SwapCurve><SpreadCurve ccy="USD" rateFixingIndex="SOFR"><Quote term="3M" midRate="0.1"/></SpreadCurve></SwapCurve></R>`)

	records, err := x.Extract(context.Background(), doc, testSnapshot())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.CurveKindSpread, records[0].Kind)
}

func TestExtractor_RootElementIsCurve(t *testing.T) {
	x, _ := newTestExtractor(t, PolicyAbort)
	doc := mustParse(t, `<SwapRates ccy="EUR" rateFixingIndex="EURIBOR"><Quote term="7Y" midRate="2.4"/></SwapRates>`)

	records, err := x.Extract(context.Background(), doc, testSnapshot())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "7Y", records[0].Term)
}

func TestExtractor_EmptyDocument(t *testing.T) {
	x, _ := newTestExtractor(t, PolicyAbort)

	var c collector
	stats, err := x.ExtractAll(context.Background(), mustParse(t, testutil.EmptyCurvesDocument), testSnapshot(), &c)
	require.NoError(t, err)
	assert.Empty(t, c.records)
	require.Len(t, stats, 4)
	for i, s := range stats {
		assert.Equal(t, domain.CurveKinds[i], s.Kind)
		assert.Zero(t, s.Staged)
	}
}

func TestExtractor_RecordErrors(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantType  apperrors.ErrorType
		wantField string
	}{
		{
			name:      "non-numeric rate",
			doc:       `<R><SwapRates ccy="EUR"><Quote term="2Y" midRate="abc"/></SwapRates></R>`,
			wantType:  apperrors.ErrTypeParsing,
			wantField: "midRate",
		},
		{
			name:      "missing rate",
			doc:       `<R><SwapRates ccy="EUR"><Quote term="2Y"/></SwapRates></R>`,
			wantType:  apperrors.ErrTypeParsing,
			wantField: "midRate",
		},
		{
			name:      "non-numeric inflation text",
			doc:       `<R><InflationSwap ccy="EUR"><Element maturity="2Y">n/a</Element></InflationSwap></R>`,
			wantType:  apperrors.ErrTypeParsing,
			wantField: "text",
		},
		{
			name:      "bad end date",
			doc:       `<R><MoneyMarketQuotes ccy="EUR"><Quote startDate="2024-03-15" endDate="17/06/2024" midRate="1"/></MoneyMarketQuotes></R>`,
			wantType:  apperrors.ErrTypeParsing,
			wantField: "endDate",
		},
		{
			name:      "empty term after fallback",
			doc:       `<R><MoneyMarketQuotes ccy="EUR"><Quote midRate="1"/></MoneyMarketQuotes></R>`,
			wantType:  apperrors.ErrTypeValidation,
			wantField: "record",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, _ := newTestExtractor(t, PolicyAbort)

			_, err := x.Extract(context.Background(), mustParse(t, tt.doc), testSnapshot())
			require.Error(t, err)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))

			var recErr *RecordError
			require.True(t, errors.As(err, &recErr))
			assert.Equal(t, tt.wantField, recErr.Field)
		})
	}
}

func TestExtractor_SkipPolicy(t *testing.T) {
	x, handler := newTestExtractor(t, PolicySkip)
	doc := mustParse(t, `<R>
  <SwapRates ccy="EUR" rateFixingIndex="EURIBOR">
    <Quote term="2Y" midRate="2.7"/>
    <Quote term="3Y" midRate="oops"/>
    <Quote term="4Y" midRate="2.9"/>
  </SwapRates>
</R>`)
	spec, _ := SpecFor(domain.CurveKindSwap)

	var c collector
	stats, err := x.ExtractKind(context.Background(), doc, spec, testSnapshot(), &c)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Staged)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, []string{"2Y", "4Y"}, []string{c.records[0].Term, c.records[1].Term})
	testutil.AssertLogContains(t, handler, slog.LevelWarn, "Skipping invalid quote")
}

func TestExtractor_AbortStopsAtFailingPass(t *testing.T) {
	x, _ := newTestExtractor(t, PolicyAbort)

	var c collector
	stats, err := x.ExtractAll(context.Background(), mustParse(t, testutil.BadSpreadDocument), testSnapshot(), &c)
	require.Error(t, err)
	require.Len(t, stats, 4)
	assert.Equal(t, domain.CurveKindSpread, stats[3].Kind)
	assert.Len(t, c.records, 3, "earlier passes staged before the failure")
}

func TestExtractor_ContextCancelled(t *testing.T) {
	x, _ := newTestExtractor(t, PolicyAbort)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := x.Extract(ctx, mustParse(t, testutil.SingleSwapDocument), testSnapshot())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCurveSpecs_Order(t *testing.T) {
	require.Len(t, CurveSpecs, len(domain.CurveKinds))
	for i, s := range CurveSpecs {
		assert.Equal(t, domain.CurveKinds[i], s.Kind)
	}

	_, ok := SpecFor("unknown")
	assert.False(t, ok)
}
