package operations

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mktyield/internal/businessday"
	"mktyield/internal/dataprocessing"
	apperrors "mktyield/internal/errors"
	"mktyield/internal/exporter"
	"mktyield/internal/infrastructure"
	"mktyield/internal/shared/testutil"
	"mktyield/internal/sink"
	"mktyield/internal/validation"
	"mktyield/pkg/contracts/domain"
)

const testTable = "mkt_yeild_pc"

var testConfig = Config{
	SystemLocation: "PARIS",
	Application:    "SUMMIT",
	CurveType:      "YCURVE",
	CurveID:        "MSSEOD",
	Table:          testTable,
}

type harness struct {
	db          *sql.DB
	transitions []Transition
	logs        *testutil.BufferedSlogHandler
}

func (h *harness) states() []RunState {
	out := make([]RunState, 0, len(h.transitions))
	for _, tr := range h.transitions {
		out = append(out, tr.To)
	}
	return out
}

func (h *harness) rows(t *testing.T, where string) int {
	t.Helper()
	query := "SELECT COUNT(*) FROM " + testTable
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	require.NoError(t, h.db.QueryRow(query).Scan(&n))
	return n
}

func newHarness(t *testing.T, createTable string) *harness {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "run.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	if createTable == "" {
		createTable = sink.CreateTableStatement(testTable)
	}
	_, err = db.Exec(createTable)
	require.NoError(t, err)

	return &harness{db: db}
}

type options struct {
	document string
	policy   dataprocessing.RecordErrorPolicy
	lookup   businessday.Lookup
	provider sink.ConnProvider
	extra    []Option
}

func (h *harness) orchestrator(t *testing.T, o options) *Orchestrator {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	h.logs = handler

	if o.lookup == nil {
		cal, err := businessday.NewCalendarLookup(nil, 10, "")
		require.NoError(t, err)
		o.lookup = cal
	}
	if o.provider == nil {
		o.provider = h.db
	}

	source := dataprocessing.FileSource{Path: testutil.WriteDocument(t, o.document)}
	extractor := dataprocessing.NewExtractor(
		dataprocessing.ExtractOptions{OnRecordError: o.policy}, validation.NewRecordValidator(), logger)

	opts := append([]Option{
		WithValidator(validation.NewRecordValidator()),
		WithObserver(ObserverFunc(func(tr Transition) { h.transitions = append(h.transitions, tr) })),
		WithClock(func() time.Time { return time.Date(2024, 3, 15, 19, 30, 0, 0, time.UTC) }),
	}, o.extra...)

	return NewOrchestrator(testConfig, o.provider, sink.SQLite, o.lookup, source, extractor, logger, opts...)
}

type failingProvider struct{}

func (failingProvider) Conn(context.Context) (*sql.Conn, error) {
	return nil, errors.New("connection refused")
}

type stubLookup struct {
	date time.Time
	err  error
}

func (s stubLookup) PreviousBusinessDay(context.Context, string, time.Time) (time.Time, error) {
	return s.date, s.err
}

func TestRun_Committed(t *testing.T) {
	h := newHarness(t, "")
	exportDir := t.TempDir()
	metricsFile := filepath.Join(t.TempDir(), "mktyield.prom")

	cfg := testConfig
	cfg.MetricsTextfile = metricsFile

	reg := prometheus.NewRegistry()
	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.Registerer = reg
	providers, err := infrastructure.InitializeOTel(otelCfg, infrastructure.NewLogger(&strings.Builder{}, "error"))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	tracer, err := NewRunTracer(providers.Meter)
	require.NoError(t, err)

	o := h.orchestrator(t, options{
		document: testutil.FullCurvesDocument,
		extra: []Option{
			WithExporter(exporter.NewSnapshotExporter(exportDir, nil)),
			WithTracer(tracer),
			WithGatherer(reg),
		},
	})
	o.cfg = cfg

	result, err := o.Run(context.Background(), "LDN", "2024-03-18")
	require.NoError(t, err)

	assert.Equal(t, StateCommitted, result.State)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "LDN", result.Location)
	assert.Equal(t, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), result.AsOfDate)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), result.PrevDate, "monday resolves to friday")
	assert.Equal(t, testutil.FullCurvesRowCount, result.RowsCommitted)
	assert.Equal(t, map[domain.CurveKind]int{
		domain.CurveKindMoneyMarket:   3,
		domain.CurveKindSwap:          2,
		domain.CurveKindInflationSwap: 2,
		domain.CurveKindSpread:        2,
	}, result.ByKind)
	assert.Len(t, result.Passes, 4)

	assert.Equal(t, []RunState{
		StateInitialized, StateResolvingPrevDate, StateExtracting, StateLoading, StateCommitted,
	}, h.states())

	assert.Equal(t, testutil.FullCurvesRowCount, h.rows(t, ""))
	assert.Equal(t, testutil.FullCurvesRowCount, h.rows(t, "Location = 'LDN' AND System_location = 'PARIS' AND Curveid = 'MSSEOD'"))
	assert.Equal(t, 1, h.rows(t, "Mkttype = 'FUT'"))

	assert.Equal(t, filepath.Join(exportDir, "mkt_yeild_pc_LDN_20240318.csv"), result.ExportPath)
	assert.FileExists(t, result.ExportPath)

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "yield_load_runs_total")

	testutil.AssertLogContains(t, h.logs, slog.LevelInfo, "Run committed")
}

func TestRun_EmptyDocumentCommitsNothing(t *testing.T) {
	h := newHarness(t, "")
	o := h.orchestrator(t, options{document: testutil.EmptyCurvesDocument})

	result, err := o.Run(context.Background(), "LDN", "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, result.State)
	assert.Zero(t, result.RowsCommitted)
	assert.Zero(t, h.rows(t, ""))
}

func TestRun_SingleSwap(t *testing.T) {
	h := newHarness(t, "")
	o := h.orchestrator(t, options{document: testutil.SingleSwapDocument})

	_, err := o.Run(context.Background(), "LDN", "2024-03-15")
	require.NoError(t, err)

	var mkttype, term, ccy, index string
	require.NoError(t, h.db.QueryRow(
		"SELECT Mkttype, Term, Commodity1, Commodity2 FROM "+testTable).Scan(&mkttype, &term, &ccy, &index))
	assert.Equal(t, []string{"AIC", "5Y", "EUR", "EURIBOR"}, []string{mkttype, term, ccy, index})
}

func TestRun_RolledBack(t *testing.T) {
	checkTable := strings.TrimSuffix(sink.CreateTableStatement(testTable), "\n)") + ",\n\tCHECK (Term <> 'EDZ24')\n)"

	tests := []struct {
		name         string
		table        string
		opts         options
		date         string
		wantFailed   RunState
		wantType     apperrors.ErrorType
		wantNotFound bool
		wantStates   []RunState
	}{
		{
			name:       "parse error in spread pass",
			opts:       options{document: testutil.BadSpreadDocument},
			date:       "2024-03-15",
			wantFailed: StateExtracting,
			wantType:   apperrors.ErrTypeParsing,
			wantStates: []RunState{StateInitialized, StateResolvingPrevDate, StateExtracting, StateRolledBack},
		},
		{
			name:       "sink rejects a spread row",
			table:      checkTable,
			opts:       options{document: testutil.FullCurvesDocument},
			date:       "2024-03-15",
			wantFailed: StateLoading,
			wantType:   apperrors.ErrTypeStorage,
			wantStates: []RunState{StateInitialized, StateResolvingPrevDate, StateExtracting, StateLoading, StateRolledBack},
		},
		{
			name: "no previous business day",
			opts: options{
				document: testutil.FullCurvesDocument,
				lookup:   mustCalendar(t, 1),
			},
			date:         "2024-03-18",
			wantFailed:   StateResolvingPrevDate,
			wantType:     apperrors.ErrTypeLookup,
			wantNotFound: true,
			wantStates:   []RunState{StateInitialized, StateResolvingPrevDate, StateRolledBack},
		},
		{
			name: "lookup query fails",
			opts: options{
				document: testutil.FullCurvesDocument,
				lookup:   stubLookup{err: apperrors.NewLookupError("query failed", errors.New("boom"))},
			},
			date:       "2024-03-15",
			wantFailed: StateResolvingPrevDate,
			wantType:   apperrors.ErrTypeLookup,
			wantStates: []RunState{StateInitialized, StateResolvingPrevDate, StateRolledBack},
		},
		{
			name:       "connection failure",
			opts:       options{document: testutil.FullCurvesDocument, provider: failingProvider{}},
			date:       "2024-03-15",
			wantFailed: StateInitialized,
			wantType:   apperrors.ErrTypeConnectivity,
			wantStates: []RunState{StateInitialized, StateRolledBack},
		},
		{
			name:       "invalid business date",
			opts:       options{document: testutil.FullCurvesDocument},
			date:       "15/03/2024",
			wantFailed: StateInitialized,
			wantType:   apperrors.ErrTypeValidation,
			wantStates: []RunState{StateInitialized, StateRolledBack},
		},
		{
			name:       "malformed document",
			opts:       options{document: "<Curves><SwapRates>"},
			date:       "2024-03-15",
			wantFailed: StateExtracting,
			wantType:   apperrors.ErrTypeDocument,
			wantStates: []RunState{StateInitialized, StateResolvingPrevDate, StateExtracting, StateRolledBack},
		},
		{
			name: "previous date after as-of date",
			opts: options{
				document: testutil.FullCurvesDocument,
				lookup:   stubLookup{date: time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)},
			},
			date:       "2024-03-15",
			wantFailed: StateResolvingPrevDate,
			wantType:   apperrors.ErrTypeValidation,
			wantStates: []RunState{StateInitialized, StateResolvingPrevDate, StateRolledBack},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.table)
			_, err := h.db.Exec("INSERT INTO "+testTable+" (Location, System_location, Application, Curvetype, "+
				"Asofdate, Prevdate, Curveid, Mkttype, Term, Rate, Spread, Import_date) "+
				"VALUES ('LDN', 'PARIS', 'SUMMIT', 'YCURVE', '2024-03-14', '2024-03-13', 'MSSEOD', 'AIC', 'OLD', 1, 0, '2024-03-14 19:00:00')")
			require.NoError(t, err)

			o := h.orchestrator(t, tt.opts)
			result, err := o.Run(context.Background(), "LDN", tt.date)
			require.Error(t, err)

			assert.Equal(t, StateRolledBack, result.State)
			failed, ok := FailedState(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantFailed, failed)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
			assert.Equal(t, tt.wantNotFound, errors.Is(err, businessday.ErrNoPreviousBusinessDay))
			assert.Equal(t, tt.wantStates, h.states())

			last := h.transitions[len(h.transitions)-1]
			assert.Error(t, last.Err)

			assert.Equal(t, 1, h.rows(t, ""), "only the pre-existing row remains")
			assert.Equal(t, 1, h.rows(t, "Term = 'OLD'"))
			assert.Zero(t, result.RowsCommitted)
		})
	}
}

func TestRun_SkipPolicy(t *testing.T) {
	h := newHarness(t, "")
	o := h.orchestrator(t, options{document: testutil.BadSpreadDocument, policy: dataprocessing.PolicySkip})

	result, err := o.Run(context.Background(), "LDN", "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 3, result.RowsCommitted)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 3, h.rows(t, ""))
}

func TestRun_ExportFailureDoesNotFailRun(t *testing.T) {
	h := newHarness(t, "")
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	o := h.orchestrator(t, options{
		document: testutil.SingleSwapDocument,
		extra:    []Option{WithExporter(exporter.NewSnapshotExporter(filepath.Join(blocker, "exports"), nil))},
	})

	result, err := o.Run(context.Background(), "LDN", "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, result.State)
	assert.Empty(t, result.ExportPath)
	assert.Equal(t, 1, h.rows(t, ""))
}

func TestRun_MissingLocation(t *testing.T) {
	h := newHarness(t, "")
	o := h.orchestrator(t, options{document: testutil.SingleSwapDocument})

	result, err := o.Run(context.Background(), "  ", "2024-03-15")
	require.Error(t, err)
	assert.Equal(t, StateRolledBack, result.State)
	assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))
}

func TestPreview(t *testing.T) {
	h := newHarness(t, "")
	o := h.orchestrator(t, options{document: testutil.FullCurvesDocument})

	records, err := o.Preview(context.Background(), "LDN", "2024-03-18")
	require.NoError(t, err)
	require.Len(t, records, testutil.FullCurvesRowCount)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), records[0].PrevDate)
	assert.Zero(t, h.rows(t, ""))
	assert.Empty(t, h.transitions)
}

func mustCalendar(t *testing.T, lookback int) businessday.Lookup {
	t.Helper()
	cal, err := businessday.NewCalendarLookup(nil, lookback, "")
	require.NoError(t, err)
	return cal
}
