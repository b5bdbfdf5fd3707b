package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mktyield/internal/errors"
	"mktyield/internal/infrastructure"
	"mktyield/internal/operations"
	"mktyield/internal/shared/testutil"
)

const testConfigTemplate = `
logging:
  level: debug
  output: file
  file_path: logs/test.log
paths:
  export_dir: exports
sink:
  driver: sqlite
  dsn: %s
business_day:
  source: calendar
  max_lookback: 10
telemetry:
  enable_metrics: false
`

func setupWorkspace(t *testing.T, document string) (string, string) {
	t.Helper()
	dir := t.TempDir()

	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })

	infrastructure.ResetLoggerForTesting()
	t.Cleanup(infrastructure.ResetLoggerForTesting)

	dsn := filepath.Join(dir, "feed.db")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte(fmt.Sprintf(testConfigTemplate, dsn)), 0644))

	if document != "" {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "xds"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "xds", "transformedXML.xml"), []byte(document), 0644))
	}
	return dir, dsn
}

func TestApplication_LoadEndToEnd(t *testing.T) {
	dir, _ := setupWorkspace(t, testutil.FullCurvesDocument)
	ctx := context.Background()

	a, err := NewApplication(ctx, Options{})
	require.NoError(t, err)
	defer a.Stop(ctx)

	require.NoError(t, a.InitSchema(ctx))

	result, err := a.Load(ctx, "LDN", "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, operations.StateCommitted, result.State)
	assert.Equal(t, testutil.FullCurvesRowCount, result.RowsCommitted)

	var n int
	require.NoError(t, a.DB.QueryRow("SELECT COUNT(*) FROM mkt_yeild_pc").Scan(&n))
	assert.Equal(t, testutil.FullCurvesRowCount, n)

	assert.FileExists(t, filepath.Join(dir, "exports", "mkt_yeild_pc_LDN_20240315.csv"))
	assert.FileExists(t, filepath.Join(dir, "logs", "test.log"))
}

func TestApplication_Preview(t *testing.T) {
	_, _ = setupWorkspace(t, testutil.SingleSwapDocument)
	ctx := context.Background()

	a, err := NewApplication(ctx, Options{})
	require.NoError(t, err)
	defer a.Stop(ctx)

	records, err := a.Preview(ctx, "LDN", "2024-03-15")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "5Y", records[0].Term)
}

func TestApplication_DocumentOverride(t *testing.T) {
	dir, _ := setupWorkspace(t, "")
	ctx := context.Background()

	override := filepath.Join(dir, "other.xml")
	require.NoError(t, os.WriteFile(override, []byte(testutil.SingleSwapDocument), 0644))

	a, err := NewApplication(ctx, Options{DocumentPath: override})
	require.NoError(t, err)
	defer a.Stop(ctx)
	require.NoError(t, a.InitSchema(ctx))

	result, err := a.Load(ctx, "LDN", "2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsCommitted)
}

func TestApplication_MissingDocument(t *testing.T) {
	_, _ = setupWorkspace(t, "")
	ctx := context.Background()

	a, err := NewApplication(ctx, Options{})
	require.NoError(t, err)
	defer a.Stop(ctx)
	require.NoError(t, a.InitSchema(ctx))

	result, err := a.Load(ctx, "LDN", "2024-03-15")
	require.Error(t, err)
	assert.Equal(t, operations.StateRolledBack, result.State)
	assert.Equal(t, apperrors.ErrTypeDocument, apperrors.TypeOf(err))
}

func TestNewApplication_BadConfig(t *testing.T) {
	_, _ = setupWorkspace(t, "")

	_, err := NewApplication(context.Background(), Options{ConfigFile: "missing.yaml"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeConfig, apperrors.TypeOf(err))
}
