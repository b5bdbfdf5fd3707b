package exporter

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mktyield/internal/sink"
	"mktyield/pkg/contracts/domain"
)

const importTimestampLayout = "2006-01-02 15:04:05"

// SnapshotExporter writes a committed snapshot to CSV with the table's columns
type SnapshotExporter struct {
	writer *CSVWriter
	logger *slog.Logger
}

// NewSnapshotExporter creates an exporter writing into dir
func NewSnapshotExporter(dir string, logger *slog.Logger) *SnapshotExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotExporter{
		writer: NewCSVWriter(dir, logger),
		logger: logger,
	}
}

// FileName is the export file for a location and as-of date
func FileName(location string, asOf time.Time) string {
	return fmt.Sprintf("mkt_yeild_pc_%s_%s.csv", strings.ToUpper(location), asOf.Format("20060102"))
}

// Headers returns the table column names
func Headers() []string {
	headers := make([]string, len(sink.Columns))
	for i, c := range sink.Columns {
		headers[i] = c.Name
	}
	return headers
}

// Row formats a record in column order
func Row(r domain.QuoteRecord) []string {
	toDate := ""
	if r.ToDate != nil {
		toDate = r.ToDate.Format(time.DateOnly)
	}
	return []string{
		r.Location,
		r.SystemLocation,
		r.Application,
		r.CurveType,
		r.AsOfDate.Format(time.DateOnly),
		r.PrevDate.Format(time.DateOnly),
		r.CurveID,
		string(r.MarketType),
		r.Term,
		toDate,
		r.Rate.String(),
		r.Spread.String(),
		r.ImportTimestamp.Format(importTimestampLayout),
		r.Commodity1,
		r.Commodity2,
	}
}

// Export writes records and returns the file path. An existing export for
// the same location and date is replaced.
func (e *SnapshotExporter) Export(location string, asOf time.Time, records []domain.QuoteRecord) (string, error) {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = Row(r)
	}

	name := FileName(location, asOf)
	if err := e.writer.WriteCSV(name, WriteOptions{
		Headers:   Headers(),
		Records:   rows,
		BOMPrefix: true,
	}); err != nil {
		return "", fmt.Errorf("failed to export snapshot: %w", err)
	}

	path := e.writer.resolvePath(name)
	e.logger.Info("Snapshot exported", slog.String("path", path), slog.Int("rows", len(rows)))
	return path, nil
}
