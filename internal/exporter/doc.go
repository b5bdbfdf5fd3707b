// Package exporter writes committed yield-curve snapshots to CSV.
//
// CSVWriter is the generic writer with optional UTF-8 BOM and append mode.
// SnapshotExporter formats quote records with the snapshot table's column
// order, one file per location and as-of date:
//
//	e := exporter.NewSnapshotExporter("/var/lib/mktyield/exports", logger)
//	path, err := e.Export("LDN", asOf, records)
package exporter
