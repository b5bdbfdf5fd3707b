package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteMetricsTextfile dumps the gathered metrics in the prometheus text
// format, for pickup by a node_exporter textfile collector. The file is
// replaced atomically. A nil gatherer means prometheus.DefaultGatherer.
func WriteMetricsTextfile(path string, gatherer prometheus.Gatherer) error {
	if path == "" {
		return nil
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}

	if err := prometheus.WriteToTextfile(path, gatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
