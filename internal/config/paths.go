package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// resolvePaths makes every configured path absolute against the working directory
func (c *Config) resolvePaths() error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	c.Paths.DocumentPath = ResolvePath(wd, c.Paths.DocumentPath)
	c.Paths.ExportDir = ResolvePath(wd, c.Paths.ExportDir)
	c.Paths.LogsDir = ResolvePath(wd, c.Paths.LogsDir)
	c.Logging.FilePath = ResolvePath(wd, c.Logging.FilePath)
	c.Telemetry.MetricsTextfile = ResolvePath(wd, c.Telemetry.MetricsTextfile)

	return nil
}

// ResolvePath joins a relative path onto base. Empty and absolute paths are returned unchanged.
func ResolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// ExportEnabled reports whether committed snapshots should be exported to CSV
func (c *Config) ExportEnabled() bool {
	return c.Paths.ExportDir != ""
}

// EnsureDirectories creates the log and export directories when configured
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogsDir, c.Paths.ExportDir}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
