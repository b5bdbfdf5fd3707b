package operations

import (
	"time"

	"mktyield/internal/config"
)

// Config holds the per-deployment values the orchestrator needs
type Config struct {
	SystemLocation string
	Application    string
	CurveType      string
	CurveID        string

	Table      string
	DateLayout string

	// MetricsTextfile is rewritten after every run when set
	MetricsTextfile string
}

// ConfigFrom extracts the orchestrator configuration from the application config
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		SystemLocation:  cfg.Deployment.SystemLocation,
		Application:     cfg.Deployment.Application,
		CurveType:       cfg.Deployment.CurveType,
		CurveID:         cfg.Deployment.CurveID,
		Table:           cfg.Sink.Table,
		DateLayout:      cfg.Extraction.DateLayout,
		MetricsTextfile: cfg.Telemetry.MetricsTextfile,
	}
}

func (c Config) dateLayout() string {
	if c.DateLayout == "" {
		return time.DateOnly
	}
	return c.DateLayout
}
